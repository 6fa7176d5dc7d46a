package models

import (
	"time"

	"github.com/gocql/gocql"
)

// Collection est un lot de produits composé par un vendeur et achetable
// comme un ensemble thématique. L'ajout au panier d'une collection se fait
// produit par produit, chaque item étant tagué collection_id/seller_id pour
// le regroupement côté front.
type Collection struct {
	ID          gocql.UUID   `json:"id" db:"collection_id"`
	SellerID    gocql.UUID   `json:"seller_id" db:"seller_id"`
	Name        string       `json:"name" db:"name"`
	Slug        string       `json:"slug" db:"slug"`
	Description string       `json:"description" db:"description"`
	ProductIDs  []gocql.UUID `json:"product_ids" db:"product_ids"`
	CreatedAt   *time.Time   `json:"created_at" db:"created_at"`

	// Rempli à la lecture, jamais stocké tel quel.
	Products []Product `json:"products,omitempty" db:"-"`
}
