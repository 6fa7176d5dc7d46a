package models

import (
	"time"

	"github.com/gocql/gocql"
)

// Statuts de commande. Une commande est immuable après création, seules les
// transitions de statut sont autorisées (outillage admin).
const (
	OrderStatusPending   = "pending"
	OrderStatusPaid      = "paid"
	OrderStatusShipped   = "shipped"
	OrderStatusDelivered = "delivered"
	OrderStatusCancelled = "cancelled"
)

// ValidOrderStatus vérifie qu'un statut appartient à l'énumération.
func ValidOrderStatus(s string) bool {
	switch s {
	case OrderStatusPending, OrderStatusPaid, OrderStatusShipped,
		OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

type OrderItem struct {
	ProductID string  `json:"product_id"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Quantity  int     `json:"quantity"`
}

type Order struct {
	ID         gocql.UUID  `json:"id" db:"order_id"`
	UserID     string      `json:"user_id" db:"user_id"`
	StripeID   string      `json:"stripe_id" db:"stripe_id"`
	Items      []OrderItem `json:"items" db:"items"`
	AddressID  gocql.UUID  `json:"address_id" db:"address_id"`
	TotalPrice float64     `json:"total_price" db:"total_price"`
	Discount   float64     `json:"discount" db:"discount"`
	Status     string      `json:"status" db:"status"`
	CreatedAt  time.Time   `json:"created_at" db:"created_at"`
}
