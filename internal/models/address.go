package models

import (
	"time"

	"github.com/gocql/gocql"
)

type Address struct {
	ID         gocql.UUID `json:"id" db:"address_id"`
	UserID     string     `json:"user_id" db:"user_id"`
	Street     string     `json:"street" db:"street"`
	PostalCode string     `json:"postal_code" db:"postal_code"`
	City       string     `json:"city" db:"city"`
	Country    string     `json:"country" db:"country"`
	IsDefault  bool       `json:"is_default" db:"is_default"`
	CreatedAt  *time.Time `json:"created_at" db:"created_at"`
}
