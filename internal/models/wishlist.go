package models

type Wishlist struct {
	UserID string    `json:"user_id"`
	Items  []Product `json:"items"`
}
