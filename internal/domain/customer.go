package domain

import "time"

// Customer owns tickets and purchases.
type Customer struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Purchase is referenced by tickets that concern a specific order.
type Purchase struct {
	ID         string
	CustomerID string
	CreatedAt  time.Time
}
