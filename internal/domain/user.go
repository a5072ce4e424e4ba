package domain

import "time"

// User is a borrower with a fixed lending ceiling. The sum of disbursed funds
// on a user's applications must never exceed CreditLimit.
type User struct {
	ID          string
	FirstName   string
	LastName    string
	Email       string
	CreditLimit int64
	IsAdmin     bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
