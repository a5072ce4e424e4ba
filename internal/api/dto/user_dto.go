package dto

import "time"

// CreateUserRequest payload.
type CreateUserRequest struct {
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Email       string `json:"email"`
	CreditLimit int64  `json:"credit_limit"`
	IsAdmin     bool   `json:"is_admin"`
}

// UpdateUserRequest carries optional fields for partial updates.
type UpdateUserRequest struct {
	FirstName   *string `json:"first_name"`
	LastName    *string `json:"last_name"`
	Email       *string `json:"email"`
	CreditLimit *int64  `json:"credit_limit"`
	IsAdmin     *bool   `json:"is_admin"`
}

// UserResponse payload.
type UserResponse struct {
	ID          string    `json:"id"`
	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	Email       string    `json:"email"`
	CreditLimit int64     `json:"credit_limit"`
	IsAdmin     bool      `json:"is_admin"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// AdminTokenRequest payload.
type AdminTokenRequest struct {
	Password string `json:"password"`
}

// AdminTokenResponse payload.
type AdminTokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}
