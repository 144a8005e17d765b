package domain

import "time"

type UserRole string

const (
	RoleClient   UserRole = "CLIENT"
	RoleOwner    UserRole = "OWNER"
	RoleDelivery UserRole = "DELIVERY"
)

func (r UserRole) Valid() bool {
	switch r {
	case RoleClient, RoleOwner, RoleDelivery:
		return true
	}
	return false
}

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         UserRole  `json:"role"`
	Verified     bool      `json:"verified"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Verification links a one-time code to the user whose email it confirms.
type Verification struct {
	ID     string `json:"id"`
	Code   string `json:"code"`
	UserID string `json:"user_id"`
}
