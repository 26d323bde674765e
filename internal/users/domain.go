package users

import (
	"time"

	"github.com/madaris-app/madaris/internal/rbac"
)

// User is a sign-in account. Students, teachers and parents link to their
// account through the auth_id column on their own records.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	DisplayName  string    `json:"display_name"`
	Role         rbac.Role `json:"role"`
	PasswordHash string    `json:"-"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Filters narrows a user listing.
type Filters struct {
	Role   rbac.Role
	Search string
}
