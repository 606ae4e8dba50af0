package domain

import "time"

// UserStatus represents lifecycle states for an account.
type UserStatus string

const (
	UserStatusActive    UserStatus = "Active"
	UserStatusInactive  UserStatus = "Inactive"
	UserStatusSuspended UserStatus = "Suspended"
)

// User is the domain model for an account together with its assigned roles.
type User struct {
	ID        int64
	Username  string
	Status    UserStatus
	Roles     []string
	IsDeleted bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsActive reports whether the account may authenticate.
func (u *User) IsActive() bool {
	return u != nil && !u.IsDeleted && u.Status == UserStatusActive
}

// HasRole reports whether the user holds role exactly as named.
func (u *User) HasRole(role string) bool {
	if u == nil || role == "" {
		return false
	}
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Credential is the stored secret material for a username.
type Credential struct {
	UserID       int64
	Username     string
	PasswordHash []byte
	PasswordSalt []byte
}
