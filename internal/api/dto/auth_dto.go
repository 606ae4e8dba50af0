package dto

import (
	"errors"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
)

// LoginRequest payload for POST /auth/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Validate checks required fields.
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username, validation.Required.Error("Username is required"), validation.Length(1, 256)),
		validation.Field(&r.Password, validation.Required.Error("Password is required")),
	)
}

// DirectLoginRequest payload for POST /auth/direct-login.
type DirectLoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

func (r DirectLoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username, validation.Required.Error("Username is required"), validation.Length(1, 256)),
		validation.Field(&r.Password, validation.Required.Error("Password is required")),
		validation.Field(&r.Role, validation.Required.Error("Role is required")),
	)
}

// SelectRoleRequest payload for POST /auth/select-role.
type SelectRoleRequest struct {
	Token string `json:"token"`
	Role  string `json:"role"`
}

func (r SelectRoleRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Token, validation.Required.Error("Token is required")),
		validation.Field(&r.Role, validation.Required.Error("Role selection is required")),
	)
}

// SwitchRoleRequest payload for POST /auth/switch-role.
type SwitchRoleRequest struct {
	Role string `json:"role"`
}

func (r SwitchRoleRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Role, validation.Required.Error("Role is required")),
	)
}

// ImpersonateRequest payload for POST /auth/impersonate. Role is optional.
type ImpersonateRequest struct {
	Username string `json:"username"`
	Role     string `json:"role"`
}

func (r ImpersonateRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username, validation.Required.Error("Username is required"), validation.Length(1, 256)),
	)
}

// AuthResponse is returned by every token-issuing endpoint.
type AuthResponse struct {
	Token                 string    `json:"token"`
	ExpiresAt             time.Time `json:"expires_at"`
	Username              string    `json:"username"`
	CurrentRole           string    `json:"current_role,omitempty"`
	Roles                 []string  `json:"roles,omitempty"`
	AvailableRoles        []string  `json:"available_roles,omitempty"`
	RequiresRoleSelection bool      `json:"requires_role_selection"`
	OriginalUsername      string    `json:"original_username,omitempty"`
	ImpersonationRole     string    `json:"impersonation_role,omitempty"`
}

// MeResponse describes the caller's token.
type MeResponse struct {
	Username          string    `json:"username"`
	CurrentRole       string    `json:"current_role,omitempty"`
	Roles             []string  `json:"roles"`
	OriginalRoles     []string  `json:"original_roles"`
	IsImpersonating   bool      `json:"is_impersonating"`
	OriginalUsername  string    `json:"original_username,omitempty"`
	ImpersonationRole string    `json:"impersonation_role,omitempty"`
	ExpiresAt         time.Time `json:"expires_at"`
}

// ValidationDetails flattens ozzo field errors into a details map.
func ValidationDetails(err error) map[string]any {
	var fieldErrs validation.Errors
	if !errors.As(err, &fieldErrs) {
		return nil
	}
	out := make(map[string]any, len(fieldErrs))
	for field, fieldErr := range fieldErrs {
		out[field] = fieldErr.Error()
	}
	return out
}
