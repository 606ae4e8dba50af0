package service

import (
	"fmt"
	"time"
)

// Reason is a stable code for why an auth operation failed.
type Reason string

const (
	ReasonInvalidCredentials    Reason = "invalid_credentials"
	ReasonNoRoles               Reason = "no_roles"
	ReasonSystemError           Reason = "system_error"
	ReasonInvalidToken          Reason = "invalid_token"
	ReasonInvalidRoleSelection  Reason = "invalid_role_selection"
	ReasonNotAuthenticated      Reason = "not_authenticated"
	ReasonSingleRole            Reason = "single_role"
	ReasonRoleNotHeld           Reason = "role_not_held"
	ReasonAccountInactive       Reason = "account_inactive"
	ReasonPermissionDenied      Reason = "permission_denied"
	ReasonUserNotFound          Reason = "user_not_found"
	ReasonRoleNotImpersonatable Reason = "role_not_impersonatable"
	ReasonNoImpersonatableRoles Reason = "no_impersonatable_roles"
)

// Result is the outcome of a role-session or impersonation operation.
// Business failures are reported here, never as errors.
type Result struct {
	Success bool
	Reason  Reason
	Message string

	Token     string
	ExpiresAt time.Time

	Username              string
	CurrentRole           string
	Roles                 []string
	AvailableRoles        []string
	RequiresRoleSelection bool

	OriginalUsername  string
	ImpersonationRole string
}

// Failure messages shown to callers.
const (
	msgInvalidCredentials    = "Invalid credentials"
	msgNoRoles               = "User has no roles assigned"
	msgSystemError           = "System error"
	msgInvalidToken          = "Invalid token"
	msgInvalidRoleSelection  = "Invalid role selection"
	msgNotAuthenticated      = "User is not authenticated"
	msgSingleRole            = "User only has one assigned role"
	msgAccountInactive       = "User account is not active"
	msgPermissionDenied      = "You don't have permission to impersonate"
	msgUserNotFound          = "User not found"
	msgNoImpersonatableRoles = "User has no impersonatable roles"
)

func fail(reason Reason, message string) *Result {
	return &Result{Reason: reason, Message: message}
}

func roleNotHeld(role string) *Result {
	return fail(ReasonRoleNotHeld, fmt.Sprintf("User doesn't have the '%s' role", role))
}

func roleNotImpersonatable(role string) *Result {
	return fail(ReasonRoleNotImpersonatable, fmt.Sprintf("Role '%s' cannot be impersonated", role))
}

// outcome is the metrics label for a result.
func (r *Result) outcome() string {
	if r.Success {
		return "success"
	}
	return string(r.Reason)
}
