package events

import (
	"time"

	"github.com/spec-kit/backbone-auth/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType = domain.ActivityType

const (
	EventLoginSucceeded         = domain.ActivityLoginSuccess
	EventLoginFailed            = domain.ActivityLoginFailure
	EventRoleSelected           = domain.ActivityRoleSelected
	EventRoleSwitched           = domain.ActivityRoleSwitched
	EventImpersonationSucceeded = domain.ActivityImpersonationSuccess
	EventImpersonationFailed    = domain.ActivityImpersonationFailure
)

// AllEventTypes lists every auth activity type, for subscribers that record all of them.
var AllEventTypes = []EventType{
	EventLoginSucceeded,
	EventLoginFailed,
	EventRoleSelected,
	EventRoleSwitched,
	EventImpersonationSucceeded,
	EventImpersonationFailed,
}

// Event represents an auth activity emitted by services.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Username  string    `json:"username"`
	Actor     string    `json:"actor,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload,omitempty"`
}

// LoginPayload describes a login attempt.
type LoginPayload struct {
	Method                string   `json:"method"`
	Reason                string   `json:"reason,omitempty"`
	Roles                 []string `json:"roles,omitempty"`
	RequiresRoleSelection bool     `json:"requires_role_selection,omitempty"`
}

// RoleChangePayload describes a role selection or switch.
type RoleChangePayload struct {
	FromRole string `json:"from_role,omitempty"`
	ToRole   string `json:"to_role"`
}

// ImpersonationPayload describes an impersonation attempt.
type ImpersonationPayload struct {
	Target string   `json:"target"`
	Role   string   `json:"role,omitempty"`
	Roles  []string `json:"roles,omitempty"`
	Reason string   `json:"reason,omitempty"`
}
