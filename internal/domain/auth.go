package domain

import "time"

// ActivityType classifies audit events emitted by the auth flows.
type ActivityType string

const (
	ActivityLoginSuccess         ActivityType = "auth.login.success"
	ActivityLoginFailure         ActivityType = "auth.login.failure"
	ActivityRoleSelected         ActivityType = "auth.role.selected"
	ActivityRoleSwitched         ActivityType = "auth.role.switched"
	ActivityImpersonationSuccess ActivityType = "auth.impersonation.success"
	ActivityImpersonationFailure ActivityType = "auth.impersonation.failure"
)

// Activity is a persisted audit record.
type Activity struct {
	ID        string
	Type      ActivityType
	Username  string
	Actor     string
	Role      string
	Reason    string
	Metadata  map[string]any
	CreatedAt time.Time
}
