package domain

// Well-known role names. Any non-empty string is a valid role; these are the
// ones the service ships with.
const (
	RoleAdmin      = "Admin"
	RoleMaster     = "Master"
	RoleSubscriber = "Subscriber"
)

// NormalizeRoles drops empty names and duplicates, keeping first-seen order.
func NormalizeRoles(roles []string) []string {
	out := make([]string, 0, len(roles))
	seen := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		if r == "" {
			continue
		}
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	return out
}
