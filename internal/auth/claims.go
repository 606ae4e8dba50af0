package auth

// Claim types carried by issued tokens.
const (
	ClaimSubject           = "sub"
	ClaimTokenID           = "jti"
	ClaimRole              = "role"
	ClaimCurrentRole       = "current_role"
	ClaimOriginalRoles     = "original_roles"
	ClaimIsImpersonating   = "is_impersonating"
	ClaimOriginalUsername  = "original_username"
	ClaimImpersonationRole = "impersonation_role"
)

// AllRolesSentinel marks an impersonation that was not narrowed to one role.
const AllRolesSentinel = "all_roles"

// Claim is a typed fact embedded in a token.
type Claim struct {
	Type  string
	Value string
}

// Claims is an immutable, ordered claim collection. The zero value is empty.
type Claims struct {
	items []Claim
}

// NewClaims copies list into a Claims value.
func NewClaims(list ...Claim) Claims {
	items := make([]Claim, len(list))
	copy(items, list)
	return Claims{items: items}
}

// List returns a copy of the claims in order.
func (c Claims) List() []Claim {
	out := make([]Claim, len(c.items))
	copy(out, c.items)
	return out
}

// Len returns the number of claims.
func (c Claims) Len() int {
	return len(c.items)
}

// With returns a new collection with extra appended.
func (c Claims) With(extra ...Claim) Claims {
	items := make([]Claim, 0, len(c.items)+len(extra))
	items = append(items, c.items...)
	items = append(items, extra...)
	return Claims{items: items}
}

// Value returns the first value of claimType.
func (c Claims) Value(claimType string) (string, bool) {
	for _, claim := range c.items {
		if claim.Type == claimType {
			return claim.Value, true
		}
	}
	return "", false
}

// Values returns every value of claimType in order.
func (c Claims) Values(claimType string) []string {
	var out []string
	for _, claim := range c.items {
		if claim.Type == claimType {
			out = append(out, claim.Value)
		}
	}
	return out
}

// Has reports whether claimType carries value exactly.
func (c Claims) Has(claimType, value string) bool {
	for _, claim := range c.items {
		if claim.Type == claimType && claim.Value == value {
			return true
		}
	}
	return false
}

// FilterClaims returns a copy of claims without any claim whose type is excluded.
func FilterClaims(claims Claims, excluded ...string) Claims {
	skip := make(map[string]struct{}, len(excluded))
	for _, t := range excluded {
		skip[t] = struct{}{}
	}
	items := make([]Claim, 0, len(claims.items))
	for _, claim := range claims.items {
		if _, drop := skip[claim.Type]; drop {
			continue
		}
		items = append(items, claim)
	}
	return Claims{items: items}
}

// Subject returns the username the token was issued to.
func (c Claims) Subject() string {
	v, _ := c.Value(ClaimSubject)
	return v
}

// TokenID returns the jti claim.
func (c Claims) TokenID() string {
	v, _ := c.Value(ClaimTokenID)
	return v
}

// Roles returns the effective role claims.
func (c Claims) Roles() []string {
	return c.Values(ClaimRole)
}

// OriginalRoles returns the roles the subject may select or switch between.
func (c Claims) OriginalRoles() []string {
	return c.Values(ClaimOriginalRoles)
}

// CurrentRole returns the active role, empty on interim tokens.
func (c Claims) CurrentRole() string {
	v, _ := c.Value(ClaimCurrentRole)
	return v
}

// HasRole reports whether role is an effective role. Exact match only.
func (c Claims) HasRole(role string) bool {
	return role != "" && c.Has(ClaimRole, role)
}

// IsInAnyRole reports whether any of roles is an effective role.
func (c Claims) IsInAnyRole(roles ...string) bool {
	for _, r := range roles {
		if c.HasRole(r) {
			return true
		}
	}
	return false
}

// IsInterim reports whether the token only allows role selection.
func (c Claims) IsInterim() bool {
	return len(c.Roles()) == 0 && len(c.OriginalRoles()) > 0
}

// IsFinal reports whether the token carries at least one usable role.
func (c Claims) IsFinal() bool {
	return c.Subject() != "" && len(c.Roles()) > 0
}

// IsImpersonating reports whether the token was minted by an impersonator.
func (c Claims) IsImpersonating() bool {
	return c.Has(ClaimIsImpersonating, "true")
}

// OriginalUsername returns the impersonator, empty outside impersonation.
func (c Claims) OriginalUsername() string {
	v, _ := c.Value(ClaimOriginalUsername)
	return v
}

// ImpersonationRole returns the narrowed role or AllRolesSentinel.
func (c Claims) ImpersonationRole() string {
	v, _ := c.Value(ClaimImpersonationRole)
	return v
}

// HasRole is the capability check used by guards.
func HasRole(claims Claims, role string) bool {
	return claims.HasRole(role)
}

// IsInAnyRole is the capability check used by guards.
func IsInAnyRole(claims Claims, roles ...string) bool {
	return claims.IsInAnyRole(roles...)
}

// RoleClaims builds one claim of claimType per role.
func RoleClaims(claimType string, roles []string) []Claim {
	out := make([]Claim, 0, len(roles))
	for _, r := range roles {
		out = append(out, Claim{Type: claimType, Value: r})
	}
	return out
}
