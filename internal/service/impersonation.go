package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/backbone-auth/internal/auth"
	"github.com/spec-kit/backbone-auth/internal/domain"
	"github.com/spec-kit/backbone-auth/internal/events"
)

const opImpersonate = "impersonate"

// ImpersonationService lets holders of an impersonator role act as another
// user. The session is encoded in claims only; nothing is stored.
type ImpersonationService struct {
	sessionCore
	impersonators []string
	allowList     []string
}

// NewImpersonationService builds the service.
func NewImpersonationService(cfg SessionConfig, deps SessionDependencies) *ImpersonationService {
	return &ImpersonationService{
		sessionCore:   newSessionCore(cfg, deps),
		impersonators: domain.NormalizeRoles(cfg.ImpersonatorRoles),
		allowList:     cfg.allowList(),
	}
}

// AllowList returns the roles that may be impersonated.
func (s *ImpersonationService) AllowList() []string {
	return append([]string(nil), s.allowList...)
}

// Impersonate mints a final token for target on behalf of caller. requestedRole
// may be empty, in which case every impersonatable role the target holds is granted.
func (s *ImpersonationService) Impersonate(ctx context.Context, caller auth.Claims, target, requestedRole string) (*Result, error) {
	res, err := s.impersonate(ctx, caller, target, requestedRole)
	if res != nil {
		s.record(opImpersonate, res)
		s.audit(ctx, caller.Subject(), target, requestedRole, res)
	}
	return res, err
}

func (s *ImpersonationService) impersonate(ctx context.Context, caller auth.Claims, target, requestedRole string) (*Result, error) {
	actor := caller.Subject()
	if !caller.IsFinal() || caller.IsImpersonating() || !caller.IsInAnyRole(s.impersonators...) || actor == target {
		s.logger.Warn("impersonation denied", zap.String("username", actor), zap.String("target", target))
		return fail(ReasonPermissionDenied, msgPermissionDenied), nil
	}

	user, err := s.lookupUser(ctx, target)
	if err != nil {
		return nil, err
	}
	if !user.IsActive() {
		return fail(ReasonUserNotFound, msgUserNotFound), nil
	}

	roles := domain.NormalizeRoles(user.Roles)
	if len(roles) == 0 {
		return fail(ReasonNoRoles, msgNoRoles), nil
	}

	var effective []string
	if requestedRole != "" {
		if !contains(s.allowList, requestedRole) {
			return roleNotImpersonatable(requestedRole), nil
		}
		if !contains(roles, requestedRole) {
			return roleNotHeld(requestedRole), nil
		}
		effective = []string{requestedRole}
	} else {
		for _, r := range roles {
			if contains(s.allowList, r) {
				effective = append(effective, r)
			}
		}
		if len(effective) == 0 {
			return fail(ReasonNoImpersonatableRoles, msgNoImpersonatableRoles), nil
		}
	}

	impersonationRole := auth.AllRolesSentinel
	claims := auth.NewClaims(auth.Claim{Type: auth.ClaimSubject, Value: user.Username}).
		With(auth.RoleClaims(auth.ClaimRole, effective)...)
	if requestedRole != "" {
		impersonationRole = requestedRole
		claims = claims.With(auth.Claim{Type: auth.ClaimCurrentRole, Value: requestedRole})
	}
	claims = claims.With(
		auth.Claim{Type: auth.ClaimOriginalUsername, Value: actor},
		auth.Claim{Type: auth.ClaimIsImpersonating, Value: "true"},
		auth.Claim{Type: auth.ClaimImpersonationRole, Value: impersonationRole},
	).With(auth.RoleClaims(auth.ClaimOriginalRoles, roles)...)

	res, err := s.mint(claims, s.accessTTL, &Result{
		Username:          user.Username,
		CurrentRole:       requestedRole,
		Roles:             effective,
		AvailableRoles:    roles,
		OriginalUsername:  actor,
		ImpersonationRole: impersonationRole,
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("impersonation started",
		zap.String("username", actor),
		zap.String("target", user.Username),
		zap.String("role", impersonationRole))
	return res, nil
}

func (s *ImpersonationService) audit(ctx context.Context, actor, target, requestedRole string, res *Result) {
	payload := events.ImpersonationPayload{Target: target, Role: requestedRole}
	eventType := events.EventImpersonationSucceeded
	if res.Success {
		payload.Role = res.ImpersonationRole
		payload.Roles = res.Roles
	} else {
		eventType = events.EventImpersonationFailed
		payload.Reason = string(res.Reason)
	}
	s.publish(ctx, eventType, target, actor, payload)
}
