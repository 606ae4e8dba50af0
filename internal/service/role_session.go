package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/backbone-auth/internal/auth"
	"github.com/spec-kit/backbone-auth/internal/domain"
	"github.com/spec-kit/backbone-auth/internal/events"
)

const (
	opLogin       = "login"
	opDirectLogin = "direct_login"
	opSelectRole  = "select_role"
	opSwitchRole  = "switch_role"
)

// RoleSessionService drives login, role selection and role switching.
//
// A user with one role receives a final token at login. A user with several
// roles receives a short-lived interim token that only SelectRole accepts.
// Final tokens carry the effective role, current_role and the full
// original_roles list that SwitchRole draws from.
type RoleSessionService struct {
	sessionCore
	credentials    CredentialValidator
	interimTTL     time.Duration
	impersonatable []string
}

// NewRoleSessionService builds the service.
func NewRoleSessionService(cfg SessionConfig, deps SessionDependencies) *RoleSessionService {
	return &RoleSessionService{
		sessionCore:    newSessionCore(cfg, deps),
		credentials:    deps.Credentials,
		interimTTL:     cfg.InterimTTL,
		impersonatable: cfg.allowList(),
	}
}

// Login verifies credentials and issues either a final or an interim token.
func (s *RoleSessionService) Login(ctx context.Context, username, password string) (*Result, error) {
	user, res, err := s.authenticate(ctx, opLogin, username, password)
	if err != nil || res != nil {
		return res, err
	}

	roles := domain.NormalizeRoles(user.Roles)
	if len(roles) == 1 {
		res, err = s.mint(finalClaims(user.Username, roles[0], roles), s.accessTTL, &Result{
			Username:       user.Username,
			CurrentRole:    roles[0],
			Roles:          roles,
			AvailableRoles: roles,
		})
		if err != nil {
			return nil, err
		}
		s.loginSucceeded(ctx, opLogin, user.Username, roles, false)
		return res, nil
	}

	claims := auth.NewClaims(auth.Claim{Type: auth.ClaimSubject, Value: user.Username}).
		With(auth.RoleClaims(auth.ClaimOriginalRoles, roles)...)
	res, err = s.mint(claims, s.interimTTL, &Result{
		Username:              user.Username,
		AvailableRoles:        roles,
		RequiresRoleSelection: true,
	})
	if err != nil {
		return nil, err
	}
	s.loginSucceeded(ctx, opLogin, user.Username, roles, true)
	return res, nil
}

// DirectLogin verifies credentials and issues a final token for role in one step.
func (s *RoleSessionService) DirectLogin(ctx context.Context, username, password, role string) (*Result, error) {
	user, res, err := s.authenticate(ctx, opDirectLogin, username, password)
	if err != nil || res != nil {
		return res, err
	}

	roles := domain.NormalizeRoles(user.Roles)
	if !contains(roles, role) {
		res = roleNotHeld(role)
		s.loginFailed(ctx, opDirectLogin, username, res)
		return res, nil
	}

	res, err = s.mint(finalClaims(user.Username, role, roles), s.accessTTL, &Result{
		Username:       user.Username,
		CurrentRole:    role,
		Roles:          []string{role},
		AvailableRoles: roles,
	})
	if err != nil {
		return nil, err
	}
	s.loginSucceeded(ctx, opDirectLogin, user.Username, []string{role}, false)
	return res, nil
}

// authenticate runs the shared credential and role checks. It returns a
// failure result when the login cannot proceed.
func (s *RoleSessionService) authenticate(ctx context.Context, operation, username, password string) (*domain.User, *Result, error) {
	ok, err := s.credentials.ValidateCredentials(ctx, username, password)
	if err != nil {
		if !errors.Is(err, ErrInvalidInput) {
			s.logger.Warn("credential check failed", zap.String("username", username), zap.Error(err))
		}
		return nil, nil, err
	}
	if !ok {
		res := fail(ReasonInvalidCredentials, msgInvalidCredentials)
		s.logger.Warn("invalid credentials", zap.String("username", username))
		s.loginFailed(ctx, operation, username, res)
		return nil, res, nil
	}

	user, err := s.lookupUser(ctx, username)
	if err != nil {
		return nil, nil, err
	}
	if user == nil {
		res := fail(ReasonSystemError, msgSystemError)
		s.logger.Error("user vanished after credential check", zap.String("username", username))
		s.loginFailed(ctx, operation, username, res)
		return nil, res, nil
	}
	if len(domain.NormalizeRoles(user.Roles)) == 0 {
		res := fail(ReasonNoRoles, msgNoRoles)
		s.logger.Warn("user has no roles assigned", zap.String("username", username))
		s.loginFailed(ctx, operation, username, res)
		return nil, res, nil
	}
	return user, nil, nil
}

func (s *RoleSessionService) loginSucceeded(ctx context.Context, operation, username string, roles []string, pending bool) {
	s.logger.Info("login succeeded",
		zap.String("username", username),
		zap.Strings("roles", roles),
		zap.Bool("requires_role_selection", pending))
	s.record(operation, &Result{Success: true})
	s.publish(ctx, events.EventLoginSucceeded, username, "", events.LoginPayload{
		Method:                operation,
		Roles:                 roles,
		RequiresRoleSelection: pending,
	})
}

func (s *RoleSessionService) loginFailed(ctx context.Context, operation, username string, res *Result) {
	s.record(operation, res)
	s.publish(ctx, events.EventLoginFailed, username, "", events.LoginPayload{
		Method: operation,
		Reason: string(res.Reason),
	})
}

// SelectRole exchanges an interim token for a final token scoped to role.
func (s *RoleSessionService) SelectRole(ctx context.Context, interimToken, role string) (*Result, error) {
	res, err := s.selectRole(ctx, interimToken, role)
	s.record(opSelectRole, res)
	return res, err
}

func (s *RoleSessionService) selectRole(ctx context.Context, interimToken, role string) (*Result, error) {
	tok, err := s.tokens.Parse(interimToken)
	if err != nil {
		s.logger.Debug("interim token rejected", zap.Error(err))
		return fail(ReasonInvalidToken, msgInvalidToken), nil
	}
	if !tok.Claims.IsInterim() {
		return fail(ReasonInvalidToken, msgInvalidToken), nil
	}

	originalRoles := tok.Claims.OriginalRoles()
	if !contains(originalRoles, role) {
		s.logger.Warn("invalid role selection", zap.String("username", tok.Claims.Subject()), zap.String("role", role))
		return fail(ReasonInvalidRoleSelection, msgInvalidRoleSelection), nil
	}

	username := tok.Claims.Subject()
	if username == "" {
		return fail(ReasonSystemError, msgSystemError), nil
	}
	user, err := s.lookupUser(ctx, username)
	if err != nil {
		return nil, err
	}
	if user == nil {
		s.logger.Error("user vanished before role selection", zap.String("username", username))
		return fail(ReasonSystemError, msgSystemError), nil
	}
	if !user.IsActive() {
		return fail(ReasonAccountInactive, msgAccountInactive), nil
	}

	res, err := s.mint(finalClaims(username, role, originalRoles), s.accessTTL, &Result{
		Username:       username,
		CurrentRole:    role,
		Roles:          []string{role},
		AvailableRoles: originalRoles,
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("role selected", zap.String("username", username), zap.String("role", role))
	s.publish(ctx, events.EventRoleSelected, username, "", events.RoleChangePayload{ToRole: role})
	return res, nil
}

// SwitchRole re-mints the caller's final token with newRole as the active role.
func (s *RoleSessionService) SwitchRole(ctx context.Context, caller auth.Claims, newRole string) (*Result, error) {
	res, err := s.switchRole(ctx, caller, newRole)
	s.record(opSwitchRole, res)
	return res, err
}

func (s *RoleSessionService) switchRole(ctx context.Context, caller auth.Claims, newRole string) (*Result, error) {
	if !caller.IsFinal() {
		return fail(ReasonNotAuthenticated, msgNotAuthenticated), nil
	}
	username := caller.Subject()
	originalRoles := caller.OriginalRoles()
	if len(originalRoles) <= 1 {
		return fail(ReasonSingleRole, msgSingleRole), nil
	}
	if !contains(originalRoles, newRole) {
		s.logger.Warn("switch to unheld role", zap.String("username", username), zap.String("role", newRole))
		return roleNotHeld(newRole), nil
	}
	if caller.IsImpersonating() && !contains(s.impersonatable, newRole) {
		s.logger.Warn("switch to non-impersonatable role",
			zap.String("username", username),
			zap.String("impersonator", caller.OriginalUsername()),
			zap.String("role", newRole))
		return roleNotImpersonatable(newRole), nil
	}

	user, err := s.lookupUser(ctx, username)
	if err != nil {
		return nil, err
	}
	if !user.IsActive() {
		return fail(ReasonAccountInactive, msgAccountInactive), nil
	}

	excluded := []string{auth.ClaimRole, auth.ClaimCurrentRole, auth.ClaimTokenID}
	extra := []auth.Claim{
		{Type: auth.ClaimCurrentRole, Value: newRole},
		{Type: auth.ClaimRole, Value: newRole},
	}
	if caller.IsImpersonating() {
		excluded = append(excluded, auth.ClaimImpersonationRole)
		extra = append(extra, auth.Claim{Type: auth.ClaimImpersonationRole, Value: newRole})
	}
	claims := auth.FilterClaims(caller, excluded...).With(extra...)

	res, err := s.mint(claims, s.accessTTL, &Result{
		Username:          username,
		CurrentRole:       newRole,
		Roles:             []string{newRole},
		AvailableRoles:    originalRoles,
		OriginalUsername:  caller.OriginalUsername(),
		ImpersonationRole: claims.ImpersonationRole(),
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("role switched",
		zap.String("username", username),
		zap.String("from_role", caller.CurrentRole()),
		zap.String("role", newRole))
	s.publish(ctx, events.EventRoleSwitched, username, caller.OriginalUsername(), events.RoleChangePayload{
		FromRole: caller.CurrentRole(),
		ToRole:   newRole,
	})
	return res, nil
}
