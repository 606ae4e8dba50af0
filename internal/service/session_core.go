package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/backbone-auth/internal/auth"
	"github.com/spec-kit/backbone-auth/internal/config"
	"github.com/spec-kit/backbone-auth/internal/domain"
	"github.com/spec-kit/backbone-auth/internal/events"
)

// UserStore loads accounts with their role names.
type UserStore interface {
	GetWithRoles(ctx context.Context, username string) (*domain.User, error)
}

// TokenIssuer mints and parses bearer tokens.
type TokenIssuer interface {
	Mint(claims auth.Claims, ttl time.Duration) (string, time.Time, error)
	Parse(token string) (*auth.Token, error)
}

// OutcomeRecorder counts auth results.
type OutcomeRecorder interface {
	RecordAuthOutcome(operation, outcome string)
}

// SessionConfig carries the token lifetimes and role policy.
type SessionConfig struct {
	AccessTTL           time.Duration
	InterimTTL          time.Duration
	StoreTimeout        time.Duration
	ImpersonatorRoles   []string
	ImpersonatableRoles []string
}

// SessionConfigFrom derives a SessionConfig from the auth settings.
func SessionConfigFrom(cfg config.AuthConfig) SessionConfig {
	return SessionConfig{
		AccessTTL:           cfg.AccessTokenTTL(),
		InterimTTL:          cfg.InterimTokenTTL(),
		StoreTimeout:        cfg.StoreTimeout(),
		ImpersonatorRoles:   cfg.ImpersonatorRoles,
		ImpersonatableRoles: cfg.ImpersonatableRoles,
	}
}

// allowList returns the impersonatable roles with every impersonator role removed.
func (c SessionConfig) allowList() []string {
	out := make([]string, 0, len(c.ImpersonatableRoles))
	for _, r := range domain.NormalizeRoles(c.ImpersonatableRoles) {
		if !contains(c.ImpersonatorRoles, r) {
			out = append(out, r)
		}
	}
	return out
}

// SessionDependencies encapsulates collaborators shared by the session services.
type SessionDependencies struct {
	Credentials CredentialValidator
	Users       UserStore
	Tokens      TokenIssuer
	Events      events.Dispatcher
	Metrics     OutcomeRecorder
	Logger      *zap.Logger
	Now         func() time.Time
}

type sessionCore struct {
	users        UserStore
	tokens       TokenIssuer
	events       events.Dispatcher
	metrics      OutcomeRecorder
	logger       *zap.Logger
	now          func() time.Time
	accessTTL    time.Duration
	storeTimeout time.Duration
}

func newSessionCore(cfg SessionConfig, deps SessionDependencies) sessionCore {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return sessionCore{
		users:        deps.Users,
		tokens:       deps.Tokens,
		events:       deps.Events,
		metrics:      deps.Metrics,
		logger:       logger,
		now:          now,
		accessTTL:    cfg.AccessTTL,
		storeTimeout: cfg.StoreTimeout,
	}
}

// lookupUser returns nil without error when the user does not exist.
func (c *sessionCore) lookupUser(ctx context.Context, username string) (*domain.User, error) {
	storeCtx, cancel := withStoreTimeout(ctx, c.storeTimeout)
	defer cancel()

	user, err := c.users.GetWithRoles(storeCtx, username)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, storeError(err)
	}
	return user, nil
}

func (c *sessionCore) mint(claims auth.Claims, ttl time.Duration, res *Result) (*Result, error) {
	token, exp, err := c.tokens.Mint(claims, ttl)
	if err != nil {
		return nil, fmt.Errorf("mint token: %w", err)
	}
	res.Success = true
	res.Token = token
	res.ExpiresAt = exp
	return res, nil
}

func (c *sessionCore) publish(ctx context.Context, eventType events.EventType, username, actor string, payload any) {
	if c.events == nil {
		return
	}
	err := c.events.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Username:  username,
		Actor:     actor,
		Timestamp: c.now().UTC(),
		Payload:   payload,
	})
	if err != nil {
		c.logger.Warn("publish auth event", zap.String("event_type", string(eventType)), zap.Error(err))
	}
}

func (c *sessionCore) record(operation string, res *Result) {
	if c.metrics != nil && res != nil {
		c.metrics.RecordAuthOutcome(operation, res.outcome())
	}
}

// finalClaims scopes a token to role while keeping the selectable roles.
func finalClaims(username, role string, originalRoles []string) auth.Claims {
	claims := auth.NewClaims(
		auth.Claim{Type: auth.ClaimSubject, Value: username},
		auth.Claim{Type: auth.ClaimRole, Value: role},
		auth.Claim{Type: auth.ClaimCurrentRole, Value: role},
	)
	return claims.With(auth.RoleClaims(auth.ClaimOriginalRoles, originalRoles)...)
}

func contains(list []string, value string) bool {
	if value == "" {
		return false
	}
	for _, v := range list {
		if v == value {
			return true
		}
	}
	return false
}
