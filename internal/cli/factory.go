package cli

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/backbone-auth/internal/auth"
	"github.com/spec-kit/backbone-auth/internal/config"
	"github.com/spec-kit/backbone-auth/internal/domain"
	"github.com/spec-kit/backbone-auth/internal/observability"
	"github.com/spec-kit/backbone-auth/internal/persistence"
	"github.com/spec-kit/backbone-auth/internal/repository"
)

// UserAdmin is the slice of the user store the CLI manages.
type UserAdmin interface {
	GetWithRoles(ctx context.Context, username string) (*domain.User, error)
	Create(ctx context.Context, user *domain.User, hash, salt []byte) error
	AssignRoles(ctx context.Context, userID int64, roles []string) error
	SetStatus(ctx context.Context, username string, status domain.UserStatus) error
}

// ActivityLister reads the audit trail.
type ActivityLister interface {
	ListByUsername(ctx context.Context, username string, limit int) ([]domain.Activity, error)
}

// Factory builds command dependencies on first use. Tests preset the
// exported fields to skip the environment and the database.
type Factory struct {
	Config     *config.Config
	Logger     *zap.Logger
	Users      UserAdmin
	Activities ActivityLister

	pg *persistence.Postgres
}

// NewFactory returns an empty factory.
func NewFactory() *Factory {
	return &Factory{}
}

func (f *Factory) config() (*config.Config, error) {
	if f.Config != nil {
		return f.Config, nil
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	f.Config = cfg
	return cfg, nil
}

func (f *Factory) logger() *zap.Logger {
	if f.Logger != nil {
		return f.Logger
	}
	cfg, err := f.config()
	if err != nil {
		f.Logger = zap.NewNop()
		return f.Logger
	}
	// stdout carries command output
	logCfg := cfg.Logger
	logCfg.Output = "stderr"
	logger, err := observability.NewLogger(logCfg, cfg.App)
	if err != nil {
		logger = zap.NewNop()
	}
	f.Logger = logger
	return logger
}

func (f *Factory) hasher() (*auth.HMACHasher, error) {
	cfg, err := f.config()
	if err != nil {
		return nil, err
	}
	return auth.NewHMACHasher(cfg.Auth.PasswordDigest)
}

func (f *Factory) codec() (*auth.TokenCodec, error) {
	cfg, err := f.config()
	if err != nil {
		return nil, err
	}
	return auth.NewTokenCodec(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.Audience)
}

func (f *Factory) postgres(ctx context.Context) (*persistence.Postgres, error) {
	if f.pg != nil {
		return f.pg, nil
	}
	cfg, err := f.config()
	if err != nil {
		return nil, err
	}
	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, f.logger())
	if err != nil {
		return nil, fmt.Errorf("connecting postgres: %w", err)
	}
	if pg.PoolHandle() == nil {
		return nil, errors.New("POSTGRES_DSN is required")
	}
	f.pg = pg
	return pg, nil
}

func (f *Factory) users(ctx context.Context) (UserAdmin, error) {
	if f.Users != nil {
		return f.Users, nil
	}
	pg, err := f.postgres(ctx)
	if err != nil {
		return nil, err
	}
	f.Users = repository.NewUserRepository(pg.PoolHandle())
	return f.Users, nil
}

func (f *Factory) activities(ctx context.Context) (ActivityLister, error) {
	if f.Activities != nil {
		return f.Activities, nil
	}
	pg, err := f.postgres(ctx)
	if err != nil {
		return nil, err
	}
	f.Activities = repository.NewActivityRepository(pg.PoolHandle())
	return f.Activities, nil
}

// Close releases the database pool, if one was opened.
func (f *Factory) Close() {
	f.pg.Close()
	if f.Logger != nil {
		_ = f.Logger.Sync()
	}
}
