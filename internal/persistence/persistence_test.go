package persistence

import (
	"context"
	"io/fs"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/backbone-auth/internal/config"
)

func TestMigrationNames_Ordered(t *testing.T) {
	names, err := MigrationNames()
	require.NoError(t, err)
	assert.Equal(t, []string{"0001_users.sql", "0002_roles.sql", "0003_auth_activity.sql"}, names)

	for _, name := range names {
		content, err := fs.ReadFile(migrationFiles, migrationsDir+"/"+name)
		require.NoError(t, err)
		assert.Contains(t, string(content), "IF NOT EXISTS", "%s must be idempotent", name)
	}
}

func TestRunMigrations_NoPool(t *testing.T) {
	assert.NoError(t, RunMigrations(context.Background(), nil, zap.NewNop()))
}

func TestUnconfiguredClients(t *testing.T) {
	pg, err := NewPostgres(context.Background(), config.PostgresConfig{}, zap.NewNop())
	require.NoError(t, err)
	assert.ErrorIs(t, pg.Ping(context.Background()), ErrPostgresNotConfigured)
	assert.Nil(t, pg.PoolHandle())

	r := NewRedis(config.RedisConfig{}, zap.NewNop())
	assert.ErrorIs(t, r.Ping(context.Background()), ErrRedisNotConfigured)
	_, err = r.Append(context.Background(), "s", 0, map[string]any{"k": "v"})
	assert.ErrorIs(t, err, ErrRedisNotConfigured)

	assert.NotPanics(t, func() {
		pg.Close()
		r.Close()
	})
}

func TestPoolConfig(t *testing.T) {
	cfg, err := poolConfig(config.PostgresConfig{
		DSN:             "postgres://auth:pw@db.internal:5432/backbone?sslmode=disable",
		MaxConns:        8,
		MinConns:        2,
		ConnMaxIdleSec:  30,
		ConnMaxLifeSec:  300,
		ApplicationName: "backbone-auth",
	})
	require.NoError(t, err)
	assert.Equal(t, int32(8), cfg.MaxConns)
	assert.Equal(t, int32(2), cfg.MinConns)
	assert.Equal(t, 30*time.Second, cfg.MaxConnIdleTime)
	assert.Equal(t, 5*time.Minute, cfg.MaxConnLifetime)
	assert.Equal(t, "db.internal", cfg.ConnConfig.Host)
	assert.Equal(t, "backbone-auth", cfg.ConnConfig.RuntimeParams["application_name"])

	cfg, err = poolConfig(config.PostgresConfig{
		DSN:             "postgres://auth@db.internal/backbone?application_name=migrator",
		MaxConns:        1,
		MinConns:        4,
		ApplicationName: "backbone-auth",
	})
	require.NoError(t, err)
	assert.Equal(t, "migrator", cfg.ConnConfig.RuntimeParams["application_name"])
	assert.Equal(t, int32(0), cfg.MinConns)

	_, err = poolConfig(config.PostgresConfig{DSN: "postgres://%zz"})
	assert.ErrorContains(t, err, "parse POSTGRES_DSN")
}
