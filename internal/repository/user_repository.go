package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/backbone-auth/internal/domain"
)

// UserRepository defines persistence access for accounts and their roles.
type UserRepository interface {
	// GetActiveCredential returns the secret material of a non-deleted, Active user.
	GetActiveCredential(ctx context.Context, username string) (*domain.Credential, error)
	// GetWithRoles returns a non-deleted user with its role names, whatever its status.
	GetWithRoles(ctx context.Context, username string) (*domain.User, error)
	Create(ctx context.Context, user *domain.User, hash, salt []byte) error
	AssignRoles(ctx context.Context, userID int64, roles []string) error
	SetStatus(ctx context.Context, username string, status domain.UserStatus) error
}

type userRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a Postgres-backed implementation.
func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &userRepository{pool: pool}
}

func (r *userRepository) GetActiveCredential(ctx context.Context, username string) (*domain.Credential, error) {
	const query = `
        SELECT u.id, u.username, u.password_hash, u.password_salt
        FROM users u
        JOIN user_status s ON s.id = u.status_id
        WHERE u.username=$1 AND NOT u.is_deleted AND s.status_name=$2`

	var cred domain.Credential
	if err := r.pool.QueryRow(ctx, query, username, domain.UserStatusActive).Scan(
		&cred.UserID,
		&cred.Username,
		&cred.PasswordHash,
		&cred.PasswordSalt,
	); err != nil {
		return nil, translate(err)
	}
	return &cred, nil
}

func (r *userRepository) GetWithRoles(ctx context.Context, username string) (*domain.User, error) {
	const query = `
        SELECT u.id, u.username, s.status_name, u.is_deleted, u.created_at, u.updated_at,
               COALESCE(array_agg(ro.role_name ORDER BY ro.role_name)
                        FILTER (WHERE ro.role_name IS NOT NULL), '{}') AS roles
        FROM users u
        JOIN user_status s ON s.id = u.status_id
        LEFT JOIN user_role_mappings m ON m.user_id = u.id AND NOT m.is_deleted
        LEFT JOIN user_roles ro ON ro.id = m.role_id AND NOT ro.is_deleted
        WHERE u.username=$1 AND NOT u.is_deleted
        GROUP BY u.id, s.status_name`

	var user domain.User
	if err := r.pool.QueryRow(ctx, query, username).Scan(
		&user.ID,
		&user.Username,
		&user.Status,
		&user.IsDeleted,
		&user.CreatedAt,
		&user.UpdatedAt,
		&user.Roles,
	); err != nil {
		return nil, translate(err)
	}
	user.Roles = domain.NormalizeRoles(user.Roles)
	return &user, nil
}

// Create inserts the user and its roles in one transaction.
func (r *userRepository) Create(ctx context.Context, user *domain.User, hash, salt []byte) error {
	const query = `
        INSERT INTO users (username, password_hash, password_salt, status_id)
        SELECT $1, $2, $3, s.id FROM user_status s WHERE s.status_name=$4
        RETURNING id, created_at, updated_at`

	status := user.Status
	if status == "" {
		status = domain.UserStatusActive
	}

	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, query, user.Username, hash, salt, status).
			Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt); err != nil {
			return err
		}
		return assignRoles(ctx, tx, user.ID, user.Roles)
	})
	if err != nil {
		return translate(err)
	}
	user.Status = status
	user.Roles = domain.NormalizeRoles(user.Roles)
	return nil
}

func (r *userRepository) AssignRoles(ctx context.Context, userID int64, roles []string) error {
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		return assignRoles(ctx, tx, userID, roles)
	})
	return translate(err)
}

func assignRoles(ctx context.Context, tx pgx.Tx, userID int64, roles []string) error {
	roles = domain.NormalizeRoles(roles)
	if len(roles) == 0 {
		return nil
	}

	const ensureRoles = `
        INSERT INTO user_roles (role_name)
        SELECT unnest($1::text[])
        ON CONFLICT (role_name) DO NOTHING`
	const mapRoles = `
        INSERT INTO user_role_mappings (user_id, role_id)
        SELECT $1, ro.id FROM user_roles ro WHERE ro.role_name = ANY($2) AND NOT ro.is_deleted
        ON CONFLICT (user_id, role_id) DO UPDATE SET is_deleted=FALSE`

	if _, err := tx.Exec(ctx, ensureRoles, roles); err != nil {
		return err
	}
	_, err := tx.Exec(ctx, mapRoles, userID, roles)
	return err
}

func (r *userRepository) SetStatus(ctx context.Context, username string, status domain.UserStatus) error {
	const query = `
        UPDATE users SET status_id=s.id, updated_at=NOW()
        FROM user_status s
        WHERE s.status_name=$1 AND users.username=$2 AND NOT users.is_deleted`

	cmd, err := r.pool.Exec(ctx, query, status, username)
	if err != nil {
		return translate(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
