package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/backbone-auth/internal/domain"
)

// ActivityRepository manages the auth audit trail.
type ActivityRepository interface {
	Create(ctx context.Context, activity *domain.Activity) error
	ListByUsername(ctx context.Context, username string, limit int) ([]domain.Activity, error)
}

type activityRepository struct {
	pool *pgxpool.Pool
}

// NewActivityRepository constructs repository.
func NewActivityRepository(pool *pgxpool.Pool) ActivityRepository {
	return &activityRepository{pool: pool}
}

func (r *activityRepository) Create(ctx context.Context, activity *domain.Activity) error {
	const query = `
        INSERT INTO auth_activity (id, type, username, actor, role, reason, metadata, created_at)
        VALUES ($1,$2,$3,NULLIF($4,''),NULLIF($5,''),NULLIF($6,''),$7,$8)`

	metadata := activity.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	_, err := r.pool.Exec(ctx, query,
		activity.ID,
		string(activity.Type),
		activity.Username,
		activity.Actor,
		activity.Role,
		activity.Reason,
		metadata,
		activity.CreatedAt,
	)
	return translate(err)
}

func (r *activityRepository) ListByUsername(ctx context.Context, username string, limit int) ([]domain.Activity, error) {
	if limit <= 0 {
		limit = 50
	}
	const query = `
        SELECT id::text, type, username, COALESCE(actor,''), COALESCE(role,''), COALESCE(reason,''), metadata, created_at
        FROM auth_activity WHERE username=$1
        ORDER BY created_at DESC
        LIMIT $2`

	rows, err := r.pool.Query(ctx, query, username, limit)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	var out []domain.Activity
	for rows.Next() {
		var a domain.Activity
		var activityType string
		if err := rows.Scan(
			&a.ID,
			&activityType,
			&a.Username,
			&a.Actor,
			&a.Role,
			&a.Reason,
			&a.Metadata,
			&a.CreatedAt,
		); err != nil {
			return nil, err
		}
		a.Type = domain.ActivityType(activityType)
		out = append(out, a)
	}
	return out, rows.Err()
}
