package service

import (
	"context"
	"encoding/json"
	"errors"

	"go.uber.org/zap"

	"github.com/spec-kit/backbone-auth/internal/config"
	"github.com/spec-kit/backbone-auth/internal/domain"
	"github.com/spec-kit/backbone-auth/internal/events"
)

// ActivityWriter persists audit records.
type ActivityWriter interface {
	Create(ctx context.Context, activity *domain.Activity) error
}

// StreamAppender publishes audit records to a stream.
type StreamAppender interface {
	Append(ctx context.Context, stream string, maxLen int64, values map[string]any) (string, error)
}

const auditStreamMaxLen = 100_000

// AuditService records auth activity events.
type AuditService struct {
	dispatcher events.Dispatcher
	activities ActivityWriter
	stream     StreamAppender
	logger     *zap.Logger
	cfg        config.AuditConfig
}

// NewAuditService creates the service. activities and stream may be nil.
func NewAuditService(dispatcher events.Dispatcher, activities ActivityWriter, stream StreamAppender, logger *zap.Logger, cfg config.AuditConfig) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditService{
		dispatcher: dispatcher,
		activities: activities,
		stream:     stream,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to every auth activity.
func (a *AuditService) RegisterHandlers() {
	if a.dispatcher == nil {
		return
	}
	for _, eventType := range events.AllEventTypes {
		a.dispatcher.Subscribe(eventType, a.handle)
	}
}

func (a *AuditService) handle(ctx context.Context, event events.Event) error {
	activity := ActivityFromEvent(event)

	fields := []zap.Field{
		zap.String("event_type", string(activity.Type)),
		zap.String("username", activity.Username),
	}
	if activity.Actor != "" {
		fields = append(fields, zap.String("actor", activity.Actor))
	}
	if activity.Role != "" {
		fields = append(fields, zap.String("role", activity.Role))
	}
	if activity.Reason != "" {
		fields = append(fields, zap.String("reason", activity.Reason))
	}
	a.logger.Info("auth activity", fields...)

	var errs []error
	if a.activities != nil {
		if err := a.activities.Create(ctx, &activity); err != nil {
			errs = append(errs, err)
		}
	}
	if a.stream != nil && a.cfg.Stream != "" {
		if _, err := a.stream.Append(ctx, a.cfg.Stream, auditStreamMaxLen, streamValues(activity)); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ActivityFromEvent flattens an event into an audit record.
func ActivityFromEvent(event events.Event) domain.Activity {
	activity := domain.Activity{
		ID:        event.ID,
		Type:      event.Type,
		Username:  event.Username,
		Actor:     event.Actor,
		CreatedAt: event.Timestamp,
		Metadata:  map[string]any{},
	}
	switch p := event.Payload.(type) {
	case events.LoginPayload:
		activity.Reason = p.Reason
		activity.Metadata["method"] = p.Method
		if len(p.Roles) == 1 && !p.RequiresRoleSelection {
			activity.Role = p.Roles[0]
		}
		if len(p.Roles) > 0 {
			activity.Metadata["roles"] = p.Roles
		}
		if p.RequiresRoleSelection {
			activity.Metadata["requires_role_selection"] = true
		}
	case events.RoleChangePayload:
		activity.Role = p.ToRole
		if p.FromRole != "" {
			activity.Metadata["from_role"] = p.FromRole
		}
	case events.ImpersonationPayload:
		activity.Role = p.Role
		activity.Reason = p.Reason
		if len(p.Roles) > 0 {
			activity.Metadata["roles"] = p.Roles
		}
	}
	return activity
}

func streamValues(activity domain.Activity) map[string]any {
	values := map[string]any{
		"id":         activity.ID,
		"type":       string(activity.Type),
		"username":   activity.Username,
		"actor":      activity.Actor,
		"role":       activity.Role,
		"reason":     activity.Reason,
		"created_at": activity.CreatedAt.UnixMilli(),
	}
	if len(activity.Metadata) > 0 {
		if raw, err := json.Marshal(activity.Metadata); err == nil {
			values["metadata"] = string(raw)
		}
	}
	return values
}
