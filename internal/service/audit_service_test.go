package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/backbone-auth/internal/config"
	"github.com/spec-kit/backbone-auth/internal/domain"
	"github.com/spec-kit/backbone-auth/internal/events"
)

type MockActivityWriter struct {
	mock.Mock
}

func (m *MockActivityWriter) Create(ctx context.Context, activity *domain.Activity) error {
	return m.Called(ctx, activity).Error(0)
}

type MockStreamAppender struct {
	mock.Mock
}

func (m *MockStreamAppender) Append(ctx context.Context, stream string, maxLen int64, values map[string]any) (string, error) {
	args := m.Called(ctx, stream, maxLen, values)
	return args.String(0), args.Error(1)
}

func TestActivityFromEvent(t *testing.T) {
	ts := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)

	login := ActivityFromEvent(events.Event{
		ID: "1", Type: events.EventLoginSucceeded, Username: "sam", Timestamp: ts,
		Payload: events.LoginPayload{Method: "login", Roles: []string{domain.RoleSubscriber}},
	})
	assert.Equal(t, domain.RoleSubscriber, login.Role)
	assert.Equal(t, "login", login.Metadata["method"])
	assert.Equal(t, ts, login.CreatedAt)

	pending := ActivityFromEvent(events.Event{
		Type:    events.EventLoginSucceeded,
		Payload: events.LoginPayload{Method: "login", Roles: []string{"A", "B"}, RequiresRoleSelection: true},
	})
	assert.Empty(t, pending.Role)
	assert.Equal(t, true, pending.Metadata["requires_role_selection"])

	switched := ActivityFromEvent(events.Event{
		Type:    events.EventRoleSwitched,
		Payload: events.RoleChangePayload{FromRole: "A", ToRole: "B"},
	})
	assert.Equal(t, "B", switched.Role)
	assert.Equal(t, "A", switched.Metadata["from_role"])

	denied := ActivityFromEvent(events.Event{
		Type: events.EventImpersonationFailed, Username: "sam", Actor: "mike",
		Payload: events.ImpersonationPayload{Target: "sam", Reason: string(ReasonPermissionDenied)},
	})
	assert.Equal(t, "mike", denied.Actor)
	assert.Equal(t, "permission_denied", denied.Reason)
}

func TestAuditService_WritesToSinks(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher(nil)
	writer := new(MockActivityWriter)
	stream := new(MockStreamAppender)
	svc := NewAuditService(dispatcher, writer, stream, nil, config.AuditConfig{Stream: "auth:activity"})
	svc.RegisterHandlers()

	writer.On("Create", mock.Anything, mock.MatchedBy(func(a *domain.Activity) bool {
		return a.Type == events.EventRoleSelected && a.Username == "ada" && a.Role == domain.RoleMaster
	})).Return(nil).Once()
	stream.On("Append", mock.Anything, "auth:activity", int64(auditStreamMaxLen), mock.MatchedBy(func(v map[string]any) bool {
		return v["type"] == string(events.EventRoleSelected) && v["username"] == "ada"
	})).Return("1-0", nil).Once()

	require.NoError(t, dispatcher.Publish(context.Background(), events.Event{
		ID: "evt-1", Type: events.EventRoleSelected, Username: "ada", Timestamp: time.Now(),
		Payload: events.RoleChangePayload{ToRole: domain.RoleMaster},
	}))

	writer.AssertExpectations(t)
	stream.AssertExpectations(t)
}

func TestAuditService_SinkErrorsJoined(t *testing.T) {
	writer := new(MockActivityWriter)
	stream := new(MockStreamAppender)
	svc := NewAuditService(nil, writer, stream, nil, config.AuditConfig{Stream: "s"})

	dbErr := errors.New("db down")
	redisErr := errors.New("redis down")
	writer.On("Create", mock.Anything, mock.Anything).Return(dbErr)
	stream.On("Append", mock.Anything, "s", mock.Anything, mock.Anything).Return("", redisErr)

	err := svc.handle(context.Background(), events.Event{Type: events.EventLoginFailed, Username: "x"})
	assert.ErrorIs(t, err, dbErr)
	assert.ErrorIs(t, err, redisErr)
}

func TestAuditService_NoSinks(t *testing.T) {
	svc := NewAuditService(nil, nil, nil, nil, config.AuditConfig{})
	assert.NotPanics(t, svc.RegisterHandlers)
	assert.NoError(t, svc.handle(context.Background(), events.Event{Type: events.EventLoginFailed}))
}
