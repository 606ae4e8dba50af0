package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/backbone-auth/internal/config"
	"github.com/spec-kit/backbone-auth/internal/domain"
	"github.com/spec-kit/backbone-auth/internal/events"
	"github.com/spec-kit/backbone-auth/internal/service"
)

type memoryActivities struct {
	mu   sync.Mutex
	rows []domain.Activity
}

func (m *memoryActivities) Create(_ context.Context, a *domain.Activity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = append(m.rows, *a)
	return nil
}

func (m *memoryActivities) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

func TestStartAuditWorker(t *testing.T) {
	dispatcher := events.NewAsyncDispatcher(16, nil)
	store := &memoryActivities{}
	audit := service.NewAuditService(dispatcher, store, nil, nil, config.AuditConfig{})

	ctx, cancel := context.WithCancel(context.Background())
	done := StartAuditWorker(ctx, audit, dispatcher)

	require.NoError(t, dispatcher.Publish(ctx, events.Event{ID: "1", Type: events.EventLoginSucceeded, Username: "sam"}))
	require.NoError(t, dispatcher.Publish(ctx, events.Event{ID: "2", Type: events.EventImpersonationFailed, Username: "sam", Actor: "mike"}))

	assert.Eventually(t, func() bool { return store.len() == 2 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}

func TestStartAuditWorker_NilDependencies(t *testing.T) {
	done := StartAuditWorker(context.Background(), nil, nil)
	_, open := <-done
	assert.False(t, open)
}
