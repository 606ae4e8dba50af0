package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) handle(_ context.Context, e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func TestInMemoryDispatcher_RoutesByType(t *testing.T) {
	d := NewInMemoryDispatcher(nil)
	logins, switches := &recorder{}, &recorder{}
	d.Subscribe(EventLoginSucceeded, logins.handle)
	d.Subscribe(EventRoleSwitched, switches.handle)

	require.NoError(t, d.Publish(context.Background(), Event{Type: EventLoginSucceeded, Username: "alice"}))
	require.NoError(t, d.Publish(context.Background(), Event{Type: EventLoginFailed, Username: "bob"}))

	assert.Equal(t, 1, logins.count())
	assert.Equal(t, 0, switches.count())
	assert.Equal(t, "alice", logins.events[0].Username)
}

func TestInMemoryDispatcher_HandlerErrorDoesNotStopOthers(t *testing.T) {
	d := NewInMemoryDispatcher(nil)
	rec := &recorder{}
	d.Subscribe(EventLoginFailed, func(context.Context, Event) error { return errors.New("boom") })
	d.Subscribe(EventLoginFailed, rec.handle)

	assert.NoError(t, d.Publish(context.Background(), Event{Type: EventLoginFailed}))
	assert.Equal(t, 1, rec.count())
}

func TestAsyncDispatcher_DeliversFromRun(t *testing.T) {
	d := NewAsyncDispatcher(8, nil)
	rec := &recorder{}
	for _, eventType := range AllEventTypes {
		d.Subscribe(eventType, rec.handle)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		d.Run(ctx)
		close(done)
	}()

	require.NoError(t, d.Publish(context.Background(), Event{Type: EventRoleSelected}))
	require.NoError(t, d.Publish(context.Background(), Event{Type: EventImpersonationSucceeded}))

	assert.Eventually(t, func() bool { return rec.count() == 2 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done
}

func TestAsyncDispatcher_DropsWhenFull(t *testing.T) {
	d := NewAsyncDispatcher(1, nil)

	require.NoError(t, d.Publish(context.Background(), Event{Type: EventLoginSucceeded}))
	assert.ErrorIs(t, d.Publish(context.Background(), Event{Type: EventLoginSucceeded}), ErrQueueFull)
}

func TestAsyncDispatcher_DrainsOnShutdown(t *testing.T) {
	d := NewAsyncDispatcher(4, nil)
	rec := &recorder{}
	d.Subscribe(EventLoginFailed, rec.handle)

	for i := 0; i < 3; i++ {
		require.NoError(t, d.Publish(context.Background(), Event{Type: EventLoginFailed}))
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d.Run(ctx)

	assert.Equal(t, 3, rec.count())
}
