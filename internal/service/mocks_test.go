package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/backbone-auth/internal/auth"
	"github.com/spec-kit/backbone-auth/internal/domain"
	"github.com/spec-kit/backbone-auth/internal/events"
)

const testSecret = "0123456789abcdef0123456789abcdef"

// MockUserStore implements UserStore and CredentialStore.
type MockUserStore struct {
	mock.Mock
}

func (m *MockUserStore) GetWithRoles(ctx context.Context, username string) (*domain.User, error) {
	args := m.Called(ctx, username)
	user, _ := args.Get(0).(*domain.User)
	return user, args.Error(1)
}

func (m *MockUserStore) GetActiveCredential(ctx context.Context, username string) (*domain.Credential, error) {
	args := m.Called(ctx, username)
	cred, _ := args.Get(0).(*domain.Credential)
	return cred, args.Error(1)
}

// MockCredentialValidator implements CredentialValidator.
type MockCredentialValidator struct {
	mock.Mock
}

func (m *MockCredentialValidator) ValidateCredentials(ctx context.Context, username, password string) (bool, error) {
	args := m.Called(ctx, username, password)
	return args.Bool(0), args.Error(1)
}

// countingHasher counts hash computations.
type countingHasher struct {
	inner    auth.PasswordHasher
	mu       sync.Mutex
	verifies int
}

func newCountingHasher(t *testing.T) *countingHasher {
	t.Helper()
	inner, err := auth.NewHMACHasher("sha512")
	require.NoError(t, err)
	return &countingHasher{inner: inner}
}

func (h *countingHasher) CreateHash(password string) ([]byte, []byte, error) {
	return h.inner.CreateHash(password)
}

func (h *countingHasher) Verify(hash, salt []byte, password string) (bool, error) {
	h.mu.Lock()
	h.verifies++
	h.mu.Unlock()
	return h.inner.Verify(hash, salt, password)
}

func (h *countingHasher) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.verifies
}

func (h *countingHasher) reset() {
	h.mu.Lock()
	h.verifies = 0
	h.mu.Unlock()
}

// outcomeRecorder implements OutcomeRecorder.
type outcomeRecorder struct {
	mu       sync.Mutex
	outcomes []string
}

func (r *outcomeRecorder) RecordAuthOutcome(operation, outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, operation+":"+outcome)
}

// eventSink captures every published event synchronously.
type eventSink struct {
	dispatcher events.Dispatcher
	mu         sync.Mutex
	events     []events.Event
}

func newEventSink() *eventSink {
	sink := &eventSink{dispatcher: events.NewInMemoryDispatcher(nil)}
	for _, eventType := range events.AllEventTypes {
		sink.dispatcher.Subscribe(eventType, func(_ context.Context, e events.Event) error {
			sink.mu.Lock()
			defer sink.mu.Unlock()
			sink.events = append(sink.events, e)
			return nil
		})
	}
	return sink
}

func (s *eventSink) types() []events.EventType {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]events.EventType, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, e.Type)
	}
	return out
}

func (s *eventSink) last() events.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.events[len(s.events)-1]
}

type testClock struct{ t time.Time }

func (c *testClock) Now() time.Time { return c.t }

func newCodec(t *testing.T, clock *testClock) *auth.TokenCodec {
	t.Helper()
	codec, err := auth.NewTokenCodec(testSecret, "test-issuer", "test-audience", auth.WithClock(clock.Now))
	require.NoError(t, err)
	return codec
}

func testSessionConfig() SessionConfig {
	return SessionConfig{
		AccessTTL:           time.Hour,
		InterimTTL:          5 * time.Minute,
		StoreTimeout:        time.Second,
		ImpersonatorRoles:   []string{domain.RoleAdmin},
		ImpersonatableRoles: []string{domain.RoleMaster, domain.RoleSubscriber},
	}
}

func activeUser(username string, roles ...string) *domain.User {
	return &domain.User{ID: 1, Username: username, Status: domain.UserStatusActive, Roles: roles}
}
