package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/backbone-auth/internal/auth"
	"github.com/spec-kit/backbone-auth/internal/domain"
)

// CredentialStore looks up stored credentials.
type CredentialStore interface {
	GetActiveCredential(ctx context.Context, username string) (*domain.Credential, error)
}

// CredentialValidator checks a username/password pair.
type CredentialValidator interface {
	ValidateCredentials(ctx context.Context, username, password string) (bool, error)
}

// CredentialVerifier validates passwords against the store. An unknown,
// deleted or inactive user costs the same single hash computation as a wrong
// password.
type CredentialVerifier struct {
	store        CredentialStore
	hasher       auth.PasswordHasher
	logger       *zap.Logger
	storeTimeout time.Duration
	dummyHash    []byte
	dummySalt    []byte
}

// NewCredentialVerifier builds a verifier and prepares its dummy credential.
func NewCredentialVerifier(store CredentialStore, hasher auth.PasswordHasher, logger *zap.Logger, storeTimeout time.Duration) (*CredentialVerifier, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	hash, salt, err := hasher.CreateHash(uuid.NewString())
	if err != nil {
		return nil, fmt.Errorf("prepare dummy credential: %w", err)
	}
	return &CredentialVerifier{
		store:        store,
		hasher:       hasher,
		logger:       logger,
		storeTimeout: storeTimeout,
		dummyHash:    hash,
		dummySalt:    salt,
	}, nil
}

// ValidateCredentials reports whether password matches the active user's credential.
func (v *CredentialVerifier) ValidateCredentials(ctx context.Context, username, password string) (bool, error) {
	if strings.TrimSpace(username) == "" || password == "" {
		return false, fmt.Errorf("%w: username and password are required", ErrInvalidInput)
	}

	storeCtx, cancel := withStoreTimeout(ctx, v.storeTimeout)
	cred, err := v.store.GetActiveCredential(storeCtx, username)
	cancel()
	if err != nil && !isNotFound(err) {
		return false, storeError(err)
	}

	if cred == nil {
		_, _ = v.hasher.Verify(v.dummyHash, v.dummySalt, password)
		v.logger.Debug("credential lookup missed", zap.String("username", username))
		return false, nil
	}

	ok, err := v.hasher.Verify(cred.PasswordHash, cred.PasswordSalt, password)
	if err != nil {
		v.logger.Error("stored credential unusable", zap.String("username", username), zap.Error(err))
		return false, nil
	}
	return ok, nil
}
