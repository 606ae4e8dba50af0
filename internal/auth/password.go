package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha512"
	"crypto/subtle"
	"errors"
	"fmt"
	"hash"

	"golang.org/x/crypto/blake2b"
)

// SaltSize matches the default HMAC-SHA512 key length of existing records.
const SaltSize = 128

// ErrInvalidInput is returned for empty passwords or missing hash material.
var ErrInvalidInput = errors.New("invalid input")

// PasswordHasher creates and verifies salted keyed password hashes.
type PasswordHasher interface {
	CreateHash(password string) (hash, salt []byte, err error)
	Verify(hash, salt []byte, password string) (bool, error)
}

// HMACHasher keys an HMAC with the per-credential salt.
type HMACHasher struct {
	digest func() hash.Hash
}

// NewHMACHasher returns a hasher for the named digest ("sha512" or "blake2b").
func NewHMACHasher(digest string) (*HMACHasher, error) {
	switch digest {
	case "", "sha512":
		return &HMACHasher{digest: sha512.New}, nil
	case "blake2b":
		return &HMACHasher{digest: newBlake2b512}, nil
	default:
		return nil, fmt.Errorf("unsupported password digest %q", digest)
	}
}

func newBlake2b512() hash.Hash {
	h, _ := blake2b.New512(nil) // unkeyed never fails
	return h
}

// CreateHash generates a fresh salt and hashes password under it.
func (h *HMACHasher) CreateHash(password string) ([]byte, []byte, error) {
	if password == "" {
		return nil, nil, fmt.Errorf("%w: password is empty", ErrInvalidInput)
	}
	salt := make([]byte, SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, nil, fmt.Errorf("generate salt: %w", err)
	}
	return h.compute(salt, password), salt, nil
}

// Verify recomputes the hash under salt and compares in constant time.
func (h *HMACHasher) Verify(hash, salt []byte, password string) (bool, error) {
	switch {
	case len(hash) == 0:
		return false, fmt.Errorf("%w: hash is empty", ErrInvalidInput)
	case len(salt) == 0:
		return false, fmt.Errorf("%w: salt is empty", ErrInvalidInput)
	case password == "":
		return false, fmt.Errorf("%w: password is empty", ErrInvalidInput)
	}
	computed := h.compute(salt, password)
	return subtle.ConstantTimeCompare(computed, hash) == 1, nil
}

func (h *HMACHasher) compute(salt []byte, password string) []byte {
	mac := hmac.New(h.digest, salt)
	mac.Write([]byte(password))
	return mac.Sum(nil)
}
