package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHMACHasher_RoundTrip(t *testing.T) {
	for _, digest := range []string{"sha512", "blake2b"} {
		t.Run(digest, func(t *testing.T) {
			hasher, err := NewHMACHasher(digest)
			require.NoError(t, err)

			for _, password := range []string{"p", "securePassword123!", "пароль-ünïcødé"} {
				hash, salt, err := hasher.CreateHash(password)
				require.NoError(t, err)
				assert.Len(t, salt, SaltSize)
				assert.Len(t, hash, 64)

				ok, err := hasher.Verify(hash, salt, password)
				require.NoError(t, err)
				assert.True(t, ok)

				ok, err = hasher.Verify(hash, salt, password+"x")
				require.NoError(t, err)
				assert.False(t, ok)
			}
		})
	}
}

func TestHMACHasher_FreshSaltPerHash(t *testing.T) {
	hasher, err := NewHMACHasher("sha512")
	require.NoError(t, err)

	hash1, salt1, err := hasher.CreateHash("same")
	require.NoError(t, err)
	hash2, salt2, err := hasher.CreateHash("same")
	require.NoError(t, err)

	assert.NotEqual(t, salt1, salt2)
	assert.NotEqual(t, hash1, hash2)
}

func TestHMACHasher_DigestsDiffer(t *testing.T) {
	sha, err := NewHMACHasher("sha512")
	require.NoError(t, err)
	blake, err := NewHMACHasher("blake2b")
	require.NoError(t, err)

	hash, salt, err := sha.CreateHash("secret")
	require.NoError(t, err)

	ok, err := blake.Verify(hash, salt, "secret")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHMACHasher_InvalidInput(t *testing.T) {
	hasher, err := NewHMACHasher("")
	require.NoError(t, err)

	_, _, err = hasher.CreateHash("")
	assert.ErrorIs(t, err, ErrInvalidInput)

	hash, salt, err := hasher.CreateHash("secret")
	require.NoError(t, err)

	_, err = hasher.Verify(nil, salt, "secret")
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = hasher.Verify(hash, nil, "secret")
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = hasher.Verify(hash, salt, "")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestNewHMACHasher_UnknownDigest(t *testing.T) {
	_, err := NewHMACHasher("md5")
	assert.Error(t, err)
}
