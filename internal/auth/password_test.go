package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashVerifyPassword(t *testing.T) {
	hash, err := HashPassword("correct horse")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "$argon2id$v=19$m=65536,t=3,p=4$"))

	ok, err := VerifyPassword(hash, "correct horse")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = VerifyPassword(hash, "battery staple")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHashPasswordUsesRandomSalt(t *testing.T) {
	params := DefaultArgon2idParams()
	params.MemoryKiB = 1024
	params.Time = 1

	a, err := hashPassword("pw", params)
	require.NoError(t, err)
	b, err := hashPassword("pw", params)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestDecodeHashPHC(t *testing.T) {
	const hash = "$argon2id$v=19$m=65536,t=3,p=4$c29tZXNhbHRzb21lc2FsdA$YS+2Wq6vwa8Kax9mi8bsMnmB6W0J0nbZ0ZmaX9KBiLo"
	params, salt, key, err := decodeHash(hash)
	require.NoError(t, err)
	assert.Equal(t, uint32(65536), params.MemoryKiB)
	assert.Equal(t, uint32(3), params.Time)
	assert.Equal(t, uint8(4), params.Parallelism)
	assert.Equal(t, []byte("somesaltsomesalt"), salt)
	assert.Len(t, key, 32)
}

func TestVerifyPasswordMalformed(t *testing.T) {
	for _, hash := range []string{
		"",
		"plain",
		"$2a$10$bcrypthashvalue",
		"$argon2i$v=19$m=65536,t=3,p=4$c2FsdA$a2V5",
		"$argon2id$v=18$m=65536,t=3,p=4$c2FsdA$a2V5",
		"$argon2id$v=19$m=x,t=3,p=4$c2FsdA$a2V5",
		"$argon2id$v=19$m=65536,t=3,p=4$!!$a2V5",
	} {
		_, err := VerifyPassword(hash, "pw")
		assert.ErrorIs(t, err, ErrMalformedHash, hash)
	}
}

func TestRandomCredential(t *testing.T) {
	a, err := RandomCredential(12)
	require.NoError(t, err)
	b, err := RandomCredential(12)
	require.NoError(t, err)

	assert.Len(t, a, 12)
	assert.NotEqual(t, a, b)
	for _, r := range a {
		assert.True(t, strings.ContainsRune(credentialAlphabet, r))
	}
}

func TestNewCredentials(t *testing.T) {
	creds, hash, err := NewCredentials()
	require.NoError(t, err)

	assert.Len(t, creds.Login, 12)
	assert.Len(t, creds.Password, 12)

	ok, err := VerifyPassword(hash, creds.Password)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestDummyHashIsWellFormed(t *testing.T) {
	params, salt, key, err := decodeHash(DummyHash)
	require.NoError(t, err)
	assert.Equal(t, DefaultArgon2idParams().MemoryKiB, params.MemoryKiB)
	assert.Equal(t, DefaultArgon2idParams().Time, params.Time)
	assert.Len(t, salt, 16)
	assert.Len(t, key, 32)

	ok, err := VerifyPassword(DummyHash, "s3cret-pass")
	require.NoError(t, err)
	assert.False(t, ok)
}
