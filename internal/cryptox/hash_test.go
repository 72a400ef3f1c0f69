package cryptox

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateSaltedHash_FreshSaltPerCall(t *testing.T) {
	h1, err := GenerateSaltedHash("s3cret")
	require.NoError(t, err)
	h2, err := GenerateSaltedHash("s3cret")
	require.NoError(t, err)

	assert.NotEqual(t, h1, h2, "same input must yield different hashes")
	assert.True(t, strings.HasPrefix(h1, "argon2id$"))
}

func TestValidateSaltedHash(t *testing.T) {
	hashed, err := GenerateSaltedHash("correct horse")
	require.NoError(t, err)

	assert.True(t, ValidateSaltedHash(hashed, "correct horse"))
	assert.False(t, ValidateSaltedHash(hashed, "wrong horse"))
	assert.False(t, ValidateSaltedHash(hashed, ""))
}

func TestValidateSaltedHash_MalformedInputIsFalse(t *testing.T) {
	tests := []struct {
		name   string
		hashed string
	}{
		{"empty", ""},
		{"not a hash", "hunter2"},
		{"wrong scheme", "bcrypt$v=19$t=1,m=65536,p=4$c2FsdA$ZGlnZXN0"},
		{"missing sections", "argon2id$v=19$t=1,m=65536,p=4"},
		{"bad params", "argon2id$v=19$nonsense$c2FsdA$ZGlnZXN0"},
		{"bad salt encoding", "argon2id$v=19$t=1,m=65536,p=4$!!!$ZGlnZXN0"},
		{"bad digest encoding", "argon2id$v=19$t=1,m=65536,p=4$c2FsdA$!!!"},
		{"zero rounds", "argon2id$v=19$t=0,m=65536,p=4$c2FsdA$ZGlnZXN0"},
		{"zero parallelism", "argon2id$v=19$t=1,m=65536,p=0$c2FsdA$ZGlnZXN0"},
		{"excessive rounds", "argon2id$v=19$t=4096,m=65536,p=4$c2FsdA$ZGlnZXN0"},
		{"excessive memory", "argon2id$v=19$t=1,m=4294967295,p=4$c2FsdA$ZGlnZXN0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.False(t, ValidateSaltedHash(tt.hashed, "anything"))
		})
	}
}

func TestService_RoundTrip(t *testing.T) {
	svc := NewService()
	hashed, err := svc.GenerateSaltedHash("pw")
	require.NoError(t, err)
	assert.True(t, svc.ValidateSaltedHash(hashed, "pw"))
	assert.False(t, svc.ValidateSaltedHash(hashed, "pW"))
}
