package library

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("secret1", bcrypt.MinCost)
	require.NoError(t, err)
	assert.NotEqual(t, "secret1", hash)
	assert.NoError(t, checkPassword(hash, "secret1"))
	assert.ErrorIs(t, checkPassword(hash, "secret2"), ErrInvalidCredentials)
	assert.ErrorIs(t, checkPassword("not-a-hash", "secret1"), ErrInvalidCredentials)

	hash, err = HashPassword("secret1", 99)
	require.NoError(t, err)
	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.DefaultCost, cost)
}

func TestCheckDemoPassword(t *testing.T) {
	assert.NoError(t, checkDemoPassword("siswa123", "siswa123"))
	assert.ErrorIs(t, checkDemoPassword("siswa123", "siswa12"), ErrInvalidCredentials)
	assert.ErrorIs(t, checkDemoPassword("siswa123", ""), ErrInvalidCredentials)
}
