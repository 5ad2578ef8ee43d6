package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPasswordHasher_HashAndCompare(t *testing.T) {
	t.Parallel()

	h := NewPasswordHasher(4) // минимальная стоимость для скорости тестов

	digest, err := h.Hash("hunter22")
	require.NoError(t, err)
	require.NotEmpty(t, digest)
	assert.NotEqual(t, "hunter22", digest)

	// Один и тот же пароль проходит проверку сколько угодно раз
	assert.True(t, h.Compare(digest, "hunter22"))
	assert.True(t, h.Compare(digest, "hunter22"))
	assert.False(t, h.Compare(digest, "hunter23"))
}

func TestPasswordHasher_OutOfRangeCostFallsBack(t *testing.T) {
	t.Parallel()

	h := NewPasswordHasher(99)
	digest, err := h.Hash("p@ssw0rd")
	require.NoError(t, err)
	assert.True(t, h.Compare(digest, "p@ssw0rd"))
}

func TestPasswordHasher_CompareGarbageHash(t *testing.T) {
	t.Parallel()

	h := NewPasswordHasher(4)
	assert.False(t, h.Compare("not-a-bcrypt-hash", "anything"))
}
