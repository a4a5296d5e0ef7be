package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUUIDint64Unique(t *testing.T) {
	seen := make(map[int64]struct{}, 1000)
	for i := 0; i < 1000; i++ {
		id := UUIDint64()
		_, dup := seen[id]
		require.False(t, dup, "duplicate id %d", id)
		seen[id] = struct{}{}
	}
}

func TestPasswordHash(t *testing.T) {
	hashed, err := HashPassword("secret")
	require.NoError(t, err)
	assert.True(t, CheckPassword(hashed, "secret"))
	assert.False(t, CheckPassword(hashed, "other"))
	assert.False(t, CheckPassword("", "secret"))
}
