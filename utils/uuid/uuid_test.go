package uuid

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIDs(t *testing.T) {
	assert.Len(t, GenUUID(), 36)
	assert.Len(t, GenUUID16(), 16)

	seen := make(map[int64]bool)
	for i := 0; i < 1000; i++ {
		id := NextID()
		assert.False(t, seen[id])
		seen[id] = true
	}
}
