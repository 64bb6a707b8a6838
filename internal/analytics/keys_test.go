package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProjectionKeyOrderIndependent(t *testing.T) {
	a := ProjectionKey([]string{"w1", "w2", "w3"}, 50)
	b := ProjectionKey([]string{"w3", "w1", "w2"}, 50)
	assert.Equal(t, a, b)
	assert.Len(t, a, 16)
}

func TestProjectionKeySensitivity(t *testing.T) {
	base := ProjectionKey([]string{"w1", "w2"}, 50)

	assert.NotEqual(t, base, ProjectionKey([]string{"w1", "w2"}, 40),
		"resolution must participate in the key")
	assert.NotEqual(t, base, ProjectionKey([]string{"w1", "w2", "w3"}, 50),
		"wafer set must participate in the key")
	assert.NotEqual(t, base, ProjectionKey([]string{"w1", "wx"}, 50))
}

func TestDetectionKey(t *testing.T) {
	pk := ProjectionKey([]string{"a", "b"}, 50)

	k1 := DetectionKey(pk, 0.1)
	k2 := DetectionKey(pk, 0.1)
	k3 := DetectionKey(pk, 0.2)

	assert.Equal(t, k1, k2)
	assert.NotEqual(t, k1, k3, "contamination must invalidate the detection tier")
	assert.NotEqual(t, k1, DetectionKey("other", 0.1))
}
