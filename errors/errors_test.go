package errors

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSentinelWrapping(t *testing.T) {
	err := Wrap(ErrStoreUnavailable, "listing open jobs")
	require.Error(t, err)
	assert.True(t, IsStoreUnavailable(err))
	assert.False(t, IsVersionConflict(err))

	err = Wrapf(ErrVersionConflict, "job %s", "JOB_1")
	assert.True(t, IsVersionConflict(err))
}

func TestNewConfigInvalid(t *testing.T) {
	err := NewConfigInvalid("selection factor weights sum to %d, want 100", 90)
	require.Error(t, err)
	assert.True(t, Is(err, ErrConfigInvalid))
	assert.Contains(t, err.Error(), "sum to 90")
}

func TestIsNotFound(t *testing.T) {
	assert.False(t, IsNotFound(nil))
	assert.True(t, IsNotFound(Wrap(ErrNotFound, "offer")))
}
