package attempt

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func order(n int) []uuid.UUID {
	out := make([]uuid.UUID, n)
	for i := range out {
		out[i] = uuid.New()
	}
	return out
}

func TestFreeNavigation(t *testing.T) {
	ids := order(6)
	n := NewNavigator(ids, false)

	idx, qid := n.Current()
	assert.Equal(t, 0, idx)
	assert.Equal(t, ids[0], qid)

	require.True(t, n.Next())
	require.True(t, n.Next())
	idx, _ = n.Current()
	assert.Equal(t, 2, idx)

	require.True(t, n.Previous())
	idx, _ = n.Current()
	assert.Equal(t, 1, idx)

	require.True(t, n.JumpTo(5))
	idx, qid = n.Current()
	assert.Equal(t, 5, idx)
	assert.Equal(t, ids[5], qid)
	assert.True(t, n.AtLast())

	// Bounded at the ends.
	assert.False(t, n.Next())
	require.True(t, n.JumpTo(0))
	assert.False(t, n.Previous())
}

func TestLinearNavigationRejectsOutOfSequence(t *testing.T) {
	ids := order(6)
	n := NewNavigator(ids, true)

	// jumpTo(5) from index 0 is rejected; index stays 0.
	assert.False(t, n.JumpTo(5))
	idx, _ := n.Current()
	assert.Equal(t, 0, idx)

	// Sequential next progression is permitted.
	require.True(t, n.Next())
	require.True(t, n.Next())
	idx, _ = n.Current()
	assert.Equal(t, 2, idx)

	// Going back is rejected.
	assert.False(t, n.Previous())
	idx, _ = n.Current()
	assert.Equal(t, 2, idx)

	// JumpTo the natural next step is the one permitted jump.
	assert.True(t, n.JumpTo(3))
	assert.False(t, n.JumpTo(5))
}

func TestEmptyOrder(t *testing.T) {
	n := NewNavigator(nil, false)
	idx, qid := n.Current()
	assert.Equal(t, 0, idx)
	assert.Equal(t, uuid.Nil, qid)
	assert.False(t, n.Next())
	assert.False(t, n.Previous())
	assert.True(t, n.AtLast())
}
