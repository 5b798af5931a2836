package attempt

import (
	"sync"

	"github.com/google/uuid"
)

// Navigator is the question-movement state machine. In linear mode only the
// natural next progression is accepted; every other transition is a
// rejected no-op so the palette can stay rendered with jumping disabled.
type Navigator struct {
	mu     sync.Mutex
	order  []uuid.UUID
	idx    int
	linear bool
}

// NewNavigator creates a Navigator over the (already shuffled) question
// order.
func NewNavigator(order []uuid.UUID, linear bool) *Navigator {
	return &Navigator{order: order, linear: linear}
}

// Current returns the current index and question id.
func (n *Navigator) Current() (int, uuid.UUID) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.order) == 0 {
		return 0, uuid.Nil
	}
	return n.idx, n.order[n.idx]
}

// Next advances one question, bounded at the last. Returns whether the
// position changed.
func (n *Navigator) Next() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.idx+1 >= len(n.order) {
		return false
	}
	n.idx++
	return true
}

// Previous moves back one question, bounded at 0. Rejected in linear mode.
func (n *Navigator) Previous() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.linear || n.idx == 0 {
		return false
	}
	n.idx--
	return true
}

// JumpTo moves directly to an index. In linear mode only the natural next
// step is accepted.
func (n *Navigator) JumpTo(idx int) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	if idx < 0 || idx >= len(n.order) || idx == n.idx {
		return false
	}
	if n.linear && idx != n.idx+1 {
		return false
	}
	n.idx = idx
	return true
}

// AtLast reports whether the current question is the final one, which
// enables the submit affordance in place of next.
func (n *Navigator) AtLast() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.order) == 0 || n.idx == len(n.order)-1
}

// Len returns the number of questions.
func (n *Navigator) Len() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.order)
}
