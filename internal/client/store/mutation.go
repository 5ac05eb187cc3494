package store

import "sync"

// MutationState is the lifecycle stage of an optimistic change.
type MutationState int

const (
	Idle MutationState = iota
	Pending
	Committed
	RolledBack
)

func (s MutationState) String() string {
	switch s {
	case Pending:
		return "pending"
	case Committed:
		return "committed"
	case RolledBack:
		return "rolled back"
	default:
		return "idle"
	}
}

// Mutation tracks one optimistic change. Begin records the state to return
// to; exactly one of Commit or Rollback ends it.
type Mutation[S any] struct {
	state    MutationState
	snapshot S
	seq      uint64
}

// Begin moves an idle mutation to Pending, capturing snapshot.
func (m *Mutation[S]) Begin(snapshot S, seq uint64) {
	if m.state != Idle {
		return
	}
	m.state = Pending
	m.snapshot = snapshot
	m.seq = seq
}

// Commit confirms a pending mutation. It reports false for any other state.
func (m *Mutation[S]) Commit() bool {
	if m.state != Pending {
		return false
	}
	m.state = Committed
	var zero S
	m.snapshot = zero
	return true
}

// Rollback ends a pending mutation and returns the snapshot taken at Begin.
func (m *Mutation[S]) Rollback() (S, bool) {
	var zero S
	if m.state != Pending {
		return zero, false
	}
	m.state = RolledBack
	s := m.snapshot
	m.snapshot = zero
	return s, true
}

func (m *Mutation[S]) State() MutationState { return m.state }

func (m *Mutation[S]) Seq() uint64 { return m.seq }

// sequencer issues monotonic numbers and remembers the latest one per key,
// so a response can tell whether a newer call for the same key was made.
type sequencer struct {
	mu     sync.Mutex
	next   uint64
	latest map[string]uint64
}

func (s *sequencer) issue(key string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.latest == nil {
		s.latest = make(map[string]uint64)
	}
	s.next++
	s.latest[key] = s.next
	return s.next
}

func (s *sequencer) current(key string, seq uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest[key] == seq
}

// done forgets key once its latest call has settled.
func (s *sequencer) done(key string, seq uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.latest[key] == seq {
		delete(s.latest, key)
	}
}
