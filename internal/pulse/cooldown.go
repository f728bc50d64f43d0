package pulse

import (
	"sync"
	"time"
)

// Cooldown keys for gated content types.
const (
	CooldownPlanProposal        = "pulse.plan_proposal.last_shown"
	CooldownPostWorkoutQuestion = "pulse.post_workout_question.last_shown"
)

// CooldownStore persists a single "last shown at" timestamp per key.
type CooldownStore interface {
	LastShown(key string) (time.Time, bool, error)
	MarkShown(key string, at time.Time) error
}

// MemoryCooldownStore is an in-process CooldownStore.
type MemoryCooldownStore struct {
	mu    sync.Mutex
	shown map[string]time.Time
}

// NewMemoryCooldownStore returns an empty store.
func NewMemoryCooldownStore() *MemoryCooldownStore {
	return &MemoryCooldownStore{shown: make(map[string]time.Time)}
}

func (m *MemoryCooldownStore) LastShown(key string) (time.Time, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.shown[key]
	return t, ok, nil
}

func (m *MemoryCooldownStore) MarkShown(key string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shown[key] = at
	return nil
}
