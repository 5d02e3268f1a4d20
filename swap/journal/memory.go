package journal

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Memory is an in-process Journal. Entries do not survive a restart.
type Memory struct {
	mu      sync.RWMutex
	entries map[uuid.UUID]*Entry
	now     func() time.Time
}

var _ Journal = (*Memory)(nil)

// NewMemory returns an empty in-memory journal.
func NewMemory() *Memory {
	return &Memory{
		entries: make(map[uuid.UUID]*Entry),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (m *Memory) Begin(_ context.Context, entry *Entry) error {
	if err := entry.ValidateNew(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.entries[entry.ID]; exists {
		return fmt.Errorf("%w: %s", ErrEntryExists, entry.ID)
	}

	m.entries[entry.ID] = entry.Clone()

	return nil
}

func (m *Memory) MarkAttempting(_ context.Context, id uuid.UUID, leg string) error {
	return m.update(id, func(e *Entry) error { return e.AttemptLeg(leg, m.now()) })
}

func (m *Memory) MarkApplied(_ context.Context, id uuid.UUID, leg string) error {
	return m.update(id, func(e *Entry) error { return e.ApplyLeg(leg, m.now()) })
}

func (m *Memory) MarkCompensated(_ context.Context, id uuid.UUID, leg string) error {
	return m.update(id, func(e *Entry) error { return e.CompensateLeg(leg, m.now()) })
}

func (m *Memory) Finish(_ context.Context, id uuid.UUID, status Status, failedLeg, lastErr string) error {
	return m.update(id, func(e *Entry) error { return e.Transition(status, failedLeg, lastErr, m.now()) })
}

func (m *Memory) Get(_ context.Context, id uuid.UUID) (*Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entry, ok := m.entries[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrEntryNotFound, id)
	}

	return entry.Clone(), nil
}

func (m *Memory) ListByStatus(_ context.Context, status Status, limit int) ([]*Entry, error) {
	if !status.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	m.mu.RLock()

	out := make([]*Entry, 0)

	for _, entry := range m.entries {
		if entry.Status == status {
			out = append(out, entry.Clone())
		}
	}

	m.mu.RUnlock()

	return SortAndLimit(out, limit), nil
}

// update applies fn to a copy and stores it only when fn succeeds.
func (m *Memory) update(id uuid.UUID, fn func(*Entry) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrEntryNotFound, id)
	}

	next := entry.Clone()
	if err := fn(next); err != nil {
		return err
	}

	m.entries[id] = next

	return nil
}

// SortAndLimit orders entries oldest first, breaking ties by ID, and keeps
// at most limit of them when limit > 0.
func SortAndLimit(entries []*Entry, limit int) []*Entry {
	slices.SortFunc(entries, func(a, b *Entry) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}

		return slices.Compare(a.ID[:], b.ID[:])
	})

	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}

	return entries
}
