package memledger

import (
	"context"
	"sync"
)

// undoKey scopes an undo log to one store, so scopes on different stores
// nest independently.
type undoKey struct {
	store *Store
}

type undoLog struct {
	mu    sync.Mutex
	steps []func()
}

func (u *undoLog) record(step func()) {
	u.mu.Lock()
	defer u.mu.Unlock()

	u.steps = append(u.steps, step)
}

// Atomically runs fn so that every mutation it makes through this store's
// ledgers is discarded if fn returns an error or panics. Nested calls join
// the outermost scope.
//
// A scope holds the store exclusively until it returns: ledger calls made
// with a context from outside the scope wait for it, or for their own
// context to end. Rollback therefore never races with other writers.
func (s *Store) Atomically(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.undoFrom(ctx) != nil {
		return fn(ctx)
	}

	release, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	undo := &undoLog{}
	committed := false

	defer func() {
		if !committed {
			s.rollback(undo)
		}
	}()

	if err := fn(context.WithValue(ctx, undoKey{store: s}, undo)); err != nil {
		return err
	}

	committed = true

	return nil
}

func (s *Store) undoFrom(ctx context.Context) *undoLog {
	undo, _ := ctx.Value(undoKey{store: s}).(*undoLog)

	return undo
}

// enter admits a ledger call. Calls inside this store's scope pass through;
// others wait until no scope holds the store.
func (s *Store) enter(ctx context.Context) (func(), error) {
	if s.undoFrom(ctx) != nil {
		return func() {}, nil
	}

	return s.acquire(ctx)
}

// acquire only consults ctx while it has to wait; an uncontended store is
// always entered.
func (s *Store) acquire(ctx context.Context) (func(), error) {
	release := func() { <-s.txn }

	select {
	case s.txn <- struct{}{}:
		return release, nil
	default:
	}

	select {
	case s.txn <- struct{}{}:
		return release, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *Store) rollback(undo *undoLog) {
	s.mu.Lock()
	defer s.mu.Unlock()

	undo.mu.Lock()
	defer undo.mu.Unlock()

	for i := len(undo.steps) - 1; i >= 0; i-- {
		undo.steps[i]()
	}

	undo.steps = nil
}
