package badgerjournal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/LerianStudio/lib-swap/swap/journal"
	"github.com/LerianStudio/lib-swap/swap/log"
)

const keyPrefix = "swap:entry:"

// ErrNilDB is returned by New when db is nil.
var ErrNilDB = errors.New("badger db is required")

// Journal stores entries as JSON values under "swap:entry:<uuid>" keys.
// Every mutation is a read-modify-write inside one badger transaction.
type Journal struct {
	db     *badger.DB
	owned  bool
	logger log.Logger
	now    func() time.Time
}

var _ journal.Journal = (*Journal)(nil)

// Option configures a Journal.
type Option func(*Journal)

// WithLogger sets the logger for journal and badger diagnostics.
func WithLogger(logger log.Logger) Option {
	return func(j *Journal) {
		j.logger = log.OrNop(logger)
	}
}

// Open opens (creating if needed) a badger database in dir. An empty dir
// opens an in-memory database that is lost on Close. The returned journal
// owns the database and closes it on Close.
func Open(dir string, opts ...Option) (*Journal, error) {
	j := newJournal(opts...)

	dbOpts := badger.DefaultOptions(dir).WithLogger(badgerLogger{logger: j.logger})
	if dir == "" {
		dbOpts = dbOpts.WithInMemory(true)
	}

	db, err := badger.Open(dbOpts)
	if err != nil {
		return nil, fmt.Errorf("opening journal at %s: %w", dir, err)
	}

	j.db = db
	j.owned = true

	return j, nil
}

// New wraps an already open database. The caller keeps ownership of db.
func New(db *badger.DB, opts ...Option) (*Journal, error) {
	if db == nil {
		return nil, ErrNilDB
	}

	j := newJournal(opts...)
	j.db = db

	return j, nil
}

func newJournal(opts ...Option) *Journal {
	j := &Journal{
		logger: log.NewNop(),
		now:    func() time.Time { return time.Now().UTC() },
	}

	for _, opt := range opts {
		opt(j)
	}

	return j
}

// Close releases the database when the journal owns it.
func (j *Journal) Close() error {
	if j == nil || j.db == nil || !j.owned {
		return nil
	}

	return j.db.Close()
}

func entryKey(id uuid.UUID) []byte {
	return []byte(keyPrefix + id.String())
}

func (j *Journal) Begin(ctx context.Context, entry *journal.Entry) error {
	if err := entry.ValidateNew(); err != nil {
		return err
	}

	value, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encoding entry %s: %w", entry.ID, err)
	}

	err = j.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(entryKey(entry.ID))
		if err == nil {
			return fmt.Errorf("%w: %s", journal.ErrEntryExists, entry.ID)
		}

		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		return txn.Set(entryKey(entry.ID), value)
	})
	if err != nil {
		return err
	}

	j.logger.Log(ctx, log.LevelDebug, "journal entry created", log.String("entry_id", entry.ID.String()))

	return nil
}

func (j *Journal) MarkAttempting(ctx context.Context, id uuid.UUID, leg string) error {
	return j.update(ctx, id, func(e *journal.Entry) error { return e.AttemptLeg(leg, j.now()) })
}

func (j *Journal) MarkApplied(ctx context.Context, id uuid.UUID, leg string) error {
	return j.update(ctx, id, func(e *journal.Entry) error { return e.ApplyLeg(leg, j.now()) })
}

func (j *Journal) MarkCompensated(ctx context.Context, id uuid.UUID, leg string) error {
	return j.update(ctx, id, func(e *journal.Entry) error { return e.CompensateLeg(leg, j.now()) })
}

func (j *Journal) Finish(ctx context.Context, id uuid.UUID, status journal.Status, failedLeg, lastErr string) error {
	return j.update(ctx, id, func(e *journal.Entry) error {
		return e.Transition(status, failedLeg, lastErr, j.now())
	})
}

func (j *Journal) Get(_ context.Context, id uuid.UUID) (*journal.Entry, error) {
	var entry *journal.Entry

	err := j.db.View(func(txn *badger.Txn) error {
		var err error

		entry, err = readEntry(txn, id)

		return err
	})

	return entry, err
}

func (j *Journal) ListByStatus(ctx context.Context, status journal.Status, limit int) ([]*journal.Entry, error) {
	if !status.IsValid() {
		return nil, fmt.Errorf("%w: %q", journal.ErrInvalidStatus, status)
	}

	prefix := []byte(keyPrefix)
	out := make([]*journal.Entry, 0)

	err := j.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}

			item := it.Item()

			err := item.Value(func(val []byte) error {
				var entry journal.Entry
				if err := json.Unmarshal(val, &entry); err != nil {
					return fmt.Errorf("decoding %s: %w", item.Key(), err)
				}

				if entry.Status == status {
					out = append(out, &entry)
				}

				return nil
			})
			if err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return journal.SortAndLimit(out, limit), nil
}

func (j *Journal) update(ctx context.Context, id uuid.UUID, fn func(*journal.Entry) error) error {
	var status journal.Status

	err := j.db.Update(func(txn *badger.Txn) error {
		entry, err := readEntry(txn, id)
		if err != nil {
			return err
		}

		if err := fn(entry); err != nil {
			return err
		}

		value, err := json.Marshal(entry)
		if err != nil {
			return fmt.Errorf("encoding entry %s: %w", id, err)
		}

		status = entry.Status

		return txn.Set(entryKey(id), value)
	})
	if err != nil {
		return err
	}

	j.logger.Log(ctx, log.LevelDebug, "journal entry updated",
		log.String("entry_id", id.String()),
		log.String("status", status.String()),
	)

	return nil
}

func readEntry(txn *badger.Txn, id uuid.UUID) (*journal.Entry, error) {
	item, err := txn.Get(entryKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %s", journal.ErrEntryNotFound, id)
	}

	if err != nil {
		return nil, err
	}

	value, err := item.ValueCopy(nil)
	if err != nil {
		return nil, err
	}

	var entry journal.Entry
	if err := json.Unmarshal(value, &entry); err != nil {
		return nil, fmt.Errorf("decoding entry %s: %w", id, err)
	}

	return &entry, nil
}
