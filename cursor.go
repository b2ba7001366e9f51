package levelkv

import (
	"runtime"

	"github.com/kezhuw/levelkv/internal/errors"
	"github.com/kezhuw/levelkv/internal/iterator"
	"github.com/kezhuw/levelkv/internal/options"
)

// Reasons reported by Cursor.InvalidReason.
const (
	ReasonExhausted     = iterator.ReasonExhausted
	ReasonBoundExceeded = iterator.ReasonBoundExceeded
)

// CursorOptions contains options controlling a cursor.
type CursorOptions struct {
	// From is the starting key. Forward cursors start at the first key >=
	// From; reverse cursors start at the last key <= From. Zero length From
	// starts at the first (or last) key.
	From []byte

	// To bounds the cursor. Iteration stops at the first key sorting after To
	// (forward) or before To (reverse). A key equal to To is still yielded.
	// Zero length To is unbounded.
	To []byte

	// Reverse walks keys in descending order.
	Reverse bool

	// Snapshot pins the cursor to a snapshot of the same db.
	Snapshot *Snapshot

	// VerifyChecksums verifies data read from underlying storage against
	// saved checksums.
	VerifyChecksums bool
}

func nonEmpty(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	return b
}

func (opts *CursorOptions) bounds() iterator.Options {
	direction := iterator.Forward
	if opts.Reverse {
		direction = iterator.Reverse
	}
	return iterator.Options{Direction: direction, From: nonEmpty(opts.From), To: nonEmpty(opts.To)}
}

// ParseCursorOptions translates a mapping with "from", "to", "reversed",
// "snapshot" and "verify_checksums" into CursorOptions. "fill_cache" is
// accepted but has no effect: cursors never fill the block cache.
func ParseCursorOptions(raw map[string]interface{}) (*CursorOptions, error) {
	if err := options.CursorSet.Check(raw); err != nil {
		return nil, err
	}
	var opts CursorOptions
	var err error
	if opts.From, err = options.Bytes(raw, options.From); err != nil {
		return nil, err
	}
	if opts.To, err = options.Bytes(raw, options.To); err != nil {
		return nil, err
	}
	if opts.Reverse, err = options.Bool(raw, options.Reversed, false); err != nil {
		return nil, err
	}
	if _, err = options.Bool(raw, options.FillCache, false); err != nil {
		return nil, err
	}
	if opts.VerifyChecksums, err = options.Bool(raw, options.VerifyChecksums, false); err != nil {
		return nil, err
	}
	if opts.Snapshot, err = snapshotOption(raw); err != nil {
		return nil, err
	}
	return &opts, nil
}

// Cursor walks a range of keys in one direction. A cursor is not safe for
// concurrent use. Reads through a cursor never fill the block cache.
//
// A cursor becomes invalid permanently once it runs off the keyspace or
// passes its bound. It holds engine resources until Each returns, Release
// is called or its db is closed.
type Cursor struct {
	db *DB
	it *iterator.Bounded
}

func newCursor(db *DB, it *iterator.Bounded) *Cursor {
	c := &Cursor{db: db, it: it}
	runtime.SetFinalizer(c, (*Cursor).finalize)
	return c
}

// NewCursor returns a cursor over r, which must be a *DB or a *Snapshot
// returned from this package.
func NewCursor(r Reader, opts *CursorOptions) (*Cursor, error) {
	switch r := r.(type) {
	case *DB:
		if r != nil {
			return r.NewCursor(opts)
		}
	case *Snapshot:
		if r != nil {
			return r.NewCursor(opts)
		}
	}
	return nil, errors.NewValidation("cursor", "%T is not a db or snapshot", r)
}

func (c *Cursor) finalize() {
	c.Release()
}

// Peek returns the current entry without advancing. ok is false if the
// cursor is invalid.
func (c *Cursor) Peek() (key, value []byte, ok bool) {
	c.db.mu.RLock()
	defer c.db.mu.RUnlock()
	return c.it.Peek()
}

// Scan advances past the current entry. It is a no-op on an invalid cursor.
func (c *Cursor) Scan() {
	c.db.mu.RLock()
	defer c.db.mu.RUnlock()
	c.it.Scan()
}

// Next returns the current entry and advances past it.
func (c *Cursor) Next() (key, value []byte, ok bool) {
	c.db.mu.RLock()
	defer c.db.mu.RUnlock()
	return c.it.Next()
}

// Valid reports whether the cursor is positioned at an entry.
func (c *Cursor) Valid() bool {
	_, ok := c.InvalidReason()
	return !ok
}

// InvalidReason returns ReasonExhausted or ReasonBoundExceeded for an
// invalid cursor. ok is false while the cursor is valid.
func (c *Cursor) InvalidReason() (reason int, ok bool) {
	c.db.mu.RLock()
	defer c.db.mu.RUnlock()
	return c.it.Reason()
}

// Each calls fn for every remaining entry, then releases the cursor. It
// returns the first error from fn, or the error the engine ended iteration
// with. Calling Each on a drained or released cursor fails with
// ErrCursorReleased.
//
// fn runs without holding db resources, so it may read from or write to
// the db. The cursor is released even if fn panics.
func (c *Cursor) Each(fn func(key, value []byte) error) error {
	runtime.SetFinalizer(c, nil)
	db := c.db
	defer db.untrack(c.it)
	db.mu.RLock()
	defer db.mu.RUnlock()
	if db.conn == nil {
		return ErrDBClosed
	}
	var fnErr error
	err := c.it.Each(func(key, value []byte) error {
		db.mu.RUnlock()
		defer db.mu.RLock()
		fnErr = fn(key, value)
		return fnErr
	})
	switch {
	case fnErr != nil:
		return fnErr
	case err != nil:
		return errors.Engine("cursor", err)
	case db.conn == nil:
		return ErrDBClosed
	}
	return nil
}

// Release releases the engine cursor. Calls after the first, or after the
// db is closed, return nil.
func (c *Cursor) Release() error {
	runtime.SetFinalizer(c, nil)
	c.db.mu.RLock()
	err := c.it.Release()
	c.db.mu.RUnlock()
	c.db.untrack(c.it)
	return errors.Engine("cursor", err)
}
