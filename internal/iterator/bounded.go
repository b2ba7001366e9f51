package iterator

import (
	"bytes"

	cerrors "github.com/cockroachdb/errors"

	"github.com/kezhuw/levelkv/internal/engine"
	"github.com/kezhuw/levelkv/internal/errors"
)

// Options configures a bounded iterator. Nil From and To mean absent.
type Options struct {
	Direction Direction

	// From is the starting key. Forward iteration starts at the first key
	// >= From, reverse iteration at the last key <= From.
	From []byte

	// To bounds iteration. Keys strictly after To (forward) or strictly
	// before To (reverse) end iteration; a key equal to To is yielded.
	To []byte
}

// Bounded walks an engine cursor in one direction until it runs off the
// keyspace or passes a bound. It owns the engine cursor and releases it
// exactly once.
//
// Validity is checked lazily and memoized until the cursor moves, so Peek
// and Reason are cheap to call repeatedly.
type Bounded struct {
	cursor    engine.Cursor
	direction Direction
	to        []byte
	status    Status
	released  bool
}

// NewBounded positions c according to opts and takes ownership of it.
func NewBounded(c engine.Cursor, opts Options) *Bounded {
	it := &Bounded{cursor: c, direction: opts.Direction, to: opts.To}
	switch {
	case opts.From == nil && opts.Direction == Forward:
		c.First()
	case opts.From == nil:
		c.Last()
	case opts.Direction == Forward:
		c.Seek(opts.From)
	default:
		it.seekReverse(opts.From)
	}
	return it
}

// seekReverse positions at the last key <= from.
func (it *Bounded) seekReverse(from []byte) {
	c := it.cursor
	if c.Seek(from) {
		if bytes.Compare(c.Key(), from) > 0 {
			c.Prev()
		}
		return
	}
	if c.Err() == nil {
		c.Last()
	}
}

func (it *Bounded) exceeds(key []byte) bool {
	if it.to == nil {
		return false
	}
	cmp := bytes.Compare(key, it.to)
	if it.direction == Forward {
		return cmp > 0
	}
	return cmp < 0
}

func (it *Bounded) check() bool {
	if it.status != Unchecked {
		return it.status == Valid
	}
	switch {
	case !it.cursor.Valid():
		it.status = Exhausted
	case it.exceeds(it.cursor.Key()):
		it.status = BoundExceeded
	default:
		it.status = Valid
	}
	return it.status == Valid
}

func (it *Bounded) advance() {
	if it.direction == Forward {
		it.cursor.Next()
	} else {
		it.cursor.Prev()
	}
	it.status = Unchecked
}

// Status returns the checked status of the iterator.
func (it *Bounded) Status() Status {
	if it.released {
		return it.status
	}
	it.check()
	return it.status
}

// Reason returns ReasonExhausted or ReasonBoundExceeded for an invalid
// iterator; ok is false while the iterator is valid.
func (it *Bounded) Reason() (reason int, ok bool) {
	s := it.Status()
	if s == Valid {
		return 0, false
	}
	return s.Reason(), true
}

// Peek returns copies of the current key and value without advancing.
func (it *Bounded) Peek() (key, value []byte, ok bool) {
	if it.released || !it.check() {
		return nil, nil, false
	}
	return bytes.Clone(it.cursor.Key()), bytes.Clone(it.cursor.Value()), true
}

// Scan advances past the current entry. It is a no-op on an invalid
// iterator.
func (it *Bounded) Scan() {
	if !it.released && it.check() {
		it.advance()
	}
}

// Next returns the current entry and advances past it.
func (it *Bounded) Next() (key, value []byte, ok bool) {
	key, value, ok = it.Peek()
	if ok {
		it.advance()
	}
	return key, value, ok
}

// Each calls fn for every remaining entry, then releases the iterator. It
// returns the first error from fn, or the error the engine cursor ended with.
// Iteration also stops if fn releases the iterator. The iterator is released
// even if fn panics.
func (it *Bounded) Each(fn func(key, value []byte) error) (err error) {
	if it.released {
		return errors.ErrCursorReleased
	}
	defer func() {
		err = cerrors.CombineErrors(err, it.Release())
	}()
	for it.check() {
		if err = fn(bytes.Clone(it.cursor.Key()), bytes.Clone(it.cursor.Value())); err != nil || it.released {
			break
		}
		it.advance()
	}
	return err
}

// Err returns the error the engine cursor has encountered so far.
func (it *Bounded) Err() error {
	if it.released {
		return nil
	}
	return it.cursor.Err()
}

// Released reports whether the engine cursor has been released.
func (it *Bounded) Released() bool {
	return it.released
}

// Release releases the engine cursor and returns its final error. Calls
// after the first return nil.
func (it *Bounded) Release() error {
	if it.released {
		return nil
	}
	it.released = true
	if it.status == Unchecked || it.status == Valid {
		it.status = Exhausted
	}
	err := it.cursor.Release()
	it.cursor = nil
	return err
}
