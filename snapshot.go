package levelkv

import (
	"runtime"

	"github.com/kezhuw/levelkv/internal/engine"
	"github.com/kezhuw/levelkv/internal/errors"
)

// Snapshot is a readonly and frozen state of db in particular moment.
//
// Reads through a released snapshot see the current state of its db.
// A Snapshot is not safe for concurrent use.
type Snapshot struct {
	db  *DB
	ref engine.Snapshot
}

func newSnapshot(db *DB, ref engine.Snapshot) *Snapshot {
	ss := &Snapshot{db: db, ref: ref}
	runtime.SetFinalizer(ss, (*Snapshot).finalize)
	return ss
}

// AcquireSnapshot captures the current state of r, which must be a *DB
// returned from this package.
func AcquireSnapshot(r Reader) (*Snapshot, error) {
	db, ok := r.(*DB)
	if !ok || db == nil {
		return nil, errors.NewValidation("snapshot", "%T is not a db", r)
	}
	return db.Snapshot()
}

func (ss *Snapshot) finalize() {
	ss.release()
}

func (ss *Snapshot) reference() engine.Snapshot {
	return ss.ref
}

// release drops the engine snapshot unless the db has been closed, in which
// case the engine has already reclaimed it.
func (ss *Snapshot) release() error {
	if ss.ref == nil {
		return nil
	}
	ref := ss.ref
	ss.ref = nil
	db := ss.db
	db.mu.RLock()
	defer db.mu.RUnlock()
	if db.conn == nil {
		db.logger.Debugf("levelkv: skip releasing snapshot of closed db %s", db.path)
		return nil
	}
	db.logger.Debugf("levelkv: released snapshot of %s", db.path)
	return errors.Engine("release snapshot", db.conn.ReleaseSnapshot(ref))
}

// Release releases any resources hold by this snapshot. Calls after the
// first are no-ops.
func (ss *Snapshot) Release() error {
	runtime.SetFinalizer(ss, nil)
	return ss.release()
}

// Released reports whether the snapshot has been released.
func (ss *Snapshot) Released() bool {
	return ss.ref == nil
}

// DB returns the db this snapshot was taken from.
func (ss *Snapshot) DB() *DB {
	return ss.db
}

// Get gets value for given key as of this snapshot.
func (ss *Snapshot) Get(key []byte, opts *ReadOptions) (value []byte, found bool, err error) {
	ro := ReadOptions{Snapshot: ss}
	if opts != nil {
		ro.DontFillCache = opts.DontFillCache
		ro.VerifyChecksums = opts.VerifyChecksums
	}
	return ss.db.Get(key, &ro)
}

// Exists reports whether key exists in this snapshot.
func (ss *Snapshot) Exists(key []byte) (bool, error) {
	_, found, err := ss.Get(key, nil)
	return found, err
}

// NewCursor returns a cursor over this snapshot. opts.Snapshot is ignored.
func (ss *Snapshot) NewCursor(opts *CursorOptions) (*Cursor, error) {
	return ss.db.newCursor(opts, ss)
}

// Each calls fn for every entry with key in [from, to] in this snapshot,
// in ascending key order.
func (ss *Snapshot) Each(from, to []byte, fn func(key, value []byte) error) error {
	return each(ss, &CursorOptions{From: from, To: to}, fn)
}

// ReverseEach calls fn for every entry with key in [to, from] in this
// snapshot, in descending key order.
func (ss *Snapshot) ReverseEach(from, to []byte, fn func(key, value []byte) error) error {
	return each(ss, &CursorOptions{From: from, To: to, Reverse: true}, fn)
}

// Keys returns all keys of this snapshot in ascending order.
func (ss *Snapshot) Keys() ([][]byte, error) {
	return keys(ss)
}

// Values returns all values of this snapshot in ascending key order.
func (ss *Snapshot) Values() ([][]byte, error) {
	return values(ss)
}
