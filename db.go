package levelkv

import (
	"runtime"
	"sync"

	cerrors "github.com/cockroachdb/errors"

	"github.com/kezhuw/levelkv/internal/engine"
	"github.com/kezhuw/levelkv/internal/errors"
	"github.com/kezhuw/levelkv/internal/iterator"
)

// DB represents an opened database. It is safe for concurrent use; Close
// waits for in-flight operations.
type DB struct {
	path    string
	options Options
	cache   engine.Cache
	logger  Logger

	mu   sync.RWMutex
	conn engine.Conn // nil once closed

	cursorsMu sync.Mutex
	cursors   map[*iterator.Bounded]struct{}
}

// Open opens the database stored at path with the engine selected by
// opts.Engine. A nil opts uses defaults, which do not create a missing
// database.
func Open(path string, opts *Options) (*DB, error) {
	if path == "" {
		return nil, errors.NewValidation("open", "empty path")
	}
	resolved := opts.resolve()
	eng, ok := engine.Lookup(resolved.Engine)
	if !ok {
		return nil, errors.NewValidation("open", "unknown engine %q", resolved.Engine)
	}
	eopts := convertOptions(&resolved)
	var cache engine.Cache
	if resolved.BlockCacheSize > 0 {
		cache = eng.NewCache(resolved.BlockCacheSize)
		eopts.BlockCache = cache
	}
	conn, err := eng.Open(path, eopts)
	if err != nil {
		if cache != nil {
			cache.Release()
		}
		resolved.Logger.Errorf("levelkv: open %s: %s", path, err)
		return nil, errors.Engine("open", err)
	}
	db := &DB{
		path:    path,
		options: resolved,
		cache:   cache,
		logger:  resolved.Logger,
		conn:    conn,
		cursors: make(map[*iterator.Bounded]struct{}),
	}
	db.logger.Infof("levelkv: opened %s with engine %s", path, resolved.Engine)
	runtime.SetFinalizer(db, (*DB).finalize)
	return db, nil
}

// Create creates a new database at path. It fails if one already exists.
func Create(path string, opts *Options) (*DB, error) {
	var o Options
	if opts != nil {
		o = *opts
	}
	o.CreateIfMissing = true
	o.ErrorIfExists = true
	return Open(path, &o)
}

// Load opens an existing database at path. It fails if none exists.
func Load(path string, opts *Options) (*DB, error) {
	var o Options
	if opts != nil {
		o = *opts
	}
	o.CreateIfMissing = false
	o.ErrorIfExists = false
	return Open(path, &o)
}

// OpenMap opens the database at path with options parsed from raw by
// ParseOptions.
func OpenMap(path string, raw map[string]interface{}) (*DB, error) {
	opts, err := ParseOptions(raw)
	if err != nil {
		return nil, err
	}
	return Open(path, opts)
}

func (db *DB) finalize() {
	go db.Close()
}

// Path returns the path the db was opened with.
func (db *DB) Path() string {
	return db.path
}

// Options returns the resolved options the db was opened with.
func (db *DB) Options() Options {
	return db.options
}

// Closed reports whether the db has been closed.
func (db *DB) Closed() bool {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.conn == nil
}

// Close closes the db. Outstanding cursors are released; outstanding
// snapshots become no-ops on release. Calls after the first return nil.
func (db *DB) Close() error {
	runtime.SetFinalizer(db, nil)
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.conn == nil {
		return nil
	}
	var err error
	db.cursorsMu.Lock()
	if n := len(db.cursors); n != 0 {
		db.logger.Warnf("levelkv: releasing %d outstanding cursors of %s", n, db.path)
	}
	for it := range db.cursors {
		err = cerrors.CombineErrors(err, it.Release())
	}
	db.cursors = nil
	db.cursorsMu.Unlock()

	err = cerrors.CombineErrors(err, db.conn.Close())
	db.conn = nil
	if db.cache != nil {
		db.cache.Release()
		db.cache = nil
	}
	if err != nil {
		db.logger.Errorf("levelkv: close %s: %s", db.path, err)
		return errors.Engine("close", err)
	}
	db.logger.Infof("levelkv: closed %s", db.path)
	return nil
}

func (db *DB) readOptions(opts *ReadOptions) (*engine.ReadOptions, error) {
	if opts == nil {
		return &engine.ReadOptions{}, nil
	}
	ref, err := db.snapshotRef(opts.Snapshot)
	if err != nil {
		return nil, err
	}
	return &engine.ReadOptions{
		DontFillCache:   opts.DontFillCache,
		VerifyChecksums: opts.VerifyChecksums,
		Snapshot:        ref,
	}, nil
}

// snapshotRef returns the engine reference of ss, nil for a nil or
// released snapshot.
func (db *DB) snapshotRef(ss *Snapshot) (engine.Snapshot, error) {
	if ss == nil {
		return nil, nil
	}
	if ss.db != db {
		return nil, errors.NewValidation("read", "snapshot belongs to another db")
	}
	return ss.reference(), nil
}

func (db *DB) get(key []byte, ro *engine.ReadOptions) ([]byte, bool, error) {
	value, err := db.conn.Get(key, ro)
	switch {
	case cerrors.Is(err, engine.ErrNotFound):
		return nil, false, nil
	case err != nil:
		return nil, false, errors.Engine("get", err)
	}
	return value, true, nil
}

// Get gets value for given key. A missing key is reported through found,
// not as an error.
func (db *DB) Get(key []byte, opts *ReadOptions) (value []byte, found bool, err error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	if db.conn == nil {
		return nil, false, ErrDBClosed
	}
	ro, err := db.readOptions(opts)
	if err != nil {
		return nil, false, err
	}
	return db.get(key, ro)
}

// Exists reports whether db contains key.
func (db *DB) Exists(key []byte) (bool, error) {
	_, found, err := db.Get(key, nil)
	return found, err
}

// Put stores a key/value pair in DB.
func (db *DB) Put(key, value []byte, opts *WriteOptions) error {
	db.mu.RLock()
	defer db.mu.RUnlock()
	if db.conn == nil {
		return ErrDBClosed
	}
	return errors.Engine("put", db.conn.Put(key, value, convertWriteOptions(opts)))
}

// Delete deletes the entry for key and returns its previous value. It is
// not an error if db does not contain that key; found is false and the
// engine is not asked to delete.
//
// The previous value is read without filling the block cache. The read and
// the deletion are not atomic with respect to concurrent writers of key.
func (db *DB) Delete(key []byte, opts *WriteOptions) (prev []byte, found bool, err error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	if db.conn == nil {
		return nil, false, ErrDBClosed
	}
	prev, found, err = db.get(key, &engine.ReadOptions{DontFillCache: true})
	if err != nil || !found {
		return nil, false, err
	}
	if err := db.conn.Delete(key, convertWriteOptions(opts)); err != nil {
		return nil, false, errors.Engine("delete", err)
	}
	return prev, true, nil
}

// Write applies batch to db atomically. A batch can be written only once.
func (db *DB) Write(batch *WriteBatch, opts *WriteOptions) error {
	db.mu.RLock()
	defer db.mu.RUnlock()
	switch {
	case batch == nil:
		return errors.NewValidation("write", "nil batch")
	case db.conn == nil:
		return ErrDBClosed
	case batch.committed:
		return ErrBatchCommitted
	}
	batch.committed = true
	switch {
	case batch.batch.Empty():
		return nil
	case batch.batch.Err() != nil:
		return batch.batch.Err()
	}
	if err := db.conn.Write(&batch.batch, convertWriteOptions(opts)); err != nil {
		db.logger.Errorf("levelkv: write batch of %d records: %s", batch.Len(), err)
		return errors.Engine("write", err)
	}
	db.logger.Debugf("levelkv: wrote batch of %d records", batch.Len())
	return nil
}

// Batch calls fn with a fresh WriteBatch and writes it once fn returns. If
// fn fails, nothing is written and its error is returned.
func (db *DB) Batch(opts *WriteOptions, fn func(b *WriteBatch) error) error {
	if fn == nil {
		return errors.NewValidation("batch", "nil builder")
	}
	b := NewWriteBatch()
	if err := fn(b); err != nil {
		return err
	}
	return db.Write(b, opts)
}

// Snapshot captures current state of db as a Snapshot. Following updates in
// db will not affect the state of Snapshot.
func (db *DB) Snapshot() (*Snapshot, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	if db.conn == nil {
		return nil, ErrDBClosed
	}
	ref, err := db.conn.GetSnapshot()
	if err != nil {
		return nil, errors.Engine("snapshot", err)
	}
	db.logger.Debugf("levelkv: acquired snapshot of %s", db.path)
	return newSnapshot(db, ref), nil
}

// NewCursor returns a cursor over db, or over opts.Snapshot if set.
func (db *DB) NewCursor(opts *CursorOptions) (*Cursor, error) {
	var ss *Snapshot
	if opts != nil {
		ss = opts.Snapshot
	}
	return db.newCursor(opts, ss)
}

func (db *DB) newCursor(opts *CursorOptions, ss *Snapshot) (*Cursor, error) {
	if opts == nil {
		opts = &CursorOptions{}
	}
	db.mu.RLock()
	defer db.mu.RUnlock()
	if db.conn == nil {
		return nil, ErrDBClosed
	}
	ref, err := db.snapshotRef(ss)
	if err != nil {
		return nil, err
	}
	c, err := db.conn.NewCursor(&engine.ReadOptions{
		DontFillCache:   true,
		VerifyChecksums: opts.VerifyChecksums,
		Snapshot:        ref,
	})
	if err != nil {
		return nil, errors.Engine("cursor", err)
	}
	it := iterator.NewBounded(c, opts.bounds())
	db.cursorsMu.Lock()
	db.cursors[it] = struct{}{}
	db.cursorsMu.Unlock()
	return newCursor(db, it), nil
}

func (db *DB) untrack(it *iterator.Bounded) {
	db.cursorsMu.Lock()
	delete(db.cursors, it)
	db.cursorsMu.Unlock()
}

// Each calls fn for every entry with key in [from, to], in ascending key
// order. Zero length from and to are unbounded.
func (db *DB) Each(from, to []byte, fn func(key, value []byte) error) error {
	return each(db, &CursorOptions{From: from, To: to}, fn)
}

// ReverseEach calls fn for every entry with key in [to, from], in
// descending key order. Zero length from and to are unbounded.
func (db *DB) ReverseEach(from, to []byte, fn func(key, value []byte) error) error {
	return each(db, &CursorOptions{From: from, To: to, Reverse: true}, fn)
}

// Keys returns all keys in ascending order.
func (db *DB) Keys() ([][]byte, error) {
	return keys(db)
}

// Values returns all values in ascending key order.
func (db *DB) Values() ([][]byte, error) {
	return values(db)
}

// Size counts entries by scanning the whole db. It costs O(n).
func (db *DB) Size() (int, error) {
	n := 0
	err := db.Each(nil, nil, func(key, value []byte) error {
		n++
		return nil
	})
	return n, err
}
