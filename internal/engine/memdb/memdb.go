// Package memdb is an in-process engine registered as "memory". Databases
// live in a process-wide table keyed by path, so reopening a path sees the
// data written before, until the process exits.
//
// Keys are kept in a copy-on-write google/btree; snapshots and cursors read
// from cheap clones, which gives cursors the same implicit point-in-time view
// LevelDB iterators have. Values written with snappy compression selected are
// stored snappy encoded, like LevelDB blocks.
package memdb

import (
	"bytes"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/golang/snappy"
	"github.com/google/btree"

	"github.com/kezhuw/levelkv/internal/batch"
	"github.com/kezhuw/levelkv/internal/engine"
)

const Name = "memory"

const degree = 32

var (
	errClosed          = errors.New("memdb: db closed")
	errForeignSnapshot = errors.New("memdb: snapshot not created by this engine")
)

func init() {
	engine.Register(memEngine{})
}

type item struct {
	key        []byte
	value      []byte
	compressed bool
}

func (i item) decode() ([]byte, error) {
	if !i.compressed {
		return append([]byte(nil), i.value...), nil
	}
	value, err := snappy.Decode(nil, i.value)
	if err != nil {
		return nil, errors.Wrapf(err, "memdb: corrupted value for key %q", i.key)
	}
	return value, nil
}

func lessItem(a, b item) bool {
	return bytes.Compare(a.key, b.key) < 0
}

type store struct {
	mu     sync.RWMutex
	tree   *btree.BTreeG[item]
	locked bool
}

var (
	storesMu sync.Mutex
	stores   = make(map[string]*store)
)

type memEngine struct{}

func (memEngine) Name() string { return Name }

func (memEngine) NewCache(capacity int64) engine.Cache {
	return &blockCache{capacity: capacity}
}

type blockCache struct {
	capacity int64
}

func (c *blockCache) Capacity() int64 { return c.capacity }
func (c *blockCache) Release()        {}

func (memEngine) Open(path string, opts *engine.Options) (engine.Conn, error) {
	storesMu.Lock()
	defer storesMu.Unlock()
	s, ok := stores[path]
	switch {
	case !ok && !opts.CreateIfMissing:
		return nil, errors.Newf("memdb: %s: does not exist (create_if_missing is false)", path)
	case ok && opts.ErrorIfExists:
		return nil, errors.Newf("memdb: %s: exists (error_if_exists is true)", path)
	case ok && s.locked:
		return nil, errors.Newf("memdb: %s: already opened", path)
	case !ok:
		s = &store{tree: btree.NewG(degree, lessItem)}
		stores[path] = s
	}
	s.locked = true
	return &conn{store: s, snappy: opts.Compression == engine.SnappyCompression}, nil
}

type conn struct {
	*store
	snappy bool
	closed bool
}

type snapshot struct {
	tree *btree.BTreeG[item]
}

// view returns the tree a read should use: the snapshot's, or a clone of
// the live tree. Cloning marks the live tree copy-on-write, hence the write
// lock.
func (c *conn) view(opts *engine.ReadOptions) (*btree.BTreeG[item], error) {
	if opts != nil && opts.Snapshot != nil {
		ss, ok := opts.Snapshot.(*snapshot)
		if !ok {
			return nil, errForeignSnapshot
		}
		return ss.tree, nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, errClosed
	}
	return c.tree.Clone(), nil
}

func (c *conn) Get(key []byte, opts *engine.ReadOptions) ([]byte, error) {
	var (
		found item
		ok    bool
	)
	if opts != nil && opts.Snapshot != nil {
		tree, err := c.view(opts)
		if err != nil {
			return nil, err
		}
		found, ok = tree.Get(item{key: key})
	} else {
		c.mu.RLock()
		if c.closed {
			c.mu.RUnlock()
			return nil, errClosed
		}
		found, ok = c.tree.Get(item{key: key})
		c.mu.RUnlock()
	}
	if !ok {
		return nil, engine.ErrNotFound
	}
	return found.decode()
}

func (c *conn) apply(kind batch.Kind, key, value []byte) {
	switch kind {
	case batch.Put:
		i := item{key: append([]byte(nil), key...)}
		if c.snappy {
			i.value, i.compressed = snappy.Encode(nil, value), true
		} else {
			i.value = append([]byte{}, value...)
		}
		c.tree.ReplaceOrInsert(i)
	case batch.Delete:
		c.tree.Delete(item{key: key})
	}
}

func (c *conn) Put(key, value []byte, opts *engine.WriteOptions) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errClosed
	}
	c.apply(batch.Put, key, value)
	return nil
}

func (c *conn) Delete(key []byte, opts *engine.WriteOptions) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errClosed
	}
	c.apply(batch.Delete, key, nil)
	return nil
}

func (c *conn) NewCursor(opts *engine.ReadOptions) (engine.Cursor, error) {
	tree, err := c.view(opts)
	if err != nil {
		return nil, err
	}
	return &cursor{tree: tree}, nil
}

// Write validates the whole batch before touching the tree, so a corrupt
// batch leaves no partial writes behind.
func (c *conn) Write(b *batch.Batch, opts *engine.WriteOptions) error {
	if err := b.Iterate(func(batch.Kind, []byte, []byte) error { return nil }); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errClosed
	}
	return b.Iterate(func(kind batch.Kind, key, value []byte) error {
		c.apply(kind, key, value)
		return nil
	})
}

func (c *conn) GetSnapshot() (engine.Snapshot, error) {
	tree, err := c.view(nil)
	if err != nil {
		return nil, err
	}
	return &snapshot{tree: tree}, nil
}

func (c *conn) ReleaseSnapshot(ss engine.Snapshot) error {
	s, ok := ss.(*snapshot)
	if !ok {
		return errForeignSnapshot
	}
	s.tree = nil
	return nil
}

func (c *conn) Close() error {
	storesMu.Lock()
	defer storesMu.Unlock()
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errClosed
	}
	c.closed = true
	c.locked = false
	return nil
}

type cursor struct {
	tree  *btree.BTreeG[item]
	cur   item
	valid bool
	value []byte
	err   error
}

func (c *cursor) set(i item, ok bool) bool {
	c.cur, c.valid, c.value = i, ok, nil
	if ok {
		c.value, c.err = i.decode()
		if c.err != nil {
			c.cur, c.valid = item{}, false
		}
	}
	return c.valid
}

func (c *cursor) First() bool {
	c.err = nil
	return c.set(c.tree.Min())
}

func (c *cursor) Last() bool {
	c.err = nil
	return c.set(c.tree.Max())
}

func (c *cursor) Seek(key []byte) bool {
	c.err = nil
	var (
		found item
		ok    bool
	)
	c.tree.AscendGreaterOrEqual(item{key: key}, func(i item) bool {
		found, ok = i, true
		return false
	})
	return c.set(found, ok)
}

func (c *cursor) Next() bool {
	if !c.valid {
		return false
	}
	var (
		found item
		ok    bool
	)
	pivot := c.cur
	c.tree.AscendGreaterOrEqual(pivot, func(i item) bool {
		if bytes.Equal(i.key, pivot.key) {
			return true
		}
		found, ok = i, true
		return false
	})
	return c.set(found, ok)
}

func (c *cursor) Prev() bool {
	if !c.valid {
		return false
	}
	var (
		found item
		ok    bool
	)
	pivot := c.cur
	c.tree.DescendLessOrEqual(pivot, func(i item) bool {
		if bytes.Equal(i.key, pivot.key) {
			return true
		}
		found, ok = i, true
		return false
	})
	return c.set(found, ok)
}

func (c *cursor) Valid() bool   { return c.valid }
func (c *cursor) Key() []byte   { return c.cur.key }
func (c *cursor) Value() []byte { return c.value }
func (c *cursor) Err() error    { return c.err }

func (c *cursor) Release() error {
	c.tree, c.cur, c.valid, c.value = nil, item{}, false, nil
	return nil
}
