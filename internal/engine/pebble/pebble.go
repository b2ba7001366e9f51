// Package pebble adapts github.com/cockroachdb/pebble to the engine
// interface. It is registered as "pebble".
//
// Pebble has no per-read cache bypass, checksum verification switch or
// paranoid open mode; those options are accepted and ignored.
package pebble

import (
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/pebble"

	"github.com/kezhuw/levelkv/internal/batch"
	"github.com/kezhuw/levelkv/internal/engine"
	"github.com/kezhuw/levelkv/internal/logger"
)

const Name = "pebble"

var errForeignSnapshot = errors.New("pebble: snapshot not created by this engine")

func init() {
	engine.Register(pebbleEngine{})
}

type pebbleEngine struct{}

func (pebbleEngine) Name() string { return Name }

func (pebbleEngine) NewCache(capacity int64) engine.Cache {
	return &blockCache{cache: pebble.NewCache(capacity)}
}

// blockCache holds one reference to a pebble cache. An open DB takes its
// own reference, so releasing ours after the DB closes frees the memory.
type blockCache struct {
	once  sync.Once
	cache *pebble.Cache
}

func (c *blockCache) Capacity() int64 {
	return c.cache.MaxSize()
}

func (c *blockCache) Release() {
	c.once.Do(c.cache.Unref)
}

type pebbleLogger struct {
	logger.Logger
}

func (l pebbleLogger) Fatalf(format string, args ...interface{}) {
	l.Logger.Errorf(format, args...)
	panic(errors.Newf(format, args...))
}

func compression(c engine.Compression) pebble.Compression {
	if c == engine.NoCompression {
		return pebble.NoCompression
	}
	return pebble.SnappyCompression
}

func convertOptions(opts *engine.Options) *pebble.Options {
	o := &pebble.Options{
		ErrorIfExists:    opts.ErrorIfExists,
		ErrorIfNotExists: !opts.CreateIfMissing,
		MemTableSize:     uint64(opts.WriteBufferSize),
		MaxOpenFiles:     opts.MaxOpenFiles,
		Levels: []pebble.LevelOptions{{
			BlockSize:            opts.BlockSize,
			BlockRestartInterval: opts.BlockRestartInterval,
			Compression:          compression(opts.Compression),
		}},
		Logger: pebbleLogger{logger.With(opts.Logger)},
	}
	if c, ok := opts.BlockCache.(*blockCache); ok {
		o.Cache = c.cache
	}
	return o
}

func (pebbleEngine) Open(path string, opts *engine.Options) (engine.Conn, error) {
	db, err := pebble.Open(path, convertOptions(opts))
	if err != nil {
		return nil, err
	}
	return &conn{db: db, snapshots: make(map[*pebble.Snapshot]struct{})}, nil
}

type conn struct {
	db *pebble.DB

	mu        sync.Mutex
	snapshots map[*pebble.Snapshot]struct{}
}

func writeOptions(opts *engine.WriteOptions) *pebble.WriteOptions {
	if opts != nil && opts.Sync {
		return pebble.Sync
	}
	return pebble.NoSync
}

func snapshotOf(opts *engine.ReadOptions) (*pebble.Snapshot, error) {
	if opts == nil || opts.Snapshot == nil {
		return nil, nil
	}
	ss, ok := opts.Snapshot.(*pebble.Snapshot)
	if !ok {
		return nil, errForeignSnapshot
	}
	return ss, nil
}

func (c *conn) Get(key []byte, opts *engine.ReadOptions) ([]byte, error) {
	ss, err := snapshotOf(opts)
	if err != nil {
		return nil, err
	}
	var reader pebble.Reader = c.db
	if ss != nil {
		reader = ss
	}
	value, closer, err := reader.Get(key)
	switch {
	case errors.Is(err, pebble.ErrNotFound):
		return nil, engine.ErrNotFound
	case err != nil:
		return nil, err
	}
	defer closer.Close()
	result := make([]byte, len(value))
	copy(result, value)
	return result, nil
}

func (c *conn) Put(key, value []byte, opts *engine.WriteOptions) error {
	return c.db.Set(key, value, writeOptions(opts))
}

func (c *conn) Delete(key []byte, opts *engine.WriteOptions) error {
	return c.db.Delete(key, writeOptions(opts))
}

func (c *conn) NewCursor(opts *engine.ReadOptions) (engine.Cursor, error) {
	ss, err := snapshotOf(opts)
	if err != nil {
		return nil, err
	}
	var it *pebble.Iterator
	if ss != nil {
		it, err = ss.NewIter(nil)
	} else {
		it, err = c.db.NewIter(nil)
	}
	if err != nil {
		return nil, err
	}
	return &cursor{it: it}, nil
}

func (c *conn) Write(b *batch.Batch, opts *engine.WriteOptions) error {
	pb := c.db.NewBatch()
	defer pb.Close()
	err := b.Iterate(func(kind batch.Kind, key, value []byte) error {
		if kind == batch.Delete {
			return pb.Delete(key, nil)
		}
		return pb.Set(key, value, nil)
	})
	if err != nil {
		return err
	}
	return pb.Commit(writeOptions(opts))
}

func (c *conn) GetSnapshot() (engine.Snapshot, error) {
	ss := c.db.NewSnapshot()
	c.mu.Lock()
	c.snapshots[ss] = struct{}{}
	c.mu.Unlock()
	return ss, nil
}

func (c *conn) ReleaseSnapshot(snapshot engine.Snapshot) error {
	ss, ok := snapshot.(*pebble.Snapshot)
	if !ok {
		return errForeignSnapshot
	}
	c.mu.Lock()
	_, live := c.snapshots[ss]
	delete(c.snapshots, ss)
	c.mu.Unlock()
	if !live {
		return nil
	}
	return ss.Close()
}

// Close closes outstanding snapshots before the DB, which pebble requires.
func (c *conn) Close() error {
	c.mu.Lock()
	snapshots := c.snapshots
	c.snapshots = make(map[*pebble.Snapshot]struct{})
	c.mu.Unlock()
	var err error
	for ss := range snapshots {
		err = errors.CombineErrors(err, ss.Close())
	}
	return errors.CombineErrors(err, c.db.Close())
}

type cursor struct {
	it *pebble.Iterator
}

func (c *cursor) First() bool          { return c.it.First() }
func (c *cursor) Last() bool           { return c.it.Last() }
func (c *cursor) Seek(key []byte) bool { return c.it.SeekGE(key) }
func (c *cursor) Next() bool           { return c.it.Next() }
func (c *cursor) Prev() bool           { return c.it.Prev() }
func (c *cursor) Valid() bool          { return c.it.Valid() }
func (c *cursor) Key() []byte          { return c.it.Key() }
func (c *cursor) Value() []byte        { return c.it.Value() }
func (c *cursor) Err() error           { return c.it.Error() }
func (c *cursor) Release() error       { return c.it.Close() }
