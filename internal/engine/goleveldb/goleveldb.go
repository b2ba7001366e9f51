// Package goleveldb adapts github.com/syndtr/goleveldb to the engine
// interface. It is registered as "leveldb" and is the default engine.
package goleveldb

import (
	"github.com/cockroachdb/errors"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/iterator"
	"github.com/syndtr/goleveldb/leveldb/opt"

	"github.com/kezhuw/levelkv/internal/batch"
	"github.com/kezhuw/levelkv/internal/engine"
)

const Name = "leveldb"

var errForeignSnapshot = errors.New("goleveldb: snapshot not created by this engine")

func init() {
	engine.Register(levelDBEngine{})
}

type levelDBEngine struct{}

func (levelDBEngine) Name() string { return Name }

// NewCache records the block cache capacity. goleveldb owns the cache it
// allocates from BlockCacheCapacity and frees it on close, so Release has
// nothing to free.
func (levelDBEngine) NewCache(capacity int64) engine.Cache {
	return blockCache(capacity)
}

type blockCache int64

func (c blockCache) Capacity() int64 { return int64(c) }
func (blockCache) Release()          {}

func compression(c engine.Compression) opt.Compression {
	if c == engine.NoCompression {
		return opt.NoCompression
	}
	return opt.SnappyCompression
}

func convertOptions(opts *engine.Options) *opt.Options {
	o := &opt.Options{
		ErrorIfMissing:         !opts.CreateIfMissing,
		ErrorIfExist:           opts.ErrorIfExists,
		WriteBuffer:            opts.WriteBufferSize,
		OpenFilesCacheCapacity: opts.MaxOpenFiles,
		BlockSize:              opts.BlockSize,
		BlockRestartInterval:   opts.BlockRestartInterval,
		Compression:            compression(opts.Compression),
	}
	if opts.ParanoidChecks {
		o.Strict = opt.StrictAll
	}
	if opts.BlockCache != nil {
		o.BlockCacheCapacity = int(opts.BlockCache.Capacity())
	}
	return o
}

func (levelDBEngine) Open(path string, opts *engine.Options) (engine.Conn, error) {
	db, err := leveldb.OpenFile(path, convertOptions(opts))
	if err != nil {
		return nil, err
	}
	return &conn{db: db}, nil
}

type conn struct {
	db *leveldb.DB
}

func convertReadOptions(opts *engine.ReadOptions) *opt.ReadOptions {
	if opts == nil {
		return nil
	}
	ro := &opt.ReadOptions{DontFillCache: opts.DontFillCache}
	if opts.VerifyChecksums {
		ro.Strict = opt.StrictBlockChecksum
	}
	return ro
}

func convertWriteOptions(opts *engine.WriteOptions) *opt.WriteOptions {
	if opts == nil {
		return nil
	}
	return &opt.WriteOptions{Sync: opts.Sync}
}

func snapshotOf(opts *engine.ReadOptions) (*leveldb.Snapshot, error) {
	if opts == nil || opts.Snapshot == nil {
		return nil, nil
	}
	ss, ok := opts.Snapshot.(*leveldb.Snapshot)
	if !ok {
		return nil, errForeignSnapshot
	}
	return ss, nil
}

func (c *conn) Get(key []byte, opts *engine.ReadOptions) (value []byte, err error) {
	ss, err := snapshotOf(opts)
	if err != nil {
		return nil, err
	}
	if ss != nil {
		value, err = ss.Get(key, convertReadOptions(opts))
	} else {
		value, err = c.db.Get(key, convertReadOptions(opts))
	}
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, engine.ErrNotFound
	}
	return value, err
}

func (c *conn) Put(key, value []byte, opts *engine.WriteOptions) error {
	return c.db.Put(key, value, convertWriteOptions(opts))
}

func (c *conn) Delete(key []byte, opts *engine.WriteOptions) error {
	return c.db.Delete(key, convertWriteOptions(opts))
}

func (c *conn) NewCursor(opts *engine.ReadOptions) (engine.Cursor, error) {
	ss, err := snapshotOf(opts)
	if err != nil {
		return nil, err
	}
	if ss != nil {
		return cursor{ss.NewIterator(nil, convertReadOptions(opts))}, nil
	}
	return cursor{c.db.NewIterator(nil, convertReadOptions(opts))}, nil
}

func (c *conn) Write(b *batch.Batch, opts *engine.WriteOptions) error {
	lb := new(leveldb.Batch)
	err := b.Iterate(func(kind batch.Kind, key, value []byte) error {
		switch kind {
		case batch.Put:
			lb.Put(key, value)
		case batch.Delete:
			lb.Delete(key)
		}
		return nil
	})
	if err != nil {
		return err
	}
	return c.db.Write(lb, convertWriteOptions(opts))
}

func (c *conn) GetSnapshot() (engine.Snapshot, error) {
	ss, err := c.db.GetSnapshot()
	if err != nil {
		return nil, err
	}
	return ss, nil
}

func (c *conn) ReleaseSnapshot(ss engine.Snapshot) error {
	s, ok := ss.(*leveldb.Snapshot)
	if !ok {
		return errForeignSnapshot
	}
	s.Release()
	return nil
}

func (c *conn) Close() error {
	return c.db.Close()
}

type cursor struct {
	iterator.Iterator
}

func (c cursor) Err() error {
	return c.Iterator.Error()
}

func (c cursor) Release() error {
	err := c.Iterator.Error()
	c.Iterator.Release()
	return err
}
