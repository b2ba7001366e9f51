// Package engine defines the narrow interface through which levelkv talks
// to an ordered key-value storage engine, and a registry of engines by name.
package engine

import (
	"sort"
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/kezhuw/levelkv/internal/batch"
	"github.com/kezhuw/levelkv/internal/logger"
)

// ErrNotFound is returned by Conn.Get when the key is absent. Adapters map
// their engine's own not-found status onto it.
var ErrNotFound = errors.New("levelkv: engine: key not found")

type Compression int

const (
	NoCompression Compression = iota
	SnappyCompression
)

// Options are fully resolved open options. Adapters map the fields they
// understand and ignore the rest.
type Options struct {
	CreateIfMissing      bool
	ErrorIfExists        bool
	ParanoidChecks       bool
	WriteBufferSize      int
	MaxOpenFiles         int
	BlockSize            int
	BlockRestartInterval int
	Compression          Compression
	BlockCache           Cache
	Logger               logger.Logger
}

type ReadOptions struct {
	DontFillCache   bool
	VerifyChecksums bool

	// Snapshot pins the read to a snapshot obtained from the same Conn.
	// Nil reads the current state.
	Snapshot Snapshot
}

type WriteOptions struct {
	Sync bool
}

// Engine opens connections to one kind of storage.
type Engine interface {
	Name() string

	Open(path string, opts *Options) (Conn, error)

	// NewCache allocates a block cache of the given capacity in bytes. The
	// caller owns the cache and must Release it once, after every Conn
	// opened with it is closed.
	NewCache(capacity int64) Cache
}

// Conn is an open engine connection. Methods may be called concurrently
// except Close.
type Conn interface {
	Get(key []byte, opts *ReadOptions) ([]byte, error)
	Put(key, value []byte, opts *WriteOptions) error
	Delete(key []byte, opts *WriteOptions) error

	// NewCursor returns an unpositioned cursor over the whole keyspace.
	NewCursor(opts *ReadOptions) (Cursor, error)

	// Write applies all records of b atomically.
	Write(b *batch.Batch, opts *WriteOptions) error

	GetSnapshot() (Snapshot, error)
	ReleaseSnapshot(ss Snapshot) error

	Close() error
}

// Cursor is a raw movable position over the sorted keyspace. Key and Value
// are only meaningful while Valid, and may be overwritten by the next move.
type Cursor interface {
	First() bool
	Last() bool
	Seek(key []byte) bool
	Next() bool
	Prev() bool
	Valid() bool
	Key() []byte
	Value() []byte
	Err() error
	Release() error
}

// Snapshot is an opaque engine snapshot reference.
type Snapshot interface{}

// Cache is a block cache owned by whoever allocated it.
type Cache interface {
	Capacity() int64
	Release()
}

var (
	mu      sync.RWMutex
	engines = make(map[string]Engine)
)

// Register makes an engine available by name. It panics if the name is
// registered twice.
func Register(e Engine) {
	mu.Lock()
	defer mu.Unlock()
	name := e.Name()
	if _, dup := engines[name]; dup {
		panic("levelkv: engine registered twice: " + name)
	}
	engines[name] = e
}

func Lookup(name string) (Engine, bool) {
	mu.RLock()
	defer mu.RUnlock()
	e, ok := engines[name]
	return e, ok
}

// Names returns the sorted names of registered engines.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(engines))
	for name := range engines {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
