package levelkv

import (
	"github.com/kezhuw/levelkv/internal/engine"
	"github.com/kezhuw/levelkv/internal/errors"
	"github.com/kezhuw/levelkv/internal/logger"
	"github.com/kezhuw/levelkv/internal/options"
)

// CompressionType defines compression methods to compress a table block.
type CompressionType int

const (
	DefaultCompression CompressionType = iota // Points to SnappyCompression
	NoCompression
	SnappyCompression
)

func (c CompressionType) String() string {
	if c == NoCompression {
		return "none"
	}
	return "snappy"
}

// Names of the storage engines linked into this package.
const (
	EngineLevelDB = "leveldb"
	EnginePebble  = "pebble"
	EngineMemory  = "memory"
)

// Engines returns the names of all registered storage engines.
func Engines() []string {
	return engine.Names()
}

// Options contains options controlling various parts of the db instance.
type Options struct {
	// Engine names the storage engine backing the database.
	//
	// The default value is EngineLevelDB.
	Engine string

	// Compression type used to compress blocks.
	//
	// The default value points to SnappyCompression.
	Compression CompressionType

	// BlockSize specifys the minimum uncompressed size in bytes for a table block.
	//
	// The default value is 4KiB.
	BlockSize int

	// BlockRestartInterval specifys the number of keys between restart points
	// for delta encoding of keys in a block.
	//
	// The default value is 16.
	BlockRestartInterval int

	// WriteBufferSize is the amount of data to build up in memory before
	// converting to a sorted on-disk file.
	//
	// The default value is 4MiB.
	WriteBufferSize int

	// MaxOpenFiles is the number of open files that can be used this db instance.
	//
	// The default value is 1000.
	MaxOpenFiles int

	// BlockCacheSize specifys the capacity in bytes of a block cache owned by
	// the db instance and released when it is closed.
	//
	// The default value is 0, which leaves cache sizing to the engine.
	BlockCacheSize int64

	// Logger receives progress and error information of this db instance.
	//
	// The default value is DiscardLogger.
	Logger Logger

	// CreateIfMissing specifys whether to create one if the database does not exist.
	//
	// The default value is false.
	CreateIfMissing bool

	// ErrorIfExists specifys whether to report a error if the database already exists.
	//
	// The default value is false.
	ErrorIfExists bool

	// ParanoidChecks makes the engine check aggressively for corruption.
	//
	// The default value is false.
	ParanoidChecks bool
}

func (opts *Options) getEngine() string {
	if opts.Engine == "" {
		return options.DefaultEngine
	}
	return opts.Engine
}

func (opts *Options) getCompression() CompressionType {
	if opts.Compression == NoCompression {
		return NoCompression
	}
	return SnappyCompression
}

func (opts *Options) getBlockSize() int {
	if opts.BlockSize <= 0 {
		return options.DefaultBlockSize
	}
	return opts.BlockSize
}

func (opts *Options) getBlockRestartInterval() int {
	if opts.BlockRestartInterval <= 0 {
		return options.DefaultBlockRestartInterval
	}
	return opts.BlockRestartInterval
}

func (opts *Options) getWriteBufferSize() int {
	if opts.WriteBufferSize <= 0 {
		return options.DefaultWriteBufferSize
	}
	return opts.WriteBufferSize
}

func (opts *Options) getMaxOpenFiles() int {
	if opts.MaxOpenFiles <= 0 {
		return options.DefaultMaxOpenFiles
	}
	return opts.MaxOpenFiles
}

func (opts *Options) getBlockCacheSize() int64 {
	if opts.BlockCacheSize < 0 {
		return 0
	}
	return opts.BlockCacheSize
}

func (opts *Options) getLogger() Logger {
	return logger.With(opts.Logger)
}

// resolve returns a copy of opts with every default filled in.
func (opts *Options) resolve() Options {
	if opts == nil {
		opts = &Options{}
	}
	return Options{
		Engine:               opts.getEngine(),
		Compression:          opts.getCompression(),
		BlockSize:            opts.getBlockSize(),
		BlockRestartInterval: opts.getBlockRestartInterval(),
		WriteBufferSize:      opts.getWriteBufferSize(),
		MaxOpenFiles:         opts.getMaxOpenFiles(),
		BlockCacheSize:       opts.getBlockCacheSize(),
		Logger:               opts.getLogger(),
		CreateIfMissing:      opts.CreateIfMissing,
		ErrorIfExists:        opts.ErrorIfExists,
		ParanoidChecks:       opts.ParanoidChecks,
	}
}

// convertOptions maps resolved options to engine options.
func convertOptions(opts *Options) *engine.Options {
	compression := engine.SnappyCompression
	if opts.Compression == NoCompression {
		compression = engine.NoCompression
	}
	return &engine.Options{
		CreateIfMissing:      opts.CreateIfMissing,
		ErrorIfExists:        opts.ErrorIfExists,
		ParanoidChecks:       opts.ParanoidChecks,
		WriteBufferSize:      opts.WriteBufferSize,
		MaxOpenFiles:         opts.MaxOpenFiles,
		BlockSize:            opts.BlockSize,
		BlockRestartInterval: opts.BlockRestartInterval,
		Compression:          compression,
		Logger:               opts.Logger,
	}
}

var compressionValues = map[interface{}]CompressionType{
	NoCompression:     NoCompression,
	SnappyCompression: SnappyCompression,
	"none":            NoCompression,
	"snappy":          SnappyCompression,
}

// ParseOptions translates a generic mapping, keyed by option names such as
// "create_if_missing" or "block_size", into Options. Absent options take
// their defaults. Unknown names fail with *ValidationError; values of the
// wrong type fail with *TypeMismatchError.
func ParseOptions(raw map[string]interface{}) (*Options, error) {
	if err := options.OpenSet.Check(raw); err != nil {
		return nil, err
	}
	var opts Options
	var err error
	if opts.CreateIfMissing, err = options.Bool(raw, options.CreateIfMissing, false); err != nil {
		return nil, err
	}
	if opts.ErrorIfExists, err = options.Bool(raw, options.ErrorIfExists, false); err != nil {
		return nil, err
	}
	if opts.ParanoidChecks, err = options.Bool(raw, options.ParanoidChecks, false); err != nil {
		return nil, err
	}
	if opts.WriteBufferSize, err = options.Int(raw, options.WriteBufferSize, options.DefaultWriteBufferSize); err != nil {
		return nil, err
	}
	if opts.MaxOpenFiles, err = options.Int(raw, options.MaxOpenFiles, options.DefaultMaxOpenFiles); err != nil {
		return nil, err
	}
	if opts.BlockSize, err = options.Int(raw, options.BlockSize, options.DefaultBlockSize); err != nil {
		return nil, err
	}
	if opts.BlockRestartInterval, err = options.Int(raw, options.BlockRestartInterval, options.DefaultBlockRestartInterval); err != nil {
		return nil, err
	}
	compression, ok, err := options.Enum(raw, options.Compression, compressionValues)
	switch {
	case err != nil:
		return nil, err
	case ok:
		opts.Compression = compression
	default:
		opts.Compression = SnappyCompression
	}
	if _, ok := raw[options.BlockCacheSize]; ok {
		size, err := options.Int(raw, options.BlockCacheSize, 0)
		if err != nil {
			return nil, err
		}
		opts.BlockCacheSize = int64(size)
	}
	if opts.Engine, err = options.String(raw, options.Engine, options.DefaultEngine); err != nil {
		return nil, err
	}
	if _, ok := engine.Lookup(opts.Engine); !ok {
		return nil, errors.NewValidation("open", "unknown engine %q", opts.Engine)
	}
	return &opts, nil
}

// ReadOptions contains options controlling behaviours of read operations.
type ReadOptions struct {
	// DontFillCache specifys whether data read in this operation
	// should be cached in memory. If true, data read from underlying
	// storage will not be cahced in memory for later reading, but
	// if the data is already cached in memory, it will be used by
	// this operation.
	DontFillCache bool

	// VerifyChecksums specifys whether data read from underlying
	// storage should be verified against saved checksums.
	VerifyChecksums bool

	// Snapshot pins the read to a snapshot of the same db. A released
	// snapshot reads the current state.
	Snapshot *Snapshot
}

func snapshotOption(raw map[string]interface{}) (*Snapshot, error) {
	switch v := raw[options.Snapshot].(type) {
	case nil:
		return nil, nil
	case *Snapshot:
		return v, nil
	default:
		return nil, errors.NewTypeMismatch(options.Snapshot, v)
	}
}

// ParseReadOptions translates a mapping with "fill_cache",
// "verify_checksums" and "snapshot" into ReadOptions.
func ParseReadOptions(raw map[string]interface{}) (*ReadOptions, error) {
	if err := options.ReadSet.Check(raw); err != nil {
		return nil, err
	}
	fillCache, err := options.Bool(raw, options.FillCache, options.DefaultFillCache)
	if err != nil {
		return nil, err
	}
	verify, err := options.Bool(raw, options.VerifyChecksums, false)
	if err != nil {
		return nil, err
	}
	ss, err := snapshotOption(raw)
	if err != nil {
		return nil, err
	}
	return &ReadOptions{DontFillCache: !fillCache, VerifyChecksums: verify, Snapshot: ss}, nil
}

// WriteOptions contains options controlling write operations: Put, Delete,
// and Write.
type WriteOptions struct {
	// Sync specifys whether to synchronize the write from OS cache to
	// underlying storage before the write is considered complete.
	// Setting Sync to true may result in slower writes.
	//
	// If Sync is false, and the machine crashs, some recent writes may
	// be lost. Note that if it is just the process crashs, no writes will
	// be lost.
	Sync bool
}

// ParseWriteOptions translates a mapping with "sync" into WriteOptions.
func ParseWriteOptions(raw map[string]interface{}) (*WriteOptions, error) {
	if err := options.WriteSet.Check(raw); err != nil {
		return nil, err
	}
	sync, err := options.Bool(raw, options.Sync, false)
	if err != nil {
		return nil, err
	}
	return &WriteOptions{Sync: sync}, nil
}

func convertWriteOptions(opts *WriteOptions) *engine.WriteOptions {
	if opts == nil {
		return &engine.WriteOptions{}
	}
	return &engine.WriteOptions{Sync: opts.Sync}
}
