// Package options reads typed option values out of generic mappings, as
// produced by configuration files or host bindings.
package options

import (
	"math"
	"reflect"
	"sort"
	"strings"

	"github.com/kezhuw/levelkv/internal/engine"
	"github.com/kezhuw/levelkv/internal/errors"
)

// Option names accepted in mappings.
const (
	CreateIfMissing      = "create_if_missing"
	ErrorIfExists        = "error_if_exists"
	ParanoidChecks       = "paranoid_checks"
	WriteBufferSize      = "write_buffer_size"
	MaxOpenFiles         = "max_open_files"
	BlockSize            = "block_size"
	BlockRestartInterval = "block_restart_interval"
	Compression          = "compression"
	BlockCacheSize       = "block_cache_size"
	Engine               = "engine"

	FillCache       = "fill_cache"
	VerifyChecksums = "verify_checksums"
	Snapshot        = "snapshot"

	Sync = "sync"

	From     = "from"
	To       = "to"
	Reversed = "reversed"
)

const (
	DefaultBlockSize            = 4096
	DefaultBlockRestartInterval = 16
	DefaultWriteBufferSize      = 4 * 1024 * 1024
	DefaultCompression          = engine.SnappyCompression
	DefaultMaxOpenFiles         = 1000
	DefaultFillCache            = true
	DefaultEngine               = "leveldb"
)

// Set is an immutable set of option names accepted by one parse operation.
type Set struct {
	op    string
	names map[string]struct{}
}

func newSet(op string, names ...string) Set {
	m := make(map[string]struct{}, len(names))
	for _, name := range names {
		m[name] = struct{}{}
	}
	return Set{op: op, names: m}
}

var (
	OpenSet   = newSet("open", CreateIfMissing, ErrorIfExists, ParanoidChecks, WriteBufferSize, MaxOpenFiles, BlockSize, BlockRestartInterval, Compression, BlockCacheSize, Engine)
	ReadSet   = newSet("read", FillCache, VerifyChecksums, Snapshot)
	WriteSet  = newSet("write", Sync)
	CursorSet = newSet("cursor", From, To, Reversed, FillCache, VerifyChecksums, Snapshot)
)

func (s Set) Contains(name string) bool {
	_, ok := s.names[name]
	return ok
}

// Names returns the sorted option names of s.
func (s Set) Names() []string {
	names := make([]string, 0, len(s.names))
	for name := range s.names {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Check rejects names in raw that s does not contain.
func (s Set) Check(raw map[string]interface{}) error {
	var unknown []string
	for name := range raw {
		if !s.Contains(name) {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	sort.Strings(unknown)
	return errors.NewValidation(s.op, "unknown option %s", strings.Join(unknown, ", "))
}

// Bool returns raw[name], or def if absent. Only bool values are accepted.
func Bool(raw map[string]interface{}, name string, def bool) (bool, error) {
	v, ok := raw[name]
	if !ok {
		return def, nil
	}
	b, ok := v.(bool)
	if !ok {
		return false, errors.NewTypeMismatch(name, v)
	}
	return b, nil
}

// Int returns raw[name], or def if absent. Values of any Go integer kind are
// accepted; they must be positive and fit in an int.
func Int(raw map[string]interface{}, name string, def int) (int, error) {
	v, ok := raw[name]
	if !ok {
		return def, nil
	}
	var n int64
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n = rv.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return 0, errors.NewValidation("open", "%s out of range: %d", name, u)
		}
		n = int64(u)
	default:
		return 0, errors.NewTypeMismatch(name, v)
	}
	if n <= 0 || n > math.MaxInt {
		return 0, errors.NewValidation("open", "%s out of range: %d", name, n)
	}
	return int(n), nil
}

// Enum returns the value values maps raw[name] to. A present value outside
// the closed set is a type mismatch.
func Enum[T any](raw map[string]interface{}, name string, values map[interface{}]T) (result T, present bool, err error) {
	v, ok := raw[name]
	if !ok {
		return result, false, nil
	}
	if !reflect.ValueOf(v).Comparable() {
		return result, false, errors.NewTypeMismatch(name, v)
	}
	result, ok = values[v]
	if !ok {
		return result, false, errors.NewTypeMismatch(name, v)
	}
	return result, true, nil
}

// Bytes returns raw[name] as bytes. Strings and byte slices are accepted;
// an absent or nil value yields nil.
func Bytes(raw map[string]interface{}, name string) ([]byte, error) {
	switch v := raw[name].(type) {
	case nil:
		return nil, nil
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, errors.NewTypeMismatch(name, v)
	}
}

// String returns raw[name], or def if absent.
func String(raw map[string]interface{}, name string, def string) (string, error) {
	v, ok := raw[name]
	if !ok {
		return def, nil
	}
	s, ok := v.(string)
	if !ok {
		return "", errors.NewTypeMismatch(name, v)
	}
	return s, nil
}
