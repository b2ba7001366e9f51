package levelkv

import (
	"github.com/kezhuw/levelkv/internal/batch"
	"github.com/kezhuw/levelkv/internal/errors"
)

// WriteBatch holds a collection of updates to apply atomatically to a DB.
// It can be written only once.
type WriteBatch struct {
	batch     batch.Batch
	committed bool
}

// NewWriteBatch returns an empty batch.
func NewWriteBatch() *WriteBatch {
	return &WriteBatch{}
}

// Put adds a key/value update to batch.
func (b *WriteBatch) Put(key, value []byte) {
	b.batch.Put(key, value)
}

// Delete adds a key deletion to batch.
func (b *WriteBatch) Delete(key []byte) {
	b.batch.Delete(key)
}

// Len returns the number of updates in batch.
func (b *WriteBatch) Len() int {
	return int(b.batch.Count())
}

// Clear clears all updates written before.
func (b *WriteBatch) Clear() {
	b.batch.Clear()
}

// Committed reports whether batch has been written to a db.
func (b *WriteBatch) Committed() bool {
	return b.committed
}

// Commit writes batch to db. It is the same as db.Write(b, opts).
func (b *WriteBatch) Commit(db *DB, opts *WriteOptions) error {
	if db == nil {
		return errors.NewValidation("write", "nil db")
	}
	return db.Write(b, opts)
}
