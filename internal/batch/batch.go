package batch

import (
	"encoding/binary"
	"math"

	"github.com/kezhuw/levelkv/internal/errors"
)

// Kind tags one record of a batch.
type Kind byte

const (
	Delete Kind = 0
	Put    Kind = 1
)

const batchHeaderSize = 4

// Batch is an ordered list of put and delete records, encoded as a 4-byte
// little endian record count followed by the records:
//
//	kind | uvarint(len(key)) | key [| uvarint(len(value)) | value]
type Batch struct {
	data []byte
}

func (b *Batch) Put(key, value []byte) {
	scratch, ok := b.grow(1 + 2*binary.MaxVarintLen64 + len(key) + len(value))
	if !ok {
		return
	}
	b.data = append(b.data, byte(Put))
	b.appendBytes(scratch, key)
	b.appendBytes(scratch, value)
}

func (b *Batch) Delete(key []byte) {
	scratch, ok := b.grow(1 + binary.MaxVarintLen64 + len(key))
	if !ok {
		return
	}
	b.data = append(b.data, byte(Delete))
	b.appendBytes(scratch, key)
}

func (b *Batch) Clear() {
	b.data = b.data[:0]
}

func (b *Batch) appendBytes(scratch []byte, bytes []byte) {
	n := binary.PutUvarint(scratch, uint64(len(bytes)))
	b.data = append(b.data, scratch[:n]...)
	b.data = append(b.data, bytes...)
}

func (b *Batch) grow(n int) (scratch []byte, ok bool) {
	n += binary.MaxVarintLen64
	l, z := len(b.data), cap(b.data)
	if l+n > z {
		z += z/2 + n
		buf := make([]byte, l, z)
		copy(buf, b.data)
		b.data = buf
	}
	scratch = b.data[:z][z-binary.MaxVarintLen64:]
	if l == 0 {
		b.data = b.data[:batchHeaderSize]
		binary.LittleEndian.PutUint32(b.data, 1)
		return scratch, true
	}
	count := binary.LittleEndian.Uint32(b.data)
	if count == math.MaxUint32 {
		return nil, false
	}
	binary.LittleEndian.PutUint32(b.data, count+1)
	return scratch, true
}

func (b *Batch) Empty() bool {
	return len(b.data) <= batchHeaderSize
}

func (b *Batch) Count() uint32 {
	if b.Empty() {
		return 0
	}
	return binary.LittleEndian.Uint32(b.data)
}

func (b *Batch) Err() error {
	if b.Count() == math.MaxUint32 {
		return errors.ErrBatchTooLarge
	}
	return nil
}

// Size returns the encoded size in bytes.
func (b *Batch) Size() int {
	return len(b.data)
}

// Iterate replays records in insertion order. It stops at the first error
// returned by fn.
func (b *Batch) Iterate(fn func(kind Kind, key, value []byte) error) error {
	if b.Empty() {
		return nil
	}
	found := uint32(0)
	for buf := b.data[batchHeaderSize:]; len(buf) != 0; found++ {
		var key, value []byte
		var ok bool
		kind := Kind(buf[0])
		if key, buf, ok = getLengthPrefixedBytes(buf[1:]); !ok {
			return errors.ErrCorruptBatch
		}
		switch kind {
		case Put:
			if value, buf, ok = getLengthPrefixedBytes(buf); !ok {
				return errors.ErrCorruptBatch
			}
		case Delete:
		default:
			return errors.ErrCorruptBatch
		}
		if err := fn(kind, key, value); err != nil {
			return err
		}
	}
	if found != b.Count() {
		return errors.ErrCorruptBatch
	}
	return nil
}

func getLengthPrefixedBytes(buf []byte) (bytes, remains []byte, ok bool) {
	l, n := binary.Uvarint(buf)
	if n <= 0 || uint64(len(buf)-n) < l {
		return nil, nil, false
	}
	buf = buf[n:]
	return buf[:l:l], buf[l:], true
}
