package levelkv

// Reader provides an unified interface to read database and its snapshot.
type Reader interface {
	Get(key []byte, opts *ReadOptions) (value []byte, found bool, err error)

	Exists(key []byte) (bool, error)

	NewCursor(opts *CursorOptions) (*Cursor, error)

	Each(from, to []byte, fn func(key, value []byte) error) error

	ReverseEach(from, to []byte, fn func(key, value []byte) error) error

	Keys() ([][]byte, error)

	Values() ([][]byte, error)
}

var (
	_ Reader = (*DB)(nil)
	_ Reader = (*Snapshot)(nil)
)

func each(r Reader, opts *CursorOptions, fn func(key, value []byte) error) error {
	c, err := r.NewCursor(opts)
	if err != nil {
		return err
	}
	return c.Each(fn)
}

func keys(r Reader) ([][]byte, error) {
	var keys [][]byte
	err := r.Each(nil, nil, func(key, value []byte) error {
		keys = append(keys, key)
		return nil
	})
	return keys, err
}

func values(r Reader) ([][]byte, error) {
	var values [][]byte
	err := r.Each(nil, nil, func(key, value []byte) error {
		values = append(values, value)
		return nil
	})
	return values, err
}
