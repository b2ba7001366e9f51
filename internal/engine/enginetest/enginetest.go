// Package enginetest holds a conformance suite every engine adapter runs
// from its own tests.
package enginetest

import (
	"path/filepath"

	"github.com/stretchr/testify/suite"

	"github.com/kezhuw/levelkv/internal/batch"
	"github.com/kezhuw/levelkv/internal/engine"
)

type Suite struct {
	suite.Suite

	Engine engine.Engine

	// TempDir returns a fresh directory for each test.
	TempDir func() string

	path string
	conn engine.Conn
}

var _ suite.SetupTestSuite = (*Suite)(nil)
var _ suite.TearDownTestSuite = (*Suite)(nil)

func (s *Suite) open(path string, opts *engine.Options) (engine.Conn, error) {
	return s.Engine.Open(path, opts)
}

func (s *Suite) SetupTest() {
	s.path = filepath.Join(s.TempDir(), "db")
	conn, err := s.open(s.path, &engine.Options{
		CreateIfMissing:      true,
		WriteBufferSize:      4 << 20,
		MaxOpenFiles:         100,
		BlockSize:            4096,
		BlockRestartInterval: 16,
		Compression:          engine.SnappyCompression,
	})
	s.Require().NoError(err)
	s.conn = conn
}

func (s *Suite) TearDownTest() {
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
}

func (s *Suite) put(key, value string) {
	s.Require().NoError(s.conn.Put([]byte(key), []byte(value), nil))
}

func (s *Suite) get(key string, opts *engine.ReadOptions) (string, error) {
	value, err := s.conn.Get([]byte(key), opts)
	return string(value), err
}

func (s *Suite) TestGetMissing() {
	_, err := s.get("missing", nil)
	s.Require().ErrorIs(err, engine.ErrNotFound)
}

func (s *Suite) TestPutGetDelete() {
	require := s.Require()
	s.put("a", "1")
	s.put("b", "")
	value, err := s.get("a", &engine.ReadOptions{DontFillCache: true})
	require.NoError(err)
	require.Equal("1", value)
	value, err = s.get("b", nil)
	require.NoError(err)
	require.Equal("", value)

	require.NoError(s.conn.Delete([]byte("a"), &engine.WriteOptions{Sync: true}))
	_, err = s.get("a", nil)
	require.ErrorIs(err, engine.ErrNotFound)
	require.NoError(s.conn.Delete([]byte("never"), nil))
}

func (s *Suite) TestGetCopiesValue() {
	require := s.Require()
	s.put("k", "value")
	value, err := s.conn.Get([]byte("k"), nil)
	require.NoError(err)
	value[0] = 'X'
	again, err := s.get("k", nil)
	require.NoError(err)
	require.Equal("value", again)
}

func (s *Suite) TestWriteBatch() {
	require := s.Require()
	s.put("gone", "x")
	var b batch.Batch
	b.Put([]byte("a"), []byte("1"))
	b.Put([]byte("b"), []byte("2"))
	b.Delete([]byte("gone"))
	b.Put([]byte("a"), []byte("3"))
	require.NoError(s.conn.Write(&b, nil))

	value, err := s.get("a", nil)
	require.NoError(err)
	require.Equal("3", value)
	value, err = s.get("b", nil)
	require.NoError(err)
	require.Equal("2", value)
	_, err = s.get("gone", nil)
	require.ErrorIs(err, engine.ErrNotFound)
}

func (s *Suite) collect(c engine.Cursor, forward bool) []string {
	var keys []string
	ok := c.First()
	if !forward {
		ok = c.Last()
	}
	for ; ok; ok = s.move(c, forward) {
		keys = append(keys, string(c.Key())+"="+string(c.Value()))
	}
	s.Require().NoError(c.Err())
	return keys
}

func (s *Suite) move(c engine.Cursor, forward bool) bool {
	if forward {
		return c.Next()
	}
	return c.Prev()
}

func (s *Suite) TestCursor() {
	require := s.Require()
	s.put("b", "2")
	s.put("a", "1")
	s.put("d", "4")
	s.put("c", "3")

	c, err := s.conn.NewCursor(&engine.ReadOptions{DontFillCache: true})
	require.NoError(err)
	defer c.Release()

	require.Equal([]string{"a=1", "b=2", "c=3", "d=4"}, s.collect(c, true))
	require.Equal([]string{"d=4", "c=3", "b=2", "a=1"}, s.collect(c, false))

	require.True(c.Seek([]byte("bb")))
	require.Equal("c", string(c.Key()))
	require.True(c.Prev())
	require.Equal("b", string(c.Key()))
	require.True(c.Seek([]byte("a")))
	require.Equal("a", string(c.Key()))
	require.False(c.Seek([]byte("e")))
	require.False(c.Valid())
}

func (s *Suite) TestCursorEmpty() {
	require := s.Require()
	c, err := s.conn.NewCursor(nil)
	require.NoError(err)
	require.False(c.First())
	require.False(c.Last())
	require.False(c.Seek([]byte("a")))
	require.NoError(c.Release())
}

func (s *Suite) TestCursorIsolatedFromLaterWrites() {
	require := s.Require()
	s.put("a", "1")
	c, err := s.conn.NewCursor(nil)
	require.NoError(err)
	defer c.Release()
	s.put("b", "2")
	require.Equal([]string{"a=1"}, s.collect(c, true))
}

func (s *Suite) TestSnapshot() {
	require := s.Require()
	s.put("a", "1")
	ss, err := s.conn.GetSnapshot()
	require.NoError(err)
	require.NotNil(ss)

	s.put("a", "2")
	s.put("b", "3")

	opts := &engine.ReadOptions{Snapshot: ss}
	value, err := s.get("a", opts)
	require.NoError(err)
	require.Equal("1", value)
	_, err = s.get("b", opts)
	require.ErrorIs(err, engine.ErrNotFound)

	c, err := s.conn.NewCursor(opts)
	require.NoError(err)
	require.Equal([]string{"a=1"}, s.collect(c, true))
	require.NoError(c.Release())

	value, err = s.get("a", nil)
	require.NoError(err)
	require.Equal("2", value)

	require.NoError(s.conn.ReleaseSnapshot(ss))
}

func (s *Suite) TestReleaseForeignSnapshot() {
	s.Require().Error(s.conn.ReleaseSnapshot(struct{}{}))
}

func (s *Suite) TestCloseWithOpenSnapshot() {
	require := s.Require()
	_, err := s.conn.GetSnapshot()
	require.NoError(err)
	require.NoError(s.conn.Close())
	s.conn = nil
}

func (s *Suite) TestReopen() {
	require := s.Require()
	s.put("persist", "yes")
	require.NoError(s.conn.Close())
	s.conn = nil

	conn, err := s.open(s.path, &engine.Options{})
	require.NoError(err)
	s.conn = conn
	value, err := s.get("persist", nil)
	require.NoError(err)
	require.Equal("yes", value)
}

func (s *Suite) TestOpenMissing() {
	_, err := s.open(filepath.Join(s.TempDir(), "missing"), &engine.Options{})
	s.Require().Error(err)
}

func (s *Suite) TestOpenErrorIfExists() {
	require := s.Require()
	require.NoError(s.conn.Close())
	s.conn = nil
	_, err := s.open(s.path, &engine.Options{CreateIfMissing: true, ErrorIfExists: true})
	require.Error(err)
}

func (s *Suite) TestCache() {
	require := s.Require()
	cache := s.Engine.NewCache(1 << 20)
	require.EqualValues(1<<20, cache.Capacity())
	conn, err := s.open(filepath.Join(s.TempDir(), "cached"), &engine.Options{
		CreateIfMissing: true,
		BlockCache:      cache,
		Compression:     engine.NoCompression,
	})
	require.NoError(err)
	require.NoError(conn.Put([]byte("k"), []byte("v"), nil))
	require.NoError(conn.Close())
	cache.Release()
}
