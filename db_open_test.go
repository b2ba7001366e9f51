package levelkv_test

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/suite"

	"github.com/kezhuw/levelkv"
)

type DBOpenTestSuite struct {
	suite.Suite

	engine string
	path   string
}

var _ suite.SetupTestSuite = (*DBOpenTestSuite)(nil)

func (suite *DBOpenTestSuite) SetupTest() {
	suite.path = filepath.Join(suite.T().TempDir(), "db")
}

func (suite *DBOpenTestSuite) options() *levelkv.Options {
	return &levelkv.Options{Engine: suite.engine}
}

func (suite *DBOpenTestSuite) TestOpenMissing() {
	_, err := levelkv.Open(suite.path, suite.options())
	suite.Require().Error(err)
	suite.Require().True(levelkv.IsEngine(err))
}

func (suite *DBOpenTestSuite) TestOpenEmptyPath() {
	_, err := levelkv.Open("", suite.options())
	suite.Require().True(levelkv.IsValidation(err))
}

func (suite *DBOpenTestSuite) TestCreateLoad() {
	require := suite.Require()

	_, err := levelkv.Load(suite.path, suite.options())
	require.True(levelkv.IsEngine(err))

	db, err := levelkv.Create(suite.path, suite.options())
	require.NoError(err)
	require.NoError(db.Put([]byte("k"), []byte("v"), nil))
	require.NoError(db.Close())

	_, err = levelkv.Create(suite.path, suite.options())
	require.True(levelkv.IsEngine(err))

	db, err = levelkv.Load(suite.path, suite.options())
	require.NoError(err)
	defer db.Close()
	value, found, err := db.Get([]byte("k"), nil)
	require.NoError(err)
	require.True(found)
	require.Equal([]byte("v"), value)
}

func (suite *DBOpenTestSuite) TestErrorIfExists() {
	require := suite.Require()
	db, err := levelkv.Open(suite.path, &levelkv.Options{Engine: suite.engine, CreateIfMissing: true})
	require.NoError(err)
	require.NoError(db.Close())

	_, err = levelkv.Open(suite.path, &levelkv.Options{Engine: suite.engine, CreateIfMissing: true, ErrorIfExists: true})
	require.True(levelkv.IsEngine(err))
	require.NotEmpty(err.Error())
}

func (suite *DBOpenTestSuite) TestOpenMap() {
	require := suite.Require()
	db, err := levelkv.OpenMap(suite.path, map[string]interface{}{
		"create_if_missing":      true,
		"paranoid_checks":        true,
		"write_buffer_size":      int64(1 << 20),
		"max_open_files":         100,
		"block_size":             8192,
		"block_restart_interval": 8,
		"compression":            "none",
		"block_cache_size":       1 << 20,
		"engine":                 suite.engine,
	})
	require.NoError(err)
	defer db.Close()

	opts := db.Options()
	require.Equal(suite.engine, opts.Engine)
	require.True(opts.CreateIfMissing)
	require.True(opts.ParanoidChecks)
	require.Equal(1<<20, opts.WriteBufferSize)
	require.Equal(100, opts.MaxOpenFiles)
	require.Equal(8192, opts.BlockSize)
	require.Equal(8, opts.BlockRestartInterval)
	require.Equal(levelkv.NoCompression, opts.Compression)
	require.EqualValues(1<<20, opts.BlockCacheSize)
	require.Equal(suite.path, db.Path())

	require.NoError(db.Put([]byte("k"), []byte("v"), nil))
	value, _, err := db.Get([]byte("k"), nil)
	require.NoError(err)
	require.Equal([]byte("v"), value)
}

func (suite *DBOpenTestSuite) TestOpenMapInvalid() {
	require := suite.Require()
	_, err := levelkv.OpenMap(suite.path, map[string]interface{}{"create_if_missing": "yes"})
	require.True(levelkv.IsTypeMismatch(err))
	require.EqualError(err, "levelkv: invalid type for create_if_missing")

	_, err = levelkv.OpenMap(suite.path, map[string]interface{}{"create_if_missing": true, "bogus": 1})
	require.True(levelkv.IsValidation(err))

	_, err = levelkv.Open(suite.path, &levelkv.Options{Engine: "bogus", CreateIfMissing: true})
	require.True(levelkv.IsValidation(err))
}

func (suite *DBOpenTestSuite) TestLogger() {
	require := suite.Require()
	var buf bytes.Buffer
	opts := &levelkv.Options{
		Engine:          suite.engine,
		CreateIfMissing: true,
		Logger:          levelkv.NewLogger(zerolog.New(&buf).Level(zerolog.InfoLevel)),
	}
	db, err := levelkv.Open(suite.path, opts)
	require.NoError(err)
	require.Contains(buf.String(), "opened "+suite.path)
	require.NoError(db.Close())
	require.Contains(buf.String(), "closed "+suite.path)
}

func (suite *DBOpenTestSuite) TestClose() {
	require := suite.Require()
	db, err := levelkv.Open(suite.path, &levelkv.Options{Engine: suite.engine, CreateIfMissing: true})
	require.NoError(err)
	require.NoError(db.Put([]byte("a"), []byte("1"), nil))
	require.NoError(db.Put([]byte("b"), []byte("2"), nil))

	ss, err := db.Snapshot()
	require.NoError(err)
	c, err := db.NewCursor(nil)
	require.NoError(err)
	key, _, ok := c.Next()
	require.True(ok)
	require.Equal("a", string(key))

	require.False(db.Closed())
	require.NoError(db.Close())
	require.True(db.Closed())
	require.NoError(db.Close())

	_, _, err = db.Get([]byte("a"), nil)
	require.ErrorIs(err, levelkv.ErrDBClosed)
	require.ErrorIs(db.Put([]byte("a"), nil, nil), levelkv.ErrDBClosed)
	_, _, err = db.Delete([]byte("a"), nil)
	require.ErrorIs(err, levelkv.ErrDBClosed)
	_, err = db.Exists([]byte("a"))
	require.ErrorIs(err, levelkv.ErrDBClosed)
	_, err = db.Size()
	require.ErrorIs(err, levelkv.ErrDBClosed)
	_, err = db.Snapshot()
	require.ErrorIs(err, levelkv.ErrDBClosed)
	_, err = db.NewCursor(nil)
	require.ErrorIs(err, levelkv.ErrDBClosed)
	require.ErrorIs(db.Write(levelkv.NewWriteBatch(), nil), levelkv.ErrDBClosed)

	// The cursor was released by Close.
	_, _, ok = c.Next()
	require.False(ok)
	require.NoError(c.Release())
	require.ErrorIs(c.Each(func(key, value []byte) error { return nil }), levelkv.ErrDBClosed)

	// Releasing a snapshot of a closed db does not reach the engine.
	require.NoError(ss.Release())
	require.True(ss.Released())
	_, err = ss.Exists([]byte("a"))
	require.ErrorIs(err, levelkv.ErrDBClosed)
}

func (suite *DBOpenTestSuite) TestCloseDuringEach() {
	require := suite.Require()
	db, err := levelkv.Open(suite.path, &levelkv.Options{Engine: suite.engine, CreateIfMissing: true})
	require.NoError(err)
	for _, k := range []string{"a", "b", "c"} {
		require.NoError(db.Put([]byte(k), []byte("v"), nil))
	}
	var keys []string
	err = db.Each(nil, nil, func(key, value []byte) error {
		keys = append(keys, string(key))
		return db.Close()
	})
	require.ErrorIs(err, levelkv.ErrDBClosed)
	require.Equal([]string{"a"}, keys)
}

func (suite *DBOpenTestSuite) TestPanicInEach() {
	require := suite.Require()
	db, err := levelkv.Open(suite.path, &levelkv.Options{Engine: suite.engine, CreateIfMissing: true})
	require.NoError(err)
	for _, k := range []string{"a", "b"} {
		require.NoError(db.Put([]byte(k), []byte("v"), nil))
	}
	require.PanicsWithValue("boom", func() {
		db.Each(nil, nil, func(key, value []byte) error {
			panic("boom")
		})
	})

	// The db stays usable and closes without waiting on the panicked Each.
	value, found, err := db.Get([]byte("b"), nil)
	require.NoError(err)
	require.True(found)
	require.Equal([]byte("v"), value)

	closed := make(chan error, 1)
	go func() {
		closed <- db.Close()
	}()
	select {
	case err := <-closed:
		require.NoError(err)
	case <-time.After(5 * time.Second):
		require.Fail("Close blocked after a recovered panic in Each")
	}
}

func TestDBOpen(t *testing.T) {
	runEngineSuites(t, func(engine string) suite.TestingSuite {
		return &DBOpenTestSuite{engine: engine}
	})
}
