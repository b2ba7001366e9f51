package memdb

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/kezhuw/levelkv/internal/engine"
	"github.com/kezhuw/levelkv/internal/engine/enginetest"
)

func TestEngine(t *testing.T) {
	suite.Run(t, &enginetest.Suite{Engine: memEngine{}, TempDir: t.TempDir})
}

func TestMixedCompression(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db")
	conn, err := memEngine{}.Open(path, &engine.Options{CreateIfMissing: true, Compression: engine.SnappyCompression})
	require.NoError(t, err)
	require.NoError(t, conn.Put([]byte("a"), []byte("snappy snappy snappy"), nil))
	require.NoError(t, conn.Close())

	conn, err = memEngine{}.Open(path, &engine.Options{Compression: engine.NoCompression})
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.Put([]byte("b"), []byte("plain"), nil))

	value, err := conn.Get([]byte("a"), nil)
	require.NoError(t, err)
	require.Equal(t, []byte("snappy snappy snappy"), value)

	c, err := conn.NewCursor(nil)
	require.NoError(t, err)
	defer c.Release()
	require.True(t, c.First())
	require.Equal(t, []byte("snappy snappy snappy"), c.Value())
	require.True(t, c.Next())
	require.Equal(t, []byte("plain"), c.Value())
	require.False(t, c.Next())
	require.NoError(t, c.Err())
}

func TestCorruptedValue(t *testing.T) {
	ec, err := memEngine{}.Open(filepath.Join(t.TempDir(), "db"), &engine.Options{CreateIfMissing: true})
	require.NoError(t, err)
	defer ec.Close()

	s := ec.(*conn).store
	s.tree.ReplaceOrInsert(item{key: []byte("bad"), value: []byte{0xff, 0xff, 0xff}, compressed: true})

	_, err = ec.Get([]byte("bad"), nil)
	require.Error(t, err)

	c, err := ec.NewCursor(nil)
	require.NoError(t, err)
	defer c.Release()
	require.False(t, c.First())
	require.Error(t, c.Err())
}
