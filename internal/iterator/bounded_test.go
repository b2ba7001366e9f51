package iterator_test

import (
	"errors"
	"sort"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/kezhuw/levelkv/internal/engine"
	lkverrors "github.com/kezhuw/levelkv/internal/errors"
	"github.com/kezhuw/levelkv/internal/iterator"
)

// sliceCursor is an engine cursor over sorted keys. If err is set, moving
// off either end of the keyspace leaves it invalid with err.
type sliceCursor struct {
	keys     []string
	values   map[string]string
	i        int
	err      error
	failed   error
	seekErr  bool
	releases int
}

func newSliceCursor(kvs map[string]string) *sliceCursor {
	c := &sliceCursor{values: kvs, i: -1}
	for k := range kvs {
		c.keys = append(c.keys, k)
	}
	sort.Strings(c.keys)
	return c
}

func (c *sliceCursor) set(i int) bool {
	if i < 0 || i >= len(c.keys) {
		c.i = -1
		c.failed = c.err
		return false
	}
	c.i = i
	return true
}

func (c *sliceCursor) First() bool { return c.set(0) }
func (c *sliceCursor) Last() bool  { return c.set(len(c.keys) - 1) }
func (c *sliceCursor) Next() bool  { return c.set(c.i + 1) }
func (c *sliceCursor) Prev() bool  { return c.set(c.i - 1) }

func (c *sliceCursor) Seek(key []byte) bool {
	if c.seekErr {
		c.i = -1
		c.failed = c.err
		return false
	}
	return c.set(sort.SearchStrings(c.keys, string(key)))
}

func (c *sliceCursor) Valid() bool   { return c.i >= 0 }
func (c *sliceCursor) Key() []byte   { return []byte(c.keys[c.i]) }
func (c *sliceCursor) Value() []byte { return []byte(c.values[c.keys[c.i]]) }
func (c *sliceCursor) Err() error    { return c.failed }

func (c *sliceCursor) Release() error {
	c.releases++
	return c.failed
}

var _ engine.Cursor = (*sliceCursor)(nil)

var alphabet = map[string]string{
	"a": "1",
	"b": "2",
	"c": "3",
	"d": "4",
	"f": "6",
}

type BoundedTestSuite struct {
	suite.Suite

	cursor *sliceCursor
}

var _ suite.SetupTestSuite = (*BoundedTestSuite)(nil)

func (suite *BoundedTestSuite) SetupTest() {
	suite.cursor = newSliceCursor(alphabet)
}

func (suite *BoundedTestSuite) drain(opts iterator.Options) []string {
	var keys []string
	it := iterator.NewBounded(suite.cursor, opts)
	err := it.Each(func(key, value []byte) error {
		suite.Require().Equal(alphabet[string(key)], string(value))
		keys = append(keys, string(key))
		return nil
	})
	suite.Require().NoError(err)
	suite.Require().Equal(1, suite.cursor.releases)
	return keys
}

func (suite *BoundedTestSuite) TestForward() {
	suite.Require().Equal([]string{"a", "b", "c", "d", "f"}, suite.drain(iterator.Options{}))
}

func (suite *BoundedTestSuite) TestReverse() {
	keys := suite.drain(iterator.Options{Direction: iterator.Reverse})
	suite.Require().Equal([]string{"f", "d", "c", "b", "a"}, keys)
}

func (suite *BoundedTestSuite) TestForwardFromTo() {
	keys := suite.drain(iterator.Options{From: []byte("b"), To: []byte("d")})
	suite.Require().Equal([]string{"b", "c", "d"}, keys)
}

func (suite *BoundedTestSuite) TestForwardFromBetweenKeys() {
	keys := suite.drain(iterator.Options{From: []byte("bb"), To: []byte("e")})
	suite.Require().Equal([]string{"c", "d"}, keys)
}

func (suite *BoundedTestSuite) TestReverseFromTo() {
	keys := suite.drain(iterator.Options{Direction: iterator.Reverse, From: []byte("d"), To: []byte("b")})
	suite.Require().Equal([]string{"d", "c", "b"}, keys)
}

func (suite *BoundedTestSuite) TestReverseFromBetweenKeys() {
	keys := suite.drain(iterator.Options{Direction: iterator.Reverse, From: []byte("e"), To: []byte("bb")})
	suite.Require().Equal([]string{"d", "c"}, keys)
}

func (suite *BoundedTestSuite) TestReverseFromPastEnd() {
	keys := suite.drain(iterator.Options{Direction: iterator.Reverse, From: []byte("z")})
	suite.Require().Equal([]string{"f", "d", "c", "b", "a"}, keys)
}

func (suite *BoundedTestSuite) TestReverseFromBeforeStart() {
	keys := suite.drain(iterator.Options{Direction: iterator.Reverse, From: []byte("0")})
	suite.Require().Empty(keys)
}

func (suite *BoundedTestSuite) TestBoundBeforeFrom() {
	keys := suite.drain(iterator.Options{From: []byte("d"), To: []byte("b")})
	suite.Require().Empty(keys)
}

func (suite *BoundedTestSuite) TestEmptyKeyspace() {
	suite.cursor = newSliceCursor(nil)
	suite.Require().Empty(suite.drain(iterator.Options{}))
}

func (suite *BoundedTestSuite) TestReasonBoundExceeded() {
	require := suite.Require()
	it := iterator.NewBounded(suite.cursor, iterator.Options{To: []byte("b")})
	_, ok := it.Reason()
	require.False(ok)
	require.Equal(iterator.Valid, it.Status())

	key, _, ok := it.Next()
	require.True(ok)
	require.Equal("a", string(key))
	key, _, ok = it.Next()
	require.True(ok)
	require.Equal("b", string(key))

	_, _, ok = it.Next()
	require.False(ok)
	reason, ok := it.Reason()
	require.True(ok)
	require.Equal(iterator.ReasonBoundExceeded, reason)

	// Terminal: scanning does not move the engine cursor.
	it.Scan()
	require.Equal("c", string(suite.cursor.Key()))
	require.Equal(iterator.BoundExceeded, it.Status())
	require.NoError(it.Release())
	require.Equal(iterator.BoundExceeded, it.Status())
}

func (suite *BoundedTestSuite) TestReasonExhausted() {
	require := suite.Require()
	it := iterator.NewBounded(suite.cursor, iterator.Options{From: []byte("e")})
	key, value, ok := it.Peek()
	require.True(ok)
	require.Equal("f", string(key))
	require.Equal("6", string(value))
	it.Scan()
	_, _, ok = it.Peek()
	require.False(ok)
	reason, ok := it.Reason()
	require.True(ok)
	require.Equal(iterator.ReasonExhausted, reason)
	require.NoError(it.Release())
}

func (suite *BoundedTestSuite) TestPeekDoesNotAdvance() {
	require := suite.Require()
	it := iterator.NewBounded(suite.cursor, iterator.Options{})
	for i := 0; i < 3; i++ {
		key, _, ok := it.Peek()
		require.True(ok)
		require.Equal("a", string(key))
	}
	it.Scan()
	key, _, ok := it.Peek()
	require.True(ok)
	require.Equal("b", string(key))
	require.NoError(it.Release())
}

func (suite *BoundedTestSuite) TestPeekCopies() {
	require := suite.Require()
	it := iterator.NewBounded(suite.cursor, iterator.Options{})
	key, _, ok := it.Peek()
	require.True(ok)
	key[0] = 'z'
	again, _, ok := it.Peek()
	require.True(ok)
	require.Equal("a", string(again))
	require.NoError(it.Release())
}

func (suite *BoundedTestSuite) TestEachAfterRelease() {
	require := suite.Require()
	it := iterator.NewBounded(suite.cursor, iterator.Options{})
	require.NoError(it.Each(func(key, value []byte) error { return nil }))
	require.True(it.Released())
	err := it.Each(func(key, value []byte) error { return nil })
	require.ErrorIs(err, lkverrors.ErrCursorReleased)
	_, _, ok := it.Next()
	require.False(ok)
	require.NoError(it.Release())
	require.Equal(1, suite.cursor.releases)
}

func (suite *BoundedTestSuite) TestEachStopsOnCallbackError() {
	require := suite.Require()
	stop := errors.New("stop")
	n := 0
	it := iterator.NewBounded(suite.cursor, iterator.Options{})
	err := it.Each(func(key, value []byte) error {
		n++
		if n == 2 {
			return stop
		}
		return nil
	})
	require.ErrorIs(err, stop)
	require.Equal(2, n)
	require.True(it.Released())
	require.Equal(1, suite.cursor.releases)
}

func (suite *BoundedTestSuite) TestEachReleasesOnPanic() {
	require := suite.Require()
	it := iterator.NewBounded(suite.cursor, iterator.Options{})
	require.PanicsWithValue("boom", func() {
		it.Each(func(key, value []byte) error {
			panic("boom")
		})
	})
	require.True(it.Released())
	require.Equal(1, suite.cursor.releases)
	require.ErrorIs(it.Each(func(key, value []byte) error { return nil }), lkverrors.ErrCursorReleased)
}

func (suite *BoundedTestSuite) TestEachStopsWhenReleased() {
	require := suite.Require()
	var keys []string
	var it *iterator.Bounded
	it = iterator.NewBounded(suite.cursor, iterator.Options{})
	err := it.Each(func(key, value []byte) error {
		keys = append(keys, string(key))
		if len(keys) == 2 {
			return it.Release()
		}
		return nil
	})
	require.NoError(err)
	require.Equal([]string{"a", "b"}, keys)
	require.Equal(1, suite.cursor.releases)
}

func (suite *BoundedTestSuite) TestEachReportsEngineError() {
	require := suite.Require()
	failure := errors.New("corrupted block")
	suite.cursor.err = failure
	var keys []string
	it := iterator.NewBounded(suite.cursor, iterator.Options{From: []byte("d")})
	err := it.Each(func(key, value []byte) error {
		keys = append(keys, string(key))
		return nil
	})
	require.Equal([]string{"d", "f"}, keys)
	require.ErrorIs(err, failure)
	require.Equal(1, suite.cursor.releases)
}

func (suite *BoundedTestSuite) TestReverseSeekError() {
	require := suite.Require()
	failure := errors.New("io error")
	suite.cursor.err = failure
	suite.cursor.seekErr = true
	it := iterator.NewBounded(suite.cursor, iterator.Options{Direction: iterator.Reverse, From: []byte("c")})
	_, _, ok := it.Peek()
	require.False(ok)
	require.ErrorIs(it.Err(), failure)
	require.ErrorIs(it.Release(), failure)
}

func TestBoundedIterator(t *testing.T) {
	suite.Run(t, new(BoundedTestSuite))
}
