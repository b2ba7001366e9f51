package options_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kezhuw/levelkv/internal/errors"
	"github.com/kezhuw/levelkv/internal/options"
)

func TestSetCheck(t *testing.T) {
	require.NoError(t, options.OpenSet.Check(nil))
	require.NoError(t, options.OpenSet.Check(map[string]interface{}{
		options.CreateIfMissing: true,
		options.BlockSize:       1024,
	}))

	err := options.ReadSet.Check(map[string]interface{}{"bogus": 1, "also_bogus": 2, options.FillCache: false})
	require.True(t, errors.IsValidation(err))
	require.Equal(t, "levelkv: read: unknown option also_bogus, bogus", err.Error())

	require.Error(t, options.WriteSet.Check(map[string]interface{}{options.FillCache: true}))
}

func TestSetNames(t *testing.T) {
	require.Equal(t, []string{options.Sync}, options.WriteSet.Names())
	require.Equal(t, []string{options.FillCache, options.Snapshot, options.VerifyChecksums}, options.ReadSet.Names())
}

func TestBool(t *testing.T) {
	raw := map[string]interface{}{"yes": true, "no": false, "str": "true", "int": 1}

	b, err := options.Bool(raw, "yes", false)
	require.NoError(t, err)
	require.True(t, b)

	b, err = options.Bool(raw, "no", true)
	require.NoError(t, err)
	require.False(t, b)

	b, err = options.Bool(raw, "missing", true)
	require.NoError(t, err)
	require.True(t, b)

	for _, name := range []string{"str", "int"} {
		_, err = options.Bool(raw, name, false)
		require.True(t, errors.IsTypeMismatch(err), name)
		require.Equal(t, "levelkv: invalid type for "+name, err.Error())
	}
}

func TestInt(t *testing.T) {
	raw := map[string]interface{}{
		"int":    42,
		"int8":   int8(8),
		"int64":  int64(1 << 20),
		"uint32": uint32(7),
		"zero":   0,
		"neg":    -5,
		"float":  4096.0,
		"string": "4096",
		"huge":   ^uint64(0),
	}

	cases := map[string]int{"int": 42, "int8": 8, "int64": 1 << 20, "uint32": 7, "missing": 99}
	for name, want := range cases {
		n, err := options.Int(raw, name, 99)
		require.NoError(t, err, name)
		require.Equal(t, want, n, name)
	}

	for _, name := range []string{"float", "string"} {
		_, err := options.Int(raw, name, 0)
		require.True(t, errors.IsTypeMismatch(err), name)
	}
	for _, name := range []string{"zero", "neg", "huge"} {
		_, err := options.Int(raw, name, 0)
		require.True(t, errors.IsValidation(err), name)
	}
}

type level int

func TestEnum(t *testing.T) {
	values := map[interface{}]level{level(1): 10, "one": 10, level(2): 20}
	raw := map[string]interface{}{"a": level(1), "b": "one", "c": level(3), "d": 1, "e": []byte("one")}

	v, ok, err := options.Enum(raw, "a", values)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, level(10), v)

	v, ok, err = options.Enum(raw, "b", values)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, level(10), v)

	_, ok, err = options.Enum(raw, "missing", values)
	require.NoError(t, err)
	require.False(t, ok)

	for _, name := range []string{"c", "d", "e"} {
		_, _, err = options.Enum(raw, name, values)
		require.True(t, errors.IsTypeMismatch(err), name)
	}
}

func TestBytes(t *testing.T) {
	raw := map[string]interface{}{"s": "key", "b": []byte("raw"), "n": nil, "i": 3}

	b, err := options.Bytes(raw, "s")
	require.NoError(t, err)
	require.Equal(t, []byte("key"), b)

	b, err = options.Bytes(raw, "b")
	require.NoError(t, err)
	require.Equal(t, []byte("raw"), b)

	b, err = options.Bytes(raw, "n")
	require.NoError(t, err)
	require.Nil(t, b)

	b, err = options.Bytes(raw, "missing")
	require.NoError(t, err)
	require.Nil(t, b)

	_, err = options.Bytes(raw, "i")
	require.True(t, errors.IsTypeMismatch(err))
}

func TestString(t *testing.T) {
	raw := map[string]interface{}{options.Engine: "pebble", "bad": true}

	s, err := options.String(raw, options.Engine, options.DefaultEngine)
	require.NoError(t, err)
	require.Equal(t, "pebble", s)

	s, err = options.String(nil, options.Engine, options.DefaultEngine)
	require.NoError(t, err)
	require.Equal(t, options.DefaultEngine, s)

	_, err = options.String(raw, "bad", "")
	require.True(t, errors.IsTypeMismatch(err))
}
