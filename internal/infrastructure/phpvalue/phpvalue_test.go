package phpvalue_test

import (
	"testing"

	"github.com/mohammadpnp/theme-setup/internal/infrastructure/phpvalue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeArrayKeepsOrder(t *testing.T) {
	t.Parallel()

	out, err := phpvalue.EncodeArray([]phpvalue.Entry{
		{Key: int64(2), Value: "b"},
		{Key: "_multiwidget", Value: int64(1)},
	})
	require.NoError(t, err)
	assert.Equal(t, `a:2:{i:2;s:1:"b";s:12:"_multiwidget";i:1;}`, out)
}

func TestDecode(t *testing.T) {
	t.Parallel()

	v, err := phpvalue.Decode([]byte(`{"a": 1, "b": 1.5, "c": [2]}`))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": int64(1), "b": 1.5, "c": []any{int64(2)}}, v)

	v, err = phpvalue.Decode([]byte(`a:1:{s:1:"k";i:4;}`))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"k": int64(4)}, v)

	_, err = phpvalue.Decode([]byte("s:3:\"abc\";"))
	assert.ErrorIs(t, err, phpvalue.ErrUndecodable)
}

func TestMarshalRoundTripsMaps(t *testing.T) {
	t.Parallel()

	raw, err := phpvalue.Marshal(map[string]any{"n": int64(3), "s": "x"})
	require.NoError(t, err)
	got, err := phpvalue.DecodeArray(raw)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"n": int64(3), "s": "x"}, got)
}

func TestInt(t *testing.T) {
	t.Parallel()

	n, ok := phpvalue.Int(" 42")
	assert.True(t, ok)
	assert.Equal(t, int64(42), n)

	_, ok = phpvalue.Int([]any{})
	assert.False(t, ok)
}
