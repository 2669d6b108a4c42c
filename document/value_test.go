package document

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueFromAny(t *testing.T) {
	v, err := FromAny("hello")
	require.NoError(t, err)
	assert.Equal(t, KindString, v.Kind)
	assert.Equal(t, "hello", v.Str)

	v, err = FromAny(42)
	require.NoError(t, err)
	assert.Equal(t, KindNumber, v.Kind)
	assert.Equal(t, 42.0, v.Num)

	v, err = FromAny([]any{"a", 1.5, true})
	require.NoError(t, err)
	assert.Equal(t, KindArray, v.Kind)
	assert.Len(t, v.Arr, 3)

	_, err = FromAny(map[string]any{"nested": 1})
	assert.Error(t, err)

	_, err = FromAny([]any{[]any{"nested"}})
	assert.Error(t, err)
}

func TestValueJSONRoundTrip(t *testing.T) {
	doc := Document{
		"title": String("running shoes"),
		"price": Number(49.99),
		"tags":  Array(String("sport"), String("outdoor")),
		"sale":  Bool(true),
		"note":  Null(),
	}

	data, err := json.Marshal(doc)
	require.NoError(t, err)

	var got Document
	require.NoError(t, json.Unmarshal(data, &got))

	for k, v := range doc {
		assert.True(t, v.Equal(got[k]), "field %s", k)
	}
}

func TestValueKeyRoundTrip(t *testing.T) {
	for _, v := range []Value{String("shoes"), Number(49.5), Number(-3), Bool(true), Bool(false), Null()} {
		got, err := DecodeKey(v.Key())
		require.NoError(t, err)
		assert.True(t, v.Equal(got), "value %v", v)
	}

	_, err := DecodeKey("junk")
	assert.Error(t, err)
}

func TestValueText(t *testing.T) {
	assert.Equal(t, "running shoes", String("running shoes").Text())
	assert.Equal(t, "42", Number(42).Text())
	assert.Equal(t, "3.5", Number(3.5).Text())
	assert.Equal(t, "true", Bool(true).Text())
	assert.Equal(t, "red blue", Array(String("red"), String("blue")).Text())
	assert.Equal(t, "", Null().Text())
}

func TestValueCompare(t *testing.T) {
	assert.Negative(t, Number(1).Compare(Number(2)))
	assert.Positive(t, Number(2).Compare(Number(1)))
	assert.Zero(t, Number(2).Compare(Number(2)))
	assert.Negative(t, String("a").Compare(String("b")))
	assert.Negative(t, Bool(false).Compare(Bool(true)))
}

func TestPrimaryKeyString(t *testing.T) {
	pk, ok := PrimaryKeyString(String("doc-1"))
	assert.True(t, ok)
	assert.Equal(t, "doc-1", pk)

	pk, ok = PrimaryKeyString(Number(7))
	assert.True(t, ok)
	assert.Equal(t, "7", pk)

	_, ok = PrimaryKeyString(Number(1.5))
	assert.False(t, ok)

	_, ok = PrimaryKeyString(Bool(true))
	assert.False(t, ok)

	_, ok = PrimaryKeyString(String(""))
	assert.False(t, ok)
}
