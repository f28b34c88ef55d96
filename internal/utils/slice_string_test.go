package utils

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStringSlice_ValueAndScan(t *testing.T) {
	in := StringSlice{"direct: [timeout] upload abandoned, retry later", "signed: denied"}

	value, err := in.Value()
	require.NoError(t, err)

	var out StringSlice
	require.NoError(t, out.Scan([]byte(value.(string))))
	assert.Equal(t, in, out)
}

func TestStringSlice_ScanLegacyAndNil(t *testing.T) {
	var s StringSlice
	require.NoError(t, s.Scan("a, b ,c"))
	assert.Equal(t, StringSlice{"a", "b", "c"}, s)

	require.NoError(t, s.Scan(nil))
	assert.Empty(t, s)

	assert.Error(t, s.Scan(42))
}

func TestStringSlice_UnmarshalJSON(t *testing.T) {
	var payload struct {
		Tags StringSlice `json:"tags"`
	}

	require.NoError(t, json.Unmarshal([]byte(`{"tags":"png, jpeg"}`), &payload))
	assert.Equal(t, StringSlice{"png", "jpeg"}, payload.Tags)

	require.NoError(t, json.Unmarshal([]byte(`{"tags":["webp"]}`), &payload))
	assert.Equal(t, StringSlice{"webp"}, payload.Tags)
}

func TestStringSlice_NilValue(t *testing.T) {
	value, err := StringSlice(nil).Value()
	require.NoError(t, err)
	assert.Equal(t, "[]", value)
}
