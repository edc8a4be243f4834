package prerender

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeTimestamp(t *testing.T) {
	cases := []struct {
		raw  string
		want string
	}{
		{`"2024-05-01T10:00:00Z"`, "2024-05-01 10:00:00"},
		{`"2024-05-01T10:00:00.123+00:00"`, "2024-05-01 10:00:00"},
		{`"2024-05-01T10:00:00.5"`, "2024-05-01 10:00:00"},
		{`1714557600000`, "2024-05-01 10:00:00"},
		{`"next tuesday"`, "next tuesday"},
		{`null`, ""},
		{``, ""},
	}
	for _, tc := range cases {
		ts, err := decodeTimestamp(json.RawMessage(tc.raw))
		require.NoError(t, err, tc.raw)
		assert.Equal(t, tc.want, ts.String(), tc.raw)
	}
}

func TestDecodeTimestampRejectsOtherTypes(t *testing.T) {
	_, err := decodeTimestamp(json.RawMessage(`{"t":1}`))
	assert.Error(t, err)
}

func TestDecodeListVariantPassThrough(t *testing.T) {
	entries, msg, err := decodeList([]byte(`{"success":true,"items":[{"url":"u","variant":"Mobile","cachedAt":"2024-01-02T03:04:05Z"}]}`))
	require.NoError(t, err)
	assert.Empty(t, msg)
	require.Len(t, entries, 1)
	assert.EqualValues(t, "mobile", entries[0].Variant)
	assert.True(t, entries[0].CachedAt.Time.Equal(time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)), entries[0].CachedAt.Time)
}

func TestDecodeDeleteMissingSuccess(t *testing.T) {
	_, err := decodeDelete([]byte(`{"error":"x"}`))
	assert.Error(t, err)
}
