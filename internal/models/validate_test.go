package models

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMessageValid(t *testing.T) {
	raw := []byte(`{"message_id":"m1","from":"+919876543210","to":"+14155550100","ts":"2025-01-15T10:00:00Z","text":"Hello","extra":{"k":1}}`)

	msg, err := ParseMessage(raw, 0)
	require.NoError(t, err)
	assert.Equal(t, "m1", msg.MessageID)
	assert.Equal(t, "+919876543210", msg.From)
	assert.Equal(t, "+14155550100", msg.To)
	assert.Equal(t, "Hello", msg.Text)
	assert.True(t, msg.Timestamp.Equal(time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)))
}

func TestParseMessageMalformed(t *testing.T) {
	for _, raw := range []string{``, `not json`, `[]`, `null`, `"str"`, `{"message_id":`} {
		_, err := ParseMessage([]byte(raw), 0)
		assert.ErrorIs(t, err, ErrMalformedPayload, "input %q", raw)
	}
}

func TestParseMessageFieldViolations(t *testing.T) {
	cases := []struct {
		name   string
		raw    string
		fields []string
	}{
		{name: "missing text", raw: `{"message_id":"m1","from":"u1","ts":"2024-01-01T00:00:00Z"}`, fields: []string{"text"}},
		{name: "null text", raw: `{"message_id":"m1","from":"u1","ts":"2024-01-01T00:00:00Z","text":null}`, fields: []string{"text"}},
		{name: "empty id", raw: `{"message_id":"  ","from":"u1","ts":"2024-01-01T00:00:00Z","text":"x"}`, fields: []string{"message_id"}},
		{name: "numeric from", raw: `{"message_id":"m1","from":42,"ts":"2024-01-01T00:00:00Z","text":"x"}`, fields: []string{"from"}},
		{name: "bad ts", raw: `{"message_id":"m1","from":"u1","ts":"yesterday","text":"x"}`, fields: []string{"ts"}},
		{name: "bad to", raw: `{"message_id":"m1","from":"u1","to":7,"ts":"2024-01-01T00:00:00Z","text":"x"}`, fields: []string{"to"}},
		{name: "ts past year 9999 in utc", raw: `{"message_id":"m1","from":"u1","ts":"9999-12-31T23:00:00-05:00","text":"x"}`, fields: []string{"ts"}},
		{name: "ts before year 0 in utc", raw: `{"message_id":"m1","from":"u1","ts":"0000-01-01T00:30:00+01:00","text":"x"}`, fields: []string{"ts"}},
		{name: "nul in text", raw: `{"message_id":"m1","from":"u1","ts":"2024-01-01T00:00:00Z","text":"a\u0000b"}`, fields: []string{"text"}},
		{name: "nul in id and sender", raw: `{"message_id":"m\u0000","from":"\u0000","ts":"2024-01-01T00:00:00Z","text":"x"}`, fields: []string{"message_id", "from"}},
		{name: "nul in to", raw: `{"message_id":"m1","from":"u1","to":"\u0000","ts":"2024-01-01T00:00:00Z","text":"x"}`, fields: []string{"to"}},
		{name: "everything missing", raw: `{}`, fields: []string{"message_id", "from", "ts", "text"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			msg, err := ParseMessage([]byte(tc.raw), 0)
			require.Error(t, err)
			assert.Nil(t, msg)

			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			got := make([]string, 0, len(verr.Fields))
			for _, f := range verr.Fields {
				got = append(got, f.Field)
			}
			assert.Equal(t, tc.fields, got)
			assert.NotErrorIs(t, err, ErrMalformedPayload)
		})
	}
}

func TestParseMessageTextLength(t *testing.T) {
	build := func(text string) []byte {
		return []byte(`{"message_id":"m1","from":"u1","ts":"2024-01-01T00:00:00Z","text":"` + text + `"}`)
	}

	_, err := ParseMessage(build(strings.Repeat("é", 10)), 10)
	require.NoError(t, err)

	_, err = ParseMessage(build(strings.Repeat("a", 11)), 10)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "text", verr.Fields[0].Field)

	msg, err := ParseMessage(build(""), 10)
	require.NoError(t, err)
	assert.Equal(t, "", msg.Text)
}

func TestParseTimestamp(t *testing.T) {
	want := time.Date(2024, 1, 1, 5, 30, 0, 0, time.UTC)

	for _, in := range []string{
		"2024-01-01T05:30:00Z",
		"2024-01-01T05:30:00.000Z",
		"2024-01-01T11:00:00+05:30",
		"2024-01-01T05:30:00",
	} {
		got, err := ParseTimestamp(in)
		require.NoError(t, err, in)
		assert.True(t, got.Equal(want), in)
		assert.Equal(t, time.UTC, got.Location(), in)
	}

	_, err := ParseTimestamp("2024-13-01T00:00:00Z")
	assert.Error(t, err)
}

func TestParseTimestampYearRange(t *testing.T) {
	for _, in := range []string{
		"9999-12-31T23:00:00-05:00",
		"0000-01-01T00:30:00+01:00",
	} {
		_, err := ParseTimestamp(in)
		assert.ErrorIs(t, err, ErrTimestampRange, in)
	}

	for _, in := range []string{
		"9999-12-31T23:59:59.999999999Z",
		"0000-01-01T00:00:00Z",
		"9999-12-31T23:00:00+05:00",
	} {
		_, err := ParseTimestamp(in)
		assert.NoError(t, err, in)
	}
}
