package crypto

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewVerifierRequiresSecret(t *testing.T) {
	v, err := NewVerifier("")
	require.ErrorIs(t, err, ErrSecretNotConfigured)
	assert.Nil(t, v)
	assert.False(t, v.Verify([]byte("{}"), Sign("", []byte("{}"))))
}

func TestVerify(t *testing.T) {
	body := []byte(`{"message_id":"m1","from":"u1","ts":"2024-01-01T00:00:00Z","text":"hi"}`)
	v, err := NewVerifier("testsecret")
	require.NoError(t, err)

	good := Sign("testsecret", body)

	cases := []struct {
		name string
		body []byte
		sig  string
		want bool
	}{
		{name: "valid", body: body, sig: good, want: true},
		{name: "uppercase hex", body: body, sig: strings.ToUpper(good), want: true},
		{name: "prefixed", body: body, sig: "sha256=" + good, want: true},
		{name: "empty", body: body, sig: "", want: false},
		{name: "not hex", body: body, sig: "zz-not-hex", want: false},
		{name: "odd length", body: body, sig: good[:63], want: false},
		{name: "truncated", body: body, sig: good[:32], want: false},
		{name: "wrong secret", body: body, sig: Sign("other", body), want: false},
		{name: "reserialized body", body: []byte(`{"message_id": "m1", "from": "u1", "ts": "2024-01-01T00:00:00Z", "text": "hi"}`), sig: good, want: false},
		{name: "trailing newline", body: append(append([]byte{}, body...), '\n'), sig: good, want: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, v.Verify(tc.body, tc.sig))
		})
	}
}

func TestSignKnownVector(t *testing.T) {
	// RFC 4231 test case 2.
	got := Sign("Jefe", []byte("what do ya want for nothing?"))
	assert.Equal(t, "5bdcc146bf60754e6a042426089575c75a003f089d2739839dec58b964ec3843", got)
}
