package crypto

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"strings"
)

// SignatureHeader carries the hex HMAC-SHA256 of the raw request body.
const SignatureHeader = "X-Signature"

const signaturePrefix = "sha256="

var ErrSecretNotConfigured = errors.New("webhook secret not configured")

// Verifier checks keyed-hash signatures over raw request bodies.
type Verifier struct {
	secret []byte
}

// NewVerifier creates a verifier for the given shared secret.
// An empty secret is rejected so callers can fail closed.
func NewVerifier(secret string) (*Verifier, error) {
	if secret == "" {
		return nil, ErrSecretNotConfigured
	}
	return &Verifier{secret: []byte(secret)}, nil
}

// Sign returns the hex HMAC-SHA256 of body under secret.
func Sign(secret string, body []byte) string {
	return hex.EncodeToString(mac([]byte(secret), body))
}

// Verify reports whether signature matches the HMAC of the exact body bytes.
// Malformed or empty signatures are simply invalid.
func (v *Verifier) Verify(body []byte, signature string) bool {
	if v == nil || len(v.secret) == 0 {
		return false
	}

	signature = strings.TrimSpace(signature)
	signature = strings.TrimPrefix(signature, signaturePrefix)
	if signature == "" {
		return false
	}

	provided, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}

	expected := mac(v.secret, body)
	return subtle.ConstantTimeCompare(provided, expected) == 1
}

func mac(secret, body []byte) []byte {
	h := hmac.New(sha256.New, secret)
	h.Write(body)
	return h.Sum(nil)
}
