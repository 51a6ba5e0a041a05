// Package signer signs and verifies values with HMAC-SHA256.
package signer

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Signer holds a shared secret. The zero secret disables verification.
type Signer struct {
	secret []byte
}

// New creates a Signer. An empty secret yields a disabled signer whose
// Verify accepts everything.
func New(secret string) *Signer {
	return &Signer{secret: []byte(secret)}
}

// Enabled reports whether a secret is configured.
func (s *Signer) Enabled() bool {
	return len(s.secret) > 0
}

// Sign returns the full lowercase hex HMAC-SHA256 of message.
func (s *Signer) Sign(message string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(message))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify compares signature against Sign(message) in constant time.
// Hex case is ignored. A disabled signer always returns true.
func (s *Signer) Verify(message, signature string) bool {
	if !s.Enabled() {
		return true
	}
	expected := s.Sign(message)
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(signature)))
}
