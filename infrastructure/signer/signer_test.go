package signer_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Kaglioster-hub/vrabo/infrastructure/signer"
)

func TestSign_KnownVector(t *testing.T) {
	t.Parallel()

	// RFC 4231 test case 2
	s := signer.New("Jefe")
	got := s.Sign("what do ya want for nothing?")

	assert.Equal(t, "5bdcc146bf60754e6a042426089575c75a003f089d2739839dec58b964ec3843", got)
}

func TestVerify(t *testing.T) {
	t.Parallel()

	s := signer.New("secret")
	sig := s.Sign("https://booking.com/x")

	assert.True(t, s.Verify("https://booking.com/x", sig))
	assert.True(t, s.Verify("https://booking.com/x", strings.ToUpper(sig)))
	assert.False(t, s.Verify("https://booking.com/y", sig))
	assert.False(t, s.Verify("https://booking.com/x", ""))
	assert.False(t, s.Verify("https://booking.com/x", sig[:12]))
}

func TestVerify_DisabledAcceptsAnything(t *testing.T) {
	t.Parallel()

	s := signer.New("")
	assert.False(t, s.Enabled())
	assert.True(t, s.Verify("anything", "garbage"))
}
