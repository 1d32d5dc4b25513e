package nonce_test

import (
	"testing"
	"time"

	"github.com/mohammadpnp/theme-setup/internal/infrastructure/nonce"
	"github.com/stretchr/testify/assert"
)

func TestSignerVerify(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	s := nonce.NewSigner("secret").WithClock(func() time.Time { return now })

	token := s.Create("merlin_nonce")
	assert.Len(t, token, 10)
	assert.True(t, s.Verify("merlin_nonce", token))
	assert.False(t, s.Verify("bulk-plugins", token))
	assert.False(t, s.Verify("merlin_nonce", ""))
	assert.False(t, nonce.NewSigner("other").WithClock(func() time.Time { return now }).Verify("merlin_nonce", token))

	later := s.WithClock(func() time.Time { return now.Add(13 * time.Hour) })
	assert.True(t, later.Verify("merlin_nonce", token), "previous tick is still accepted")

	muchLater := s.WithClock(func() time.Time { return now.Add(36 * time.Hour) })
	assert.False(t, muchLater.Verify("merlin_nonce", token))
}
