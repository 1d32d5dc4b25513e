// Package nonce signs and checks the action tokens the wizard echoes back
// on every AJAX call.
package nonce

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"time"
)

// Lifetime of one nonce tick; a token stays valid for the current and the
// previous tick.
const tick = 12 * time.Hour

type Signer struct {
	secret []byte
	now    func() time.Time
}

func NewSigner(secret string) *Signer {
	return &Signer{secret: []byte(secret), now: time.Now}
}

// WithClock swaps the time source; tests use it to cross tick boundaries.
func (s *Signer) WithClock(now func() time.Time) *Signer {
	return &Signer{secret: s.secret, now: now}
}

func (s *Signer) Create(action string) string {
	return s.sign(action, s.tick())
}

func (s *Signer) Verify(action, token string) bool {
	if token == "" {
		return false
	}
	current := s.tick()
	for _, t := range []int64{current, current - 1} {
		if hmac.Equal([]byte(token), []byte(s.sign(action, t))) {
			return true
		}
	}
	return false
}

func (s *Signer) tick() int64 {
	return s.now().Unix() / int64(tick/time.Second)
}

func (s *Signer) sign(action string, t int64) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(action))
	mac.Write([]byte{0})
	mac.Write([]byte(strconv.FormatInt(t, 10)))
	return hex.EncodeToString(mac.Sum(nil))[:10]
}
