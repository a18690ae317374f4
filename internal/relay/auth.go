package relay

import (
	"crypto/subtle"
	"fmt"
	"time"

	"github.com/pquerna/otp/totp"
)

// minKeyLength guards against trivially weak shared keys.
const minKeyLength = 8

// Authenticator validates bridge credentials: a shared key compared in
// constant time, plus an optional TOTP second factor when a secret is
// configured.
type Authenticator struct {
	key        string
	totpSecret string
}

// NewAuthenticator builds an authenticator from the shared key and an
// optional base32 TOTP secret (empty disables the second factor).
func NewAuthenticator(key, totpSecret string) (*Authenticator, error) {
	if len(key) < minKeyLength {
		return nil, fmt.Errorf("relay: bridge key must be at least %d characters", minKeyLength)
	}
	return &Authenticator{key: key, totpSecret: totpSecret}, nil
}

// Verify checks an auth payload. Failures return a reason safe to send
// back over the wire.
func (a *Authenticator) Verify(p AuthPayload, now time.Time) error {
	if subtle.ConstantTimeCompare([]byte(p.Key), []byte(a.key)) != 1 {
		return fmt.Errorf("invalid bridge key")
	}
	if a.totpSecret == "" {
		return nil
	}
	if p.TOTPCode == "" {
		return fmt.Errorf("totp code required")
	}
	if !totp.Validate(p.TOTPCode, a.totpSecret) {
		return fmt.Errorf("invalid totp code")
	}
	return nil
}
