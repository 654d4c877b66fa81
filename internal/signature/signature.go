// Package signature authenticates inbound ArcPay webhooks. The gateway
// signs the exact raw request body with HMAC-SHA256 over a shared
// secret and sends the hex digest in the X-Signature header.
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

// Header is the HTTP header carrying the hex HMAC digest.
const Header = "X-Signature"

var (
	ErrMissingSignature = errors.New("missing signature header")
	ErrInvalidSignature = errors.New("invalid signature")
)

type Verifier interface {
	// Verify checks sig against the HMAC-SHA256 of payload. The
	// comparison is constant-time. payload must be the raw request
	// body, not a re-serialized form.
	Verify(payload []byte, sig string) error
}

type hmacVerifier struct {
	secret []byte
}

func NewVerifier(secret []byte) Verifier {
	return &hmacVerifier{secret: secret}
}

func (v *hmacVerifier) Verify(payload []byte, sig string) error {
	if sig == "" {
		return ErrMissingSignature
	}

	supplied, err := hex.DecodeString(sig)
	if err != nil || len(supplied) != sha256.Size {
		return ErrInvalidSignature
	}

	mac := hmac.New(sha256.New, v.secret)
	mac.Write(payload)

	if !hmac.Equal(mac.Sum(nil), supplied) {
		return ErrInvalidSignature
	}
	return nil
}

// Sign computes the hex HMAC-SHA256 digest of payload. Used by tests
// and by tooling that emits webhooks.
func Sign(payload, secret []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}
