// Package signature verifies HMAC-SHA256 request signatures.
//
// Verification always runs over the raw body bytes exactly as received
// on the wire. Re-serializing a parsed payload before hashing would
// desynchronize the signature, so callers must verify before any JSON
// decoding happens.
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Compute returns the hex-encoded HMAC-SHA256 of body keyed by secret.
func Compute(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify reports whether sig is a valid hex-encoded HMAC-SHA256 of body
// under secret. The comparison is constant-time. A missing signature
// fails closed.
func Verify(secret string, body []byte, sig string) bool {
	if sig == "" {
		return false
	}
	expected := Compute(secret, body)
	return hmac.Equal([]byte(expected), []byte(sig))
}
