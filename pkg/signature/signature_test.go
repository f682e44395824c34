package signature

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVerify(t *testing.T) {
	secret := "test-secret"
	body := []byte(`{"message_id":"m1","from":"+111","to":"+222","ts":"2025-01-15T10:00:00Z"}`)

	t.Run("valid signature", func(t *testing.T) {
		sig := Compute(secret, body)
		assert.True(t, Verify(secret, body, sig))
	})

	t.Run("empty signature fails closed", func(t *testing.T) {
		assert.False(t, Verify(secret, body, ""))
	})

	t.Run("wrong secret", func(t *testing.T) {
		sig := Compute("other-secret", body)
		assert.False(t, Verify(secret, body, sig))
	})

	t.Run("tampered body", func(t *testing.T) {
		sig := Compute(secret, body)
		tampered := append([]byte{}, body...)
		tampered[len(tampered)-2] = 'X'
		assert.False(t, Verify(secret, tampered, sig))
	})

	t.Run("truncated signature", func(t *testing.T) {
		sig := Compute(secret, body)
		assert.False(t, Verify(secret, body, sig[:len(sig)-1]))
	})
}

// A signature is a function of the exact bytes sent, not of the JSON
// value they encode. Equivalent documents with different whitespace or
// key order must not share a mac.
func TestVerify_ByteSensitivity(t *testing.T) {
	secret := "test-secret"
	compact := []byte(`{"a":1,"b":2}`)
	spaced := []byte(`{"a": 1, "b": 2}`)
	reordered := []byte(`{"b":2,"a":1}`)

	sig := Compute(secret, compact)
	assert.True(t, Verify(secret, compact, sig))
	assert.False(t, Verify(secret, spaced, sig))
	assert.False(t, Verify(secret, reordered, sig))
	assert.NotEqual(t, Compute(secret, compact), Compute(secret, spaced))
	assert.NotEqual(t, Compute(secret, compact), Compute(secret, reordered))
}
