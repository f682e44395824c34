package model

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validBody(t *testing.T, mutate func(m map[string]any)) []byte {
	t.Helper()
	m := map[string]any{
		"message_id": "m1",
		"from":       "+919876543210",
		"to":         "+14155550100",
		"ts":         "2025-01-15T10:00:00Z",
		"text":       "Hello",
	}
	if mutate != nil {
		mutate(m)
	}
	b, err := json.Marshal(m)
	require.NoError(t, err)
	return b
}

func TestParseWebhookPayload_Valid(t *testing.T) {
	p, err := ParseWebhookPayload(validBody(t, nil))
	require.NoError(t, err)
	assert.Equal(t, "m1", p.MessageID)
	assert.Equal(t, "+919876543210", p.From)
	assert.Equal(t, "+14155550100", p.To)
	assert.Equal(t, "2025-01-15T10:00:00Z", p.TS)
	require.NotNil(t, p.Text)
	assert.Equal(t, "Hello", *p.Text)
}

func TestParseWebhookPayload_OptionalText(t *testing.T) {
	p, err := ParseWebhookPayload(validBody(t, func(m map[string]any) { delete(m, "text") }))
	require.NoError(t, err)
	assert.Nil(t, p.Text)
}

func TestParseWebhookPayload_UnknownFieldsIgnored(t *testing.T) {
	p, err := ParseWebhookPayload(validBody(t, func(m map[string]any) { m["extra"] = "whatever" }))
	require.NoError(t, err)
	assert.Equal(t, "m1", p.MessageID)
}

func TestParseWebhookPayload_MalformedJSON(t *testing.T) {
	_, err := ParseWebhookPayload([]byte("not json at all"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedJSON)
}

func TestParseWebhookPayload_FieldViolations(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(m map[string]any)
		wantErr string
	}{
		{"missing message_id", func(m map[string]any) { delete(m, "message_id") }, "message_id"},
		{"empty message_id", func(m map[string]any) { m["message_id"] = "" }, "message_id"},
		{"from without plus", func(m map[string]any) { m["from"] = "1234567890" }, "from"},
		{"from with separators", func(m map[string]any) { m["from"] = "+1-415-555" }, "from"},
		{"from with letters", func(m map[string]any) { m["from"] = "+1415ABC" }, "from"},
		{"missing from", func(m map[string]any) { delete(m, "from") }, "from"},
		{"to without plus", func(m map[string]any) { m["to"] = "14155550100" }, "to"},
		{"missing to", func(m map[string]any) { delete(m, "to") }, "to"},
		{"ts without Z", func(m map[string]any) { m["ts"] = "2025-01-15T10:00:00" }, "ts"},
		{"ts with offset", func(m map[string]any) { m["ts"] = "2025-01-15T10:00:00+00:00" }, "ts"},
		{"ts date only", func(m map[string]any) { m["ts"] = "2025-01-15" }, "ts"},
		{"ts month 13", func(m map[string]any) { m["ts"] = "2025-13-15T10:00:00Z" }, "ts"},
		{"ts day 32", func(m map[string]any) { m["ts"] = "2025-01-32T10:00:00Z" }, "ts"},
		{"missing ts", func(m map[string]any) { delete(m, "ts") }, "ts"},
		{"text too long", func(m map[string]any) { m["text"] = strings.Repeat("a", 4097) }, "text"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseWebhookPayload(validBody(t, tt.mutate))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParseWebhookPayload_TextBoundaries(t *testing.T) {
	t.Run("exactly 4096 runes accepted", func(t *testing.T) {
		_, err := ParseWebhookPayload(validBody(t, func(m map[string]any) { m["text"] = strings.Repeat("a", 4096) }))
		assert.NoError(t, err)
	})

	t.Run("length is counted in code points, not bytes", func(t *testing.T) {
		// 4096 multibyte runes are > 4096 bytes but still valid
		_, err := ParseWebhookPayload(validBody(t, func(m map[string]any) { m["text"] = strings.Repeat("é", 4096) }))
		assert.NoError(t, err)
	})

	t.Run("empty text accepted", func(t *testing.T) {
		p, err := ParseWebhookPayload(validBody(t, func(m map[string]any) { m["text"] = "" }))
		require.NoError(t, err)
		require.NotNil(t, p.Text)
		assert.Equal(t, "", *p.Text)
	})
}

func TestParseWebhookPayload_FractionalSeconds(t *testing.T) {
	_, err := ParseWebhookPayload(validBody(t, func(m map[string]any) { m["ts"] = "2025-01-15T10:00:00.123Z" }))
	assert.NoError(t, err)
}
