package fixtures

import (
	"encoding/json"
	"fmt"

	"github.com/nimasrn/webhook-intake/internal/model"
	"github.com/nimasrn/webhook-intake/pkg/signature"
)

const TestSecret = "fixture-secret"

func NewTestPayload(messageID, from, ts string) *model.WebhookPayload {
	text := "fixture message"
	return &model.WebhookPayload{
		MessageID: messageID,
		From:      from,
		To:        "+14155550100",
		TS:        ts,
		Text:      &text,
	}
}

// SignedBody serializes a payload and returns the wire bytes together
// with a valid mac over exactly those bytes.
func SignedBody(secret string, p *model.WebhookPayload) (body []byte, sig string) {
	body, err := json.Marshal(p)
	if err != nil {
		panic(fmt.Sprintf("fixtures: marshal payload: %v", err))
	}
	return body, signature.Compute(secret, body)
}

// RawSignedBody signs pre-built wire bytes, for cases where the exact
// byte layout matters.
func RawSignedBody(secret string, body []byte) (out []byte, sig string) {
	return body, signature.Compute(secret, body)
}

var (
	ValidSenders = []string{
		"+1234567890",
		"+9876543210",
		"+4412345678",
		"+33123456789",
		"+81312345678",
	}

	InvalidSenders = []string{
		"",
		"123",
		"invalid",
		"+",
		"+123abc",
		"+12 34",
	}

	ValidTimestamps = []string{
		"2025-01-15T10:00:00Z",
		"2025-01-15T10:00:00.5Z",
		"2025-01-15T10:00:00.123456Z",
		"2024-02-29T00:00:00Z",
	}

	InvalidTimestamps = []string{
		"",
		"2025-01-15 10:00:00Z",
		"2025-01-15T10:00:00",
		"2025-01-15T10:00:00+00:00",
		"2025-13-01T10:00:00Z",
		"2025-01-32T10:00:00Z",
	}
)

func PayloadWithText(messageID, text string) *model.WebhookPayload {
	p := NewTestPayload(messageID, "+1234567890", "2025-01-15T10:00:00Z")
	p.Text = &text
	return p
}

func PayloadWithoutText(messageID string) *model.WebhookPayload {
	p := NewTestPayload(messageID, "+1234567890", "2025-01-15T10:00:00Z")
	p.Text = nil
	return p
}
