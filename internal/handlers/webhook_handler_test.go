package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/nimasrn/webhook-intake/internal/model"
	xhttp "github.com/nimasrn/webhook-intake/pkg/http"
	"github.com/nimasrn/webhook-intake/pkg/signature"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
)

const (
	testSecret    = "test-secret"
	testSigHeader = "X-Signature"
)

type MockIngestService struct {
	mock.Mock
}

func (m *MockIngestService) Ingest(ctx context.Context, p *model.WebhookPayload) (model.Outcome, error) {
	args := m.Called(ctx, p)
	return args.Get(0).(model.Outcome), args.Error(1)
}

func setupTestContext(method, path string, body []byte) *xhttp.RequestCtx {
	ctx := &fasthttp.RequestCtx{}
	ctx.Request.Header.SetMethod(method)
	ctx.Request.SetRequestURI(path)
	if body != nil {
		ctx.Request.SetBody(body)
	}
	return ctx
}

func signedContext(t *testing.T, body []byte) *xhttp.RequestCtx {
	t.Helper()
	ctx := setupTestContext("POST", "/webhook", body)
	ctx.Request.Header.Set(testSigHeader, signature.Compute(testSecret, body))
	return ctx
}

func validWebhookBody() []byte {
	return []byte(`{"message_id":"m1","from":"+919876543210","to":"+14155550100","ts":"2025-01-15T10:00:00Z","text":"Hello"}`)
}

func decodeBody(t *testing.T, ctx *xhttp.RequestCtx) map[string]string {
	t.Helper()
	var m map[string]string
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), &m))
	return m
}

func TestWebhookHandler_Ingest(t *testing.T) {
	t.Run("missing signature header", func(t *testing.T) {
		svc := new(MockIngestService)
		handler := NewWebhookHandler(svc, testSecret, testSigHeader)

		ctx := setupTestContext("POST", "/webhook", validWebhookBody())
		handler.Ingest(ctx)

		assert.Equal(t, 401, ctx.Response.StatusCode())
		assert.Equal(t, "invalid signature", decodeBody(t, ctx)["detail"])
		svc.AssertNotCalled(t, "Ingest")
	})

	t.Run("wrong signature", func(t *testing.T) {
		svc := new(MockIngestService)
		handler := NewWebhookHandler(svc, testSecret, testSigHeader)

		ctx := setupTestContext("POST", "/webhook", validWebhookBody())
		ctx.Request.Header.Set(testSigHeader, "deadbeef")
		handler.Ingest(ctx)

		assert.Equal(t, 401, ctx.Response.StatusCode())
		svc.AssertNotCalled(t, "Ingest")
	})

	t.Run("signature computed over different bytes", func(t *testing.T) {
		svc := new(MockIngestService)
		handler := NewWebhookHandler(svc, testSecret, testSigHeader)

		// valid mac for a re-serialized, equivalent document; the wire
		// bytes differ so verification must fail
		ctx := setupTestContext("POST", "/webhook", validWebhookBody())
		spaced := []byte(`{"message_id": "m1", "from": "+919876543210", "to": "+14155550100", "ts": "2025-01-15T10:00:00Z", "text": "Hello"}`)
		ctx.Request.Header.Set(testSigHeader, signature.Compute(testSecret, spaced))
		handler.Ingest(ctx)

		assert.Equal(t, 401, ctx.Response.StatusCode())
		svc.AssertNotCalled(t, "Ingest")
	})

	t.Run("invalid payload", func(t *testing.T) {
		svc := new(MockIngestService)
		handler := NewWebhookHandler(svc, testSecret, testSigHeader)

		body := []byte(`{"message_id":"m1","from":"1234567890","to":"+14155550100","ts":"2025-01-15T10:00:00Z"}`)
		ctx := signedContext(t, body)
		handler.Ingest(ctx)

		assert.Equal(t, 422, ctx.Response.StatusCode())
		assert.Contains(t, decodeBody(t, ctx)["detail"], "from")
		svc.AssertNotCalled(t, "Ingest")
	})

	t.Run("malformed JSON", func(t *testing.T) {
		svc := new(MockIngestService)
		handler := NewWebhookHandler(svc, testSecret, testSigHeader)

		ctx := signedContext(t, []byte("not json"))
		handler.Ingest(ctx)

		assert.Equal(t, 422, ctx.Response.StatusCode())
		svc.AssertNotCalled(t, "Ingest")
	})

	t.Run("created", func(t *testing.T) {
		svc := new(MockIngestService)
		handler := NewWebhookHandler(svc, testSecret, testSigHeader)

		svc.On("Ingest", mock.Anything, mock.MatchedBy(func(p *model.WebhookPayload) bool {
			return p.MessageID == "m1" && p.From == "+919876543210"
		})).Return(model.OutcomeCreated, nil)

		ctx := signedContext(t, validWebhookBody())
		handler.Ingest(ctx)

		assert.Equal(t, 200, ctx.Response.StatusCode())
		assert.Equal(t, "ok", decodeBody(t, ctx)["status"])
		svc.AssertExpectations(t)
	})

	t.Run("duplicate responds identically to created", func(t *testing.T) {
		svc := new(MockIngestService)
		handler := NewWebhookHandler(svc, testSecret, testSigHeader)

		svc.On("Ingest", mock.Anything, mock.Anything).Return(model.OutcomeDuplicate, nil)

		ctx := signedContext(t, validWebhookBody())
		handler.Ingest(ctx)

		assert.Equal(t, 200, ctx.Response.StatusCode())
		assert.Equal(t, `{"status":"ok"}`, string(ctx.Response.Body()))
	})

	t.Run("storage fault yields fixed 500 body", func(t *testing.T) {
		svc := new(MockIngestService)
		handler := NewWebhookHandler(svc, testSecret, testSigHeader)

		svc.On("Ingest", mock.Anything, mock.Anything).Return(model.OutcomeStorageError, errors.New("pg down: connection refused"))

		ctx := signedContext(t, validWebhookBody())
		handler.Ingest(ctx)

		assert.Equal(t, 500, ctx.Response.StatusCode())
		assert.Equal(t, "internal server error", decodeBody(t, ctx)["detail"])
		assert.NotContains(t, string(ctx.Response.Body()), "pg down")
	})
}
