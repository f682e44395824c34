package handlers

import (
	"context"

	"github.com/fasthttp/router"
	"github.com/nimasrn/webhook-intake/internal/model"
	xhttp "github.com/nimasrn/webhook-intake/pkg/http"
	"github.com/nimasrn/webhook-intake/pkg/logger"
	"github.com/nimasrn/webhook-intake/pkg/prom"
	"github.com/nimasrn/webhook-intake/pkg/signature"
)

type IngestService interface {
	Ingest(ctx context.Context, p *model.WebhookPayload) (model.Outcome, error)
}

// WebhookHandler drives the ingestion path: signature check over the
// raw body, payload validation, idempotent store. Each request ends in
// exactly one terminal outcome, recorded for observability before the
// response is written.
type WebhookHandler struct {
	svc       IngestService
	secret    string
	sigHeader string
}

func RegisterWebhookRoutes(r *router.Router, h *WebhookHandler) {
	r.POST("/webhook", h.Ingest)
}

func NewWebhookHandler(svc IngestService, secret, sigHeader string) *WebhookHandler {
	return &WebhookHandler{
		svc:       svc,
		secret:    secret,
		sigHeader: sigHeader,
	}
}

type webhookResponse struct {
	Status string `json:"status"`
}

// webhookEvent is the structured outcome record emitted once per
// request. messageID stays empty for requests rejected before
// validation produced one.
type webhookEvent struct {
	result    model.Outcome
	messageID string
}

func (e webhookEvent) emit() {
	prom.RecordWebhookResult(string(e.result))
	if e.messageID == "" {
		logger.Info("webhook_result", "result", string(e.result))
		return
	}
	logger.Info("webhook_result",
		"result", string(e.result),
		"message_id", e.messageID,
		"dup", e.result == model.OutcomeDuplicate,
	)
}

func (h *WebhookHandler) Ingest(ctx *xhttp.RequestCtx) {
	// raw bytes exactly as received; verification must run before any
	// JSON decoding so the mac covers what was actually sent
	body := ctx.PostBody()
	sig := string(ctx.Request.Header.Peek(h.sigHeader))

	if !signature.Verify(h.secret, body, sig) {
		webhookEvent{result: model.OutcomeInvalidSignature}.emit()
		writeDetail(ctx, xhttp.StatusUnauthorized, "invalid signature")
		return
	}

	payload, err := model.ParseWebhookPayload(body)
	if err != nil {
		webhookEvent{result: model.OutcomeValidationError}.emit()
		writeDetail(ctx, xhttp.StatusUnprocessableEntity, err.Error())
		return
	}

	prom.RecordWebhookPayloadSize(len(body))

	outcome, err := h.svc.Ingest(ctx, payload)
	if err != nil {
		webhookEvent{result: model.OutcomeStorageError, messageID: payload.MessageID}.emit()
		logger.Error("webhook ingest failed", "message_id", payload.MessageID, "error", err)
		// detail withheld from the caller
		writeDetail(ctx, xhttp.StatusInternalServerError, "internal server error")
		return
	}

	webhookEvent{result: outcome, messageID: payload.MessageID}.emit()

	// same body for created and duplicate: idempotency is invisible to
	// a replaying caller
	writeJSON(ctx, xhttp.StatusOK, webhookResponse{Status: "ok"})
}
