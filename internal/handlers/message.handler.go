package handlers

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/fasthttp/router"
	"github.com/nimasrn/webhook-intake/internal/model"
	xhttp "github.com/nimasrn/webhook-intake/pkg/http"
)

const (
	defaultLimit = 50
	maxLimit     = 100
)

type QueryService interface {
	List(ctx context.Context, f model.MessageFilter) ([]*model.Message, int64, error)
	Stats(ctx context.Context) (*model.Stats, error)
}

type MessageHandler struct {
	svc QueryService
}

func RegisterMessageRoutes(r *router.Router, h *MessageHandler) {
	r.GET("/messages", h.ListMessages)
	r.GET("/stats", h.GetStats)
}

func NewMessageHandler(svc QueryService) *MessageHandler {
	return &MessageHandler{
		svc: svc,
	}
}

// messageItem shapes a row with the externally visible field names
// (from/to rather than the internal msisdn columns).
type messageItem struct {
	MessageID string  `json:"message_id"`
	From      string  `json:"from"`
	To        string  `json:"to"`
	TS        string  `json:"ts"`
	Text      *string `json:"text"`
}

type listResponse struct {
	Data   []messageItem `json:"data"`
	Total  int64         `json:"total"`
	Limit  int           `json:"limit"`
	Offset int           `json:"offset"`
}

/* --------------------------------- Routes ----------------------------------- */

func (h *MessageHandler) ListMessages(ctx *xhttp.RequestCtx) {
	var f model.MessageFilter

	// limit/offset are validated strictly: out-of-range or empty values
	// are a request error, not clamped. A present-but-empty parameter
	// (?limit=) is rejected the same as a non-integer one.
	limit := defaultLimit
	if ctx.QueryArgs().Has("limit") {
		n, err := strconv.Atoi(query(ctx, "limit"))
		if err != nil || n < 1 || n > maxLimit {
			writeDetail(ctx, xhttp.StatusUnprocessableEntity, "limit must be an integer between 1 and 100")
			return
		}
		limit = n
	}
	offset := 0
	if ctx.QueryArgs().Has("offset") {
		n, err := strconv.Atoi(query(ctx, "offset"))
		if err != nil || n < 0 {
			writeDetail(ctx, xhttp.StatusUnprocessableEntity, "offset must be a non-negative integer")
			return
		}
		offset = n
	}
	f.Limit = limit
	f.Offset = offset

	// filters pass through verbatim
	if v := query(ctx, "from"); v != "" {
		f.From = &v
	}
	if v := query(ctx, "since"); v != "" {
		f.Since = &v
	}
	if v := query(ctx, "q"); v != "" {
		f.Query = &v
	}

	items, total, err := h.svc.List(ctx, f)
	if err != nil {
		writeDetail(ctx, xhttp.StatusInternalServerError, "internal server error")
		return
	}

	data := make([]messageItem, 0, len(items))
	for _, m := range items {
		data = append(data, messageItem{
			MessageID: m.MessageID,
			From:      m.From,
			To:        m.To,
			TS:        m.TS,
			Text:      m.Text,
		})
	}

	writeJSON(ctx, xhttp.StatusOK, listResponse{
		Data:   data,
		Total:  total,
		Limit:  limit,
		Offset: offset,
	})
}

func (h *MessageHandler) GetStats(ctx *xhttp.RequestCtx) {
	stats, err := h.svc.Stats(ctx)
	if err != nil {
		writeDetail(ctx, xhttp.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(ctx, xhttp.StatusOK, stats)
}

func writeJSON(ctx *xhttp.RequestCtx, status int, v any) {
	b, _ := json.Marshal(v)
	ctx.Response.Header.Set("Content-Type", "application/json; charset=utf-8")
	ctx.Response.SetStatusCode(status)
	ctx.Response.SetBodyRaw(b)
}

func writeDetail(ctx *xhttp.RequestCtx, status int, msg string) {
	writeJSON(ctx, status, map[string]string{"detail": msg})
}

func query(ctx *xhttp.RequestCtx, key string) string {
	return string(ctx.QueryArgs().Peek(key))
}
