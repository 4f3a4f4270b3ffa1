package line

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/line/line-bot-sdk-go/v7/linebot"

	"github.com/memohai/linerag/internal/channel/inbound"
)

const webhookMaxBodyBytes int64 = 1 << 20 // 1 MiB

// Parser verifies the X-Line-Signature header and decodes the events.
// *linebot.Client satisfies it.
type Parser interface {
	ParseRequest(r *http.Request) ([]*linebot.Event, error)
}

// Dispatcher accepts classified events for background handling.
type Dispatcher interface {
	Dispatch(reqCtx context.Context, ev inbound.Event) bool
}

// WebhookHandler receives LINE Messaging API callbacks.
type WebhookHandler struct {
	logger     *slog.Logger
	path       string
	parser     Parser
	dispatcher Dispatcher
}

func NewWebhookHandler(log *slog.Logger, path string, parser Parser, dispatcher Dispatcher) *WebhookHandler {
	if log == nil {
		log = slog.Default()
	}
	return &WebhookHandler{
		logger:     log.With(slog.String("handler", "line_webhook")),
		path:       path,
		parser:     parser,
		dispatcher: dispatcher,
	}
}

func (h *WebhookHandler) Register(e *echo.Echo) {
	e.GET(h.path, h.HandleProbe)
	e.POST(h.path, h.Handle)
}

// HandleProbe responds to health/probe requests on the webhook URL.
func (h *WebhookHandler) HandleProbe(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

// Handle verifies the callback, hands every event to the dispatcher and
// answers at once. Nothing is dispatched unless the signature is valid.
func (h *WebhookHandler) Handle(c echo.Context) error {
	req := c.Request()
	payload, err := io.ReadAll(io.LimitReader(req.Body, webhookMaxBodyBytes+1))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("read body: %v", err))
	}
	if int64(len(payload)) > webhookMaxBodyBytes {
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, fmt.Sprintf("payload too large: max %d bytes", webhookMaxBodyBytes))
	}
	req.Body = io.NopCloser(bytes.NewReader(payload))

	events, err := h.parser.ParseRequest(req)
	if err != nil {
		if errors.Is(err, linebot.ErrInvalidSignature) {
			h.logger.Warn("invalid webhook signature", slog.String("remote_ip", c.RealIP()))
			return echo.NewHTTPError(http.StatusBadRequest, "invalid signature")
		}
		h.logger.Warn("malformed webhook payload", slog.Any("error", err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid webhook payload")
	}

	for _, ev := range events {
		classified := inbound.Classify(ev)
		if !h.dispatcher.Dispatch(req.Context(), classified) {
			continue
		}
		h.logger.Debug("event dispatched",
			slog.String("kind", classified.Kind()),
			slog.String("event_id", ev.WebhookEventID))
	}
	return c.NoContent(http.StatusOK)
}
