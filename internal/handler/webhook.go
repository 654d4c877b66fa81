package handler

import (
	"errors"
	"io"
	"net/http"

	"arcpay-merchant/internal/dto"
	"arcpay-merchant/internal/metrics"
	"arcpay-merchant/internal/service"
	"arcpay-merchant/internal/signature"

	"github.com/labstack/echo/v4"
)

type WebhookHandler struct {
	reconcileService service.ReconcileService
}

func NewWebhookHandler(reconcileService service.ReconcileService) *WebhookHandler {
	return &WebhookHandler{reconcileService: reconcileService}
}

// HandleWebhook ingests gateway notifications. The response is always
// definitive: 400 for a missing signature or unparsable body, 403 for
// a signature mismatch, 200 for everything else — including no-op
// reconciliations and unknown event types, so the gateway stops
// redelivering.
func (h *WebhookHandler) HandleWebhook(c echo.Context) error {
	sig := c.Request().Header.Get(signature.Header)
	if sig == "" {
		metrics.WebhooksTotal.WithLabelValues("bad_request").Inc()
		return c.JSON(http.StatusBadRequest, &dto.ErrorResponse{Message: "Missing signature header"})
	}

	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		metrics.WebhooksTotal.WithLabelValues("bad_request").Inc()
		return c.JSON(http.StatusBadRequest, &dto.ErrorResponse{Message: "Failed to read request body"})
	}

	result, err := h.reconcileService.HandleWebhook(c.Request().Context(), body, sig)
	if err != nil {
		switch {
		case errors.Is(err, signature.ErrMissingSignature):
			metrics.WebhooksTotal.WithLabelValues("bad_request").Inc()
			return c.JSON(http.StatusBadRequest, &dto.ErrorResponse{Message: "Missing signature header"})
		case errors.Is(err, signature.ErrInvalidSignature):
			metrics.WebhooksTotal.WithLabelValues("unauthorized").Inc()
			return c.JSON(http.StatusForbidden, &dto.ErrorResponse{Message: "Invalid signature"})
		default:
			metrics.WebhooksTotal.WithLabelValues("bad_request").Inc()
			return c.JSON(http.StatusBadRequest, &dto.ErrorResponse{Message: "Invalid JSON format"})
		}
	}

	metrics.WebhooksTotal.WithLabelValues(string(result.Outcome)).Inc()
	return c.JSON(http.StatusOK, &dto.WebhookResponse{Status: "Webhook received successfully"})
}
