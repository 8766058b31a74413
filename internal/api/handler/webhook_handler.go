package handler

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/2pbal/account-billing/internal/api/metrics"
	"github.com/2pbal/account-billing/internal/core/domain"
	"github.com/2pbal/account-billing/internal/core/ports"
)

// SignatureHeader is the header Stripe signs webhook deliveries with.
const SignatureHeader = "Stripe-Signature"

// maxWebhookBody bounds the payload read before verification.
const maxWebhookBody = 256 << 10

// WebhookHandler receives payment provider notifications.
type WebhookHandler struct {
	webhooks ports.WebhookService
}

func NewWebhookHandler(webhooks ports.WebhookService) *WebhookHandler {
	return &WebhookHandler{webhooks: webhooks}
}

// Receive verifies and records a delivery. A 2xx tells the provider to stop
// retrying; it is returned once the event is stored, even if applying it
// failed.
//
// @Summary      Payment webhook
// @Tags         webhooks
// @Accept       json
// @Produce      json
// @Param        Stripe-Signature  header    string  true  "Provider signature"
// @Success      200               {object}  webhookAckResponse
// @Failure      400               {object}  errorResponse
// @Router       /webhooks/payment [post]
func (h *WebhookHandler) Receive(c echo.Context) error {
	start := time.Now()
	defer func() { metrics.WebhookReceiveDuration.Observe(time.Since(start).Seconds()) }()

	// The signature covers the exact bytes, so the body is read raw.
	payload, err := io.ReadAll(io.LimitReader(c.Request().Body, maxWebhookBody+1))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "unreadable body")
	}
	if len(payload) > maxWebhookBody {
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, "payload too large")
	}

	err = h.webhooks.Receive(c.Request().Context(), payload, c.Request().Header.Get(SignatureHeader))
	switch {
	case err == nil:
		metrics.WebhookDeliveriesTotal.WithLabelValues("accepted").Inc()
	case errors.Is(err, domain.ErrSignature):
		metrics.WebhookDeliveriesTotal.WithLabelValues("rejected").Inc()
		return err
	default:
		metrics.WebhookDeliveriesTotal.WithLabelValues("error").Inc()
		return err
	}
	return c.JSON(http.StatusOK, webhookAckResponse{Received: true})
}
