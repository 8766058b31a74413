package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/2pbal/account-billing/internal/api/metrics"
	"github.com/2pbal/account-billing/internal/core/ports"
)

// PaymentHandler serves one-off payments.
type PaymentHandler struct {
	billing ports.BillingService
}

func NewPaymentHandler(billing ports.BillingService) *PaymentHandler {
	return &PaymentHandler{billing: billing}
}

// CreateIntent opens a payment intent for the signed-in account and returns
// the client secret used to confirm it.
//
// @Summary      Create payment intent
// @Tags         payments
// @Accept       json
// @Produce      json
// @Security     SessionCookie
// @Param        body  body      paymentIntentRequest  true  "Amount in minor units"
// @Success      201   {object}  paymentIntentResponse
// @Failure      422   {object}  errorResponse
// @Failure      502   {object}  errorResponse
// @Failure      503   {object}  errorResponse
// @Router       /payments/intent [post]
func (h *PaymentHandler) CreateIntent(c echo.Context) error {
	account, err := ctxAccount(c)
	if err != nil {
		return err
	}
	var req paymentIntentRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	res, err := h.billing.CreatePaymentIntent(c.Request().Context(), account, ports.CreatePaymentInput{
		Amount:      req.Amount,
		Currency:    req.Currency,
		Description: req.Description,
		Metadata:    req.Metadata,
	})
	if err != nil {
		return err
	}

	currency := strings.ToLower(req.Currency)
	if currency == "" {
		currency = "usd"
	}
	metrics.PaymentIntentsCreatedTotal.WithLabelValues(currency).Inc()

	return c.JSON(http.StatusCreated, paymentIntentResponse{
		PaymentIntentID: res.IntentID,
		ClientSecret:    res.ClientToken,
		Status:          res.Status,
	})
}

// List returns the payment history of the signed-in account.
//
// @Summary      List payments
// @Tags         payments
// @Produce      json
// @Security     SessionCookie
// @Param        limit  query     int  false  "Max records (default 50, max 200)"
// @Success      200    {array}   paymentResponse
// @Router       /payments [get]
func (h *PaymentHandler) List(c echo.Context) error {
	account, err := ctxAccount(c)
	if err != nil {
		return err
	}
	limit, err := queryInt(c, "limit")
	if err != nil {
		return err
	}

	records, err := h.billing.ListPayments(c.Request().Context(), account.ID, limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toPaymentResponses(records))
}
