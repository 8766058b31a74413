package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/2pbal/account-billing/internal/api/metrics"
	"github.com/2pbal/account-billing/internal/core/ports"
)

// SubscriptionHandler serves recurring plans of the signed-in account.
type SubscriptionHandler struct {
	subs ports.SubscriptionService
}

func NewSubscriptionHandler(subs ports.SubscriptionService) *SubscriptionHandler {
	return &SubscriptionHandler{subs: subs}
}

// Create starts a subscription. The first invoice is confirmed by the
// client with the returned secret.
//
// @Summary      Create subscription
// @Tags         subscriptions
// @Accept       json
// @Produce      json
// @Security     SessionCookie
// @Param        body  body      createSubscriptionRequest  true  "Price to subscribe to"
// @Success      201   {object}  createSubscriptionResponse
// @Failure      422   {object}  errorResponse
// @Failure      502   {object}  errorResponse
// @Router       /subscriptions [post]
func (h *SubscriptionHandler) Create(c echo.Context) error {
	account, err := ctxAccount(c)
	if err != nil {
		return err
	}
	var req createSubscriptionRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	res, err := h.subs.Create(c.Request().Context(), account, req.PriceID, req.PackageLabel)
	metrics.SubscriptionOpsTotal.WithLabelValues("create", metrics.Result(err)).Inc()
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, createSubscriptionResponse{
		SubscriptionID:        res.SubscriptionID,
		GatewaySubscriptionID: res.GatewaySubscriptionID,
		ClientSecret:          res.ClientToken,
		Status:                string(res.Status),
	})
}

// List returns the subscriptions of the signed-in account.
//
// @Summary      List subscriptions
// @Tags         subscriptions
// @Produce      json
// @Security     SessionCookie
// @Success      200  {array}  subscriptionResponse
// @Router       /subscriptions [get]
func (h *SubscriptionHandler) List(c echo.Context) error {
	account, err := ctxAccount(c)
	if err != nil {
		return err
	}
	records, err := h.subs.List(c.Request().Context(), account)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toSubscriptionResponses(records))
}

// ChangePlan moves the subscription to another price with proration.
//
// @Summary      Change plan
// @Tags         subscriptions
// @Accept       json
// @Produce      json
// @Security     SessionCookie
// @Param        id    path      string             true  "Subscription ID"
// @Param        body  body      changePlanRequest  true  "New price"
// @Success      200   {object}  subscriptionResponse
// @Failure      403   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Failure      504   {object}  errorResponse
// @Router       /subscriptions/{id} [put]
func (h *SubscriptionHandler) ChangePlan(c echo.Context) error {
	account, err := ctxAccount(c)
	if err != nil {
		return err
	}
	var req changePlanRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	rec, err := h.subs.ChangePlan(c.Request().Context(), account, c.Param("id"), req.NewPriceID)
	metrics.SubscriptionOpsTotal.WithLabelValues("change_plan", metrics.Result(err)).Inc()
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toSubscriptionResponse(rec))
}

// Cancel ends the subscription now or at the end of the paid period.
//
// @Summary      Cancel subscription
// @Tags         subscriptions
// @Accept       json
// @Produce      json
// @Security     SessionCookie
// @Param        id    path      string                     true  "Subscription ID"
// @Param        body  body      cancelSubscriptionRequest  false "Cancel mode"
// @Success      200   {object}  subscriptionResponse
// @Failure      403   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Router       /subscriptions/{id}/cancel [post]
func (h *SubscriptionHandler) Cancel(c echo.Context) error {
	account, err := ctxAccount(c)
	if err != nil {
		return err
	}
	var req cancelSubscriptionRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	rec, err := h.subs.Cancel(c.Request().Context(), account, c.Param("id"), req.AtPeriodEnd)
	metrics.SubscriptionOpsTotal.WithLabelValues("cancel", metrics.Result(err)).Inc()
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toSubscriptionResponse(rec))
}
