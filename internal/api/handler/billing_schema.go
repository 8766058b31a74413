package handler

import "time"

type paymentIntentRequest struct {
	Amount      int64             `json:"amount"      validate:"required,gt=0"`
	Currency    string            `json:"currency"    validate:"omitempty,len=3"`
	Description string            `json:"description" validate:"max=500"`
	Metadata    map[string]string `json:"metadata"`
}

type paymentIntentResponse struct {
	PaymentIntentID string `json:"payment_intent_id"`
	ClientSecret    string `json:"client_secret"`
	Status          string `json:"status"`
}

type paymentResponse struct {
	ID              string            `json:"id"`
	PaymentIntentID string            `json:"payment_intent_id"`
	Amount          int64             `json:"amount"`
	Currency        string            `json:"currency"`
	Status          string            `json:"status"`
	Description     string            `json:"description,omitempty"`
	Metadata        map[string]string `json:"metadata,omitempty"`
	PaymentMethod   string            `json:"payment_method,omitempty"`
	ReceiptURL      string            `json:"receipt_url,omitempty"`
	FailureReason   string            `json:"failure_reason,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

type createSubscriptionRequest struct {
	PriceID      string `json:"price_id"      validate:"required"`
	PackageLabel string `json:"package_label" validate:"max=100"`
}

type createSubscriptionResponse struct {
	SubscriptionID        string `json:"subscription_id"`
	GatewaySubscriptionID string `json:"gateway_subscription_id"`
	ClientSecret          string `json:"client_secret,omitempty"`
	Status                string `json:"status"`
}

type changePlanRequest struct {
	NewPriceID string `json:"new_price_id" validate:"required"`
}

type cancelSubscriptionRequest struct {
	AtPeriodEnd bool `json:"at_period_end"`
}

type subscriptionResponse struct {
	ID                    string     `json:"id"`
	GatewaySubscriptionID string     `json:"gateway_subscription_id"`
	PriceID               string     `json:"price_id"`
	PackageLabel          string     `json:"package_label"`
	Status                string     `json:"status"`
	Amount                int64      `json:"amount"`
	Currency              string     `json:"currency"`
	Interval              string     `json:"interval"`
	IntervalCount         int64      `json:"interval_count"`
	CurrentPeriodStart    *time.Time `json:"current_period_start,omitempty"`
	CurrentPeriodEnd      *time.Time `json:"current_period_end,omitempty"`
	CancelAtPeriodEnd     bool       `json:"cancel_at_period_end"`
	CanceledAt            *time.Time `json:"canceled_at,omitempty"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
}

type webhookAckResponse struct {
	Received bool `json:"received"`
}
