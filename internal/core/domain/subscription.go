package domain

import "time"

// SubscriptionStatus mirrors the gateway's subscription states.
type SubscriptionStatus string

const (
	SubscriptionIncomplete        SubscriptionStatus = "incomplete"
	SubscriptionIncompleteExpired SubscriptionStatus = "incomplete_expired"
	SubscriptionTrialing          SubscriptionStatus = "trialing"
	SubscriptionActive            SubscriptionStatus = "active"
	SubscriptionPastDue           SubscriptionStatus = "past_due"
	SubscriptionUnpaid            SubscriptionStatus = "unpaid"
	SubscriptionCanceled          SubscriptionStatus = "canceled"
	SubscriptionPaused            SubscriptionStatus = "paused"
)

// TerminalSubscriptionStatuses never change once recorded.
var TerminalSubscriptionStatuses = []SubscriptionStatus{
	SubscriptionCanceled,
	SubscriptionIncompleteExpired,
}

// Terminal reports whether s is a terminal status.
func (s SubscriptionStatus) Terminal() bool {
	for _, t := range TerminalSubscriptionStatuses {
		if s == t {
			return true
		}
	}
	return false
}

// SubscriptionRecord is the local mirror of a gateway subscription.
type SubscriptionRecord struct {
	ID                    string             `json:"id" bson:"_id"`
	AccountID             string             `json:"account_id" bson:"account_id"`
	GatewaySubscriptionID string             `json:"gateway_subscription_id" bson:"gateway_subscription_id"`
	GatewayCustomerID     string             `json:"gateway_customer_id" bson:"gateway_customer_id"`
	GatewayPriceID        string             `json:"gateway_price_id" bson:"gateway_price_id"`
	PackageLabel          string             `json:"package_label" bson:"package_label"`
	Status                SubscriptionStatus `json:"status" bson:"status"`
	CurrentPeriodStart    *time.Time         `json:"current_period_start,omitempty" bson:"current_period_start,omitempty"`
	CurrentPeriodEnd      *time.Time         `json:"current_period_end,omitempty" bson:"current_period_end,omitempty"`
	Amount                int64              `json:"amount" bson:"amount"`
	Currency              string             `json:"currency" bson:"currency"`
	Interval              string             `json:"interval" bson:"interval"`
	IntervalCount         int64              `json:"interval_count" bson:"interval_count"`
	CancelAtPeriodEnd     bool               `json:"cancel_at_period_end" bson:"cancel_at_period_end"`
	CanceledAt            *time.Time         `json:"canceled_at" bson:"canceled_at"`
	CreatedAt             time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt             time.Time          `json:"updated_at" bson:"updated_at"`
}

// SubscriptionState is the gateway-confirmed view of a subscription. It is
// what lifecycle calls and webhook events write onto a SubscriptionRecord.
type SubscriptionState struct {
	Status             SubscriptionStatus
	PriceID            string
	Amount             int64
	Currency           string
	Interval           string
	IntervalCount      int64
	CurrentPeriodStart *time.Time
	CurrentPeriodEnd   *time.Time
	CancelAtPeriodEnd  bool
	CanceledAt         *time.Time
}

// ApplyState copies the gateway status, price and cancellation flags onto r.
// The billing period is left alone; see AdvancePeriod.
func (r *SubscriptionRecord) ApplyState(st SubscriptionState) {
	if st.Status != "" {
		r.Status = st.Status
	}
	if st.PriceID != "" {
		r.GatewayPriceID = st.PriceID
		r.Amount = st.Amount
		r.Currency = st.Currency
		r.Interval = st.Interval
		r.IntervalCount = st.IntervalCount
	}
	r.CancelAtPeriodEnd = st.CancelAtPeriodEnd
	r.CanceledAt = st.CanceledAt
}

// AdvancePeriod moves the billing window forward. A window that ends before
// the current one is ignored and false is returned.
func (r *SubscriptionRecord) AdvancePeriod(start, end time.Time) bool {
	if r.CurrentPeriodEnd != nil && end.Before(*r.CurrentPeriodEnd) {
		return false
	}
	r.CurrentPeriodStart = &start
	r.CurrentPeriodEnd = &end
	return true
}
