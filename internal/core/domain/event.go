package domain

import "time"

// EventType is the gateway's webhook event type label.
type EventType string

const (
	EventPaymentSucceeded    EventType = "payment_intent.succeeded"
	EventPaymentFailed       EventType = "payment_intent.payment_failed"
	EventInvoicePaid         EventType = "invoice.payment_succeeded"
	EventSubscriptionUpdated EventType = "customer.subscription.updated"
	EventSubscriptionDeleted EventType = "customer.subscription.deleted"
)

// PaymentIntentData is the payload of payment_intent.* events.
type PaymentIntentData struct {
	IntentID      string
	CustomerID    string
	Amount        int64
	Currency      string
	Description   string
	Metadata      map[string]string
	PaymentMethod string
	ReceiptURL    string
	FailureReason string
}

// InvoiceData is the payload of invoice.* events.
type InvoiceData struct {
	InvoiceID      string
	SubscriptionID string
	PeriodStart    time.Time
	PeriodEnd      time.Time
}

// SubscriptionData is the payload of customer.subscription.* events.
type SubscriptionData struct {
	SubscriptionID string
	CustomerID     string
	State          SubscriptionState
}

// GatewayEvent is a verified webhook delivery. Exactly one of the payload
// pointers is set for recognized types.
type GatewayEvent struct {
	ID           string
	Type         EventType
	ObjectID     string
	Created      time.Time
	Payment      *PaymentIntentData
	Invoice      *InvoiceData
	Subscription *SubscriptionData
}

// WebhookEventRecord is the durable "seen" marker for a provider event.
type WebhookEventRecord struct {
	EventID     string     `json:"event_id" bson:"_id"`
	Type        EventType  `json:"type" bson:"type"`
	ObjectID    string     `json:"object_id" bson:"object_id"`
	ReceivedAt  time.Time  `json:"received_at" bson:"received_at"`
	ProcessedAt *time.Time `json:"processed_at,omitempty" bson:"processed_at,omitempty"`
	Attempts    int        `json:"attempts" bson:"attempts"`
	LastError   string     `json:"last_error,omitempty" bson:"last_error,omitempty"`
}

// Processed reports whether the event has been applied.
func (r *WebhookEventRecord) Processed() bool {
	return r != nil && r.ProcessedAt != nil
}
