package domain

import "time"

// PaymentStatus mirrors the lifecycle of a gateway payment intent.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentSucceeded PaymentStatus = "succeeded"
	PaymentFailed    PaymentStatus = "failed"
)

// paymentTransitions is the status lattice. A failed intent may still be
// retried by the customer and succeed; succeeded is terminal.
var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentPending: {PaymentSucceeded, PaymentFailed},
	PaymentFailed:  {PaymentSucceeded},
}

// CanTransitionTo reports whether a transition from s to next is valid.
func (s PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
	for _, allowed := range paymentTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transition is permitted from s.
func (s PaymentStatus) Terminal() bool {
	return len(paymentTransitions[s]) == 0
}

// PaymentPredecessors returns every status that may transition into next.
// Repositories use it as the compare-and-set precondition.
func PaymentPredecessors(next PaymentStatus) []PaymentStatus {
	var from []PaymentStatus
	for _, s := range []PaymentStatus{PaymentPending, PaymentSucceeded, PaymentFailed} {
		if s.CanTransitionTo(next) {
			from = append(from, s)
		}
	}
	return from
}

// PaymentRecord mirrors one gateway payment intent.
type PaymentRecord struct {
	ID                string            `json:"id" bson:"_id"`
	AccountID         string            `json:"account_id" bson:"account_id"`
	GatewayIntentID   string            `json:"gateway_intent_id" bson:"gateway_intent_id"`
	GatewayCustomerID string            `json:"gateway_customer_id,omitempty" bson:"gateway_customer_id,omitempty"`
	Amount            int64             `json:"amount" bson:"amount"`
	Currency          string            `json:"currency" bson:"currency"`
	Status            PaymentStatus     `json:"status" bson:"status"`
	Description       string            `json:"description,omitempty" bson:"description,omitempty"`
	Metadata          map[string]string `json:"metadata,omitempty" bson:"metadata,omitempty"`
	PaymentMethod     string            `json:"payment_method,omitempty" bson:"payment_method,omitempty"`
	ReceiptURL        string            `json:"receipt_url,omitempty" bson:"receipt_url,omitempty"`
	FailureReason     string            `json:"failure_reason,omitempty" bson:"failure_reason,omitempty"`
	CreatedAt         time.Time         `json:"created_at" bson:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at" bson:"updated_at"`
}

// PaymentOutcome carries the fields written alongside a status transition.
type PaymentOutcome struct {
	PaymentMethod string
	ReceiptURL    string
	FailureReason string
}
