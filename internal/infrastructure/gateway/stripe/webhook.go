package stripe

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	stripe "github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"

	"github.com/2pbal/account-billing/internal/core/domain"
)

// ParseWebhook verifies the Stripe-Signature header against the endpoint
// secret and decodes the event payload. Verification failures, including a
// stale timestamp, return domain.ErrSignature.
func (g *Gateway) ParseWebhook(payload []byte, signatureHeader string) (*domain.GatewayEvent, error) {
	if g.webhookSecret == "" {
		return nil, fmt.Errorf("%w: webhook secret not configured", domain.ErrSignature)
	}
	ev, err := webhook.ConstructEventWithOptions(payload, signatureHeader, g.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSignature, err)
	}
	return decodeEvent(&ev)
}

func decodeEvent(ev *stripe.Event) (*domain.GatewayEvent, error) {
	out := &domain.GatewayEvent{
		ID:      ev.ID,
		Type:    domain.EventType(ev.Type),
		Created: time.Unix(ev.Created, 0).UTC(),
	}
	if ev.Data == nil {
		return nil, errors.New("stripe event without data")
	}
	raw := ev.Data.Raw

	switch out.Type {
	case domain.EventPaymentSucceeded, domain.EventPaymentFailed:
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(raw, &pi); err != nil {
			return nil, fmt.Errorf("decode payment intent: %w", err)
		}
		out.ObjectID = pi.ID
		out.Payment = paymentData(&pi)

	case domain.EventInvoicePaid:
		var inv stripe.Invoice
		if err := json.Unmarshal(raw, &inv); err != nil {
			return nil, fmt.Errorf("decode invoice: %w", err)
		}
		out.Invoice = invoiceData(&inv)
		// Invoices are ordered with the subscription they advance.
		out.ObjectID = out.Invoice.SubscriptionID
		if out.ObjectID == "" {
			out.ObjectID = inv.ID
		}

	case domain.EventSubscriptionUpdated, domain.EventSubscriptionDeleted:
		var s stripe.Subscription
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("decode subscription: %w", err)
		}
		out.ObjectID = s.ID
		out.Subscription = &domain.SubscriptionData{
			SubscriptionID: s.ID,
			State:          subscriptionState(&s),
		}
		if s.Customer != nil {
			out.Subscription.CustomerID = s.Customer.ID
		}

	default:
		if id, ok := ev.Data.Object["id"].(string); ok {
			out.ObjectID = id
		}
	}
	if out.ObjectID == "" {
		out.ObjectID = ev.ID
	}
	return out, nil
}

func paymentData(pi *stripe.PaymentIntent) *domain.PaymentIntentData {
	d := &domain.PaymentIntentData{
		IntentID:    pi.ID,
		Amount:      pi.Amount,
		Currency:    string(pi.Currency),
		Description: pi.Description,
		Metadata:    pi.Metadata,
	}
	if pi.Customer != nil {
		d.CustomerID = pi.Customer.ID
	}
	d.PaymentMethod = paymentMethodLabel(pi)
	if pi.LatestCharge != nil {
		d.ReceiptURL = pi.LatestCharge.ReceiptURL
	}
	if pi.LastPaymentError != nil {
		d.FailureReason = pi.LastPaymentError.Msg
		if d.FailureReason == "" {
			d.FailureReason = string(pi.LastPaymentError.Code)
		}
	}
	return d
}

// paymentMethodLabel prefers "visa 4242" when the card is expanded and falls
// back to the instrument type.
func paymentMethodLabel(pi *stripe.PaymentIntent) string {
	if pm := pi.PaymentMethod; pm != nil {
		if pm.Card != nil && pm.Card.Last4 != "" {
			return fmt.Sprintf("%s %s", pm.Card.Brand, pm.Card.Last4)
		}
		if pm.Type != "" {
			return string(pm.Type)
		}
	}
	if len(pi.PaymentMethodTypes) > 0 {
		return pi.PaymentMethodTypes[0]
	}
	return ""
}

func invoiceData(inv *stripe.Invoice) *domain.InvoiceData {
	d := &domain.InvoiceData{
		InvoiceID:   inv.ID,
		PeriodStart: time.Unix(inv.PeriodStart, 0).UTC(),
		PeriodEnd:   time.Unix(inv.PeriodEnd, 0).UTC(),
	}
	if inv.Subscription != nil {
		d.SubscriptionID = inv.Subscription.ID
	}
	// The subscription line carries the period being paid for; the invoice's
	// own period is the one that just ended.
	if inv.Lines != nil {
		for _, line := range inv.Lines.Data {
			if line != nil && line.Period != nil && line.Period.End > 0 {
				d.PeriodStart = time.Unix(line.Period.Start, 0).UTC()
				d.PeriodEnd = time.Unix(line.Period.End, 0).UTC()
				break
			}
		}
	}
	return d
}
