package stripe

import (
	"encoding/hex"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v76/webhook"

	"github.com/2pbal/account-billing/internal/core/domain"
)

const testWebhookSecret = "whsec_test"

func signedHeader(payload []byte, secret string, at time.Time) string {
	sig := webhook.ComputeSignature(at, payload, secret)
	return fmt.Sprintf("t=%d,v1=%s", at.Unix(), hex.EncodeToString(sig))
}

func webhookGateway() *Gateway {
	return New(Config{SecretKey: "sk_test", WebhookSecret: testWebhookSecret}, zerolog.Nop())
}

func eventPayload(id, typ, object string) []byte {
	return []byte(fmt.Sprintf(
		`{"id":%q,"object":"event","type":%q,"created":1700000000,"api_version":"2023-10-16","data":{"object":%s}}`,
		id, typ, object))
}

func TestParseWebhook_PaymentSucceeded(t *testing.T) {
	payload := eventPayload("evt_1", "payment_intent.succeeded", `{
		"id": "pi_1", "object": "payment_intent", "amount": 2500, "currency": "usd",
		"customer": "cus_1", "description": "Top up",
		"metadata": {"account_id": "acc-1"},
		"payment_method": {"id": "pm_1", "object": "payment_method", "type": "card",
			"card": {"brand": "visa", "last4": "4242"}},
		"latest_charge": {"id": "ch_1", "object": "charge", "receipt_url": "https://pay.example/r/1"}
	}`)

	ev, err := webhookGateway().ParseWebhook(payload, signedHeader(payload, testWebhookSecret, time.Now()))
	require.NoError(t, err)

	assert.Equal(t, "evt_1", ev.ID)
	assert.Equal(t, domain.EventPaymentSucceeded, ev.Type)
	assert.Equal(t, "pi_1", ev.ObjectID)
	assert.Equal(t, time.Unix(1700000000, 0).UTC(), ev.Created)
	require.NotNil(t, ev.Payment)
	assert.Equal(t, int64(2500), ev.Payment.Amount)
	assert.Equal(t, "usd", ev.Payment.Currency)
	assert.Equal(t, "cus_1", ev.Payment.CustomerID)
	assert.Equal(t, "acc-1", ev.Payment.Metadata["account_id"])
	assert.Equal(t, "visa 4242", ev.Payment.PaymentMethod)
	assert.Equal(t, "https://pay.example/r/1", ev.Payment.ReceiptURL)
}

func TestParseWebhook_PaymentFailedCarriesReason(t *testing.T) {
	payload := eventPayload("evt_2", "payment_intent.payment_failed", `{
		"id": "pi_2", "object": "payment_intent", "amount": 900, "currency": "eur",
		"payment_method_types": ["card"],
		"last_payment_error": {"type": "card_error", "code": "card_declined", "message": "Your card was declined."}
	}`)

	ev, err := webhookGateway().ParseWebhook(payload, signedHeader(payload, testWebhookSecret, time.Now()))
	require.NoError(t, err)
	require.NotNil(t, ev.Payment)
	assert.Equal(t, "card", ev.Payment.PaymentMethod)
	assert.Equal(t, "Your card was declined.", ev.Payment.FailureReason)
}

func TestParseWebhook_InvoiceOrderedBySubscription(t *testing.T) {
	payload := eventPayload("evt_3", "invoice.payment_succeeded", `{
		"id": "in_1", "object": "invoice", "subscription": "sub_1",
		"period_start": 1690000000, "period_end": 1700000000,
		"lines": {"object": "list", "data": [{"id": "il_1", "object": "line_item",
			"period": {"start": 1700000000, "end": 1702592000}}]}
	}`)

	ev, err := webhookGateway().ParseWebhook(payload, signedHeader(payload, testWebhookSecret, time.Now()))
	require.NoError(t, err)
	assert.Equal(t, "sub_1", ev.ObjectID)
	require.NotNil(t, ev.Invoice)
	assert.Equal(t, "in_1", ev.Invoice.InvoiceID)
	assert.Equal(t, time.Unix(1700000000, 0).UTC(), ev.Invoice.PeriodStart)
	assert.Equal(t, time.Unix(1702592000, 0).UTC(), ev.Invoice.PeriodEnd)
}

func TestParseWebhook_SubscriptionDeleted(t *testing.T) {
	payload := eventPayload("evt_4", "customer.subscription.deleted", `{
		"id": "sub_1", "object": "subscription", "status": "canceled", "customer": "cus_1",
		"canceled_at": 1700000500
	}`)

	ev, err := webhookGateway().ParseWebhook(payload, signedHeader(payload, testWebhookSecret, time.Now()))
	require.NoError(t, err)
	require.NotNil(t, ev.Subscription)
	assert.Equal(t, "sub_1", ev.ObjectID)
	assert.Equal(t, "cus_1", ev.Subscription.CustomerID)
	assert.Equal(t, domain.SubscriptionCanceled, ev.Subscription.State.Status)
}

func TestParseWebhook_UnknownTypeUsesObjectID(t *testing.T) {
	payload := eventPayload("evt_5", "charge.refunded", `{"id": "ch_9", "object": "charge"}`)

	ev, err := webhookGateway().ParseWebhook(payload, signedHeader(payload, testWebhookSecret, time.Now()))
	require.NoError(t, err)
	assert.Equal(t, "ch_9", ev.ObjectID)
	assert.Nil(t, ev.Payment)
	assert.Nil(t, ev.Invoice)
	assert.Nil(t, ev.Subscription)
}

func TestParseWebhook_RejectsBadSignatures(t *testing.T) {
	payload := eventPayload("evt_6", "payment_intent.succeeded", `{"id": "pi_1", "object": "payment_intent"}`)

	cases := map[string]string{
		"wrong secret": signedHeader(payload, "whsec_other", time.Now()),
		"stale":        signedHeader(payload, testWebhookSecret, time.Now().Add(-time.Hour)),
		"missing":      "",
		"garbage":      "not-a-signature",
	}
	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := webhookGateway().ParseWebhook(payload, header)
			assert.True(t, errors.Is(err, domain.ErrSignature), "got %v", err)
		})
	}
}

func TestParseWebhook_TamperedPayload(t *testing.T) {
	payload := eventPayload("evt_7", "payment_intent.succeeded", `{"id": "pi_1", "object": "payment_intent", "amount": 100}`)
	header := signedHeader(payload, testWebhookSecret, time.Now())
	tampered := eventPayload("evt_7", "payment_intent.succeeded", `{"id": "pi_1", "object": "payment_intent", "amount": 999}`)

	_, err := webhookGateway().ParseWebhook(tampered, header)
	assert.ErrorIs(t, err, domain.ErrSignature)
}

func TestParseWebhook_NoSecretConfigured(t *testing.T) {
	g := New(Config{SecretKey: "sk_test"}, zerolog.Nop())
	payload := eventPayload("evt_8", "payment_intent.succeeded", `{"id": "pi_1", "object": "payment_intent"}`)

	_, err := g.ParseWebhook(payload, signedHeader(payload, "", time.Now()))
	assert.ErrorIs(t, err, domain.ErrSignature)
}
