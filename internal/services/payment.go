package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/stripe/stripe-go/v83"
	"github.com/stripe/stripe-go/v83/paymentintent"
	"github.com/stripe/stripe-go/v83/webhook"

	"leafsense_back_end/internal/models"
)

// zeroDecimal lists the currencies Stripe charges in whole units.
var zeroDecimal = map[string]bool{"vnd": true, "jpy": true, "krw": true, "clp": true}

type Intent struct {
	ID           string
	ClientSecret string
}

// StripePayments creates PaymentIntents for orders paid by card.
type StripePayments struct {
	currency      string
	webhookSecret string
}

func NewStripePayments(secretKey, webhookSecret, currency string) *StripePayments {
	if secretKey == "" {
		return nil
	}
	stripe.Key = secretKey
	return &StripePayments{currency: strings.ToLower(currency), webhookSecret: webhookSecret}
}

func (s *StripePayments) CreateIntent(ctx context.Context, order *models.Order) (*Intent, error) {
	if s == nil {
		return nil, errors.New("card payments are not configured")
	}
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(MinorUnits(order.TotalAmount, s.currency)),
		Currency: stripe.String(s.currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	params.AddMetadata("order_id", strconv.FormatUint(uint64(order.ID), 10))
	params.AddMetadata("user_id", strconv.FormatUint(uint64(order.UserID), 10))

	pi, err := paymentintent.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe payment intent: %w", err)
	}
	return &Intent{ID: pi.ID, ClientSecret: pi.ClientSecret}, nil
}

// PaidOrder verifies a webhook payload and returns the order id of a
// succeeded PaymentIntent, or 0 for events that do not concern us.
func (s *StripePayments) PaidOrder(payload []byte, signature string) (uint, error) {
	if s == nil || s.webhookSecret == "" {
		return 0, errors.New("stripe webhook secret not configured")
	}
	event, err := webhook.ConstructEventWithOptions(payload, signature, s.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return 0, fmt.Errorf("invalid signature: %w", err)
	}
	if event.Type != "payment_intent.succeeded" {
		return 0, nil
	}
	var pi stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
		return 0, fmt.Errorf("decode payment intent: %w", err)
	}
	id, err := strconv.ParseUint(pi.Metadata["order_id"], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("payment intent %s has no order_id", pi.ID)
	}
	return uint(id), nil
}

func MinorUnits(amount float64, currency string) int64 {
	if zeroDecimal[strings.ToLower(currency)] {
		return int64(math.Round(amount))
	}
	return int64(math.Round(amount * 100))
}
