// Package payments creates card payment intents and keeps the local product
// catalog in step with the payment processor.
package payments

import (
	"context"
	"errors"
	"math"
)

var (
	ErrPaymentNotFound = errors.New("payment not found")
	ErrUserNotFound    = errors.New("user not found")
	ErrNotOwner        = errors.New("payment belongs to another user")
	ErrAlreadySettled  = errors.New("payment is already settled")
)

const (
	ModePayment      = "payment"
	ModeSubscription = "subscription"
)

// Processor is the slice of the card processor used by this service.
type Processor interface {
	CreateCustomer(ctx context.Context, params CustomerParams) (string, error)
	CreatePaymentIntent(ctx context.Context, params IntentParams) (Intent, error)
	ListActiveProducts(ctx context.Context) ([]Product, error)
}

type CustomerParams struct {
	UserID int64
	Email  string
	Name   string
}

type IntentParams struct {
	// Amount is in minor currency units.
	Amount     int64
	Currency   string
	CustomerID string
	Metadata   map[string]string
}

type Intent struct {
	ID           string `json:"paymentIntentId"`
	ClientSecret string `json:"clientSecret"`
}

// Product is the normalized projection of a processor product and its
// default price.
type Product struct {
	ID          string  `json:"id"`
	PriceID     string  `json:"priceId"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Mode        string  `json:"mode"`
	Price       float64 `json:"price"`
	Currency    string  `json:"currency"`
	Interval    *string `json:"interval"`
}

// Outstanding is the amount still owed, in major units.
func Outstanding(amountDue, amountPaid float64) float64 {
	return amountDue - amountPaid
}

// ToMinorUnits converts a major-unit amount to the nearest minor unit.
func ToMinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// FromMinorUnits converts minor units back to major units.
func FromMinorUnits(amount int64) float64 {
	return float64(amount) / 100
}
