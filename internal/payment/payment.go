// Package payment talks to the payment provider and decides whether a
// provider confirmation is genuine. Everything here runs on the backend.
package payment

import (
	"github.com/fjod/go_food/internal/money"
)

const DefaultCurrency = "INR"

// Order is the provider-side payment order opened for one checkout attempt.
type Order struct {
	ProviderOrderID string
	Amount          money.Amount // minor units
	Currency        string
	Receipt         string
	Status          string
}

// AmountMinor returns the immutable paise amount.
func (o Order) AmountMinor() int64 {
	v, _ := o.Amount.MinorUnits()
	return v
}

type Outcome string

const (
	Verified          Outcome = "VERIFIED"
	SignatureMismatch Outcome = "SIGNATURE_MISMATCH"
	MissingFields     Outcome = "MISSING_FIELDS"
)

func (o Outcome) String() string {
	return string(o)
}
