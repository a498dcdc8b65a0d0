package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Contract names the provider response shape a Session was normalised from.
type Contract string

const (
	ContractCheckoutSession Contract = "checkout_session.v1"
	ContractPaymentIntent   Contract = "payment_intent.v1"
)

var ErrSessionNotFound = errors.New("payment session not found")

// ProviderError carries the provider's HTTP status and error payload.
type ProviderError struct {
	StatusCode int
	Message    string
	Details    json.RawMessage
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("payment provider error (status %d): %s", e.StatusCode, e.Message)
}

type OpenSessionRequest struct {
	Amount        decimal.Decimal
	Currency      string
	CustomerEmail string
	Description   string
	SuccessURL    string
	CancelURL     string
	Metadata      map[string]string
}

type PaymentIntent struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// Session is the provider-neutral view of a checkout session or payment intent.
type Session struct {
	Reference     string            `json:"id"`
	Token         string            `json:"session_token,omitempty"`
	RedirectURL   string            `json:"redirect_url,omitempty"`
	Status        string            `json:"status"`
	PaymentIntent *PaymentIntent    `json:"payment_intent,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
	Contract      Contract          `json:"contract"`
}

func (s *Session) PaymentIntentID() string {
	if s == nil || s.PaymentIntent == nil {
		return ""
	}
	return s.PaymentIntent.ID
}

type Gateway interface {
	Name() string
	OpenSession(ctx context.Context, req OpenSessionRequest) (*Session, error)
	FetchSession(ctx context.Context, ref string) (*Session, error)
}

var zeroDecimalCurrencies = map[string]bool{
	"CLP": true,
	"JPY": true,
	"KRW": true,
	"PYG": true,
	"VND": true,
}

// MinorUnits converts an amount to the integer unit providers expect.
func MinorUnits(amount decimal.Decimal, currency string) int64 {
	if zeroDecimalCurrencies[strings.ToUpper(currency)] {
		return amount.Round(0).IntPart()
	}
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}
