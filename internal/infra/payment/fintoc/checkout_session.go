package fintoc

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"

	"github.com/Fintoc-PepeStore2-0/Backend/internal/infra/payment"
)

type checkoutSessionRequest struct {
	Amount        int64             `json:"amount"`
	Currency      string            `json:"currency"`
	CustomerEmail string            `json:"customer_email,omitempty"`
	SuccessURL    string            `json:"success_url,omitempty"`
	CancelURL     string            `json:"cancel_url,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

type checkoutSessionResponse struct {
	ID            string            `json:"id"`
	SessionToken  string            `json:"session_token"`
	Status        string            `json:"status"`
	RedirectURL   string            `json:"redirect_url"`
	PaymentIntent json.RawMessage   `json:"payment_intent"`
	Metadata      map[string]string `json:"metadata"`
}

func (c *Client) createCheckoutSession(ctx context.Context, req payment.OpenSessionRequest) (*payment.Session, error) {
	body := checkoutSessionRequest{
		Amount:        payment.MinorUnits(req.Amount, req.Currency),
		Currency:      req.Currency,
		CustomerEmail: req.CustomerEmail,
		SuccessURL:    req.SuccessURL,
		CancelURL:     req.CancelURL,
		Metadata:      req.Metadata,
	}
	var out checkoutSessionResponse
	if err := c.do(ctx, http.MethodPost, "/checkout_sessions", body, &out); err != nil {
		return nil, err
	}
	return out.toSession(), nil
}

func (c *Client) getCheckoutSession(ctx context.Context, ref string) (*payment.Session, error) {
	var out checkoutSessionResponse
	if err := c.do(ctx, http.MethodGet, "/checkout_sessions/"+escape(ref), nil, &out); err != nil {
		return nil, notFoundAsSession(err, ref)
	}
	return out.toSession(), nil
}

func (r *checkoutSessionResponse) toSession() *payment.Session {
	return &payment.Session{
		Reference:     r.ID,
		Token:         r.SessionToken,
		RedirectURL:   r.RedirectURL,
		Status:        r.Status,
		PaymentIntent: decodeEmbeddedIntent(r.PaymentIntent),
		Metadata:      r.Metadata,
		Contract:      payment.ContractCheckoutSession,
	}
}

// decodeEmbeddedIntent handles an expanded object, a bare id string, or null.
func decodeEmbeddedIntent(raw json.RawMessage) *payment.PaymentIntent {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	if raw[0] == '"' {
		var id string
		if err := json.Unmarshal(raw, &id); err != nil || id == "" {
			return nil
		}
		return &payment.PaymentIntent{ID: id}
	}
	var intent payment.PaymentIntent
	if err := json.Unmarshal(raw, &intent); err != nil {
		return nil
	}
	return &intent
}
