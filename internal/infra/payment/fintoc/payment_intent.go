package fintoc

import (
	"context"
	"net/http"

	"github.com/Fintoc-PepeStore2-0/Backend/internal/infra/payment"
)

// Legacy contract: the intent itself is the session.

type paymentIntentRequest struct {
	Amount             int64             `json:"amount"`
	Currency           string            `json:"currency"`
	RecipientAccountID string            `json:"recipient_account_id,omitempty"`
	ReturnURL          string            `json:"return_url,omitempty"`
	Description        string            `json:"description,omitempty"`
	Metadata           map[string]string `json:"metadata,omitempty"`
}

type paymentIntentResponse struct {
	ID          string            `json:"id"`
	Status      string            `json:"status"`
	WidgetToken string            `json:"widget_token"`
	Metadata    map[string]string `json:"metadata"`
}

func (c *Client) createPaymentIntent(ctx context.Context, req payment.OpenSessionRequest) (*payment.Session, error) {
	returnURL := c.cfg.ReturnURL
	if returnURL == "" {
		returnURL = req.SuccessURL
	}
	body := paymentIntentRequest{
		Amount:             payment.MinorUnits(req.Amount, req.Currency),
		Currency:           req.Currency,
		RecipientAccountID: c.cfg.RecipientAccount,
		ReturnURL:          returnURL,
		Description:        req.Description,
		Metadata:           req.Metadata,
	}
	var out paymentIntentResponse
	if err := c.do(ctx, http.MethodPost, "/payment_intents", body, &out); err != nil {
		return nil, err
	}
	return out.toSession(), nil
}

func (c *Client) getPaymentIntent(ctx context.Context, ref string) (*payment.Session, error) {
	var out paymentIntentResponse
	if err := c.do(ctx, http.MethodGet, "/payment_intents/"+escape(ref), nil, &out); err != nil {
		return nil, notFoundAsSession(err, ref)
	}
	return out.toSession(), nil
}

func (r *paymentIntentResponse) toSession() *payment.Session {
	return &payment.Session{
		Reference: r.ID,
		Token:     r.WidgetToken,
		PaymentIntent: &payment.PaymentIntent{
			ID:     r.ID,
			Status: r.Status,
		},
		Metadata: r.Metadata,
		Contract: payment.ContractPaymentIntent,
	}
}
