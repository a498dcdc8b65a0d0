package stripegw

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/Fintoc-PepeStore2-0/Backend/internal/infra/payment"
	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/client"
)

// Gateway opens Stripe Checkout sessions for a single price-data line item
// covering the whole order amount.
type Gateway struct {
	api *client.API
}

func New(secretKey string, backends *stripe.Backends) *Gateway {
	return &Gateway{api: client.New(secretKey, backends)}
}

func (g *Gateway) Name() string {
	return "stripe"
}

func (g *Gateway) OpenSession(ctx context.Context, req payment.OpenSessionRequest) (*payment.Session, error) {
	currency := strings.ToLower(req.Currency)
	description := req.Description
	if description == "" {
		description = "Order"
	}

	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(req.SuccessURL),
		CancelURL:  stripe.String(req.CancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(currency),
					UnitAmount: stripe.Int64(payment.MinorUnits(req.Amount, req.Currency)),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(description),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
		Metadata: req.Metadata,
	}
	if req.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(req.CustomerEmail)
	}
	params.Context = ctx

	s, err := g.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, translateError(err, "")
	}
	return normalise(s), nil
}

func (g *Gateway) FetchSession(ctx context.Context, ref string) (*payment.Session, error) {
	if ref == "" {
		return nil, payment.ErrSessionNotFound
	}
	params := &stripe.CheckoutSessionParams{}
	params.AddExpand("payment_intent")
	params.Context = ctx

	s, err := g.api.CheckoutSessions.Get(ref, params)
	if err != nil {
		return nil, translateError(err, ref)
	}
	return normalise(s), nil
}

// normalise folds Stripe's session and payment states into the vocabulary
// payment.MapStatus understands.
func normalise(s *stripe.CheckoutSession) *payment.Session {
	out := &payment.Session{
		Reference:   s.ID,
		RedirectURL: s.URL,
		Status:      string(s.Status),
		Metadata:    s.Metadata,
		Contract:    payment.ContractCheckoutSession,
	}

	switch {
	case s.Status == stripe.CheckoutSessionStatusComplete && s.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid:
		out.Status = "finished"
	case s.Status == stripe.CheckoutSessionStatusExpired:
		out.Status = "expired"
	}

	if pi := s.PaymentIntent; pi != nil {
		intent := &payment.PaymentIntent{ID: pi.ID, Status: string(pi.Status)}
		if pi.Status == stripe.PaymentIntentStatusCanceled {
			intent.Status = "failed"
		}
		out.PaymentIntent = intent
	}
	return out
}

func translateError(err error, ref string) error {
	var serr *stripe.Error
	if !errors.As(err, &serr) {
		return fmt.Errorf("stripe: %w", err)
	}
	if serr.HTTPStatusCode == http.StatusNotFound && ref != "" {
		return fmt.Errorf("%w: %s", payment.ErrSessionNotFound, ref)
	}
	perr := &payment.ProviderError{StatusCode: serr.HTTPStatusCode, Message: serr.Msg}
	if serr.LastResponse != nil {
		perr.Details = serr.LastResponse.RawJSON
	}
	return perr
}

var _ payment.Gateway = (*Gateway)(nil)
