package stripegw

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Fintoc-PepeStore2-0/Backend/internal/domain/model"
	"github.com/Fintoc-PepeStore2-0/Backend/internal/infra/payment"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v81"
)

func TestNormalise(t *testing.T) {
	tests := []struct {
		name    string
		session *stripe.CheckoutSession
		want    model.OrderStatus
	}{
		{
			name:    "open",
			session: &stripe.CheckoutSession{ID: "cs_1", Status: stripe.CheckoutSessionStatusOpen},
			want:    model.OrderStatusPending,
		},
		{
			name: "complete and paid",
			session: &stripe.CheckoutSession{
				ID:            "cs_1",
				Status:        stripe.CheckoutSessionStatusComplete,
				PaymentStatus: stripe.CheckoutSessionPaymentStatusPaid,
			},
			want: model.OrderStatusSucceeded,
		},
		{
			name: "complete but unpaid",
			session: &stripe.CheckoutSession{
				ID:            "cs_1",
				Status:        stripe.CheckoutSessionStatusComplete,
				PaymentStatus: stripe.CheckoutSessionPaymentStatusUnpaid,
			},
			want: model.OrderStatusPending,
		},
		{
			name:    "expired",
			session: &stripe.CheckoutSession{ID: "cs_1", Status: stripe.CheckoutSessionStatusExpired},
			want:    model.OrderStatusFailed,
		},
		{
			name: "intent succeeded",
			session: &stripe.CheckoutSession{
				ID:            "cs_1",
				Status:        stripe.CheckoutSessionStatusOpen,
				PaymentIntent: &stripe.PaymentIntent{ID: "pi_1", Status: stripe.PaymentIntentStatusSucceeded},
			},
			want: model.OrderStatusSucceeded,
		},
		{
			name: "intent canceled",
			session: &stripe.CheckoutSession{
				ID:            "cs_1",
				Status:        stripe.CheckoutSessionStatusOpen,
				PaymentIntent: &stripe.PaymentIntent{ID: "pi_1", Status: stripe.PaymentIntentStatusCanceled},
			},
			want: model.OrderStatusFailed,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := normalise(tt.session)
			require.Equal(t, "cs_1", s.Reference)
			require.Equal(t, tt.want, payment.MapStatus(s))
		})
	}
}

func newStubbedGateway(t *testing.T, h http.HandlerFunc) *Gateway {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	backend := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		URL:               stripe.String(srv.URL),
		HTTPClient:        srv.Client(),
		MaxNetworkRetries: stripe.Int64(0),
		LeveledLogger:     &stripe.LeveledLogger{Level: stripe.LevelNull},
	})
	return New("sk_test_123", &stripe.Backends{API: backend, Connect: backend, Uploads: backend})
}

func TestFetchSession(t *testing.T) {
	gw := newStubbedGateway(t, func(w http.ResponseWriter, r *http.Request) {
		require.True(t, strings.HasSuffix(r.URL.Path, "/checkout/sessions/cs_1"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"cs_1","object":"checkout.session","status":"complete","payment_status":"paid",
			"payment_intent":{"id":"pi_1","object":"payment_intent","status":"succeeded"}}`))
	})

	s, err := gw.FetchSession(context.Background(), "cs_1")
	require.NoError(t, err)
	require.Equal(t, "pi_1", s.PaymentIntentID())
	require.Equal(t, model.OrderStatusSucceeded, payment.MapStatus(s))
}

func TestFetchSession_NotFound(t *testing.T) {
	gw := newStubbedGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"type":"invalid_request_error","message":"No such checkout.session: cs_x"}}`))
	})

	_, err := gw.FetchSession(context.Background(), "cs_x")
	require.ErrorIs(t, err, payment.ErrSessionNotFound)
}

func TestOpenSession_ProviderError(t *testing.T) {
	gw := newStubbedGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"type":"invalid_request_error","message":"Invalid currency"}}`))
	})

	_, err := gw.OpenSession(context.Background(), payment.OpenSessionRequest{Currency: "XXX"})
	var perr *payment.ProviderError
	require.ErrorAs(t, err, &perr)
	require.Equal(t, http.StatusBadRequest, perr.StatusCode)
	require.Equal(t, "Invalid currency", perr.Message)
}
