package service

import (
	"context"
	"errors"
	"net/http"

	"github.com/Fintoc-PepeStore2-0/Backend/internal/infra/payment"
	"github.com/Fintoc-PepeStore2-0/Backend/internal/infra/repository/db"
	"github.com/Fintoc-PepeStore2-0/Backend/internal/pkg/apperr"
)

// repoError tags repository failures that callers can act on; everything
// else is internal.
func repoError(err error, op string) error {
	if err == nil {
		return nil
	}
	if _, ok := apperr.As(err); ok {
		return err
	}
	switch {
	case errors.Is(err, db.ErrProductNotFound):
		return apperr.NotFound("product not found").WithErr(err)
	case errors.Is(err, db.ErrCartItemNotFound):
		return apperr.NotFound("cart item not found").WithErr(err)
	case errors.Is(err, db.ErrOrderNotFound):
		return apperr.NotFound("order not found").WithErr(err)
	case errors.Is(err, db.ErrQuantityConflict):
		return apperr.Conflict("cart changed concurrently, retry the request").WithErr(err)
	}
	return apperr.Internal(err, "%s", op)
}

// gatewayError converts a payment adapter failure into an upstream error.
// Timeouts and an open breaker stay retryable.
func gatewayError(err error, op string) *apperr.Error {
	var perr *payment.ProviderError
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		ae := apperr.Upstream(0, "%s: payment provider timed out", op).WithErr(err)
		ae.Timeout = true
		return ae
	case payment.IsUnavailable(err):
		return apperr.Upstream(http.StatusServiceUnavailable, "%s: payment provider temporarily unavailable", op).WithErr(err)
	case errors.Is(err, payment.ErrSessionNotFound):
		return apperr.NotFound("payment session not found").WithErr(err)
	case errors.As(err, &perr):
		ae := apperr.Upstream(perr.StatusCode, "%s: %s", op, perr.Message).WithErr(err)
		if len(perr.Details) > 0 {
			ae.Details = perr.Details
		}
		return ae
	}
	return apperr.Upstream(0, "%s: payment provider call failed", op).WithErr(err)
}
