package payment

import "github.com/Fintoc-PepeStore2-0/Backend/internal/domain/model"

const (
	sessionStatusFinished = "finished"
	sessionStatusFailed   = "failed"
	sessionStatusExpired  = "expired"

	intentStatusSucceeded = "succeeded"
	intentStatusFailed    = "failed"
	intentStatusRejected  = "rejected"
)

// MapStatus is the only place provider states become order states.
func MapStatus(s *Session) model.OrderStatus {
	if s == nil {
		return model.OrderStatusPending
	}
	intentStatus := ""
	if s.PaymentIntent != nil {
		intentStatus = s.PaymentIntent.Status
	}

	switch {
	case intentStatus == intentStatusSucceeded || s.Status == sessionStatusFinished:
		return model.OrderStatusSucceeded
	case intentStatus == intentStatusFailed || intentStatus == intentStatusRejected,
		s.Status == sessionStatusFailed || s.Status == sessionStatusExpired:
		return model.OrderStatusFailed
	default:
		return model.OrderStatusPending
	}
}
