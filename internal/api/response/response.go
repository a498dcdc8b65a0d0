package response

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Fintoc-PepeStore2-0/Backend/internal/pkg/apperr"
)

type ResponseError struct {
	Message      string `json:"message"`
	Code         string `json:"code"`
	Details      any    `json:"details,omitempty"`
	MaxPermitted *int   `json:"maxPermitted,omitempty"`
	Retryable    bool   `json:"retryable,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(body)
}

func SuccessJSON(w http.ResponseWriter, status int, data any) {
	WriteJSON(w, status, data)
}

// ErrorMessage is for failures raised by the HTTP layer itself.
func ErrorMessage(w http.ResponseWriter, status int, code, message string) {
	WriteJSON(w, status, ResponseError{Message: message, Code: code})
}

// ErrorJSON maps an error to its HTTP status and body. Untagged errors are
// reported as internal without leaking their text.
func ErrorJSON(w http.ResponseWriter, err error) {
	ae, ok := apperr.As(err)
	if !ok {
		ae = apperr.Internal(err, "internal server error")
	}

	body := ResponseError{
		Message:   ae.Message,
		Code:      ae.Kind.String(),
		Retryable: ae.Retryable(),
	}
	switch ae.Kind {
	case apperr.KindCapacityExceeded:
		maxPermitted := ae.MaxPermitted
		body.MaxPermitted = &maxPermitted
	case apperr.KindUpstream:
		body.Details = ae.Details
	case apperr.KindInternal:
		body.Message = "internal server error"
	}
	WriteJSON(w, StatusOf(ae), body)
}

func StatusOf(ae *apperr.Error) int {
	switch ae.Kind {
	case apperr.KindValidation, apperr.KindEmptyCart, apperr.KindMissingContactInfo:
		return http.StatusBadRequest
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindCapacityExceeded, apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindUpstream:
		if ae.Timeout {
			return http.StatusGatewayTimeout
		}
		if ae.UpstreamStatus >= 400 && ae.UpstreamStatus <= 599 {
			return ae.UpstreamStatus
		}
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// IsClientError reports whether err is the caller's fault, for log levels.
func IsClientError(err error) bool {
	var ae *apperr.Error
	if !errors.As(err, &ae) {
		return false
	}
	status := StatusOf(ae)
	return status >= 400 && status < 500
}
