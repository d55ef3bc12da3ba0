package errs

import (
	"errors"
	"net/http"
)

const (
	ErrStatusInternalServer     = http.StatusInternalServerError
	ErrStatusClient             = http.StatusBadRequest
	ErrStatusUnauthorized       = http.StatusUnauthorized
	ErrStatusNotFound           = http.StatusNotFound
	ErrStatusConflict           = http.StatusConflict
	ErrStatusServiceUnavailable = http.StatusServiceUnavailable
)

var (
	ErrInternalServer  = errors.New("Internal server error")
	ErrClient          = errors.New("Bad request")
	ErrNotLoggedIn     = errors.New("Unauthorized access")
	ErrNotFound        = errors.New("Resource not found")
	ErrTokenExpired    = errors.New("The token is already expired")
	ErrInvalidToken    = errors.New("The token is invalid")
	ErrConflict        = errors.New("Conflicting record found")
	ErrPaymentNotFound = errors.New("Payment transaction not found")

	ErrMalformedRequest   = errors.New("Malformed payment callback")
	ErrSignatureMismatch  = errors.New("Payment callback signature does not match")
	ErrLedgerConflict     = errors.New("Payment transaction already finalized with a different outcome")
	ErrStorageUnavailable = errors.New("Payment ledger storage is unavailable")
	ErrNonTerminalOutcome = errors.New("Only terminal outcomes can be recorded")
)

var errorMap = map[error]int{
	ErrInternalServer:     ErrStatusInternalServer,
	ErrClient:             ErrStatusClient,
	ErrNotLoggedIn:        ErrStatusUnauthorized,
	ErrNotFound:           ErrStatusNotFound,
	ErrTokenExpired:       ErrStatusUnauthorized,
	ErrInvalidToken:       ErrStatusUnauthorized,
	ErrConflict:           ErrStatusConflict,
	ErrPaymentNotFound:    ErrStatusNotFound,
	ErrMalformedRequest:   ErrStatusClient,
	ErrSignatureMismatch:  ErrStatusUnauthorized,
	ErrLedgerConflict:     ErrStatusConflict,
	ErrStorageUnavailable: ErrStatusServiceUnavailable,
	ErrNonTerminalOutcome: ErrStatusClient,
}

// GetErrorStatusCode resolves wrapped errors too, so callers may annotate a
// sentinel with fmt.Errorf("%w: ...") and keep its status.
func GetErrorStatusCode(err error) int {
	if errStatusCode, ok := errorMap[err]; ok {
		return errStatusCode
	}
	for target, code := range errorMap {
		if errors.Is(err, target) {
			return code
		}
	}
	return errorMap[ErrInternalServer]
}
