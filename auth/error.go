package auth

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidParameter           = errors.New("invalid parameter")
	ErrNilParameter               = errors.New("nil parameter")
	ErrInvalidCACert              = errors.New("invalid CA certificate")
	ErrIDGeneratorFailed          = errors.New("id generation failed")
	ErrUnsupportedChallengeMethod = errors.New("unsupported challenge method")
	ErrPopupBlocked               = errors.New("authorization window blocked")
	ErrProviderDenied             = errors.New("provider denied authorization")
	ErrCanceled                   = errors.New("authorization canceled")
	ErrExchangeFailed             = errors.New("code exchange failed")
	ErrMalformedMessage           = errors.New("malformed authorization message")
)

// ExchangeError reports a failed code exchange.  It carries the HTTP status
// and the raw response body for diagnostics, since authorization codes are
// single-use and the failed request cannot simply be replayed to find out
// what went wrong.
type ExchangeError struct {
	// StatusCode is the HTTP status of the exchange response.
	StatusCode int

	// Body is the raw response body text.
	Body string
}

func (e *ExchangeError) Error() string {
	return fmt.Sprintf("%s: status %d: %s", ErrExchangeFailed, e.StatusCode, e.Body)
}

// Unwrap makes errors.Is(err, ErrExchangeFailed) work for ExchangeError.
func (e *ExchangeError) Unwrap() error {
	return ErrExchangeFailed
}
