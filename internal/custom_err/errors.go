package custom_err

import "errors"

var (
	// Storage errors
	ErrNotFound               = errors.New("resource not found")
	ErrDuplicateRequest       = errors.New("duplicate request")
	ErrPersistenceUnavailable = errors.New("persistence unavailable")

	// Ledger errors
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrNoBalance           = errors.New("no balance available")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrInvalidFee          = errors.New("fee must be between 0 and 100")
	ErrAwaitingInput       = errors.New("awaiting user input")

	// Ingestion errors
	ErrConversionUnavailable = errors.New("conversion rate unavailable")
	ErrVerificationFailed    = errors.New("notification verification failed")
	ErrMalformedNotification = errors.New("malformed notification")
	ErrForwardDeliveryFailed = errors.New("forward delivery failed")

	// Access errors
	ErrUnauthorized = errors.New("unauthorized")
	ErrInvalidToken = errors.New("invalid or expired token")
	ErrTokenExpired = errors.New("token has expired")
	ErrAuthDisabled = errors.New("reporting api is disabled")

	// Validation errors
	ErrInvalidInput = errors.New("invalid input")
	ErrInvalidURL   = errors.New("invalid url")
)
