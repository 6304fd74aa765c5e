package mpesa

import "errors"

var (
	// ErrInvalidRequest is returned when the request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrPaymentFailed is returned when the STK push fails
	ErrPaymentFailed = errors.New("payment failed")

	// ErrPaymentCancelled is returned when the customer cancels the prompt
	ErrPaymentCancelled = errors.New("payment cancelled by user")

	// ErrInvalidTransaction is returned when the checkout request ID is unknown
	ErrInvalidTransaction = errors.New("invalid checkout request ID")

	// ErrNetworkError is returned when there's a network communication error
	ErrNetworkError = errors.New("network error")

	// ErrUnauthorized is returned when the consumer credentials are rejected
	ErrUnauthorized = errors.New("unauthorized: invalid consumer credentials")

	// ErrInvalidPhone is returned when the phone number cannot be normalized
	ErrInvalidPhone = errors.New("invalid phone number")
)
