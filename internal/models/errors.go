package models

import "fmt"

// EntryError means the invocation parameters cannot produce a usable
// checkout. It is fatal for the session but must never crash the
// flow: the caller renders the invalid-link branch instead.
type EntryError struct {
	Field  string
	Detail string
}

func (e *EntryError) Error() string {
	return fmt.Sprintf("invalid checkout link: %s %s", e.Field, e.Detail)
}

// GatewayError carries an explicit ok:false message from the payment
// gateway. The message is surfaced to the payer verbatim.
type GatewayError struct {
	Message string
}

func (e *GatewayError) Error() string { return e.Message }

// NetworkError covers transport failures and malformed gateway
// responses. Payers see a single generic message, never the cause.
type NetworkError struct {
	Cause error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %v", e.Cause)
}

func (e *NetworkError) Unwrap() error { return e.Cause }
