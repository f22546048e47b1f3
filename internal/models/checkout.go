package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type CheckoutState string

const (
	StateAwaitingInput CheckoutState = "AWAITING_INPUT"
	StateSubmitting    CheckoutState = "SUBMITTING"
	StatePolling       CheckoutState = "POLLING"
	StateRedirected    CheckoutState = "REDIRECTED"
	StateSucceeded     CheckoutState = "SUCCEEDED"
	StateFailed        CheckoutState = "FAILED"
	StateTimedOut      CheckoutState = "TIMED_OUT"
	StateInvalidEntry  CheckoutState = "INVALID_ENTRY"
)

// Terminal reports whether the checkout reached a resting state: the
// page stops its own status polling once it sees one. FAILED and
// TIMED_OUT are terminal even though submit stays enabled for a fresh
// attempt.
func (s CheckoutState) Terminal() bool {
	switch s {
	case StateRedirected, StateSucceeded, StateFailed, StateTimedOut, StateInvalidEntry:
		return true
	}
	return false
}

type Carrier string

const (
	CarrierMTN    Carrier = "MTN"
	CarrierOrange Carrier = "ORANGE"
)

// EntryParameters are derived once from the invocation query and are
// immutable afterwards; amount and reference are never user-editable.
type EntryParameters struct {
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
	Reference string          `json:"reference"`
	ReturnURL string          `json:"return_url"`
}

type ContactInfo struct {
	Phone   string  `json:"phone"`
	Email   string  `json:"email"`
	Carrier Carrier `json:"carrier"`
}

type AttemptState string

const (
	AttemptPolling   AttemptState = "POLLING"
	AttemptSucceeded AttemptState = "SUCCEEDED"
	AttemptFailed    AttemptState = "FAILED"
	AttemptTimedOut  AttemptState = "TIMED_OUT"
)

// PaymentAttempt is owned by a single polling session. Exactly one
// attempt may be active per checkout; starting a new one suppresses
// the continuation of any prior one.
type PaymentAttempt struct {
	GatewayOrderID string       `json:"gateway_order_id"`
	Status         AttemptState `json:"status"`
	AttemptsMade   int          `json:"attempts_made"`
	StartedAt      time.Time    `json:"started_at"`
}

type OutcomeKind string

const (
	OutcomeSuccess      OutcomeKind = "SUCCESS"
	OutcomeFailed       OutcomeKind = "FAILED"
	OutcomeTimedOut     OutcomeKind = "TIMED_OUT"
	OutcomeNetworkError OutcomeKind = "NETWORK_ERROR"
)

// CheckoutOutcome is the terminal projection of one attempt. Produced
// at most once per PaymentAttempt.
type CheckoutOutcome struct {
	Kind          OutcomeKind `json:"kind"`
	TransactionID string      `json:"transaction_id,omitempty"`
	Reason        string      `json:"reason,omitempty"`
}

// CheckoutSession is the server-side checkout instance persisted in
// the session store.
type CheckoutSession struct {
	ID            string           `json:"id"`
	Entry         EntryParameters  `json:"entry"`
	Carrier       Carrier          `json:"carrier,omitempty"`
	State         CheckoutState    `json:"state"`
	PreviousState CheckoutState    `json:"previous_state"`
	EntryProblem  string           `json:"entry_problem,omitempty"`
	Message       string           `json:"message,omitempty"`
	Outcome       *CheckoutOutcome `json:"outcome,omitempty"`
	AttemptsMade  int              `json:"attempts_made"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

// StateChangedEvent is published on every session state transition.
type StateChangedEvent struct {
	SessionID     string        `json:"session_id"`
	State         CheckoutState `json:"state"`
	PreviousState CheckoutState `json:"previous_state"`
	Reference     string        `json:"reference"`
	Timestamp     time.Time     `json:"timestamp"`
}
