package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/julianne-glitch/xafpay-checkout-frontend/internal/config"
	"github.com/julianne-glitch/xafpay-checkout-frontend/internal/entry"
	"github.com/julianne-glitch/xafpay-checkout-frontend/internal/gateway"
	"github.com/julianne-glitch/xafpay-checkout-frontend/internal/interfaces"
	"github.com/julianne-glitch/xafpay-checkout-frontend/internal/metrics"
	"github.com/julianne-glitch/xafpay-checkout-frontend/internal/models"
	"github.com/julianne-glitch/xafpay-checkout-frontend/internal/polling"
	"github.com/julianne-glitch/xafpay-checkout-frontend/internal/validation"
)

// Messages shown to the payer. GatewayError messages are surfaced
// verbatim instead of these.
const (
	msgCheckPhone     = "Check your phone to approve the payment."
	msgNetworkError   = "Network or payment error. Please try again."
	msgSucceeded      = "Payment successful. Redirecting…"
	msgFailed         = "Payment failed."
	msgPending        = "Payment pending. Check your phone and contact the shop if you were charged."
	msgAlreadyRunning = "A payment is already in progress for this checkout."
)

// PaymentGateway is the outbound contract the controller consumes.
type PaymentGateway interface {
	Initiate(ctx context.Context, req gateway.InitiateRequest) (gateway.InitiateResponse, error)
	QueryStatus(ctx context.Context, orderID string) (gateway.StatusResponse, error)
	ProbeHealth(ctx context.Context) bool
}

// EventWriter is satisfied by *kafka.Writer.
type EventWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

type SubmitResult struct {
	Accepted    bool              `json:"accepted"`
	FieldErrors map[string]string `json:"field_errors,omitempty"`
	RedirectURL string            `json:"redirect_url,omitempty"`
	Message     string            `json:"message,omitempty"`
}

// StateView is the projection the browser polls while waiting.
type StateView struct {
	SessionID       string                  `json:"session_id"`
	State           models.CheckoutState    `json:"state"`
	Message         string                  `json:"message,omitempty"`
	EntryProblem    string                  `json:"entry_problem,omitempty"`
	Outcome         *models.CheckoutOutcome `json:"outcome,omitempty"`
	AttemptsMade    int                     `json:"attempts_made"`
	Terminal        bool                    `json:"terminal"`
	Retryable       bool                    `json:"retryable"`
	ReturnURL       string                  `json:"return_url,omitempty"`
	RedirectDelayMS int64                   `json:"redirect_delay_ms,omitempty"`
}

type attemptHandle struct {
	cancel context.CancelFunc
}

// Controller owns the checkout flow: entry gating, contact gating,
// submission, polling and termination. It is the sole owner of which
// attempt is current for a session.
type Controller struct {
	cfg         *config.Config
	gateway     PaymentGateway
	engine      *polling.Engine
	repo        interfaces.SessionRepository
	redisClient *redis.Client
	events      EventWriter
	logger      *zap.Logger

	mu     sync.Mutex
	active map[string]*attemptHandle
}

func NewController(
	cfg *config.Config,
	gw PaymentGateway,
	repo interfaces.SessionRepository,
	redisClient *redis.Client,
	events EventWriter,
	logger *zap.Logger,
) *Controller {
	engine := polling.NewEngine(gw, polling.Config{
		Interval:    cfg.PollInterval,
		MaxAttempts: cfg.PollMaxAttempts,
	}, logger)

	return &Controller{
		cfg:         cfg,
		gateway:     gw,
		engine:      engine,
		repo:        repo,
		redisClient: redisClient,
		events:      events,
		logger:      logger,
		active:      make(map[string]*attemptHandle),
	}
}

// Begin creates a session from the invocation query. An entry problem
// yields an INVALID_ENTRY session (a render branch, never an error);
// such a session triggers no network calls, ever.
func (c *Controller) Begin(ctx context.Context, q url.Values) (*models.CheckoutSession, error) {
	session := &models.CheckoutSession{
		ID:        uuid.NewString(),
		State:     models.StateAwaitingInput,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}

	params, err := entry.Parse(q, entry.Options{Strict: c.cfg.StrictEntry})
	if err != nil {
		var entryErr *models.EntryError
		if !errors.As(err, &entryErr) {
			return nil, err
		}
		session.State = models.StateInvalidEntry
		session.EntryProblem = entryErr.Error()
		c.logger.Warn("invalid checkout link",
			zap.String("session_id", session.ID),
			zap.String("field", entryErr.Field),
		)
	} else {
		session.Entry = params
	}

	if err := c.repo.InsertSession(ctx, session); err != nil {
		return nil, err
	}

	c.logger.Info("checkout session created",
		zap.String("session_id", session.ID),
		zap.String("state", string(session.State)),
		zap.String("reference", session.Entry.Reference),
	)
	return session, nil
}

// ValidateContact derives validity from the current input. It stores
// nothing: the same input always yields the same answer.
func (c *Controller) ValidateContact(contact models.ContactInfo) (map[string]string, bool) {
	fieldErrors := make(map[string]string)
	ok := true

	phone := validation.ValidatePhone(contact.Phone, contact.Carrier)
	if !phone.Valid {
		ok = false
		if phone.Reason != "" {
			fieldErrors["phone"] = phone.Reason
		}
	}

	// A malformed email blocks submit even when email is optional;
	// only absence is tolerated in that mode.
	email := validation.ValidateEmail(contact.Email)
	if !email.Valid && (c.cfg.RequireEmail || email.Reason != "") {
		ok = false
	}
	if email.Reason != "" {
		fieldErrors["email"] = email.Reason
	}

	return fieldErrors, ok
}

// Submit runs the gated submission. Pressing submit with invalid
// contact details is a no-op, not an error.
func (c *Controller) Submit(ctx context.Context, sessionID string, contact models.ContactInfo) (SubmitResult, error) {
	session, err := c.repo.GetByID(ctx, sessionID)
	if err != nil {
		return SubmitResult{}, err
	}

	if session.State == models.StateInvalidEntry {
		return SubmitResult{Message: session.EntryProblem}, nil
	}

	switch session.State {
	case models.StateAwaitingInput, models.StateFailed, models.StateTimedOut:
		// submit enabled, including user-initiated retry
	default:
		return SubmitResult{Message: msgAlreadyRunning}, nil
	}

	fieldErrors, ok := c.ValidateContact(contact)
	if !ok {
		return SubmitResult{FieldErrors: fieldErrors}, nil
	}

	// Recorded for the sessions listing; the attempt itself carries the
	// full contact details to the gateway.
	if err := c.repo.SetCarrier(ctx, sessionID, contact.Carrier); err != nil {
		c.logger.Error("recording carrier", zap.String("session_id", sessionID), zap.Error(err))
	}
	session.Carrier = contact.Carrier

	unlock, err := c.lockSession(ctx, sessionID)
	if err != nil {
		return SubmitResult{Message: msgAlreadyRunning}, nil
	}
	defer unlock()

	if err := c.transition(ctx, session, session.State, models.StateSubmitting); err != nil {
		return SubmitResult{Message: msgAlreadyRunning}, nil
	}

	resp, err := c.gateway.Initiate(ctx, gateway.InitiateRequest{
		Amount:    session.Entry.Amount,
		Currency:  session.Entry.Currency,
		Phone:     validation.StripNonDigits(contact.Phone),
		Email:     contact.Email,
		Carrier:   contact.Carrier,
		Reference: session.Entry.Reference,
		ReturnURL: session.Entry.ReturnURL,
	})
	if err != nil {
		return c.submitFailed(ctx, session, err)
	}

	if resp.Mode == gateway.ModeRedirect {
		// The gateway hosts the payment page; hand the payer off and
		// stop tracking locally.
		if err := c.transition(ctx, session, models.StateSubmitting, models.StateRedirected); err != nil {
			return SubmitResult{}, err
		}
		return SubmitResult{Accepted: true, RedirectURL: resp.RedirectURL}, nil
	}

	if err := c.transition(ctx, session, models.StateSubmitting, models.StatePolling); err != nil {
		return SubmitResult{}, err
	}

	attemptCtx, cancel := context.WithCancel(context.Background())
	handle := &attemptHandle{cancel: cancel}

	c.mu.Lock()
	if prev, found := c.active[sessionID]; found {
		prev.cancel()
	}
	c.active[sessionID] = handle
	c.mu.Unlock()

	go c.track(attemptCtx, handle, session, resp.OrderID)

	return SubmitResult{Accepted: true, Message: msgCheckPhone}, nil
}

func (c *Controller) submitFailed(ctx context.Context, session *models.CheckoutSession, err error) (SubmitResult, error) {
	var gwErr *models.GatewayError
	if errors.As(err, &gwErr) {
		// Explicit rejection: the gateway's message goes to the payer
		// verbatim and no polling starts.
		if terr := c.transition(ctx, session, models.StateSubmitting, models.StateAwaitingInput); terr != nil {
			return SubmitResult{}, terr
		}
		return SubmitResult{Message: gwErr.Message}, nil
	}

	var netErr *models.NetworkError
	if errors.As(err, &netErr) {
		if terr := c.transition(ctx, session, models.StateSubmitting, models.StateAwaitingInput); terr != nil {
			return SubmitResult{}, terr
		}
		outcome := models.CheckoutOutcome{Kind: models.OutcomeNetworkError}
		if serr := c.repo.SetOutcome(ctx, session.ID, outcome, msgNetworkError); serr != nil {
			c.logger.Error("recording network outcome", zap.String("session_id", session.ID), zap.Error(serr))
		}
		metrics.CheckoutOutcomes.WithLabelValues(string(models.OutcomeNetworkError)).Inc()
		return SubmitResult{Message: msgNetworkError}, nil
	}

	return SubmitResult{}, err
}

// track runs one polling attempt to its terminal state. A cancelled
// attempt (superseded or discarded) reports nothing.
func (c *Controller) track(ctx context.Context, handle *attemptHandle, session *models.CheckoutSession, orderID string) {
	report, live := c.engine.Poll(ctx, orderID, func(attempt int) {
		if err := c.repo.UpdateAttempts(context.Background(), session.ID, attempt); err != nil {
			c.logger.Error("updating attempt count", zap.String("session_id", session.ID), zap.Error(err))
		}
	})
	if !live {
		return
	}

	c.mu.Lock()
	if c.active[session.ID] == handle {
		delete(c.active, session.ID)
	}
	c.mu.Unlock()

	bg := context.Background()
	metrics.PollAttempts.Observe(float64(report.AttemptsMade))

	switch report.State {
	case models.AttemptSucceeded:
		c.finish(bg, session, models.StateSucceeded,
			models.CheckoutOutcome{Kind: models.OutcomeSuccess, TransactionID: report.TransactionID},
			msgSucceeded)
	case models.AttemptFailed:
		c.finish(bg, session, models.StateFailed,
			models.CheckoutOutcome{Kind: models.OutcomeFailed, Reason: msgFailed},
			msgFailed)
	case models.AttemptTimedOut:
		// Exhausted the budget without a terminal gateway answer. The
		// payment may still complete, so this is worded as pending,
		// not as a failure.
		c.finish(bg, session, models.StateTimedOut,
			models.CheckoutOutcome{Kind: models.OutcomeTimedOut, Reason: msgPending},
			msgPending)
	}
}

func (c *Controller) finish(ctx context.Context, session *models.CheckoutSession, to models.CheckoutState, outcome models.CheckoutOutcome, message string) {
	if err := c.transition(ctx, session, models.StatePolling, to); err != nil {
		c.logger.Error("terminal transition failed",
			zap.String("session_id", session.ID),
			zap.String("to_state", string(to)),
			zap.Error(err),
		)
		return
	}
	if err := c.repo.SetOutcome(ctx, session.ID, outcome, message); err != nil {
		c.logger.Error("recording outcome", zap.String("session_id", session.ID), zap.Error(err))
	}
	metrics.CheckoutOutcomes.WithLabelValues(string(outcome.Kind)).Inc()
}

// Cancel discards any in-flight attempt for the session, e.g. when
// the checkout page is torn down.
func (c *Controller) Cancel(sessionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if handle, found := c.active[sessionID]; found {
		handle.cancel()
		delete(c.active, sessionID)
	}
}

// State returns the projection the waiting page polls.
func (c *Controller) State(ctx context.Context, sessionID string) (*StateView, error) {
	session, err := c.repo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	view := &StateView{
		SessionID:    session.ID,
		State:        session.State,
		Message:      session.Message,
		EntryProblem: session.EntryProblem,
		Outcome:      session.Outcome,
		AttemptsMade: session.AttemptsMade,
		Terminal:     session.State.Terminal(),
	}

	switch session.State {
	case models.StateAwaitingInput, models.StateFailed, models.StateTimedOut:
		view.Retryable = true
	}

	// On success the page shows the confirmation, then navigates to
	// the merchant after the configured delay. Failure and timeout
	// expose the return link but never auto-navigate.
	switch session.State {
	case models.StateSucceeded:
		view.ReturnURL = session.Entry.ReturnURL
		view.RedirectDelayMS = c.cfg.RedirectDelay.Milliseconds()
	case models.StateFailed, models.StateTimedOut:
		view.ReturnURL = session.Entry.ReturnURL
	}

	return view, nil
}

// SessionSummary is one row of the recent-sessions listing.
type SessionSummary struct {
	SessionID    string               `json:"session_id"`
	Reference    string               `json:"reference"`
	Carrier      models.Carrier       `json:"carrier,omitempty"`
	Amount       decimal.Decimal      `json:"amount"`
	Currency     string               `json:"currency"`
	State        models.CheckoutState `json:"state"`
	AttemptsMade int                  `json:"attempts_made"`
	CreatedAt    time.Time            `json:"created_at"`
}

const defaultRecentLimit = 20

// Recent lists the newest checkout sessions, optionally filtered by
// state. The limit is clamped so the listing stays a dashboard, not an
// export.
func (c *Controller) Recent(ctx context.Context, state models.CheckoutState, limit int) ([]SessionSummary, error) {
	if limit <= 0 || limit > 100 {
		limit = defaultRecentLimit
	}

	sessions, err := c.repo.ListRecent(ctx, state, limit)
	if err != nil {
		return nil, err
	}

	summaries := make([]SessionSummary, 0, len(sessions))
	for _, s := range sessions {
		summaries = append(summaries, SessionSummary{
			SessionID:    s.ID,
			Reference:    s.Entry.Reference,
			Carrier:      s.Carrier,
			Amount:       s.Entry.Amount,
			Currency:     s.Entry.Currency,
			State:        s.State,
			AttemptsMade: s.AttemptsMade,
			CreatedAt:    s.CreatedAt,
		})
	}
	return summaries, nil
}

// GatewayHealthy reports the advisory gateway probe, cached briefly in
// redis so the page's status indicator does not hammer the gateway.
func (c *Controller) GatewayHealthy(ctx context.Context) bool {
	const cacheKey = "gateway_health"

	if c.redisClient != nil {
		if cached, err := c.redisClient.Get(ctx, cacheKey).Result(); err == nil {
			return cached == "1"
		}
	}

	healthy := c.gateway.ProbeHealth(ctx)

	if c.redisClient != nil {
		val := "0"
		if healthy {
			val = "1"
		}
		if err := c.redisClient.Set(ctx, cacheKey, val, 5*time.Second).Err(); err != nil {
			c.logger.Warn("caching gateway health", zap.Error(err))
		}
	}
	return healthy
}

func (c *Controller) lockSession(ctx context.Context, sessionID string) (func(), error) {
	if c.redisClient == nil {
		return func() {}, nil
	}
	lockKey := "checkout_lock:" + sessionID
	locked := c.redisClient.SetNX(ctx, lockKey, "1", 30*time.Second)
	if err := locked.Err(); err != nil {
		// Redis being down must not block payment.
		c.logger.Warn("session lock unavailable", zap.Error(err))
		return func() {}, nil
	}
	if !locked.Val() {
		return nil, errors.New("checkout " + sessionID + " is already being processed")
	}
	return func() {
		c.redisClient.Del(context.Background(), lockKey)
	}, nil
}

// transition performs the guarded state change and publishes it, in
// that order; session.State tracks the in-memory view.
func (c *Controller) transition(ctx context.Context, session *models.CheckoutSession, from, to models.CheckoutState) error {
	rows, err := c.repo.TransitionState(ctx, session.ID, from, to)
	if err != nil {
		return err
	}
	if rows == 0 {
		return errors.New("invalid state transition from " + string(from) + " to " + string(to) + " for session " + session.ID)
	}
	session.PreviousState = from
	session.State = to

	c.publish(ctx, session, from, to)

	c.logger.Info("checkout state transition",
		zap.String("session_id", session.ID),
		zap.String("from_state", string(from)),
		zap.String("to_state", string(to)),
	)
	return nil
}

func (c *Controller) publish(ctx context.Context, session *models.CheckoutSession, from, to models.CheckoutState) {
	if c.events == nil {
		return
	}
	event := models.StateChangedEvent{
		SessionID:     session.ID,
		State:         to,
		PreviousState: from,
		Reference:     session.Entry.Reference,
		Timestamp:     time.Now().UTC(),
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return
	}
	if err := c.events.WriteMessages(ctx, kafka.Message{
		Key:   []byte(session.ID),
		Value: payload,
	}); err != nil {
		c.logger.Error("publishing state change", zap.String("session_id", session.ID), zap.Error(err))
	}
}
