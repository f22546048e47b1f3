package polling

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/julianne-glitch/xafpay-checkout-frontend/internal/gateway"
	"github.com/julianne-glitch/xafpay-checkout-frontend/internal/models"
)

// StatusQuerier is the slice of the payment gateway the engine needs.
type StatusQuerier interface {
	QueryStatus(ctx context.Context, orderID string) (gateway.StatusResponse, error)
}

type Config struct {
	// Interval between status queries while the payment is pending.
	Interval time.Duration
	// MaxAttempts bounds the number of status queries before the
	// attempt times out.
	MaxAttempts int
}

const (
	DefaultInterval    = 3 * time.Second
	DefaultMaxAttempts = 15
)

func (c Config) withDefaults() Config {
	if c.Interval <= 0 {
		c.Interval = DefaultInterval
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	return c
}

// Report is the single terminal state delivered for one attempt.
type Report struct {
	Attempt       models.PaymentAttempt
	State         models.AttemptState
	TransactionID string
	AttemptsMade  int
}

type Engine struct {
	gateway StatusQuerier
	cfg     Config
	logger  *zap.Logger
}

func NewEngine(g StatusQuerier, cfg Config, logger *zap.Logger) *Engine {
	return &Engine{gateway: g, cfg: cfg.withDefaults(), logger: logger}
}

// Poll drives one attempt to a terminal state. Ticks are serialized:
// the next query is only issued after the previous one resolved and
// the inter-tick delay elapsed, so reports cannot race.
//
// Cancelling ctx (a new attempt superseded this one, or the checkout
// was discarded) stops the loop silently: the second return
// value is false and no Report must be acted on. The cancellation
// flag is checked at the top of every tick before any side effect,
// and again after each in-flight query resolves, so a stale response
// is dropped rather than reported.
//
// A transport error on a query carries no information: it neither
// counts as a failure nor stops polling.
func (e *Engine) Poll(ctx context.Context, orderID string, onTick func(attempt int)) (Report, bool) {
	attempt := models.PaymentAttempt{
		GatewayOrderID: orderID,
		Status:         models.AttemptPolling,
		StartedAt:      time.Now().UTC(),
	}
	e.logger.Info("polling started",
		zap.String("order_id", orderID),
		zap.Int("max_attempts", e.cfg.MaxAttempts),
	)

	terminal := func(state models.AttemptState, txID string) (Report, bool) {
		attempt.Status = state
		return Report{
			Attempt:       attempt,
			State:         state,
			TransactionID: txID,
			AttemptsMade:  attempt.AttemptsMade,
		}, true
	}

	for {
		if ctx.Err() != nil {
			return Report{}, false
		}

		attempt.AttemptsMade++
		if attempt.AttemptsMade > e.cfg.MaxAttempts {
			e.logger.Warn("polling budget exhausted", zap.String("order_id", orderID))
			attempt.AttemptsMade = e.cfg.MaxAttempts
			return terminal(models.AttemptTimedOut, "")
		}
		if onTick != nil {
			onTick(attempt.AttemptsMade)
		}

		resp, err := e.gateway.QueryStatus(ctx, orderID)
		if ctx.Err() != nil {
			return Report{}, false
		}
		if err != nil {
			e.logger.Debug("status query failed, keeping attempt alive",
				zap.String("order_id", orderID),
				zap.Int("attempt", attempt.AttemptsMade),
				zap.Error(err),
			)
		} else {
			switch gateway.Classify(resp) {
			case gateway.BucketSuccess:
				e.logger.Info("payment confirmed",
					zap.String("order_id", orderID),
					zap.String("transaction_id", resp.TransactionID),
					zap.Int("attempts", attempt.AttemptsMade),
				)
				return terminal(models.AttemptSucceeded, resp.TransactionID)
			case gateway.BucketFailure:
				e.logger.Info("payment failed",
					zap.String("order_id", orderID),
					zap.String("status", resp.Status),
					zap.Int("attempts", attempt.AttemptsMade),
				)
				return terminal(models.AttemptFailed, "")
			}
		}

		timer := time.NewTimer(e.cfg.Interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return Report{}, false
		case <-timer.C:
		}
	}
}
