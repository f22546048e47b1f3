package interfaces

import (
	"context"

	"github.com/julianne-glitch/xafpay-checkout-frontend/internal/models"
)

// SessionRepository defines the contract for checkout-session data access
type SessionRepository interface {
	InsertSession(ctx context.Context, session *models.CheckoutSession) error
	TransitionState(ctx context.Context, sessionID string, from, to models.CheckoutState) (int64, error)
	SetOutcome(ctx context.Context, sessionID string, outcome models.CheckoutOutcome, message string) error
	UpdateAttempts(ctx context.Context, sessionID string, attempts int) error
	SetCarrier(ctx context.Context, sessionID string, carrier models.Carrier) error
	GetByID(ctx context.Context, sessionID string) (*models.CheckoutSession, error)
	ListRecent(ctx context.Context, state models.CheckoutState, limit int) ([]*models.CheckoutSession, error)
}
