package repository

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/julianne-glitch/xafpay-checkout-frontend/internal/models"
)

type SessionRepository struct {
	db *sql.DB
}

func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) InitDB() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS checkout_sessions (
			session_id VARCHAR(64) PRIMARY KEY,
			state VARCHAR(50) NOT NULL,
			previous_state VARCHAR(50),
			amount NUMERIC(18,2) NOT NULL,
			currency VARCHAR(8) NOT NULL,
			reference VARCHAR(255) NOT NULL,
			return_url TEXT NOT NULL,
			carrier VARCHAR(16),
			entry_problem TEXT,
			message TEXT,
			outcome JSONB,
			attempts_made INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_checkout_sessions_state ON checkout_sessions(state)`,
		`CREATE INDEX IF NOT EXISTS idx_checkout_sessions_created ON checkout_sessions(created_at DESC)`,
	}

	for _, query := range queries {
		if _, err := r.db.Exec(query); err != nil {
			return err
		}
	}

	return nil
}

func (r *SessionRepository) InsertSession(ctx context.Context, s *models.CheckoutSession) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO checkout_sessions
			(session_id, state, previous_state, amount, currency, reference, return_url, entry_problem)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (session_id) DO NOTHING
	`, s.ID, s.State, "", s.Entry.Amount, s.Entry.Currency, s.Entry.Reference, s.Entry.ReturnURL, s.EntryProblem)
	return err
}

// TransitionState performs a guarded update: zero rows means the
// session was not in the expected state and the transition is invalid.
func (r *SessionRepository) TransitionState(ctx context.Context, sessionID string, from, to models.CheckoutState) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE checkout_sessions
		SET state = $1, previous_state = $2, updated_at = NOW()
		WHERE session_id = $3 AND state = $4
	`, to, from, sessionID, from)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *SessionRepository) SetOutcome(ctx context.Context, sessionID string, outcome models.CheckoutOutcome, message string) error {
	payload, err := json.Marshal(outcome)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		UPDATE checkout_sessions SET outcome = $1, message = $2, updated_at = NOW() WHERE session_id = $3
	`, payload, message, sessionID)
	return err
}

func (r *SessionRepository) UpdateAttempts(ctx context.Context, sessionID string, attempts int) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE checkout_sessions SET attempts_made = $1, updated_at = NOW() WHERE session_id = $2
	`, attempts, sessionID)
	return err
}

func (r *SessionRepository) SetCarrier(ctx context.Context, sessionID string, carrier models.Carrier) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE checkout_sessions SET carrier = $1, updated_at = NOW() WHERE session_id = $2
	`, carrier, sessionID)
	return err
}

func (r *SessionRepository) GetByID(ctx context.Context, sessionID string) (*models.CheckoutSession, error) {
	var (
		s          models.CheckoutSession
		carrier    sql.NullString
		problem    sql.NullString
		message    sql.NullString
		rawOutcome []byte
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT session_id, state, previous_state, amount, currency, reference, return_url,
		       carrier, entry_problem, message, outcome, attempts_made, created_at, updated_at
		FROM checkout_sessions WHERE session_id = $1
	`, sessionID).Scan(&s.ID, &s.State, &s.PreviousState, &s.Entry.Amount, &s.Entry.Currency,
		&s.Entry.Reference, &s.Entry.ReturnURL, &carrier, &problem, &message, &rawOutcome,
		&s.AttemptsMade, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}

	s.Carrier = models.Carrier(carrier.String)
	s.EntryProblem = problem.String
	s.Message = message.String
	if len(rawOutcome) > 0 {
		var outcome models.CheckoutOutcome
		if err := json.Unmarshal(rawOutcome, &outcome); err != nil {
			return nil, err
		}
		s.Outcome = &outcome
	}
	return &s, nil
}

// ListRecent returns the newest sessions first, optionally filtered by
// state. An empty state matches everything.
func (r *SessionRepository) ListRecent(ctx context.Context, state models.CheckoutState, limit int) ([]*models.CheckoutSession, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT session_id, state, amount, currency, reference, carrier, attempts_made, created_at
		FROM checkout_sessions
		WHERE $1::text = '' OR state = $1::text
		ORDER BY created_at DESC
		LIMIT $2
	`, string(state), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*models.CheckoutSession
	for rows.Next() {
		var (
			s       models.CheckoutSession
			carrier sql.NullString
		)
		if err := rows.Scan(&s.ID, &s.State, &s.Entry.Amount, &s.Entry.Currency,
			&s.Entry.Reference, &carrier, &s.AttemptsMade, &s.CreatedAt); err != nil {
			return nil, err
		}
		s.Carrier = models.Carrier(carrier.String)
		sessions = append(sessions, &s)
	}
	return sessions, rows.Err()
}
