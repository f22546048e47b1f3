package handlers_test

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/julianne-glitch/xafpay-checkout-frontend/internal/config"
	"github.com/julianne-glitch/xafpay-checkout-frontend/internal/gateway"
	"github.com/julianne-glitch/xafpay-checkout-frontend/internal/handlers"
	"github.com/julianne-glitch/xafpay-checkout-frontend/internal/models"
	"github.com/julianne-glitch/xafpay-checkout-frontend/internal/service"
)

type memRepo struct {
	mu       sync.Mutex
	sessions map[string]*models.CheckoutSession
}

func (r *memRepo) InsertSession(_ context.Context, s *models.CheckoutSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *s
	r.sessions[s.ID] = &copied
	return nil
}

func (r *memRepo) TransitionState(_ context.Context, id string, from, to models.CheckoutState) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok || s.State != from {
		return 0, nil
	}
	s.PreviousState = from
	s.State = to
	return 1, nil
}

func (r *memRepo) SetOutcome(_ context.Context, id string, outcome models.CheckoutOutcome, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[id]; ok {
		copied := outcome
		s.Outcome = &copied
		s.Message = message
	}
	return nil
}

func (r *memRepo) UpdateAttempts(_ context.Context, id string, attempts int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[id]; ok {
		s.AttemptsMade = attempts
	}
	return nil
}

func (r *memRepo) SetCarrier(_ context.Context, id string, carrier models.Carrier) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[id]; ok {
		s.Carrier = carrier
	}
	return nil
}

func (r *memRepo) ListRecent(_ context.Context, state models.CheckoutState, limit int) ([]*models.CheckoutSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.CheckoutSession
	for _, s := range r.sessions {
		if state != "" && s.State != state {
			continue
		}
		if len(out) == limit {
			break
		}
		copied := *s
		out = append(out, &copied)
	}
	return out, nil
}

func (r *memRepo) GetByID(_ context.Context, id string) (*models.CheckoutSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *s
	return &copied, nil
}

type stubGateway struct{ healthy bool }

func (g *stubGateway) Initiate(context.Context, gateway.InitiateRequest) (gateway.InitiateResponse, error) {
	return gateway.InitiateResponse{OK: true, OrderID: "XF-1", Mode: gateway.ModeDirect}, nil
}

func (g *stubGateway) QueryStatus(context.Context, string) (gateway.StatusResponse, error) {
	return gateway.StatusResponse{OK: true, Status: "PENDING"}, nil
}

func (g *stubGateway) ProbeHealth(context.Context) bool { return g.healthy }

func newTestRouter(gw service.PaymentGateway) *gin.Engine {
	cfg := &config.Config{
		PollInterval:    time.Millisecond,
		PollMaxAttempts: 3,
		RedirectDelay:   time.Second,
		RequireEmail:    true,
	}
	repo := &memRepo{sessions: make(map[string]*models.CheckoutSession)}
	controller := service.NewController(cfg, gw, repo, nil, nil, zap.NewNop())

	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := handlers.NewCheckoutHandler(controller, zap.NewNop())
	r.GET("/health", h.Health)
	r.GET("/checkout", h.CreateSession)
	r.POST("/checkout/:id/pay", h.Pay)
	r.GET("/checkout/:id", h.GetState)
	r.DELETE("/checkout/:id", h.CancelSession)
	r.GET("/sessions", h.ListSessions)
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path, body string) (int, map[string]any) {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &decoded))
	return w.Code, decoded
}

func TestCreateSession_InvalidLinkIsTerminalScreenNotError(t *testing.T) {
	r := newTestRouter(&stubGateway{healthy: true})

	code, body := doJSON(t, r, http.MethodGet, "/checkout?reference=WC-1&return_url=https://shop/done", "")
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, string(models.StateInvalidEntry), body["state"])
	require.NotEmpty(t, body["entry_problem"])
}

func TestCheckoutFlow_SubmitAndPollState(t *testing.T) {
	r := newTestRouter(&stubGateway{healthy: true})

	code, created := doJSON(t, r, http.MethodGet, "/checkout?amount=2000&order_id=WC-1&return_url=https%3A%2F%2Fshop%2Fdone", "")
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, string(models.StateAwaitingInput), created["state"])
	sessionID := created["session_id"].(string)

	code, paid := doJSON(t, r, http.MethodPost, "/checkout/"+sessionID+"/pay",
		`{"phone":"651234567","email":"user@shop.cm","carrier":"MTN"}`)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, true, paid["accepted"])

	code, state := doJSON(t, r, http.MethodGet, "/checkout/"+sessionID, "")
	require.Equal(t, http.StatusOK, code)
	require.Contains(t, []any{
		string(models.StatePolling), string(models.StateTimedOut),
	}, state["state"])
}

func TestListSessions_ShowsSubmittedCarrier(t *testing.T) {
	r := newTestRouter(&stubGateway{healthy: true})

	code, created := doJSON(t, r, http.MethodGet, "/checkout?amount=2000&reference=WC-9&return_url=https%3A%2F%2Fshop%2Fdone", "")
	require.Equal(t, http.StatusOK, code)
	sessionID := created["session_id"].(string)

	code, _ = doJSON(t, r, http.MethodPost, "/checkout/"+sessionID+"/pay",
		`{"phone":"691234567","email":"user@shop.cm","carrier":"ORANGE"}`)
	require.Equal(t, http.StatusOK, code)

	code, body := doJSON(t, r, http.MethodGet, "/sessions", "")
	require.Equal(t, http.StatusOK, code)

	rows, ok := body["sessions"].([]any)
	require.True(t, ok)
	require.Len(t, rows, 1)
	row := rows[0].(map[string]any)
	require.Equal(t, sessionID, row["session_id"])
	require.Equal(t, "WC-9", row["reference"])
	require.Equal(t, string(models.CarrierOrange), row["carrier"])
	require.Equal(t, "XAF", row["currency"])
}

func TestPay_UnknownSessionIs404(t *testing.T) {
	r := newTestRouter(&stubGateway{healthy: true})

	code, _ := doJSON(t, r, http.MethodPost, "/checkout/nope/pay",
		`{"phone":"651234567","email":"user@shop.cm","carrier":"MTN"}`)
	require.Equal(t, http.StatusNotFound, code)
}

func TestHealth_ReportsAdvisoryGatewayProbe(t *testing.T) {
	r := newTestRouter(&stubGateway{healthy: false})

	code, body := doJSON(t, r, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, code, "a sick gateway degrades the indicator, never the service")
	require.Equal(t, "ok", body["status"])
	require.Equal(t, false, body["gateway"])
}
