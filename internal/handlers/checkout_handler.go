package handlers

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/julianne-glitch/xafpay-checkout-frontend/internal/models"
	"github.com/julianne-glitch/xafpay-checkout-frontend/internal/service"
)

type CheckoutHandler struct {
	controller *service.Controller
	logger     *zap.Logger
}

func NewCheckoutHandler(controller *service.Controller, logger *zap.Logger) *CheckoutHandler {
	return &CheckoutHandler{controller: controller, logger: logger}
}

// CreateSession handles the checkout invocation. An invalid link is a
// 200 with the INVALID_ENTRY branch: the page renders a terminal
// screen instead of the form.
func (h *CheckoutHandler) CreateSession(c *gin.Context) {
	session, err := h.controller.Begin(c.Request.Context(), c.Request.URL.Query())
	if err != nil {
		h.logger.Error("creating checkout session", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create checkout session"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"session_id":    session.ID,
		"state":         session.State,
		"entry_problem": session.EntryProblem,
		"amount":        session.Entry.Amount,
		"currency":      session.Entry.Currency,
		"reference":     session.Entry.Reference,
	})
}

type payRequest struct {
	Phone   string         `json:"phone"`
	Email   string         `json:"email"`
	Carrier models.Carrier `json:"carrier"`
}

func (h *CheckoutHandler) Pay(c *gin.Context) {
	sessionID := c.Param("id")

	var req payRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if req.Carrier == "" {
		req.Carrier = models.CarrierMTN
	}

	result, err := h.controller.Submit(c.Request.Context(), sessionID, models.ContactInfo{
		Phone:   req.Phone,
		Email:   req.Email,
		Carrier: req.Carrier,
	})
	if errors.Is(err, sql.ErrNoRows) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Checkout session not found"})
		return
	}
	if err != nil {
		h.logger.Error("submitting payment", zap.String("session_id", sessionID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to submit payment"})
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *CheckoutHandler) GetState(c *gin.Context) {
	sessionID := c.Param("id")

	view, err := h.controller.State(c.Request.Context(), sessionID)
	if errors.Is(err, sql.ErrNoRows) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Checkout session not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch checkout state"})
		return
	}

	c.JSON(http.StatusOK, view)
}

func (h *CheckoutHandler) CancelSession(c *gin.Context) {
	h.controller.Cancel(c.Param("id"))
	c.JSON(http.StatusOK, gin.H{"status": "cancelled"})
}

// ListSessions serves the recent-sessions dashboard: newest first,
// optional ?state= filter, optional ?limit=.
func (h *CheckoutHandler) ListSessions(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))

	sessions, err := h.controller.Recent(c.Request.Context(), models.CheckoutState(c.Query("state")), limit)
	if err != nil {
		h.logger.Error("listing checkout sessions", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list checkout sessions"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"sessions": sessions})
}

// Health reports this service plus the advisory gateway probe. A sick
// gateway degrades the indicator only; payment stays available.
func (h *CheckoutHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "xafpay-checkout",
		"gateway": h.controller.GatewayHealthy(c.Request.Context()),
	})
}
