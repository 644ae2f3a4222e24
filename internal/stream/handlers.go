package stream

import (
	"errors"
	"math/big"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/streamswap/engine/internal/validation"
)

// Handler exposes the distribution engine over HTTP.
type Handler struct {
	service   *Service
	analytics *AnalyticsService
}

// NewHandler wraps a Service as an HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service, analytics: NewAnalyticsService(service)}
}

// RegisterRoutes sets up the public, read-only stream routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/streams/:id", h.GetStream)
	r.GET("/streams", h.ListStreams)
	r.GET("/streams/:id/positions/:owner", h.GetPosition)
	r.GET("/streams/:id/analytics", h.GetAnalytics)
}

// RegisterProtectedRoutes sets up the auth-required, mutating routes.
func (h *Handler) RegisterProtectedRoutes(r *gin.RouterGroup) {
	r.POST("/streams/:id/subscribe", h.Subscribe)
	r.POST("/streams/:id/withdraw", h.Withdraw)
	r.POST("/streams/:id/update-position", h.UpdatePosition)
	r.POST("/streams/:id/exit", h.Exit)
	r.POST("/streams/:id/exit-cancelled", h.ExitCancelled)
	r.POST("/streams/:id/finalize", h.Finalize)
	r.POST("/streams/:id/cancel", h.Cancel)
}

func writeServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrStreamNotFound), errors.Is(err, ErrPositionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "message": err.Error()})
	case errors.Is(err, ErrUnauthorized):
		c.JSON(http.StatusForbidden, gin.H{"error": "unauthorized", "message": err.Error()})
	case errors.Is(err, ErrInvalidStatus), errors.Is(err, ErrInvalidAmount),
		errors.Is(err, ErrInvalidDenom), errors.Is(err, ErrPositionClosed),
		errors.Is(err, ErrWithdrawTooLarge), errors.Is(err, ErrAlreadyTerminal):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": "an internal error occurred"})
	}
}

// GetStream handles GET /v1/streams/:id
func (h *Handler) GetStream(c *gin.Context) {
	s, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

// ListStreams handles GET /v1/streams?start_after=&limit=
func (h *Handler) ListStreams(c *gin.Context) {
	limit := 50
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	streams, err := h.service.List(c.Request.Context(), c.Query("start_after"), limit)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"streams": streams})
}

// GetAnalytics handles GET /v1/streams/:id/analytics
func (h *Handler) GetAnalytics(c *gin.Context) {
	a, err := h.analytics.AveragePrice(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

// GetPosition handles GET /v1/streams/:id/positions/:owner
func (h *Handler) GetPosition(c *gin.Context) {
	pos, err := h.service.UpdatePosition(c.Request.Context(), c.Param("id"), c.Param("owner"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, pos)
}

type subscribeBody struct {
	Owner    string `json:"owner"`
	InAmount string `json:"in_amount"`
	InDenom  string `json:"in_denom"`
}

// Subscribe handles POST /v1/streams/:id/subscribe
func (h *Handler) Subscribe(c *gin.Context) {
	var body subscribeBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "invalid request body"})
		return
	}
	if errs := validation.Validate(
		validation.ValidAddress("owner", body.Owner),
		validation.Required("owner", body.Owner),
		validation.ValidAmount("in_amount", body.InAmount),
		validation.ValidDenom("in_denom", body.InDenom),
	); len(errs) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation_error", "details": errs})
		return
	}
	amount, ok := new(big.Int).SetString(body.InAmount, 10)
	if !ok || amount.Sign() <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "in_amount must be a positive integer"})
		return
	}

	pos, err := h.service.Subscribe(c.Request.Context(), c.Param("id"), SubscribeRequest{
		Owner:    body.Owner,
		InAmount: amount,
		InDenom:  body.InDenom,
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, pos)
}

type withdrawBody struct {
	Owner string `json:"owner"`
	Cap   string `json:"cap,omitempty"`
}

// Withdraw handles POST /v1/streams/:id/withdraw
func (h *Handler) Withdraw(c *gin.Context) {
	var body withdrawBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "invalid request body"})
		return
	}
	req := WithdrawRequest{Owner: body.Owner}
	if body.Cap != "" {
		cap, ok := new(big.Int).SetString(body.Cap, 10)
		if !ok || cap.Sign() <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "cap must be a positive integer"})
			return
		}
		req.Cap = cap
	}

	pos, err := h.service.Withdraw(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, pos)
}

// UpdatePosition handles POST /v1/streams/:id/update-position
func (h *Handler) UpdatePosition(c *gin.Context) {
	owner := c.Query("owner")
	pos, err := h.service.UpdatePosition(c.Request.Context(), c.Param("id"), owner)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, pos)
}

// Exit handles POST /v1/streams/:id/exit
func (h *Handler) Exit(c *gin.Context) {
	owner := c.Query("owner")
	pos, err := h.service.Exit(c.Request.Context(), c.Param("id"), owner)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, pos)
}

// ExitCancelled handles POST /v1/streams/:id/exit-cancelled
func (h *Handler) ExitCancelled(c *gin.Context) {
	owner := c.Query("owner")
	pos, err := h.service.ExitCancelled(c.Request.Context(), c.Param("id"), owner)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, pos)
}

type finalizeBody struct {
	NewTreasury string `json:"new_treasury,omitempty"`
}

// Finalize handles POST /v1/streams/:id/finalize
func (h *Handler) Finalize(c *gin.Context) {
	var body finalizeBody
	_ = c.ShouldBindJSON(&body)

	caller := c.GetString("authAddr")
	s, err := h.service.Finalize(c.Request.Context(), c.Param("id"), FinalizeRequest{
		Caller:      caller,
		NewTreasury: body.NewTreasury,
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

// Cancel handles POST /v1/streams/:id/cancel
func (h *Handler) Cancel(c *gin.Context) {
	caller := c.GetString("authAddr")
	s, err := h.service.Cancel(c.Request.Context(), c.Param("id"), caller)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}
