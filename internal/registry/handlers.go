package registry

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Handler exposes the registry over HTTP.
type Handler struct {
	service *Service
}

// NewHandler wraps a Service as an HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes sets up the public, read-only registry routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/registry/params", h.GetParams)
	r.GET("/registry/streams/:id", h.GetStream)
	r.GET("/registry/streams", h.ListStreams)
}

// RegisterProtectedRoutes sets up the admin-only mutating routes.
func (h *Handler) RegisterProtectedRoutes(r *gin.RouterGroup) {
	r.POST("/registry/streams", h.CreateStream)
	r.PUT("/registry/params", h.UpdateParams)
	r.POST("/registry/freeze", h.Freeze)
	r.POST("/registry/unfreeze", h.Unfreeze)
}

func writeServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "message": err.Error()})
	case errors.Is(err, ErrUnauthorized):
		c.JSON(http.StatusForbidden, gin.H{"error": "unauthorized", "message": err.Error()})
	case errors.Is(err, ErrFrozen), errors.Is(err, ErrInvalidParams),
		errors.Is(err, ErrDenomNotAllowed), errors.Is(err, ErrPaymentMismatch):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": "an internal error occurred"})
	}
}

// GetParams handles GET /v1/registry/params
func (h *Handler) GetParams(c *gin.Context) {
	params, err := h.service.QueryParams(c.Request.Context())
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, params)
}

// GetStream handles GET /v1/registry/streams/:id
func (h *Handler) GetStream(c *gin.Context) {
	s, err := h.service.QueryStream(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

// ListStreams handles GET /v1/registry/streams?start_after=
func (h *Handler) ListStreams(c *gin.Context) {
	streams, err := h.service.ListStreams(c.Request.Context(), c.Query("start_after"), 50)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"streams": streams})
}

// CreateStream handles POST /v1/registry/streams
func (h *Handler) CreateStream(c *gin.Context) {
	var req CreateStreamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "invalid request body"})
		return
	}
	s, err := h.service.CreateStream(c.Request.Context(), req)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, s)
}

// UpdateParams handles PUT /v1/registry/params
func (h *Handler) UpdateParams(c *gin.Context) {
	var body Params
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "invalid request body"})
		return
	}
	caller := c.GetString("authAddr")
	updated, err := h.service.UpdateParams(c.Request.Context(), caller, body)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

type freezeBody struct {
	Reason string `json:"reason,omitempty"`
}

// Freeze handles POST /v1/registry/freeze
func (h *Handler) Freeze(c *gin.Context) {
	var body freezeBody
	_ = c.ShouldBindJSON(&body)
	caller := c.GetString("authAddr")
	if err := h.service.Freeze(c.Request.Context(), caller, body.Reason); err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"frozen": true})
}

// Unfreeze handles POST /v1/registry/unfreeze
func (h *Handler) Unfreeze(c *gin.Context) {
	caller := c.GetString("authAddr")
	if err := h.service.Unfreeze(c.Request.Context(), caller); err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"frozen": false})
}
