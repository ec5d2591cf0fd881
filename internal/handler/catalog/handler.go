package catalog

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/odontogram-api/internal/handler"
	"github.com/jwalitptl/odontogram-api/internal/middleware"
	"github.com/jwalitptl/odontogram-api/internal/model"
	"github.com/jwalitptl/odontogram-api/internal/service/catalog"
	"github.com/jwalitptl/odontogram-api/pkg/auth"
	apperrors "github.com/jwalitptl/odontogram-api/pkg/errors"
)

type UpsertConditionRequest struct {
	DisplayName     string `json:"display_name" binding:"required,max=100"`
	Category        string `json:"category" binding:"max=50"`
	Priority        *int   `json:"priority" binding:"required,min=0"`
	IsTerminal      bool   `json:"is_terminal"`
	AllowsReversion bool   `json:"allows_reversion"`
	Color           string `json:"color" binding:"omitempty,hexcolor"`
}

type InvalidateRequest struct {
	Category string `json:"category"`
}

type Handler struct {
	service *catalog.Service
}

func NewHandler(service *catalog.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup, authMiddleware *middleware.AuthMiddleware) {
	conditions := r.Group("/conditions")
	{
		conditions.GET("", h.ListConditions)
		conditions.PUT("/:code", authMiddleware.RequireRole(auth.RoleAdmin), h.UpsertCondition)
		conditions.POST("/invalidate", authMiddleware.RequireRole(auth.RoleAdmin), h.Invalidate)
	}
}

func (h *Handler) ListConditions(c *gin.Context) {
	entries, err := h.service.List(c.Request.Context())
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(entries))
}

func (h *Handler) UpsertCondition(c *gin.Context) {
	code := strings.ToLower(strings.TrimSpace(c.Param("code")))
	if code == "" {
		handler.RespondError(c, apperrors.BadRequest("condition code is required", nil))
		return
	}

	var req UpsertConditionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.RespondError(c, apperrors.BadRequest("invalid request body", err))
		return
	}

	entry := &model.ConditionCatalogEntry{
		Code:            code,
		DisplayName:     req.DisplayName,
		Category:        req.Category,
		Priority:        *req.Priority,
		IsTerminal:      req.IsTerminal,
		AllowsReversion: req.AllowsReversion,
		Color:           req.Color,
	}
	if err := h.service.Upsert(c.Request.Context(), middleware.UserID(c), entry); err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(entry))
}

func (h *Handler) Invalidate(c *gin.Context) {
	var req InvalidateRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			handler.RespondError(c, apperrors.BadRequest("invalid request body", err))
			return
		}
	}

	removed, err := h.service.Invalidate(c.Request.Context(), middleware.UserID(c), req.Category)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{"removed": removed}))
}
