package audit

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/odontogram-api/internal/handler"
	"github.com/jwalitptl/odontogram-api/internal/model"
	"github.com/jwalitptl/odontogram-api/internal/service/audit"
	apperrors "github.com/jwalitptl/odontogram-api/pkg/errors"
)

const maxLimit = 500

type Handler struct {
	service *audit.Service
}

func NewHandler(service *audit.Service) *Handler {
	return &Handler{
		service: service,
	}
}

// RegisterRoutes mounts the audit endpoints on r. Callers restrict r to admins.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	audit := r.Group("/audit")
	{
		audit.GET("/logs", h.ListLogs)
		audit.GET("/logs/entity/:type/:id", h.GetEntityLogs)
		audit.GET("/export", h.ExportLogs)
	}
}

func (h *Handler) ListLogs(c *gin.Context) {
	filter, err := parseFilter(c)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	logs, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(logs))
}

func (h *Handler) GetEntityLogs(c *gin.Context) {
	entityID, err := handler.ParseUUIDParam(c, "id")
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	filter, err := parseFilter(c)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	filter.EntityType = c.Param("type")
	filter.EntityID = entityID

	logs, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(logs))
}

func (h *Handler) ExportLogs(c *gin.Context) {
	filter, err := parseFilter(c)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	logs, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	filename := fmt.Sprintf("audit_logs_%s.csv", time.Now().UTC().Format("20060102_150405"))
	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	c.Status(http.StatusOK)

	writer := csv.NewWriter(c.Writer)
	_ = writer.Write([]string{"ID", "User ID", "Action", "Entity Type", "Entity ID", "IP Address", "Created At"})
	for _, log := range logs {
		_ = writer.Write([]string{
			log.ID.String(),
			log.UserID.String(),
			log.Action,
			log.EntityType,
			log.EntityID.String(),
			log.IPAddress,
			log.CreatedAt.Format(time.RFC3339),
		})
	}
	writer.Flush()
}

func parseFilter(c *gin.Context) (model.AuditFilter, error) {
	filter := model.AuditFilter{
		EntityType: c.Query("entity_type"),
		Limit:      100,
	}

	if v := c.Query("entity_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return filter, apperrors.BadRequest("invalid entity_id", err)
		}
		filter.EntityID = id
	}
	if v := c.Query("user_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return filter, apperrors.BadRequest("invalid user_id", err)
		}
		filter.UserID = id
	}
	if v := c.Query("since"); v != "" {
		since, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return filter, apperrors.BadRequest("invalid since format", err)
		}
		filter.Since = since
	}
	if v := c.Query("limit"); v != "" {
		limit, err := handler.ParseIntParam("limit", v)
		if err != nil {
			return filter, err
		}
		if limit == 0 || limit > maxLimit {
			limit = maxLimit
		}
		filter.Limit = limit
	}
	return filter, nil
}
