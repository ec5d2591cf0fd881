package odontogram

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/odontogram-api/internal/export"
	"github.com/jwalitptl/odontogram-api/internal/handler"
	"github.com/jwalitptl/odontogram-api/internal/middleware"
	"github.com/jwalitptl/odontogram-api/internal/model"
	"github.com/jwalitptl/odontogram-api/internal/service/odontogram"
	"github.com/jwalitptl/odontogram-api/pkg/auth"
	apperrors "github.com/jwalitptl/odontogram-api/pkg/errors"
)

// CatalogLister supplies condition colors for exports.
type CatalogLister interface {
	List(ctx context.Context) ([]model.ConditionCatalogEntry, error)
}

type Handler struct {
	service *odontogram.Service
	catalog CatalogLister
}

func NewHandler(service *odontogram.Service, catalog CatalogLister) *Handler {
	return &Handler{
		service: service,
		catalog: catalog,
	}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup, authMiddleware *middleware.AuthMiddleware) {
	chart := r.Group("/patients/:id/odontogram")
	{
		chart.GET("", h.GetCurrent)
		chart.GET("/versions", h.ListVersions)
		chart.GET("/versions/:version", h.GetVersion)
		chart.GET("/diff", h.GetDiff)
		chart.GET("/export", h.Export)
		chart.POST("/visits", authMiddleware.RequireRole(auth.RoleDentist, auth.RoleAdmin), h.FinalizeVisit)
	}
}

func (h *Handler) FinalizeVisit(c *gin.Context) {
	patientID, err := handler.ParseUUIDParam(c, "id")
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	var req model.FinalizeVisitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.RespondError(c, apperrors.BadRequest("invalid request body", err))
		return
	}

	result, err := h.service.FinalizeVisit(c.Request.Context(), patientID, middleware.UserID(c), req.Entries)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, handler.NewSuccessResponse(result))
}

func (h *Handler) GetCurrent(c *gin.Context) {
	patientID, err := handler.ParseUUIDParam(c, "id")
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	chart, err := h.service.Current(c.Request.Context(), patientID)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(chart))
}

func (h *Handler) ListVersions(c *gin.Context) {
	patientID, err := handler.ParseUUIDParam(c, "id")
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	versions, err := h.service.History(c.Request.Context(), patientID)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(versions))
}

func (h *Handler) GetVersion(c *gin.Context) {
	patientID, err := handler.ParseUUIDParam(c, "id")
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	version, err := handler.ParseIntParam("version", c.Param("version"))
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	chart, err := h.service.Version(c.Request.Context(), patientID, version)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(chart))
}

func (h *Handler) GetDiff(c *gin.Context) {
	patientID, err := handler.ParseUUIDParam(c, "id")
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	from, err := handler.ParseIntParam("from", c.Query("from"))
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	to, err := handler.ParseIntParam("to", c.Query("to"))
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	changes, err := h.service.Diff(c.Request.Context(), patientID, from, to)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{
		"from":    from,
		"to":      to,
		"changes": changes,
	}))
}

// Export downloads the current chart, or ?version=n, as an xlsx workbook.
func (h *Handler) Export(c *gin.Context) {
	patientID, err := handler.ParseUUIDParam(c, "id")
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	ctx := c.Request.Context()
	var chart *model.OdontogramSnapshot
	if v := c.Query("version"); v != "" {
		version, err := handler.ParseIntParam("version", v)
		if err != nil {
			handler.RespondError(c, err)
			return
		}
		chart, err = h.service.Version(ctx, patientID, version)
		if err != nil {
			handler.RespondError(c, err)
			return
		}
	} else {
		chart, err = h.service.Current(ctx, patientID)
		if err != nil {
			handler.RespondError(c, err)
			return
		}
	}

	catalog, err := h.catalog.List(ctx)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	data, err := export.Chart(*chart, catalog)
	if err != nil {
		handler.RespondError(c, apperrors.Internal(err))
		return
	}

	filename := fmt.Sprintf("odontograma_%s_v%d.xlsx", patientID, chart.Version)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	c.Data(http.StatusOK, export.ContentType, data)
}
