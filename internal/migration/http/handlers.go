package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/siteporter/siteporter-backend/internal/migration/domain"
	"github.com/siteporter/siteporter-backend/internal/migration/service"
)

// Handler exposes the migration API.
type Handler struct {
	migrations *service.MigrationService
}

// New creates a new Handler
func New(migrations *service.MigrationService) *Handler {
	return &Handler{migrations: migrations}
}

// Register mounts the migration routes on the given group.
func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.POST("/migrations", h.CreateMigration)
	rg.GET("/migrations", h.ListMigrations)
	rg.GET("/migrations/:id", h.GetMigration)
	rg.GET("/migrations/:id/document", h.GetDocument)
	rg.GET("/migrations/:id/converted", h.GetConverted)
	rg.GET("/migrations/:id/report", h.GetReport)
	rg.POST("/migrations/:id/cancel", h.CancelMigration)
	rg.POST("/migrations/:id/retry", h.RetryMigration)
}

// CreateMigration creates and enqueues a new migration
func (h *Handler) CreateMigration(c *gin.Context) {
	var req domain.CreateMigrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	m, err := h.migrations.Create(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, domain.ErrUnsupportedPlatform) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create migration"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"migration": m})
}

// ListMigrations lists migrations, optionally filtered by status
func (h *Handler) ListMigrations(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			limit = n
		}
	}

	migrations, err := h.migrations.List(c.Request.Context(), c.Query("status"), limit)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidStatus) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list migrations"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"migrations": migrations, "count": len(migrations)})
}

// GetMigration retrieves a migration by ID
func (h *Handler) GetMigration(c *gin.Context) {
	m, err := h.migrations.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err, "failed to get migration")
		return
	}
	c.JSON(http.StatusOK, gin.H{"migration": m})
}

// GetDocument returns the extracted document for a migration
func (h *Handler) GetDocument(c *gin.Context) {
	doc, err := h.migrations.GetDocument(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err, "failed to get document")
		return
	}
	c.JSON(http.StatusOK, gin.H{"document": doc})
}

// GetConverted returns the conversion result for a migration
func (h *Handler) GetConverted(c *gin.Context) {
	target, err := h.migrations.GetConverted(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err, "failed to get converted document")
		return
	}
	c.JSON(http.StatusOK, gin.H{"converted": target})
}

// GetReport returns the similarity report for a migration
func (h *Handler) GetReport(c *gin.Context) {
	report, err := h.migrations.GetReport(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err, "failed to get report")
		return
	}
	c.JSON(http.StatusOK, gin.H{"report": report})
}

// CancelMigration requests cooperative cancellation
func (h *Handler) CancelMigration(c *gin.Context) {
	m, err := h.migrations.Cancel(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, domain.ErrInvalidStatus) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		h.respondError(c, err, "failed to cancel migration")
		return
	}
	c.JSON(http.StatusOK, gin.H{"migration": m})
}

// RetryMigration re-enqueues a failed migration
func (h *Handler) RetryMigration(c *gin.Context) {
	m, err := h.migrations.Retry(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, domain.ErrInvalidStatus) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		h.respondError(c, err, "failed to retry migration")
		return
	}
	c.JSON(http.StatusOK, gin.H{"migration": m})
}

func (h *Handler) respondError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, domain.ErrMigrationNotFound),
		errors.Is(err, domain.ErrDocumentNotFound),
		errors.Is(err, domain.ErrReportNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
	}
}
