package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/catalogimport/internal/database/progress"
	"github.com/mrlokans/catalogimport/internal/entities"
	"github.com/mrlokans/catalogimport/internal/importers"
	"github.com/mrlokans/catalogimport/internal/services"
)

// ImportService starts and looks up import jobs.
// Implemented by services.ImportService.
type ImportService interface {
	StartImport(opts entities.ImportOptions, sources []entities.Source) (*entities.ImportProgress, error)
	StartExclusive(opts entities.ImportOptions, sources []entities.Source) (*entities.ImportProgress, error)
	GetJob(jobID string) (*entities.ImportProgress, error)
	RecentJobs(limit int) ([]entities.ImportProgress, error)
}

// StartImportRequest is the request body for POST /api/imports.
// Sources may be empty to import from every registered source.
type StartImportRequest struct {
	Sources   []entities.Source `json:"sources"`
	Exclusive bool              `json:"exclusive"`
	entities.ImportOptions
}

// ImportsController handles import job endpoints.
type ImportsController struct {
	service ImportService
}

// NewImportsController creates a new ImportsController.
func NewImportsController(service ImportService) *ImportsController {
	return &ImportsController{service: service}
}

// StartImport handles POST /api/imports
// Records a pending job and returns it; the job runs in the background.
func (ic *ImportsController) StartImport(c *gin.Context) {
	var req StartImportRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBadRequest(c, "invalid request body: "+err.Error())
			return
		}
	}

	start := ic.service.StartImport
	if req.Exclusive {
		start = ic.service.StartExclusive
	}

	job, err := start(req.ImportOptions, req.Sources)
	switch {
	case err == nil:
		c.Header("Location", "/api/imports/"+job.JobID)
		respondAccepted(c, "import started", job)
	case errors.Is(err, importers.ErrUnknownSource):
		respondError(c, http.StatusBadRequest, "unknown_source", err.Error())
	case errors.Is(err, services.ErrImportRunning):
		respondError(c, http.StatusConflict, "import_running", err.Error())
	case errors.Is(err, entities.ErrInvalidOptions):
		respondError(c, http.StatusBadRequest, "invalid_options", err.Error())
	default:
		respondInternalError(c, err, "start import")
	}
}

// GetImport handles GET /api/imports/:id
func (ic *ImportsController) GetImport(c *gin.Context) {
	job, err := ic.service.GetJob(c.Param("id"))
	if err != nil {
		if progress.IsNotFound(err) {
			respondNotFound(c, "import")
			return
		}
		respondInternalError(c, err, "get import")
		return
	}
	c.JSON(http.StatusOK, job)
}

// ListImports handles GET /api/imports
func (ic *ImportsController) ListImports(c *gin.Context) {
	limit := 20
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			respondBadRequest(c, "invalid limit")
			return
		}
		limit = min(n, maxPageLimit)
	}

	jobs, err := ic.service.RecentJobs(limit)
	if err != nil {
		respondInternalError(c, err, "list imports")
		return
	}
	c.JSON(http.StatusOK, gin.H{"imports": jobs, "count": len(jobs)})
}
