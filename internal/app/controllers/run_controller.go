package controllers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/yigit/unisync/internal/app/models/dto"
	"github.com/yigit/unisync/internal/app/services"
	"github.com/yigit/unisync/internal/middleware"
	"github.com/yigit/unisync/internal/pkg/apperrors"
	"github.com/yigit/unisync/internal/pkg/helpers"
)

// RunArchive is the read side of the run report archive
type RunArchive interface {
	List(ctx context.Context, offset, limit int) ([]*services.Run, int, error)
	Latest(ctx context.Context) (*services.Run, error)
	Get(ctx context.Context, id uuid.UUID) (*services.Run, error)
}

// RunController serves archived run reports
type RunController struct {
	archive RunArchive
}

// NewRunController creates a new RunController
func NewRunController(archive RunArchive) *RunController {
	return &RunController{archive: archive}
}

// Health reports that the process is up
func (c *RunController) Health(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(gin.H{"status": "ok"}))
}

// GetLatestRun returns the report of the most recently started run, including which
// stores it left inconsistent.
func (c *RunController) GetLatestRun(ctx *gin.Context) {
	run, err := c.archive.Latest(ctx.Request.Context())
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(run))
}

// GetRunByID returns one run report
func (c *RunController) GetRunByID(ctx *gin.Context) {
	id, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		middleware.HandleAPIError(ctx, fmt.Errorf("%w: invalid run id %q", apperrors.ErrValidationFailed, ctx.Param("id")))
		return
	}

	run, err := c.archive.Get(ctx.Request.Context(), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(run))
}

// ListRuns returns a page of run reports, newest first
func (c *RunController) ListRuns(ctx *gin.Context) {
	page, size := helpers.ParsePaginationParams(ctx)

	runs, total, err := c.archive.List(ctx.Request.Context(), helpers.Offset(page, size), size)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	if runs == nil {
		runs = []*services.Run{}
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.RunListResponse{
		Runs:       runs,
		Pagination: helpers.NewPaginationInfo(int64(total), page, size),
	}))
}
