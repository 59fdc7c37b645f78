package controller

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/finance-tracker/ledger/internal/application/usecase/analytics"
	domainerror "github.com/finance-tracker/ledger/internal/domain/error"
	"github.com/finance-tracker/ledger/internal/integration/entrypoint/dto"
)

// AnalyticsController handles analytics endpoints.
type AnalyticsController struct {
	materializer *analytics.Materializer
}

// NewAnalyticsController creates a new analytics controller instance.
func NewAnalyticsController(materializer *analytics.Materializer) *AnalyticsController {
	return &AnalyticsController{
		materializer: materializer,
	}
}

// CategoryBreakdown handles GET /analytics/category-breakdown requests.
func (c *AnalyticsController) CategoryBreakdown(ctx *gin.Context) {
	userID, ok := requireUserID(ctx)
	if !ok {
		return
	}

	breakdown, err := c.materializer.GetCategoryBreakdown(ctx.Request.Context(), userID)
	if err != nil {
		c.handleAnalyticsError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.ToCategoryBreakdownResponse(breakdown))
}

// Trends handles GET /analytics/trends requests. days defaults to 7.
func (c *AnalyticsController) Trends(ctx *gin.Context) {
	userID, ok := requireUserID(ctx)
	if !ok {
		return
	}

	days := analytics.DefaultTrendDays
	if raw := ctx.Query("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{
				Error: "days must be an integer",
				Code:  string(domainerror.ErrCodeInvalidTrendDays),
			})
			return
		}
		days = parsed
	}

	trend, err := c.materializer.GetTrendData(ctx.Request.Context(), userID, days)
	if err != nil {
		c.handleAnalyticsError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.ToTrendDataResponse(trend))
}

// Report handles GET /analytics/report requests. period defaults to "monthly".
func (c *AnalyticsController) Report(ctx *gin.Context) {
	userID, ok := requireUserID(ctx)
	if !ok {
		return
	}

	report, err := c.materializer.GetReport(ctx.Request.Context(), userID, ctx.Query("period"))
	if err != nil {
		c.handleAnalyticsError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.ToReportResponse(report))
}

// handleAnalyticsError maps analytics errors to HTTP responses.
func (c *AnalyticsController) handleAnalyticsError(ctx *gin.Context, err error) {
	var anlErr *domainerror.AnalyticsError
	if errors.As(err, &anlErr) {
		switch anlErr.Code {
		case domainerror.ErrCodeInvalidTrendDays, domainerror.ErrCodeInvalidReportPeriod:
			ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{
				Error: anlErr.Message,
				Code:  string(anlErr.Code),
			})
			return
		case domainerror.ErrCodeAnalyticsUnavailable:
			slog.Error("Analytics request failed", "path", ctx.FullPath(), "error", err)
			ctx.JSON(http.StatusServiceUnavailable, dto.ErrorResponse{
				Error: unavailableMessage,
				Code:  string(anlErr.Code),
			})
			return
		}
	}

	slog.Error("Unexpected analytics error", "path", ctx.FullPath(), "error", err)
	ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{
		Error: "An internal error occurred",
	})
}
