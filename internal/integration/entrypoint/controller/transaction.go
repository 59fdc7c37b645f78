// Package controller implements HTTP handlers for the API endpoints.
package controller

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/finance-tracker/ledger/internal/application/usecase/transaction"
	"github.com/finance-tracker/ledger/internal/domain/entity"
	domainerror "github.com/finance-tracker/ledger/internal/domain/error"
	"github.com/finance-tracker/ledger/internal/integration/entrypoint/dto"
	"github.com/finance-tracker/ledger/internal/integration/entrypoint/middleware"
)

// unavailableMessage is returned for every infrastructure failure. The cause is only logged.
const unavailableMessage = "Service temporarily unavailable. Please try again later."

// TransactionController handles transaction endpoints.
type TransactionController struct {
	listUseCase   *transaction.ListTransactionsUseCase
	createUseCase *transaction.CreateTransactionUseCase
	updateUseCase *transaction.UpdateTransactionUseCase
	deleteUseCase *transaction.DeleteTransactionUseCase
	statsUseCase  *transaction.GetStatsUseCase
}

// NewTransactionController creates a new transaction controller instance.
func NewTransactionController(
	listUseCase *transaction.ListTransactionsUseCase,
	createUseCase *transaction.CreateTransactionUseCase,
	updateUseCase *transaction.UpdateTransactionUseCase,
	deleteUseCase *transaction.DeleteTransactionUseCase,
	statsUseCase *transaction.GetStatsUseCase,
) *TransactionController {
	return &TransactionController{
		listUseCase:   listUseCase,
		createUseCase: createUseCase,
		updateUseCase: updateUseCase,
		deleteUseCase: deleteUseCase,
		statsUseCase:  statsUseCase,
	}
}

// List handles GET /transactions requests.
// The optional type filter and the optional startDate/endDate range are mutually exclusive.
func (c *TransactionController) List(ctx *gin.Context) {
	userID, ok := requireUserID(ctx)
	if !ok {
		return
	}

	input := transaction.ListTransactionsInput{UserID: userID}

	if rawType := ctx.Query("type"); rawType != "" {
		txnType, _ := entity.ParseTransactionType(rawType)
		input.Type = &txnType
	}

	var err error
	if input.StartDate, err = parseDateQuery(ctx, "startDate"); err != nil {
		c.respondInvalidDate(ctx)
		return
	}
	if input.EndDate, err = parseDateQuery(ctx, "endDate"); err != nil {
		c.respondInvalidDate(ctx)
		return
	}

	c.list(ctx, input)
}

// ListByType handles GET /transactions/type/:type requests.
func (c *TransactionController) ListByType(ctx *gin.Context) {
	userID, ok := requireUserID(ctx)
	if !ok {
		return
	}

	txnType, _ := entity.ParseTransactionType(ctx.Param("type"))
	c.list(ctx, transaction.ListTransactionsInput{
		UserID: userID,
		Type:   &txnType,
	})
}

// ListByDateRange handles GET /transactions/date-range requests.
// Both bounds are required and inclusive.
func (c *TransactionController) ListByDateRange(ctx *gin.Context) {
	userID, ok := requireUserID(ctx)
	if !ok {
		return
	}

	startDate, err := parseDateQuery(ctx, "startDate")
	if err != nil {
		c.respondInvalidDate(ctx)
		return
	}
	endDate, err := parseDateQuery(ctx, "endDate")
	if err != nil {
		c.respondInvalidDate(ctx)
		return
	}
	if startDate == nil || endDate == nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error: "startDate and endDate are required",
			Code:  string(domainerror.ErrCodeInvalidListFilter),
		})
		return
	}

	c.list(ctx, transaction.ListTransactionsInput{
		UserID:    userID,
		StartDate: startDate,
		EndDate:   endDate,
	})
}

func (c *TransactionController) list(ctx *gin.Context, input transaction.ListTransactionsInput) {
	output, err := c.listUseCase.Execute(ctx.Request.Context(), input)
	if err != nil {
		c.handleTransactionError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.ToTransactionListResponse(output))
}

// Create handles POST /transactions requests.
func (c *TransactionController) Create(ctx *gin.Context) {
	userID, ok := requireUserID(ctx)
	if !ok {
		return
	}

	draft, ok := c.bindDraft(ctx)
	if !ok {
		return
	}

	output, err := c.createUseCase.Execute(ctx.Request.Context(), transaction.CreateTransactionInput{
		UserID: userID,
		Draft:  draft,
	})
	if err != nil {
		c.handleTransactionError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, dto.ToTransactionResponse(output.Transaction))
}

// Update handles PUT /transactions/:id requests.
func (c *TransactionController) Update(ctx *gin.Context) {
	userID, ok := requireUserID(ctx)
	if !ok {
		return
	}

	transactionID, ok := c.parseTransactionID(ctx)
	if !ok {
		return
	}

	draft, ok := c.bindDraft(ctx)
	if !ok {
		return
	}

	output, err := c.updateUseCase.Execute(ctx.Request.Context(), transaction.UpdateTransactionInput{
		TransactionID: transactionID,
		UserID:        userID,
		Draft:         draft,
	})
	if err != nil {
		c.handleTransactionError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.ToTransactionResponse(output.Transaction))
}

// Delete handles DELETE /transactions/:id requests.
func (c *TransactionController) Delete(ctx *gin.Context) {
	userID, ok := requireUserID(ctx)
	if !ok {
		return
	}

	transactionID, ok := c.parseTransactionID(ctx)
	if !ok {
		return
	}

	_, err := c.deleteUseCase.Execute(ctx.Request.Context(), transaction.DeleteTransactionInput{
		TransactionID: transactionID,
		UserID:        userID,
	})
	if err != nil {
		c.handleTransactionError(ctx, err)
		return
	}

	ctx.Status(http.StatusNoContent)
}

// Stats handles GET /transactions/stats requests.
func (c *TransactionController) Stats(ctx *gin.Context) {
	userID, ok := requireUserID(ctx)
	if !ok {
		return
	}

	output, err := c.statsUseCase.Execute(ctx.Request.Context(), transaction.GetStatsInput{UserID: userID})
	if err != nil {
		c.handleTransactionError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.ToTransactionStatsResponse(output))
}

// bindDraft decodes and converts the request body. It writes the 400 response itself.
func (c *TransactionController) bindDraft(ctx *gin.Context) (transaction.TransactionDraft, bool) {
	var req dto.TransactionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error: "Invalid request body",
			Code:  string(domainerror.ErrCodeMissingTransactionFields),
		})
		return transaction.TransactionDraft{}, false
	}

	if missing := req.MissingFields(); len(missing) > 0 {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error: "Missing required fields: " + strings.Join(missing, ", "),
			Code:  string(domainerror.ErrCodeMissingTransactionFields),
		})
		return transaction.TransactionDraft{}, false
	}

	date, err := time.Parse(entity.DateLayout, *req.Date)
	if err != nil {
		c.respondInvalidDate(ctx)
		return transaction.TransactionDraft{}, false
	}

	txnType, _ := entity.ParseTransactionType(*req.Type)

	return transaction.TransactionDraft{
		Type:        txnType,
		Category:    *req.Category,
		Amount:      *req.Amount,
		Date:        date,
		Description: req.Description,
		Notes:       req.Notes,
	}, true
}

func (c *TransactionController) parseTransactionID(ctx *gin.Context) (uuid.UUID, bool) {
	transactionID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error: "Invalid transaction ID format",
			Code:  string(domainerror.ErrCodeInvalidTransactionID),
		})
		return uuid.Nil, false
	}
	return transactionID, true
}

func (c *TransactionController) respondInvalidDate(ctx *gin.Context) {
	ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{
		Error: "Invalid date format. Use YYYY-MM-DD",
		Code:  string(domainerror.ErrCodeInvalidTransactionDate),
	})
}

// handleTransactionError maps transaction errors to HTTP responses.
func (c *TransactionController) handleTransactionError(ctx *gin.Context, err error) {
	var txnErr *domainerror.TransactionError
	if errors.As(err, &txnErr) {
		statusCode := c.getStatusCodeForTransactionError(txnErr.Code)
		if statusCode == http.StatusServiceUnavailable {
			slog.Error("Ledger request failed",
				"path", ctx.FullPath(),
				"error", err,
			)
			ctx.JSON(statusCode, dto.ErrorResponse{
				Error: unavailableMessage,
				Code:  string(txnErr.Code),
			})
			return
		}
		ctx.JSON(statusCode, dto.ErrorResponse{
			Error: txnErr.Message,
			Code:  string(txnErr.Code),
		})
		return
	}

	slog.Error("Unexpected ledger error", "path", ctx.FullPath(), "error", err)
	ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{
		Error: "An internal error occurred",
	})
}

// getStatusCodeForTransactionError maps transaction error codes to HTTP status codes.
func (c *TransactionController) getStatusCodeForTransactionError(code domainerror.TransactionErrorCode) int {
	switch code {
	case domainerror.ErrCodeTransactionNotFound:
		return http.StatusNotFound
	case domainerror.ErrCodeNotAuthorizedTransaction:
		return http.StatusForbidden
	case domainerror.ErrCodeInvalidTransactionType,
		domainerror.ErrCodeInvalidTransactionDate,
		domainerror.ErrCodeInvalidTransactionAmount,
		domainerror.ErrCodeInvalidCategory,
		domainerror.ErrCodeDescriptionTooLong,
		domainerror.ErrCodeNotesTooLong,
		domainerror.ErrCodeMissingTransactionFields,
		domainerror.ErrCodeInvalidListFilter,
		domainerror.ErrCodeInvalidTransactionID:
		return http.StatusBadRequest
	case domainerror.ErrCodeLedgerUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// requireUserID reads the caller resolved by middleware.RequireUserID.
func requireUserID(ctx *gin.Context) (uuid.UUID, bool) {
	userID, ok := middleware.GetUserIDFromContext(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, dto.ErrorResponse{
			Error: "User not identified",
			Code:  string(domainerror.ErrCodeMissingUserID),
		})
		return uuid.Nil, false
	}
	return userID, true
}

// parseDateQuery returns nil when the parameter is absent.
func parseDateQuery(ctx *gin.Context, name string) (*time.Time, error) {
	raw := ctx.Query(name)
	if raw == "" {
		return nil, nil
	}
	date, err := time.Parse(entity.DateLayout, raw)
	if err != nil {
		return nil, err
	}
	return &date, nil
}
