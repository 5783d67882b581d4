package handlers

import (
	"log/slog"
	"net/http"

	"github.com/SscSPs/fund_ledger/internal/core/domain"
	portssvc "github.com/SscSPs/fund_ledger/internal/core/ports/services"
	"github.com/SscSPs/fund_ledger/internal/dto"
	"github.com/SscSPs/fund_ledger/internal/middleware"
	"github.com/gin-gonic/gin"
)

// ledgerHandler serves the read API of the entry log and entry reversals.
type ledgerHandler struct {
	ledgerService portssvc.LedgerSvcFacade
}

func newLedgerHandler(ls portssvc.LedgerSvcFacade) *ledgerHandler {
	return &ledgerHandler{ledgerService: ls}
}

// RegisterLedgerRoutes registers account and entry routes.
func RegisterLedgerRoutes(rg *gin.RouterGroup, ledgerService portssvc.LedgerSvcFacade) {
	h := newLedgerHandler(ledgerService)

	accounts := rg.Group("/accounts")
	{
		accounts.GET("/:account/balance", h.getBalance)
		accounts.GET("/:account/entries", h.listEntries)
	}
	rg.POST("/entries/:entryID/reverse", h.reverseEntry)
}

// getBalance godoc
// @Summary Get the balance of an account
// @Description Returns credits minus debits of exactly this account, e.g. actif:groupe:42
// @Tags ledger
// @Produce  json
// @Param   account path string true "Account identifier"
// @Success 200 {object} dto.BalanceResponse
// @Failure 400 {object} map[string]string "Malformed account"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 500 {object} map[string]string "Failed to compute balance"
// @Security BearerAuth
// @Router /accounts/{account}/balance [get]
func (h *ledgerHandler) getBalance(c *gin.Context) {
	logger := middleware.GetLoggerFromContext(c)
	account := domain.Account(c.Param("account"))
	logger = logger.With(slog.String("account", account.String()))

	balance, err := h.ledgerService.Balance(c.Request.Context(), account)
	if err != nil {
		writeError(c, logger, err, "Failed to compute balance")
		return
	}

	c.JSON(http.StatusOK, dto.NewBalanceResponse(account.String(), balance))
}

// listEntries godoc
// @Summary List the entries of an account
// @Description Returns the entries touching an account, newest first, with token based pagination
// @Tags ledger
// @Produce  json
// @Param   account path string true "Account identifier"
// @Param   limit query int false "Page size" default(50)
// @Param   nextToken query string false "Token returned by the previous page"
// @Param   direction query string false "credit or debit"
// @Param   paymentID query string false "Only entries of this payment"
// @Param   spendingRequestID query string false "Only entries of this spending request"
// @Param   createdAfter query string false "RFC3339 lower bound (exclusive)"
// @Param   createdBefore query string false "RFC3339 upper bound (exclusive)"
// @Success 200 {object} dto.ListEntriesResponse
// @Failure 400 {object} map[string]string "Invalid query parameters"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 500 {object} map[string]string "Failed to list entries"
// @Security BearerAuth
// @Router /accounts/{account}/entries [get]
func (h *ledgerHandler) listEntries(c *gin.Context) {
	logger := middleware.GetLoggerFromContext(c)
	account := domain.Account(c.Param("account"))
	logger = logger.With(slog.String("account", account.String()))

	var params dto.ListEntriesParams
	if err := c.ShouldBindQuery(&params); err != nil {
		logger.Warn("Failed to bind query params for ListEntries", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters: " + err.Error()})
		return
	}

	entries, nextToken, err := h.ledgerService.EntriesFor(c.Request.Context(), account, params.ToFilter())
	if err != nil {
		writeError(c, logger, err, "Failed to list entries")
		return
	}

	c.JSON(http.StatusOK, dto.ListEntriesResponse{Entries: dto.ToEntryResponses(entries), NextToken: nextToken})
}

// reverseEntry godoc
// @Summary Reverse a ledger entry
// @Description Appends the compensating entry of an entry. Replaying returns the existing reversal.
// @Tags ledger
// @Accept  json
// @Produce  json
// @Param   entryID path string true "Entry ID"
// @Param   body body dto.ReverseEntryRequest false "Reason recorded as the comment"
// @Success 201 {object} dto.EntryResponse
// @Failure 404 {object} map[string]string "Entry not found"
// @Failure 409 {object} map[string]string "Entry is a reversal or a ledger rule would be broken"
// @Failure 422 {object} map[string]string "Insufficient funds"
// @Failure 503 {object} map[string]string "Concurrency conflict"
// @Security BearerAuth
// @Router /entries/{entryID}/reverse [post]
func (h *ledgerHandler) reverseEntry(c *gin.Context) {
	logger := middleware.GetLoggerFromContext(c)
	entryID := c.Param("entryID")
	logger = logger.With(slog.String("entry_id", entryID))

	var req dto.ReverseEntryRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			logger.Warn("Failed to bind JSON for ReverseEntry", slog.String("error", err.Error()))
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
			return
		}
	}

	reversal, err := h.ledgerService.Reverse(c.Request.Context(), entryID, req.Reason)
	if err != nil {
		writeError(c, logger, err, "Failed to reverse entry")
		return
	}

	logger.Info("Entry reversed", slog.String("reversal_id", reversal.EntryID))
	c.JSON(http.StatusCreated, dto.ToEntryResponse(reversal))
}
