package handlers

import (
	"log/slog"
	"net/http"

	portssvc "github.com/SscSPs/fund_ledger/internal/core/ports/services"
	"github.com/SscSPs/fund_ledger/internal/dto"
	"github.com/SscSPs/fund_ledger/internal/middleware"
	"github.com/gin-gonic/gin"
)

// groupHandler serves the spending request workflow.
type groupHandler struct {
	spendingService portssvc.SpendingSvcFacade
}

func newGroupHandler(ss portssvc.SpendingSvcFacade) *groupHandler {
	return &groupHandler{spendingService: ss}
}

// RegisterGroupRoutes registers support group routes.
func RegisterGroupRoutes(rg *gin.RouterGroup, spendingService portssvc.SpendingSvcFacade) {
	h := newGroupHandler(spendingService)

	groups := rg.Group("/groups")
	{
		groups.GET("/:groupID/balance", h.getBalance)
		groups.POST("/:groupID/spendings", h.applySpending)
	}
}

// getBalance godoc
// @Summary Get the balance of a support group
// @Tags groups
// @Produce  json
// @Param   groupID path string true "Group ID"
// @Success 200 {object} dto.BalanceResponse
// @Failure 400 {object} map[string]string "Unknown group"
// @Security BearerAuth
// @Router /groups/{groupID}/balance [get]
func (h *groupHandler) getBalance(c *gin.Context) {
	logger := middleware.GetLoggerFromContext(c)
	groupID := c.Param("groupID")

	balance, err := h.spendingService.GroupBalance(c.Request.Context(), groupID)
	if err != nil {
		writeError(c, logger.With(slog.String("group_id", groupID)), err, "Failed to compute group balance")
		return
	}
	c.JSON(http.StatusOK, dto.NewBalanceResponse(groupID, balance))
}

// applySpending godoc
// @Summary Settle a spending request
// @Description Debits the group once per reference when a spending request reaches to_pay. Replays return the existing entry.
// @Tags groups
// @Accept  json
// @Produce  json
// @Param   groupID path string true "Group ID"
// @Param   body body dto.ApplySpendingRequest true "Negative amount and spending request reference"
// @Success 201 {object} dto.EntryResponse
// @Failure 400 {object} map[string]string "Invalid amount or unknown group"
// @Failure 409 {object} map[string]string "Reference already settled with another amount"
// @Failure 422 {object} map[string]string "Insufficient funds"
// @Failure 503 {object} map[string]string "Concurrency conflict"
// @Security BearerAuth
// @Router /groups/{groupID}/spendings [post]
func (h *groupHandler) applySpending(c *gin.Context) {
	logger := middleware.GetLoggerFromContext(c)
	groupID := c.Param("groupID")
	logger = logger.With(slog.String("group_id", groupID))

	var req dto.ApplySpendingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for ApplySpending", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}
	logger = logger.With(slog.String("spending_request_id", req.Reference))

	entry, err := h.spendingService.ApplySpending(c.Request.Context(), groupID, req.Amount, req.Reference)
	if err != nil {
		writeError(c, logger, err, "Failed to apply spending")
		return
	}

	logger.Info("Spending applied", slog.String("entry_id", entry.EntryID), slog.Int64("amount", entry.Amount))
	c.JSON(http.StatusCreated, dto.ToEntryResponse(entry))
}
