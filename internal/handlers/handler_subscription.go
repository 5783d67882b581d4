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

// subscriptionHandler serves subscription snapshots and their monthly plan.
type subscriptionHandler struct {
	monthlyService portssvc.MonthlyAllocationSvcFacade
}

func newSubscriptionHandler(ms portssvc.MonthlyAllocationSvcFacade) *subscriptionHandler {
	return &subscriptionHandler{monthlyService: ms}
}

// RegisterSubscriptionRoutes registers subscription routes.
func RegisterSubscriptionRoutes(rg *gin.RouterGroup, monthlyService portssvc.MonthlyAllocationSvcFacade) {
	h := newSubscriptionHandler(monthlyService)

	subscriptions := rg.Group("/subscriptions")
	{
		subscriptions.POST("", h.registerSubscription)
		subscriptions.PUT("/:subscriptionID/price", h.changePrice)

		monthly := subscriptions.Group("/:subscriptionID/monthly-allocations")
		monthly.GET("", h.listMonthlyAllocations)
		monthly.POST("", h.addMonthlyAllocation)
		monthly.PUT("", h.replaceMonthlyAllocations)
		monthly.PUT("/:target", h.updateMonthlyAllocation)
		monthly.DELETE("/:target", h.removeMonthlyAllocation)
	}
}

// registerSubscription godoc
// @Summary Register a subscription snapshot
// @Tags subscriptions
// @Accept  json
// @Produce  json
// @Param   subscription body dto.RegisterSubscriptionRequest true "Subscription snapshot"
// @Success 200 {object} dto.SubscriptionResponse
// @Failure 400 {object} map[string]string "Invalid subscription"
// @Failure 409 {object} map[string]string "Price below the monthly plan"
// @Security BearerAuth
// @Router /subscriptions [post]
func (h *subscriptionHandler) registerSubscription(c *gin.Context) {
	logger := middleware.GetLoggerFromContext(c)
	var req dto.RegisterSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for RegisterSubscription", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	sub, err := h.monthlyService.RegisterSubscription(c.Request.Context(), req.ToDomain())
	if err != nil {
		writeError(c, logger.With(slog.String("subscription_id", req.SubscriptionID)), err, "Failed to register subscription")
		return
	}
	c.JSON(http.StatusOK, dto.ToSubscriptionResponse(sub))
}

// changePrice godoc
// @Summary Change the price of a subscription
// @Tags subscriptions
// @Accept  json
// @Produce  json
// @Param   subscriptionID path string true "Subscription ID"
// @Param   body body dto.ChangePriceRequest true "New price in minor units"
// @Success 200 {object} dto.SubscriptionResponse
// @Failure 404 {object} map[string]string "Subscription not found"
// @Failure 409 {object} map[string]string "Price below the monthly plan"
// @Security BearerAuth
// @Router /subscriptions/{subscriptionID}/price [put]
func (h *subscriptionHandler) changePrice(c *gin.Context) {
	logger := middleware.GetLoggerFromContext(c)
	subscriptionID := c.Param("subscriptionID")
	logger = logger.With(slog.String("subscription_id", subscriptionID))

	var req dto.ChangePriceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for ChangeSubscriptionPrice", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	sub, err := h.monthlyService.ChangeSubscriptionPrice(c.Request.Context(), subscriptionID, *req.Price)
	if err != nil {
		writeError(c, logger, err, "Failed to change subscription price")
		return
	}
	c.JSON(http.StatusOK, dto.ToSubscriptionResponse(sub))
}

// listMonthlyAllocations godoc
// @Summary List the monthly plan of a subscription
// @Tags subscriptions
// @Produce  json
// @Param   subscriptionID path string true "Subscription ID"
// @Success 200 {array} dto.MonthlyAllocationResponse
// @Failure 404 {object} map[string]string "Subscription not found"
// @Security BearerAuth
// @Router /subscriptions/{subscriptionID}/monthly-allocations [get]
func (h *subscriptionHandler) listMonthlyAllocations(c *gin.Context) {
	logger := middleware.GetLoggerFromContext(c)
	subscriptionID := c.Param("subscriptionID")

	rows, err := h.monthlyService.ListMonthlyAllocations(c.Request.Context(), subscriptionID)
	if err != nil {
		writeError(c, logger.With(slog.String("subscription_id", subscriptionID)), err, "Failed to list monthly allocations")
		return
	}
	c.JSON(http.StatusOK, dto.ToMonthlyAllocationResponses(rows))
}

// addMonthlyAllocation godoc
// @Summary Add a monthly allocation
// @Tags subscriptions
// @Accept  json
// @Produce  json
// @Param   subscriptionID path string true "Subscription ID"
// @Param   allocation body dto.AllocationRequest true "Allocation"
// @Success 201 {object} dto.MonthlyAllocationResponse
// @Failure 400 {object} map[string]string "Unknown target"
// @Failure 409 {object} map[string]string "Target already planned or plan above price"
// @Security BearerAuth
// @Router /subscriptions/{subscriptionID}/monthly-allocations [post]
func (h *subscriptionHandler) addMonthlyAllocation(c *gin.Context) {
	logger := middleware.GetLoggerFromContext(c)
	subscriptionID := c.Param("subscriptionID")
	logger = logger.With(slog.String("subscription_id", subscriptionID))

	var req dto.AllocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for AddMonthlyAllocation", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	row, err := h.monthlyService.AddMonthlyAllocation(c.Request.Context(), subscriptionID, dto.ToRawAllocations([]dto.AllocationRequest{req})[0])
	if err != nil {
		writeError(c, logger, err, "Failed to add monthly allocation")
		return
	}
	c.JSON(http.StatusCreated, dto.ToMonthlyAllocationResponse(row))
}

// replaceMonthlyAllocations godoc
// @Summary Replace the whole monthly plan
// @Description All-or-nothing: the previous plan is kept when the new one is rejected
// @Tags subscriptions
// @Accept  json
// @Produce  json
// @Param   subscriptionID path string true "Subscription ID"
// @Param   body body dto.ReplaceMonthlyAllocationsRequest true "New plan"
// @Success 200 {array} dto.MonthlyAllocationResponse
// @Failure 400 {object} map[string]string "Invalid plan"
// @Failure 409 {object} map[string]string "Plan above price"
// @Security BearerAuth
// @Router /subscriptions/{subscriptionID}/monthly-allocations [put]
func (h *subscriptionHandler) replaceMonthlyAllocations(c *gin.Context) {
	logger := middleware.GetLoggerFromContext(c)
	subscriptionID := c.Param("subscriptionID")
	logger = logger.With(slog.String("subscription_id", subscriptionID))

	var req dto.ReplaceMonthlyAllocationsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for ReplaceMonthlyAllocations", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	rows, err := h.monthlyService.ReplaceMonthlyAllocations(c.Request.Context(), subscriptionID, dto.ToRawAllocations(req.Allocations))
	if err != nil {
		writeError(c, logger, err, "Failed to replace monthly allocations")
		return
	}
	c.JSON(http.StatusOK, dto.ToMonthlyAllocationResponses(rows))
}

// updateMonthlyAllocation godoc
// @Summary Change the amount of a monthly allocation
// @Description The row is cancelled and recreated; payments already charged keep their plan
// @Tags subscriptions
// @Accept  json
// @Produce  json
// @Param   subscriptionID path string true "Subscription ID"
// @Param   target path string true "Target, e.g. groupe:42"
// @Param   body body dto.UpdateMonthlyAllocationRequest true "New amount"
// @Success 200 {object} dto.MonthlyAllocationResponse
// @Failure 404 {object} map[string]string "Allocation not found"
// @Failure 409 {object} map[string]string "Plan above price"
// @Security BearerAuth
// @Router /subscriptions/{subscriptionID}/monthly-allocations/{target} [put]
func (h *subscriptionHandler) updateMonthlyAllocation(c *gin.Context) {
	logger := middleware.GetLoggerFromContext(c)
	subscriptionID := c.Param("subscriptionID")
	target := domain.ParseAllocationTarget(c.Param("target"))
	logger = logger.With(slog.String("subscription_id", subscriptionID), slog.String("target", target.String()))

	var req dto.UpdateMonthlyAllocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for UpdateMonthlyAllocation", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	row, err := h.monthlyService.UpdateMonthlyAllocation(c.Request.Context(), subscriptionID, target, *req.Amount)
	if err != nil {
		writeError(c, logger, err, "Failed to update monthly allocation")
		return
	}
	c.JSON(http.StatusOK, dto.ToMonthlyAllocationResponse(row))
}

// removeMonthlyAllocation godoc
// @Summary Remove a monthly allocation
// @Tags subscriptions
// @Param   subscriptionID path string true "Subscription ID"
// @Param   target path string true "Target, e.g. groupe:42"
// @Success 204 "No Content"
// @Failure 404 {object} map[string]string "Allocation not found"
// @Security BearerAuth
// @Router /subscriptions/{subscriptionID}/monthly-allocations/{target} [delete]
func (h *subscriptionHandler) removeMonthlyAllocation(c *gin.Context) {
	logger := middleware.GetLoggerFromContext(c)
	subscriptionID := c.Param("subscriptionID")
	target := domain.ParseAllocationTarget(c.Param("target"))

	if err := h.monthlyService.RemoveMonthlyAllocation(c.Request.Context(), subscriptionID, target); err != nil {
		writeError(c, logger.With(slog.String("subscription_id", subscriptionID), slog.String("target", target.String())), err, "Failed to remove monthly allocation")
		return
	}
	c.Status(http.StatusNoContent)
}
