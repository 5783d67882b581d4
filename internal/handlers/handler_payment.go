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

// paymentHandler serves the donation intake routes.
type paymentHandler struct {
	allocationService portssvc.AllocationSvcFacade
}

func newPaymentHandler(as portssvc.AllocationSvcFacade) *paymentHandler {
	return &paymentHandler{allocationService: as}
}

// RegisterPaymentRoutes registers payment snapshot and allocation routes.
func RegisterPaymentRoutes(rg *gin.RouterGroup, allocationService portssvc.AllocationSvcFacade) {
	h := newPaymentHandler(allocationService)

	payments := rg.Group("/payments")
	{
		payments.POST("", h.registerPayment)
		payments.PUT("/:paymentID/price", h.changePrice)
		payments.POST("/:paymentID/status", h.handleStatus)
		payments.GET("/:paymentID/allocations", h.listAllocations)
		payments.POST("/:paymentID/allocations/apply", h.applyAllocations)
		payments.POST("/:paymentID/allocations/cancel", h.cancelAllocations)
		payments.PUT("/:paymentID/allocations/:target", h.applyAllocation)
	}
	rg.POST("/allocations/validate", h.validateAllocations)
}

// registerPayment godoc
// @Summary Register a payment snapshot
// @Description Stores or refreshes a payment and reacts to its status: completed applies the plan, canceled/refused/refunded cancel it
// @Tags payments
// @Accept  json
// @Produce  json
// @Param   payment body dto.RegisterPaymentRequest true "Payment snapshot"
// @Success 200 {object} dto.PaymentResponse
// @Failure 400 {object} map[string]string "Invalid payment or allocation list"
// @Failure 409 {object} map[string]string "Allocation ceiling or status transition conflict"
// @Failure 503 {object} map[string]string "Concurrency conflict"
// @Security BearerAuth
// @Router /payments [post]
func (h *paymentHandler) registerPayment(c *gin.Context) {
	logger := middleware.GetLoggerFromContext(c)
	var req dto.RegisterPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for RegisterPayment", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}
	logger = logger.With(slog.String("payment_id", req.PaymentID))

	payment, plan := req.ToDomain()
	registered, err := h.allocationService.RegisterPayment(c.Request.Context(), payment, plan)
	if err != nil {
		writeError(c, logger, err, "Failed to register payment")
		return
	}

	logger.Info("Payment registered", slog.String("status", string(registered.Status)))
	c.JSON(http.StatusOK, dto.ToPaymentResponse(registered))
}

// changePrice godoc
// @Summary Change the price of a payment
// @Description Refuses reductions below the amount already allocated or planned
// @Tags payments
// @Accept  json
// @Produce  json
// @Param   paymentID path string true "Payment ID"
// @Param   body body dto.ChangePriceRequest true "New price in minor units"
// @Success 200 {object} dto.PaymentResponse
// @Failure 404 {object} map[string]string "Payment not found"
// @Failure 409 {object} map[string]string "Price reduction below allocated amount"
// @Security BearerAuth
// @Router /payments/{paymentID}/price [put]
func (h *paymentHandler) changePrice(c *gin.Context) {
	logger := middleware.GetLoggerFromContext(c)
	paymentID := c.Param("paymentID")
	logger = logger.With(slog.String("payment_id", paymentID))

	var req dto.ChangePriceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for ChangePaymentPrice", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	payment, err := h.allocationService.ChangePaymentPrice(c.Request.Context(), paymentID, *req.Price)
	if err != nil {
		writeError(c, logger, err, "Failed to change payment price")
		return
	}
	c.JSON(http.StatusOK, dto.ToPaymentResponse(payment))
}

// handleStatus godoc
// @Summary Notify a payment status
// @Description Records a status notification from the payment provider. Replays are no-ops.
// @Tags payments
// @Accept  json
// @Produce  json
// @Param   paymentID path string true "Payment ID"
// @Param   body body dto.PaymentStatusRequest true "New status"
// @Success 200 {object} dto.PaymentResponse
// @Failure 404 {object} map[string]string "Payment not found"
// @Failure 409 {object} map[string]string "Status transition not allowed"
// @Failure 422 {object} map[string]string "Allocated funds already spent"
// @Security BearerAuth
// @Router /payments/{paymentID}/status [post]
func (h *paymentHandler) handleStatus(c *gin.Context) {
	logger := middleware.GetLoggerFromContext(c)
	paymentID := c.Param("paymentID")
	logger = logger.With(slog.String("payment_id", paymentID))

	var req dto.PaymentStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for HandlePaymentStatus", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	payment, err := h.allocationService.HandlePaymentStatus(c.Request.Context(), paymentID, domain.PaymentStatus(req.Status))
	if err != nil {
		writeError(c, logger, err, "Failed to handle payment status")
		return
	}
	c.JSON(http.StatusOK, dto.ToPaymentResponse(payment))
}

// listAllocations godoc
// @Summary Get the net allocations of a payment
// @Tags payments
// @Produce  json
// @Param   paymentID path string true "Payment ID"
// @Success 200 {object} dto.PaymentAllocationsResponse
// @Failure 404 {object} map[string]string "Payment not found"
// @Security BearerAuth
// @Router /payments/{paymentID}/allocations [get]
func (h *paymentHandler) listAllocations(c *gin.Context) {
	logger := middleware.GetLoggerFromContext(c)
	paymentID := c.Param("paymentID")

	nets, err := h.allocationService.PaymentAllocations(c.Request.Context(), paymentID)
	if err != nil {
		writeError(c, logger.With(slog.String("payment_id", paymentID)), err, "Failed to get payment allocations")
		return
	}
	c.JSON(http.StatusOK, dto.ToPaymentAllocationsResponse(paymentID, nets))
}

// applyAllocations godoc
// @Summary Apply the allocation plan of a completed payment
// @Description Writes only what is missing; the unallocated remainder goes to actif:national
// @Tags payments
// @Produce  json
// @Param   paymentID path string true "Payment ID"
// @Success 200 {object} dto.WrittenEntriesResponse
// @Failure 404 {object} map[string]string "Payment not found"
// @Failure 409 {object} map[string]string "Payment not completed or allocation ceiling"
// @Security BearerAuth
// @Router /payments/{paymentID}/allocations/apply [post]
func (h *paymentHandler) applyAllocations(c *gin.Context) {
	logger := middleware.GetLoggerFromContext(c)
	paymentID := c.Param("paymentID")

	written, err := h.allocationService.ApplyPaymentAllocations(c.Request.Context(), paymentID)
	if err != nil {
		writeError(c, logger.With(slog.String("payment_id", paymentID)), err, "Failed to apply payment allocations")
		return
	}
	c.JSON(http.StatusOK, dto.WrittenEntriesResponse{Entries: dto.ToEntryResponses(written)})
}

// cancelAllocations godoc
// @Summary Cancel every allocation of a payment
// @Tags payments
// @Produce  json
// @Param   paymentID path string true "Payment ID"
// @Success 200 {object} dto.WrittenEntriesResponse
// @Failure 404 {object} map[string]string "Payment not found"
// @Failure 422 {object} map[string]string "Allocated funds already spent"
// @Security BearerAuth
// @Router /payments/{paymentID}/allocations/cancel [post]
func (h *paymentHandler) cancelAllocations(c *gin.Context) {
	logger := middleware.GetLoggerFromContext(c)
	paymentID := c.Param("paymentID")

	written, err := h.allocationService.CancelPaymentAllocations(c.Request.Context(), paymentID)
	if err != nil {
		writeError(c, logger.With(slog.String("payment_id", paymentID)), err, "Failed to cancel payment allocations")
		return
	}
	c.JSON(http.StatusOK, dto.WrittenEntriesResponse{Entries: dto.ToEntryResponses(written)})
}

// applyAllocation godoc
// @Summary Set the net allocation of a payment to one target
// @Tags payments
// @Accept  json
// @Produce  json
// @Param   paymentID path string true "Payment ID"
// @Param   target path string true "Target, e.g. groupe:42, departement:2A, cns"
// @Param   body body dto.ApplyAllocationRequest true "Net amount in minor units"
// @Success 200 {object} dto.WrittenEntriesResponse
// @Failure 400 {object} map[string]string "Unknown target"
// @Failure 409 {object} map[string]string "Allocation ceiling"
// @Security BearerAuth
// @Router /payments/{paymentID}/allocations/{target} [put]
func (h *paymentHandler) applyAllocation(c *gin.Context) {
	logger := middleware.GetLoggerFromContext(c)
	paymentID := c.Param("paymentID")
	target := domain.ParseAllocationTarget(c.Param("target"))
	logger = logger.With(slog.String("payment_id", paymentID), slog.String("target", target.String()))

	var req dto.ApplyAllocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for ApplyPaymentAllocation", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	written, err := h.allocationService.ApplyPaymentAllocation(c.Request.Context(), paymentID, target, *req.Amount)
	if err != nil {
		writeError(c, logger, err, "Failed to apply payment allocation")
		return
	}
	c.JSON(http.StatusOK, dto.WrittenEntriesResponse{Entries: dto.ToEntryResponses(written)})
}

// validateAllocations godoc
// @Summary Validate an allocation list
// @Description Resolves every target and rejects unknown ones or duplicates
// @Tags payments
// @Accept  json
// @Produce  json
// @Param   body body dto.ValidateAllocationsRequest true "Allocation list"
// @Success 200 {object} dto.ValidateAllocationsResponse
// @Failure 400 {object} map[string]string "Invalid or unknown allocation"
// @Security BearerAuth
// @Router /allocations/validate [post]
func (h *paymentHandler) validateAllocations(c *gin.Context) {
	logger := middleware.GetLoggerFromContext(c)
	var req dto.ValidateAllocationsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for ValidateAllocationList", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	plan, err := h.allocationService.ValidateAllocationList(c.Request.Context(), dto.ToRawAllocations(req.Allocations))
	if err != nil {
		writeError(c, logger, err, "Failed to validate allocations")
		return
	}
	c.JSON(http.StatusOK, dto.ValidateAllocationsResponse{
		Allocations: dto.ToAllocationResponses(plan),
		Total:       domain.SumAllocations(plan),
	})
}
