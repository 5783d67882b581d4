package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/SscSPs/fund_ledger/internal/apperrors"
	"github.com/gin-gonic/gin"
)

// statusForError maps service errors to HTTP status codes.
func statusForError(err error) int {
	var cv *apperrors.ConstraintViolation
	switch {
	case errors.Is(err, apperrors.ErrValidation), errors.Is(err, apperrors.ErrUnknownTarget):
		return http.StatusBadRequest
	case errors.Is(err, apperrors.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperrors.ErrInsufficientFunds):
		return http.StatusUnprocessableEntity
	case errors.As(err, &cv), errors.Is(err, apperrors.ErrConflict), errors.Is(err, apperrors.ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, apperrors.ErrConcurrencyConflict):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// writeError logs err and writes its JSON representation. Internal failures are not echoed
// to the client; failMsg is returned instead.
func writeError(c *gin.Context, logger *slog.Logger, err error, failMsg string) {
	status := statusForError(err)
	body := gin.H{"error": err.Error()}

	var insufficient *apperrors.InsufficientFundsError
	var cv *apperrors.ConstraintViolation
	switch {
	case errors.As(err, &insufficient):
		body["rule"] = apperrors.RuleNonNegativeBalance
		body["account"] = insufficient.Account
		body["balance"] = insufficient.Balance
		body["requested"] = insufficient.Requested
	case errors.As(err, &cv):
		body["rule"] = cv.Rule
	}

	switch status {
	case http.StatusInternalServerError:
		logger.Error(failMsg, slog.String("error", err.Error()))
		body = gin.H{"error": failMsg}
	case http.StatusServiceUnavailable:
		logger.Warn(failMsg+": concurrency conflict persisted after retries", slog.String("error", err.Error()))
		c.Header("Retry-After", "1")
	default:
		logger.Warn(failMsg, slog.Int("status", status), slog.String("error", err.Error()))
	}
	c.JSON(status, body)
}
