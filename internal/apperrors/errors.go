package apperrors

import (
	"errors"
	"fmt"
)

// ErrNotFound indicates that a requested resource could not be found.
var ErrNotFound = errors.New("resource not found")

// ErrValidation indicates that input data failed validation checks.
var ErrValidation = errors.New("validation error")

// ErrDuplicate indicates that an attempt was made to create a resource that already exists.
var ErrDuplicate = errors.New("resource already exists")

// ErrConflict indicates that the request conflicts with the current state of a resource.
var ErrConflict = errors.New("conflict with current state")

// ErrInternal indicates an unexpected internal failure.
var ErrInternal = errors.New("internal error")

// ErrConcurrencyConflict is returned when a lock could not be acquired in time or the
// database aborted the transaction because of a serialization failure.
// It is the only retryable error class: the whole logical call can be replayed.
var ErrConcurrencyConflict = errors.New("concurrency conflict")

// ErrInsufficientFunds is the sentinel matched by InsufficientFundsError.
var ErrInsufficientFunds = errors.New("insufficient funds")

// ErrUnknownTarget is the sentinel matched by UnknownTargetError.
var ErrUnknownTarget = errors.New("unknown allocation target")

// Rule identifies one of the ledger invariants.
type Rule string

const (
	RuleAllocationCeiling        Rule = "R1"
	RulePriceReductionSafety     Rule = "R2"
	RuleNonNegativeBalance       Rule = "R3"
	RuleNoForeignSpending        Rule = "R4"
	RuleMonthlyAllocationCeiling Rule = "R5"
)

// ConstraintViolation reports a breach of a ledger invariant. The transaction that
// produced it has been rolled back.
type ConstraintViolation struct {
	Rule   Rule
	Detail string
}

func (e *ConstraintViolation) Error() string {
	return fmt.Sprintf("constraint violation %s: %s", e.Rule, e.Detail)
}

// NewConstraintViolation builds a ConstraintViolation with a formatted detail.
func NewConstraintViolation(rule Rule, format string, args ...any) *ConstraintViolation {
	return &ConstraintViolation{Rule: rule, Detail: fmt.Sprintf(format, args...)}
}

// IsConstraintViolation reports whether err carries a ConstraintViolation for one of the given
// rules (any rule when none is given).
func IsConstraintViolation(err error, rules ...Rule) bool {
	var cv *ConstraintViolation
	if !errors.As(err, &cv) {
		return false
	}
	if len(rules) == 0 {
		return true
	}
	for _, r := range rules {
		if cv.Rule == r {
			return true
		}
	}
	return false
}

// InsufficientFundsError is returned when a debit would take a constrained account below zero.
// It unwraps to the underlying R3 ConstraintViolation.
type InsufficientFundsError struct {
	Account   string
	Balance   int64
	Requested int64
	violation *ConstraintViolation
}

// NewInsufficientFunds creates an InsufficientFundsError for the given account state.
func NewInsufficientFunds(account string, balance, requested int64) *InsufficientFundsError {
	return &InsufficientFundsError{
		Account:   account,
		Balance:   balance,
		Requested: requested,
		violation: NewConstraintViolation(RuleNonNegativeBalance,
			"account %s holds %d, cannot debit %d", account, balance, requested),
	}
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds on %s: balance %d, requested %d", e.Account, e.Balance, e.Requested)
}

func (e *InsufficientFundsError) Is(target error) bool { return target == ErrInsufficientFunds }

func (e *InsufficientFundsError) Unwrap() error { return e.violation }

// UnknownTargetError is returned when an allocation references a target type, group or
// departement that cannot be resolved.
type UnknownTargetError struct {
	TargetType string
	Ref        string
}

func (e *UnknownTargetError) Error() string {
	if e.Ref == "" {
		return fmt.Sprintf("unknown allocation target type %q", e.TargetType)
	}
	return fmt.Sprintf("unknown allocation target %s %q", e.TargetType, e.Ref)
}

func (e *UnknownTargetError) Is(target error) bool { return target == ErrUnknownTarget }

// AppError wraps an infrastructure failure with a status-like code.
type AppError struct {
	Code    int
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *AppError) Unwrap() error { return e.Err }

// NewAppError creates a new AppError.
func NewAppError(code int, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

// NewNotFoundError returns an error wrapping ErrNotFound with the given message.
func NewNotFoundError(message string) error {
	return fmt.Errorf("%w: %s", ErrNotFound, message)
}

// IsRetryable reports whether the logical call that produced err may be replayed.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrencyConflict)
}
