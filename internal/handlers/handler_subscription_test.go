package handlers_test

import (
	"errors"
	"net/http"

	"github.com/SscSPs/fund_ledger/internal/apperrors"
	"github.com/SscSPs/fund_ledger/internal/core/domain"
	"github.com/SscSPs/fund_ledger/internal/dto"
	"github.com/stretchr/testify/mock"
)

func (suite *APITestSuite) TestRegisterSubscription() {
	sub := domain.Subscription{SubscriptionID: "s1", Price: 2000, Recurrence: domain.RecurrenceMonthly}
	suite.monthly.On("RegisterSubscription", mock.Anything, sub).Return(&sub, nil).Once()

	w := suite.do(http.MethodPost, "/api/v1/subscriptions", dto.RegisterSubscriptionRequest{SubscriptionID: "s1", Price: 2000, Recurrence: "monthly"})
	suite.Equal(http.StatusOK, w.Code)
	var body dto.SubscriptionResponse
	suite.decode(w, &body)
	suite.Equal("s1", body.SubscriptionID)

	w = suite.do(http.MethodPost, "/api/v1/subscriptions", dto.RegisterSubscriptionRequest{SubscriptionID: "s2", Price: 10, Recurrence: "weekly"})
	suite.Equal(http.StatusBadRequest, w.Code)
}

func (suite *APITestSuite) TestChangeSubscriptionPrice_BelowPlan() {
	suite.monthly.On("ChangeSubscriptionPrice", mock.Anything, "s1", int64(500)).
		Return(nil, apperrors.NewConstraintViolation(apperrors.RuleMonthlyAllocationCeiling, "plan of %d exceeds price %d", 900, 500)).Once()

	w := suite.do(http.MethodPut, "/api/v1/subscriptions/s1/price", map[string]any{"price": 500})

	suite.Equal(http.StatusConflict, w.Code)
	var body map[string]any
	suite.decode(w, &body)
	suite.Equal("R5", body["rule"])
}

func (suite *APITestSuite) TestMonthlyAllocationRoutes() {
	g42 := domain.AllocationTarget{Type: domain.TargetGroup, ID: "42"}
	row := &domain.MonthlyAllocation{ID: "m1", SubscriptionID: "s1", Target: g42, Amount: 600}

	suite.monthly.On("AddMonthlyAllocation", mock.Anything, "s1", domain.RawAllocation{Type: "groupe", Group: "42", Amount: 600}).Return(row, nil).Once()
	suite.monthly.On("ListMonthlyAllocations", mock.Anything, "s1").Return([]domain.MonthlyAllocation{*row}, nil).Once()
	suite.monthly.On("UpdateMonthlyAllocation", mock.Anything, "s1", g42, int64(700)).
		Return(&domain.MonthlyAllocation{ID: "m2", SubscriptionID: "s1", Target: g42, Amount: 700}, nil).Once()
	suite.monthly.On("RemoveMonthlyAllocation", mock.Anything, "s1", g42).Return(nil).Once()

	w := suite.do(http.MethodPost, "/api/v1/subscriptions/s1/monthly-allocations", dto.AllocationRequest{Type: "groupe", Group: "42", Amount: 600})
	suite.Equal(http.StatusCreated, w.Code)

	w = suite.do(http.MethodGet, "/api/v1/subscriptions/s1/monthly-allocations", nil)
	suite.Equal(http.StatusOK, w.Code)
	var rows []dto.MonthlyAllocationResponse
	suite.decode(w, &rows)
	suite.Len(rows, 1)

	w = suite.do(http.MethodPut, "/api/v1/subscriptions/s1/monthly-allocations/groupe:42", map[string]any{"amount": 700})
	suite.Equal(http.StatusOK, w.Code)
	var updated dto.MonthlyAllocationResponse
	suite.decode(w, &updated)
	suite.Equal("m2", updated.ID)

	w = suite.do(http.MethodDelete, "/api/v1/subscriptions/s1/monthly-allocations/groupe:42", nil)
	suite.Equal(http.StatusNoContent, w.Code)
}

func (suite *APITestSuite) TestReplaceMonthlyAllocations() {
	raws := []domain.RawAllocation{{Type: "cns", Amount: 300}}
	suite.monthly.On("ReplaceMonthlyAllocations", mock.Anything, "s1", raws).
		Return([]domain.MonthlyAllocation{{ID: "m3", SubscriptionID: "s1", Target: domain.AllocationTarget{Type: domain.TargetCNS}, Amount: 300}}, nil).Once()

	w := suite.do(http.MethodPut, "/api/v1/subscriptions/s1/monthly-allocations", dto.ReplaceMonthlyAllocationsRequest{
		Allocations: []dto.AllocationRequest{{Type: "cns", Amount: 300}},
	})
	suite.Equal(http.StatusOK, w.Code)
}

func (suite *APITestSuite) TestInternalErrorsAreNotEchoed() {
	suite.monthly.On("ListMonthlyAllocations", mock.Anything, "s1").
		Return(nil, errors.New("pq: password authentication failed for user ledger")).Once()

	w := suite.do(http.MethodGet, "/api/v1/subscriptions/s1/monthly-allocations", nil)

	suite.Equal(http.StatusInternalServerError, w.Code)
	suite.NotContains(w.Body.String(), "password")
	var body map[string]any
	suite.decode(w, &body)
	suite.Equal("Failed to list monthly allocations", body["error"])
}
