package handlers_test

import (
	"net/http"

	"github.com/SscSPs/fund_ledger/internal/apperrors"
	"github.com/SscSPs/fund_ledger/internal/core/domain"
	"github.com/SscSPs/fund_ledger/internal/dto"
	"github.com/stretchr/testify/mock"
)

func (suite *APITestSuite) TestRegisterPayment() {
	plan := []domain.RawAllocation{{Type: "groupe", Group: "42", Amount: 600}, {Type: "cns", Amount: 100}}
	registered := &domain.Payment{
		PaymentID: "p1",
		Price:     1000,
		Status:    domain.PaymentCompleted,
		AllocationPlan: []domain.Allocation{
			{Target: domain.AllocationTarget{Type: domain.TargetGroup, ID: "42"}, Amount: 600},
			{Target: domain.AllocationTarget{Type: domain.TargetCNS}, Amount: 100},
		},
		PlanFrozen: true,
	}
	suite.allocation.On("RegisterPayment", mock.Anything,
		domain.Payment{PaymentID: "p1", Price: 1000, Status: domain.PaymentCompleted}, plan,
	).Return(registered, nil).Once()

	w := suite.do(http.MethodPost, "/api/v1/payments", dto.RegisterPaymentRequest{
		PaymentID: "p1",
		Price:     1000,
		Status:    "completed",
		Allocations: []dto.AllocationRequest{
			{Type: "groupe", Group: "42", Amount: 600},
			{Type: "cns", Amount: 100},
		},
	})

	suite.Equal(http.StatusOK, w.Code)
	var body dto.PaymentResponse
	suite.decode(w, &body)
	suite.Equal("p1", body.PaymentID)
	suite.Equal("10.00", body.PriceDisplay)
	suite.True(body.PlanFrozen)
	suite.Require().Len(body.AllocationPlan, 2)
	suite.Equal("groupe:42", body.AllocationPlan[0].Target)
}

func (suite *APITestSuite) TestRegisterPayment_InvalidBody() {
	w := suite.do(http.MethodPost, "/api/v1/payments", map[string]any{"price": 10})
	suite.Equal(http.StatusBadRequest, w.Code, "paymentID is required")

	w = suite.do(http.MethodPost, "/api/v1/payments", map[string]any{"paymentID": "p1", "price": 10, "status": "lost"})
	suite.Equal(http.StatusBadRequest, w.Code)

	suite.allocation.AssertNotCalled(suite.T(), "RegisterPayment")
}

func (suite *APITestSuite) TestRegisterPayment_AllocationCeiling() {
	suite.allocation.On("RegisterPayment", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, apperrors.NewConstraintViolation(apperrors.RuleAllocationCeiling, "plan of %d exceeds price %d", 1200, 1000)).Once()

	w := suite.do(http.MethodPost, "/api/v1/payments", dto.RegisterPaymentRequest{
		PaymentID:   "p1",
		Price:       1000,
		Allocations: []dto.AllocationRequest{{Type: "cns", Amount: 1200}},
	})

	suite.Equal(http.StatusConflict, w.Code)
	var body map[string]any
	suite.decode(w, &body)
	suite.Equal("R1", body["rule"])
}

func (suite *APITestSuite) TestChangePaymentPrice() {
	suite.allocation.On("ChangePaymentPrice", mock.Anything, "p1", int64(0)).
		Return(nil, apperrors.NewConstraintViolation(apperrors.RulePriceReductionSafety, "already allocated")).Once()
	suite.allocation.On("ChangePaymentPrice", mock.Anything, "p1", int64(1500)).
		Return(&domain.Payment{PaymentID: "p1", Price: 1500, Status: domain.PaymentWaiting}, nil).Once()

	w := suite.do(http.MethodPut, "/api/v1/payments/p1/price", map[string]any{"price": 0})
	suite.Equal(http.StatusConflict, w.Code, "a zero price is bound and checked by the service")
	var violation map[string]any
	suite.decode(w, &violation)
	suite.Equal("R2", violation["rule"])

	w = suite.do(http.MethodPut, "/api/v1/payments/p1/price", map[string]any{"price": 1500})
	suite.Equal(http.StatusOK, w.Code)

	w = suite.do(http.MethodPut, "/api/v1/payments/p1/price", map[string]any{})
	suite.Equal(http.StatusBadRequest, w.Code)
}

func (suite *APITestSuite) TestHandlePaymentStatus() {
	suite.allocation.On("HandlePaymentStatus", mock.Anything, "p1", domain.PaymentRefunded).
		Return(&domain.Payment{PaymentID: "p1", Price: 1000, Status: domain.PaymentRefunded}, nil).Once()

	w := suite.do(http.MethodPost, "/api/v1/payments/p1/status", dto.PaymentStatusRequest{Status: "refunded"})
	suite.Equal(http.StatusOK, w.Code)
	var body dto.PaymentResponse
	suite.decode(w, &body)
	suite.Equal("refunded", body.Status)

	w = suite.do(http.MethodPost, "/api/v1/payments/p1/status", dto.PaymentStatusRequest{Status: "shipped"})
	suite.Equal(http.StatusBadRequest, w.Code)
}

func (suite *APITestSuite) TestApplyPaymentAllocation() {
	target := domain.AllocationTarget{Type: domain.TargetDepartement, ID: "2A"}
	written := []domain.LedgerEntry{{EntryID: "e1", Amount: 250, Source: domain.AccountDonations, Destination: "actif:departement:2A", PaymentID: domain.Ptr("p1")}}
	suite.allocation.On("ApplyPaymentAllocation", mock.Anything, "p1", target, int64(250)).Return(written, nil).Once()

	w := suite.do(http.MethodPut, "/api/v1/payments/p1/allocations/departement:2A", map[string]any{"amount": 250})

	suite.Equal(http.StatusOK, w.Code)
	var body dto.WrittenEntriesResponse
	suite.decode(w, &body)
	suite.Require().Len(body.Entries, 1)
	suite.Equal("actif:departement:2A", body.Entries[0].Destination)
}

func (suite *APITestSuite) TestApplyPaymentAllocation_ConcurrencyConflict() {
	suite.allocation.On("ApplyPaymentAllocation", mock.Anything, "p1", domain.AllocationTarget{Type: domain.TargetCNS}, int64(10)).
		Return(nil, apperrors.ErrConcurrencyConflict).Once()

	w := suite.do(http.MethodPut, "/api/v1/payments/p1/allocations/cns", map[string]any{"amount": 10})

	suite.Equal(http.StatusServiceUnavailable, w.Code)
	suite.Equal("1", w.Header().Get("Retry-After"))
}

func (suite *APITestSuite) TestApplyAndCancelPaymentAllocations() {
	suite.allocation.On("ApplyPaymentAllocations", mock.Anything, "p1").Return([]domain.LedgerEntry{}, nil).Once()
	suite.allocation.On("CancelPaymentAllocations", mock.Anything, "p2").
		Return(nil, apperrors.NewInsufficientFunds("actif:groupe:42", 0, 600)).Once()

	w := suite.do(http.MethodPost, "/api/v1/payments/p1/allocations/apply", nil)
	suite.Equal(http.StatusOK, w.Code)
	var body dto.WrittenEntriesResponse
	suite.decode(w, &body)
	suite.Empty(body.Entries, "replays write nothing")

	w = suite.do(http.MethodPost, "/api/v1/payments/p2/allocations/cancel", nil)
	suite.Equal(http.StatusUnprocessableEntity, w.Code)
}

func (suite *APITestSuite) TestPaymentAllocations() {
	nets := []domain.TargetAllocation{
		{Account: domain.GroupAccount("42"), Net: 600},
		{Account: domain.AccountNational, Net: 400},
	}
	suite.allocation.On("PaymentAllocations", mock.Anything, "p1").Return(nets, nil).Once()

	w := suite.do(http.MethodGet, "/api/v1/payments/p1/allocations", nil)

	suite.Equal(http.StatusOK, w.Code)
	var body dto.PaymentAllocationsResponse
	suite.decode(w, &body)
	suite.Equal("p1", body.PaymentID)
	suite.Require().Len(body.Allocations, 2)
	suite.Equal("actif:national", body.Allocations[1].Account)
	suite.Equal("4.00", body.Allocations[1].NetDisplay)
}

func (suite *APITestSuite) TestValidateAllocations() {
	raws := []domain.RawAllocation{{Type: "groupe", Group: "42", Amount: 600}, {Type: "national", Amount: 50}}
	plan := []domain.Allocation{
		{Target: domain.AllocationTarget{Type: domain.TargetGroup, ID: "42"}, Amount: 600},
		{Target: domain.AllocationTarget{Type: domain.TargetNational}, Amount: 50},
	}
	suite.allocation.On("ValidateAllocationList", mock.Anything, raws).Return(plan, nil).Once()
	suite.allocation.On("ValidateAllocationList", mock.Anything, []domain.RawAllocation{{Type: "groupe", Group: "99", Amount: 1}}).
		Return(nil, &apperrors.UnknownTargetError{TargetType: "groupe", Ref: "99"}).Once()

	w := suite.do(http.MethodPost, "/api/v1/allocations/validate", dto.ValidateAllocationsRequest{Allocations: []dto.AllocationRequest{
		{Type: "groupe", Group: "42", Amount: 600},
		{Type: "national", Amount: 50},
	}})
	suite.Equal(http.StatusOK, w.Code)
	var body dto.ValidateAllocationsResponse
	suite.decode(w, &body)
	suite.Equal(int64(650), body.Total)
	suite.Len(body.Allocations, 2)

	w = suite.do(http.MethodPost, "/api/v1/allocations/validate", dto.ValidateAllocationsRequest{Allocations: []dto.AllocationRequest{
		{Type: "groupe", Group: "99", Amount: 1},
	}})
	suite.Equal(http.StatusBadRequest, w.Code)
}
