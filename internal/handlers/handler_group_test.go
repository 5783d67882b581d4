package handlers_test

import (
	"net/http"

	"github.com/SscSPs/fund_ledger/internal/apperrors"
	"github.com/SscSPs/fund_ledger/internal/core/domain"
	"github.com/SscSPs/fund_ledger/internal/dto"
	"github.com/stretchr/testify/mock"
)

func (suite *APITestSuite) TestGroupBalance() {
	suite.spending.On("GroupBalance", mock.Anything, "42").Return(int64(700), nil).Once()
	suite.spending.On("GroupBalance", mock.Anything, "ghost").
		Return(int64(0), &apperrors.UnknownTargetError{TargetType: "groupe", Ref: "ghost"}).Once()

	w := suite.do(http.MethodGet, "/api/v1/groups/42/balance", nil)
	suite.Equal(http.StatusOK, w.Code)
	var body dto.BalanceResponse
	suite.decode(w, &body)
	suite.Equal(int64(700), body.Balance)

	w = suite.do(http.MethodGet, "/api/v1/groups/ghost/balance", nil)
	suite.Equal(http.StatusBadRequest, w.Code)
}

func (suite *APITestSuite) TestApplySpending() {
	entry := &domain.LedgerEntry{
		EntryID: "e5", Amount: 300, Source: domain.GroupAccount("42"), Destination: domain.AccountSpending,
		SpendingRequestID: domain.Ptr("sr1"),
	}
	suite.spending.On("ApplySpending", mock.Anything, "42", int64(-300), "sr1").Return(entry, nil).Once()

	req := suite.newRequest(http.MethodPost, "/api/v1/groups/42/spendings", dto.ApplySpendingRequest{Amount: -300, Reference: "sr1"})
	req.Header.Set("x-api-key", testServiceToken)
	w := suite.serve(req)

	suite.Equal(http.StatusCreated, w.Code)
	var body dto.EntryResponse
	suite.decode(w, &body)
	suite.Equal("e5", body.EntryID)
	suite.Equal("depenses", body.Destination)
}

func (suite *APITestSuite) TestApplySpending_Rejected() {
	w := suite.do(http.MethodPost, "/api/v1/groups/42/spendings", dto.ApplySpendingRequest{Amount: 300, Reference: "sr1"})
	suite.Equal(http.StatusBadRequest, w.Code, "spendings are negative amounts")

	w = suite.do(http.MethodPost, "/api/v1/groups/42/spendings", map[string]any{"amount": -300})
	suite.Equal(http.StatusBadRequest, w.Code, "reference is required")

	suite.spending.On("ApplySpending", mock.Anything, "42", int64(-5000), "sr2").
		Return(nil, apperrors.NewInsufficientFunds("actif:groupe:42", 700, 5000)).Once()
	w = suite.do(http.MethodPost, "/api/v1/groups/42/spendings", dto.ApplySpendingRequest{Amount: -5000, Reference: "sr2"})
	suite.Equal(http.StatusUnprocessableEntity, w.Code)

	suite.spending.On("ApplySpending", mock.Anything, "42", int64(-100), "sr1").
		Return(nil, apperrors.ErrConflict).Once()
	w = suite.do(http.MethodPost, "/api/v1/groups/42/spendings", dto.ApplySpendingRequest{Amount: -100, Reference: "sr1"})
	suite.Equal(http.StatusConflict, w.Code, "a reference replayed with another amount")
}
