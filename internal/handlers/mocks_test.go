package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/SscSPs/fund_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/fund_ledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/fund_ledger/internal/core/ports/services"
	"github.com/SscSPs/fund_ledger/internal/handlers"
	"github.com/SscSPs/fund_ledger/internal/platform/config"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"
)

// --- Mock LedgerService ---
type MockLedgerService struct {
	mock.Mock
}

func (m *MockLedgerService) Append(ctx context.Context, entry domain.LedgerEntry) (*domain.LedgerEntry, error) {
	args := m.Called(ctx, entry)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LedgerEntry), args.Error(1)
}
func (m *MockLedgerService) Reverse(ctx context.Context, entryID string, reason string) (*domain.LedgerEntry, error) {
	args := m.Called(ctx, entryID, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LedgerEntry), args.Error(1)
}
func (m *MockLedgerService) Balance(ctx context.Context, account domain.Account) (int64, error) {
	args := m.Called(ctx, account)
	return args.Get(0).(int64), args.Error(1)
}
func (m *MockLedgerService) EntriesFor(ctx context.Context, account domain.Account, filter domain.EntryFilter) ([]domain.LedgerEntry, *string, error) {
	args := m.Called(ctx, account, filter)
	var next *string
	if args.Get(1) != nil {
		next = args.Get(1).(*string)
	}
	if args.Get(0) == nil {
		return nil, next, args.Error(2)
	}
	return args.Get(0).([]domain.LedgerEntry), next, args.Error(2)
}

var _ portssvc.LedgerSvcFacade = (*MockLedgerService)(nil)

// --- Mock AllocationService ---
type MockAllocationService struct {
	mock.Mock
}

func (m *MockAllocationService) ValidateAllocationList(ctx context.Context, raw []domain.RawAllocation) ([]domain.Allocation, error) {
	args := m.Called(ctx, raw)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Allocation), args.Error(1)
}
func (m *MockAllocationService) RegisterPayment(ctx context.Context, payment domain.Payment, plan []domain.RawAllocation) (*domain.Payment, error) {
	args := m.Called(ctx, payment, plan)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Payment), args.Error(1)
}
func (m *MockAllocationService) ChangePaymentPrice(ctx context.Context, paymentID string, price int64) (*domain.Payment, error) {
	args := m.Called(ctx, paymentID, price)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Payment), args.Error(1)
}
func (m *MockAllocationService) HandlePaymentStatus(ctx context.Context, paymentID string, status domain.PaymentStatus) (*domain.Payment, error) {
	args := m.Called(ctx, paymentID, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Payment), args.Error(1)
}
func (m *MockAllocationService) ApplyPaymentAllocation(ctx context.Context, paymentID string, target domain.AllocationTarget, amount int64) ([]domain.LedgerEntry, error) {
	args := m.Called(ctx, paymentID, target, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.LedgerEntry), args.Error(1)
}
func (m *MockAllocationService) ApplyPaymentAllocations(ctx context.Context, paymentID string) ([]domain.LedgerEntry, error) {
	args := m.Called(ctx, paymentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.LedgerEntry), args.Error(1)
}
func (m *MockAllocationService) CancelPaymentAllocations(ctx context.Context, paymentID string) ([]domain.LedgerEntry, error) {
	args := m.Called(ctx, paymentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.LedgerEntry), args.Error(1)
}
func (m *MockAllocationService) PaymentAllocations(ctx context.Context, paymentID string) ([]domain.TargetAllocation, error) {
	args := m.Called(ctx, paymentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.TargetAllocation), args.Error(1)
}

var _ portssvc.AllocationSvcFacade = (*MockAllocationService)(nil)

// --- Mock MonthlyAllocationService ---
type MockMonthlyAllocationService struct {
	mock.Mock
}

func (m *MockMonthlyAllocationService) RegisterSubscription(ctx context.Context, subscription domain.Subscription) (*domain.Subscription, error) {
	args := m.Called(ctx, subscription)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Subscription), args.Error(1)
}
func (m *MockMonthlyAllocationService) ChangeSubscriptionPrice(ctx context.Context, subscriptionID string, price int64) (*domain.Subscription, error) {
	args := m.Called(ctx, subscriptionID, price)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Subscription), args.Error(1)
}
func (m *MockMonthlyAllocationService) AddMonthlyAllocation(ctx context.Context, subscriptionID string, raw domain.RawAllocation) (*domain.MonthlyAllocation, error) {
	args := m.Called(ctx, subscriptionID, raw)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.MonthlyAllocation), args.Error(1)
}
func (m *MockMonthlyAllocationService) UpdateMonthlyAllocation(ctx context.Context, subscriptionID string, target domain.AllocationTarget, amount int64) (*domain.MonthlyAllocation, error) {
	args := m.Called(ctx, subscriptionID, target, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.MonthlyAllocation), args.Error(1)
}
func (m *MockMonthlyAllocationService) RemoveMonthlyAllocation(ctx context.Context, subscriptionID string, target domain.AllocationTarget) error {
	args := m.Called(ctx, subscriptionID, target)
	return args.Error(0)
}
func (m *MockMonthlyAllocationService) ReplaceMonthlyAllocations(ctx context.Context, subscriptionID string, raw []domain.RawAllocation) ([]domain.MonthlyAllocation, error) {
	args := m.Called(ctx, subscriptionID, raw)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.MonthlyAllocation), args.Error(1)
}
func (m *MockMonthlyAllocationService) ListMonthlyAllocations(ctx context.Context, subscriptionID string) ([]domain.MonthlyAllocation, error) {
	args := m.Called(ctx, subscriptionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.MonthlyAllocation), args.Error(1)
}

var _ portssvc.MonthlyAllocationSvcFacade = (*MockMonthlyAllocationService)(nil)

// --- Mock SpendingService ---
type MockSpendingService struct {
	mock.Mock
}

func (m *MockSpendingService) GroupBalance(ctx context.Context, groupID string) (int64, error) {
	args := m.Called(ctx, groupID)
	return args.Get(0).(int64), args.Error(1)
}
func (m *MockSpendingService) ApplySpending(ctx context.Context, groupID string, amount int64, reference string) (*domain.LedgerEntry, error) {
	args := m.Called(ctx, groupID, amount, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LedgerEntry), args.Error(1)
}
func (m *MockSpendingService) ApplySpendingWithTransition(ctx context.Context, groupID string, amount int64, reference string, transition portsrepo.TxFunc) (*domain.LedgerEntry, error) {
	args := m.Called(ctx, groupID, amount, reference, transition)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LedgerEntry), args.Error(1)
}

var _ portssvc.SpendingSvcFacade = (*MockSpendingService)(nil)

// --- Base Suite ---

const testServiceToken = "intake-service-token"

// APITestSuite serves the full route table backed by mocked services.
type APITestSuite struct {
	suite.Suite
	router       *gin.Engine
	ledger       *MockLedgerService
	allocation   *MockAllocationService
	monthly      *MockMonthlyAllocationService
	spending     *MockSpendingService
	jwtSecret    string
	serviceToken string
}

func (suite *APITestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	suite.router = gin.New()
	suite.jwtSecret = "test-secret-key-that-is-long-enough"

	hash, err := bcrypt.GenerateFromPassword([]byte(testServiceToken), bcrypt.MinCost)
	suite.Require().NoError(err)

	suite.ledger = new(MockLedgerService)
	suite.allocation = new(MockAllocationService)
	suite.monthly = new(MockMonthlyAllocationService)
	suite.spending = new(MockSpendingService)

	cfg := &config.Config{
		IsProduction:     true,
		JWTSecret:        suite.jwtSecret,
		ServiceTokenHash: string(hash),
		RateLimit:        "1000-M",
	}
	err = handlers.RegisterRoutes(suite.router, cfg, &portssvc.ServiceContainer{
		Ledger:            suite.ledger,
		Allocation:        suite.allocation,
		MonthlyAllocation: suite.monthly,
		Spending:          suite.spending,
	})
	suite.Require().NoError(err)
}

func (suite *APITestSuite) TearDownTest() {
	suite.ledger.AssertExpectations(suite.T())
	suite.allocation.AssertExpectations(suite.T())
	suite.monthly.AssertExpectations(suite.T())
	suite.spending.AssertExpectations(suite.T())
}

// generateTestToken creates a dummy JWT for testing.
func (suite *APITestSuite) generateTestToken(subject string) string {
	claims := jwt.RegisteredClaims{
		Issuer:    "ledger-test",
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(1 * time.Hour)),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(suite.jwtSecret))
	if err != nil {
		suite.FailNow("Failed to sign test token", err.Error())
	}
	return signed
}

// do serves a request authenticated as an admin user. body is JSON encoded when not nil.
func (suite *APITestSuite) do(method, url string, body any) *httptest.ResponseRecorder {
	req := suite.newRequest(method, url, body)
	req.Header.Set("Authorization", "Bearer "+suite.generateTestToken("admin-1"))
	return suite.serve(req)
}

func (suite *APITestSuite) newRequest(method, url string, body any) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		suite.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	suite.Require().NoError(err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	return req
}

func (suite *APITestSuite) serve(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	return w
}

func (suite *APITestSuite) decode(w *httptest.ResponseRecorder, into any) {
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), into), "Failed to unmarshal response body: %s", w.Body.String())
}
