package service_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"simplebank/internal/config"
	"simplebank/internal/infrastructure/database"
	"simplebank/internal/model"
	"simplebank/internal/repository"
	"simplebank/internal/service"
	"simplebank/pkg/idgen"
	"simplebank/pkg/luhn"
)

var discardLog = slog.New(slog.NewTextHandler(io.Discard, nil))

// MockCardStore is a mock type for the CardStore interface
type MockCardStore struct {
	mock.Mock
}

func (m *MockCardStore) Create(ctx context.Context, card *model.Card) error {
	args := m.Called(ctx, card)
	return args.Error(0)
}

func (m *MockCardStore) FindByNumber(ctx context.Context, number string) (*model.Card, error) {
	args := m.Called(ctx, number)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Card), args.Error(1)
}

func (m *MockCardStore) Exists(ctx context.Context, number string) (bool, error) {
	args := m.Called(ctx, number)
	return args.Bool(0), args.Error(1)
}

func (m *MockCardStore) GetBalance(ctx context.Context, number string) (int64, error) {
	args := m.Called(ctx, number)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockCardStore) Credit(ctx context.Context, number string, amount int64) error {
	args := m.Called(ctx, number, amount)
	return args.Error(0)
}

func (m *MockCardStore) Transfer(ctx context.Context, fromNumber, toNumber string, amount int64) error {
	args := m.Called(ctx, fromNumber, toNumber, amount)
	return args.Error(0)
}

func (m *MockCardStore) Delete(ctx context.Context, number string) (int64, error) {
	args := m.Called(ctx, number)
	return args.Get(0).(int64), args.Error(1)
}

// scriptedGenerator 按顺序返回预设卡号
type scriptedGenerator struct {
	numbers []string
	next    int
}

func (g *scriptedGenerator) NewNumber() string {
	n := g.numbers[g.next%len(g.numbers)]
	g.next++
	return n
}

func (g *scriptedGenerator) NewPIN() string { return "1234" }

// --- 基于 mock 的测试 ---

func TestOpenAccount_RetriesOnDuplicate(t *testing.T) {
	ctx := context.Background()
	store := new(MockCardStore)
	gen := &scriptedGenerator{numbers: []string{"4000008449433437", "4000000000000002"}}
	svc := service.NewAccountService(store, gen, 5, discardLog)

	store.On("Create", ctx, mock.MatchedBy(func(c *model.Card) bool { return c.Number == "4000008449433437" })).
		Return(repository.ErrDuplicateCard).Once()
	store.On("Create", ctx, mock.MatchedBy(func(c *model.Card) bool { return c.Number == "4000000000000002" })).
		Return(nil).Once()

	acc, err := svc.OpenAccount(ctx)
	require.NoError(t, err)
	assert.Equal(t, "4000000000000002", acc.Number)
	assert.Equal(t, "1234", acc.PIN)
	assert.Equal(t, int64(0), acc.Balance)
	store.AssertExpectations(t)
}

func TestOpenAccount_GivesUpAfterMaxAttempts(t *testing.T) {
	ctx := context.Background()
	store := new(MockCardStore)
	gen := &scriptedGenerator{numbers: []string{"4000008449433437"}}
	svc := service.NewAccountService(store, gen, 3, discardLog)

	store.On("Create", ctx, mock.AnythingOfType("*model.Card")).Return(repository.ErrDuplicateCard).Times(3)

	_, err := svc.OpenAccount(ctx)
	assert.ErrorIs(t, err, service.ErrIdentityExhausted)
	store.AssertExpectations(t)
}

func TestOpenAccount_StorageFaultNotRetried(t *testing.T) {
	ctx := context.Background()
	store := new(MockCardStore)
	gen := &scriptedGenerator{numbers: []string{"4000008449433437"}}
	svc := service.NewAccountService(store, gen, 3, discardLog)

	boom := errors.New("disk I/O error")
	store.On("Create", ctx, mock.AnythingOfType("*model.Card")).Return(boom).Once()

	_, err := svc.OpenAccount(ctx)
	assert.ErrorIs(t, err, boom)
	store.AssertExpectations(t)
}

// 校验失败的转账不能碰存储
func TestTransferMoney_ValidationBeforeStorage(t *testing.T) {
	ctx := context.Background()
	store := new(MockCardStore)
	svc := service.NewAccountService(store, &scriptedGenerator{numbers: []string{"x"}}, 1, discardLog)

	from := "4000008449433437"

	outcome, err := svc.TransferMoney(ctx, from, "4000008449433434", 10)
	require.NoError(t, err)
	assert.Equal(t, service.OutcomeInvalidCard, outcome)

	outcome, err = svc.TransferMoney(ctx, from, "12345", 10)
	require.NoError(t, err)
	assert.Equal(t, service.OutcomeInvalidCard, outcome)

	outcome, err = svc.TransferMoney(ctx, from, from, 10)
	require.NoError(t, err)
	assert.Equal(t, service.OutcomeSameAccount, outcome)

	store.AssertNotCalled(t, "Exists", mock.Anything, mock.Anything)
	store.AssertNotCalled(t, "Transfer", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestDeposit_NonPositiveRejected(t *testing.T) {
	ctx := context.Background()
	store := new(MockCardStore)
	svc := service.NewAccountService(store, &scriptedGenerator{numbers: []string{"x"}}, 1, discardLog)

	for _, amt := range []int64{0, -1, -100} {
		outcome, err := svc.Deposit(ctx, "4000008449433437", amt)
		require.NoError(t, err)
		assert.Equal(t, service.OutcomeInvalidAmount, outcome)
	}
	store.AssertNotCalled(t, "Credit", mock.Anything, mock.Anything, mock.Anything)
}

func TestOutcome_String(t *testing.T) {
	assert.Equal(t, "ok", service.OutcomeOK.String())
	assert.Equal(t, "insufficient_funds", service.OutcomeInsufficientFunds.String())
	assert.Equal(t, "unknown", service.Outcome(99).String())
}

// --- 基于真实 SQLite 的测试 ---

type AccountServiceTestSuite struct {
	suite.Suite
	ctx context.Context
	db  *gorm.DB
	svc *service.AccountService
}

func TestAccountServiceTestSuite(t *testing.T) {
	suite.Run(t, new(AccountServiceTestSuite))
}

func (s *AccountServiceTestSuite) SetupTest() {
	s.ctx = context.Background()
	cfg := &config.StorageConfig{
		File:          filepath.Join(s.T().TempDir(), "card.s3db"),
		BusyTimeoutMS: 5000,
		MaxOpenConns:  4,
	}
	db, err := database.OpenSQLite(cfg, logger.Default.LogMode(logger.Silent))
	s.Require().NoError(err)
	s.db = db

	gen, err := idgen.NewGenerator(idgen.DefaultIssuerPrefix, rand.NewSource(2024))
	s.Require().NoError(err)
	s.svc = service.NewAccountService(repository.NewCardRepository(db), gen, 10, discardLog)
}

func (s *AccountServiceTestSuite) TearDownTest() {
	s.Require().NoError(database.Close(s.db))
}

func (s *AccountServiceTestSuite) open() *service.Account {
	acc, err := s.svc.OpenAccount(s.ctx)
	s.Require().NoError(err)
	return acc
}

func (s *AccountServiceTestSuite) balance(number string) int64 {
	b, outcome, err := s.svc.Balance(s.ctx, number)
	s.Require().NoError(err)
	s.Require().Equal(service.OutcomeOK, outcome)
	return b
}

func (s *AccountServiceTestSuite) TestOpenAccount_GeneratesValidIdentity() {
	acc := s.open()
	s.True(luhn.IsValid(acc.Number))
	s.Len(acc.PIN, 4)
	s.Equal(int64(0), acc.Balance)
	s.Equal(int64(0), s.balance(acc.Number))
}

func (s *AccountServiceTestSuite) TestAuthenticate() {
	acc := s.open()

	ok, err := s.svc.Authenticate(s.ctx, acc.Number, acc.PIN)
	s.Require().NoError(err)
	s.True(ok)

	wrong := "0000"
	if acc.PIN == wrong {
		wrong = "1111"
	}
	ok, err = s.svc.Authenticate(s.ctx, acc.Number, wrong)
	s.Require().NoError(err)
	s.False(ok)

	ok, err = s.svc.Authenticate(s.ctx, "4000000000000002", acc.PIN)
	s.Require().NoError(err)
	s.False(ok)
}

func (s *AccountServiceTestSuite) TestDeposit_MissingCard() {
	outcome, err := s.svc.Deposit(s.ctx, "4000000000000002", 10)
	s.Require().NoError(err)
	s.Equal(service.OutcomeCardNotFound, outcome)
}

func (s *AccountServiceTestSuite) TestBalance_MissingCard() {
	_, outcome, err := s.svc.Balance(s.ctx, "4000000000000002")
	s.Require().NoError(err)
	s.Equal(service.OutcomeCardNotFound, outcome)
}

func (s *AccountServiceTestSuite) TestTransferMoney_Outcomes() {
	x := s.open()
	y := s.open()
	_, err := s.svc.Deposit(s.ctx, x.Number, 50)
	s.Require().NoError(err)

	// 校验位正确但不存在的卡
	outcome, err := s.svc.TransferMoney(s.ctx, x.Number, "4000000000000002", 10)
	s.Require().NoError(err)
	s.Equal(service.OutcomeCardNotFound, outcome)

	outcome, err = s.svc.TransferMoney(s.ctx, x.Number, y.Number, 0)
	s.Require().NoError(err)
	s.Equal(service.OutcomeInvalidAmount, outcome)

	outcome, err = s.svc.TransferMoney(s.ctx, x.Number, x.Number, 10)
	s.Require().NoError(err)
	s.Equal(service.OutcomeSameAccount, outcome)

	outcome, err = s.svc.ValidateTransferTarget(s.ctx, x.Number, y.Number)
	s.Require().NoError(err)
	s.Equal(service.OutcomeOK, outcome)

	s.Equal(int64(50), s.balance(x.Number))
	s.Equal(int64(0), s.balance(y.Number))
}

// 完整场景：开户、存款、转账、余额不足、销户
func (s *AccountServiceTestSuite) TestScenario() {
	x := s.open()

	outcome, err := s.svc.Deposit(s.ctx, x.Number, 100)
	s.Require().NoError(err)
	s.Equal(service.OutcomeOK, outcome)
	s.Equal(int64(100), s.balance(x.Number))

	y := s.open()
	s.Equal(int64(0), s.balance(y.Number))

	outcome, err = s.svc.TransferMoney(s.ctx, x.Number, y.Number, 40)
	s.Require().NoError(err)
	s.Equal(service.OutcomeOK, outcome)
	s.Equal(int64(60), s.balance(x.Number))
	s.Equal(int64(40), s.balance(y.Number))

	outcome, err = s.svc.TransferMoney(s.ctx, x.Number, y.Number, 1000)
	s.Require().NoError(err)
	s.Equal(service.OutcomeInsufficientFunds, outcome)
	s.Equal(int64(60), s.balance(x.Number))
	s.Equal(int64(40), s.balance(y.Number))

	discarded, err := s.svc.CloseAccount(s.ctx, x.Number)
	s.Require().NoError(err)
	s.Equal(int64(60), discarded)

	_, outcome, err = s.svc.Balance(s.ctx, x.Number)
	s.Require().NoError(err)
	s.Equal(service.OutcomeCardNotFound, outcome)

	ok, err := s.svc.Authenticate(s.ctx, x.Number, x.PIN)
	s.Require().NoError(err)
	s.False(ok)
}

// 存款后会超出 int64 的金额被拒绝，账户仍可正常读取
func (s *AccountServiceTestSuite) TestDeposit_Overflow() {
	x := s.open()
	_, err := s.svc.Deposit(s.ctx, x.Number, 10)
	s.Require().NoError(err)

	outcome, err := s.svc.Deposit(s.ctx, x.Number, math.MaxInt64)
	s.Require().NoError(err)
	s.Equal(service.OutcomeBalanceOverflow, outcome)
	s.Equal(int64(10), s.balance(x.Number))
}

func (s *AccountServiceTestSuite) TestTransferMoney_DestinationOverflow() {
	x := s.open()
	y := s.open()
	_, err := s.svc.Deposit(s.ctx, x.Number, 100)
	s.Require().NoError(err)
	_, err = s.svc.Deposit(s.ctx, y.Number, math.MaxInt64-50)
	s.Require().NoError(err)

	outcome, err := s.svc.TransferMoney(s.ctx, x.Number, y.Number, 51)
	s.Require().NoError(err)
	s.Equal(service.OutcomeBalanceOverflow, outcome)
	s.Equal(int64(100), s.balance(x.Number))
	s.Equal(int64(math.MaxInt64-50), s.balance(y.Number))
}

// 转给自己：卡号校验通过，但余额不能变化
func (s *AccountServiceTestSuite) TestTransferMoney_SelfTransferLeavesBalances() {
	x := s.open()
	y := s.open()
	_, err := s.svc.Deposit(s.ctx, x.Number, 70)
	s.Require().NoError(err)
	s.Require().True(luhn.IsValid(x.Number))

	outcome, err := s.svc.TransferMoney(s.ctx, x.Number, x.Number, 30)
	s.Require().NoError(err)
	s.Equal(service.OutcomeSameAccount, outcome)
	s.Equal(int64(70), s.balance(x.Number))
	s.Equal(int64(0), s.balance(y.Number))
}
