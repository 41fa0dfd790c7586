package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"simplebank/internal/model"
	"simplebank/internal/repository"
	"simplebank/pkg/luhn"
)

var ErrIdentityExhausted = errors.New("多次生成卡号均重复，放弃开户")

// CardStore 账本存储，由 repository.CardRepository 实现
type CardStore interface {
	Create(ctx context.Context, card *model.Card) error
	FindByNumber(ctx context.Context, number string) (*model.Card, error)
	Exists(ctx context.Context, number string) (bool, error)
	GetBalance(ctx context.Context, number string) (int64, error)
	Credit(ctx context.Context, number string, amount int64) error
	Transfer(ctx context.Context, fromNumber, toNumber string, amount int64) error
	Delete(ctx context.Context, number string) (int64, error)
}

// IdentityGenerator 卡号 / PIN 生成器，由 idgen.Generator 实现
type IdentityGenerator interface {
	NewNumber() string
	NewPIN() string
}

// Account 对外暴露的账户信息，不含内部 ID
type Account struct {
	Number  string
	PIN     string
	Balance int64
}

type AccountService struct {
	store       CardStore
	gen         IdentityGenerator
	maxAttempts int
	log         *slog.Logger
}

func NewAccountService(store CardStore, gen IdentityGenerator, maxAttempts int, log *slog.Logger) *AccountService {
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	if log == nil {
		log = slog.Default()
	}
	return &AccountService{
		store:       store,
		gen:         gen,
		maxAttempts: maxAttempts,
		log:         log,
	}
}

// OpenAccount 开户：生成卡号和 PIN 并落库，卡号重复时重新生成
func (s *AccountService) OpenAccount(ctx context.Context) (*Account, error) {
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		card := &model.Card{
			Number: s.gen.NewNumber(),
			PIN:    s.gen.NewPIN(),
		}
		err := s.store.Create(ctx, card)
		if err == nil {
			s.log.Info("开户成功", "number", card.Number)
			return toAccount(card), nil
		}
		if !errors.Is(err, repository.ErrDuplicateCard) {
			return nil, fmt.Errorf("开户失败: %w", err)
		}
		s.log.Warn("卡号重复，重新生成", "number", card.Number, "attempt", attempt)
	}
	return nil, ErrIdentityExhausted
}

// Authenticate 校验卡号和 PIN；卡不存在或 PIN 不对都返回 false
func (s *AccountService) Authenticate(ctx context.Context, number, pin string) (bool, error) {
	card, err := s.store.FindByNumber(ctx, number)
	if err != nil {
		if errors.Is(err, repository.ErrCardNotFound) {
			return false, nil
		}
		return false, err
	}
	return card.PIN == pin, nil
}

func (s *AccountService) Balance(ctx context.Context, number string) (int64, Outcome, error) {
	balance, err := s.store.GetBalance(ctx, number)
	if err != nil {
		if errors.Is(err, repository.ErrCardNotFound) {
			return 0, OutcomeCardNotFound, nil
		}
		return 0, OutcomeOK, err
	}
	return balance, OutcomeOK, nil
}

// Deposit 存入收入，金额必须大于 0
func (s *AccountService) Deposit(ctx context.Context, number string, amount int64) (Outcome, error) {
	if amount <= 0 {
		return OutcomeInvalidAmount, nil
	}
	if err := s.store.Credit(ctx, number, amount); err != nil {
		switch {
		case errors.Is(err, repository.ErrCardNotFound):
			return OutcomeCardNotFound, nil
		case errors.Is(err, repository.ErrBalanceOverflow):
			return OutcomeBalanceOverflow, nil
		}
		return OutcomeOK, fmt.Errorf("存款失败: %w", err)
	}
	s.log.Info("存款成功", "number", number, "amount", amount)
	return OutcomeOK, nil
}

// ValidateTransferTarget 校验收款卡：校验位 -> 不能转给自己 -> 必须存在
func (s *AccountService) ValidateTransferTarget(ctx context.Context, number, toNumber string) (Outcome, error) {
	if !luhn.IsValid(toNumber) {
		return OutcomeInvalidCard, nil
	}
	if toNumber == number {
		return OutcomeSameAccount, nil
	}
	ok, err := s.store.Exists(ctx, toNumber)
	if err != nil {
		return OutcomeOK, err
	}
	if !ok {
		return OutcomeCardNotFound, nil
	}
	return OutcomeOK, nil
}

// TransferMoney 转账，所有校验通过后才交给存储层执行
func (s *AccountService) TransferMoney(ctx context.Context, number, toNumber string, amount int64) (Outcome, error) {
	outcome, err := s.ValidateTransferTarget(ctx, number, toNumber)
	if err != nil || outcome != OutcomeOK {
		return outcome, err
	}
	if amount <= 0 {
		return OutcomeInvalidAmount, nil
	}

	if err := s.store.Transfer(ctx, number, toNumber, amount); err != nil {
		switch {
		case errors.Is(err, repository.ErrInsufficientFunds):
			return OutcomeInsufficientFunds, nil
		case errors.Is(err, repository.ErrBalanceOverflow):
			return OutcomeBalanceOverflow, nil
		}
		return OutcomeOK, fmt.Errorf("转账失败: %w", err)
	}
	s.log.Info("转账成功", "from", number, "to", toNumber, "amount", amount)
	return OutcomeOK, nil
}

// CloseAccount 销户，无条件删除；返回被丢弃的余额
func (s *AccountService) CloseAccount(ctx context.Context, number string) (int64, error) {
	discarded, err := s.store.Delete(ctx, number)
	if err != nil {
		return 0, err
	}
	if discarded != 0 {
		s.log.Warn("销户时余额不为 0，余额已丢弃", "number", number, "discarded", discarded)
	} else {
		s.log.Info("销户成功", "number", number)
	}
	return discarded, nil
}

func toAccount(card *model.Card) *Account {
	return &Account{
		Number:  card.Number,
		PIN:     card.PIN,
		Balance: card.Balance,
	}
}
