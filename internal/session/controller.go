package session

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"simplebank/internal/service"
)

// Ledger 会话层依赖的账户服务，由 service.AccountService 实现
type Ledger interface {
	OpenAccount(ctx context.Context) (*service.Account, error)
	Authenticate(ctx context.Context, number, pin string) (bool, error)
	Balance(ctx context.Context, number string) (int64, service.Outcome, error)
	Deposit(ctx context.Context, number string, amount int64) (service.Outcome, error)
	ValidateTransferTarget(ctx context.Context, number, toNumber string) (service.Outcome, error)
	TransferMoney(ctx context.Context, number, toNumber string, amount int64) (service.Outcome, error)
	CloseAccount(ctx context.Context, number string) (int64, error)
}

// Controller 菜单状态机
// 所有用户可见文字都在这里输出，账户服务本身不读写终端
type Controller struct {
	ledger Ledger
	out    io.Writer
	log    *slog.Logger

	state   State
	card    string // 已登录的卡号
	pending string // 登录中输入的卡号，或转账的收款卡号
}

func NewController(ledger Ledger, out io.Writer, log *slog.Logger) *Controller {
	if log == nil {
		log = slog.Default()
	}
	return &Controller{
		ledger: ledger,
		out:    out,
		log:    log,
		state:  StateMainMenu,
	}
}

func (c *Controller) State() State {
	return c.state
}

// Run 循环读取输入驱动状态机，直到进入终止状态；输入结束等同于选择退出
// 存储故障只中止当前操作，会话继续
func (c *Controller) Run(ctx context.Context, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	for !c.state.Terminal() {
		c.print(prompt(c.state))
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return fmt.Errorf("读取输入失败: %w", err)
			}
			c.exit()
			return nil
		}
		if _, err := c.Step(ctx, scanner.Text()); err != nil {
			c.log.Error("操作失败", "state", c.state.String(), "error", err)
			c.print("\nSomething went wrong, please try again.\n")
		}
	}
	return nil
}

// Step 状态转移：(当前状态, 输入) -> 下一个状态
// 返回 error 时状态回退到主菜单或账户菜单
func (c *Controller) Step(ctx context.Context, input string) (State, error) {
	next, err := c.transition(ctx, strings.TrimSpace(input))
	if err != nil {
		next = c.fallback()
	}
	c.state = next
	return next, err
}

func (c *Controller) transition(ctx context.Context, input string) (State, error) {
	switch c.state {
	case StateMainMenu:
		return c.mainMenu(ctx, input)
	case StateLoginNumber:
		c.pending = input
		return StateLoginPIN, nil
	case StateLoginPIN:
		return c.login(ctx, input)
	case StateAccountMenu:
		return c.accountMenu(ctx, input)
	case StateIncome:
		return c.income(ctx, input)
	case StateTransferCard:
		return c.transferCard(ctx, input)
	case StateTransferAmount:
		return c.transferAmount(ctx, input)
	default:
		return c.state, nil
	}
}

func (c *Controller) mainMenu(ctx context.Context, input string) (State, error) {
	switch input {
	case "1":
		acc, err := c.ledger.OpenAccount(ctx)
		if err != nil {
			return StateMainMenu, err
		}
		c.printf("\nYour card has been created\nYour card number:\n%s\nYour card PIN:\n%s\n", acc.Number, acc.PIN)
		return StateMainMenu, nil
	case "2":
		return StateLoginNumber, nil
	case "0":
		return c.exit(), nil
	default:
		return StateMainMenu, nil
	}
}

func (c *Controller) login(ctx context.Context, pin string) (State, error) {
	number := c.pending
	c.pending = ""
	ok, err := c.ledger.Authenticate(ctx, number, pin)
	if err != nil {
		return StateMainMenu, err
	}
	if !ok {
		c.print("\nWrong card number or PIN!\n")
		return StateMainMenu, nil
	}
	c.card = number
	c.print("\nYou have successfully logged in!\n")
	return StateAccountMenu, nil
}

func (c *Controller) accountMenu(ctx context.Context, input string) (State, error) {
	switch input {
	case "1":
		balance, outcome, err := c.ledger.Balance(ctx, c.card)
		if err != nil {
			return StateAccountMenu, err
		}
		if outcome == service.OutcomeCardNotFound {
			return c.logout("\nSuch a card does not exist.\n"), nil
		}
		c.printf("\nBalance: %d\n", balance)
		return StateAccountMenu, nil
	case "2":
		return StateIncome, nil
	case "3":
		return StateTransferCard, nil
	case "4":
		if _, err := c.ledger.CloseAccount(ctx, c.card); err != nil {
			return StateAccountMenu, err
		}
		return c.logout("\nThe account has been closed!\n"), nil
	case "5":
		return c.logout("\nYou have successfully logged out!\n"), nil
	case "0":
		return c.exit(), nil
	default:
		return StateAccountMenu, nil
	}
}

func (c *Controller) income(ctx context.Context, input string) (State, error) {
	amount, ok := c.parseAmount(input)
	if !ok {
		return StateAccountMenu, nil
	}
	outcome, err := c.ledger.Deposit(ctx, c.card, amount)
	if err != nil {
		return StateAccountMenu, err
	}
	switch outcome {
	case service.OutcomeOK:
		c.print("Income was added!\n")
	case service.OutcomeInvalidAmount:
		c.print("Income cannot be negative!\n")
	case service.OutcomeBalanceOverflow:
		c.print("Amount is too large!\n")
	case service.OutcomeCardNotFound:
		return c.logout("Such a card does not exist.\n"), nil
	}
	return StateAccountMenu, nil
}

func (c *Controller) transferCard(ctx context.Context, input string) (State, error) {
	outcome, err := c.ledger.ValidateTransferTarget(ctx, c.card, input)
	if err != nil {
		return StateAccountMenu, err
	}
	if outcome != service.OutcomeOK {
		c.print(transferMessage(outcome))
		return StateAccountMenu, nil
	}
	c.pending = input
	return StateTransferAmount, nil
}

func (c *Controller) transferAmount(ctx context.Context, input string) (State, error) {
	to := c.pending
	c.pending = ""
	amount, ok := c.parseAmount(input)
	if !ok {
		return StateAccountMenu, nil
	}
	outcome, err := c.ledger.TransferMoney(ctx, c.card, to, amount)
	if err != nil {
		return StateAccountMenu, err
	}
	c.print(transferMessage(outcome))
	return StateAccountMenu, nil
}

func transferMessage(outcome service.Outcome) string {
	switch outcome {
	case service.OutcomeOK:
		return "Success!\n"
	case service.OutcomeInvalidCard:
		return "Probably you made a mistake in the card number. Please try again!\n"
	case service.OutcomeCardNotFound:
		return "Such a card does not exist.\n"
	case service.OutcomeSameAccount:
		return "You can't transfer money to the same account!\n"
	case service.OutcomeInsufficientFunds:
		return "Not enough money!\n"
	case service.OutcomeInvalidAmount:
		return "Amount must be positive!\n"
	case service.OutcomeBalanceOverflow:
		return "Amount is too large!\n"
	default:
		return "Transfer failed.\n"
	}
}

func (c *Controller) parseAmount(input string) (int64, bool) {
	amount, err := strconv.ParseInt(input, 10, 64)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			c.print("Amount is too large!\n")
		} else {
			c.print("Please enter a whole number!\n")
		}
		return 0, false
	}
	return amount, true
}

func (c *Controller) logout(msg string) State {
	c.card = ""
	c.pending = ""
	c.print(msg)
	return StateMainMenu
}

func (c *Controller) exit() State {
	c.print("\nBye!\n")
	c.state = StateExit
	return StateExit
}

func (c *Controller) fallback() State {
	c.pending = ""
	if c.card != "" {
		return StateAccountMenu
	}
	return StateMainMenu
}

func (c *Controller) print(s string) {
	_, _ = io.WriteString(c.out, s)
}

func (c *Controller) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(c.out, format, args...)
}
