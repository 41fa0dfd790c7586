package session

// State 会话状态
type State int

const (
	StateMainMenu State = iota
	StateLoginNumber
	StateLoginPIN
	StateAccountMenu
	StateIncome
	StateTransferCard
	StateTransferAmount
	StateExit // 终止状态
)

func (s State) String() string {
	switch s {
	case StateMainMenu:
		return "main_menu"
	case StateLoginNumber:
		return "login_number"
	case StateLoginPIN:
		return "login_pin"
	case StateAccountMenu:
		return "account_menu"
	case StateIncome:
		return "income"
	case StateTransferCard:
		return "transfer_card"
	case StateTransferAmount:
		return "transfer_amount"
	case StateExit:
		return "exit"
	default:
		return "unknown"
	}
}

// Terminal 是否为终止状态
func (s State) Terminal() bool {
	return s == StateExit
}

// prompt 进入某个状态时打印的提示
func prompt(s State) string {
	switch s {
	case StateMainMenu:
		return "\n1. Create an account\n2. Log into account\n0. Exit\n"
	case StateLoginNumber:
		return "\nEnter your card number:\n"
	case StateLoginPIN:
		return "Enter your PIN:\n"
	case StateAccountMenu:
		return "\n1. Balance\n2. Add income\n3. Do transfer\n4. Close account\n5. Log out\n0. Exit\n"
	case StateIncome:
		return "\nEnter income:\n"
	case StateTransferCard:
		return "\nTransfer\nEnter card number:\n"
	case StateTransferAmount:
		return "Enter how much money you want to transfer:\n"
	default:
		return ""
	}
}
