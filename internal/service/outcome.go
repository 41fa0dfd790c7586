package service

// Outcome 业务结果
// 预期内的失败（余额不足、卡号错误等）用 Outcome 表示，error 只留给存储故障
type Outcome int

const (
	OutcomeOK Outcome = iota
	OutcomeInvalidAmount
	OutcomeInvalidCard
	OutcomeSameAccount
	OutcomeCardNotFound
	OutcomeInsufficientFunds
	OutcomeBalanceOverflow
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeInvalidAmount:
		return "invalid_amount"
	case OutcomeInvalidCard:
		return "invalid_card"
	case OutcomeSameAccount:
		return "same_account"
	case OutcomeCardNotFound:
		return "card_not_found"
	case OutcomeInsufficientFunds:
		return "insufficient_funds"
	case OutcomeBalanceOverflow:
		return "balance_overflow"
	default:
		return "unknown"
	}
}
