package model

// Card 银行卡表
// 每张卡就是一个账户：卡号唯一，余额以最小货币单位存储
// ID 只在存储层内部使用，不对外暴露
type Card struct {
	ID      int64  `gorm:"primaryKey;autoIncrement" json:"-"`
	Number  string `gorm:"type:varchar(16);uniqueIndex;not null" json:"number"` // 16 位卡号，末位为校验位
	PIN     string `gorm:"column:pin;type:varchar(4);not null" json:"-"`        // 4 位 PIN，不要求唯一
	Balance int64  `gorm:"not null;default:0" json:"balance"`                  // 余额，静止状态下 >= 0
}

func (Card) TableName() string {
	return "card"
}
