package repository

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"simplebank/internal/model"

	"gorm.io/gorm"
)

var (
	ErrCardNotFound         = errors.New("卡不存在")
	ErrDuplicateCard        = errors.New("卡号已存在")
	ErrInsufficientFunds    = errors.New("余额不足")
	ErrTransferInconsistent = errors.New("转账入账失败，已回滚")
	ErrBalanceOverflow      = errors.New("余额超出上限")
)

// CardRepository 账本存储，唯一直接读写 card 表的组件
// 每个方法都是一次独立事务
type CardRepository struct {
	db *gorm.DB
}

func NewCardRepository(db *gorm.DB) *CardRepository {
	return &CardRepository{db: db}
}

// Create 插入新卡，卡号冲突时返回 ErrDuplicateCard
func (r *CardRepository) Create(ctx context.Context, card *model.Card) error {
	err := r.db.WithContext(ctx).Create(card).Error
	if err != nil {
		if isDuplicateKey(err) {
			return ErrDuplicateCard
		}
		return fmt.Errorf("创建卡失败: %w", err)
	}
	return nil
}

func (r *CardRepository) FindByNumber(ctx context.Context, number string) (*model.Card, error) {
	var card model.Card
	err := r.db.WithContext(ctx).Where("number = ?", number).First(&card).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCardNotFound
		}
		return nil, err
	}
	return &card, nil
}

func (r *CardRepository) Exists(ctx context.Context, number string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Card{}).
		Where("number = ?", number).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *CardRepository) GetBalance(ctx context.Context, number string) (int64, error) {
	card, err := r.FindByNumber(ctx, number)
	if err != nil {
		return 0, err
	}
	return card.Balance, nil
}

// Credit 给卡加余额，amount 必须大于 0，由调用方保证
// 卡不存在时返回 ErrCardNotFound，入账后会超出 int64 时返回 ErrBalanceOverflow
func (r *CardRepository) Credit(ctx context.Context, number string, amount int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return increase(ctx, tx, number, amount)
	})
}

// Transfer 转账
//
// 【关键点】整个过程在一个事务内完成：
// 1. 条件扣款：UPDATE ... WHERE number = ? AND balance >= ?
//    检查余额和扣款是同一条语句，不存在"先查后扣"的竞态；影响 0 行说明余额不足或卡不存在
// 2. 条件入账：UPDATE ... WHERE number = ? AND balance <= MaxInt64 - amount
//    影响 0 行说明收款卡不存在或余额会溢出，返回错误让事务回滚，扣款一并撤销
// 3. 两步都成功才提交
func (r *CardRepository) Transfer(ctx context.Context, fromNumber, toNumber string, amount int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := deduct(ctx, tx, fromNumber, amount); err != nil {
			return err
		}
		if err := increase(ctx, tx, toNumber, amount); err != nil {
			if errors.Is(err, ErrCardNotFound) {
				return ErrTransferInconsistent
			}
			return err
		}
		return nil
	})
}

// Delete 删除卡，返回被丢弃的余额；卡不存在时什么也不做
func (r *CardRepository) Delete(ctx context.Context, number string) (int64, error) {
	var discarded int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var card model.Card
		err := tx.Where("number = ?", number).First(&card).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := tx.Delete(&model.Card{}, card.ID).Error; err != nil {
			return err
		}
		discarded = card.Balance
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("删除卡失败: %w", err)
	}
	return discarded, nil
}

func deduct(ctx context.Context, tx *gorm.DB, number string, amount int64) error {
	result := tx.WithContext(ctx).
		Model(&model.Card{}).
		Where("number = ? AND balance >= ?", number, amount).
		UpdateColumn("balance", gorm.Expr("balance - ?", amount))

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrInsufficientFunds
	}
	return nil
}

// increase 条件入账
// SQLite 整数溢出会把列值变成 REAL，所以上限必须在 WHERE 里挡住
func increase(ctx context.Context, tx *gorm.DB, number string, amount int64) error {
	result := tx.WithContext(ctx).
		Model(&model.Card{}).
		Where("number = ? AND balance <= ?", number, math.MaxInt64-amount).
		UpdateColumn("balance", gorm.Expr("balance + ?", amount))

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		return nil
	}

	var count int64
	if err := tx.WithContext(ctx).Model(&model.Card{}).Where("number = ?", number).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return ErrCardNotFound
	}
	return ErrBalanceOverflow
}

// isDuplicateKey 驱动未翻译错误时退回到匹配 SQLite 原始错误信息
func isDuplicateKey(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(err.Error(), "UNIQUE constraint failed")
}
