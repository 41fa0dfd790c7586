package idgen

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"simplebank/pkg/luhn"
)

// ============================================================================
// 卡号 / PIN 生成器
// ============================================================================
//
// 【卡号结构】16 位
//
//   400000 - 9 位随机数 - 1 位校验位
//   |        |            |
//   |        |            +-- 按 luhn.CheckDigit 计算
//   |        +-- 均匀随机数字
//   +-- 固定发卡行前缀（IIN）
//
// 随机数冲突由存储层的唯一索引兜底，调用方遇到重复卡号时重新生成即可。
//
// ============================================================================

const (
	DefaultIssuerPrefix = "400000" // 默认发卡行前缀
	issuerPrefixLen     = 6
	accountDigits       = luhn.CardLength - issuerPrefixLen - 1
	pinDigits           = 4
)

// Generator 卡号生成器
// rand.Rand 不是并发安全的，所有取数都在 mu 内完成
type Generator struct {
	mu     sync.Mutex
	rnd    *rand.Rand
	prefix string
}

// NewGenerator 创建生成器，src 为 nil 时使用当前时间作为种子
func NewGenerator(prefix string, src rand.Source) (*Generator, error) {
	if len(prefix) != issuerPrefixLen || !luhn.IsDigits(prefix) {
		return nil, fmt.Errorf("发卡行前缀必须是 %d 位数字: %q", issuerPrefixLen, prefix)
	}
	if src == nil {
		src = rand.NewSource(time.Now().UnixNano())
	}
	return &Generator{
		rnd:    rand.New(src),
		prefix: prefix,
	}, nil
}

// Prefix 返回发卡行前缀
func (g *Generator) Prefix() string {
	return g.prefix
}

// NewNumber 生成一个新卡号：前缀 + 9 位随机数 + 校验位
func (g *Generator) NewNumber() string {
	g.mu.Lock()
	body := make([]byte, 0, luhn.CardLength)
	body = append(body, g.prefix...)
	for i := 0; i < accountDigits; i++ {
		body = append(body, byte('0'+g.rnd.Intn(10)))
	}
	g.mu.Unlock()

	return string(append(body, luhn.CheckDigit(string(body))))
}

// NewPIN 生成 4 位 PIN，不足 4 位左侧补 0
func (g *Generator) NewPIN() string {
	g.mu.Lock()
	n := g.rnd.Intn(10000)
	g.mu.Unlock()
	return fmt.Sprintf("%0*d", pinDigits, n)
}

