package model

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// 以下结构体字段名与合约事件参数一一对应（去掉前缀下划线后的驼峰名），
// 单输入事件依赖第一个字段接收值。

// RoundStarted 工厂合约启动新轮次
type RoundStarted struct {
	Round common.Address
}

func (e RoundStarted) Validate() error {
	if e.Round == (common.Address{}) {
		return fmt.Errorf("%w: RoundStarted without round address", ErrInvalidEvent)
	}
	return nil
}

// FundingSourceAdded 新增配捐资金来源
type FundingSourceAdded struct {
	Source common.Address
}

func (e FundingSourceAdded) Validate() error {
	if e.Source == (common.Address{}) {
		return fmt.Errorf("%w: FundingSourceAdded without source", ErrInvalidEvent)
	}
	return nil
}

// FundingSourceRemoved 移除配捐资金来源
type FundingSourceRemoved struct {
	Source common.Address
}

func (e FundingSourceRemoved) Validate() error {
	if e.Source == (common.Address{}) {
		return fmt.Errorf("%w: FundingSourceRemoved without source", ErrInvalidEvent)
	}
	return nil
}

// RecipientAdded 本地注册表登记项目
type RecipientAdded struct {
	RecipientId [32]byte
	Metadata    []byte
	Index       *big.Int
	Timestamp   *big.Int
}

func (e RecipientAdded) Validate() error {
	if e.RecipientId == ([32]byte{}) {
		return fmt.Errorf("%w: RecipientAdded without recipient id", ErrInvalidEvent)
	}
	if e.Index == nil {
		return fmt.Errorf("%w: RecipientAdded without index", ErrInvalidEvent)
	}
	if !e.Index.IsInt64() {
		return fmt.Errorf("%w: RecipientAdded index %s out of range", ErrInvalidEvent, e.Index)
	}
	return nil
}

// RecipientRemoved 本地注册表移除项目
type RecipientRemoved struct {
	RecipientId [32]byte
	Timestamp   *big.Int
}

func (e RecipientRemoved) Validate() error {
	if e.RecipientId == ([32]byte{}) {
		return fmt.Errorf("%w: RecipientRemoved without recipient id", ErrInvalidEvent)
	}
	return nil
}

// ItemSubmitted 策展列表提交条目
type ItemSubmitted struct {
	ItemID          [32]byte
	Submitter       common.Address
	EvidenceGroupID *big.Int
	Data            []byte
}

func (e ItemSubmitted) Validate() error {
	if e.ItemID == ([32]byte{}) {
		return fmt.Errorf("%w: ItemSubmitted without item id", ErrInvalidEvent)
	}
	return nil
}

// MetaEvidence 策展列表的字段定义更新
type MetaEvidence struct {
	MetaEvidenceID *big.Int
	Evidence       string
}

func (e MetaEvidence) Validate() error {
	if e.Evidence == "" {
		return fmt.Errorf("%w: MetaEvidence without evidence uri", ErrInvalidEvent)
	}
	return nil
}

// Contribution 轮次收到捐款
type Contribution struct {
	Sender common.Address
	Amount *big.Int
}

func (e Contribution) Validate() error {
	if e.Amount == nil {
		return fmt.Errorf("%w: Contribution without amount", ErrInvalidEvent)
	}
	return nil
}
