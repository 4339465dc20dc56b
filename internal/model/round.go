package model

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// RoundStatus 轮次状态
type RoundStatus string

const (
	RoundStatusContributing RoundStatus = "Contributing"
	RoundStatusReallocating RoundStatus = "Reallocating"
	RoundStatusTallying     RoundStatus = "Tallying"
	RoundStatusFinalized    RoundStatus = "Finalized"
	RoundStatusCancelled    RoundStatus = "Cancelled"
)

// IsTerminal 是否为终态
func (s RoundStatus) IsTerminal() bool {
	return s == RoundStatusFinalized || s == RoundStatusCancelled
}

// DeriveStatus 根据当前时间和链上标志推导轮次状态。
// 取消优先于结束，两者都优先于时间判断。
func DeriveStatus(now, signUpDeadline, votingDeadline time.Time, isFinalized, isCancelled bool) RoundStatus {
	switch {
	case isCancelled:
		return RoundStatusCancelled
	case isFinalized:
		return RoundStatusFinalized
	case now.Before(signUpDeadline):
		return RoundStatusContributing
	case now.Before(votingDeadline):
		return RoundStatusReallocating
	default:
		return RoundStatusTallying
	}
}

// RoundRecord 轮次快照，每次查询重新构建
type RoundRecord struct {
	Address             common.Address `json:"address"`
	Index               int            `json:"index"`
	NativeToken         common.Address `json:"nativeToken"`
	NativeTokenSymbol   string         `json:"nativeTokenSymbol"`
	NativeTokenDecimals uint8          `json:"nativeTokenDecimals"`
	VoiceCreditFactor   *big.Int       `json:"voiceCreditFactor"`
	MACI                common.Address `json:"maci"`
	RecipientRegistry   common.Address `json:"recipientRegistry"`
	UserRegistry        common.Address `json:"userRegistry"`
	StateTreeDepth      uint8          `json:"stateTreeDepth"`
	MessageTreeDepth    uint8          `json:"messageTreeDepth"`
	RecipientTreeDepth  uint8          `json:"recipientTreeDepth"`
	StartBlock          uint64         `json:"startBlock"`
	// EndBlock 由平均出块时间估算，只用于展示
	EndBlock       uint64      `json:"endBlock"`
	SignUpDeadline time.Time   `json:"signUpDeadline"`
	VotingDeadline time.Time   `json:"votingDeadline"`
	IsFinalized    bool        `json:"isFinalized"`
	IsCancelled    bool        `json:"isCancelled"`
	Status         RoundStatus `json:"status"`
	Contributors   int         `json:"contributors"`
	Messages       *big.Int    `json:"messages"`
	// 以下金额均为代币最小单位
	Contributions *big.Int `json:"contributions"`
	MatchingPool  *big.Int `json:"matchingPool"`
	TotalFunds    *big.Int `json:"totalFunds"`
}
