package handler

import (
	"math/big"
	"time"

	"github.com/blues/qfround/internal/model"
)

// 通用响应结构
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

// RoundResponse 轮次响应模型，金额使用十进制字符串避免精度丢失
type RoundResponse struct {
	Address             string    `json:"address"`
	Index               int       `json:"index"`
	Status              string    `json:"status"`
	NativeToken         string    `json:"nativeToken"`
	NativeTokenSymbol   string    `json:"nativeTokenSymbol"`
	NativeTokenDecimals uint8     `json:"nativeTokenDecimals"`
	VoiceCreditFactor   string    `json:"voiceCreditFactor"`
	MACIAddress         string    `json:"maciAddress"`
	RecipientRegistry   string    `json:"recipientRegistryAddress"`
	UserRegistry        string    `json:"userRegistryAddress"`
	StateTreeDepth      uint8     `json:"stateTreeDepth"`
	MessageTreeDepth    uint8     `json:"messageTreeDepth"`
	RecipientTreeDepth  uint8     `json:"voteOptionTreeDepth"`
	StartBlock          uint64    `json:"startBlock"`
	EndBlock            uint64    `json:"endBlock"`
	SignUpDeadline      time.Time `json:"signUpDeadline"`
	VotingDeadline      time.Time `json:"votingDeadline"`
	IsFinalized         bool      `json:"isFinalized"`
	IsCancelled         bool      `json:"isCancelled"`
	Contributors        int       `json:"contributors"`
	Messages            string    `json:"messages"`
	Contributions       string    `json:"contributions"`
	MatchingPool        string    `json:"matchingPool"`
	TotalFunds          string    `json:"totalFunds"`
}

// SnapshotResponse 轮次快照响应模型
type SnapshotResponse struct {
	Status        string    `json:"status"`
	Contributions string    `json:"contributions"`
	MatchingPool  string    `json:"matchingPool"`
	TotalFunds    string    `json:"totalFunds"`
	Contributors  int       `json:"contributors"`
	BlockNum      uint64    `json:"blockNum"`
	CreatedAt     time.Time `json:"createdAt"`
}

// ToRoundResponse 转换轮次记录
func ToRoundResponse(r *model.RoundRecord) RoundResponse {
	return RoundResponse{
		Address:             r.Address.Hex(),
		Index:               r.Index,
		Status:              string(r.Status),
		NativeToken:         r.NativeToken.Hex(),
		NativeTokenSymbol:   r.NativeTokenSymbol,
		NativeTokenDecimals: r.NativeTokenDecimals,
		VoiceCreditFactor:   amount(r.VoiceCreditFactor),
		MACIAddress:         r.MACI.Hex(),
		RecipientRegistry:   r.RecipientRegistry.Hex(),
		UserRegistry:        r.UserRegistry.Hex(),
		StateTreeDepth:      r.StateTreeDepth,
		MessageTreeDepth:    r.MessageTreeDepth,
		RecipientTreeDepth:  r.RecipientTreeDepth,
		StartBlock:          r.StartBlock,
		EndBlock:            r.EndBlock,
		SignUpDeadline:      r.SignUpDeadline,
		VotingDeadline:      r.VotingDeadline,
		IsFinalized:         r.IsFinalized,
		IsCancelled:         r.IsCancelled,
		Contributors:        r.Contributors,
		Messages:            amount(r.Messages),
		Contributions:       amount(r.Contributions),
		MatchingPool:        amount(r.MatchingPool),
		TotalFunds:          amount(r.TotalFunds),
	}
}

// ToSnapshotResponse 转换快照记录
func ToSnapshotResponse(m model.RoundSnapshotModel) SnapshotResponse {
	return SnapshotResponse{
		Status:        m.Status,
		Contributions: m.Contributions,
		MatchingPool:  m.MatchingPool,
		TotalFunds:    m.TotalFunds,
		Contributors:  m.Contributors,
		BlockNum:      m.BlockNum,
		CreatedAt:     m.CreatedAt,
	}
}

func amount(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
