package tally

import (
	"context"
	"fmt"

	"github.com/blues/qfround/internal/chain"
	"github.com/blues/qfround/internal/logger"
	"github.com/ethereum/go-ethereum/common"
)

// Pinner 发布 JSON 文档并返回内容哈希
type Pinner interface {
	PinJSON(ctx context.Context, name string, doc interface{}) (string, error)
}

// Publisher 发布计票结果，配置了私钥时同时把哈希写回轮次合约
type Publisher struct {
	pinner  Pinner
	manager *chain.Manager
}

// NewPublisher 创建结果发布器
func NewPublisher(pinner Pinner, manager *chain.Manager) *Publisher {
	return &Publisher{pinner: pinner, manager: manager}
}

// Publish 返回结果文件的内容哈希
func (p *Publisher) Publish(ctx context.Context, round common.Address, result *Result) (string, error) {
	name := fmt.Sprintf("tally-%s", round.Hex())
	hash, err := p.pinner.PinJSON(ctx, name, result.Artifact)
	if err != nil {
		return "", fmt.Errorf("failed to publish tally: %w", err)
	}

	if p.manager == nil || !p.manager.CanTransact() {
		logger.Info("No signer configured, tally hash %s not published on chain", hash)
		return hash, nil
	}

	roundContract, err := p.manager.BindWritable(chain.RoundContract, round)
	if err != nil {
		return "", err
	}
	opts, err := p.manager.Transactor()
	if err != nil {
		return "", err
	}
	opts.Context = ctx

	tx, err := roundContract.Transact(opts, "publishTallyHash", hash)
	if err != nil {
		return "", fmt.Errorf("failed to publish tally hash: %w", err)
	}
	logger.Info("Published tally hash %s to round %s in tx %s", hash, round.Hex(), tx.Hash().Hex())
	return hash, nil
}
