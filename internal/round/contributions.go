package round

import (
	"context"
	"math/big"

	"github.com/blues/qfround/internal/chain"
	"github.com/blues/qfround/internal/model"
	"github.com/blues/qfround/internal/scanner"
	"github.com/ethereum/go-ethereum/common"
)

// ContributionSummary 进行中轮次的实时捐款情况
type ContributionSummary struct {
	Contributors int
	Total        *big.Int
}

// ContributionTracker 提供进行中轮次的实时捐款总额
type ContributionTracker interface {
	Track(ctx context.Context, round *model.RoundRecord) (ContributionSummary, error)
}

// DefaultContributionTracker 统计轮次合约的捐款事件，总额取轮次合约持有的代币余额
type DefaultContributionTracker struct {
	manager *chain.Manager
	scanner *scanner.Scanner
}

// NewDefaultContributionTracker 创建默认捐款统计
func NewDefaultContributionTracker(manager *chain.Manager, s *scanner.Scanner) *DefaultContributionTracker {
	return &DefaultContributionTracker{manager: manager, scanner: s}
}

func (t *DefaultContributionTracker) Track(ctx context.Context, round *model.RoundRecord) (ContributionSummary, error) {
	roundContract, err := t.manager.Bind(chain.RoundContract, round.Address)
	if err != nil {
		return ContributionSummary{}, err
	}
	token, err := t.manager.Bind(chain.ERC20Contract, round.NativeToken)
	if err != nil {
		return ContributionSummary{}, err
	}

	events, err := scanner.Scan[model.Contribution](ctx, t.scanner, roundContract, scanner.Query{
		Event:     "Contribution",
		FromBlock: round.StartBlock,
	})
	if err != nil {
		return ContributionSummary{}, err
	}

	senders := make(map[common.Address]struct{}, len(events))
	for _, ev := range events {
		senders[ev.Args.Sender] = struct{}{}
	}

	balance, err := chain.Read[*big.Int](ctx, token, "balanceOf", round.Address)
	if err != nil {
		return ContributionSummary{}, err
	}

	return ContributionSummary{Contributors: len(senders), Total: balance}, nil
}
