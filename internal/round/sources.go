package round

import (
	"context"
	"math/big"
	"sync"

	"github.com/blues/qfround/internal/chain"
	"github.com/blues/qfround/internal/fanout"
	"github.com/blues/qfround/internal/logger"
	"github.com/blues/qfround/internal/metrics"
	"github.com/blues/qfround/internal/model"
	"github.com/blues/qfround/internal/scanner"
	"github.com/ethereum/go-ethereum/common"
	"github.com/panjf2000/ants/v2"
)

// FundingSources 配捐资金来源账本
type FundingSources struct {
	manager *chain.Manager
	scanner *scanner.Scanner
	pool    *ants.Pool
	metrics *metrics.Reconcile
}

// NewFundingSources 创建资金来源账本
func NewFundingSources(manager *chain.Manager, s *scanner.Scanner, pool *ants.Pool) *FundingSources {
	return &FundingSources{
		manager: manager,
		scanner: s,
		pool:    pool,
		metrics: metrics.NewReconcile("funding_sources"),
	}
}

// ActiveSources 重放工厂合约的来源事件，返回仍然有效的来源地址。
// 每个新增事件只按地址匹配第一条移除事件，移除后再次新增的来源同样视为无效。
func (f *FundingSources) ActiveSources(ctx context.Context, factory *chain.Contract, fromBlock uint64) ([]common.Address, error) {
	added, err := scanner.Scan[model.FundingSourceAdded](ctx, f.scanner, factory, scanner.Query{Event: "FundingSourceAdded", FromBlock: fromBlock})
	if err != nil {
		return nil, err
	}
	removed, err := scanner.Scan[model.FundingSourceRemoved](ctx, f.scanner, factory, scanner.Query{Event: "FundingSourceRemoved", FromBlock: fromBlock})
	if err != nil {
		return nil, err
	}

	seen := make(map[common.Address]bool, len(added))
	active := make([]common.Address, 0, len(added))
	for _, ev := range added {
		source := ev.Args.Source
		if seen[source] {
			f.metrics.Skip(metrics.SkipDuplicate)
			continue
		}
		seen[source] = true

		if firstRemoval(removed, source) != nil {
			logger.Debug("Funding source %s was removed, skipping", source.Hex())
			f.metrics.Skip(metrics.SkipRemovedSource)
			continue
		}
		active = append(active, source)
	}
	return active, nil
}

func firstRemoval(removed []scanner.Event[model.FundingSourceRemoved], source common.Address) *scanner.Event[model.FundingSourceRemoved] {
	for i := range removed {
		if removed[i].Args.Source == source {
			return &removed[i]
		}
	}
	return nil
}

// Total 计算有效来源可以转入的总额，每个来源取 min(授权额度, 余额)
func (f *FundingSources) Total(ctx context.Context, factory *chain.Contract, fromBlock uint64, token *chain.Contract) (*big.Int, error) {
	sources, err := f.ActiveSources(ctx, factory, fromBlock)
	if err != nil {
		return nil, err
	}

	var (
		mu    sync.Mutex
		total = new(big.Int)
	)
	g, _ := fanout.WithContext(ctx, f.pool)
	for _, source := range sources {
		g.Go(func(ctx context.Context) error {
			amount, err := sourceContribution(ctx, token, source, factory.GetAddress())
			if err != nil {
				return err
			}
			mu.Lock()
			total.Add(total, amount)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	logger.Debug("Funding sources total %s from %d active sources", total.String(), len(sources))
	return total, nil
}

func sourceContribution(ctx context.Context, token *chain.Contract, source, spender common.Address) (*big.Int, error) {
	allowance, err := chain.Read[*big.Int](ctx, token, "allowance", source, spender)
	if err != nil {
		return nil, err
	}
	balance, err := chain.Read[*big.Int](ctx, token, "balanceOf", source)
	if err != nil {
		return nil, err
	}
	if allowance.Cmp(balance) < 0 {
		return allowance, nil
	}
	return balance, nil
}
