package round

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/blues/qfround/internal/chain"
	"github.com/blues/qfround/internal/config"
	"github.com/blues/qfround/internal/fanout"
	"github.com/blues/qfround/internal/logger"
	"github.com/blues/qfround/internal/metrics"
	"github.com/blues/qfround/internal/model"
	"github.com/blues/qfround/internal/scanner"
	"github.com/ethereum/go-ethereum/common"
	"github.com/panjf2000/ants/v2"
)

// Reconstructor 根据链上事件和当前读取重建轮次状态
type Reconstructor struct {
	manager      *chain.Manager
	scanner      *scanner.Scanner
	pool         *ants.Pool
	sources      *FundingSources
	contribution ContributionTracker
	indexOffset  int
	blockTime    uint64
	now          func() time.Time
	metrics      *metrics.Reconcile
}

// Option 重建器可选项
type Option func(*Reconstructor)

// WithClock 替换时钟，测试中使用
func WithClock(now func() time.Time) Option {
	return func(r *Reconstructor) {
		r.now = now
	}
}

// WithContributionTracker 替换实时捐款统计
func WithContributionTracker(t ContributionTracker) Option {
	return func(r *Reconstructor) {
		r.contribution = t
	}
}

// NewReconstructor 创建轮次重建器
func NewReconstructor(manager *chain.Manager, s *scanner.Scanner, pool *ants.Pool, cfg config.RoundConfig, opts ...Option) *Reconstructor {
	blockTime := cfg.BlockTimeSeconds
	if blockTime == 0 {
		blockTime = 15
	}
	r := &Reconstructor{
		manager:      manager,
		scanner:      s,
		pool:         pool,
		sources:      NewFundingSources(manager, s, pool),
		contribution: NewDefaultContributionTracker(manager, s),
		indexOffset:  cfg.IndexOffset,
		blockTime:    blockTime,
		now:          time.Now,
		metrics:      metrics.NewReconcile("round"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// CurrentRound 获取工厂合约当前的轮次
func (r *Reconstructor) CurrentRound(ctx context.Context) (*model.RoundRecord, error) {
	factory, _, err := r.manager.Factory()
	if err != nil {
		return nil, err
	}
	current, err := chain.Read[common.Address](ctx, factory, "getCurrentRound")
	if err != nil {
		return nil, err
	}
	if current == (common.Address{}) {
		return nil, fmt.Errorf("%w: factory has no current round", model.ErrRoundNotFound)
	}
	return r.GetRound(ctx, current)
}

// GetRound 重建指定地址的轮次，地址不是工厂启动的轮次时返回 ErrRoundNotFound
func (r *Reconstructor) GetRound(ctx context.Context, address common.Address) (record *model.RoundRecord, err error) {
	started := time.Now()
	defer func() { r.metrics.Observe(err, started) }()

	factory, deployBlock, err := r.manager.Factory()
	if err != nil {
		return nil, err
	}

	record, err = r.locate(ctx, factory, deployBlock, address)
	if err != nil {
		return nil, err
	}

	if err := r.readRound(ctx, record); err != nil {
		return nil, err
	}
	if err := r.readRoundDetails(ctx, record); err != nil {
		return nil, err
	}

	record.Status = model.DeriveStatus(r.now(), record.SignUpDeadline, record.VotingDeadline, record.IsFinalized, record.IsCancelled)

	if err := r.account(ctx, factory, deployBlock, record); err != nil {
		return nil, err
	}
	record.TotalFunds = new(big.Int).Add(record.MatchingPool, record.Contributions)

	logger.Info("Reconstructed round %s #%d: status=%s contributions=%s matchingPool=%s",
		record.Address.Hex(), record.Index, record.Status, record.Contributions.String(), record.MatchingPool.String())
	return record, nil
}

// locate 在工厂合约的轮次启动事件中查找地址，得到序号和起始区块
func (r *Reconstructor) locate(ctx context.Context, factory *chain.Contract, deployBlock uint64, address common.Address) (*model.RoundRecord, error) {
	events, err := scanner.Scan[model.RoundStarted](ctx, r.scanner, factory, scanner.Query{Event: "RoundStarted", FromBlock: deployBlock})
	if err != nil {
		return nil, err
	}

	for i, ev := range events {
		if ev.Args.Round == address {
			return &model.RoundRecord{
				Address:    address,
				Index:      i + r.indexOffset,
				StartBlock: ev.BlockNumber,
			}, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", model.ErrRoundNotFound, address.Hex())
}

// readRound 并发读取轮次合约字段
func (r *Reconstructor) readRound(ctx context.Context, record *model.RoundRecord) error {
	roundContract, err := r.manager.Bind(chain.RoundContract, record.Address)
	if err != nil {
		return err
	}

	g, _ := fanout.WithContext(ctx, r.pool)
	readInto(g, roundContract, "maci", &record.MACI)
	readInto(g, roundContract, "nativeToken", &record.NativeToken)
	readInto(g, roundContract, "recipientRegistry", &record.RecipientRegistry)
	readInto(g, roundContract, "userRegistry", &record.UserRegistry)
	readInto(g, roundContract, "voiceCreditFactor", &record.VoiceCreditFactor)
	readInto(g, roundContract, "isFinalized", &record.IsFinalized)
	readInto(g, roundContract, "isCancelled", &record.IsCancelled)
	if err := g.Wait(); err != nil {
		return fmt.Errorf("failed to read round %s: %w", record.Address.Hex(), err)
	}
	return nil
}

// readRoundDetails 并发读取 MACI 和代币字段，依赖 readRound 的结果
func (r *Reconstructor) readRoundDetails(ctx context.Context, record *model.RoundRecord) error {
	maci, err := r.manager.Bind(chain.MACIContract, record.MACI)
	if err != nil {
		return err
	}
	token, err := r.manager.Bind(chain.ERC20Contract, record.NativeToken)
	if err != nil {
		return err
	}

	var signUpTimestamp, signUpDuration, votingDuration *big.Int

	g, _ := fanout.WithContext(ctx, r.pool)
	g.Go(func(ctx context.Context) error {
		out, err := maci.Call(ctx, "treeDepths")
		if err != nil {
			return err
		}
		if len(out) != 3 {
			return fmt.Errorf("%w: treeDepths returned %d values", model.ErrLedgerUnavailable, len(out))
		}
		depths := make([]uint8, 3)
		for i, v := range out {
			if depths[i], err = chain.As[uint8](v); err != nil {
				return err
			}
		}
		record.StateTreeDepth, record.MessageTreeDepth, record.RecipientTreeDepth = depths[0], depths[1], depths[2]
		return nil
	})
	readInto(g, maci, "signUpTimestamp", &signUpTimestamp)
	readInto(g, maci, "signUpDurationSeconds", &signUpDuration)
	readInto(g, maci, "votingDurationSeconds", &votingDuration)
	readInto(g, maci, "numMessages", &record.Messages)
	readInto(g, token, "symbol", &record.NativeTokenSymbol)
	readInto(g, token, "decimals", &record.NativeTokenDecimals)
	if err := g.Wait(); err != nil {
		return fmt.Errorf("failed to read round %s details: %w", record.Address.Hex(), err)
	}

	signUpDeadline := new(big.Int).Add(signUpTimestamp, signUpDuration)
	votingDeadline := new(big.Int).Add(signUpDeadline, votingDuration)
	record.SignUpDeadline = time.Unix(signUpDeadline.Int64(), 0).UTC()
	record.VotingDeadline = time.Unix(votingDeadline.Int64(), 0).UTC()

	duration := new(big.Int).Add(signUpDuration, votingDuration)
	record.EndBlock = record.StartBlock + duration.Uint64()/r.blockTime
	return nil
}

// account 按状态计算捐款总额和配捐池
func (r *Reconstructor) account(ctx context.Context, factory *chain.Contract, deployBlock uint64, record *model.RoundRecord) error {
	switch record.Status {
	case model.RoundStatusCancelled:
		record.Contributions = new(big.Int)
		record.MatchingPool = new(big.Int)
		return nil

	case model.RoundStatusFinalized:
		roundContract, err := r.manager.Bind(chain.RoundContract, record.Address)
		if err != nil {
			return err
		}
		totalSpent, err := chain.Read[*big.Int](ctx, roundContract, "totalSpent")
		if err != nil {
			return err
		}
		matchingPool, err := chain.Read[*big.Int](ctx, roundContract, "matchingPoolSize")
		if err != nil {
			return err
		}
		summary, err := r.contribution.Track(ctx, record)
		if err != nil {
			return err
		}
		record.Contributors = summary.Contributors
		record.Contributions = new(big.Int).Mul(totalSpent, record.VoiceCreditFactor)
		record.MatchingPool = matchingPool
		return nil
	}

	token, err := r.manager.Bind(chain.ERC20Contract, record.NativeToken)
	if err != nil {
		return err
	}
	summary, err := r.contribution.Track(ctx, record)
	if err != nil {
		return err
	}
	factoryBalance, err := chain.Read[*big.Int](ctx, token, "balanceOf", factory.GetAddress())
	if err != nil {
		return err
	}
	sourcesTotal, err := r.sources.Total(ctx, factory, deployBlock, token)
	if err != nil {
		return err
	}

	record.Contributors = summary.Contributors
	record.Contributions = summary.Total
	if record.Contributions == nil {
		record.Contributions = new(big.Int)
	}
	record.MatchingPool = new(big.Int).Add(factoryBalance, sourcesTotal)
	return nil
}

// readInto 在任务组中读取单返回值方法并写入目标
func readInto[T any](g *fanout.Group, c *chain.Contract, method string, dst *T) {
	g.Go(func(ctx context.Context) error {
		v, err := chain.Read[T](ctx, c, method)
		if err != nil {
			return err
		}
		*dst = v
		return nil
	})
}
