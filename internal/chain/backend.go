package chain

import (
	"context"
	"math/big"
	"time"

	"github.com/blues/qfround/internal/metrics"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/ratelimit"
)

// Backend 链上只读访问接口，*ethclient.Client 满足该接口
type Backend interface {
	bind.ContractCaller
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
	BlockNumber(ctx context.Context) (uint64, error)
}

// observedBackend 为每次RPC调用加上限流和指标
type observedBackend struct {
	next    Backend
	limiter ratelimit.Limiter
	metrics *metrics.Ledger
}

// NewObservedBackend 包装 Backend，rps<=0 时不限流
func NewObservedBackend(next Backend, rps int, m *metrics.Ledger) Backend {
	limiter := ratelimit.NewUnlimited()
	if rps > 0 {
		limiter = ratelimit.New(rps)
	}
	return &observedBackend{next: next, limiter: limiter, metrics: m}
}

func (b *observedBackend) CodeAt(ctx context.Context, contract common.Address, blockNumber *big.Int) (code []byte, err error) {
	b.limiter.Take()
	defer b.observe("code_at", time.Now(), &err)
	return b.next.CodeAt(ctx, contract, blockNumber)
}

func (b *observedBackend) CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) (out []byte, err error) {
	b.limiter.Take()
	defer b.observe("call", time.Now(), &err)
	return b.next.CallContract(ctx, call, blockNumber)
}

func (b *observedBackend) FilterLogs(ctx context.Context, q ethereum.FilterQuery) (logs []types.Log, err error) {
	b.limiter.Take()
	defer b.observe("filter_logs", time.Now(), &err)
	return b.next.FilterLogs(ctx, q)
}

func (b *observedBackend) BlockNumber(ctx context.Context) (n uint64, err error) {
	b.limiter.Take()
	defer b.observe("block_number", time.Now(), &err)
	return b.next.BlockNumber(ctx)
}

func (b *observedBackend) observe(operation string, started time.Time, err *error) {
	if b.metrics != nil {
		b.metrics.Observe(operation, *err, started)
	}
}
