package scanner

import (
	"context"
	"fmt"
	"math/big"

	"github.com/blues/qfround/internal/chain"
	"github.com/blues/qfround/internal/logger"
	"github.com/blues/qfround/internal/model"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Event 解码后的链上事件及其位置
type Event[T any] struct {
	BlockNumber uint64
	TxHash      common.Hash
	LogIndex    uint
	Args        T
}

// Query 一次事件扫描的条件
type Query struct {
	Event     string          // 事件名称
	Filter    [][]interface{} // 按索引参数过滤，与 abi.MakeTopics 的输入一致
	FromBlock uint64          // 起始区块（含）
	ToBlock   *uint64         // 结束区块（含），为空表示最新区块
}

type validator interface {
	Validate() error
}

// Scanner 事件扫描器
type Scanner struct {
	backend   chain.Backend
	batchSize uint64
}

// New 创建扫描器，batchSize 为0时整个区间一次查询
func New(backend chain.Backend, batchSize uint64) *Scanner {
	return &Scanner{backend: backend, batchSize: batchSize}
}

// Scan 扫描合约的一种事件，按区块和日志序号升序返回
func Scan[T any](ctx context.Context, s *Scanner, c *chain.Contract, q Query) ([]Event[T], error) {
	eventID, err := c.EventID(q.Event)
	if err != nil {
		return nil, err
	}

	topics, err := buildTopics(eventID, q.Filter)
	if err != nil {
		return nil, fmt.Errorf("failed to build topics for %s: %w", q.Event, err)
	}

	logs, err := s.filterLogs(ctx, c.GetAddress(), topics, q.FromBlock, q.ToBlock)
	if err != nil {
		if chain.IsRateLimited(err) {
			logger.Warn("Rate limited while scanning %s.%s: %v", c.GetName(), q.Event, err)
		}
		return nil, fmt.Errorf("%w: scan %s.%s: %v", model.ErrLedgerUnavailable, c.GetName(), q.Event, err)
	}

	events := make([]Event[T], 0, len(logs))
	for _, l := range logs {
		if l.Removed {
			continue
		}
		var args T
		if err := c.UnpackLog(&args, q.Event, l); err != nil {
			return nil, err
		}
		if v, ok := any(args).(validator); ok {
			if err := v.Validate(); err != nil {
				return nil, fmt.Errorf("%s at block %d: %w", q.Event, l.BlockNumber, err)
			}
		}
		events = append(events, Event[T]{
			BlockNumber: l.BlockNumber,
			TxHash:      l.TxHash,
			LogIndex:    l.Index,
			Args:        args,
		})
	}

	logger.Debug("Scanned %d %s events from %s", len(events), q.Event, c.GetAddress().Hex())
	return events, nil
}

func buildTopics(eventID common.Hash, filter [][]interface{}) ([][]common.Hash, error) {
	topics := [][]common.Hash{{eventID}}
	if len(filter) == 0 {
		return topics, nil
	}
	rest, err := abi.MakeTopics(filter...)
	if err != nil {
		return nil, err
	}
	return append(topics, rest...), nil
}

// filterLogs 查询日志，配置了批量大小时分段查询
func (s *Scanner) filterLogs(ctx context.Context, address common.Address, topics [][]common.Hash, from uint64, to *uint64) ([]types.Log, error) {
	if s.batchSize == 0 {
		query := ethereum.FilterQuery{
			FromBlock: new(big.Int).SetUint64(from),
			Addresses: []common.Address{address},
			Topics:    topics,
		}
		if to != nil {
			query.ToBlock = new(big.Int).SetUint64(*to)
		}
		return s.backend.FilterLogs(ctx, query)
	}

	var end uint64
	if to != nil {
		end = *to
	} else {
		head, err := s.backend.BlockNumber(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get current block number: %w", err)
		}
		end = head
	}

	var logs []types.Log
	for start := from; start <= end; start += s.batchSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		batchEnd := start + s.batchSize - 1
		if batchEnd > end {
			batchEnd = end
		}
		batch, err := s.backend.FilterLogs(ctx, ethereum.FilterQuery{
			FromBlock: new(big.Int).SetUint64(start),
			ToBlock:   new(big.Int).SetUint64(batchEnd),
			Addresses: []common.Address{address},
			Topics:    topics,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to filter logs in blocks %d-%d: %w", start, batchEnd, err)
		}
		logs = append(logs, batch...)
		if batchEnd == end {
			break
		}
	}
	return logs, nil
}
