package task

import (
	"context"
	"errors"
	"time"

	"github.com/blues/qfround/internal/logger"
	"github.com/blues/qfround/internal/model"
	"github.com/go-co-op/gocron/v2"
)

// RoundSource 当前轮次重建
type RoundSource interface {
	CurrentRound(ctx context.Context) (*model.RoundRecord, error)
}

// BlockSource 最新区块号
type BlockSource interface {
	BlockNumber(ctx context.Context) (uint64, error)
}

// SnapshotStore 快照存储
type SnapshotStore interface {
	Create(ctx context.Context, snapshot *model.RoundSnapshotModel) error
	LatestBlock(ctx context.Context, roundAddress string) (uint64, error)
}

// RoundSnapshotJob 定期保存当前轮次快照
type RoundSnapshotJob struct {
	rounds   RoundSource
	blocks   BlockSource
	store    SnapshotStore
	interval time.Duration
	timeout  time.Duration
}

// NewRoundSnapshotJob 创建轮次快照任务
func NewRoundSnapshotJob(rounds RoundSource, blocks BlockSource, store SnapshotStore, interval time.Duration) *RoundSnapshotJob {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &RoundSnapshotJob{
		rounds:   rounds,
		blocks:   blocks,
		store:    store,
		interval: interval,
		timeout:  interval,
	}
}

// GetName 获取任务名称
func (j *RoundSnapshotJob) GetName() string {
	return "round_snapshot"
}

// GetSchedule 获取调度配置
func (j *RoundSnapshotJob) GetSchedule() gocron.JobDefinition {
	return gocron.DurationJob(j.interval)
}

// Execute 执行任务
func (j *RoundSnapshotJob) Execute() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	if err := j.Run(ctx); err != nil {
		logger.Error("Round snapshot failed: %v", err)
	}
}

// Run 重建当前轮次并保存，区块号未变化时跳过
func (j *RoundSnapshotJob) Run(ctx context.Context) error {
	block, err := j.blocks.BlockNumber(ctx)
	if err != nil {
		return err
	}

	record, err := j.rounds.CurrentRound(ctx)
	if err != nil {
		if errors.Is(err, model.ErrRoundNotFound) {
			logger.Info("No current round, skipping snapshot")
			return nil
		}
		return err
	}

	address := record.Address.Hex()
	latest, err := j.store.LatestBlock(ctx, address)
	if err != nil {
		return err
	}
	if latest >= block {
		logger.Debug("Round %s already has a snapshot at block %d", address, latest)
		return nil
	}

	snapshot := &model.RoundSnapshotModel{
		RoundAddress:  address,
		RoundIndex:    record.Index,
		Status:        string(record.Status),
		Contributions: record.Contributions.String(),
		MatchingPool:  record.MatchingPool.String(),
		TotalFunds:    record.TotalFunds.String(),
		Contributors:  record.Contributors,
		BlockNum:      block,
	}
	if err := j.store.Create(ctx, snapshot); err != nil {
		return err
	}

	logger.Info("Saved snapshot of round %s at block %d: status=%s totalFunds=%s", address, block, snapshot.Status, snapshot.TotalFunds)
	return nil
}
