package repository

import (
	"context"
	"fmt"

	"github.com/blues/qfround/internal/model"
	"gorm.io/gorm"
)

// SnapshotRepository 轮次快照存储
type SnapshotRepository struct {
	db *gorm.DB
}

func NewSnapshotRepository(db *gorm.DB) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

// Create 保存一条快照
func (r *SnapshotRepository) Create(ctx context.Context, snapshot *model.RoundSnapshotModel) error {
	if err := r.db.WithContext(ctx).Create(snapshot).Error; err != nil {
		return fmt.Errorf("failed to create round snapshot: %w", err)
	}
	return nil
}

// ListByRound 按时间倒序获取轮次快照
func (r *SnapshotRepository) ListByRound(ctx context.Context, roundAddress string, limit int) ([]model.RoundSnapshotModel, error) {
	var snapshots []model.RoundSnapshotModel
	err := r.db.WithContext(ctx).
		Where("round_address = ?", roundAddress).
		Order("created_at DESC").
		Limit(limit).
		Find(&snapshots).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list round snapshots: %w", err)
	}
	return snapshots, nil
}

// LatestBlock 获取轮次最近一次快照的区块号
func (r *SnapshotRepository) LatestBlock(ctx context.Context, roundAddress string) (uint64, error) {
	var snapshot model.RoundSnapshotModel
	err := r.db.WithContext(ctx).
		Where("round_address = ?", roundAddress).
		Order("block_num DESC").
		Limit(1).
		Find(&snapshot).Error
	if err != nil {
		return 0, fmt.Errorf("failed to get latest snapshot block: %w", err)
	}
	return snapshot.BlockNum, nil
}
