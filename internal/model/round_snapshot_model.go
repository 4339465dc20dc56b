package model

import "time"

// RoundSnapshotModel 轮次快照历史，仅用于审计，不作为查询缓存
type RoundSnapshotModel struct {
	Id            int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	RoundAddress  string    `gorm:"type:varchar(42);index;not null" json:"round_address"`
	RoundIndex    int       `gorm:"not null" json:"round_index"`
	Status        string    `gorm:"type:varchar(20);not null" json:"status"`
	Contributions string    `gorm:"type:numeric(78,0);not null" json:"contributions"`
	MatchingPool  string    `gorm:"type:numeric(78,0);not null" json:"matching_pool"`
	TotalFunds    string    `gorm:"type:numeric(78,0);not null" json:"total_funds"`
	Contributors  int       `gorm:"not null;default:0" json:"contributors"`
	BlockNum      uint64    `gorm:"not null" json:"block_num"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (RoundSnapshotModel) TableName() string {
	return "round_snapshot"
}
