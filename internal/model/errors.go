package model

import "errors"

var (
	// ErrRoundNotFound 地址不是工厂合约启动过的轮次
	ErrRoundNotFound = errors.New("round not found")
	// ErrSchemaUnavailable 策展列表的字段定义缺失或无法获取
	ErrSchemaUnavailable = errors.New("curated list schema unavailable")
	// ErrLedgerUnavailable 链上读取失败，调用方可退避重试
	ErrLedgerUnavailable = errors.New("ledger unavailable")
	// ErrMetadataDecode 单个项目元数据解码失败，不向上传播
	ErrMetadataDecode = errors.New("metadata decode failure")
	// ErrTallyEngine 外部计票引擎没有产出结果
	ErrTallyEngine = errors.New("tally engine failure")
	// ErrInvalidEvent 事件字段缺失或非法
	ErrInvalidEvent = errors.New("invalid event")
)
