package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/blues/qfround/internal/model"
	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
)

// RoundService 轮次重建
type RoundService interface {
	GetRound(ctx context.Context, address common.Address) (*model.RoundRecord, error)
	CurrentRound(ctx context.Context) (*model.RoundRecord, error)
}

// SnapshotLister 轮次快照历史
type SnapshotLister interface {
	ListByRound(ctx context.Context, roundAddress string, limit int) ([]model.RoundSnapshotModel, error)
}

type RoundHandler struct {
	rounds    RoundService
	snapshots SnapshotLister
}

// NewRoundHandler 创建轮次接口，snapshots 为空时快照接口不可用
func NewRoundHandler(rounds RoundService, snapshots SnapshotLister) *RoundHandler {
	return &RoundHandler{rounds: rounds, snapshots: snapshots}
}

// GetCurrentRound 获取工厂合约当前轮次
func (h *RoundHandler) GetCurrentRound(c *gin.Context) {
	record, err := h.rounds.CurrentRound(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "ok", ToRoundResponse(record))
}

// GetRound 获取指定轮次
func (h *RoundHandler) GetRound(c *gin.Context) {
	address, ok := parseAddress(c, "address")
	if !ok {
		return
	}

	record, err := h.rounds.GetRound(c.Request.Context(), address)
	if err != nil {
		writeError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "ok", ToRoundResponse(record))
}

// GetRoundSnapshots 获取轮次快照历史
func (h *RoundHandler) GetRoundSnapshots(c *gin.Context) {
	if h.snapshots == nil {
		ErrorResponse(c, http.StatusNotImplemented, "snapshot history is disabled")
		return
	}
	address, ok := parseAddress(c, "address")
	if !ok {
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 || limit > 500 {
		ErrorResponse(c, http.StatusBadRequest, "invalid limit")
		return
	}

	rows, err := h.snapshots.ListByRound(c.Request.Context(), address.Hex(), limit)
	if err != nil {
		writeError(c, err)
		return
	}

	list := make([]SnapshotResponse, 0, len(rows))
	for _, row := range rows {
		list = append(list, ToSnapshotResponse(row))
	}
	SuccessResponse(c, http.StatusOK, "ok", list)
}

func parseAddress(c *gin.Context, param string) (common.Address, bool) {
	raw := c.Param(param)
	if !common.IsHexAddress(raw) {
		ErrorResponse(c, http.StatusBadRequest, "invalid address: "+raw)
		return common.Address{}, false
	}
	return common.HexToAddress(raw), true
}
