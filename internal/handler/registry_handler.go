package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/blues/qfround/internal/model"
	"github.com/blues/qfround/internal/registry"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/gin-gonic/gin"
)

// ProjectService 项目注册表对账
type ProjectService interface {
	ListProjects(ctx context.Context, registryAddr common.Address, w registry.Window) ([]*model.ProjectRecord, error)
	GetProject(ctx context.Context, registryAddr common.Address, id common.Hash) (*model.ProjectRecord, error)
}

type RegistryHandler struct {
	projects ProjectService
}

func NewRegistryHandler(projects ProjectService) *RegistryHandler {
	return &RegistryHandler{projects: projects}
}

// ListProjects 获取注册表项目列表，start_block/end_block 为可选的轮次区块窗口
func (h *RegistryHandler) ListProjects(c *gin.Context) {
	address, ok := parseAddress(c, "address")
	if !ok {
		return
	}

	var w registry.Window
	var err error
	if w.StartBlock, err = optionalBlock(c, "start_block"); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "invalid start_block")
		return
	}
	if w.EndBlock, err = optionalBlock(c, "end_block"); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "invalid end_block")
		return
	}

	projects, err := h.projects.ListProjects(c.Request.Context(), address, w)
	if err != nil {
		writeError(c, err)
		return
	}
	if projects == nil {
		projects = []*model.ProjectRecord{}
	}
	SuccessResponse(c, http.StatusOK, "ok", projects)
}

// GetProject 获取单个项目
func (h *RegistryHandler) GetProject(c *gin.Context) {
	address, ok := parseAddress(c, "address")
	if !ok {
		return
	}
	raw := c.Param("id")
	decoded, err := hexutil.Decode(raw)
	if err != nil || len(decoded) != common.HashLength {
		ErrorResponse(c, http.StatusBadRequest, "invalid project id: "+raw)
		return
	}

	project, err := h.projects.GetProject(c.Request.Context(), address, common.BytesToHash(decoded))
	if err != nil {
		writeError(c, err)
		return
	}
	if project == nil {
		ErrorResponse(c, http.StatusNotFound, "project not found")
		return
	}
	SuccessResponse(c, http.StatusOK, "ok", project)
}

func optionalBlock(c *gin.Context, key string) (*uint64, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return nil, err
	}
	return &n, nil
}
