package registry

import (
	"context"
	"fmt"
	"math/big"
	"strings"
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

// DocumentFetcher 读取链下 JSON 文档
type DocumentFetcher interface {
	FetchJSON(ctx context.Context, url string, out interface{}) error
}

// Window 轮次的区块窗口，为空表示不限制
type Window struct {
	StartBlock *uint64
	EndBlock   *uint64
}

// Reconciler 合并策展列表和本地注册表的项目列表
type Reconciler struct {
	manager   *chain.Manager
	scanner   *scanner.Scanner
	pool      *ants.Pool
	docs      DocumentFetcher
	cfg       config.RegistryConfig
	fromBlock uint64
	metrics   *metrics.Reconcile
}

// NewReconciler 创建项目注册表对账器，fromBlock 为注册表和策展列表的最早部署区块
func NewReconciler(manager *chain.Manager, s *scanner.Scanner, pool *ants.Pool, docs DocumentFetcher, cfg config.RegistryConfig, fromBlock uint64) *Reconciler {
	return &Reconciler{
		manager:   manager,
		scanner:   s,
		pool:      pool,
		docs:      docs,
		cfg:       cfg,
		fromBlock: fromBlock,
		metrics:   metrics.NewReconcile("registry"),
	}
}

type itemInfo struct {
	data   []byte
	status model.CurateItemStatus
}

// ListProjects 重放注册表事件并合并策展列表中已登记但未加入本地注册表的条目
func (r *Reconciler) ListProjects(ctx context.Context, registryAddr common.Address, w Window) (projects []*model.ProjectRecord, err error) {
	started := time.Now()
	defer func() { r.metrics.Observe(err, started) }()

	registry, err := r.manager.Bind(chain.RegistryContract, registryAddr)
	if err != nil {
		return nil, err
	}
	schema, tcr, err := r.resolveSchema(ctx, registry)
	if err != nil {
		return nil, err
	}

	projects, byID, err := r.replayAdded(ctx, registry, schema, w)
	if err != nil {
		return nil, err
	}
	if err := r.applyRemovals(ctx, registry, byID, w); err != nil {
		return nil, err
	}

	curated, err := r.curatedOnly(ctx, tcr, schema, byID)
	if err != nil {
		return nil, err
	}
	projects = append(projects, curated...)

	logger.Info("Reconciled registry %s: %d projects (%d from curated list only)", registryAddr.Hex(), len(projects), len(curated))
	return projects, nil
}

// replayAdded 按事件顺序建立项目，同一 id 重复登记时保留首次位置，字段以最后一次为准
func (r *Reconciler) replayAdded(ctx context.Context, registry *chain.Contract, schema *Schema, w Window) ([]*model.ProjectRecord, map[common.Hash]*model.ProjectRecord, error) {
	added, err := scanner.Scan[model.RecipientAdded](ctx, r.scanner, registry, scanner.Query{Event: "RecipientAdded", FromBlock: r.fromBlock})
	if err != nil {
		return nil, nil, err
	}

	projects := make([]*model.ProjectRecord, 0, len(added))
	byID := make(map[common.Hash]*model.ProjectRecord, len(added))
	for _, ev := range added {
		id := common.Hash(ev.Args.RecipientId)
		p, ok := byID[id]
		if ok {
			logger.Debug("Recipient %s added again at block %d", id.Hex(), ev.BlockNumber)
			r.metrics.Skip(metrics.SkipDuplicate)
			*p = model.ProjectRecord{}
		} else {
			p = &model.ProjectRecord{}
			byID[id] = p
			projects = append(projects, p)
		}

		p.ID = id.Hex()
		p.Index = ev.Args.Index.Int64()
		r.fillMetadata(p, schema, ev.Args.Metadata)
		p.IsHidden = w.EndBlock != nil && ev.BlockNumber >= *w.EndBlock
	}
	return projects, byID, nil
}

// applyRemovals 每个项目只匹配第一条移除事件。
// 轮次开始前已移除的项目隐藏，轮次进行中移除的项目锁定。
func (r *Reconciler) applyRemovals(ctx context.Context, registry *chain.Contract, byID map[common.Hash]*model.ProjectRecord, w Window) error {
	removed, err := scanner.Scan[model.RecipientRemoved](ctx, r.scanner, registry, scanner.Query{Event: "RecipientRemoved", FromBlock: r.fromBlock})
	if err != nil {
		return err
	}

	handled := make(map[common.Hash]bool, len(removed))
	for _, ev := range removed {
		id := common.Hash(ev.Args.RecipientId)
		p, ok := byID[id]
		if !ok || handled[id] {
			continue
		}
		handled[id] = true

		if w.StartBlock == nil || ev.BlockNumber <= *w.StartBlock {
			p.IsHidden = true
		} else {
			p.IsLocked = true
		}
	}
	return nil
}

// curatedOnly 收集策展列表中已登记且不在本地注册表中的条目
func (r *Reconciler) curatedOnly(ctx context.Context, tcr *chain.Contract, schema *Schema, present map[common.Hash]*model.ProjectRecord) ([]*model.ProjectRecord, error) {
	submitted, err := scanner.Scan[model.ItemSubmitted](ctx, r.scanner, tcr, scanner.Query{Event: "ItemSubmitted", FromBlock: r.fromBlock})
	if err != nil {
		return nil, err
	}

	seen := make(map[common.Hash]bool, len(submitted))
	var candidates []common.Hash
	for _, ev := range submitted {
		id := common.Hash(ev.Args.ItemID)
		if present[id] != nil || seen[id] {
			r.metrics.Skip(metrics.SkipDuplicate)
			continue
		}
		seen[id] = true
		candidates = append(candidates, id)
	}

	infos := make([]itemInfo, len(candidates))
	g, _ := fanout.WithContext(ctx, r.pool)
	for i, id := range candidates {
		g.Go(func(ctx context.Context) error {
			info, err := getItemInfo(ctx, tcr, id)
			if err != nil {
				return err
			}
			infos[i] = info
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var projects []*model.ProjectRecord
	for i, id := range candidates {
		info := infos[i]
		if info.status != model.CurateItemRegistered {
			logger.Debug("Curated item %s has status %s, skipping", id.Hex(), info.status)
			r.metrics.Skip(metrics.SkipIneligible)
			continue
		}
		p := &model.ProjectRecord{
			ID: id.Hex(),
			Extra: &model.ProjectExtra{
				TCRItemStatus: info.status.String(),
				TCRItemURL:    r.itemURL(schema.TCR, id),
			},
		}
		r.fillMetadata(p, schema, info.data)
		projects = append(projects, p)
	}
	return projects, nil
}

// fillMetadata 解码条目数据，解码失败的字段保留为空
func (r *Reconciler) fillMetadata(p *model.ProjectRecord, schema *Schema, data []byte) {
	values, err := DecodeItem(schema.Columns, data)
	if err != nil {
		logger.Warn("Failed to decode metadata of project %s: %v", p.ID, err)
		r.metrics.Skip(metrics.SkipMetadataDecode)
	}
	if values != nil {
		projectFromItem(p, values, r.cfg.IPFSGateway)
	}
}

// itemURL 策展列表条目浏览地址
func (r *Reconciler) itemURL(tcr common.Address, id common.Hash) string {
	return fmt.Sprintf("%s/tcr/%s/%s", strings.TrimRight(r.cfg.CurateURL, "/"), tcr.Hex(), id.Hex())
}

func getItemInfo(ctx context.Context, tcr *chain.Contract, id common.Hash) (itemInfo, error) {
	out, err := tcr.Call(ctx, "getItemInfo", [32]byte(id))
	if err != nil {
		return itemInfo{}, err
	}
	if len(out) != 3 {
		return itemInfo{}, fmt.Errorf("%w: getItemInfo returned %d values", model.ErrLedgerUnavailable, len(out))
	}
	data, err := chain.As[[]byte](out[0])
	if err != nil {
		return itemInfo{}, err
	}
	status, err := chain.As[uint8](out[1])
	if err != nil {
		return itemInfo{}, err
	}
	if _, err := chain.As[*big.Int](out[2]); err != nil {
		return itemInfo{}, err
	}
	return itemInfo{data: data, status: model.CurateItemStatus(status)}, nil
}
