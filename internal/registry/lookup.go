package registry

import (
	"context"

	"github.com/blues/qfround/internal/chain"
	"github.com/blues/qfround/internal/logger"
	"github.com/blues/qfround/internal/model"
	"github.com/blues/qfround/internal/scanner"
	"github.com/ethereum/go-ethereum/common"
)

// GetProject 按条目 id 查询单个项目，策展列表中没有数据时返回 nil, nil。
// 只要存在移除事件就标记为锁定，这里不判断隐藏。
func (r *Reconciler) GetProject(ctx context.Context, registryAddr common.Address, id common.Hash) (*model.ProjectRecord, error) {
	registry, err := r.manager.Bind(chain.RegistryContract, registryAddr)
	if err != nil {
		return nil, err
	}
	schema, tcr, err := r.resolveSchema(ctx, registry)
	if err != nil {
		return nil, err
	}

	info, err := getItemInfo(ctx, tcr, id)
	if err != nil {
		return nil, err
	}
	if len(info.data) == 0 {
		logger.Debug("Curated item %s not found on %s", id.Hex(), schema.TCR.Hex())
		return nil, nil
	}

	project := &model.ProjectRecord{
		ID: id.Hex(),
		Extra: &model.ProjectExtra{
			TCRItemStatus: info.status.String(),
			TCRItemURL:    r.itemURL(schema.TCR, id),
		},
	}
	r.fillMetadata(project, schema, info.data)

	filter := [][]interface{}{{[32]byte(id)}}
	added, err := scanner.Scan[model.RecipientAdded](ctx, r.scanner, registry, scanner.Query{Event: "RecipientAdded", Filter: filter, FromBlock: r.fromBlock})
	if err != nil {
		return nil, err
	}
	if len(added) > 0 {
		project.Index = added[len(added)-1].Args.Index.Int64()
	}

	removed, err := scanner.Scan[model.RecipientRemoved](ctx, r.scanner, registry, scanner.Query{Event: "RecipientRemoved", Filter: filter, FromBlock: r.fromBlock})
	if err != nil {
		return nil, err
	}
	project.IsLocked = len(removed) > 0

	return project, nil
}
