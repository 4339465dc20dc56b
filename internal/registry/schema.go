package registry

import (
	"context"
	"fmt"

	"github.com/blues/qfround/internal/chain"
	"github.com/blues/qfround/internal/docstore"
	"github.com/blues/qfround/internal/logger"
	"github.com/blues/qfround/internal/model"
	"github.com/blues/qfround/internal/scanner"
	"github.com/ethereum/go-ethereum/common"
)

// Schema 策展列表当前的字段定义
type Schema struct {
	TCR     common.Address
	Columns []Column
}

type metaEvidenceDocument struct {
	Metadata struct {
		Columns []Column `json:"columns"`
	} `json:"metadata"`
}

// resolveSchema 读取注册表绑定的策展列表，取倒数第二条 meta evidence 作为登记字段定义。
// 策展列表每次更新会依次发出登记和移除两条 meta evidence。
func (r *Reconciler) resolveSchema(ctx context.Context, registry *chain.Contract) (*Schema, *chain.Contract, error) {
	tcrAddr, err := chain.Read[common.Address](ctx, registry, "tcr")
	if err != nil {
		return nil, nil, err
	}
	tcr, err := r.manager.Bind(chain.TCRContract, tcrAddr)
	if err != nil {
		return nil, nil, err
	}

	events, err := scanner.Scan[model.MetaEvidence](ctx, r.scanner, tcr, scanner.Query{Event: "MetaEvidence", FromBlock: r.fromBlock})
	if err != nil {
		return nil, nil, err
	}
	if len(events) < 2 {
		return nil, nil, fmt.Errorf("%w: curated list %s has %d meta evidence events", model.ErrSchemaUnavailable, tcrAddr.Hex(), len(events))
	}
	evidence := events[len(events)-2].Args.Evidence

	var doc metaEvidenceDocument
	if err := r.docs.FetchJSON(ctx, docstore.JoinGateway(r.cfg.EvidenceGateway, evidence), &doc); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", model.ErrSchemaUnavailable, err)
	}
	if len(doc.Metadata.Columns) == 0 {
		return nil, nil, fmt.Errorf("%w: meta evidence %s has no columns", model.ErrSchemaUnavailable, evidence)
	}

	logger.Debug("Resolved curated list %s schema from %s with %d columns", tcrAddr.Hex(), evidence, len(doc.Metadata.Columns))
	return &Schema{TCR: tcrAddr, Columns: doc.Metadata.Columns}, tcr, nil
}
