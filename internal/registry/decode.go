package registry

import (
	"errors"
	"fmt"
	"math/big"
	"unicode/utf8"

	"github.com/blues/qfround/internal/docstore"
	"github.com/blues/qfround/internal/model"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"
)

// 策展列表字段类型
const (
	ColumnText        = "text"
	ColumnLongText    = "long text"
	ColumnAddress     = "address"
	ColumnGTCRAddress = "GTCR address"
	ColumnNumber      = "number"
	ColumnBoolean     = "boolean"
	ColumnImage       = "image"
	ColumnFile        = "file"
	ColumnLink        = "link"
)

// 项目字段在条目中的位置
const (
	nameColumn = iota
	addressColumn
	imageColumn
	descriptionColumn
)

// Column 策展列表 meta evidence 中的一列
type Column struct {
	Label        string `json:"label"`
	Type         string `json:"type"`
	Description  string `json:"description"`
	IsIdentifier bool   `json:"isIdentifier"`
}

// DecodeItem 按列定义解码 RLP 编码的条目数据，每列返回规范化后的字符串。
// 单列解码失败时该列为空，其余列照常返回，错误合并后一并返回。
func DecodeItem(columns []Column, data []byte) ([]string, error) {
	var raw [][]byte
	if err := rlp.DecodeBytes(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrMetadataDecode, err)
	}

	values := make([]string, len(columns))
	var errs []error
	for i, col := range columns {
		if i >= len(raw) {
			break
		}
		v, err := decodeValue(col, raw[i])
		if err != nil {
			errs = append(errs, fmt.Errorf("%w: column %q: %v", model.ErrMetadataDecode, col.Label, err))
			continue
		}
		values[i] = v
	}
	return values, errors.Join(errs...)
}

func decodeValue(col Column, b []byte) (string, error) {
	switch col.Type {
	case ColumnAddress, ColumnGTCRAddress:
		if len(b) == 0 {
			return "", nil
		}
		if len(b) != common.AddressLength {
			return "", fmt.Errorf("address of %d bytes", len(b))
		}
		return common.BytesToAddress(b).Hex(), nil
	case ColumnNumber:
		return new(big.Int).SetBytes(b).String(), nil
	case ColumnBoolean:
		if len(b) == 1 && b[0] == 1 {
			return "true", nil
		}
		return "false", nil
	default:
		if !utf8.Valid(b) {
			return "", fmt.Errorf("invalid utf-8")
		}
		return string(b), nil
	}
}

// projectFromItem 将解码后的列填入项目记录
func projectFromItem(p *model.ProjectRecord, values []string, imageGateway string) {
	at := func(i int) string {
		if i < len(values) {
			return values[i]
		}
		return ""
	}
	p.Name = at(nameColumn)
	p.Address = at(addressColumn)
	p.Description = at(descriptionColumn)
	if image := at(imageColumn); image != "" {
		p.ImageURL = docstore.JoinGateway(imageGateway, image)
	}
}
