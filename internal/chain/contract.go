package chain

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/blues/qfround/internal/model"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Contract 合约工具类，绑定ABI与地址
type Contract struct {
	address common.Address      // 合约地址
	abi     abi.ABI             // 合约ABI
	name    string              // 合约名称
	bound   *bind.BoundContract // 读取与日志解码
	writer  bool                // 是否绑定了交易发送端
}

// NewContract 创建合约实例，transactor 为空时只能读取
func NewContract(caller bind.ContractCaller, transactor bind.ContractTransactor, name string, parsedABI abi.ABI, address common.Address) *Contract {
	return &Contract{
		address: address,
		abi:     parsedABI,
		name:    name,
		bound:   bind.NewBoundContract(address, parsedABI, caller, transactor, nil),
		writer:  transactor != nil,
	}
}

// ParseABI 解析ABI，兼容完整编译输出 {"abi": [...]} 和纯ABI数组
func ParseABI(data []byte) (abi.ABI, error) {
	var compiledOutput struct {
		ABI json.RawMessage `json:"abi"`
	}

	// 首先尝试解析为完整编译输出
	if err := json.Unmarshal(data, &compiledOutput); err == nil && compiledOutput.ABI != nil {
		parsedABI, err := abi.JSON(bytes.NewReader(compiledOutput.ABI))
		if err != nil {
			return abi.ABI{}, fmt.Errorf("failed to parse ABI from compiled output: %w", err)
		}
		return parsedABI, nil
	}

	parsedABI, err := abi.JSON(bytes.NewReader(data))
	if err != nil {
		return abi.ABI{}, fmt.Errorf("failed to parse ABI: %w", err)
	}
	return parsedABI, nil
}

// LoadABI 从文件加载ABI
func LoadABI(path string) (abi.ABI, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return abi.ABI{}, fmt.Errorf("failed to load ABI from %s: %w", path, err)
	}
	return ParseABI(data)
}

// BuiltinABI 获取内置ABI
func BuiltinABI(name string) (abi.ABI, error) {
	raw, ok := builtinABIs[name]
	if !ok {
		return abi.ABI{}, fmt.Errorf("no builtin ABI for contract %s", name)
	}
	return abi.JSON(strings.NewReader(raw))
}

// GetAddress 获取合约地址
func (c *Contract) GetAddress() common.Address {
	return c.address
}

// GetABI 获取合约ABI
func (c *Contract) GetABI() abi.ABI {
	return c.abi
}

// GetName 获取合约名称
func (c *Contract) GetName() string {
	return c.name
}

// EventID 获取事件签名
func (c *Contract) EventID(event string) (common.Hash, error) {
	ev, ok := c.abi.Events[event]
	if !ok {
		return common.Hash{}, fmt.Errorf("event %s not found in contract %s", event, c.name)
	}
	return ev.ID, nil
}

// UnpackLog 将日志解码到事件结构体
func (c *Contract) UnpackLog(out interface{}, event string, log types.Log) error {
	if err := c.bound.UnpackLog(out, event, log); err != nil {
		return fmt.Errorf("%w: unpack %s.%s at block %d: %v", model.ErrInvalidEvent, c.name, event, log.BlockNumber, err)
	}
	return nil
}

// Call 调用只读方法，任何链上读取失败都归为 ErrLedgerUnavailable
func (c *Contract) Call(ctx context.Context, method string, args ...interface{}) ([]interface{}, error) {
	var out []interface{}
	if err := c.bound.Call(&bind.CallOpts{Context: ctx}, &out, method, args...); err != nil {
		return nil, fmt.Errorf("%w: call %s.%s at %s: %v", model.ErrLedgerUnavailable, c.name, method, c.address.Hex(), err)
	}
	return out, nil
}

// Transact 发送交易，需要绑定交易发送端
func (c *Contract) Transact(opts *bind.TransactOpts, method string, args ...interface{}) (*types.Transaction, error) {
	if !c.writer {
		return nil, fmt.Errorf("contract %s is bound read-only", c.name)
	}
	tx, err := c.bound.Transact(opts, method, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: transact %s.%s: %v", model.ErrLedgerUnavailable, c.name, method, err)
	}
	return tx, nil
}

// Read 调用单返回值的只读方法并转换为目标类型
func Read[T any](ctx context.Context, c *Contract, method string, args ...interface{}) (T, error) {
	var zero T
	out, err := c.Call(ctx, method, args...)
	if err != nil {
		return zero, err
	}
	if len(out) == 0 {
		return zero, fmt.Errorf("%w: %s.%s returned no values", model.ErrLedgerUnavailable, c.name, method)
	}
	return As[T](out[0])
}

// As 将解码后的返回值断言为目标类型
func As[T any](v interface{}) (T, error) {
	typed, ok := v.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("unexpected return type %T, want %T", v, zero)
	}
	return typed, nil
}

// IsRateLimited 检查是否为RPC限流错误
func IsRateLimited(err error) bool {
	return err != nil && strings.Contains(err.Error(), "Too Many Requests")
}

// IsLedgerUnavailable 是否为链上读取失败
func IsLedgerUnavailable(err error) bool {
	return errors.Is(err, model.ErrLedgerUnavailable)
}
