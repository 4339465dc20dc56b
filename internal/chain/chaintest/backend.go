// Package chaintest provides an in-memory ledger backend for tests. It answers
// ABI-encoded contract calls from registered handlers and serves ABI-encoded logs.
package chaintest

import (
	"context"
	"fmt"
	"math/big"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// CallHandler receives the decoded call arguments and returns output values in ABI order.
type CallHandler func(args []interface{}) ([]interface{}, error)

type callKey struct {
	address  common.Address
	selector [4]byte
}

type handler struct {
	method abi.Method
	fn     CallHandler
}

// Backend is a chain.Backend kept entirely in memory.
type Backend struct {
	mu       sync.Mutex
	head     uint64
	logs     []types.Log
	handlers map[callKey]handler
	calls    map[string]int
	callErr  error
	logsErr  error
	txSeq    uint64
}

// New creates an empty backend with head at block 0.
func New() *Backend {
	return &Backend{
		handlers: make(map[callKey]handler),
		calls:    make(map[string]int),
	}
}

// SetHead sets the latest block number.
func (b *Backend) SetHead(n uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.head = n
}

// Handle registers fn to answer calls of method on address.
func (b *Backend) Handle(address common.Address, contractABI abi.ABI, method string, fn CallHandler) {
	m, ok := contractABI.Methods[method]
	if !ok {
		panic(fmt.Sprintf("chaintest: method %s not in ABI", method))
	}
	var sel [4]byte
	copy(sel[:], m.ID)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[callKey{address: address, selector: sel}] = handler{method: m, fn: fn}
}

// Returns registers constant output values for method on address.
func (b *Backend) Returns(address common.Address, contractABI abi.ABI, method string, values ...interface{}) {
	b.Handle(address, contractABI, method, func([]interface{}) ([]interface{}, error) {
		return values, nil
	})
}

// Emit appends a log for event with args given in ABI input order.
func (b *Backend) Emit(address common.Address, contractABI abi.ABI, event string, block uint64, args ...interface{}) {
	ev, ok := contractABI.Events[event]
	if !ok {
		panic(fmt.Sprintf("chaintest: event %s not in ABI", event))
	}
	if len(args) != len(ev.Inputs) {
		panic(fmt.Sprintf("chaintest: event %s wants %d args, got %d", event, len(ev.Inputs), len(args)))
	}

	topics := []common.Hash{ev.ID}
	var data []interface{}
	for i, input := range ev.Inputs {
		if !input.Indexed {
			data = append(data, args[i])
			continue
		}
		topic, err := abi.MakeTopics([]interface{}{args[i]})
		if err != nil {
			panic(fmt.Sprintf("chaintest: topic for %s.%s: %v", event, input.Name, err))
		}
		topics = append(topics, topic[0][0])
	}

	packed, err := ev.Inputs.NonIndexed().Pack(data...)
	if err != nil {
		panic(fmt.Sprintf("chaintest: pack %s: %v", event, err))
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.txSeq++
	b.logs = append(b.logs, types.Log{
		Address:     address,
		Topics:      topics,
		Data:        packed,
		BlockNumber: block,
		TxHash:      crypto.Keccak256Hash(new(big.Int).SetUint64(b.txSeq).Bytes()),
		Index:       uint(len(b.logs)),
	})
	if block > b.head {
		b.head = block
	}
}

// FailCalls makes every contract call fail with err until reset with nil.
func (b *Backend) FailCalls(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.callErr = err
}

// FailLogs makes every log query fail with err until reset with nil.
func (b *Backend) FailLogs(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.logsErr = err
}

// CallCount reports how many times method was called on any address.
func (b *Backend) CallCount(method string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[method]
}

func (b *Backend) CodeAt(ctx context.Context, contract common.Address, blockNumber *big.Int) ([]byte, error) {
	return []byte{0x60}, nil
}

func (b *Backend) CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	b.mu.Lock()
	if b.callErr != nil {
		err := b.callErr
		b.mu.Unlock()
		return nil, err
	}
	if call.To == nil || len(call.Data) < 4 {
		b.mu.Unlock()
		return nil, fmt.Errorf("chaintest: malformed call")
	}
	var sel [4]byte
	copy(sel[:], call.Data[:4])
	h, ok := b.handlers[callKey{address: *call.To, selector: sel}]
	if ok {
		b.calls[h.method.Name]++
	}
	b.mu.Unlock()

	if !ok {
		return nil, fmt.Errorf("chaintest: execution reverted: no handler for %x on %s", sel, call.To.Hex())
	}

	args, err := h.method.Inputs.Unpack(call.Data[4:])
	if err != nil {
		return nil, fmt.Errorf("chaintest: unpack %s args: %w", h.method.Name, err)
	}
	out, err := h.fn(args)
	if err != nil {
		return nil, err
	}
	return h.method.Outputs.Pack(out...)
}

func (b *Backend) FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.logsErr != nil {
		return nil, b.logsErr
	}

	from := uint64(0)
	if q.FromBlock != nil {
		from = q.FromBlock.Uint64()
	}
	to := b.head
	if q.ToBlock != nil {
		to = q.ToBlock.Uint64()
	}

	var out []types.Log
	for _, l := range b.logs {
		if l.BlockNumber < from || l.BlockNumber > to {
			continue
		}
		if len(q.Addresses) > 0 && !containsAddress(q.Addresses, l.Address) {
			continue
		}
		if !matchTopics(q.Topics, l.Topics) {
			continue
		}
		out = append(out, l)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].BlockNumber != out[j].BlockNumber {
			return out[i].BlockNumber < out[j].BlockNumber
		}
		return out[i].Index < out[j].Index
	})
	return out, nil
}

func (b *Backend) BlockNumber(ctx context.Context) (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.logsErr != nil {
		return 0, b.logsErr
	}
	return b.head, nil
}

func containsAddress(addresses []common.Address, a common.Address) bool {
	for _, candidate := range addresses {
		if candidate == a {
			return true
		}
	}
	return false
}

func matchTopics(filter [][]common.Hash, topics []common.Hash) bool {
	for i, alternatives := range filter {
		if len(alternatives) == 0 {
			continue
		}
		if i >= len(topics) {
			return false
		}
		matched := false
		for _, want := range alternatives {
			if topics[i] == want {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	return true
}
