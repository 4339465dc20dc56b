package chain

import (
	"context"
	"errors"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/blues/qfround/internal/chain/chaintest"
	"github.com/blues/qfround/internal/config"
	"github.com/blues/qfround/internal/model"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseABIAcceptsCompiledOutput(t *testing.T) {
	raw, err := ParseABI([]byte(erc20ABI))
	require.NoError(t, err)

	compiled, err := ParseABI([]byte(`{"contractName": "ERC20", "abi": ` + erc20ABI + `}`))
	require.NoError(t, err)

	assert.Equal(t, raw.Methods["balanceOf"].ID, compiled.Methods["balanceOf"].ID)

	_, err = ParseABI([]byte(`not json`))
	require.Error(t, err)
}

func TestManagerLoadsABIOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "factory.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"abi": `+factoryABI+`}`), 0o600))

	m, err := NewManagerWithBackend(config.ChainConfig{
		ChainType: "ethereum",
		Contracts: map[string]config.ContractConfig{
			"factory": {Address: "0x00000000000000000000000000000000000000fa", ABIPath: path, Enabled: true, BlockNum: 7},
		},
	}, chaintest.New())
	require.NoError(t, err)

	factory, deployBlock, err := m.Factory()
	require.NoError(t, err)
	assert.Equal(t, uint64(7), deployBlock)
	assert.Equal(t, common.HexToAddress("0xfa"), factory.GetAddress())
	assert.Equal(t, FactoryContract, factory.GetName())

	_, err = m.Bind("unknown", common.Address{})
	require.Error(t, err)

	_, err = m.BindWritable(RoundContract, common.Address{})
	require.Error(t, err, "no RPC client in tests")
}

func TestManagerRejectsMissingABIFile(t *testing.T) {
	_, err := NewManagerWithBackend(config.ChainConfig{
		Contracts: map[string]config.ContractConfig{"tcr": {ABIPath: "/does/not/exist.json"}},
	}, chaintest.New())
	require.Error(t, err)
}

func TestReadDecodesTypedValues(t *testing.T) {
	backend := chaintest.New()
	m, err := NewManagerWithBackend(config.ChainConfig{ChainType: "ethereum"}, backend)
	require.NoError(t, err)

	tokenAddr := common.HexToAddress("0x0000000000000000000000000000000000000701")
	holder := common.HexToAddress("0x0000000000000000000000000000000000000a11")
	token, err := m.Bind(ERC20Contract, tokenAddr)
	require.NoError(t, err)

	backend.Handle(tokenAddr, token.GetABI(), "balanceOf", func(args []interface{}) ([]interface{}, error) {
		if args[0].(common.Address) == holder {
			return []interface{}{big.NewInt(42)}, nil
		}
		return []interface{}{big.NewInt(0)}, nil
	})
	backend.Returns(tokenAddr, token.GetABI(), "decimals", uint8(18))
	backend.Returns(tokenAddr, token.GetABI(), "symbol", "DAI")

	ctx := context.Background()
	balance, err := Read[*big.Int](ctx, token, "balanceOf", holder)
	require.NoError(t, err)
	assert.Equal(t, int64(42), balance.Int64())

	decimals, err := Read[uint8](ctx, token, "decimals")
	require.NoError(t, err)
	assert.Equal(t, uint8(18), decimals)

	symbol, err := Read[string](ctx, token, "symbol")
	require.NoError(t, err)
	assert.Equal(t, "DAI", symbol)

	_, err = Read[bool](ctx, token, "symbol")
	require.Error(t, err)
}

func TestCallErrorsAreLedgerUnavailable(t *testing.T) {
	backend := chaintest.New()
	m, err := NewManagerWithBackend(config.ChainConfig{}, backend)
	require.NoError(t, err)

	token, err := m.Bind(ERC20Contract, common.HexToAddress("0x01"))
	require.NoError(t, err)

	backend.FailCalls(errors.New("429 Too Many Requests"))
	_, err = Read[uint8](context.Background(), token, "decimals")
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrLedgerUnavailable))
	assert.True(t, IsLedgerUnavailable(err))
	assert.True(t, IsRateLimited(err))

	_, err = token.Transact(nil, "decimals")
	require.Error(t, err)
}

func TestLoginMessageUsesLowercaseFactory(t *testing.T) {
	msg := LoginMessage(common.HexToAddress("0x00000000000000000000000000000000000000FA"))
	assert.True(t, strings.HasSuffix(msg, "Contract address: 0x00000000000000000000000000000000000000fa."))
	assert.True(t, strings.HasPrefix(msg, "Welcome to clr.fund!"))
}
