package chain

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/blues/qfround/internal/config"
	"github.com/blues/qfround/internal/logger"
	"github.com/blues/qfround/internal/metrics"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
)

var supportedChainTypes = []string{"ethereum", "xdai", "polygon", "arbitrum", "optimism"}

// Manager 单链管理器，进程内构建一次后注入各对账组件
type Manager struct {
	mu      sync.RWMutex
	client  *ethclient.Client // 真实RPC连接，测试中为空
	backend Backend           // 带限流和指标的只读接口
	abis    map[string]abi.ABI
	config  config.ChainConfig
}

// NewManager 连接RPC并加载合约ABI
func NewManager(cfg config.ChainConfig) (*Manager, error) {
	client, err := createChainClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize client: %w", err)
	}

	m, err := NewManagerWithBackend(cfg, client)
	if err != nil {
		client.Close()
		return nil, err
	}
	m.client = client
	return m, nil
}

// NewManagerWithBackend 使用给定的 Backend 创建管理器
func NewManagerWithBackend(cfg config.ChainConfig, backend Backend) (*Manager, error) {
	m := &Manager{
		backend: NewObservedBackend(backend, cfg.RPS, metrics.NewLedger(cfg.ChainType)),
		abis:    make(map[string]abi.ABI),
		config:  cfg,
	}

	if err := m.initABIs(cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize contracts: %w", err)
	}

	return m, nil
}

// initABIs 加载内置ABI，配置了 abi_path 的合约使用文件覆盖
func (m *Manager) initABIs(cfg config.ChainConfig) error {
	for name := range builtinABIs {
		parsed, err := BuiltinABI(name)
		if err != nil {
			return err
		}
		m.abis[name] = parsed
	}

	for name, contractCfg := range cfg.Contracts {
		if contractCfg.ABIPath == "" {
			continue
		}
		parsed, err := LoadABI(contractCfg.ABIPath)
		if err != nil {
			return fmt.Errorf("failed to load ABI for contract %s: %w", name, err)
		}
		m.abis[name] = parsed
		logger.Info("Loaded ABI override for contract %s from %s", name, contractCfg.ABIPath)
	}

	return nil
}

// createChainClient 创建链客户端并测试连接
func createChainClient(cfg config.ChainConfig) (*ethclient.Client, error) {
	if cfg.RpcUrl == "" {
		return nil, fmt.Errorf("no RPC URL configured")
	}

	isSupported := false
	for _, supportedType := range supportedChainTypes {
		if cfg.ChainType == supportedType {
			isSupported = true
			break
		}
	}
	if !isSupported {
		return nil, fmt.Errorf("unsupported chain type %s, supported types: %s", cfg.ChainType, strings.Join(supportedChainTypes, ", "))
	}

	logger.Info("Creating %s client connection (RPC: %s)", cfg.ChainType, cfg.RpcUrl)
	client, err := ethclient.Dial(cfg.RpcUrl)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s client: %w", cfg.ChainType, err)
	}

	// 尝试获取最新区块号
	if _, err := client.BlockNumber(context.TODO()); err != nil {
		client.Close()
		return nil, fmt.Errorf("client connection test failed (%s): %w", cfg.ChainType, err)
	}

	logger.Info("Successfully created %s client", cfg.ChainType)
	return client, nil
}

// Backend 获取只读接口
func (m *Manager) Backend() Backend {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.backend
}

// Bind 按合约名称绑定地址，得到只读合约
func (m *Manager) Bind(name string, address common.Address) (*Contract, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	parsed, ok := m.abis[name]
	if !ok {
		return nil, fmt.Errorf("contract %s not found", name)
	}
	return NewContract(m.backend, nil, name, parsed, address), nil
}

// BindWritable 绑定可发送交易的合约，需要真实RPC连接
func (m *Manager) BindWritable(name string, address common.Address) (*Contract, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.client == nil {
		return nil, fmt.Errorf("no RPC client available for transactions")
	}
	parsed, ok := m.abis[name]
	if !ok {
		return nil, fmt.Errorf("contract %s not found", name)
	}
	return NewContract(m.backend, m.client, name, parsed, address), nil
}

// Factory 获取工厂合约及其部署区块号
func (m *Manager) Factory() (*Contract, uint64, error) {
	factoryCfg, err := m.config.Factory()
	if err != nil {
		return nil, 0, err
	}
	if !common.IsHexAddress(factoryCfg.Address) {
		return nil, 0, fmt.Errorf("invalid factory address %q", factoryCfg.Address)
	}
	contract, err := m.Bind(FactoryContract, common.HexToAddress(factoryCfg.Address))
	if err != nil {
		return nil, 0, err
	}
	return contract, factoryCfg.BlockNum, nil
}

// Transactor 使用配置的私钥创建交易授权
func (m *Manager) Transactor() (*bind.TransactOpts, error) {
	key, err := m.privateKey()
	if err != nil {
		return nil, err
	}
	auth, err := bind.NewKeyedTransactorWithChainID(key, big.NewInt(m.config.ChainId))
	if err != nil {
		return nil, fmt.Errorf("failed to create transactor: %w", err)
	}
	return auth, nil
}

// CanTransact 是否配置了私钥和RPC连接
func (m *Manager) CanTransact() bool {
	return m.config.PrivateKey != "" && m.client != nil
}

func (m *Manager) privateKey() (*ecdsa.PrivateKey, error) {
	if m.config.PrivateKey == "" {
		return nil, fmt.Errorf("no private key configured")
	}
	key, err := crypto.HexToECDSA(strings.TrimPrefix(m.config.PrivateKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}
	return key, nil
}

// GetHealthStatus 获取健康状态
func (m *Manager) GetHealthStatus(ctx context.Context) map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	health := map[string]interface{}{
		"chain_type":    m.config.ChainType,
		"chain_id":      m.config.ChainId,
		"client_status": "connected",
	}

	block, err := m.backend.BlockNumber(ctx)
	if err != nil {
		health["client_status"] = "disconnected"
	} else {
		health["block_number"] = block
	}

	return health
}

// Close 关闭管理器
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.client != nil {
		m.client.Close()
	}

	logger.Info("Chain manager closed")
	return nil
}
