package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Chain    ChainConfig    `mapstructure:"chain"`
	Round    RoundConfig    `mapstructure:"round"`
	Registry RegistryConfig `mapstructure:"registry"`
	Docstore DocstoreConfig `mapstructure:"docstore"`
	Tally    TallyConfig    `mapstructure:"tally"`
	Task     TaskConfig     `mapstructure:"task"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

type DatabaseConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

// ChainConfig 单链配置
type ChainConfig struct {
	ChainType  string                    `mapstructure:"chain_type"`  // 链类型 (ethereum, xdai, arbitrum, etc.)
	ChainId    int64                     `mapstructure:"chain_id"`    // 链ID
	RpcUrl     string                    `mapstructure:"rpc_url"`     // RPC节点URL
	PrivateKey string                    `mapstructure:"private_key"` // 私钥，仅用于发布计票哈希
	RPS        int                       `mapstructure:"rps"`         // 每秒RPC请求上限
	BatchSize  uint64                    `mapstructure:"batch_size"`  // 日志扫描批量区块数，0表示一次扫描
	Workers    int                       `mapstructure:"workers"`     // 并发读取协程池大小
	Contracts  map[string]ContractConfig `mapstructure:"contracts"`   // 该链上的合约配置
}

// ContractConfig 单个合约配置
type ContractConfig struct {
	Address  string `mapstructure:"address"`   // 合约地址
	ABIPath  string `mapstructure:"abi_path"`  // ABI文件路径，为空时使用内置ABI
	Enabled  bool   `mapstructure:"enabled"`   // 是否启用此合约
	BlockNum uint64 `mapstructure:"block_num"` // 合约部署区块号
}

// RoundConfig 轮次推导参数
type RoundConfig struct {
	IndexOffset      int    `mapstructure:"index_offset"`       // 工厂合约之外创建的轮次数量
	BlockTimeSeconds uint64 `mapstructure:"block_time_seconds"` // 平均出块时间，仅用于估算结束区块
}

// RegistryConfig 项目注册表相关地址
type RegistryConfig struct {
	IPFSGateway     string `mapstructure:"ipfs_gateway"`     // 项目图片网关
	EvidenceGateway string `mapstructure:"evidence_gateway"` // 策展列表 meta evidence 网关
	CurateURL       string `mapstructure:"curate_url"`       // 策展列表浏览地址
}

type DocstoreConfig struct {
	PinURL  string `mapstructure:"pin_url"`
	PinJWT  string `mapstructure:"pin_jwt"`
	Timeout int    `mapstructure:"timeout"` // 秒
}

// TallyConfig 外部计票引擎配置
type TallyConfig struct {
	Binary         string `mapstructure:"binary"`
	CoordinatorKey string `mapstructure:"coordinator_key"`
	OutputFile     string `mapstructure:"output_file"`
	MaxAttempts    int    `mapstructure:"max_attempts"`
}

type TaskConfig struct {
	Interval int `mapstructure:"interval"` // 秒
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // 日志级别: debug, info, warn, error, fatal
	Output string `mapstructure:"output"` // 输出目标: stdout, stderr, file
	File   string `mapstructure:"file"`   // 日志文件路径（当output为file时使用）
}

// Factory 获取工厂合约配置
func (c ChainConfig) Factory() (ContractConfig, error) {
	factory, ok := c.Contracts["factory"]
	if !ok || !factory.Enabled || factory.Address == "" {
		return ContractConfig{}, errors.New("factory contract is not configured")
	}
	return factory, nil
}

// Load 加载配置，paths 为额外的配置文件搜索目录
func Load(paths ...string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	for _, p := range paths {
		v.AddConfigPath(p)
	}
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/qfround")

	setDefaults(v)

	// 自动读取环境变量，例如 CHAIN_RPC_URL
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	if cfg.Round.BlockTimeSeconds == 0 {
		return nil, errors.New("round.block_time_seconds must be positive")
	}

	return &cfg, nil
}

// setDefaults 设置默认值
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("database.enabled", false)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "qfround")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("chain.chain_type", "ethereum")
	v.SetDefault("chain.chain_id", 1)
	v.SetDefault("chain.rps", 10)
	v.SetDefault("chain.batch_size", 0)
	v.SetDefault("chain.workers", 16)
	v.SetDefault("round.index_offset", 0)
	v.SetDefault("round.block_time_seconds", 15)
	v.SetDefault("registry.ipfs_gateway", "https://ipfs.io")
	v.SetDefault("registry.evidence_gateway", "https://ipfs.kleros.io")
	v.SetDefault("registry.curate_url", "https://curate.kleros.io")
	v.SetDefault("docstore.pin_url", "https://api.pinata.cloud/pinning/pinJSONToIPFS")
	v.SetDefault("docstore.timeout", 30)
	v.SetDefault("tally.binary", "maci-cli")
	v.SetDefault("tally.output_file", "tally.json")
	v.SetDefault("tally.max_attempts", 5)
	v.SetDefault("task.interval", 300)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.output", "stdout")
	v.SetDefault("log.file", "logs/app.log")
}
