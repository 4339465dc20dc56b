package tally

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/blues/qfround/internal/config"
	"github.com/blues/qfround/internal/logger"
	"github.com/blues/qfround/internal/model"
	"github.com/cenkalti/backoff/v4"
	"github.com/ethereum/go-ethereum/common"
)

// Engine 外部计票引擎
type Engine interface {
	Run(ctx context.Context, args []string) error
}

// ExecEngine 以子进程方式运行计票命令行
type ExecEngine struct {
	Binary string
}

func (e ExecEngine) Run(ctx context.Context, args []string) error {
	var output bytes.Buffer
	cmd := exec.CommandContext(ctx, e.Binary, args...)
	cmd.Stdout = &output
	cmd.Stderr = &output
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s exited: %w: %s", e.Binary, err, lastLine(output.String()))
	}
	return nil
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return lines[len(lines)-1]
}

// Request 一次计票需要的轮次信息
type Request struct {
	Round common.Address
	MACI  common.Address
}

// Result 计票产出的结果文件
type Result struct {
	Path     string
	Artifact map[string]interface{}
	Attempts int
}

// Runner 重复运行计票引擎直到产出结果文件
type Runner struct {
	engine     Engine
	cfg        config.TallyConfig
	rpcURL     string
	newLeaf    func() (string, error)
	newBackOff func() backoff.BackOff
}

// NewRunner 创建计票执行器
func NewRunner(engine Engine, cfg config.TallyConfig, rpcURL string) *Runner {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	return &Runner{
		engine:  engine,
		cfg:     cfg,
		rpcURL:  rpcURL,
		newLeaf: RandomLeaf,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 5 * time.Second
			b.MaxInterval = time.Minute
			b.MaxElapsedTime = 0
			return b
		},
	}
}

// RandomLeaf 生成随机的零叶子值，32字节十六进制
func RandomLeaf() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate random leaf: %w", err)
	}
	return "0x" + hex.EncodeToString(buf), nil
}

// Run 运行计票引擎，失败时按指数退避重试，每次使用新的零叶子值
func (r *Runner) Run(ctx context.Context, req Request) (*Result, error) {
	if r.cfg.CoordinatorKey == "" {
		return nil, fmt.Errorf("%w: tally.coordinator_key is not configured", model.ErrTallyEngine)
	}
	output := r.cfg.OutputFile

	attempts := 0
	var result *Result
	operation := func() error {
		attempts++
		leaf, err := r.newLeaf()
		if err != nil {
			return backoff.Permanent(err)
		}

		if err := os.Remove(output); err != nil && !errors.Is(err, os.ErrNotExist) {
			return backoff.Permanent(fmt.Errorf("failed to remove stale tally file: %w", err))
		}

		logger.Info("Running tally for round %s (attempt %d/%d)", req.Round.Hex(), attempts, r.cfg.MaxAttempts)
		if err := r.engine.Run(ctx, r.args(req, leaf)); err != nil {
			logger.Warn("Tally attempt %d failed: %v", attempts, err)
			return err
		}

		artifact, err := readArtifact(output)
		if err != nil {
			logger.Warn("Tally attempt %d produced no artifact: %v", attempts, err)
			return err
		}
		result = &Result{Path: output, Artifact: artifact}
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(r.newBackOff(), uint64(r.cfg.MaxAttempts-1)), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return nil, fmt.Errorf("%w: round %s after %d attempts: %v", model.ErrTallyEngine, req.Round.Hex(), attempts, err)
	}

	result.Attempts = attempts
	logger.Info("Tally for round %s written to %s", req.Round.Hex(), output)
	return result, nil
}

func (r *Runner) args(req Request, leaf string) []string {
	return []string{
		"genProofs",
		"--eth-provider", r.rpcURL,
		"--contract", req.MACI.Hex(),
		"--privkey", r.cfg.CoordinatorKey,
		"--tally-file", r.cfg.OutputFile,
		"--leaf-zero", leaf,
	}
}

// readArtifact 读取计票结果，文件不存在或为空都视为失败
func readArtifact(path string) (map[string]interface{}, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read tally file %s: %w", path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errors.New("tally file is empty")
	}
	var artifact map[string]interface{}
	if err := json.Unmarshal(data, &artifact); err != nil {
		return nil, fmt.Errorf("failed to decode tally file %s: %w", path, err)
	}
	if len(artifact) == 0 {
		return nil, errors.New("tally file has no content")
	}
	return artifact, nil
}
