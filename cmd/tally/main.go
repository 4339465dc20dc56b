package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/blues/qfround/internal/chain"
	"github.com/blues/qfround/internal/config"
	"github.com/blues/qfround/internal/docstore"
	"github.com/blues/qfround/internal/fanout"
	"github.com/blues/qfround/internal/logger"
	"github.com/blues/qfround/internal/model"
	"github.com/blues/qfround/internal/round"
	"github.com/blues/qfround/internal/scanner"
	"github.com/blues/qfround/internal/tally"
	"github.com/ethereum/go-ethereum/common"
	"github.com/jessevdk/go-flags"
	"go.uber.org/zap"
)

var opts struct {
	ConfigDir   string `long:"config" env:"QFROUND_CONFIG_DIR" description:"directory containing config.yaml" default:"."`
	Round       string `long:"round" env:"QFROUND_ROUND" description:"round address, defaults to the factory's current round"`
	Output      string `long:"output" env:"QFROUND_TALLY_OUTPUT" description:"tally file path, overrides tally.output_file"`
	MaxAttempts int    `long:"max-attempts" description:"overrides tally.max_attempts"`
}

func main() {
	if _, err := flags.Parse(&opts); err != nil {
		if flags.WroteHelp(err) {
			os.Exit(0)
		}
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hash, err := run(ctx)
	if err != nil {
		logger.Error("Tally failed: %v", err)
		logger.Sync()
		os.Exit(1)
	}
	fmt.Printf("Tally hash is %s\n", hash)
	logger.Sync()
}

func run(ctx context.Context) (string, error) {
	cfg, err := config.Load(opts.ConfigDir)
	if err != nil {
		return "", err
	}
	if err := logger.Setup(cfg.Log.Level, cfg.Log.Output, cfg.Log.File); err != nil {
		return "", err
	}
	if opts.Output != "" {
		cfg.Tally.OutputFile = opts.Output
	}
	if opts.MaxAttempts > 0 {
		cfg.Tally.MaxAttempts = opts.MaxAttempts
	}

	chainManager, err := chain.NewManager(cfg.Chain)
	if err != nil {
		return "", err
	}
	defer chainManager.Close()

	pool, err := fanout.NewPool(cfg.Chain.Workers)
	if err != nil {
		return "", err
	}
	defer pool.Release()

	rounds := round.NewReconstructor(chainManager, scanner.New(chainManager.Backend(), cfg.Chain.BatchSize), pool, cfg.Round)

	var record *model.RoundRecord
	if opts.Round != "" {
		if !common.IsHexAddress(opts.Round) {
			return "", fmt.Errorf("invalid round address %q", opts.Round)
		}
		record, err = rounds.GetRound(ctx, common.HexToAddress(opts.Round))
	} else {
		record, err = rounds.CurrentRound(ctx)
	}
	if err != nil {
		return "", err
	}
	if record.Status != model.RoundStatusTallying {
		return "", fmt.Errorf("round %s is %s, tally requires %s", record.Address.Hex(), record.Status, model.RoundStatusTallying)
	}

	log := logger.With(zap.String("round", record.Address.Hex()), zap.Int("round_index", record.Index))
	log.Info("Tallying round with %s messages", record.Messages)

	runner := tally.NewRunner(tally.ExecEngine{Binary: cfg.Tally.Binary}, cfg.Tally, cfg.Chain.RpcUrl)
	result, err := runner.Run(ctx, tally.Request{Round: record.Address, MACI: record.MACI})
	if err != nil {
		return "", err
	}
	log.Info("Tally artifact %s produced after %d attempts", result.Path, result.Attempts)

	publisher := tally.NewPublisher(docstore.NewClient(cfg.Docstore), chainManager)
	return publisher.Publish(ctx, record.Address, result)
}
