package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/blues/qfround/internal/chain"
	"github.com/blues/qfround/internal/config"
	"github.com/blues/qfround/internal/database"
	"github.com/blues/qfround/internal/docstore"
	"github.com/blues/qfround/internal/fanout"
	"github.com/blues/qfround/internal/handler"
	"github.com/blues/qfround/internal/logger"
	"github.com/blues/qfround/internal/registry"
	"github.com/blues/qfround/internal/repository"
	"github.com/blues/qfround/internal/round"
	"github.com/blues/qfround/internal/router"
	"github.com/blues/qfround/internal/scanner"
	"github.com/blues/qfround/internal/task"
	"github.com/gin-gonic/gin"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config: %v", err)
	}
	if err := logger.Setup(cfg.Log.Level, cfg.Log.Output, cfg.Log.File); err != nil {
		logger.Fatal("Failed to setup logger: %v", err)
	}
	defer logger.Sync()

	// 初始化链管理器
	chainManager, err := chain.NewManager(cfg.Chain)
	if err != nil {
		logger.Fatal("Failed to initialize chain manager: %v", err)
	}
	defer chainManager.Close()

	factory, deployBlock, err := chainManager.Factory()
	if err != nil {
		logger.Fatal("Failed to bind factory contract: %v", err)
	}

	pool, err := fanout.NewPool(cfg.Chain.Workers)
	if err != nil {
		logger.Fatal("Failed to create worker pool: %v", err)
	}
	defer pool.Release()

	eventScanner := scanner.New(chainManager.Backend(), cfg.Chain.BatchSize)
	rounds := round.NewReconstructor(chainManager, eventScanner, pool, cfg.Round)
	projects := registry.NewReconciler(chainManager, eventScanner, pool, docstore.NewClient(cfg.Docstore), cfg.Registry, deployBlock)

	// 快照历史依赖数据库，未启用时跳过
	var snapshots handler.SnapshotLister
	if cfg.Database.Enabled {
		db, err := database.Init(cfg.Database)
		if err != nil {
			logger.Fatal("Failed to initialize database: %v", err)
		}
		repo := repository.NewSnapshotRepository(db)
		snapshots = repo

		interval := time.Duration(cfg.Task.Interval) * time.Second
		tasks, err := task.NewManager(task.NewRoundSnapshotJob(rounds, chainManager.Backend(), repo, interval))
		if err != nil {
			logger.Fatal("Failed to create task manager: %v", err)
		}
		if err := tasks.Start(); err != nil {
			logger.Fatal("Failed to start task manager: %v", err)
		}
		defer tasks.Stop()
	}

	// 设置Gin模式
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// 初始化路由
	r := router.Setup(router.Handlers{
		System:   handler.NewSystemHandler(factory.GetAddress(), chainManager),
		Round:    handler.NewRoundHandler(rounds, snapshots),
		Registry: handler.NewRegistryHandler(projects),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Server starting on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown failed: %v", err)
	}
}
