package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmehdipour/fax-gateway/internal/config"
	"github.com/jmehdipour/fax-gateway/internal/db"
	"github.com/jmehdipour/fax-gateway/internal/directory"
	httpSrv "github.com/jmehdipour/fax-gateway/internal/http"
	"github.com/jmehdipour/fax-gateway/internal/kafka"
	"github.com/jmehdipour/fax-gateway/internal/logger"
	"github.com/jmehdipour/fax-gateway/internal/queue"
	"github.com/jmehdipour/fax-gateway/internal/repository"
	"github.com/jmehdipour/fax-gateway/internal/storage"
	"github.com/jmehdipour/fax-gateway/internal/store"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run webhook HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		logger.Init(cfg.Log.Level)
		defer logger.Sync()

		if err := os.MkdirAll(cfg.Storage.StagingDir, 0o755); err != nil {
			return fmt.Errorf("create staging dir: %w", err)
		}

		dir, err := directory.Load(cfg.Directory.Path)
		if err != nil {
			return fmt.Errorf("load directory: %w", err)
		}
		logger.Log.Info("address directory loaded", zap.Int("pairings", dir.Len()))

		redisClient, err := db.NewRedisClient(db.RedisOpts{
			Addr:        cfg.Redis.Addr,
			Password:    cfg.Redis.Password,
			DB:          cfg.Redis.DB,
			DialTimeout: cfg.Redis.DialTimeout,
		})
		if err != nil {
			return fmt.Errorf("redis connect: %w", err)
		}
		defer func() { _ = redisClient.Close() }()

		mysqlDB, err := db.NewMySQLConnection(cfg.MySQL.DSN, db.MySQLOpts{
			MaxOpenConns:    cfg.MySQL.MaxOpenConns,
			MaxIdleConns:    cfg.MySQL.MaxIdleConns,
			ConnMaxLifetime: cfg.MySQL.ConnMaxLifetime,
			ConnMaxIdleTime: cfg.MySQL.ConnMaxIdleTime,
			PingTimeout:     cfg.MySQL.PingTimeout,
		})
		if err != nil {
			return fmt.Errorf("mysql connect: %w", err)
		}
		defer mysqlDB.Close()

		objStore, err := storage.NewS3Store(storage.S3Opts{
			Endpoint:  cfg.Storage.Endpoint,
			Region:    cfg.Storage.Region,
			AccessKey: cfg.Storage.AccessKey,
			SecretKey: cfg.Storage.SecretKey,
			Bucket:    cfg.Storage.Bucket,
			UseSSL:    cfg.Storage.UseSSL,
		})
		if err != nil {
			return fmt.Errorf("object store: %w", err)
		}

		events := kafka.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if p, ok := events.(*kafka.Producer); ok {
			defer func() { _ = p.Close() }()
		}

		server := httpSrv.NewServer(cfg, httpSrv.Deps{
			Pipeline:      storage.NewPipeline(objStore, cfg.Storage.StagingDir, cfg.Storage.PresignTTL),
			FaxStore:      store.NewRedisFaxStore(redisClient, cfg.Queue.KeyPrefix),
			Resolver:      dir,
			Queue:         queue.New(redisClient, cfg.Queue.KeyPrefix, cfg.Queue.MaxAttempts, cfg.Queue.RetryDelay),
			Transmissions: repository.NewTransmissionsRepository(mysqlDB),
			Events:        events,
		})

		errCh := make(chan error, 1)
		go func() {
			errCh <- server.Start(cfg.HTTP.Addr)
		}()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-sigCh:
			logger.Log.Info("signal received, shutting down", zap.String("signal", sig.String()))
		case err := <-errCh:
			if err != nil {
				logger.Log.Error("http server exited", zap.Error(err))
			}
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(ctx)

		return nil
	},
}
