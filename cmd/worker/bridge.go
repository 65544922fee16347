package worker

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmehdipour/fax-gateway/internal/bridge"
	"github.com/jmehdipour/fax-gateway/internal/config"
	"github.com/jmehdipour/fax-gateway/internal/db"
	"github.com/jmehdipour/fax-gateway/internal/gateway"
	"github.com/jmehdipour/fax-gateway/internal/kafka"
	"github.com/jmehdipour/fax-gateway/internal/logger"
	"github.com/jmehdipour/fax-gateway/internal/metrics"
	"github.com/jmehdipour/fax-gateway/internal/queue"
	"github.com/jmehdipour/fax-gateway/internal/repository"
	"github.com/jmehdipour/fax-gateway/internal/storage"
	"github.com/jmehdipour/fax-gateway/internal/store"
	"github.com/jmehdipour/fax-gateway/internal/worker"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var bridgeCmd = &cobra.Command{
	Use:   "bridge",
	Short: "Run bridge worker (send-fax | send-email | purge-remote-blob jobs)",
	RunE:  runBridge,
}

func runBridge(cmd *cobra.Command, args []string) error {
	// 1) load config
	cfgPath, _ := cmd.Root().PersistentFlags().GetString("config")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger.Init(cfg.Log.Level)
	defer logger.Sync()

	metrics.MustRegister(prometheus.DefaultRegisterer)

	if err := os.MkdirAll(cfg.Storage.StagingDir, 0o755); err != nil {
		return fmt.Errorf("create staging dir: %w", err)
	}

	// 2) shared clients
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

	// 3) gateways
	carrier := gateway.NewCarrierClient(
		cfg.Carrier.BaseURL,
		cfg.Carrier.APIKey,
		cfg.Carrier.TimeoutMs,
		cfg.Carrier.Breaker.FailThreshold,
		cfg.Carrier.Breaker.OpenForMs,
	)
	email := gateway.NewEmailClient(
		cfg.Email.BaseURL,
		cfg.Email.APIKey,
		cfg.Email.Domain,
		cfg.Email.TimeoutMs,
		cfg.Email.Breaker.FailThreshold,
		cfg.Email.Breaker.OpenForMs,
	)

	// 4) queue + handler
	q := queue.New(redisClient, cfg.Queue.KeyPrefix, cfg.Queue.MaxAttempts, cfg.Queue.RetryDelay)

	handler := bridge.New(
		storage.NewPipeline(objStore, cfg.Storage.StagingDir, cfg.Storage.PresignTTL),
		store.NewRedisFaxStore(redisClient, cfg.Queue.KeyPrefix),
		carrier,
		email,
		repository.NewTransmissionsRepository(mysqlDB),
		events,
		cfg.Carrier.ConnectionID,
	)

	w := worker.NewBridgeWorker(q, handler)
	if cfg.Queue.Workers > 0 {
		w.Workers = cfg.Queue.Workers
	}

	// 5) graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go q.RunPromoter(ctx, time.Second)

	logger.Log.Info(">> bridge worker started",
		zap.Int("workers", w.Workers),
		zap.Int("max_attempts", cfg.Queue.MaxAttempts),
		zap.Duration("retry_delay", cfg.Queue.RetryDelay))

	return w.Run(ctx)
}
