package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"missionpipeline/bus"
	"missionpipeline/compressor"
	"missionpipeline/config"
	"missionpipeline/mission"
	"missionpipeline/outbox"
	"missionpipeline/redisx"
	"missionpipeline/retry"
	"missionpipeline/reward"
	"missionpipeline/router"
	"missionpipeline/store"
)

// serviceName matches the teacher main.go's env-overridable service label,
// trimmed to this pipeline's own default.
var serviceName = getenv("SERVICE_NAME", "missionworker")

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// main wires the Event Store, Idempotency Keeper, Bus Adapter, Outbox, and
// Event Router into one process and runs the four consumer-group loops
// (spec §4.9) until SIGINT/SIGTERM, following the teacher's
// signal.NotifyContext + deferred-cancel shutdown shape. There is no
// gRPC/HTTP surface here: request handling is out of scope per spec §1.
func main() {
	logrus.Infof("starting %s...", serviceName)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var cfg config.AppConfig
	if os.Getenv("APP_ENV") != "" {
		config.Read(&cfg)
	} else {
		cfg = config.Default()
	}

	db, err := store.Open(store.Config{
		DBName:          cfg.DB.Name,
		User:            cfg.DB.User,
		Password:        cfg.DB.Password,
		Addr:            cfg.DB.Addr,
		MaxOpenConns:    cfg.DB.MaxOpenConns,
		MaxIdleConns:    cfg.DB.MaxIdleConns,
		ConnMaxLifetime: cfg.DB.ConnMaxLifetime,
	})
	if err != nil {
		logrus.Fatalf("missionworker: connect to mysql: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logrus.Errorf("missionworker: close mysql: %v", err)
		}
	}()
	logrus.Info("missionworker: database connected")

	redisClient, err := redisx.NewClient(ctx, redisx.Config{
		Addr:         cfg.Redis.Addr,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		DialTimeout:  cfg.Redis.DialTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
		PoolSize:     cfg.Redis.PoolSize,
		PoolTimeout:  cfg.Redis.PoolTimeout,
	})
	if err != nil {
		logrus.Fatalf("missionworker: connect to redis: %v", err)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logrus.Errorf("missionworker: close redis: %v", err)
		}
	}()
	logrus.Info("missionworker: idempotency keeper connected")

	messageBus := newBus(cfg)
	if closer, ok := messageBus.(interface{ Close() error }); ok {
		defer func() {
			if err := closer.Close(); err != nil {
				logrus.Errorf("missionworker: close bus: %v", err)
			}
		}()
	}

	outboxStore := outbox.NewStore(db, cfg.Outbox.Codec, codecFor(cfg.Outbox.Codec))
	sweeper := outbox.NewSweeper(db, messageBus, outboxStore)
	sweeper.Interval = cfg.Outbox.SweepInterval
	sweeper.BatchSize = cfg.Outbox.BatchSize
	go sweeper.Run(ctx)
	logrus.Infof("missionworker: outbox sweeper started (interval=%s)", cfg.Outbox.SweepInterval)

	r := &router.Router{
		Dedup:      redisClient,
		Init:       mission.NewInitializer(db, redisClient),
		Evaluator:  mission.NewEvaluator(db),
		Completion: mission.NewCompletionEngine(db),
		Reward:     reward.NewDistributor(db),
		Bus:        messageBus,
		Outbox:     outboxStore,
		PublishRetry: retry.Policy{
			InitialInterval:     200 * time.Millisecond,
			RandomizationFactor: 0.2,
			Multiplier:          2,
			MaxTries:            2,
		},
	}

	hostname, _ := os.Hostname()
	srv := &router.Server{
		Bus:          messageBus,
		Router:       r,
		ConsumerName: hostname + "-" + serviceName,
	}

	logrus.Infof("%s started", serviceName)
	if err := srv.Run(ctx); err != nil && ctx.Err() == nil {
		logrus.Errorf("missionworker: server exited: %v", err)
	}
	logrus.Info("missionworker: shutdown complete")
}

func newBus(cfg config.AppConfig) bus.Bus {
	if cfg.Bus.Backend == "redis" {
		return bus.NewRedisStreamBus(bus.RedisConfig{
			Addr:               cfg.Redis.Addr,
			Password:           cfg.Redis.Password,
			PoolMaxIdle:        5,
			PoolMaxActive:      20,
			PoolIdleTimeout:    240 * time.Second,
			DialMaxElapsedTime: cfg.Bus.DialMaxElapsed,
			BlockTimeout:       cfg.Bus.BlockTimeout,
			MaxClaimBatch:      cfg.Bus.MaxClaimBatch,
			ClaimMinIdleTime:   cfg.Bus.VisibilityTimeout,
		})
	}
	return bus.NewMemoryBus()
}

func codecFor(name string) compressor.Compresser {
	switch name {
	case "zstd":
		return &compressor.ZstdCompressor{}
	case "lz4":
		return compressor.Lz4Compressor{}
	default:
		return compressor.NoneCompressor{}
	}
}
