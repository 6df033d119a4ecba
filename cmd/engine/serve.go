package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"flowforge/engine/api/rest"
	"flowforge/engine/internal/config"
	"flowforge/engine/internal/credential"
	"flowforge/engine/internal/engine"
	"flowforge/engine/internal/module"
	"flowforge/engine/internal/queue"
	"flowforge/engine/internal/registry"
	"flowforge/engine/internal/resilience"
	"flowforge/engine/internal/resolver"
	"flowforge/engine/internal/scheduler"
	"flowforge/engine/internal/store"
	"flowforge/engine/pkg/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the engine: API server, queue workers and scheduler",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromFile(cfgFile)
	if err != nil {
		return err
	}
	if debug {
		cfg.Logging.Level = "debug"
	}
	logger.Init(&cfg.Logging)
	defer logger.Sync()
	log := logger.L()

	// Stores: relational when a database is configured, in-memory for
	// development otherwise.
	var (
		workflows store.WorkflowStore
		runs      store.RunStore
		creds     engine.CredentialSource
	)
	if cfg.Database.Host != "" {
		db, err := store.Open(&cfg.Database)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		if err := store.AutoMigrate(db); err != nil {
			return fmt.Errorf("failed to migrate schema: %w", err)
		}
		workflows = store.NewGormWorkflowStore(db)
		runs = store.NewGormRunStore(db)

		if cfg.Security.EncryptionKey != "" {
			cipher, err := credential.NewCipher([]byte(cfg.Security.EncryptionKey))
			if err != nil {
				return err
			}
			creds = credential.NewCache(credential.NewGormStore(db), cipher, logger.Named("credential"))
		}
	} else {
		log.Warn("no database configured, using in-memory stores")
		workflows = store.NewMemoryWorkflowStore()
		runs = store.NewMemoryRunStore()
	}

	guards := resilience.NewManager(cfg.Resilience, logger.Named("resilience"))

	reg := registry.New(logger.Named("registry"))
	reg.Build(module.Builtin(guards, nil)...)
	log.Info("module registry ready", zap.Int("functions", reg.Count()))

	res := resolver.New(resolver.WithCredentialAliases(credential.Aliases()))
	eng := engine.New(reg, res, creds, runs, logger.Named("engine"))
	svc := engine.NewService(workflows, eng)

	ctx := context.Background()

	// Durable queue when Redis is configured; direct execution otherwise.
	var q queue.Queue
	if cfg.Redis.Enabled() {
		client := redis.NewClient(&redis.Options{
			Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		defer client.Close()

		var opts []queue.RedisQueueOption
		if cfg.Queue.Key != "" {
			opts = append(opts, queue.WithKey(cfg.Queue.Key))
		}
		q = queue.NewRedisQueue(client, svc, cfg.Queue.Workers, logger.Named("queue"), opts...)
	} else {
		log.Warn("no redis configured, runs execute directly without durability")
		q = queue.NewDirectQueue(svc, cfg.Queue.Workers, logger.Named("queue"))
	}
	if err := q.Start(ctx); err != nil {
		return err
	}
	defer q.Close()

	var sched *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		sched = scheduler.New(workflows, q, logger.Named("scheduler"),
			scheduler.WithTickInterval(cfg.Scheduler.TickInterval))
		if err := sched.Init(ctx); err != nil {
			return fmt.Errorf("failed to initialise scheduler: %w", err)
		}
		sched.Start(ctx)
		defer sched.Close()
	}

	srv := rest.NewServer(rest.Deps{
		Workflows: workflows,
		Runs:      runs,
		Queue:     q,
		Registry:  reg,
		Guards:    guards,
		Scheduler: sched,
	}, &rest.Config{
		Address:      cfg.Server.Address,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		EnableCORS:   cfg.Server.EnableCORS,
	}, logger.Named("http"))

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Listen() }()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stop:
		log.Info("shutting down", zap.String("signal", sig.String()))
		return srv.Shutdown()
	case err := <-errCh:
		return err
	}
}
