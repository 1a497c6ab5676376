package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	temporalclient "go.temporal.io/sdk/client"
	"go.temporal.io/sdk/interceptor"
	"go.temporal.io/sdk/worker"

	"github.com/kubidu/kubidu/internal/activity"
	"github.com/kubidu/kubidu/internal/config"
	"github.com/kubidu/kubidu/internal/db"
	"github.com/kubidu/kubidu/internal/logging"
	"github.com/kubidu/kubidu/internal/metrics"
	"github.com/kubidu/kubidu/internal/store"
	"github.com/kubidu/kubidu/internal/workflow"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate("worker"); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewLogger(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	corePool, err := db.NewCorePool(ctx, cfg.CoreDatabaseURL, db.PoolOptions{
		ApplicationName: "kubidu-worker",
		MaxConns:        cfg.CoreDatabaseMaxConns,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to core database")
	}
	defer corePool.Close()

	if err := metrics.RegisterPgxPoolMetrics(prometheus.DefaultRegisterer, corePool); err != nil {
		logger.Fatal().Err(err).Msg("failed to register pool metrics")
	}

	tlsConfig, err := cfg.TemporalTLS()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure temporal TLS")
	}
	dialOpts := temporalclient.Options{HostPort: cfg.TemporalAddress, Namespace: cfg.TemporalNamespace}
	if tlsConfig != nil {
		dialOpts.ConnectionOptions = temporalclient.ConnectionOptions{TLS: tlsConfig}
		logger.Info().Msg("temporal mTLS enabled")
	}
	tc, err := temporalclient.Dial(dialOpts)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to temporal")
	}
	defer tc.Close()

	w := worker.New(tc, cfg.TaskQueue, worker.Options{
		Interceptors: []interceptor.WorkerInterceptor{&workflow.ErrorTypingInterceptor{}},
	})

	w.RegisterActivity(activity.NewCoreDB(store.NewBuildQueueStore(corePool), store.NewDeploymentStore(corePool)))
	w.RegisterActivity(activity.NewExecutor(cfg.ExecutorURL, cfg.ExecutorToken))
	w.RegisterActivity(activity.NewWebhook(cfg.NotifyWebhookURL, cfg.NotifyWebhookTemplate))
	if cfg.NotifyWebhookURL == "" {
		logger.Warn().Msg("NOTIFY_WEBHOOK_URL not set; workspace notifications are dropped")
	}

	w.RegisterWorkflow(workflow.BuildServiceWorkflow)
	w.RegisterWorkflow(workflow.DeployServiceWorkflow)
	w.RegisterWorkflow(workflow.NotifyWorkspaceWorkflow)

	if cfg.MetricsListenAddr != "" {
		metricsSrv := metrics.NewServer(cfg.MetricsListenAddr,
			metrics.Check{Name: "core_db", Fn: corePool.Ping},
			metrics.Check{Name: "temporal", Fn: func(ctx context.Context) error {
				_, err := tc.CheckHealth(ctx, &temporalclient.CheckHealthRequest{})
				return err
			}},
		)
		go func() {
			logger.Info().Str("addr", cfg.MetricsListenAddr).Msg("starting metrics server")
			if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error().Err(err).Msg("metrics server failed")
			}
		}()
	}

	go func() {
		logger.Info().Str("taskQueue", cfg.TaskQueue).Msg("starting temporal worker")
		if err := w.Run(worker.InterruptCh()); err != nil {
			logger.Fatal().Err(err).Msg("worker failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down worker")
	cancel()
}
