package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	temporalclient "go.temporal.io/sdk/client"

	"github.com/kubidu/kubidu/internal/api"
	"github.com/kubidu/kubidu/internal/config"
	"github.com/kubidu/kubidu/internal/core"
	"github.com/kubidu/kubidu/internal/crypto"
	"github.com/kubidu/kubidu/internal/db"
	"github.com/kubidu/kubidu/internal/github"
	"github.com/kubidu/kubidu/internal/logging"
	"github.com/kubidu/kubidu/internal/metrics"
	"github.com/kubidu/kubidu/internal/model"
	"github.com/kubidu/kubidu/internal/platform"
	"github.com/kubidu/kubidu/internal/queue"
	"github.com/kubidu/kubidu/internal/store"
)

func main() {
	if len(os.Args) >= 2 && os.Args[1] == "create-token" {
		createToken(os.Args[2:])
		return
	}

	migrateFlag := flag.Bool("migrate", false, "Run database migrations before starting")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate("core-api"); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewLogger(cfg)

	if *migrateFlag {
		logger.Info().Msg("running database migrations")
		if err := db.RunMigrations(cfg.CoreDatabaseURL); err != nil {
			logger.Fatal().Err(err).Msg("migration failed")
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	corePool, err := db.NewCorePool(ctx, cfg.CoreDatabaseURL, db.PoolOptions{
		ApplicationName: "kubidu-core-api",
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

	keyring, err := crypto.NewKeyring(cfg.EncryptionSecret)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to derive encryption key")
	}

	source, closeSource := newSourceProvider(ctx, cfg, logger)
	defer closeSource()

	services := core.NewServices(core.Deps{
		Services:      store.NewServiceStore(corePool),
		Deployments:   store.NewDeploymentStore(corePool),
		BuildQueue:    store.NewBuildQueueStore(corePool),
		EnvVars:       store.NewEnvVarStore(corePool),
		References:    store.NewEnvVarReferenceStore(corePool),
		Workspaces:    store.NewWorkspaceStore(corePool),
		Installations: store.NewInstallationStore(corePool),
		Source:        source,
		Queue:         queue.NewTemporalQueue(tc, cfg.TaskQueue),
		Cipher:        keyring,
		PublicDomain:  cfg.PublicDomain,
	})

	srv := api.NewServer(logger, api.Options{
		Services:      services,
		Tokens:        store.NewAPITokenStore(corePool),
		ExecutorToken: cfg.ExecutorToken,
		Checks: []metrics.Check{
			{Name: "core_db", Fn: corePool.Ping},
			{Name: "temporal", Fn: func(ctx context.Context) error {
				_, err := tc.CheckHealth(ctx, &temporalclient.CheckHealthRequest{})
				return err
			}},
		},
	})

	httpServer := &http.Server{
		Addr:         cfg.HTTPListenAddr,
		Handler:      srv,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", cfg.HTTPListenAddr).Msg("starting core API server")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	httpServer.Shutdown(shutdownCtx)
}

// newSourceProvider builds the GitHub client when a GitHub App is configured.
// It returns a nil interface otherwise, so the core sees no provider rather
// than a typed nil.
func newSourceProvider(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (core.SourceProvider, func()) {
	if !cfg.GitHubEnabled() {
		logger.Warn().Msg("GitHub App not configured; repository services cannot auto-deploy")
		return nil, func() {}
	}

	key, err := github.LoadPrivateKey(cfg.GitHubPrivateKeyPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load github private key")
	}

	ghCfg := github.Config{AppID: cfg.GitHubAppID, PrivateKey: key, BaseURL: cfg.GitHubAPIURL}
	closeCache := func() {}
	if cfg.RedisURL != "" {
		cache, err := github.NewRedisTokenCache(ctx, cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to redis")
		}
		ghCfg.Cache = cache
		closeCache = func() { cache.Close() }
	}

	client, err := github.New(ghCfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create github client")
	}
	return client, closeCache
}

func createToken(args []string) {
	fs := flag.NewFlagSet("create-token", flag.ExitOnError)
	userID := fs.String("user", "", "User the token authenticates as (required)")
	name := fs.String("name", "", "Token name")
	ttl := fs.Duration("ttl", 0, "Token lifetime; 0 never expires")
	fs.Parse(args)

	if *userID == "" {
		fmt.Fprintln(os.Stderr, "error: --user is required")
		fmt.Fprintln(os.Stderr, "usage: core-api create-token --user <id> [--name <name>] [--ttl 720h]")
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to load config: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.NewCorePool(ctx, cfg.CoreDatabaseURL, db.PoolOptions{ApplicationName: "kubidu-create-token", MaxConns: 1})
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	raw := make([]byte, 24)
	if _, err := rand.Read(raw); err != nil {
		fmt.Fprintf(os.Stderr, "error: generate token: %v\n", err)
		os.Exit(1)
	}
	secret := "kbd_" + hex.EncodeToString(raw)

	tok := &model.APIToken{
		ID:        platform.NewID(),
		UserID:    *userID,
		Name:      *name,
		TokenHash: crypto.GenericHash(secret),
	}
	if *ttl > 0 {
		exp := time.Now().Add(*ttl)
		tok.ExpiresAt = &exp
	}

	if err := store.NewAPITokenStore(pool).Create(ctx, tok); err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to create token: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("API token created.\n\n")
	fmt.Printf("  ID:     %s\n", tok.ID)
	fmt.Printf("  User:   %s\n", tok.UserID)
	fmt.Printf("  Token:  %s\n\n", secret)
	fmt.Printf("Save this token, it will not be shown again.\n")
}
