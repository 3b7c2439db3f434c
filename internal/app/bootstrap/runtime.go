package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	cacheadapter "github.com/whiskerauth/whisker-auth/internal/adapters/cache"
	eventadapter "github.com/whiskerauth/whisker-auth/internal/adapters/events"
	httpadapter "github.com/whiskerauth/whisker-auth/internal/adapters/http"
	"github.com/whiskerauth/whisker-auth/internal/adapters/postgres"
	"github.com/whiskerauth/whisker-auth/internal/adapters/security"
	"github.com/whiskerauth/whisker-auth/internal/application"
	"github.com/whiskerauth/whisker-auth/internal/worker"
)

type Runtime struct {
	cfg        Config
	logger     *slog.Logger
	httpServer *http.Server
	grpcServer *grpc.Server
	recorder   *eventadapter.Recorder
	sweeper    *worker.Sweeper
	cleanupFn  func(context.Context)
}

func NewRuntime(ctx context.Context, configPath string) (*Runtime, error) {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)
	logger.Info("bootstrapping whisker auth service", "http_port", cfg.HTTPPort, "grpc_port", cfg.GRPCPort)

	pool, err := postgres.Connect(ctx, cfg.DatabaseURL, cfg.MaxDBConns)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	sqlDB, err := pool.DB()
	if err != nil {
		return nil, fmt.Errorf("gorm sql db: %w", err)
	}

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	redisClient, err := cacheadapter.Connect(ctx, cfg.RedisURL)
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	if err := redisClient.Ping(ctx).Err(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}

	repos := postgres.NewRepositories(pool)
	keygen := security.NewHexKeyGenerator()

	jwtSecret := cfg.JWTSecret
	if jwtSecret == "" {
		logger.Warn("using ephemeral JWT secret for local/dev runtime")
		jwtSecret, err = keygen.Secret(32)
		if err != nil {
			_ = sqlDB.Close()
			_ = redisClient.Close()
			return nil, fmt.Errorf("generate ephemeral jwt secret: %w", err)
		}
	}
	tokenSigner, err := security.NewJWTSigner(jwtSecret)
	if err != nil {
		_ = sqlDB.Close()
		_ = redisClient.Close()
		return nil, fmt.Errorf("init jwt signer: %w", err)
	}

	recorder := eventadapter.NewRecorder(logger, repos.Events, eventadapter.NewLoggingPublisher(logger), cfg.EventBufferSize)

	svc := application.NewService(application.Dependencies{
		Config: application.Config{
			FailedLoginThreshold:     cfg.FailedThreshold,
			LockoutDuration:          cfg.LockoutDuration,
			SessionTTL:               cfg.SessionTTL,
			EnforceDeviceExclusivity: cfg.EnforceDeviceExclusivity,
			AllowMultipleLicenses:    cfg.AllowMultipleLicenses,
		},
		Logger:       logger,
		Users:        repos.Users,
		Licenses:     repos.Licenses,
		Applications: repos.Applications,
		Sessions:     repos.Sessions,
		Revocations:  cacheadapter.NewRedisSessionRevocationStore(redisClient),
		Events:       recorder,
		AuditLog:     repos.Events,
		Hasher:       security.NewPBKDF2Hasher(),
		KeyGen:       keygen,
		TokenSigner:  tokenSigner,
	})

	handler := httpadapter.NewHandler(svc, cfg.AdminToken)
	router := httpadapter.NewRouter(handler)
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	grpcServer := grpc.NewServer()
	healthSrv := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthSrv)
	healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	sweeper := worker.NewSweeper(logger, repos.Sessions, repos.Licenses, cfg.SweepInterval)

	return &Runtime{
		cfg:        cfg,
		logger:     logger,
		httpServer: httpServer,
		grpcServer: grpcServer,
		recorder:   recorder,
		sweeper:    sweeper,
		cleanupFn: func(ctx context.Context) {
			_ = redisClient.Close()
			_ = sqlDB.Close()
		},
	}, nil
}

func (r *Runtime) RunAPI(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	recorderCtx, stopRecorder := context.WithCancel(context.Background())
	recorderDone := make(chan struct{})
	go func() {
		defer close(recorderDone)
		_ = r.recorder.Run(recorderCtx)
	}()

	grpcLis, err := net.Listen("tcp", fmt.Sprintf(":%d", r.cfg.GRPCPort))
	if err != nil {
		stopRecorder()
		<-recorderDone
		return fmt.Errorf("listen gRPC: %w", err)
	}

	errCh := make(chan error, 2)
	go func() {
		r.logger.Info("http server started", "addr", r.httpServer.Addr)
		if err := r.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()
	go func() {
		r.logger.Info("grpc server started", "addr", grpcLis.Addr().String())
		if err := r.grpcServer.Serve(grpcLis); err != nil {
			errCh <- fmt.Errorf("grpc server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		r.logger.Info("shutdown signal received")
	case err := <-errCh:
		r.logger.Error("server failure", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = r.httpServer.Shutdown(shutdownCtx)
	r.grpcServer.GracefulStop()
	// The recorder flushes buffered events on cancellation; the stores must
	// stay open until that flush has finished.
	stopRecorder()
	<-recorderDone
	r.cleanupFn(shutdownCtx)
	return nil
}

func (r *Runtime) RunSweeper(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	r.logger.Info("expiry sweeper started", "interval", r.cfg.SweepInterval.String())
	err := r.sweeper.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	r.cleanupFn(shutdownCtx)
	return nil
}
