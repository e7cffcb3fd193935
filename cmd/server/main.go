// Command filevault-server starts the filevault HTTP API and its gRPC health endpoint.
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/and161185/filevault/internal/blob"
	"github.com/and161185/filevault/internal/config"
	"github.com/and161185/filevault/internal/crypto"
	"github.com/and161185/filevault/internal/logging"
	"github.com/and161185/filevault/internal/migrate"
	"github.com/and161185/filevault/internal/repository/postgres"
	grpcserver "github.com/and161185/filevault/internal/server/grpc"
	httpserver "github.com/and161185/filevault/internal/server/http"
	"github.com/and161185/filevault/internal/service"
	"github.com/and161185/filevault/internal/token"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(2)
	}

	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(2)
	}
	defer func() { _ = logger.Sync() }()
	logger.Info("starting",
		zap.String("version", version),
		zap.String("buildDate", buildDate),
		zap.String("addr", cfg.Server.Addr),
		zap.String("storage", cfg.Storage.Backend),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server error", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}

func newBlobStore(ctx context.Context, cfg config.StorageConfig) (blob.Store, error) {
	if cfg.Backend == config.BackendMinIO {
		return blob.NewMinIO(ctx, blob.MinIOConfig{
			Endpoint:  cfg.MinIO.Endpoint,
			AccessKey: cfg.MinIO.AccessKey,
			SecretKey: cfg.MinIO.SecretKey,
			UseSSL:    cfg.MinIO.UseSSL,
			Bucket:    cfg.MinIO.Bucket,
		})
	}
	return blob.NewLocal(cfg.LocalPath)
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	if err := migrate.Up(ctx, cfg.Database.DSN); err != nil {
		return fmt.Errorf("migrate up: %w", err)
	}
	if v, err := migrate.Version(ctx, cfg.Database.DSN); err != nil {
		logger.Warn("schema version", zap.Error(err))
	} else {
		logger.Info("schema ready", zap.Int64("version", v))
	}

	db, err := postgres.New(ctx, cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("open pool: %w", err)
	}
	defer db.Close()

	blobs, err := newBlobStore(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("blob store: %w", err)
	}

	codec, err := token.NewCodec(token.Config{
		AccessSecret:  []byte(cfg.Auth.AccessSecret),
		AccessTTL:     cfg.Auth.AccessTTL,
		RefreshSecret: []byte(cfg.Auth.RefreshSecret),
		RefreshTTL:    cfg.Auth.RefreshTTL,
	})
	if err != nil {
		return err
	}

	authSvc, err := service.NewAuthService(postgres.NewUserRepo(db), codec, crypto.NewHasher(crypto.DefaultParams))
	if err != nil {
		return err
	}
	fileSvc := service.NewFileService(postgres.NewFileRepo(db), blobs, service.UploadLimits{
		MaxSize:      cfg.Storage.MaxUploadSize,
		AllowedTypes: cfg.Storage.AllowedTypes,
	})

	gin.SetMode(cfg.Server.Mode)
	api := httpserver.New(authSvc, fileSvc, logger, httpserver.Options{
		CORSOrigin:    cfg.Server.CORSOrigin,
		CookieSecure:  cfg.Auth.CookieSecure,
		MaxUploadSize: cfg.Storage.MaxUploadSize,
	})
	srv := &http.Server{
		Addr:           cfg.Server.Addr,
		Handler:        api.Router(),
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		MaxHeaderBytes: 1 << 20,
	}

	errCh := make(chan error, 2)
	go func() {
		logger.Info("http listening", zap.String("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http: %w", err)
		}
	}()

	var health *grpcserver.Server
	if cfg.Server.GRPCAddr != "" {
		lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
		if err != nil {
			return fmt.Errorf("listen grpc: %w", err)
		}
		health = grpcserver.New(db, logger, cfg.Server.HealthInterval)
		if cfg.Server.Mode == gin.DebugMode {
			health.EnableReflection()
		}
		go health.Watch(ctx)
		go func() {
			logger.Info("grpc health listening", zap.String("addr", cfg.Server.GRPCAddr))
			if err := health.Serve(lis); err != nil {
				errCh <- fmt.Errorf("grpc: %w", err)
			}
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if health != nil {
		health.Stop(shutdownCtx)
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	return runErr
}
