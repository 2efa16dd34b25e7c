package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	goredis "github.com/redis/go-redis/v9"

	api "github.com/quietpages/quietpages-server/internal/api/http"
	"github.com/quietpages/quietpages-server/internal/api/http/handler"
	"github.com/quietpages/quietpages-server/internal/config"
	"github.com/quietpages/quietpages-server/internal/logger"
	"github.com/quietpages/quietpages-server/internal/mailer"
	"github.com/quietpages/quietpages-server/internal/model"
	"github.com/quietpages/quietpages-server/internal/oauth"
	"github.com/quietpages/quietpages-server/internal/repository/postgres"
	redisrepo "github.com/quietpages/quietpages-server/internal/repository/redis"
	"github.com/quietpages/quietpages-server/internal/service"
	storage "github.com/quietpages/quietpages-server/internal/storage/minio"
	"github.com/quietpages/quietpages-server/internal/token"
)

var (
	buildVersion = "N/A" // set by ldflags
	buildDate    = "N/A" // set by ldflags
	buildCommit  = "N/A" // set by ldflags
)

// backend bundles the stores produced by one persistence binding.
type backend struct {
	entries model.EntryStore
	users   model.UserStore
	tokens  model.RefreshTokenStore
	resets  model.PasswordResetStore
	feed    model.EntryFeed
	pinger  handler.Pinger
	close   func() error
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT, os.Interrupt)
	defer stop()

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}
	logger := logger.New(cfg.LogLevel)

	be, err := newBackend(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialize backend", "backend", cfg.Backend, "error", err)
	}
	defer func() {
		if err := be.close(); err != nil {
			logger.Error("error closing backend", "error", err)
		}
	}()
	logger.Info("backend ready", "backend", cfg.Backend)

	tokenManager := token.NewJWT(cfg.JWT.Secret)
	authService := service.NewAuth(be.users, be.resets, be.tokens, tokenManager, mailer.NewLog(logger), logger)
	entryService := service.NewEntry(be.entries, be.users, be.feed, logger)

	var oauthHandler *handler.OAuth
	if cfg.OAuth.Enabled() {
		provider := oauth.NewGoogle(cfg.OAuth.GoogleClientID, cfg.OAuth.GoogleClientSecret, cfg.OAuth.RedirectURL)
		oauthHandler = handler.NewOAuth(authService, provider, logger)
	}

	var backupService *service.Backup
	if cfg.Storage.Enabled {
		storageClient, err := newStorageClient(ctx, cfg)
		if err != nil {
			logger.Fatal("failed to initialize storage client", "error", err)
		}
		backupService = service.NewBackup(be.entries, storageClient, logger)
	}

	srv := api.NewServer(
		cfg.HTTP,
		handler.NewAuth(authService, logger),
		oauthHandler,
		handler.NewEntry(entryService, backupService, logger),
		handler.NewHealth(be.pinger),
		authService.Tokens(),
		logger,
	)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := srv.Start(); err != nil {
			logger.Error("failed to start server", "error", err)
			stop()
		}
	}()

	logAppVersion()

	<-ctx.Done()
	logger.Info("received interruption signal, shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Stop(shutdownCtx); err != nil {
		logger.Error("error during server shutdown", "error", err)
	}

	wg.Wait()
	logger.Info("shutdown complete")
}

func newBackend(ctx context.Context, cfg *config.Config, l *logger.Logger) (backend, error) {
	switch cfg.Backend {
	case config.BackendPostgres:
		db, err := postgres.NewConnection(ctx, cfg.Database.DSN)
		if err != nil {
			return backend{}, err
		}
		entryRepo := postgres.NewEntryRepository(db)
		return backend{
			entries: entryRepo,
			users:   postgres.NewUserRepository(db),
			tokens:  postgres.NewRefreshTokenRepository(db),
			resets:  postgres.NewPasswordResetRepository(db),
			feed:    postgres.NewEntryFeed(db, entryRepo, l),
			pinger:  db,
			close:   db.Close,
		}, nil

	case config.BackendRedis:
		client, err := redisrepo.NewClient(ctx, redisrepo.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return backend{}, err
		}
		return backend{
			entries: redisrepo.NewEntryRepository(client, l),
			users:   redisrepo.NewUserRepository(client),
			tokens:  redisrepo.NewRefreshTokenRepository(client),
			resets:  redisrepo.NewPasswordResetRepository(client),
			feed:    redisrepo.NewEntryFeed(client, l),
			pinger:  redisPinger{client: client},
			close:   client.Close,
		}, nil

	default:
		return backend{}, fmt.Errorf("unknown backend: %s", cfg.Backend)
	}
}

func newStorageClient(ctx context.Context, cfg *config.Config) (*storage.Client, error) {
	minioClient, err := minio.New(cfg.Storage.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.Storage.AccessKey, cfg.Storage.SecretKey, ""),
		Secure: cfg.Storage.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}
	return storage.NewClient(ctx, minioClient, cfg.Storage.Bucket)
}

type redisPinger struct {
	client *goredis.Client
}

func (p redisPinger) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

func logAppVersion() {
	tmpl := `
Build version: %s
Build date: %s
Build commit: %s
`

	fmt.Printf(tmpl, buildVersion, buildDate, buildCommit)
}
