package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/vbonduro/sitegallery/internal/auth"
	"github.com/vbonduro/sitegallery/internal/blobstore"
	"github.com/vbonduro/sitegallery/internal/blobstore/local"
	memblob "github.com/vbonduro/sitegallery/internal/blobstore/memory"
	"github.com/vbonduro/sitegallery/internal/blobstore/minio"
	"github.com/vbonduro/sitegallery/internal/config"
	"github.com/vbonduro/sitegallery/internal/db"
	"github.com/vbonduro/sitegallery/internal/domain"
	"github.com/vbonduro/sitegallery/internal/logging"
	"github.com/vbonduro/sitegallery/internal/service"
	"github.com/vbonduro/sitegallery/internal/store"
	"github.com/vbonduro/sitegallery/internal/store/mongostore"
	"github.com/vbonduro/sitegallery/internal/store/pgstore"
	"github.com/vbonduro/sitegallery/internal/web"
	"github.com/vbonduro/sitegallery/internal/web/static"
)

// imageStore is satisfied by every metadata backend.
type imageStore interface {
	ListAll(ctx context.Context) ([]*domain.ImageRecord, error)
	Add(ctx context.Context, rec *domain.ImageRecord) (*domain.ImageRecord, error)
	GetByID(ctx context.Context, id string) (*domain.ImageRecord, error)
	DeleteByID(ctx context.Context, id string) (bool, error)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, cleanup, err := logging.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server error", "error", err)
		stop()
		cleanup()
		os.Exit(1)
	}
	logger.Info("server stopped")
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	blobs, err := newBlobStore(ctx, cfg, logger)
	if err != nil {
		return err
	}

	images, closeImages, err := newImageStore(ctx, cfg, blobs, logger)
	if err != nil {
		return err
	}
	defer closeImages()

	authn, err := auth.New(auth.Settings{
		Username:     cfg.AdminUsername,
		Password:     cfg.AdminPassword,
		PasswordHash: cfg.AdminPasswordHash,
		Secret:       []byte(cfg.SessionSecret),
		TTL:          cfg.SessionTTL,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize auth: %w", err)
	}

	imageService := service.NewImageService(images, blobs, cfg.PublicBlobBaseURL, logger)
	server := web.NewServer(imageService, authn, blobs, static.Files, web.Options{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		SecureCookie:   cfg.CookieSecure,
	}, logger)

	return server.Run(ctx, cfg.ListenAddr)
}

func newBlobStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (blobstore.Store, error) {
	switch cfg.BlobBackend {
	case config.BlobMinio:
		logger.Info("using minio blob backend", "endpoint", cfg.MinioEndpoint, "bucket", cfg.MinioBucket)
		s, err := minio.New(ctx, minio.Config{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize minio blob store: %w", err)
		}
		return s, nil
	case config.BlobMemory:
		logger.Warn("using in-memory blob backend; uploads are lost on restart")
		return memblob.New(), nil
	default:
		logger.Info("using local blob backend", "path", cfg.BlobLocalPath)
		s, err := local.New(cfg.BlobLocalPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize local blob store: %w", err)
		}
		return s, nil
	}
}

// newImageStore opens the configured metadata backend. The returned func
// releases its connections.
func newImageStore(ctx context.Context, cfg *config.Config, blobs blobstore.Store, logger *slog.Logger) (imageStore, func(), error) {
	switch cfg.MetadataBackend {
	case config.MetadataBlob:
		logger.Info("using blob document metadata backend", "key", store.DocumentKey)
		return store.NewBlobImageStore(blobs), func() {}, nil

	case config.MetadataMemory:
		logger.Warn("using in-memory metadata backend; records are lost on restart")
		return store.NewMemoryImageStore(), func() {}, nil

	case config.MetadataMongo:
		logger.Info("using mongo metadata backend", "database", cfg.MongoDatabase)
		client, err := mongostore.Connect(ctx, cfg.MongoURI)
		if err != nil {
			return nil, nil, err
		}
		return mongostore.New(client, cfg.MongoDatabase), func() {
			if err := client.Disconnect(context.Background()); err != nil {
				logger.Error("failed to disconnect mongo", "error", err)
			}
		}, nil

	case config.MetadataPostgres:
		logger.Info("using postgres metadata backend")
		pool, err := pgstore.Connect(ctx, cfg.PostgresURL)
		if err != nil {
			return nil, nil, err
		}
		return pgstore.New(pool), pool.Close, nil

	default:
		logger.Info("using sqlite metadata backend", "path", cfg.DBPath)
		database, err := db.Open(cfg.DBPath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open database: %w", err)
		}
		return store.NewImageStore(database), func() {
			if err := database.Close(); err != nil {
				logger.Error("failed to close database", "error", err)
			}
		}, nil
	}
}
