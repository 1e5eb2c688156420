package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"barriada/internal/attachments"
	"barriada/internal/storage"
	"barriada/internal/storage/memory"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{logger: logger}
}

// Create opens the store, then the uploader. The store is closed again if
// the uploader cannot be built.
func (f *DefaultFactory) Create(ctx context.Context, config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	store, err := f.openStore(config)
	if err != nil {
		return nil, err
	}

	uploader, err := f.openUploader(ctx, config)
	if err != nil {
		return nil, errors.Join(err, store.Close())
	}

	return &Result{
		Store:    store,
		Uploader: uploader,
		Cleanup:  store.Close,
	}, nil
}

func (f *DefaultFactory) openStore(config Config) (storage.Store, error) {
	opts := storage.Options{Timeout: config.StoreTimeout}

	switch config.Type {
	case SQLiteBackend:
		repo, err := storage.OpenSQLite(config.SQLiteDBPath, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)
		return repo, nil
	case PostgresBackend:
		repo, err := storage.OpenPostgres(config.DatabaseURL, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Postgres repository: %w", err)
		}
		f.logger.Info("Initialized Postgres backend")
		return repo, nil
	case MemoryBackend:
		f.logger.Warn("Initialized memory backend, data is lost on restart")
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) openUploader(ctx context.Context, config Config) (attachments.Uploader, error) {
	switch config.Attachments {
	case LocalAttachments:
		l, err := attachments.NewLocal(config.AttachmentDir, config.AttachmentBaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize local attachments: %w", err)
		}
		f.logger.Info("Attachments stored on disk", "dir", config.AttachmentDir)
		return l, nil
	case GCSAttachments:
		g, err := attachments.NewGCSFromEnv(ctx, config.GCSBucket)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize GCS attachments: %w", err)
		}
		f.logger.Info("Attachments stored in Cloud Storage", "bucket", config.GCSBucket)
		return g, nil
	default:
		f.logger.Info("Attachments disabled")
		return nil, nil
	}
}
