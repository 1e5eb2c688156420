package backend

import (
	"fmt"
	"time"

	"barriada/internal/config"
)

// Config holds configuration for backend creation
type Config struct {
	Type         BackendType
	SQLiteDBPath string
	DatabaseURL  string
	StoreTimeout time.Duration

	Attachments       AttachmentType
	AttachmentDir     string
	AttachmentBaseURL string
	GCSBucket         string
}

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	c := Config{
		Type:              BackendType(appConfig.DataBackend),
		SQLiteDBPath:      appConfig.SQLiteDBPath,
		DatabaseURL:       appConfig.DatabaseURL,
		StoreTimeout:      appConfig.StoreTimeout,
		Attachments:       AttachmentType(appConfig.AttachmentBackend),
		AttachmentDir:     appConfig.AttachmentDir,
		AttachmentBaseURL: appConfig.AttachmentBaseURL,
		GCSBucket:         appConfig.GCSBucket,
	}
	return c, c.Validate()
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}

	switch c.Type {
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return fmt.Errorf("SQLite database path is required for sqlite backend")
		}
	case PostgresBackend:
		if c.DatabaseURL == "" {
			return fmt.Errorf("database URL is required for postgres backend")
		}
	case MemoryBackend:
	}

	switch c.Attachments {
	case "", NoAttachments:
	case LocalAttachments:
		if c.AttachmentDir == "" {
			return fmt.Errorf("attachment directory is required for local attachments")
		}
	case GCSAttachments:
		if c.GCSBucket == "" {
			return fmt.Errorf("bucket is required for gcs attachments")
		}
	default:
		return fmt.Errorf("invalid attachment backend: %s", c.Attachments)
	}

	return nil
}
