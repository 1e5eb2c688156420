package backend

import (
	"context"

	"barriada/internal/attachments"
	"barriada/internal/storage"
)

// CleanupFunc releases whatever a backend opened.
type CleanupFunc func() error

// Result bundles the ledger store and the attachment uploader picked by
// configuration. Uploader is nil when attachments are disabled.
type Result struct {
	Store    storage.Store
	Uploader attachments.Uploader
	Cleanup  CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	Create(ctx context.Context, config Config) (*Result, error)
}

// BackendType represents the type of ledger store
type BackendType string

const (
	MemoryBackend   BackendType = "memory"
	SQLiteBackend   BackendType = "sqlite"
	PostgresBackend BackendType = "postgres"
)

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	switch bt {
	case MemoryBackend, SQLiteBackend, PostgresBackend:
		return true
	default:
		return false
	}
}

// AttachmentType selects where proof files go.
type AttachmentType string

const (
	NoAttachments    AttachmentType = "none"
	LocalAttachments AttachmentType = "local"
	GCSAttachments   AttachmentType = "gcs"
)

func (at AttachmentType) IsValid() bool {
	switch at {
	case NoAttachments, LocalAttachments, GCSAttachments:
		return true
	default:
		return false
	}
}
