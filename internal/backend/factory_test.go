package backend

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"barriada/internal/config"
	"barriada/internal/storage/memory"
)

func TestFromAppConfig(t *testing.T) {
	cfg := &config.Config{
		DataBackend:       "postgres",
		DatabaseURL:       "postgres://u:p@localhost/barriada",
		AttachmentBackend: "gcs",
		GCSBucket:         "proofs",
	}
	bc, err := FromAppConfig(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if bc.Type != PostgresBackend || bc.Attachments != GCSAttachments || bc.GCSBucket != "proofs" {
		t.Fatalf("unexpected config %+v", bc)
	}

	if _, err := FromAppConfig(nil); err == nil {
		t.Fatal("expected error for nil config")
	}
	if _, err := FromAppConfig(&config.Config{DataBackend: "sheets"}); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr string
	}{
		{name: "memory", config: Config{Type: MemoryBackend}},
		{name: "sqlite without path", config: Config{Type: SQLiteBackend}, wantErr: "SQLite database path"},
		{name: "postgres without url", config: Config{Type: PostgresBackend}, wantErr: "database URL"},
		{name: "local without dir", config: Config{Type: MemoryBackend, Attachments: LocalAttachments}, wantErr: "attachment directory"},
		{name: "unknown attachments", config: Config{Type: MemoryBackend, Attachments: "s3"}, wantErr: "invalid attachment backend"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error %v does not contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestCreateMemoryWithoutAttachments(t *testing.T) {
	res, err := NewFactory(nil).Create(context.Background(), Config{Type: MemoryBackend, Attachments: NoAttachments})
	if err != nil {
		t.Fatal(err)
	}
	defer res.Cleanup()
	if _, ok := res.Store.(*memory.Store); !ok {
		t.Fatalf("store is %T", res.Store)
	}
	if res.Uploader != nil {
		t.Fatalf("uploader should be nil, got %T", res.Uploader)
	}
}

func TestCreateSQLiteWithLocalAttachments(t *testing.T) {
	dir := t.TempDir()
	res, err := NewFactory(nil).Create(context.Background(), Config{
		Type:              SQLiteBackend,
		SQLiteDBPath:      filepath.Join(dir, "db", "barriada.db"),
		Attachments:       LocalAttachments,
		AttachmentDir:     filepath.Join(dir, "uploads"),
		AttachmentBaseURL: "/uploads/",
	})
	if err != nil {
		t.Fatal(err)
	}
	defer res.Cleanup()

	if err := res.Store.Ping(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}
	if res.Uploader == nil {
		t.Fatal("expected local uploader")
	}
}
