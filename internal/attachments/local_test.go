package attachments

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestObjectKey(t *testing.T) {
	now := time.Date(2025, 3, 9, 10, 0, 0, 0, time.UTC)
	k1 := ObjectKey(FolderContributions, "../../etc/comprobante marzo.pdf", now)
	k2 := ObjectKey(FolderContributions, "../../etc/comprobante marzo.pdf", now)
	if k1 == k2 {
		t.Fatalf("keys must be unique")
	}
	if !strings.HasPrefix(k1, "aportes/2025/03/") || !strings.HasSuffix(k1, "-comprobante_marzo.pdf") {
		t.Fatalf("key %s", k1)
	}
	if strings.Contains(k1, "..") {
		t.Fatalf("path traversal kept: %s", k1)
	}
	if k := ObjectKey(FolderReceipts, "...", now); !strings.HasSuffix(k, "-file") {
		t.Fatalf("empty name: %s", k)
	}
}

func TestLocalUploadAndDelete(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	l, err := NewLocal(dir, "https://files.example/")
	if err != nil {
		t.Fatal(err)
	}

	ref, err := l.Upload(ctx, FolderReceipts, File{Name: "factura.pdf", Body: strings.NewReader("pdf-bytes"), Size: 9})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(ref, "https://files.example/facturas/") {
		t.Fatalf("ref %s", ref)
	}
	key := strings.TrimPrefix(ref, "https://files.example/")
	body, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(key)))
	if err != nil || string(body) != "pdf-bytes" {
		t.Fatalf("stored file: %q %v", body, err)
	}

	if err := l.Delete(ctx, ref); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(dir, filepath.FromSlash(key))); !os.IsNotExist(err) {
		t.Fatalf("file still present: %v", err)
	}
	if err := l.Delete(ctx, "https://files.example/../secret"); err == nil {
		t.Fatalf("expected traversal to be rejected")
	}
}

func TestLocalLogsUnderAttachmentsComponent(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	l, err := NewLocal(t.TempDir(), "/uploads/")
	if err != nil {
		t.Fatal(err)
	}
	ref, err := l.Upload(context.Background(), FolderContributions, File{Name: "c.pdf", Body: strings.NewReader("x"), Size: 1})
	if err != nil {
		t.Fatal(err)
	}
	if err := l.Delete(context.Background(), ref); err != nil {
		t.Fatal(err)
	}

	out := buf.String()
	for _, want := range []string{`"component":"attachments"`, `"operation":"upload"`, `"operation":"delete"`} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %s:\n%s", want, out)
		}
	}
}
