package attachments

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	applog "barriada/internal/log"
)

// Local writes files under a directory and returns BaseURL + key.
type Local struct {
	Dir     string
	BaseURL string
	now     func() time.Time
}

var _ Uploader = (*Local)(nil)

func NewLocal(dir, baseURL string) (*Local, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create attachment dir: %w", err)
	}
	return &Local{Dir: dir, BaseURL: strings.TrimRight(baseURL, "/"), now: time.Now}, nil
}

func (l *Local) Upload(ctx context.Context, folder string, f File) (string, error) {
	key := ObjectKey(folder, f.Name, l.now())
	dst := filepath.Join(l.Dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("create folder: %w", err)
	}
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", key, err)
	}
	if _, err := io.Copy(out, f.Body); err != nil {
		out.Close()
		os.Remove(dst)
		return "", fmt.Errorf("write %s: %w", key, err)
	}
	if err := out.Close(); err != nil {
		os.Remove(dst)
		return "", fmt.Errorf("close %s: %w", key, err)
	}
	applog.ForComponent(applog.ComponentAttachments).InfoContext(ctx, "Attachment stored",
		applog.FieldOperation, applog.OpUpload, "key", key, "size", f.Size)
	return l.BaseURL + "/" + key, nil
}

func (l *Local) Delete(ctx context.Context, ref string) error {
	key := strings.TrimPrefix(strings.TrimPrefix(ref, l.BaseURL), "/")
	if key == "" || strings.Contains(key, "..") {
		return fmt.Errorf("reject attachment ref %q", ref)
	}
	if err := os.Remove(filepath.Join(l.Dir, filepath.FromSlash(key))); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove %s: %w", key, err)
	}
	applog.ForComponent(applog.ComponentAttachments).InfoContext(ctx, "Attachment removed",
		applog.FieldOperation, applog.OpDelete, "key", key)
	return nil
}
