package attachments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	gstorage "google.golang.org/api/storage/v1"

	"barriada/internal/gcp"
	applog "barriada/internal/log"
)

// GCS uploads to a Cloud Storage bucket and returns the public object URL.
type GCS struct {
	svc    *gstorage.Service
	bucket string
	now    func() time.Time
}

var _ Uploader = (*GCS)(nil)

// NewGCSFromEnv builds the client from the shared service account.
func NewGCSFromEnv(ctx context.Context, bucket string) (*GCS, error) {
	if bucket == "" {
		return nil, errors.New("GCS_BUCKET is required")
	}
	opts, err := gcp.ClientOptions(ctx, gstorage.DevstorageReadWriteScope)
	if err != nil {
		return nil, err
	}
	svc, err := gstorage.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("storage service: %w", err)
	}
	return &GCS{svc: svc, bucket: bucket, now: time.Now}, nil
}

func (g *GCS) Upload(ctx context.Context, folder string, f File) (string, error) {
	key := ObjectKey(folder, f.Name, g.now())
	obj := &gstorage.Object{Name: key, ContentType: f.ContentType}
	if _, err := g.svc.Objects.Insert(g.bucket, obj).Media(f.Body).Context(ctx).Do(); err != nil {
		return "", fmt.Errorf("insert object %s: %w", key, err)
	}
	applog.ForComponent(applog.ComponentAttachments).InfoContext(ctx, "Attachment uploaded",
		applog.FieldOperation, applog.OpUpload, "bucket", g.bucket, "key", key, "size", f.Size)
	return g.publicURL(key), nil
}

func (g *GCS) Delete(ctx context.Context, ref string) error {
	key := strings.TrimPrefix(ref, g.publicURL(""))
	if key == "" || key == ref {
		return fmt.Errorf("attachment ref %q is not in bucket %s", ref, g.bucket)
	}
	if err := g.svc.Objects.Delete(g.bucket, key).Context(ctx).Do(); err != nil {
		return fmt.Errorf("delete object %s: %w", key, err)
	}
	applog.ForComponent(applog.ComponentAttachments).InfoContext(ctx, "Attachment removed",
		applog.FieldOperation, applog.OpDelete, "bucket", g.bucket, "key", key)
	return nil
}

func (g *GCS) publicURL(key string) string {
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", g.bucket, key)
}
