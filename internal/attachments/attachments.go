// Package attachments stores proof-of-payment and receipt files and hands
// back a durable reference to record alongside the ledger row.
package attachments

import (
	"context"
	"fmt"
	"io"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// File is an uploaded document waiting to be stored.
type File struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}

// Uploader persists files. Delete is used to undo an upload whose ledger
// write failed.
type Uploader interface {
	Upload(ctx context.Context, folder string, f File) (ref string, err error)
	Delete(ctx context.Context, ref string) error
}

const (
	FolderPayments      = "pagos"
	FolderContributions = "aportes"
	FolderReceipts      = "facturas"
)

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// ObjectKey builds folder/YYYY/MM/<uuid>-<name> so that two uploads never
// collide and listings group by month.
func ObjectKey(folder, name string, now time.Time) string {
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	base = unsafeChars.ReplaceAllString(base, "_")
	base = strings.Trim(base, "._")
	if base == "" {
		base = "file"
	}
	if len(base) > 80 {
		base = base[len(base)-80:]
	}
	return fmt.Sprintf("%s/%04d/%02d/%s-%s", folder, now.Year(), int(now.Month()), uuid.NewString(), base)
}
