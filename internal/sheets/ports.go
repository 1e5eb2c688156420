package sheets

import (
	"context"

	"barriada/internal/export"
)

// Ports for outbound adapters.
type (
	// TablePublisher replaces the content of one spreadsheet tab per table.
	TablePublisher interface {
		Publish(ctx context.Context, tables []export.Table) error
	}
)
