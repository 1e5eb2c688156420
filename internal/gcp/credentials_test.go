package gcp

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestServiceAccountJSONPrecedence(t *testing.T) {
	ctx := context.Background()
	file := filepath.Join(t.TempDir(), "sa.json")
	if err := os.WriteFile(file, []byte(`{"from":"file"}`), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("GOOGLE_SERVICE_ACCOUNT_JSON", "")
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_FILE", "")
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
	if _, err := ServiceAccountJSON(ctx); err == nil {
		t.Fatalf("expected error without credentials")
	}

	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", file)
	b, err := ServiceAccountJSON(ctx)
	if err != nil || string(b) != `{"from":"file"}` {
		t.Fatalf("file: %s %v", b, err)
	}

	t.Setenv("GOOGLE_SERVICE_ACCOUNT_JSON", `{"from":"env"}`)
	b, err = ServiceAccountJSON(ctx)
	if err != nil || string(b) != `{"from":"env"}` {
		t.Fatalf("inline: %s %v", b, err)
	}
}
