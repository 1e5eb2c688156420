package memory

import (
	"context"
	"testing"

	"barriada/internal/core"
	"barriada/internal/export"
)

func TestPublisherReplacesSheets(t *testing.T) {
	p := New()
	first := export.Table{Sheet: "Gastos", Header: export.ExpenseHeader, Rows: [][]any{
		{"Luz", core.MustMoney("40"), core.NewDate(2025, 1, 1), ""},
	}}
	if err := p.Publish(context.Background(), []export.Table{first}); err != nil {
		t.Fatal(err)
	}
	second := export.Table{Sheet: "Gastos", Header: export.ExpenseHeader}
	if err := p.Publish(context.Background(), []export.Table{second}); err != nil {
		t.Fatal(err)
	}
	vals, ok := p.Sheet("Gastos")
	if !ok || len(vals) != 1 {
		t.Fatalf("want header only after republish, got %v", vals)
	}
	if p.Publishes() != 2 {
		t.Fatalf("publishes %d", p.Publishes())
	}
	if _, ok := p.Sheet("Pagos"); ok {
		t.Fatalf("unexpected sheet")
	}
}
