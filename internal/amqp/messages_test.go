package amqp

import (
	"strings"
	"testing"
)

func TestLedgerEventJSON(t *testing.T) {
	ev := NewLedgerEvent(PaymentRecorded, 12)
	ev.AssessmentID = 3
	ev.Unit = 7
	ev.Amount = "100.5"

	body, err := ev.ToJSON()
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(body), `"kind":"payment.recorded"`) {
		t.Fatalf("body %s", body)
	}
	got, err := LedgerEventFromJSON(body)
	if err != nil {
		t.Fatal(err)
	}
	if got.Kind != PaymentRecorded || got.ID != 12 || got.Unit != 7 || got.Amount != "100.5" || !got.Timestamp.Equal(ev.Timestamp) {
		t.Fatalf("got %+v", got)
	}
}

func TestLedgerEventRejectsUnknownKind(t *testing.T) {
	if _, err := LedgerEventFromJSON([]byte(`{"kind":"expense.updated","id":1}`)); err == nil {
		t.Fatal("expected error for unknown kind")
	}
	if _, err := LedgerEventFromJSON([]byte(`not json`)); err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}
