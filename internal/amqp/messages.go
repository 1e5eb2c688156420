package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventKind names the ledger mutation that happened.
type EventKind string

const (
	AssessmentCreated    EventKind = "assessment.created"
	AssessmentDeleted    EventKind = "assessment.deleted"
	PaymentRecorded      EventKind = "payment.recorded"
	PaymentDeleted       EventKind = "payment.deleted"
	ContributionRecorded EventKind = "contribution.recorded"
	ContributionDeleted  EventKind = "contribution.deleted"
	ExpenseRecorded      EventKind = "expense.recorded"
	ExpenseDeleted       EventKind = "expense.deleted"
)

func (k EventKind) Valid() bool {
	switch k {
	case AssessmentCreated, AssessmentDeleted,
		PaymentRecorded, PaymentDeleted,
		ContributionRecorded, ContributionDeleted,
		ExpenseRecorded, ExpenseDeleted:
		return true
	}
	return false
}

// LedgerEvent announces a committed mutation. It is a notification only:
// consumers re-read the store instead of applying the event.
type LedgerEvent struct {
	Kind         EventKind `json:"kind"`
	ID           int64     `json:"id"`
	AssessmentID int64     `json:"assessment_id,omitempty"`
	Unit         int       `json:"unit,omitempty"`
	Amount       string    `json:"amount,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

// NewLedgerEvent stamps the event with the current time.
func NewLedgerEvent(kind EventKind, id int64) *LedgerEvent {
	return &LedgerEvent{
		Kind:      kind,
		ID:        id,
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerEventFromJSON decodes and checks an event body.
func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var msg LedgerEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if !msg.Kind.Valid() {
		return nil, fmt.Errorf("unknown event kind %q", msg.Kind)
	}
	return &msg, nil
}
