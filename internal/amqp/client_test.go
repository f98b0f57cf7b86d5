package amqp

import (
	"testing"
	"time"
)

func TestNewExpenseEventMessage(t *testing.T) {
	msg := NewExpenseEventMessage(ActionCreated, 12345, 7)

	if msg.Action != ActionCreated {
		t.Errorf("Action = %v, want %v", msg.Action, ActionCreated)
	}
	if msg.ExpenseID != 12345 {
		t.Errorf("ExpenseID = %v, want 12345", msg.ExpenseID)
	}
	if msg.ActorID != 7 {
		t.Errorf("ActorID = %v, want 7", msg.ActorID)
	}
	if msg.Timestamp.IsZero() || time.Since(msg.Timestamp) > time.Second {
		t.Error("Timestamp should be recent")
	}
}

func TestExpenseEventMessageJSON(t *testing.T) {
	msg := &ExpenseEventMessage{
		Action:    ActionDeleted,
		ExpenseID: 42,
		ActorID:   1,
		Timestamp: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}

	body, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON() error = %v", err)
	}

	parsed, err := ExpenseEventMessageFromJSON(body)
	if err != nil {
		t.Fatalf("ExpenseEventMessageFromJSON() error = %v", err)
	}
	if parsed.Action != msg.Action || parsed.ExpenseID != msg.ExpenseID || !parsed.Timestamp.Equal(msg.Timestamp) {
		t.Errorf("round trip mismatch: %+v", parsed)
	}
}

func TestExpenseEventMessageInvalidJSON(t *testing.T) {
	if _, err := ExpenseEventMessageFromJSON([]byte(`{"expense_id": "nope"}`)); err == nil {
		t.Error("expected error for invalid payload")
	}
}
