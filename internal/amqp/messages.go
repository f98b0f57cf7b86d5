package amqp

import (
	"encoding/json"
	"time"
)

// Expense event actions.
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
	ActionSettled = "settled"
)

// ExpenseEventMessage is a lightweight notification about an expense
// mutation. It carries only identifiers; the worker fetches the full
// expense from the database when it needs details.
type ExpenseEventMessage struct {
	Action    string    `json:"action"`
	ExpenseID int64     `json:"expense_id"`
	ActorID   int64     `json:"actor_id"`
	Timestamp time.Time `json:"timestamp"`
}

// NewExpenseEventMessage creates an event for the given mutation.
func NewExpenseEventMessage(action string, expenseID, actorID int64) *ExpenseEventMessage {
	return &ExpenseEventMessage{
		Action:    action,
		ExpenseID: expenseID,
		ActorID:   actorID,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes.
func (m *ExpenseEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ExpenseEventMessageFromJSON creates a message from JSON bytes.
func ExpenseEventMessageFromJSON(data []byte) (*ExpenseEventMessage, error) {
	var msg ExpenseEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
