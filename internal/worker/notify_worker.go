// Package worker contains the notification worker that turns expense events
// into webhook notifications.
package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"jostrid/internal/amqp"
	"jostrid/internal/core"
	"jostrid/internal/storage"
)

// ExpenseReader is the subset of the repository the worker needs.
type ExpenseReader interface {
	GetExpense(ctx context.Context, id int64) (core.Expense, error)
}

// NotifyWorker consumes expense events and posts a JSON notification to a
// configured webhook URL.
type NotifyWorker struct {
	storage    ExpenseReader
	webhookURL string
	client     *http.Client
}

// Notification is the webhook payload.
type Notification struct {
	Action    string    `json:"action"`
	ExpenseID int64     `json:"expense_id"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

func NewNotifyWorker(storage ExpenseReader, webhookURL string, timeout time.Duration) *NotifyWorker {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &NotifyWorker{
		storage:    storage,
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: timeout},
	}
}

// HandleEvent processes a single expense event. Deletions are notified from
// the message alone since the row is already gone.
func (w *NotifyWorker) HandleEvent(ctx context.Context, msg *amqp.ExpenseEventMessage) error {
	slog.InfoContext(ctx, "Processing expense event",
		"action", msg.Action,
		"expense_id", msg.ExpenseID)

	notification := Notification{
		Action:    msg.Action,
		ExpenseID: msg.ExpenseID,
		Timestamp: msg.Timestamp,
	}

	if msg.Action == amqp.ActionDeleted {
		notification.Text = fmt.Sprintf("Expense %d was deleted", msg.ExpenseID)
	} else {
		expense, err := w.storage.GetExpense(ctx, msg.ExpenseID)
		if errors.Is(err, storage.ErrNotFound) {
			// Expense deleted before we got to the event. Requeueing would
			// loop forever, so drop it.
			slog.WarnContext(ctx, "Expense gone, dropping event",
				"action", msg.Action,
				"expense_id", msg.ExpenseID)
			return nil
		}
		if err != nil {
			return fmt.Errorf("get expense: %w", err)
		}
		notification.Text = notificationText(msg.Action, expense)
	}

	if err := w.sendWebhook(ctx, notification); err != nil {
		return fmt.Errorf("send webhook: %w", err)
	}

	slog.InfoContext(ctx, "Notification delivered",
		"action", msg.Action,
		"expense_id", msg.ExpenseID)
	return nil
}

func notificationText(action string, e core.Expense) string {
	amount := core.FormatAmount(e.Total, e.Currency)
	switch action {
	case amqp.ActionCreated:
		return fmt.Sprintf("%s added %q (%s)", e.PaidBy.Name, e.Name, amount)
	case amqp.ActionUpdated:
		return fmt.Sprintf("%s updated %q (%s)", e.PaidBy.Name, e.Name, amount)
	case amqp.ActionSettled:
		return e.Name
	default:
		return fmt.Sprintf("%q (%s)", e.Name, amount)
	}
}

// sendWebhook posts the notification payload with a bounded timeout so a
// slow receiver cannot stall the consumer.
func (w *NotifyWorker) sendWebhook(ctx context.Context, payload Notification) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.webhookURL, bytes.NewBuffer(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "jostrid-notify/1.0")

	resp, err := w.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	return fmt.Errorf("webhook receiver returned status %d", resp.StatusCode)
}
