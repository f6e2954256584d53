package printjob

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/noah-isme/kasir-bff/internal/obs"
)

// TypeReceipt is the task type for printing a sale receipt on the store's
// thermal printer bridge.
const TypeReceipt = "print:receipt"

// ReceiptTask carries the confirmed transaction as returned by the API
// server. The printer bridge formats it; the queue only delivers it.
type ReceiptTask struct {
	Receipt json.RawMessage `json:"receipt"`
}

// NewReceiptTask wraps the confirmed transaction body in a queue task.
func NewReceiptTask(receipt []byte) (*asynq.Task, error) {
	payload, err := json.Marshal(ReceiptTask{Receipt: receipt})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeReceipt, payload, asynq.MaxRetry(3), asynq.Timeout(10*time.Second)), nil
}

// Enqueuer hands receipt print jobs to the queue. Printing is fire and
// forget from the cashier's point of view: a dead printer never blocks or
// fails a sale.
type Enqueuer struct {
	Client *asynq.Client
	Logger zerolog.Logger
}

// Enqueue schedules a receipt for printing. Errors are logged and swallowed.
func (e *Enqueuer) Enqueue(ctx context.Context, receipt []byte) {
	if e == nil || e.Client == nil {
		return
	}
	task, err := NewReceiptTask(receipt)
	if err != nil {
		e.Logger.Error().Err(err).Msg("build receipt print task")
		return
	}
	if _, err := e.Client.EnqueueContext(ctx, task); err != nil {
		e.Logger.Error().Err(err).Msg("enqueue receipt print task")
		if obs.PrintDeliveriesTotal != nil {
			obs.PrintDeliveriesTotal.WithLabelValues("enqueue_failed").Inc()
		}
	}
}

// Worker delivers queued receipts to the printer bridge.
type Worker struct {
	PrinterURL string
	HTTP       *http.Client
	Logger     zerolog.Logger
}

// HandleReceipt posts the receipt to the printer bridge. A non-2xx answer is
// returned as an error so asynq retries the delivery.
func (w *Worker) HandleReceipt(ctx context.Context, task *asynq.Task) error {
	var payload ReceiptTask
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("decode receipt task: %w", asynq.SkipRetry)
	}
	if w.PrinterURL == "" {
		return errors.New("printer url not configured")
	}
	client := w.HTTP
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.PrinterURL, bytes.NewReader(payload.Receipt))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		if obs.PrintDeliveriesTotal != nil {
			obs.PrintDeliveriesTotal.WithLabelValues("unreachable").Inc()
		}
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if obs.PrintDeliveriesTotal != nil {
			obs.PrintDeliveriesTotal.WithLabelValues("rejected").Inc()
		}
		return fmt.Errorf("printer bridge returned %s", resp.Status)
	}
	if obs.PrintDeliveriesTotal != nil {
		obs.PrintDeliveriesTotal.WithLabelValues("delivered").Inc()
	}
	w.Logger.Info().Msg("receipt delivered to printer bridge")
	return nil
}
