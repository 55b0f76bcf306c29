package notify

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
)

// Enqueuer schedules receipt deliveries on the task queue. Deliveries are
// deduplicated per sale so an idempotent checkout retry cannot double-send.
type Enqueuer struct {
	Client   *asynq.Client
	MaxRetry int
	Logger   zerolog.Logger
}

// EnqueueReceipt queues one delivery for the sale. A missing client is an
// error; callers decide whether receipt delivery is optional.
func (e Enqueuer) EnqueueReceipt(ctx context.Context, p ReceiptPayload) error {
	if e.Client == nil {
		return errors.New("notify: task client not configured")
	}
	task, err := NewReceiptTask(p)
	if err != nil {
		return fmt.Errorf("notify: encode receipt: %w", err)
	}
	maxRetry := e.MaxRetry
	if maxRetry <= 0 {
		maxRetry = 10
	}
	info, err := e.Client.EnqueueContext(ctx, task,
		asynq.Queue(QueueReceipts),
		asynq.MaxRetry(maxRetry),
		asynq.TaskID("receipt-"+strconv.FormatInt(p.SaleID, 10)),
		asynq.Retention(24*time.Hour),
	)
	if err != nil {
		if errors.Is(err, asynq.ErrTaskIDConflict) {
			return nil
		}
		return fmt.Errorf("notify: enqueue receipt: %w", err)
	}
	e.Logger.Debug().Str("task_id", info.ID).Int64("sale_id", p.SaleID).Msg("receipt_enqueued")
	return nil
}
