package notify

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/noah-isme/pos-gateway/internal/obs"
	"github.com/noah-isme/pos-gateway/internal/resilience"
)

// SignatureHeader carries the HMAC-SHA256 hex digest of the request body.
const SignatureHeader = "X-Receipt-Signature"

// DeliveryWorker posts receipt payloads to the configured webhook. Failed
// deliveries return an error so asynq retries them with its own backoff.
type DeliveryWorker struct {
	WebhookURL string
	Secret     string
	HTTP       resilience.HTTPClient
	Logger     zerolog.Logger
}

// HandleReceiptDeliver processes one receipt:deliver task.
func (w *DeliveryWorker) HandleReceiptDeliver(ctx context.Context, t *asynq.Task) error {
	var payload ReceiptPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		// malformed payloads will never succeed, drop them
		countDelivery("dropped")
		return fmt.Errorf("notify: decode receipt payload: %v: %w", err, asynq.SkipRetry)
	}
	if w.WebhookURL == "" {
		w.Logger.Debug().Int64("sale_id", payload.SaleID).Msg("receipt_webhook_disabled")
		countDelivery("skipped")
		return nil
	}

	body, err := json.Marshal(payload)
	if err != nil {
		countDelivery("dropped")
		return fmt.Errorf("notify: encode receipt body: %v: %w", err, asynq.SkipRetry)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("notify: build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if w.Secret != "" {
		req.Header.Set(SignatureHeader, Sign(w.Secret, body))
	}

	resp, err := w.HTTP.Do(ctx, req)
	if err != nil {
		countDelivery("error")
		return fmt.Errorf("notify: deliver receipt for sale %d: %w", payload.SaleID, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		countDelivery("error")
		return fmt.Errorf("notify: webhook responded %d for sale %d", resp.StatusCode, payload.SaleID)
	}

	countDelivery("ok")
	w.Logger.Info().Int64("sale_id", payload.SaleID).Msg("receipt_delivered")
	return nil
}

// Sign computes the hex HMAC-SHA256 digest of body under the shared secret.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func countDelivery(result string) {
	if obs.ReceiptDeliveriesTotal != nil {
		obs.ReceiptDeliveriesTotal.WithLabelValues(result).Inc()
	}
}
