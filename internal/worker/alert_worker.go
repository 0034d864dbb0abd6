package worker

// alert_worker.go
// Processes alert jobs from QueueAlert: discrepancy notifications mailed to
// supervisors via SMTP, guarded by the mailer circuit breaker.

import (
	"context"
	"encoding/json"

	"cashledger/internal/infra"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// AlertWorker sends supervisor alert emails.
type AlertWorker struct {
	mailer *infra.Mailer
	cb     *infra.CircuitBreaker
	rdb    *redis.Client
}

func NewAlertWorker(mailer *infra.Mailer, cb *infra.CircuitBreaker, rdb *redis.Client) *AlertWorker {
	return &AlertWorker{mailer: mailer, cb: cb, rdb: rdb}
}

// Process sends one alert email, with an optional attachment.
func (w *AlertWorker) Process(ctx context.Context, raw json.RawMessage) {
	var payload AlertJobPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		log.Error().Err(err).Msg("alert_worker: invalid payload")
		return
	}
	if payload.ToEmail == "" {
		log.Warn().Msg("alert_worker: empty to_email, skipping")
		return
	}

	err := w.cb.Execute(func() error {
		return w.mailer.SendAlert(payload.ToEmail, payload.Subject, payload.Body, payload.AttachmentPath)
	})
	if err != nil {
		log.Error().Err(err).Str("to", payload.ToEmail).Msg("alert_worker: failed to send alert")

		data, _ := json.Marshal(payload)
		SendToDLQ(ctx, w.rdb, QueueAlert, "alert", data, err.Error(), 1)
		return
	}
	log.Info().Str("to", payload.ToEmail).Str("subject", payload.Subject).Msg("alert_worker: alert sent")
}
