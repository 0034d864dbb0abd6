package worker

// retry_cron.go
// Background goroutine that periodically re-attempts journal posting for
// closed sessions stuck with posted_entry_id IS NULL and a next_post_retry_at
// in the past. Covers crashed workers and transient database failures.

import (
	"context"
	"time"

	"cashledger/internal/repository"

	"github.com/rs/zerolog/log"
)

const retryTickInterval = 30 * time.Second

// RetryCronConfig holds all dependencies for the retry goroutine.
type RetryCronConfig struct {
	SessionRepo   repository.SessionRepository
	PostingWorker *PostingWorker
	BatchSize     int
}

// StartRetryCron launches a background goroutine that ticks every 30s,
// queries sessions pending posting, and re-attempts them.
// It respects the context for graceful shutdown.
func StartRetryCron(ctx context.Context, cfg RetryCronConfig) {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 10
	}
	go func() {
		ticker := time.NewTicker(retryTickInterval)
		defer ticker.Stop()

		log.Info().Msg("retry_cron: started")

		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("retry_cron: shutting down")
				return
			case <-ticker.C:
				processRetries(ctx, cfg)
			}
		}
	}()
}

func processRetries(ctx context.Context, cfg RetryCronConfig) {
	sessions, err := cfg.SessionRepo.ListPendingPostings(ctx, time.Now(), cfg.BatchSize)
	if err != nil {
		log.Error().Err(err).Msg("retry_cron: failed to query pending postings")
		return
	}
	if len(sessions) == 0 {
		return
	}

	log.Info().Int("count", len(sessions)).Msg("retry_cron: processing pending postings")

	for i := range sessions {
		session := &sessions[i]
		if err := cfg.PostingWorker.PostSession(ctx, session); err != nil {
			cfg.PostingWorker.scheduleRetry(ctx, session, err)
		}
	}
}
