package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"interview-ai-credits/internal/infra/metrics"
	"interview-ai-credits/internal/usecase"
)

// ExpiryWorker periodically sweeps aged-out credit ledgers via the use case
// and refreshes the remaining-credits gauge.
type ExpiryWorker struct {
	interval time.Duration
	creditUC usecase.CreditUseCase
	statsUC  usecase.StatsUseCase
	log      *zerolog.Logger
}

func NewExpiryWorker(interval time.Duration, creditUC usecase.CreditUseCase, statsUC usecase.StatsUseCase, logger *zerolog.Logger) *ExpiryWorker {
	compLog := logger.With().Str("component", "ExpiryWorker").Logger()
	return &ExpiryWorker{
		interval: interval,
		creditUC: creditUC,
		statsUC:  statsUC,
		log:      &compLog,
	}
}

func (w *ExpiryWorker) Run(ctx context.Context) error {
	w.log.Info().Msg("Starting expiry worker")
	// Run once on startup, then on every tick
	w.sweep(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping expiry worker")
			return ctx.Err()
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *ExpiryWorker) sweep(ctx context.Context) {
	n, err := w.creditUC.ExpireOverdue(ctx)
	if err != nil {
		w.log.Error().Err(err).Msg("expiry sweep failed")
	}
	if n > 0 {
		metrics.IncLedgersExpired(n)
		w.log.Info().Int("count", n).Msg("expired ledgers swept")
	}

	if stats, err := w.statsUC.Overview(ctx); err == nil {
		metrics.SetRemainingCredits(stats.TotalRemainingCredits)
	}
}
