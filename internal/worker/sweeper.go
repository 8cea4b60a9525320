package worker

import (
	"context"
	"log/slog"
	"time"

	"comanda/internal/service"
)

// Sweeper runs the periodic maintenance passes: unclaimed pending
// orders past their TTL, idempotency records past retention, and old
// sequence rows. A failed pass is logged and retried on the next tick.
type Sweeper struct {
	pending   *service.PendingOrderService
	idem      *service.IdempotencyService
	sequences *service.SequenceService

	interval     time.Duration
	pendingTTL   time.Duration
	sequenceKeep int
}

func NewSweeper(pending *service.PendingOrderService, idem *service.IdempotencyService, sequences *service.SequenceService, interval, pendingTTL time.Duration, sequenceKeep int) *Sweeper {
	return &Sweeper{
		pending:      pending,
		idem:         idem,
		sequences:    sequences,
		interval:     interval,
		pendingTTL:   pendingTTL,
		sequenceKeep: sequenceKeep,
	}
}

func (s *Sweeper) Start(ctx context.Context) {
	slog.Info("starting sweeper", "interval", s.interval, "pending_ttl", s.pendingTTL)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("sweeper stopped")
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	if n, err := s.pending.SweepExpired(ctx, s.pendingTTL); err != nil {
		slog.Error("pending sweep failed", "error", err)
	} else if n > 0 {
		slog.Info("expired pending orders removed", "count", n)
	}

	if n, err := s.idem.SweepExpired(ctx); err != nil {
		slog.Error("idempotency sweep failed", "error", err)
	} else if n > 0 {
		slog.Info("expired idempotency records removed", "count", n)
	}

	if n, err := s.sequences.Prune(ctx, s.sequenceKeep); err != nil {
		slog.Error("sequence prune failed", "error", err)
	} else if n > 0 {
		slog.Info("sequence rows pruned", "count", n)
	}
}
