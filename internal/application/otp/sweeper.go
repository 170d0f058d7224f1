package otp

import (
	"context"
	"log/slog"
	"time"
)

// Sweeper runs SweepExpired on a fixed interval until its context is
// cancelled. Verification is lazily correct without it; the sweep just keeps
// the table from accumulating dead records.
type Sweeper struct {
	svc      Service
	interval time.Duration
}

func NewSweeper(svc Service, interval time.Duration) *Sweeper {
	return &Sweeper{svc: svc, interval: interval}
}

func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.svc.SweepExpired(ctx, time.Now().UTC())
			if err != nil {
				slog.Warn("otp sweep failed", "err", err)
				continue
			}
			if n > 0 {
				slog.Info("swept expired otp records", "count", n)
			}
		}
	}
}
