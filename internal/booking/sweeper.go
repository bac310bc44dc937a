package booking

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// Sweeper periodically completes ended bookings and archives past ones.
type Sweeper struct {
	service  Service
	interval time.Duration
	log      logrus.FieldLogger
}

func NewSweeper(service Service, interval time.Duration, log logrus.FieldLogger) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Sweeper{
		service:  service,
		interval: interval,
		log:      log.WithField("component", "booking_sweeper"),
	}
}

// Run sweeps once immediately, then on every tick until ctx is done.
func (w *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.Sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.Sweep(ctx)
		}
	}
}

// Sweep runs one pass. Failures are logged and retried on the next tick.
func (w *Sweeper) Sweep(ctx context.Context) {
	completed, err := w.service.CompleteEnded(ctx)
	if err != nil {
		w.log.WithError(err).Error("complete ended bookings failed")
	} else if completed > 0 {
		w.log.WithField("count", completed).Info("completed ended bookings")
	}

	archived, err := w.service.ArchivePast(ctx)
	if err != nil {
		w.log.WithError(err).Error("archive past bookings failed")
	} else if archived > 0 {
		w.log.WithField("count", archived).Info("archived past bookings")
	}
}
