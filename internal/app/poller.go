package app

import (
	"context"
	"time"

	"github.com/five82/vininsight/internal/fleet"
	"github.com/five82/vininsight/internal/logging"
	"github.com/five82/vininsight/internal/metrics"
	"github.com/five82/vininsight/internal/state"
)

const (
	defaultPollInterval = 30 * time.Second
	maxBackoff          = 30 * time.Second
)

// Poller reloads the vehicle feed into the store at a fixed cadence, backing
// off while loads keep failing.
type Poller struct {
	Loader   fleet.Loader
	Store    *state.Store
	Metrics  *metrics.Metrics
	Log      logging.Logger
	Interval time.Duration
}

// Refresh loads the feed once and records the outcome in the store.
func (p *Poller) Refresh(ctx context.Context) error {
	source := ""
	if p.Loader.Source != nil {
		source = p.Loader.Source.String()
	}
	vehicles, err := p.Loader.Load(ctx)
	p.Store.Update(source, vehicles, err)
	p.Metrics.ObserveFeed(len(vehicles), err)
	if err != nil {
		p.logger().Warn("feed load failed", "source", source, "error", err)
		return err
	}
	p.logger().Debug("feed loaded", "source", source, "vehicles", len(vehicles))
	return nil
}

// Run refreshes until ctx is cancelled. It waits one interval before the
// first load; call Refresh beforehand to populate the store immediately.
func (p *Poller) Run(ctx context.Context) error {
	interval := p.Interval
	if interval <= 0 {
		interval = defaultPollInterval
	}
	for {
		wait := calculateBackoff(p.Store.Snapshot().ConsecutiveFailures, interval)
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
		_ = p.Refresh(ctx)
	}
}

func (p *Poller) logger() logging.Logger {
	if p.Log == nil {
		return logging.Nop()
	}
	return p.Log
}

// calculateBackoff doubles base for each consecutive failure, capped at
// maxBackoff. A base already above the cap is returned unchanged.
func calculateBackoff(failures int, base time.Duration) time.Duration {
	if failures <= 0 || base >= maxBackoff {
		return base
	}
	d := base
	for i := 0; i < failures; i++ {
		d *= 2
		if d >= maxBackoff {
			return maxBackoff
		}
	}
	return d
}
