package connectivity

import (
	"context"
	"log/slog"
	"time"

	"github.com/UnknownOlympus/nimbus/internal/broadcast"
)

// Observer polls a Monitor and exposes the result as a read-only State signal.
type Observer struct {
	monitor  Monitor
	interval time.Duration
	log      *slog.Logger
	state    *broadcast.Value[State]
}

// NewObserver creates an Observer that starts as Unavailable.
func NewObserver(monitor Monitor, interval time.Duration, log *slog.Logger) *Observer {
	return &Observer{
		monitor:  monitor,
		interval: interval,
		log:      log,
		state:    broadcast.NewValue[State](Unavailable{}),
	}
}

// State returns the latest connectivity state.
func (o *Observer) State() State {
	return o.state.Load()
}

// Subscribe returns a channel of connectivity changes and a cancel func.
func (o *Observer) Subscribe(buffer int) (<-chan State, func()) {
	return o.state.Subscribe(buffer)
}

// Run probes immediately and then on every interval until ctx is done.
func (o *Observer) Run(ctx context.Context) {
	ticker := time.NewTicker(o.interval)
	defer ticker.Stop()

	o.log.InfoContext(ctx, "Connectivity observer started", "interval", o.interval)

	o.probe(ctx)
	for {
		select {
		case <-ctx.Done():
			o.log.InfoContext(ctx, "Connectivity observer stopped.")
			return
		case <-ticker.C:
			o.probe(ctx)
		}
	}
}

// probe runs one check and publishes the state only when it changed.
func (o *Observer) probe(ctx context.Context) {
	var next State = Available{}
	if err := o.monitor.Check(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		o.log.DebugContext(ctx, "Connectivity check failed", "error", err)
		next = Unavailable{}
	}

	if next == o.state.Load() {
		return
	}

	o.log.InfoContext(ctx, "Connectivity changed", "state", StateName(next))
	o.state.Store(next)
}
