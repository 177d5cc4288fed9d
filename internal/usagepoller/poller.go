// Package usagepoller runs refresh cycles on a timer and on demand, and
// publishes each finished snapshot to the shared state and its listeners.
package usagepoller

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/quartz"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/zsprackett/cursor-usage/internal/events"
	"github.com/zsprackett/cursor-usage/internal/state"
	"github.com/zsprackett/cursor-usage/internal/usage"
)

// Source produces one snapshot per call. usage.Assembler satisfies it.
type Source interface {
	Assemble(ctx context.Context) usage.Snapshot
}

type result struct {
	cycleID string
	snap    usage.Snapshot
}

type Poller struct {
	source Source
	state  *state.State
	clock  quartz.Clock
	logger *slog.Logger

	onUpdate    func(usage.Snapshot)
	observer    func(usage.Snapshot)
	broadcaster events.Broadcaster

	group     singleflight.Group
	results   chan result
	publishMu sync.Mutex

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

type Option func(*Poller)

// WithClock replaces the wall clock used for the wait between cycles.
func WithClock(c quartz.Clock) Option {
	return func(p *Poller) { p.clock = c }
}

// WithOnUpdate registers the presentation callback run after every publish.
func WithOnUpdate(fn func(usage.Snapshot)) Option {
	return func(p *Poller) { p.onUpdate = fn }
}

// WithObserver registers a second listener, used for threshold notifications.
func WithObserver(fn func(usage.Snapshot)) Option {
	return func(p *Poller) { p.observer = fn }
}

func WithBroadcaster(b events.Broadcaster) Option {
	return func(p *Poller) { p.broadcaster = b }
}

func New(source Source, st *state.State, logger *slog.Logger, opts ...Option) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Poller{
		source:  source,
		state:   st,
		clock:   quartz.NewReal(),
		logger:  logger,
		results: make(chan result, 1),
		stop:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start launches the dispatcher and the timer loop. The first cycle begins
// immediately.
func (p *Poller) Start() {
	p.wg.Add(2)
	go func() {
		defer p.wg.Done()
		p.dispatch()
	}()
	go func() {
		defer p.wg.Done()
		for {
			p.RequestRefresh()
			if !p.wait(p.state.Interval().Duration()) {
				return
			}
		}
	}()
}

// Stop ends the timer loop and the dispatcher and waits for both. Cycles
// already in flight finish on their own; their results are discarded.
func (p *Poller) Stop() {
	p.stopOnce.Do(func() { close(p.stop) })
	p.wg.Wait()
}

// RequestRefresh starts a cycle in the background and returns at once. A
// request made while a cycle is running joins that cycle.
func (p *Poller) RequestRefresh() {
	go func() {
		_, _, _ = p.group.Do("refresh", func() (any, error) {
			r := p.cycle(context.Background())
			select {
			case p.results <- r:
			case <-p.stop:
				p.logger.Debug("usagepoller: dropping result after stop", "cycle", r.cycleID)
			}
			return nil, nil
		})
	}()
}

// RunOnce runs a single cycle on the caller's goroutine and publishes it.
func (p *Poller) RunOnce(ctx context.Context) usage.Snapshot {
	r := p.cycle(ctx)
	p.publish(r)
	return r.snap
}

func (p *Poller) cycle(ctx context.Context) result {
	id := uuid.NewString()
	p.logger.Debug("usagepoller: refresh started", "cycle", id)
	snap := p.source.Assemble(ctx)
	if snap.Failed() {
		p.logger.Info("usagepoller: refresh failed", "cycle", id, "err", snap.Error)
	} else {
		p.logger.Debug("usagepoller: refresh done", "cycle", id, "used", snap.Used, "total", snap.Total)
	}
	return result{cycleID: id, snap: snap}
}

func (p *Poller) dispatch() {
	for {
		select {
		case r := <-p.results:
			p.publish(r)
		case <-p.stop:
			return
		}
	}
}

func (p *Poller) publish(r result) {
	p.publishMu.Lock()
	defer p.publishMu.Unlock()

	p.state.SetSnapshot(r.snap)
	if p.onUpdate != nil {
		p.onUpdate(r.snap)
	}
	if p.observer != nil {
		p.observer(r.snap)
	}
	if p.broadcaster != nil {
		snap := r.snap
		p.broadcaster.Broadcast(events.Event{
			Type:     events.TypeUsageUpdated,
			CycleID:  r.cycleID,
			Snapshot: &snap,
		})
	}
}

// wait sleeps for d in short chunks so Stop is noticed quickly. It reports
// false if the poller was stopped.
func (p *Poller) wait(d time.Duration) bool {
	chunk, count := sleepChunks(d)
	for i := 0; i < count; i++ {
		t := p.clock.NewTimer(chunk, "poller", "wait")
		select {
		case <-t.C:
		case <-p.stop:
			t.Stop()
			return false
		}
	}
	return true
}

// sleepChunks splits d into at most five chunks of at least one second.
func sleepChunks(d time.Duration) (time.Duration, int) {
	chunk := d / 5
	if chunk < time.Second {
		chunk = time.Second
	}
	count := int((d + chunk - 1) / chunk)
	if count < 1 {
		count = 1
	}
	return chunk, count
}
