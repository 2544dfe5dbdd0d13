// Package netwatch owns connectivity state: a periodic reachability probe
// loop, the last known status, and a subscription feed that emits only when
// the status flips. The monitor emits signals; it never mutates auth state.
package netwatch

import (
	"context"
	"sync"
	"time"

	"github.com/sciqlabs/tutorlink/internal/logging"
	"github.com/sciqlabs/tutorlink/internal/metrics"
	"github.com/sciqlabs/tutorlink/internal/netx"
)

const (
	// DefaultInterval is the probe period when none is configured.
	DefaultInterval = 30 * time.Second

	// subscriber channels are buffered so a slow consumer never blocks
	// the probe loop
	subscriberBuffer = 4
)

// Status is the last known connectivity state, replaced atomically as a
// whole value.
type Status struct {
	Connected bool
	ProbedAt  time.Time
}

// Monitor runs the recurring reachability probe.
type Monitor struct {
	prober       netx.Prober
	interval     time.Duration
	probeTimeout time.Duration
	log          logging.Logger

	mu      sync.Mutex
	current Status
	probed  bool
	running bool
	stopped bool
	cancel  context.CancelFunc
	done    chan struct{}
	subs    map[uint64]chan Status
	nextSub uint64
}

type Option func(*Monitor)

func WithInterval(d time.Duration) Option {
	return func(m *Monitor) { m.interval = d }
}

func WithProbeTimeout(d time.Duration) Option {
	return func(m *Monitor) { m.probeTimeout = d }
}

func WithLogger(log logging.Logger) Option {
	return func(m *Monitor) { m.log = log }
}

func New(prober netx.Prober, opts ...Option) *Monitor {
	m := &Monitor{
		prober:       prober,
		interval:     DefaultInterval,
		probeTimeout: netx.DefaultProbeTimeout,
		log:          logging.NewNopLogger(),
		subs:         make(map[uint64]chan Status),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start begins the recurring probe: one immediate probe, then one per
// interval. Idempotent; a second call while running is a no-op.
func (m *Monitor) Start(ctx context.Context) {
	m.mu.Lock()
	if m.running || m.stopped {
		m.mu.Unlock()
		return
	}
	m.running = true
	ctx, m.cancel = context.WithCancel(ctx)
	m.done = make(chan struct{})
	m.mu.Unlock()

	m.ProbeNow(ctx)

	go m.loop(ctx)
}

func (m *Monitor) loop(ctx context.Context) {
	defer close(m.done)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.ProbeNow(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// Stop cancels the recurring probe and closes the feed: existing
// subscribers receive a terminal close, new Subscribe calls get an already
// closed channel. Idempotent and deterministic.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return
	}
	m.stopped = true
	running := m.running
	m.running = false
	cancel := m.cancel
	done := m.done
	subs := m.subs
	m.subs = make(map[uint64]chan Status)
	m.mu.Unlock()

	if running {
		cancel()
		<-done
	}
	for _, ch := range subs {
		close(ch)
	}
}

// Current returns the last known status without blocking.
func (m *Monitor) Current() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Subscribe returns a feed that delivers a value only when connectivity
// flips, plus a handle that unsubscribes. Subscriber failures are isolated:
// a full channel is skipped, never waited on.
func (m *Monitor) Subscribe() (<-chan Status, context.CancelFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ch := make(chan Status, subscriberBuffer)
	if m.stopped {
		close(ch)
		return ch, func() {}
	}

	id := m.nextSub
	m.nextSub++
	m.subs[id] = ch

	return ch, func() { m.unsubscribe(id) }
}

func (m *Monitor) unsubscribe(id uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ch, ok := m.subs[id]; ok {
		delete(m.subs, id)
		close(ch)
	}
}

// ProbeNow forces an immediate probe, updates the current status, and emits
// a change if connectivity flipped. Probe failures of any kind fold into
// Connected=false; ProbeNow never returns an error.
func (m *Monitor) ProbeNow(ctx context.Context) Status {
	probeCtx, cancel := context.WithTimeout(ctx, m.probeTimeout)
	err := m.prober.Probe(probeCtx)
	cancel()

	status := Status{Connected: err == nil, ProbedAt: time.Now()}
	if err == nil {
		metrics.ProbesTotal.WithLabelValues("up").Inc()
	} else {
		metrics.ProbesTotal.WithLabelValues("down").Inc()
		m.log.Debug(ctx, "probe failed", "error", err)
	}

	m.publish(ctx, status)
	return status
}

func (m *Monitor) publish(ctx context.Context, status Status) {
	m.mu.Lock()
	flipped := !m.probed || m.current.Connected != status.Connected
	m.probed = true
	m.current = status

	if flipped {
		// non-blocking sends under the lock keep delivery ordered and
		// safe against concurrent unsubscribe closing a channel
		for _, ch := range m.subs {
			select {
			case ch <- status:
			default:
			}
		}
	}
	m.mu.Unlock()

	if !flipped {
		return
	}

	state := "offline"
	if status.Connected {
		state = "online"
	}
	metrics.StatusFlips.WithLabelValues(state).Inc()
	m.log.Info(ctx, "connectivity changed", "connected", status.Connected)
}
