// Package metrics exposes diminuto's socket, probe, lock, and meter
// counters to Prometheus.
package metrics

import (
	"fmt"
	"net/netip"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/diminuto-go/diminuto/internal/meter"
)

// -------------------------------------------------------------------------
// Prometheus Metric Constants
// -------------------------------------------------------------------------

const namespace = "diminuto"

// Label names.
const (
	labelFamily    = "family"
	labelLockName  = "lock"
	labelTarget    = "target"
	labelMeterName = "meter"
)

// -------------------------------------------------------------------------
// Collector — Prometheus diminuto Metrics
// -------------------------------------------------------------------------

// Collector holds all diminuto Prometheus metrics.
//
//   - ipc subsystem: bytes/datagrams moved and errors per socket family.
//   - ping subsystem: echoes sent/received/timed-out per target.
//   - rwlock subsystem: waiter depth per named lock.
//   - meter subsystem: peak/sustained/burst rate, one GaugeFunc trio per
//     registered meter, added and removed as meters come and go.
type Collector struct {
	reg prometheus.Registerer

	// BytesSent counts bytes written through internal/ipc, per socket family.
	BytesSent *prometheus.CounterVec

	// BytesReceived counts bytes read through internal/ipc, per socket family.
	BytesReceived *prometheus.CounterVec

	// IOErrors counts internal/ipc I/O errors, per socket family.
	IOErrors *prometheus.CounterVec

	// EchoSent counts ICMP echo requests transmitted, per target.
	EchoSent *prometheus.CounterVec

	// EchoReceived counts accepted ICMP echo replies, per target.
	EchoReceived *prometheus.CounterVec

	// EchoTimedOut counts echoes that received no accepted reply before
	// their deadline, per target.
	EchoTimedOut *prometheus.CounterVec

	// LockWaiters tracks the current waitlist depth of a named
	// internal/rwlock.Lock.
	LockWaiters *prometheus.GaugeVec

	mu     sync.Mutex
	meters map[string]meterGauges
}

type meterGauges struct {
	peak      prometheus.Collector
	sustained prometheus.Collector
	burst     prometheus.Collector
}

// NewCollector creates a Collector with its static metrics registered
// against the provided prometheus.Registerer. If reg is nil,
// prometheus.DefaultRegisterer is used.
func NewCollector(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	c := newMetrics(reg)

	reg.MustRegister(
		c.BytesSent,
		c.BytesReceived,
		c.IOErrors,
		c.EchoSent,
		c.EchoReceived,
		c.EchoTimedOut,
		c.LockWaiters,
	)

	return c
}

func newMetrics(reg prometheus.Registerer) *Collector {
	familyLabels := []string{labelFamily}
	targetLabels := []string{labelTarget}
	lockLabels := []string{labelLockName}

	return &Collector{
		reg:    reg,
		meters: make(map[string]meterGauges),

		BytesSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ipc",
			Name:      "bytes_sent_total",
			Help:      "Total bytes written through an ipc Handle.",
		}, familyLabels),

		BytesReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ipc",
			Name:      "bytes_received_total",
			Help:      "Total bytes read through an ipc Handle.",
		}, familyLabels),

		IOErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ipc",
			Name:      "io_errors_total",
			Help:      "Total ipc I/O errors, excluding transient timeouts.",
		}, familyLabels),

		EchoSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ping",
			Name:      "echo_sent_total",
			Help:      "Total ICMP echo requests transmitted.",
		}, targetLabels),

		EchoReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ping",
			Name:      "echo_received_total",
			Help:      "Total accepted ICMP echo replies.",
		}, targetLabels),

		EchoTimedOut: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ping",
			Name:      "echo_timed_out_total",
			Help:      "Total echoes with no accepted reply before their deadline.",
		}, targetLabels),

		LockWaiters: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "rwlock",
			Name:      "waiters",
			Help:      "Current waitlist depth of a named reader-writer lock.",
		}, lockLabels),
	}
}

// -------------------------------------------------------------------------
// ipc
// -------------------------------------------------------------------------

// AddBytesSent adds n to the bytes-sent counter for family.
func (c *Collector) AddBytesSent(family string, n int) {
	c.BytesSent.WithLabelValues(family).Add(float64(n))
}

// AddBytesReceived adds n to the bytes-received counter for family.
func (c *Collector) AddBytesReceived(family string, n int) {
	c.BytesReceived.WithLabelValues(family).Add(float64(n))
}

// IncIOErrors increments the I/O error counter for family.
func (c *Collector) IncIOErrors(family string) {
	c.IOErrors.WithLabelValues(family).Inc()
}

// -------------------------------------------------------------------------
// ping
// -------------------------------------------------------------------------

// IncEchoSent increments the echo-sent counter for target.
func (c *Collector) IncEchoSent(target netip.Addr) {
	c.EchoSent.WithLabelValues(target.String()).Inc()
}

// IncEchoReceived increments the echo-received counter for target.
func (c *Collector) IncEchoReceived(target netip.Addr) {
	c.EchoReceived.WithLabelValues(target.String()).Inc()
}

// IncEchoTimedOut increments the echo-timed-out counter for target.
func (c *Collector) IncEchoTimedOut(target netip.Addr) {
	c.EchoTimedOut.WithLabelValues(target.String()).Inc()
}

// -------------------------------------------------------------------------
// rwlock
// -------------------------------------------------------------------------

// SetLockWaiters sets the current waitlist depth gauge for the named lock.
func (c *Collector) SetLockWaiters(name string, depth int) {
	c.LockWaiters.WithLabelValues(name).Set(float64(depth))
}

// -------------------------------------------------------------------------
// meter
// -------------------------------------------------------------------------

// RegisterMeter exposes m's Peak, Sustained, and Burst as a GaugeFunc trio
// labeled by name (e.g. "ipc.accept", "ping.echo"). Registering the same
// name twice returns an error without altering the existing registration.
func (c *Collector) RegisterMeter(name string, m *meter.Meter) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.meters[name]; exists {
		return fmt.Errorf("metrics: meter %q already registered", name)
	}

	labels := prometheus.Labels{labelMeterName: name}

	peak := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace:   namespace,
		Subsystem:   "meter",
		Name:        "peak_rate",
		Help:        "Highest instantaneous events-per-tick rate observed by a meter.",
		ConstLabels: labels,
	}, func() float64 {
		v, err := m.Peak()
		if err != nil {
			return 0
		}
		return v
	})

	sustained := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace:   namespace,
		Subsystem:   "meter",
		Name:        "sustained_rate",
		Help:        "Average events-per-tick rate across a meter's observed window.",
		ConstLabels: labels,
	}, func() float64 {
		v, err := m.Sustained()
		if err != nil {
			return 0
		}
		return v
	})

	burst := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace:   namespace,
		Subsystem:   "meter",
		Name:        "largest_burst",
		Help:        "Largest single-call event count observed by a meter.",
		ConstLabels: labels,
	}, func() float64 {
		return float64(m.Burst())
	})

	if err := c.reg.Register(peak); err != nil {
		return fmt.Errorf("register meter %q peak gauge: %w", name, err)
	}
	if err := c.reg.Register(sustained); err != nil {
		c.reg.Unregister(peak)
		return fmt.Errorf("register meter %q sustained gauge: %w", name, err)
	}
	if err := c.reg.Register(burst); err != nil {
		c.reg.Unregister(peak)
		c.reg.Unregister(sustained)
		return fmt.Errorf("register meter %q burst gauge: %w", name, err)
	}

	c.meters[name] = meterGauges{peak: peak, sustained: sustained, burst: burst}
	return nil
}

// UnregisterMeter removes a meter's gauges, e.g. when a ping target is
// dropped from the configured sweep list. It is a no-op if name was never
// registered.
func (c *Collector) UnregisterMeter(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	g, ok := c.meters[name]
	if !ok {
		return
	}
	c.reg.Unregister(g.peak)
	c.reg.Unregister(g.sustained)
	c.reg.Unregister(g.burst)
	delete(c.meters, name)
}
