package main

import (
	"context"
	"log/slog"
	"net/netip"
	"sync"
	"time"

	"github.com/diminuto-go/diminuto/internal/config"
	"github.com/diminuto-go/diminuto/internal/dierr"
	"github.com/diminuto-go/diminuto/internal/endpoint"
	"github.com/diminuto-go/diminuto/internal/meter"
	"github.com/diminuto-go/diminuto/internal/metrics"
	"github.com/diminuto-go/diminuto/internal/ping"
)

// meterPrefix namespaces ping-sweep meters among any other meters a
// future subsystem might register against the same Collector.
const meterPrefix = "ping."

// pingSweep probes a configured set of targets on a fixed interval over
// one shared raw socket, feeding per-target counters and a per-target
// meter.Meter into a Collector. Targets can be swapped at runtime via
// reconcile, driven by a configuration reload.
type pingSweep struct {
	prober    *ping.Prober
	timeout   time.Duration
	collector *metrics.Collector
	logger    *slog.Logger
	seq       ping.SequenceCounter

	mu      sync.Mutex
	targets map[string]netip.Addr
	meters  map[string]*meter.Meter
}

// newPingSweep opens a probe socket for cfg.Family and registers a meter
// for each of cfg.Targets.
func newPingSweep(cfg config.PingConfig, collector *metrics.Collector, logger *slog.Logger) (*pingSweep, error) {
	family := ping.FamilyIPv4
	if cfg.Family == "ip6" {
		family = ping.FamilyIPv6
	}

	prober, err := ping.Open(family)
	if err != nil {
		return nil, err
	}

	s := &pingSweep{
		prober:    prober,
		timeout:   cfg.Timeout,
		collector: collector,
		logger:    logger,
		targets:   make(map[string]netip.Addr),
		meters:    make(map[string]*meter.Meter),
	}
	s.reconcile(cfg.Targets)
	return s, nil
}

// Close releases the sweep's probe socket.
func (s *pingSweep) Close() error {
	return s.prober.Close()
}

// reconcile replaces the active target set with targets, registering a
// meter for each newly added target and unregistering one for each
// removed target. Targets that fail to parse are logged and skipped.
func (s *pingSweep) reconcile(targets []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	desired := make(map[string]netip.Addr, len(targets))
	for _, t := range targets {
		e, err := endpoint.Parse(t)
		if err != nil {
			s.logger.Error("skip invalid ping target", slog.String("target", t), slog.String("error", err.Error()))
			continue
		}
		addr, ok := e.Address()
		if !ok {
			s.logger.Error("ping target has no address", slog.String("target", t))
			continue
		}
		desired[t] = addr
	}

	for name := range s.targets {
		if _, ok := desired[name]; ok {
			continue
		}
		s.collector.UnregisterMeter(meterPrefix + name)
		delete(s.meters, name)
		delete(s.targets, name)
	}

	for name, addr := range desired {
		if _, ok := s.targets[name]; ok {
			continue
		}
		m := &meter.Meter{}
		if err := s.collector.RegisterMeter(meterPrefix+name, m); err != nil {
			s.logger.Error("register ping meter failed", slog.String("target", name), slog.String("error", err.Error()))
			continue
		}
		s.meters[name] = m
		s.targets[name] = addr
	}
}

// Run sweeps every configured target once per interval until ctx is
// cancelled.
func (s *pingSweep) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.sweepOnce()
		}
	}
}

func (s *pingSweep) sweepOnce() {
	s.mu.Lock()
	targets := make(map[string]netip.Addr, len(s.targets))
	for name, addr := range s.targets {
		targets[name] = addr
	}
	s.mu.Unlock()

	for name, addr := range targets {
		s.probe(name, addr)
	}
}

// probe sends one echo to addr and waits synchronously for its reply,
// bounded by the sweep's configured timeout. Because the probe socket is
// shared across targets, probing one target at a time avoids having to
// correlate replies across targets in flight.
func (s *pingSweep) probe(name string, addr netip.Addr) {
	const id = 1
	seq := s.seq.Next()

	n, err := s.prober.Send(addr, id, seq)
	if err != nil {
		s.logger.Warn("ping send failed", slog.String("target", name), slog.String("error", err.Error()))
		return
	}
	s.collector.IncEchoSent(addr)

	if err := s.prober.SetDeadline(time.Now().Add(s.timeout)); err != nil {
		s.logger.Warn("ping set deadline failed", slog.String("target", name), slog.String("error", err.Error()))
		return
	}

	buf := make([]byte, 1500)
	ok, _, _, _, _, _, err := s.prober.Receive(buf, n)
	switch {
	case dierr.Transient(err):
		s.collector.IncEchoTimedOut(addr)
	case err != nil:
		s.logger.Warn("ping receive failed", slog.String("target", name), slog.String("error", err.Error()))
	case !ok:
		// Datagram rejected by the validation predicates (for example our
		// own reflected echo request); only one datagram is read per probe.
	default:
		s.collector.IncEchoReceived(addr)
		s.recordEvent(name)
	}
}

func (s *pingSweep) recordEvent(name string) {
	s.mu.Lock()
	m := s.meters[name]
	s.mu.Unlock()
	if m == nil {
		return
	}
	_ = m.Events(meter.Ticks(time.Now().UnixNano()), 1)
}
