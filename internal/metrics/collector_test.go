package metrics_test

import (
	"net/netip"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/diminuto-go/diminuto/internal/meter"
	"github.com/diminuto-go/diminuto/internal/metrics"
)

func TestNewCollector(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	c := metrics.NewCollector(reg)

	if c.BytesSent == nil {
		t.Error("BytesSent is nil")
	}
	if c.BytesReceived == nil {
		t.Error("BytesReceived is nil")
	}
	if c.IOErrors == nil {
		t.Error("IOErrors is nil")
	}
	if c.EchoSent == nil {
		t.Error("EchoSent is nil")
	}
	if c.EchoReceived == nil {
		t.Error("EchoReceived is nil")
	}
	if c.EchoTimedOut == nil {
		t.Error("EchoTimedOut is nil")
	}
	if c.LockWaiters == nil {
		t.Error("LockWaiters is nil")
	}

	if _, err := reg.Gather(); err != nil {
		t.Fatalf("Gather() error: %v", err)
	}
}

func TestIPCCounters(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	c := metrics.NewCollector(reg)

	c.AddBytesSent("tcp4", 100)
	c.AddBytesSent("tcp4", 50)
	c.AddBytesReceived("tcp4", 200)
	c.IncIOErrors("tcp4")

	if got := counterValue(t, c.BytesSent, "tcp4"); got != 150 {
		t.Errorf("BytesSent = %v, want 150", got)
	}
	if got := counterValue(t, c.BytesReceived, "tcp4"); got != 200 {
		t.Errorf("BytesReceived = %v, want 200", got)
	}
	if got := counterValue(t, c.IOErrors, "tcp4"); got != 1 {
		t.Errorf("IOErrors = %v, want 1", got)
	}
}

func TestPingCounters(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	c := metrics.NewCollector(reg)

	target := netip.MustParseAddr("10.0.0.1")

	c.IncEchoSent(target)
	c.IncEchoSent(target)
	c.IncEchoReceived(target)
	c.IncEchoTimedOut(target)

	if got := counterValue(t, c.EchoSent, target.String()); got != 2 {
		t.Errorf("EchoSent = %v, want 2", got)
	}
	if got := counterValue(t, c.EchoReceived, target.String()); got != 1 {
		t.Errorf("EchoReceived = %v, want 1", got)
	}
	if got := counterValue(t, c.EchoTimedOut, target.String()); got != 1 {
		t.Errorf("EchoTimedOut = %v, want 1", got)
	}
}

func TestLockWaiters(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	c := metrics.NewCollector(reg)

	c.SetLockWaiters("ifcache", 3)

	if got := gaugeValue(t, c.LockWaiters, "ifcache"); got != 3 {
		t.Errorf("LockWaiters = %v, want 3", got)
	}

	c.SetLockWaiters("ifcache", 0)

	if got := gaugeValue(t, c.LockWaiters, "ifcache"); got != 0 {
		t.Errorf("LockWaiters = %v, want 0", got)
	}
}

func TestRegisterMeterExposesLiveValues(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	c := metrics.NewCollector(reg)

	var m meter.Meter
	if err := m.Events(0, 1); err != nil {
		t.Fatalf("Events() = %v", err)
	}
	if err := m.Events(10, 1); err != nil {
		t.Fatalf("Events() = %v", err)
	}

	if err := c.RegisterMeter("ping.echo", &m); err != nil {
		t.Fatalf("RegisterMeter() error: %v", err)
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error: %v", err)
	}

	found := map[string]float64{}
	for _, fam := range families {
		for _, metricFam := range fam.GetMetric() {
			for _, lp := range metricFam.GetLabel() {
				if lp.GetName() == "meter" && lp.GetValue() == "ping.echo" {
					found[fam.GetName()] = metricFam.GetGauge().GetValue()
				}
			}
		}
	}

	peak, ok := found["diminuto_meter_peak_rate"]
	if !ok {
		t.Fatal("diminuto_meter_peak_rate not found for meter ping.echo")
	}
	if want := 1.0 / 10.0; peak != want {
		t.Errorf("peak_rate = %v, want %v", peak, want)
	}

	if _, ok := found["diminuto_meter_sustained_rate"]; !ok {
		t.Error("diminuto_meter_sustained_rate not found for meter ping.echo")
	}
	if _, ok := found["diminuto_meter_largest_burst"]; !ok {
		t.Error("diminuto_meter_largest_burst not found for meter ping.echo")
	}
}

func TestRegisterMeterRejectsDuplicateName(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	c := metrics.NewCollector(reg)

	var a, b meter.Meter
	if err := c.RegisterMeter("dup", &a); err != nil {
		t.Fatalf("first RegisterMeter() error: %v", err)
	}
	if err := c.RegisterMeter("dup", &b); err == nil {
		t.Fatal("second RegisterMeter(\"dup\") = nil error, want error")
	}
}

func TestUnregisterMeterRemovesGauges(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	c := metrics.NewCollector(reg)

	var m meter.Meter
	if err := c.RegisterMeter("transient", &m); err != nil {
		t.Fatalf("RegisterMeter() error: %v", err)
	}
	c.UnregisterMeter("transient")

	// Re-registering under the same name must succeed once unregistered.
	if err := c.RegisterMeter("transient", &m); err != nil {
		t.Fatalf("RegisterMeter() after Unregister() error: %v", err)
	}
}

// -------------------------------------------------------------------------
// Helpers
// -------------------------------------------------------------------------

func gaugeValue(t *testing.T, vec *prometheus.GaugeVec, labels ...string) float64 {
	t.Helper()

	gauge, err := vec.GetMetricWithLabelValues(labels...)
	if err != nil {
		t.Fatalf("GetMetricWithLabelValues(%v): %v", labels, err)
	}

	m := &dto.Metric{}
	if err := gauge.Write(m); err != nil {
		t.Fatalf("Write metric: %v", err)
	}

	return m.GetGauge().GetValue()
}

func counterValue(t *testing.T, vec *prometheus.CounterVec, labels ...string) float64 {
	t.Helper()

	counter, err := vec.GetMetricWithLabelValues(labels...)
	if err != nil {
		t.Fatalf("GetMetricWithLabelValues(%v): %v", labels, err)
	}

	m := &dto.Metric{}
	if err := counter.Write(m); err != nil {
		t.Fatalf("Write metric: %v", err)
	}

	return m.GetCounter().GetValue()
}
