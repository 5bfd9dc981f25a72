// internal/exporter/metrics.go
package exporter

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tamzrod/caparoc/internal/device"
	"github.com/tamzrod/caparoc/internal/status"
)

const namespace = "caparoc"

// Metrics holds the gauges of one device on a private registry.
type Metrics struct {
	reg *prometheus.Registry

	globalStatus   *prometheus.GaugeVec
	totalCurrent   prometheus.Gauge
	inputVoltage   prometheus.Gauge
	sumNominal     prometheus.Gauge
	temperature    prometheus.Gauge
	busCycle       prometheus.Gauge
	modules        prometheus.Gauge
	readErrors     prometheus.Gauge
	channelLoad    *prometheus.GaugeVec
	channelNominal *prometheus.GaugeVec
	channelStatus  *prometheus.GaugeVec

	health         prometheus.Gauge
	lastErrorCode  prometheus.Gauge
	secondsInError prometheus.Gauge
	lastPoll       prometheus.Gauge
}

func NewMetrics() *Metrics {
	m := &Metrics{reg: prometheus.NewRegistry()}

	m.globalStatus = m.addGaugeVec("global_status", "Global status flag (1 = active)", "flag")
	m.totalCurrent = m.addGauge("total_system_current_amperes", "Total system current (A)")
	m.inputVoltage = m.addGauge("input_voltage_volts", "Input voltage (V)")
	m.sumNominal = m.addGauge("sum_nominal_currents_amperes", "Sum of nominal currents (A)")
	m.temperature = m.addGauge("internal_temperature_celsius", "Internal temperature (°C)")
	m.busCycle = m.addGauge("max_bus_cycle_milliseconds", "Maximum internal bus cycle (ms)")
	m.modules = m.addGauge("connected_modules", "Number of connected circuit breaker modules")
	m.readErrors = m.addGauge("snapshot_read_errors", "Items that could not be read in the last snapshot")
	m.channelLoad = m.addGaugeVec("channel_load_current_amperes", "Channel load current (A)", "module", "channel")
	m.channelNominal = m.addGaugeVec("channel_nominal_current_amperes", "Channel nominal current (A)", "module", "channel")
	m.channelStatus = m.addGaugeVec("channel_status", "Channel status flag (1 = active)", "module", "channel", "flag")

	m.health = m.addGauge("poll_health", "Poll health (0 unknown, 1 ok, 2 error)")
	m.lastErrorCode = m.addGauge("poll_last_error_code", "Error code of the last failed poll (0 when healthy)")
	m.secondsInError = m.addGauge("poll_seconds_in_error", "Seconds since the poll left the OK state")
	m.lastPoll = m.addGauge("last_successful_poll_timestamp_seconds", "Unix time of the last successful poll")

	return m
}

func (m *Metrics) addGauge(name, help string) prometheus.Gauge {
	g := prometheus.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: name, Help: help})
	m.reg.MustRegister(g)
	return g
}

func (m *Metrics) addGaugeVec(name, help string, labels ...string) *prometheus.GaugeVec {
	g := prometheus.NewGaugeVec(prometheus.GaugeOpts{Namespace: namespace, Name: name, Help: help}, labels)
	m.reg.MustRegister(g)
	return g
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

// SetHealth publishes the poll health gauges.
func (m *Metrics) SetHealth(h Health) {
	m.health.Set(float64(h.State))
	m.lastErrorCode.Set(float64(h.LastErrorCode))
	m.secondsInError.Set(float64(h.SecondsInError))
}

// Update publishes one snapshot. Per-channel series are rebuilt, so
// unplugged modules and unreadable items disappear instead of going stale.
func (m *Metrics) Update(s *device.Snapshot, unixSeconds float64) {
	m.lastPoll.Set(unixSeconds)
	m.readErrors.Set(float64(len(s.Errors)))
	m.modules.Set(float64(len(s.Modules)))

	if !s.Failed(device.ItemGlobalStatus) {
		setFlags(m.globalStatus, nil, status.GlobalFlagNames(), s.Global.Active())
	}
	setIf(s, device.ItemTotalSystemCurrent, m.totalCurrent, float64(s.TotalSystemCurrent))
	setIf(s, device.ItemInputVoltage, m.inputVoltage, s.InputVoltage.Volts())
	setIf(s, device.ItemSumNominalCurrents, m.sumNominal, float64(s.SumNominalCurrents))
	setIf(s, device.ItemTemperature, m.temperature, float64(s.Temperature))
	setIf(s, device.ItemMaxBusCycle, m.busCycle, float64(s.MaxBusCycle))

	m.channelLoad.Reset()
	m.channelNominal.Reset()
	m.channelStatus.Reset()

	for _, mod := range s.Modules {
		ml := strconv.Itoa(mod.Module)
		for _, ch := range mod.Channels {
			cl := strconv.Itoa(ch.Channel)
			if !s.Failed(device.ChannelItem(mod.Module, ch.Channel, device.ItemLoad)) {
				m.channelLoad.WithLabelValues(ml, cl).Set(ch.Load.Amperes())
			}
			if !s.Failed(device.ChannelItem(mod.Module, ch.Channel, device.ItemNominal)) {
				m.channelNominal.WithLabelValues(ml, cl).Set(float64(ch.NominalCurrent))
			}
			if !s.Failed(device.ChannelItem(mod.Module, ch.Channel, device.ItemStatus)) {
				setFlags(m.channelStatus, []string{ml, cl}, status.ChannelFlagNames(), ch.Status.Active())
			}
		}
	}
}

func setIf(s *device.Snapshot, item string, g prometheus.Gauge, v float64) {
	if !s.Failed(item) {
		g.Set(v)
	}
}

// setFlags writes one series per flag name: 1 when active, else 0.
func setFlags(vec *prometheus.GaugeVec, labels, names, active []string) {
	on := make(map[string]bool, len(active))
	for _, a := range active {
		on[a] = true
	}
	for _, n := range names {
		v := 0.0
		if on[n] {
			v = 1
		}
		lv := append(append([]string(nil), labels...), n)
		vec.WithLabelValues(lv...).Set(v)
	}
}
