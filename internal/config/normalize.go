// internal/config/normalize.go
package config

import (
	"time"

	"github.com/tamzrod/caparoc/internal/protect"
	"github.com/tamzrod/caparoc/internal/sim"
)

// Defaults applied by Normalize.
const (
	DefaultEndpoint        = "192.168.1.2:502"
	DefaultUnitID          = 1
	DefaultTimeoutMs       = 1000
	DefaultExportListen    = ":9502"
	DefaultExportInterval  = 1000
	DefaultSimulatorListen = "127.0.0.1:5020"
)

// Normalize applies post-validation normalization.
// It is allowed to mutate configuration.
// It MUST be called only after Validate().
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}

	// ------------------------------------------------------------
	// DEVICE
	// ------------------------------------------------------------

	if cfg.Device.Endpoint == "" {
		cfg.Device.Endpoint = DefaultEndpoint
	}
	if cfg.Device.UnitID == 0 {
		cfg.Device.UnitID = DefaultUnitID
	}
	if cfg.Device.TimeoutMs == 0 {
		cfg.Device.TimeoutMs = DefaultTimeoutMs
	}

	// ------------------------------------------------------------
	// PROTECTED WRITE
	// ------------------------------------------------------------

	def := protect.DefaultTiming()
	p := &cfg.Protect
	setMs(&p.SettleMarginMs, def.SettleMargin)
	setMs(&p.StepDelayMs, def.StepDelay)
	setMs(&p.PostWriteSettleMs, def.PostWriteSettle)
	setMs(&p.DefaultBusCycleMs, def.DefaultBusCycle)
	if p.Attempts == 0 {
		p.Attempts = def.Attempts
	}
	if len(p.DialOnlyModels) == 0 {
		p.DialOnlyModels = append([]string(nil), protect.DefaultDialOnlyModels...)
	}

	// ------------------------------------------------------------
	// EXPORT
	// ------------------------------------------------------------

	if cfg.Export.Listen == "" {
		cfg.Export.Listen = DefaultExportListen
	}
	if cfg.Export.IntervalMs == 0 {
		cfg.Export.IntervalMs = DefaultExportInterval
	}

	// ------------------------------------------------------------
	// SIMULATOR
	// ------------------------------------------------------------

	sd := sim.DefaultConfig()
	s := &cfg.Simulator
	if s.Listen == "" {
		s.Listen = DefaultSimulatorListen
	}
	if s.UnitID == 0 {
		s.UnitID = DefaultUnitID
	}
	if s.PowerModuleName == "" {
		s.PowerModuleName = sd.PowerModuleName
	}
	if s.QuintName == "" {
		s.QuintName = sd.QuintName
	}
	if s.BusCycleMs == 0 {
		s.BusCycleMs = int(sd.BusCycleMs)
	}
	if len(s.Modules) == 0 {
		for _, m := range sd.Modules {
			s.Modules = append(s.Modules, SimModuleConfig{
				Name:           m.Name,
				Channels:       m.Channels,
				NominalCurrent: int(m.NominalCurrent),
			})
		}
	}
}

func setMs(v *int, d time.Duration) {
	if *v == 0 {
		*v = int(d / time.Millisecond)
	}
}

// ---- CONVERSIONS ----

func (c DeviceConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMs) * time.Millisecond
}

// Timing converts the handshake settings. Call after Normalize.
func (p ProtectConfig) Timing() protect.Timing {
	return protect.Timing{
		SettleMargin:    ms(p.SettleMarginMs),
		DefaultBusCycle: ms(p.DefaultBusCycleMs),
		StepDelay:       ms(p.StepDelayMs),
		PostWriteSettle: ms(p.PostWriteSettleMs),
		Attempts:        p.Attempts,
	}
}

func (e ExportConfig) Interval() time.Duration {
	return ms(e.IntervalMs)
}

// DeviceConfig builds the simulated device description. Call after Normalize.
func (s SimulatorConfig) DeviceConfig() sim.Config {
	out := sim.DefaultConfig()
	out.PowerModuleName = s.PowerModuleName
	out.QuintName = s.QuintName
	out.BusCycleMs = uint16(s.BusCycleMs)
	out.Modules = nil
	for _, m := range s.Modules {
		out.Modules = append(out.Modules, sim.ModuleConfig{
			Name:           m.Name,
			Channels:       m.Channels,
			NominalCurrent: uint16(m.NominalCurrent),
		})
	}
	return out
}

func ms(v int) time.Duration { return time.Duration(v) * time.Millisecond }
