// internal/config/validate.go
package config

import (
	"fmt"
	"net"

	"github.com/tamzrod/caparoc/internal/register"
)

// MaxAttempts bounds protect.attempts.
const MaxAttempts = 20

// Validate checks configuration correctness.
// It performs declarative validation only.
// It MUST NOT mutate configuration.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config: nil configuration")
	}

	// ------------------------------------------------------------
	// DEVICE
	// ------------------------------------------------------------

	if cfg.Device.Endpoint != "" {
		if err := checkHostPort("device.endpoint", cfg.Device.Endpoint); err != nil {
			return err
		}
	}
	if cfg.Device.TimeoutMs < 0 {
		return fmt.Errorf("device.timeout_ms must not be negative")
	}

	// ------------------------------------------------------------
	// PROTECTED WRITE TIMING
	// ------------------------------------------------------------

	p := cfg.Protect
	for _, f := range []struct {
		name string
		v    int
	}{
		{"protect.settle_margin_ms", p.SettleMarginMs},
		{"protect.step_delay_ms", p.StepDelayMs},
		{"protect.post_write_settle_ms", p.PostWriteSettleMs},
		{"protect.default_bus_cycle_ms", p.DefaultBusCycleMs},
	} {
		if f.v < 0 {
			return fmt.Errorf("%s must not be negative", f.name)
		}
	}
	if p.Attempts < 0 || p.Attempts > MaxAttempts {
		return fmt.Errorf("protect.attempts must be between 0 and %d", MaxAttempts)
	}
	for i, m := range p.DialOnlyModels {
		if m == "" {
			return fmt.Errorf("protect.dial_only_models[%d] is empty", i)
		}
	}

	// ------------------------------------------------------------
	// EXPORT
	// ------------------------------------------------------------

	if cfg.Export.Listen != "" {
		if err := checkHostPort("export.listen", cfg.Export.Listen); err != nil {
			return err
		}
	}
	if cfg.Export.IntervalMs < 0 {
		return fmt.Errorf("export.interval_ms must not be negative")
	}

	// ------------------------------------------------------------
	// SIMULATOR
	// ------------------------------------------------------------

	s := cfg.Simulator
	if s.Listen != "" {
		if err := checkHostPort("simulator.listen", s.Listen); err != nil {
			return err
		}
	}
	if s.BusCycleMs < 0 || s.BusCycleMs > 0xFFFF {
		return fmt.Errorf("simulator.bus_cycle_ms must be between 0 and 65535")
	}
	if err := checkDeviceString("simulator.power_module_name", s.PowerModuleName); err != nil {
		return err
	}
	if err := checkDeviceString("simulator.quint_name", s.QuintName); err != nil {
		return err
	}
	if len(s.Modules) > register.MaxModules {
		return fmt.Errorf("simulator.modules: %d modules configured, device supports at most %d",
			len(s.Modules), register.MaxModules)
	}
	for i, m := range s.Modules {
		field := fmt.Sprintf("simulator.modules[%d]", i)
		if m.Channels < 1 || m.Channels > register.ChannelStride {
			return fmt.Errorf("%s.channels must be between 1 and %d", field, register.ChannelStride)
		}
		if m.NominalCurrent < 0 || m.NominalCurrent > 0xFFFF {
			return fmt.Errorf("%s.nominal_current must be between 0 and 65535", field)
		}
		if err := checkDeviceString(field+".name", m.Name); err != nil {
			return err
		}
	}

	return nil
}

func checkHostPort(field, v string) error {
	if _, _, err := net.SplitHostPort(v); err != nil {
		return fmt.Errorf("%s %q must be host:port: %w", field, v, err)
	}
	return nil
}

// checkDeviceString enforces what fits in one STRING32 field.
func checkDeviceString(field, v string) error {
	for i := 0; i < len(v); i++ {
		if v[i] > 0x7F {
			return fmt.Errorf("%s must contain ASCII characters only", field)
		}
	}
	if len(v) > 2*register.String32Registers {
		return fmt.Errorf("%s must be at most %d characters", field, 2*register.String32Registers)
	}
	return nil
}
