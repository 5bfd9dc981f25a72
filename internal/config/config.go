// internal/config/config.go
package config

type Config struct {
	Device    DeviceConfig    `yaml:"device"`
	Protect   ProtectConfig   `yaml:"protect"`
	Export    ExportConfig    `yaml:"export"`
	Simulator SimulatorConfig `yaml:"simulator"`
}

// ---- DEVICE ----

type DeviceConfig struct {
	Endpoint  string `yaml:"endpoint"` // host:port
	UnitID    uint8  `yaml:"unit_id"`
	TimeoutMs int    `yaml:"timeout_ms"`
}

// ---- PROTECTED WRITE ----

// ProtectConfig tunes the nominal current handshake.
// Zero values are replaced by defaults in Normalize.
type ProtectConfig struct {
	SettleMarginMs    int      `yaml:"settle_margin_ms"`
	StepDelayMs       int      `yaml:"step_delay_ms"`
	Attempts          int      `yaml:"attempts"`
	PostWriteSettleMs int      `yaml:"post_write_settle_ms"`
	DefaultBusCycleMs int      `yaml:"default_bus_cycle_ms"`
	DialOnlyModels    []string `yaml:"dial_only_models"`
}

// ---- EXPORT ----

type ExportConfig struct {
	Listen     string `yaml:"listen"`
	IntervalMs int    `yaml:"interval_ms"`
}

// ---- SIMULATOR ----

type SimulatorConfig struct {
	Listen          string            `yaml:"listen"`
	UnitID          uint8             `yaml:"unit_id"`
	PowerModuleName string            `yaml:"power_module_name"`
	QuintName       string            `yaml:"quint_name"`
	BusCycleMs      int               `yaml:"bus_cycle_ms"`
	Modules         []SimModuleConfig `yaml:"modules"`
}

type SimModuleConfig struct {
	Name           string `yaml:"name"`
	Channels       int    `yaml:"channels"`
	NominalCurrent int    `yaml:"nominal_current"`
}
