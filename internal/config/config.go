// internal/config/config.go
package config

type Config struct {
	Blaster BlasterConfig `yaml:"blaster"`
}

type BlasterConfig struct {
	CycleMs    int `yaml:"cycle_ms"`
	DebounceMs int `yaml:"debounce_ms"`

	// nil => true (every blast exit counts)
	CountAbortedBlasts *bool `yaml:"count_aborted_blasts"`

	HeartbeatMs int `yaml:"heartbeat_ms"`

	// 0 disables the pressure feedback check (needs lines.pressure)
	PneumaticSettleMs int `yaml:"pneumatic_settle_ms"`

	Persist  PersistConfig  `yaml:"persist"`
	Watchdog WatchdogConfig `yaml:"watchdog"`
	Actuator ActuatorConfig `yaml:"actuator"`

	// Optional Modbus TCP I/O coupler (opt-in)
	RemoteIO *RemoteIOConfig `yaml:"remote_io"`

	// Optional status mirror (opt-in)
	Status *StatusConfig `yaml:"status"`

	Lines    map[string]LineConfig `yaml:"lines"`
	Operator OperatorConfig        `yaml:"operator"`
}

// ---- PERSISTENCE ----

type PersistConfig struct {
	Path       string `yaml:"path"`
	IntervalMs int    `yaml:"interval_ms"`
}

// ---- LIVENESS ----

type WatchdogConfig struct {
	TimeoutMs int    `yaml:"timeout_ms"`
	Device    string `yaml:"device"` // optional kernel watchdog, e.g. /dev/watchdog
}

// ---- ACTUATOR ----

type ActuatorConfig struct {
	StrobeMs    int  `yaml:"strobe_ms"`
	TimeoutMs   int  `yaml:"timeout_ms"`
	HomeConfirm bool `yaml:"home_confirm"` // requires lines.home_sensor
}

// ---- REMOTE I/O ----

type RemoteIOConfig struct {
	Endpoint   string `yaml:"endpoint"`
	UnitID     uint8  `yaml:"unit_id"`
	TimeoutMs  int    `yaml:"timeout_ms"`
	InputBase  uint16 `yaml:"input_base"`
	InputCount uint16 `yaml:"input_count"`
}

// ---- STATUS ----

type StatusConfig struct {
	Endpoint   string `yaml:"endpoint"`
	UnitID     uint8  `yaml:"unit_id"`
	TimeoutMs  int    `yaml:"timeout_ms"`
	BaseSlot   uint16 `yaml:"base_slot"`
	DeviceName string `yaml:"device_name"`
}

// ---- LINES ----

// LineConfig binds a logical line to exactly one backend.
// For remote inputs the value is a discrete-input offset from input_base;
// for remote outputs it is a coil address.
type LineConfig struct {
	GPIO      string  `yaml:"gpio"`
	Remote    *uint16 `yaml:"remote"`
	ActiveLow bool    `yaml:"active_low"`
	Pull      string  `yaml:"pull"`
}

// ---- OPERATOR ----

type OperatorConfig struct {
	ExtendPosition int `yaml:"extend_position"`
	TestCycles     int `yaml:"test_cycles"`
}
