package config

// Pauses lists the modules an operator has halted. Paused modules reject
// mutations but keep serving reads.
type Pauses struct {
	Participants bool
}

// Quota defines the per-address transaction limit. Zero values disable it.
type Quota struct {
	MaxTxPerEpoch uint32
	EpochSeconds  uint32
}

// RateLimit bounds JSON-RPC requests per client IP.
type RateLimit struct {
	RequestsPerSecond float64
	Burst             int
}

// Logging selects level and optional rotating file output.
type Logging struct {
	Level      string
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// Telemetry configures the OTLP trace exporter.
type Telemetry struct {
	Traces   bool
	Endpoint string
	Insecure bool
	// Headers uses the OTEL_EXPORTER_OTLP_HEADERS form: key=value,foo=bar.
	Headers string
}

// Global bundles the runtime policy values checked by ValidateConfig.
type Global struct {
	Pauses    Pauses
	Quota     Quota
	RateLimit RateLimit
	Logging   Logging
	Telemetry Telemetry
}
