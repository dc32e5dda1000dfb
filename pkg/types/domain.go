package types

// TelemetryConfig describes the optional telemetry agent chained into the child.
type TelemetryConfig struct {
	// Enabled toggles the telemetry hook. Nil means enabled.
	// example: true
	Enabled *bool `json:"enabled,omitempty" yaml:"enabled,omitempty" toml:"enabled,omitempty" example:"true"`
	// Service name reported by the telemetry agent.
	// example: checkout-worker
	ServiceName string `json:"service_name" yaml:"service_name" toml:"service_name" example:"checkout-worker"`
}

// IsEnabled reports whether the telemetry hook should be injected.
// Only an explicit false disables it.
func (c *TelemetryConfig) IsEnabled() bool {
	if c == nil {
		return false
	}
	return c.Enabled == nil || *c.Enabled
}

// ManagerContext carries owner-provided context for a manager instance.
type ManagerContext struct {
	TelemetryConfig *TelemetryConfig `json:"telemetry_config,omitempty" yaml:"telemetry_config,omitempty" toml:"telemetry_config,omitempty"`
}

// Telemetry returns the telemetry config or nil when ctx is nil.
func (ctx *ManagerContext) Telemetry() *TelemetryConfig {
	if ctx == nil {
		return nil
	}
	return ctx.TelemetryConfig
}
