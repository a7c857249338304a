// Package config provides the configuration schema for the gateway.
//
// It intentionally excludes features this spec marks as Non-goals:
//   - NO persistent session storage (in-memory registry only)
//   - NO authentication beyond forwarding caller-supplied static headers
//   - NO multi-child pooling (exactly one child command per gateway)
//   - NO rate limiting
package config

// Config is the top-level gateway configuration.
type Config struct {
	Server ServerConfig `yaml:"server" mapstructure:"server"`
	Child  ChildConfig  `yaml:"child" mapstructure:"child"`
	Health HealthConfig `yaml:"health" mapstructure:"health"`
	CORS   CORSConfig   `yaml:"cors" mapstructure:"cors"`

	// DevMode enables development-friendly defaults (verbose logging,
	// text log format instead of JSON).
	DevMode bool `yaml:"dev_mode" mapstructure:"dev_mode"`
}

// ServerConfig configures the HTTP listener and the single multiplexing
// endpoint.
type ServerConfig struct {
	// HTTPAddr is the address to listen on. Defaults to "127.0.0.1:8080".
	HTTPAddr string `yaml:"http_addr" mapstructure:"http_addr" validate:"omitempty,hostname_port"`

	// EndpointPath is the single path serving POST/GET/DELETE/OPTIONS.
	// Defaults to "/mcp".
	EndpointPath string `yaml:"endpoint_path" mapstructure:"endpoint_path" validate:"omitempty,startswith=/"`

	// SessionHeader is the HTTP header name carrying the session id.
	// Defaults to "Mcp-Session-Id".
	SessionHeader string `yaml:"session_header" mapstructure:"session_header" validate:"omitempty"`

	// BatchTimeout is how long a batch-mode POST waits for the child's
	// reply before the gateway synthesizes a timeout error, e.g. "30s".
	BatchTimeout string `yaml:"batch_timeout" mapstructure:"batch_timeout" validate:"omitempty"`

	// BodyLimitBytes caps the size of a single POST body. Defaults to
	// 4 MiB.
	BodyLimitBytes int64 `yaml:"body_limit_bytes" mapstructure:"body_limit_bytes" validate:"omitempty,gt=0"`

	// LogLevel sets the minimum slog level: "debug", "info", "warn", "error".
	LogLevel string `yaml:"log_level" mapstructure:"log_level" validate:"omitempty,oneof=debug info warn warning error"`

	// LogFormat selects the slog handler: "text" or "json".
	LogFormat string `yaml:"log_format" mapstructure:"log_format" validate:"omitempty,oneof=text json"`
}

// ChildConfig configures the single child process the gateway supervises.
type ChildConfig struct {
	// Command is the executable to run.
	Command string `yaml:"command" mapstructure:"command" validate:"required"`
	// Args are the arguments passed to Command.
	Args []string `yaml:"args" mapstructure:"args"`
}

// HealthConfig configures the additive health surface (spec.md section
// 4.7's health path(s) and static response headers).
type HealthConfig struct {
	// Paths maps each health-check URL path to the static headers it
	// should return alongside the literal "ok" body.
	Paths map[string]map[string]string `yaml:"paths" mapstructure:"paths"`
}

// CORSConfig configures the permissive CORS policy spec.md section 4.4
// mandates for the multiplexing endpoint.
type CORSConfig struct {
	// AllowedOrigin is reflected back verbatim in
	// Access-Control-Allow-Origin. Defaults to "*".
	AllowedOrigin string `yaml:"allowed_origin" mapstructure:"allowed_origin"`
}

// SetDefaults applies sensible default values to unset fields.
func (c *Config) SetDefaults() {
	if c.Server.HTTPAddr == "" {
		c.Server.HTTPAddr = "127.0.0.1:8080"
	}
	if c.Server.EndpointPath == "" {
		c.Server.EndpointPath = "/mcp"
	}
	if c.Server.SessionHeader == "" {
		c.Server.SessionHeader = "Mcp-Session-Id"
	}
	if c.Server.BatchTimeout == "" {
		c.Server.BatchTimeout = "30s"
	}
	if c.Server.BodyLimitBytes == 0 {
		c.Server.BodyLimitBytes = 4 * 1024 * 1024
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = "info"
	}
	if c.Server.LogFormat == "" {
		c.Server.LogFormat = "json"
	}
	if c.CORS.AllowedOrigin == "" {
		c.CORS.AllowedOrigin = "*"
	}
	if c.Health.Paths == nil {
		c.Health.Paths = map[string]map[string]string{"/healthz": {}}
	}
}

// SetDevDefaults applies development-friendly overrides. Called after
// SetDefaults and before Validate, mirroring the teacher's dev-mode
// override ordering.
func (c *Config) SetDevDefaults() {
	if !c.DevMode {
		return
	}
	if c.Server.LogLevel == "info" {
		c.Server.LogLevel = "debug"
	}
	c.Server.LogFormat = "text"
}
