package config

import "testing"

func TestValidateRequiresChildCommand(t *testing.T) {
	cfg := Config{}
	cfg.SetDefaults()

	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected validation to fail without a child command")
	}
}

func TestValidateAcceptsMinimalConfig(t *testing.T) {
	cfg := Config{Child: ChildConfig{Command: "mcp-server"}}
	cfg.SetDefaults()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected a minimal config to validate, got %v", err)
	}
}

func TestValidateRejectsBadLogLevel(t *testing.T) {
	cfg := Config{Child: ChildConfig{Command: "mcp-server"}}
	cfg.SetDefaults()
	cfg.Server.LogLevel = "verbose"

	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected validation to reject an unrecognized log level")
	}
}

func TestValidateRejectsHealthPathMissingLeadingSlash(t *testing.T) {
	cfg := Config{Child: ChildConfig{Command: "mcp-server"}}
	cfg.SetDefaults()
	cfg.Health.Paths = map[string]map[string]string{"healthz": {}}

	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected validation to reject a health path without a leading slash")
	}
}
