package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTempFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func TestLoadYAML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.yaml", "socket_dir: /run/childctl\nloader: /opt/loader.mjs\nenv_var: NODE_OPTIONS\nlog_level: debug\ntelemetry:\n  enabled: false\n  service_name: svc\n")
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.SocketDir != "/run/childctl" || cfg.Loader != "/opt/loader.mjs" || cfg.EnvVar != "NODE_OPTIONS" || cfg.LogLevel != "debug" {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
	if cfg.Telemetry == nil || cfg.Telemetry.Enabled == nil || *cfg.Telemetry.Enabled || cfg.Telemetry.ServiceName != "svc" {
		t.Fatalf("unexpected telemetry: %+v", cfg.Telemetry)
	}
}

func TestLoadJSON(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.json", `{"socket_dir":"/s","bootstrap_hook":"/hooks/register.js","registry_snapshot":"/s/reg.cbor"}`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.SocketDir != "/s" || cfg.BootstrapHook != "/hooks/register.js" || cfg.RegistrySnapshot != "/s/reg.cbor" || cfg.Telemetry != nil {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
}

func TestLoadJSONC(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.jsonc", `{
  // where the control socket lives
  "socket_dir": "/j",
  /* telemetry on by default */
  "telemetry": {"service_name": "api",},
}`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.SocketDir != "/j" || cfg.Telemetry == nil || cfg.Telemetry.ServiceName != "api" || cfg.Telemetry.Enabled != nil {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
}

func TestLoadTOML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.toml", "socket_dir=\"/x\"\nloader=\"https://example.com/loader.mjs\"\n\n[telemetry]\nenabled=true\nhook=\"/hooks/otel.js\"\n")
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.SocketDir != "/x" || cfg.Loader != "https://example.com/loader.mjs" {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
	if cfg.Telemetry == nil || cfg.Telemetry.Enabled == nil || !*cfg.Telemetry.Enabled || cfg.Telemetry.Hook != "/hooks/otel.js" {
		t.Fatalf("unexpected telemetry: %+v", cfg.Telemetry)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(""); err == nil {
		t.Fatalf("expected error on empty path")
	}
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.txt", "not supported")
	if _, err := Load(p); err == nil {
		t.Fatalf("expected unsupported extension error")
	}
}
