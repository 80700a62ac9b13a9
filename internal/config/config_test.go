package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Bus.Servers[0] != "nats://localhost:4222" {
		t.Fatalf("expected default server, got %v", cfg.Bus.Servers)
	}
	if cfg.Synthesis.SampleRate != 44100 {
		t.Fatalf("expected 44100 Hz, got %d", cfg.Synthesis.SampleRate)
	}
	if cfg.Synthesis.Mode != "sequential_pipeline" {
		t.Fatalf("expected sequential_pipeline mode, got %s", cfg.Synthesis.Mode)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("LOQA_BUS_SERVERS", "nats://one:4222, nats://two:4222")
	t.Setenv("LOQA_BUS_USERNAME", "alice")
	t.Setenv("LOQA_BUS_PASSWORD", "secret")
	t.Setenv("LOQA_BUS_TLS_INSECURE", "true")
	t.Setenv("LOQA_BUS_CONNECT_TIMEOUT_MS", "5000")
	t.Setenv("LOQA_NODE_ID", "test-node")
	t.Setenv("LOQA_NODE_HEARTBEAT_INTERVAL_MS", "1500")
	t.Setenv("LOQA_NODE_HEARTBEAT_TIMEOUT_MS", "5000")
	t.Setenv("LOQA_EVENT_STORE_PATH", "./tmp.db")
	t.Setenv("LOQA_EVENT_STORE_RETENTION_MODE", "persistent")
	t.Setenv("LOQA_EVENT_STORE_RETENTION_DAYS", "7")
	t.Setenv("LOQA_EVENT_STORE_VACUUM_ON_START", "true")
	t.Setenv("LOQA_TTS_ENABLED", "true")
	t.Setenv("LOQA_TTS_MODE", "http")
	t.Setenv("LOQA_TTS_ENDPOINT", "http://tts:9000")
	t.Setenv("LOQA_TTS_TIMEOUT_MS", "2500")
	t.Setenv("LOQA_SYNTHESIS_MODE", "additive")
	t.Setenv("LOQA_SYNTHESIS_FEMINIZATION_RATIO", "1.1")
	t.Setenv("LOQA_SYNTHESIS_MAX_CONCURRENCY", "8")
	t.Setenv("LOQA_ARTIFACTS_BUCKET", "renders")
	t.Setenv("LOQA_ARTIFACTS_OPUS", "true")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(cfg.Bus.Servers) != 2 {
		t.Fatalf("expected 2 servers, got %v", cfg.Bus.Servers)
	}
	if cfg.Bus.Username != "alice" || cfg.Bus.Password != "secret" {
		t.Fatalf("expected credentials override")
	}
	if !cfg.Bus.TLSInsecure {
		t.Fatal("expected tls insecure override true")
	}
	if cfg.Bus.ConnectTimeout != 5000 {
		t.Fatalf("expected timeout 5000, got %d", cfg.Bus.ConnectTimeout)
	}
	if cfg.Node.ID != "test-node" || cfg.Node.HeartbeatInterval != 1500 || cfg.Node.HeartbeatTimeout != 5000 {
		t.Fatalf("expected node overrides, got %+v", cfg.Node)
	}
	if cfg.EventStore.Path != "./tmp.db" || cfg.EventStore.RetentionMode != "persistent" {
		t.Fatalf("expected event store overrides, got %+v", cfg.EventStore)
	}
	if cfg.EventStore.RetentionDays != 7 || !cfg.EventStore.VacuumOnStart {
		t.Fatalf("expected event store retention overrides")
	}
	if !cfg.TTS.Enabled || cfg.TTS.Mode != "http" || cfg.TTS.Endpoint != "http://tts:9000" || cfg.TTS.TimeoutMS != 2500 {
		t.Fatalf("expected tts overrides, got %+v", cfg.TTS)
	}
	if cfg.Synthesis.Mode != "additive" || cfg.Synthesis.FeminizationRatio != 1.1 || cfg.Synthesis.MaxConcurrency != 8 {
		t.Fatalf("expected synthesis overrides, got %+v", cfg.Synthesis)
	}
	if cfg.Artifacts.Bucket != "renders" || !cfg.Artifacts.Opus {
		t.Fatalf("expected artifact overrides, got %+v", cfg.Artifacts)
	}
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "loqa-sing.yaml")
	data := `
runtime_name: choir
synthesis:
  mode: math
  headroom: 0.5
tts:
  enabled: true
  mode: exec
  command: "python3 tts.py --voice nanami"
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.RuntimeName != "choir" || cfg.Synthesis.Mode != "math" || cfg.Synthesis.Headroom != 0.5 {
		t.Fatalf("yaml values not applied: %+v", cfg.Synthesis)
	}
	if cfg.Synthesis.SampleRate != 44100 {
		t.Fatalf("unset fields should keep defaults, got %d", cfg.Synthesis.SampleRate)
	}
}

func TestValidateRejects(t *testing.T) {
	cases := []struct {
		name   string
		env    map[string]string
		expect string
	}{
		{"mode", map[string]string{"LOQA_SYNTHESIS_MODE": "neural"}, "synthesis.mode"},
		{"frame", map[string]string{"LOQA_SYNTHESIS_FRAME_SIZE": "1000"}, "frame_size"},
		{"tts exec", map[string]string{"LOQA_TTS_ENABLED": "true", "LOQA_TTS_MODE": "exec"}, "tts.command"},
		{"tts mode", map[string]string{"LOQA_TTS_ENABLED": "true", "LOQA_TTS_MODE": "grpc"}, "tts.mode"},
		{"headroom", map[string]string{"LOQA_SYNTHESIS_HEADROOM": "1.5"}, "headroom"},
		{"retention", map[string]string{"LOQA_EVENT_STORE_RETENTION_MODE": "forever"}, "retention_mode"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := Load("")
			if err == nil || !strings.Contains(err.Error(), tc.expect) {
				t.Fatalf("expected error mentioning %q, got %v", tc.expect, err)
			}
		})
	}
}
