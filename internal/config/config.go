package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type TelemetryConfig struct {
	LogLevel       string `yaml:"log_level"`
	OTLPEndpoint   string `yaml:"otlp_endpoint"`
	OTLPInsecure   bool   `yaml:"otlp_insecure"`
	PrometheusBind string `yaml:"prometheus_bind"`
}

type HTTPConfig struct {
	Bind string `yaml:"bind"`
	Port int    `yaml:"port"`
}

type Config struct {
	RuntimeName string           `yaml:"runtime_name"`
	Environment string           `yaml:"environment"`
	HTTP        HTTPConfig       `yaml:"http"`
	Telemetry   TelemetryConfig  `yaml:"telemetry"`
	Bus         BusConfig        `yaml:"bus"`
	Node        NodeConfig       `yaml:"node"`
	EventStore  EventStoreConfig `yaml:"event_store"`
	TTS         TTSConfig        `yaml:"tts"`
	Synthesis   SynthesisConfig  `yaml:"synthesis"`
	Artifacts   ArtifactsConfig  `yaml:"artifacts"`
}

type BusConfig struct {
	Embedded       bool     `yaml:"embedded"`
	Port           int      `yaml:"port"`
	StoreDir       string   `yaml:"store_dir"`
	Servers        []string `yaml:"servers"`
	Username       string   `yaml:"username"`
	Password       string   `yaml:"password"`
	Token          string   `yaml:"token"`
	TLSInsecure    bool     `yaml:"tls_insecure"`
	ConnectTimeout int      `yaml:"connect_timeout_ms"`
}

// NodeConfig identifies this renderer when it announces itself on the bus.
type NodeConfig struct {
	ID                string `yaml:"id"`
	Role              string `yaml:"role"`
	HeartbeatInterval int    `yaml:"heartbeat_interval_ms"`
	HeartbeatTimeout  int    `yaml:"heartbeat_timeout_ms"`
}

type EventStoreConfig struct {
	Path          string `yaml:"path"`
	RetentionMode string `yaml:"retention_mode"`
	RetentionDays int    `yaml:"retention_days"`
	MaxRenders    int    `yaml:"max_renders"`
	VacuumOnStart bool   `yaml:"vacuum_on_start"`
}

// TTSConfig describes the external speech collaborator.
type TTSConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Mode       string `yaml:"mode"` // mock, exec, http
	Command    string `yaml:"command"`
	Endpoint   string `yaml:"endpoint"`
	Voice      string `yaml:"voice"`
	SampleRate int    `yaml:"sample_rate"`
	Channels   int    `yaml:"channels"`
	TimeoutMS  int    `yaml:"timeout_ms"`
	UseSSML    bool   `yaml:"use_ssml"`
}

// SynthesisConfig holds the numeric policy of the render pipeline.
type SynthesisConfig struct {
	Mode                string  `yaml:"mode"` // sequential_pipeline, tts_only, additive, math
	SampleRate          int     `yaml:"sample_rate"`
	ReferenceHz         float64 `yaml:"reference_hz"`
	FeminizationRatio   float64 `yaml:"feminization_ratio"`
	PitchBoostSemitones int     `yaml:"pitch_boost_semitones"`
	MinNoteDurationS    float64 `yaml:"min_note_duration_s"`
	PitchTolerance      float64 `yaml:"pitch_tolerance"`
	FrameSize           int     `yaml:"frame_size"`
	HopSize             int     `yaml:"hop_size"`
	VibratoRateHz       float64 `yaml:"vibrato_rate_hz"`
	VibratoDepth        float64 `yaml:"vibrato_depth"`
	PostVibratoRateHz   float64 `yaml:"post_vibrato_rate_hz"`
	PostVibratoDepth    float64 `yaml:"post_vibrato_depth"`
	PostVibratoMinNoteS float64 `yaml:"post_vibrato_min_note_s"`
	Headroom            float64 `yaml:"headroom"`
	NoiseLevel          float64 `yaml:"noise_level"`
	OutputDir           string  `yaml:"output_dir"`
	TimbrePath          string  `yaml:"timbre_path"`
	MaxConcurrency      int     `yaml:"max_concurrency"`
	RequestTimeoutMS    int     `yaml:"request_timeout_ms"`
}

// ArtifactsConfig controls where finished renders are published.
type ArtifactsConfig struct {
	Bucket      string `yaml:"bucket"`
	Opus        bool   `yaml:"opus"`
	OpusBitrate int    `yaml:"opus_bitrate"`
}

func Default() Config {
	return Config{
		RuntimeName: "loqa-sing",
		Environment: "development",
		HTTP: HTTPConfig{
			Bind: "0.0.0.0",
			Port: 8080,
		},
		Telemetry: TelemetryConfig{
			LogLevel:       "info",
			OTLPEndpoint:   "",
			OTLPInsecure:   true,
			PrometheusBind: ":9091",
		},
		Bus: BusConfig{
			Embedded:       true,
			Port:           4222,
			Servers:        []string{"nats://localhost:4222"},
			ConnectTimeout: 2000,
		},
		Node: NodeConfig{
			ID:                "loqa-sing-1",
			Role:              "renderer",
			HeartbeatInterval: 2000,
			HeartbeatTimeout:  6000,
		},
		EventStore: EventStoreConfig{
			Path:          "./data/loqa-sing.db",
			RetentionMode: "session",
			RetentionDays: 30,
			MaxRenders:    10000,
		},
		TTS: TTSConfig{
			Enabled:    false,
			Mode:       "mock",
			Endpoint:   "http://localhost:5002",
			Voice:      "nanami",
			SampleRate: 24000,
			Channels:   1,
			TimeoutMS:  30000,
		},
		Synthesis: SynthesisConfig{
			Mode:                "sequential_pipeline",
			SampleRate:          44100,
			ReferenceHz:         261.63,
			FeminizationRatio:   1.2,
			PitchBoostSemitones: 12,
			MinNoteDurationS:    1.0,
			PitchTolerance:      0.05,
			FrameSize:           2048,
			HopSize:             512,
			VibratoRateHz:       5.2,
			VibratoDepth:        0.08,
			PostVibratoRateHz:   5.0,
			PostVibratoDepth:    0.02,
			PostVibratoMinNoteS: 1.0,
			Headroom:            0.8,
			NoiseLevel:          0.001,
			OutputDir:           "./data/renders",
			MaxConcurrency:      2,
			RequestTimeoutMS:    120000,
		},
		Artifacts: ArtifactsConfig{
			OpusBitrate: 64000,
		},
	}
}

func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return cfg, fmt.Errorf("config file not found: %w", err)
			}
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	if err := validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	overrideString(&cfg.RuntimeName, "LOQA_RUNTIME_NAME")
	overrideString(&cfg.Environment, "LOQA_RUNTIME_ENVIRONMENT")
	overrideString(&cfg.HTTP.Bind, "LOQA_HTTP_BIND")
	overrideInt(&cfg.HTTP.Port, "LOQA_HTTP_PORT")
	overrideString(&cfg.Telemetry.LogLevel, "LOQA_TELEMETRY_LOG_LEVEL")
	overrideString(&cfg.Telemetry.OTLPEndpoint, "LOQA_TELEMETRY_OTLP_ENDPOINT")
	overrideBool(&cfg.Telemetry.OTLPInsecure, "LOQA_TELEMETRY_OTLP_INSECURE")
	overrideString(&cfg.Telemetry.PrometheusBind, "LOQA_TELEMETRY_PROMETHEUS_BIND")
	overrideBool(&cfg.Bus.Embedded, "LOQA_BUS_EMBEDDED")
	overrideInt(&cfg.Bus.Port, "LOQA_BUS_PORT")
	overrideString(&cfg.Bus.StoreDir, "LOQA_BUS_STORE_DIR")
	overrideStringSlice(&cfg.Bus.Servers, "LOQA_BUS_SERVERS")
	overrideString(&cfg.Bus.Username, "LOQA_BUS_USERNAME")
	overrideString(&cfg.Bus.Password, "LOQA_BUS_PASSWORD")
	overrideString(&cfg.Bus.Token, "LOQA_BUS_TOKEN")
	overrideBool(&cfg.Bus.TLSInsecure, "LOQA_BUS_TLS_INSECURE")
	overrideInt(&cfg.Bus.ConnectTimeout, "LOQA_BUS_CONNECT_TIMEOUT_MS")
	overrideString(&cfg.Node.ID, "LOQA_NODE_ID")
	overrideString(&cfg.Node.Role, "LOQA_NODE_ROLE")
	overrideInt(&cfg.Node.HeartbeatInterval, "LOQA_NODE_HEARTBEAT_INTERVAL_MS")
	overrideInt(&cfg.Node.HeartbeatTimeout, "LOQA_NODE_HEARTBEAT_TIMEOUT_MS")
	overrideString(&cfg.EventStore.Path, "LOQA_EVENT_STORE_PATH")
	overrideString(&cfg.EventStore.RetentionMode, "LOQA_EVENT_STORE_RETENTION_MODE")
	overrideInt(&cfg.EventStore.RetentionDays, "LOQA_EVENT_STORE_RETENTION_DAYS")
	overrideInt(&cfg.EventStore.MaxRenders, "LOQA_EVENT_STORE_MAX_RENDERS")
	overrideBool(&cfg.EventStore.VacuumOnStart, "LOQA_EVENT_STORE_VACUUM_ON_START")
	overrideBool(&cfg.TTS.Enabled, "LOQA_TTS_ENABLED")
	overrideString(&cfg.TTS.Mode, "LOQA_TTS_MODE")
	overrideString(&cfg.TTS.Command, "LOQA_TTS_COMMAND")
	overrideString(&cfg.TTS.Endpoint, "LOQA_TTS_ENDPOINT")
	overrideString(&cfg.TTS.Voice, "LOQA_TTS_VOICE")
	overrideInt(&cfg.TTS.SampleRate, "LOQA_TTS_SAMPLE_RATE")
	overrideInt(&cfg.TTS.Channels, "LOQA_TTS_CHANNELS")
	overrideInt(&cfg.TTS.TimeoutMS, "LOQA_TTS_TIMEOUT_MS")
	overrideBool(&cfg.TTS.UseSSML, "LOQA_TTS_USE_SSML")
	overrideString(&cfg.Synthesis.Mode, "LOQA_SYNTHESIS_MODE")
	overrideInt(&cfg.Synthesis.SampleRate, "LOQA_SYNTHESIS_SAMPLE_RATE")
	overrideFloat(&cfg.Synthesis.ReferenceHz, "LOQA_SYNTHESIS_REFERENCE_HZ")
	overrideFloat(&cfg.Synthesis.FeminizationRatio, "LOQA_SYNTHESIS_FEMINIZATION_RATIO")
	overrideInt(&cfg.Synthesis.PitchBoostSemitones, "LOQA_SYNTHESIS_PITCH_BOOST_SEMITONES")
	overrideFloat(&cfg.Synthesis.MinNoteDurationS, "LOQA_SYNTHESIS_MIN_NOTE_DURATION_S")
	overrideFloat(&cfg.Synthesis.PitchTolerance, "LOQA_SYNTHESIS_PITCH_TOLERANCE")
	overrideInt(&cfg.Synthesis.FrameSize, "LOQA_SYNTHESIS_FRAME_SIZE")
	overrideInt(&cfg.Synthesis.HopSize, "LOQA_SYNTHESIS_HOP_SIZE")
	overrideFloat(&cfg.Synthesis.Headroom, "LOQA_SYNTHESIS_HEADROOM")
	overrideFloat(&cfg.Synthesis.NoiseLevel, "LOQA_SYNTHESIS_NOISE_LEVEL")
	overrideString(&cfg.Synthesis.OutputDir, "LOQA_SYNTHESIS_OUTPUT_DIR")
	overrideString(&cfg.Synthesis.TimbrePath, "LOQA_SYNTHESIS_TIMBRE_PATH")
	overrideInt(&cfg.Synthesis.MaxConcurrency, "LOQA_SYNTHESIS_MAX_CONCURRENCY")
	overrideInt(&cfg.Synthesis.RequestTimeoutMS, "LOQA_SYNTHESIS_REQUEST_TIMEOUT_MS")
	overrideString(&cfg.Artifacts.Bucket, "LOQA_ARTIFACTS_BUCKET")
	overrideBool(&cfg.Artifacts.Opus, "LOQA_ARTIFACTS_OPUS")
	overrideInt(&cfg.Artifacts.OpusBitrate, "LOQA_ARTIFACTS_OPUS_BITRATE")
}

func overrideString(target *string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok && strings.TrimSpace(value) != "" {
		*target = value
	}
}

func overrideInt(target *int, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			*target = parsed
		}
	}
}

func overrideBool(target *bool, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseBool(value); err == nil {
			*target = parsed
		}
	}
}

func overrideStringSlice(target *[]string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		parts := strings.Split(value, ",")
		var trimmed []string
		for _, p := range parts {
			if s := strings.TrimSpace(p); s != "" {
				trimmed = append(trimmed, s)
			}
		}
		if len(trimmed) > 0 {
			*target = trimmed
		}
	}
}

func overrideFloat(target *float64, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			*target = parsed
		}
	}
}

func validate(cfg Config) error {
	if cfg.RuntimeName == "" {
		return errors.New("runtime_name must not be empty")
	}
	if cfg.HTTP.Port <= 0 || cfg.HTTP.Port > 65535 {
		return errors.New("http.port must be between 1 and 65535")
	}
	if cfg.Bus.Embedded {
		if cfg.Bus.Port <= 0 || cfg.Bus.Port > 65535 {
			return errors.New("bus.port must be between 1 and 65535 when embedded mode is enabled")
		}
	} else {
		if len(cfg.Bus.Servers) == 0 {
			return errors.New("bus.servers must not be empty when embedded mode is disabled")
		}
	}
	if cfg.Node.ID == "" {
		return errors.New("node.id must not be empty")
	}
	if cfg.Node.HeartbeatInterval <= 0 {
		return errors.New("node.heartbeat_interval_ms must be positive")
	}
	if cfg.Node.HeartbeatTimeout <= cfg.Node.HeartbeatInterval {
		return errors.New("node.heartbeat_timeout_ms must be greater than heartbeat interval")
	}
	if cfg.EventStore.Path == "" {
		return errors.New("event_store.path must not be empty")
	}
	switch cfg.EventStore.RetentionMode {
	case "ephemeral", "session", "persistent":
		// ok
	default:
		return errors.New("event_store.retention_mode must be one of ephemeral|session|persistent")
	}
	if cfg.EventStore.RetentionDays < 0 {
		return errors.New("event_store.retention_days must be >= 0")
	}
	if cfg.Telemetry.PrometheusBind == "" {
		return errors.New("telemetry.prometheus_bind must not be empty")
	}
	if cfg.TTS.Enabled {
		switch cfg.TTS.Mode {
		case "mock", "exec", "http":
		default:
			return errors.New("tts.mode must be one of mock|exec|http")
		}
		if cfg.TTS.Mode == "exec" && cfg.TTS.Command == "" {
			return errors.New("tts.command must be set when mode=exec")
		}
		if cfg.TTS.Mode == "http" && cfg.TTS.Endpoint == "" {
			return errors.New("tts.endpoint must be set when mode=http")
		}
		if cfg.TTS.SampleRate <= 0 {
			return errors.New("tts.sample_rate must be positive")
		}
		if cfg.TTS.Channels <= 0 {
			return errors.New("tts.channels must be positive")
		}
		if cfg.TTS.TimeoutMS <= 0 {
			return errors.New("tts.timeout_ms must be positive")
		}
	}
	return validateSynthesis(cfg.Synthesis)
}

func validateSynthesis(s SynthesisConfig) error {
	switch s.Mode {
	case "sequential_pipeline", "tts_only", "additive", "math":
	default:
		return errors.New("synthesis.mode must be one of sequential_pipeline|tts_only|additive|math")
	}
	if s.SampleRate < 8000 {
		return errors.New("synthesis.sample_rate must be >= 8000")
	}
	if s.ReferenceHz <= 0 {
		return errors.New("synthesis.reference_hz must be positive")
	}
	if s.FeminizationRatio <= 0 {
		return errors.New("synthesis.feminization_ratio must be positive")
	}
	if s.MinNoteDurationS < 0 {
		return errors.New("synthesis.min_note_duration_s must be >= 0")
	}
	if s.PitchTolerance < 0 {
		return errors.New("synthesis.pitch_tolerance must be >= 0")
	}
	if s.FrameSize < 64 || s.FrameSize&(s.FrameSize-1) != 0 {
		return errors.New("synthesis.frame_size must be a power of two >= 64")
	}
	if s.HopSize <= 0 || s.HopSize >= s.FrameSize {
		return errors.New("synthesis.hop_size must be positive and smaller than frame_size")
	}
	if s.Headroom <= 0 || s.Headroom > 1 {
		return errors.New("synthesis.headroom must be in (0, 1]")
	}
	if s.NoiseLevel < 0 {
		return errors.New("synthesis.noise_level must be >= 0")
	}
	if s.OutputDir == "" {
		return errors.New("synthesis.output_dir must not be empty")
	}
	if s.MaxConcurrency <= 0 {
		return errors.New("synthesis.max_concurrency must be >= 1")
	}
	if s.RequestTimeoutMS <= 0 {
		return errors.New("synthesis.request_timeout_ms must be positive")
	}
	return nil
}
