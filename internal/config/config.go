// Package config loads service configuration: built-in defaults, then an
// optional YAML file named by CONFIG_FILE, then environment overrides.
package config

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"indic-speech-stream-service/internal/service/inference"
)

// Configuration is the complete service configuration.
type Configuration struct {
	Service       ServiceConfig       `yaml:"service"`
	Audio         AudioConfig         `yaml:"audio"`
	STT           STTConfig           `yaml:"stt"`
	Diarization   DiarizationConfig   `yaml:"diarization"`
	Inference     InferenceConfig     `yaml:"inference"`
	Kafka         KafkaConfig         `yaml:"kafka"`
	Redis         RedisConfig         `yaml:"redis"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServiceConfig identifies the service and its listeners.
type ServiceConfig struct {
	Name         string `yaml:"name"`
	Version      string `yaml:"version"`
	Principal    string `yaml:"principal"`
	Env          string `yaml:"env"`
	HTTPPort     string `yaml:"http_port"`
	GRPCPort     string `yaml:"grpc_port"`
	WebSocketURL string `yaml:"websocket_url"` // advertised by /info
}

// AudioConfig describes the accepted stream and the flush threshold.
type AudioConfig struct {
	SampleRate     int `yaml:"sample_rate"`
	ThresholdBytes int `yaml:"threshold_bytes"`
}

// STTConfig selects the acoustic model backend.
type STTConfig struct {
	Provider        string `yaml:"provider"` // sidecar | google | mock
	ModelID         string `yaml:"model_id"`
	DefaultLanguage string `yaml:"default_language"`
	GoogleModel     string `yaml:"google_model"`
	TrustedLoad     bool   `yaml:"trusted_load"`
}

// DiarizationConfig selects the diarization backend and window parameters.
type DiarizationConfig struct {
	Enabled           bool    `yaml:"enabled"`
	Provider          string  `yaml:"provider"` // sidecar | mock
	ModelID           string  `yaml:"model_id"`
	WindowSeconds     float64 `yaml:"window_seconds"`
	MinSegmentSeconds float64 `yaml:"min_segment_seconds"`
	NumSpeakers       int     `yaml:"num_speakers"`
	MinSpeakers       int     `yaml:"min_speakers"`
	MaxSpeakers       int     `yaml:"max_speakers"`
	TrustedLoad       bool    `yaml:"trusted_load"`
}

// InferenceConfig configures the model sidecar and inference scheduling.
type InferenceConfig struct {
	Endpoint    string        `yaml:"endpoint"`
	APIKey      string        `yaml:"api_key"`
	Timeout     time.Duration `yaml:"timeout"`
	MaxRetries  int           `yaml:"max_retries"`
	Backoff     time.Duration `yaml:"backoff"`
	LoadTimeout time.Duration `yaml:"load_timeout"`
	Policy      string        `yaml:"policy"` // inline | pool
	PoolSize    int           `yaml:"pool_size"`
	Device      string        `yaml:"device"` // auto | cuda | cpu
	HFToken     string        `yaml:"-"`
}

// KafkaConfig holds event stream configuration.
type KafkaConfig struct {
	Enabled         bool     `yaml:"enabled"`
	Brokers         []string `yaml:"brokers"`
	TopicTranscript string   `yaml:"topic_transcript"`
	TopicLanguage   string   `yaml:"topic_language"`
	Principal       string   `yaml:"principal"`
}

// RedisConfig holds the shared language mirror configuration.
type RedisConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
	Key     string `yaml:"key"`
}

// ObservabilityConfig holds logging and metrics configuration.
type ObservabilityConfig struct {
	LogLevel    string `yaml:"log_level"`
	LogFormat   string `yaml:"log_format"` // json | console
	MetricsAddr string `yaml:"metrics_addr"`
}

// Default returns the built-in configuration.
func Default() *Configuration {
	return &Configuration{
		Service: ServiceConfig{
			Name:         "indic-speech-stream-service",
			Version:      "1.0.0",
			Principal:    "svc-indic-asr",
			Env:          "prod",
			HTTPPort:     "8000",
			GRPCPort:     "50051",
			WebSocketURL: "ws://localhost:8000/transcribe/ws",
		},
		Audio: AudioConfig{
			SampleRate:     16000,
			ThresholdBytes: 64000,
		},
		STT: STTConfig{
			Provider:        "sidecar",
			ModelID:         "ai4bharat/indic-conformer-600m-multilingual",
			DefaultLanguage: "hi",
			GoogleModel:     "latest_long",
			TrustedLoad:     false,
		},
		Diarization: DiarizationConfig{
			Enabled:           true,
			Provider:          "sidecar",
			ModelID:           "pyannote/speaker-diarization-community-1",
			WindowSeconds:     5.0,
			MinSegmentSeconds: 0.05,
		},
		Inference: InferenceConfig{
			Endpoint:    "http://localhost:8500",
			Timeout:     30 * time.Second,
			MaxRetries:  2,
			Backoff:     200 * time.Millisecond,
			LoadTimeout: 10 * time.Minute,
			Policy:      "inline",
			PoolSize:    4,
			Device:      "auto",
		},
		Kafka: KafkaConfig{
			Enabled:         false,
			Brokers:         []string{"localhost:9092"},
			TopicTranscript: "indic.asr.transcript",
			TopicLanguage:   "indic.asr.language",
		},
		Redis: RedisConfig{
			Enabled: false,
			Addr:    "localhost:6379",
			Key:     "indic-asr:language",
		},
		Observability: ObservabilityConfig{
			LogLevel:    "info",
			LogFormat:   "json",
			MetricsAddr: ":9090",
		},
	}
}

// Load builds the configuration and validates it.
func Load() (*Configuration, error) {
	cfg := Default()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func (c *Configuration) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Configuration) applyEnv() {
	s := &c.Service
	s.Name = envOrDefault("SERVICE_NAME", s.Name)
	s.Version = envOrDefault("SERVICE_VERSION", s.Version)
	s.Principal = envOrDefault("SERVICE_PRINCIPAL", s.Principal)
	s.Env = envOrDefault("ENV", s.Env)
	s.HTTPPort = envOrDefault("HTTP_PORT", s.HTTPPort)
	s.GRPCPort = envOrDefault("GRPC_PORT", s.GRPCPort)
	s.WebSocketURL = envOrDefault("PUBLIC_WS_URL", s.WebSocketURL)

	c.Audio.ThresholdBytes = envOrDefaultInt("AUDIO_THRESHOLD_BYTES", c.Audio.ThresholdBytes)

	st := &c.STT
	st.Provider = envOrDefault("STT_PROVIDER", st.Provider)
	st.ModelID = envOrDefault("MODEL_ID", st.ModelID)
	st.DefaultLanguage = envOrDefault("DEFAULT_LANGUAGE", st.DefaultLanguage)
	st.GoogleModel = envOrDefault("STT_GOOGLE_MODEL", st.GoogleModel)
	st.TrustedLoad = envOrDefaultBool("MODEL_TRUSTED_LOAD", st.TrustedLoad)

	d := &c.Diarization
	d.Enabled = envOrDefaultBool("DIARIZATION_ENABLED", d.Enabled)
	d.Provider = envOrDefault("DIARIZATION_PROVIDER", d.Provider)
	d.ModelID = envOrDefault("DIARIZATION_MODEL_ID", d.ModelID)
	d.WindowSeconds = envOrDefaultFloat("DIARIZATION_WINDOW_SECONDS", d.WindowSeconds)
	d.MinSegmentSeconds = envOrDefaultFloat("DIARIZATION_MIN_SEGMENT_SECONDS", d.MinSegmentSeconds)
	d.NumSpeakers = envOrDefaultInt("NUM_SPEAKERS", d.NumSpeakers)
	d.MinSpeakers = envOrDefaultInt("MIN_SPEAKERS", d.MinSpeakers)
	d.MaxSpeakers = envOrDefaultInt("MAX_SPEAKERS", d.MaxSpeakers)
	d.TrustedLoad = envOrDefaultBool("DIARIZATION_TRUSTED_LOAD", d.TrustedLoad)

	in := &c.Inference
	in.Endpoint = envOrDefault("INFERENCE_ENDPOINT", in.Endpoint)
	in.APIKey = envOrDefault("INFERENCE_API_KEY", in.APIKey)
	in.Timeout = envOrDefaultDuration("INFERENCE_TIMEOUT", in.Timeout)
	in.MaxRetries = envOrDefaultInt("INFERENCE_MAX_RETRIES", in.MaxRetries)
	in.Backoff = envOrDefaultDuration("INFERENCE_BACKOFF", in.Backoff)
	in.LoadTimeout = envOrDefaultDuration("MODEL_LOAD_TIMEOUT", in.LoadTimeout)
	in.Policy = envOrDefault("INFERENCE_POLICY", in.Policy)
	in.PoolSize = envOrDefaultInt("INFERENCE_POOL_SIZE", in.PoolSize)
	in.Device = envOrDefault("DEVICE", in.Device)
	in.HFToken = envOrDefault("HF_TOKEN", in.HFToken)

	k := &c.Kafka
	k.Enabled = envOrDefaultBool("KAFKA_ENABLED", k.Enabled)
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		k.Brokers = splitList(v)
	}
	k.TopicTranscript = envOrDefault("KAFKA_TOPIC_TRANSCRIPT", k.TopicTranscript)
	k.TopicLanguage = envOrDefault("KAFKA_TOPIC_LANGUAGE", k.TopicLanguage)
	k.Principal = envOrDefault("KAFKA_PRINCIPAL", k.Principal)
	if k.Principal == "" {
		k.Principal = s.Principal
	}

	r := &c.Redis
	r.Enabled = envOrDefaultBool("REDIS_ENABLED", r.Enabled)
	r.Addr = envOrDefault("REDIS_ADDR", r.Addr)
	r.Key = envOrDefault("REDIS_LANGUAGE_KEY", r.Key)

	o := &c.Observability
	o.LogLevel = envOrDefault("LOG_LEVEL", o.LogLevel)
	o.LogFormat = envOrDefault("LOG_FORMAT", o.LogFormat)
	o.MetricsAddr = envOrDefault("METRICS_ADDR", o.MetricsAddr)
}

// STTLoadOptions returns the sidecar load request for the acoustic model.
func (c *Configuration) STTLoadOptions() inference.LoadOptions {
	return inference.LoadOptions{
		ModelID: c.STT.ModelID,
		Token:   c.Inference.HFToken,
		Device:  c.Inference.Device,
		Trusted: c.STT.TrustedLoad,
	}
}

// DiarizationLoadOptions returns the sidecar load request for the
// diarization pipeline.
func (c *Configuration) DiarizationLoadOptions() inference.LoadOptions {
	return inference.LoadOptions{
		ModelID: c.Diarization.ModelID,
		Token:   c.Inference.HFToken,
		Device:  c.Inference.Device,
		Trusted: c.Diarization.TrustedLoad,
	}
}

// Validate performs validation of every section.
func (c *Configuration) Validate() error {
	if err := c.Service.Validate(); err != nil {
		return fmt.Errorf("service config: %w", err)
	}
	if err := c.Audio.Validate(); err != nil {
		return fmt.Errorf("audio config: %w", err)
	}
	if err := c.STT.Validate(); err != nil {
		return fmt.Errorf("stt config: %w", err)
	}
	if err := c.Diarization.Validate(); err != nil {
		return fmt.Errorf("diarization config: %w", err)
	}
	if err := c.Inference.Validate(c.usesSidecar()); err != nil {
		return fmt.Errorf("inference config: %w", err)
	}
	if err := c.Kafka.Validate(); err != nil {
		return fmt.Errorf("kafka config: %w", err)
	}
	if err := c.Redis.Validate(); err != nil {
		return fmt.Errorf("redis config: %w", err)
	}
	if err := c.Observability.Validate(); err != nil {
		return fmt.Errorf("observability config: %w", err)
	}
	return nil
}

func (c *Configuration) usesSidecar() bool {
	return c.STT.Provider == "sidecar" || (c.Diarization.Enabled && c.Diarization.Provider == "sidecar")
}

// Validate validates service configuration.
func (s *ServiceConfig) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("name cannot be empty")
	}
	if err := validatePort(s.HTTPPort); err != nil {
		return fmt.Errorf("http_port: %w", err)
	}
	if err := validatePort(s.GRPCPort); err != nil {
		return fmt.Errorf("grpc_port: %w", err)
	}
	return nil
}

// Validate validates audio configuration.
func (a *AudioConfig) Validate() error {
	if a.SampleRate != 16000 {
		return fmt.Errorf("sample_rate must be 16000 Hz, got %d", a.SampleRate)
	}
	if a.ThresholdBytes < 2 || a.ThresholdBytes%2 != 0 {
		return fmt.Errorf("threshold_bytes must be a positive even number, got %d", a.ThresholdBytes)
	}
	return nil
}

// Validate validates STT configuration.
func (s *STTConfig) Validate() error {
	if !slices.Contains([]string{"sidecar", "google", "mock"}, s.Provider) {
		return fmt.Errorf("provider must be sidecar, google or mock, got %q", s.Provider)
	}
	if !slices.Contains([]string{"hi", "ne", "mai"}, s.DefaultLanguage) {
		return fmt.Errorf("default_language must be hi, ne or mai, got %q", s.DefaultLanguage)
	}
	return nil
}

// Validate validates diarization configuration.
func (d *DiarizationConfig) Validate() error {
	if !d.Enabled {
		return nil
	}
	if d.Provider != "sidecar" && d.Provider != "mock" {
		return fmt.Errorf("provider must be sidecar or mock, got %q", d.Provider)
	}
	if d.WindowSeconds <= 0 {
		return fmt.Errorf("window_seconds must be positive, got %f", d.WindowSeconds)
	}
	if d.MinSegmentSeconds < 0 || d.MinSegmentSeconds >= d.WindowSeconds {
		return fmt.Errorf("min_segment_seconds must be in [0, window_seconds), got %f", d.MinSegmentSeconds)
	}
	if d.NumSpeakers < 0 || d.MinSpeakers < 0 || d.MaxSpeakers < 0 {
		return fmt.Errorf("speaker counts cannot be negative")
	}
	if d.MinSpeakers > 0 && d.MaxSpeakers > 0 && d.MinSpeakers > d.MaxSpeakers {
		return fmt.Errorf("min_speakers (%d) cannot exceed max_speakers (%d)", d.MinSpeakers, d.MaxSpeakers)
	}
	return nil
}

// Validate validates inference configuration. The endpoint is only
// required when a sidecar backend is selected.
func (i *InferenceConfig) Validate(needEndpoint bool) error {
	if needEndpoint && i.Endpoint == "" {
		return fmt.Errorf("endpoint cannot be empty with a sidecar provider")
	}
	if i.Policy != "inline" && i.Policy != "pool" {
		return fmt.Errorf("policy must be inline or pool, got %q", i.Policy)
	}
	if i.Policy == "pool" && i.PoolSize < 1 {
		return fmt.Errorf("pool_size must be at least 1, got %d", i.PoolSize)
	}
	if i.MaxRetries < 0 {
		return fmt.Errorf("max_retries cannot be negative, got %d", i.MaxRetries)
	}
	if !slices.Contains([]string{"auto", "cuda", "cpu"}, i.Device) {
		return fmt.Errorf("device must be auto, cuda or cpu, got %q", i.Device)
	}
	return nil
}

// Validate validates Kafka configuration.
func (k *KafkaConfig) Validate() error {
	if !k.Enabled {
		return nil
	}
	if len(k.Brokers) == 0 {
		return fmt.Errorf("brokers cannot be empty when Kafka is enabled")
	}
	if k.TopicTranscript == "" || k.TopicLanguage == "" {
		return fmt.Errorf("topics cannot be empty when Kafka is enabled")
	}
	return nil
}

// Validate validates Redis configuration.
func (r *RedisConfig) Validate() error {
	if r.Enabled && r.Addr == "" {
		return fmt.Errorf("addr cannot be empty when Redis is enabled")
	}
	return nil
}

// Validate validates observability configuration.
func (o *ObservabilityConfig) Validate() error {
	if o.LogFormat != "json" && o.LogFormat != "console" {
		return fmt.Errorf("log_format must be json or console, got %q", o.LogFormat)
	}
	return nil
}

func validatePort(p string) error {
	n, err := strconv.Atoi(p)
	if err != nil || n < 1 || n > 65535 {
		return fmt.Errorf("must be between 1 and 65535, got %q", p)
	}
	return nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envOrDefaultInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envOrDefaultFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func envOrDefaultBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func envOrDefaultDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
