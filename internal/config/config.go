package config

import (
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/straja-ai/fieldsense/internal/onnxrt"
)

// Pipeline modes.
const (
	ModeClassifier = "classifier"
	ModeVerifier   = "verifier"
)

// Config holds fieldsense configuration.
type Config struct {
	Server     ServerConfig              `yaml:"server"`
	Data       DataConfig                `yaml:"data"`
	Pipeline   PipelineConfig            `yaml:"pipeline"`
	Classifier ClassifierConfig          `yaml:"classifier"`
	Providers  map[string]ProviderConfig `yaml:"providers"`
	Verifier   VerifierConfig            `yaml:"verifier"`
	Telemetry  TelemetryConfig           `yaml:"telemetry"`
}

type ServerConfig struct {
	Addr            string `yaml:"addr"`              // HTTP listen address, e.g. ":8090"
	MaxRequestBytes int64  `yaml:"max_request_bytes"` // body limit for /v1/classify
}

// DataConfig locates the files fieldsense owns. Relative paths resolve
// against Dir.
type DataConfig struct {
	Dir         string `yaml:"dir"`
	LearnedPath string `yaml:"learned_path"`
	JournalPath string `yaml:"journal_path"`
	ProfilePath string `yaml:"profile_path"`
}

type PipelineConfig struct {
	Mode                string  `yaml:"mode"` // classifier | verifier
	LearnMinConfidence  float64 `yaml:"learn_min_confidence"`
	AnswerMinConfidence float64 `yaml:"answer_min_confidence"`
}

type ClassifierConfig struct {
	Stage1Threshold float64         `yaml:"stage1_threshold"`
	Stage2Threshold float64         `yaml:"stage2_threshold"`
	NLI             NLIConfig       `yaml:"nli"`
	Embed           EmbedConfig     `yaml:"embed"`
	Runtime         onnxrt.Settings `yaml:"runtime"`
}

type NLIConfig struct {
	ModelDir string `yaml:"model_dir"`
	Template string `yaml:"template"`
	SeqLen   int    `yaml:"seq_len"`
}

// EmbedConfig selects the stage-2 embedder. Backend "onnx" runs ModelDir
// locally; "ollama", "openai" and "openrouter" call an embeddings API.
type EmbedConfig struct {
	Backend    string `yaml:"backend"`
	ModelDir   string `yaml:"model_dir"`
	SeqLen     int    `yaml:"seq_len"`
	Model      string `yaml:"model"`
	Endpoint   string `yaml:"endpoint"`
	APIKeyEnv  string `yaml:"api_key_env"`
	CorpusPath string `yaml:"corpus_path"`
}

type ProviderConfig struct {
	Type                 string `yaml:"type"`        // openai | gemini
	BaseURL              string `yaml:"base_url"`    // e.g. "https://api.openai.com/v1"
	APIKeyEnv            string `yaml:"api_key_env"` // e.g. "OPENAI_API_KEY"
	APIKey               string `yaml:"api_key"`
	TimeoutSeconds       int    `yaml:"timeout_seconds"`
	AllowPrivateNetworks bool   `yaml:"allow_private_networks"`
}

type VerifierConfig struct {
	Provider string `yaml:"provider"` // provider name from Providers map
	Model    string `yaml:"model"`
}

type TelemetryConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Endpoint string `yaml:"endpoint"`
	Protocol string `yaml:"protocol"` // grpc | http
}

// Load reads configuration from a YAML file.
// If the file doesn't exist, it returns a default config and no error.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		// If file doesn't exist, return default config
		if os.IsNotExist(err) {
			return defaultConfig(), nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)

	return &cfg, nil
}

func defaultConfig() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8090"
	}
	if cfg.Server.MaxRequestBytes <= 0 {
		cfg.Server.MaxRequestBytes = 1 << 20
	}

	if cfg.Data.Dir == "" {
		cfg.Data.Dir = defaultDataDir()
	}
	if cfg.Data.LearnedPath == "" {
		cfg.Data.LearnedPath = "learned_patterns.json"
	}
	if cfg.Data.JournalPath == "" {
		cfg.Data.JournalPath = "journal.db"
	}
	cfg.Data.LearnedPath = resolve(cfg.Data.Dir, cfg.Data.LearnedPath)
	cfg.Data.JournalPath = resolve(cfg.Data.Dir, cfg.Data.JournalPath)
	if cfg.Data.ProfilePath != "" {
		cfg.Data.ProfilePath = resolve(cfg.Data.Dir, cfg.Data.ProfilePath)
	}

	if cfg.Pipeline.Mode == "" {
		cfg.Pipeline.Mode = ModeClassifier
	}
	if cfg.Pipeline.LearnMinConfidence == 0 {
		cfg.Pipeline.LearnMinConfidence = 0.60
	}
	if cfg.Pipeline.AnswerMinConfidence == 0 {
		cfg.Pipeline.AnswerMinConfidence = 0.45
	}

	if cfg.Classifier.Stage1Threshold == 0 {
		cfg.Classifier.Stage1Threshold = 0.45
	}
	if cfg.Classifier.Stage2Threshold == 0 {
		cfg.Classifier.Stage2Threshold = 0.60
	}
	if cfg.Classifier.NLI.ModelDir == "" {
		cfg.Classifier.NLI.ModelDir = os.Getenv("FIELDSENSE_NLI_MODEL_DIR")
	}
	if cfg.Classifier.Embed.ModelDir == "" {
		cfg.Classifier.Embed.ModelDir = os.Getenv("FIELDSENSE_EMBED_MODEL_DIR")
	}
	if cfg.Classifier.Embed.Backend == "" {
		cfg.Classifier.Embed.Backend = "onnx"
	}

	if cfg.Providers == nil {
		cfg.Providers = map[string]ProviderConfig{}
	}
	// If no verifier provider is set but there's exactly one provider,
	// use that one.
	if cfg.Verifier.Provider == "" && len(cfg.Providers) == 1 {
		for name := range cfg.Providers {
			cfg.Verifier.Provider = name
			break
		}
	}

	if cfg.Telemetry.Protocol == "" {
		cfg.Telemetry.Protocol = "grpc"
	}
}

// ResolveAPIKey returns the provider's key, preferring the environment variable.
func (p ProviderConfig) ResolveAPIKey() string {
	if env := strings.TrimSpace(p.APIKeyEnv); env != "" {
		if v := os.Getenv(env); v != "" {
			return v
		}
	}
	return p.APIKey
}

func defaultDataDir() string {
	if dir := os.Getenv("FIELDSENSE_DATA_DIR"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".fieldsense"
	}
	return filepath.Join(home, ".fieldsense")
}

func resolve(dir, path string) string {
	if strings.HasPrefix(path, "~") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	if filepath.IsAbs(path) || path == ":memory:" {
		return path
	}
	return filepath.Join(dir, path)
}
