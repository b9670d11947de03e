package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const ConfigPath = "config.yaml"

// Config holds process configuration. YAML values are defaults; environment
// variables override them.
type Config struct {
	Port           string   `yaml:"port"`
	LogLevel       string   `yaml:"logLevel"`
	LogFormat      string   `yaml:"logFormat"`
	AllowedOrigins []string `yaml:"allowedOrigins"`
	SessionSecret  string   `yaml:"sessionSecret"`

	PublicDir  string `yaml:"publicDir"`
	AudioDir   string `yaml:"audioDir"`
	ScratchDir string `yaml:"scratchDir"`

	OCRProvider    string `yaml:"ocrProvider"`
	MistralAPIKey  string `yaml:"mistralApiKey"`
	MistralBaseURL string `yaml:"mistralBaseURL"`
	OCRModel       string `yaml:"ocrModel"`

	LLMProvider   string `yaml:"llmProvider"`
	GeminiAPIKey  string `yaml:"geminiApiKey"`
	GeminiModel   string `yaml:"geminiModel"`
	OpenAIAPIKey  string `yaml:"openaiApiKey"`
	OpenAIBaseURL string `yaml:"openaiBaseURL"`
	OpenAIModel   string `yaml:"openaiModel"`

	TTSProvider       string `yaml:"ttsProvider"`
	TTSModel          string `yaml:"ttsModel"`
	TTSVoice          string `yaml:"ttsVoice"`
	TTSInstructions   string `yaml:"ttsInstructions"`
	TTSFormat         string `yaml:"ttsFormat"`
	GoogleTTSLanguage string `yaml:"googleTtsLanguage"`

	GridDBURL       string `yaml:"griddbWebApiUrl"`
	GridDBUsername  string `yaml:"griddbUsername"`
	GridDBPassword  string `yaml:"griddbPassword"`
	GridDBContainer string `yaml:"griddbContainer"`

	MinioEndpoint  string        `yaml:"minioEndpoint"`
	MinioAccessKey string        `yaml:"minioAccessKey"`
	MinioSecretKey string        `yaml:"minioSecretKey"`
	MinioBucket    string        `yaml:"minioBucket"`
	MinioUseSSL    bool          `yaml:"minioUseSSL"`
	MinioURLExpiry time.Duration `yaml:"minioUrlExpiry"`
}

func defaults() Config {
	return Config{
		Port:            "8000",
		LogLevel:        "info",
		LogFormat:       "json",
		AllowedOrigins:  []string{"http://localhost:3000"},
		SessionSecret:   "secret",
		PublicDir:       "./public",
		ScratchDir:      os.TempDir(),
		OCRProvider:     "mistral",
		MistralBaseURL:  "https://api.mistral.ai/v1",
		OCRModel:        "mistral-ocr-latest",
		LLMProvider:     "gemini",
		GeminiModel:     "gemini-1.5-flash",
		OpenAIBaseURL:   "https://api.openai.com/v1",
		OpenAIModel:     "gpt-4o-2024-08-06",
		TTSProvider:     "openai",
		TTSModel:        "gpt-4o-mini-tts",
		TTSVoice:        "fable",
		TTSInstructions: "excited and informable podcaster",
		TTSFormat:       "mp3",

		GoogleTTSLanguage: "en-US",
		GridDBContainer:   "podcasts",
		MinioURLExpiry:    7 * 24 * time.Hour,
	}
}

// Load reads .env (if present), then the YAML file at path (if present), then
// environment overrides. An empty path falls back to $CONFIG_FILE and then
// ConfigPath. Missing credentials are not an error.
func Load(path string) (Config, error) {
	cfg := defaults()

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return cfg, fmt.Errorf("load .env: %w", err)
	}

	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	if path == "" {
		path = ConfigPath
	}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return cfg, fmt.Errorf("read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	}

	overrideString(&cfg.Port, "PORT")
	overrideString(&cfg.LogLevel, "LOG_LEVEL")
	overrideString(&cfg.LogFormat, "LOG_FORMAT")
	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		cfg.AllowedOrigins = splitList(v)
	}
	overrideString(&cfg.SessionSecret, "SESSION_SECRET")
	overrideString(&cfg.PublicDir, "PUBLIC_DIR")
	overrideString(&cfg.AudioDir, "AUDIO_DIR")
	overrideString(&cfg.ScratchDir, "SCRATCH_DIR")

	overrideString(&cfg.OCRProvider, "OCR_PROVIDER")
	overrideString(&cfg.MistralAPIKey, "MISTRAL_API_KEY")
	overrideString(&cfg.MistralBaseURL, "MISTRAL_BASE_URL")
	overrideString(&cfg.OCRModel, "OCR_MODEL")

	overrideString(&cfg.LLMProvider, "LLM_PROVIDER")
	overrideString(&cfg.GeminiAPIKey, "GEMINI_API_KEY")
	overrideString(&cfg.GeminiModel, "GEMINI_MODEL")
	overrideString(&cfg.OpenAIAPIKey, "OPENAI_API_KEY")
	overrideString(&cfg.OpenAIBaseURL, "OPENAI_BASE_URL")
	overrideString(&cfg.OpenAIModel, "OPENAI_MODEL")

	overrideString(&cfg.TTSProvider, "TTS_PROVIDER")
	overrideString(&cfg.TTSModel, "TTS_MODEL")
	overrideString(&cfg.TTSVoice, "TTS_VOICE")
	overrideString(&cfg.TTSInstructions, "TTS_INSTRUCTIONS")
	overrideString(&cfg.TTSFormat, "TTS_FORMAT")
	overrideString(&cfg.GoogleTTSLanguage, "GOOGLE_TTS_LANGUAGE")

	overrideString(&cfg.GridDBURL, "GRIDDB_WEBAPI_URL")
	overrideString(&cfg.GridDBUsername, "GRIDDB_USERNAME")
	overrideString(&cfg.GridDBPassword, "GRIDDB_PASSWORD")
	overrideString(&cfg.GridDBContainer, "GRIDDB_CONTAINER")

	overrideString(&cfg.MinioEndpoint, "MINIO_ENDPOINT")
	overrideString(&cfg.MinioAccessKey, "MINIO_ACCESS_KEY")
	overrideString(&cfg.MinioSecretKey, "MINIO_SECRET_KEY")
	overrideString(&cfg.MinioBucket, "MINIO_BUCKET")
	if v := os.Getenv("MINIO_USE_SSL"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.MinioUseSSL = b
		}
	}
	if v := os.Getenv("MINIO_URL_EXPIRY"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.MinioURLExpiry = d
		}
	}

	if cfg.AudioDir == "" {
		cfg.AudioDir = filepath.Join(cfg.PublicDir, "audio")
	}
	if err := validateConfig(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// MissingCredentials lists credential settings that are empty for the selected
// providers.
func (c Config) MissingCredentials() []string {
	var missing []string
	if c.OCRProvider == "mistral" && c.MistralAPIKey == "" {
		missing = append(missing, "MISTRAL_API_KEY")
	}
	if c.LLMProvider == "gemini" && c.GeminiAPIKey == "" {
		missing = append(missing, "GEMINI_API_KEY")
	}
	if (c.LLMProvider == "openai" || c.TTSProvider == "openai") && c.OpenAIAPIKey == "" {
		missing = append(missing, "OPENAI_API_KEY")
	}
	if c.GridDBURL == "" {
		missing = append(missing, "GRIDDB_WEBAPI_URL")
	}
	if c.GridDBUsername == "" || c.GridDBPassword == "" {
		missing = append(missing, "GRIDDB_USERNAME/GRIDDB_PASSWORD")
	}
	return missing
}

func validateConfig(cfg Config) error {
	switch cfg.OCRProvider {
	case "mistral", "local":
	default:
		return fmt.Errorf("config: unknown ocrProvider %q (mistral, local)", cfg.OCRProvider)
	}
	switch cfg.LLMProvider {
	case "gemini", "openai":
	default:
		return fmt.Errorf("config: unknown llmProvider %q (gemini, openai)", cfg.LLMProvider)
	}
	switch cfg.TTSProvider {
	case "openai", "google":
	default:
		return fmt.Errorf("config: unknown ttsProvider %q (openai, google)", cfg.TTSProvider)
	}
	if cfg.MinioEndpoint != "" && cfg.MinioBucket == "" {
		return errors.New("config: minioBucket is required when minioEndpoint is set")
	}
	return nil
}

func overrideString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func splitList(v string) []string {
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
