package common

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Storage backends selectable with STORAGE_BACKEND.
const (
	BackendJSON     = "json"
	BackendBolt     = "bolt"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// Analyzer kinds selectable with ANALYZER.
const (
	AnalyzerStub   = "stub"
	AnalyzerOpenAI = "openai"
	AnalyzerGemini = "gemini"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Storage  StorageConfig  `toml:"storage"`
	Analyzer AnalyzerConfig `toml:"analyzer"`
	Packs    PacksConfig    `toml:"packs"`
	GodDraw  GodDrawConfig  `toml:"god_draw"`
	Inbox    InboxConfig    `toml:"inbox"`
	Log      LogConfig      `toml:"log"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	HTTPAddr       string `toml:"http_addr"`
	GRPCHealthAddr string `toml:"grpc_health_addr"`
	StaticDir      string `toml:"static_dir"`
	CardBacksDir   string `toml:"card_backs_dir"`
}

// StorageConfig selects the content directory and the record backend.
type StorageConfig struct {
	UploadDir  string `toml:"upload_dir"`
	Backend    string `toml:"backend"`
	DataDir    string `toml:"data_dir"`
	CardsDB    string `toml:"cards_db"`
	PacksDB    string `toml:"packs_db"`
	SettingsDB string `toml:"settings_db"`
	BoltPath   string `toml:"bolt_path"`
	DSN        string `toml:"db_url"`
	GCSBucket  string `toml:"gcs_bucket"`
}

// AnalyzerConfig holds VLM-related configuration
type AnalyzerConfig struct {
	Kind         string        `toml:"kind"`
	UseStub      bool          `toml:"use_stub"`
	APIBase      string        `toml:"api_base"`
	APIKey       string        `toml:"api_key"`
	Model        string        `toml:"model"`
	Temperature  float32       `toml:"temperature"`
	MaxTokens    int           `toml:"max_tokens"`
	Timeout      time.Duration `toml:"timeout"`
	MaxImageSide int           `toml:"max_image_side"`
	JPEGQuality  int           `toml:"jpeg_quality"`
	StubDelay    time.Duration `toml:"stub_delay"`
	GeminiAPIKey string        `toml:"gemini_api_key"`
	GeminiModel  string        `toml:"gemini_model"`
}

// PacksConfig sizes packs and the background queue.
type PacksConfig struct {
	Size      int `toml:"size"`
	Workers   int `toml:"workers"`
	QueueSize int `toml:"queue_size"`
}

type GodDrawConfig struct {
	URL     string        `toml:"url"`
	Min     int           `toml:"min"`
	Max     int           `toml:"max"`
	Timeout time.Duration `toml:"timeout"`
}

type InboxConfig struct {
	Dir      string        `toml:"dir"`
	Debounce time.Duration `toml:"debounce"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPAddr:     ":8000",
			StaticDir:    "static",
			CardBacksDir: filepath.Join("static", "card_backs"),
		},
		Storage: StorageConfig{
			UploadDir:  "uploads",
			Backend:    BackendJSON,
			DataDir:    ".",
			CardsDB:    "cards.json",
			PacksDB:    "packs.json",
			SettingsDB: "settings.json",
			BoltPath:   "cards.bolt",
		},
		Analyzer: AnalyzerConfig{
			Kind:         AnalyzerOpenAI,
			UseStub:      true,
			APIBase:      "http://localhost:8080",
			Model:        "qwen2-vl",
			Temperature:  0.6,
			MaxTokens:    4096,
			Timeout:      60 * time.Second,
			MaxImageSide: 576,
			JPEGQuality:  85,
			StubDelay:    1500 * time.Millisecond,
			GeminiModel:  "gemini-2.5-flash",
		},
		Packs: PacksConfig{
			Size:      10,
			Workers:   1,
			QueueSize: 64,
		},
		GodDraw: GodDrawConfig{
			URL:     "https://api.tcslw.cn/api/img/tbmjx?type=json",
			Min:     5,
			Max:     10,
			Timeout: 20 * time.Second,
		},
		Inbox: InboxConfig{
			Debounce: 500 * time.Millisecond,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// LoadConfig layers defaults, an optional TOML file named by CONFIG_FILE and
// environment variables (a local .env is loaded first when present).
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, NewAppError("CONFIG_ERROR", "load .env", err)
	}

	cfg := DefaultConfig()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, NewAppError("CONFIG_ERROR", fmt.Sprintf("decode %s", path), err)
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Server.HTTPAddr = getEnv("HTTP_ADDR", c.Server.HTTPAddr)
	c.Server.GRPCHealthAddr = getEnv("GRPC_HEALTH_ADDR", c.Server.GRPCHealthAddr)
	c.Server.StaticDir = getEnv("STATIC_DIR", c.Server.StaticDir)
	c.Server.CardBacksDir = getEnv("CARD_BACKS_DIR", c.Server.CardBacksDir)

	c.Storage.UploadDir = getEnv("UPLOAD_DIR", c.Storage.UploadDir)
	c.Storage.Backend = strings.ToLower(getEnv("STORAGE_BACKEND", c.Storage.Backend))
	c.Storage.DataDir = getEnv("DATA_DIR", c.Storage.DataDir)
	c.Storage.CardsDB = getEnv("CARDS_DB", c.Storage.CardsDB)
	c.Storage.PacksDB = getEnv("PACKS_DB", c.Storage.PacksDB)
	c.Storage.SettingsDB = getEnv("SETTINGS_DB", c.Storage.SettingsDB)
	c.Storage.BoltPath = getEnv("BOLT_PATH", c.Storage.BoltPath)
	c.Storage.DSN = getEnv("DB_URL", c.Storage.DSN)
	c.Storage.GCSBucket = getEnv("GCS_BUCKET", c.Storage.GCSBucket)

	c.Analyzer.Kind = strings.ToLower(getEnv("ANALYZER", c.Analyzer.Kind))
	c.Analyzer.UseStub = getEnvAsBool("USE_STUB", c.Analyzer.UseStub)
	c.Analyzer.APIBase = getEnv("VLM_API_BASE", c.Analyzer.APIBase)
	c.Analyzer.APIKey = getEnv("VLM_API_KEY", c.Analyzer.APIKey)
	c.Analyzer.Model = getEnv("VLM_MODEL", c.Analyzer.Model)
	c.Analyzer.Temperature = getEnvAsFloat32("VLM_TEMPERATURE", c.Analyzer.Temperature)
	c.Analyzer.MaxTokens = getEnvAsInt("VLM_MAX_TOKENS", c.Analyzer.MaxTokens)
	c.Analyzer.Timeout = getEnvAsDuration("VLM_TIMEOUT", c.Analyzer.Timeout)
	c.Analyzer.MaxImageSide = getEnvAsInt("VLM_MAX_IMAGE_SIDE", c.Analyzer.MaxImageSide)
	c.Analyzer.JPEGQuality = getEnvAsInt("VLM_JPEG_QUALITY", c.Analyzer.JPEGQuality)
	c.Analyzer.StubDelay = getEnvAsDuration("STUB_DELAY", c.Analyzer.StubDelay)
	c.Analyzer.GeminiAPIKey = getEnv("GEMINI_API_KEY", c.Analyzer.GeminiAPIKey)
	c.Analyzer.GeminiModel = getEnv("GEMINI_MODEL", c.Analyzer.GeminiModel)

	c.Packs.Size = getEnvAsInt("PACK_SIZE", c.Packs.Size)
	c.Packs.Workers = getEnvAsInt("PACK_WORKERS", c.Packs.Workers)
	c.Packs.QueueSize = getEnvAsInt("PACK_QUEUE_SIZE", c.Packs.QueueSize)

	c.GodDraw.URL = getEnv("GOD_DRAW_URL", c.GodDraw.URL)
	c.GodDraw.Min = getEnvAsInt("GOD_DRAW_MIN", c.GodDraw.Min)
	c.GodDraw.Max = getEnvAsInt("GOD_DRAW_MAX", c.GodDraw.Max)
	c.GodDraw.Timeout = getEnvAsDuration("GOD_DRAW_TIMEOUT", c.GodDraw.Timeout)

	c.Inbox.Dir = getEnv("INBOX_DIR", c.Inbox.Dir)
	c.Inbox.Debounce = getEnvAsDuration("INBOX_DEBOUNCE", c.Inbox.Debounce)

	c.Log.Level = strings.ToLower(getEnv("LOG_LEVEL", c.Log.Level))
	c.Log.Format = strings.ToLower(getEnv("LOG_FORMAT", c.Log.Format))
}

// EffectiveAnalyzer resolves USE_STUB and ANALYZER into one analyzer kind.
func (c *Config) EffectiveAnalyzer() string {
	if c.Analyzer.UseStub {
		return AnalyzerStub
	}
	return c.Analyzer.Kind
}

// DataPath resolves a record file name against the data directory.
func (c *Config) DataPath(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.Storage.DataDir, name)
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate rejects inconsistent settings.
func (c *Config) Validate() error {
	if c.Server.HTTPAddr == "" {
		return NewAppError("CONFIG_ERROR", "HTTP_ADDR is required", ErrInvalidInput)
	}
	if c.Storage.UploadDir == "" {
		return NewAppError("CONFIG_ERROR", "UPLOAD_DIR is required", ErrInvalidInput)
	}
	switch c.Storage.Backend {
	case BackendJSON, BackendBolt:
	case BackendSQLite, BackendPostgres:
		if c.Storage.DSN == "" {
			return NewAppError("CONFIG_ERROR", "DB_URL is required for SQL backends", ErrInvalidInput)
		}
	default:
		return NewAppError("CONFIG_ERROR", fmt.Sprintf("unknown STORAGE_BACKEND %q", c.Storage.Backend), ErrInvalidInput)
	}
	switch c.EffectiveAnalyzer() {
	case AnalyzerStub:
	case AnalyzerOpenAI:
		if c.Analyzer.APIBase == "" {
			return NewAppError("CONFIG_ERROR", "VLM_API_BASE is required", ErrInvalidInput)
		}
	case AnalyzerGemini:
		if c.Analyzer.GeminiAPIKey == "" {
			return NewAppError("CONFIG_ERROR", "GEMINI_API_KEY is required", ErrInvalidInput)
		}
	default:
		return NewAppError("CONFIG_ERROR", fmt.Sprintf("unknown ANALYZER %q", c.Analyzer.Kind), ErrInvalidInput)
	}
	if c.Packs.Size <= 0 {
		return NewAppError("CONFIG_ERROR", "PACK_SIZE must be positive", ErrInvalidInput)
	}
	if c.Packs.Workers <= 0 || c.Packs.QueueSize <= 0 {
		return NewAppError("CONFIG_ERROR", "PACK_WORKERS and PACK_QUEUE_SIZE must be positive", ErrInvalidInput)
	}
	if c.GodDraw.Min <= 0 || c.GodDraw.Max < c.GodDraw.Min {
		return NewAppError("CONFIG_ERROR", "GOD_DRAW_MIN must be positive and not above GOD_DRAW_MAX", ErrInvalidInput)
	}
	return nil
}
