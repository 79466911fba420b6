package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Monday   MondayConfig   `yaml:"monday" mapstructure:"monday"`
	LLM      LLMConfig      `yaml:"llm" mapstructure:"llm"`
	OCR      OCRConfig      `yaml:"ocr" mapstructure:"ocr"`
	Progress ProgressConfig `yaml:"progress" mapstructure:"progress"`
	Intake   IntakeConfig   `yaml:"intake" mapstructure:"intake"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	MaxUploadMiB   int64    `yaml:"max_upload_mib" mapstructure:"max_upload_mib"`
}

// MondayConfig holds Monday.com API credentials and board coordinates.
type MondayConfig struct {
	Key                 string  `yaml:"key" mapstructure:"key"`
	BoardID             string  `yaml:"board_id" mapstructure:"board_id"`
	GroupID             string  `yaml:"group_id" mapstructure:"group_id"`
	StartDate           string  `yaml:"start_date" mapstructure:"start_date"`
	SimilarityThreshold float64 `yaml:"similarity_threshold" mapstructure:"similarity_threshold"`
	ColumnMapPath       string  `yaml:"column_map_path" mapstructure:"column_map_path"`
}

// LLMConfig selects and configures the extraction model provider.
type LLMConfig struct {
	Provider  string `yaml:"provider" mapstructure:"provider"`
	Key       string `yaml:"key" mapstructure:"key"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int    `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// OCRConfig configures PDF text extraction.
type OCRConfig struct {
	Provider      string `yaml:"provider" mapstructure:"provider"`
	PdfToTextPath string `yaml:"pdftotext_path" mapstructure:"pdftotext_path"`
}

// ProgressConfig configures the progress event bus. An empty NATS URL
// keeps events in-process only.
type ProgressConfig struct {
	NATSURL string `yaml:"nats_url" mapstructure:"nats_url"`
}

// IntakeConfig tunes the processing workflow.
type IntakeConfig struct {
	PDFConcurrency int `yaml:"pdf_concurrency" mapstructure:"pdf_concurrency"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("INTAKE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.max_upload_mib", 20)
	v.SetDefault("monday.board_id", "1104961436")
	v.SetDefault("monday.group_id", "topics")
	v.SetDefault("monday.start_date", "2021-01-01")
	v.SetDefault("monday.similarity_threshold", 0.55)
	v.SetDefault("llm.provider", "anthropic")
	v.SetDefault("llm.max_tokens", 4096)
	v.SetDefault("ocr.provider", "local")
	v.SetDefault("ocr.pdftotext_path", "pdftotext")
	v.SetDefault("intake.pdf_concurrency", 3)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
