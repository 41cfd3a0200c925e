package config

import (
	"fmt"
	"os"
	"voicebrief/pkg/logger"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

const configPath = "configs/config.yaml"

type Config struct {
	Telegram struct {
		Token       string `yaml:"token" env:"TELEGRAM_BOT_TOKEN"`
		PollTimeout int    `yaml:"poll_timeout_seconds" env:"TELEGRAM_POLL_TIMEOUT_SECONDS" env-default:"10"`
	} `yaml:"telegram"`

	Chats struct {
		SourceChatID      int64 `yaml:"source_chat_id" env:"SOURCE_CHAT_ID"`
		DestinationChatID int64 `yaml:"destination_chat_id" env:"DESTINATION_CHAT_ID"`
	} `yaml:"chats"`

	Trigger struct {
		Keyword      string `yaml:"keyword" env:"TRIGGER_KEYWORD" env-default:"stt"`
		AutoMode     bool   `yaml:"auto_mode" env:"AUTO_MODE" env-default:"true"`
		ForwardVoice bool   `yaml:"forward_voice" env:"FORWARD_VOICE" env-default:"false"`
	} `yaml:"trigger"`

	Groq struct {
		APIKey         string `yaml:"api_key" env:"GROQ_API_KEY"`
		BaseURL        string `yaml:"base_url" env:"GROQ_BASE_URL" env-default:"https://api.groq.com/openai/v1"`
		STTModel       string `yaml:"stt_model" env:"GROQ_STT_MODEL" env-default:"whisper-large-v3-turbo"`
		ChatModel      string `yaml:"chat_model" env:"GROQ_CHAT_MODEL" env-default:"moonshotai/kimi-k2-instruct"`
		TimeoutSeconds int    `yaml:"timeout_seconds" env:"GROQ_TIMEOUT_SECONDS" env-default:"120"`
	} `yaml:"groq"`

	Dedup struct {
		RedisAddr     string `yaml:"redis_addr" env:"DEDUP_REDIS_ADDR" env-default:""`
		RedisPassword string `yaml:"redis_password" env:"DEDUP_REDIS_PASSWORD" env-default:""`
		RedisDB       int    `yaml:"redis_db" env:"DEDUP_REDIS_DB" env-default:"0"`
		TTLHours      int    `yaml:"ttl_hours" env:"DEDUP_TTL_HOURS" env-default:"720"`
	} `yaml:"dedup"`

	Archive struct {
		Enabled     bool   `yaml:"enabled" env:"ARCHIVE_ENABLED" env-default:"false"`
		PostgresDSN string `yaml:"postgres_dsn" env:"ARCHIVE_POSTGRES_DSN" env-default:""`

		S3 struct {
			Endpoint  string `yaml:"endpoint" env:"ARCHIVE_S3_ENDPOINT" env-default:""`
			AccessKey string `yaml:"access_key" env:"ARCHIVE_S3_ACCESS_KEY" env-default:""`
			SecretKey string `yaml:"secret_key" env:"ARCHIVE_S3_SECRET_KEY" env-default:""`
			Bucket    string `yaml:"bucket" env:"ARCHIVE_S3_BUCKET" env-default:""`
			Region    string `yaml:"region" env:"ARCHIVE_S3_REGION" env-default:"us-east-1"`
		} `yaml:"s3"`
	} `yaml:"archive"`

	TempDir string `yaml:"temp_dir" env:"TEMP_DIR" env-default:""`
}

// LoadConfig reads configs/config.yaml with environment overrides; when the
// file is absent, environment variables alone are used.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if _, err := os.Stat(configPath); err == nil {
		if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := cleanenv.UpdateEnv(&cfg); err != nil {
			return nil, fmt.Errorf("failed to apply env overrides: %w", err)
		}
	} else {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("failed to read env config: %w", err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	logger.Info("Config loaded successfully")
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Telegram.Token == "" {
		return fmt.Errorf("telegram token is required")
	}
	if c.Groq.APIKey == "" {
		return fmt.Errorf("groq api key is required")
	}
	if c.Trigger.AutoMode {
		if c.Chats.SourceChatID == 0 {
			return fmt.Errorf("source chat id is required in auto mode")
		}
		if c.Chats.DestinationChatID == 0 {
			return fmt.Errorf("destination chat id is required in auto mode")
		}
	}
	return nil
}
