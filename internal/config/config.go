package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. QUIZ_SERVER_PORT or QUIZ_REDIS_ADDR.
const EnvPrefix = "QUIZ"

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Source   SourceConfig   `mapstructure:"source"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	Quiz     QuizConfig     `mapstructure:"quiz"`
}

type ServerConfig struct {
	Port      string `mapstructure:"port"`
	ImagesDir string `mapstructure:"images_dir"`
	Version   string `mapstructure:"version"`
}

// SourceConfig selects where questions come from: static, file, xlsx or postgres.
type SourceConfig struct {
	Kind string `mapstructure:"kind"`
	Path string `mapstructure:"path"`
	// RefreshTTL reloads the active set periodically; empty loads it once.
	RefreshTTL string `mapstructure:"refresh_ttl"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	TTL      string `mapstructure:"ttl"`
	Prefix   string `mapstructure:"prefix"`
}

type PostgresConfig struct {
	URL string `mapstructure:"url"`
}

type QuizConfig struct {
	QuestionTimer      int     `mapstructure:"question_timer"`
	MaxQuestions       int     `mapstructure:"max_questions"`
	HighScoreThreshold float64 `mapstructure:"high_score_threshold"`
	RevealOnTimeout    bool    `mapstructure:"reveal_on_timeout"`
}

const (
	SourceStatic   = "static"
	SourceFile     = "file"
	SourceXLSX     = "xlsx"
	SourcePostgres = "postgres"
)

// Default returns the configuration used when no file or env override sets a key.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Port:      "8080",
			ImagesDir: "quiz-images",
			Version:   "1.0.5",
		},
		Source: SourceConfig{Kind: SourceStatic},
		Redis: RedisConfig{
			TTL:    "10m",
			Prefix: "quiz",
		},
		Quiz: QuizConfig{
			QuestionTimer:      20,
			HighScoreThreshold: 0.7,
		},
	}
}

// Load reads the YAML config at path on top of Default, then applies QUIZ_* env overrides.
// A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()
	v := viper.New()
	m := make(map[string]any)

	if err := mapstructure.Decode(cfg, &m); err != nil {
		return cfg, fmt.Errorf("mapstructure: %w", err)
	}
	if err := v.MergeConfigMap(m); err != nil {
		return cfg, fmt.Errorf("merge config map: %w", err)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.MergeInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return cfg, fmt.Errorf("read config from file %s: %w", path, err)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.Source.Kind {
	case SourceStatic, SourcePostgres:
	case SourceFile, SourceXLSX:
		if c.Source.Path == "" {
			return fmt.Errorf("source.path is required for %s source", c.Source.Kind)
		}
	default:
		return fmt.Errorf("unknown source kind %q", c.Source.Kind)
	}
	if c.Quiz.QuestionTimer <= 0 {
		return fmt.Errorf("quiz.question_timer must be positive, got %d", c.Quiz.QuestionTimer)
	}
	return nil
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
