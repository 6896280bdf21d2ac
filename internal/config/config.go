// Package config reads the service configuration from the environment.
package config

import (
	"crypto/rand"
	"encoding/hex"
	"io/fs"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"

	"github.com/soaringjerry/modern360/internal/db"
	"github.com/soaringjerry/modern360/internal/utils"
)

type Mail struct {
	Server        string        `validate:"omitempty,hostname|ip"`
	Port          int           `validate:"min=1,max=65535"`
	Username      string
	Password      string
	DefaultSender string        `validate:"omitempty,email"`
	UseTLS        bool
	Timeout       time.Duration `validate:"gt=0"`
}

// Enabled reports whether an SMTP server is configured.
func (m Mail) Enabled() bool { return m.Server != "" }

type Config struct {
	Addr              string `validate:"required"`
	DatabaseURL       string `validate:"required"`
	DBDriver          string `validate:"oneof=sqlite3 postgres"`
	JWTSecret         string `validate:"required,min=16"`
	AdminUsername     string
	AdminPasswordHash string
	MainAppURL        string `validate:"required,url"`
	DefaultLanguage   string `validate:"oneof=en bs"`
	LogLevel          string
	Commit            string
	BuildTime         string
	Mail              Mail
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// LoadDotenv loads .env from the working directory when it exists.
func LoadDotenv() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("could not load .env", "err", err)
	}
}

// Load reads the configuration from the environment and validates it.
func Load() (*Config, error) {
	cfg := &Config{
		Addr:              utils.SafeEnv("MODERN360_ADDR", ":8080"),
		DatabaseURL:       utils.SafeEnv("DATABASE_URL", "modern360.db"),
		JWTSecret:         utils.SafeEnv("MODERN360_JWT_SECRET", ""),
		AdminUsername:     utils.SafeEnv("ADMIN_USERNAME", ""),
		AdminPasswordHash: utils.SafeEnv("ADMIN_PASSWORD_HASH", ""),
		MainAppURL:        utils.SafeEnv("MAIN_APP_URL", "https://asistentica.online"),
		DefaultLanguage:   utils.SafeEnv("DEFAULT_LANGUAGE", "bs"),
		LogLevel:          utils.SafeEnv("LOG_LEVEL", "info"),
		Commit:            utils.SafeEnv("MODERN360_COMMIT", "dev"),
		BuildTime:         utils.SafeEnv("MODERN360_BUILD_TIME", ""),
		Mail: Mail{
			Server:        utils.SafeEnv("MAIL_SERVER", ""),
			Port:          utils.SafeEnvInt("MAIL_PORT", 587),
			Username:      utils.SafeEnv("MAIL_USERNAME", ""),
			Password:      utils.SafeEnv("MAIL_PASSWORD", ""),
			DefaultSender: utils.SafeEnv("MAIL_DEFAULT_SENDER", ""),
			UseTLS:        utils.SafeEnvBool("MAIL_USE_TLS", true),
			Timeout:       utils.SafeEnvDuration("MAIL_TIMEOUT", 15*time.Second),
		},
	}
	cfg.DBDriver = utils.SafeEnv("DB_DRIVER", db.DriverFor(cfg.DatabaseURL))
	if cfg.Mail.DefaultSender == "" {
		cfg.Mail.DefaultSender = cfg.Mail.Username
	}
	if cfg.JWTSecret == "" {
		secret, err := randomSecret()
		if err != nil {
			return nil, err
		}
		cfg.JWTSecret = secret
		slog.Warn("MODERN360_JWT_SECRET not set, generated a per-process secret; admin tokens will not survive a restart")
	}
	if err := validate.Struct(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func randomSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", errors.Wrap(err, "generate jwt secret")
	}
	return hex.EncodeToString(b), nil
}
