package config

import (
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
)

type Config struct {
	Env      string `validate:"required,oneof=development stage production"`
	LogLevel string `validate:"required,oneof=debug info warn error"`

	Store  Store  `validate:"required"`
	Auth   Auth   `validate:"required"`
	Limits Limits `validate:"required"`

	// CatalogPath overrides the embedded catalogue when set.
	CatalogPath string
}

type Store struct {
	Path string `validate:"required"`
}

type Auth struct {
	Code string `validate:"required,len=6,numeric"`
}

type Limits struct {
	MaxMessageLen int `validate:"required,gte=1"`
	MaxItems      int `validate:"required,gte=1"`
	MaxQty        int `validate:"required,gte=1"`
}

func New() Config {
	return Config{
		Env:      env("ENV", "development"),
		LogLevel: env("ORDERFLOW_LOG_LEVEL", "info"),

		Store: Store{
			Path: env("ORDERFLOW_DB_PATH", "./orderflow.db"),
		},

		Auth: Auth{
			Code: env("ORDERFLOW_AUTH_CODE", "123456"),
		},

		Limits: Limits{
			MaxMessageLen: envInt("ORDERFLOW_MAX_MESSAGE_LEN", 256),
			MaxItems:      envInt("ORDERFLOW_MAX_ITEMS", 20),
			MaxQty:        envInt("ORDERFLOW_MAX_QTY", 99),
		},

		CatalogPath: env("ORDERFLOW_CATALOG", ""),
	}
}

func (c Config) Validate() error {
	validate := validator.New()
	return validate.Struct(c)
}

func env(key string, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	if len(fallback) == 0 {
		return ""
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		i, err := strconv.Atoi(value)
		if err == nil {
			return i
		}
	}
	return fallback
}
