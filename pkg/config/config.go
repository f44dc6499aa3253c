package config

import (
	"errors"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	HTTP     HTTP
	Logger   Logger
	Postgres Postgres
	Auth     Auth
	Jobs     Jobs
}

type HTTP struct {
	Port int `env:"HTTP_PORT" envDefault:"8080"`
}

type Logger struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"`
}

type Postgres struct {
	DSN     string `env:"POSTGRES_DSN"`
	MaxConn int32  `env:"POSTGRES_MAX_CONNS" envDefault:"10"`
}

type Auth struct {
	JWTSecret string `env:"AUTH_JWT_SECRET"`
}

type Jobs struct {
	MarkOverdueEnabled  bool          `env:"JOB_MARK_OVERDUE_ENABLED" envDefault:"false"`
	MarkOverdueInterval time.Duration `env:"JOB_MARK_OVERDUE_INTERVAL" envDefault:"1h"`
}

func New(envPath string) (Config, error) {
	err := godotenv.Load(envPath)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, err
	}

	c, err := env.ParseAsWithOptions[Config](env.Options{
		RequiredIfNoDef: true,
	})
	if err != nil {
		return Config{}, err
	}

	return c, nil
}
