// Package config centraliza la configuración por variables de entorno.
package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

// Config es toda la configuración del servicio. El backend de
// snapshots se elige por prioridad: DB_DSN, luego REDIS_ADDR, y sin
// ninguno de los dos, memoria.
type Config struct {
	Port string `env:"PORT" envDefault:"8080"`

	DBDSN     string `env:"DB_DSN"`
	RedisAddr string `env:"REDIS_ADDR"`

	// API comunitario: padrón de miembros y verificación de sesiones.
	// Sin BaseURL, el sync remoto queda apagado y el auth en modo dev.
	APIBaseURL string        `env:"API_BASE_URL"`
	APIKey     string        `env:"API_KEY"`
	APITimeout time.Duration `env:"API_TIMEOUT" envDefault:"10s"`

	MasterDataPath string `env:"MASTER_DATA_PATH"`

	LogLevel  string `env:"LOG_LEVEL"  envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`

	DefaultExchangeRate float64 `env:"DEFAULT_EXCHANGE_RATE" envDefault:"530"`
}

// Load parsea las variables de entorno.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
