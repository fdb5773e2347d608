package config

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Server ServerConfig
	Relay  RelayConfig
}

type ServerConfig struct {
	Addr         string        `envconfig:"ADDR" default:":8080"`
	ReadTimeout  time.Duration `envconfig:"READ_TIMEOUT" default:"15s"`
	WriteTimeout time.Duration `envconfig:"WRITE_TIMEOUT" default:"15s"`
}

type RelayConfig struct {
	CodeLength    int           `envconfig:"ROOM_CODE_LENGTH" default:"4"`
	CodeAttempts  int           `envconfig:"ROOM_CODE_ATTEMPTS" default:"10"`
	RetainHistory bool          `envconfig:"RETAIN_HISTORY" default:"true"`
	HistoryLimit  int           `envconfig:"HISTORY_LIMIT" default:"0"`
	ReapInterval  time.Duration `envconfig:"REAP_INTERVAL" default:"1h"`
	ReapRetention time.Duration `envconfig:"REAP_RETENTION" default:"1h"`
	SendBuffer    int           `envconfig:"CLIENT_SEND_BUFFER" default:"256"`
}

func Load() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found or error loading .env file: %v", err)
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("processing environment: %w", err)
	}
	return &cfg, nil
}
