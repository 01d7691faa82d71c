// Package config loads relay and client settings from the environment,
// optionally seeded from .env files.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"time"

	env "github.com/Netflix/go-env"
	"github.com/joho/godotenv"
)

type Server struct {
	Addr             string        `env:"RCHAN_ADDR,default=:8080"`
	MetricsAddr      string        `env:"RCHAN_METRICS_ADDR,default=:9090"`
	PublicIP         string        `env:"RCHAN_PUBLIC_IP,default=127.0.0.1"`
	Name             string        `env:"RCHAN_NAME,default=Rchan"`
	HistoryBackend   string        `env:"RCHAN_HISTORY_BACKEND,default=file"`
	HistoryPath      string        `env:"RCHAN_HISTORY_PATH,default=chat_history.txt"`
	BadgerPath       string        `env:"RCHAN_BADGER_PATH,default=rchan-history"`
	ReadBuffer       int           `env:"RCHAN_READ_BUFFER,default=1024"`
	MaxRemainder     int           `env:"RCHAN_MAX_REMAINDER,default=65536"`
	OutboundQueue    int           `env:"RCHAN_OUTBOUND_QUEUE,default=64"`
	DrainTimeout     time.Duration `env:"RCHAN_DRAIN_TIMEOUT,default=2s"`
	ReleaseUsernames bool          `env:"RCHAN_RELEASE_USERNAMES,default=false"`
	LogLevel         string        `env:"LOG_LEVEL,default=info"`
}

type Client struct {
	Server       string        `env:"RCHAN_SERVER,default=127.0.0.1:8080"`
	DialTimeout  time.Duration `env:"RCHAN_DIAL_TIMEOUT,default=5s"`
	ReadBuffer   int           `env:"RCHAN_READ_BUFFER,default=1024"`
	MaxRemainder int           `env:"RCHAN_MAX_REMAINDER,default=65536"`
	LogLevel     string        `env:"LOG_LEVEL,default=warn"`
}

// LoadServer reads the relay settings. Missing .env files are ignored.
func LoadServer(files ...string) (Server, error) {
	var cfg Server
	if err := load(&cfg, files); err != nil {
		return cfg, err
	}
	if cfg.ReadBuffer <= 0 {
		return cfg, fmt.Errorf("config: RCHAN_READ_BUFFER must be positive, got %d", cfg.ReadBuffer)
	}
	if _, err := cfg.Port(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func LoadClient(files ...string) (Client, error) {
	var cfg Client
	if err := load(&cfg, files); err != nil {
		return cfg, err
	}
	if _, _, err := net.SplitHostPort(cfg.Server); err != nil {
		return cfg, fmt.Errorf("config: RCHAN_SERVER: %w", err)
	}
	return cfg, nil
}

// Port is the numeric port of Addr, advertised in the directory.
func (c Server) Port() (int, error) {
	_, p, err := net.SplitHostPort(c.Addr)
	if err != nil {
		return 0, fmt.Errorf("config: RCHAN_ADDR: %w", err)
	}
	port, err := strconv.Atoi(p)
	if err != nil || port < 0 || port > 65535 {
		return 0, fmt.Errorf("config: RCHAN_ADDR: invalid port %q", p)
	}
	return port, nil
}

// Level maps LOG_LEVEL names onto slog levels; unknown names fall back to info.
func Level(name string) slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(name))); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

func load(cfg any, files []string) error {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("config: load env file: %w", err)
	}
	if _, err := env.UnmarshalFromEnviron(cfg); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}
