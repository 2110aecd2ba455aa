package config

import (
	"crypto/rand"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	RoleHost  = "host"
	RoleGuest = "guest"

	DefaultAddr          = "127.0.0.1:7777"
	DefaultFrameInterval = 50 * time.Millisecond
	DefaultDialTimeout   = 10 * time.Second
)

type AppConfig struct {
	Role      string
	Addr      string
	Transport string

	HostColor string // white | black | random
	StartFEN  string
	GameID    uint32

	RedisURL string

	FrameInterval time.Duration
	DialTimeout   time.Duration

	MsgDir string
}

// HostIsWhite resolves HostColor; random draws from crypto/rand.
func (c *AppConfig) HostIsWhite() bool {
	switch c.HostColor {
	case "white":
		return true
	case "black":
		return false
	}
	var b [1]byte
	if _, err := rand.Read(b[:]); err != nil {
		return true
	}
	return b[0]&1 == 0
}

// Load reads .env (if present) and then the process environment.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv builds the config from the process environment only.
func FromEnv() (*AppConfig, error) {
	cfg := &AppConfig{
		Addr:          DefaultAddr,
		Transport:     "tcp",
		HostColor:     "white",
		FrameInterval: DefaultFrameInterval,
		DialTimeout:   DefaultDialTimeout,
	}

	cfg.Role = strings.ToLower(strings.TrimSpace(os.Getenv("PEER_ROLE")))
	if v := strings.TrimSpace(os.Getenv("PEER_ADDR")); v != "" {
		cfg.Addr = v
	}
	if v := strings.TrimSpace(os.Getenv("PEER_TRANSPORT")); v != "" {
		cfg.Transport = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv("HOST_COLOR")); v != "" {
		cfg.HostColor = strings.ToLower(v)
	}
	cfg.StartFEN = strings.TrimSpace(os.Getenv("START_FEN"))
	cfg.RedisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))
	cfg.MsgDir = strings.TrimSpace(os.Getenv("MSG_DIR"))

	if v := strings.TrimSpace(os.Getenv("GAME_ID")); v != "" {
		n, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("GAME_ID must be a uint32: %w", err)
		}
		cfg.GameID = uint32(n)
	}
	if v := strings.TrimSpace(os.Getenv("FRAME_INTERVAL_MS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.FrameInterval = time.Duration(n) * time.Millisecond
		}
	}
	if v := strings.TrimSpace(os.Getenv("DIAL_TIMEOUT_SEC")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.DialTimeout = time.Duration(n) * time.Second
		}
	}

	if cfg.Role != RoleHost && cfg.Role != RoleGuest {
		return nil, errors.New("PEER_ROLE must be host or guest")
	}
	if cfg.Transport != "tcp" && cfg.Transport != "ws" {
		return nil, fmt.Errorf("PEER_TRANSPORT must be tcp or ws, got %q", cfg.Transport)
	}
	switch cfg.HostColor {
	case "white", "black", "random":
	default:
		return nil, fmt.Errorf("HOST_COLOR must be white, black or random, got %q", cfg.HostColor)
	}
	return cfg, nil
}
