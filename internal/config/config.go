package config

import (
	"os"
	"strconv"
)

type Config struct {
	TCPAddr        string
	HTTPAddr       string // empty disables the metrics/health endpoint
	MaxLineBytes   int
	MaxOutboxBytes int // 0 = unbounded
	EventCapacity  int
}

const (
	defaultTCPAddr        = "127.0.0.1:7711"
	defaultMaxLineBytes   = 4096
	defaultMaxOutboxBytes = 1 << 20
	defaultEventCapacity  = 1024
)

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// getInt returns def when key is unset or not an integer >= min.
func getInt(key string, def, min int) int {
	v, err := strconv.Atoi(getEnv(key, strconv.Itoa(def)))
	if err != nil || v < min {
		return def
	}
	return v
}

func Load() *Config {
	return &Config{
		TCPAddr:        getEnv("CHAT_TCP_ADDR", defaultTCPAddr),
		HTTPAddr:       os.Getenv("CHAT_HTTP_ADDR"),
		MaxLineBytes:   getInt("CHAT_MAX_LINE", defaultMaxLineBytes, 1),
		MaxOutboxBytes: getInt("CHAT_MAX_OUTBOX", defaultMaxOutboxBytes, 0),
		EventCapacity:  getInt("CHAT_EVENTS", defaultEventCapacity, 1),
	}
}
