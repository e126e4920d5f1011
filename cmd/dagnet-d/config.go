package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

const defaultAddr = "127.0.0.1:8090"

type Config struct {
	DBPath     string
	ConfigPath string
	Addr       string
	RedisAddr  string
}

func LoadConfig(args []string) (Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return Config{}, fmt.Errorf("failed to get cwd: %w", err)
	}

	defaultDBPath := filepath.Join(cwd, "dagnet.db")

	dbPath := envOrDefault("DAGNET_DB_PATH", defaultDBPath)
	configPath := os.Getenv("DAGNET_CONFIG_PATH")
	addr := addrFromEnv(defaultAddr)
	redisAddr := os.Getenv("DAGNET_REDIS_ADDR")

	flagSet := flag.NewFlagSet("dagnet-d", flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)
	flagDB := flagSet.String("db", dbPath, "path to SQLite database")
	flagConfig := flagSet.String("config", configPath, "path to engine config JSON")
	flagAddr := flagSet.String("addr", addr, "HTTP listen address")
	flagRedis := flagSet.String("redis", redisAddr, "Redis address for the graph cache (optional)")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			flagSet.SetOutput(os.Stdout)
			flagSet.PrintDefaults()
			return Config{}, err
		}
		return Config{}, err
	}

	config := Config{
		DBPath:     resolvePath(*flagDB, cwd),
		ConfigPath: resolvePath(*flagConfig, cwd),
		Addr:       strings.TrimSpace(*flagAddr),
		RedisAddr:  strings.TrimSpace(*flagRedis),
	}

	if config.Addr == "" {
		return Config{}, errors.New("addr cannot be empty")
	}

	return config, nil
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func addrFromEnv(fallback string) string {
	if value := os.Getenv("DAGNET_ADDR"); value != "" {
		return value
	}
	if port := os.Getenv("DAGNET_PORT"); port != "" {
		return fmt.Sprintf("127.0.0.1:%s", port)
	}
	return fallback
}

func resolvePath(path string, cwd string) string {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return trimmed
	}
	if filepath.IsAbs(trimmed) {
		return trimmed
	}
	return filepath.Join(cwd, trimmed)
}
