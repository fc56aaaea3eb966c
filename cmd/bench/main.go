// README: Bench runner against a live deployment; executes HTTP/DB/Redis checks and prints results.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
)

func main() {
	cfg := loadConfig()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()

	bench := NewRunner(cfg)
	results := bench.RunAll(ctx)

	fmt.Println("\n== Summary ==")
	pass, fail, skipped := 0, 0, 0
	for _, r := range results {
		switch r.Status {
		case StatusPass:
			pass++
		case StatusFail:
			fail++
		case StatusSkip:
			skipped++
		}
	}
	fmt.Printf("PASS=%d FAIL=%d SKIP=%d\n", pass, fail, skipped)

	if fail > 0 || (cfg.Strict && skipped > 0) {
		os.Exit(1)
	}
}

type Config struct {
	BaseURL     string
	DSN         string
	RedisAddr   string
	Strict      bool
	Timeout     time.Duration
	Concurrency int
	Duration    time.Duration
}

func loadConfig() Config {
	var cfg Config
	pflag.StringVar(&cfg.BaseURL, "base-url", envOrDefault("RIDESAFE_BENCH_BASE_URL", "http://localhost:8080"), "API base URL")
	pflag.StringVar(&cfg.DSN, "dsn", os.Getenv("RIDESAFE_DB_DSN"), "Postgres DSN (assessment log)")
	pflag.StringVar(&cfg.RedisAddr, "redis", envOrDefault("RIDESAFE_REDIS_ADDR", "localhost:6379"), "Redis address")
	pflag.BoolVar(&cfg.Strict, "strict", envOrDefaultBool("RIDESAFE_BENCH_STRICT", false), "Fail on skipped checks")
	pflag.DurationVar(&cfg.Timeout, "timeout", envOrDefaultDuration("RIDESAFE_BENCH_TIMEOUT", 60*time.Second), "Total timeout")
	pflag.IntVar(&cfg.Concurrency, "concurrency", envOrDefaultInt("RIDESAFE_BENCH_CONCURRENCY", 20), "Concurrency for contention and perf checks")
	pflag.DurationVar(&cfg.Duration, "duration", envOrDefaultDuration("RIDESAFE_BENCH_DURATION", 10*time.Second), "Duration for perf checks")
	pflag.Parse()
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return cfg
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envOrDefaultBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		v = strings.ToLower(v)
		return v == "1" || v == "true" || v == "yes"
	}
	return def
}

func envOrDefaultInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		var n int
		_, _ = fmt.Sscanf(v, "%d", &n)
		if n > 0 {
			return n
		}
	}
	return def
}

func envOrDefaultDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
