package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "judge_service.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config failed: %v", err)
	}
	return path
}

func TestLoadAppConfigDefaults(t *testing.T) {
	path := writeConfig(t, `
database:
  dsn: "judge:judge@tcp(127.0.0.1:3306)/judge?parseTime=true"
auth:
  secret: "s3cret"
kafka:
  brokers: ["127.0.0.1:9092"]
  deadLetterTopic: "judge.dead"
  compression: "zstd"
worker:
  workers: 4
language:
  cpp:
    compile: "g++ -O2 -o solution solution.cpp"
`)
	cfg, err := loadAppConfig(path)
	if err != nil {
		t.Fatalf("load config failed: %v", err)
	}
	if cfg.Server.Addr != defaultHTTPAddr || cfg.Status.TTL != defaultStatusTTL {
		t.Fatalf("server and status defaults not applied: %+v %+v", cfg.Server, cfg.Status)
	}
	if cfg.Dispatcher.Workers != 4 {
		t.Fatalf("expected 4 workers, got %d", cfg.Dispatcher.Workers)
	}
	if !cfg.Kafka.Enabled() || cfg.Kafka.TriggerTopic != "judge.trigger" {
		t.Fatalf("unexpected kafka config: %+v", cfg.Kafka)
	}
	retry := cfg.Kafka.PoolRetry
	if retry.Topic != "judge.trigger" || retry.DeadLetterTopic != "judge.dead" || retry.MaxRetries != 5 || retry.MaxDelay != 30*time.Second {
		t.Fatalf("unexpected pool retry defaults: %+v", retry)
	}
	if cfg.Kafka.toMQConfig().Compression != kafka.Zstd {
		t.Fatalf("expected zstd compression")
	}
	if cfg.Language["cpp"].Compile == "" {
		t.Fatalf("expected language override decoded")
	}
	if cfg.Redis.Addr != "" || cfg.Redis.PoolSize != 0 {
		t.Fatalf("redis defaults should not apply without addr: %+v", cfg.Redis)
	}
}

func TestLoadAppConfigValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "missing dsn", body: "auth:\n  secret: x\n"},
		{name: "missing secret", body: "database:\n  dsn: x\n"},
		{name: "lock without redis", body: "database:\n  dsn: x\nauth:\n  secret: x\nstatus:\n  lockTTL: 30s\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := loadAppConfig(writeConfig(t, tt.body)); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestParseCompression(t *testing.T) {
	if parseCompression("GZIP") != kafka.Gzip || parseCompression("none") != kafka.Compression(0) {
		t.Fatalf("unexpected compression mapping")
	}
}
