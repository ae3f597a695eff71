package config

import (
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		Server:    ServerConfig{Port: 8080},
		Auth:      AuthConfig{JWTSecret: "test-secret-key-for-unit-testing"},
		Scheduler: SchedulerConfig{Enabled: true, Interval: 5 * time.Minute, Timezone: "America/Sao_Paulo"},
		Upload:    UploadConfig{MaxBytes: 1 << 20},
	}
}

func TestValidate_OK(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("期望校验通过，实际: %v", err)
	}
}

func TestValidate_ShortSecret(t *testing.T) {
	cfg := validConfig()
	cfg.Auth.JWTSecret = "short"
	if err := cfg.Validate(); err == nil {
		t.Error("期望 jwt_secret 过短时报错")
	}
}

func TestValidate_BadTimezone(t *testing.T) {
	cfg := validConfig()
	cfg.Scheduler.Timezone = "Mars/Olympus"
	if err := cfg.Validate(); err == nil {
		t.Error("期望非法时区报错")
	}
}

func TestValidate_IntervalTooShort(t *testing.T) {
	cfg := validConfig()
	cfg.Scheduler.Interval = 10 * time.Second
	if err := cfg.Validate(); err == nil {
		t.Error("期望调度间隔过短时报错")
	}

	cfg.Scheduler.Enabled = false
	if err := cfg.Validate(); err != nil {
		t.Errorf("调度关闭时不应校验间隔: %v", err)
	}
}

func TestSchedulerLocation(t *testing.T) {
	cfg := validConfig()
	if got := cfg.Scheduler.Location().String(); got != "America/Sao_Paulo" {
		t.Errorf("期望 America/Sao_Paulo，实际=%s", got)
	}
}
