package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

type Config struct {
	App struct {
		ScanIntervalSec int `toml:"scan_interval_sec"`
		TopN            int `toml:"top_n"`
	} `toml:"app"`

	Alerts struct {
		MinChangePct       float64 `toml:"min_change_pct"`
		RealertCooldownMin int     `toml:"realert_cooldown_min"`
	} `toml:"alerts"`

	Risk struct {
		CapitalPerTradeUSD float64 `toml:"capital_per_trade_usd"`
		StopLossPct        float64 `toml:"stop_loss_pct"`
		TP1Pct             float64 `toml:"tp1_pct"`
		TP2Pct             float64 `toml:"tp2_pct"`
		AddOnUSD           float64 `toml:"add_on_usd"`
		MaxAdds            int     `toml:"max_adds"`
		AddZoneLowPct      float64 `toml:"add_zone_low_pct"`
		AddZoneHighPct     float64 `toml:"add_zone_high_pct"`
	} `toml:"risk"`

	Screener struct {
		BaseURL    string `toml:"base_url"`
		TimeoutSec int    `toml:"timeout_sec"`
	} `toml:"screener"`

	Quotes struct {
		BaseURL    string `toml:"base_url"`
		TimeoutSec int    `toml:"timeout_sec"`
	} `toml:"quotes"`

	Telegram struct {
		Enabled bool   `toml:"enabled"`
		ChatID  string `toml:"chat_id"`
	} `toml:"telegram"`

	Storage struct {
		Driver      string `toml:"driver"`
		SQLitePath  string `toml:"sqlite_path"`
		PostgresDSN string `toml:"postgres_dsn"`
	} `toml:"storage"`

	Redis struct {
		Enabled bool   `toml:"enabled"`
		Addr    string `toml:"addr"`
		Prefix  string `toml:"prefix"`
	} `toml:"redis"`
}

func Load(path string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.App.ScanIntervalSec <= 0 {
		cfg.App.ScanIntervalSec = 180
	}
	if cfg.App.TopN <= 0 {
		cfg.App.TopN = 5
	}
	if cfg.Alerts.MinChangePct <= 0 {
		cfg.Alerts.MinChangePct = 2.0
	}
	if cfg.Alerts.RealertCooldownMin <= 0 {
		cfg.Alerts.RealertCooldownMin = 15
	}
	if cfg.Risk.CapitalPerTradeUSD <= 0 {
		cfg.Risk.CapitalPerTradeUSD = 100
	}
	if cfg.Risk.StopLossPct <= 0 {
		cfg.Risk.StopLossPct = 8
	}
	if cfg.Risk.TP1Pct <= 0 {
		cfg.Risk.TP1Pct = 10
	}
	if cfg.Risk.TP2Pct <= 0 {
		cfg.Risk.TP2Pct = 20
	}
	if cfg.Risk.AddOnUSD <= 0 {
		cfg.Risk.AddOnUSD = 50
	}
	if cfg.Risk.MaxAdds < 0 {
		cfg.Risk.MaxAdds = 0
	}
	if cfg.Risk.AddZoneLowPct == 0 {
		cfg.Risk.AddZoneLowPct = -6
	}
	if cfg.Risk.AddZoneHighPct == 0 {
		cfg.Risk.AddZoneHighPct = -3
	}
	if cfg.Screener.TimeoutSec <= 0 {
		cfg.Screener.TimeoutSec = 10
	}
	if cfg.Quotes.TimeoutSec <= 0 {
		cfg.Quotes.TimeoutSec = 10
	}
	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = "sqlite"
	}
	if cfg.Storage.SQLitePath == "" {
		cfg.Storage.SQLitePath = "data/exploder.db"
	}
	if cfg.Redis.Prefix == "" {
		cfg.Redis.Prefix = "exploder"
	}
	// DSN may carry credentials; the environment wins over the file.
	if dsn := os.Getenv("POSTGRES_DSN"); dsn != "" {
		cfg.Storage.PostgresDSN = dsn
	}
}

func validate(cfg *Config) error {
	if cfg.Risk.AddZoneLowPct >= cfg.Risk.AddZoneHighPct {
		return fmt.Errorf("risk.add_zone_low_pct (%v) must be below risk.add_zone_high_pct (%v)",
			cfg.Risk.AddZoneLowPct, cfg.Risk.AddZoneHighPct)
	}
	if cfg.Risk.TP1Pct >= cfg.Risk.TP2Pct {
		return fmt.Errorf("risk.tp1_pct (%v) must be below risk.tp2_pct (%v)", cfg.Risk.TP1Pct, cfg.Risk.TP2Pct)
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Storage.Driver)) {
	case "sqlite":
	case "postgres":
		if strings.TrimSpace(cfg.Storage.PostgresDSN) == "" {
			return errors.New("storage.driver is postgres but no DSN configured (storage.postgres_dsn or POSTGRES_DSN)")
		}
	default:
		return fmt.Errorf("storage.driver %q unsupported (sqlite, postgres)", cfg.Storage.Driver)
	}
	if cfg.Telegram.Enabled && strings.TrimSpace(cfg.Telegram.ChatID) == "" {
		return errors.New("telegram.chat_id empty but enabled")
	}
	if cfg.Redis.Enabled && strings.TrimSpace(cfg.Redis.Addr) == "" {
		return errors.New("redis.addr empty but enabled")
	}
	return nil
}
