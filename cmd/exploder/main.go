package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"exploder/internal/application/port"
	"exploder/internal/application/usecase/scanloop"
	"exploder/internal/domain/model"
	"exploder/internal/domain/service"
	"exploder/internal/infrastructure/config"
	"exploder/internal/infrastructure/logger"
	"exploder/internal/infrastructure/notify"
	"exploder/internal/infrastructure/quote"
	"exploder/internal/infrastructure/screener"
	"exploder/internal/infrastructure/storage/composite"
	"exploder/internal/infrastructure/storage/postgres"
	"exploder/internal/infrastructure/storage/redis"
	"exploder/internal/infrastructure/storage/sqlite"
)

// repo is what both storage backends provide: positions, signals, teardown.
type repo interface {
	port.PositionStore
	port.SignalLog
	Close() error
}

func main() {
	logger.Setup()

	configPath := flag.String("config", "configs/config.toml", "path to config.toml")
	flag.Parse()

	// secrets (.env is optional)
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Str("config", *configPath).Msg("load config failed")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// storage backend
	var store repo
	switch cfg.Storage.Driver {
	case "postgres":
		store, err = postgres.New(cfg.Storage.PostgresDSN)
	default:
		store, err = sqlite.New(cfg.Storage.SQLitePath)
	}
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.Storage.Driver).Msg("open storage failed")
	}
	defer store.Close()

	// signal log, optionally mirrored to redis
	var signals port.SignalLog = store
	if cfg.Redis.Enabled {
		rdb := goredis.NewClient(&goredis.Options{Addr: cfg.Redis.Addr})
		signals = composite.NewSignalLog(store, redis.NewSignalMirror(rdb, cfg.Redis.Prefix))
		log.Info().Str("addr", cfg.Redis.Addr).Msg("redis signal mirror enabled")
	}

	// alert channel
	var notifier port.Notifier = notify.Noop{}
	if cfg.Telegram.Enabled {
		token := os.Getenv("TELEGRAM_BOT_TOKEN")
		if token == "" {
			log.Warn().Msg("telegram enabled but TELEGRAM_BOT_TOKEN unset, alerts go nowhere")
		} else {
			notifier = notify.NewBestEffort(notify.NewTelegramSender(token, cfg.Telegram.ChatID))
		}
	} else {
		log.Warn().Msg("telegram disabled by config")
	}

	risk := riskParams(cfg)
	router := service.NewRouter(store, signals, risk,
		cfg.Alerts.MinChangePct, time.Duration(cfg.Alerts.RealertCooldownMin)*time.Minute)
	manager := service.NewManager(store, notifier, risk)
	advisor := service.NewAdvisor(notifier)

	svc := scanloop.NewService(scanloop.ServiceDeps{
		Scanner:            screener.NewYahoo(cfg.Screener.BaseURL, time.Duration(cfg.Screener.TimeoutSec)*time.Second, cfg.App.TopN),
		Quotes:             quote.NewYahoo(cfg.Quotes.BaseURL, time.Duration(cfg.Quotes.TimeoutSec)*time.Second),
		Store:              store,
		Signals:            signals,
		Notifier:           notifier,
		Router:             router,
		Manager:            manager,
		Advisor:            advisor,
		Interval:           time.Duration(cfg.App.ScanIntervalSec) * time.Second,
		CapitalPerTradeUSD: risk.CapitalPerTradeUSD,
	})

	log.Info().
		Str("config", *configPath).
		Int("scan_interval_sec", cfg.App.ScanIntervalSec).
		Int("top_n", cfg.App.TopN).
		Str("storage", cfg.Storage.Driver).
		Msg("exploder started")

	if err := svc.Run(ctx); err != nil && err != context.Canceled {
		log.Error().Err(err).Msg("scan loop exited")
	}
}

func riskParams(cfg *config.Config) model.RiskParams {
	return model.RiskParams{
		CapitalPerTradeUSD: decimal.NewFromFloat(cfg.Risk.CapitalPerTradeUSD),
		StopLossPct:        decimal.NewFromFloat(cfg.Risk.StopLossPct),
		TP1Pct:             decimal.NewFromFloat(cfg.Risk.TP1Pct),
		TP2Pct:             decimal.NewFromFloat(cfg.Risk.TP2Pct),
		AddOnUSD:           decimal.NewFromFloat(cfg.Risk.AddOnUSD),
		MaxAdds:            cfg.Risk.MaxAdds,
		AddZoneLowPct:      decimal.NewFromFloat(cfg.Risk.AddZoneLowPct),
		AddZoneHighPct:     decimal.NewFromFloat(cfg.Risk.AddZoneHighPct),
	}
}
