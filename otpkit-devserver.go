package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	authhttp "github.com/open-rails/otpkit/adapters/http"
	"github.com/open-rails/otpkit/core"
	pgstore "github.com/open-rails/otpkit/storage/postgres"
	"github.com/open-rails/otpkit/token"
)

type config struct {
	ListenAddr string        `env:"OTPKIT_LISTEN_ADDR" envDefault:":8080"`
	Issuer     string        `env:"OTPKIT_ISSUER" envDefault:"otpkit-dev"`
	SigningKID string        `env:"OTPKIT_SIGNING_KID" envDefault:"dev-1"`
	SigningKey string        `env:"OTPKIT_SIGNING_KEY"`
	RedisURL   string        `env:"REDIS_URL"`
	DBURL      string        `env:"DATABASE_URL"`
	Cooldown   time.Duration `env:"OTPKIT_COOLDOWN" envDefault:"30s"`
	CodeTTL    time.Duration `env:"OTPKIT_CODE_TTL" envDefault:"120s"`
	RateWindow time.Duration `env:"OTPKIT_RATE_WINDOW" envDefault:"10m"`
	RateLimit  int           `env:"OTPKIT_RATE_CEILING" envDefault:"5"`
	CodeLength int           `env:"OTPKIT_CODE_LENGTH" envDefault:"5"`
	SessionTTL time.Duration `env:"OTPKIT_SESSION_TTL" envDefault:"72h"`
	LogDev     bool          `env:"LOG_DEV" envDefault:"false"`
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "otpkit-devserver:", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	var cfg config
	if err := env.Parse(&cfg); err != nil {
		return err
	}
	if cfg.SigningKey == "" {
		return fmt.Errorf("OTPKIT_SIGNING_KEY is required")
	}

	log, err := newLogger(cfg.LogDev)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	tokens := token.NewService(cfg.Issuer, token.NewStaticKeySource(cfg.SigningKID, []byte(cfg.SigningKey)))
	svc := authhttp.NewService(core.Options{
		Cooldown:    cfg.Cooldown,
		CodeTTL:     cfg.CodeTTL,
		RateWindow:  cfg.RateWindow,
		RateCeiling: cfg.RateLimit,
		CodeLength:  cfg.CodeLength,
		SessionTTL:  cfg.SessionTTL,
	}, tokens).WithLogger(log)

	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("parse REDIS_URL: %w", err)
		}
		svc.WithRedis(redis.NewClient(opt))
		log.Info("using redis verification store")
	}

	if cfg.DBURL != "" {
		pg, err := pgxpool.New(context.Background(), cfg.DBURL)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer pg.Close()
		svc.WithAccounts(pgstore.NewAccounts(pg))
		log.Info("account store attached")
	}

	// Periodic reclaim of expired entries; a no-op on the redis store.
	c := cron.New()
	if _, err := c.AddFunc("@every 1m", func() {
		n, err := svc.Core().Store().PurgeExpired(context.Background(), time.Now())
		if err != nil {
			log.Warn("sweep failed", zap.Error(err))
			return
		}
		if n > 0 {
			log.Debug("swept expired entries", zap.Int("count", n))
		}
	}); err != nil {
		return err
	}
	c.Start()
	defer c.Stop()

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	mux.Handle("/auth/", svc.APIHandler())

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
	}
	log.Info("listening", zap.String("addr", cfg.ListenAddr))
	return srv.ListenAndServe()
}

func newLogger(dev bool) (*zap.Logger, error) {
	if dev {
		return zap.NewDevelopment()
	}
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	zcore := zapcore.NewCore(zapcore.NewJSONEncoder(encoderCfg), zapcore.AddSync(os.Stdout), zapcore.InfoLevel)
	return zap.New(zcore, zap.AddCaller()), nil
}
