package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/driver/mysql"

	"quoteingest/internal/config"
	"quoteingest/internal/httpx"
	"quoteingest/internal/ingest"
	"quoteingest/internal/provider"
	"quoteingest/internal/provider/ratelimit"
	"quoteingest/internal/provider/yahoo"
	"quoteingest/internal/store/sqlstore"
)

func main() {
	var days int
	var password string
	var logFile string
	var verbose bool
	var configPath string

	flag.IntVar(&days, "days", 0, "number of days to look back for quotes (default from config, max 28)")
	flag.StringVar(&password, "password", getenv("DB_PASSWORD", ""), "database password (required)")
	flag.StringVar(&logFile, "log-file", getenv("LOG_FILE", ""), "path to log file (required)")
	flag.BoolVar(&verbose, "verbose", false, "enable debug logging, including store operation latency")
	flag.StringVar(&configPath, "config", getenv("CONFIG_FILE", ""), "path to config.json (optional)")
	flag.Parse()

	if logFile == "" {
		fmt.Fprintln(os.Stderr, "error: -log-file is required")
		os.Exit(2)
	}

	logger, err := newLogger(logFile, verbose)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: opening log file: %v\n", err)
		os.Exit(2)
	}
	defer logger.Sync()

	// Load config (optional) and merge with flags/env.
	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Error("loading config", zap.Error(err))
		os.Exit(2)
	}
	if days != 0 {
		cfg.LookbackDays = days
	}
	if password != "" {
		cfg.Database.Password = password
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", zap.Error(err))
		os.Exit(2)
	}

	if err := run(cfg, logger); err != nil {
		logger.Error("fatal error during quote update", zap.Error(err))
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	st, err := sqlstore.Open(mysql.Open(cfg.Database.DSN()), logger)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	logger.Info("connected to database",
		zap.String("host", cfg.Database.Host),
		zap.String("name", cfg.Database.Name))
	defer func() {
		if err := st.Close(); err != nil {
			logger.Warn("closing database connection", zap.Error(err))
			return
		}
		logger.Info("disconnected from database")
	}()

	httpClient := httpx.New(time.Duration(cfg.Provider.RequestTimeoutSec) * time.Second)
	opts := []yahoo.ClientOption{yahoo.WithHTTPClient(httpClient)}
	if cfg.Provider.Endpoint != "" {
		opts = append(opts, yahoo.WithBaseURL(cfg.Provider.Endpoint))
	}
	var market provider.MarketData = yahoo.New(opts...)
	if cfg.Provider.MaxRequestsPerMinute > 0 {
		rate := float64(cfg.Provider.MaxRequestsPerMinute) / 60.0
		burst := cfg.Provider.Burst
		if burst <= 0 {
			burst = 1
		}
		market = &ratelimit.TokenBucketMarketData{M: market, TB: ratelimit.NewTokenBucket(rate, burst)}
	} else if cfg.Provider.MinRequestIntervalSec > 0 {
		interval := time.Duration(cfg.Provider.MinRequestIntervalSec) * time.Second
		market = &ratelimit.MinInterval{M: market, Interval: interval}
	}

	logger.Info("starting stock quote update",
		zap.Int("lookback_days", cfg.LookbackDays),
		zap.Int("tickers", len(cfg.Tickers)))

	runner := &ingest.Runner{Store: st, Market: market, Log: logger}
	report, err := runner.Run(context.Background(), cfg.Tickers, cfg.LookbackDays)
	if err != nil {
		return err
	}

	logger.Info("stock update summary")
	for _, o := range report.Outcomes {
		logger.Info("ticker summary",
			zap.String("ticker", o.Ticker),
			zap.Int("inserted", o.Inserted),
			zap.Int("skipped", o.Skipped))
	}
	inserted, skipped := report.Totals()
	logger.Info("run complete", zap.Int("inserted", inserted), zap.Int("skipped", skipped))
	return nil
}

func newLogger(logFile string, verbose bool) (*zap.Logger, error) {
	level := zap.InfoLevel
	if verbose {
		level = zap.DebugLevel
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.OutputPaths = []string{logFile, "stderr"}
	cfg.ErrorOutputPaths = []string{logFile, "stderr"}
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg.Build()
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
