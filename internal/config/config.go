package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
)

// DefaultTickers is the deployed symbol universe, used when neither config
// file nor environment supplies one.
var DefaultTickers = []string{
	"AA", "AAL", "AAPL", "ACET", "ADBE", "ADP", "AMAT", "AMD", "AMZN", "ARM", "AVGO", "AXP",
	"BABA", "BAC", "BKNG", "C", "CCL", "CALA", "CAT", "CMCSA", "COF", "CRM", "CSCO", "CVX", "CX",
	"DAL", "DIS", "F", "FOXA", "GE", "GS", "HAL", "HBAN", "HD", "IBM", "IJK", "INTC", "JBLU", "JD", "JNJ", "JPM",
	"KHC", "KO", "LCID", "LITE", "LOW", "LUV", "M", "MA", "MNKD", "MMM", "MRK", "MRNA", "MS", "MSFT", "MU",
	"NFLX", "NKE", "NOK", "NOW", "NVDA", "NXE", "PBR", "PCTY", "PEP", "PFE", "PINS", "PLTR", "PYPL", "QCOM", "QQQ",
	"RIOT", "RIVN", "RPGL", "SABR", "SBUX", "SEDG", "SFM", "SHOP", "SIDU", "SPGI", "SPY", "SQQQ", "T", "TGT", "TSLA", "TSM",
	"TSN", "UAL", "UNH", "UBER", "V", "VGLT", "VTI", "VXX", "WFC", "XOM", "XOMA", "XRX", "WMT", "WRN", "YELP", "ZM",
}

type Database struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// DSN renders the MySQL connection string. parseTime is required so quote
// timestamps scan back as time.Time.
func (d Database) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		d.User, d.Password, d.Host, d.Port, d.Name)
}

type Provider struct {
	Endpoint              string `json:"endpoint"`
	RequestTimeoutSec     int    `json:"request_timeout_sec"`
	MaxRequestsPerMinute  int    `json:"max_requests_per_minute"`
	MinRequestIntervalSec int    `json:"min_request_interval_sec"`
	Burst                 int    `json:"burst"`
}

type Config struct {
	LookbackDays int      `json:"lookback_days"`
	Tickers      []string `json:"tickers"`
	Database     Database `json:"database"`
	Provider     Provider `json:"provider"`
}

func Default() Config {
	return Config{
		LookbackDays: 28,
		Tickers:      DefaultTickers,
		Database: Database{
			Host: "localhost",
			Port: 3306,
			User: "tinker",
			Name: "tinker",
		},
		Provider: Provider{
			RequestTimeoutSec: 15,
			Burst:             1,
		},
	}
}

// Validate checks the bounds the run contract promises before the
// orchestrator is invoked.
func (c Config) Validate() error {
	if c.LookbackDays <= 0 {
		return errors.New("lookback days must be a positive integer")
	}
	if c.LookbackDays > 28 {
		return errors.New("lookback days must be less than or equal to 28")
	}
	if len(c.Tickers) == 0 {
		return errors.New("ticker universe is empty")
	}
	if c.Database.Password == "" {
		return errors.New("database password is required")
	}
	return nil
}

// Load reads JSON config from path. If path is empty or the file does not
// exist, it returns defaults. Environment variables override select fields
// for secrecy.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		if _, err := os.Stat("config.json"); err == nil {
			path = "config.json"
		}
	}
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err == nil {
			if err := json.Unmarshal(b, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config: %w", err)
			}
		}
	}
	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("LOOKBACK_DAYS"); v != "" {
		var x int
		fmt.Sscanf(v, "%d", &x)
		if x > 0 {
			cfg.LookbackDays = x
		}
	}
	if v := os.Getenv("TICKERS"); v != "" {
		cfg.Tickers = splitCSV(v)
	}
	if v := os.Getenv("DB_HOST"); v != "" {
		cfg.Database.Host = v
	}
	if v := os.Getenv("DB_PORT"); v != "" {
		var x int
		fmt.Sscanf(v, "%d", &x)
		if x > 0 {
			cfg.Database.Port = x
		}
	}
	if v := os.Getenv("DB_USER"); v != "" {
		cfg.Database.User = v
	}
	if v := os.Getenv("DB_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}
	if v := os.Getenv("DB_NAME"); v != "" {
		cfg.Database.Name = v
	}
	if v := os.Getenv("PROVIDER_ENDPOINT"); v != "" {
		cfg.Provider.Endpoint = v
	}
	if v := os.Getenv("REQUEST_TIMEOUT_SEC"); v != "" {
		var x int
		fmt.Sscanf(v, "%d", &x)
		if x > 0 {
			cfg.Provider.RequestTimeoutSec = x
		}
	}
	if v := os.Getenv("PROVIDER_MAX_RPM"); v != "" {
		var x int
		fmt.Sscanf(v, "%d", &x)
		if x >= 0 {
			cfg.Provider.MaxRequestsPerMinute = x
		}
	}
	if v := os.Getenv("PROVIDER_MIN_INTERVAL_SEC"); v != "" {
		var x int
		fmt.Sscanf(v, "%d", &x)
		if x >= 0 {
			cfg.Provider.MinRequestIntervalSec = x
		}
	}
	if v := os.Getenv("PROVIDER_BURST"); v != "" {
		var x int
		fmt.Sscanf(v, "%d", &x)
		if x > 0 {
			cfg.Provider.Burst = x
		}
	}
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
