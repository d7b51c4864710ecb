// Package config reads the OCF_* environment, optionally seeded from a .env file.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/timoknapp/orienteering-finder/pkg/logger"
	"github.com/timoknapp/orienteering-finder/pkg/openstreetmap"
	"github.com/timoknapp/orienteering-finder/pkg/suggest"
	"github.com/timoknapp/orienteering-finder/pkg/util"
)

type Config struct {
	ListenAddr string
	CacheDir   string

	NominatimURL   string
	PhotonURL      string
	UserAgent      string
	GeocodeTimeout time.Duration
	SuggestQuiet   time.Duration

	CORSOrigins []string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	Scheduler SchedulerConfig
}

type SchedulerConfig struct {
	Enabled  bool
	CronSpec string // e.g. "0 3 * * *" (server local time)
}

// Load reads .env (a missing file is fine) and then the environment. Variables
// already set in the environment win over the file.
func Load() Config {
	if err := godotenv.Load(".env"); err == nil {
		logger.Info("Loaded environment from .env")
	}
	return FromEnv()
}

// FromEnv reads the configuration from the current environment only.
func FromEnv() Config {
	cacheDir := util.FirstNonEmpty(os.Getenv("OCF_CACHE_DIR"), "data")
	return Config{
		ListenAddr:     util.FirstNonEmpty(os.Getenv("OCF_LISTEN_ADDR"), ":8080"),
		CacheDir:       cacheDir,
		NominatimURL:   util.FirstNonEmpty(os.Getenv("OCF_NOMINATIM_URL"), openstreetmap.DefaultNominatimURL),
		PhotonURL:      util.FirstNonEmpty(os.Getenv("OCF_PHOTON_URL"), openstreetmap.DefaultPhotonURL),
		UserAgent:      util.FirstNonEmpty(os.Getenv("OCF_USER_AGENT"), openstreetmap.DefaultUserAgent),
		GeocodeTimeout: duration("OCF_GEOCODE_TIMEOUT", openstreetmap.DefaultTimeout),
		SuggestQuiet:   suggest.ClampQuiet(duration("OCF_SUGGEST_DEBOUNCE", suggest.DefaultQuiet)),
		CORSOrigins:    util.SplitList(util.FirstNonEmpty(os.Getenv("OCF_CORS_ORIGINS"), "*")),
		RedisAddr:      os.Getenv("OCF_REDIS_ADDR"),
		RedisPassword:  os.Getenv("OCF_REDIS_PASSWORD"),
		RedisDB:        integer("OCF_REDIS_DB", 0),
		Scheduler:      SchedulerFromEnv(),
	}
}

func SchedulerFromEnv() SchedulerConfig {
	return SchedulerConfig{
		Enabled:  boolean("OCF_SCHEDULER_ENABLED"),
		CronSpec: util.FirstNonEmpty(os.Getenv("OCF_SCHEDULER_CRON"), "0 3 * * *"),
	}
}

// GeocodeCachePath is the bbolt file for geocoding results.
func (c Config) GeocodeCachePath() string {
	return filepath.Join(c.CacheDir, "geocode.db")
}

// StorePath is the bbolt file for preferences and scraped resources.
func (c Config) StorePath() string {
	return filepath.Join(c.CacheDir, "store.db")
}

func boolean(key string) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	return v == "true" || v == "1" || v == "yes"
}

// duration accepts Go durations ("12s") or plain milliseconds ("400").
func duration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	if ms, err := strconv.Atoi(v); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		logger.Warn("Ignoring invalid %s=%q, using %s", key, v, def)
		return def
	}
	return d
}

func integer(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		logger.Warn("Ignoring invalid %s=%q, using %d", key, v, def)
		return def
	}
	return n
}
