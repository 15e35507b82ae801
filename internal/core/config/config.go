package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

// DefaultMaxRes caps the resolution served over HTTP.
const DefaultMaxRes = 12

type NominatimCfg struct {
	URL       string
	UserAgent string
	RPS       float64
	Timeout   time.Duration
	CacheSize int
	CacheTTL  time.Duration
}

type CacheCfg struct {
	Enabled   bool
	RedisAddr string
	TTL       time.Duration
	OpTimeout time.Duration

	// HotTTL of zero disables popularity tracking.
	HotTTL       time.Duration
	HotThreshold float64
	HotHalfLife  time.Duration
}

type EventsCfg struct {
	Enabled bool
	Brokers []string
	Topic   string
	Queue   int
}

// InvalidationCfg configures the cache invalidation consumer. Each replica
// holds its own boundary LRU, so every replica has to see every event: the
// group id is unique per process unless KAFKA_GROUP_ID pins it.
type InvalidationCfg struct {
	Enabled bool
	Topic   string
	GroupID string
	// FromOldest replays the topic for a new group. Only pinned groups do,
	// a generated group would replay history on every restart.
	FromOldest bool
}

type Config struct {
	Addr           string
	LogLevel       string
	LogConsole     bool
	LogSampleN     int
	H3Res          int
	H3MaxRes       int
	MetricsEnabled bool
	Nominatim      NominatimCfg
	Cache          CacheCfg
	Events         EventsCfg
	Invalidation   InvalidationCfg
}

// Load reads an optional .env file (existing variables win) and then
// the environment. A missing file is not an error.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, err
		}
	}
	return FromEnv(), nil
}

func FromEnv() Config {
	maxRes := getint("H3_MAX_RES", DefaultMaxRes)
	if maxRes < 0 || maxRes > 15 {
		maxRes = DefaultMaxRes
	}
	res := getint("H3_RES", 8)
	if res < 0 || res > 15 {
		res = 8
	}
	res = min(res, maxRes)

	return Config{
		Addr:           getenv("ADDR", ":8090"),
		LogLevel:       getenv("LOG_LEVEL", "info"),
		LogConsole:     getbool("LOG_CONSOLE", false),
		LogSampleN:     getint("LOG_SAMPLE_N", 0),
		H3Res:          res,
		H3MaxRes:       maxRes,
		MetricsEnabled: getbool("METRICS_ENABLED", true),
		Nominatim: NominatimCfg{
			URL:       getenv("NOMINATIM_URL", "https://nominatim.openstreetmap.org"),
			UserAgent: getenv("NOMINATIM_USER_AGENT", "h3-cities/1.0"),
			RPS:       getfloat("NOMINATIM_RPS", 1),
			Timeout:   getduration("NOMINATIM_TIMEOUT", 10*time.Second),
			CacheSize: getint("GEOCODE_CACHE_SIZE", 256),
			CacheTTL:  getduration("GEOCODE_CACHE_TTL", 24*time.Hour),
		},
		Cache: CacheCfg{
			Enabled:   getbool("CACHE_ENABLED", false),
			RedisAddr: getenv("REDIS_ADDR", "localhost:6379"),
			TTL:       getduration("CACHE_TTL", 24*time.Hour),
			OpTimeout: getduration("CACHE_OP_TIMEOUT", 250*time.Millisecond),

			HotTTL:       getduration("CACHE_HOT_TTL", 0),
			HotThreshold: getfloat("CACHE_HOT_THRESHOLD", 5),
			HotHalfLife:  getduration("CACHE_HOT_HALF_LIFE", 10*time.Minute),
		},
		Events: EventsCfg{
			Enabled: getbool("EVENTS_ENABLED", false),
			Brokers: getlist("KAFKA_BROKERS", []string{"localhost:9092"}),
			Topic:   getenv("KAFKA_TOPIC", "h3-tessellations"),
			Queue:   getint("EVENTS_QUEUE", 1024),
		},
		Invalidation: InvalidationCfg{
			Enabled:    getbool("INVALIDATION_ENABLED", false),
			Topic:      getenv("KAFKA_INVALIDATION_TOPIC", "h3-invalidation"),
			GroupID:    getenv("KAFKA_GROUP_ID", instanceGroupID()),
			FromOldest: os.Getenv("KAFKA_GROUP_ID") != "",
		},
	}
}

// h3-cities-<host>-<8 hex>; the suffix separates replicas sharing a hostname
func instanceGroupID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "unknown"
	}
	return "h3-cities-" + host + "-" + uuid.NewString()[:8]
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getint(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v := os.Getenv(k); v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "t", "true", "y", "yes":
			return true
		case "0", "f", "false", "n", "no":
			return false
		}
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v := os.Getenv(k); v != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return f
		}
	}
	return def
}

func getduration(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(strings.TrimSpace(v)); err == nil {
			return d
		}
	}
	return def
}

// parse "a:9092, b:9092" into a list, dropping blanks
func getlist(k string, def []string) []string {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	var out []string
	for p := range strings.SplitSeq(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
