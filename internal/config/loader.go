package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

const envPrefix = "MEETINGD_"

// Cache backends accepted by CacheBackend.
const (
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

// ErrHelp is returned when --help was requested. Usage has already been printed.
var ErrHelp = pflag.ErrHelp

// Config captures the settings of the meeting presence daemon.
type Config struct {
	HTTPPort          int
	SQLiteDSN         string
	ReconcileInterval time.Duration
	NearbyRadius      float64
	CacheBackend      string
	RedisAddr         string
	RedisPassword     string
	RedisDB           int
	LogLevel          slog.Level
}

// fileConfig mirrors the YAML configuration file. Absent keys stay nil.
type fileConfig struct {
	HTTPPort          *int     `yaml:"http_port"`
	SQLiteDSN         *string  `yaml:"sqlite_dsn"`
	ReconcileInterval *string  `yaml:"reconcile_interval"`
	NearbyRadius      *float64 `yaml:"nearby_radius"`
	CacheBackend      *string  `yaml:"cache_backend"`
	Redis             struct {
		Addr     *string `yaml:"addr"`
		Password *string `yaml:"password"`
		DB       *int    `yaml:"db"`
	} `yaml:"redis"`
	LogLevel *string `yaml:"log_level"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		HTTPPort:          8080,
		SQLiteDSN:         "file:meetings.db",
		ReconcileInterval: 60 * time.Second,
		NearbyRadius:      100,
		CacheBackend:      CacheMemory,
		LogLevel:          slog.LevelInfo,
	}
}

// Load builds the configuration from, in increasing precedence, the
// defaults, the YAML file named by --config or MEETINGD_CONFIG_FILE, the
// MEETINGD_* variables of the dotenv file named by --env-file or
// MEETINGD_ENV_FILE, the process environment and the command-line flags in
// args (without the program name).
//
// Every invalid or missing value is reported in a single error.
func Load(args []string) (Config, error) {
	cfg := Default()
	logLevel := cfg.LogLevel.String()

	flagSet := pflag.NewFlagSet("meetingd", pflag.ContinueOnError)
	flagSet.SetOutput(io.Discard)
	configPath := flagSet.String("config", "", "path to a YAML configuration file")
	envFile := flagSet.String("env-file", "", "path to a dotenv file with MEETINGD_* variables")
	httpPort := flagSet.Int("http-port", cfg.HTTPPort, "HTTP listen port")
	sqliteDSN := flagSet.String("sqlite-dsn", cfg.SQLiteDSN, "SQLite data source name")
	interval := flagSet.Duration("reconcile-interval", cfg.ReconcileInterval, "pause between reconciliation ticks")
	radius := flagSet.Float64("nearby-radius", cfg.NearbyRadius, "radius used by the nearby meeting search")
	backend := flagSet.String("cache-backend", cfg.CacheBackend, "active meeting cache backend (memory or redis)")
	redisAddr := flagSet.String("redis-addr", "", "Redis address when the redis backend is used")
	redisPassword := flagSet.String("redis-password", "", "Redis password")
	redisDB := flagSet.Int("redis-db", 0, "Redis database number")
	level := flagSet.String("log-level", logLevel, "log level (debug, info, warn, error)")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			flagSet.SetOutput(os.Stderr)
			flagSet.PrintDefaults()
			return Config{}, ErrHelp
		}
		return Config{}, fmt.Errorf("コマンドライン引数が不正です: %w", err)
	}

	invalid := make([]string, 0, 2)
	missing := make([]string, 0, 1)

	env := environment{}
	envPath := strings.TrimSpace(os.Getenv(envPrefix + "ENV_FILE"))
	if flagSet.Changed("env-file") {
		envPath = *envFile
	}
	if envPath != "" {
		values, err := godotenv.Read(envPath)
		if err != nil {
			return Config{}, fmt.Errorf("環境変数ファイルを読み込めません: %w", err)
		}
		env.file = values
	}

	path := env.get("CONFIG_FILE")
	if flagSet.Changed("config") {
		path = *configPath
	}
	if path != "" {
		if err := applyFile(&cfg, &logLevel, path, &invalid); err != nil {
			return Config{}, err
		}
	}

	applyEnv(&cfg, &logLevel, env, &invalid)

	if flagSet.Changed("http-port") {
		cfg.HTTPPort = *httpPort
	}
	if flagSet.Changed("sqlite-dsn") {
		cfg.SQLiteDSN = *sqliteDSN
	}
	if flagSet.Changed("reconcile-interval") {
		cfg.ReconcileInterval = *interval
	}
	if flagSet.Changed("nearby-radius") {
		cfg.NearbyRadius = *radius
	}
	if flagSet.Changed("cache-backend") {
		cfg.CacheBackend = *backend
	}
	if flagSet.Changed("redis-addr") {
		cfg.RedisAddr = *redisAddr
	}
	if flagSet.Changed("redis-password") {
		cfg.RedisPassword = *redisPassword
	}
	if flagSet.Changed("redis-db") {
		cfg.RedisDB = *redisDB
	}
	if flagSet.Changed("log-level") {
		logLevel = *level
	}

	if cfg.HTTPPort <= 0 || cfg.HTTPPort > 65535 {
		invalid = append(invalid, "http_port")
	}
	if strings.TrimSpace(cfg.SQLiteDSN) == "" {
		missing = append(missing, "sqlite_dsn")
	}
	if cfg.ReconcileInterval <= 0 {
		invalid = append(invalid, "reconcile_interval")
	}
	if cfg.NearbyRadius <= 0 {
		invalid = append(invalid, "nearby_radius")
	}
	cfg.CacheBackend = strings.ToLower(strings.TrimSpace(cfg.CacheBackend))
	switch cfg.CacheBackend {
	case CacheMemory:
	case CacheRedis:
		if strings.TrimSpace(cfg.RedisAddr) == "" {
			missing = append(missing, "redis_addr")
		}
	default:
		invalid = append(invalid, "cache_backend")
	}
	if cfg.RedisDB < 0 {
		invalid = append(invalid, "redis_db")
	}
	if err := cfg.LogLevel.UnmarshalText([]byte(logLevel)); err != nil {
		invalid = append(invalid, "log_level")
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("必須の設定値がありません: %s", strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("設定値が不正です: %s", strings.Join(dedupe(invalid), ", "))
	}
	return cfg, nil
}

func applyFile(cfg *Config, logLevel *string, path string, invalid *[]string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("設定ファイルを読み込めません: %w", err)
	}

	var fc fileConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&fc); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("設定ファイルの形式が不正です: %s: %w", path, err)
	}

	if fc.HTTPPort != nil {
		cfg.HTTPPort = *fc.HTTPPort
	}
	if fc.SQLiteDSN != nil {
		cfg.SQLiteDSN = *fc.SQLiteDSN
	}
	if fc.ReconcileInterval != nil {
		d, err := time.ParseDuration(*fc.ReconcileInterval)
		if err != nil {
			*invalid = append(*invalid, "reconcile_interval")
		} else {
			cfg.ReconcileInterval = d
		}
	}
	if fc.NearbyRadius != nil {
		cfg.NearbyRadius = *fc.NearbyRadius
	}
	if fc.CacheBackend != nil {
		cfg.CacheBackend = *fc.CacheBackend
	}
	if fc.Redis.Addr != nil {
		cfg.RedisAddr = *fc.Redis.Addr
	}
	if fc.Redis.Password != nil {
		cfg.RedisPassword = *fc.Redis.Password
	}
	if fc.Redis.DB != nil {
		cfg.RedisDB = *fc.Redis.DB
	}
	if fc.LogLevel != nil {
		*logLevel = *fc.LogLevel
	}
	return nil
}

func applyEnv(cfg *Config, logLevel *string, env environment, invalid *[]string) {
	if v := env.get("HTTP_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			*invalid = append(*invalid, envPrefix+"HTTP_PORT")
		} else {
			cfg.HTTPPort = port
		}
	}
	if v := env.get("SQLITE_DSN"); v != "" {
		cfg.SQLiteDSN = v
	}
	if v := env.get("RECONCILE_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			*invalid = append(*invalid, envPrefix+"RECONCILE_INTERVAL")
		} else {
			cfg.ReconcileInterval = d
		}
	}
	if v := env.get("NEARBY_RADIUS"); v != "" {
		r, err := strconv.ParseFloat(v, 64)
		if err != nil {
			*invalid = append(*invalid, envPrefix+"NEARBY_RADIUS")
		} else {
			cfg.NearbyRadius = r
		}
	}
	if v := env.get("CACHE_BACKEND"); v != "" {
		cfg.CacheBackend = v
	}
	if v := env.get("REDIS_ADDR"); v != "" {
		cfg.RedisAddr = v
	}
	if v, ok := env.lookup("REDIS_PASSWORD"); ok {
		cfg.RedisPassword = v
	}
	if v := env.get("REDIS_DB"); v != "" {
		db, err := strconv.Atoi(v)
		if err != nil {
			*invalid = append(*invalid, envPrefix+"REDIS_DB")
		} else {
			cfg.RedisDB = db
		}
	}
	if v := env.get("LOG_LEVEL"); v != "" {
		*logLevel = v
	}
}

// environment resolves MEETINGD_* variables. The process environment wins
// over values read from the dotenv file.
type environment struct {
	file map[string]string
}

func (e environment) lookup(name string) (string, bool) {
	if v, ok := os.LookupEnv(envPrefix + name); ok {
		return v, true
	}
	v, ok := e.file[envPrefix+name]
	return v, ok
}

func (e environment) get(name string) string {
	v, _ := e.lookup(name)
	return strings.TrimSpace(v)
}

func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := values[:0]
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
