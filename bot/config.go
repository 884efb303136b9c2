package bot

import (
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// Environment-style keys read at startup.
const (
	CfgTgToken           = "TG_TOKEN"
	CfgDBConnStr         = "DB_CONN_STR"
	CfgRedisAddr         = "REDIS_ADDR"
	CfgRedisPassword     = "REDIS_PASSWORD"
	CfgRedisDB           = "REDIS_DB"
	CfgCacheTTL          = "CACHE_TTL"
	CfgTimeZone          = "TIME_ZONE"
	CfgRemindAt          = "REMIND_AT"
	CfgReminderTick      = "REMINDER_TICK"
	CfgContinuationTTL   = "CONTINUATION_TTL"
	CfgNotifyExpired     = "NOTIFY_EXPIRED"
	CfgSendRetryAttempts = "SEND_RETRY_ATTEMPTS"
	CfgSendRetryDelay    = "SEND_RETRY_DELAY"
	CfgMetricsAddr       = "METRICS_ADDR"
	CfgEnv               = "ENV"
	CfgLogLevel          = "LOG_LEVEL"
)

// MemoryDB as the connection string keeps assignments in process memory.
const MemoryDB = "memory"

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Config keeps bot configuration
type Config struct {
	Env      string
	LogLevel string

	TgToken           string
	SendRetryAttempts int
	SendRetryDelay    time.Duration

	DBConnStr string

	RedisAddr     string // empty disables the listing cache
	RedisPassword string
	RedisDB       int
	CacheTTL      time.Duration

	TimeZone        string
	RemindAt        []string // HH:MM in TimeZone
	ReminderTick    time.Duration
	ContinuationTTL time.Duration
	NotifyExpired   bool

	MetricsAddr string // empty disables the metrics listener
}

// LoadConfig reads configuration from the environment and an optional .env
// file in the working directory.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, errors.Wrap(err, "failed reading .env")
		}
	}

	return &Config{
		Env:               v.GetString(CfgEnv),
		LogLevel:          v.GetString(CfgLogLevel),
		TgToken:           v.GetString(CfgTgToken),
		SendRetryAttempts: v.GetInt(CfgSendRetryAttempts),
		SendRetryDelay:    v.GetDuration(CfgSendRetryDelay),
		DBConnStr:         v.GetString(CfgDBConnStr),
		RedisAddr:         v.GetString(CfgRedisAddr),
		RedisPassword:     v.GetString(CfgRedisPassword),
		RedisDB:           v.GetInt(CfgRedisDB),
		CacheTTL:          v.GetDuration(CfgCacheTTL),
		TimeZone:          v.GetString(CfgTimeZone),
		RemindAt:          splitAndTrim(v.GetString(CfgRemindAt)),
		ReminderTick:      v.GetDuration(CfgReminderTick),
		ContinuationTTL:   v.GetDuration(CfgContinuationTTL),
		NotifyExpired:     v.GetBool(CfgNotifyExpired),
		MetricsAddr:       v.GetString(CfgMetricsAddr),
	}, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(CfgEnv, EnvDevelopment)
	v.SetDefault(CfgLogLevel, "info")
	v.SetDefault(CfgSendRetryAttempts, 3)
	v.SetDefault(CfgSendRetryDelay, "1s")
	v.SetDefault(CfgRedisDB, 0)
	v.SetDefault(CfgCacheTTL, "10m")
	v.SetDefault(CfgTimeZone, "Africa/Lagos")
	v.SetDefault(CfgRemindAt, "09:12")
	v.SetDefault(CfgReminderTick, "1s")
	v.SetDefault(CfgContinuationTTL, "24h")
	v.SetDefault(CfgNotifyExpired, false)
}

// Missing returns the names of mandatory parameters that aren't set.
func (c *Config) Missing() []string {
	var missing []string
	if c.TgToken == "" {
		missing = append(missing, CfgTgToken)
	}
	if c.DBConnStr == "" {
		missing = append(missing, CfgDBConnStr)
	}
	if len(c.RemindAt) == 0 {
		missing = append(missing, CfgRemindAt)
	}
	return missing
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
