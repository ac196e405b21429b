package config

import (
	"flag"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var once sync.Once
var logger *zap.SugaredLogger
var loggerOnce sync.Once

// isTestRun returns true if the current process is a Go test binary.
func isTestRun() bool {
	return flag.Lookup("test.v") != nil || filepath.Ext(os.Args[0]) == ".test"
}

func initConfig() {
	once.Do(func() {
		root, err := getProjectRoot()
		if err != nil {
			GetLogger().Errorw("Error finding project root", "error", err)
		}
		viper.SetConfigType("yaml")

		viper.SetConfigName("config")
		viper.AddConfigPath(root)
		if err = viper.ReadInConfig(); err != nil {
			GetLogger().Errorw("Error reading config file", "error", err)
		}

		if isTestRun() {
			viper.SetConfigName("config_test")
			viper.AddConfigPath(root)
			if err = viper.MergeInConfig(); err != nil {
				GetLogger().Errorw("Error reading test config file", "error", err)
			}
		}
	})
}

func getProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", os.ErrNotExist
}

func GetServerPort() string {
	initConfig()
	return viper.GetString("server.port")
}

// GetServerTimeout returns the named server timeout as a duration, falling
// back to the given default when unset or invalid.
func GetServerTimeout(key string, fallback time.Duration) time.Duration {
	initConfig()
	dur, err := time.ParseDuration(viper.GetString("server." + key))
	if err != nil {
		return fallback
	}
	return dur
}

func GetRedisAddr() string {
	initConfig()
	return viper.GetString("redis.addr")
}

// GetCacheExpiration returns the TTL for cached geocoding and forecast
// responses. Defaults to 10m.
func GetCacheExpiration() time.Duration {
	initConfig()
	dur, err := time.ParseDuration(viper.GetString("cache.expiration"))
	if err != nil {
		return 10 * time.Minute
	}
	return dur
}

// GetSessionExpiration returns the TTL for session key-value data. Defaults
// to 30m.
func GetSessionExpiration() time.Duration {
	initConfig()
	dur, err := time.ParseDuration(viper.GetString("session.expiration"))
	if err != nil {
		return 30 * time.Minute
	}
	return dur
}

func GetGeocoderApiUrl() string {
	initConfig()
	return viper.GetString("geocoder.api_url")
}

func GetForecastApiUrl() string {
	initConfig()
	return viper.GetString("forecast.api_url")
}

func GetAlertsApiUrl() string {
	initConfig()
	return viper.GetString("alerts.api_url")
}

func GetMistralApiUrl() string {
	initConfig()
	return viper.GetString("mistral.api_url")
}

func GetMistralModel() string {
	initConfig()
	return viper.GetString("mistral.model")
}

// GetMistralTemperature returns the sampling temperature for narrative
// requests. Kept low so probability estimates stay consistent run to run.
func GetMistralTemperature() float64 {
	initConfig()
	if !viper.IsSet("mistral.temperature") {
		return 0.2
	}
	return viper.GetFloat64("mistral.temperature")
}

// GetMistralMaxTokens bounds the narrative length so replies fit the display
// and the run deadline. Defaults to 1500.
func GetMistralMaxTokens() int {
	initConfig()
	maxTokens := viper.GetInt("mistral.max_tokens")
	if maxTokens == 0 {
		maxTokens = 1500
	}
	return maxTokens
}

// GetDefaultMistralAPIKey returns the server-side fallback API key from the
// environment, used when a request carries no key of its own.
func GetDefaultMistralAPIKey() string {
	_ = godotenv.Load()
	return os.Getenv("MISTRAL_API_KEY")
}

// GetPipelineDeadline returns the wall-clock deadline for one prediction run.
// Defaults to 45s.
func GetPipelineDeadline() time.Duration {
	initConfig()
	dur, err := time.ParseDuration(viper.GetString("pipeline.deadline"))
	if err != nil {
		return 45 * time.Second
	}
	return dur
}

// GetForecastDays returns the number of forecast days requested for a
// multi-day run. Defaults to 7.
func GetForecastDays() int {
	initConfig()
	days := viper.GetInt("pipeline.forecast_days")
	if days == 0 {
		days = 7
	}
	return days
}

// ReloadConfigForTest resets the config singleton and reloads Viper config. Use only in tests.
func ReloadConfigForTest() {
	once = sync.Once{}
	initConfig()
}

func GetLogger() *zap.SugaredLogger {
	loggerOnce.Do(func() {
		l, err := zap.NewDevelopment()
		if err != nil {
			panic(err)
		}
		logger = l.Sugar()
	})
	return logger
}

// GetRateLimiterCleanupTimeout returns the rate limiter cleanup timeout as a time.Duration.
// Defaults to 3m if not set or invalid.
func GetRateLimiterCleanupTimeout() time.Duration {
	initConfig()
	dur, err := time.ParseDuration(viper.GetString("rate_limiter.cleanup_timeout"))
	if err != nil {
		return 3 * time.Minute
	}
	return dur
}

// GetGlobalRateLimiterConfig returns the rate and burst for the global rate limiter from config.
func GetGlobalRateLimiterConfig() (rate float64, burst int) {
	initConfig()
	rate = viper.GetFloat64("rate_limiter.global.rate")
	if rate == 0 {
		rate = 10
	}
	burst = viper.GetInt("rate_limiter.global.burst")
	if burst == 0 {
		burst = 10
	}
	return
}

// GetParamRateLimiterConfig returns the rate and burst for the param rate limiter from config.
func GetParamRateLimiterConfig() (rate float64, burst int) {
	initConfig()
	rate = viper.GetFloat64("rate_limiter.param.rate")
	if rate == 0 {
		rate = 2
	}
	burst = viper.GetInt("rate_limiter.param.burst")
	if burst == 0 {
		burst = 2
	}
	return
}
