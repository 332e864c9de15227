// Package config loads application configuration from environment variables.
package config

import (
	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds application configuration loaded from environment variables.
type Config struct {
	Port     int    `envconfig:"PORT" default:"8080"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	LogJSON  bool   `envconfig:"LOG_JSON" default:"true"`
	DBPath   string `envconfig:"DB_PATH" default:"./data/crew.db"`

	// Timezone is the IANA zone every local date boundary is computed in.
	// An unknown zone falls back to UTC with a warning at startup.
	Timezone string `envconfig:"APP_TIMEZONE" default:"UTC"`

	// Workload bucket boundaries: WorkloadPartialMin..WorkloadFullMin-1
	// bookings is "partial", WorkloadFullMin and up is "full".
	WorkloadPartialMin int `envconfig:"WORKLOAD_PARTIAL_MIN" default:"1"`
	WorkloadFullMin    int `envconfig:"WORKLOAD_FULL_MIN" default:"3"`

	// BackToBackMinutes is the turnaround gap at or under which two
	// adjacent jobs on one assignee's day are flagged.
	BackToBackMinutes int `envconfig:"BACK_TO_BACK_MINUTES" default:"15"`

	// RolloverIntervalMinutes is how often the background rollover runs.
	// Zero disables the scheduler; overdue jobs then roll only when
	// today's timetable is read.
	RolloverIntervalMinutes int `envconfig:"ROLLOVER_INTERVAL_MINUTES" default:"60"`

	CORSOrigins []string `envconfig:"CORS_ORIGINS" default:"*"`
}

// Load reads configuration from environment variables into a Config struct.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// NewLogger builds the process logger: JSON to stdout in production shape,
// console encoding when LogJSON is off.
func (c *Config) NewLogger() (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		level = zapcore.InfoLevel
	}

	var zc zap.Config
	if c.LogJSON {
		zc = zap.NewProductionConfig()
		zc.EncoderConfig.TimeKey = "timestamp"
		zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		zc.OutputPaths = []string{"stdout"}
		zc.ErrorOutputPaths = []string{"stderr"}
	} else {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)

	return zc.Build()
}
