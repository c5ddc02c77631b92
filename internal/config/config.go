package config

import (
	"time"

	"github.com/spf13/viper"
)

// The service is expected to run with its settings injected as environment
// variables (one pod per binary); viper defaults cover local compose runs.

type Config struct {
	DBHost     string `mapstructure:"DB_HOST"`
	DBPort     string `mapstructure:"DB_PORT"`
	DBUser     string `mapstructure:"DB_USER"`
	DBPassword string `mapstructure:"DB_PASSWORD"`
	DBName     string `mapstructure:"DB_NAME"`
	ServerPort string `mapstructure:"SERVER_PORT"`

	AWSRegion         string `mapstructure:"AWS_REGION"`
	AWSEndpoint       string `mapstructure:"AWS_ENDPOINT"`
	ReportSQSQueueURL string `mapstructure:"REPORT_SQS_QUEUE_URL"`
	EmailSQSQueueURL  string `mapstructure:"EMAIL_SQS_QUEUE_URL"`

	HRAPIURL    string `mapstructure:"HR_API_URL"`
	EmailSender string `mapstructure:"EMAIL_SENDER"`

	// NotifyEndpoint empty means attendance notifications are disabled.
	NotifyEndpoint  string `mapstructure:"NOTIFY_ENDPOINT"`
	NotifyTimeoutMS int    `mapstructure:"NOTIFY_TIMEOUT_MS"`

	PresentThresholdMinutes int64 `mapstructure:"PRESENT_THRESHOLD_MINUTES"`
	OfflineThresholdMS      int   `mapstructure:"OFFLINE_THRESHOLD_MS"`
	SweepIntervalMS         int   `mapstructure:"SWEEP_INTERVAL_MS"`
	LastSeenDebounceMS      int   `mapstructure:"LASTSEEN_DEBOUNCE_MS"`

	IsLocalDev bool `mapstructure:"IS_LOCAL_DEV"`
}

// OfflineThreshold is the heartbeat staleness after which the sweep demotes a device.
func (c Config) OfflineThreshold() time.Duration {
	return time.Duration(c.OfflineThresholdMS) * time.Millisecond
}

// SweepInterval is the fixed period of the liveness sweep.
func (c Config) SweepInterval() time.Duration {
	return time.Duration(c.SweepIntervalMS) * time.Millisecond
}

// LastSeenDebounce is the minimum spacing between persisted last-seen writes.
func (c Config) LastSeenDebounce() time.Duration {
	return time.Duration(c.LastSeenDebounceMS) * time.Millisecond
}

// NotifyTimeout bounds one notification delivery attempt.
func (c Config) NotifyTimeout() time.Duration {
	return time.Duration(c.NotifyTimeoutMS) * time.Millisecond
}

// LoadConfig reads configuration from environment variables.
func LoadConfig() (config Config, err error) {
	viper.SetDefault("DB_HOST", "db")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_USER", "user")
	viper.SetDefault("DB_PASSWORD", "password")
	viper.SetDefault("DB_NAME", "attendance_db")
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("AWS_REGION", "us-east-1")
	viper.SetDefault("AWS_ENDPOINT", "http://localstack:4566")
	viper.SetDefault("REPORT_SQS_QUEUE_URL", "http://localstack:4566/000000000000/attendance-report-queue")
	viper.SetDefault("EMAIL_SQS_QUEUE_URL", "http://localstack:4566/000000000000/attendance-email-queue")
	viper.SetDefault("HR_API_URL", "http://localhost:8081/")
	viper.SetDefault("EMAIL_SENDER", "attendance@factory.com")
	viper.SetDefault("NOTIFY_ENDPOINT", "")
	viper.SetDefault("NOTIFY_TIMEOUT_MS", 5000)
	viper.SetDefault("PRESENT_THRESHOLD_MINUTES", 360)
	viper.SetDefault("OFFLINE_THRESHOLD_MS", 30000)
	viper.SetDefault("SWEEP_INTERVAL_MS", 5000)
	viper.SetDefault("LASTSEEN_DEBOUNCE_MS", 10000)
	viper.SetDefault("IS_LOCAL_DEV", false)

	// Read in environment variables that match the keys.
	viper.AutomaticEnv()

	err = viper.Unmarshal(&config)
	return
}
