package models

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

type DatabaseConfig struct {
	URL            string        `mapstructure:"url"`
	MaxConns       int32         `mapstructure:"max_conns"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	ForecastTable  string        `mapstructure:"forecast_table"`
}

type CloudStorageConfig struct {
	Provider   string `mapstructure:"provider"`
	Region     string `mapstructure:"region"`
	BucketName string `mapstructure:"bucket_name"`
	Prefix     string `mapstructure:"prefix"`
}

type KafkaConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	BrokerList   string `mapstructure:"broker_list"`
	PrepTopic    string `mapstructure:"prep_topic"`
	TrafficTopic string `mapstructure:"traffic_topic"`
	RetryMax     int    `mapstructure:"retry_max"`
}

type ForecastConfig struct {
	HistoryDays    int     `mapstructure:"history_days"`
	HorizonDays    int     `mapstructure:"horizon_days"`
	MinNonZeroDays int     `mapstructure:"min_nonzero_days"`
	SeasonalPeriod int     `mapstructure:"seasonal_period"`
	SearchSeed     int64   `mapstructure:"search_seed"`
	SampleOrders   int     `mapstructure:"sample_orders"`
	Workers        int     `mapstructure:"workers"`
	SafetyMargin   float64 `mapstructure:"safety_margin"`
	TopN           int     `mapstructure:"top_n"`
	BusiestHours   int     `mapstructure:"busiest_hours"`
}

type Config struct {
	StartDate    time.Time          `mapstructure:"start_date"`
	EndDate      time.Time          `mapstructure:"end_date"`
	Save         bool               `mapstructure:"save"`
	ClearDB      bool               `mapstructure:"clear_db"`
	OutputPath   string             `mapstructure:"output_path"`
	OutputFolder string             `mapstructure:"output_folder"`
	OutputFormat string             `mapstructure:"output_format"` // csv, parquet or both
	MetricsFile  string             `mapstructure:"metrics_file"`
	Timezone     string             `mapstructure:"timezone"` // IANA name of the restaurant's zone
	Database     DatabaseConfig     `mapstructure:"database"`
	Forecast     ForecastConfig     `mapstructure:"forecast"`
	Kafka        KafkaConfig        `mapstructure:"kafka"`
	CloudStorage CloudStorageConfig `mapstructure:"cloud_storage"`
}

// SetDefaults registers the default value of every setting on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("output_path", ".")
	v.SetDefault("output_folder", "forecasts")
	v.SetDefault("output_format", "csv")
	v.SetDefault("timezone", "Local")

	v.SetDefault("database.max_conns", 4)
	v.SetDefault("database.connect_timeout", 10*time.Second)
	v.SetDefault("database.forecast_table", "forecasts")

	v.SetDefault("forecast.history_days", 90)
	v.SetDefault("forecast.horizon_days", 7)
	v.SetDefault("forecast.min_nonzero_days", 7)
	v.SetDefault("forecast.seasonal_period", 7)
	v.SetDefault("forecast.search_seed", 42)
	v.SetDefault("forecast.sample_orders", 2)
	v.SetDefault("forecast.workers", 0)
	v.SetDefault("forecast.safety_margin", 1.15)
	v.SetDefault("forecast.top_n", 5)
	v.SetDefault("forecast.busiest_hours", 3)

	v.SetDefault("kafka.broker_list", "localhost:9092")
	v.SetDefault("kafka.prep_topic", "prep_recommendations")
	v.SetDefault("kafka.traffic_topic", "traffic_recommendations")
	v.SetDefault("kafka.retry_max", 5)
	v.SetDefault("cloud_storage.provider", "s3")
}

// LoadConfig reads the configuration file (optional), environment and defaults.
// Environment variables use the PREPCAST_ prefix; DATABASE_URL is honoured as well.
func LoadConfig(v *viper.Viper, cfgFile string) (*Config, error) {
	SetDefaults(v)

	v.SetEnvPrefix("prepcast")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("database.url", "PREPCAST_DATABASE_URL", "DATABASE_URL"); err != nil {
		return nil, fmt.Errorf("error binding database url: %w", err)
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	decoderConfigOption := viper.DecoderConfigOption(func(config *mapstructure.DecoderConfig) {
		config.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			dateHookFunc("2006-01-02"),
		)
	})
	if err := v.Unmarshal(&config, decoderConfigOption); err != nil {
		return nil, fmt.Errorf("unable to decode into struct, %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	loc, _ := config.Location()
	if !config.StartDate.IsZero() {
		config.StartDate = WallClockIn(config.StartDate, loc)
	}
	if !config.EndDate.IsZero() {
		config.EndDate = WallClockIn(config.EndDate, loc)
	}
	return &config, nil
}

// dateHookFunc parses dates like mapstructure.StringToTimeHookFunc but maps an
// empty string to the zero time, so unset CLI flags decode cleanly.
func dateHookFunc(layout string) mapstructure.DecodeHookFuncType {
	return func(f reflect.Type, t reflect.Type, data interface{}) (interface{}, error) {
		if f.Kind() != reflect.String || t != reflect.TypeOf(time.Time{}) {
			return data, nil
		}
		s := strings.TrimSpace(data.(string))
		if s == "" {
			return time.Time{}, nil
		}
		if ts, err := time.Parse(time.RFC3339, s); err == nil {
			return ts, nil
		}
		return time.ParseInLocation(layout, s, time.Local)
	}
}

// Validate checks the settings the pipeline cannot run without.
func (cfg *Config) Validate() error {
	if cfg.Forecast.HorizonDays <= 0 {
		return errors.New("forecast.horizon_days must be positive")
	}
	if cfg.Forecast.HistoryDays <= 0 {
		return errors.New("forecast.history_days must be positive")
	}
	if cfg.Forecast.SeasonalPeriod < 2 {
		return errors.New("forecast.seasonal_period must be at least 2")
	}
	if cfg.Forecast.SafetyMargin < 1 {
		return fmt.Errorf("forecast.safety_margin %.2f would shrink prep quantities", cfg.Forecast.SafetyMargin)
	}
	switch cfg.OutputFormat {
	case "csv", "parquet", "both":
	default:
		return fmt.Errorf("unsupported output format: %s", cfg.OutputFormat)
	}
	if _, err := cfg.Location(); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", cfg.Timezone, err)
	}
	if !cfg.StartDate.IsZero() && !cfg.EndDate.IsZero() && cfg.EndDate.Before(cfg.StartDate) {
		return errors.New("end_date must not be before start_date")
	}
	return nil
}

// Location is the zone order timestamps and calendar days are read in.
// An empty timezone means the local zone.
func (cfg *Config) Location() (*time.Location, error) {
	if cfg.Timezone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(cfg.Timezone)
}

// WallClockIn keeps the date and clock reading of t but places it in loc.
// Columns without a time zone come back from the driver as UTC.
func WallClockIn(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		return t
	}
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), loc)
}

// HistoryWindow resolves the historical query range relative to now.
// An explicit end date is inclusive, so the range extends to the next midnight.
func (cfg *Config) HistoryWindow(now time.Time) (time.Time, time.Time) {
	end := now
	if !cfg.EndDate.IsZero() {
		end = cfg.EndDate.AddDate(0, 0, 1)
	}
	if !cfg.StartDate.IsZero() {
		return cfg.StartDate, end
	}
	return end.AddDate(0, 0, -cfg.Forecast.HistoryDays), end
}
