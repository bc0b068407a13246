package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/chrisdamba/prepcast/internal/cloudwriter"
	"github.com/chrisdamba/prepcast/internal/forecast"
	"github.com/chrisdamba/prepcast/internal/metrics"
	"github.com/chrisdamba/prepcast/internal/models"
	"github.com/chrisdamba/prepcast/internal/output"
	"github.com/chrisdamba/prepcast/internal/pipeline"
	"github.com/chrisdamba/prepcast/internal/repositories/postgres"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "prepcast",
	Short: "Forecasts ingredient consumption for restaurant kitchens",
	Long: `prepcast reads historical orders and recipes from PostgreSQL, forecasts hourly
ingredient usage with seasonal models, and turns the forecast into daily prep
quantities and staffing recommendations.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := models.LoadConfig(viper.GetViper(), cfgFile)
		if err != nil {
			return fmt.Errorf("error loading config: %w", err)
		}
		loc, err := cfg.Location()
		if err != nil {
			return err
		}
		return runForecast(cmd.Context(), cfg, loc, time.Now().In(loc))
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (yaml, json or toml)")
	rootCmd.PersistentFlags().Int("days", 90, "Days of order history to use")
	rootCmd.PersistentFlags().String("start", "", "Start date of the history (YYYY-MM-DD), overrides --days")
	rootCmd.PersistentFlags().String("end", "", "End date of the history (YYYY-MM-DD), inclusive")
	rootCmd.PersistentFlags().String("database-url", "", "PostgreSQL connection string (default $DATABASE_URL)")

	rootCmd.Flags().Int("forecast", 7, "Days to forecast")
	rootCmd.Flags().Bool("save", false, "Store recommendations in the database")
	rootCmd.Flags().Bool("clear-db", false, "Delete stored forecasts before running")
	rootCmd.Flags().String("output-path", ".", "Directory for exported files")
	rootCmd.Flags().String("output-format", "csv", "Export format: csv, parquet or both")
	rootCmd.Flags().Bool("kafka-enabled", false, "Publish recommendations to Kafka")
	rootCmd.Flags().String("kafka-broker-list", "localhost:9092", "Kafka broker list")
	rootCmd.Flags().String("bucket", "", "S3 bucket to upload exports to")
	rootCmd.Flags().Int("workers", 0, "Parallel model fits (default one less than the CPU count)")
	rootCmd.Flags().String("metrics-file", "", "Write Prometheus metrics of the run to this file")
	rootCmd.PersistentFlags().String("timezone", "Local", "Time zone of the order timestamps, e.g. Europe/London")

	bindFlags(rootCmd, map[string]string{
		"days":              "forecast.history_days",
		"start":             "start_date",
		"end":               "end_date",
		"database-url":      "database.url",
		"forecast":          "forecast.horizon_days",
		"save":              "save",
		"clear-db":          "clear_db",
		"output-path":       "output_path",
		"output-format":     "output_format",
		"kafka-enabled":     "kafka.enabled",
		"kafka-broker-list": "kafka.broker_list",
		"bucket":            "cloud_storage.bucket_name",
		"workers":           "forecast.workers",
		"metrics-file":      "metrics_file",
		"timezone":          "timezone",
	})

	rootCmd.AddCommand(usageCmd)
}

// bindFlags binds each flag to its configuration key so that flags override
// config files and environment variables.
func bindFlags(cmd *cobra.Command, keys map[string]string) {
	for name, key := range keys {
		flag := cmd.Flags().Lookup(name)
		if flag == nil {
			flag = cmd.PersistentFlags().Lookup(name)
		}
		if flag == nil {
			panic(fmt.Sprintf("unknown flag %q", name))
		}
		if err := viper.BindPFlag(key, flag); err != nil {
			panic(err)
		}
	}
}

func runForecast(ctx context.Context, cfg *models.Config, loc *time.Location, now time.Time) error {
	pool, err := openPool(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	bar := progressbar.Default(-1, "fitting models")
	opts := pipeline.Options(cfg.Forecast)
	opts.Progress = func() { _ = bar.Add(1) }
	orchestrator := forecast.NewOrchestrator(opts)
	m := metrics.New()

	p := pipeline.NewPipeline(cfg,
		postgres.NewOrderRepository(pool, loc),
		postgres.NewMenuItemRepository(pool),
		orchestrator,
		pipeline.WithForecastRepository(postgres.NewForecastRepository(pool, cfg.Database.ForecastTable)),
		pipeline.WithMetrics(m),
	)

	exporter := output.NewExporter(cfg, p.RunID, now)
	if cfg.CloudStorage.BucketName != "" {
		factory, err := newCloudWriterFactory(ctx, cfg.CloudStorage)
		if err != nil {
			return err
		}
		exporter.WithCloud(factory, cfg.CloudStorage.BucketName, cfg.CloudStorage.Prefix)
	}
	pipeline.WithExporter(exporter)(p)

	if cfg.Kafka.Enabled {
		producer, err := output.NewSaramaProducer(cfg.Kafka)
		if err != nil {
			return err
		}
		publisher := output.NewKafkaPublisher(producer, cfg.Kafka)
		defer publisher.Close()
		pipeline.WithPublisher(publisher)(p)
	}

	res, err := p.Run(ctx, now)
	_ = bar.Finish()
	if err != nil {
		if forecast.IsDataUnavailable(err) {
			return fmt.Errorf("no order history between the requested dates: %w", err)
		}
		return err
	}
	printPrep(os.Stdout, res)
	if cfg.MetricsFile != "" {
		if err := m.WriteTextfile(cfg.MetricsFile); err != nil {
			log.Printf("Error: %v", err)
		}
	}
	if res.Partial {
		log.Printf("Warning: forecast completed but some results were not saved: %v", res.Err())
	}
	return nil
}

func openPool(ctx context.Context, cfg *models.Config) (*pgxpool.Pool, error) {
	if cfg.Database.URL == "" {
		return nil, fmt.Errorf("no database configured: set DATABASE_URL or --database-url")
	}
	return postgres.NewPool(ctx, cfg.Database)
}

func newCloudWriterFactory(ctx context.Context, cfg models.CloudStorageConfig) (cloudwriter.CloudWriterFactory, error) {
	switch cfg.Provider {
	case "s3", "":
		return cloudwriter.NewS3WriterFactory(ctx, cfg.Region)
	default:
		return nil, fmt.Errorf("unsupported cloud storage provider: %s", cfg.Provider)
	}
}

func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
