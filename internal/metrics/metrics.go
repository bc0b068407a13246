package metrics

import (
	"fmt"
	"time"

	"github.com/chrisdamba/prepcast/internal/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors of a forecast run. Each instance owns
// its registry so that runs and tests do not share state.
type Metrics struct {
	Registry *prometheus.Registry

	OrderItems     *prometheus.CounterVec
	Forecasts      *prometheus.CounterVec
	TrafficDays    *prometheus.CounterVec
	SinkErrors     prometheus.Counter
	ForecastUnits  prometheus.Gauge
	RunDuration    prometheus.Gauge
	LastRunSeconds prometheus.Gauge
	RunsPartial    prometheus.Counter
	RunsCompleted  prometheus.Counter
}

// New creates and registers all metrics on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		Registry: reg,
		OrderItems: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "prepcast_order_items_total",
			Help: "Order items read from history, by outcome (processed or skipped)",
		}, []string{"outcome"}),
		Forecasts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "prepcast_ingredient_forecasts_total",
			Help: "Ingredients forecast, by the method that produced the forecast",
		}, []string{"method"}),
		TrafficDays: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "prepcast_traffic_days_total",
			Help: "Forecast days by expected traffic level",
		}, []string{"level"}),
		SinkErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "prepcast_sink_errors_total",
			Help: "Failures storing, exporting or publishing results",
		}),
		ForecastUnits: factory.NewGauge(prometheus.GaugeOpts{
			Name: "prepcast_forecast_units",
			Help: "Total forecast ingredient usage over the horizon",
		}),
		RunDuration: factory.NewGauge(prometheus.GaugeOpts{
			Name: "prepcast_run_duration_seconds",
			Help: "Wall time of the last forecast run",
		}),
		LastRunSeconds: factory.NewGauge(prometheus.GaugeOpts{
			Name: "prepcast_last_run_timestamp_seconds",
			Help: "Unix time of the last forecast run",
		}),
		RunsPartial: factory.NewCounter(prometheus.CounterOpts{
			Name: "prepcast_runs_partial_total",
			Help: "Runs that produced a forecast but failed to deliver part of it",
		}),
		RunsCompleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "prepcast_runs_completed_total",
			Help: "Runs that produced a forecast",
		}),
	}
}

// ObserveUsage records how many order items were aggregated.
func (m *Metrics) ObserveUsage(agg *models.Aggregation) {
	m.OrderItems.WithLabelValues("processed").Add(float64(agg.Processed))
	m.OrderItems.WithLabelValues("skipped").Add(float64(agg.Skipped))
}

// ObserveForecast records the method mix and the traffic outlook of a run.
func (m *Metrics) ObserveForecast(result *models.ForecastResult, traffic []models.TrafficRecommendation) {
	for _, method := range result.Methods {
		m.Forecasts.WithLabelValues(string(method)).Inc()
	}
	for _, rec := range traffic {
		m.TrafficDays.WithLabelValues(string(rec.Level)).Inc()
	}
	m.ForecastUnits.Set(result.Hourly.Sum())
}

// ObserveRun records the end of a run that produced a forecast.
func (m *Metrics) ObserveRun(started, finished time.Time, sinkErrors int) {
	m.RunDuration.Set(finished.Sub(started).Seconds())
	m.LastRunSeconds.Set(float64(finished.Unix()))
	m.SinkErrors.Add(float64(sinkErrors))
	m.RunsCompleted.Inc()
	if sinkErrors > 0 {
		m.RunsPartial.Inc()
	}
}

// WriteTextfile writes the registry in the text exposition format, for the
// node exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.Registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}
