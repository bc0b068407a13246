// Package pipeline runs one forecasting pass: historical usage, per-ingredient
// forecasts, recommendations, persistence and exports.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/chrisdamba/prepcast/internal/forecast"
	"github.com/chrisdamba/prepcast/internal/metrics"
	"github.com/chrisdamba/prepcast/internal/models"
	"github.com/chrisdamba/prepcast/internal/recommend"
	"github.com/chrisdamba/prepcast/internal/repositories"
	"github.com/lucsky/cuid"
)

// Exporter writes the results of a run to files.
type Exporter interface {
	Export(result *models.ForecastResult, prep models.PrepRecommendation, traffic []models.TrafficRecommendation) ([]string, error)
}

// Publisher announces recommendations on a message bus.
type Publisher interface {
	PublishPrep(runID string, prep models.PrepRecommendation, now time.Time) error
	PublishTraffic(runID string, recs []models.TrafficRecommendation, now time.Time) error
}

type Pipeline struct {
	RunID string

	config       *models.Config
	orders       repositories.OrderRepository
	recipes      repositories.RecipeRepository
	forecasts    repositories.ForecastRepository
	orchestrator *forecast.Orchestrator
	exporter     Exporter
	publisher    Publisher
	metrics      *metrics.Metrics
}

// Option attaches an optional sink to the pipeline.
type Option func(*Pipeline)

func WithForecastRepository(repo repositories.ForecastRepository) Option {
	return func(p *Pipeline) { p.forecasts = repo }
}

func WithExporter(e Exporter) Option {
	return func(p *Pipeline) { p.exporter = e }
}

func WithPublisher(pub Publisher) Option {
	return func(p *Pipeline) { p.publisher = pub }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// WithRunID replaces the generated run identifier.
func WithRunID(id string) Option {
	return func(p *Pipeline) { p.RunID = id }
}

func NewPipeline(config *models.Config, orders repositories.OrderRepository, recipes repositories.RecipeRepository, orchestrator *forecast.Orchestrator, opts ...Option) *Pipeline {
	p := &Pipeline{
		RunID:        cuid.New(),
		config:       config,
		orders:       orders,
		recipes:      recipes,
		orchestrator: orchestrator,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Options builds the orchestrator options from the forecast settings.
func Options(cfg models.ForecastConfig) forecast.Options {
	opts := forecast.DefaultOptions()
	if cfg.MinNonZeroDays > 0 {
		opts.MinNonZeroDays = cfg.MinNonZeroDays
	}
	if cfg.SeasonalPeriod > 0 {
		opts.Search.Period = cfg.SeasonalPeriod
	}
	if cfg.SampleOrders > 0 {
		opts.Search.Samples = cfg.SampleOrders
	}
	opts.Search.Seed = cfg.SearchSeed
	opts.Workers = cfg.Workers
	return opts
}

// Result is everything a run produced. Partial is set when the forecast
// succeeded but storing, exporting or publishing it did not.
type Result struct {
	RunID       string
	Usage       *models.Aggregation
	Forecast    *models.ForecastResult
	Analysis    models.Analysis
	Prep        models.PrepRecommendation
	Traffic     []models.TrafficRecommendation
	StoredIDs   []int64
	Files       []string
	Partial     bool
	SinkErrors  []error
	GeneratedAt time.Time
}

// ComputeHistoricalUsage loads orders and recipes for [start, end) and
// aggregates them into an hourly usage table.
func (p *Pipeline) ComputeHistoricalUsage(ctx context.Context, start, end time.Time) (*models.Aggregation, error) {
	orders, err := p.orders.FetchHistoricalOrders(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch historical orders: %w", err)
	}
	recipes, err := p.recipes.FetchMenuItemIngredients(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch menu item ingredients: %w", err)
	}
	log.Printf("Fetched %d order items between %s and %s, %d menu items with recipes",
		len(orders), start.Format(time.RFC3339), end.Format(time.RFC3339), len(recipes))

	agg, err := forecast.Aggregate(orders, recipes)
	if err != nil {
		return nil, err
	}
	stats := forecast.Stats(agg.Table)
	log.Printf("Historical usage: %.2f units over %d hours, %.2f per hour, busiest hour %s (%.2f)",
		stats.Total, agg.Table.Len(), stats.AverageHourly,
		stats.BusiestHour.Hour.Format("2006-01-02 15:04"), stats.BusiestHour.Total)
	for _, top := range stats.Top {
		log.Printf("  %s: %.2f", top.Ingredient, top.Quantity)
	}
	return agg, nil
}

// Run executes the full pipeline relative to now.
func (p *Pipeline) Run(ctx context.Context, now time.Time) (*Result, error) {
	started := time.Now()
	res := &Result{RunID: p.RunID, GeneratedAt: now}
	log.Printf("Starting forecast run %s", p.RunID)

	if p.config.ClearDB && p.forecasts != nil {
		n, err := p.forecasts.ClearForecasts(ctx)
		if err != nil {
			p.sinkFailed(res, fmt.Errorf("failed to clear forecasts: %w", err))
		} else {
			log.Printf("Cleared %d stored forecasts", n)
		}
	}

	start, end := p.config.HistoryWindow(now)
	agg, err := p.ComputeHistoricalUsage(ctx, start, end)
	if err != nil {
		return nil, err
	}
	res.Usage = agg
	if p.metrics != nil {
		p.metrics.ObserveUsage(agg)
	}
	// Calendar days and hours of day follow the zone of the history.
	now = now.In(agg.Table.Index[0].Location())
	res.GeneratedAt = now

	horizon := p.config.Forecast.HorizonDays * 24
	result, err := p.orchestrator.Forecast(ctx, agg.Table, horizon, now)
	if err != nil {
		return nil, err
	}
	res.Forecast = result
	res.Analysis = forecast.Analyze(result)
	log.Printf("Forecast covers %d ingredients, peak hour %s",
		len(result.ForecastedIngredients(0)), res.Analysis.PeakHour.Hour.Format("2006-01-02 15:04"))

	res.Prep = recommend.Prep(result, now, recommend.PrepOptions{
		SafetyMargin: p.config.Forecast.SafetyMargin,
		TopN:         p.config.Forecast.TopN,
		BusiestHours: p.config.Forecast.BusiestHours,
	})
	res.Traffic = recommend.Traffic(agg.Table, result)
	for _, rec := range res.Traffic {
		log.Printf("%s (%s): %s", models.DateKey(rec.Date), rec.Weekday, rec.Text)
	}

	if p.config.Save && p.forecasts != nil {
		p.store(ctx, res, now)
	}
	if p.exporter != nil {
		files, err := p.exporter.Export(result, res.Prep, res.Traffic)
		res.Files = files
		if err != nil {
			p.sinkFailed(res, fmt.Errorf("export failed: %w", err))
		}
		for _, f := range files {
			log.Printf("Wrote %s", f)
		}
	}
	if p.publisher != nil {
		if err := p.publisher.PublishPrep(p.RunID, res.Prep, now); err != nil {
			p.sinkFailed(res, err)
		}
		if err := p.publisher.PublishTraffic(p.RunID, res.Traffic, now); err != nil {
			p.sinkFailed(res, err)
		}
	}

	if p.metrics != nil {
		p.metrics.ObserveForecast(result, res.Traffic)
		p.metrics.ObserveRun(started, time.Now(), len(res.SinkErrors))
	}
	if res.Partial {
		log.Printf("Forecast run %s finished with %d sink errors", p.RunID, len(res.SinkErrors))
	} else {
		log.Printf("Forecast run %s finished", p.RunID)
	}
	return res, nil
}

func (p *Pipeline) store(ctx context.Context, res *Result, now time.Time) {
	ids, err := p.forecasts.StoreDailyRecommendations(ctx, res.Prep.DailyNeeds, now)
	if err != nil {
		p.sinkFailed(res, fmt.Errorf("failed to store daily recommendations: %w", err))
	} else {
		res.StoredIDs = append(res.StoredIDs, ids...)
		log.Printf("Stored %d daily recommendations", len(ids))
	}

	ids, err = p.forecasts.StoreTrafficRecommendations(ctx, res.Traffic, now)
	if err != nil {
		p.sinkFailed(res, fmt.Errorf("failed to store traffic recommendations: %w", err))
	} else {
		res.StoredIDs = append(res.StoredIDs, ids...)
		log.Printf("Stored %d traffic recommendations", len(ids))
	}
}

func (p *Pipeline) sinkFailed(res *Result, err error) {
	log.Printf("Error: %v", err)
	res.Partial = true
	res.SinkErrors = append(res.SinkErrors, err)
}

// Err joins the sink errors of a partial run.
func (r *Result) Err() error {
	return errors.Join(r.SinkErrors...)
}
