package forecast

import (
	"context"
	"errors"
	"fmt"
	"log"
	"runtime"
	"time"

	"github.com/chrisdamba/prepcast/internal/models"
	"golang.org/x/sync/errgroup"
)

// validateTop is how many of the most used ingredients the validation pass checks.
const validateTop = 5

// Options configures an Orchestrator.
type Options struct {
	MinNonZeroDays int
	Search         SearchConfig
	// Workers sizes the fitting pool; zero means one less than the CPU count.
	Workers int
	// Progress, when set, is called once per finished model fit. It may be
	// called from several goroutines.
	Progress func()
}

// DefaultOptions mirrors the defaults of the configuration file.
func DefaultOptions() Options {
	return Options{
		MinNonZeroDays: DefaultMinNonZeroDays,
		Search:         DefaultSearchConfig(),
	}
}

// Workers returns the pool size used for n configured workers.
func Workers(n int) int {
	if n > 0 {
		return n
	}
	return max(runtime.NumCPU()-1, 1)
}

// Orchestrator produces the hourly and daily forecast of every ingredient.
type Orchestrator struct {
	opts     Options
	fitter   *Fitter
	fallback *Estimator
}

func NewOrchestrator(opts Options) *Orchestrator {
	if opts.Search.Period == 0 {
		opts.Search = DefaultSearchConfig()
	}
	fallback := NewEstimator()
	return &Orchestrator{
		opts:     opts,
		fitter:   NewFitter(opts.Search, fallback),
		fallback: fallback,
	}
}

// Forecast predicts at least horizonHours of usage starting at the hour of now.
// The window is extended to the end of its last calendar day so that only the
// current day is partial.
func (o *Orchestrator) Forecast(ctx context.Context, usage *models.UsageTable, horizonHours int, now time.Time) (*models.ForecastResult, error) {
	if usage.Empty() {
		return nil, fmt.Errorf("cannot forecast: %w", ErrDataUnavailable)
	}
	if horizonHours <= 0 {
		return nil, fmt.Errorf("horizon must be positive, got %d hours", horizonHours)
	}

	hours := models.HourlyIndexThroughDay(now, horizonHours)
	dates := models.DatesCovering(hours)
	history := usage.Daily()

	class := Classify(history, o.opts.MinNonZeroDays)
	log.Printf("Forecasting %d hours for %d ingredients: %d with seasonal models, %d with weekday averages",
		len(hours), len(usage.Ingredients), len(class.Forecastable), len(class.Sparse))

	// Every ingredient starts with the fallback estimate; model fits replace it.
	daily := models.NewUsageTable(models.Daily, dates, usage.Ingredients)
	methods := make(map[string]models.Method, len(usage.Ingredients))
	for _, id := range usage.Ingredients {
		if err := daily.SetSeries(id, o.fallback.Daily(history.Index, history.Series(id), dates)); err != nil {
			return nil, err
		}
		methods[id] = models.MethodFallback
	}

	outcomes, err := o.fitAll(ctx, history, class.Forecastable, dates)
	if err != nil {
		return nil, err
	}
	for i, id := range class.Forecastable {
		outcome := outcomes[i]
		if outcome.Err != nil {
			log.Printf("Model fitting failed for %s, using weekday averages: %v", id, outcome.Err)
		}
		if err := daily.SetSeries(id, outcome.Values); err != nil {
			return nil, err
		}
		methods[id] = outcome.Method
	}

	hourly := models.NewUsageTable(models.Hourly, hours, usage.Ingredients)
	for _, id := range usage.Ingredients {
		if daily.ColumnTotal(id) <= negligible {
			methods[id] = models.MethodNone
			continue
		}
		if err := o.distribute(usage, daily, hourly, id); err != nil {
			return nil, err
		}
	}

	if err := o.validate(usage, history, hourly, methods, dates); err != nil {
		return nil, err
	}
	return models.NewForecastResult(hourly, methods), nil
}

// fitAll runs one model fit per ingredient on the worker pool. Each unit only
// writes its own slot; the caller merges after every unit has finished.
func (o *Orchestrator) fitAll(ctx context.Context, history *models.UsageTable, ingredients []string, dates []time.Time) ([]FitOutcome, error) {
	outcomes := make([]FitOutcome, len(ingredients))
	if len(ingredients) == 0 {
		return outcomes, nil
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(Workers(o.opts.Workers))
	for i, id := range ingredients {
		i, values := i, history.Series(id)
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			outcomes[i] = o.fitter.Forecast(history.Index, values, dates)
			if o.opts.Progress != nil {
				o.opts.Progress()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("model fitting interrupted: %w", err)
	}
	return outcomes, nil
}

func (o *Orchestrator) distribute(usage, daily, hourly *models.UsageTable, id string) error {
	totals := make(map[string]float64, daily.Len())
	for i, d := range daily.Index {
		totals[models.DateKey(d)] = daily.Value(i, id)
	}
	shares := HourShares(usage.Index, usage.Series(id))
	return hourly.SetSeries(id, Distribute(shares, totals, hourly.Index))
}

// validate makes sure none of the most used ingredients ends up without a
// forecast: such ingredients are re-forecast with the weekday averages and,
// if that is still empty, with the hourly averages directly.
func (o *Orchestrator) validate(usage, history, hourly *models.UsageTable, methods map[string]models.Method, dates []time.Time) error {
	for _, top := range usage.TopIngredients(validateTop) {
		id := top.Ingredient
		if top.Quantity <= negligible || hourly.ColumnTotal(id) > negligible {
			continue
		}
		log.Printf("Forecast for top ingredient %s is empty despite %.2f units of history, re-forecasting", id, top.Quantity)

		daily := models.NewUsageTable(models.Daily, dates, []string{id})
		if err := daily.SetSeries(id, o.fallback.Daily(history.Index, history.Series(id), dates)); err != nil {
			return err
		}
		methods[id] = models.MethodFallback
		if err := o.distribute(usage, daily, hourly, id); err != nil {
			return err
		}
		if hourly.ColumnTotal(id) > negligible {
			continue
		}

		values := o.fallback.Hourly(usage.Index, usage.Series(id), hourly.Index)
		if err := hourly.SetSeries(id, values); err != nil {
			return err
		}
		methods[id] = models.MethodHourly
	}
	return nil
}

// IsDataUnavailable reports whether err means there was nothing to forecast from.
func IsDataUnavailable(err error) bool {
	return errors.Is(err, ErrDataUnavailable)
}
