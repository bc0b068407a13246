package forecast

import (
	"fmt"
	"math"
	"time"

	"github.com/chrisdamba/prepcast/internal/models"
	"gonum.org/v1/gonum/floats"
)

// Fitter forecasts one daily series with the best seasonal model of a sampled
// search and falls back to the Estimator whenever fitting fails.
type Fitter struct {
	Search   SearchConfig
	Fallback *Estimator
}

func NewFitter(search SearchConfig, fallback *Estimator) *Fitter {
	if fallback == nil {
		fallback = NewEstimator()
	}
	return &Fitter{Search: search, Fallback: fallback}
}

// FitOutcome is the forecast of one ingredient.
type FitOutcome struct {
	Values []float64
	Method models.Method
	Spec   ModelSpec
	AIC    float64
	// Err is the failure that sent the ingredient to the fallback, if any.
	Err error
}

// Forecast returns one non-negative value per date. index and values are the
// daily history; dates must follow the last history day.
func (f *Fitter) Forecast(index []time.Time, values []float64, dates []time.Time) (out FitOutcome) {
	defer func() {
		if r := recover(); r != nil {
			out = f.fallback(index, values, dates, fmt.Errorf("%w: panic: %v", ErrModelFit, r))
		}
	}()

	// Every candidate is fitted to convergence on the full history, so the
	// winner's fit is the final model.
	fitted := make(map[ModelSpec]*SARIMA)
	score := func(series []float64, spec ModelSpec) (float64, error) {
		m, err := FitSARIMA(series, spec)
		if err != nil {
			return 0, err
		}
		fitted[spec] = m
		return m.AIC, nil
	}

	best := Search(values, f.Search, score)
	model := fitted[best.Spec]
	if !best.Found {
		var err error
		model, err = FitSARIMA(values, best.Spec)
		if err != nil {
			return f.fallback(index, values, dates, err)
		}
	}

	offset := 0
	if len(index) > 0 && len(dates) > 0 {
		offset = max(daysBetween(index[len(index)-1], dates[0])-1, 0)
	}
	predicted, err := model.Forecast(offset + len(dates))
	if err != nil {
		return f.fallback(index, values, dates, err)
	}
	predicted = predicted[offset:]
	for i, v := range predicted {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return f.fallback(index, values, dates, fmt.Errorf("%w: %s produced a non-finite forecast", ErrModelFit, best.Spec))
		}
		predicted[i] = math.Max(v, 0)
	}

	if floats.Sum(predicted) < negligible && floats.Sum(values) > 0 {
		lift := 0.1 * nonZeroMean(values)
		floats.AddConst(lift, predicted)
	}

	return FitOutcome{
		Values: predicted,
		Method: models.MethodSARIMA,
		Spec:   model.Spec,
		AIC:    model.AIC,
	}
}

func (f *Fitter) fallback(index []time.Time, values []float64, dates []time.Time, err error) FitOutcome {
	return FitOutcome{
		Values: f.Fallback.Daily(index, values, dates),
		Method: models.MethodFallback,
		Err:    err,
	}
}

func nonZeroMean(values []float64) float64 {
	var s float64
	n := 0
	for _, v := range values {
		if v != 0 {
			s += v
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return s / float64(n)
}

// daysBetween counts calendar days from a to b.
func daysBetween(a, b time.Time) int {
	a, b = models.DayFloor(a), models.DayFloor(b)
	return int(math.Round(b.Sub(a).Hours() / 24))
}
