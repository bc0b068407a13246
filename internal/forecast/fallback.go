package forecast

import (
	"math"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

const (
	DefaultTrendWindow = 14
	MinTrend           = 0.5
	MaxTrend           = 2.0
)

// Estimator forecasts from weekday (and hour-of-day) averages scaled by the
// recent trend. It never fails and never returns negative values.
type Estimator struct {
	// TrendWindow is the number of most recent daily observations compared
	// against the full history.
	TrendWindow int
}

func NewEstimator() *Estimator {
	return &Estimator{TrendWindow: DefaultTrendWindow}
}

func (e *Estimator) window() int {
	if e == nil || e.TrendWindow <= 0 {
		return DefaultTrendWindow
	}
	return e.TrendWindow
}

// TrendMultiplier is mean(last window)/mean(all), clamped to [MinTrend, MaxTrend].
// It is 1 when the history is shorter than window or has a zero mean.
func TrendMultiplier(values []float64, window int) float64 {
	if len(values) < window || window <= 0 {
		return 1
	}
	overall := stat.Mean(values, nil)
	if overall <= 0 {
		return 1
	}
	recent := stat.Mean(values[len(values)-window:], nil)
	return math.Min(math.Max(recent/overall, MinTrend), MaxTrend)
}

// Daily forecasts one value per date from a daily history.
func (e *Estimator) Daily(index []time.Time, values []float64, dates []time.Time) []float64 {
	overall := meanOrZero(values)

	var sums, counts [7]float64
	for i, ts := range index {
		wd := ts.Weekday()
		sums[wd] += values[i]
		counts[wd]++
	}
	var weekday [7]float64
	for wd := range weekday {
		if counts[wd] > 0 {
			weekday[wd] = sums[wd] / counts[wd]
		} else {
			weekday[wd] = overall
		}
	}

	trend := TrendMultiplier(values, e.window())
	out := make([]float64, len(dates))
	for i, d := range dates {
		out[i] = math.Max(weekday[d.Weekday()]*trend, 0)
	}

	if minPos, ok := minPositive(values); ok && floats.Sum(out) < negligible {
		for i, d := range dates {
			out[i] = math.Max(out[i], degenerateFloor(d.Weekday(), minPos))
		}
	}
	return out
}

// Hourly forecasts one value per hour from an hourly history, grouping by
// weekday and hour. Missing cells use the hour-of-day mean, then the overall mean.
func (e *Estimator) Hourly(index []time.Time, values []float64, hours []time.Time) []float64 {
	overall := meanOrZero(values)

	var cellSum, cellCount [7][24]float64
	var hourSum, hourCount [24]float64
	for i, ts := range index {
		wd, h := ts.Weekday(), ts.Hour()
		cellSum[wd][h] += values[i]
		cellCount[wd][h]++
		hourSum[h] += values[i]
		hourCount[h]++
	}

	trend := TrendMultiplier(values, e.window()*24)
	out := make([]float64, len(hours))
	for i, ts := range hours {
		wd, h := ts.Weekday(), ts.Hour()
		var avg float64
		switch {
		case cellCount[wd][h] > 0:
			avg = cellSum[wd][h] / cellCount[wd][h]
		case hourCount[h] > 0:
			avg = hourSum[h] / hourCount[h]
		default:
			avg = overall
		}
		out[i] = math.Max(avg*trend, 0)
	}

	if minPos, ok := minPositive(values); ok && floats.Sum(out) < negligible {
		for i, ts := range hours {
			out[i] = math.Max(out[i], degenerateFloor(ts.Weekday(), minPos)/24)
		}
	}
	return out
}

// degenerateFloor keeps rarely used ingredients from dropping to zero,
// with a larger share on the weekend.
func degenerateFloor(wd time.Weekday, minPos float64) float64 {
	switch wd {
	case time.Friday, time.Saturday, time.Sunday:
		return 0.2 * minPos
	}
	return 0.1 * minPos
}

func meanOrZero(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return stat.Mean(values, nil)
}

func minPositive(values []float64) (float64, bool) {
	found := false
	m := math.Inf(1)
	for _, v := range values {
		if v > 0 && v < m {
			m, found = v, true
		}
	}
	return m, found
}
