// Package recommend turns usage forecasts into prep quantities and staffing guidance.
package recommend

import (
	"sort"
	"time"

	"github.com/chrisdamba/prepcast/internal/models"
	"github.com/shopspring/decimal"
)

const (
	DefaultSafetyMargin = 1.15
	DefaultTopN         = 5
	DefaultBusiestHours = 3
)

type PrepOptions struct {
	SafetyMargin float64
	TopN         int
	BusiestHours int
}

func DefaultPrepOptions() PrepOptions {
	return PrepOptions{
		SafetyMargin: DefaultSafetyMargin,
		TopN:         DefaultTopN,
		BusiestHours: DefaultBusiestHours,
	}
}

// Prep derives daily prep quantities from a forecast. now decides which day is
// tomorrow. Days the forecast covers only in part are left out.
func Prep(result *models.ForecastResult, now time.Time, opts PrepOptions) models.PrepRecommendation {
	if opts.SafetyMargin <= 0 {
		opts.SafetyMargin = DefaultSafetyMargin
	}
	if opts.TopN <= 0 {
		opts.TopN = DefaultTopN
	}
	if opts.BusiestHours <= 0 {
		opts.BusiestHours = DefaultBusiestHours
	}

	rec := models.PrepRecommendation{
		Tomorrow:     models.DayFloor(now).AddDate(0, 0, 1),
		TopByDay:     make(map[string][]models.IngredientQuantity),
		BusiestHours: make(map[string][]models.HourUsage),
	}
	if result.Empty() {
		return rec
	}

	daily := result.CompleteDaily()
	rec.DailyNeeds = WithMargin(daily, opts.SafetyMargin)
	tomorrowKey := models.DateKey(rec.Tomorrow)
	for i, d := range rec.DailyNeeds.Index {
		if models.DateKey(d) == tomorrowKey {
			rec.TomorrowNeeds = rec.DailyNeeds.Row(i)
		}
	}

	for i, d := range daily.Index {
		rec.TopByDay[models.DateKey(d)] = topIngredients(daily.Row(i), opts.TopN)
	}

	totals := result.Hourly.RowTotals()
	byDay := make(map[string][]models.HourUsage)
	for i, ts := range result.Hourly.Index {
		key := models.DateKey(ts)
		if result.Incomplete[key] {
			continue
		}
		byDay[key] = append(byDay[key], models.HourUsage{Hour: ts, Total: totals[i]})
	}
	for key, hours := range byDay {
		sort.SliceStable(hours, func(i, j int) bool { return hours[i].Total > hours[j].Total })
		if len(hours) > opts.BusiestHours {
			hours = hours[:opts.BusiestHours]
		}
		rec.BusiestHours[key] = hours
	}
	return rec
}

// WithMargin scales every cell of a daily table by margin. Products are
// computed in decimal so 20 * 1.15 is 23, not 22.999999999999996.
func WithMargin(daily *models.UsageTable, margin float64) *models.UsageTable {
	out := models.NewUsageTable(daily.Granularity, daily.Index, daily.Ingredients)
	m := decimal.NewFromFloat(margin)
	for _, id := range daily.Ingredients {
		src := daily.Series(id)
		dst := out.Series(id)
		for i, v := range src {
			dst[i] = decimal.NewFromFloat(v).Mul(m).InexactFloat64()
		}
	}
	return out
}

// roundQuantity rounds half away from zero to two decimal places.
func roundQuantity(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

func topIngredients(row map[string]float64, n int) []models.IngredientQuantity {
	var out []models.IngredientQuantity
	for id, v := range row {
		if v > 0 {
			out = append(out, models.IngredientQuantity{Ingredient: id, Quantity: v})
		}
	}
	models.SortQuantities(out)
	if len(out) > n {
		out = out[:n]
	}
	for i := range out {
		out[i].Quantity = roundQuantity(out[i].Quantity)
	}
	return out
}
