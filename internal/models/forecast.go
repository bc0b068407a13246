package models

import "time"

// Method names the estimator that produced an ingredient's forecast.
type Method string

const (
	MethodNone     Method = "none"
	MethodSARIMA   Method = "sarima"
	MethodFallback Method = "fallback"
	MethodHourly   Method = "fallback_hourly"
)

// Aggregation is the historical usage computed from order history.
type Aggregation struct {
	Table     *UsageTable
	Processed int
	Skipped   int
}

// ForecastResult holds the future usage tables. Daily is always the fold of Hourly.
// Incomplete holds the date keys of days the hourly index only partly covers.
type ForecastResult struct {
	Hourly     *UsageTable
	Daily      *UsageTable
	Methods    map[string]Method
	Incomplete map[string]bool
}

// NewForecastResult derives the daily view from hourly.
func NewForecastResult(hourly *UsageTable, methods map[string]Method) *ForecastResult {
	hours := make(map[string]int)
	for _, ts := range hourly.Index {
		hours[DateKey(ts)]++
	}
	incomplete := make(map[string]bool)
	for _, ts := range hourly.Index {
		if key := DateKey(ts); hours[key] < HoursInDay(ts) {
			incomplete[key] = true
		}
	}
	return &ForecastResult{
		Hourly:     hourly,
		Daily:      hourly.Daily(),
		Methods:    methods,
		Incomplete: incomplete,
	}
}

// CompleteDaily is the daily table without the days the forecast only partly
// covers. Prep quantities, stored needs and traffic levels use it.
func (r *ForecastResult) CompleteDaily() *UsageTable {
	return r.Daily.SelectRows(func(ts time.Time) bool { return !r.Incomplete[DateKey(ts)] })
}

func (r *ForecastResult) Empty() bool {
	return r == nil || r.Hourly.Empty()
}

// ForecastedIngredients lists ingredients whose forecast total exceeds threshold.
func (r *ForecastResult) ForecastedIngredients(threshold float64) []string {
	var out []string
	for _, id := range r.Hourly.Ingredients {
		if r.Hourly.ColumnTotal(id) > threshold {
			out = append(out, id)
		}
	}
	return out
}

// HourUsage is the total usage of one forecast hour.
type HourUsage struct {
	Hour  time.Time `json:"hour"`
	Total float64   `json:"total"`
}

// Analysis summarises a forecast.
type Analysis struct {
	TotalByIngredient []IngredientQuantity
	HourlyTotals      []HourUsage
	PeakHour          HourUsage
	WeekdayTotals     map[time.Weekday]float64
	HourOfDayTotals   [24]float64
}

// PrepRecommendation holds the prep quantities derived from a forecast.
type PrepRecommendation struct {
	// DailyNeeds is the daily forecast with the safety margin applied.
	DailyNeeds    *UsageTable
	Tomorrow      time.Time
	TomorrowNeeds map[string]float64
	TopByDay      map[string][]IngredientQuantity
	BusiestHours  map[string][]HourUsage
}

type TrafficLevel string

const (
	TrafficHigh   TrafficLevel = "High"
	TrafficLow    TrafficLevel = "Low"
	TrafficNormal TrafficLevel = "Normal"
)

// TrafficRecommendation is the staffing guidance for one forecast day.
type TrafficRecommendation struct {
	Date       time.Time    `json:"date"`
	Weekday    time.Weekday `json:"weekday"`
	Level      TrafficLevel `json:"traffic_level"`
	Deviation  float64      `json:"deviation_percent"`
	Forecast   float64      `json:"forecast_total"`
	Baseline   float64      `json:"baseline_total"`
	PeakHour   int          `json:"peak_hour"`
	BusyRanges []string     `json:"busy_ranges,omitempty"`
	Text       string       `json:"text_recommendation"`
}

// DateKey formats a date the way forecasts are keyed on output.
func DateKey(t time.Time) string {
	return t.Format("2006-01-02")
}
