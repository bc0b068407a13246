package recommend

import (
	"fmt"
	"strings"
	"time"

	"github.com/chrisdamba/prepcast/internal/models"
)

const (
	highTraffic = 1.25
	lowTraffic  = 0.75
	busyWeekday = 1.2
	slowWeekday = 0.8
	busyHour    = 1.3
)

// Baseline is the historical mean daily usage per weekday.
type Baseline struct {
	Weekday [7]float64
	Seen    [7]bool
	Average float64
}

// NewBaseline folds the hourly history by day and averages the day totals per weekday.
func NewBaseline(history *models.UsageTable) Baseline {
	var b Baseline
	if history.Empty() {
		return b
	}
	daily := history.Daily()
	var sums, counts [7]float64
	for i, total := range daily.RowTotals() {
		wd := daily.Index[i].Weekday()
		sums[wd] += total
		counts[wd]++
	}
	var seen float64
	for wd := range b.Weekday {
		if counts[wd] == 0 {
			continue
		}
		b.Weekday[wd] = sums[wd] / counts[wd]
		b.Seen[wd] = true
		b.Average += b.Weekday[wd]
		seen++
	}
	if seen > 0 {
		b.Average /= seen
	}
	return b
}

// Expected is the baseline of wd, or the weekday average when wd was never observed.
func (b Baseline) Expected(wd time.Weekday) float64 {
	if b.Seen[wd] {
		return b.Weekday[wd]
	}
	return b.Average
}

func (b Baseline) busy(wd time.Weekday) bool {
	return b.Seen[wd] && b.Weekday[wd] > b.Average*busyWeekday
}

func (b Baseline) slow(wd time.Weekday) bool {
	return b.Seen[wd] && b.Weekday[wd] < b.Average*slowWeekday
}

// Classify compares a forecast day total with the weekday baseline and
// returns the traffic level and the percentage deviation from it.
func Classify(forecast, expected float64) (models.TrafficLevel, float64) {
	if expected <= 0 {
		return models.TrafficNormal, 0
	}
	ratio := forecast / expected
	switch {
	case ratio > highTraffic:
		return models.TrafficHigh, (ratio - 1) * 100
	case ratio < lowTraffic:
		return models.TrafficLow, (1 - ratio) * 100
	default:
		return models.TrafficNormal, (ratio - 1) * 100
	}
}

// Traffic produces one staffing recommendation per fully forecast day.
func Traffic(history *models.UsageTable, result *models.ForecastResult) []models.TrafficRecommendation {
	if result.Empty() {
		return nil
	}
	baseline := NewBaseline(history)

	hourlyTotals := result.Hourly.RowTotals()
	byDay := make(map[string][]models.HourUsage)
	for i, ts := range result.Hourly.Index {
		key := models.DateKey(ts)
		byDay[key] = append(byDay[key], models.HourUsage{Hour: ts, Total: hourlyTotals[i]})
	}

	daily := result.CompleteDaily()
	var recs []models.TrafficRecommendation
	for i, total := range daily.RowTotals() {
		date := daily.Index[i]
		wd := date.Weekday()
		expected := baseline.Expected(wd)
		level, deviation := Classify(total, expected)

		rec := models.TrafficRecommendation{
			Date:      date,
			Weekday:   wd,
			Level:     level,
			Deviation: deviation,
			Forecast:  total,
			Baseline:  expected,
			PeakHour:  -1,
		}

		var text strings.Builder
		day := fmt.Sprintf("%s, %s", wd, models.DateKey(date))
		switch level {
		case models.TrafficHigh:
			fmt.Fprintf(&text, "Expect HEAVY traffic on %s. Forecasting %.1f%% above normal levels for a %s. "+
				"Consider additional staffing and ingredient preparation.", day, deviation, wd)
			if baseline.busy(wd) {
				fmt.Fprintf(&text, " Note that %ss are typically busy days already.", wd)
			}
		case models.TrafficLow:
			fmt.Fprintf(&text, "Expect LIGHT traffic on %s. Forecasting %.1f%% below normal levels for a %s. "+
				"Consider reducing staffing and ingredient preparation.", day, deviation, wd)
			if baseline.slow(wd) {
				fmt.Fprintf(&text, " Note that %ss are typically slower days already.", wd)
			}
		default:
			fmt.Fprintf(&text, "Expect NORMAL traffic on %s. "+
				"Typical staffing and ingredient preparation should be sufficient.", day)
		}

		if hours := byDay[models.DateKey(date)]; len(hours) > 0 {
			rec.PeakHour = peakHour(hours)
			fmt.Fprintf(&text, " Peak hours expected around %02d:00.", rec.PeakHour)
			if ranges := BusyRanges(hours); len(ranges) > 1 {
				rec.BusyRanges = ranges
				fmt.Fprintf(&text, " Multiple busy periods expected: %s.", strings.Join(ranges, ", "))
			}
		}
		rec.Text = text.String()
		recs = append(recs, rec)
	}
	return recs
}

func peakHour(hours []models.HourUsage) int {
	peak := hours[0]
	for _, h := range hours[1:] {
		if h.Total > peak.Total {
			peak = h
		}
	}
	return peak.Hour.Hour()
}

// BusyRanges lists the contiguous runs of hours whose usage exceeds 1.3x the
// mean hourly usage of the day, formatted as "HH:00" or "HH:00-HH:00".
func BusyRanges(hours []models.HourUsage) []string {
	if len(hours) == 0 {
		return nil
	}
	var mean float64
	for _, h := range hours {
		mean += h.Total
	}
	mean /= float64(len(hours))
	threshold := mean * busyHour

	var ranges []string
	runStart, runEnd := -1, -1
	flush := func() {
		if runStart < 0 {
			return
		}
		if runEnd > runStart {
			ranges = append(ranges, fmt.Sprintf("%02d:00-%02d:00", runStart, runEnd+1))
		} else {
			ranges = append(ranges, fmt.Sprintf("%02d:00", runStart))
		}
		runStart, runEnd = -1, -1
	}
	for _, h := range hours {
		if h.Total > threshold {
			if runStart < 0 {
				runStart = h.Hour.Hour()
			}
			runEnd = h.Hour.Hour()
			continue
		}
		flush()
	}
	flush()
	return ranges
}
