package forecast

import (
	"time"

	"github.com/chrisdamba/prepcast/internal/models"
)

// Analyze summarises where and when the forecast usage falls.
func Analyze(result *models.ForecastResult) models.Analysis {
	a := models.Analysis{WeekdayTotals: make(map[time.Weekday]float64)}
	if result.Empty() {
		return a
	}
	hourly := result.Hourly

	a.TotalByIngredient = hourly.TopIngredients(len(hourly.Ingredients))
	for i, total := range hourly.RowTotals() {
		ts := hourly.Index[i]
		usage := models.HourUsage{Hour: ts, Total: total}
		a.HourlyTotals = append(a.HourlyTotals, usage)
		if i == 0 || total > a.PeakHour.Total {
			a.PeakHour = usage
		}
		a.WeekdayTotals[ts.Weekday()] += total
		a.HourOfDayTotals[ts.Hour()] += total
	}
	return a
}
