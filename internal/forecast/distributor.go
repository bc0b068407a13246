package forecast

import (
	"time"

	"github.com/chrisdamba/prepcast/internal/models"
)

// HourShares returns the fraction of a day's usage attributed to each hour.
// The shares sum to 1; without any hourly signal every hour gets 1/24.
func HourShares(index []time.Time, values []float64) [24]float64 {
	var sums, counts [24]float64
	for i, ts := range index {
		sums[ts.Hour()] += values[i]
		counts[ts.Hour()]++
	}

	var shares [24]float64
	var total float64
	for h := range shares {
		if counts[h] > 0 {
			shares[h] = sums[h] / counts[h]
		}
		total += shares[h]
	}
	for h := range shares {
		if total > 0 {
			shares[h] /= total
		} else {
			shares[h] = 1.0 / 24
		}
	}
	return shares
}

// Distribute spreads daily forecasts over hours. daily is keyed by
// models.DateKey; hours without a daily value receive zero.
func Distribute(shares [24]float64, daily map[string]float64, hours []time.Time) []float64 {
	out := make([]float64, len(hours))
	for i, ts := range hours {
		out[i] = daily[models.DateKey(ts)] * shares[ts.Hour()]
	}
	return out
}
