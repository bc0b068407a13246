package forecast

import "github.com/chrisdamba/prepcast/internal/models"

// DefaultMinNonZeroDays is one seasonal cycle of daily observations.
const DefaultMinNonZeroDays = 7

// Classification splits ingredients by whether a seasonal fit is attempted.
type Classification struct {
	Forecastable []string
	Sparse       []string
	NonZeroDays  map[string]int
}

// Classify counts strictly positive days per ingredient and marks those with at
// least minNonZero of them as forecastable.
func Classify(daily *models.UsageTable, minNonZero int) Classification {
	if minNonZero <= 0 {
		minNonZero = DefaultMinNonZeroDays
	}
	c := Classification{NonZeroDays: make(map[string]int, len(daily.Ingredients))}
	for _, id := range daily.Ingredients {
		n := countPositive(daily.Series(id))
		c.NonZeroDays[id] = n
		if n >= minNonZero {
			c.Forecastable = append(c.Forecastable, id)
		} else {
			c.Sparse = append(c.Sparse, id)
		}
	}
	return c
}

func countPositive(values []float64) int {
	n := 0
	for _, v := range values {
		if v > 0 {
			n++
		}
	}
	return n
}
