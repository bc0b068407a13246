package forecast

import (
	"math"
	"math/rand"
)

// SearchConfig bounds the hyperparameter search of a seasonal fit.
type SearchConfig struct {
	Period int
	// Samples is how many non-seasonal and seasonal orders are drawn from the grid.
	Samples int
	Seed    int64
}

// DefaultSearchConfig samples 2x2 candidates over a weekly cycle.
func DefaultSearchConfig() SearchConfig {
	return SearchConfig{Period: 7, Samples: 2, Seed: 42}
}

// FitFunc scores one candidate on a series and returns its information criterion.
type FitFunc func(series []float64, spec ModelSpec) (float64, error)

// Candidates draws the model orders to evaluate. The full grid is every
// p,d,q in {0,1} crossed with every P,D,Q in {0,1}; only Samples of each
// half are kept, chosen deterministically from Seed.
func Candidates(cfg SearchConfig) []ModelSpec {
	var orders []Order
	var seasonal []SeasonalOrder
	for p := 0; p <= 1; p++ {
		for d := 0; d <= 1; d++ {
			for q := 0; q <= 1; q++ {
				orders = append(orders, Order{P: p, D: d, Q: q})
				seasonal = append(seasonal, SeasonalOrder{P: p, D: d, Q: q, Period: cfg.Period})
			}
		}
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	orders = sampleOrders(rng, orders, cfg.Samples)
	seasonal = sampleOrders(rng, seasonal, cfg.Samples)

	specs := make([]ModelSpec, 0, len(orders)*len(seasonal))
	for _, o := range orders {
		for _, so := range seasonal {
			specs = append(specs, ModelSpec{Order: o, Seasonal: so})
		}
	}
	return specs
}

func sampleOrders[T any](rng *rand.Rand, grid []T, n int) []T {
	if n <= 0 || n >= len(grid) {
		return grid
	}
	perm := rng.Perm(len(grid))
	out := make([]T, n)
	for i := range out {
		out[i] = grid[perm[i]]
	}
	return out
}

// SearchResult is the outcome of Search.
type SearchResult struct {
	Spec      ModelSpec
	AIC       float64
	Found     bool
	Evaluated int
	Failed    int
}

// Search scores every candidate with fit and keeps the one with the lowest AIC.
// When no candidate fits, the default order is returned with Found unset.
func Search(series []float64, cfg SearchConfig, fit FitFunc) SearchResult {
	best := SearchResult{Spec: DefaultSpec(cfg.Period), AIC: math.Inf(1)}
	for _, spec := range Candidates(cfg) {
		best.Evaluated++
		aic, err := fit(series, spec)
		if err != nil || math.IsNaN(aic) {
			best.Failed++
			continue
		}
		if aic < best.AIC {
			best.Spec, best.AIC, best.Found = spec, aic, true
		}
	}
	return best
}
