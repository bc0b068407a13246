// Package forecast turns order history into per-ingredient usage forecasts.
//
// The pipeline aggregates order items into an hourly usage table, fits a
// seasonal ARIMA model per ingredient where the history carries enough
// signal, falls back to weekday averages everywhere else, and spreads the
// daily forecasts over the hours of each day.
package forecast

import "errors"

var (
	// ErrDataUnavailable means there is no order or recipe data to work from.
	ErrDataUnavailable = errors.New("forecast: no historical data available")
	// ErrInsufficientSignal means a series is too sparse for a seasonal fit.
	ErrInsufficientSignal = errors.New("forecast: insufficient signal for seasonal model")
	// ErrModelFit wraps every failure of a single model fit.
	ErrModelFit = errors.New("forecast: model fit failed")
)

// negligible is the total below which a forecast counts as empty.
const negligible = 0.1
