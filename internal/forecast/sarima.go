package forecast

import (
	"fmt"
	"math"

	"github.com/sartorproj/goarima/sarima"
	"github.com/sartorproj/goarima/timeseries"
	"gonum.org/v1/gonum/stat"
)

type Order struct {
	P, D, Q int
}

type SeasonalOrder struct {
	P, D, Q int
	Period  int
}

// ModelSpec is a SARIMA(p,d,q)x(P,D,Q,s) order.
type ModelSpec struct {
	Order    Order
	Seasonal SeasonalOrder
}

// DefaultSpec is used when no candidate of the search could be fitted.
func DefaultSpec(period int) ModelSpec {
	return ModelSpec{
		Order:    Order{P: 1, D: 0, Q: 1},
		Seasonal: SeasonalOrder{P: 1, D: 0, Q: 1, Period: period},
	}
}

func (s ModelSpec) String() string {
	return fmt.Sprintf("(%d,%d,%d)x(%d,%d,%d,%d)",
		s.Order.P, s.Order.D, s.Order.Q,
		s.Seasonal.P, s.Seasonal.D, s.Seasonal.Q, s.Seasonal.Period)
}

// numParams counts the coefficients plus the constant of undifferenced models.
func (s ModelSpec) numParams() int {
	n := s.Order.P + s.Order.Q + s.Seasonal.P + s.Seasonal.Q
	if s.Order.D == 0 && s.Seasonal.D == 0 {
		n++
	}
	return n
}

// lost is the number of leading observations differencing and the
// autoregressive lags consume.
func (s ModelSpec) lost() int {
	return s.Order.P + s.Order.D + s.Seasonal.Period*(s.Seasonal.P+s.Seasonal.D)
}

func (s ModelSpec) validate() error {
	o, so := s.Order, s.Seasonal
	if o.P < 0 || o.D < 0 || o.Q < 0 || so.P < 0 || so.D < 0 || so.Q < 0 {
		return fmt.Errorf("negative order in %s", s)
	}
	if so.Period < 2 {
		return fmt.Errorf("seasonal period %d too short in %s", so.Period, s)
	}
	return nil
}

// SARIMA is a seasonal ARIMA model fitted on one daily series.
type SARIMA struct {
	Spec   ModelSpec
	AIC    float64
	LogLik float64

	model *sarima.Model
}

// FitSARIMA estimates spec on series. Series too short for the order, and
// series without variance, are rejected before the estimator runs.
func FitSARIMA(series []float64, spec ModelSpec) (*SARIMA, error) {
	if err := spec.validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrModelFit, err)
	}

	nEff := len(series) - spec.lost()
	k := spec.numParams()
	if nEff < k+3 {
		return nil, fmt.Errorf("%w: %w: %d usable observations for %d parameters of %s",
			ErrModelFit, ErrInsufficientSignal, nEff, k, spec)
	}
	if std := stat.StdDev(series, nil); math.IsNaN(std) || std == 0 {
		return nil, fmt.Errorf("%w: series has no variance", ErrModelFit)
	}

	values := make([]float64, len(series))
	copy(values, series)

	o, so := spec.Order, spec.Seasonal
	model := sarima.New(o.P, o.D, o.Q, so.P, so.D, so.Q, so.Period)
	if err := model.Fit(&timeseries.Series{Values: values}); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrModelFit, spec, err)
	}
	if math.IsNaN(model.AIC) || math.IsInf(model.AIC, 0) {
		return nil, fmt.Errorf("%w: %s: AIC is %v", ErrModelFit, spec, model.AIC)
	}
	return &SARIMA{Spec: spec, AIC: model.AIC, LogLik: model.LogLik, model: model}, nil
}

// Forecast returns point forecasts for the next steps observations.
func (m *SARIMA) Forecast(steps int) ([]float64, error) {
	if steps <= 0 {
		return nil, nil
	}
	out, err := m.model.Predict(steps)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrModelFit, m.Spec, err)
	}
	if len(out) < steps {
		return nil, fmt.Errorf("%w: %s predicted %d of %d steps", ErrModelFit, m.Spec, len(out), steps)
	}
	return out[:steps], nil
}
