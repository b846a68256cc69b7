package planning

import (
	"fmt"
	"math"
)

// Method identifies a point-forecast method.
type Method string

const (
	MethodAuto                 Method = "auto"
	MethodMovingAverage        Method = "moving_average"
	MethodExponentialSmoothing Method = "exponential_smoothing"
	MethodLinearTrend          Method = "linear_trend"
	MethodSeasonalNaive        Method = "seasonal_naive"
	MethodSeasonalDecompose    Method = "seasonal_decompose"

	// MethodLinearTrendFallback labels a seasonal decomposition that lacked two
	// full seasons of history and was answered by a plain linear trend.
	MethodLinearTrendFallback Method = "linear_trend_fallback"
)

const (
	DefaultWindow       = 3
	DefaultAlpha        = 0.3
	DefaultPeriodsAhead = 1
	DefaultSeasonLength = 12

	// confidenceZ is the two-sided 95% normal quantile used for decomposition bounds.
	confidenceZ = 1.96
	// maxErrorHistory caps how many one-step errors feed the confidence interval.
	maxErrorHistory = 24
)

// ParseMethod accepts the method names used by the API and the planner CLI.
// The empty string selects automatic selection.
func ParseMethod(raw string) (Method, error) {
	switch m := Method(raw); m {
	case "", MethodAuto:
		return MethodAuto, nil
	case MethodMovingAverage, MethodExponentialSmoothing, MethodLinearTrend,
		MethodSeasonalNaive, MethodSeasonalDecompose:
		return m, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMethod, raw)
	}
}

// Params tunes the forecasting methods. Zero fields take the package defaults.
type Params struct {
	Window       int     `json:"window,omitempty"`
	Alpha        float64 `json:"alpha,omitempty"`
	PeriodsAhead int     `json:"periods_ahead,omitempty"`
	SeasonLength int     `json:"season_length,omitempty"`
}

// DefaultParams returns window 3, alpha 0.3, one period ahead and a 12-period season.
func DefaultParams() Params {
	return Params{
		Window:       DefaultWindow,
		Alpha:        DefaultAlpha,
		PeriodsAhead: DefaultPeriodsAhead,
		SeasonLength: DefaultSeasonLength,
	}
}

func (p Params) normalize() (Params, error) {
	d := DefaultParams()
	if p.Window == 0 {
		p.Window = d.Window
	}
	if p.Alpha == 0 {
		p.Alpha = d.Alpha
	}
	if p.PeriodsAhead == 0 {
		p.PeriodsAhead = d.PeriodsAhead
	}
	if p.SeasonLength == 0 {
		p.SeasonLength = d.SeasonLength
	}

	switch {
	case p.Window < 1:
		return p, fmt.Errorf("%w: window must be at least 1, got %d", ErrInvalidParameter, p.Window)
	case !isFinite(p.Alpha) || p.Alpha <= 0 || p.Alpha > 1:
		return p, fmt.Errorf("%w: alpha must be in (0, 1], got %v", ErrInvalidParameter, p.Alpha)
	case p.PeriodsAhead < 1:
		return p, fmt.Errorf("%w: periods ahead must be at least 1, got %d", ErrInvalidParameter, p.PeriodsAhead)
	case p.SeasonLength < 1:
		return p, fmt.Errorf("%w: season length must be at least 1, got %d", ErrInvalidParameter, p.SeasonLength)
	}
	return p, nil
}

// ForecastResult is the outcome of a single point forecast.
type ForecastResult struct {
	PointForecast float64            `json:"point_forecast"`
	LowerBound    *float64           `json:"lower_bound,omitempty"`
	UpperBound    *float64           `json:"upper_bound,omitempty"`
	MethodUsed    Method             `json:"method_used"`
	Parameters    map[string]float64 `json:"parameters"`
	AutoSelected  bool               `json:"auto_selected"`
	Fallback      bool               `json:"fallback"`
}

// SelectMethod picks a method from the amount of history available:
// two years or more gets seasonal decomposition, one year or more a linear
// trend, anything shorter exponential smoothing.
func SelectMethod(periods int) Method {
	switch {
	case periods >= 24:
		return MethodSeasonalDecompose
	case periods >= 12:
		return MethodLinearTrend
	default:
		return MethodExponentialSmoothing
	}
}

// Forecast validates series and params and dispatches to the requested method.
// An empty method or MethodAuto selects one with SelectMethod.
func Forecast(series []float64, method Method, params Params) (ForecastResult, error) {
	if len(series) == 0 {
		return ForecastResult{}, ErrEmptySeries
	}
	for i, v := range series {
		if !isFinite(v) {
			return ForecastResult{}, fmt.Errorf("%w at index %d", ErrNonFiniteValue, i)
		}
	}

	p, err := params.normalize()
	if err != nil {
		return ForecastResult{}, err
	}

	result := ForecastResult{MethodUsed: method}
	if method == "" || method == MethodAuto {
		result.MethodUsed = SelectMethod(len(series))
		result.AutoSelected = true
	}

	var value float64
	switch result.MethodUsed {
	case MethodMovingAverage:
		value = MovingAverage(series, p.Window)
		result.Parameters = map[string]float64{"window": float64(p.Window)}
	case MethodExponentialSmoothing:
		value = ExponentialSmoothing(series, p.Alpha)
		result.Parameters = map[string]float64{"alpha": p.Alpha}
	case MethodLinearTrend:
		value = LinearTrend(series, p.PeriodsAhead)
		result.Parameters = map[string]float64{"periods_ahead": float64(p.PeriodsAhead)}
	case MethodSeasonalNaive:
		value = SeasonalNaive(series, p.SeasonLength)
		result.Parameters = map[string]float64{"season_length": float64(p.SeasonLength)}
	case MethodSeasonalDecompose:
		d := SeasonalDecompose(series, p.SeasonLength)
		value = d.Forecast
		result.Parameters = map[string]float64{"seasonal_periods": float64(p.SeasonLength)}
		if d.Fallback {
			result.MethodUsed = MethodLinearTrendFallback
			result.Fallback = true
		} else {
			lower, upper := d.Lower, d.Upper
			result.LowerBound = &lower
			result.UpperBound = &upper
			result.Parameters["seasonal_index"] = d.SeasonalIndex
		}
	default:
		return ForecastResult{}, fmt.Errorf("%w: %q", ErrUnknownMethod, method)
	}

	result.PointForecast = math.Max(0, value)
	return result, nil
}

// ForecastHorizon produces one result per period for periods 1..horizon.
// Only the linear trend projects further per step; the other methods repeat
// their next-period estimate.
func ForecastHorizon(series []float64, method Method, params Params, horizon int) ([]ForecastResult, error) {
	if horizon < 1 {
		return nil, fmt.Errorf("%w: horizon must be at least 1, got %d", ErrInvalidParameter, horizon)
	}

	results := make([]ForecastResult, 0, horizon)
	for step := 1; step <= horizon; step++ {
		p := params
		p.PeriodsAhead = step
		r, err := Forecast(series, method, p)
		if err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, nil
}

// MovingAverage returns the mean of the last window points, or of every point
// when fewer are available.
func MovingAverage(series []float64, window int) float64 {
	if len(series) == 0 {
		return 0
	}
	if window < 1 || len(series) < window {
		return Mean(series)
	}
	return Mean(series[len(series)-window:])
}

// ExponentialSmoothing seeds the level with the first observation and returns
// the final smoothed level.
func ExponentialSmoothing(series []float64, alpha float64) float64 {
	if len(series) == 0 {
		return 0
	}
	level := series[0]
	for _, x := range series[1:] {
		level = alpha*x + (1-alpha)*level
	}
	return level
}

// LinearTrend fits an ordinary least-squares line against the period index and
// projects it periodsAhead beyond the last observation. The result is floored at 0.
func LinearTrend(series []float64, periodsAhead int) float64 {
	n := len(series)
	if n == 0 {
		return 0
	}
	if n < 2 {
		return series[0]
	}

	slope, intercept := leastSquares(series)
	next := float64(n + periodsAhead - 1)
	return math.Max(0, slope*next+intercept)
}

func leastSquares(series []float64) (slope, intercept float64) {
	n := float64(len(series))
	var sumX, sumY, sumXY, sumX2 float64
	for i, y := range series {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumX2 += x * x
	}

	denom := n*sumX2 - sumX*sumX
	if denom == 0 {
		return 0, sumY / n
	}
	slope = (n*sumXY - sumX*sumY) / denom
	intercept = (sumY - slope*sumX) / n
	return slope, intercept
}

// SeasonalNaive repeats the value one season back, or the overall mean when the
// history is shorter than a season.
func SeasonalNaive(series []float64, seasonLength int) float64 {
	if seasonLength < 1 || len(series) < seasonLength {
		return Mean(series)
	}
	return series[len(series)-seasonLength]
}

// Decomposition is the output of SeasonalDecompose.
type Decomposition struct {
	Forecast      float64
	Lower         float64
	Upper         float64
	SeasonalIndex float64
	Indices       []float64
	Fallback      bool
}

// SeasonalDecompose applies a multiplicative seasonal adjustment around a linear
// trend. With fewer than two full seasons it falls back to LinearTrend and
// reports no interval.
func SeasonalDecompose(series []float64, seasonalPeriods int) Decomposition {
	n := len(series)
	if seasonalPeriods < 1 || n < 2*seasonalPeriods {
		return Decomposition{Forecast: LinearTrend(series, 1), Fallback: true}
	}

	indices := seasonalIndices(series, seasonalPeriods)

	deseasonalized := make([]float64, n)
	for i, v := range series {
		idx := indices[i%seasonalPeriods]
		if idx > 0 {
			deseasonalized[i] = v / idx
		} else {
			deseasonalized[i] = v
		}
	}

	nextIndex := indices[n%seasonalPeriods]
	forecast := LinearTrend(deseasonalized, 1) * nextIndex

	var errs []float64
	limit := n - 1
	if limit > maxErrorHistory {
		limit = maxErrorHistory
	}
	for i := 0; i < limit; i++ {
		if i >= n-seasonalPeriods {
			break
		}
		actual := series[n-1-i]
		predicted := series[n-1-i-seasonalPeriods] * indices[(n-1-i)%seasonalPeriods]
		errs = append(errs, math.Abs(actual-predicted))
	}

	d := Decomposition{
		Forecast:      math.Max(0, forecast),
		SeasonalIndex: nextIndex,
		Indices:       indices,
	}
	if len(errs) > 0 {
		spread := confidenceZ * PopulationStdDev(errs)
		d.Lower = math.Max(0, forecast-spread)
		d.Upper = forecast + spread
	} else {
		d.Lower = forecast * 0.8
		d.Upper = forecast * 1.2
	}
	return d
}

// seasonalIndices returns, per phase, the phase average divided by the overall
// average. All indices are 1 when the overall average is not positive.
func seasonalIndices(series []float64, seasonalPeriods int) []float64 {
	overall := Mean(series)
	indices := make([]float64, seasonalPeriods)
	for phase := 0; phase < seasonalPeriods; phase++ {
		if overall <= 0 {
			indices[phase] = 1
			continue
		}
		var phaseValues []float64
		for i := phase; i < len(series); i += seasonalPeriods {
			phaseValues = append(phaseValues, series[i])
		}
		avg := overall
		if len(phaseValues) > 0 {
			avg = Mean(phaseValues)
		}
		indices[phase] = avg / overall
	}
	return indices
}
