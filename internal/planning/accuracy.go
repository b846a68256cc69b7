package planning

import (
	"math"
	"sort"
)

// ForecastActual pairs a stored forecast with the demand that materialised.
type ForecastActual struct {
	ForecastID int64   `json:"forecast_id"`
	ProductID  int64   `json:"product_id"`
	Method     string  `json:"method"`
	Forecast   float64 `json:"forecast_quantity"`
	Actual     float64 `json:"actual_quantity"`
}

type AccuracyDetail struct {
	ForecastActual
	Error                   float64  `json:"error"`
	AbsoluteError           float64  `json:"absolute_error"`
	PercentageError         *float64 `json:"percentage_error"`
	AbsolutePercentageError *float64 `json:"absolute_percentage_error"`
	AccuracyPercentage      float64  `json:"accuracy_percentage"`
	Grade                   string   `json:"accuracy_grade"`
}

type MethodAccuracy struct {
	Method        string   `json:"method"`
	ForecastCount int      `json:"forecast_count"`
	MAE           float64  `json:"mae"`
	MAPE          *float64 `json:"mape"`
}

// AccuracyReport summarises forecast error. MAPE ignores pairs whose actual is 0.
type AccuracyReport struct {
	Evaluated int              `json:"evaluated_forecasts"`
	MAE       *float64         `json:"mae"`
	MSE       *float64         `json:"mse"`
	RMSE      *float64         `json:"rmse"`
	MAPE      *float64         `json:"mape"`
	ByMethod  []MethodAccuracy `json:"accuracy_by_method"`
	Details   []AccuracyDetail `json:"detailed_results"`
}

// EvaluateAccuracy computes error metrics over forecast/actual pairs. Metrics
// are nil when there is nothing to evaluate.
func EvaluateAccuracy(pairs []ForecastActual) AccuracyReport {
	report := AccuracyReport{Evaluated: len(pairs), Details: make([]AccuracyDetail, 0, len(pairs))}
	if len(pairs) == 0 {
		return report
	}

	type methodTotals struct {
		count, mapeCount int
		maeSum, mapeSum  float64
	}
	totals := make(map[string]*methodTotals)

	var absSum, sqSum, apeSum float64
	var apeCount int
	for _, p := range pairs {
		e := p.Forecast - p.Actual
		abs := math.Abs(e)
		absSum += abs
		sqSum += e * e

		detail := AccuracyDetail{
			ForecastActual:     p,
			Error:              RoundTo(e, 2),
			AbsoluteError:      RoundTo(abs, 2),
			AccuracyPercentage: AccuracyPercentage(p.Forecast, p.Actual),
		}
		detail.Grade = AccuracyGrade(detail.AccuracyPercentage)

		mt, ok := totals[p.Method]
		if !ok {
			mt = &methodTotals{}
			totals[p.Method] = mt
		}
		mt.count++
		mt.maeSum += abs

		if p.Actual > 0 {
			pct := e / p.Actual * 100
			ape := math.Abs(pct)
			pe, ae := RoundTo(pct, 2), RoundTo(ape, 2)
			detail.PercentageError = &pe
			detail.AbsolutePercentageError = &ae

			apeSum += ape
			apeCount++
			mt.mapeSum += ape
			mt.mapeCount++
		}
		report.Details = append(report.Details, detail)
	}

	n := float64(len(pairs))
	mae := RoundTo(absSum/n, 2)
	mse := RoundTo(sqSum/n, 2)
	rmse := RoundTo(math.Sqrt(sqSum/n), 2)
	report.MAE, report.MSE, report.RMSE = &mae, &mse, &rmse
	if apeCount > 0 {
		mape := RoundTo(apeSum/float64(apeCount), 2)
		report.MAPE = &mape
	}

	methods := make([]string, 0, len(totals))
	for m := range totals {
		methods = append(methods, m)
	}
	sort.Strings(methods)
	for _, m := range methods {
		mt := totals[m]
		ma := MethodAccuracy{
			Method:        m,
			ForecastCount: mt.count,
			MAE:           RoundTo(mt.maeSum/float64(mt.count), 2),
		}
		if mt.mapeCount > 0 {
			v := RoundTo(mt.mapeSum/float64(mt.mapeCount), 2)
			ma.MAPE = &v
		}
		report.ByMethod = append(report.ByMethod, ma)
	}
	return report
}

// AccuracyPercentage is 100 minus the absolute percentage error, floored at 0.
// A zero actual scores 100 only when the forecast is also zero.
func AccuracyPercentage(forecast, actual float64) float64 {
	if actual == 0 {
		if forecast == 0 {
			return 100
		}
		return 0
	}
	pct := math.Abs((forecast - actual) / actual * 100)
	return RoundTo(math.Max(0, 100-pct), 2)
}

// AccuracyGrade buckets an accuracy percentage into a letter grade.
func AccuracyGrade(pct float64) string {
	switch {
	case pct >= 95:
		return "A+"
	case pct >= 90:
		return "A"
	case pct >= 85:
		return "B"
	case pct >= 75:
		return "C"
	default:
		return "D"
	}
}

// IsAccurate reports whether an accuracy percentage meets the 85% bar.
func IsAccurate(pct float64) bool {
	return pct >= 85
}
