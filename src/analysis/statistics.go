package analysis

import "math"

// -----------------------------------------------------------------------------

// CalculateMeanStd computes mean and standard deviation.
func CalculateMeanStd(data []float64) (float64, float64) {
	if len(data) == 0 {
		return 0, 0
	}

	sum := 0.0
	for _, v := range data {
		sum += v
	}
	mean := sum / float64(len(data))

	if len(data) == 1 {
		return mean, 0
	}

	// Population std (N denominator)
	varianceSum := 0.0
	for _, v := range data {
		varianceSum += (v - mean) * (v - mean)
	}
	std := math.Sqrt(varianceSum / float64(len(data)))
	return mean, std
}

// -----------------------------------------------------------------------------

// PeriodReturns converts a value series into period-over-period returns.
// A zero previous value yields a zero return for that period.
func PeriodReturns(values []float64) []float64 {
	if len(values) < 2 {
		return []float64{}
	}

	returns := make([]float64, 0, len(values)-1)
	for i := 1; i < len(values); i++ {
		prev := values[i-1]
		if prev == 0 {
			returns = append(returns, 0)
			continue
		}
		returns = append(returns, (values[i]-prev)/prev)
	}
	return returns
}

// -----------------------------------------------------------------------------

// RollingSharpe computes the Sharpe ratio of a NAV series over its window
// (zero risk-free rate, no annualization). Returns 0 when the window is too
// short or the returns have no variance.
func RollingSharpe(navs []float64) float64 {
	returns := PeriodReturns(navs)
	if len(returns) < 2 {
		return 0
	}

	mean, std := CalculateMeanStd(returns)
	if std == 0 {
		return 0
	}

	result := mean / std
	if math.IsNaN(result) || math.IsInf(result, 0) {
		return 0
	}
	return result
}

// -----------------------------------------------------------------------------

// MaxDrawdown computes the largest peak-to-trough decline of a value series
// as a fraction of the peak. Always >= 0.
func MaxDrawdown(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}

	peak := values[0]
	maxDD := 0.0

	for _, v := range values {
		if v > peak {
			peak = v
		}
		if peak > 0 {
			dd := (peak - v) / peak
			if dd > maxDD {
				maxDD = dd
			}
		}
	}
	return maxDD
}
