// Package stats provides the numeric primitives shared by pattern scoring,
// correlation and regime analysis. All functions are pure and resolve
// degenerate inputs (empty, zero variance) to 0.
package stats

import "math"

// DefaultOutlierStdDevs is the distance from the mean, in standard
// deviations, beyond which a value is treated as an outlier.
const DefaultOutlierStdDevs = 2.5

// Mean calculates the arithmetic mean.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// StdDev calculates the population standard deviation (n denominator).
func StdDev(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	mean := Mean(values)
	sumSq := 0.0
	for _, v := range values {
		diff := v - mean
		sumSq += diff * diff
	}
	return math.Sqrt(sumSq / float64(n))
}

// Sharpe returns mean(returns) / stdev(returns) with a 0% reference rate.
// Returns 0 for fewer than 2 samples or zero deviation.
func Sharpe(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	sd := StdDev(returns)
	if sd == 0 {
		return 0
	}
	return Mean(returns) / sd
}

// Sortino returns mean(returns) / downside deviation, where the downside
// deviation is sqrt(sum of squared negative returns / n).
// Returns 0 for fewer than 2 samples or no downside.
func Sortino(returns []float64) float64 {
	n := len(returns)
	if n < 2 {
		return 0
	}
	downside := 0.0
	for _, r := range returns {
		if r < 0 {
			downside += r * r
		}
	}
	dd := math.Sqrt(downside / float64(n))
	if dd == 0 {
		return 0
	}
	return Mean(returns) / dd
}

// MaxDrawdown returns the largest running-peak minus current value over the
// sequence, in the order given. The first value seeds the peak.
func MaxDrawdown(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	peak := values[0]
	maxDD := 0.0
	for _, v := range values {
		if v > peak {
			peak = v
		}
		if dd := peak - v; dd > maxDD {
			maxDD = dd
		}
	}
	return maxDD
}

// Confidence blends sample size, win rate and profit factor into [0,1].
// Each term is clamped to [0,1] before weighting.
//
//	0.4*min(1, trades/30) + 0.3*min(1, max(0, winRate-0.35)/0.35) + 0.3*min(1, profitFactor/1.5)
func Confidence(trades int, winRate, profitFactor float64) float64 {
	sampleScore := math.Min(1, float64(trades)/30)
	wrScore := math.Min(1, math.Max(0, winRate-0.35)/0.35)
	pfScore := math.Min(1, profitFactor/1.5)
	return sampleScore*0.4 + wrScore*0.3 + pfScore*0.3
}

// IsOutlier reports whether value lies more than k standard deviations from
// the mean of values. Nothing is an outlier of a zero-variance sequence.
func IsOutlier(value float64, values []float64, k float64) bool {
	sd := StdDev(values)
	if sd == 0 {
		return false
	}
	return math.Abs(value-Mean(values)) > k*sd
}

// RemoveOutliers returns the values that are not outliers relative to the
// full input, preserving order. The input slice is not modified.
func RemoveOutliers(values []float64, k float64) []float64 {
	if len(values) == 0 {
		return nil
	}
	mean := Mean(values)
	sd := StdDev(values)
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if sd > 0 && math.Abs(v-mean) > k*sd {
			continue
		}
		out = append(out, v)
	}
	return out
}

// Pearson returns the correlation of x and y aligned by position up to the
// shorter length. ok is false when fewer than 2 aligned samples exist or
// either side has zero variance over the aligned window.
func Pearson(x, y []float64) (r float64, ok bool) {
	n := len(x)
	if len(y) < n {
		n = len(y)
	}
	if n < 2 {
		return 0, false
	}
	mx := Mean(x[:n])
	my := Mean(y[:n])

	var cov, vx, vy float64
	for i := 0; i < n; i++ {
		dx := x[i] - mx
		dy := y[i] - my
		cov += dx * dy
		vx += dx * dx
		vy += dy * dy
	}
	if vx == 0 || vy == 0 {
		return 0, false
	}
	return cov / math.Sqrt(vx*vy), true
}

// WinRateLowerBound returns the one-sided normal-approximation lower bound of
// a win rate at the given confidence level, clamped to [0,1].
// Returns 0 when n is 0 or level is outside (0,1).
func WinRateLowerBound(wins, n int, level float64) float64 {
	if n <= 0 || level <= 0 || level >= 1 {
		return 0
	}
	p := float64(wins) / float64(n)
	z := math.Sqrt2 * math.Erfinv(2*level-1)
	lb := p - z*math.Sqrt(p*(1-p)/float64(n))
	return math.Max(0, math.Min(1, lb))
}
