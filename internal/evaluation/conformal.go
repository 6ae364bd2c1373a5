package evaluation

import (
	"math"
	"sort"

	"MarketCast/internal/domain/models"
)

// Calibrator turns realized-vs-predicted residual history into a
// calibrated multiplicative interval half-width at a target coverage
// level. With too little history it returns a disabled result carrying
// a conservative fallback quantile instead of an unreliable empirical
// one.
type Calibrator struct {
	// MinSamples gates activation; below it the empirical quantile is
	// not trusted.
	MinSamples int
	// MaxAbsLogResidual clips each residual and bounds the final
	// quantile, limiting outlier influence.
	MaxAbsLogResidual float64
	// FallbackQuantile is the half-width reported while disabled.
	FallbackQuantile float64
}

// NewCalibrator applies the default gates.
func NewCalibrator() Calibrator {
	return Calibrator{
		MinSamples:        30,
		MaxAbsLogResidual: 0.35,
		FallbackQuantile:  0.10,
	}
}

const methodAbsLogResidual = "abs_log_residual_quantile"

// Fit calibrates from prediction history. Pairs with non-positive
// prices are discarded. Target coverage is clamped to [0.50, 0.99].
// The returned record is immutable; each call produces a fresh one.
func (c Calibrator) Fit(history []models.PredictionRecord, targetCoverage float64) models.ConformalResult {
	if targetCoverage < 0.50 {
		targetCoverage = 0.50
	}
	if targetCoverage > 0.99 {
		targetCoverage = 0.99
	}

	residuals := make([]float64, 0, len(history))
	for _, rec := range history {
		if rec.Predicted <= 0 || rec.Realized <= 0 {
			continue
		}
		r := math.Log(rec.Realized / rec.Predicted)
		if r > c.MaxAbsLogResidual {
			r = c.MaxAbsLogResidual
		}
		if r < -c.MaxAbsLogResidual {
			r = -c.MaxAbsLogResidual
		}
		residuals = append(residuals, math.Abs(r))
	}

	if len(residuals) < c.MinSamples {
		return models.ConformalResult{
			Enabled:        false,
			Method:         methodAbsLogResidual,
			Samples:        len(residuals),
			TargetCoverage: targetCoverage,
			Quantile:       c.FallbackQuantile,
		}
	}

	sort.Float64s(residuals)
	q := empiricalQuantile(residuals, targetCoverage)
	if q > c.MaxAbsLogResidual {
		q = c.MaxAbsLogResidual
	}
	return models.ConformalResult{
		Enabled:        true,
		Method:         methodAbsLogResidual,
		Samples:        len(residuals),
		TargetCoverage: targetCoverage,
		Quantile:       q,
	}
}

// Bounds applies a calibrated half-width to a point price forecast.
// The interval is multiplicative, so it scales with price level and
// stays positive.
func Bounds(price, quantile float64) (lower, upper float64) {
	return price * math.Exp(-quantile), price * math.Exp(quantile)
}

// empiricalQuantile interpolates linearly between order statistics of
// a sorted sample.
func empiricalQuantile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n == 1 {
		return sorted[0]
	}
	pos := p * float64(n-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if hi >= n {
		hi = n - 1
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}
