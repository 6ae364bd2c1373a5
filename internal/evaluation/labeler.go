package evaluation

import (
	"math"

	"MarketCast/internal/domain/models"
)

// Labeler converts forward returns into direction labels using
// thresholds that scale with forecast horizon and volatility. The
// volatility source is pluggable: a named column on the frame when
// present, else a rolling return standard deviation fallback.
type Labeler struct {
	// Multiplier scales the volatility estimate into the neutral band
	// half-width.
	Multiplier float64
	// VolColumn names the volatility column to prefer. Empty means
	// always use the fallback estimator.
	VolColumn string
	// VolWindow is the rolling window of the fallback estimator.
	VolWindow int
}

// NewLabeler applies defaults matching a daily-bar setup.
func NewLabeler(multiplier float64, volColumn string) Labeler {
	if multiplier <= 0 {
		multiplier = 1.0
	}
	return Labeler{Multiplier: multiplier, VolColumn: volColumn, VolWindow: 20}
}

// LabelSet is the labeler output: one label per retained row plus the
// thresholds that produced them. Labels are immutable after creation.
type LabelSet struct {
	Labels        []models.Label
	Returns       []float64 // forward return stored at its origin row
	BearThreshold float64   // negative
	BullThreshold float64   // positive
}

// Label computes direction labels for the frame at the given horizon.
// The last horizon rows have undefined forward returns and are dropped
// entirely, never labeled neutral: the output always has
// frame.Len()-horizon rows. Thresholds derive from data inside the
// frame only, so passing a train slice freezes them against the test
// period.
func (l Labeler) Label(f *models.Frame, horizon int) (*LabelSet, error) {
	bear, bull, err := l.Thresholds(f, horizon)
	if err != nil {
		return nil, err
	}
	return l.LabelWithThresholds(f, horizon, bear, bull)
}

// LabelWithThresholds labels the frame with externally fixed
// thresholds. The evaluator uses this on test slices so the decision
// boundary never sees test-period data.
func (l Labeler) LabelWithThresholds(f *models.Frame, horizon int, bear, bull float64) (*LabelSet, error) {
	if horizon <= 0 {
		return nil, configErrorf("horizon must be positive: %d", horizon)
	}
	closes, err := f.Col(models.ColClose)
	if err != nil {
		return nil, configErrorf("labeler requires close column: %v", err)
	}

	n := len(closes) - horizon
	if n < 0 {
		n = 0
	}
	labels := make([]models.Label, n)
	rets := make([]float64, n)
	for i := 0; i < n; i++ {
		r := 0.0
		if closes[i] != 0 {
			r = closes[i+horizon]/closes[i] - 1
		}
		rets[i] = r
		switch {
		case r < bear:
			labels[i] = models.Bearish
		case r > bull:
			labels[i] = models.Bullish
		default:
			labels[i] = models.Neutral
		}
	}
	return &LabelSet{Labels: labels, Returns: rets, BearThreshold: bear, BullThreshold: bull}, nil
}

// Thresholds computes the symmetric neutral band for a horizon from
// data visible in the frame. The band scales with sqrt(horizon):
// doubling the horizon widens it by sqrt(2), matching the expected
// growth of return variance under a random walk.
func (l Labeler) Thresholds(f *models.Frame, horizon int) (bear, bull float64, err error) {
	if horizon <= 0 {
		return 0, 0, configErrorf("horizon must be positive: %d", horizon)
	}
	vol, err := l.volatilityEstimate(f)
	if err != nil {
		return 0, 0, err
	}
	width := l.Multiplier * vol * math.Sqrt(float64(horizon))
	return -width, width, nil
}

// volatilityEstimate prefers the configured volatility column and
// falls back to the rolling standard deviation of one-bar returns.
func (l Labeler) volatilityEstimate(f *models.Frame) (float64, error) {
	if l.VolColumn != "" && f.HasCol(l.VolColumn) {
		vs, _ := f.Col(l.VolColumn)
		// Mean of the column over the slice; skips unset leading rows.
		sum, cnt := 0.0, 0
		for _, v := range vs {
			if v > 0 && !math.IsNaN(v) {
				sum += v
				cnt++
			}
		}
		if cnt > 0 {
			return sum / float64(cnt), nil
		}
	}

	closes, err := f.Col(models.ColClose)
	if err != nil {
		return 0, configErrorf("labeler requires close column: %v", err)
	}
	if len(closes) < 3 {
		return 0, nil
	}
	window := l.VolWindow
	if window <= 1 || window > len(closes)-1 {
		window = len(closes) - 1
	}
	rets := make([]float64, 0, window)
	for i := len(closes) - window; i < len(closes); i++ {
		if closes[i-1] > 0 {
			rets = append(rets, closes[i]/closes[i-1]-1)
		}
	}
	return stddev(rets), nil
}

func stddev(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	mean := 0.0
	for _, x := range xs {
		mean += x
	}
	mean /= float64(len(xs))
	variance := 0.0
	for _, x := range xs {
		variance += (x - mean) * (x - mean)
	}
	variance /= float64(len(xs) - 1)
	return math.Sqrt(variance)
}
