package evaluation

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"MarketCast/internal/domain/models"
)

func TestCalibratorUnderflowGate(t *testing.T) {
	c := NewCalibrator()
	history := make([]models.PredictionRecord, 0, c.MinSamples-1)
	for i := 0; i < c.MinSamples-1; i++ {
		history = append(history, models.PredictionRecord{Predicted: 100, Realized: 101})
	}

	res := c.Fit(history, 0.9)
	if res.Enabled {
		t.Fatalf("expected disabled result below min samples")
	}
	if res.Quantile != c.FallbackQuantile {
		t.Fatalf("disabled result must carry fallback quantile, got %v", res.Quantile)
	}
	if res.Samples != c.MinSamples-1 {
		t.Fatalf("sample count = %d", res.Samples)
	}
}

func TestCalibratorSkipsInvalidPairs(t *testing.T) {
	c := NewCalibrator()
	history := []models.PredictionRecord{
		{Predicted: 0, Realized: 100},
		{Predicted: 100, Realized: -5},
		{Predicted: 100, Realized: 102},
	}
	res := c.Fit(history, 0.9)
	if res.Samples != 1 {
		t.Fatalf("expected 1 valid residual, got %d", res.Samples)
	}
}

func TestCalibratorCoverageClamped(t *testing.T) {
	c := NewCalibrator()
	res := c.Fit(nil, 1.5)
	if res.TargetCoverage != 0.99 {
		t.Fatalf("coverage not clamped high: %v", res.TargetCoverage)
	}
	res = c.Fit(nil, 0.1)
	if res.TargetCoverage != 0.50 {
		t.Fatalf("coverage not clamped low: %v", res.TargetCoverage)
	}
}

func TestCalibratorCoverageSanity(t *testing.T) {
	// Synthetic log-normal noise: realized = predicted * exp(eps),
	// eps ~ N(0, sigma). Calibrating at 90% should bound roughly 90%
	// of a held-out sample.
	const sigma = 0.02
	rng := rand.New(rand.NewSource(42))
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	gen := func(n int) []models.PredictionRecord {
		out := make([]models.PredictionRecord, n)
		for i := range out {
			price := 100 + rng.Float64()*50
			out[i] = models.PredictionRecord{
				Timestamp: t0.Add(time.Duration(i) * time.Hour),
				Predicted: price,
				Realized:  price * math.Exp(rng.NormFloat64()*sigma),
			}
		}
		return out
	}

	c := NewCalibrator()
	res := c.Fit(gen(1000), 0.9)
	if !res.Enabled {
		t.Fatalf("expected enabled result with 1000 residuals")
	}

	holdout := gen(1000)
	covered := 0
	for _, rec := range holdout {
		lower, upper := Bounds(rec.Predicted, res.Quantile)
		if rec.Realized >= lower && rec.Realized <= upper {
			covered++
		}
	}
	got := float64(covered) / float64(len(holdout))
	if math.Abs(got-0.9) > 0.03 {
		t.Fatalf("coverage %v outside 0.90 +/- 0.03", got)
	}
}

func TestBoundsMultiplicative(t *testing.T) {
	lower, upper := Bounds(200, 0.1)
	if lower <= 0 || upper <= lower {
		t.Fatalf("degenerate bounds (%v, %v)", lower, upper)
	}
	// Symmetric in log space around the point forecast.
	if math.Abs(math.Log(200/lower)-math.Log(upper/200)) > 1e-12 {
		t.Fatalf("bounds not log-symmetric: (%v, %v)", lower, upper)
	}
	// Doubling the price doubles both bounds.
	l2, u2 := Bounds(400, 0.1)
	if math.Abs(l2-2*lower) > 1e-9 || math.Abs(u2-2*upper) > 1e-9 {
		t.Fatalf("bounds do not scale with price")
	}
}

func TestCalibratorQuantileClippedToMax(t *testing.T) {
	c := NewCalibrator()
	history := make([]models.PredictionRecord, 100)
	for i := range history {
		// Huge residuals, all beyond the clip bound.
		history[i] = models.PredictionRecord{Predicted: 100, Realized: 300}
	}
	res := c.Fit(history, 0.9)
	if res.Quantile > c.MaxAbsLogResidual {
		t.Fatalf("quantile %v exceeds clip bound %v", res.Quantile, c.MaxAbsLogResidual)
	}
}
