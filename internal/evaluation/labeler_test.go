package evaluation

import (
	"errors"
	"math"
	"testing"
	"time"

	"MarketCast/internal/domain/models"
)

func testFrame(closes []float64) *models.Frame {
	n := len(closes)
	times := make([]time.Time, n)
	high := make([]float64, n)
	low := make([]float64, n)
	open := make([]float64, n)
	vol := make([]float64, n)
	t0 := time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := range closes {
		times[i] = t0.AddDate(0, 0, i)
		open[i] = closes[i]
		high[i] = closes[i] * 1.01
		low[i] = closes[i] * 0.99
		vol[i] = 1000
	}
	f := models.NewFrame(times)
	f.SetCol(models.ColOpen, open)
	f.SetCol(models.ColHigh, high)
	f.SetCol(models.ColLow, low)
	f.SetCol(models.ColClose, closes)
	f.SetCol(models.ColVolume, vol)
	return f
}

func linearCloses(n int, from, to float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = from + (to-from)*float64(i)/float64(n-1)
	}
	return out
}

func TestLabelerDropsBoundaryRows(t *testing.T) {
	n, horizon := 120, 5
	f := testFrame(linearCloses(n, 100, 130))
	l := NewLabeler(1.0, "")

	set, err := l.Label(f, horizon)
	if err != nil {
		t.Fatalf("label: %v", err)
	}
	if len(set.Labels) != n-horizon {
		t.Fatalf("expected %d labels, got %d", n-horizon, len(set.Labels))
	}
	// The last retained label sits at index n-horizon-1.
	lastLabeled := f.Times[n-horizon-1]
	if !f.Times[len(set.Labels)-1].Equal(lastLabeled) {
		t.Fatalf("last retained label timestamp mismatch")
	}
}

func TestLabelerThresholdSqrtScaling(t *testing.T) {
	f := testFrame(linearCloses(300, 100, 175))
	f.SetCol("atr", constantCol(300, 0.02))
	l := NewLabeler(1.5, "atr")

	_, bull1, err := l.Thresholds(f, 2)
	if err != nil {
		t.Fatalf("thresholds h=2: %v", err)
	}
	_, bull4, err := l.Thresholds(f, 8)
	if err != nil {
		t.Fatalf("thresholds h=8: %v", err)
	}
	// Quadrupling the horizon must double the band.
	if math.Abs(bull4/bull1-2.0) > 1e-9 {
		t.Fatalf("sqrt scaling violated: ratio = %v", bull4/bull1)
	}

	bear, bull, _ := l.Thresholds(f, 4)
	want := 1.5 * 0.02 * 2.0
	if math.Abs(bull-want) > 1e-12 || math.Abs(bear+want) > 1e-12 {
		t.Fatalf("thresholds = (%v, %v), want symmetric %v", bear, bull, want)
	}
}

func TestLabelerClassification(t *testing.T) {
	closes := []float64{100, 100, 100, 110, 91, 100.05, 100, 100, 100, 100}
	f := testFrame(closes)
	l := NewLabeler(1.0, "")

	set, err := l.LabelWithThresholds(f, 1, -0.05, 0.05)
	if err != nil {
		t.Fatalf("label: %v", err)
	}
	want := []models.Label{
		models.Neutral, // 100 -> 100
		models.Neutral, // 100 -> 100
		models.Bullish, // 100 -> 110
		models.Bearish, // 110 -> 91
		models.Bullish, // 91 -> 100.05
		models.Neutral, // 100.05 -> 100
		models.Neutral,
		models.Neutral,
		models.Neutral,
	}
	if len(set.Labels) != len(want) {
		t.Fatalf("expected %d labels, got %d", len(want), len(set.Labels))
	}
	for i := range want {
		if set.Labels[i] != want[i] {
			t.Fatalf("label %d = %s, want %s", i, set.Labels[i], want[i])
		}
	}
}

func TestLabelerMissingCloseColumn(t *testing.T) {
	f := models.NewFrame([]time.Time{time.Now(), time.Now().Add(time.Hour)})
	f.SetCol("volume", []float64{1, 2})
	l := NewLabeler(1.0, "")

	_, err := l.Label(f, 1)
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigError for missing close, got %v", err)
	}
}

func TestLabelerVolFallback(t *testing.T) {
	// No vol column configured: thresholds come from rolling return
	// stddev and must be positive on a noisy series.
	closes := make([]float64, 80)
	for i := range closes {
		closes[i] = 100 + 3*math.Sin(float64(i))
	}
	l := NewLabeler(1.0, "")
	_, bull, err := l.Thresholds(testFrame(closes), 1)
	if err != nil {
		t.Fatalf("thresholds: %v", err)
	}
	if bull <= 0 {
		t.Fatalf("fallback threshold not positive: %v", bull)
	}
}

func constantCol(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}
