package features

import (
	"math"
	"testing"
	"time"

	"MarketCast/internal/domain/models"
	"MarketCast/internal/evaluation"
)

func candleFrame(closes []float64) *models.Frame {
	candles := make([]models.Candle, len(closes))
	t0 := time.Date(2022, 6, 1, 0, 0, 0, 0, time.UTC)
	for i, c := range closes {
		candles[i] = models.Candle{
			Bucket: t0.AddDate(0, 0, i),
			Symbol: "TEST",
			Open:   c,
			High:   c * 1.02,
			Low:    c * 0.98,
			Close:  c,
			Volume: 1000 + float64(i%7)*50,
		}
	}
	return models.FrameFromCandles(candles)
}

func TestExtractorPassesLookaheadGuard(t *testing.T) {
	e := NewExtractor()
	if err := evaluation.RunSyntheticGuard(e.Compute); err != nil {
		t.Fatalf("extractor failed the lookahead guard: %v", err)
	}
}

func TestExtractorColumnNamesAreLagged(t *testing.T) {
	e := NewExtractor()
	if err := evaluation.CheckColumnNames(e.FeatureColumns()); err != nil {
		t.Fatalf("feature columns rejected: %v", err)
	}
}

func TestExtractorShapesAndFiniteness(t *testing.T) {
	closes := make([]float64, 100)
	for i := range closes {
		closes[i] = 50 + 10*math.Sin(float64(i)/5)
	}
	f := candleFrame(closes)

	e := NewExtractor()
	out, err := e.Compute(f)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if out.Len() != f.Len() {
		t.Fatalf("feature frame has %d rows, want %d", out.Len(), f.Len())
	}
	for _, name := range e.FeatureColumns() {
		vs, err := out.Col(name)
		if err != nil {
			t.Fatalf("missing column %s", name)
		}
		for i, v := range vs {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				t.Fatalf("%s[%d] is not finite: %v", name, i, v)
			}
		}
	}
}

func TestRollingStdMatchesFlatSeries(t *testing.T) {
	closes := make([]float64, 50)
	for i := range closes {
		closes[i] = 100
	}
	stds := RollingStd(closes, 20)
	for i, v := range stds {
		if v != 0 {
			t.Fatalf("flat series has nonzero std at %d: %v", i, v)
		}
	}
}

func TestComputeLogReturns(t *testing.T) {
	candles := []models.Candle{
		{Close: 100}, {Close: 110}, {Close: 99},
	}
	rets := ComputeLogReturns(candles)
	if len(rets) != 2 {
		t.Fatalf("expected 2 returns, got %d", len(rets))
	}
	if math.Abs(rets[0]-math.Log(1.1)) > 1e-12 {
		t.Fatalf("unexpected first return %v", rets[0])
	}
}
