package usecase

import (
	"context"
	"math"
	"testing"
	"time"

	"MarketCast/internal/domain/models"
	domrepo "MarketCast/internal/domain/repository"
	"MarketCast/pkg/config"
)

type stubCandleStore struct {
	candles []models.Candle
}

func (s *stubCandleStore) GetCandles(ctx context.Context, symbol string, from, to time.Time, tf domrepo.Timeframe) ([]models.Candle, error) {
	return s.candles, nil
}

func (s *stubCandleStore) GetLatestNCandles(ctx context.Context, symbol string, n int, tf domrepo.Timeframe) ([]models.Candle, error) {
	if n >= len(s.candles) {
		return s.candles, nil
	}
	return s.candles[len(s.candles)-n:], nil
}

type stubResultStore struct {
	storedSymbol  string
	storedModel   string
	storedHorizon int
	stored        *models.EvaluationSummary
}

func (s *stubResultStore) StoreSummary(ctx context.Context, symbol, model string, horizon int, sum *models.EvaluationSummary) error {
	s.storedSymbol = symbol
	s.storedModel = model
	s.storedHorizon = horizon
	s.stored = sum
	return nil
}

func (s *stubResultStore) LatestSummary(ctx context.Context, symbol, model string, horizon int) (*models.EvaluationSummary, error) {
	return s.stored, nil
}

type noopMetrics struct{}

func (noopMetrics) RecordBarIngested(backend, symbol string) {}

func (noopMetrics) RecordWindows(symbol, model string, evaluated, skipped int) {}

func (noopMetrics) RecordError(kind string) {}

func (noopMetrics) RecordForecast(symbol, horizon string, price float64) {}

func (noopMetrics) RecordLatency(op string, seconds float64) {}

func syntheticCandles(n int) []models.Candle {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]models.Candle, n)
	for i := 0; i < n; i++ {
		px := 100.0 * math.Exp(0.0005*float64(i)) * (1 + 0.02*math.Sin(float64(i)/3))
		out[i] = models.Candle{
			Bucket: base.AddDate(0, 0, i),
			Symbol: "BTCUSDT",
			Open:   px * 0.999,
			High:   px * 1.005,
			Low:    px * 0.995,
			Close:  px,
			Volume: 1000 + 10*float64(i%7),
		}
	}
	return out
}

func evalConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Evaluation.TrainSize = 60
	cfg.Evaluation.TestSize = 20
	cfg.Evaluation.StepSize = 20
	cfg.Evaluation.MinWindows = 2
	cfg.Evaluation.MinTrainSize = 30
	cfg.Evaluation.MaxSkipRatio = 0.5
	cfg.Labeling.Multiplier = 0.5
	return cfg
}

func TestRunEvaluationProducesAndPersistsSummary(t *testing.T) {
	store := &stubCandleStore{candles: syntheticCandles(300)}
	results := &stubResultStore{}
	uc := NewEvaluationUseCase(store, results, noopMetrics{}, evalConfig())

	req := models.EvaluateRequest{Symbol: "BTCUSDT", Horizon: 1, N: 300, TF: "1d", Model: "naive"}
	summary, err := uc.RunEvaluation(context.Background(), req)
	if err != nil {
		t.Fatalf("RunEvaluation: %v", err)
	}
	if summary == nil {
		t.Fatal("expected a summary for 300 rows")
	}
	if summary.Symbol != "BTCUSDT" {
		t.Fatalf("symbol = %q, want BTCUSDT", summary.Symbol)
	}
	if summary.WindowCount < 2 {
		t.Fatalf("window count = %d, want >= 2", summary.WindowCount)
	}
	if summary.PooledSamples == 0 {
		t.Fatal("pooled samples is zero")
	}
	if summary.Windows != nil {
		t.Fatal("windows should be stripped without detail flag")
	}
	if results.stored == nil {
		t.Fatal("summary was not persisted")
	}
	if results.storedSymbol != "BTCUSDT" || results.storedModel != "naive" || results.storedHorizon != 1 {
		t.Fatalf("persisted key = %s/%s/%d", results.storedSymbol, results.storedModel, results.storedHorizon)
	}
}

func TestRunEvaluationDetailKeepsWindows(t *testing.T) {
	store := &stubCandleStore{candles: syntheticCandles(300)}
	uc := NewEvaluationUseCase(store, &stubResultStore{}, noopMetrics{}, evalConfig())

	req := models.EvaluateRequest{Symbol: "BTCUSDT", Horizon: 1, N: 300, TF: "1d", Model: "naive", Detail: true}
	summary, err := uc.RunEvaluation(context.Background(), req)
	if err != nil {
		t.Fatalf("RunEvaluation: %v", err)
	}
	if summary == nil || len(summary.Windows) == 0 {
		t.Fatal("detail request should keep per-window metrics")
	}
	if len(summary.Windows) != summary.WindowCount {
		t.Fatalf("windows = %d, count = %d", len(summary.Windows), summary.WindowCount)
	}
}

func TestRunEvaluationThinHistoryReturnsNoResult(t *testing.T) {
	store := &stubCandleStore{candles: syntheticCandles(50)}
	results := &stubResultStore{}
	uc := NewEvaluationUseCase(store, results, noopMetrics{}, evalConfig())

	req := models.EvaluateRequest{Symbol: "BTCUSDT", Horizon: 1, N: 300, TF: "1d", Model: "naive"}
	summary, err := uc.RunEvaluation(context.Background(), req)
	if err != nil {
		t.Fatalf("RunEvaluation: %v", err)
	}
	if summary != nil {
		t.Fatalf("expected no result for 50 rows, got %+v", summary)
	}
	if results.stored != nil {
		t.Fatal("nothing should be persisted for a no-result run")
	}
}

func TestRunEvaluationRejectsUnknownModel(t *testing.T) {
	store := &stubCandleStore{candles: syntheticCandles(300)}
	uc := NewEvaluationUseCase(store, &stubResultStore{}, noopMetrics{}, evalConfig())

	req := models.EvaluateRequest{Symbol: "BTCUSDT", Horizon: 1, N: 300, TF: "1d", Model: "oracle"}
	if _, err := uc.RunEvaluation(context.Background(), req); err == nil {
		t.Fatal("expected error for unknown model")
	}
}
