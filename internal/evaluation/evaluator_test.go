package evaluation

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"MarketCast/internal/domain/models"
	"MarketCast/internal/domain/service"
)

// stubForecaster predicts a fixed label for every row.
type stubForecaster struct {
	fixed     models.Label
	trainErr  error
	trainedOn int
}

func (s *stubForecaster) Train(_ context.Context, x *models.Frame, y []models.Label) error {
	if s.trainErr != nil {
		return s.trainErr
	}
	s.trainedOn = len(y)
	return nil
}

func (s *stubForecaster) Predict(_ context.Context, x *models.Frame) ([]models.Label, error) {
	out := make([]models.Label, x.Len())
	for i := range out {
		out[i] = s.fixed
	}
	return out, nil
}

func evalFrame(n int) *models.Frame {
	f := testFrame(linearCloses(n, 100, 175))
	feats, _ := causalFeatures(f)
	lag, _ := feats.Col("lag_ret_1")
	roll, _ := feats.Col("roll_mean_10")
	f.SetCol("lag_ret_1", lag)
	f.SetCol("roll_mean_10", roll)
	return f
}

func evalConfig() EvaluatorConfig {
	return EvaluatorConfig{
		TrainSize: 100,
		TestSize:  20,
		StepSize:  20,
	}
}

func TestEvaluateRisingSeriesPerfectForecaster(t *testing.T) {
	e := NewEvaluator(evalConfig(), NewLabeler(1.0, ""))
	factory := service.ForecasterFactory(func() service.Forecaster {
		return &stubForecaster{fixed: models.Bullish}
	})

	summary, err := e.Evaluate(context.Background(), evalFrame(300), []string{"lag_ret_1", "roll_mean_10"}, factory, 1)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if summary == nil {
		t.Fatalf("expected a result")
	}
	if summary.WindowCount != 10 {
		t.Fatalf("expected 10 windows, got %d", summary.WindowCount)
	}
	if summary.SkippedWindows != 0 {
		t.Fatalf("expected no skipped windows, got %d", summary.SkippedWindows)
	}
	// A steadily rising series labels bullish everywhere beyond a
	// near-zero threshold, so the constant-bullish forecaster is
	// perfect.
	if summary.Accuracy < 0.999 {
		t.Fatalf("accuracy = %v, want ~1.0", summary.Accuracy)
	}
	if summary.DirectionalAccuracy < 0.999 {
		t.Fatalf("directional accuracy = %v, want ~1.0", summary.DirectionalAccuracy)
	}
	if summary.Trade.WinRate < 0.999 {
		t.Fatalf("win rate = %v, want ~1.0", summary.Trade.WinRate)
	}
	// Last window loses its final row to the horizon boundary.
	if summary.PooledSamples != 199 {
		t.Fatalf("pooled samples = %d, want 199", summary.PooledSamples)
	}
	if len(summary.WindowAccuracy) != 10 {
		t.Fatalf("per-window accuracy list has %d entries", len(summary.WindowAccuracy))
	}
}

func TestEvaluateNoResultOnShortSeries(t *testing.T) {
	e := NewEvaluator(evalConfig(), NewLabeler(1.0, ""))
	factory := service.ForecasterFactory(func() service.Forecaster {
		return &stubForecaster{fixed: models.Bullish}
	})

	summary, err := e.Evaluate(context.Background(), evalFrame(130), []string{"lag_ret_1"}, factory, 1)
	if err != nil {
		t.Fatalf("short series must not be an error, got %v", err)
	}
	if summary != nil {
		t.Fatalf("expected no-result sentinel, got %+v", summary)
	}
}

func TestEvaluateMinTrainSizeGate(t *testing.T) {
	cfg := evalConfig()
	cfg.MinTrainSize = 500
	e := NewEvaluator(cfg, NewLabeler(1.0, ""))
	factory := service.ForecasterFactory(func() service.Forecaster {
		return &stubForecaster{fixed: models.Bullish}
	})

	summary, err := e.Evaluate(context.Background(), evalFrame(300), []string{"lag_ret_1"}, factory, 1)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if summary != nil {
		t.Fatalf("undersized training windows must yield no result")
	}
}

func TestEvaluateSkipsFailingWindow(t *testing.T) {
	calls := 0
	factory := service.ForecasterFactory(func() service.Forecaster {
		calls++
		if calls == 1 {
			return &stubForecaster{fixed: models.Bullish, trainErr: fmt.Errorf("singular matrix")}
		}
		return &stubForecaster{fixed: models.Bullish}
	})

	e := NewEvaluator(evalConfig(), NewLabeler(1.0, ""))
	summary, err := e.Evaluate(context.Background(), evalFrame(300), []string{"lag_ret_1"}, factory, 1)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if summary == nil {
		t.Fatalf("one failed window must not kill the run")
	}
	if summary.SkippedWindows != 1 {
		t.Fatalf("skipped = %d, want 1", summary.SkippedWindows)
	}
	if summary.WindowCount != 10 {
		t.Fatalf("window count = %d, want 10", summary.WindowCount)
	}
}

func TestEvaluateEscalatesSystemicSkips(t *testing.T) {
	factory := service.ForecasterFactory(func() service.Forecaster {
		return &stubForecaster{trainErr: fmt.Errorf("always broken")}
	})

	e := NewEvaluator(evalConfig(), NewLabeler(1.0, ""))
	_, err := e.Evaluate(context.Background(), evalFrame(300), []string{"lag_ret_1"}, factory, 1)
	var sysErr *SystemicSkipError
	if !errors.As(err, &sysErr) {
		t.Fatalf("expected SystemicSkipError, got %v", err)
	}
	if sysErr.Skipped != 10 || sysErr.Total != 10 {
		t.Fatalf("unexpected skip accounting: %+v", sysErr)
	}
}

func TestEvaluateRejectsFutureTaggedColumns(t *testing.T) {
	f := evalFrame(300)
	lag, _ := f.Col("lag_ret_1")
	f.SetCol("close[t]", lag)

	e := NewEvaluator(evalConfig(), NewLabeler(1.0, ""))
	factory := service.ForecasterFactory(func() service.Forecaster {
		return &stubForecaster{fixed: models.Bullish}
	})
	_, err := e.Evaluate(context.Background(), f, []string{"lag_ret_1", "close[t]"}, factory, 1)
	var viol *LookaheadViolation
	if !errors.As(err, &viol) {
		t.Fatalf("expected LookaheadViolation, got %v", err)
	}
}

func TestEvaluateMissingFeatureColumn(t *testing.T) {
	e := NewEvaluator(evalConfig(), NewLabeler(1.0, ""))
	factory := service.ForecasterFactory(func() service.Forecaster {
		return &stubForecaster{fixed: models.Bullish}
	})
	_, err := e.Evaluate(context.Background(), evalFrame(300), []string{"nope"}, factory, 1)
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
}
