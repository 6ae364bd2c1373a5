package forecast

import (
	"context"
	"testing"
	"time"

	"MarketCast/internal/domain/models"
)

func signalFrame(signal []float64) *models.Frame {
	times := make([]time.Time, len(signal))
	t0 := time.Date(2023, 2, 1, 0, 0, 0, 0, time.UTC)
	for i := range times {
		times[i] = t0.AddDate(0, 0, i)
	}
	f := models.NewFrame(times)
	f.SetCol("mom_5", signal)
	return f
}

func TestNaivePredictsMajorityClass(t *testing.T) {
	y := []models.Label{
		models.Bullish, models.Bullish, models.Bullish,
		models.Bearish, models.Neutral,
	}
	n := NewNaive()
	if err := n.Train(context.Background(), signalFrame(make([]float64, 5)), y); err != nil {
		t.Fatalf("train: %v", err)
	}
	preds, err := n.Predict(context.Background(), signalFrame(make([]float64, 3)))
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	for i, p := range preds {
		if p != models.Bullish {
			t.Fatalf("pred[%d] = %v, want bullish", i, p)
		}
	}
}

func TestNaivePredictBeforeTrain(t *testing.T) {
	if _, err := NewNaive().Predict(context.Background(), signalFrame(nil)); err == nil {
		t.Fatal("expected error predicting before train")
	}
}

func TestMomentumLearnsDeadband(t *testing.T) {
	// Neutral rows carry |signal| up to 0.02, so the learned deadband
	// should suppress signals inside that range.
	signal := []float64{0.05, -0.04, 0.01, -0.02, 0.015, 0.06}
	y := []models.Label{
		models.Bullish, models.Bearish, models.Neutral,
		models.Neutral, models.Neutral, models.Bullish,
	}
	m := NewMomentum("mom_5")
	if err := m.Train(context.Background(), signalFrame(signal), y); err != nil {
		t.Fatalf("train: %v", err)
	}

	preds, err := m.Predict(context.Background(), signalFrame([]float64{0.05, -0.05, 0.001, -0.001}))
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	want := []models.Label{models.Bullish, models.Bearish, models.Neutral, models.Neutral}
	for i := range want {
		if preds[i] != want[i] {
			t.Fatalf("pred[%d] = %v, want %v", i, preds[i], want[i])
		}
	}
}

func TestHybridMajorityVote(t *testing.T) {
	signal := []float64{0.05, -0.05, 0.05}
	y := []models.Label{models.Bullish, models.Bearish, models.Bullish}
	f := signalFrame(signal)

	// Two momentum voters against one naive voter. Naive learns the
	// bullish majority, momentum follows the signal sign.
	h := NewHybrid(NewMomentum("mom_5"), NewMomentum("mom_5"), NewNaive())
	if err := h.Train(context.Background(), f, y); err != nil {
		t.Fatalf("train: %v", err)
	}
	preds, err := h.Predict(context.Background(), signalFrame([]float64{-0.9}))
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if preds[0] != models.Bearish {
		t.Fatalf("vote = %v, want bearish from the momentum pair", preds[0])
	}

	probs, err := h.PredictProba(context.Background(), signalFrame([]float64{-0.9}))
	if err != nil {
		t.Fatalf("predict proba: %v", err)
	}
	if got := probs[0][models.Bearish]; got < 0.66 || got > 0.67 {
		t.Fatalf("bearish share = %v, want 2/3", got)
	}
}

func TestFactoryForRejectsUnknownModel(t *testing.T) {
	if _, err := FactoryFor("gradient-boost", nil); err == nil {
		t.Fatal("expected error for unknown model")
	}
}

func TestFactoryForBuildsFreshInstances(t *testing.T) {
	factory, err := FactoryFor(ModelNaive, nil)
	if err != nil {
		t.Fatalf("factory: %v", err)
	}
	a, b := factory(), factory()
	if a == b {
		t.Fatal("factory returned the same instance twice")
	}
}
