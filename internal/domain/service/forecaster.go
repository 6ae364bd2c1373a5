package service

import (
	"context"

	"MarketCast/internal/domain/models"
)

// Forecaster is the training/prediction contract every model variant
// implements. Implementations must tolerate being constructed fresh
// per call site; the evaluator never reuses an instance across
// windows.
type Forecaster interface {
	Train(ctx context.Context, x *models.Frame, y []models.Label) error
	Predict(ctx context.Context, x *models.Frame) ([]models.Label, error)
}

// ProbabilisticForecaster is optionally implemented by forecasters
// that can emit per-class probabilities alongside hard labels.
type ProbabilisticForecaster interface {
	Forecaster
	PredictProba(ctx context.Context, x *models.Frame) ([]map[models.Label]float64, error)
}

// ForecasterFactory builds a fresh forecaster instance. The evaluator
// calls it once per window so no model state bleeds between windows.
type ForecasterFactory func() Forecaster

// FeatureProvider computes a feature frame from a candle-backed OHLCV
// frame. Implementations must be deterministic and causal: the value
// at any row may depend only on that row and earlier rows. The
// lookahead guard verifies this contract.
type FeatureProvider interface {
	Compute(f *models.Frame) (*models.Frame, error)
	FeatureColumns() []string
}
