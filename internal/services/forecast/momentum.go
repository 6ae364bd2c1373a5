package forecast

import (
	"context"
	"fmt"
	"math"
	"sort"

	"MarketCast/internal/domain/models"
	"MarketCast/internal/domain/service"
)

// Momentum predicts the sign of a momentum feature column, with a
// deadband learned from the training rows that were labeled neutral.
// Signal magnitudes inside the deadband predict neutral.
type Momentum struct {
	// Column is the feature column carrying the momentum signal.
	Column string

	deadband float64
	trained  bool
}

func NewMomentum(column string) *Momentum {
	return &Momentum{Column: column}
}

func (m *Momentum) Train(_ context.Context, x *models.Frame, y []models.Label) error {
	signal, err := x.Col(m.Column)
	if err != nil {
		return fmt.Errorf("momentum forecaster: %w", err)
	}
	if len(signal) != len(y) {
		return fmt.Errorf("momentum forecaster: %d signal rows for %d labels", len(signal), len(y))
	}

	// The deadband is the median absolute signal among neutral rows:
	// the magnitude below which history says the market went nowhere.
	var neutralAbs []float64
	for i, label := range y {
		if label == models.Neutral {
			neutralAbs = append(neutralAbs, math.Abs(signal[i]))
		}
	}
	if len(neutralAbs) > 0 {
		sort.Float64s(neutralAbs)
		m.deadband = neutralAbs[len(neutralAbs)/2]
	} else {
		m.deadband = 0
	}
	m.trained = true
	return nil
}

func (m *Momentum) Predict(_ context.Context, x *models.Frame) ([]models.Label, error) {
	if !m.trained {
		return nil, fmt.Errorf("momentum forecaster: predict before train")
	}
	signal, err := x.Col(m.Column)
	if err != nil {
		return nil, fmt.Errorf("momentum forecaster: %w", err)
	}
	out := make([]models.Label, len(signal))
	for i, v := range signal {
		switch {
		case v > m.deadband:
			out[i] = models.Bullish
		case v < -m.deadband:
			out[i] = models.Bearish
		default:
			out[i] = models.Neutral
		}
	}
	return out, nil
}

var _ service.Forecaster = (*Momentum)(nil)
