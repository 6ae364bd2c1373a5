package forecast

import (
	"context"
	"fmt"

	"MarketCast/internal/domain/models"
	"MarketCast/internal/domain/service"
)

// Naive predicts the majority class of its training labels for every
// row. It is the floor every other variant must beat.
type Naive struct {
	majority models.Label
	trained  bool
}

func NewNaive() *Naive { return &Naive{} }

func (n *Naive) Train(_ context.Context, _ *models.Frame, y []models.Label) error {
	if len(y) == 0 {
		return fmt.Errorf("naive forecaster: empty training set")
	}
	counts := map[models.Label]int{}
	for _, l := range y {
		counts[l]++
	}
	best, bestCount := models.Neutral, -1
	for _, class := range models.Classes() {
		if counts[class] > bestCount {
			best, bestCount = class, counts[class]
		}
	}
	n.majority = best
	n.trained = true
	return nil
}

func (n *Naive) Predict(_ context.Context, x *models.Frame) ([]models.Label, error) {
	if !n.trained {
		return nil, fmt.Errorf("naive forecaster: predict before train")
	}
	out := make([]models.Label, x.Len())
	for i := range out {
		out[i] = n.majority
	}
	return out, nil
}

var _ service.Forecaster = (*Naive)(nil)
