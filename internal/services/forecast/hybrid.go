package forecast

import (
	"context"

	"MarketCast/internal/domain/models"
	"MarketCast/internal/domain/service"
)

// Hybrid votes across member forecasters, breaking ties toward the
// first member. It also exposes vote shares as class probabilities.
type Hybrid struct {
	members []service.Forecaster
}

func NewHybrid(members ...service.Forecaster) *Hybrid {
	return &Hybrid{members: members}
}

func (h *Hybrid) Train(ctx context.Context, x *models.Frame, y []models.Label) error {
	for _, m := range h.members {
		if err := m.Train(ctx, x, y); err != nil {
			return err
		}
	}
	return nil
}

func (h *Hybrid) Predict(ctx context.Context, x *models.Frame) ([]models.Label, error) {
	votes, err := h.memberVotes(ctx, x)
	if err != nil {
		return nil, err
	}
	out := make([]models.Label, x.Len())
	for i := range out {
		best, bestCount := votes[0][i], 0
		counts := map[models.Label]int{}
		for _, mv := range votes {
			counts[mv[i]]++
		}
		for _, mv := range votes {
			if counts[mv[i]] > bestCount {
				best, bestCount = mv[i], counts[mv[i]]
			}
		}
		out[i] = best
	}
	return out, nil
}

// PredictProba reports each class's vote share per row.
func (h *Hybrid) PredictProba(ctx context.Context, x *models.Frame) ([]map[models.Label]float64, error) {
	votes, err := h.memberVotes(ctx, x)
	if err != nil {
		return nil, err
	}
	out := make([]map[models.Label]float64, x.Len())
	total := float64(len(h.members))
	for i := range out {
		probs := map[models.Label]float64{}
		for _, mv := range votes {
			probs[mv[i]] += 1 / total
		}
		out[i] = probs
	}
	return out, nil
}

func (h *Hybrid) memberVotes(ctx context.Context, x *models.Frame) ([][]models.Label, error) {
	votes := make([][]models.Label, 0, len(h.members))
	for _, m := range h.members {
		mv, err := m.Predict(ctx, x)
		if err != nil {
			return nil, err
		}
		votes = append(votes, mv)
	}
	return votes, nil
}

var _ service.ProbabilisticForecaster = (*Hybrid)(nil)
