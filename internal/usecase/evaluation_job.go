package usecase

import (
	"context"

	"MarketCast/internal/domain/models"
	applogger "MarketCast/pkg/logger"
	"MarketCast/pkg/queue"
)

// EvaluationJobType is the queue message type for async evaluations.
const EvaluationJobType = "evaluation.run"

// EvaluationJob runs walk-forward evaluations from the Redis queue so
// long runs do not block API requests.
type EvaluationJob struct {
	uc *EvaluationUseCase
	l  *applogger.Logger
}

func NewEvaluationJob(uc *EvaluationUseCase, l *applogger.Logger) *EvaluationJob {
	return &EvaluationJob{uc: uc, l: l}
}

func (j *EvaluationJob) Name() string { return "walk_forward_evaluation" }

func (j *EvaluationJob) Type() string { return EvaluationJobType }

func (j *EvaluationJob) Handle(ctx context.Context, payload interface{}) error {
	req, err := queue.ParsePayload[models.EvaluateRequest](payload)
	if err != nil {
		return err
	}
	summary, err := j.uc.RunEvaluation(ctx, *req)
	if err != nil {
		return err
	}
	if summary == nil && j.l != nil {
		j.l.Warn("queued evaluation produced no result",
			applogger.String("symbol", req.Symbol),
			applogger.Int("horizon", req.Horizon),
		)
	}
	return nil
}

var _ queue.Job = (*EvaluationJob)(nil)
