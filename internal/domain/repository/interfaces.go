package repository

import (
	"context"
	"time"

	"MarketCast/internal/domain/models"
)

type MarketStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context) error
	Read(ctx context.Context) (<-chan *models.Candle, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

type Publisher interface {
	Publish(ctx context.Context, c *models.Candle) error
	PublishBatch(ctx context.Context, candles []*models.Candle) error
	Close() error
}

type Storage interface {
	Init(ctx context.Context) error // ensure tables, health checks
	Store(ctx context.Context, c *models.Candle) error
	StoreBatch(ctx context.Context, candles []*models.Candle) error
	Query(ctx context.Context, symbol string, from, to time.Time, limit int) ([]*models.Candle, error)
	Health(ctx context.Context) error // ping
	Close() error
}

// ResultStore persists walk-forward evaluation summaries.
type ResultStore interface {
	StoreSummary(ctx context.Context, symbol, model string, horizon int, s *models.EvaluationSummary) error
	LatestSummary(ctx context.Context, symbol, model string, horizon int) (*models.EvaluationSummary, error)
}

type Metrics interface {
	RecordBarIngested(backend, symbol string)
	RecordWindows(symbol, model string, evaluated, skipped int)
	RecordError(kind string)
	RecordForecast(symbol, horizon string, price float64)
	RecordLatency(op string, seconds float64)
}
