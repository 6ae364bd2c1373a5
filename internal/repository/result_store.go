package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"MarketCast/internal/domain/models"
	"MarketCast/internal/domain/repository"
	pkgch "MarketCast/pkg/clickhouse"
	applogger "MarketCast/pkg/logger"
)

const resultsTable = "marketcast.evaluation_results"

// CHResultStore persists walk-forward summaries to ClickHouse. The full
// report is stored as JSON next to the headline columns so dashboards
// can query the scalars cheaply.
type CHResultStore struct {
	db *sql.DB
	l  *applogger.Logger
}

func NewCHResultStore(ch *pkgch.Client) *CHResultStore {
	return &CHResultStore{db: ch.DB()}
}

// SetLogger injects a structured logger.
func (s *CHResultStore) SetLogger(l *applogger.Logger) { s.l = l }

func (s *CHResultStore) StoreSummary(ctx context.Context, symbol, model string, horizon int, summary *models.EvaluationSummary) error {
	payload, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}
	q := fmt.Sprintf(`INSERT INTO %s
        (generated_at, symbol, model, horizon, window_count, skipped_windows, pooled_samples, accuracy, directional_accuracy, macro_f1, sharpe, max_drawdown, report)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, resultsTable)
	_, err = s.db.ExecContext(ctx, q,
		summary.GeneratedAt,
		symbol,
		model,
		horizon,
		summary.WindowCount,
		summary.SkippedWindows,
		summary.PooledSamples,
		summary.Accuracy,
		summary.DirectionalAccuracy,
		summary.MacroF1,
		summary.Trade.Sharpe,
		summary.Trade.MaxDrawdown,
		string(payload),
	)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse store_summary error",
				applogger.String("symbol", symbol),
				applogger.String("model", model),
				applogger.Int("horizon", horizon),
				applogger.Error(err),
			)
		}
		return fmt.Errorf("store summary: %w", err)
	}
	return nil
}

func (s *CHResultStore) LatestSummary(ctx context.Context, symbol, model string, horizon int) (*models.EvaluationSummary, error) {
	q := fmt.Sprintf(`SELECT report FROM %s
        WHERE symbol = ? AND model = ? AND horizon = ?
        ORDER BY generated_at DESC
        LIMIT 1`, resultsTable)
	var payload string
	err := s.db.QueryRowContext(ctx, q, symbol, model, horizon).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest summary: %w", err)
	}
	var summary models.EvaluationSummary
	if err := json.Unmarshal([]byte(payload), &summary); err != nil {
		return nil, fmt.Errorf("decode summary: %w", err)
	}
	return &summary, nil
}

var _ repository.ResultStore = (*CHResultStore)(nil)

// ResultSchema returns idempotent DDL for the evaluation results table.
func ResultSchema() []string {
	return []string{
		"CREATE DATABASE IF NOT EXISTS marketcast",
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
            generated_at DateTime,
            symbol String,
            model String,
            horizon Int32,
            window_count Int32,
            skipped_windows Int32,
            pooled_samples Int32,
            accuracy Float64,
            directional_accuracy Float64,
            macro_f1 Float64,
            sharpe Float64,
            max_drawdown Float64,
            report String
        ) ENGINE = MergeTree()
        ORDER BY (symbol, model, horizon, generated_at)
        TTL generated_at + INTERVAL 90 DAY`, resultsTable),
	}
}
