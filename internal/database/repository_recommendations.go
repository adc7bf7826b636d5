package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"trade-advisor/internal/engine"
	"trade-advisor/internal/profile"
)

// RecommendationRepository persists the recommendation audit trail.
type RecommendationRepository struct {
	db *DB
}

// NewRecommendationRepository creates a repository.
func NewRecommendationRepository(db *DB) *RecommendationRepository {
	return &RecommendationRepository{db: db}
}

// RecommendationRecord is one persisted audit row.
type RecommendationRecord struct {
	ID              string    `json:"id"`
	Symbol          string    `json:"symbol"`
	Style           string    `json:"style"`
	Action          string    `json:"action"`
	Confidence      float64   `json:"confidence"`
	SignalConsensus float64   `json:"signal_consensus"`
	EntryMin        float64   `json:"entry_min"`
	EntryMax        float64   `json:"entry_max"`
	StopLoss        float64   `json:"stop_loss"`
	TakeProfit      float64   `json:"take_profit"`
	RiskReward      float64   `json:"risk_reward"`
	PositionUnits   float64   `json:"position_units"`
	PositionPct     float64   `json:"position_pct"`
	Justification   string    `json:"justification"`
	CreatedAt       time.Time `json:"created_at"`
}

// Save writes one recommendation to the audit trail.
func (r *RecommendationRepository) Save(ctx context.Context, rec *engine.Recommendation) error {
	details, err := json.Marshal(rec.StrategyDetails)
	if err != nil {
		return fmt.Errorf("failed to marshal strategy details: %w", err)
	}

	_, err = r.db.Pool.Exec(ctx, `
		INSERT INTO recommendations (
			id, symbol, style, action, confidence, signal_consensus,
			entry_min, entry_max, stop_loss, take_profit, risk_reward,
			position_units, position_pct, justification, details, created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)`,
		rec.ID, rec.Symbol, string(rec.Style), string(rec.Action),
		rec.Confidence, rec.SignalConsensus,
		rec.EntryRange.Min, rec.EntryRange.Max,
		rec.StopLoss, rec.TakeProfit, rec.RiskRewardRatio,
		rec.PositionSizeUnits, rec.PositionSizePct,
		rec.Justification, details, rec.GeneratedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save recommendation %s: %w", rec.ID, err)
	}
	return nil
}

// ListBySymbol returns the most recent recommendations for a symbol,
// newest first. A zero style matches all styles.
func (r *RecommendationRepository) ListBySymbol(ctx context.Context, symbol string, style profile.Style, limit int) ([]RecommendationRecord, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}

	query := `
		SELECT id, symbol, style, action, confidence, signal_consensus,
		       entry_min, entry_max, stop_loss, take_profit, risk_reward,
		       position_units, position_pct, justification, created_at
		FROM recommendations
		WHERE symbol = $1 AND ($2 = '' OR style = $2)
		ORDER BY created_at DESC
		LIMIT $3`

	rows, err := r.db.Pool.Query(ctx, query, symbol, string(style), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recommendations for %s: %w", symbol, err)
	}
	defer rows.Close()

	var records []RecommendationRecord
	for rows.Next() {
		var rec RecommendationRecord
		if err := rows.Scan(
			&rec.ID, &rec.Symbol, &rec.Style, &rec.Action,
			&rec.Confidence, &rec.SignalConsensus,
			&rec.EntryMin, &rec.EntryMax,
			&rec.StopLoss, &rec.TakeProfit, &rec.RiskReward,
			&rec.PositionUnits, &rec.PositionPct,
			&rec.Justification, &rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan recommendation row: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
