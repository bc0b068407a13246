package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/chrisdamba/prepcast/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ForecastRepository struct {
	pool  *pgxpool.Pool
	table string
}

func NewForecastRepository(pool *pgxpool.Pool, table string) *ForecastRepository {
	if table == "" {
		table = "forecasts"
	}
	return &ForecastRepository{pool: pool, table: pgx.Identifier{table}.Sanitize()}
}

// ForecastRecord is one row of the forecast store.
type ForecastRecord struct {
	RecommendationFor time.Time
	Payload           []byte
}

type trafficPayload struct {
	Type               string `json:"type"`
	TextRecommendation string `json:"text_recommendation"`
}

// DailyRecords builds one record per future day holding the positive prep
// quantities of that day. Days up to and including today are skipped, as are
// days without any positive quantity.
func DailyRecords(dailyNeeds *models.UsageTable, now time.Time) ([]ForecastRecord, error) {
	if dailyNeeds.Empty() {
		return nil, nil
	}
	today := models.DateKey(now)
	var records []ForecastRecord
	for i, day := range dailyNeeds.Index {
		if models.DateKey(day) <= today {
			continue
		}
		prep := make(map[string]float64)
		for _, id := range dailyNeeds.Ingredients {
			if v := dailyNeeds.Value(i, id); v > 0 {
				prep[id] = v
			}
		}
		if len(prep) == 0 {
			continue
		}
		payload, err := json.Marshal(prep)
		if err != nil {
			return nil, err
		}
		records = append(records, ForecastRecord{RecommendationFor: day, Payload: payload})
	}
	return records, nil
}

// TrafficRecords wraps every traffic recommendation in its JSON envelope.
func TrafficRecords(recs []models.TrafficRecommendation) ([]ForecastRecord, error) {
	records := make([]ForecastRecord, 0, len(recs))
	for _, rec := range recs {
		payload, err := json.Marshal(trafficPayload{Type: "traffic_forecast", TextRecommendation: rec.Text})
		if err != nil {
			return nil, err
		}
		records = append(records, ForecastRecord{RecommendationFor: rec.Date, Payload: payload})
	}
	return records, nil
}

func (r *ForecastRepository) StoreDailyRecommendations(ctx context.Context, dailyNeeds *models.UsageTable, now time.Time) ([]int64, error) {
	records, err := DailyRecords(dailyNeeds, now)
	if err != nil {
		return nil, err
	}
	return r.insert(ctx, records, now)
}

func (r *ForecastRepository) StoreTrafficRecommendations(ctx context.Context, recs []models.TrafficRecommendation, now time.Time) ([]int64, error) {
	records, err := TrafficRecords(recs)
	if err != nil {
		return nil, err
	}
	return r.insert(ctx, records, now)
}

// insert writes records in a single transaction and returns their ids.
// Nothing is stored when any insert fails.
func (r *ForecastRepository) insert(ctx context.Context, records []ForecastRecord, now time.Time) ([]int64, error) {
	if len(records) == 0 {
		return nil, nil
	}
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	stmt := fmt.Sprintf(`
        INSERT INTO %s (recommendation, recommendationfor, createdat)
        VALUES ($1, $2, $3)
        RETURNING forecastid
    `, r.table)

	ids := make([]int64, 0, len(records))
	for _, rec := range records {
		var id int64
		if err := tx.QueryRow(ctx, stmt, string(rec.Payload), rec.RecommendationFor, now).Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to store recommendation for %s: %w", models.DateKey(rec.RecommendationFor), err)
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit recommendations: %w", err)
	}
	return ids, nil
}

// ClearForecasts deletes every stored recommendation and returns how many were removed.
func (r *ForecastRepository) ClearForecasts(ctx context.Context) (int64, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, fmt.Sprintf("DELETE FROM %s", r.table))
	if err != nil {
		return 0, fmt.Errorf("failed to clear %s: %w", r.table, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit clear: %w", err)
	}
	return tag.RowsAffected(), nil
}
