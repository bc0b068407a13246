package repositories

import (
	"context"
	"time"

	"github.com/chrisdamba/prepcast/internal/models"
)

type OrderRepository interface {
	FetchHistoricalOrders(ctx context.Context, start, end time.Time) ([]models.OrderEvent, error)
}

type RecipeRepository interface {
	FetchMenuItemIngredients(ctx context.Context) (models.RecipeMap, error)
}

// ForecastRepository stores recommendations. Each call is one transaction.
type ForecastRepository interface {
	StoreDailyRecommendations(ctx context.Context, dailyNeeds *models.UsageTable, now time.Time) ([]int64, error)
	StoreTrafficRecommendations(ctx context.Context, recs []models.TrafficRecommendation, now time.Time) ([]int64, error)
	ClearForecasts(ctx context.Context) (int64, error)
}
