package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/chrisdamba/prepcast/internal/factories"
	"github.com/chrisdamba/prepcast/internal/forecast"
	"github.com/chrisdamba/prepcast/internal/models"
)

type fakeOrders struct {
	orders     []models.OrderEvent
	start, end time.Time
}

func (f *fakeOrders) FetchHistoricalOrders(ctx context.Context, start, end time.Time) ([]models.OrderEvent, error) {
	f.start, f.end = start, end
	var out []models.OrderEvent
	for _, o := range f.orders {
		if !o.Timestamp.Before(start) && o.Timestamp.Before(end) {
			out = append(out, o)
		}
	}
	return out, nil
}

type fakeRecipes struct{ recipes models.RecipeMap }

func (f fakeRecipes) FetchMenuItemIngredients(ctx context.Context) (models.RecipeMap, error) {
	return f.recipes, nil
}

type fakeForecasts struct {
	daily, traffic int
	days           []string
	cleared        bool
	fail           error
}

func (f *fakeForecasts) StoreDailyRecommendations(ctx context.Context, dailyNeeds *models.UsageTable, now time.Time) ([]int64, error) {
	if f.fail != nil {
		return nil, f.fail
	}
	f.daily++
	for _, d := range dailyNeeds.Index {
		f.days = append(f.days, models.DateKey(d))
	}
	return []int64{1, 2}, nil
}

func (f *fakeForecasts) StoreTrafficRecommendations(ctx context.Context, recs []models.TrafficRecommendation, now time.Time) ([]int64, error) {
	f.traffic += len(recs)
	return []int64{3}, nil
}

func (f *fakeForecasts) ClearForecasts(ctx context.Context) (int64, error) {
	f.cleared = true
	return 4, nil
}

type fakePublisher struct{ prep, traffic int }

func (p *fakePublisher) PublishPrep(runID string, prep models.PrepRecommendation, now time.Time) error {
	p.prep++
	return nil
}

func (p *fakePublisher) PublishTraffic(runID string, recs []models.TrafficRecommendation, now time.Time) error {
	p.traffic += len(recs)
	return nil
}

func testConfig(t *testing.T) *models.Config {
	t.Helper()
	return &models.Config{
		OutputFormat: "csv",
		Forecast: models.ForecastConfig{
			HistoryDays:    21,
			HorizonDays:    2,
			SearchSeed:     42,
			SafetyMargin:   1.15,
			SeasonalPeriod: 7,
		},
	}
}

func history(now time.Time, days int) []models.OrderEvent {
	f := factories.NewOrderFactory(3)
	counts := f.WeeklyCounts(map[string]int{"Classic Burger": 10, "Fries": 8}, 2)
	return f.CreateHistory(models.DayFloor(now).AddDate(0, 0, -days), days, counts)
}

func TestRunEndToEnd(t *testing.T) {
	now := time.Date(2026, 10, 14, 0, 0, 0, 0, time.UTC)
	cfg := testConfig(t)
	cfg.Save = true
	cfg.ClearDB = true

	orders := &fakeOrders{orders: history(now, 21)}
	store := &fakeForecasts{}
	pub := &fakePublisher{}
	p := NewPipeline(cfg, orders, fakeRecipes{factories.DefaultRecipes()},
		forecast.NewOrchestrator(Options(cfg.Forecast)),
		WithForecastRepository(store),
		WithPublisher(pub),
		WithRunID("run-test"),
	)

	res, err := p.Run(context.Background(), now)
	if err != nil {
		t.Fatal(err)
	}
	if res.Partial {
		t.Errorf("unexpected partial run: %v", res.Err())
	}
	if res.RunID != "run-test" {
		t.Errorf("run id = %s", res.RunID)
	}
	if !orders.end.Equal(now) || !orders.start.Equal(now.AddDate(0, 0, -21)) {
		t.Errorf("queried %v .. %v", orders.start, orders.end)
	}
	if res.Forecast.Hourly.Len() != 48 || res.Forecast.Daily.Len() != 2 {
		t.Errorf("forecast rows = %d hourly, %d daily", res.Forecast.Hourly.Len(), res.Forecast.Daily.Len())
	}
	if len(res.Traffic) != 2 {
		t.Errorf("got %d traffic recommendations", len(res.Traffic))
	}
	if models.DateKey(res.Prep.Tomorrow) != "2026-10-15" || res.Prep.TomorrowNeeds["bun"] <= 0 {
		t.Errorf("tomorrow needs = %v", res.Prep.TomorrowNeeds)
	}
	if !store.cleared || store.daily != 1 || store.traffic != 2 {
		t.Errorf("store = %+v", store)
	}
	if len(res.StoredIDs) != 3 {
		t.Errorf("stored ids = %v", res.StoredIDs)
	}
	if pub.prep != 1 || pub.traffic != 2 {
		t.Errorf("publisher = %+v", pub)
	}
}

func TestRunLateEveningInAnotherZone(t *testing.T) {
	// 00:30 in UTC+2 is still 22:30 on the previous day for the UTC history.
	now := time.Date(2026, 10, 14, 0, 30, 0, 0, time.FixedZone("CEST", 2*60*60))
	cfg := testConfig(t)
	cfg.Save = true

	store := &fakeForecasts{}
	p := NewPipeline(cfg, &fakeOrders{orders: history(now.UTC(), 21)}, fakeRecipes{factories.DefaultRecipes()},
		forecast.NewOrchestrator(Options(cfg.Forecast)),
		WithForecastRepository(store),
	)
	res, err := p.Run(context.Background(), now)
	if err != nil {
		t.Fatal(err)
	}

	if loc := res.GeneratedAt.Location(); loc != time.UTC {
		t.Errorf("run time in %v, want UTC", loc)
	}
	if models.DateKey(res.Prep.Tomorrow) != "2026-10-14" || res.Prep.TomorrowNeeds["bun"] <= 0 {
		t.Errorf("tomorrow = %s, needs = %v", models.DateKey(res.Prep.Tomorrow), res.Prep.TomorrowNeeds)
	}
	// 22:00 and 23:00 on 2026-10-13, then two whole days.
	if res.Forecast.Hourly.Len() != 50 || !res.Forecast.Incomplete["2026-10-13"] {
		t.Errorf("hourly rows = %d, incomplete = %v", res.Forecast.Hourly.Len(), res.Forecast.Incomplete)
	}
	if len(store.days) != 2 || store.days[0] != "2026-10-14" || store.days[1] != "2026-10-15" {
		t.Errorf("stored daily needs for %v", store.days)
	}
	if len(res.Traffic) != 2 || models.DateKey(res.Traffic[0].Date) != "2026-10-14" {
		t.Errorf("traffic = %d days", len(res.Traffic))
	}
}

func TestRunHaltsWithoutHistory(t *testing.T) {
	now := time.Date(2026, 10, 14, 0, 0, 0, 0, time.UTC)
	cfg := testConfig(t)
	store := &fakeForecasts{}
	cfg.Save = true

	p := NewPipeline(cfg, &fakeOrders{}, fakeRecipes{factories.DefaultRecipes()},
		forecast.NewOrchestrator(Options(cfg.Forecast)), WithForecastRepository(store))
	_, err := p.Run(context.Background(), now)
	if !forecast.IsDataUnavailable(err) {
		t.Fatalf("err = %v, want data unavailable", err)
	}
	if store.daily != 0 {
		t.Error("nothing should be stored when the run halts")
	}
}

func TestRunPartialOnStoreFailure(t *testing.T) {
	now := time.Date(2026, 10, 14, 0, 0, 0, 0, time.UTC)
	cfg := testConfig(t)
	cfg.Save = true
	cfg.OutputPath = t.TempDir()
	cfg.OutputFolder = "forecasts"

	down := errors.New("connection refused")
	store := &fakeForecasts{fail: down}
	p := NewPipeline(cfg, &fakeOrders{orders: history(now, 14)}, fakeRecipes{factories.DefaultRecipes()},
		forecast.NewOrchestrator(Options(cfg.Forecast)),
		WithForecastRepository(store),
		WithExporter(exporterFunc(func(*models.ForecastResult, models.PrepRecommendation, []models.TrafficRecommendation) ([]string, error) {
			return []string{"a.csv"}, nil
		})),
	)

	res, err := p.Run(context.Background(), now)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Partial || !errors.Is(res.Err(), down) {
		t.Errorf("partial = %v, err = %v", res.Partial, res.Err())
	}
	if res.Forecast.Empty() {
		t.Error("the forecast should still be returned")
	}
	if len(res.Files) != 1 {
		t.Errorf("files = %v", res.Files)
	}
	// Traffic recommendations are still stored after the daily store fails.
	if store.traffic == 0 || len(res.StoredIDs) != 1 {
		t.Errorf("traffic stored = %d, ids = %v", store.traffic, res.StoredIDs)
	}
}

type exporterFunc func(*models.ForecastResult, models.PrepRecommendation, []models.TrafficRecommendation) ([]string, error)

func (f exporterFunc) Export(r *models.ForecastResult, p models.PrepRecommendation, t []models.TrafficRecommendation) ([]string, error) {
	return f(r, p, t)
}

func TestComputeHistoricalUsage(t *testing.T) {
	now := time.Date(2026, 10, 14, 0, 0, 0, 0, time.UTC)
	orders := history(now, 7)
	orders = append(orders, factories.NewOrderFactory(1).CreateOrder(now.Add(-2*time.Hour), "Unknown Dish")...)

	p := NewPipeline(testConfig(t), &fakeOrders{orders: orders}, fakeRecipes{factories.DefaultRecipes()}, nil)
	agg, err := p.ComputeHistoricalUsage(context.Background(), now.AddDate(0, 0, -7), now)
	if err != nil {
		t.Fatal(err)
	}
	if agg.Skipped != 1 || agg.Processed != len(orders)-1 {
		t.Errorf("processed/skipped = %d/%d", agg.Processed, agg.Skipped)
	}
	if agg.Table.ColumnTotal("bun") <= 0 {
		t.Error("no bun usage aggregated")
	}
}

func TestOptions(t *testing.T) {
	opts := Options(models.ForecastConfig{MinNonZeroDays: 10, SeasonalPeriod: 24, SampleOrders: 3, SearchSeed: 7, Workers: 2})
	if opts.MinNonZeroDays != 10 || opts.Search.Period != 24 || opts.Search.Samples != 3 || opts.Search.Seed != 7 || opts.Workers != 2 {
		t.Errorf("options = %+v", opts)
	}
	if defaults := Options(models.ForecastConfig{}); defaults.MinNonZeroDays != forecast.DefaultMinNonZeroDays || defaults.Search.Period != 7 {
		t.Errorf("default options = %+v", defaults)
	}
}
