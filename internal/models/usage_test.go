package models

import (
	"math"
	"testing"
	"time"
)

func TestHourlyIndexAndDatesCovering(t *testing.T) {
	start := time.Date(2026, 10, 14, 22, 35, 0, 0, time.UTC)
	index := HourlyIndex(start, 4)
	if !index[0].Equal(time.Date(2026, 10, 14, 22, 0, 0, 0, time.UTC)) {
		t.Fatalf("index starts at %v", index[0])
	}
	if !index[3].Equal(time.Date(2026, 10, 15, 1, 0, 0, 0, time.UTC)) {
		t.Fatalf("index ends at %v", index[3])
	}

	dates := DatesCovering(index)
	if len(dates) != 2 {
		t.Fatalf("got %d dates, want 2", len(dates))
	}
	if DateKey(dates[0]) != "2026-10-14" || DateKey(dates[1]) != "2026-10-15" {
		t.Errorf("unexpected dates %v", dates)
	}
}

func TestNewUsageTableSortsAndZeroFills(t *testing.T) {
	index := HourlyIndex(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), 3)
	input := []string{"lettuce", "bun", "cheese"}
	table := NewUsageTable(Hourly, index, input)

	want := []string{"bun", "cheese", "lettuce"}
	for i, id := range want {
		if table.Ingredients[i] != id {
			t.Fatalf("Ingredients = %v, want %v", table.Ingredients, want)
		}
	}
	if input[0] != "lettuce" {
		t.Error("NewUsageTable must not reorder the caller's slice")
	}
	for _, id := range want {
		if got := len(table.Series(id)); got != 3 {
			t.Errorf("%s has %d values, want 3", id, got)
		}
		if table.ColumnTotal(id) != 0 {
			t.Errorf("%s not zero-filled", id)
		}
	}
}

func TestSetSeriesRejectsMismatch(t *testing.T) {
	table := NewUsageTable(Daily, HourlyIndex(time.Now(), 2), []string{"bun"})
	if err := table.SetSeries("bun", []float64{1}); err == nil {
		t.Error("expected length mismatch error")
	}
	if err := table.SetSeries("patty", []float64{1, 2}); err == nil {
		t.Error("expected unknown ingredient error")
	}
	if err := table.SetSeries("bun", []float64{1, 2}); err != nil {
		t.Fatal(err)
	}
	if table.Value(1, "bun") != 2 {
		t.Errorf("Value(1) = %v, want 2", table.Value(1, "bun"))
	}
}

func TestDailyFoldPreservesTotals(t *testing.T) {
	start := time.Date(2026, 10, 12, 20, 0, 0, 0, time.UTC)
	index := HourlyIndex(start, 30)
	table := NewUsageTable(Hourly, index, []string{"bun", "lettuce"})
	for i := range index {
		table.Add(i, "bun", float64(i%5))
		table.Add(i, "lettuce", 0.25)
	}

	daily := table.Daily()
	if daily.Granularity != Daily {
		t.Fatalf("granularity %v", daily.Granularity)
	}
	// 20:00 to 23:00, a full day, then 00:00 and 01:00.
	if daily.Len() != 3 {
		t.Fatalf("got %d days, want 3", daily.Len())
	}
	for _, id := range table.Ingredients {
		if math.Abs(daily.ColumnTotal(id)-table.ColumnTotal(id)) > 1e-9 {
			t.Errorf("%s: daily total %v, hourly total %v", id, daily.ColumnTotal(id), table.ColumnTotal(id))
		}
	}
	// The first day holds hours 20:00 to 23:00.
	if got := daily.Value(0, "lettuce"); got != 1 {
		t.Errorf("first day lettuce = %v, want 1", got)
	}
	if got := daily.Value(1, "lettuce"); got != 6 {
		t.Errorf("second day lettuce = %v, want 6", got)
	}
	if got := daily.Value(2, "lettuce"); got != 0.5 {
		t.Errorf("last day lettuce = %v, want 0.5", got)
	}
	if daily.Daily() != daily {
		t.Error("folding a daily table should return it unchanged")
	}
}

func TestTopIngredientsTieBreak(t *testing.T) {
	table := NewUsageTable(Daily, HourlyIndex(time.Now(), 1), []string{"c", "a", "b"})
	table.Add(0, "a", 2)
	table.Add(0, "b", 2)
	table.Add(0, "c", 5)

	top := table.TopIngredients(2)
	if len(top) != 2 || top[0].Ingredient != "c" || top[1].Ingredient != "a" {
		t.Errorf("TopIngredients = %v", top)
	}
}

func TestRecipeMapIngredients(t *testing.T) {
	recipes := RecipeMap{
		"Burger": {"bun": 1, "patty": 1},
		"Salad":  {"lettuce": 0.2, "bun": 0},
	}
	got := recipes.Ingredients()
	want := []string{"bun", "lettuce", "patty"}
	if len(got) != len(want) {
		t.Fatalf("Ingredients = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Ingredients = %v, want %v", got, want)
		}
	}
}

func TestNilTableIsEmpty(t *testing.T) {
	var table *UsageTable
	if !table.Empty() || table.Len() != 0 {
		t.Error("nil table should be empty")
	}
	var result *ForecastResult
	if !result.Empty() {
		t.Error("nil result should be empty")
	}
}

func TestHourlyIndexThroughDay(t *testing.T) {
	start := time.Date(2026, 10, 12, 14, 30, 0, 0, time.UTC)
	index := HourlyIndexThroughDay(start, 168)
	// 14:00 to 23:00 today, then seven whole days.
	if len(index) != 10+7*24 {
		t.Fatalf("got %d hours, want %d", len(index), 10+7*24)
	}
	last := index[len(index)-1]
	if DateKey(last) != "2026-10-19" || last.Hour() != 23 {
		t.Errorf("last hour = %v", last)
	}

	midnight := HourlyIndexThroughDay(time.Date(2026, 10, 12, 0, 0, 0, 0, time.UTC), 48)
	if len(midnight) != 48 {
		t.Errorf("whole days should not be extended, got %d hours", len(midnight))
	}
	if got := HourlyIndexThroughDay(start, 0); len(got) != 0 {
		t.Errorf("zero hours gave %v", got)
	}
}

func TestHoursInDay(t *testing.T) {
	if got := HoursInDay(time.Date(2026, 10, 12, 9, 0, 0, 0, time.UTC)); got != 24 {
		t.Errorf("UTC day has %d hours", got)
	}
	berlin, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		t.Skip("no time zone database")
	}
	if got := HoursInDay(time.Date(2026, 10, 25, 12, 0, 0, 0, berlin)); got != 25 {
		t.Errorf("end of summer time has %d hours, want 25", got)
	}
}

func TestForecastResultIncompleteDays(t *testing.T) {
	start := time.Date(2026, 10, 12, 14, 0, 0, 0, time.UTC)
	hourly := NewUsageTable(Hourly, HourlyIndex(start, 10+24), []string{"bun"})
	for i := range hourly.Index {
		hourly.Add(i, "bun", 1)
	}

	result := NewForecastResult(hourly, nil)
	if !result.Incomplete["2026-10-12"] || result.Incomplete["2026-10-13"] {
		t.Errorf("incomplete = %v, want only 2026-10-12", result.Incomplete)
	}
	complete := result.CompleteDaily()
	if complete.Len() != 1 || DateKey(complete.Index[0]) != "2026-10-13" {
		t.Fatalf("complete days = %v", complete.Index)
	}
	if got := complete.Value(0, "bun"); got != 24 {
		t.Errorf("complete day bun = %v, want 24", got)
	}
	// The fold itself still carries both days.
	if result.Daily.Len() != 2 || result.Daily.Value(0, "bun") != 10 {
		t.Errorf("daily = %v rows, first %v", result.Daily.Len(), result.Daily.Value(0, "bun"))
	}
}

func TestSelectRows(t *testing.T) {
	index := HourlyIndex(time.Date(2026, 10, 12, 0, 0, 0, 0, time.UTC), 4)
	table := NewUsageTable(Hourly, index, []string{"bun"})
	for i := range index {
		table.Add(i, "bun", float64(i))
	}
	odd := table.SelectRows(func(ts time.Time) bool { return ts.Hour()%2 == 1 })
	if odd.Len() != 2 || odd.Value(0, "bun") != 1 || odd.Value(1, "bun") != 3 {
		t.Errorf("selected %v / %v", odd.Index, odd.Series("bun"))
	}
	odd.Add(0, "bun", 10)
	if table.Value(1, "bun") != 1 {
		t.Error("SelectRows shares storage with the source table")
	}
}
