package models

import (
	"fmt"
	"sort"
	"time"
)

type Granularity int

const (
	Hourly Granularity = iota
	Daily
)

func (g Granularity) String() string {
	if g == Daily {
		return "daily"
	}
	return "hourly"
}

// UsageTable holds ingredient quantities over a contiguous time index.
// Each ingredient column has exactly one value per index entry.
type UsageTable struct {
	Granularity Granularity
	Index       []time.Time
	Ingredients []string

	values   map[string][]float64
	position map[int64]int
}

// HourFloor truncates t to the start of its hour in t's location.
func HourFloor(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, t.Location())
}

// DayFloor truncates t to midnight in t's location.
func DayFloor(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// HourlyIndex returns n consecutive hour stamps starting at the hour floor of start.
func HourlyIndex(start time.Time, n int) []time.Time {
	start = HourFloor(start)
	index := make([]time.Time, n)
	for i := range index {
		index[i] = start.Add(time.Duration(i) * time.Hour)
	}
	return index
}

// HourlyIndexThroughDay returns at least n hour stamps starting at the hour
// floor of start, extended so the last calendar day runs to its final hour.
func HourlyIndexThroughDay(start time.Time, n int) []time.Time {
	index := HourlyIndex(start, n)
	if n <= 0 {
		return index
	}
	for last := index[len(index)-1]; last.Hour() != 23; last = index[len(index)-1] {
		index = append(index, last.Add(time.Hour))
	}
	return index
}

// HoursInDay is the number of hours of the calendar day of t, 23 or 25 across
// daylight saving changes.
func HoursInDay(t time.Time) int {
	day := DayFloor(t)
	return int(day.AddDate(0, 0, 1).Sub(day) / time.Hour)
}

// DatesCovering returns the distinct calendar days touched by index, in order.
func DatesCovering(index []time.Time) []time.Time {
	var dates []time.Time
	for _, ts := range index {
		day := DayFloor(ts)
		if len(dates) == 0 || !dates[len(dates)-1].Equal(day) {
			dates = append(dates, day)
		}
	}
	return dates
}

// NewUsageTable creates a zero-filled table. The ingredient list is copied and sorted.
func NewUsageTable(g Granularity, index []time.Time, ingredients []string) *UsageTable {
	cols := append([]string(nil), ingredients...)
	sort.Strings(cols)

	t := &UsageTable{
		Granularity: g,
		Index:       index,
		Ingredients: cols,
		values:      make(map[string][]float64, len(cols)),
		position:    make(map[int64]int, len(index)),
	}
	for _, id := range cols {
		t.values[id] = make([]float64, len(index))
	}
	for i, ts := range index {
		t.position[ts.Unix()] = i
	}
	return t
}

func (t *UsageTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Index)
}

// Empty reports whether the table has no rows or no ingredient columns.
func (t *UsageTable) Empty() bool {
	return t == nil || len(t.Index) == 0 || len(t.Ingredients) == 0
}

func (t *UsageTable) Has(ingredient string) bool {
	_, ok := t.values[ingredient]
	return ok
}

// Position returns the row of ts, if ts is part of the index.
func (t *UsageTable) Position(ts time.Time) (int, bool) {
	i, ok := t.position[ts.Unix()]
	return i, ok
}

// Series returns the column for ingredient. The slice is shared with the table.
func (t *UsageTable) Series(ingredient string) []float64 {
	return t.values[ingredient]
}

// SetSeries replaces a column. values must have one entry per row.
func (t *UsageTable) SetSeries(ingredient string, values []float64) error {
	col, ok := t.values[ingredient]
	if !ok {
		return fmt.Errorf("unknown ingredient %q", ingredient)
	}
	if len(values) != len(col) {
		return fmt.Errorf("ingredient %q: got %d values for %d rows", ingredient, len(values), len(col))
	}
	copy(col, values)
	return nil
}

func (t *UsageTable) Add(row int, ingredient string, v float64) {
	t.values[ingredient][row] += v
}

func (t *UsageTable) Value(row int, ingredient string) float64 {
	return t.values[ingredient][row]
}

// Row returns the values of one index entry keyed by ingredient.
func (t *UsageTable) Row(row int) map[string]float64 {
	out := make(map[string]float64, len(t.Ingredients))
	for _, id := range t.Ingredients {
		out[id] = t.values[id][row]
	}
	return out
}

// RowTotals sums every row across ingredients.
func (t *UsageTable) RowTotals() []float64 {
	totals := make([]float64, len(t.Index))
	for _, id := range t.Ingredients {
		for i, v := range t.values[id] {
			totals[i] += v
		}
	}
	return totals
}

func (t *UsageTable) ColumnTotal(ingredient string) float64 {
	var sum float64
	for _, v := range t.values[ingredient] {
		sum += v
	}
	return sum
}

// Totals returns the column total of every ingredient.
func (t *UsageTable) Totals() map[string]float64 {
	out := make(map[string]float64, len(t.Ingredients))
	for _, id := range t.Ingredients {
		out[id] = t.ColumnTotal(id)
	}
	return out
}

func (t *UsageTable) Sum() float64 {
	var sum float64
	for _, id := range t.Ingredients {
		sum += t.ColumnTotal(id)
	}
	return sum
}

// TopIngredients returns up to n ingredients with the largest column totals.
// Ties are broken by ingredient id.
func (t *UsageTable) TopIngredients(n int) []IngredientQuantity {
	totals := make([]IngredientQuantity, 0, len(t.Ingredients))
	for _, id := range t.Ingredients {
		totals = append(totals, IngredientQuantity{Ingredient: id, Quantity: t.ColumnTotal(id)})
	}
	SortQuantities(totals)
	if n < len(totals) {
		totals = totals[:n]
	}
	return totals
}

// SelectRows returns a copy holding only the rows for which keep is true.
func (t *UsageTable) SelectRows(keep func(ts time.Time) bool) *UsageTable {
	var index []time.Time
	var rows []int
	for i, ts := range t.Index {
		if keep(ts) {
			index = append(index, ts)
			rows = append(rows, i)
		}
	}
	out := NewUsageTable(t.Granularity, index, t.Ingredients)
	for _, id := range t.Ingredients {
		src, dst := t.values[id], out.values[id]
		for j, i := range rows {
			dst[j] = src[i]
		}
	}
	return out
}

// Daily folds the table into calendar-day buckets. A daily table is returned unchanged.
func (t *UsageTable) Daily() *UsageTable {
	if t.Granularity == Daily {
		return t
	}
	dates := DatesCovering(t.Index)
	daily := NewUsageTable(Daily, dates, t.Ingredients)

	rowDay := make([]int, len(t.Index))
	d := 0
	for i, ts := range t.Index {
		for !dates[d].Equal(DayFloor(ts)) {
			d++
		}
		rowDay[i] = d
	}
	for _, id := range t.Ingredients {
		src := t.values[id]
		dst := daily.values[id]
		for i, v := range src {
			dst[rowDay[i]] += v
		}
	}
	return daily
}

// IngredientQuantity pairs an ingredient with an amount.
type IngredientQuantity struct {
	Ingredient string  `json:"ingredient"`
	Quantity   float64 `json:"quantity"`
}

// SortQuantities orders by descending quantity, then ascending ingredient.
func SortQuantities(q []IngredientQuantity) {
	sort.SliceStable(q, func(i, j int) bool {
		if q[i].Quantity != q[j].Quantity {
			return q[i].Quantity > q[j].Quantity
		}
		return q[i].Ingredient < q[j].Ingredient
	})
}
