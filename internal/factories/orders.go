// Package factories generates order histories and recipes for tests and demos.
package factories

import (
	"math/rand"
	"sort"
	"time"

	"github.com/chrisdamba/prepcast/internal/models"
	"github.com/jaswdr/faker"
)

// DefaultRecipes is a small burger menu.
func DefaultRecipes() models.RecipeMap {
	return models.RecipeMap{
		"Classic Burger": {"bun": 1, "beef_patty": 1, "lettuce": 0.05, "tomato": 0.1},
		"Cheeseburger":   {"bun": 1, "beef_patty": 1, "cheese": 0.05},
		"Caesar Salad":   {"lettuce": 0.2, "chicken": 0.15, "cheese": 0.02},
		"Fries":          {"potato": 0.3},
		"Milkshake":      {"milk": 0.3, "ice_cream": 0.15},
	}
}

type OrderFactory struct {
	fake faker.Faker
	// Open and Close bound the hours at which orders are placed.
	Open, Close int
}

// NewOrderFactory returns a factory whose output is fixed by seed.
func NewOrderFactory(seed int64) *OrderFactory {
	return &OrderFactory{
		fake:  faker.NewWithSeed(rand.NewSource(seed)),
		Open:  11,
		Close: 22,
	}
}

// CreateOrder builds one served order at the given time with one order item
// per menu item name.
func (f *OrderFactory) CreateOrder(at time.Time, items ...string) []models.OrderEvent {
	orderID := f.fake.UUID().V4()
	events := make([]models.OrderEvent, 0, len(items))
	for _, name := range items {
		events = append(events, models.OrderEvent{
			OrderID:      orderID,
			OrderItemID:  f.fake.UUID().V4(),
			Timestamp:    at,
			MenuItemName: name,
			Served:       true,
		})
	}
	return events
}

// CreateDay places count single-item orders of each menu item at random
// times within the opening hours of day.
func (f *OrderFactory) CreateDay(day time.Time, counts map[string]int) []models.OrderEvent {
	day = models.DayFloor(day)
	open := day.Add(time.Duration(f.Open) * time.Hour)
	closing := day.Add(time.Duration(f.Close)*time.Hour - time.Second)

	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)

	var events []models.OrderEvent
	for _, name := range names {
		for i := 0; i < counts[name]; i++ {
			at := f.fake.Time().TimeBetween(open, closing).In(day.Location())
			events = append(events, f.CreateOrder(at, name)...)
		}
	}
	sort.Slice(events, func(i, j int) bool { return events[i].Timestamp.Before(events[j].Timestamp) })
	return events
}

// CreateHistory builds days of orders starting at start. counts returns the
// number of orders per menu item for each day.
func (f *OrderFactory) CreateHistory(start time.Time, days int, counts func(day time.Time) map[string]int) []models.OrderEvent {
	var events []models.OrderEvent
	for d := 0; d < days; d++ {
		day := models.DayFloor(start).AddDate(0, 0, d)
		events = append(events, f.CreateDay(day, counts(day))...)
	}
	return events
}

// WeeklyCounts returns a counts function with busier weekends and a random
// jitter of up to jitter orders per item per day.
func (f *OrderFactory) WeeklyCounts(base map[string]int, jitter int) func(day time.Time) map[string]int {
	return func(day time.Time) map[string]int {
		names := make([]string, 0, len(base))
		for name := range base {
			names = append(names, name)
		}
		sort.Strings(names)

		out := make(map[string]int, len(base))
		for _, name := range names {
			n := base[name]
			switch day.Weekday() {
			case time.Friday, time.Saturday:
				n = n * 3 / 2
			case time.Monday:
				n = n * 3 / 4
			}
			if jitter > 0 {
				n += f.fake.IntBetween(0, jitter)
			}
			out[name] = n
		}
		return out
	}
}
