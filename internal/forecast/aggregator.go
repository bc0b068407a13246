package forecast

import (
	"fmt"
	"log"
	"time"

	"github.com/chrisdamba/prepcast/internal/models"
)

// Aggregate converts order items into an hourly usage table with one column per
// recipe ingredient. Each order item counts as one portion of its menu item.
// Items whose menu item has no recipe are skipped and counted.
func Aggregate(orders []models.OrderEvent, recipes models.RecipeMap) (*models.Aggregation, error) {
	if len(orders) == 0 {
		return nil, fmt.Errorf("no orders found: %w", ErrDataUnavailable)
	}
	if len(recipes) == 0 {
		return nil, fmt.Errorf("no menu item ingredients found: %w", ErrDataUnavailable)
	}

	first, last := orders[0].Timestamp, orders[0].Timestamp
	for _, order := range orders[1:] {
		if order.Timestamp.Before(first) {
			first = order.Timestamp
		}
		if order.Timestamp.After(last) {
			last = order.Timestamp
		}
	}
	start := models.HourFloor(first)
	end := models.HourFloor(last).Add(time.Hour)
	hours := int(end.Sub(start)/time.Hour) + 1

	table := models.NewUsageTable(models.Hourly, models.HourlyIndex(start, hours), recipes.Ingredients())
	agg := &models.Aggregation{Table: table}

	for _, order := range orders {
		ingredients, ok := recipes[order.MenuItemName]
		if !ok {
			agg.Skipped++
			continue
		}
		row, ok := table.Position(models.HourFloor(order.Timestamp))
		if !ok {
			return nil, fmt.Errorf("order %s at %s falls outside the usage index", order.OrderID, order.Timestamp)
		}
		for ingredient, amount := range ingredients {
			table.Add(row, ingredient, amount)
		}
		agg.Processed++
	}

	log.Printf("Processed %d order items, skipped %d without ingredient data", agg.Processed, agg.Skipped)
	return agg, nil
}

// UsageStats are the headline numbers of a historical usage table.
type UsageStats struct {
	Total          float64
	BusiestHour    models.HourUsage
	AverageHourly  float64
	NonZeroCells   int
	UsedIngredient int
	Top            []models.IngredientQuantity
}

// Stats summarises an hourly usage table.
func Stats(table *models.UsageTable) UsageStats {
	var stats UsageStats
	if table.Empty() {
		return stats
	}
	for i, total := range table.RowTotals() {
		stats.Total += total
		if i == 0 || total > stats.BusiestHour.Total {
			stats.BusiestHour = models.HourUsage{Hour: table.Index[i], Total: total}
		}
	}
	stats.AverageHourly = stats.Total / float64(table.Len())
	for _, id := range table.Ingredients {
		used := false
		for _, v := range table.Series(id) {
			if v > 0 {
				stats.NonZeroCells++
				used = true
			}
		}
		if used {
			stats.UsedIngredient++
		}
	}
	stats.Top = table.TopIngredients(5)
	return stats
}
