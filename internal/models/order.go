package models

import (
	"sort"
	"time"
)

// OrderEvent is one served order item as read from the order history.
type OrderEvent struct {
	OrderID      string    `json:"order_id"`
	OrderItemID  string    `json:"order_item_id"`
	Timestamp    time.Time `json:"order_timestamp"`
	MenuItemName string    `json:"menu_item_name"`
	Served       bool      `json:"served"`
	Returned     bool      `json:"returned"`
}

// RecipeMap maps a menu item name to the ingredient quantities one portion needs.
type RecipeMap map[string]map[string]float64

// Ingredients returns every ingredient referenced by the recipe map, sorted.
func (r RecipeMap) Ingredients() []string {
	seen := make(map[string]struct{})
	for _, ingredients := range r {
		for id := range ingredients {
			seen[id] = struct{}{}
		}
	}
	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
