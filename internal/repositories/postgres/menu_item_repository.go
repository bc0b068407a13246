package postgres

import (
	"context"
	"fmt"

	"github.com/chrisdamba/prepcast/internal/models"
	"github.com/jackc/pgx/v5/pgxpool"
)

type MenuItemRepository struct {
	pool *pgxpool.Pool
}

func NewMenuItemRepository(pool *pgxpool.Pool) *MenuItemRepository {
	return &MenuItemRepository{pool: pool}
}

// FetchMenuItemIngredients returns the recipe of every menu item keyed by menu item name.
func (r *MenuItemRepository) FetchMenuItemIngredients(ctx context.Context) (models.RecipeMap, error) {
	query := `
        SELECT
            m.name,
            i.ingredientid::text,
            mi.quantity::float8
        FROM menuitemingredients mi
        JOIN menuitems m ON mi.menuitemid = m.menuitemid
        JOIN ingredients i ON mi.ingredientid = i.ingredientid
        ORDER BY m.name, i.ingredientid
    `
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error querying menu item ingredients: %w", err)
	}
	defer rows.Close()

	recipes := make(models.RecipeMap)
	for rows.Next() {
		var menuItem, ingredient string
		var quantity float64
		if err := rows.Scan(&menuItem, &ingredient, &quantity); err != nil {
			return nil, err
		}
		if recipes[menuItem] == nil {
			recipes[menuItem] = make(map[string]float64)
		}
		recipes[menuItem][ingredient] = quantity
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error reading menu item ingredients: %w", err)
	}
	return recipes, nil
}
