package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/chrisdamba/prepcast/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type OrderRepository struct {
	pool *pgxpool.Pool
	loc  *time.Location
}

// NewOrderRepository reads order timestamps as wall-clock times in loc.
func NewOrderRepository(pool *pgxpool.Pool, loc *time.Location) *OrderRepository {
	return &OrderRepository{pool: pool, loc: loc}
}

// FetchHistoricalOrders returns every order item placed in [start, end), oldest first.
// The bounds are compared by their wall clock, like the stored timestamps.
func (r *OrderRepository) FetchHistoricalOrders(ctx context.Context, start, end time.Time) ([]models.OrderEvent, error) {
	query := `
        SELECT
            o.orderid::text,
            oi.orderitemid::text,
            o.ordertimestamp,
            mi.name,
            COALESCE(oi.served, false),
            COALESCE(oi.returned, false)
        FROM orders o
        JOIN orderitems oi ON o.orderid = oi.orderid
        JOIN menuitems mi ON oi.menuitemid = mi.menuitemid
        WHERE o.ordertimestamp >= $1 AND o.ordertimestamp < $2
        ORDER BY o.ordertimestamp ASC
    `
	rows, err := r.pool.Query(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("error querying orders: %w", err)
	}

	orders, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.OrderEvent, error) {
		var order models.OrderEvent
		err := row.Scan(
			&order.OrderID,
			&order.OrderItemID,
			&order.Timestamp,
			&order.MenuItemName,
			&order.Served,
			&order.Returned,
		)
		order.Timestamp = models.WallClockIn(order.Timestamp, r.loc)
		return order, err
	})
	if err != nil {
		return nil, fmt.Errorf("error reading orders: %w", err)
	}
	return orders, nil
}
