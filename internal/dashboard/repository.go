package dashboard

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository aggregates reporting figures straight from the primary store.
type Repository interface {
	Overview(ctx context.Context, now time.Time) (Overview, error)
	TopProducts(ctx context.Context, from, to time.Time, limit int) ([]TopProduct, error)
	MonthlyRevenue(ctx context.Context, months int, now time.Time) ([]MonthlyPoint, error)
}

type PGRepository struct {
	Pool *pgxpool.Pool
}

func NewPGRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{Pool: pool}
}

func (r *PGRepository) Overview(ctx context.Context, now time.Time) (Overview, error) {
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	const query = `
		SELECT
			(SELECT COUNT(*) FROM sales WHERE created_at >= $1 AND status <> 'cancelled'),
			(SELECT COALESCE(SUM(total), 0) FROM sales WHERE created_at >= $1 AND status <> 'cancelled'),
			(SELECT COUNT(*) FROM sales WHERE created_at >= $2 AND status <> 'cancelled'),
			(SELECT COALESCE(SUM(total), 0) FROM sales WHERE created_at >= $2 AND status <> 'cancelled'),
			(SELECT COUNT(*) FROM products),
			(SELECT COUNT(*) FROM products WHERE current_stock > 0 AND current_stock <= min_stock_level),
			(SELECT COUNT(*) FROM products WHERE current_stock = 0),
			(SELECT COUNT(*) FROM purchases WHERE status = 'pending'),
			(SELECT COUNT(*) FROM customers),
			(SELECT COALESCE(SUM(current_stock * purchase_price), 0) FROM products)`

	var o Overview
	err := r.Pool.QueryRow(ctx, query, dayStart, monthStart).Scan(
		&o.TodaySales,
		&o.TodayRevenue,
		&o.MonthSales,
		&o.MonthRevenue,
		&o.ProductCount,
		&o.LowStockCount,
		&o.OutOfStockCount,
		&o.PendingPOs,
		&o.CustomerCount,
		&o.InventoryValue,
	)
	if err != nil {
		return Overview{}, fmt.Errorf("dashboard overview: %w", err)
	}
	return o, nil
}

const topProductsQuery = `
		SELECT si.product_id, si.product_name, SUM(si.quantity)::int AS units, SUM(si.line_total) AS revenue
		FROM sale_items si
		JOIN sales s ON s.id = si.sale_id
		WHERE s.created_at >= $1 AND s.created_at < $2 AND s.status <> 'cancelled'
		GROUP BY si.product_id, si.product_name
		ORDER BY units DESC, revenue DESC
		LIMIT $3`

func (r *PGRepository) TopProducts(ctx context.Context, from, to time.Time, limit int) ([]TopProduct, error) {
	rows, err := r.Pool.Query(ctx, topProductsQuery, from, to, limit)
	if err != nil {
		return nil, fmt.Errorf("dashboard top products: %w", err)
	}
	defer rows.Close()

	items := make([]TopProduct, 0, limit)
	for rows.Next() {
		var tp TopProduct
		if err := rows.Scan(&tp.ProductID, &tp.ProductName, &tp.UnitsSold, &tp.Revenue); err != nil {
			return nil, fmt.Errorf("dashboard top products scan: %w", err)
		}
		items = append(items, tp)
	}
	return items, rows.Err()
}

func (r *PGRepository) MonthlyRevenue(ctx context.Context, months int, now time.Time) ([]MonthlyPoint, error) {
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()).AddDate(0, -(months - 1), 0)

	const query = `
		SELECT to_char(date_trunc('month', created_at), 'YYYY-MM') AS month,
		       COUNT(*)::int,
		       COALESCE(SUM(total), 0),
		       COALESCE(SUM(tax), 0)
		FROM sales
		WHERE created_at >= $1 AND status <> 'cancelled'
		GROUP BY 1
		ORDER BY 1`

	rows, err := r.Pool.Query(ctx, query, start)
	if err != nil {
		return nil, fmt.Errorf("dashboard monthly revenue: %w", err)
	}
	defer rows.Close()

	points := make([]MonthlyPoint, 0, months)
	for rows.Next() {
		var p MonthlyPoint
		if err := rows.Scan(&p.Month, &p.SaleCount, &p.Revenue, &p.Tax); err != nil {
			return nil, fmt.Errorf("dashboard monthly revenue scan: %w", err)
		}
		points = append(points, p)
	}
	return points, rows.Err()
}
