package sales

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dokan-pos/dokan-pos/internal/shared"
)

// Repository defines sale persistence. Creation methods ride the
// workflow transaction.
type Repository interface {
	NextNumberTx(ctx context.Context, tx pgx.Tx, at time.Time) (string, error)
	CreateTx(ctx context.Context, tx pgx.Tx, sale *Sale) error
	InsertPaymentTx(ctx context.Context, tx pgx.Tx, saleID int64, method, transactionID string, amount float64) error
	Get(ctx context.Context, id int64) (Sale, error)
	GetByNumber(ctx context.Context, number string) (Sale, error)
	List(ctx context.Context, filter Filter) ([]Sale, int, error)
	UpdateStatus(ctx context.Context, id int64, status string) error
	DailySummaries(ctx context.Context, from, to time.Time) ([]DailySummary, error)
	PaymentStats(ctx context.Context, from, to time.Time) ([]PaymentStat, error)
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

func (r *repository) NextNumberTx(ctx context.Context, tx pgx.Tx, at time.Time) (string, error) {
	return shared.NextDocNumber(ctx, tx, NumberPrefix, at)
}

func (r *repository) CreateTx(ctx context.Context, tx pgx.Tx, sale *Sale) error {
	err := tx.QueryRow(ctx, `
		INSERT INTO sales
			(sale_number, customer_id, customer_name, customer_phone, subtotal, tax, discount,
			 delivery_type, delivery_address, delivery_charges, total, payment_method,
			 transaction_id, status, notes, sold_by_id, sold_by_name, created_at, updated_at)
		VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), $5, $6, $7, NULLIF($8, ''), NULLIF($9, ''),
			$10, $11, $12, NULLIF($13, ''), $14, NULLIF($15, ''), $16, $17, NOW(), NOW())
		RETURNING id, created_at, updated_at`,
		sale.SaleNumber, sale.CustomerID, sale.CustomerName, sale.CustomerPhone,
		sale.Subtotal, sale.Tax, sale.Discount, sale.DeliveryType, sale.DeliveryAddress,
		sale.DeliveryCharges, sale.Total, sale.PaymentMethod, sale.TransactionID,
		sale.Status, sale.Notes, sale.SoldByID, sale.SoldByName).
		Scan(&sale.ID, &sale.CreatedAt, &sale.UpdatedAt)
	if err != nil {
		return err
	}
	for i := range sale.Items {
		item := &sale.Items[i]
		item.SaleID = sale.ID
		err := tx.QueryRow(ctx, `
			INSERT INTO sale_items (sale_id, product_id, product_name, imei, quantity, unit_price, line_total)
			VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7)
			RETURNING id`,
			item.SaleID, item.ProductID, item.ProductName, item.IMEI,
			item.Quantity, item.UnitPrice, item.LineTotal).
			Scan(&item.ID)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *repository) InsertPaymentTx(ctx context.Context, tx pgx.Tx, saleID int64, method, transactionID string, amount float64) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO transactions (sale_id, method, external_id, amount, created_at)
		VALUES ($1, $2, $3, $4, NOW())`,
		saleID, method, transactionID, amount)
	return err
}

const saleColumns = `id, sale_number, customer_id, COALESCE(customer_name, ''), COALESCE(customer_phone, ''),
	subtotal, tax, discount, COALESCE(delivery_type, ''), COALESCE(delivery_address, ''),
	delivery_charges, total, payment_method, COALESCE(transaction_id, ''),
	status, COALESCE(notes, ''), sold_by_id, sold_by_name, created_at, updated_at`

func scanSale(row pgx.Row) (Sale, error) {
	var s Sale
	err := row.Scan(&s.ID, &s.SaleNumber, &s.CustomerID, &s.CustomerName, &s.CustomerPhone,
		&s.Subtotal, &s.Tax, &s.Discount, &s.DeliveryType, &s.DeliveryAddress,
		&s.DeliveryCharges, &s.Total, &s.PaymentMethod, &s.TransactionID, &s.Status, &s.Notes,
		&s.SoldByID, &s.SoldByName, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Sale{}, shared.ErrNotFound
	}
	return s, err
}

func (r *repository) loadItems(ctx context.Context, sale *Sale) error {
	rows, err := r.db.Query(ctx, `
		SELECT id, sale_id, product_id, product_name, COALESCE(imei, ''), quantity, unit_price, line_total
		FROM sale_items WHERE sale_id = $1 ORDER BY id`, sale.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var item SaleItem
		if err := rows.Scan(&item.ID, &item.SaleID, &item.ProductID, &item.ProductName,
			&item.IMEI, &item.Quantity, &item.UnitPrice, &item.LineTotal); err != nil {
			return err
		}
		sale.Items = append(sale.Items, item)
	}
	return rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Sale, error) {
	sale, err := scanSale(r.db.QueryRow(ctx, `SELECT `+saleColumns+` FROM sales WHERE id = $1`, id))
	if err != nil {
		return Sale{}, err
	}
	if err := r.loadItems(ctx, &sale); err != nil {
		return Sale{}, err
	}
	return sale, nil
}

func (r *repository) GetByNumber(ctx context.Context, number string) (Sale, error) {
	sale, err := scanSale(r.db.QueryRow(ctx, `SELECT `+saleColumns+` FROM sales WHERE sale_number = $1`, number))
	if err != nil {
		return Sale{}, err
	}
	if err := r.loadItems(ctx, &sale); err != nil {
		return Sale{}, err
	}
	return sale, nil
}

func (r *repository) List(ctx context.Context, filter Filter) ([]Sale, int, error) {
	var (
		clauses  []string
		args     []any
		argCount = 1
	)
	addClause := func(clause string, value any) {
		clauses = append(clauses, strings.ReplaceAll(clause, "?", "$"+strconv.Itoa(argCount)))
		args = append(args, value)
		argCount++
	}

	if filter.Status != "" {
		addClause("status = ?", filter.Status)
	}
	if filter.PaymentMethod != "" {
		addClause("payment_method = ?", filter.PaymentMethod)
	}
	if filter.CustomerID > 0 {
		addClause("customer_id = ?", filter.CustomerID)
	}
	if filter.Search != "" {
		addClause("(sale_number ILIKE ? OR customer_name ILIKE ? OR customer_phone ILIKE ?)", "%"+filter.Search+"%")
	}
	if !filter.From.IsZero() {
		addClause("created_at >= ?", filter.From)
	}
	if !filter.To.IsZero() {
		addClause("created_at < ?", filter.To)
	}

	where := ""
	if len(clauses) > 0 {
		where = " WHERE " + strings.Join(clauses, " AND ")
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM sales`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	perPage := filter.PerPage
	if perPage <= 0 || perPage > 200 {
		perPage = 50
	}
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	args = append(args, perPage, (page-1)*perPage)

	query := `SELECT ` + saleColumns + ` FROM sales` + where + `
		ORDER BY created_at DESC, id DESC
		LIMIT $` + strconv.Itoa(argCount) + ` OFFSET $` + strconv.Itoa(argCount+1)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var sales []Sale
	for rows.Next() {
		s, err := scanSale(rows)
		if err != nil {
			return nil, 0, err
		}
		sales = append(sales, s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	for i := range sales {
		if err := r.loadItems(ctx, &sales[i]); err != nil {
			return nil, 0, err
		}
	}
	return sales, total, nil
}

func (r *repository) UpdateStatus(ctx context.Context, id int64, status string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE sales SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) DailySummaries(ctx context.Context, from, to time.Time) ([]DailySummary, error) {
	rows, err := r.db.Query(ctx, `
		SELECT day, COUNT(*), SUM(units), SUM(total), SUM(tax)
		FROM (
			SELECT s.id, TO_CHAR(s.created_at, 'YYYY-MM-DD') AS day, s.total, s.tax,
			       (SELECT COALESCE(SUM(i.quantity), 0) FROM sale_items i WHERE i.sale_id = s.id) AS units
			FROM sales s
			WHERE s.status <> 'cancelled' AND s.created_at >= $1 AND s.created_at < $2
		) per_sale
		GROUP BY day
		ORDER BY day`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summaries []DailySummary
	for rows.Next() {
		var d DailySummary
		if err := rows.Scan(&d.Day, &d.SaleCount, &d.UnitsSold, &d.GrossTotal, &d.TaxTotal); err != nil {
			return nil, err
		}
		summaries = append(summaries, d)
	}
	return summaries, rows.Err()
}

func (r *repository) PaymentStats(ctx context.Context, from, to time.Time) ([]PaymentStat, error) {
	rows, err := r.db.Query(ctx, `
		SELECT payment_method, COUNT(*), COALESCE(SUM(total), 0)
		FROM sales
		WHERE status <> 'cancelled' AND created_at >= $1 AND created_at < $2
		GROUP BY payment_method
		ORDER BY SUM(total) DESC`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []PaymentStat
	for rows.Next() {
		var s PaymentStat
		if err := rows.Scan(&s.Method, &s.Count, &s.Total); err != nil {
			return nil, err
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

var _ Repository = (*repository)(nil)
