package purchasing

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

// Repository defines purchase persistence.
type Repository interface {
	NextNumberTx(ctx context.Context, tx pgx.Tx, at time.Time) (string, error)
	CreateTx(ctx context.Context, tx pgx.Tx, purchase *Purchase) error
	Get(ctx context.Context, id int64) (Purchase, error)
	GetForUpdateTx(ctx context.Context, tx pgx.Tx, id int64) (Purchase, error)
	List(ctx context.Context, filter Filter) ([]Purchase, int, error)
	MarkReceivedTx(ctx context.Context, tx pgx.Tx, id int64, at time.Time) error
	MarkCancelled(ctx context.Context, id int64) error
	Stats(ctx context.Context) (Stats, error)
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

func (r *repository) CreateTx(ctx context.Context, tx pgx.Tx, purchase *Purchase) error {
	err := tx.QueryRow(ctx, `
		INSERT INTO purchases
			(purchase_number, supplier_id, supplier_name, subtotal, tax, total, status,
			 expected_at, notes, created_by_id, created_by_name, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NULLIF($9, ''), $10, $11, NOW(), NOW())
		RETURNING id, created_at, updated_at`,
		purchase.PurchaseNumber, purchase.SupplierID, purchase.SupplierName,
		purchase.Subtotal, purchase.Tax, purchase.Total, purchase.Status,
		purchase.ExpectedAt, purchase.Notes, purchase.CreatedByID, purchase.CreatedByName).
		Scan(&purchase.ID, &purchase.CreatedAt, &purchase.UpdatedAt)
	if err != nil {
		return err
	}
	for i := range purchase.Items {
		item := &purchase.Items[i]
		item.PurchaseID = purchase.ID
		err := tx.QueryRow(ctx, `
			INSERT INTO purchase_items (purchase_id, product_id, product_name, quantity, unit_cost, line_total, imei_numbers)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING id`,
			item.PurchaseID, item.ProductID, item.ProductName,
			item.Quantity, item.UnitCost, item.LineTotal, item.IMEINumbers).
			Scan(&item.ID)
		if err != nil {
			return err
		}
	}
	return nil
}

const purchaseColumns = `id, purchase_number, supplier_id, supplier_name, subtotal, tax, total, status,
	expected_at, received_at, COALESCE(notes, ''), created_by_id, created_by_name, created_at, updated_at`

func scanPurchase(row pgx.Row) (Purchase, error) {
	var p Purchase
	err := row.Scan(&p.ID, &p.PurchaseNumber, &p.SupplierID, &p.SupplierName,
		&p.Subtotal, &p.Tax, &p.Total, &p.Status, &p.ExpectedAt, &p.ReceivedAt,
		&p.Notes, &p.CreatedByID, &p.CreatedByName, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Purchase{}, shared.ErrNotFound
	}
	return p, err
}

func (r *repository) loadItems(ctx context.Context, q interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}, purchase *Purchase) error {
	rows, err := q.Query(ctx, `
		SELECT id, purchase_id, product_id, product_name, quantity, unit_cost, line_total, COALESCE(imei_numbers, '{}')
		FROM purchase_items WHERE purchase_id = $1 ORDER BY id`, purchase.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var item PurchaseItem
		if err := rows.Scan(&item.ID, &item.PurchaseID, &item.ProductID, &item.ProductName,
			&item.Quantity, &item.UnitCost, &item.LineTotal, &item.IMEINumbers); err != nil {
			return err
		}
		purchase.Items = append(purchase.Items, item)
	}
	return rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Purchase, error) {
	purchase, err := scanPurchase(r.db.QueryRow(ctx, `SELECT `+purchaseColumns+` FROM purchases WHERE id = $1`, id))
	if err != nil {
		return Purchase{}, err
	}
	if err := r.loadItems(ctx, r.db, &purchase); err != nil {
		return Purchase{}, err
	}
	return purchase, nil
}

// GetForUpdateTx locks the purchase row so a concurrent receive or
// cancel waits behind this one.
func (r *repository) GetForUpdateTx(ctx context.Context, tx pgx.Tx, id int64) (Purchase, error) {
	purchase, err := scanPurchase(tx.QueryRow(ctx, `SELECT `+purchaseColumns+` FROM purchases WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return Purchase{}, err
	}
	if err := r.loadItems(ctx, tx, &purchase); err != nil {
		return Purchase{}, err
	}
	return purchase, nil
}

func (r *repository) List(ctx context.Context, filter Filter) ([]Purchase, int, error) {
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
	if filter.SupplierID > 0 {
		addClause("supplier_id = ?", filter.SupplierID)
	}
	if filter.Search != "" {
		addClause("(purchase_number ILIKE ? OR supplier_name ILIKE ?)", "%"+filter.Search+"%")
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
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM purchases`+where, args...).Scan(&total); err != nil {
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

	query := `SELECT ` + purchaseColumns + ` FROM purchases` + where + `
		ORDER BY created_at DESC, id DESC
		LIMIT $` + strconv.Itoa(argCount) + ` OFFSET $` + strconv.Itoa(argCount+1)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var purchases []Purchase
	for rows.Next() {
		p, err := scanPurchase(rows)
		if err != nil {
			return nil, 0, err
		}
		purchases = append(purchases, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	for i := range purchases {
		if err := r.loadItems(ctx, r.db, &purchases[i]); err != nil {
			return nil, 0, err
		}
	}
	return purchases, total, nil
}

func (r *repository) MarkReceivedTx(ctx context.Context, tx pgx.Tx, id int64, at time.Time) error {
	tag, err := tx.Exec(ctx, `
		UPDATE purchases SET status = $2, received_at = $3, updated_at = NOW() WHERE id = $1`,
		id, StatusReceived, at.UTC())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) MarkCancelled(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE purchases SET status = $2, updated_at = NOW() WHERE id = $1 AND status = $3`,
		id, StatusCancelled, StatusPending)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrConflict
	}
	return nil
}

func (r *repository) Stats(ctx context.Context) (Stats, error) {
	rows, err := r.db.Query(ctx, `SELECT status, COUNT(*), COALESCE(SUM(total), 0) FROM purchases GROUP BY status`)
	if err != nil {
		return Stats{}, err
	}
	defer rows.Close()

	var stats Stats
	for rows.Next() {
		var (
			status string
			count  int
			value  float64
		)
		if err := rows.Scan(&status, &count, &value); err != nil {
			return Stats{}, err
		}
		switch status {
		case StatusPending:
			stats.PendingCount = count
			stats.PendingValue = value
		case StatusReceived:
			stats.ReceivedCount = count
			stats.ReceivedValue = value
		case StatusCancelled:
			stats.CancelledCount = count
		}
	}
	return stats, rows.Err()
}

var _ Repository = (*repository)(nil)
