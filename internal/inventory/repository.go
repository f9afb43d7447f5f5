package inventory

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository reads the movement ledger.
type Repository interface {
	ListMovements(ctx context.Context, filter Filter) ([]Movement, int64, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// ListMovements returns a filtered, newest-first page of the ledger
// together with the total match count.
func (r *PGRepository) ListMovements(ctx context.Context, filter Filter) ([]Movement, int64, error) {
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

	if filter.ProductID > 0 {
		addClause("product_id = ?", filter.ProductID)
	}
	if filter.Direction != "" {
		addClause("direction = ?", string(filter.Direction))
	}
	if filter.Reason != "" {
		addClause("reason = ?", filter.Reason)
	}
	if filter.Reference != "" {
		addClause("reference = ?", filter.Reference)
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

	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM stock_movements`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("inventory: count movements: %w", err)
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

	query := `
		SELECT id, product_id, product_name, direction, quantity, previous_stock, new_stock,
		       reason, reference, COALESCE(imei, ''), notes, actor_id, actor_name, created_at
		FROM stock_movements` + where + `
		ORDER BY created_at DESC, id DESC
		LIMIT $` + strconv.Itoa(argCount) + ` OFFSET $` + strconv.Itoa(argCount+1)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("inventory: list movements: %w", err)
	}
	defer rows.Close()

	var movements []Movement
	for rows.Next() {
		var m Movement
		if err := rows.Scan(&m.ID, &m.ProductID, &m.ProductName, &m.Direction, &m.Quantity,
			&m.PrevStock, &m.NewStock, &m.Reason, &m.Reference, &m.IMEI, &m.Notes,
			&m.ActorID, &m.ActorName, &m.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("inventory: scan movement: %w", err)
		}
		movements = append(movements, m)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("inventory: iterate movements: %w", err)
	}
	return movements, total, nil
}

var _ Repository = (*PGRepository)(nil)
