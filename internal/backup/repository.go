package backup

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository gives the backup service raw access to every exported table.
// Table names always come from tableOrder, never from user input, so the
// interpolated identifiers below are safe.
type Repository interface {
	ExportTable(ctx context.Context, table string) ([]json.RawMessage, error)
	InsertRow(ctx context.Context, table string, row map[string]any) error
	CountRows(ctx context.Context, table string) (int64, error)
	ClearTableTx(ctx context.Context, tx pgx.Tx, table string) (int64, error)
}

type PGRepository struct {
	Pool *pgxpool.Pool
}

func NewPGRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{Pool: pool}
}

func (r *PGRepository) ExportTable(ctx context.Context, table string) ([]json.RawMessage, error) {
	rows, err := r.Pool.Query(ctx, fmt.Sprintf(`SELECT row_to_json(t) FROM %s t`, table))
	if err != nil {
		return nil, fmt.Errorf("backup: export %s: %w", table, err)
	}
	defer rows.Close()

	out := make([]json.RawMessage, 0, 64)
	for rows.Next() {
		var raw json.RawMessage
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("backup: export %s scan: %w", table, err)
		}
		out = append(out, raw)
	}
	return out, rows.Err()
}

// InsertRow appends one exported row. Each row is its own statement so
// a bad record cannot poison the rest of the restore.
func (r *PGRepository) InsertRow(ctx context.Context, table string, row map[string]any) error {
	if len(row) == 0 {
		return fmt.Errorf("backup: empty row for %s", table)
	}

	cols := make([]string, 0, len(row))
	for col := range row {
		cols = append(cols, col)
	}
	sort.Strings(cols)

	placeholders := make([]string, len(cols))
	args := make([]any, len(cols))
	for i, col := range cols {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = normalizeValue(row[col])
	}

	query := fmt.Sprintf(
		`INSERT INTO %s (%s) VALUES (%s) ON CONFLICT DO NOTHING`,
		table, strings.Join(cols, ", "), strings.Join(placeholders, ", "),
	)
	if _, err := r.Pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("backup: insert into %s: %w", table, err)
	}
	return nil
}

func (r *PGRepository) CountRows(ctx context.Context, table string) (int64, error) {
	var count int64
	err := r.Pool.QueryRow(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, table)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("backup: count %s: %w", table, err)
	}
	return count, nil
}

func (r *PGRepository) ClearTableTx(ctx context.Context, tx pgx.Tx, table string) (int64, error) {
	tag, err := tx.Exec(ctx, fmt.Sprintf(`DELETE FROM %s`, table))
	if err != nil {
		return 0, fmt.Errorf("backup: clear %s: %w", table, err)
	}
	return tag.RowsAffected(), nil
}

// normalizeValue converts values produced by decoding row_to_json output
// into shapes pgx can encode. Arrays of strings become []string for TEXT[]
// columns and nested objects go back to JSON bytes for jsonb columns.
func normalizeValue(v any) any {
	switch val := v.(type) {
	case []any:
		strs := make([]string, 0, len(val))
		for _, item := range val {
			s, ok := item.(string)
			if !ok {
				raw, _ := json.Marshal(val)
				return raw
			}
			strs = append(strs, s)
		}
		return strs
	case map[string]any:
		raw, _ := json.Marshal(val)
		return raw
	default:
		return v
	}
}
