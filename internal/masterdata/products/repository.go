package products

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dokan-pos/dokan-pos/internal/shared"
)

// Repository defines persistence for the product catalog. Mutations
// that must ride a stock movement take the caller's transaction.
type Repository interface {
	List(ctx context.Context, filters ListFilters) ([]Product, int, error)
	Get(ctx context.Context, id int64) (Product, error)
	GetBySKU(ctx context.Context, sku string) (Product, error)
	GetByIMEI(ctx context.Context, imei string) (Product, error)
	GetByBarcode(ctx context.Context, barcode string) (Product, error)
	CreateTx(ctx context.Context, tx pgx.Tx, product Product) (Product, error)
	UpdateTx(ctx context.Context, tx pgx.Tx, id int64, product Product) error
	SetActive(ctx context.Context, id int64, active bool) error
	DeleteTx(ctx context.Context, tx pgx.Tx, id int64) error
	HasDocumentReferences(ctx context.Context, tx pgx.Tx, id int64) (bool, error)
	StockAndNameTx(ctx context.Context, tx pgx.Tx, id int64) (string, int, error)
	Brands(ctx context.Context) ([]string, error)
	Valuation(ctx context.Context) (Valuation, error)
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const productColumns = `p.id, p.name, p.brand, p.model, p.sku, COALESCE(p.barcode, ''), COALESCE(p.imei, ''),
	p.category_id, c.name, p.purchase_price, p.selling_price, p.current_stock, p.min_stock_level,
	p.unit, p.is_active, p.warranty_months, p.specifications, p.description,
	p.supplier_name, p.supplier_mobile, p.supplier_nid, p.created_at, p.updated_at`

func scanProduct(row pgx.Row) (Product, error) {
	var (
		p        Product
		specsRaw []byte
	)
	err := row.Scan(&p.ID, &p.Name, &p.Brand, &p.Model, &p.SKU, &p.Barcode, &p.IMEI,
		&p.CategoryID, &p.CategoryName, &p.PurchasePrice, &p.SellingPrice, &p.CurrentStock,
		&p.MinStockLevel, &p.Unit, &p.IsActive, &p.WarrantyMonths, &specsRaw, &p.Description,
		&p.SupplierName, &p.SupplierMobile, &p.SupplierNID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, shared.ErrNotFound
		}
		return Product{}, err
	}
	if len(specsRaw) > 0 {
		if err := json.Unmarshal(specsRaw, &p.Specifications); err != nil {
			return Product{}, fmt.Errorf("products: decode specifications: %w", err)
		}
	}
	return p, nil
}

func (r *repository) List(ctx context.Context, filters ListFilters) ([]Product, int, error) {
	where := ` WHERE 1=1`
	args := []any{}
	argCount := 0

	if filters.Search != "" {
		argCount++
		n := strconv.Itoa(argCount)
		where += ` AND (p.name ILIKE $` + n + ` OR p.sku ILIKE $` + n + ` OR p.brand ILIKE $` + n + ` OR p.barcode ILIKE $` + n + ` OR p.imei ILIKE $` + n + `)`
		args = append(args, "%"+filters.Search+"%")
	}
	if filters.CategoryID > 0 {
		argCount++
		where += ` AND p.category_id = $` + strconv.Itoa(argCount)
		args = append(args, filters.CategoryID)
	}
	if filters.Brand != "" {
		argCount++
		where += ` AND p.brand ILIKE $` + strconv.Itoa(argCount)
		args = append(args, filters.Brand)
	}
	if filters.LowStock {
		where += ` AND p.current_stock > 0 AND p.current_stock <= p.min_stock_level`
	}
	if filters.OutOfStock {
		where += ` AND p.current_stock = 0`
	}
	if filters.Active != nil {
		argCount++
		where += ` AND p.is_active = $` + strconv.Itoa(argCount)
		args = append(args, *filters.Active)
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM products p` + where
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + productColumns + ` FROM products p JOIN categories c ON c.id = p.category_id` + where
	query += ` ORDER BY ` + sortOrder(filters.SortBy, filters.SortDir)

	if filters.PerPage > 0 {
		argCount++
		query += ` LIMIT $` + strconv.Itoa(argCount)
		args = append(args, filters.PerPage)

		argCount++
		query += ` OFFSET $` + strconv.Itoa(argCount)
		offset := (filters.Page - 1) * filters.PerPage
		if offset < 0 {
			offset = 0
		}
		args = append(args, offset)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, err
		}
		products = append(products, p)
	}
	return products, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Product, error) {
	query := `SELECT ` + productColumns + ` FROM products p JOIN categories c ON c.id = p.category_id WHERE p.id = $1`
	return scanProduct(r.db.QueryRow(ctx, query, id))
}

func (r *repository) GetBySKU(ctx context.Context, sku string) (Product, error) {
	query := `SELECT ` + productColumns + ` FROM products p JOIN categories c ON c.id = p.category_id WHERE p.sku = $1`
	return scanProduct(r.db.QueryRow(ctx, query, sku))
}

func (r *repository) GetByIMEI(ctx context.Context, imei string) (Product, error) {
	query := `SELECT ` + productColumns + ` FROM products p JOIN categories c ON c.id = p.category_id WHERE p.imei = $1`
	return scanProduct(r.db.QueryRow(ctx, query, imei))
}

func (r *repository) GetByBarcode(ctx context.Context, barcode string) (Product, error) {
	query := `SELECT ` + productColumns + ` FROM products p JOIN categories c ON c.id = p.category_id WHERE p.barcode = $1`
	return scanProduct(r.db.QueryRow(ctx, query, barcode))
}

func (r *repository) CreateTx(ctx context.Context, tx pgx.Tx, product Product) (Product, error) {
	specs, err := marshalSpecs(product.Specifications)
	if err != nil {
		return Product{}, err
	}
	query := `INSERT INTO products
		(name, brand, model, sku, barcode, imei, category_id, purchase_price, selling_price,
		 current_stock, min_stock_level, unit, is_active, warranty_months, specifications,
		 description, supplier_name, supplier_mobile, supplier_nid, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''), $7, $8, $9, $10, $11, $12, $13,
			$14, $15, $16, $17, $18, $19, NOW(), NOW())
		RETURNING id, created_at, updated_at`
	err = tx.QueryRow(ctx, query,
		product.Name, product.Brand, product.Model, product.SKU, product.Barcode, product.IMEI,
		product.CategoryID, product.PurchasePrice, product.SellingPrice, product.CurrentStock,
		product.MinStockLevel, product.Unit, product.IsActive, product.WarrantyMonths, specs,
		product.Description, product.SupplierName, product.SupplierMobile, product.SupplierNID).
		Scan(&product.ID, &product.CreatedAt, &product.UpdatedAt)
	if err != nil {
		return Product{}, translateUniqueError(err)
	}
	return product, nil
}

func (r *repository) UpdateTx(ctx context.Context, tx pgx.Tx, id int64, product Product) error {
	specs, err := marshalSpecs(product.Specifications)
	if err != nil {
		return err
	}
	query := `UPDATE products SET
		name = $1, brand = $2, model = $3, sku = $4, barcode = NULLIF($5, ''), imei = NULLIF($6, ''),
		category_id = $7, purchase_price = $8, selling_price = $9, min_stock_level = $10,
		unit = $11, is_active = $12, warranty_months = $13, specifications = $14, description = $15,
		supplier_name = $16, supplier_mobile = $17, supplier_nid = $18, updated_at = NOW()
		WHERE id = $19`
	tag, err := tx.Exec(ctx, query,
		product.Name, product.Brand, product.Model, product.SKU, product.Barcode, product.IMEI,
		product.CategoryID, product.PurchasePrice, product.SellingPrice, product.MinStockLevel,
		product.Unit, product.IsActive, product.WarrantyMonths, specs, product.Description,
		product.SupplierName, product.SupplierMobile, product.SupplierNID, id)
	if err != nil {
		return translateUniqueError(err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) SetActive(ctx context.Context, id int64, active bool) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE products SET is_active = $2, updated_at = NOW() WHERE id = $1`, id, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) DeleteTx(ctx context.Context, tx pgx.Tx, id int64) error {
	// Ledger rows go with the product, documents keep snapshotted names.
	if _, err := tx.Exec(ctx, `DELETE FROM stock_movements WHERE product_id = $1`, id); err != nil {
		return err
	}
	tag, err := tx.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) HasDocumentReferences(ctx context.Context, tx pgx.Tx, id int64) (bool, error) {
	var referenced bool
	err := tx.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM sale_items WHERE product_id = $1)
		    OR EXISTS (SELECT 1 FROM purchase_items WHERE product_id = $1)`, id).Scan(&referenced)
	return referenced, err
}

// StockAndNameTx reads a product's name and live stock on the
// caller's transaction. Sale validation uses this before booking any
// movement.
func (r *repository) StockAndNameTx(ctx context.Context, tx pgx.Tx, id int64) (string, int, error) {
	var (
		name  string
		stock int
	)
	err := tx.QueryRow(ctx, `SELECT name, current_stock FROM products WHERE id = $1`, id).Scan(&name, &stock)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", 0, fmt.Errorf("%w: product %d", shared.ErrNotFound, id)
	}
	return name, stock, err
}

func (r *repository) Brands(ctx context.Context) ([]string, error) {
	rows, err := r.db.Query(ctx, `SELECT DISTINCT brand FROM products WHERE brand <> '' ORDER BY brand`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var brands []string
	for rows.Next() {
		var b string
		if err := rows.Scan(&b); err != nil {
			return nil, err
		}
		brands = append(brands, b)
	}
	return brands, rows.Err()
}

func (r *repository) Valuation(ctx context.Context) (Valuation, error) {
	var v Valuation
	err := r.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(current_stock), 0),
		       COALESCE(SUM(current_stock * purchase_price), 0),
		       COALESCE(SUM(current_stock * selling_price), 0),
		       COUNT(*)
		FROM products`).
		Scan(&v.TotalUnits, &v.PurchaseValue, &v.SellingValue, &v.DistinctProducts)
	if err != nil {
		return Valuation{}, err
	}
	v.PotentialProfit = v.SellingValue - v.PurchaseValue
	return v, nil
}

func marshalSpecs(specs map[string]string) ([]byte, error) {
	if len(specs) == 0 {
		return []byte("{}"), nil
	}
	raw, err := json.Marshal(specs)
	if err != nil {
		return nil, fmt.Errorf("products: encode specifications: %w", err)
	}
	return raw, nil
}

func translateUniqueError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case "23505":
		switch pgErr.ConstraintName {
		case "products_sku_key":
			return fmt.Errorf("%w: sku already in use", shared.ErrDuplicate)
		case "products_barcode_key":
			return fmt.Errorf("%w: barcode already in use", shared.ErrDuplicate)
		case "products_imei_key":
			return fmt.Errorf("%w: imei already registered", shared.ErrDuplicate)
		}
		return shared.ErrDuplicate
	case "23503":
		return fmt.Errorf("%w: unknown category", shared.ErrValidation)
	}
	return err
}

func sortOrder(sortBy, sortDir string) string {
	dir := "ASC"
	if sortDir == "desc" {
		dir = "DESC"
	}
	switch sortBy {
	case "name":
		return "p.name " + dir
	case "brand":
		return "p.brand " + dir
	case "stock":
		return "p.current_stock " + dir
	case "price":
		return "p.selling_price " + dir
	case "created_at":
		return "p.created_at " + dir
	default:
		return "p.name " + dir
	}
}
