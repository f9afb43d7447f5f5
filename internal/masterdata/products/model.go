package products

import "time"

// Product is a catalog entry. Phones are the common case, hence the
// IMEI and warranty fields, but accessories use the same shape with
// those left empty.
type Product struct {
	ID             int64             `json:"id"`
	Name           string            `json:"name"`
	Brand          string            `json:"brand"`
	Model          string            `json:"model"`
	SKU            string            `json:"sku"`
	Barcode        string            `json:"barcode,omitempty"`
	IMEI           string            `json:"imei,omitempty"`
	CategoryID     int64             `json:"categoryId"`
	CategoryName   string            `json:"categoryName,omitempty"`
	PurchasePrice  float64           `json:"purchasePrice"`
	SellingPrice   float64           `json:"sellingPrice"`
	CurrentStock   int               `json:"currentStock"`
	MinStockLevel  int               `json:"minStockLevel"`
	Unit           string            `json:"unit"`
	IsActive       bool              `json:"isActive"`
	WarrantyMonths int               `json:"warrantyMonths,omitempty"`
	Specifications map[string]string `json:"specifications,omitempty"`
	Description    string            `json:"description,omitempty"`
	SupplierName   string            `json:"supplierName,omitempty"`
	SupplierMobile string            `json:"supplierMobile,omitempty"`
	SupplierNID    string            `json:"supplierNid,omitempty"`
	CreatedAt      time.Time         `json:"createdAt"`
	UpdatedAt      time.Time         `json:"updatedAt"`
}

// LowOnStock reports whether the product is at or below its reorder
// threshold but not fully out.
func (p Product) LowOnStock() bool {
	return p.CurrentStock > 0 && p.CurrentStock <= p.MinStockLevel
}

// Valuation summarises what the current inventory is worth.
type Valuation struct {
	TotalUnits       int     `json:"totalUnits"`
	PurchaseValue    float64 `json:"purchaseValue"`
	SellingValue     float64 `json:"sellingValue"`
	PotentialProfit  float64 `json:"potentialProfit"`
	DistinctProducts int     `json:"distinctProducts"`
}

// ListFilters narrows product listings. Active is a tri-state: nil
// lists everything, otherwise only matching products.
type ListFilters struct {
	Search     string
	CategoryID int64
	Brand      string
	LowStock   bool
	OutOfStock bool
	Active     *bool
	SortBy     string
	SortDir    string
	Page       int
	PerPage    int
}
