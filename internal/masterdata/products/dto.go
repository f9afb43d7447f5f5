package products

// productRequest is the create/update payload.
type productRequest struct {
	Name           string            `json:"name" validate:"required,min=2"`
	Brand          string            `json:"brand"`
	Model          string            `json:"model"`
	SKU            string            `json:"sku" validate:"required,min=2"`
	Barcode        string            `json:"barcode"`
	IMEI           string            `json:"imei" validate:"omitempty,len=15,numeric"`
	CategoryID     int64             `json:"categoryId" validate:"required,gt=0"`
	PurchasePrice  float64           `json:"purchasePrice" validate:"gte=0"`
	SellingPrice   float64           `json:"sellingPrice" validate:"gte=0"`
	CurrentStock   int               `json:"currentStock" validate:"gte=0"`
	MinStockLevel  int               `json:"minStockLevel" validate:"gte=0"`
	Unit           string            `json:"unit"`
	IsActive       *bool             `json:"isActive"`
	WarrantyMonths int               `json:"warrantyMonths" validate:"gte=0"`
	Specifications map[string]string `json:"specifications"`
	Description    string            `json:"description"`
	SupplierName   string            `json:"supplierName"`
	SupplierMobile string            `json:"supplierMobile"`
	SupplierNID    string            `json:"supplierNid"`
}

func (req productRequest) toProduct() Product {
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	return Product{
		Name:           req.Name,
		Brand:          req.Brand,
		Model:          req.Model,
		SKU:            req.SKU,
		Barcode:        req.Barcode,
		IMEI:           req.IMEI,
		CategoryID:     req.CategoryID,
		PurchasePrice:  req.PurchasePrice,
		SellingPrice:   req.SellingPrice,
		CurrentStock:   req.CurrentStock,
		MinStockLevel:  req.MinStockLevel,
		Unit:           req.Unit,
		IsActive:       active,
		WarrantyMonths: req.WarrantyMonths,
		Specifications: req.Specifications,
		Description:    req.Description,
		SupplierName:   req.SupplierName,
		SupplierMobile: req.SupplierMobile,
		SupplierNID:    req.SupplierNID,
	}
}
