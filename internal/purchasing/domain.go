package purchasing

import (
	"time"

	"github.com/dokan-pos/dokan-pos/internal/shared"
)

// NumberPrefix is the document prefix for purchase order numbers.
const NumberPrefix = "PO"

// Purchase statuses. Transitions are one-way: pending to received, or
// pending to cancelled.
const (
	StatusPending   = "pending"
	StatusReceived  = "received"
	StatusCancelled = "cancelled"
)

// Purchase is an order placed with a supplier.
type Purchase struct {
	ID             int64          `json:"id"`
	PurchaseNumber string         `json:"purchaseNumber"`
	SupplierID     int64          `json:"supplierId"`
	SupplierName   string         `json:"supplierName"`
	Items          []PurchaseItem `json:"items"`
	Subtotal       float64        `json:"subtotal"`
	Tax            float64        `json:"tax"`
	Total          float64        `json:"total"`
	Status         string         `json:"status"`
	ExpectedAt     *time.Time     `json:"expectedAt,omitempty"`
	ReceivedAt     *time.Time     `json:"receivedAt,omitempty"`
	Notes          string         `json:"notes,omitempty"`
	CreatedByID    int64          `json:"createdById"`
	CreatedByName  string         `json:"createdByName"`
	CreatedAt      time.Time      `json:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt"`
}

// PurchaseItem is one ordered line. IMEINumbers, when present, list
// the serials to assign at receiving time.
type PurchaseItem struct {
	ID          int64    `json:"id"`
	PurchaseID  int64    `json:"purchaseId"`
	ProductID   int64    `json:"productId"`
	ProductName string   `json:"productName"`
	Quantity    int      `json:"quantity"`
	UnitCost    float64  `json:"unitCost"`
	LineTotal   float64  `json:"lineTotal"`
	IMEINumbers []string `json:"imeiNumbers,omitempty"`
}

// LineInput is one requested line of a new purchase order.
type LineInput struct {
	ProductID   int64
	Quantity    int
	UnitCost    float64
	IMEINumbers []string
}

// CreateInput describes a new purchase order.
type CreateInput struct {
	SupplierID int64
	Items      []LineInput
	Tax        float64
	ExpectedAt *time.Time
	Notes      string
	Actor      shared.Actor
}

// ReceiveLine is one delivered line of a goods-received event. The
// quantity is what actually arrived, which may fall short of the
// order. IMEINumbers, when present, replace the serials listed at
// ordering time.
type ReceiveLine struct {
	ProductID        int64
	ReceivedQuantity int
	IMEINumbers      []string
}

// ReceiveInput describes a goods-received event. An empty Lines slice
// means the full order arrived as written.
type ReceiveInput struct {
	PurchaseID int64
	Lines      []ReceiveLine
	Actor      shared.Actor
}

// Filter narrows purchase listings.
type Filter struct {
	Status     string
	SupplierID int64
	Search     string
	From       time.Time
	To         time.Time
	Page       int
	PerPage    int
}

// Stats aggregates the purchase book by status.
type Stats struct {
	PendingCount   int     `json:"pendingCount"`
	ReceivedCount  int     `json:"receivedCount"`
	CancelledCount int     `json:"cancelledCount"`
	PendingValue   float64 `json:"pendingValue"`
	ReceivedValue  float64 `json:"receivedValue"`
}
