package sales

import (
	"math"
	"time"

	"github.com/dokan-pos/dokan-pos/internal/shared"
)

// TaxRate is the fixed VAT applied to every sale subtotal.
const TaxRate = 0.05

// NumberPrefix is the document prefix for sale numbers.
const NumberPrefix = "SALE"

// Sale statuses.
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusRefunded  = "refunded"
	StatusCancelled = "cancelled"
)

// Payment methods.
const (
	PaymentCash   = "cash"
	PaymentCard   = "card"
	PaymentCOD    = "cod"
	PaymentBkash  = "bkash"
	PaymentNagad  = "nagad"
	PaymentRocket = "rocket"
	PaymentUpay   = "upay"
)

var mobileBankingMethods = map[string]struct{}{
	PaymentBkash:  {},
	PaymentNagad:  {},
	PaymentRocket: {},
	PaymentUpay:   {},
}

// IsMobileBanking reports whether the method settles through a
// mobile-banking provider, whose transaction id, when supplied, gets
// its own audit record.
func IsMobileBanking(method string) bool {
	_, ok := mobileBankingMethods[method]
	return ok
}

// ValidPaymentMethod reports whether the method is one the counter
// accepts.
func ValidPaymentMethod(method string) bool {
	switch method {
	case PaymentCash, PaymentCard, PaymentCOD:
		return true
	}
	return IsMobileBanking(method)
}

// Sale is a point-of-sale transaction. Line items and totals are
// frozen at creation, only the status moves afterward.
type Sale struct {
	ID              int64      `json:"id"`
	SaleNumber      string     `json:"saleNumber"`
	CustomerID      *int64     `json:"customerId,omitempty"`
	CustomerName    string     `json:"customerName,omitempty"`
	CustomerPhone   string     `json:"customerPhone,omitempty"`
	Items           []SaleItem `json:"items"`
	Subtotal        float64    `json:"subtotal"`
	Tax             float64    `json:"tax"`
	Discount        float64    `json:"discount"`
	DeliveryType    string     `json:"deliveryType,omitempty"`
	DeliveryAddress string     `json:"deliveryAddress,omitempty"`
	DeliveryCharges float64    `json:"deliveryCharges"`
	Total           float64    `json:"total"`
	PaymentMethod   string     `json:"paymentMethod"`
	TransactionID   string     `json:"transactionId,omitempty"`
	Status          string     `json:"status"`
	Notes           string     `json:"notes,omitempty"`
	SoldByID        int64      `json:"soldById"`
	SoldByName      string     `json:"soldByName"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

// SaleItem is one line of a sale with the product name snapshotted.
type SaleItem struct {
	ID          int64   `json:"id"`
	SaleID      int64   `json:"saleId"`
	ProductID   int64   `json:"productId"`
	ProductName string  `json:"productName"`
	IMEI        string  `json:"imei,omitempty"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unitPrice"`
	LineTotal   float64 `json:"lineTotal"`
}

// LineInput is one requested line of a new sale.
type LineInput struct {
	ProductID int64
	Quantity  int
	UnitPrice float64
	IMEI      string
}

// CreateInput describes a new sale.
type CreateInput struct {
	CustomerID      *int64
	CustomerName    string
	CustomerPhone   string
	Items           []LineInput
	Discount        float64
	DeliveryType    string
	DeliveryAddress string
	DeliveryCharges float64
	PaymentMethod   string
	TransactionID   string
	Notes           string
	Actor           shared.Actor
}

// Filter narrows sale listings.
type Filter struct {
	Status        string
	PaymentMethod string
	CustomerID    int64
	Search        string
	From          time.Time
	To            time.Time
	Page          int
	PerPage       int
}

// DailySummary aggregates one day of selling.
type DailySummary struct {
	Day        string  `json:"day"`
	SaleCount  int     `json:"saleCount"`
	UnitsSold  int     `json:"unitsSold"`
	GrossTotal float64 `json:"grossTotal"`
	TaxTotal   float64 `json:"taxTotal"`
}

// PaymentStat aggregates sales by payment method.
type PaymentStat struct {
	Method string  `json:"method"`
	Count  int     `json:"count"`
	Total  float64 `json:"total"`
}

// round2 keeps money at currency precision.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// computeTotals derives subtotal, tax and total for the lines.
func computeTotals(items []LineInput, discount, delivery float64) (subtotal, tax, total float64) {
	for _, item := range items {
		subtotal += float64(item.Quantity) * item.UnitPrice
	}
	subtotal = round2(subtotal)
	tax = round2(subtotal * TaxRate)
	total = round2(subtotal + tax - discount + delivery)
	return subtotal, tax, total
}

// canTransition reports whether a status change is allowed. Documents
// are immutable otherwise, so this is the whole state machine.
func canTransition(from, to string) bool {
	switch from {
	case StatusPending:
		return to == StatusCompleted || to == StatusCancelled
	case StatusCompleted:
		return to == StatusRefunded || to == StatusCancelled
	}
	return false
}
