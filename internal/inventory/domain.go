package inventory

import (
	"fmt"
	"time"

	"github.com/dokan-pos/dokan-pos/internal/shared"
)

// Direction of a stock movement relative to the shop.
type Direction string

const (
	DirectionIn  Direction = "in"
	DirectionOut Direction = "out"
)

// Well-known movement reasons. Reports group by these, so the
// workflows always use the constants rather than free text.
const (
	ReasonInitialStock     = "Initial Stock"
	ReasonSale             = "Sale"
	ReasonPurchaseReceived = "Purchase received"
	ReasonAdjustment       = "Stock Adjustment"
)

// References used when a movement is not tied to a numbered document.
const (
	RefInitial    = "INITIAL"
	RefAdjustment = "ADJUSTMENT"
)

// ErrInsufficientStock is returned when an outbound movement would
// push a product's stock below zero.
var ErrInsufficientStock = fmt.Errorf("%w: insufficient stock", shared.ErrConflict)

// Movement is one row in the append-only stock ledger. Product and
// actor names are snapshotted so history survives later renames.
type Movement struct {
	ID          int64     `json:"id"`
	ProductID   int64     `json:"productId"`
	ProductName string    `json:"productName"`
	Direction   Direction `json:"direction"`
	Quantity    int       `json:"quantity"`
	PrevStock   int       `json:"previousStock"`
	NewStock    int       `json:"newStock"`
	Reason      string    `json:"reason"`
	Reference   string    `json:"reference"`
	IMEI        string    `json:"imei,omitempty"`
	Notes       string    `json:"notes,omitempty"`
	ActorID     int64     `json:"actorId"`
	ActorName   string    `json:"actorName"`
	CreatedAt   time.Time `json:"createdAt"`
}

// MovementInput describes a single ledger application.
type MovementInput struct {
	ProductID int64
	Direction Direction
	Quantity  int
	Reason    string
	Reference string
	IMEI      string
	Notes     string
	Actor     shared.Actor
}

// Validate performs the structural checks shared by every caller.
func (in MovementInput) Validate() error {
	if in.ProductID <= 0 {
		return fmt.Errorf("%w: product id is required", shared.ErrValidation)
	}
	if in.Quantity <= 0 {
		return fmt.Errorf("%w: quantity must be positive", shared.ErrValidation)
	}
	if in.Direction != DirectionIn && in.Direction != DirectionOut {
		return fmt.Errorf("%w: direction must be in or out", shared.ErrValidation)
	}
	if in.Reason == "" {
		return fmt.Errorf("%w: reason is required", shared.ErrValidation)
	}
	return nil
}

// Filter narrows movement listings.
type Filter struct {
	ProductID int64
	Direction Direction
	Reason    string
	Reference string
	From      time.Time
	To        time.Time
	Page      int
	PerPage   int
}
