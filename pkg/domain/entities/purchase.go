package entities

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// POLine is a single item on a purchase order
type POLine struct {
	ItemCode          ItemCode
	ItemName          string
	OrderedQuantity   decimal.Decimal
	ReceivedQuantity  decimal.Decimal
	BatchNumber       string
	VendorBatchNumber string
}

// PurchaseOrder represents an order placed with a supplier. Ordered
// quantities add to the pool available for allocation but do not themselves
// consume it.
type PurchaseOrder struct {
	ID        string
	Seq       int64
	CreatedAt time.Time
	PONumber  string
	Supplier  string
	Lines     []POLine
}

// NewPurchaseOrder creates a validated PurchaseOrder
func NewPurchaseOrder(
	id string,
	seq int64,
	poNumber, supplier string,
	lines []POLine,
) (*PurchaseOrder, error) {
	if poNumber == "" {
		return nil, fmt.Errorf("purchase order number cannot be empty")
	}
	for _, line := range lines {
		if string(line.ItemCode) == "" && line.ItemName == "" {
			return nil, fmt.Errorf("purchase order %s has a line without an item", poNumber)
		}
		if line.OrderedQuantity.IsNegative() {
			return nil, fmt.Errorf(
				"purchase order %s has a negative ordered quantity %s",
				poNumber, line.OrderedQuantity,
			)
		}
	}

	return &PurchaseOrder{
		ID:       id,
		Seq:      seq,
		PONumber: poNumber,
		Supplier: supplier,
		Lines:    lines,
	}, nil
}
