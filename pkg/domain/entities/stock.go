package entities

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// StockRecord represents one stock-ledger entry for an item. ClosingStock is
// an explicit override entered by the storekeeper; when absent the computed
// stock is StockQuantity + IncomingQuantity. Data-entry duplicates for the
// same item do occur; Seq orders records by creation so ties can be broken
// toward the most recent entry.
type StockRecord struct {
	ID               string
	Seq              int64
	CreatedAt        time.Time
	ItemCode         ItemCode
	ItemName         string
	ClosingStock     *decimal.Decimal
	StockQuantity    decimal.Decimal
	IncomingQuantity decimal.Decimal
}

// NewStockRecord creates a validated StockRecord
func NewStockRecord(
	id string,
	seq int64,
	itemCode ItemCode,
	itemName string,
	closingStock *decimal.Decimal,
	stockQuantity, incomingQuantity decimal.Decimal,
) (*StockRecord, error) {
	if string(itemCode) == "" && itemName == "" {
		return nil, fmt.Errorf("stock record requires an item code or item name")
	}
	if stockQuantity.IsNegative() {
		return nil, fmt.Errorf("stock quantity cannot be negative, got %s", stockQuantity)
	}
	if incomingQuantity.IsNegative() {
		return nil, fmt.Errorf("incoming quantity cannot be negative, got %s", incomingQuantity)
	}

	return &StockRecord{
		ID:               id,
		Seq:              seq,
		ItemCode:         itemCode,
		ItemName:         itemName,
		ClosingStock:     closingStock,
		StockQuantity:    stockQuantity,
		IncomingQuantity: incomingQuantity,
	}, nil
}

// ComputedStock returns the explicit closing stock when present, otherwise
// StockQuantity + IncomingQuantity.
func (s *StockRecord) ComputedStock() decimal.Decimal {
	if s.ClosingStock != nil {
		return *s.ClosingStock
	}
	return s.StockQuantity.Add(s.IncomingQuantity)
}
