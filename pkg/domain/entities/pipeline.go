package entities

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// InspectionStage identifies where in the pipeline an inspection happened
type InspectionStage int

const (
	// VSIR is a vendor-site inspection, performed before dispatch
	VSIR InspectionStage = iota
	// PSIR is an in-house inspection, performed on receipt
	PSIR
)

// String method for InspectionStage enum
func (s InspectionStage) String() string {
	switch s {
	case VSIR:
		return "VSIR"
	case PSIR:
		return "PSIR"
	default:
		return "Unknown"
	}
}

// VendorDispatchOrder records material leaving the vendor against a purchase
// order. Descriptive fields are frequently blank at entry time and are
// backfilled from upstream stages.
type VendorDispatchOrder struct {
	ID                string
	Seq               int64
	CreatedAt         time.Time
	PONumber          string
	IndentNumber      string
	ItemCode          ItemCode
	ItemName          string
	VendorName        string
	BatchNumber       string
	VendorBatchNumber string
	OrderAckNumber    string
	Quantity          decimal.Decimal
}

// NewVendorDispatchOrder creates a validated VendorDispatchOrder
func NewVendorDispatchOrder(
	id string,
	seq int64,
	poNumber, indentNumber string,
	itemCode ItemCode,
) (*VendorDispatchOrder, error) {
	if poNumber == "" && indentNumber == "" {
		return nil, fmt.Errorf("dispatch order requires a PO number or indent number")
	}

	return &VendorDispatchOrder{
		ID:           id,
		Seq:          seq,
		PONumber:     poNumber,
		IndentNumber: indentNumber,
		ItemCode:     itemCode,
	}, nil
}

// InspectionRecord is a VSIR or PSIR entry for a purchase order line
type InspectionRecord struct {
	ID                string
	Seq               int64
	CreatedAt         time.Time
	Stage             InspectionStage
	PONumber          string
	IndentNumber      string
	ItemCode          ItemCode
	ItemName          string
	BatchNumber       string
	VendorBatchNumber string
	OrderAckNumber    string
	VendorName        string
	Quantity          decimal.Decimal
	Result            string
}

// NewInspectionRecord creates a validated InspectionRecord
func NewInspectionRecord(
	id string,
	seq int64,
	stage InspectionStage,
	poNumber, indentNumber string,
	itemCode ItemCode,
) (*InspectionRecord, error) {
	if poNumber == "" && indentNumber == "" {
		return nil, fmt.Errorf("inspection record requires a PO number or indent number")
	}

	return &InspectionRecord{
		ID:           id,
		Seq:          seq,
		Stage:        stage,
		PONumber:     poNumber,
		IndentNumber: indentNumber,
		ItemCode:     itemCode,
	}, nil
}
