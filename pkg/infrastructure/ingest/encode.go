package ingest

import (
	"github.com/smehta/procure/pkg/application/dto"
	"github.com/smehta/procure/pkg/domain/entities"
)

// Encode functions emit canonical field names only. Quantities are written
// as strings so no precision is lost crossing the store boundary;
// coerceDecimal reads them back.

// EncodeDispatchOrder flattens a dispatch order into store fields
func EncodeDispatchOrder(d *entities.VendorDispatchOrder) map[string]any {
	return map[string]any{
		"poNumber":          d.PONumber,
		"indentNumber":      d.IndentNumber,
		"itemCode":          string(d.ItemCode),
		"itemName":          d.ItemName,
		"vendorName":        d.VendorName,
		"batchNumber":       d.BatchNumber,
		"vendorBatchNumber": d.VendorBatchNumber,
		"orderAckNumber":    d.OrderAckNumber,
		"quantity":          d.Quantity.String(),
	}
}

// EncodeInspectionRecord flattens an inspection record into store fields
func EncodeInspectionRecord(rec *entities.InspectionRecord) map[string]any {
	return map[string]any{
		"stage":             rec.Stage.String(),
		"poNumber":          rec.PONumber,
		"indentNumber":      rec.IndentNumber,
		"itemCode":          string(rec.ItemCode),
		"itemName":          rec.ItemName,
		"batchNumber":       rec.BatchNumber,
		"vendorBatchNumber": rec.VendorBatchNumber,
		"orderAckNumber":    rec.OrderAckNumber,
		"vendorName":        rec.VendorName,
		"quantity":          rec.Quantity.String(),
		"result":            rec.Result,
	}
}

// EncodeItemStatusRow flattens a derived open/closed row for publication
func EncodeItemStatusRow(row dto.ItemStatusRow) map[string]any {
	return map[string]any{
		"indentNumber": row.IndentNumber,
		"itemCode":     row.ItemCode,
		"itemName":     row.ItemName,
		"quantity":     row.Requested.String(),
		"allocated":    row.Allocated.String(),
		"available":    row.Available.String(),
		"status":       row.Status,
	}
}
