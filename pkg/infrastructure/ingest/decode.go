// Package ingest reconciles raw store documents into canonical entities.
// Upstream data entry is inconsistent about field names, so every alias is
// resolved exactly once, here at the store boundary; downstream code never
// probes alternate keys.
package ingest

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/smehta/procure/pkg/domain/entities"
	"github.com/smehta/procure/pkg/domain/repositories"
)

// Field aliases, canonical name first
var (
	itemCodeKeys    = []string{"itemCode", "item_code", "code"}
	itemNameKeys    = []string{"itemName", "item_name", "name", "item"}
	quantityKeys    = []string{"quantity", "qty", "orderQty", "order_qty"}
	closingKeys     = []string{"closingStock", "closing_stock", "closing"}
	stockQtyKeys    = []string{"stockQuantity", "stock_quantity", "stock", "currentStock"}
	incomingKeys    = []string{"incomingQuantity", "incoming_quantity", "incoming", "inTransit"}
	indentNumKeys   = []string{"indentNumber", "indent_number", "indentNo"}
	poNumKeys       = []string{"poNumber", "po_number", "poNo", "purchaseOrderNumber"}
	supplierKeys    = []string{"supplier", "vendorName", "vendor_name", "vendor"}
	vendorNameKeys  = []string{"vendorName", "vendor_name", "vendor", "supplier"}
	batchKeys       = []string{"batchNumber", "batch_number", "batchNo"}
	vendorBatchKeys = []string{"vendorBatchNumber", "vendor_batch_number", "vendorBatchNo"}
	orderAckKeys    = []string{"orderAckNumber", "order_ack_number", "orderAckNo", "oaNumber"}
	requestedByKeys = []string{"requestedBy", "requested_by"}
	dateKeys        = []string{"date", "indentDate", "indent_date"}
	orderedQtyKeys  = []string{"orderedQuantity", "ordered_quantity", "orderQty", "quantity", "qty"}
	receivedQtyKeys = []string{"receivedQuantity", "received_quantity", "received"}
	linesKeys       = []string{"items", "lines"}
	stageKeys       = []string{"stage"}
	resultKeys      = []string{"result", "inspectionResult"}
)

// DecodeStockRecords decodes a stock collection snapshot. Documents that do
// not form a valid record are skipped and reported, not fatal: an absent or
// malformed stock entry means "unknown", never an error for consumers.
func DecodeStockRecords(docs []repositories.Document) ([]*entities.StockRecord, []error) {
	var out []*entities.StockRecord
	var skipped []error
	for _, doc := range docs {
		rec, err := entities.NewStockRecord(
			doc.ID,
			doc.Seq,
			entities.ItemCode(stringField(doc.Fields, itemCodeKeys...)),
			stringField(doc.Fields, itemNameKeys...),
			optDecimalField(doc.Fields, closingKeys...),
			decimalField(doc.Fields, stockQtyKeys...),
			decimalField(doc.Fields, incomingKeys...),
		)
		if err != nil {
			skipped = append(skipped, fmt.Errorf("stock record %s: %w", doc.ID, err))
			continue
		}
		rec.CreatedAt = doc.CreatedAt
		out = append(out, rec)
	}
	return out, skipped
}

// DecodeIndents decodes an indent collection snapshot
func DecodeIndents(docs []repositories.Document) ([]*entities.Indent, []error) {
	var out []*entities.Indent
	var skipped []error
	for _, doc := range docs {
		var lines []entities.IndentLine
		for i, raw := range linesField(doc.Fields) {
			line, err := entities.NewIndentLine(
				entities.ItemCode(stringField(raw, itemCodeKeys...)),
				stringField(raw, itemNameKeys...),
				decimalField(raw, quantityKeys...),
			)
			if err != nil {
				skipped = append(skipped, fmt.Errorf("indent %s line %d: %w", doc.ID, i, err))
				continue
			}
			lines = append(lines, *line)
		}

		ind, err := entities.NewIndent(
			doc.ID,
			doc.Seq,
			stringField(doc.Fields, indentNumKeys...),
			timeField(doc.Fields, dateKeys...),
			stringField(doc.Fields, requestedByKeys...),
			lines,
		)
		if err != nil {
			skipped = append(skipped, fmt.Errorf("indent %s: %w", doc.ID, err))
			continue
		}
		ind.CreatedAt = doc.CreatedAt
		ind.OrderAckNumber = stringField(doc.Fields, orderAckKeys...)
		out = append(out, ind)
	}
	return out, skipped
}

// DecodePurchaseOrders decodes a purchase-order collection snapshot
func DecodePurchaseOrders(docs []repositories.Document) ([]*entities.PurchaseOrder, []error) {
	var out []*entities.PurchaseOrder
	var skipped []error
	for _, doc := range docs {
		var lines []entities.POLine
		for _, raw := range linesField(doc.Fields) {
			lines = append(lines, entities.POLine{
				ItemCode:          entities.ItemCode(stringField(raw, itemCodeKeys...)),
				ItemName:          stringField(raw, itemNameKeys...),
				OrderedQuantity:   decimalField(raw, orderedQtyKeys...),
				ReceivedQuantity:  decimalField(raw, receivedQtyKeys...),
				BatchNumber:       stringField(raw, batchKeys...),
				VendorBatchNumber: stringField(raw, vendorBatchKeys...),
			})
		}

		po, err := entities.NewPurchaseOrder(
			doc.ID,
			doc.Seq,
			stringField(doc.Fields, poNumKeys...),
			stringField(doc.Fields, supplierKeys...),
			lines,
		)
		if err != nil {
			skipped = append(skipped, fmt.Errorf("purchase order %s: %w", doc.ID, err))
			continue
		}
		po.CreatedAt = doc.CreatedAt
		out = append(out, po)
	}
	return out, skipped
}

// DecodeDispatchOrders decodes a vendor-dispatch collection snapshot
func DecodeDispatchOrders(docs []repositories.Document) ([]*entities.VendorDispatchOrder, []error) {
	var out []*entities.VendorDispatchOrder
	var skipped []error
	for _, doc := range docs {
		d, err := entities.NewVendorDispatchOrder(
			doc.ID,
			doc.Seq,
			stringField(doc.Fields, poNumKeys...),
			stringField(doc.Fields, indentNumKeys...),
			entities.ItemCode(stringField(doc.Fields, itemCodeKeys...)),
		)
		if err != nil {
			skipped = append(skipped, fmt.Errorf("dispatch order %s: %w", doc.ID, err))
			continue
		}
		d.CreatedAt = doc.CreatedAt
		d.ItemName = stringField(doc.Fields, itemNameKeys...)
		d.VendorName = stringField(doc.Fields, vendorNameKeys...)
		d.BatchNumber = stringField(doc.Fields, batchKeys...)
		d.VendorBatchNumber = stringField(doc.Fields, vendorBatchKeys...)
		d.OrderAckNumber = stringField(doc.Fields, orderAckKeys...)
		d.Quantity = decimalField(doc.Fields, quantityKeys...)
		out = append(out, d)
	}
	return out, skipped
}

// DecodeInspections decodes an inspection collection snapshot
func DecodeInspections(docs []repositories.Document) ([]*entities.InspectionRecord, []error) {
	var out []*entities.InspectionRecord
	var skipped []error
	for _, doc := range docs {
		rec, err := entities.NewInspectionRecord(
			doc.ID,
			doc.Seq,
			stageFromString(stringField(doc.Fields, stageKeys...)),
			stringField(doc.Fields, poNumKeys...),
			stringField(doc.Fields, indentNumKeys...),
			entities.ItemCode(stringField(doc.Fields, itemCodeKeys...)),
		)
		if err != nil {
			skipped = append(skipped, fmt.Errorf("inspection %s: %w", doc.ID, err))
			continue
		}
		rec.CreatedAt = doc.CreatedAt
		rec.ItemName = stringField(doc.Fields, itemNameKeys...)
		rec.BatchNumber = stringField(doc.Fields, batchKeys...)
		rec.VendorBatchNumber = stringField(doc.Fields, vendorBatchKeys...)
		rec.OrderAckNumber = stringField(doc.Fields, orderAckKeys...)
		rec.VendorName = stringField(doc.Fields, vendorNameKeys...)
		rec.Quantity = decimalField(doc.Fields, quantityKeys...)
		rec.Result = stringField(doc.Fields, resultKeys...)
		out = append(out, rec)
	}
	return out, skipped
}

func stageFromString(s string) entities.InspectionStage {
	if s == "PSIR" {
		return entities.PSIR
	}
	return entities.VSIR
}

// stringField returns the first present, non-empty alias as a string
func stringField(fields map[string]any, keys ...string) string {
	for _, key := range keys {
		v, ok := fields[key]
		if !ok || v == nil {
			continue
		}
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return ""
}

// decimalField returns the first present alias coerced to a decimal; absent
// or uncoercible values resolve to zero.
func decimalField(fields map[string]any, keys ...string) decimal.Decimal {
	if d := optDecimalField(fields, keys...); d != nil {
		return *d
	}
	return decimal.Zero
}

// optDecimalField distinguishes "absent" from zero, for fields like closing
// stock where presence is an explicit override.
func optDecimalField(fields map[string]any, keys ...string) *decimal.Decimal {
	for _, key := range keys {
		v, ok := fields[key]
		if !ok || v == nil {
			continue
		}
		if d, ok := coerceDecimal(v); ok {
			return &d
		}
	}
	return nil
}

func coerceDecimal(v any) (decimal.Decimal, bool) {
	switch n := v.(type) {
	case float64:
		return decimal.NewFromFloat(n), true
	case float32:
		return decimal.NewFromFloat32(n), true
	case int:
		return decimal.NewFromInt(int64(n)), true
	case int64:
		return decimal.NewFromInt(n), true
	case json.Number:
		d, err := decimal.NewFromString(n.String())
		return d, err == nil
	case string:
		if n == "" {
			return decimal.Decimal{}, false
		}
		d, err := decimal.NewFromString(n)
		return d, err == nil
	case decimal.Decimal:
		return n, true
	default:
		return decimal.Decimal{}, false
	}
}

func timeField(fields map[string]any, keys ...string) time.Time {
	for _, key := range keys {
		v, ok := fields[key]
		if !ok || v == nil {
			continue
		}
		switch t := v.(type) {
		case time.Time:
			return t
		case string:
			for _, layout := range []string{time.RFC3339, "2006-01-02"} {
				if parsed, err := time.Parse(layout, t); err == nil {
					return parsed
				}
			}
		}
	}
	return time.Time{}
}

// linesField returns the document's line-item array under any known alias
func linesField(fields map[string]any) []map[string]any {
	for _, key := range linesKeys {
		raw, ok := fields[key]
		if !ok {
			continue
		}
		items, ok := raw.([]any)
		if !ok {
			if typed, ok := raw.([]map[string]any); ok {
				return typed
			}
			continue
		}
		var out []map[string]any
		for _, item := range items {
			if m, ok := item.(map[string]any); ok {
				out = append(out, m)
			}
		}
		return out
	}
	return nil
}
