package csv

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/smehta/procure/pkg/domain/repositories"
)

// Loader handles loading procurement data from CSV files. Each load returns
// store-shaped documents (canonical field names) ready to Add; multi-line
// documents are grouped by their order number in first-appearance order, and
// the row order of the file becomes the creation order in the store.
type Loader struct{}

// NewLoader creates a new CSV loader
func NewLoader() *Loader {
	return &Loader{}
}

// LoadStockRecords loads stock records from a CSV file
func (l *Loader) LoadStockRecords(filename string) ([]map[string]any, error) {
	records, err := readCSV(filename, "stock")
	if err != nil {
		return nil, err
	}

	expectedHeader := []string{"item_code", "item_name", "closing_stock", "stock_quantity", "incoming_quantity"}
	if !validateHeader(records[0], expectedHeader) {
		return nil, fmt.Errorf("stock CSV header mismatch. Expected: %v, Got: %v", expectedHeader, records[0])
	}

	var docs []map[string]any
	for i, record := range records[1:] {
		if len(record) != len(expectedHeader) {
			return nil, fmt.Errorf("stock CSV row %d: expected %d columns, got %d", i+2, len(expectedHeader), len(record))
		}

		doc := map[string]any{
			"itemCode": strings.TrimSpace(record[0]),
			"itemName": strings.TrimSpace(record[1]),
		}
		// Closing stock is an explicit override; a blank cell means "not
		// counted", so the key is omitted rather than written as zero.
		if err := setQuantity(doc, "closingStock", record[2], true); err != nil {
			return nil, fmt.Errorf("stock CSV row %d: %w", i+2, err)
		}
		if err := setQuantity(doc, "stockQuantity", record[3], false); err != nil {
			return nil, fmt.Errorf("stock CSV row %d: %w", i+2, err)
		}
		if err := setQuantity(doc, "incomingQuantity", record[4], false); err != nil {
			return nil, fmt.Errorf("stock CSV row %d: %w", i+2, err)
		}
		docs = append(docs, doc)
	}

	return docs, nil
}

// LoadIndents loads indents from a CSV file. One row per line item; rows
// sharing an indent_number form one indent.
func (l *Loader) LoadIndents(filename string) ([]map[string]any, error) {
	records, err := readCSV(filename, "indents")
	if err != nil {
		return nil, err
	}

	expectedHeader := []string{"indent_number", "date", "requested_by", "item_code", "item_name", "quantity"}
	if !validateHeader(records[0], expectedHeader) {
		return nil, fmt.Errorf("indents CSV header mismatch. Expected: %v, Got: %v", expectedHeader, records[0])
	}

	var docs []map[string]any
	byNumber := make(map[string]map[string]any)

	for i, record := range records[1:] {
		if len(record) != len(expectedHeader) {
			return nil, fmt.Errorf("indents CSV row %d: expected %d columns, got %d", i+2, len(expectedHeader), len(record))
		}

		number := strings.TrimSpace(record[0])
		if number == "" {
			return nil, fmt.Errorf("indents CSV row %d: indent_number is required", i+2)
		}

		doc, ok := byNumber[number]
		if !ok {
			doc = map[string]any{
				"indentNumber": number,
				"date":         strings.TrimSpace(record[1]),
				"requestedBy":  strings.TrimSpace(record[2]),
				"items":        []any{},
			}
			byNumber[number] = doc
			docs = append(docs, doc)
		}

		line := map[string]any{
			"itemCode": strings.TrimSpace(record[3]),
			"itemName": strings.TrimSpace(record[4]),
		}
		if err := setQuantity(line, "quantity", record[5], false); err != nil {
			return nil, fmt.Errorf("indents CSV row %d: %w", i+2, err)
		}
		doc["items"] = append(doc["items"].([]any), line)
	}

	return docs, nil
}

// LoadPurchaseOrders loads purchase orders from a CSV file. Rows sharing a
// po_number form one order.
func (l *Loader) LoadPurchaseOrders(filename string) ([]map[string]any, error) {
	records, err := readCSV(filename, "purchase orders")
	if err != nil {
		return nil, err
	}

	expectedHeader := []string{"po_number", "supplier", "item_code", "item_name", "ordered_quantity", "received_quantity", "batch_number", "vendor_batch_number"}
	if !validateHeader(records[0], expectedHeader) {
		return nil, fmt.Errorf("purchase orders CSV header mismatch. Expected: %v, Got: %v", expectedHeader, records[0])
	}

	var docs []map[string]any
	byNumber := make(map[string]map[string]any)

	for i, record := range records[1:] {
		if len(record) != len(expectedHeader) {
			return nil, fmt.Errorf("purchase orders CSV row %d: expected %d columns, got %d", i+2, len(expectedHeader), len(record))
		}

		number := strings.TrimSpace(record[0])
		if number == "" {
			return nil, fmt.Errorf("purchase orders CSV row %d: po_number is required", i+2)
		}

		doc, ok := byNumber[number]
		if !ok {
			doc = map[string]any{
				"poNumber": number,
				"supplier": strings.TrimSpace(record[1]),
				"items":    []any{},
			}
			byNumber[number] = doc
			docs = append(docs, doc)
		}

		line := map[string]any{
			"itemCode":          strings.TrimSpace(record[2]),
			"itemName":          strings.TrimSpace(record[3]),
			"batchNumber":       strings.TrimSpace(record[6]),
			"vendorBatchNumber": strings.TrimSpace(record[7]),
		}
		if err := setQuantity(line, "orderedQuantity", record[4], false); err != nil {
			return nil, fmt.Errorf("purchase orders CSV row %d: %w", i+2, err)
		}
		if err := setQuantity(line, "receivedQuantity", record[5], false); err != nil {
			return nil, fmt.Errorf("purchase orders CSV row %d: %w", i+2, err)
		}
		doc["items"] = append(doc["items"].([]any), line)
	}

	return docs, nil
}

// LoadDispatchOrders loads vendor dispatch orders from a CSV file. Blank
// descriptive cells stay blank; the backfill pass fills them later.
func (l *Loader) LoadDispatchOrders(filename string) ([]map[string]any, error) {
	records, err := readCSV(filename, "dispatch orders")
	if err != nil {
		return nil, err
	}

	expectedHeader := []string{"po_number", "indent_number", "item_code", "item_name", "vendor_name", "batch_number", "vendor_batch_number", "order_ack_number", "quantity"}
	if !validateHeader(records[0], expectedHeader) {
		return nil, fmt.Errorf("dispatch orders CSV header mismatch. Expected: %v, Got: %v", expectedHeader, records[0])
	}

	var docs []map[string]any
	for i, record := range records[1:] {
		if len(record) != len(expectedHeader) {
			return nil, fmt.Errorf("dispatch orders CSV row %d: expected %d columns, got %d", i+2, len(expectedHeader), len(record))
		}
		if strings.TrimSpace(record[0]) == "" && strings.TrimSpace(record[1]) == "" {
			return nil, fmt.Errorf("dispatch orders CSV row %d: po_number or indent_number is required", i+2)
		}

		doc := map[string]any{
			"poNumber":          strings.TrimSpace(record[0]),
			"indentNumber":      strings.TrimSpace(record[1]),
			"itemCode":          strings.TrimSpace(record[2]),
			"itemName":          strings.TrimSpace(record[3]),
			"vendorName":        strings.TrimSpace(record[4]),
			"batchNumber":       strings.TrimSpace(record[5]),
			"vendorBatchNumber": strings.TrimSpace(record[6]),
			"orderAckNumber":    strings.TrimSpace(record[7]),
		}
		if err := setQuantity(doc, "quantity", record[8], true); err != nil {
			return nil, fmt.Errorf("dispatch orders CSV row %d: %w", i+2, err)
		}
		docs = append(docs, doc)
	}

	return docs, nil
}

// LoadInspections loads VSIR/PSIR inspection records from a CSV file
func (l *Loader) LoadInspections(filename string) ([]map[string]any, error) {
	records, err := readCSV(filename, "inspections")
	if err != nil {
		return nil, err
	}

	expectedHeader := []string{"stage", "po_number", "indent_number", "item_code", "item_name", "vendor_name", "batch_number", "vendor_batch_number", "order_ack_number", "quantity", "result"}
	if !validateHeader(records[0], expectedHeader) {
		return nil, fmt.Errorf("inspections CSV header mismatch. Expected: %v, Got: %v", expectedHeader, records[0])
	}

	var docs []map[string]any
	for i, record := range records[1:] {
		if len(record) != len(expectedHeader) {
			return nil, fmt.Errorf("inspections CSV row %d: expected %d columns, got %d", i+2, len(expectedHeader), len(record))
		}

		stage := strings.ToUpper(strings.TrimSpace(record[0]))
		if stage != "VSIR" && stage != "PSIR" {
			return nil, fmt.Errorf("inspections CSV row %d: invalid stage: %s (expected VSIR or PSIR)", i+2, record[0])
		}
		if strings.TrimSpace(record[1]) == "" && strings.TrimSpace(record[2]) == "" {
			return nil, fmt.Errorf("inspections CSV row %d: po_number or indent_number is required", i+2)
		}

		doc := map[string]any{
			"stage":             stage,
			"poNumber":          strings.TrimSpace(record[1]),
			"indentNumber":      strings.TrimSpace(record[2]),
			"itemCode":          strings.TrimSpace(record[3]),
			"itemName":          strings.TrimSpace(record[4]),
			"vendorName":        strings.TrimSpace(record[5]),
			"batchNumber":       strings.TrimSpace(record[6]),
			"vendorBatchNumber": strings.TrimSpace(record[7]),
			"orderAckNumber":    strings.TrimSpace(record[8]),
			"result":            strings.TrimSpace(record[10]),
		}
		if err := setQuantity(doc, "quantity", record[9], true); err != nil {
			return nil, fmt.Errorf("inspections CSV row %d: %w", i+2, err)
		}
		docs = append(docs, doc)
	}

	return docs, nil
}

// Files names the CSV file per collection; empty entries are skipped
type Files struct {
	StockRecords   string
	Indents        string
	PurchaseOrders string
	DispatchOrders string
	Inspections    string
}

// Seed loads every named file into the store, preserving row order as
// creation order.
func (l *Loader) Seed(ctx context.Context, store repositories.DocumentStore, scope string, files Files) error {
	loads := []struct {
		collection string
		filename   string
		load       func(string) ([]map[string]any, error)
	}{
		{repositories.CollectionStockRecords, files.StockRecords, l.LoadStockRecords},
		{repositories.CollectionIndents, files.Indents, l.LoadIndents},
		{repositories.CollectionPurchaseOrders, files.PurchaseOrders, l.LoadPurchaseOrders},
		{repositories.CollectionDispatchOrders, files.DispatchOrders, l.LoadDispatchOrders},
		{repositories.CollectionInspections, files.Inspections, l.LoadInspections},
	}

	for _, entry := range loads {
		if entry.filename == "" {
			continue
		}
		docs, err := entry.load(entry.filename)
		if err != nil {
			return err
		}
		for _, doc := range docs {
			if _, err := store.Add(ctx, scope, entry.collection, doc); err != nil {
				return fmt.Errorf("failed to seed %s: %w", entry.collection, err)
			}
		}
	}

	return nil
}

// Helper functions for parsing CSV records

func readCSV(filename, what string) ([][]string, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s file %s: %w", what, filename, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s CSV: %w", what, err)
	}

	if len(records) < 2 {
		return nil, fmt.Errorf("%s CSV must have header and at least one data row", what)
	}

	return records, nil
}

func validateHeader(actual, expected []string) bool {
	if len(actual) != len(expected) {
		return false
	}

	for i, col := range expected {
		if strings.ToLower(strings.TrimSpace(actual[i])) != col {
			return false
		}
	}

	return true
}

// setQuantity validates a quantity cell and writes it as a string field. A
// blank cell is omitted when optional, zero otherwise.
func setQuantity(doc map[string]any, key, cell string, optional bool) error {
	trimmed := strings.TrimSpace(cell)
	if trimmed == "" {
		if !optional {
			doc[key] = "0"
		}
		return nil
	}
	d, err := decimal.NewFromString(trimmed)
	if err != nil {
		return fmt.Errorf("invalid %s: %s", key, cell)
	}
	doc[key] = d.String()
	return nil
}
