package reconcile

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/smehta/procure/pkg/domain/repositories"
	"github.com/smehta/procure/pkg/infrastructure/repositories/memory"
)

const testScope = "acme"

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// waitFor polls cond until it holds or the deadline passes
func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("Timed out waiting for %s", msg)
}

// seedPipeline loads one stock record, two indents, a purchase order and a
// sparsely filled dispatch order.
func seedPipeline(t *testing.T, store *memory.DocumentStore) {
	t.Helper()
	ctx := context.Background()

	add := func(collection string, fields map[string]any) {
		if _, err := store.Add(ctx, testScope, collection, fields); err != nil {
			t.Fatalf("Failed to seed %s: %v", collection, err)
		}
	}

	add(repositories.CollectionStockRecords, map[string]any{
		"itemCode":      "RM-001",
		"itemName":      "MS Rod",
		"stockQuantity": "100",
	})
	add(repositories.CollectionIndents, map[string]any{
		"indentNumber": "IND-A",
		"requestedBy":  "stores",
		"items": []any{
			map[string]any{"itemCode": "RM-001", "quantity": "50"},
		},
	})
	add(repositories.CollectionIndents, map[string]any{
		"indentNumber": "IND-B",
		"requestedBy":  "stores",
		"items": []any{
			map[string]any{"itemCode": "RM-001", "quantity": "60"},
		},
	})
	add(repositories.CollectionPurchaseOrders, map[string]any{
		"poNumber": "PO-1",
		"supplier": "Acme Alloys",
		"items": []any{
			map[string]any{
				"itemCode":        "RM-001",
				"orderedQuantity": "30",
				"batchNumber":     "B-7",
			},
		},
	})
	add(repositories.CollectionDispatchOrders, map[string]any{
		"poNumber": "PO-1",
		"itemCode": "RM-001",
	})
}

func TestService_PublishesOpenAndClosedItems(t *testing.T) {
	store := memory.NewDocumentStore()
	seedPipeline(t, store)

	svc := NewService(store, testScope, quietLogger())
	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("Failed to start service: %v", err)
	}
	defer svc.Close()

	waitFor(t, svc.Ready, "the first full derivation")
	waitFor(t, func() bool {
		return len(store.Documents(testScope, repositories.CollectionOpenItems)) == 1 &&
			len(store.Documents(testScope, repositories.CollectionClosedItems)) == 1
	}, "the derived item lists")

	open := store.Documents(testScope, repositories.CollectionOpenItems)
	if open[0].Fields["indentNumber"] != "IND-B" {
		t.Errorf("Expected IND-B in open items, got %v", open[0].Fields["indentNumber"])
	}
	if open[0].Fields["status"] != "open" {
		t.Errorf("Expected status open, got %v", open[0].Fields["status"])
	}
	if open[0].Fields["available"] != "50" {
		t.Errorf("Expected 50 available before IND-B, got %v", open[0].Fields["available"])
	}

	closed := store.Documents(testScope, repositories.CollectionClosedItems)
	if closed[0].Fields["indentNumber"] != "IND-A" {
		t.Errorf("Expected IND-A in closed items, got %v", closed[0].Fields["indentNumber"])
	}
}

func TestService_BackfillsDispatchOrder(t *testing.T) {
	store := memory.NewDocumentStore()
	seedPipeline(t, store)

	svc := NewService(store, testScope, quietLogger())
	svc.now = func() time.Time { return time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC) }
	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("Failed to start service: %v", err)
	}
	defer svc.Close()

	waitFor(t, func() bool {
		docs := store.Documents(testScope, repositories.CollectionDispatchOrders)
		return len(docs) == 1 && docs[0].Fields["vendorName"] == "Acme Alloys"
	}, "the dispatch backfill write")

	doc := store.Documents(testScope, repositories.CollectionDispatchOrders)[0]
	if doc.Fields["batchNumber"] != "B-7" {
		t.Errorf("Expected batch number from the purchase line, got %v", doc.Fields["batchNumber"])
	}
	if doc.Fields["vendorBatchNumber"] != "26/V1" {
		t.Errorf("Expected generated vendor batch 26/V1, got %v", doc.Fields["vendorBatchNumber"])
	}
	if doc.Fields["quantity"] != "30" {
		t.Errorf("Expected quantity from the ordered quantity, got %v", doc.Fields["quantity"])
	}
}

func TestService_BackfillSettles(t *testing.T) {
	store := memory.NewDocumentStore()
	seedPipeline(t, store)

	svc := NewService(store, testScope, quietLogger())
	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("Failed to start service: %v", err)
	}
	defer svc.Close()

	waitFor(t, func() bool {
		docs := store.Documents(testScope, repositories.CollectionDispatchOrders)
		return len(docs) == 1 && docs[0].Fields["vendorName"] == "Acme Alloys"
	}, "the dispatch backfill write")

	// Let the rederivation triggered by the write run its course
	time.Sleep(100 * time.Millisecond)

	report := svc.Report()
	if len(report.BackfillChanges) != 1 {
		t.Errorf("Expected exactly one backfill change after settling, got %d", len(report.BackfillChanges))
	}
	if len(report.BackfillChanges) > 0 && report.BackfillChanges[0].OrderKey != "PO-1" {
		t.Errorf("Expected the change keyed by PO-1, got %s", report.BackfillChanges[0].OrderKey)
	}
}

func TestService_RepublishesAfterNewIndent(t *testing.T) {
	store := memory.NewDocumentStore()
	seedPipeline(t, store)
	ctx := context.Background()

	svc := NewService(store, testScope, quietLogger())
	if err := svc.Start(ctx); err != nil {
		t.Fatalf("Failed to start service: %v", err)
	}
	defer svc.Close()

	waitFor(t, func() bool {
		return len(store.Documents(testScope, repositories.CollectionOpenItems)) == 1
	}, "the initial open-item list")

	// A third indent for the same item lands behind the first two and finds
	// the pool exhausted.
	if _, err := store.Add(ctx, testScope, repositories.CollectionIndents, map[string]any{
		"indentNumber": "IND-C",
		"requestedBy":  "stores",
		"items": []any{
			map[string]any{"itemCode": "RM-001", "quantity": "10"},
		},
	}); err != nil {
		t.Fatalf("Failed to add indent: %v", err)
	}

	waitFor(t, func() bool {
		return len(store.Documents(testScope, repositories.CollectionOpenItems)) == 2
	}, "the republished open-item list")

	open := store.Documents(testScope, repositories.CollectionOpenItems)
	last := open[len(open)-1]
	if last.Fields["indentNumber"] != "IND-C" {
		t.Errorf("Expected IND-C appended to open items, got %v", last.Fields["indentNumber"])
	}
	if last.Fields["available"] != "0" {
		t.Errorf("Expected nothing available before IND-C, got %v", last.Fields["available"])
	}
}

func TestService_CloseStopsDerivation(t *testing.T) {
	store := memory.NewDocumentStore()
	seedPipeline(t, store)
	ctx := context.Background()

	svc := NewService(store, testScope, quietLogger())
	if err := svc.Start(ctx); err != nil {
		t.Fatalf("Failed to start service: %v", err)
	}

	waitFor(t, func() bool {
		return len(store.Documents(testScope, repositories.CollectionOpenItems)) == 1
	}, "the initial open-item list")

	svc.Close()

	if _, err := store.Add(ctx, testScope, repositories.CollectionIndents, map[string]any{
		"indentNumber": "IND-C",
		"requestedBy":  "stores",
		"items": []any{
			map[string]any{"itemCode": "RM-001", "quantity": "10"},
		},
	}); err != nil {
		t.Fatalf("Failed to add indent: %v", err)
	}

	time.Sleep(100 * time.Millisecond)
	if got := len(store.Documents(testScope, repositories.CollectionOpenItems)); got != 1 {
		t.Errorf("Expected no republication after Close, got %d open rows", got)
	}
}
