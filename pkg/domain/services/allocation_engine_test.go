package services

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/smehta/procure/pkg/domain/entities"
)

func indentWith(t *testing.T, seq int64, number string, code entities.ItemCode, qty int64) *entities.Indent {
	t.Helper()
	line, err := entities.NewIndentLine(code, "", decimal.NewFromInt(qty))
	if err != nil {
		t.Fatalf("Failed to build indent line: %v", err)
	}
	ind, err := entities.NewIndent("doc-"+number, seq, number, time.Now(), "stores", []entities.IndentLine{*line})
	if err != nil {
		t.Fatalf("Failed to build indent %s: %v", number, err)
	}
	return ind
}

func TestAllocationEngine_SequentialAllocation(t *testing.T) {
	// Stock 100. Indent A requests 50, indent B requests 60: A is fully
	// allocated and closed, B gets the remaining 50 and stays open.
	snap := Snapshot{
		Stocks: []*entities.StockRecord{
			stockRec(t, "s1", 1, "RM-001", "", nil, 100, 0),
		},
		Indents: []*entities.Indent{
			indentWith(t, 1, "IND-A", "RM-001", 50),
			indentWith(t, 2, "IND-B", "RM-001", 60),
		},
	}
	engine := NewAllocationEngine(snap)

	resA, err := engine.Analyze("RM-001", "", 0, decimal.NewFromInt(50))
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if !resA.AvailableBefore.Equal(decimal.NewFromInt(100)) {
		t.Errorf("Expected available-before 100, got %s", resA.AvailableBefore)
	}
	if !resA.Allocated.Equal(decimal.NewFromInt(50)) {
		t.Errorf("Expected allocated 50, got %s", resA.Allocated)
	}
	if !resA.Closed {
		t.Error("Expected indent A to be closed")
	}

	resB, err := engine.Analyze("RM-001", "", 1, decimal.NewFromInt(60))
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if !resB.PreviouslyAllocated.Equal(decimal.NewFromInt(50)) {
		t.Errorf("Expected previously-allocated 50, got %s", resB.PreviouslyAllocated)
	}
	if !resB.AvailableBefore.Equal(decimal.NewFromInt(50)) {
		t.Errorf("Expected available-before 50, got %s", resB.AvailableBefore)
	}
	if !resB.Allocated.Equal(decimal.NewFromInt(50)) {
		t.Errorf("Expected allocated 50, got %s", resB.Allocated)
	}
	if resB.Closed {
		t.Error("Expected indent B to stay open (60 requested > 50 available)")
	}
}

func TestAllocationEngine_IncomingPOCushion(t *testing.T) {
	// Stock 0, incoming PO 30, request 10: nothing allocates and the line is
	// open, but the after figure (20) shows the shortfall clears once the PO
	// lands.
	po, err := entities.NewPurchaseOrder("po1", 1, "PO-9", "Acme Steels", []entities.POLine{
		{ItemCode: "RM-001", OrderedQuantity: decimal.NewFromInt(30)},
	})
	if err != nil {
		t.Fatalf("Failed to build purchase order: %v", err)
	}

	snap := Snapshot{
		Indents:        []*entities.Indent{indentWith(t, 1, "IND-A", "RM-001", 10)},
		PurchaseOrders: []*entities.PurchaseOrder{po},
	}
	engine := NewAllocationEngine(snap)

	res, err := engine.Analyze("RM-001", "", 0, decimal.NewFromInt(10))
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if !res.Allocated.IsZero() {
		t.Errorf("Expected zero allocation from confirmed stock, got %s", res.Allocated)
	}
	if res.Closed {
		t.Error("Expected line to be open: closed ignores incoming POs")
	}
	if !res.AvailableAfter.Equal(decimal.NewFromInt(20)) {
		t.Errorf("Expected available-after 20 (30 - 0 - 10), got %s", res.AvailableAfter)
	}
}

func TestAllocationEngine_NegativeAvailableAfterNotClamped(t *testing.T) {
	snap := Snapshot{
		Stocks:  []*entities.StockRecord{stockRec(t, "s1", 1, "RM-001", "", nil, 5, 0)},
		Indents: []*entities.Indent{indentWith(t, 1, "IND-A", "RM-001", 40)},
	}
	engine := NewAllocationEngine(snap)

	res, err := engine.Analyze("RM-001", "", 0, decimal.NewFromInt(40))
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if !res.AvailableAfter.Equal(decimal.NewFromInt(-35)) {
		t.Errorf("Expected available-after -35 to show shortfall depth, got %s", res.AvailableAfter)
	}
}

func TestAllocationEngine_Monotonicity(t *testing.T) {
	// Once the pool is exhausted, every later indent allocates zero and
	// stays open; total allocation never exceeds total stock.
	snap := Snapshot{
		Stocks: []*entities.StockRecord{stockRec(t, "s1", 1, "RM-001", "", nil, 70, 0)},
		Indents: []*entities.Indent{
			indentWith(t, 1, "IND-1", "RM-001", 30),
			indentWith(t, 2, "IND-2", "RM-001", 40),
			indentWith(t, 3, "IND-3", "RM-001", 10),
			indentWith(t, 4, "IND-4", "RM-001", 25),
		},
	}
	engine := NewAllocationEngine(snap)

	totalAllocated := decimal.Zero
	for i, requested := range []int64{30, 40, 10, 25} {
		res, err := engine.Analyze("RM-001", "", i, decimal.NewFromInt(requested))
		if err != nil {
			t.Fatalf("Analyze failed for indent %d: %v", i, err)
		}
		totalAllocated = totalAllocated.Add(res.Allocated)

		if i >= 2 {
			if !res.Allocated.IsZero() {
				t.Errorf("Indent %d: expected zero allocation after exhaustion, got %s", i, res.Allocated)
			}
			if res.Closed {
				t.Errorf("Indent %d: expected open after exhaustion", i)
			}
		}
	}

	if !totalAllocated.Equal(decimal.NewFromInt(70)) {
		t.Errorf("Expected total allocation to equal total stock 70, got %s", totalAllocated)
	}
	if !engine.AllocatedStock("RM-001", "").Equal(decimal.NewFromInt(70)) {
		t.Errorf("Expected AllocatedStock 70, got %s", engine.AllocatedStock("RM-001", ""))
	}
}

func TestAllocationEngine_WalkOrderFollowsSeqNotInputOrder(t *testing.T) {
	// Indents arrive out of creation order; the walk must sort by Seq
	snap := Snapshot{
		Stocks: []*entities.StockRecord{stockRec(t, "s1", 1, "RM-001", "", nil, 50, 0)},
		Indents: []*entities.Indent{
			indentWith(t, 2, "IND-LATER", "RM-001", 50),
			indentWith(t, 1, "IND-FIRST", "RM-001", 50),
		},
	}
	engine := NewAllocationEngine(snap)

	all := engine.AnalyzeAll()
	if len(all) != 2 {
		t.Fatalf("Expected 2 line allocations, got %d", len(all))
	}
	if all[0].IndentNumber != "IND-FIRST" {
		t.Fatalf("Expected IND-FIRST to be walked first, got %s", all[0].IndentNumber)
	}
	if !all[0].Result.Allocated.Equal(decimal.NewFromInt(50)) {
		t.Errorf("Expected IND-FIRST to take the full pool, got %s", all[0].Result.Allocated)
	}
	if !all[1].Result.Allocated.IsZero() {
		t.Errorf("Expected IND-LATER to get nothing, got %s", all[1].Result.Allocated)
	}
}

func TestAllocationEngine_RemainingStockWithDraftLines(t *testing.T) {
	po, err := entities.NewPurchaseOrder("po1", 1, "PO-1", "Acme", []entities.POLine{
		{ItemCode: "RM-001", OrderedQuantity: decimal.NewFromInt(20)},
	})
	if err != nil {
		t.Fatalf("Failed to build purchase order: %v", err)
	}
	snap := Snapshot{
		Stocks:         []*entities.StockRecord{stockRec(t, "s1", 1, "RM-001", "", nil, 100, 0)},
		Indents:        []*entities.Indent{indentWith(t, 1, "IND-A", "RM-001", 30)},
		PurchaseOrders: []*entities.PurchaseOrder{po},
	}
	engine := NewAllocationEngine(snap)

	draft := []entities.IndentLine{
		{ItemCode: "RM-001", Quantity: decimal.NewFromInt(25)},
		{ItemCode: "RM-OTHER", Quantity: decimal.NewFromInt(999)},
	}
	// (100 stock + 20 incoming) - 30 allocated - 25 drafted = 65
	got := engine.RemainingStock("RM-001", "", draft)
	if !got.Equal(decimal.NewFromInt(65)) {
		t.Errorf("Expected remaining stock 65, got %s", got)
	}
}

func TestAllocationEngine_IndexOutOfRange(t *testing.T) {
	engine := NewAllocationEngine(Snapshot{})

	if _, err := engine.Analyze("RM-001", "", -1, decimal.NewFromInt(1)); err == nil {
		t.Error("Expected error for negative indent index")
	}
	if _, err := engine.Analyze("RM-001", "", 5, decimal.NewFromInt(1)); err == nil {
		t.Error("Expected error for index past the walk")
	}
	// Index len(indents) is the append position for a draft and is valid
	if _, err := engine.Analyze("RM-001", "", 0, decimal.NewFromInt(1)); err != nil {
		t.Errorf("Expected append-position index to be valid: %v", err)
	}
}
