package services

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/smehta/procure/pkg/domain/entities"
)

func stockRec(t *testing.T, id string, seq int64, code entities.ItemCode, name string, closing *decimal.Decimal, stock, incoming int64) *entities.StockRecord {
	t.Helper()
	rec, err := entities.NewStockRecord(id, seq, code, name, closing, decimal.NewFromInt(stock), decimal.NewFromInt(incoming))
	if err != nil {
		t.Fatalf("Failed to build stock record %s: %v", id, err)
	}
	return rec
}

func TestStockResolver_MatchTiers(t *testing.T) {
	records := []*entities.StockRecord{
		stockRec(t, "s1", 1, "RM-001", "MS Rod 12mm", nil, 100, 0),
		stockRec(t, "s2", 2, "RM-002", "Copper Wire", nil, 30, 5),
		stockRec(t, "s3", 3, "", "Bearing 6204", nil, 12, 0),
	}
	resolver := NewStockResolver(records)

	tests := []struct {
		name     string
		code     entities.ItemCode
		itemName string
		expected int64
	}{
		{"exact code", "RM-001", "", 100},
		{"code with whitespace and case", "  rm-002 ", "", 35},
		{"exact name", "", "Bearing 6204", 12},
		{"alpha form of code", "RM 001", "", 100},
		{"alpha form via name", "", "ms rod 12MM", 100},
		{"substring containment", "", "Copper", 35},
		{"no match resolves to zero", "ZZ-999", "Unobtainium", 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := resolver.Resolve(tc.code, tc.itemName)
			if !got.Equal(decimal.NewFromInt(tc.expected)) {
				t.Errorf("Expected %d, got %s", tc.expected, got)
			}
		})
	}
}

func TestStockResolver_CodeTierOutranksName(t *testing.T) {
	// A record whose name matches must lose to a record whose code matches
	records := []*entities.StockRecord{
		stockRec(t, "s1", 1, "RM-001", "Gasket", nil, 10, 0),
		stockRec(t, "s2", 2, "GASKET", "Something Else", nil, 99, 0),
	}
	resolver := NewStockResolver(records)

	rec, ok := resolver.ResolveRecord("GASKET", "Gasket")
	if !ok {
		t.Fatal("Expected a match")
	}
	if rec.ID != "s2" {
		t.Errorf("Expected the code-tier match s2, got %s", rec.ID)
	}
}

func TestStockResolver_TieBreak_HighestComputedStock(t *testing.T) {
	records := []*entities.StockRecord{
		stockRec(t, "s1", 1, "X001", "", nil, 20, 0),
		stockRec(t, "s2", 2, "X001", "", nil, 45, 5),
	}
	resolver := NewStockResolver(records)

	rec, ok := resolver.ResolveRecord("X001", "")
	if !ok {
		t.Fatal("Expected a match")
	}
	if rec.ID != "s2" {
		t.Errorf("Expected the record with higher computed stock, got %s", rec.ID)
	}
}

func TestStockResolver_TieBreak_LargerSeqWins(t *testing.T) {
	// Equal computed stock: the later-created record wins, regardless of
	// input order
	closing := decimal.NewFromInt(40)
	a := stockRec(t, "s1", 1, "X001", "", &closing, 0, 0)
	closing2 := decimal.NewFromInt(40)
	b := stockRec(t, "s2", 2, "X001", "", &closing2, 0, 0)

	for _, records := range [][]*entities.StockRecord{{a, b}, {b, a}} {
		resolver := NewStockResolver(records)
		rec, ok := resolver.ResolveRecord("X001", "")
		if !ok {
			t.Fatal("Expected a match")
		}
		if rec.ID != "s2" {
			t.Errorf("Expected s2 (seq 2) to win the tie, got %s", rec.ID)
		}
	}
}

func TestAlphaForm(t *testing.T) {
	tests := []struct {
		in       string
		expected string
	}{
		{" rm-001 ", "RM001"},
		{"MS Rod 12mm", "MSROD12MM"},
		{"--/", ""},
	}
	for _, tc := range tests {
		if got := AlphaForm(tc.in); got != tc.expected {
			t.Errorf("AlphaForm(%q): expected %q, got %q", tc.in, tc.expected, got)
		}
	}
}
