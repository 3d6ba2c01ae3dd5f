package entities

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestIndentLine_Validation(t *testing.T) {
	validLine, err := NewIndentLine("RM-001", "MS Rod 12mm", decimal.NewFromInt(50))
	if err != nil {
		t.Fatalf("Expected valid indent line creation to succeed: %v", err)
	}
	if validLine.ItemCode != "RM-001" {
		t.Errorf("Expected item code RM-001, got %s", validLine.ItemCode)
	}

	testCases := []struct {
		name        string
		itemCode    ItemCode
		itemName    string
		quantity    decimal.Decimal
		expectError string
	}{
		{"no item identity", "", "", decimal.NewFromInt(10), "indent line requires an item code or item name"},
		{"zero quantity", "RM-001", "", decimal.Zero, "indent quantity must be positive, got 0"},
		{"negative quantity", "RM-001", "", decimal.NewFromInt(-5), "indent quantity must be positive, got -5"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewIndentLine(tc.itemCode, tc.itemName, tc.quantity)
			if err == nil {
				t.Fatalf("Expected error %q, got none", tc.expectError)
			}
			if err.Error() != tc.expectError {
				t.Errorf("Expected error %q, got %q", tc.expectError, err.Error())
			}
		})
	}

	// Name-only lines are valid; the code is resolved fuzzily downstream
	if _, err := NewIndentLine("", "MS Rod 12mm", decimal.NewFromInt(1)); err != nil {
		t.Errorf("Expected name-only line to be valid: %v", err)
	}
}

func TestIndent_Validation(t *testing.T) {
	line, _ := NewIndentLine("RM-001", "", decimal.NewFromInt(10))

	if _, err := NewIndent("", 1, "", time.Now(), "stores", []IndentLine{*line}); err == nil {
		t.Error("Expected empty indent number to be rejected")
	}
	if _, err := NewIndent("", 1, "IND-7", time.Now(), "stores", nil); err == nil {
		t.Error("Expected indent without lines to be rejected")
	}

	indent, err := NewIndent("doc1", 3, "IND-7", time.Now(), "stores", []IndentLine{*line})
	if err != nil {
		t.Fatalf("Expected valid indent creation to succeed: %v", err)
	}
	if indent.Seq != 3 {
		t.Errorf("Expected seq 3, got %d", indent.Seq)
	}
}

func TestIndent_RequestedQuantity_SumsDuplicateLines(t *testing.T) {
	a, _ := NewIndentLine("RM-001", "", decimal.NewFromInt(10))
	b, _ := NewIndentLine("RM-001", "", decimal.NewFromInt(5))
	c, _ := NewIndentLine("RM-002", "", decimal.NewFromInt(99))

	indent, err := NewIndent("doc1", 1, "IND-1", time.Now(), "stores", []IndentLine{*a, *b, *c})
	if err != nil {
		t.Fatalf("Expected valid indent: %v", err)
	}

	got := indent.RequestedQuantity(func(code ItemCode, name string) bool {
		return code == "RM-001"
	})
	if !got.Equal(decimal.NewFromInt(15)) {
		t.Errorf("Expected requested quantity 15, got %s", got)
	}
}
