package entities

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestStockRecord_ComputedStock(t *testing.T) {
	rec, err := NewStockRecord(
		"s1", 1, "RM-001", "MS Rod 12mm",
		nil,
		decimal.NewFromInt(40), decimal.NewFromInt(10),
	)
	if err != nil {
		t.Fatalf("Expected valid stock record: %v", err)
	}
	if !rec.ComputedStock().Equal(decimal.NewFromInt(50)) {
		t.Errorf("Expected computed stock 50, got %s", rec.ComputedStock())
	}

	// Explicit closing stock overrides the computed sum
	closing := decimal.NewFromInt(33)
	rec, err = NewStockRecord(
		"s2", 2, "RM-001", "MS Rod 12mm",
		&closing,
		decimal.NewFromInt(40), decimal.NewFromInt(10),
	)
	if err != nil {
		t.Fatalf("Expected valid stock record: %v", err)
	}
	if !rec.ComputedStock().Equal(decimal.NewFromInt(33)) {
		t.Errorf("Expected computed stock 33, got %s", rec.ComputedStock())
	}
}

func TestStockRecord_Validation(t *testing.T) {
	if _, err := NewStockRecord("s1", 1, "", "", nil, decimal.Zero, decimal.Zero); err == nil {
		t.Error("Expected record without item identity to be rejected")
	}
	if _, err := NewStockRecord("s1", 1, "RM-001", "", nil, decimal.NewFromInt(-1), decimal.Zero); err == nil {
		t.Error("Expected negative stock quantity to be rejected")
	}
	if _, err := NewStockRecord("s1", 1, "RM-001", "", nil, decimal.Zero, decimal.NewFromInt(-1)); err == nil {
		t.Error("Expected negative incoming quantity to be rejected")
	}
}
