package dto

import (
	"github.com/shopspring/decimal"
)

// ItemStatusRow is one published row of the derived open/closed item lists:
// the allocation picture for one indent line at rebuild time.
type ItemStatusRow struct {
	IndentNumber string          `json:"indentNumber"`
	ItemCode     string          `json:"itemCode"`
	ItemName     string          `json:"itemName"`
	Requested    decimal.Decimal `json:"requested"`
	Allocated    decimal.Decimal `json:"allocated"`
	Available    decimal.Decimal `json:"available"`
	Status       string          `json:"status"`
}

// LineReport is the verbose per-line allocation breakdown
type LineReport struct {
	IndentNumber        string          `json:"indentNumber"`
	ItemCode            string          `json:"itemCode"`
	ItemName            string          `json:"itemName"`
	Requested           decimal.Decimal `json:"requested"`
	TotalStock          decimal.Decimal `json:"totalStock"`
	PreviouslyAllocated decimal.Decimal `json:"previouslyAllocated"`
	POQuantity          decimal.Decimal `json:"poQuantity"`
	AvailableBefore     decimal.Decimal `json:"availableBefore"`
	Allocated           decimal.Decimal `json:"allocated"`
	AvailableAfter      decimal.Decimal `json:"availableAfter"`
	Status              string          `json:"status"`
}

// BackfillChange records one field filled during a backfill pass, for the
// CLI's change report.
type BackfillChange struct {
	Collection string `json:"collection"`
	RecordID   string `json:"recordId"`
	OrderKey   string `json:"orderKey"`
}

// AnalysisReport is the full derivation output rendered by the CLI
type AnalysisReport struct {
	Lines           []LineReport     `json:"lines"`
	OpenItems       []ItemStatusRow  `json:"openItems"`
	ClosedItems     []ItemStatusRow  `json:"closedItems"`
	BackfillChanges []BackfillChange `json:"backfillChanges,omitempty"`
}
