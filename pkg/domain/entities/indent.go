package entities

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// IndentLine is a single requested item on an indent
type IndentLine struct {
	ItemCode ItemCode
	ItemName string
	Quantity decimal.Decimal
}

// NewIndentLine creates a validated IndentLine. Quantities must be strictly
// positive; zero or negative requests are rejected at the input boundary and
// never reach the allocation engine.
func NewIndentLine(itemCode ItemCode, itemName string, quantity decimal.Decimal) (*IndentLine, error) {
	if string(itemCode) == "" && itemName == "" {
		return nil, fmt.Errorf("indent line requires an item code or item name")
	}
	if !quantity.IsPositive() {
		return nil, fmt.Errorf("indent quantity must be positive, got %s", quantity)
	}

	return &IndentLine{
		ItemCode: itemCode,
		ItemName: itemName,
		Quantity: quantity,
	}, nil
}

// Indent is an internal request for material. Seq is the persisted creation
// sequence; allocation walks indents in ascending Seq, so the order must not
// depend on whatever order the store returns documents in.
type Indent struct {
	ID             string
	Seq            int64
	CreatedAt      time.Time
	IndentNumber   string
	Date           time.Time
	RequestedBy    string
	OrderAckNumber string
	Lines          []IndentLine
}

// NewIndent creates a validated Indent
func NewIndent(
	id string,
	seq int64,
	indentNumber string,
	date time.Time,
	requestedBy string,
	lines []IndentLine,
) (*Indent, error) {
	if indentNumber == "" {
		return nil, fmt.Errorf("indent number cannot be empty")
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("indent %s has no lines", indentNumber)
	}

	return &Indent{
		ID:           id,
		Seq:          seq,
		IndentNumber: indentNumber,
		Date:         date,
		RequestedBy:  requestedBy,
		Lines:        lines,
	}, nil
}

// RequestedQuantity returns the total quantity this indent requests for the
// given line's item. An indent occasionally carries the same item on more
// than one line; allocation treats them as one request.
func (i *Indent) RequestedQuantity(match func(code ItemCode, name string) bool) decimal.Decimal {
	total := decimal.Zero
	for _, line := range i.Lines {
		if match(line.ItemCode, line.ItemName) {
			total = total.Add(line.Quantity)
		}
	}
	return total
}
