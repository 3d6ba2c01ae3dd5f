package entities

import "github.com/shopspring/decimal"

// IndentStatus represents whether an indent line is fully satisfiable from
// current stock
type IndentStatus int

const (
	// Open means the request is not fully satisfiable from current stock
	Open IndentStatus = iota
	// Closed means the request is fully satisfiable from current stock alone
	Closed
)

// String method for IndentStatus enum
func (s IndentStatus) String() string {
	switch s {
	case Open:
		return "open"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

// AllocationResult is the derived allocation picture for one (indent, item)
// pair. It is recomputed whenever an upstream collection changes and is never
// independently mutated.
//
// Allocated draws on TotalStock only. AvailableAfter additionally counts
// incoming purchase-order quantity as a forward-looking cushion, so a
// requester can see whether an unmet request will clear once orders land.
// AvailableAfter may be negative; the shortfall depth is meaningful and is
// never clamped in derived reports.
type AllocationResult struct {
	ItemCode            ItemCode
	TotalStock          decimal.Decimal
	PreviouslyAllocated decimal.Decimal
	POQuantity          decimal.Decimal
	AvailableBefore     decimal.Decimal
	Allocated           decimal.Decimal
	AvailableAfter      decimal.Decimal
	Closed              bool
}

// Status returns the open/closed status implied by the result
func (r AllocationResult) Status() IndentStatus {
	if r.Closed {
		return Closed
	}
	return Open
}
