package services

import (
	"fmt"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/smehta/procure/pkg/domain/entities"
)

// Snapshot is the full input set the derivation services run against: one
// consistent read of every collection. Derivations take the snapshot as an
// explicit parameter and never touch ambient state.
type Snapshot struct {
	Stocks         []*entities.StockRecord
	Indents        []*entities.Indent
	PurchaseOrders []*entities.PurchaseOrder
	DispatchOrders []*entities.VendorDispatchOrder
	Inspections    []*entities.InspectionRecord
}

// SortIndents orders the indent list by creation sequence, then creation
// time. The allocation walk depends on this total order, so it is applied
// here rather than trusting store-returned ordering.
func (s *Snapshot) SortIndents() {
	sort.SliceStable(s.Indents, func(i, j int) bool {
		a, b := s.Indents[i], s.Indents[j]
		if a.Seq != b.Seq {
			return a.Seq < b.Seq
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})
}

// LineAllocation is the allocation result for one indent line, in walk order
type LineAllocation struct {
	IndentNumber string
	IndentSeq    int64
	LineIndex    int
	ItemCode     entities.ItemCode
	ItemName     string
	Requested    decimal.Decimal
	Result       entities.AllocationResult
}

// AllocationEngine computes, per indent, how much of the shared pool (stock
// plus incoming purchase orders) is allocated to it. Allocation is
// sequential: earlier indents consume the pool first, and the walk over
// earlier indents is memoized per item so repeated queries do not rescan.
//
// The engine is pure with respect to its snapshot; build a new engine when
// the snapshot changes.
type AllocationEngine struct {
	resolver *StockResolver
	indents  []*entities.Indent
	orders   []*entities.PurchaseOrder

	mu    sync.Mutex
	walks map[string]*itemWalk
}

// itemWalk caches the cumulative allocation walk for one item. cumulative[i]
// is the quantity allocated to indents[0..i); requested[i] is what indent i
// asked for.
type itemWalk struct {
	total      decimal.Decimal
	poQuantity decimal.Decimal
	requested  []decimal.Decimal
	cumulative []decimal.Decimal
}

// NewAllocationEngine creates an engine over a snapshot. Indents are sorted
// by creation sequence before any allocation is computed.
func NewAllocationEngine(snap Snapshot) *AllocationEngine {
	snap.SortIndents()
	return &AllocationEngine{
		resolver: NewStockResolver(snap.Stocks),
		indents:  snap.Indents,
		orders:   snap.PurchaseOrders,
		walks:    make(map[string]*itemWalk),
	}
}

// Resolver exposes the engine's stock resolver
func (e *AllocationEngine) Resolver() *StockResolver {
	return e.resolver
}

// IndentCount returns the number of indents in the walk
func (e *AllocationEngine) IndentCount() int {
	return len(e.indents)
}

// Analyze computes the allocation picture for a request of requestedQty of
// an item at position indentIndex in the walk. indentIndex may be
// len(indents) for a request that would be appended next. An out-of-range
// index is a programmer error and returns an error; missing stock or
// purchase data resolves to zero and does not.
func (e *AllocationEngine) Analyze(
	code entities.ItemCode,
	name string,
	indentIndex int,
	requestedQty decimal.Decimal,
) (entities.AllocationResult, error) {
	if indentIndex < 0 || indentIndex > len(e.indents) {
		return entities.AllocationResult{}, fmt.Errorf(
			"indent index %d out of range [0, %d]", indentIndex, len(e.indents),
		)
	}

	w := e.walk(code, name)
	previously := w.cumulative[indentIndex]
	availableBefore := w.total.Sub(previously)
	allocated := decimal.Min(decimal.Max(decimal.Zero, availableBefore), requestedQty)

	// Allocation commits against confirmed stock only. The "after" figure
	// additionally counts incoming PO quantity, and may go negative to show
	// shortfall depth.
	availableAfter := w.total.Add(w.poQuantity).Sub(previously).Sub(requestedQty)

	return entities.AllocationResult{
		ItemCode:            code,
		TotalStock:          w.total,
		PreviouslyAllocated: previously,
		POQuantity:          w.poQuantity,
		AvailableBefore:     availableBefore,
		Allocated:           allocated,
		AvailableAfter:      availableAfter,
		Closed:              availableBefore.GreaterThanOrEqual(requestedQty),
	}, nil
}

// AnalyzeAll walks every indent line in creation order and returns its
// allocation result. Each line is analyzed with its own quantity at its
// indent's position.
func (e *AllocationEngine) AnalyzeAll() []LineAllocation {
	var out []LineAllocation
	for i, ind := range e.indents {
		for li, line := range ind.Lines {
			res, err := e.Analyze(line.ItemCode, line.ItemName, i, line.Quantity)
			if err != nil {
				// Index comes from the walk itself; unreachable
				continue
			}
			out = append(out, LineAllocation{
				IndentNumber: ind.IndentNumber,
				IndentSeq:    ind.Seq,
				LineIndex:    li,
				ItemCode:     line.ItemCode,
				ItemName:     line.ItemName,
				Requested:    line.Quantity,
				Result:       res,
			})
		}
	}
	return out
}

// AllocatedStock returns the total quantity allocated to existing indents
// for an item.
func (e *AllocationEngine) AllocatedStock(code entities.ItemCode, name string) decimal.Decimal {
	w := e.walk(code, name)
	return w.cumulative[len(e.indents)]
}

// POQuantity returns the total incoming purchase-order quantity for an item
func (e *AllocationEngine) POQuantity(code entities.ItemCode, name string) decimal.Decimal {
	return e.walk(code, name).poQuantity
}

// TotalStock returns the resolved on-hand stock for an item
func (e *AllocationEngine) TotalStock(code entities.ItemCode, name string) decimal.Decimal {
	return e.walk(code, name).total
}

// RemainingStock returns the pool left for an item after every existing
// indent and the given not-yet-saved draft lines have been deducted in
// sequence. Like AvailableAfter, the figure includes incoming PO quantity
// and may be negative.
func (e *AllocationEngine) RemainingStock(
	code entities.ItemCode,
	name string,
	draft []entities.IndentLine,
) decimal.Decimal {
	w := e.walk(code, name)
	remaining := w.total.Add(w.poQuantity).Sub(w.cumulative[len(e.indents)])
	for _, line := range draft {
		if MatchesItem(line.ItemCode, line.ItemName, code, name) {
			remaining = remaining.Sub(line.Quantity)
		}
	}
	return remaining
}

func (e *AllocationEngine) itemKey(code entities.ItemCode, name string) string {
	if k := AlphaForm(string(code)); k != "" {
		return "c:" + k
	}
	return "n:" + AlphaForm(name)
}

// walk returns the memoized cumulative allocation walk for an item,
// computing it on first use.
func (e *AllocationEngine) walk(code entities.ItemCode, name string) *itemWalk {
	key := e.itemKey(code, name)

	e.mu.Lock()
	defer e.mu.Unlock()
	if w, ok := e.walks[key]; ok {
		return w
	}

	match := func(c entities.ItemCode, n string) bool {
		return MatchesItem(c, n, code, name)
	}

	w := &itemWalk{
		total:      e.resolver.Resolve(code, name),
		poQuantity: decimal.Zero,
		requested:  make([]decimal.Decimal, len(e.indents)),
		cumulative: make([]decimal.Decimal, len(e.indents)+1),
	}

	for _, po := range e.orders {
		for _, line := range po.Lines {
			if match(line.ItemCode, line.ItemName) {
				w.poQuantity = w.poQuantity.Add(line.OrderedQuantity)
			}
		}
	}

	cum := decimal.Zero
	w.cumulative[0] = cum
	for i, ind := range e.indents {
		req := ind.RequestedQuantity(match)
		w.requested[i] = req
		if req.IsPositive() {
			available := decimal.Max(decimal.Zero, w.total.Sub(cum))
			cum = cum.Add(decimal.Min(available, req))
		}
		w.cumulative[i+1] = cum
	}

	e.walks[key] = w
	return w
}
