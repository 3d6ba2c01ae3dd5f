package shared

import (
	"sync"

	"github.com/shopspring/decimal"

	"github.com/smehta/procure/pkg/application/dto"
	"github.com/smehta/procure/pkg/domain/entities"
	"github.com/smehta/procure/pkg/domain/services"
)

// ViewKey addresses one derived view entry: an order (indent number) plus a
// normalized item code. ItemCode is empty for the order-level fallback key.
type ViewKey struct {
	OrderID  string
	ItemCode string
}

// StockView is the O(1) read model the UI consumes per (order, item)
type StockView struct {
	DisplayStock decimal.Decimal
	IsShort      bool
	Status       entities.IndentStatus
}

// StockCache memoizes the allocation derivation against its input snapshot
// so UI-facing reads are map lookups, not rescans. Rebuild runs only when an
// input collection changes; reads before the first rebuild fall back to the
// caller's last-known value rather than flashing zeros while collections are
// still arriving.
type StockCache struct {
	mu      sync.RWMutex
	ready   bool
	views   map[ViewKey]StockView
	byOrder map[string]StockView
	lines   []dto.LineReport
	rows    []dto.ItemStatusRow
}

// NewStockCache creates an empty, not-yet-ready cache
func NewStockCache() *StockCache {
	return &StockCache{
		views:   make(map[ViewKey]StockView),
		byOrder: make(map[string]StockView),
	}
}

// Ready reports whether at least one rebuild has completed
func (c *StockCache) Ready() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ready
}

// Rebuild recomputes every view from the snapshot. Iteration follows the
// sorted indent walk, so identical inputs always produce identical output;
// the order-level fallback entry is the order's first line in line order.
func (c *StockCache) Rebuild(snap services.Snapshot) {
	engine := services.NewAllocationEngine(snap)
	allocations := engine.AnalyzeAll()

	views := make(map[ViewKey]StockView, len(allocations))
	byOrder := make(map[string]StockView, len(allocations))
	lines := make([]dto.LineReport, 0, len(allocations))
	rows := make([]dto.ItemStatusRow, 0, len(allocations))

	for _, la := range allocations {
		view := StockView{
			DisplayStock: la.Result.AvailableBefore,
			IsShort:      !la.Result.Closed,
			Status:       la.Result.Status(),
		}

		key := ViewKey{OrderID: la.IndentNumber, ItemCode: services.Normalize(string(la.ItemCode))}
		if _, exists := views[key]; !exists {
			views[key] = view
		}
		if _, exists := byOrder[la.IndentNumber]; !exists {
			byOrder[la.IndentNumber] = view
		}

		lines = append(lines, dto.LineReport{
			IndentNumber:        la.IndentNumber,
			ItemCode:            string(la.ItemCode),
			ItemName:            la.ItemName,
			Requested:           la.Requested,
			TotalStock:          la.Result.TotalStock,
			PreviouslyAllocated: la.Result.PreviouslyAllocated,
			POQuantity:          la.Result.POQuantity,
			AvailableBefore:     la.Result.AvailableBefore,
			Allocated:           la.Result.Allocated,
			AvailableAfter:      la.Result.AvailableAfter,
			Status:              la.Result.Status().String(),
		})
		rows = append(rows, dto.ItemStatusRow{
			IndentNumber: la.IndentNumber,
			ItemCode:     string(la.ItemCode),
			ItemName:     la.ItemName,
			Requested:    la.Requested,
			Allocated:    la.Result.Allocated,
			Available:    la.Result.AvailableBefore,
			Status:       la.Result.Status().String(),
		})
	}

	c.mu.Lock()
	c.ready = true
	c.views = views
	c.byOrder = byOrder
	c.lines = lines
	c.rows = rows
	c.mu.Unlock()
}

// Lookup returns the view for (orderID, itemCode), falling back to the
// order-level entry when the item code is unknown. Before the first rebuild,
// or when nothing matches, the caller's last-known stock value is returned
// with ok=false.
func (c *StockCache) Lookup(orderID, itemCode string, lastKnown decimal.Decimal) (StockView, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.ready {
		if itemCode != "" {
			if view, ok := c.views[ViewKey{OrderID: orderID, ItemCode: services.Normalize(itemCode)}]; ok {
				return view, true
			}
		}
		if view, ok := c.byOrder[orderID]; ok {
			return view, true
		}
	}

	return StockView{DisplayStock: lastKnown, Status: entities.Open}, false
}

// LineReports returns the verbose per-line breakdown from the last rebuild
func (c *StockCache) LineReports() []dto.LineReport {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]dto.LineReport, len(c.lines))
	copy(out, c.lines)
	return out
}

// OpenItems returns the rows whose request is not satisfiable from current
// stock, in walk order.
func (c *StockCache) OpenItems() []dto.ItemStatusRow {
	return c.filterRows(entities.Open.String())
}

// ClosedItems returns the rows fully satisfiable from current stock
func (c *StockCache) ClosedItems() []dto.ItemStatusRow {
	return c.filterRows(entities.Closed.String())
}

func (c *StockCache) filterRows(status string) []dto.ItemStatusRow {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []dto.ItemStatusRow
	for _, row := range c.rows {
		if row.Status == status {
			out = append(out, row)
		}
	}
	return out
}
