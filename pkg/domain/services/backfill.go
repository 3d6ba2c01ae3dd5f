package services

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/smehta/procure/pkg/domain/entities"
)

// BackfillSources are the upstream collections a backfill pass reads from.
// Lookups are keyed by PO number, falling back to indent number, and take
// the first match in collection order. Priority between collections follows
// the pipeline direction: dispatch records, then inspection records, then
// purchase records, then a generated default.
type BackfillSources struct {
	DispatchOrders []*entities.VendorDispatchOrder
	Inspections    []*entities.InspectionRecord
	PurchaseOrders []*entities.PurchaseOrder
	Indents        []*entities.Indent
}

// NewBackfillSources builds backfill sources from a snapshot
func NewBackfillSources(snap Snapshot) BackfillSources {
	return BackfillSources{
		DispatchOrders: snap.DispatchOrders,
		Inspections:    snap.Inspections,
		PurchaseOrders: snap.PurchaseOrders,
		Indents:        snap.Indents,
	}
}

// FillDispatchOrder fills the blank descriptive fields of a dispatch order
// from upstream records sharing its order identifier. Non-empty fields are
// never overwritten, so repeated passes are idempotent. Returns whether
// anything changed; callers use that as the write guard.
func (s BackfillSources) FillDispatchOrder(d *entities.VendorDispatchOrder, now time.Time) (bool, error) {
	changed := false

	changed = fillString(&d.OrderAckNumber,
		s.fromDispatch(d.ID, d.PONumber, d.IndentNumber, func(o *entities.VendorDispatchOrder) string { return o.OrderAckNumber }),
		s.fromInspection("", d.PONumber, d.IndentNumber, func(r *entities.InspectionRecord) string { return r.OrderAckNumber }),
		s.fromIndent(d.IndentNumber, func(i *entities.Indent) string { return i.OrderAckNumber }),
	) || changed

	changed = fillString(&d.BatchNumber,
		s.fromDispatch(d.ID, d.PONumber, d.IndentNumber, func(o *entities.VendorDispatchOrder) string { return o.BatchNumber }),
		s.fromInspection("", d.PONumber, d.IndentNumber, func(r *entities.InspectionRecord) string { return r.BatchNumber }),
		s.fromPOLine(d.PONumber, d.ItemCode, d.ItemName, func(l entities.POLine) string { return l.BatchNumber }),
	) || changed

	changed = fillString(&d.VendorName,
		s.fromDispatch(d.ID, d.PONumber, d.IndentNumber, func(o *entities.VendorDispatchOrder) string { return o.VendorName }),
		s.fromInspection("", d.PONumber, d.IndentNumber, func(r *entities.InspectionRecord) string { return r.VendorName }),
		s.fromPO(d.PONumber, func(po *entities.PurchaseOrder) string { return po.Supplier }),
	) || changed

	vb := firstNonEmpty(
		s.fromDispatch(d.ID, d.PONumber, d.IndentNumber, func(o *entities.VendorDispatchOrder) string { return o.VendorBatchNumber }),
		s.fromInspection("", d.PONumber, d.IndentNumber, func(r *entities.InspectionRecord) string { return r.VendorBatchNumber }),
		s.fromPOLine(d.PONumber, d.ItemCode, d.ItemName, func(l entities.POLine) string { return l.VendorBatchNumber }),
	)
	if strings.TrimSpace(d.VendorBatchNumber) == "" && vb == "" {
		// Nothing upstream carries one; mint the next sequence for this
		// collection.
		generated, err := NextVendorBatchNumber(dispatchVendorBatches(s.DispatchOrders), now)
		if err != nil {
			return changed, err
		}
		vb = generated
	}
	changed = fillString(&d.VendorBatchNumber, vb) || changed

	if d.Quantity.IsZero() {
		if q, ok := s.plannedQuantity(d.PONumber, d.IndentNumber, d.ItemCode, d.ItemName); ok {
			d.Quantity = q
			changed = true
		}
	}

	return changed, nil
}

// FillInspectionRecord fills the blank fields of an inspection record from
// upstream records. Dispatch records outrank other inspections, which
// outrank purchase records. Same fill-blanks-only rule as dispatch orders.
func (s BackfillSources) FillInspectionRecord(rec *entities.InspectionRecord, now time.Time) (bool, error) {
	changed := false

	changed = fillString(&rec.OrderAckNumber,
		s.fromDispatch("", rec.PONumber, rec.IndentNumber, func(o *entities.VendorDispatchOrder) string { return o.OrderAckNumber }),
		s.fromInspection(rec.ID, rec.PONumber, rec.IndentNumber, func(r *entities.InspectionRecord) string { return r.OrderAckNumber }),
		s.fromIndent(rec.IndentNumber, func(i *entities.Indent) string { return i.OrderAckNumber }),
	) || changed

	changed = fillString(&rec.BatchNumber,
		s.fromDispatch("", rec.PONumber, rec.IndentNumber, func(o *entities.VendorDispatchOrder) string { return o.BatchNumber }),
		s.fromInspection(rec.ID, rec.PONumber, rec.IndentNumber, func(r *entities.InspectionRecord) string { return r.BatchNumber }),
		s.fromPOLine(rec.PONumber, rec.ItemCode, rec.ItemName, func(l entities.POLine) string { return l.BatchNumber }),
	) || changed

	changed = fillString(&rec.VendorName,
		s.fromDispatch("", rec.PONumber, rec.IndentNumber, func(o *entities.VendorDispatchOrder) string { return o.VendorName }),
		s.fromInspection(rec.ID, rec.PONumber, rec.IndentNumber, func(r *entities.InspectionRecord) string { return r.VendorName }),
		s.fromPO(rec.PONumber, func(po *entities.PurchaseOrder) string { return po.Supplier }),
	) || changed

	vb := firstNonEmpty(
		s.fromDispatch("", rec.PONumber, rec.IndentNumber, func(o *entities.VendorDispatchOrder) string { return o.VendorBatchNumber }),
		s.fromInspection(rec.ID, rec.PONumber, rec.IndentNumber, func(r *entities.InspectionRecord) string { return r.VendorBatchNumber }),
		s.fromPOLine(rec.PONumber, rec.ItemCode, rec.ItemName, func(l entities.POLine) string { return l.VendorBatchNumber }),
	)
	if strings.TrimSpace(rec.VendorBatchNumber) == "" && vb == "" {
		generated, err := NextVendorBatchNumber(inspectionVendorBatches(s.Inspections), now)
		if err != nil {
			return changed, err
		}
		vb = generated
	}
	changed = fillString(&rec.VendorBatchNumber, vb) || changed

	if rec.Quantity.IsZero() {
		if q, ok := s.plannedQuantity(rec.PONumber, rec.IndentNumber, rec.ItemCode, rec.ItemName); ok {
			rec.Quantity = q
			changed = true
		}
	}

	return changed, nil
}

// plannedQuantity resolves a missing downstream quantity: the ordered
// quantity on the matching purchase line (matched by item code, then item
// name), else its received quantity, else the requesting indent line's
// quantity. Reports false when nothing resolves; the caller leaves zero in
// place.
func (s BackfillSources) plannedQuantity(
	poNumber, indentNumber string,
	code entities.ItemCode,
	name string,
) (decimal.Decimal, bool) {
	for _, po := range s.PurchaseOrders {
		if !sameOrderKey(po.PONumber, poNumber) {
			continue
		}
		if line, ok := matchLine(po.Lines, code, name); ok {
			if line.OrderedQuantity.IsPositive() {
				return line.OrderedQuantity, true
			}
			if line.ReceivedQuantity.IsPositive() {
				return line.ReceivedQuantity, true
			}
		}
	}
	for _, ind := range s.Indents {
		if !sameOrderKey(ind.IndentNumber, indentNumber) {
			continue
		}
		for _, line := range ind.Lines {
			if MatchesItem(line.ItemCode, line.ItemName, code, name) {
				return line.Quantity, true
			}
		}
	}
	return decimal.Zero, false
}

func (s BackfillSources) fromDispatch(selfID, poNumber, indentNumber string, pick func(*entities.VendorDispatchOrder) string) string {
	for _, o := range s.DispatchOrders {
		if selfID != "" && o.ID == selfID {
			continue
		}
		if orderKeyMatches(poNumber, indentNumber, o.PONumber, o.IndentNumber) {
			if v := strings.TrimSpace(pick(o)); v != "" {
				return v
			}
		}
	}
	return ""
}

func (s BackfillSources) fromInspection(selfID, poNumber, indentNumber string, pick func(*entities.InspectionRecord) string) string {
	for _, r := range s.Inspections {
		if selfID != "" && r.ID == selfID {
			continue
		}
		if orderKeyMatches(poNumber, indentNumber, r.PONumber, r.IndentNumber) {
			if v := strings.TrimSpace(pick(r)); v != "" {
				return v
			}
		}
	}
	return ""
}

func (s BackfillSources) fromPO(poNumber string, pick func(*entities.PurchaseOrder) string) string {
	for _, po := range s.PurchaseOrders {
		if sameOrderKey(po.PONumber, poNumber) {
			if v := strings.TrimSpace(pick(po)); v != "" {
				return v
			}
		}
	}
	return ""
}

func (s BackfillSources) fromPOLine(poNumber string, code entities.ItemCode, name string, pick func(entities.POLine) string) string {
	for _, po := range s.PurchaseOrders {
		if !sameOrderKey(po.PONumber, poNumber) {
			continue
		}
		if line, ok := matchLine(po.Lines, code, name); ok {
			if v := strings.TrimSpace(pick(line)); v != "" {
				return v
			}
		}
	}
	return ""
}

func (s BackfillSources) fromIndent(indentNumber string, pick func(*entities.Indent) string) string {
	for _, ind := range s.Indents {
		if sameOrderKey(ind.IndentNumber, indentNumber) {
			if v := strings.TrimSpace(pick(ind)); v != "" {
				return v
			}
		}
	}
	return ""
}

// matchLine finds the purchase line for an item: by code first, then by
// name. Item-less queries match nothing rather than the first line.
func matchLine(lines []entities.POLine, code entities.ItemCode, name string) (entities.POLine, bool) {
	if Normalize(string(code)) != "" {
		for _, l := range lines {
			if Normalize(string(l.ItemCode)) == Normalize(string(code)) {
				return l, true
			}
		}
	}
	if Normalize(name) != "" {
		for _, l := range lines {
			if Normalize(l.ItemName) == Normalize(name) {
				return l, true
			}
		}
	}
	return entities.POLine{}, false
}

// orderKeyMatches applies the shared-order-identifier rule: match on PO
// number when the downstream record has one, else on indent number.
func orderKeyMatches(poNumber, indentNumber, candPO, candIndent string) bool {
	if strings.TrimSpace(poNumber) != "" {
		return sameOrderKey(candPO, poNumber)
	}
	return sameOrderKey(candIndent, indentNumber)
}

func sameOrderKey(a, b string) bool {
	na, nb := Normalize(a), Normalize(b)
	return na != "" && na == nb
}

// fillString sets dst to the first non-empty candidate, but only when dst is
// blank. Never reconciles conflicting non-blank values.
func fillString(dst *string, candidates ...string) bool {
	if strings.TrimSpace(*dst) != "" {
		return false
	}
	if v := firstNonEmpty(candidates...); v != "" {
		*dst = v
		return true
	}
	return false
}

func firstNonEmpty(candidates ...string) string {
	for _, c := range candidates {
		if v := strings.TrimSpace(c); v != "" {
			return v
		}
	}
	return ""
}

func dispatchVendorBatches(orders []*entities.VendorDispatchOrder) []string {
	out := make([]string, 0, len(orders))
	for _, o := range orders {
		out = append(out, o.VendorBatchNumber)
	}
	return out
}

func inspectionVendorBatches(recs []*entities.InspectionRecord) []string {
	out := make([]string, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.VendorBatchNumber)
	}
	return out
}
