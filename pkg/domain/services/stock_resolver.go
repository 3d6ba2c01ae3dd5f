package services

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/smehta/procure/pkg/domain/entities"
)

// StockResolver answers "how much of this item do we hold" against a set of
// stock records. Records are matched by code first, then name, then
// progressively fuzzier forms, because upstream data entry is inconsistent
// about which identifier a record carries.
type StockResolver struct {
	records []*entities.StockRecord
}

// NewStockResolver creates a resolver over the given stock records
func NewStockResolver(records []*entities.StockRecord) *StockResolver {
	return &StockResolver{records: records}
}

// Normalize trims and uppercases an identifier for comparison
func Normalize(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// AlphaForm normalizes and strips every non-alphanumeric rune, so "RM-001"
// and "rm 001" compare equal
func AlphaForm(s string) string {
	var b strings.Builder
	for _, r := range Normalize(s) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// MatchesItem reports whether a record identified by (candCode, candName)
// refers to the same item as (code, name). Codes are compared normalized,
// then names, then the alpha forms of either field against either query
// field.
func MatchesItem(candCode entities.ItemCode, candName string, code entities.ItemCode, name string) bool {
	qCode := Normalize(string(code))
	qName := Normalize(name)
	cCode := Normalize(string(candCode))
	cName := Normalize(candName)

	if qCode != "" && cCode == qCode {
		return true
	}
	if qName != "" && cName == qName {
		return true
	}

	for _, q := range []string{AlphaForm(string(code)), AlphaForm(name)} {
		if q == "" {
			continue
		}
		if AlphaForm(string(candCode)) == q || AlphaForm(candName) == q {
			return true
		}
	}
	return false
}

// Resolve returns the current on-hand quantity for an item. Unmatched
// lookups resolve to zero, never an error; callers treat zero as
// "unknown/none", not as a validated stock level.
func (r *StockResolver) Resolve(code entities.ItemCode, name string) decimal.Decimal {
	rec, ok := r.ResolveRecord(code, name)
	if !ok {
		return decimal.Zero
	}
	return rec.ComputedStock()
}

// ResolveRecord returns the single best-matching stock record for an item.
// Match tiers, in priority order: exact normalized code, exact normalized
// name, alpha-form equality across code/name fields, substring containment
// in either direction across all fields. Ties within a tier go to
// chooseBestStock.
func (r *StockResolver) ResolveRecord(code entities.ItemCode, name string) (*entities.StockRecord, bool) {
	qCode := Normalize(string(code))
	qName := Normalize(name)
	if qCode == "" && qName == "" {
		return nil, false
	}

	tiers := []func(rec *entities.StockRecord) bool{
		func(rec *entities.StockRecord) bool {
			return qCode != "" && Normalize(string(rec.ItemCode)) == qCode
		},
		func(rec *entities.StockRecord) bool {
			return qName != "" && Normalize(rec.ItemName) == qName
		},
		func(rec *entities.StockRecord) bool {
			return alphaEqual(rec, qCode, qName)
		},
		func(rec *entities.StockRecord) bool {
			return containsEither(rec, qCode, qName)
		},
	}

	for _, match := range tiers {
		var candidates []*entities.StockRecord
		for _, rec := range r.records {
			if match(rec) {
				candidates = append(candidates, rec)
			}
		}
		if len(candidates) > 0 {
			return chooseBestStock(candidates), true
		}
	}

	return nil, false
}

func alphaEqual(rec *entities.StockRecord, qCode, qName string) bool {
	for _, q := range []string{AlphaForm(qCode), AlphaForm(qName)} {
		if q == "" {
			continue
		}
		if AlphaForm(string(rec.ItemCode)) == q || AlphaForm(rec.ItemName) == q {
			return true
		}
	}
	return false
}

func containsEither(rec *entities.StockRecord, qCode, qName string) bool {
	fields := []string{Normalize(string(rec.ItemCode)), Normalize(rec.ItemName)}
	for _, q := range []string{qCode, qName} {
		if q == "" {
			continue
		}
		for _, f := range fields {
			if f == "" {
				continue
			}
			if strings.Contains(f, q) || strings.Contains(q, f) {
				return true
			}
		}
	}
	return false
}

// chooseBestStock resolves duplicate stock entries for one item: prefer the
// record with the highest computed stock, and on a tie the highest creation
// sequence (the most recently entered record).
func chooseBestStock(candidates []*entities.StockRecord) *entities.StockRecord {
	best := candidates[0]
	for _, rec := range candidates[1:] {
		cmp := rec.ComputedStock().Cmp(best.ComputedStock())
		if cmp > 0 || (cmp == 0 && rec.Seq > best.Seq) {
			best = rec
		}
	}
	return best
}
