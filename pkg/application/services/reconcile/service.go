// Package reconcile keeps the derived procurement views in sync with the
// document store. One Service subscribes to every input collection of a
// scope; each push triggers a full rederivation: decode, allocation walk,
// cache rebuild, backfill writes, and publication of the open/closed item
// lists.
package reconcile

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/smehta/procure/pkg/application/dto"
	"github.com/smehta/procure/pkg/application/services/shared"
	"github.com/smehta/procure/pkg/domain/repositories"
	"github.com/smehta/procure/pkg/domain/services"
	"github.com/smehta/procure/pkg/infrastructure/ingest"
)

// inputCollections are the collections a Service watches. Order matters only
// for logging.
var inputCollections = []string{
	repositories.CollectionStockRecords,
	repositories.CollectionIndents,
	repositories.CollectionPurchaseOrders,
	repositories.CollectionDispatchOrders,
	repositories.CollectionInspections,
}

// Service is the sync orchestrator for one scope. It is safe for concurrent
// use; store callbacks may arrive on any goroutine.
type Service struct {
	store repositories.DocumentStore
	scope string
	log   *logrus.Entry
	cache *shared.StockCache
	now   func() time.Time

	mu         sync.Mutex
	generation int64
	teardowns  []func()
	raw        map[string][]repositories.Document
	seen       map[string]bool

	lastOpen   []map[string]any
	lastClosed []map[string]any
	changes    []dto.BackfillChange
	changed    map[string]bool
}

// NewService creates a sync orchestrator for the given scope. It does not
// subscribe until Start is called.
func NewService(store repositories.DocumentStore, scope string, logger *logrus.Logger) *Service {
	if logger == nil {
		logger = logrus.New()
	}
	return &Service{
		store: store,
		scope: scope,
		log:   logger.WithField("scope", scope),
		cache: shared.NewStockCache(),
		now:     time.Now,
		raw:     make(map[string][]repositories.Document),
		seen:    make(map[string]bool),
		changed: make(map[string]bool),
	}
}

// Cache exposes the derived-view cache backed by this service
func (s *Service) Cache() *shared.StockCache {
	return s.cache
}

// Start subscribes to every input collection. Calling Start again supersedes
// the previous subscriptions: callbacks still in flight from the old ones are
// discarded.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	s.generation++
	gen := s.generation
	old := s.teardowns
	s.teardowns = nil
	s.raw = make(map[string][]repositories.Document)
	s.seen = make(map[string]bool)
	s.changes = nil
	s.changed = make(map[string]bool)
	s.lastOpen = nil
	s.lastClosed = nil
	s.mu.Unlock()

	for _, teardown := range old {
		teardown()
	}

	for _, collection := range inputCollections {
		collection := collection
		unsubscribe, err := s.store.Subscribe(ctx, s.scope, collection, func(docs []repositories.Document) {
			s.onSnapshot(ctx, gen, collection, docs)
		})
		if err != nil {
			s.Close()
			return fmt.Errorf("failed to subscribe to %s: %w", collection, err)
		}
		s.mu.Lock()
		if s.generation == gen {
			s.teardowns = append(s.teardowns, unsubscribe)
			s.mu.Unlock()
		} else {
			s.mu.Unlock()
			unsubscribe()
			return nil
		}
	}

	s.log.WithField("collections", len(inputCollections)).Info("Sync started")
	return nil
}

// Close tears down every subscription. Snapshots already in flight are
// discarded; calling Close more than once is harmless.
func (s *Service) Close() {
	s.mu.Lock()
	s.generation++
	old := s.teardowns
	s.teardowns = nil
	s.mu.Unlock()

	for _, teardown := range old {
		teardown()
	}
}

// onSnapshot is the single entry point for store pushes. It records the
// collection's new contents and rederives everything downstream.
func (s *Service) onSnapshot(ctx context.Context, gen int64, collection string, docs []repositories.Document) {
	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		return
	}
	s.raw[collection] = docs
	s.seen[collection] = true
	state := make(map[string][]repositories.Document, len(s.raw))
	for k, v := range s.raw {
		state[k] = v
	}
	s.mu.Unlock()

	s.log.WithFields(logrus.Fields{
		"collection": collection,
		"documents":  len(docs),
	}).Debug("Snapshot received")

	snap := s.decode(state)
	snap.SortIndents()
	s.cache.Rebuild(snap)

	changes := s.backfill(ctx, gen, snap)

	// A snapshot that raced a backfill write can rediscover the same record;
	// the write is value-idempotent, so the report lists each record once.
	s.mu.Lock()
	if gen == s.generation {
		for _, c := range changes {
			key := c.Collection + "/" + c.RecordID
			if !s.changed[key] {
				s.changed[key] = true
				s.changes = append(s.changes, c)
			}
		}
	}
	s.mu.Unlock()

	s.publish(ctx, gen)
}

// decode turns the raw collection state into canonical entities. Malformed
// documents are logged and skipped, never fatal.
func (s *Service) decode(state map[string][]repositories.Document) services.Snapshot {
	var snap services.Snapshot
	var skipped []error

	var errs []error
	snap.Stocks, errs = ingest.DecodeStockRecords(state[repositories.CollectionStockRecords])
	skipped = append(skipped, errs...)
	snap.Indents, errs = ingest.DecodeIndents(state[repositories.CollectionIndents])
	skipped = append(skipped, errs...)
	snap.PurchaseOrders, errs = ingest.DecodePurchaseOrders(state[repositories.CollectionPurchaseOrders])
	skipped = append(skipped, errs...)
	snap.DispatchOrders, errs = ingest.DecodeDispatchOrders(state[repositories.CollectionDispatchOrders])
	skipped = append(skipped, errs...)
	snap.Inspections, errs = ingest.DecodeInspections(state[repositories.CollectionInspections])
	skipped = append(skipped, errs...)

	for _, err := range skipped {
		s.log.WithError(err).Warn("Skipped malformed document")
	}
	return snap
}

// backfill fills blank fields on dispatch orders and inspection records and
// writes back only the records that actually changed. The store push caused
// by each write re-enters onSnapshot; since filling is idempotent, the next
// pass finds nothing to change and the loop settles.
func (s *Service) backfill(ctx context.Context, gen int64, snap services.Snapshot) []dto.BackfillChange {
	sources := services.NewBackfillSources(snap)
	now := s.now()
	var changes []dto.BackfillChange

	for _, d := range snap.DispatchOrders {
		changed, err := sources.FillDispatchOrder(d, now)
		if err != nil {
			s.log.WithError(err).WithField("id", d.ID).Warn("Dispatch backfill failed")
			continue
		}
		if !changed || s.stale(gen) {
			continue
		}
		if err := s.store.Update(ctx, s.scope, repositories.CollectionDispatchOrders, d.ID, ingest.EncodeDispatchOrder(d)); err != nil {
			s.log.WithError(err).WithField("id", d.ID).Error("Failed to write dispatch backfill")
			continue
		}
		changes = append(changes, dto.BackfillChange{
			Collection: repositories.CollectionDispatchOrders,
			RecordID:   d.ID,
			OrderKey:   orderKey(d.PONumber, d.IndentNumber),
		})
	}

	for _, rec := range snap.Inspections {
		changed, err := sources.FillInspectionRecord(rec, now)
		if err != nil {
			s.log.WithError(err).WithField("id", rec.ID).Warn("Inspection backfill failed")
			continue
		}
		if !changed || s.stale(gen) {
			continue
		}
		if err := s.store.Update(ctx, s.scope, repositories.CollectionInspections, rec.ID, ingest.EncodeInspectionRecord(rec)); err != nil {
			s.log.WithError(err).WithField("id", rec.ID).Error("Failed to write inspection backfill")
			continue
		}
		changes = append(changes, dto.BackfillChange{
			Collection: repositories.CollectionInspections,
			RecordID:   rec.ID,
			OrderKey:   orderKey(rec.PONumber, rec.IndentNumber),
		})
	}

	if len(changes) > 0 {
		s.log.WithField("changes", len(changes)).Info("Backfill applied")
	}
	return changes
}

// publish replaces the open/closed item collections with the current derived
// rows. Each list is written only when its payload differs from the last one
// published, so a derivation that changes nothing writes nothing.
func (s *Service) publish(ctx context.Context, gen int64) {
	open := encodeRows(s.cache.OpenItems())
	closed := encodeRows(s.cache.ClosedItems())

	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		return
	}
	writeOpen := !reflect.DeepEqual(open, s.lastOpen)
	writeClosed := !reflect.DeepEqual(closed, s.lastClosed)
	if writeOpen {
		s.lastOpen = open
	}
	if writeClosed {
		s.lastClosed = closed
	}
	s.mu.Unlock()

	if writeOpen {
		if err := s.store.ReplaceAll(ctx, s.scope, repositories.CollectionOpenItems, open); err != nil {
			s.log.WithError(err).Error("Failed to publish open items")
		} else {
			s.log.WithField("rows", len(open)).Debug("Published open items")
		}
	}
	if writeClosed {
		if err := s.store.ReplaceAll(ctx, s.scope, repositories.CollectionClosedItems, closed); err != nil {
			s.log.WithError(err).Error("Failed to publish closed items")
		} else {
			s.log.WithField("rows", len(closed)).Debug("Published closed items")
		}
	}
}

// Report assembles the full derivation output for rendering
func (s *Service) Report() dto.AnalysisReport {
	s.mu.Lock()
	changes := make([]dto.BackfillChange, len(s.changes))
	copy(changes, s.changes)
	s.mu.Unlock()

	return dto.AnalysisReport{
		Lines:           s.cache.LineReports(),
		OpenItems:       s.cache.OpenItems(),
		ClosedItems:     s.cache.ClosedItems(),
		BackfillChanges: changes,
	}
}

// Ready reports whether every input collection has delivered at least once
// and the cache has been built.
func (s *Service) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, collection := range inputCollections {
		if !s.seen[collection] {
			return false
		}
	}
	return s.cache.Ready()
}

func (s *Service) stale(gen int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return gen != s.generation
}

func encodeRows(rows []dto.ItemStatusRow) []map[string]any {
	out := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		out = append(out, ingest.EncodeItemStatusRow(row))
	}
	return out
}

func orderKey(poNumber, indentNumber string) string {
	if services.Normalize(poNumber) != "" {
		return poNumber
	}
	return indentNumber
}
