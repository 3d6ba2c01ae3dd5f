package repositories

import (
	"context"
	"time"
)

// Collection names used by the procurement pipeline. Every collection is
// scoped to an owner (a user or site), so two scopes never see each other's
// documents.
const (
	CollectionStockRecords   = "stockRecords"
	CollectionIndents        = "indents"
	CollectionPurchaseOrders = "purchaseOrders"
	CollectionDispatchOrders = "dispatchOrders"
	CollectionInspections    = "inspections"
	CollectionOpenItems      = "openItems"
	CollectionClosedItems    = "closedItems"
)

// Document is one record in a store collection. Fields hold the raw document
// body; the ingest package reconciles field aliases into canonical entities
// exactly once, at this boundary. Seq is a store-assigned creation sequence:
// it is the stable total order the allocation walk depends on, so consumers
// never rely on the order documents happen to arrive in.
type Document struct {
	ID        string
	Seq       int64
	CreatedAt time.Time
	Fields    map[string]any
}

// SnapshotFunc receives the full current document list of a collection every
// time the collection changes.
type SnapshotFunc func(docs []Document)

// DocumentStore is the external document-collection store the pipeline runs
// against. Implementations push the complete collection on every change and
// must stop delivering once the returned unsubscribe function has been
// called.
type DocumentStore interface {
	// Subscribe registers fn for pushes of the named collection. The initial
	// snapshot is delivered as well. The returned function tears the
	// subscription down; calling it more than once is harmless.
	Subscribe(ctx context.Context, scope, collection string, fn SnapshotFunc) (func(), error)

	// Add creates a document and returns its id
	Add(ctx context.Context, scope, collection string, fields map[string]any) (string, error)

	// Update merges the given fields into an existing document
	Update(ctx context.Context, scope, collection, id string, fields map[string]any) error

	// Delete removes a document
	Delete(ctx context.Context, scope, collection, id string) error

	// ReplaceAll atomically replaces the collection's contents with docs.
	// Used for derived publications such as the open/closed item lists.
	ReplaceAll(ctx context.Context, scope, collection string, docs []map[string]any) error
}
