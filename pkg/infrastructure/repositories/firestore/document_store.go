// Package firestore implements the document store against Cloud Firestore.
// Collections live under scopes/{scope}/{collection}; the creation sequence
// every consumer depends on is derived from document create time, never from
// the order a snapshot happens to list documents in.
package firestore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/smehta/procure/pkg/domain/repositories"
)

// replaceBatchSize keeps write batches under Firestore's 500-operation limit
const replaceBatchSize = 400

// DocumentStore is the Firestore-backed document store
type DocumentStore struct {
	client *firestore.Client
}

// NewDocumentStore wraps an existing Firestore client
func NewDocumentStore(client *firestore.Client) *DocumentStore {
	return &DocumentStore{client: client}
}

// Verify interface compliance
var _ repositories.DocumentStore = (*DocumentStore)(nil)

func (s *DocumentStore) collection(scope, collection string) *firestore.CollectionRef {
	return s.client.Collection("scopes").Doc(scope).Collection(collection)
}

// Subscribe listens to the collection's snapshot stream and forwards every
// snapshot to fn. The listener goroutine exits when the returned teardown
// function is called or the context is done.
func (s *DocumentStore) Subscribe(
	ctx context.Context,
	scope, collection string,
	fn repositories.SnapshotFunc,
) (func(), error) {
	if fn == nil {
		return nil, fmt.Errorf("subscription callback cannot be nil")
	}

	ctx, cancel := context.WithCancel(ctx)
	snapshots := s.collection(scope, collection).Snapshots(ctx)

	go func() {
		defer snapshots.Stop()
		for {
			snap, err := snapshots.Next()
			if err != nil {
				// Canceled on teardown; anything else means the stream is
				// dead and nothing more will arrive.
				return
			}
			docs, err := collectDocuments(snap.Documents)
			if err != nil {
				continue
			}
			fn(docs)
		}
	}()

	var once sync.Once
	return func() { once.Do(cancel) }, nil
}

// collectDocuments drains a snapshot iterator into documents ordered by
// create time. Seq is the position in that order.
func collectDocuments(iter *firestore.DocumentIterator) ([]repositories.Document, error) {
	var snaps []*firestore.DocumentSnapshot
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read snapshot documents: %w", err)
		}
		snaps = append(snaps, snap)
	}

	sort.SliceStable(snaps, func(i, j int) bool {
		if !snaps[i].CreateTime.Equal(snaps[j].CreateTime) {
			return snaps[i].CreateTime.Before(snaps[j].CreateTime)
		}
		return snaps[i].Ref.ID < snaps[j].Ref.ID
	})

	docs := make([]repositories.Document, 0, len(snaps))
	for i, snap := range snaps {
		docs = append(docs, repositories.Document{
			ID:        snap.Ref.ID,
			Seq:       int64(i + 1),
			CreatedAt: snap.CreateTime,
			Fields:    snap.Data(),
		})
	}
	return docs, nil
}

// Add creates a document with a server-assigned id
func (s *DocumentStore) Add(
	ctx context.Context,
	scope, collection string,
	fields map[string]any,
) (string, error) {
	ref, _, err := s.collection(scope, collection).Add(ctx, fields)
	if err != nil {
		return "", fmt.Errorf("failed to add document to %s: %w", collection, err)
	}
	return ref.ID, nil
}

// Update merges fields into an existing document
func (s *DocumentStore) Update(
	ctx context.Context,
	scope, collection, id string,
	fields map[string]any,
) error {
	ref := s.collection(scope, collection).Doc(id)
	if _, err := ref.Get(ctx); err != nil {
		if status.Code(err) == codes.NotFound {
			return fmt.Errorf("document %s not found in %s", id, collection)
		}
		return fmt.Errorf("failed to read document %s: %w", id, err)
	}
	if _, err := ref.Set(ctx, fields, firestore.MergeAll); err != nil {
		return fmt.Errorf("failed to update document %s: %w", id, err)
	}
	return nil
}

// Delete removes a document
func (s *DocumentStore) Delete(ctx context.Context, scope, collection, id string) error {
	ref := s.collection(scope, collection).Doc(id)
	if _, err := ref.Get(ctx); err != nil {
		if status.Code(err) == codes.NotFound {
			return fmt.Errorf("document %s not found in %s", id, collection)
		}
		return fmt.Errorf("failed to read document %s: %w", id, err)
	}
	if _, err := ref.Delete(ctx); err != nil {
		return fmt.Errorf("failed to delete document %s: %w", id, err)
	}
	return nil
}

// ReplaceAll deletes the collection's current documents and writes docs in
// their place, batched to stay under the write-batch limit. Listeners see
// intermediate states; the final snapshot carries exactly docs.
func (s *DocumentStore) ReplaceAll(
	ctx context.Context,
	scope, collection string,
	docs []map[string]any,
) error {
	col := s.collection(scope, collection)

	refs, err := existingRefs(ctx, col)
	if err != nil {
		return fmt.Errorf("failed to list %s for replacement: %w", collection, err)
	}

	batch := s.client.Batch()
	pending := 0
	flush := func() error {
		if pending == 0 {
			return nil
		}
		if _, err := batch.Commit(ctx); err != nil {
			return fmt.Errorf("failed to commit replacement batch: %w", err)
		}
		batch = s.client.Batch()
		pending = 0
		return nil
	}

	for _, ref := range refs {
		batch.Delete(ref)
		pending++
		if pending >= replaceBatchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	for _, fields := range docs {
		batch.Create(col.NewDoc(), fields)
		pending++
		if pending >= replaceBatchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	return flush()
}

func existingRefs(ctx context.Context, col *firestore.CollectionRef) ([]*firestore.DocumentRef, error) {
	var refs []*firestore.DocumentRef
	iter := col.DocumentRefs(ctx)
	for {
		ref, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, nil
}
