package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/smehta/procure/pkg/domain/repositories"
)

// DocumentStore is an in-memory document collection store with realtime
// snapshot push. It backs tests and the CLI; the firestore package provides
// the persistent equivalent.
type DocumentStore struct {
	mu          sync.RWMutex
	seq         int64
	versions    map[string]int64
	collections map[string][]repositories.Document
	subs        map[string][]*subscription
}

// subscription delivers collection snapshots to one callback. Deliveries are
// versioned: a push that loses the race to a newer one is dropped, and
// nothing is delivered after teardown.
type subscription struct {
	mu       sync.Mutex
	active   bool
	lastSeen int64
	fn       repositories.SnapshotFunc
}

func (sub *subscription) deliver(docs []repositories.Document, version int64) {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	if !sub.active || version <= sub.lastSeen {
		return
	}
	sub.lastSeen = version
	sub.fn(docs)
}

// NewDocumentStore creates an empty in-memory store
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{
		versions:    make(map[string]int64),
		collections: make(map[string][]repositories.Document),
		subs:        make(map[string][]*subscription),
	}
}

// Verify interface compliance
var _ repositories.DocumentStore = (*DocumentStore)(nil)

func collectionKey(scope, collection string) string {
	return scope + "/" + collection
}

// Subscribe registers fn for the collection and delivers the current
// snapshot before returning. Later pushes arrive on their own goroutines;
// after the returned teardown function is called no further push is
// delivered.
func (s *DocumentStore) Subscribe(
	ctx context.Context,
	scope, collection string,
	fn repositories.SnapshotFunc,
) (func(), error) {
	if fn == nil {
		return nil, fmt.Errorf("subscription callback cannot be nil")
	}
	key := collectionKey(scope, collection)
	sub := &subscription{active: true, lastSeen: -1, fn: fn}

	s.mu.Lock()
	s.subs[key] = append(s.subs[key], sub)
	docs := s.copyDocs(key)
	version := s.versions[key]
	s.mu.Unlock()

	sub.deliver(docs, version)

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			sub.mu.Lock()
			sub.active = false
			sub.mu.Unlock()

			s.mu.Lock()
			remaining := s.subs[key][:0]
			for _, existing := range s.subs[key] {
				if existing != sub {
					remaining = append(remaining, existing)
				}
			}
			s.subs[key] = remaining
			s.mu.Unlock()
		})
	}
	return unsubscribe, nil
}

// Add creates a document with a generated id and the next creation sequence
func (s *DocumentStore) Add(
	ctx context.Context,
	scope, collection string,
	fields map[string]any,
) (string, error) {
	key := collectionKey(scope, collection)

	s.mu.Lock()
	s.seq++
	doc := repositories.Document{
		ID:        uuid.NewString(),
		Seq:       s.seq,
		CreatedAt: time.Now(),
		Fields:    copyFields(fields),
	}
	s.collections[key] = append(s.collections[key], doc)
	subs, docs, version := s.bumpLocked(key)
	s.mu.Unlock()

	notify(subs, docs, version)
	return doc.ID, nil
}

// Update merges fields into an existing document
func (s *DocumentStore) Update(
	ctx context.Context,
	scope, collection, id string,
	fields map[string]any,
) error {
	key := collectionKey(scope, collection)

	s.mu.Lock()
	found := false
	for i := range s.collections[key] {
		if s.collections[key][i].ID != id {
			continue
		}
		merged := copyFields(s.collections[key][i].Fields)
		for k, v := range fields {
			merged[k] = v
		}
		s.collections[key][i].Fields = merged
		found = true
		break
	}
	if !found {
		s.mu.Unlock()
		return fmt.Errorf("document %s not found in %s", id, key)
	}
	subs, docs, version := s.bumpLocked(key)
	s.mu.Unlock()

	notify(subs, docs, version)
	return nil
}

// Delete removes a document
func (s *DocumentStore) Delete(ctx context.Context, scope, collection, id string) error {
	key := collectionKey(scope, collection)

	s.mu.Lock()
	existing := s.collections[key]
	remaining := existing[:0]
	for _, doc := range existing {
		if doc.ID != id {
			remaining = append(remaining, doc)
		}
	}
	if len(remaining) == len(existing) {
		s.mu.Unlock()
		return fmt.Errorf("document %s not found in %s", id, key)
	}
	s.collections[key] = remaining
	subs, docs, version := s.bumpLocked(key)
	s.mu.Unlock()

	notify(subs, docs, version)
	return nil
}

// ReplaceAll swaps the collection's contents for docs in one push
func (s *DocumentStore) ReplaceAll(
	ctx context.Context,
	scope, collection string,
	docs []map[string]any,
) error {
	key := collectionKey(scope, collection)

	s.mu.Lock()
	replacement := make([]repositories.Document, 0, len(docs))
	for _, fields := range docs {
		s.seq++
		replacement = append(replacement, repositories.Document{
			ID:        uuid.NewString(),
			Seq:       s.seq,
			CreatedAt: time.Now(),
			Fields:    copyFields(fields),
		})
	}
	s.collections[key] = replacement
	subs, snapshot, version := s.bumpLocked(key)
	s.mu.Unlock()

	notify(subs, snapshot, version)
	return nil
}

// Documents returns the current contents of a collection
func (s *DocumentStore) Documents(scope, collection string) []repositories.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.copyDocs(collectionKey(scope, collection))
}

// bumpLocked advances the collection version and captures everything a
// notification needs. Callers hold s.mu.
func (s *DocumentStore) bumpLocked(key string) ([]*subscription, []repositories.Document, int64) {
	s.versions[key]++
	subs := make([]*subscription, len(s.subs[key]))
	copy(subs, s.subs[key])
	return subs, s.copyDocs(key), s.versions[key]
}

func (s *DocumentStore) copyDocs(key string) []repositories.Document {
	docs := make([]repositories.Document, len(s.collections[key]))
	for i, doc := range s.collections[key] {
		doc.Fields = copyFields(doc.Fields)
		docs[i] = doc
	}
	return docs
}

func notify(subs []*subscription, docs []repositories.Document, version int64) {
	for _, sub := range subs {
		go sub.deliver(docs, version)
	}
}

func copyFields(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	return out
}
