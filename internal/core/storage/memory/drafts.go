package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	v1 "github.com/mmt-lab/draftflow/internal/api/v1"
	"github.com/mmt-lab/draftflow/internal/core/storage"
)

type nativeKey struct {
	providerID string
	draftType  v1.DraftType
	nativeID   string
}

// DraftStore is an in-memory implementation of storage.DraftStore.
// Useful for testing and development.
type DraftStore struct {
	mu     sync.RWMutex
	nextID int64
	drafts map[int64]*v1.Draft
	native map[nativeKey]int64
	nowFn  func() time.Time
}

// NewDraftStore creates an empty in-memory draft store.
func NewDraftStore() *DraftStore {
	return &DraftStore{
		drafts: make(map[int64]*v1.Draft),
		native: make(map[nativeKey]int64),
		nowFn:  func() time.Time { return time.Now().UTC() },
	}
}

func keyOf(d *v1.Draft) nativeKey {
	return nativeKey{providerID: d.ProviderID, draftType: d.DraftType, nativeID: d.NativeID}
}

func (s *DraftStore) CreateDraft(ctx context.Context, d *v1.Draft) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := keyOf(d)
	if _, exists := s.native[key]; exists {
		return storage.ErrDuplicate
	}

	s.nextID++
	now := s.nowFn()
	d.ID = s.nextID
	d.CreatedAt = now
	d.UpdatedAt = now

	s.drafts[d.ID] = cloneDraft(d)
	s.native[key] = d.ID
	return nil
}

func (s *DraftStore) GetDraft(ctx context.Context, id int64) (*v1.Draft, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, exists := s.drafts[id]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return cloneDraft(d), nil
}

func (s *DraftStore) UpdateDraft(ctx context.Context, d *v1.Draft) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.drafts[d.ID]
	if !exists {
		return storage.ErrNotFound
	}

	existing.Draft = cloneDocument(d.Draft)
	existing.CollectionConceptID = d.CollectionConceptID
	existing.UpdatedAt = s.nowFn()

	d.CreatedAt = existing.CreatedAt
	d.UpdatedAt = existing.UpdatedAt
	return nil
}

func (s *DraftStore) DeleteDraft(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, exists := s.drafts[id]
	if !exists {
		return storage.ErrNotFound
	}

	delete(s.native, keyOf(d))
	delete(s.drafts, id)
	return nil
}

func (s *DraftStore) ListDrafts(ctx context.Context, query storage.DraftQuery) ([]*v1.Draft, error) {
	q := query.Normalized()

	s.mu.RLock()
	var matched []*v1.Draft
	for _, d := range s.drafts {
		if d.ProviderID != q.ProviderID {
			continue
		}
		if q.DraftType != "" && d.DraftType != q.DraftType {
			continue
		}
		matched = append(matched, cloneDraft(d))
	}
	s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].UpdatedAt.Equal(matched[j].UpdatedAt) {
			return matched[i].UpdatedAt.After(matched[j].UpdatedAt)
		}
		return matched[i].ID > matched[j].ID
	})

	result := make([]*v1.Draft, 0, q.Limit)
	for i := q.Offset; i < len(matched) && len(result) < q.Limit; i++ {
		result = append(result, matched[i])
	}
	return result, nil
}

func (s *DraftStore) Ping(ctx context.Context) error {
	return nil
}

// Len returns the number of stored drafts.
func (s *DraftStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.drafts)
}

// cloneDraft copies d so callers cannot mutate stored state.
func cloneDraft(d *v1.Draft) *v1.Draft {
	c := *d
	c.Draft = cloneDocument(d.Draft)
	return &c
}

func cloneDocument(doc map[string]interface{}) map[string]interface{} {
	if doc == nil {
		return map[string]interface{}{}
	}
	out := make(map[string]interface{}, len(doc))
	for k, v := range doc {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		return cloneDocument(t)
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}
