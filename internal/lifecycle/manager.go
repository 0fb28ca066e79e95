// Package lifecycle drives drafts from creation through catalog publication
// or deletion.
//
// Every operation takes the calling user explicitly and runs synchronously
// within one request. Nothing is retried and no intermediate state is
// persisted between validation and publication.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	v1 "github.com/mmt-lab/draftflow/internal/api/v1"
	"github.com/mmt-lab/draftflow/internal/catalog"
	"github.com/mmt-lab/draftflow/internal/core/storage"
	"github.com/mmt-lab/draftflow/internal/metadata"
	"github.com/mmt-lab/draftflow/internal/notify"
	"github.com/mmt-lab/draftflow/internal/pagemap"
)

// Catalog is the part of the catalog API the manager drives.
type Catalog interface {
	IngestDraft(ctx context.Context, dc v1.DraftContext, token string, metadata map[string]interface{}) (*catalog.ConceptRevision, error)
	SearchDraft(ctx context.Context, dc v1.DraftContext, token string) (*catalog.ConceptRevision, error)
	DeleteDraft(ctx context.Context, dc v1.DraftContext, token string) (*catalog.ConceptRevision, error)
	PublishDraft(ctx context.Context, draftConceptID, nativeID, token string, assoc *catalog.Association) (*catalog.ConceptRevision, error)
	CollectionRevision(ctx context.Context, conceptID, token string) (string, error)
}

// Recorder receives operation outcomes for metrics.
type Recorder interface {
	PublishCompleted(draftType, outcome string)
	DraftOperation(draftType, operation string)
}

// Publish outcomes reported to the Recorder.
const (
	OutcomePublished        = "published"
	OutcomeValidationFailed = "validation_failed"
	OutcomeRemoteError      = "remote_error"
)

type noopRecorder struct{}

func (noopRecorder) PublishCompleted(string, string) {}
func (noopRecorder) DraftOperation(string, string)   {}

// CreateRequest carries the input of Create.
type CreateRequest struct {
	DraftType string `json:"draft_type"`

	// NativeID is generated when empty.
	NativeID string `json:"native_id,omitempty"`

	CollectionConceptID string                 `json:"collection_concept_id,omitempty"`
	Draft               map[string]interface{} `json:"draft"`
}

// UpdateRequest carries the input of Update. A nil CollectionConceptID keeps
// the current link; an empty one clears it.
type UpdateRequest struct {
	Draft               map[string]interface{} `json:"draft"`
	CollectionConceptID *string                `json:"collection_concept_id,omitempty"`
}

// ListRequest filters List. Empty DraftType lists every type.
type ListRequest struct {
	DraftType string
	Limit     int
	Offset    int
}

// Manager implements the draft lifecycle.
type Manager struct {
	store      storage.DraftStore
	catalog    Catalog
	pages      *pagemap.Mapper
	dispatcher notify.Dispatcher
	recorder   Recorder

	nowFn      func() time.Time
	nativeIDFn func(v1.DraftType) string
}

// NewManager wires a Manager. dispatcher and recorder may be nil.
func NewManager(store storage.DraftStore, cat Catalog, pages *pagemap.Mapper, dispatcher notify.Dispatcher, recorder Recorder) *Manager {
	if store == nil {
		panic("lifecycle: store must not be nil")
	}
	if cat == nil {
		panic("lifecycle: catalog must not be nil")
	}
	if pages == nil {
		panic("lifecycle: page mapper must not be nil")
	}
	if dispatcher == nil {
		dispatcher = notify.Noop{}
	}
	if recorder == nil {
		recorder = noopRecorder{}
	}
	return &Manager{
		store:      store,
		catalog:    cat,
		pages:      pages,
		dispatcher: dispatcher,
		recorder:   recorder,
		nowFn:      func() time.Time { return time.Now().UTC() },
		nativeIDFn: newNativeID,
	}
}

func newNativeID(t v1.DraftType) string {
	return fmt.Sprintf("mmt_%s_%s", t, uuid.NewString())
}

// Create stores a new draft owned by the caller. The metadata is compacted
// before it is stored.
func (m *Manager) Create(ctx context.Context, caller v1.Caller, req CreateRequest) (*v1.Draft, error) {
	dt, err := v1.ParseDraftType(req.DraftType)
	if err != nil {
		return nil, &InvalidDraftError{Err: err}
	}

	nativeID := strings.TrimSpace(req.NativeID)
	if nativeID == "" {
		nativeID = m.nativeIDFn(dt)
	}

	d := &v1.Draft{
		NativeID:            nativeID,
		ProviderID:          caller.ProviderID,
		UserID:              caller.UserID,
		DraftType:           dt,
		Draft:               metadata.Compact(req.Draft),
		CollectionConceptID: strings.TrimSpace(req.CollectionConceptID),
	}
	if err := d.Validate(); err != nil {
		return nil, &InvalidDraftError{Err: err}
	}

	if err := m.store.CreateDraft(ctx, d); err != nil {
		slog.Error("[Lifecycle] Failed to create draft",
			"error", err,
			"draft_type", dt,
			"provider_id", d.ProviderID,
			"native_id", d.NativeID)
		return nil, &PersistenceError{Op: "create", Err: err}
	}

	m.recorder.DraftOperation(string(dt), "create")
	slog.Info("[Lifecycle] Draft created",
		"draft_id", d.ID,
		"draft_type", dt,
		"provider_id", d.ProviderID,
		"user_id", d.UserID)
	return d, nil
}

// Update overwrites the draft metadata with a compacted copy of req.Draft.
// Concurrent updates are last-write-wins.
func (m *Manager) Update(ctx context.Context, caller v1.Caller, id int64, req UpdateRequest) (*v1.Draft, error) {
	d, err := m.load(ctx, caller, id)
	if err != nil {
		return nil, err
	}

	d.Draft = metadata.Compact(req.Draft)
	if req.CollectionConceptID != nil {
		d.CollectionConceptID = strings.TrimSpace(*req.CollectionConceptID)
	}
	if err := d.Validate(); err != nil {
		return nil, &InvalidDraftError{Err: err}
	}

	if err := m.store.UpdateDraft(ctx, d); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, &NotFoundError{ID: id}
		}
		slog.Error("[Lifecycle] Failed to update draft", "error", err, "draft_id", id)
		return nil, &PersistenceError{Op: "update", Err: err}
	}

	m.recorder.DraftOperation(string(d.DraftType), "update")
	slog.Debug("[Lifecycle] Draft updated", "draft_id", id, "user_id", caller.UserID)
	return d, nil
}

// Get returns a draft the caller may edit.
func (m *Manager) Get(ctx context.Context, caller v1.Caller, id int64) (*v1.Draft, error) {
	return m.load(ctx, caller, id)
}

// List returns the drafts of the caller's provider, most recently updated first.
func (m *Manager) List(ctx context.Context, caller v1.Caller, req ListRequest) ([]*v1.Draft, error) {
	if caller.ProviderID == "" {
		return nil, &InvalidDraftError{Err: errors.New("caller has no provider")}
	}

	query := storage.DraftQuery{
		ProviderID: caller.ProviderID,
		Limit:      req.Limit,
		Offset:     req.Offset,
	}
	if req.DraftType != "" {
		dt, err := v1.ParseDraftType(req.DraftType)
		if err != nil {
			return nil, &InvalidDraftError{Err: err}
		}
		query.DraftType = dt
	}

	drafts, err := m.store.ListDrafts(ctx, query.Normalized())
	if err != nil {
		return nil, &PersistenceError{Op: "list", Err: err}
	}
	return drafts, nil
}

// Destroy deletes a stored draft and returns it.
func (m *Manager) Destroy(ctx context.Context, caller v1.Caller, id int64) (*v1.Draft, error) {
	d, err := m.load(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	return m.DestroyDraft(ctx, caller, d)
}

// DestroyDraft deletes d. A draft that was never stored is returned as is
// without touching the store or the catalog. After the local delete, any
// catalog-side draft concept with the same native id is removed on a best
// effort basis.
func (m *Manager) DestroyDraft(ctx context.Context, caller v1.Caller, d *v1.Draft) (*v1.Draft, error) {
	if d == nil || d.IsNew() {
		return d, nil
	}
	if !caller.CanEdit(d) {
		return nil, &NotFoundError{ID: d.ID}
	}

	if err := m.store.DeleteDraft(ctx, d.ID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, &NotFoundError{ID: d.ID}
		}
		slog.Error("[Lifecycle] Failed to delete draft", "error", err, "draft_id", d.ID)
		return nil, &PersistenceError{Op: "delete", Err: err}
	}

	m.recorder.DraftOperation(string(d.DraftType), "delete")
	slog.Info("[Lifecycle] Draft deleted", "draft_id", d.ID, "user_id", caller.UserID)

	m.removeCatalogDraft(ctx, caller, d)
	return d, nil
}

func (m *Manager) removeCatalogDraft(ctx context.Context, caller v1.Caller, d *v1.Draft) {
	dc := d.Context()
	found, err := m.catalog.SearchDraft(ctx, dc, caller.Token)
	if errors.Is(err, catalog.ErrNotFound) {
		return
	}
	if err != nil {
		slog.Warn("[Lifecycle] Catalog draft lookup failed during delete",
			"error", err,
			"draft_id", d.ID,
			"native_id", d.NativeID)
		return
	}

	if _, err := m.catalog.DeleteDraft(ctx, dc, caller.Token); err != nil {
		slog.Warn("[Lifecycle] Failed to remove catalog draft",
			"error", err,
			"draft_id", d.ID,
			"concept_id", found.ConceptID)
		return
	}
	slog.Info("[Lifecycle] Removed catalog draft", "draft_id", d.ID, "concept_id", found.ConceptID)
}

// load fetches a draft and hides drafts the caller may not edit.
func (m *Manager) load(ctx context.Context, caller v1.Caller, id int64) (*v1.Draft, error) {
	d, err := m.store.GetDraft(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, &NotFoundError{ID: id}
		}
		return nil, &PersistenceError{Op: "load", Err: err}
	}
	if !caller.CanEdit(d) {
		slog.Info("[Lifecycle] Draft hidden from caller",
			"draft_id", id,
			"user_id", caller.UserID,
			"provider_id", caller.ProviderID)
		return nil, &NotFoundError{ID: id}
	}
	return d, nil
}
