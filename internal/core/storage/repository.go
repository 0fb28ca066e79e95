package storage

import (
	"context"
	"errors"

	v1 "github.com/mmt-lab/draftflow/internal/api/v1"
)

var (
	// ErrDuplicate is returned when a draft with the same (provider_id, draft_type, native_id) already exists.
	ErrDuplicate = errors.New("draft already exists")

	// ErrNotFound is returned when no draft has the requested id.
	ErrNotFound = errors.New("draft not found")
)

// DefaultListLimit caps ListDrafts when the query does not set a limit.
const DefaultListLimit = 100

// DraftQuery scopes a draft listing. Empty DraftType matches every type.
type DraftQuery struct {
	ProviderID string
	DraftType  v1.DraftType
	Limit      int
	Offset     int
}

// Normalized returns the query with defaults applied.
func (q DraftQuery) Normalized() DraftQuery {
	n := q
	if n.Limit <= 0 {
		n.Limit = DefaultListLimit
	}
	if n.Offset < 0 {
		n.Offset = 0
	}
	return n
}

// DraftStore defines the persistence contract for drafts.
type DraftStore interface {
	// CreateDraft stores a new draft and populates ID, CreatedAt and UpdatedAt.
	// Returns ErrDuplicate when the native id is already taken.
	CreateDraft(ctx context.Context, draft *v1.Draft) error

	// GetDraft returns the draft with the given id or ErrNotFound.
	GetDraft(ctx context.Context, id int64) (*v1.Draft, error)

	// UpdateDraft overwrites the metadata and collection link of an existing draft
	// and refreshes UpdatedAt. Last write wins.
	UpdateDraft(ctx context.Context, draft *v1.Draft) error

	// DeleteDraft removes a draft. Returns ErrNotFound when nothing was deleted.
	DeleteDraft(ctx context.Context, id int64) error

	// ListDrafts returns drafts for a provider, most recently updated first.
	ListDrafts(ctx context.Context, query DraftQuery) ([]*v1.Draft, error)

	// Ping verifies the backing store is reachable.
	Ping(ctx context.Context) error
}
