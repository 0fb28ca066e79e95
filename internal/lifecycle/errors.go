package lifecycle

import (
	"fmt"

	"github.com/mmt-lab/draftflow/internal/catalog"
	"github.com/mmt-lab/draftflow/internal/pagemap"
)

// NotFoundError is returned when a draft id does not resolve to a draft the
// caller may see. Missing and forbidden drafts are indistinguishable.
type NotFoundError struct {
	ID int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("draft %d not found", e.ID)
}

// InvalidDraftError is returned when request input cannot form a valid draft.
type InvalidDraftError struct {
	Err error
}

func (e *InvalidDraftError) Error() string {
	return "invalid draft: " + e.Err.Error()
}

func (e *InvalidDraftError) Unwrap() error { return e.Err }

// PersistenceError is returned when the draft store rejects a write.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("failed to %s draft: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// RemoteValidationError is a 4xx catalog rejection of the draft metadata.
type RemoteValidationError struct {
	Status  int
	Entries []catalog.ErrorEntry
	Err     *catalog.Error
}

func (e *RemoteValidationError) Error() string {
	return fmt.Sprintf("catalog rejected metadata with status %d (%d errors)", e.Status, len(e.Entries))
}

func (e *RemoteValidationError) Unwrap() error { return e.Err }

// RemoteServerError is a 5xx catalog failure. RequestID identifies it to the
// catalog operators.
type RemoteServerError struct {
	Status    int
	RequestID string
	Err       *catalog.Error
}

func (e *RemoteServerError) Error() string {
	return fmt.Sprintf("catalog failed with status %d (request id %q)", e.Status, e.RequestID)
}

func (e *RemoteServerError) Unwrap() error { return e.Err }

// AssociationLookupError records a failed collection revision lookup during a
// variable publish. It is logged and never returned to callers.
type AssociationLookupError struct {
	CollectionConceptID string
	Err                 error
}

func (e *AssociationLookupError) Error() string {
	return fmt.Sprintf("collection %s revision lookup failed: %v", e.CollectionConceptID, e.Err)
}

func (e *AssociationLookupError) Unwrap() error { return e.Err }

// PublishFailure is returned when the catalog did not accept a publish. The
// draft is left untouched. Errors are routed to editor pages; Unwrap yields a
// *RemoteValidationError, a *RemoteServerError or the transport error.
type PublishFailure struct {
	DraftID   int64
	Step      string
	Status    int
	RequestID string
	Errors    []pagemap.RoutedError

	cause error
}

func (e *PublishFailure) Error() string {
	return fmt.Sprintf("publishing draft %d failed at %s: %v", e.DraftID, e.Step, e.cause)
}

func (e *PublishFailure) Unwrap() error { return e.cause }
