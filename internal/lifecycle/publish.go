package lifecycle

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	v1 "github.com/mmt-lab/draftflow/internal/api/v1"
	"github.com/mmt-lab/draftflow/internal/catalog"
	"github.com/mmt-lab/draftflow/internal/core/storage"
	"github.com/mmt-lab/draftflow/internal/metadata"
	"github.com/mmt-lab/draftflow/internal/notify"
)

// Publish steps named in PublishFailure.Step.
const (
	StepIngest  = "ingest"
	StepPublish = "publish"
)

var errNoConceptID = errors.New("catalog ingest response carried no concept id")

// Publish validates the draft through the catalog and promotes it to a
// published record.
//
// The draft metadata is ingested as a catalog draft concept, then published.
// A variable linked to a collection is ingested without its _meta key and is
// published with an association to the collection's current revision; when
// that revision cannot be looked up the association is omitted.
//
// On success the local draft is deleted and a notification is dispatched.
// On failure the draft is kept and a *PublishFailure is returned. A catalog
// draft concept ingested before a failed publish step is not rolled back.
func (m *Manager) Publish(ctx context.Context, caller v1.Caller, id int64) (*v1.PublishedRecord, error) {
	d, err := m.load(ctx, caller, id)
	if err != nil {
		return nil, err
	}

	dc := d.Context()
	associated := d.DraftType == v1.DraftTypeVariable && d.CollectionConceptID != ""

	body := d.Draft
	if associated {
		body = metadata.Without(body, metadata.MetaKey)
	}

	ingested, err := m.catalog.IngestDraft(ctx, dc, caller.Token, body)
	if err != nil {
		return nil, m.publishFailed(d, StepIngest, err)
	}
	if ingested == nil || ingested.ConceptID == "" {
		return nil, m.publishFailed(d, StepIngest, errNoConceptID)
	}

	var assoc *catalog.Association
	if associated {
		assoc = m.association(ctx, caller, d)
	}

	published, err := m.catalog.PublishDraft(ctx, ingested.ConceptID, d.NativeID, caller.Token, assoc)
	if err != nil {
		return nil, m.publishFailed(d, StepPublish, err)
	}

	record := &v1.PublishedRecord{
		ConceptID:  published.ConceptID,
		RevisionID: string(published.RevisionID),
	}

	// The record exists in the catalog now; a failed local delete leaves a
	// stale draft but does not undo the publish.
	if err := m.store.DeleteDraft(ctx, d.ID); err != nil && !errors.Is(err, storage.ErrNotFound) {
		slog.Error("[Lifecycle] Failed to delete published draft",
			"error", err,
			"draft_id", d.ID,
			"concept_id", record.ConceptID)
	}

	m.notifyPublished(ctx, caller, d, record)
	m.recorder.PublishCompleted(string(d.DraftType), OutcomePublished)

	slog.Info("[Lifecycle] Draft published",
		"draft_id", d.ID,
		"draft_type", d.DraftType,
		"concept_id", record.ConceptID,
		"revision_id", record.RevisionID,
		"user_id", caller.UserID)
	return record, nil
}

// association resolves the collection's current revision. Lookup failures
// are logged and yield no association.
func (m *Manager) association(ctx context.Context, caller v1.Caller, d *v1.Draft) *catalog.Association {
	revision, err := m.catalog.CollectionRevision(ctx, d.CollectionConceptID, caller.Token)
	if err != nil {
		lookupErr := &AssociationLookupError{CollectionConceptID: d.CollectionConceptID, Err: err}
		slog.Warn("[Lifecycle] Publishing variable without association",
			"error", lookupErr,
			"draft_id", d.ID)
		return nil
	}
	return &catalog.Association{
		CollectionConceptID:  d.CollectionConceptID,
		CollectionRevisionID: revision,
	}
}

func (m *Manager) publishFailed(d *v1.Draft, step string, err error) *PublishFailure {
	failure := &PublishFailure{DraftID: d.ID, Step: step}
	outcome := OutcomeRemoteError

	var catErr *catalog.Error
	if errors.As(err, &catErr) {
		failure.Status = catErr.Status
		failure.Errors = m.pages.MapError(d.DraftType, catErr)
		if catErr.ServerSide() {
			if catErr.Status == http.StatusInternalServerError {
				failure.RequestID = catErr.RequestID
			}
			failure.cause = &RemoteServerError{Status: catErr.Status, RequestID: catErr.RequestID, Err: catErr}
		} else {
			outcome = OutcomeValidationFailed
			failure.cause = &RemoteValidationError{Status: catErr.Status, Entries: catErr.Errors, Err: catErr}
		}
	} else {
		failure.Errors = m.pages.Map(d.DraftType, 0, nil, "")
		failure.cause = err
	}

	m.recorder.PublishCompleted(string(d.DraftType), outcome)
	slog.Warn("[Lifecycle] Publish failed",
		"error", err,
		"draft_id", d.ID,
		"draft_type", d.DraftType,
		"step", step,
		"status", failure.Status,
		"request_id", failure.RequestID,
		"error_count", len(failure.Errors))
	return failure
}

// notifyPublished hands the publish notification off. Failures stop here.
func (m *Manager) notifyPublished(ctx context.Context, caller v1.Caller, d *v1.Draft, record *v1.PublishedRecord) {
	n := notify.Notification{
		ID:       uuid.NewString(),
		Template: d.DraftType.Info().PublishTemplate,
		User: notify.User{
			ID:    caller.UserID,
			Name:  caller.Name,
			Email: caller.Email,
		},
		ConceptID:   record.ConceptID,
		RevisionID:  record.RevisionID,
		ShortName:   d.DisplayName(),
		DraftType:   string(d.DraftType),
		PublishedAt: m.nowFn(),
	}
	if err := m.dispatcher.Dispatch(ctx, n); err != nil {
		slog.Warn("[Lifecycle] Failed to dispatch publish notification",
			"error", err,
			"draft_id", d.ID,
			"concept_id", record.ConceptID)
	}
}
