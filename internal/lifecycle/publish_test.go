package lifecycle

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	v1 "github.com/mmt-lab/draftflow/internal/api/v1"
	"github.com/mmt-lab/draftflow/internal/catalog"
	notifymocks "github.com/mmt-lab/draftflow/internal/mocks/notify"
	"github.com/mmt-lab/draftflow/internal/notify"
	"github.com/mmt-lab/draftflow/internal/pagemap"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type recordingRecorder struct {
	published map[string]int
}

func (r *recordingRecorder) PublishCompleted(draftType, outcome string) {
	if r.published == nil {
		r.published = map[string]int{}
	}
	r.published[draftType+"/"+outcome]++
}

func (r *recordingRecorder) DraftOperation(string, string) {}

func decodeBody(t *testing.T, raw string) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(raw), &out))
	return out
}

func TestPublish_Success(t *testing.T) {
	publishedAt := time.Date(2026, 5, 1, 9, 30, 0, 0, time.UTC)

	dispatcher := notifymocks.NewDispatcher(t)
	dispatcher.EXPECT().
		Dispatch(mock.Anything, mock.MatchedBy(func(n notify.Notification) bool {
			return n.Template == "collection_published" &&
				n.User.Email == "jane@example.com" &&
				n.ConceptID == "C1-PROV" &&
				n.RevisionID == "2" &&
				n.ShortName == "MODIS" &&
				n.PublishedAt.Equal(publishedAt) &&
				n.ID != ""
		})).
		Return(nil).
		Once()

	env := newTestEnv(t, dispatcher)
	env.manager.nowFn = func() time.Time { return publishedAt }
	rec := &recordingRecorder{}
	env.manager.recorder = rec

	d := createDraft(t, env, CreateRequest{DraftType: "collection", Draft: map[string]interface{}{"ShortName": "MODIS"}})

	record, err := env.manager.Publish(context.Background(), testCaller, d.ID)
	require.NoError(t, err)
	require.Equal(t, &v1.PublishedRecord{ConceptID: "C1-PROV", RevisionID: "2"}, record)
	require.Zero(t, env.store.Len())

	ingest := env.catalog.callsFor(opIngest)
	require.Len(t, ingest, 1)
	require.Equal(t, "/ingest/providers/PROV/collection-drafts/mmt_collection_test", ingest[0].path)
	require.Equal(t, map[string]interface{}{"ShortName": "MODIS"}, decodeBody(t, ingest[0].body))

	publish := env.catalog.callsFor(opPublish)
	require.Len(t, publish, 1)
	require.Equal(t, "/ingest/publish/CD1-PROV/mmt_collection_test", publish[0].path)
	require.Empty(t, publish[0].body)
	require.Empty(t, env.catalog.callsFor(opCollection))

	require.Equal(t, 1, rec.published["collection/"+OutcomePublished])
}

func TestPublish_ValidationErrorRoutedToPage(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := &recordingRecorder{}
	env.manager.recorder = rec
	env.catalog.respond(opIngest, stubResponse{
		status:    http.StatusBadRequest,
		body:      `{"errors":[{"path":["SpatialExtent","HorizontalSpatialDomain"],"errors":["Geometry is required"]}]}`,
		requestID: "req-400",
	})

	d := createDraft(t, env, CreateRequest{DraftType: "collection", Draft: map[string]interface{}{"ShortName": "MODIS"}})

	_, err := env.manager.Publish(context.Background(), testCaller, d.ID)

	var failure *PublishFailure
	require.ErrorAs(t, err, &failure)
	require.Equal(t, StepIngest, failure.Step)
	require.Equal(t, http.StatusBadRequest, failure.Status)
	require.Empty(t, failure.RequestID)
	require.Equal(t, []pagemap.RoutedError{{
		Page:     "spatial_information",
		TopField: "SpatialExtent",
		Field:    "HorizontalSpatialDomain",
		Message:  "Geometry is required",
	}}, failure.Errors)

	var validation *RemoteValidationError
	require.ErrorAs(t, err, &validation)
	require.Len(t, validation.Entries, 1)

	var catErr *catalog.Error
	require.ErrorAs(t, err, &catErr)

	kept, err := env.manager.Get(context.Background(), testCaller, d.ID)
	require.NoError(t, err)
	require.Equal(t, d.Draft, kept.Draft)
	require.Empty(t, env.catalog.callsFor(opPublish))
	require.Equal(t, 1, rec.published["collection/"+OutcomeValidationFailed])
}

func TestPublish_ServerErrorKeepsRequestID(t *testing.T) {
	env := newTestEnv(t, nil)
	env.catalog.respond(opPublish, stubResponse{
		status:    http.StatusInternalServerError,
		body:      `{"errors":[]}`,
		requestID: "req-500",
	})

	d := createDraft(t, env, CreateRequest{DraftType: "service", Draft: map[string]interface{}{"Name": "opendap"}})

	_, err := env.manager.Publish(context.Background(), testCaller, d.ID)

	var failure *PublishFailure
	require.ErrorAs(t, err, &failure)
	require.Equal(t, StepPublish, failure.Step)
	require.Equal(t, "req-500", failure.RequestID)
	require.Equal(t, []pagemap.RoutedError{{
		Message:   pagemap.UnknownErrorMessage,
		RequestID: "req-500",
	}}, failure.Errors)

	var server *RemoteServerError
	require.ErrorAs(t, err, &server)
	require.Equal(t, "req-500", server.RequestID)

	require.Equal(t, 1, env.store.Len())
}

func TestPublish_ServiceUnavailableDropsRequestID(t *testing.T) {
	env := newTestEnv(t, nil)
	env.catalog.respond(opIngest, stubResponse{status: http.StatusServiceUnavailable, body: "gateway down", requestID: "req-503"})

	d := createDraft(t, env, CreateRequest{DraftType: "tool"})

	_, err := env.manager.Publish(context.Background(), testCaller, d.ID)

	var failure *PublishFailure
	require.ErrorAs(t, err, &failure)
	require.Equal(t, []pagemap.RoutedError{{Message: pagemap.UnknownErrorMessage}}, failure.Errors)
	require.Equal(t, http.StatusServiceUnavailable, failure.Status)
	require.Empty(t, failure.RequestID)

	var server *RemoteServerError
	require.ErrorAs(t, err, &server)
	require.Equal(t, "req-503", server.RequestID)
}

func TestPublish_IngestWithoutConceptIDKeepsDraft(t *testing.T) {
	for name, body := range map[string]string{
		"empty body":         "",
		"missing concept id": `{"revision-id":1}`,
	} {
		t.Run(name, func(t *testing.T) {
			env := newTestEnv(t, nil)
			rec := &recordingRecorder{}
			env.manager.recorder = rec
			env.catalog.respond(opIngest, stubResponse{status: http.StatusCreated, body: body})

			d := createDraft(t, env, CreateRequest{DraftType: "service", Draft: map[string]interface{}{"Name": "opendap"}})

			_, err := env.manager.Publish(context.Background(), testCaller, d.ID)

			var failure *PublishFailure
			require.ErrorAs(t, err, &failure)
			require.Equal(t, StepIngest, failure.Step)
			require.Zero(t, failure.Status)
			require.Equal(t, []pagemap.RoutedError{{Message: pagemap.UnknownErrorMessage}}, failure.Errors)
			require.ErrorIs(t, err, errNoConceptID)

			require.Empty(t, env.catalog.callsFor(opPublish))
			require.Equal(t, 1, env.store.Len())
			require.Equal(t, 1, rec.published["service/"+OutcomeRemoteError])
		})
	}
}

func TestPublish_VariableWithoutResolvableCollection(t *testing.T) {
	env := newTestEnv(t, nil)
	env.catalog.respond(opCollection, stubResponse{status: http.StatusInternalServerError, body: `{"errors":["search down"]}`})

	d := createDraft(t, env, CreateRequest{
		DraftType:           "variable",
		CollectionConceptID: "C9-PROV",
		Draft: map[string]interface{}{
			"Name":  "sst",
			"_meta": map[string]interface{}{"editor": "mmt"},
		},
	})

	record, err := env.manager.Publish(context.Background(), testCaller, d.ID)
	require.NoError(t, err)
	require.Equal(t, "C1-PROV", record.ConceptID)

	ingest := env.catalog.callsFor(opIngest)
	require.Len(t, ingest, 1)
	require.Equal(t, map[string]interface{}{"Name": "sst"}, decodeBody(t, ingest[0].body))

	require.Len(t, env.catalog.callsFor(opCollection), 1)
	publish := env.catalog.callsFor(opPublish)
	require.Len(t, publish, 1)
	require.Empty(t, publish[0].body)
}

func TestPublish_VariableAssociatedWithCollectionRevision(t *testing.T) {
	env := newTestEnv(t, nil)

	d := createDraft(t, env, CreateRequest{
		DraftType:           "variable",
		CollectionConceptID: "C9-PROV",
		Draft:               map[string]interface{}{"Name": "sst"},
	})

	_, err := env.manager.Publish(context.Background(), testCaller, d.ID)
	require.NoError(t, err)

	collection := env.catalog.callsFor(opCollection)
	require.Len(t, collection, 1)
	require.Equal(t, "/search/collections.umm_json?concept_id=C9-PROV", collection[0].path)

	publish := env.catalog.callsFor(opPublish)
	require.Len(t, publish, 1)
	require.JSONEq(t, `{"collection-concept-id":"C9-PROV","collection-revision-id":"4"}`, publish[0].body)
}

func TestPublish_UnlinkedVariableKeepsMeta(t *testing.T) {
	env := newTestEnv(t, nil)
	d := createDraft(t, env, CreateRequest{
		DraftType: "variable",
		Draft:     map[string]interface{}{"Name": "sst", "_meta": map[string]interface{}{"editor": "mmt"}},
	})

	_, err := env.manager.Publish(context.Background(), testCaller, d.ID)
	require.NoError(t, err)

	ingest := env.catalog.callsFor(opIngest)
	require.Len(t, ingest, 1)
	require.Contains(t, decodeBody(t, ingest[0].body), "_meta")
	require.Empty(t, env.catalog.callsFor(opCollection))
}

func TestPublish_NotFound(t *testing.T) {
	env := newTestEnv(t, nil)
	d := createDraft(t, env, CreateRequest{DraftType: "tool"})

	var notFound *NotFoundError
	_, err := env.manager.Publish(context.Background(), testCaller, 12345)
	require.ErrorAs(t, err, &notFound)

	_, err = env.manager.Publish(context.Background(), otherProviderCaller, d.ID)
	require.ErrorAs(t, err, &notFound)

	require.Zero(t, env.catalog.callCount())
}

func TestPublish_DispatchFailureDoesNotFailPublish(t *testing.T) {
	dispatcher := notifymocks.NewDispatcher(t)
	dispatcher.EXPECT().Dispatch(mock.Anything, mock.Anything).Return(notify.ErrQueueFull).Once()

	env := newTestEnv(t, dispatcher)
	d := createDraft(t, env, CreateRequest{DraftType: "tool", Draft: map[string]interface{}{"Name": "giovanni"}})

	record, err := env.manager.Publish(context.Background(), testCaller, d.ID)
	require.NoError(t, err)
	require.Equal(t, "C1-PROV", record.ConceptID)
	require.Zero(t, env.store.Len())
}

func TestPublish_TransportFailure(t *testing.T) {
	env := newTestEnv(t, nil)
	d := createDraft(t, env, CreateRequest{DraftType: "tool"})

	// Point the manager at a catalog that is no longer listening.
	env.catalog.server.Close()

	_, err := env.manager.Publish(context.Background(), testCaller, d.ID)

	var failure *PublishFailure
	require.ErrorAs(t, err, &failure)
	require.Zero(t, failure.Status)
	require.Equal(t, []pagemap.RoutedError{{Message: pagemap.UnknownErrorMessage}}, failure.Errors)

	var catErr *catalog.Error
	require.False(t, errors.As(err, &catErr))
	require.Equal(t, 1, env.store.Len())
}
