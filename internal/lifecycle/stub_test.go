package lifecycle

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	v1 "github.com/mmt-lab/draftflow/internal/api/v1"
	"github.com/mmt-lab/draftflow/internal/catalog"
	"github.com/mmt-lab/draftflow/internal/core/storage/memory"
	"github.com/mmt-lab/draftflow/internal/notify"
	"github.com/mmt-lab/draftflow/internal/pagemap"
	"github.com/stretchr/testify/require"
)

// Catalog operations answered by catalogStub.
const (
	opIngest     = "ingest"
	opPublish    = "publish"
	opCollection = "collection"
	opSearch     = "search"
	opDelete     = "delete"
)

type stubResponse struct {
	status    int
	body      string
	requestID string
}

type stubCall struct {
	op     string
	method string
	path   string
	body   string
	auth   string
}

// catalogStub is an httptest catalog with canned answers per operation.
type catalogStub struct {
	server *httptest.Server

	mu        sync.Mutex
	responses map[string]stubResponse
	calls     []stubCall
}

func newCatalogStub(t *testing.T) *catalogStub {
	t.Helper()
	s := &catalogStub{
		responses: map[string]stubResponse{
			opIngest:     {status: http.StatusCreated, body: `{"concept-id":"CD1-PROV","revision-id":1}`},
			opPublish:    {status: http.StatusOK, body: `{"concept-id":"C1-PROV","revision-id":"2"}`},
			opCollection: {status: http.StatusOK, body: `{"hits":1,"items":[{"meta":{"concept-id":"C9-PROV","revision-id":4}}]}`},
			opSearch:     {status: http.StatusOK, body: `{"hits":0,"items":[]}`},
			opDelete:     {status: http.StatusOK, body: `{"concept-id":"CD1-PROV","revision-id":2}`},
		},
	}
	s.server = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.server.Close)
	return s
}

func (s *catalogStub) client() *catalog.Client {
	return catalog.NewClient(catalog.Options{BaseURL: s.server.URL, ClientID: "draftflow-test"})
}

func (s *catalogStub) respond(op string, resp stubResponse) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.responses[op] = resp
}

func (s *catalogStub) callsFor(op string) []stubCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []stubCall
	for _, c := range s.calls {
		if c.op == op {
			out = append(out, c)
		}
	}
	return out
}

func (s *catalogStub) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func (s *catalogStub) serve(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	var op string
	switch {
	case r.Method == http.MethodPut && strings.HasPrefix(r.URL.Path, "/ingest/providers/"):
		op = opIngest
	case r.Method == http.MethodDelete && strings.HasPrefix(r.URL.Path, "/ingest/providers/"):
		op = opDelete
	case r.Method == http.MethodPut && strings.HasPrefix(r.URL.Path, "/ingest/publish/"):
		op = opPublish
	case r.Method == http.MethodGet && r.URL.Path == "/search/collections.umm_json":
		op = opCollection
	case r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "-drafts.umm_json"):
		op = opSearch
	default:
		w.WriteHeader(http.StatusNotFound)
		return
	}

	s.mu.Lock()
	s.calls = append(s.calls, stubCall{
		op:     op,
		method: r.Method,
		path:   r.URL.RequestURI(),
		body:   string(body),
		auth:   r.Header.Get("Authorization"),
	})
	resp := s.responses[op]
	s.mu.Unlock()

	if resp.requestID != "" {
		w.Header().Set(catalog.RequestIDHeader, resp.requestID)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.status)
	io.WriteString(w, resp.body)
}

var (
	testCaller = v1.Caller{
		UserID:     "jdoe",
		ProviderID: "PROV",
		Name:       "Jane Doe",
		Email:      "jane@example.com",
		Token:      "tok-123",
	}
	otherProviderCaller = v1.Caller{
		UserID:     "mallory",
		ProviderID: "OTHER",
		Token:      "tok-999",
	}
)

type testEnv struct {
	manager *Manager
	store   *memory.DraftStore
	catalog *catalogStub
}

func newTestEnv(t *testing.T, dispatcher notify.Dispatcher) *testEnv {
	t.Helper()
	stub := newCatalogStub(t)
	store := memory.NewDraftStore()
	m := NewManager(store, stub.client(), newPages(t), dispatcher, nil)
	m.nativeIDFn = func(dt v1.DraftType) string { return "mmt_" + string(dt) + "_test" }
	return &testEnv{manager: m, store: store, catalog: stub}
}

func newPages(t *testing.T) *pagemap.Mapper {
	t.Helper()
	pages, err := pagemap.New()
	require.NoError(t, err)
	return pages
}
