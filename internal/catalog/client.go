// Package catalog is a synchronous HTTP client for the remote metadata catalog.
// Calls block until the catalog answers or the client timeout expires; nothing is retried.
package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	v1 "github.com/mmt-lab/draftflow/internal/api/v1"
)

const (
	// RequestIDHeader carries the catalog's diagnostic request id.
	RequestIDHeader = "CMR-Request-Id"

	ummContentType = "application/vnd.nasa.cmr.umm+json"
	maxErrorBody   = 64 * 1024
)

// Observer receives one callback per catalog call. status is 0 on transport failure.
type Observer interface {
	ObserveCatalogCall(operation string, status int, elapsed time.Duration)
}

// Options configures a Client.
type Options struct {
	BaseURL string
	Timeout time.Duration

	// TokenHeader names the header carrying the caller token. "Authorization"
	// sends "Bearer <token>"; any other header sends the raw token.
	TokenHeader string

	// ClientID is sent as Client-Id so the catalog can attribute traffic.
	ClientID string

	Observer   Observer
	HTTPClient *http.Client
}

// Client wraps the catalog ingest and search endpoints.
type Client struct {
	baseURL     string
	tokenHeader string
	clientID    string
	httpClient  *http.Client
	observer    Observer
}

// NewClient creates a catalog client.
func NewClient(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	tokenHeader := opts.TokenHeader
	if tokenHeader == "" {
		tokenHeader = "Authorization"
	}
	return &Client{
		baseURL:     strings.TrimRight(opts.BaseURL, "/"),
		tokenHeader: tokenHeader,
		clientID:    opts.ClientID,
		httpClient:  httpClient,
		observer:    opts.Observer,
	}
}

// IngestDraft stores metadata as a draft concept in the catalog, addressed by provider and native id.
func (c *Client) IngestDraft(ctx context.Context, dc v1.DraftContext, token string, metadata map[string]interface{}) (*ConceptRevision, error) {
	body, err := json.Marshal(metadata)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal draft metadata: %w", err)
	}

	var out ConceptRevision
	err = c.do(ctx, "ingest_draft", http.MethodPut, c.draftPath(dc), nil, token, ummContentType, body, &out)
	if err != nil {
		return nil, err
	}
	if out.NativeID == "" {
		out.NativeID = dc.NativeID
	}
	return &out, nil
}

// SearchDraft finds the catalog draft concept with the draft's native id.
// Returns ErrNotFound when the catalog holds no such draft.
func (c *Client) SearchDraft(ctx context.Context, dc v1.DraftContext, token string) (*ConceptRevision, error) {
	query := url.Values{}
	query.Set("provider", dc.ProviderID)
	query.Set("native_id", dc.NativeID)

	var out searchResponse
	path := "/search/" + dc.DraftType.Info().DraftConcept + ".umm_json"
	if err := c.do(ctx, "search_draft", http.MethodGet, path, query, token, "", nil, &out); err != nil {
		return nil, err
	}
	if len(out.Items) == 0 {
		return nil, ErrNotFound
	}
	meta := out.Items[0].Meta
	return &meta, nil
}

// DeleteDraft removes the catalog draft concept with the draft's native id.
func (c *Client) DeleteDraft(ctx context.Context, dc v1.DraftContext, token string) (*ConceptRevision, error) {
	var out ConceptRevision
	if err := c.do(ctx, "delete_draft", http.MethodDelete, c.draftPath(dc), nil, token, "", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PublishDraft promotes a draft concept to a published concept.
// assoc is only sent for variables linked to a collection.
func (c *Client) PublishDraft(ctx context.Context, draftConceptID, nativeID, token string, assoc *Association) (*ConceptRevision, error) {
	var body []byte
	contentType := ""
	if assoc != nil {
		var err error
		body, err = json.Marshal(assoc)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal association: %w", err)
		}
		contentType = "application/json"
	}

	path := "/ingest/publish/" + url.PathEscape(draftConceptID) + "/" + url.PathEscape(nativeID)
	var out ConceptRevision
	if err := c.do(ctx, "publish_draft", http.MethodPut, path, nil, token, contentType, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CollectionRevision returns the current revision id of a published collection.
func (c *Client) CollectionRevision(ctx context.Context, conceptID, token string) (string, error) {
	query := url.Values{}
	query.Set("concept_id", conceptID)

	var out searchResponse
	if err := c.do(ctx, "get_collection", http.MethodGet, "/search/collections.umm_json", query, token, "", nil, &out); err != nil {
		return "", err
	}
	if len(out.Items) == 0 || out.Items[0].Meta.RevisionID == "" {
		return "", ErrNotFound
	}
	return string(out.Items[0].Meta.RevisionID), nil
}

func (c *Client) draftPath(dc v1.DraftContext) string {
	return "/ingest/providers/" + url.PathEscape(dc.ProviderID) + "/" +
		dc.DraftType.Info().DraftConcept + "/" + url.PathEscape(dc.NativeID)
}

// do performs one request. 2xx bodies decode into out; anything else becomes *Error.
func (c *Client) do(
	ctx context.Context,
	operation string,
	method string,
	path string,
	query url.Values,
	token string,
	contentType string,
	body []byte,
	out interface{},
) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("failed to create %s request: %w", operation, err)
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.clientID != "" {
		req.Header.Set("Client-Id", c.clientID)
	}
	if token != "" {
		if strings.EqualFold(c.tokenHeader, "Authorization") {
			req.Header.Set("Authorization", "Bearer "+token)
		} else {
			req.Header.Set(c.tokenHeader, token)
		}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.observe(operation, 0, time.Since(start))
		return fmt.Errorf("catalog %s request failed: %w", operation, err)
	}
	defer resp.Body.Close()
	c.observe(operation, resp.StatusCode, time.Since(start))

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read catalog %s response: %w", operation, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		catErr := &Error{
			Operation: operation,
			Status:    resp.StatusCode,
			RequestID: resp.Header.Get(RequestIDHeader),
		}
		var eb errorBody
		if jsonErr := json.Unmarshal(respBody, &eb); jsonErr == nil {
			catErr.Errors = eb.Errors
		} else if len(respBody) > 0 {
			snippet := respBody
			if len(snippet) > maxErrorBody {
				snippet = snippet[:maxErrorBody]
			}
			catErr.body = string(snippet)
		}
		slog.Warn("[Catalog] Request rejected",
			"operation", operation,
			"status", resp.StatusCode,
			"request_id", catErr.RequestID,
			"error_count", len(catErr.Errors))
		return catErr
	}

	slog.Debug("[Catalog] Request succeeded", "operation", operation, "status", resp.StatusCode)

	if out == nil || len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to decode catalog %s response: %w", operation, err)
	}
	return nil
}

func (c *Client) observe(operation string, status int, elapsed time.Duration) {
	if c.observer != nil {
		c.observer.ObserveCatalogCall(operation, status, elapsed)
	}
}
