package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned by lookups that matched no catalog record.
var ErrNotFound = errors.New("catalog record not found")

// RevisionID is the catalog's revision number. The catalog emits it as a JSON
// number on ingest and as a string in some search responses; both decode here.
type RevisionID string

func (r *RevisionID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*r = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*r = RevisionID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid revision-id %s: %w", string(data), err)
	}
	*r = RevisionID(n.String())
	return nil
}

// ConceptRevision is the catalog's answer to a successful ingest or publish.
type ConceptRevision struct {
	ConceptID  string     `json:"concept-id"`
	RevisionID RevisionID `json:"revision-id"`
	NativeID   string     `json:"native-id,omitempty"`
	Warnings   []string   `json:"warnings,omitempty"`
}

// Association links a published variable to a collection revision.
type Association struct {
	CollectionConceptID  string `json:"collection-concept-id"`
	CollectionRevisionID string `json:"collection-revision-id,omitempty"`
}

// ErrorEntry is one catalog error. Path is empty for errors not tied to a field.
type ErrorEntry struct {
	Path     []string `json:"path,omitempty"`
	Messages []string `json:"errors"`
}

// UnmarshalJSON accepts both the structured {"path":[...],"errors":[...]}
// form and a bare message string.
func (e *ErrorEntry) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var msg string
		if err := json.Unmarshal(data, &msg); err != nil {
			return err
		}
		*e = ErrorEntry{Messages: []string{msg}}
		return nil
	}

	var raw struct {
		Path   []interface{} `json:"path"`
		Errors []string      `json:"errors"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	// Array indexes appear as numbers in paths.
	path := make([]string, 0, len(raw.Path))
	for _, p := range raw.Path {
		switch v := p.(type) {
		case string:
			path = append(path, v)
		case float64:
			path = append(path, fmt.Sprintf("%d", int64(v)))
		default:
			path = append(path, fmt.Sprint(v))
		}
	}
	*e = ErrorEntry{Path: path, Messages: raw.Errors}
	return nil
}

// Error is a non-2xx response from the catalog.
type Error struct {
	Operation string
	Status    int
	Errors    []ErrorEntry

	// RequestID is the catalog's diagnostic id (CMR-Request-Id header).
	RequestID string

	body string
}

func (e *Error) Error() string {
	if len(e.Errors) == 0 {
		if e.body != "" {
			return fmt.Sprintf("catalog %s failed with status %d: %s", e.Operation, e.Status, e.body)
		}
		return fmt.Sprintf("catalog %s failed with status %d", e.Operation, e.Status)
	}
	var msgs []string
	for _, entry := range e.Errors {
		prefix := ""
		if len(entry.Path) > 0 {
			prefix = strings.Join(entry.Path, "/") + ": "
		}
		for _, m := range entry.Messages {
			msgs = append(msgs, prefix+m)
		}
	}
	return fmt.Sprintf("catalog %s failed with status %d: %s", e.Operation, e.Status, strings.Join(msgs, "; "))
}

// ServerSide reports whether the catalog failed on its own side (5xx).
func (e *Error) ServerSide() bool {
	return e.Status >= 500
}

type errorBody struct {
	Errors []ErrorEntry `json:"errors"`
}

type searchResponse struct {
	Hits  int `json:"hits"`
	Items []struct {
		Meta ConceptRevision `json:"meta"`
	} `json:"items"`
}
