// Package pagemap routes catalog validation errors back to the editor page
// that owns the offending field.
package pagemap

import (
	_ "embed"
	"fmt"
	"net/http"
	"os"
	"sort"

	v1 "github.com/mmt-lab/draftflow/internal/api/v1"
	"github.com/mmt-lab/draftflow/internal/catalog"
	"gopkg.in/yaml.v3"
)

// UnknownErrorMessage replaces an empty catalog error list.
const UnknownErrorMessage = "An unknown error caused publishing to fail."

//go:embed pages.yaml
var defaultPages []byte

// Page is one editor section and the top-level metadata fields it edits.
type Page struct {
	Name   string   `yaml:"page"`
	Fields []string `yaml:"fields"`
}

// RoutedError is one catalog error message with its editor location.
// Page is empty when the field belongs to no known page.
type RoutedError struct {
	Page      string
	TopField  string
	Field     string
	Message   string
	RequestID string
}

// Mapper holds the page tables for every draft type. It is read-only after
// construction and safe for concurrent use.
type Mapper struct {
	pages map[v1.DraftType][]Page
	index map[v1.DraftType]map[string]string
}

// New returns a Mapper built from the embedded page tables.
func New() (*Mapper, error) {
	return Parse(defaultPages)
}

// LoadFile returns the embedded tables with every draft type present in the
// YAML file at path replaced by the file's pages. An empty path yields New().
func LoadFile(path string) (*Mapper, error) {
	m, err := New()
	if err != nil {
		return nil, err
	}
	if path == "" {
		return m, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading page map %s: %w", path, err)
	}
	override, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("page map %s: %w", path, err)
	}
	for t, pages := range override.pages {
		m.pages[t] = pages
		m.index[t] = override.index[t]
	}
	return m, nil
}

// Parse builds a Mapper from YAML keyed by draft type.
func Parse(data []byte) (*Mapper, error) {
	var raw map[string][]Page
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing page map: %w", err)
	}

	m := &Mapper{
		pages: make(map[v1.DraftType][]Page, len(raw)),
		index: make(map[v1.DraftType]map[string]string, len(raw)),
	}
	for key, pages := range raw {
		t, err := v1.ParseDraftType(key)
		if err != nil {
			return nil, err
		}
		idx := make(map[string]string)
		for _, p := range pages {
			if p.Name == "" {
				return nil, fmt.Errorf("draft type %s: page without a name", t)
			}
			for _, f := range p.Fields {
				if owner, dup := idx[f]; dup {
					return nil, fmt.Errorf("draft type %s: field %q listed on both %s and %s", t, f, owner, p.Name)
				}
				idx[f] = p.Name
			}
		}
		m.pages[t] = pages
		m.index[t] = idx
	}
	return m, nil
}

// Pages returns the page names of a draft type in editor order.
func (m *Mapper) Pages(t v1.DraftType) []string {
	names := make([]string, 0, len(m.pages[t]))
	for _, p := range m.pages[t] {
		names = append(names, p.Name)
	}
	return names
}

// PageFor returns the page owning topField, or "" when none does.
func (m *Mapper) PageFor(t v1.DraftType, topField string) string {
	return m.index[t][topField]
}

// Fields returns every routed top-level field of a draft type, sorted.
func (m *Mapper) Fields(t v1.DraftType) []string {
	fields := make([]string, 0, len(m.index[t]))
	for f := range m.index[t] {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fields
}

// MapError routes the entries of a catalog failure.
func (m *Mapper) MapError(t v1.DraftType, err *catalog.Error) []RoutedError {
	return m.Map(t, err.Status, err.Errors, err.RequestID)
}

// Map emits one RoutedError per message of every entry. The request id is kept
// only for status 500; validation failures never expose it. An empty entry
// list yields a single UnknownErrorMessage error.
func (m *Mapper) Map(t v1.DraftType, status int, entries []catalog.ErrorEntry, requestID string) []RoutedError {
	if status != http.StatusInternalServerError {
		requestID = ""
	}

	if len(entries) == 0 {
		return []RoutedError{{Message: UnknownErrorMessage, RequestID: requestID}}
	}

	out := make([]RoutedError, 0, len(entries))
	for _, entry := range entries {
		var top, field string
		if len(entry.Path) > 0 {
			top = entry.Path[0]
			field = entry.Path[len(entry.Path)-1]
		}
		page := m.PageFor(t, top)

		messages := entry.Messages
		if len(messages) == 0 {
			messages = []string{"is invalid"}
		}
		for _, msg := range messages {
			out = append(out, RoutedError{
				Page:      page,
				TopField:  top,
				Field:     field,
				Message:   msg,
				RequestID: requestID,
			})
		}
	}
	return out
}
