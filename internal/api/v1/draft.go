package v1

import (
	"fmt"
	"strings"
	"time"
)

// DraftType identifies which kind of catalog record a draft becomes on publish.
type DraftType string

const (
	DraftTypeCollection DraftType = "collection"
	DraftTypeVariable   DraftType = "variable"
	DraftTypeService    DraftType = "service"
	DraftTypeTool       DraftType = "tool"
)

// DraftTypeInfo is the static per-variant table consulted instead of deriving
// names from strings at runtime.
type DraftTypeInfo struct {
	// ResourceName is the human readable record name ("Collection").
	ResourceName string

	// CatalogConcept is the published concept path segment ("collections").
	CatalogConcept string

	// DraftConcept is the catalog's draft concept path segment ("collection-drafts").
	DraftConcept string

	// NameField is the metadata key holding the record's short display name.
	NameField string

	// PublishTemplate names the notification template sent after publish.
	PublishTemplate string
}

var draftTypes = map[DraftType]DraftTypeInfo{
	DraftTypeCollection: {
		ResourceName:    "Collection",
		CatalogConcept:  "collections",
		DraftConcept:    "collection-drafts",
		NameField:       "ShortName",
		PublishTemplate: "collection_published",
	},
	DraftTypeVariable: {
		ResourceName:    "Variable",
		CatalogConcept:  "variables",
		DraftConcept:    "variable-drafts",
		NameField:       "Name",
		PublishTemplate: "variable_published",
	},
	DraftTypeService: {
		ResourceName:    "Service",
		CatalogConcept:  "services",
		DraftConcept:    "service-drafts",
		NameField:       "Name",
		PublishTemplate: "service_published",
	},
	DraftTypeTool: {
		ResourceName:    "Tool",
		CatalogConcept:  "tools",
		DraftConcept:    "tool-drafts",
		NameField:       "Name",
		PublishTemplate: "tool_published",
	},
}

// DraftTypes returns every supported draft type in a stable order.
func DraftTypes() []DraftType {
	return []DraftType{DraftTypeCollection, DraftTypeVariable, DraftTypeService, DraftTypeTool}
}

// ParseDraftType converts user input into a DraftType.
func ParseDraftType(s string) (DraftType, error) {
	t := DraftType(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := draftTypes[t]; !ok {
		return "", fmt.Errorf("unknown draft type %q", s)
	}
	return t, nil
}

// Valid reports whether t is one of the supported draft types.
func (t DraftType) Valid() bool {
	_, ok := draftTypes[t]
	return ok
}

// Info returns the static table entry for t. Unknown types return the zero value.
func (t DraftType) Info() DraftTypeInfo {
	return draftTypes[t]
}

// DraftContext addresses a draft in the remote catalog.
// It is passed explicitly to every catalog call.
type DraftContext struct {
	DraftType  DraftType
	ProviderID string
	NativeID   string
}

// Draft is an editable, unpublished metadata record.
type Draft struct {
	// ID is assigned by the store. Zero means the draft was never persisted.
	ID int64 `json:"id"`

	// NativeID addresses the record in the catalog. Unique per (ProviderID, DraftType).
	NativeID string `json:"native_id"`

	ProviderID string    `json:"provider_id"`
	UserID     string    `json:"user_id"`
	DraftType  DraftType `json:"draft_type"`

	// Draft is the opaque metadata document being edited.
	Draft map[string]interface{} `json:"draft"`

	// CollectionConceptID links a variable draft to its published collection.
	CollectionConceptID string `json:"collection_concept_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsNew reports whether the draft has never been stored.
func (d *Draft) IsNew() bool {
	return d.ID == 0
}

// Context returns the catalog address of this draft.
func (d *Draft) Context() DraftContext {
	return DraftContext{
		DraftType:  d.DraftType,
		ProviderID: d.ProviderID,
		NativeID:   d.NativeID,
	}
}

// DisplayName returns the record's short name, or a placeholder when unset.
func (d *Draft) DisplayName() string {
	info := d.DraftType.Info()
	if v, ok := d.Draft[info.NameField].(string); ok && strings.TrimSpace(v) != "" {
		return v
	}
	return fmt.Sprintf("<Untitled %s>", info.ResourceName)
}

// Validate ensures the draft carries everything the store requires.
func (d *Draft) Validate() error {
	if !d.DraftType.Valid() {
		return fmt.Errorf("unknown draft type %q", d.DraftType)
	}
	if d.ProviderID == "" {
		return fmt.Errorf("provider_id is required")
	}
	if d.UserID == "" {
		return fmt.Errorf("user_id is required")
	}
	if d.NativeID == "" {
		return fmt.Errorf("native_id is required")
	}
	if d.CollectionConceptID != "" && d.DraftType != DraftTypeVariable {
		return fmt.Errorf("collection_concept_id is only allowed on variable drafts")
	}
	return nil
}

// Caller is the authenticated user on whose behalf an operation runs.
type Caller struct {
	UserID     string
	ProviderID string
	Name       string
	Email      string

	// Token is forwarded to the catalog unchanged.
	Token string
}

// CanEdit reports whether the caller owns d or shares its provider.
func (c Caller) CanEdit(d *Draft) bool {
	if d == nil {
		return false
	}
	return d.UserID == c.UserID || (c.ProviderID != "" && d.ProviderID == c.ProviderID)
}

// PublishedRecord identifies a record in the catalog after a successful publish.
type PublishedRecord struct {
	ConceptID  string `json:"concept_id"`
	RevisionID string `json:"revision_id"`
}
