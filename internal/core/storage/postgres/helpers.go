package postgres

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	v1 "github.com/mmt-lab/draftflow/internal/api/v1"
	"github.com/lib/pq"
)

const uniqueViolation = pq.ErrorCode("23505")

// marshalDraftJSON marshals the draft metadata document.
// A nil document is stored as an empty JSON object.
func marshalDraftJSON(draft *v1.Draft) ([]byte, error) {
	if draft.Draft == nil {
		return []byte(`{}`), nil
	}
	data, err := json.Marshal(draft.Draft)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal draft: %w", err)
	}
	return data, nil
}

// nullString maps "" to SQL NULL.
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// isUniqueViolation reports whether err is a postgres unique_violation.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == uniqueViolation
	}
	return false
}

type scanner interface {
	Scan(dest ...interface{}) error
}

// scanDraftRow scans a database row into a Draft.
// Compatible with both sql.Row (single) and sql.Rows (multiple).
func scanDraftRow(row scanner) (*v1.Draft, error) {
	var d v1.Draft
	var draftType string
	var draftJSON []byte
	var collectionConceptID sql.NullString

	err := row.Scan(
		&d.ID,
		&d.NativeID,
		&d.ProviderID,
		&d.UserID,
		&draftType,
		&draftJSON,
		&collectionConceptID,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	d.DraftType = v1.DraftType(draftType)
	d.CollectionConceptID = collectionConceptID.String

	d.Draft = map[string]interface{}{}
	if len(draftJSON) > 0 {
		// Numbers stay json.Number so values above 2^53 and trailing zeros survive.
		dec := json.NewDecoder(bytes.NewReader(draftJSON))
		dec.UseNumber()
		if err := dec.Decode(&d.Draft); err != nil {
			return nil, fmt.Errorf("failed to unmarshal draft: %w", err)
		}
	}

	return &d, nil
}
