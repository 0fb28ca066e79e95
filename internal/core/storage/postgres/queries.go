package postgres

// SQL queries for draft storage operations

const (
	// queryInsertDraft inserts a draft. The unique (provider_id, draft_type, native_id)
	// constraint surfaces as a pq unique_violation on conflict.
	queryInsertDraft = `
		INSERT INTO drafts (
			native_id, provider_id, user_id, draft_type,
			draft, collection_concept_id, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
		RETURNING id, created_at, updated_at
	`

	querySelectDraft = `
		SELECT
			id, native_id, provider_id, user_id, draft_type,
			draft, collection_concept_id, created_at, updated_at
		FROM drafts
		WHERE id = $1
	`

	// queryUpdateDraft overwrites the metadata unconditionally (last write wins).
	queryUpdateDraft = `
		UPDATE drafts
		SET draft = $2, collection_concept_id = $3, updated_at = $4
		WHERE id = $1
		RETURNING created_at, updated_at
	`

	queryDeleteDraft = `DELETE FROM drafts WHERE id = $1`

	// queryListDrafts returns one provider's drafts, newest edit first.
	// An empty draft_type argument matches every type.
	queryListDrafts = `
		SELECT
			id, native_id, provider_id, user_id, draft_type,
			draft, collection_concept_id, created_at, updated_at
		FROM drafts
		WHERE provider_id = $1
		  AND ($2 = '' OR draft_type = $2)
		ORDER BY updated_at DESC, id DESC
		LIMIT $3 OFFSET $4
	`
)
