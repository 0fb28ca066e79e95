package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"math"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	v1 "github.com/mmt-lab/draftflow/internal/api/v1"
	"github.com/mmt-lab/draftflow/internal/core/storage"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

func TestAdapter_CreateDraft(t *testing.T) {
	tests := []struct {
		name       string
		draft      *v1.Draft
		mockResult func(mock sqlmock.Sqlmock, draft *v1.Draft)
		assertions func(t *testing.T, draft *v1.Draft, err error)
	}{
		{
			name: "success populates id and timestamps",
			draft: &v1.Draft{
				NativeID:   "mmt_collection_1",
				ProviderID: "PROV",
				UserID:     "alice",
				DraftType:  v1.DraftTypeCollection,
				Draft:      map[string]interface{}{"ShortName": "MODIS"},
			},
			mockResult: func(mock sqlmock.Sqlmock, draft *v1.Draft) {
				mock.ExpectQuery(regexp.QuoteMeta(queryInsertDraft)).
					WithArgs(
						draft.NativeID,
						draft.ProviderID,
						draft.UserID,
						"collection",
						[]byte(`{"ShortName":"MODIS"}`),
						nil,
						fixedNow,
					).
					WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).
						AddRow(int64(42), fixedNow, fixedNow))
			},
			assertions: func(t *testing.T, draft *v1.Draft, err error) {
				require.NoError(t, err)
				require.Equal(t, int64(42), draft.ID)
				require.Equal(t, fixedNow, draft.CreatedAt)
				require.Equal(t, fixedNow, draft.UpdatedAt)
			},
		},
		{
			name: "variable carries collection concept id",
			draft: &v1.Draft{
				NativeID:            "mmt_variable_1",
				ProviderID:          "PROV",
				UserID:              "alice",
				DraftType:           v1.DraftTypeVariable,
				CollectionConceptID: "C1-PROV",
			},
			mockResult: func(mock sqlmock.Sqlmock, draft *v1.Draft) {
				mock.ExpectQuery(regexp.QuoteMeta(queryInsertDraft)).
					WithArgs(
						draft.NativeID,
						draft.ProviderID,
						draft.UserID,
						"variable",
						[]byte(`{}`),
						"C1-PROV",
						fixedNow,
					).
					WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).
						AddRow(int64(7), fixedNow, fixedNow))
			},
			assertions: func(t *testing.T, draft *v1.Draft, err error) {
				require.NoError(t, err)
				require.Equal(t, int64(7), draft.ID)
			},
		},
		{
			name: "unique violation maps to ErrDuplicate",
			draft: &v1.Draft{
				NativeID:   "mmt_collection_dup",
				ProviderID: "PROV",
				UserID:     "alice",
				DraftType:  v1.DraftTypeCollection,
			},
			mockResult: func(mock sqlmock.Sqlmock, draft *v1.Draft) {
				mock.ExpectQuery(regexp.QuoteMeta(queryInsertDraft)).
					WillReturnError(&pq.Error{Code: "23505", Message: "duplicate key value"})
			},
			assertions: func(t *testing.T, draft *v1.Draft, err error) {
				require.ErrorIs(t, err, storage.ErrDuplicate)
				require.Zero(t, draft.ID)
			},
		},
		{
			name: "marshal error short-circuits",
			draft: &v1.Draft{
				NativeID:   "mmt_collection_bad",
				ProviderID: "PROV",
				UserID:     "alice",
				DraftType:  v1.DraftTypeCollection,
				Draft:      map[string]interface{}{"value": math.NaN()},
			},
			assertions: func(t *testing.T, draft *v1.Draft, err error) {
				require.Error(t, err)
				require.ErrorContains(t, err, "failed to marshal draft")
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			adapter, mock, db := newMockAdapter(t)
			defer db.Close()

			if tc.mockResult != nil {
				tc.mockResult(mock, tc.draft)
			}

			err := adapter.CreateDraft(context.Background(), tc.draft)
			tc.assertions(t, tc.draft, err)

			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestAdapter_GetDraft(t *testing.T) {
	adapter, mock, db := newMockAdapter(t)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(querySelectDraft)).
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows(draftRowColumns()).
			AddRow(
				int64(5),
				"mmt_variable_5",
				"PROV",
				"alice",
				"variable",
				[]byte(`{"Name":"sst","Dimensions":[{"Size":3}]}`),
				"C1-PROV",
				fixedNow,
				fixedNow.Add(time.Minute),
			))

	draft, err := adapter.GetDraft(context.Background(), 5)
	require.NoError(t, err)
	require.Equal(t, int64(5), draft.ID)
	require.Equal(t, v1.DraftTypeVariable, draft.DraftType)
	require.Equal(t, "C1-PROV", draft.CollectionConceptID)
	require.Equal(t, "sst", draft.Draft["Name"])
	require.Equal(t, fixedNow.Add(time.Minute), draft.UpdatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAdapter_DraftNumbersSurviveReadAndWrite(t *testing.T) {
	adapter, mock, db := newMockAdapter(t)
	defer db.Close()

	const doc = `{"Big":9007199254740993,"Dimensions":[{"Size":3}],"Scale":1.50}`

	mock.ExpectQuery(regexp.QuoteMeta(querySelectDraft)).
		WithArgs(int64(8)).
		WillReturnRows(sqlmock.NewRows(draftRowColumns()).
			AddRow(int64(8), "mmt_variable_8", "PROV", "alice", "variable", []byte(doc), nil, fixedNow, fixedNow))
	mock.ExpectQuery(regexp.QuoteMeta(queryUpdateDraft)).
		WithArgs(int64(8), []byte(doc), nil, fixedNow).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).
			AddRow(fixedNow, fixedNow))

	draft, err := adapter.GetDraft(context.Background(), 8)
	require.NoError(t, err)
	require.Equal(t, json.Number("9007199254740993"), draft.Draft["Big"])
	require.Equal(t, json.Number("1.50"), draft.Draft["Scale"])
	require.Equal(t, []interface{}{map[string]interface{}{"Size": json.Number("3")}}, draft.Draft["Dimensions"])

	require.NoError(t, adapter.UpdateDraft(context.Background(), draft))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAdapter_GetDraft_NotFound(t *testing.T) {
	adapter, mock, db := newMockAdapter(t)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(querySelectDraft)).
		WithArgs(int64(99)).
		WillReturnRows(sqlmock.NewRows(draftRowColumns()))

	_, err := adapter.GetDraft(context.Background(), 99)
	require.ErrorIs(t, err, storage.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAdapter_UpdateDraft(t *testing.T) {
	adapter, mock, db := newMockAdapter(t)
	defer db.Close()

	later := fixedNow
	mock.ExpectQuery(regexp.QuoteMeta(queryUpdateDraft)).
		WithArgs(int64(3), []byte(`{"Name":"tool"}`), nil, fixedNow).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).
			AddRow(fixedNow.Add(-time.Hour), later))

	draft := &v1.Draft{ID: 3, DraftType: v1.DraftTypeTool, Draft: map[string]interface{}{"Name": "tool"}}
	require.NoError(t, adapter.UpdateDraft(context.Background(), draft))
	require.Equal(t, later, draft.UpdatedAt)
	require.Equal(t, fixedNow.Add(-time.Hour), draft.CreatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAdapter_UpdateDraft_NotFound(t *testing.T) {
	adapter, mock, db := newMockAdapter(t)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(queryUpdateDraft)).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}))

	err := adapter.UpdateDraft(context.Background(), &v1.Draft{ID: 404})
	require.ErrorIs(t, err, storage.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAdapter_DeleteDraft(t *testing.T) {
	t.Run("deleted", func(t *testing.T) {
		adapter, mock, db := newMockAdapter(t)
		defer db.Close()

		mock.ExpectExec(regexp.QuoteMeta(queryDeleteDraft)).
			WithArgs(int64(8)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, adapter.DeleteDraft(context.Background(), 8))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing", func(t *testing.T) {
		adapter, mock, db := newMockAdapter(t)
		defer db.Close()

		mock.ExpectExec(regexp.QuoteMeta(queryDeleteDraft)).
			WithArgs(int64(8)).
			WillReturnResult(sqlmock.NewResult(0, 0))

		require.ErrorIs(t, adapter.DeleteDraft(context.Background(), 8), storage.ErrNotFound)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("exec error", func(t *testing.T) {
		adapter, mock, db := newMockAdapter(t)
		defer db.Close()

		mock.ExpectExec(regexp.QuoteMeta(queryDeleteDraft)).
			WillReturnError(sql.ErrConnDone)

		err := adapter.DeleteDraft(context.Background(), 8)
		require.ErrorIs(t, err, sql.ErrConnDone)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAdapter_ListDrafts(t *testing.T) {
	adapter, mock, db := newMockAdapter(t)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(queryListDrafts)).
		WithArgs("PROV", "collection", storage.DefaultListLimit, 0).
		WillReturnRows(sqlmock.NewRows(draftRowColumns()).
			AddRow(int64(2), "mmt_collection_2", "PROV", "bob", "collection",
				[]byte(`{"ShortName":"B"}`), nil, fixedNow, fixedNow.Add(2*time.Minute)).
			AddRow(int64(1), "mmt_collection_1", "PROV", "alice", "collection",
				[]byte(`{"ShortName":"A"}`), nil, fixedNow, fixedNow.Add(time.Minute)),
		).RowsWillBeClosed()

	drafts, err := adapter.ListDrafts(context.Background(), storage.DraftQuery{
		ProviderID: "PROV",
		DraftType:  v1.DraftTypeCollection,
	})
	require.NoError(t, err)
	require.Len(t, drafts, 2)
	require.Equal(t, int64(2), drafts[0].ID)
	require.Equal(t, "B", drafts[0].Draft["ShortName"])
	require.Empty(t, drafts[0].CollectionConceptID)
	require.Equal(t, int64(1), drafts[1].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAdapter_CloseReturnsDBCloseError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	dbCloseErr := errors.New("db close failed")

	adapter := &Adapter{
		db:              db,
		stmtInsertDraft: mustPrepareStmt(t, db, mock, queryInsertDraft),
		stmtSelectDraft: mustPrepareStmt(t, db, mock, querySelectDraft),
		stmtUpdateDraft: mustPrepareStmt(t, db, mock, queryUpdateDraft),
		stmtDeleteDraft: mustPrepareStmt(t, db, mock, queryDeleteDraft),
		stmtListDrafts:  mustPrepareStmt(t, db, mock, queryListDrafts),
	}
	mock.ExpectClose().WillReturnError(dbCloseErr)

	err = adapter.Close()
	require.Error(t, err)
	require.ErrorContains(t, err, "failed to close database")
	require.ErrorIs(t, err, dbCloseErr)
	require.NoError(t, mock.ExpectationsWereMet())
}

func newMockAdapter(t *testing.T) (*Adapter, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	adapter := &Adapter{
		db:              db,
		stmtInsertDraft: mustPrepareStmt(t, db, mock, queryInsertDraft),
		stmtSelectDraft: mustPrepareStmt(t, db, mock, querySelectDraft),
		stmtUpdateDraft: mustPrepareStmt(t, db, mock, queryUpdateDraft),
		stmtDeleteDraft: mustPrepareStmt(t, db, mock, queryDeleteDraft),
		stmtListDrafts:  mustPrepareStmt(t, db, mock, queryListDrafts),
		nowFn:           func() time.Time { return fixedNow },
	}

	return adapter, mock, db
}

func mustPrepareStmt(t *testing.T, db *sql.DB, mock sqlmock.Sqlmock, query string) *sql.Stmt {
	t.Helper()

	mock.ExpectPrepare(regexp.QuoteMeta(query))
	stmt, err := db.Prepare(query)
	require.NoError(t, err)

	return stmt
}

func draftRowColumns() []string {
	return []string{
		"id",
		"native_id",
		"provider_id",
		"user_id",
		"draft_type",
		"draft",
		"collection_concept_id",
		"created_at",
		"updated_at",
	}
}
