package records

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/mcp-cerfa/internal/cerfa"
)

var recordRowColumns = []string{
	"id", "tenant_id", "contract_id", "user_id", "form_version",
	"object_path", "storage_url", "field_mapping_version", "generated_at",
}

func newMockRepository(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewRepository(db), mock
}

func createTestInput() NewGenerationRecord {
	return NewGenerationRecord{
		TenantID:            "tenant-1",
		ContractID:          "contract-1",
		UserID:              "user-1",
		FormVersion:         cerfa.FormVersion,
		ObjectPath:          "cerfas/cerfa-C-1-1700000000000.pdf",
		StorageURL:          "http://minio/cerfa/cerfas/cerfa-C-1-1700000000000.pdf?X-Amz-Signature=x",
		FieldMappingVersion: cerfa.FieldMappingVersion,
	}
}

func TestRepository_Create_Success(t *testing.T) {
	repo, mock := newMockRepository(t)
	generatedAt := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	in := createTestInput()

	mock.ExpectQuery(`INSERT INTO cerfa_pdfs`).
		WithArgs(
			sqlmock.AnyArg(), // id
			in.TenantID,
			in.ContractID,
			in.UserID,
			in.FormVersion,
			in.ObjectPath,
			in.StorageURL,
			in.FieldMappingVersion,
		).
		WillReturnRows(sqlmock.NewRows([]string{"generated_at"}).AddRow(generatedAt))

	rec, err := repo.Create(context.Background(), in)
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, rec.ID)
	assert.Equal(t, "contract-1", rec.ContractID)
	assert.Equal(t, "10103_10", rec.FormVersion)
	assert.Equal(t, "1.0.0", rec.FieldMappingVersion)
	assert.True(t, generatedAt.Equal(rec.GeneratedAt))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_Create_Failure(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectQuery(`INSERT INTO cerfa_pdfs`).
		WillReturnError(errors.New("connection refused"))

	rec, err := repo.Create(context.Background(), createTestInput())
	assert.Nil(t, rec)

	var perr *PersistenceError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "create generation record", perr.Op)
	assert.Contains(t, err.Error(), "connection refused")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_ListByContract(t *testing.T) {
	repo, mock := newMockRepository(t)
	newer, older := uuid.New(), uuid.New()
	t1 := time.Date(2025, 3, 2, 9, 0, 0, 0, time.UTC)
	t0 := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT .* FROM cerfa_pdfs\s+WHERE contract_id = \$1\s+ORDER BY generated_at DESC`).
		WithArgs("contract-1").
		WillReturnRows(sqlmock.NewRows(recordRowColumns).
			AddRow(newer.String(), "tenant-1", "contract-1", "user-2", "10103_10", "cerfas/b.pdf", "http://u/b", "1.0.0", t1).
			AddRow(older.String(), "tenant-1", "contract-1", "user-1", "10103_10", "cerfas/a.pdf", "http://u/a", "1.0.0", t0))

	list, err := repo.ListByContract(context.Background(), "contract-1")
	require.NoError(t, err)
	require.Len(t, list, 2)

	assert.Equal(t, newer, list[0].ID)
	assert.Equal(t, "cerfas/b.pdf", list[0].ObjectPath)
	assert.Equal(t, older, list[1].ID)
	assert.True(t, list[0].GeneratedAt.After(list[1].GeneratedAt))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_ListByContract_Empty(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectQuery(`FROM cerfa_pdfs`).
		WithArgs("contract-2").
		WillReturnRows(sqlmock.NewRows(recordRowColumns))

	list, err := repo.ListByContract(context.Background(), "contract-2")
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}

func TestRepository_ListByContract_QueryError(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectQuery(`FROM cerfa_pdfs`).WillReturnError(sql.ErrConnDone)

	_, err := repo.ListByContract(context.Background(), "contract-1")
	var perr *PersistenceError
	require.ErrorAs(t, err, &perr)
	assert.ErrorIs(t, err, sql.ErrConnDone)
}

func TestRepository_Get(t *testing.T) {
	repo, mock := newMockRepository(t)
	id := uuid.New()
	at := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`FROM cerfa_pdfs WHERE id = \$1`).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows(recordRowColumns).
			AddRow(id.String(), "tenant-1", "contract-1", "user-1", "10103_10", "cerfas/a.pdf", "http://u/a", "1.0.0", at))

	rec, err := repo.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, id, rec.ID)
	assert.Equal(t, "tenant-1", rec.TenantID)

	mock.ExpectQuery(`FROM cerfa_pdfs WHERE id = \$1`).
		WillReturnError(sql.ErrNoRows)

	_, err = repo.Get(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrRecordNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
