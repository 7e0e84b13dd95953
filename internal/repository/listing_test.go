package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vilatur/internal/model"
)

var listingCols = []string{"id", "owner_id", "title", "content", "phone", "site", "open_time", "close_time",
	"delivery", "latitude", "longitude", "keywords", "image_id", "created_at", "updated_at"}

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return sqlx.NewDb(sqlDB, "postgres"), mock
}

func listingRow(id, ownerID int64, title string, keywords interface{}) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(listingCols).AddRow(
		id, ownerID, title, "Pães e bolos fresquinhos", "22999998888", "https://bompao.com.br",
		"07:00", nil, model.DeliveryNo, "-22.93", "-42.49", keywords, nil, now, now,
	)
}

func TestListingRepository_GetByID_ScopedToOwner(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewListingRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM listings WHERE id = $1 AND owner_id = $2")).
		WithArgs(int64(5), int64(7)).
		WillReturnRows(listingRow(5, 7, "Padaria Bom Pão", "pão,bolo"))
	mock.ExpectQuery(regexp.QuoteMeta("FROM listings WHERE id = $1 AND owner_id = $2")).
		WithArgs(int64(5), int64(8)).
		WillReturnError(sql.ErrNoRows)

	l, err := repo.GetByID(context.Background(), 5, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(7), l.OwnerID)
	require.NotNil(t, l.Keywords)
	assert.Equal(t, "pão,bolo", *l.Keywords)
	assert.Nil(t, l.Close)

	_, err = repo.GetByID(context.Background(), 5, 8)
	assert.ErrorIs(t, err, model.ErrListingNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListingRepository_GetByID_StorageError(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewListingRepository(db)

	mock.ExpectQuery("FROM listings").WillReturnError(errors.New("connection refused"))

	_, err := repo.GetByID(context.Background(), 1, 1)

	var serr *model.StorageError
	require.True(t, errors.As(err, &serr))
	assert.Equal(t, "get listing", serr.Op)
}

func TestListingRepository_Create(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewListingRepository(db)

	fields := model.ListingFields{
		Title: "Padaria Bom Pão", Content: "Pães e bolos fresquinhos", Phone: "22999998888",
		Site: "https://bompao.com.br", Open: "07:00", Delivery: model.DeliveryNo,
		Latitude: "-22.93", Longitude: "-42.49", Keywords: "pão,bolo",
	}

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO listings")).
		WithArgs(int64(7), fields.Title, fields.Content, fields.Phone, fields.Site,
			"07:00", nil, model.DeliveryNo, "-22.93", "-42.49", "pão,bolo").
		WillReturnRows(listingRow(11, 7, fields.Title, "pão,bolo"))

	l, err := repo.Create(context.Background(), 7, fields)
	require.NoError(t, err)
	assert.Equal(t, int64(11), l.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListingRepository_Update_ConditionalOnOwner(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewListingRepository(db)

	kw := "pão,bolo"
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE listings SET keywords = $1, updated_at = NOW()") +
		`\s+` + regexp.QuoteMeta("WHERE id = $2 AND owner_id = $3")).
		WithArgs("pão,bolo", int64(5), int64(99)).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Update(context.Background(), 5, 99, model.ListingPatch{Keywords: &kw})

	assert.ErrorIs(t, err, model.ErrListingNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListingRepository_Update_OnlySuppliedFields(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewListingRepository(db)

	title := "Padaria Pão Quente"
	open := ""
	mock.ExpectQuery(regexp.QuoteMeta("SET title = $1, open_time = $2, updated_at = NOW()")).
		WithArgs(title, nil, int64(5), int64(7)).
		WillReturnRows(listingRow(5, 7, title, nil))

	l, err := repo.Update(context.Background(), 5, 7, model.ListingPatch{Title: &title, Open: &open})
	require.NoError(t, err)
	assert.Equal(t, title, l.Title)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListingRepository_Update_EmptyPatchReads(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewListingRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM listings WHERE id = $1 AND owner_id = $2")).
		WithArgs(int64(5), int64(7)).
		WillReturnRows(listingRow(5, 7, "Padaria", nil))

	_, err := repo.Update(context.Background(), 5, 7, model.ListingPatch{})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListingRepository_Delete_RemovesImageRow(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewListingRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("DELETE FROM listings")).
		WithArgs(int64(5), int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"image_id"}).AddRow("img-1"))
	mock.ExpectQuery(regexp.QuoteMeta("DELETE FROM images WHERE id = $1 RETURNING object_key")).
		WithArgs("img-1").
		WillReturnRows(sqlmock.NewRows([]string{"object_key"}).AddRow("images/img-1.jpg"))
	mock.ExpectCommit()

	res, err := repo.Delete(context.Background(), 5, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Deleted)
	require.NotNil(t, res.ImageObjectKey)
	assert.Equal(t, "images/img-1.jpg", *res.ImageObjectKey)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListingRepository_Delete_NotOwnedDeletesNothing(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewListingRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("WHERE id = $1 AND owner_id = $2")).
		WithArgs(int64(5), int64(99)).
		WillReturnRows(sqlmock.NewRows([]string{"image_id"}))
	mock.ExpectRollback()

	res, err := repo.Delete(context.Background(), 5, 99)
	require.NoError(t, err)
	assert.Equal(t, int64(0), res.Deleted)
	assert.Nil(t, res.ImageObjectKey)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListingRepository_ListSummaries_NewestFirst(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewListingRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY updated_at DESC")).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "updated_at"}).
			AddRow(2, "Pizzaria", now).
			AddRow(1, "Padaria", now.Add(-time.Hour)))

	got, err := repo.ListSummaries(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(2), got[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListingRepository_ListAll_EmptyIsNotNil(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewListingRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM listings ORDER BY created_at, id")).
		WillReturnRows(sqlmock.NewRows(listingCols))

	got, err := repo.ListAll(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestListingRepository_SetImage_ReturnsPrevious(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewListingRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("RETURNING prev.image_id")).
		WithArgs("img-new", int64(5), int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"image_id"}).AddRow("img-old"))
	mock.ExpectRollback()

	tx, err := db.Beginx()
	require.NoError(t, err)
	prev, err := repo.SetImage(context.Background(), tx, 5, 7, "img-new")
	require.NoError(t, err)
	require.NotNil(t, prev)
	assert.Equal(t, "img-old", *prev)
	require.NoError(t, tx.Rollback())
	assert.NoError(t, mock.ExpectationsWereMet())
}
