package userpostgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/UnendingLoop/ImageEvents/internal/model"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"
	"github.com/wb-go/wbf/dbpg"
)

func newRepoWithMock(t *testing.T) (PostgresRepo, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	return PostgresRepo{DB: &dbpg.DB{Master: db}}, mock
}

var userColumns = []string{"id", "username", "hashed_password", "created_at", "updated_at"}

func TestUserRepo_Create_OK(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	now := time.Now()
	u := &model.User{Username: "alice", HashedPassword: "hash", CreatedAt: &now, UpdatedAt: &now}

	mock.ExpectQuery(`INSERT INTO users`).
		WithArgs("alice", "hash", u.CreatedAt, u.UpdatedAt).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))

	id, err := repo.Create(context.Background(), u)
	require.NoError(t, err)
	require.Equal(t, int64(1), id)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_Create_Duplicate(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`INSERT INTO users`).
		WillReturnError(&pq.Error{Code: "23505"})

	_, err := repo.Create(context.Background(), &model.User{Username: "alice"})
	require.ErrorIs(t, err, model.ErrUserExists)
}

func TestUserRepo_Create_DBError(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`INSERT INTO users`).
		WillReturnError(errors.New("db down"))

	_, err := repo.Create(context.Background(), &model.User{Username: "alice"})
	require.Error(t, err)
	require.NotErrorIs(t, err, model.ErrUserExists)
}

func TestUserRepo_GetByUsername(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`WHERE username = \$1`).
		WithArgs("alice").
		WillReturnRows(sqlmock.NewRows(userColumns).AddRow(1, "alice", "hash", time.Now(), time.Now()))

	u, err := repo.GetByUsername(context.Background(), "alice")
	require.NoError(t, err)
	require.Equal(t, int64(1), u.ID)
	require.Equal(t, "hash", u.HashedPassword)

	mock.ExpectQuery(`WHERE username = \$1`).
		WithArgs("bob").
		WillReturnError(sql.ErrNoRows)

	_, err = repo.GetByUsername(context.Background(), "bob")
	require.ErrorIs(t, err, model.ErrUserNotFound)
}

func TestUserRepo_GetByID(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`WHERE id = \$1`).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows(userColumns).AddRow(1, "alice", "hash", time.Now(), time.Now()))

	u, err := repo.GetByID(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, "alice", u.Username)

	mock.ExpectQuery(`WHERE id = \$1`).
		WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows(userColumns))

	_, err = repo.GetByID(context.Background(), 42)
	require.ErrorIs(t, err, model.ErrUserNotFound)
}
