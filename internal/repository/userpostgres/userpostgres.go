package userpostgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/UnendingLoop/ImageEvents/internal/model"
	"github.com/lib/pq"
	"github.com/wb-go/wbf/dbpg"
)

// pgUniqueViolation - код ошибки postgres при нарушении UNIQUE
const pgUniqueViolation = "23505"

type PostgresRepo struct {
	DB *dbpg.DB
}

func (p PostgresRepo) Create(ctx context.Context, u *model.User) (int64, error) {
	query := `INSERT INTO users (username, hashed_password, created_at, updated_at)
	VALUES ($1, $2, $3, $4)
	RETURNING id`

	var id int64
	err := p.DB.Master.QueryRowContext(ctx, query, u.Username, u.HashedPassword, u.CreatedAt, u.UpdatedAt).Scan(&id)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pgUniqueViolation {
			return 0, model.ErrUserExists // 400
		}
		return 0, err
	}
	return id, nil
}

func (p PostgresRepo) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	query := `SELECT id, username, hashed_password, created_at, updated_at
	FROM users
	WHERE username = $1`

	return scanUser(p.DB.QueryRowContext(ctx, query, username))
}

func (p PostgresRepo) GetByID(ctx context.Context, id int64) (*model.User, error) {
	query := `SELECT id, username, hashed_password, created_at, updated_at
	FROM users
	WHERE id = $1`

	return scanUser(p.DB.QueryRowContext(ctx, query, id))
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*model.User, error) {
	var u model.User
	if err := row.Scan(&u.ID, &u.Username, &u.HashedPassword, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}
