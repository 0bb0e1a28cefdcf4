package imgpostgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/UnendingLoop/ImageEvents/internal/model"
	"github.com/wb-go/wbf/dbpg"
)

type PostgresRepo struct {
	DB *dbpg.DB
}

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

var imageColumns = []string{"id", "title", "file_path", "resolution", "size", "user_id", "created_at", "updated_at"}

func (p PostgresRepo) Create(ctx context.Context, n *model.Image) (int64, error) {
	query := `INSERT INTO images (title, file_path, resolution, size, user_id, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	RETURNING id`

	var id int64
	err := p.DB.Master.QueryRowContext(ctx, query, n.Title, n.FilePath, n.Resolution, n.Size, n.UserID, n.CreatedAt, n.UpdatedAt).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (p PostgresRepo) Get(ctx context.Context, id int64) (*model.Image, error) {
	query := `SELECT id, title, file_path, resolution, size, user_id, created_at, updated_at
	FROM images
	WHERE id = $1`

	return scanImage(p.DB.QueryRowContext(ctx, query, id))
}

// GetOwned - запись ищется только среди принадлежащих userID
func (p PostgresRepo) GetOwned(ctx context.Context, id, userID int64) (*model.Image, error) {
	query := `SELECT id, title, file_path, resolution, size, user_id, created_at, updated_at
	FROM images
	WHERE id = $1 AND user_id = $2`

	return scanImage(p.DB.QueryRowContext(ctx, query, id, userID))
}

// GetList - при Limit == 0 возвращаются все записи, Page игнорируется
func (p PostgresRepo) GetList(ctx context.Context, req *model.ListRequest) ([]model.Image, error) {
	builder := psql.Select(imageColumns...).
		From("images").
		OrderBy(req.Sort + " " + req.Order)
	if req.Limit > 0 {
		builder = builder.
			Limit(uint64(req.Limit)).
			Offset(uint64((req.Page - 1) * req.Limit))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build list query: %w", err)
	}

	rows, err := p.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	defer func() {
		if err := rows.Close(); err != nil {
			log.Printf("Error while closing *sql.Rows after scanning: %v", err)
		}
	}()

	images := make([]model.Image, 0, max(req.Limit, 0))
	for rows.Next() {
		var image model.Image
		if err := rows.Scan(&image.ID,
			&image.Title,
			&image.FilePath,
			&image.Resolution,
			&image.Size,
			&image.UserID,
			&image.CreatedAt,
			&image.UpdatedAt); err != nil {
			return nil, err
		}
		images = append(images, image)
	}

	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return images, nil
}

// Update - применяет только заданные поля патча. Запись меняется, только если она старше at,
// иначе возвращается ErrStaleEvent.
func (p PostgresRepo) Update(ctx context.Context, id, userID int64, patch model.ImagePatch, at time.Time) error {
	builder := psql.Update("images")
	if patch.Title != nil {
		builder = builder.Set("title", *patch.Title)
	}
	if patch.Resolution != nil {
		builder = builder.Set("resolution", *patch.Resolution)
	}
	if patch.Size != nil {
		builder = builder.Set("size", *patch.Size)
	}
	builder = builder.Set("updated_at", at).
		Where(squirrel.Eq{"id": id, "user_id": userID}).
		Where(squirrel.Lt{"updated_at": at})

	query, args, err := builder.ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update query: %w", err)
	}

	res, err := p.DB.Master.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return model.ErrStaleEvent
	}
	return nil
}

func (p PostgresRepo) Delete(ctx context.Context, id, userID int64) error {
	query := `DELETE FROM images
	WHERE id = $1 AND user_id = $2`

	res, err := p.DB.Master.ExecContext(ctx, query, id, userID)
	if err != nil {
		return err // 500
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return model.ErrImageNotFound // 404
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanImage(row rowScanner) (*model.Image, error) {
	var image model.Image

	err := row.Scan(&image.ID,
		&image.Title,
		&image.FilePath,
		&image.Resolution,
		&image.Size,
		&image.UserID,
		&image.CreatedAt,
		&image.UpdatedAt)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, model.ErrImageNotFound
		default:
			return nil, err // 500
		}
	}
	return &image, nil
}
