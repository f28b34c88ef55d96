package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"godsendjoseph.dev/gaushala-api/internal/models"
)

var (
	ErrNotFound          = errors.New("record not found")
	ErrConflict          = errors.New("record already exists")
	QueryTimeoutDuration = time.Second * 5
)

type Storage struct {
	Uploads interface {
		Create(context.Context, *models.UploadLog) error
		CreateBatch(context.Context, []*models.UploadLog) error
		GetByUploadID(context.Context, string) (*models.UploadLog, error)
		ListRecent(context.Context, int) ([]*models.UploadLog, error)
	}
}

func NewStorage(db *sql.DB) Storage {
	return Storage{
		Uploads: &UploadStore{db},
	}
}

func withTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return rbErr
		}
		return err
	}

	return tx.Commit()
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}
