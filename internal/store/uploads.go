package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-sql-driver/mysql"

	"godsendjoseph.dev/gaushala-api/internal/models"
)

const maxListLimit = 100

type UploadStore struct {
	db *sql.DB
}

func (storage *UploadStore) Create(ctx context.Context, upload *models.UploadLog) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	return storage.insert(ctx, storage.db, upload)
}

// CreateBatch inserts all rows in one transaction.
func (storage *UploadStore) CreateBatch(ctx context.Context, uploads []*models.UploadLog) error {
	return withTx(ctx, storage.db, func(tx *sql.Tx) error {
		for _, upload := range uploads {
			if err := storage.insert(ctx, tx, upload); err != nil {
				return err
			}
		}
		return nil
	})
}

func (storage *UploadStore) insert(ctx context.Context, exec execer, upload *models.UploadLog) error {
	query := `
    INSERT INTO upload_logs (upload_id, file_name, path, public_url, strategy, content_type, size_bytes, success, diagnostics)
    VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	result, err := exec.ExecContext(
		ctx,
		query,
		upload.UploadID,
		upload.FileName,
		upload.Path,
		upload.PublicURL,
		upload.Strategy,
		upload.ContentType,
		upload.SizeBytes,
		upload.Success,
		upload.Diagnostics,
	)
	if err != nil {
		var mysqlErr *mysql.MySQLError
		if errors.As(err, &mysqlErr) && mysqlErr.Number == 1062 {
			return ErrConflict
		}
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	upload.ID = id

	return nil
}

func (storage *UploadStore) GetByUploadID(ctx context.Context, uploadID string) (*models.UploadLog, error) {
	query := `
    SELECT id, upload_id, file_name, path, public_url, strategy, content_type, size_bytes, success, diagnostics, created_at
    FROM upload_logs WHERE upload_id = ?`

	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	upload, err := scanUpload(storage.db.QueryRowContext(ctx, query, uploadID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return upload, nil
}

func (storage *UploadStore) ListRecent(ctx context.Context, limit int) ([]*models.UploadLog, error) {
	if limit <= 0 || limit > maxListLimit {
		limit = maxListLimit
	}

	query := `
    SELECT id, upload_id, file_name, path, public_url, strategy, content_type, size_bytes, success, diagnostics, created_at
    FROM upload_logs ORDER BY created_at DESC, id DESC LIMIT ?`

	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	rows, err := storage.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	uploads := make([]*models.UploadLog, 0, limit)
	for rows.Next() {
		upload, err := scanUpload(rows)
		if err != nil {
			return nil, err
		}
		uploads = append(uploads, upload)
	}

	return uploads, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUpload(row rowScanner) (*models.UploadLog, error) {
	var upload models.UploadLog
	err := row.Scan(
		&upload.ID,
		&upload.UploadID,
		&upload.FileName,
		&upload.Path,
		&upload.PublicURL,
		&upload.Strategy,
		&upload.ContentType,
		&upload.SizeBytes,
		&upload.Success,
		&upload.Diagnostics,
		&upload.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &upload, nil
}
