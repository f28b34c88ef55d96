package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"godsendjoseph.dev/gaushala-api/internal/models"
)

var ErrNotInitialized = errors.New("redis client not initialized")

type UploadStore struct {
	rdb *redis.Client
}

const UploadExpTime = time.Minute * 10

func uploadKey(uploadID string) string {
	return fmt.Sprintf("upload-%s", uploadID)
}

// Get returns nil, nil on a cache miss.
func (storage *UploadStore) Get(ctx context.Context, uploadID string) (*models.UploadLog, error) {
	if storage.rdb == nil {
		return nil, ErrNotInitialized
	}

	data, err := storage.rdb.Get(ctx, uploadKey(uploadID)).Result()
	if err == redis.Nil {
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	var upload models.UploadLog
	if err := json.Unmarshal([]byte(data), &upload); err != nil {
		return nil, err
	}

	return &upload, nil
}

func (storage *UploadStore) Set(ctx context.Context, upload *models.UploadLog) error {
	if storage.rdb == nil {
		return ErrNotInitialized
	}

	payload, err := json.Marshal(upload)
	if err != nil {
		return err
	}

	return storage.rdb.SetEX(ctx, uploadKey(upload.UploadID), payload, UploadExpTime).Err()
}
