package cache

import (
	"context"

	"github.com/go-redis/redis/v8"

	"godsendjoseph.dev/gaushala-api/internal/models"
)

type Storage struct {
	Uploads interface {
		Get(context.Context, string) (*models.UploadLog, error)
		Set(context.Context, *models.UploadLog) error
	}
}

func NewRedisStorage(rdb *redis.Client) Storage {
	return Storage{
		Uploads: &UploadStore{rdb: rdb},
	}
}
