package db

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"strings"

	"github.com/google/uuid"
	"github.com/icrowley/fake"

	"godsendjoseph.dev/gaushala-api/internal/models"
	"godsendjoseph.dev/gaushala-api/internal/store"
	"godsendjoseph.dev/gaushala-api/internal/utils"
)

var seedStrategies = []string{"direct", "direct", "direct", "signed", "filesystem"}

func Seed(store store.Storage) {
	ctx := context.Background()

	uploads := generateUploads(50)
	if err := store.Uploads.CreateBatch(ctx, uploads); err != nil {
		log.Printf("error creating upload logs: %v", err)
		return
	}

	log.Printf("Created %d upload logs", len(uploads))

	log.Println("seeding complete")
}

func generateUploads(num int) []*models.UploadLog {
	uploads := make([]*models.UploadLog, num)

	for i := 0; i < num; i++ {
		name := strings.ToLower(fake.FirstName())
		strategy := seedStrategies[rand.Intn(len(seedStrategies))]
		path := fmt.Sprintf("cow-%s-%s.jpg", name, uuid.NewString())

		upload := &models.UploadLog{
			UploadID:    uuid.NewString(),
			FileName:    name + ".jpg",
			Path:        path,
			Strategy:    strategy,
			ContentType: "image/jpeg",
			SizeBytes:   int64(rand.Intn(5_000_000) + 20_000),
			Success:     true,
			Diagnostics: utils.StringSlice{},
		}

		switch strategy {
		case "filesystem":
			upload.PublicURL = "/uploads/cow-" + uuid.NewString() + ".jpg"
			upload.Diagnostics = utils.StringSlice{
				"direct: [connection_failed] " + fake.Sentence(),
				"signed: [connection_failed] " + fake.Sentence(),
			}
		case "signed":
			upload.PublicURL = "http://localhost:54321/storage/v1/object/public/cow-images/" + path
			upload.Diagnostics = utils.StringSlice{"direct: [permission_denied] " + fake.Sentence()}
		default:
			upload.PublicURL = "http://localhost:54321/storage/v1/object/public/cow-images/" + path
		}

		uploads[i] = upload
	}

	return uploads
}
