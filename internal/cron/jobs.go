package cron

import (
	"context"
	"time"

	"go.uber.org/zap"

	"godsendjoseph.dev/gaushala-api/internal/storage"
	"godsendjoseph.dev/gaushala-api/internal/upload"
)

const reprovisionTimeout = 2 * time.Minute

type provisioner interface {
	Ensure(ctx context.Context, want storage.Container) (*upload.ProvisionReport, error)
}

type warningNotifier interface {
	NotifyProvisionWarnings(container string, warnings []string) error
}

// JobManager holds all available cron jobs
type JobManager struct {
	logger      *zap.SugaredLogger
	provisioner provisioner
	notifier    warningNotifier
}

func NewJobManager(logger *zap.SugaredLogger, provisioner provisioner, notifier warningNotifier) *JobManager {
	return &JobManager{
		logger:      logger,
		provisioner: provisioner,
		notifier:    notifier,
	}
}

// ReprovisionStorage re-asserts the container and its policies so a policy
// dropped out of band heals without waiting for the next upload.
func (j *JobManager) ReprovisionStorage(container storage.Container) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), reprovisionTimeout)
		defer cancel()

		report, err := j.provisioner.Ensure(ctx, container)
		if err != nil {
			j.logger.Errorw("storage reprovision failed", "container", container.Name, "error", err)
			return
		}

		j.logger.Infow("storage reprovisioned",
			"container", container.Name,
			"created", report.Created,
			"updated", report.Updated,
			"warnings", len(report.Warnings),
		)

		if err := j.notifier.NotifyProvisionWarnings(container.Name, report.Warnings); err != nil {
			j.logger.Warnw("failed to notify provisioning warnings", "error", err)
		}
	}
}
