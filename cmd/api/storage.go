package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"godsendjoseph.dev/gaushala-api/internal/storage"
	"godsendjoseph.dev/gaushala-api/internal/upload"
)

const (
	providerSupabase = "supabase"
	providerS3       = "s3"
	providerMinio    = "minio"
	providerNone     = "none"
)

// newStorageClient builds the remote client for cfg.provider. A nil client
// with a nil error means uploads only ever go to the local directory. The
// returned cleanup is never nil.
func newStorageClient(ctx context.Context, cfg storageConfig, logger *zap.SugaredLogger) (storage.Client, func(), error) {
	noop := func() {}

	switch cfg.provider {
	case providerSupabase:
		var executor storage.SQLExecutor
		cleanup := noop
		if cfg.supabase.dbURL != "" {
			pgExecutor, err := storage.NewPgxPolicyExecutor(ctx, cfg.supabase.dbURL)
			if err != nil {
				// policies then go through the execute_sql rpc
				logger.Warnw("platform database unavailable, asserting policies over rpc", "error", err)
			} else {
				executor = pgExecutor
				cleanup = pgExecutor.Close
			}
		}
		client := storage.NewSupabaseClient(storage.SupabaseConfig{
			URL:        cfg.supabase.url,
			ServiceKey: cfg.supabase.serviceRoleKey,
			Timeout:    cfg.remoteTimeout,
		}, executor)
		return client, cleanup, nil

	case providerS3:
		client, err := storage.NewS3Client(storage.S3Config{
			Endpoint:               cfg.s3.endpoint,
			Region:                 cfg.s3.region,
			AccessKeyID:            cfg.s3.accessKeyID,
			SecretAccessKey:        cfg.s3.secretAccessKey,
			PublicURL:              cfg.s3.publicURL,
			AuthenticatedPrincipal: cfg.authenticatedPrincipal,
		})
		if err != nil {
			return nil, noop, err
		}
		return client, noop, nil

	case providerMinio:
		client, err := storage.NewMinioClient(storage.MinioConfig{
			Endpoint:               cfg.minio.endpoint,
			AccessKey:              cfg.minio.accessKey,
			SecretKey:              cfg.minio.secretKey,
			UseSSL:                 cfg.minio.useSSL,
			Region:                 cfg.minio.region,
			PublicURL:              cfg.minio.publicURL,
			AuthenticatedPrincipal: cfg.authenticatedPrincipal,
		})
		if err != nil {
			return nil, noop, err
		}
		return client, noop, nil

	case providerNone, "":
		return nil, noop, nil
	}

	return nil, noop, fmt.Errorf("unknown STORAGE_PROVIDER %q", cfg.provider)
}

// newUploader wires the fallback chain. Without a remote client only the
// filesystem strategy is registered.
func newUploader(client storage.Client, cfg storageConfig, logger *zap.SugaredLogger) (*upload.Coordinator, *upload.Provisioner, *upload.FilesystemStrategy) {
	filesystem := upload.NewFilesystemStrategy(upload.OSFilesystem{}, cfg.uploadsDir)

	if client == nil {
		return upload.NewCoordinator(logger, cfg.remoteTimeout, filesystem), nil, filesystem
	}

	container := cfg.container()
	provisioner := upload.NewProvisioner(client, logger)
	coordinator := upload.NewCoordinator(logger, cfg.remoteTimeout,
		upload.NewDirectStrategy(client, provisioner, container, logger),
		upload.NewSignedStrategy(client, provisioner, container, cfg.signedURLTTL, logger),
		filesystem,
	)
	return coordinator, provisioner, filesystem
}

// provisionOnStartup runs one provisioning pass. Failures are logged only.
func (app *application) provisionOnStartup() {
	if app.provisioner == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), app.config.storage.remoteTimeout+5*time.Second)
	defer cancel()

	container := app.config.storage.container()
	report, err := app.provisioner.Ensure(ctx, container)
	if err != nil {
		app.logger.Warnw("startup provisioning failed", "container", container.Name, "error", err)
		return
	}

	app.logger.Infow("storage ready", "container", container.Name, "created", report.Created, "updated", report.Updated, "warnings", len(report.Warnings))
	if err := app.slackNotifier.NotifyProvisionWarnings(container.Name, report.Warnings); err != nil {
		app.logger.Warnw("failed to notify provisioning warnings", "error", err)
	}
}
