package upload

import (
	"bytes"
	"context"

	"go.uber.org/zap"

	"godsendjoseph.dev/gaushala-api/internal/errs"
	"godsendjoseph.dev/gaushala-api/internal/storage"
)

// Strategy is one way of storing a file. Attempt returns the URL the file is
// reachable at.
type Strategy interface {
	Kind() StrategyKind
	Attempt(ctx context.Context, req Request) (string, error)
}

// remote holds what both remote strategies share.
type remote struct {
	client      storage.Client
	provisioner *Provisioner
	container   storage.Container
	logger      *zap.SugaredLogger
}

// ensure provisions the container. A failure is logged and the attempt goes
// on, the upload itself reports whatever is really wrong.
func (r *remote) ensure(ctx context.Context) {
	if _, err := r.provisioner.Ensure(ctx, r.container); err != nil {
		r.logger.Warnw("storage provisioning failed", "container", r.container.Name, "error", err)
	}
}

type DirectStrategy struct {
	remote
}

func NewDirectStrategy(client storage.Client, provisioner *Provisioner, container storage.Container, logger *zap.SugaredLogger) *DirectStrategy {
	return &DirectStrategy{remote{client: client, provisioner: provisioner, container: container, logger: logger}}
}

func (s *DirectStrategy) Kind() StrategyKind { return StrategyDirect }

func (s *DirectStrategy) Attempt(ctx context.Context, req Request) (string, error) {
	s.ensure(ctx)

	result, err := s.client.UploadObject(ctx, s.container.Name, req.Path, bytes.NewReader(req.Body), int64(len(req.Body)), req.ContentType)
	if err != nil {
		if ctx.Err() != nil {
			return "", errs.Wrap(errs.KindTimeout, "direct upload abandoned", err)
		}
		return "", err
	}

	if result != nil && result.URL != "" {
		return result.URL, nil
	}
	return s.client.GetPublicURL(s.container.Name, req.Path), nil
}
