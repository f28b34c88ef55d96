package upload

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"godsendjoseph.dev/gaushala-api/internal/errs"
	"godsendjoseph.dev/gaushala-api/internal/storage"
)

const defaultSignedURLTTL = 5 * time.Minute

// SignedStrategy asks the store for a pre-authorized write URL and PUTs the
// bytes to it out of band.
type SignedStrategy struct {
	remote
	http *resty.Client
	ttl  time.Duration
}

func NewSignedStrategy(client storage.Client, provisioner *Provisioner, container storage.Container, ttl time.Duration, logger *zap.SugaredLogger) *SignedStrategy {
	if ttl <= 0 {
		ttl = defaultSignedURLTTL
	}
	return &SignedStrategy{
		remote: remote{client: client, provisioner: provisioner, container: container, logger: logger},
		http:   resty.New(),
		ttl:    ttl,
	}
}

func (s *SignedStrategy) Kind() StrategyKind { return StrategySigned }

func (s *SignedStrategy) Attempt(ctx context.Context, req Request) (string, error) {
	s.ensure(ctx)

	signed, err := s.client.CreateSignedUploadURL(ctx, s.container.Name, req.Path, s.ttl)
	if err != nil {
		return "", err
	}

	put := s.http.R().
		SetContext(ctx).
		SetHeaders(signed.Headers).
		SetHeader("Content-Type", req.ContentType).
		SetBody(req.Body)

	resp, err := put.Put(signed.URL)
	if err != nil {
		if ctx.Err() != nil {
			return "", errs.Wrap(errs.KindTimeout, "signed upload abandoned", err)
		}
		return "", errs.Wrap(errs.KindConnectionFailed, "signed upload request failed", err)
	}
	if !resp.IsSuccess() {
		kind := errs.FromStatus(resp.StatusCode())
		if kind == errs.KindUnknown {
			kind = errs.KindConnectionFailed
		}
		return "", errs.Wrap(kind, "signed upload rejected", fmt.Errorf("%s: %s", resp.Status(), strings.TrimSpace(resp.String())))
	}

	key := signed.Key
	if key == "" {
		key = req.Path
	}
	return s.client.GetPublicURL(s.container.Name, key), nil
}
