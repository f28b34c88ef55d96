package upload

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"godsendjoseph.dev/gaushala-api/internal/storage"
)

const DefaultRemoteTimeout = 60 * time.Second

// Coordinator runs the strategies in order and returns the first success.
// It holds no mutable state and is safe for concurrent use.
type Coordinator struct {
	strategies    []Strategy
	remoteTimeout time.Duration
	logger        *zap.SugaredLogger
	now           func() time.Time
}

// NewCoordinator keeps strategies in the given order. All remote strategies
// of one Store call share a single remoteTimeout deadline.
func NewCoordinator(logger *zap.SugaredLogger, remoteTimeout time.Duration, strategies ...Strategy) *Coordinator {
	if remoteTimeout <= 0 {
		remoteTimeout = DefaultRemoteTimeout
	}
	return &Coordinator{
		strategies:    strategies,
		remoteTimeout: remoteTimeout,
		logger:        logger,
		now:           time.Now,
	}
}

// Store returns a Result in every case. The error is non-nil only when the
// request is invalid or when every strategy failed, in which case it is an
// *AllStrategiesFailedError.
func (c *Coordinator) Store(ctx context.Context, req Request) (*Result, error) {
	result := &Result{Diagnostics: []string{}}

	if err := req.Validate(); err != nil {
		result.Diagnostics = append(result.Diagnostics, err.Error())
		return result, err
	}

	req.ContentType = storage.DetectContentType(req.ContentType, req.FileName, req.Body)
	if req.Path == "" {
		req.Path = GeneratePath(req.FileName, req.ContentType, c.now())
	}
	result.Path = req.Path
	result.ContentType = req.ContentType

	var (
		remoteCtx context.Context
		cancel    context.CancelFunc
		failed    []*StrategyError
	)
	defer func() {
		if cancel != nil {
			cancel()
		}
	}()

	for _, strategy := range c.strategies {
		kind := strategy.Kind()
		if req.FilesystemOnly && kind.Remote() {
			continue
		}

		attemptCtx := ctx
		if kind.Remote() {
			if remoteCtx == nil {
				remoteCtx, cancel = context.WithTimeout(ctx, c.remoteTimeout)
			}
			attemptCtx = remoteCtx
		}

		url, err := strategy.Attempt(attemptCtx, req)
		if err == nil {
			result.Success = true
			result.PublicURL = url
			result.StrategyUsed = kind
			c.logger.Infow("upload stored", "strategy", kind, "path", req.Path, "url", url, "failed_attempts", len(failed))
			return result, nil
		}

		strategyErr := &StrategyError{Strategy: kind, Err: err}
		failed = append(failed, strategyErr)
		result.Diagnostics = append(result.Diagnostics, strategyErr.Error())
		c.logger.Warnw("upload strategy failed", "strategy", kind, "path", req.Path, "error", err)

		if errors.Is(ctx.Err(), context.Canceled) {
			break
		}
	}

	return result, &AllStrategiesFailedError{Attempts: failed}
}
