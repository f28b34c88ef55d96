package upload

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"godsendjoseph.dev/gaushala-api/internal/errs"
	"godsendjoseph.dev/gaushala-api/internal/storage"
)

// ProvisionReport describes what one Ensure call changed.
type ProvisionReport struct {
	Created  bool     `json:"created"`
	Updated  bool     `json:"updated"`
	Warnings []string `json:"warnings"`
}

// Provisioner makes sure the container and its access policies exist.
// Remote state is queried on every call and nothing is cached.
type Provisioner struct {
	client storage.Client
	logger *zap.SugaredLogger
}

func NewProvisioner(client storage.Client, logger *zap.SugaredLogger) *Provisioner {
	return &Provisioner{client: client, logger: logger}
}

// Ensure creates want if absent and converges its settings otherwise, then
// drops and recreates the default policies. Only a failure to list or create
// the container is returned; update and policy failures become warnings.
func (p *Provisioner) Ensure(ctx context.Context, want storage.Container) (*ProvisionReport, error) {
	report := &ProvisionReport{Warnings: []string{}}

	containers, err := p.client.ListContainers(ctx)
	if err != nil {
		return report, &ProvisionError{Container: want.Name, Err: err}
	}

	var existing *storage.Container
	for i := range containers {
		if containers[i].Name == want.Name {
			existing = &containers[i]
			break
		}
	}

	switch {
	case existing == nil:
		err := p.client.CreateContainer(ctx, want)
		if err != nil && !errs.IsAlreadyExists(err) {
			return report, &ProvisionError{Container: want.Name, Err: err}
		}
		report.Created = err == nil
		if report.Created {
			p.logger.Infow("storage container created", "container", want.Name, "public", want.IsPublic)
		}
	case !existing.SameConfig(want):
		err := p.client.UpdateContainer(ctx, want)
		switch {
		case errs.IsUnsupported(err):
			// the backend cannot report or change these settings
		case err != nil:
			report.Warnings = append(report.Warnings, fmt.Sprintf("update container %q: %v", want.Name, err))
		default:
			report.Updated = true
			p.logger.Infow("storage container updated", "container", want.Name)
		}
	}

	for _, policy := range storage.DefaultPolicies(want.Name) {
		if err := p.client.ReassertPolicy(ctx, policy); err != nil {
			report.Warnings = append(report.Warnings, fmt.Sprintf("policy %q: %v", policy.Name, err))
		}
	}

	for _, warning := range report.Warnings {
		p.logger.Warnw("storage provisioning warning", "container", want.Name, "warning", warning)
	}

	return report, nil
}
