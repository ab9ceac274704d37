package usecases

import (
	"context"
	"fmt"

	"github.com/MyCarrier-DevOps/release-tagger/internal/domain"
)

// ImageReleaser computes the release plan for the captured environment, builds
// one image per tag and pushes them when running in CI.
//
// Every step is a blocking call and the first failure ends the run. Images
// built before a failure are left in place.
type ImageReleaser struct {
	builder     domain.ImageBuilder
	parser      domain.ReferenceParser
	output      domain.OutputWriter
	logger      Logger
	credentials *domain.RegistryCredentials
	correlator  domain.Correlator
}

// ReleaserOption configures optional collaborators of an ImageReleaser.
type ReleaserOption func(*ImageReleaser)

// WithCredentials enables a registry login before the first push.
func WithCredentials(creds *domain.RegistryCredentials) ReleaserOption {
	return func(r *ImageReleaser) {
		r.credentials = creds
	}
}

// WithCorrelator labels images with the correlation ID of the commit's routing slip.
func WithCorrelator(c domain.Correlator) ReleaserOption {
	return func(r *ImageReleaser) {
		r.correlator = c
	}
}

// NewImageReleaser creates a new ImageReleaser with the given dependencies.
func NewImageReleaser(
	builder domain.ImageBuilder,
	parser domain.ReferenceParser,
	output domain.OutputWriter,
	log Logger,
	opts ...ReleaserOption,
) *ImageReleaser {
	r := &ImageReleaser{
		builder: builder,
		parser:  parser,
		output:  output,
		logger:  log,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Release runs the release for env. The returned result is non-nil whenever a
// plan was computed, including on build or push failure, and lists what
// completed before the failure.
func (r *ImageReleaser) Release(
	ctx context.Context,
	env domain.ReleaseEnv,
	input domain.ReleaseInput,
) (*domain.ReleaseResult, error) {
	plan, err := domain.PlanRelease(env, input)
	if err != nil {
		return nil, fmt.Errorf("failed to plan release: %w", err)
	}

	registry, err := r.validateReferences(plan.References)
	if err != nil {
		return nil, err
	}

	if plan.Push && !plan.Identity.Hosted {
		r.logger.Warn(ctx, "pushing a local repository identity; images go to the default registry", map[string]interface{}{
			"image":    plan.ImageName,
			"registry": registry,
		})
	}

	r.correlate(ctx, plan)

	r.logger.Info(ctx, "resolved release plan", map[string]interface{}{
		"image":    plan.ImageName,
		"channel":  plan.Channel.String(),
		"tags":     []string(plan.Tags),
		"push":     plan.Push,
		"registry": registry,
	})

	if err := r.output.WritePlan(plan); err != nil {
		return nil, fmt.Errorf("output error: %w", err)
	}

	result := &domain.ReleaseResult{Plan: plan}
	if input.DryRun {
		r.logger.Info(ctx, "dry run; skipping build and push", nil)
		return result, nil
	}

	if err := r.buildAll(ctx, plan, input, result); err != nil {
		return result, err
	}

	if !plan.Push {
		r.logger.Info(ctx, "not running in CI; push skipped", map[string]interface{}{
			"built": len(result.BuiltTags),
		})
		if err := r.output.WriteLocalOnly(); err != nil {
			return result, fmt.Errorf("output error: %w", err)
		}
		return result, nil
	}

	if err := r.login(ctx, registry); err != nil {
		return result, err
	}

	if err := r.pushAll(ctx, result); err != nil {
		return result, err
	}

	r.logger.Info(ctx, "release complete", map[string]interface{}{
		"image":  plan.ImageName,
		"built":  len(result.BuiltTags),
		"pushed": len(result.PushedTags),
	})

	return result, nil
}

// validateReferences checks every reference before any side effect and
// returns the registry host they share.
func (r *ImageReleaser) validateReferences(refs []string) (string, error) {
	var registry string
	for _, ref := range refs {
		host, err := r.parser.Registry(ref)
		if err != nil {
			return "", fmt.Errorf("%w: %s: %w", domain.ErrInvalidImageReference, ref, err)
		}
		registry = host
	}
	return registry, nil
}

// correlate attaches the routing slip correlation ID as a label.
// Lookup failures never fail the release.
func (r *ImageReleaser) correlate(ctx context.Context, plan *domain.ReleasePlan) {
	if r.correlator == nil {
		return
	}
	if !plan.Identity.Hosted {
		r.logger.Debug(ctx, "skipping slip lookup for local repository identity", map[string]interface{}{
			"repository": plan.Identity.Name,
		})
		return
	}

	id, err := r.correlator.Correlate(ctx, plan.Identity.Name)
	if err != nil {
		r.logger.Warn(ctx, "could not resolve routing slip; continuing without correlation label", map[string]interface{}{
			"repository": plan.Identity.Name,
			"error":      err.Error(),
		})
		return
	}
	plan.Labels[domain.LabelCorrelationID] = id
}

func (r *ImageReleaser) buildAll(
	ctx context.Context,
	plan *domain.ReleasePlan,
	input domain.ReleaseInput,
	result *domain.ReleaseResult,
) error {
	for _, ref := range plan.References {
		r.logger.Debug(ctx, "building image", map[string]interface{}{
			"reference":  ref,
			"dockerfile": input.Dockerfile,
		})

		err := r.builder.Build(ctx, domain.BuildSpec{
			Dockerfile: input.Dockerfile,
			ContextDir: input.ContextDir,
			Reference:  ref,
			Labels:     plan.Labels,
		})
		if err != nil {
			r.logger.Error(ctx, "image build failed", err, map[string]interface{}{
				"reference": ref,
				"built":     len(result.BuiltTags),
			})
			return fmt.Errorf("%w: %s: %w", domain.ErrBuildFailed, ref, err)
		}

		result.BuiltTags = append(result.BuiltTags, ref)
		if err := r.output.WriteBuilt(ref); err != nil {
			return fmt.Errorf("output error: %w", err)
		}
	}
	return nil
}

func (r *ImageReleaser) login(ctx context.Context, registry string) error {
	if r.credentials.Empty() {
		r.logger.Debug(ctx, "no registry credentials configured; relying on existing docker auth", map[string]interface{}{
			"registry": registry,
		})
		return nil
	}

	if err := r.builder.Login(ctx, registry, *r.credentials); err != nil {
		r.logger.Error(ctx, "registry login failed", err, map[string]interface{}{
			"registry": registry,
			"username": r.credentials.Username,
		})
		return fmt.Errorf("%w: %s: %w", domain.ErrLoginFailed, registry, err)
	}
	return nil
}

func (r *ImageReleaser) pushAll(ctx context.Context, result *domain.ReleaseResult) error {
	for _, ref := range result.BuiltTags {
		if err := r.builder.Push(ctx, ref); err != nil {
			r.logger.Error(ctx, "image push failed", err, map[string]interface{}{
				"reference": ref,
				"pushed":    len(result.PushedTags),
			})
			return fmt.Errorf("%w: %s: %w", domain.ErrPushFailed, ref, err)
		}

		result.PushedTags = append(result.PushedTags, ref)
		if err := r.output.WritePushed(ref); err != nil {
			return fmt.Errorf("output error: %w", err)
		}
	}
	return nil
}
