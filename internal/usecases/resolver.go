// Package usecases contains the application business logic.
// This package orchestrates domain entities and interfaces to fulfill use cases.
package usecases

import (
	"context"
	"fmt"

	"github.com/MyCarrier-DevOps/release-tagger/internal/domain"
)

// Logger defines the logging interface required by the use cases.
// This abstracts the logger dependency to avoid coupling to a specific implementation.
type Logger interface {
	Info(ctx context.Context, msg string, fields map[string]interface{})
	Debug(ctx context.Context, msg string, fields map[string]interface{})
	Warn(ctx context.Context, msg string, fields map[string]interface{})
	Error(ctx context.Context, msg string, err error, fields map[string]interface{})
}

// SlipResolver finds the routing slip whose commit appears in the local
// repository's ancestry and returns its correlation ID.
type SlipResolver struct {
	gitRepo domain.LocalGitRepository
	finder  domain.SlipFinder
	logger  Logger
	depth   int
}

// NewSlipResolver creates a new SlipResolver with the given dependencies.
// A depth of zero or less uses domain.DefaultAncestryDepth.
func NewSlipResolver(
	gitRepo domain.LocalGitRepository,
	finder domain.SlipFinder,
	log Logger,
	depth int,
) *SlipResolver {
	if depth <= 0 {
		depth = domain.DefaultAncestryDepth
	}
	return &SlipResolver{
		gitRepo: gitRepo,
		finder:  finder,
		logger:  log,
		depth:   depth,
	}
}

// Correlate walks the commit history from HEAD and queries the slip store
// for a slip matching any commit. Returns domain.ErrNoAncestorSlip when none matches.
func (r *SlipResolver) Correlate(ctx context.Context, repository string) (string, error) {
	commits, err := r.gitRepo.GetCommitAncestry(ctx, r.depth)
	if err != nil {
		return "", fmt.Errorf("failed to get commit ancestry: %w", err)
	}
	if len(commits) == 0 {
		return "", domain.ErrEmptyAncestry
	}

	r.logger.Debug(ctx, "retrieved commit ancestry", map[string]interface{}{
		"repository":    repository,
		"commits_count": len(commits),
		"head":          commits[0],
	})

	slip, matchedCommit, err := r.finder.FindByCommits(ctx, repository, commits)
	if err != nil {
		return "", fmt.Errorf("failed to find slip by commits: %w", err)
	}

	if slip == nil {
		return "", fmt.Errorf(
			"%w: searched %d commits from %s",
			domain.ErrNoAncestorSlip,
			len(commits),
			commits[0],
		)
	}

	r.logger.Info(ctx, "slip resolved", map[string]interface{}{
		"correlation_id": slip.CorrelationID,
		"matched_commit": matchedCommit,
		"repository":     repository,
	})

	return slip.CorrelationID, nil
}
