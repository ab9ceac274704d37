// Package git provides adapters for interacting with local Git repositories.
// This package implements the domain.LocalGitRepository interface using go-git/v5.
package git

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"github.com/MyCarrier-DevOps/release-tagger/internal/domain"
)

// originRemote is the remote whose URL names the repository.
const originRemote = "origin"

// Logger defines the logging interface for the git adapter.
// This interface enables dependency injection and testability.
type Logger interface {
	Debug(ctx context.Context, msg string, fields map[string]interface{})
	Warn(ctx context.Context, msg string, fields map[string]interface{})
}

// GoGitRepository implements domain.LocalGitRepository using go-git/v5.
type GoGitRepository struct {
	repo    *git.Repository
	path    string
	rootDir string
	logger  Logger
}

// NewGoGitRepository opens the repository containing path.
// Parent directories are searched so any path inside the working tree works.
// Returns domain.ErrRepositoryNotFound if no repository is found.
func NewGoGitRepository(path string, log Logger) (*GoGitRepository, error) {
	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrRepositoryNotFound, path)
	}

	rootDir, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path %s: %w", path, err)
	}
	if wt, wtErr := repo.Worktree(); wtErr == nil {
		rootDir = wt.Filesystem.Root()
	}

	return &GoGitRepository{
		repo:    repo,
		path:    path,
		rootDir: rootDir,
		logger:  log,
	}, nil
}

// GetGitContext extracts HEAD, the branch reference and the origin URL.
// A detached HEAD leaves Ref empty. A missing origin leaves RemoteURL empty;
// the caller falls back to the directory name in that case.
func (r *GoGitRepository) GetGitContext(ctx context.Context) (*domain.GitContext, error) {
	head, err := r.repo.Head()
	if err != nil {
		return nil, fmt.Errorf("failed to get HEAD: %w", err)
	}

	gitCtx := &domain.GitContext{
		HeadSHA:    head.Hash().String(),
		RootDir:    r.rootDir,
		IsDetached: !head.Name().IsBranch(),
	}

	if head.Name().IsBranch() {
		gitCtx.Ref = head.Name().String()
	} else {
		r.logger.Warn(ctx, "HEAD is detached; no release channel will be derived", map[string]interface{}{
			"head_sha": gitCtx.HeadSHA,
			"path":     r.path,
		})
	}

	gitCtx.RemoteURL = r.originURL(ctx)

	r.logger.Debug(ctx, "extracted git context", map[string]interface{}{
		"head_sha":    gitCtx.HeadSHA,
		"ref":         gitCtx.Ref,
		"remote_url":  gitCtx.RemoteURL,
		"root_dir":    gitCtx.RootDir,
		"is_detached": gitCtx.IsDetached,
	})

	return gitCtx, nil
}

// originURL returns the first URL of the origin remote, or "" when there is none.
func (r *GoGitRepository) originURL(ctx context.Context) string {
	remote, err := r.repo.Remote(originRemote)
	if err != nil {
		r.logger.Debug(ctx, "no origin remote configured", map[string]interface{}{
			"error": err.Error(),
		})
		return ""
	}

	urls := remote.Config().URLs
	if len(urls) == 0 {
		return ""
	}
	return urls[0]
}

// GetCommitAncestry follows first parents from HEAD, returning commit SHAs.
// Commits reached only through the second parent of a merge are skipped, so a
// default branch merged into a feature branch does not contribute its history.
// Returns commits in order from newest (HEAD) to oldest, up to depth commits.
func (r *GoGitRepository) GetCommitAncestry(ctx context.Context, depth int) ([]string, error) {
	if depth <= 0 {
		depth = domain.DefaultAncestryDepth
	}

	head, err := r.repo.Head()
	if err != nil {
		return nil, fmt.Errorf("failed to get HEAD: %w", err)
	}

	commit, err := r.repo.CommitObject(head.Hash())
	if err != nil {
		return nil, fmt.Errorf("failed to get commit object for HEAD: %w", err)
	}

	commits := make([]string, 0, depth)
	for commit != nil && len(commits) < depth {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		commits = append(commits, commit.Hash.String())
		if commit.NumParents() == 0 {
			break
		}

		commit, err = commit.Parent(0)
		if err != nil {
			// shallow clones end here
			if errors.Is(err, plumbing.ErrObjectNotFound) {
				break
			}
			return nil, fmt.Errorf("failed to walk commit history: %w", err)
		}
	}

	if len(commits) == 0 {
		return nil, domain.ErrEmptyAncestry
	}

	r.logger.Debug(ctx, "walked commit ancestry", map[string]interface{}{
		"depth_requested": depth,
		"commits_found":   len(commits),
		"head_sha":        commits[0],
		"oldest_sha":      commits[len(commits)-1],
	})

	return commits, nil
}

// Close releases any resources held by the repository.
// For go-git, this is a no-op as the repository doesn't hold persistent resources.
func (r *GoGitRepository) Close() error {
	return nil
}
