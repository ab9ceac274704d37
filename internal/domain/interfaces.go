// Package domain defines the core business entities and interfaces for release-tagger.
// This package contains no external dependencies and represents the innermost layer
// of the CLEAN architecture.
package domain

import (
	"context"
	"errors"
)

// Domain errors for checkout inspection, naming and image operations.
var (
	// ErrRepositoryNotFound indicates the specified path is not a valid Git repository.
	ErrRepositoryNotFound = errors.New("git repository not found at specified path")

	// ErrNoAncestorSlip indicates no slip was found in the commit ancestry.
	ErrNoAncestorSlip = errors.New("no slip found in commit ancestry")

	// ErrEmptyAncestry indicates the commit ancestry walk returned no commits.
	ErrEmptyAncestry = errors.New("commit ancestry is empty")

	// ErrCommitIDUnavailable indicates the commit identifier file is missing or unreadable.
	ErrCommitIDUnavailable = errors.New("commit identifier unavailable")

	// ErrEmptyCommitID indicates the commit identifier file has no content.
	ErrEmptyCommitID = errors.New("commit identifier is empty")

	// ErrEmptyRepositoryIdentity indicates neither a remote nor a directory name produced an identity.
	ErrEmptyRepositoryIdentity = errors.New("repository identity is empty")

	// ErrInvalidImageReference indicates an image:tag reference is not a valid OCI reference.
	ErrInvalidImageReference = errors.New("invalid image reference")

	// ErrBuildFailed indicates an image build process failed.
	ErrBuildFailed = errors.New("image build failed")

	// ErrPushFailed indicates an image push process failed.
	ErrPushFailed = errors.New("image push failed")

	// ErrLoginFailed indicates registry authentication failed.
	ErrLoginFailed = errors.New("registry login failed")
)

// LocalGitRepository provides checkout state and commit ancestry from a local repository.
type LocalGitRepository interface {
	// GetGitContext extracts HEAD, the branch ref, the origin URL and the root directory.
	// A missing origin remote is not an error; RemoteURL is left empty.
	GetGitContext(ctx context.Context) (*GitContext, error)

	// GetCommitAncestry walks the commit graph from HEAD, returning commit SHAs.
	// Returns commits in order from newest (HEAD) to oldest, up to depth commits.
	GetCommitAncestry(ctx context.Context, depth int) ([]string, error)

	// Close releases any resources held by the repository.
	Close() error
}

// CommitReader reads the commit identifier used as the immutable build tag.
type CommitReader interface {
	// ReadCommitID returns ErrCommitIDUnavailable or ErrEmptyCommitID on failure.
	ReadCommitID(ctx context.Context) (string, error)
}

// ImageBuilder builds, pushes and authenticates container images.
type ImageBuilder interface {
	Build(ctx context.Context, spec BuildSpec) error
	Push(ctx context.Context, reference string) error
	Login(ctx context.Context, registry string, creds RegistryCredentials) error
}

// ReferenceParser validates image references.
type ReferenceParser interface {
	// Registry validates reference and returns the registry host it points at.
	Registry(reference string) (string, error)
}

// Correlator links a release to the routing slip of the checked out commit.
type Correlator interface {
	// Correlate returns the correlation ID of the slip for repository (owner/repo).
	Correlate(ctx context.Context, repository string) (string, error)
}

// SlipFinder queries the slip store to find slips by commit ancestry.
type SlipFinder interface {
	// FindByCommits searches for a slip matching any of the given commits.
	// Returns (nil, "", nil) if no matching slip is found.
	FindByCommits(ctx context.Context, repository string, commits []string) (*Slip, string, error)

	// Close releases any resources held by the finder.
	Close() error
}

// OutputWriter reports release progress to the user.
type OutputWriter interface {
	WritePlan(plan *ReleasePlan) error
	WriteBuilt(reference string) error
	WritePushed(reference string) error
	WriteLocalOnly() error
}

// Releaser runs a release for the captured environment.
type Releaser interface {
	Release(ctx context.Context, env ReleaseEnv, input ReleaseInput) (*ReleaseResult, error)
}
