// Package domain defines the core business entities and interfaces for release-tagger.
package domain

import "time"

// Channel is the release track an invocation publishes to.
// The zero value is ChannelNone.
type Channel int

const (
	// ChannelNone means the ref is not a release branch; no channel tag is built.
	ChannelNone Channel = iota

	// ChannelLatest is the track for the default branch (master or main).
	ChannelLatest

	// ChannelStable is the track for the stable branch.
	ChannelStable
)

// String returns the channel tag, or "" for ChannelNone.
func (c Channel) String() string {
	switch c {
	case ChannelLatest:
		return "latest"
	case ChannelStable:
		return "stable"
	default:
		return ""
	}
}

// Registry namespaces used as the image name prefix.
const (
	// HostedRegistry is the registry for identities derived from a GitHub remote.
	HostedRegistry = "ghcr.io"

	// LocalNamespace marks images whose identity came from the checkout directory.
	LocalNamespace = "local"
)

// Image labels attached to every build.
const (
	LabelRevision      = "org.opencontainers.image.revision"
	LabelSource        = "org.opencontainers.image.source"
	LabelCorrelationID = "io.mycarrier.slip.correlation-id"
)

// DefaultAncestryDepth is the default number of commits walked when looking up a routing slip.
const DefaultAncestryDepth = 25

// GitContext contains the state derived from the local checkout.
// This struct is populated by LocalGitRepository.GetGitContext().
type GitContext struct {
	// HeadSHA is the full 40-character commit SHA of HEAD.
	HeadSHA string

	// Ref is the full branch reference, e.g. refs/heads/main.
	// Empty when HEAD is detached.
	Ref string

	// RemoteURL is the raw URL of the 'origin' remote, or empty if none is configured.
	RemoteURL string

	// RootDir is the absolute path of the working tree.
	RootDir string

	// IsDetached indicates HEAD is not on a branch.
	IsDetached bool
}

// ReleaseEnv is the ambient state a release is computed from.
// It is captured once at start so the naming rules never read the process
// environment or the checkout directly.
type ReleaseEnv struct {
	// Ref is the branch reference used for channel classification.
	Ref string

	// Repository overrides identity resolution when non-empty (owner/repo).
	Repository string

	// RemoteURL is the origin remote URL, possibly empty.
	RemoteURL string

	// DirName is the base name of the checkout directory.
	DirName string

	// CI is true when the run should push to the registry.
	CI bool

	// CommitID is the commit identifier tag.
	CommitID string

	// Now is the build time used for date-derived tags.
	Now time.Time
}

// RepositoryIdentity names the source repository.
type RepositoryIdentity struct {
	// Name is owner/repo for hosted identities or the directory name otherwise.
	Name string

	// Hosted is true when Name was derived from a GitHub remote or GITHUB_REPOSITORY.
	Hosted bool
}

// Registry returns the registry namespace implied by the identity.
func (r RepositoryIdentity) Registry() string {
	if r.Hosted {
		return HostedRegistry
	}
	return LocalNamespace
}

// TagSet is the ordered list of tags built for one invocation.
type TagSet []string

// ReleaseInput contains the per-invocation parameters of a release.
type ReleaseInput struct {
	// Dockerfile is the path of the Dockerfile to build.
	Dockerfile string

	// ImageSuffix is appended verbatim to the image name.
	ImageSuffix string

	// ContextDir is the docker build context.
	ContextDir string

	// DryRun computes the plan without building or pushing.
	DryRun bool
}

// ReleasePlan is the fully resolved set of images for one invocation.
type ReleasePlan struct {
	Identity  RepositoryIdentity
	ImageName string
	Channel   Channel
	Tags      TagSet

	// References are ImageName:tag for every tag, in build order.
	References []string

	// Labels are attached to every build.
	Labels map[string]string

	Push bool
}

// ReleaseResult reports the image references built and pushed, in execution order.
type ReleaseResult struct {
	Plan       *ReleasePlan
	BuiltTags  []string
	PushedTags []string
}

// BuildSpec describes a single image build.
type BuildSpec struct {
	Dockerfile string
	ContextDir string
	Reference  string
	Labels     map[string]string
}

// RegistryCredentials authenticate pushes to a registry.
type RegistryCredentials struct {
	Username string
	Password string
}

// Empty reports whether no usable credentials are present.
func (c *RegistryCredentials) Empty() bool {
	return c == nil || c.Username == "" || c.Password == ""
}

// Slip represents a routing slip found in the store.
type Slip struct {
	// CorrelationID is the unique identifier for the slip.
	CorrelationID string
}
