package domain

import (
	"fmt"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/transport"
)

// Branch references that map to a release channel.
const (
	refStable = "refs/heads/stable"
	refMaster = "refs/heads/master"
	refMain   = "refs/heads/main"
)

// hostedHost is the remote host whose repositories publish to the hosted registry.
const hostedHost = "github.com"

// Layouts for the date-derived stable tags.
const (
	stableDayLayout  = "20060102"
	stableHourLayout = "2006010215"
)

// ClassifyChannel maps a branch reference to its release channel.
// Unmatched refs, including the empty ref of a detached HEAD, yield ChannelNone.
func ClassifyChannel(ref string) Channel {
	switch ref {
	case refStable:
		return ChannelStable
	case refMaster, refMain:
		return ChannelLatest
	default:
		return ChannelNone
	}
}

// ResolveIdentity derives the repository identity.
// An explicit repository (GITHUB_REPOSITORY) wins. Otherwise a GitHub remote is
// reduced to owner/repo, and anything else falls back to the directory name.
func ResolveIdentity(repository, remoteURL, dirName string) (RepositoryIdentity, error) {
	if repo := strings.Trim(strings.TrimSpace(repository), "/"); repo != "" {
		return RepositoryIdentity{Name: repo, Hosted: true}, nil
	}

	if name, ok := hostedRepoName(remoteURL); ok {
		return RepositoryIdentity{Name: name, Hosted: true}, nil
	}

	dirName = strings.TrimSpace(dirName)
	if dirName == "" || dirName == "." || dirName == "/" {
		return RepositoryIdentity{}, ErrEmptyRepositoryIdentity
	}
	return RepositoryIdentity{Name: dirName}, nil
}

// hostedRepoName reduces a GitHub remote URL to owner/repo. Both URL and
// scp-style remotes are accepted; credentials, port and a .git suffix are
// dropped. It reports false for any other host, local paths and URLs it
// cannot parse.
func hostedRepoName(remoteURL string) (string, bool) {
	remoteURL = strings.TrimSpace(remoteURL)
	if remoteURL == "" {
		return "", false
	}

	endpoint, err := transport.NewEndpoint(remoteURL)
	if err != nil || endpoint.Protocol == "file" {
		return "", false
	}
	if !strings.EqualFold(endpoint.Host, hostedHost) {
		return "", false
	}

	name := strings.Trim(endpoint.Path, "/")
	name = strings.TrimSuffix(name, ".git")
	owner, repo, ok := strings.Cut(name, "/")
	if !ok || owner == "" || repo == "" {
		return "", false
	}
	return name, true
}

// ImageName joins the registry namespace, identity and suffix.
// Registries only accept lowercase repository names.
func ImageName(identity RepositoryIdentity, suffix string) string {
	return strings.ToLower(identity.Registry() + "/" + identity.Name + suffix)
}

// BuildTagSet returns the tags for one invocation in build order:
// date-derived stable tags, then the commit tag, then the channel tag.
func BuildTagSet(channel Channel, commitID string, env ReleaseEnv) TagSet {
	tags := make(TagSet, 0, 4)

	if channel == ChannelStable {
		now := env.Now.UTC()
		tags = append(tags,
			"stable-"+now.Format(stableDayLayout),
			"stable-"+now.Format(stableHourLayout),
		)
	}

	tags = append(tags, commitID)

	if channel != ChannelNone {
		tags = append(tags, channel.String())
	}
	return tags
}

// PlanRelease resolves the image name, channel, tags and labels for env.
// It performs no I/O and is deterministic for identical inputs.
func PlanRelease(env ReleaseEnv, input ReleaseInput) (*ReleasePlan, error) {
	commitID := strings.TrimSpace(env.CommitID)
	if commitID == "" {
		return nil, ErrEmptyCommitID
	}

	identity, err := ResolveIdentity(env.Repository, env.RemoteURL, env.DirName)
	if err != nil {
		return nil, err
	}

	channel := ClassifyChannel(env.Ref)
	imageName := ImageName(identity, input.ImageSuffix)
	tags := BuildTagSet(channel, commitID, env)

	refs := make([]string, 0, len(tags))
	for _, tag := range tags {
		refs = append(refs, fmt.Sprintf("%s:%s", imageName, tag))
	}

	labels := map[string]string{
		LabelRevision: commitID,
	}
	if identity.Hosted {
		labels[LabelSource] = "https://" + hostedHost + "/" + identity.Name
	}

	return &ReleasePlan{
		Identity:   identity,
		ImageName:  imageName,
		Channel:    channel,
		Tags:       tags,
		References: refs,
		Labels:     labels,
		Push:       env.CI,
	}, nil
}
