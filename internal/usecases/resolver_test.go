package usecases

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MyCarrier-DevOps/release-tagger/internal/domain"
)

// mockLocalGitRepository implements domain.LocalGitRepository for testing.
type mockLocalGitRepository struct {
	commits     []string
	commitsErr  error
	depthAsked  int
	closeCalled bool
}

func (m *mockLocalGitRepository) GetGitContext(_ context.Context) (*domain.GitContext, error) {
	return &domain.GitContext{}, nil
}

func (m *mockLocalGitRepository) GetCommitAncestry(_ context.Context, depth int) ([]string, error) {
	m.depthAsked = depth
	if m.commitsErr != nil {
		return nil, m.commitsErr
	}
	return m.commits, nil
}

func (m *mockLocalGitRepository) Close() error {
	m.closeCalled = true
	return nil
}

// mockSlipFinder implements domain.SlipFinder for testing.
type mockSlipFinder struct {
	slip          *domain.Slip
	matchedCommit string
	err           error
	repository    string
	commits       []string
}

func (m *mockSlipFinder) FindByCommits(_ context.Context, repository string, commits []string) (*domain.Slip, string, error) {
	m.repository = repository
	m.commits = commits
	return m.slip, m.matchedCommit, m.err
}

func (m *mockSlipFinder) Close() error { return nil }

func TestSlipResolver_Correlate(t *testing.T) {
	tests := []struct {
		name       string
		depth      int
		git        *mockLocalGitRepository
		finder     *mockSlipFinder
		wantID     string
		wantDepth  int
		wantErr    error
		wantErrMsg string
	}{
		{
			name:  "slip found in ancestry",
			depth: 10,
			git: &mockLocalGitRepository{
				commits: []string{"abc123def456", "def456ghi789"},
			},
			finder: &mockSlipFinder{
				slip:          &domain.Slip{CorrelationID: "corr-1"},
				matchedCommit: "def456ghi789",
			},
			wantID:    "corr-1",
			wantDepth: 10,
		},
		{
			name:  "default depth when not specified",
			depth: 0,
			git: &mockLocalGitRepository{
				commits: []string{"abc123"},
			},
			finder: &mockSlipFinder{
				slip:          &domain.Slip{CorrelationID: "corr-2"},
				matchedCommit: "abc123",
			},
			wantID:    "corr-2",
			wantDepth: domain.DefaultAncestryDepth,
		},
		{
			name:  "no slip found",
			depth: 5,
			git: &mockLocalGitRepository{
				commits: []string{"abc123"},
			},
			finder:     &mockSlipFinder{},
			wantDepth:  5,
			wantErr:    domain.ErrNoAncestorSlip,
			wantErrMsg: "searched 1 commits from abc123",
		},
		{
			name:  "ancestry error",
			depth: 5,
			git: &mockLocalGitRepository{
				commitsErr: errors.New("object not found"),
			},
			finder:     &mockSlipFinder{},
			wantDepth:  5,
			wantErrMsg: "failed to get commit ancestry",
		},
		{
			name:      "empty ancestry",
			depth:     5,
			git:       &mockLocalGitRepository{},
			finder:    &mockSlipFinder{},
			wantDepth: 5,
			wantErr:   domain.ErrEmptyAncestry,
		},
		{
			name:  "store error",
			depth: 5,
			git: &mockLocalGitRepository{
				commits: []string{"abc123"},
			},
			finder: &mockSlipFinder{
				err: errors.New("connection refused"),
			},
			wantDepth:  5,
			wantErrMsg: "failed to find slip by commits",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resolver := NewSlipResolver(tt.git, tt.finder, &mockLogger{}, tt.depth)

			id, err := resolver.Correlate(context.Background(), "owner/repo")

			assert.Equal(t, tt.wantDepth, tt.git.depthAsked)
			if tt.wantErr != nil || tt.wantErrMsg != "" {
				require.Error(t, err)
				if tt.wantErr != nil {
					assert.ErrorIs(t, err, tt.wantErr)
				}
				if tt.wantErrMsg != "" {
					assert.Contains(t, err.Error(), tt.wantErrMsg)
				}
				assert.Empty(t, id)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantID, id)
			assert.Equal(t, "owner/repo", tt.finder.repository)
			assert.Equal(t, tt.git.commits, tt.finder.commits)
		})
	}
}
