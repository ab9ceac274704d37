// Package store provides adapters for slip storage backends.
package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/MyCarrier-DevOps/goLibMyCarrier/slippy"
	"github.com/samber/lo"

	"github.com/MyCarrier-DevOps/release-tagger/internal/domain"
)

// SlipLookup is the part of slippy.SlipStore the adapter needs.
type SlipLookup interface {
	FindByCommits(ctx context.Context, repository string, commits []string) (*slippy.Slip, string, error)
	Close() error
}

// ClickHouseAdapter wraps goLibMyCarrier's SlipStore to implement domain.SlipFinder.
// This adapter translates between the external library types and our domain types.
type ClickHouseAdapter struct {
	store SlipLookup
}

// NewClickHouseAdapter creates a new adapter wrapping the given store.
func NewClickHouseAdapter(store SlipLookup) *ClickHouseAdapter {
	return &ClickHouseAdapter{
		store: store,
	}
}

// FindByCommits searches for a slip matching any of the given commits.
// Blank and duplicate commits are dropped before the query; an empty list
// returns no slip without touching the store. A slip without a correlation ID
// counts as not found.
func (a *ClickHouseAdapter) FindByCommits(
	ctx context.Context,
	repository string,
	commits []string,
) (*domain.Slip, string, error) {
	commits = lo.Uniq(lo.Compact(lo.Map(commits, func(c string, _ int) string {
		return strings.TrimSpace(c)
	})))
	if len(commits) == 0 {
		return nil, "", nil
	}

	slip, matchedCommit, err := a.store.FindByCommits(ctx, repository, commits)
	if err != nil {
		return nil, "", fmt.Errorf("slip store query for %s failed: %w", repository, err)
	}

	if slip == nil || slip.CorrelationID == "" {
		return nil, "", nil
	}

	return &domain.Slip{
		CorrelationID: slip.CorrelationID,
	}, matchedCommit, nil
}

// Close releases any resources held by the store.
func (a *ClickHouseAdapter) Close() error {
	return a.store.Close()
}
