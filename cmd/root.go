// Package cmd provides the CLI commands for release-tagger.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/MyCarrier-DevOps/release-tagger/internal/domain"
)

// defaultDockerfile and defaultCommitFile are resolved against the repository path.
const (
	defaultDockerfile = "Dockerfile"
	defaultCommitFile = "COMMIT_ID"
)

// Logger defines the logging interface used by the command.
type Logger interface {
	Info(ctx context.Context, msg string, fields map[string]interface{})
	Debug(ctx context.Context, msg string, fields map[string]interface{})
	Warn(ctx context.Context, msg string, fields map[string]interface{})
	Error(ctx context.Context, msg string, err error, fields map[string]interface{})
}

// Dependencies holds all injectable dependencies for the command.
// This enables testing by allowing mock implementations to be injected.
type Dependencies struct {
	// LoggerFactory creates a logger instance.
	LoggerFactory func() Logger

	// ConfigLoader loads application configuration.
	ConfigLoader func() (*AppConfig, error)

	// GitRepoFactory creates a LocalGitRepository for the given path.
	GitRepoFactory func(path string, log Logger) (domain.LocalGitRepository, error)

	// CommitReaderFactory creates a CommitReader for the commit identifier file at path.
	CommitReaderFactory func(path string) domain.CommitReader

	// SlipFinderFactory creates a SlipFinder using the given config.
	// Only called when slip correlation is enabled.
	SlipFinderFactory func(cfg *AppConfig, log Logger) (domain.SlipFinder, error)

	// CorrelatorFactory creates a Correlator over the checkout and slip finder.
	CorrelatorFactory func(
		gitRepo domain.LocalGitRepository,
		finder domain.SlipFinder,
		log Logger,
	) domain.Correlator

	// ReleaserFactory creates a Releaser. correlator may be nil.
	ReleaserFactory func(
		cfg *AppConfig,
		correlator domain.Correlator,
		out domain.OutputWriter,
		log Logger,
	) domain.Releaser

	// OutputWriterFactory creates an OutputWriter.
	OutputWriterFactory func() domain.OutputWriter

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time

	// Stdout is the writer for standard output (for progress lines).
	Stdout io.Writer

	// Stderr is the writer for standard error (for warnings/errors).
	Stderr io.Writer
}

// AppConfig holds application configuration loaded by ConfigLoader.
type AppConfig struct {
	// GitHubRef overrides the ref derived from the checkout.
	GitHubRef string

	// GitHubRepository overrides the repository identity derived from the checkout.
	GitHubRepository string

	// CI enables pushing.
	CI bool

	// CommitIDFile is the commit identifier file from the environment.
	CommitIDFile string

	// Credentials are used for registry login; nil skips login.
	Credentials *domain.RegistryCredentials

	// SlippyEnabled turns on routing slip correlation.
	SlippyEnabled bool

	// ClickHouseConfig is passed to the SlipFinderFactory.
	ClickHouseConfig any

	// PipelineConfig is passed to the SlipFinderFactory.
	PipelineConfig any

	// Database is the database name.
	Database string

	// LogLevel is the log level setting.
	LogLevel string

	// LogAppName is the application name for logging.
	LogAppName string

	// Verbose is set from the --verbose flag after loading.
	Verbose bool
}

// Command-line flags.
var (
	repoPath   string
	commitFile string
	dryRun     bool
	verbose    bool
)

// defaultDeps holds the production dependencies.
// This is set by the production wiring in main or via SetDefaultDependencies.
var defaultDeps *Dependencies

// SetDefaultDependencies sets the default dependencies for production use.
// This should be called from main() before Execute().
func SetDefaultDependencies(deps *Dependencies) {
	defaultDeps = deps
}

// NewRootCmd creates the root command for release-tagger.
func NewRootCmd() *cobra.Command {
	return NewRootCmdWithDeps(defaultDeps)
}

// NewRootCmdWithDeps creates the root command with explicit dependencies.
// This is the primary constructor that enables testing via dependency injection.
func NewRootCmdWithDeps(deps *Dependencies) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "release-tagger [dockerfile] [image-suffix]",
		Short: "Build and publish container images with deterministic release tags",
		Long: `release-tagger builds a container image for every tag derived from the
checkout and pushes them when running in CI.

The image is named ghcr.io/<owner>/<repo><suffix> when the repository is
hosted on GitHub, and local/<directory><suffix> otherwise. Every image is
tagged with the commit identifier read from the COMMIT_ID file. Builds of
main or master are also tagged "latest"; builds of stable are tagged
"stable", "stable-YYYYMMDD" and "stable-YYYYMMDDHH".

Images are pushed only when CI=true.

Examples:
  # Build ./Dockerfile for the current checkout
  release-tagger

  # Build a secondary image named <repo>-worker ("--" ends flag parsing)
  release-tagger -- worker.Dockerfile -worker

  # Show the tags without building
  release-tagger --dry-run

  # Build a checkout elsewhere with verbose logging
  release-tagger -C /path/to/repo -v`,
		Args:         cobra.MaximumNArgs(2),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRelease(cmd, args, deps)
		},
	}

	rootCmd.Flags().StringVarP(&repoPath, "repo-path", "C", ".",
		"Repository checkout to release; also the docker build context")
	rootCmd.Flags().StringVar(&commitFile, "commit-file", "",
		"Commit identifier file relative to the repository path (default COMMIT_ID, env COMMIT_ID_FILE)")
	rootCmd.Flags().BoolVar(&dryRun, "dry-run", false,
		"Print the release plan without building or pushing")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false,
		"Enable verbose/debug logging")

	return rootCmd
}

// runRelease executes the release with injected dependencies.
func runRelease(cmd *cobra.Command, args []string, deps *Dependencies) error {
	if deps == nil {
		return errors.New("dependencies not configured")
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	dockerfile := defaultDockerfile
	if len(args) > 0 && args[0] != "" {
		dockerfile = args[0]
	}
	var suffix string
	if len(args) > 1 {
		suffix = args[1]
	}

	stderr := deps.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}

	// Set log level based on verbose flag (best-effort)
	if verbose {
		if err := os.Setenv("LOG_LEVEL", "debug"); err != nil {
			writeWarningf(stderr, "warning: could not set log level: %v\n", err)
		}
	}

	log := deps.LoggerFactory()

	log.Info(ctx, "starting release-tagger", map[string]interface{}{
		"repo_path":    repoPath,
		"dockerfile":   dockerfile,
		"image_suffix": suffix,
		"dry_run":      dryRun,
		"verbose":      verbose,
	})

	cfg, err := deps.ConfigLoader()
	if err != nil {
		log.Error(ctx, "failed to load configuration", err, nil)
		return fmt.Errorf("configuration error: %w", err)
	}
	cfg.Verbose = verbose

	gitRepo, gitCtx := openCheckout(ctx, deps, cfg, log)
	if gitRepo != nil {
		defer func() {
			if closeErr := gitRepo.Close(); closeErr != nil {
				log.Warn(ctx, "failed to close git repository", map[string]interface{}{
					"error": closeErr.Error(),
				})
			}
		}()
	}

	commitPath := resolveCommitFile(cfg)
	commitID, err := deps.CommitReaderFactory(commitPath).ReadCommitID(ctx)
	if err != nil {
		log.Error(ctx, "failed to read commit identifier", err, map[string]interface{}{
			"path": commitPath,
		})
		return err
	}

	var correlator domain.Correlator
	if cfg.SlippyEnabled && gitRepo != nil {
		finder, finderErr := deps.SlipFinderFactory(cfg, log)
		if finderErr != nil {
			log.Warn(ctx, "slip store unavailable; continuing without correlation", map[string]interface{}{
				"error": finderErr.Error(),
			})
		} else {
			defer func() {
				if closeErr := finder.Close(); closeErr != nil {
					log.Warn(ctx, "failed to close slip finder", map[string]interface{}{
						"error": closeErr.Error(),
					})
				}
			}()
			correlator = deps.CorrelatorFactory(gitRepo, finder, log)
		}
	}

	env := buildReleaseEnv(deps, cfg, gitCtx, commitID)
	input := domain.ReleaseInput{
		Dockerfile:  resolveAgainstRepo(dockerfile),
		ImageSuffix: suffix,
		ContextDir:  repoPath,
		DryRun:      dryRun,
	}

	releaser := deps.ReleaserFactory(cfg, correlator, deps.OutputWriterFactory(), log)
	result, err := releaser.Release(ctx, env, input)
	if err != nil {
		log.Error(ctx, "release failed", err, nil)
		return err
	}

	if result != nil {
		log.Info(ctx, "release-tagger complete", map[string]interface{}{
			"built":  len(result.BuiltTags),
			"pushed": len(result.PushedTags),
		})
	}

	return nil
}

// openCheckout opens the repository unless GITHUB_REF and GITHUB_REPOSITORY
// already supply everything the release needs. Slip correlation still needs
// the ancestry, so the checkout is opened in that case too.
// A missing or unreadable checkout is not fatal: the release falls back to the
// directory name and an empty ref.
func openCheckout(
	ctx context.Context,
	deps *Dependencies,
	cfg *AppConfig,
	log Logger,
) (domain.LocalGitRepository, *domain.GitContext) {
	needed := cfg.GitHubRef == "" || cfg.GitHubRepository == ""
	if !needed && !cfg.SlippyEnabled {
		return nil, nil
	}

	gitRepo, err := deps.GitRepoFactory(repoPath, log)
	if err != nil {
		msg := "could not open checkout; using directory name"
		if errors.Is(err, domain.ErrRepositoryNotFound) {
			msg = "not a git repository; using directory name"
		}
		log.Warn(ctx, msg, map[string]interface{}{
			"path":  repoPath,
			"error": err.Error(),
		})
		return nil, nil
	}

	gitCtx, err := gitRepo.GetGitContext(ctx)
	if err != nil {
		if closeErr := gitRepo.Close(); closeErr != nil {
			log.Debug(ctx, "failed to close git repository", map[string]interface{}{
				"error": closeErr.Error(),
			})
		}
		log.Warn(ctx, "could not inspect checkout; using directory name", map[string]interface{}{
			"path":  repoPath,
			"error": err.Error(),
		})
		return nil, nil
	}

	return gitRepo, gitCtx
}

// buildReleaseEnv captures the ambient state once. Environment values win
// over values derived from the checkout.
func buildReleaseEnv(deps *Dependencies, cfg *AppConfig, gitCtx *domain.GitContext, commitID string) domain.ReleaseEnv {
	now := time.Now
	if deps.Now != nil {
		now = deps.Now
	}

	env := domain.ReleaseEnv{
		Ref:        cfg.GitHubRef,
		Repository: cfg.GitHubRepository,
		CI:         cfg.CI,
		CommitID:   commitID,
		Now:        now(),
	}

	rootDir := repoPath
	if gitCtx != nil {
		if env.Ref == "" {
			env.Ref = gitCtx.Ref
		}
		env.RemoteURL = gitCtx.RemoteURL
		if gitCtx.RootDir != "" {
			rootDir = gitCtx.RootDir
		}
	}
	if abs, err := filepath.Abs(rootDir); err == nil {
		rootDir = abs
	}
	env.DirName = filepath.Base(rootDir)

	return env
}

// resolveCommitFile picks the flag, then COMMIT_ID_FILE, then the default.
func resolveCommitFile(cfg *AppConfig) string {
	path := commitFile
	if path == "" {
		path = cfg.CommitIDFile
	}
	if path == "" {
		path = defaultCommitFile
	}
	return resolveAgainstRepo(path)
}

// resolveAgainstRepo joins relative paths onto the repository path.
func resolveAgainstRepo(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(repoPath, path)
}

// Execute runs the root command.
func Execute() {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// writeWarningf writes a warning message to the given writer.
// This is a best-effort operation; errors are intentionally ignored
// because there is no recovery action if stderr writes fail.
func writeWarningf(w io.Writer, format string, args ...any) {
	_, err := fmt.Fprintf(w, format, args...)
	if err != nil {
		return
	}
}
