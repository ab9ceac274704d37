// Package main is the entry point for the release-tagger CLI application.
// release-tagger derives an image name and tag set from a repository checkout,
// builds one image per tag and pushes them when running in CI.
package main

import (
	"fmt"
	"os"
	"sync"

	ch "github.com/MyCarrier-DevOps/goLibMyCarrier/clickhouse"
	"github.com/MyCarrier-DevOps/goLibMyCarrier/logger"
	"github.com/MyCarrier-DevOps/goLibMyCarrier/slippy"

	"github.com/MyCarrier-DevOps/release-tagger/cmd"
	"github.com/MyCarrier-DevOps/release-tagger/internal/adapters/commit"
	"github.com/MyCarrier-DevOps/release-tagger/internal/adapters/docker"
	"github.com/MyCarrier-DevOps/release-tagger/internal/adapters/git"
	logadapter "github.com/MyCarrier-DevOps/release-tagger/internal/adapters/logger"
	"github.com/MyCarrier-DevOps/release-tagger/internal/adapters/output"
	"github.com/MyCarrier-DevOps/release-tagger/internal/adapters/store"
	"github.com/MyCarrier-DevOps/release-tagger/internal/domain"
	"github.com/MyCarrier-DevOps/release-tagger/internal/infrastructure/config"
	"github.com/MyCarrier-DevOps/release-tagger/internal/usecases"
)

func main() {
	// .env may set LOG_LEVEL, so it is merged before the logger exists
	if err := config.LoadDotEnv(config.DefaultDotEnvFile); err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	}

	cmd.SetDefaultDependencies(newDependencies())
	cmd.Execute()
}

// newDependencies wires the production adapters.
// The logger is created on first use so the --verbose flag can raise LOG_LEVEL first.
func newDependencies() *cmd.Dependencies {
	zapLog := sync.OnceValue(logger.NewZapLoggerFromConfig)
	root := sync.OnceValue(func() *logadapter.ZapAdapter {
		return logadapter.NewZapAdapter(zapLog())
	})
	component := func(name string) *logadapter.ZapAdapter {
		return root().WithComponent(name)
	}

	return &cmd.Dependencies{
		LoggerFactory: func() cmd.Logger {
			return root()
		},

		ConfigLoader: func() (*cmd.AppConfig, error) {
			cfg, err := config.Load()
			if err != nil {
				return nil, err
			}
			return toAppConfig(cfg), nil
		},

		GitRepoFactory: func(path string, _ cmd.Logger) (domain.LocalGitRepository, error) {
			return git.NewGoGitRepository(path, component("git"))
		},

		CommitReaderFactory: func(path string) domain.CommitReader {
			return commit.NewFileReader(path)
		},

		SlipFinderFactory: func(cfg *cmd.AppConfig, _ cmd.Logger) (domain.SlipFinder, error) {
			chConfig, ok := cfg.ClickHouseConfig.(*ch.ClickhouseConfig)
			if !ok {
				return nil, newConfigTypeError("*ch.ClickhouseConfig")
			}

			pipelineCfg, ok := cfg.PipelineConfig.(*slippy.PipelineConfig)
			if !ok {
				return nil, newConfigTypeError("*slippy.PipelineConfig")
			}

			slippyStore, err := slippy.NewClickHouseStoreFromConfig(chConfig, slippy.ClickHouseStoreOptions{
				PipelineConfig: pipelineCfg,
				Database:       cfg.Database,
				Logger:         zapLog(),
				SkipMigrations: true,
			})
			if err != nil {
				return nil, err
			}
			return store.NewClickHouseAdapter(slippyStore), nil
		},

		CorrelatorFactory: func(
			gitRepo domain.LocalGitRepository,
			finder domain.SlipFinder,
			_ cmd.Logger,
		) domain.Correlator {
			return usecases.NewSlipResolver(gitRepo, finder, component("slippy"), domain.DefaultAncestryDepth)
		},

		ReleaserFactory: func(
			cfg *cmd.AppConfig,
			correlator domain.Correlator,
			out domain.OutputWriter,
			_ cmd.Logger,
		) domain.Releaser {
			opts := []usecases.ReleaserOption{usecases.WithCredentials(cfg.Credentials)}
			if correlator != nil {
				opts = append(opts, usecases.WithCorrelator(correlator))
			}
			return usecases.NewImageReleaser(
				docker.NewCLI(cfg.Verbose),
				docker.NewReferenceParser(),
				out,
				component("release"),
				opts...,
			)
		},

		OutputWriterFactory: func() domain.OutputWriter {
			return output.NewWriter()
		},

		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
}

// toAppConfig flattens the loaded configuration for the command layer.
func toAppConfig(cfg *config.Config) *cmd.AppConfig {
	app := &cmd.AppConfig{
		GitHubRef:        cfg.GitHubRef,
		GitHubRepository: cfg.GitHubRepository,
		CI:               cfg.CI,
		CommitIDFile:     cfg.CommitIDFile,
		Credentials:      cfg.Registry,
		LogLevel:         cfg.LogLevel,
		LogAppName:       cfg.LogAppName,
	}
	if cfg.Slippy != nil {
		app.SlippyEnabled = true
		app.ClickHouseConfig = cfg.Slippy.ClickHouse
		app.PipelineConfig = cfg.Slippy.PipelineConfig
		app.Database = cfg.Slippy.Database
	}
	return app
}

func newConfigTypeError(expected string) error {
	return &configTypeError{expected: expected}
}

// configTypeError is returned when configuration type assertion fails.
type configTypeError struct {
	expected string
}

func (e *configTypeError) Error() string {
	return "invalid configuration type: expected " + e.expected
}
