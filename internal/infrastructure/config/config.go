// Package config provides configuration loading for the release-tagger application.
// It reads the CI environment, optional .env files, registry credentials and,
// when routing slip correlation is enabled, the ClickHouse and pipeline
// configuration from environment variables and HashiCorp Vault.
package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	ch "github.com/MyCarrier-DevOps/goLibMyCarrier/clickhouse"
	"github.com/MyCarrier-DevOps/goLibMyCarrier/slippy"
	"github.com/MyCarrier-DevOps/goLibMyCarrier/vault"
	"github.com/joho/godotenv"

	"github.com/MyCarrier-DevOps/release-tagger/internal/domain"
)

// Environment variable names.
const (
	// EnvGitHubRef is the ref that triggered the workflow (e.g. refs/heads/main).
	EnvGitHubRef = "GITHUB_REF"

	// EnvGitHubRepository is the owner/repo name set by GitHub Actions.
	EnvGitHubRepository = "GITHUB_REPOSITORY"

	// EnvCI is "true" on CI runners. Pushing is enabled only then.
	EnvCI = "CI"

	// EnvCommitIDFile overrides the commit identifier file path.
	EnvCommitIDFile = "COMMIT_ID_FILE"

	// EnvLogLevel is the log level (debug, info, error).
	EnvLogLevel = "LOG_LEVEL"

	// EnvLogAppName is the application name for log context.
	EnvLogAppName = "LOG_APP_NAME"

	// EnvRegistryUsername and EnvRegistryPassword supply registry credentials directly.
	EnvRegistryUsername = "REGISTRY_USERNAME"
	EnvRegistryPassword = "REGISTRY_PASSWORD"

	// EnvVaultRegistryCredentialsPath is the Vault KV path holding username and password keys.
	EnvVaultRegistryCredentialsPath = "VAULT_REGISTRY_CREDENTIALS_PATH"

	// EnvVaultRegistryCredentialsMount is the Vault KV mount for registry credentials (defaults to "secret").
	EnvVaultRegistryCredentialsMount = "VAULT_REGISTRY_CREDENTIALS_MOUNT"

	// EnvSlippyEnabled turns on routing slip correlation.
	EnvSlippyEnabled = "SLIPPY_ENABLED"

	// EnvDatabase is the ClickHouse database holding routing slips.
	EnvDatabase = "SLIPPY_DATABASE"

	// EnvPipelineConfig is the path to the pipeline configuration JSON file (deprecated, use Vault).
	EnvPipelineConfig = "SLIPPY_PIPELINE_CONFIG"

	// EnvVaultPipelineConfigPath is the path in Vault KV where pipeline config is stored.
	// An optional "#key" suffix selects the key holding the JSON document.
	EnvVaultPipelineConfigPath = "VAULT_PIPELINE_CONFIG_PATH"

	// EnvVaultPipelineConfigMount is the Vault KV mount point (defaults to "secret").
	EnvVaultPipelineConfigMount = "VAULT_PIPELINE_CONFIG_MOUNT"
)

// Default values.
const (
	DefaultLogLevel   = "info"
	DefaultLogAppName = "release-tagger"
	DefaultDatabase   = "ci"
	DefaultVaultMount = "secret"
	DefaultSecretKey  = "config"
	DefaultDotEnvFile = ".env"
)

// Configuration errors.
var (
	// ErrPipelineConfigRequired indicates pipeline config source is not available.
	ErrPipelineConfigRequired = errors.New(
		"pipeline configuration required: set VAULT_PIPELINE_CONFIG_PATH (with VAULT_ADDRESS, VAULT_ROLE_ID, VAULT_SECRET_ID) " +
			"or SLIPPY_PIPELINE_CONFIG for local file",
	)

	// ErrPipelineConfigNotFound indicates the pipeline config file does not exist.
	ErrPipelineConfigNotFound = errors.New("pipeline configuration file not found")

	// ErrPipelineConfigInvalid indicates the pipeline config is not valid JSON.
	ErrPipelineConfigInvalid = errors.New("pipeline configuration is not valid JSON")

	// ErrVaultClientFailed indicates failure to create or authenticate with Vault.
	ErrVaultClientFailed = errors.New("failed to create Vault client")

	// ErrVaultSecretNotFound indicates the secret was not found in Vault.
	ErrVaultSecretNotFound = errors.New("secret not found in Vault")

	// ErrRegistryCredentialsInvalid indicates a partial username/password pair.
	ErrRegistryCredentialsInvalid = errors.New("registry credentials require both username and password")
)

// VaultClient defines the interface for Vault operations.
// This interface allows for dependency injection and testing.
type VaultClient interface {
	// GetKVSecret retrieves a secret from Vault's KV v2 secrets engine.
	GetKVSecret(ctx context.Context, path, mount string) (map[string]interface{}, error)
}

// VaultClientFactory creates a VaultClient using AppRole authentication.
// This is the default factory used in production.
type VaultClientFactory func(ctx context.Context) (VaultClient, error)

// DefaultVaultClientFactory creates a VaultClient using goLibMyCarrier/vault with AppRole auth.
func DefaultVaultClientFactory(ctx context.Context) (VaultClient, error) {
	// Uses: VAULT_ADDRESS, VAULT_ROLE_ID, VAULT_SECRET_ID
	vaultConfig, err := vault.VaultLoadConfig()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrVaultClientFailed, err)
	}

	client, err := vault.CreateVaultClient(ctx, vaultConfig)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrVaultClientFailed, err)
	}

	return client, nil
}

// Config holds all application configuration.
type Config struct {
	// GitHubRef and GitHubRepository are empty outside GitHub Actions.
	GitHubRef        string
	GitHubRepository string

	// CI enables pushing.
	CI bool

	// CommitIDFile overrides the default commit identifier file when set.
	CommitIDFile string

	// LogLevel is the logging level (debug, info, error).
	LogLevel string

	// LogAppName is the application name for log context.
	LogAppName string

	// Registry holds login credentials; nil when none are configured.
	Registry *domain.RegistryCredentials

	// Slippy is nil unless SLIPPY_ENABLED is true.
	Slippy *SlippyConfig
}

// SlippyConfig holds the routing slip store settings.
type SlippyConfig struct {
	// ClickHouse holds the ClickHouse connection configuration.
	ClickHouse *ch.ClickhouseConfig

	// PipelineConfig holds the pipeline step definitions.
	PipelineConfig *slippy.PipelineConfig

	// Database is the ClickHouse database name for slip storage.
	Database string
}

// Load loads the application configuration from environment variables,
// after merging a .env file from the working directory if one exists.
//
// Registry credentials come from REGISTRY_USERNAME/REGISTRY_PASSWORD or
// from the Vault secret at VAULT_REGISTRY_CREDENTIALS_PATH. For Vault
// loading, requires:
//   - VAULT_ADDRESS: Vault server address
//   - VAULT_ROLE_ID: AppRole role ID
//   - VAULT_SECRET_ID: AppRole secret ID
//
// When SLIPPY_ENABLED is true the pipeline configuration is loaded from
// VAULT_PIPELINE_CONFIG_PATH (preferred) or SLIPPY_PIPELINE_CONFIG (fallback).
func Load() (*Config, error) {
	if err := LoadDotEnv(DefaultDotEnvFile); err != nil {
		return nil, err
	}
	return LoadWithVaultClient(context.Background(), nil)
}

// LoadDotEnv merges the variables of path into the environment.
// Variables already set are never overridden, and a missing file is not an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// LoadWithVaultClient loads configuration using the provided VaultClient factory.
// If vaultClientFactory is nil, DefaultVaultClientFactory is used.
// The Vault client is created at most once and only when a Vault path is set.
func LoadWithVaultClient(ctx context.Context, vaultClientFactory VaultClientFactory) (*Config, error) {
	vc := &lazyVault{factory: vaultClientFactory}

	creds, err := loadRegistryCredentials(ctx, vc)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		GitHubRef:        strings.TrimSpace(os.Getenv(EnvGitHubRef)),
		GitHubRepository: strings.TrimSpace(os.Getenv(EnvGitHubRepository)),
		CI:               isTrue(os.Getenv(EnvCI)),
		CommitIDFile:     strings.TrimSpace(os.Getenv(EnvCommitIDFile)),
		LogLevel:         getenvDefault(EnvLogLevel, DefaultLogLevel),
		LogAppName:       getenvDefault(EnvLogAppName, DefaultLogAppName),
		Registry:         creds,
	}

	if isTrue(os.Getenv(EnvSlippyEnabled)) {
		slippyCfg, err := loadSlippyConfig(ctx, vc)
		if err != nil {
			return nil, err
		}
		cfg.Slippy = slippyCfg
	}

	return cfg, nil
}

// isTrue reports whether v is "true", ignoring case and surrounding space.
func isTrue(v string) bool {
	return strings.EqualFold(strings.TrimSpace(v), "true")
}

func getenvDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// lazyVault creates the Vault client on first use.
type lazyVault struct {
	factory VaultClientFactory
	client  VaultClient
}

func (v *lazyVault) get(ctx context.Context) (VaultClient, error) {
	if v.client != nil {
		return v.client, nil
	}
	factory := v.factory
	if factory == nil {
		factory = DefaultVaultClientFactory
	}
	client, err := factory(ctx)
	if err != nil {
		return nil, err
	}
	v.client = client
	return client, nil
}

// loadRegistryCredentials prefers environment credentials over Vault.
// Returns nil when neither source is configured.
func loadRegistryCredentials(ctx context.Context, vc *lazyVault) (*domain.RegistryCredentials, error) {
	username := os.Getenv(EnvRegistryUsername)
	password := os.Getenv(EnvRegistryPassword)
	if username != "" || password != "" {
		if username == "" || password == "" {
			return nil, fmt.Errorf("%w: set both %s and %s", ErrRegistryCredentialsInvalid, EnvRegistryUsername, EnvRegistryPassword)
		}
		return &domain.RegistryCredentials{Username: username, Password: password}, nil
	}

	path := os.Getenv(EnvVaultRegistryCredentialsPath)
	if path == "" {
		return nil, nil
	}

	client, err := vc.get(ctx)
	if err != nil {
		return nil, err
	}

	mount := getenvDefault(EnvVaultRegistryCredentialsMount, DefaultVaultMount)
	secret, err := client.GetKVSecret(ctx, path, mount)
	if err != nil {
		return nil, fmt.Errorf("%w at path %s: %w", ErrVaultSecretNotFound, path, err)
	}

	username, _ = secret["username"].(string)
	password, _ = secret["password"].(string)
	if username == "" || password == "" {
		return nil, fmt.Errorf("%w: Vault secret %s needs username and password keys", ErrRegistryCredentialsInvalid, path)
	}

	return &domain.RegistryCredentials{Username: username, Password: password}, nil
}

// loadSlippyConfig loads the ClickHouse connection and pipeline configuration.
func loadSlippyConfig(ctx context.Context, vc *lazyVault) (*SlippyConfig, error) {
	chConfig, err := ch.ClickhouseLoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load ClickHouse config: %w", err)
	}

	pipelineConfig, err := loadPipelineConfig(ctx, vc)
	if err != nil {
		return nil, err
	}

	return &SlippyConfig{
		ClickHouse:     chConfig,
		PipelineConfig: pipelineConfig,
		Database:       getenvDefault(EnvDatabase, DefaultDatabase),
	}, nil
}

// loadPipelineConfig attempts to load pipeline config from Vault first,
// falling back to local file if Vault is not configured.
func loadPipelineConfig(ctx context.Context, vc *lazyVault) (*slippy.PipelineConfig, error) {
	if vaultPath := os.Getenv(EnvVaultPipelineConfigPath); vaultPath != "" {
		return loadPipelineConfigFromVault(ctx, vc, vaultPath)
	}

	pipelineConfigPath := os.Getenv(EnvPipelineConfig)
	if pipelineConfigPath == "" {
		return nil, ErrPipelineConfigRequired
	}

	return loadPipelineConfigFromFile(pipelineConfigPath)
}

// loadPipelineConfigFromVault loads pipeline configuration from Vault KV v2.
func loadPipelineConfigFromVault(ctx context.Context, vc *lazyVault, fullPath string) (*slippy.PipelineConfig, error) {
	client, err := vc.get(ctx)
	if err != nil {
		return nil, err
	}

	path, key := parseVaultPath(fullPath)
	mount := getenvDefault(EnvVaultPipelineConfigMount, DefaultVaultMount)

	secretData, err := client.GetKVSecret(ctx, path, mount)
	if err != nil {
		return nil, fmt.Errorf("%w at path %s: %w", ErrVaultSecretNotFound, path, err)
	}

	return parsePipelineConfigFromVault(secretData, key)
}

// parseVaultPath splits "path#key" at the last '#'. Without a '#' the key
// is DefaultSecretKey.
func parseVaultPath(fullPath string) (path, key string) {
	idx := strings.LastIndex(fullPath, "#")
	if idx < 0 {
		return fullPath, DefaultSecretKey
	}
	return fullPath[:idx], fullPath[idx+1:]
}

// parsePipelineConfigFromVault parses pipeline config from Vault secret data.
// Supports two formats:
// 1. key holding a JSON string
// 2. Direct mapping of pipeline config fields in the secret
func parsePipelineConfigFromVault(secretData map[string]interface{}, key string) (*slippy.PipelineConfig, error) {
	if configStr, ok := secretData[key].(string); ok {
		var config slippy.PipelineConfig
		if err := json.Unmarshal([]byte(configStr), &config); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrPipelineConfigInvalid, err)
		}
		return &config, nil
	}

	jsonData, err := json.Marshal(secretData)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to marshal secret data: %w", ErrPipelineConfigInvalid, err)
	}

	var config slippy.PipelineConfig
	if err := json.Unmarshal(jsonData, &config); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPipelineConfigInvalid, err)
	}

	return &config, nil
}

// loadPipelineConfigFromFile loads the pipeline configuration from the specified file path.
func loadPipelineConfigFromFile(path string) (*slippy.PipelineConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrPipelineConfigNotFound, path)
		}
		return nil, fmt.Errorf("failed to read pipeline config: %w", err)
	}

	var config slippy.PipelineConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPipelineConfigInvalid, err)
	}

	return &config, nil
}
