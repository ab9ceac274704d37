// Package docker provides adapters that drive the docker CLI.
// This package implements the domain.ImageBuilder interface.
package docker

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strings"

	"github.com/samber/lo"

	"github.com/MyCarrier-DevOps/release-tagger/internal/domain"
)

// dockerBinary is the executable invoked for every command.
const dockerBinary = "docker"

// CommandRunner executes name with args. stdin may be nil.
type CommandRunner func(ctx context.Context, stdin io.Reader, stdout, stderr io.Writer, name string, args ...string) error

// ExecRunner runs commands with os/exec.
func ExecRunner(ctx context.Context, stdin io.Reader, stdout, stderr io.Writer, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = stdin
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	return cmd.Run()
}

// CLI wraps docker build, push and login.
// Command output is streamed to Stdout and Stderr.
type CLI struct {
	Verbose bool
	Stdout  io.Writer
	Stderr  io.Writer
	run     CommandRunner
}

// NewCLI creates a CLI that executes docker with default output writers.
func NewCLI(verbose bool) *CLI {
	return &CLI{
		Verbose: verbose,
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
		run:     ExecRunner,
	}
}

// NewCLIWithRunner creates a CLI with a custom command runner.
// This is useful for testing.
func NewCLIWithRunner(run CommandRunner, stdout, stderr io.Writer) *CLI {
	return &CLI{
		Stdout: stdout,
		Stderr: stderr,
		run:    run,
	}
}

// Build builds spec.Dockerfile and tags the result with spec.Reference.
func (c *CLI) Build(ctx context.Context, spec domain.BuildSpec) error {
	if err := c.exec(ctx, nil, buildArgs(spec)...); err != nil {
		return fmt.Errorf("docker build failed: %w", err)
	}
	return nil
}

// Push uploads reference to its registry.
func (c *CLI) Push(ctx context.Context, reference string) error {
	if err := c.exec(ctx, nil, "push", reference); err != nil {
		return fmt.Errorf("docker push failed: %w", err)
	}
	return nil
}

// Login authenticates against registry. The password is passed on stdin so
// it never appears in the process list.
func (c *CLI) Login(ctx context.Context, registry string, creds domain.RegistryCredentials) error {
	args := []string{"login", registry, "--username", creds.Username, "--password-stdin"}
	if err := c.exec(ctx, strings.NewReader(creds.Password), args...); err != nil {
		return fmt.Errorf("docker login failed: %w", err)
	}
	return nil
}

func (c *CLI) exec(ctx context.Context, stdin io.Reader, args ...string) error {
	if c.Verbose {
		fmt.Fprintf(c.Stderr, "exec: %s %s\n", dockerBinary, strings.Join(args, " "))
	}
	return c.run(ctx, stdin, c.Stdout, c.Stderr, dockerBinary, args...)
}

// buildArgs constructs the docker build argument list.
// Labels are emitted in key order so the command line is stable.
func buildArgs(spec domain.BuildSpec) []string {
	args := []string{"build"}

	if spec.Dockerfile != "" {
		args = append(args, "--file", spec.Dockerfile)
	}

	args = append(args, "--tag", spec.Reference)

	keys := lo.Keys(spec.Labels)
	sort.Strings(keys)
	for _, k := range keys {
		args = append(args, "--label", fmt.Sprintf("%s=%s", k, spec.Labels[k]))
	}

	contextDir := spec.ContextDir
	if contextDir == "" {
		contextDir = "."
	}
	return append(args, contextDir)
}
