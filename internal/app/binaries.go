package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/bft-labs/embedredis/internal/domain"
	"github.com/bft-labs/embedredis/internal/ports"
)

// installAttempts bounds the install retries. Copying over a binary that
// another test process is still executing fails transiently on some systems.
const installAttempts = 5

// Binaries holds the resolved executable paths. Client and Benchmark may be
// empty when they could not be found.
type Binaries struct {
	Server    string
	Client    string
	Benchmark string
}

// BinarySources tells the resolver where executables come from.
type BinarySources struct {
	// Explicit paths win over everything else.
	Server string
	Client string
	// SourceDir, when set, holds executables to install into InstallDir.
	SourceDir  string
	InstallDir string
	GOOS       string
}

type binaryResolver struct {
	installer ports.ExecutableInstaller
	logger    ports.Logger
	backoff   func() *backoff
}

func newBinaryResolver(installer ports.ExecutableInstaller, logger ports.Logger) *binaryResolver {
	return &binaryResolver{
		installer: installer,
		logger:    logger,
		backoff: func() *backoff {
			return newBackoff(DefaultBackoffInitial, DefaultBackoffMax)
		},
	}
}

// Resolve locates the server (required) and the client and benchmark
// tools (optional).
func (r *binaryResolver) Resolve(ctx context.Context, src BinarySources) (Binaries, error) {
	var bins Binaries
	var err error

	bins.Server, err = r.resolve(ctx, src.Server, ServerExecutable, src)
	if err != nil {
		return Binaries{}, err
	}

	bins.Client, err = r.resolve(ctx, src.Client, ClientExecutable, src)
	if err != nil {
		r.logger.Warn("client executable unavailable, RunCommand will fail", ports.Err(err))
	}

	bins.Benchmark, err = r.resolve(ctx, "", BenchmarkExecutable, src)
	if err != nil {
		r.logger.Debug("benchmark executable unavailable", ports.Err(err))
	}

	return bins, nil
}

func (r *binaryResolver) resolve(ctx context.Context, explicit, name string, src BinarySources) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("%w: %s: %v", domain.ErrBinaryNotFound, explicit, err)
		}
		return explicit, nil
	}

	exe := ExecutableName(name, src.GOOS)

	if src.SourceDir != "" {
		_, err := os.Stat(filepath.Join(src.SourceDir, exe))
		switch {
		case err == nil:
			var path string
			err := retry(ctx, installAttempts, r.backoff(), func() error {
				p, err := r.installer.Install(src.SourceDir, exe, src.InstallDir)
				path = p
				return err
			})
			if err != nil {
				return "", fmt.Errorf("install %s: %w", exe, err)
			}
			r.logger.Debug("installed executable", ports.String("path", path))
			return path, nil
		case !errors.Is(err, fs.ErrNotExist):
			return "", fmt.Errorf("install %s: %w", exe, err)
		}
	}

	path, err := exec.LookPath(exe)
	if err != nil {
		return "", fmt.Errorf("%w: %s", domain.ErrBinaryNotFound, exe)
	}
	return path, nil
}
