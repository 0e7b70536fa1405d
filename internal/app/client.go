package app

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/bft-labs/embedredis/internal/domain"
	"github.com/bft-labs/embedredis/internal/ports"
)

// RunCommandArgs runs redis-cli -p <port> followed by args and returns its
// standard output once the client exits. Use it for arguments that contain
// whitespace.
func (s *Supervisor) RunCommandArgs(ctx context.Context, args ...string) (string, error) {
	if st := s.lifecycle.State(); st != StateRunning {
		return "", &domain.IllegalStateError{Op: "run command", State: st.String()}
	}
	if s.bins.Client == "" {
		return "", fmt.Errorf("%w: %s", domain.ErrBinaryNotFound, ClientExecutable)
	}

	cmdArgs := append([]string{"-p", s.portArg()}, args...)
	cmd := exec.CommandContext(ctx, s.bins.Client, cmdArgs...)
	cmd.Env = childEnv(s.dirs.Lib.Path)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	s.logger.Debug("running client command", ports.Strings("args", cmdArgs))

	if err := cmd.Run(); err != nil {
		return stdout.String(), fmt.Errorf("%s %s: %w: %s",
			ClientExecutable, strings.Join(args, " "), err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}
