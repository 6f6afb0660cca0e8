package manager

import (
	"context"
	"fmt"
	"io"
	"os/exec"
)

// Verifier runs the configured post-install check inside a freshly
// extracted toolchain.
type Verifier struct {
	Command string // Empty disables verification.
}

// Run executes the command in dir via sh -c, streaming combined output to
// out. A non-zero exit is reported as ErrVerifyFailed.
func (v Verifier) Run(ctx context.Context, dir string, out io.Writer) error {
	if v.Command == "" {
		return nil
	}
	cmd := exec.CommandContext(ctx, "sh", "-c", v.Command)
	cmd.Dir = dir
	cmd.Stdout = out
	cmd.Stderr = out
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%w: %q: %v", ErrVerifyFailed, v.Command, err)
	}
	return nil
}
