// Package x11 drives the local desktop through command-line tools:
// xdotool and ydotool for input, xclip for the clipboard.
package x11

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Runner executes a tool and returns its stdout.
type Runner interface {
	Run(ctx context.Context, stdin []byte, name string, args ...string) ([]byte, error)
}

type execRunner struct {
	display string
}

// NewRunner runs tools against display, or $DISPLAY when empty.
func NewRunner(display string) Runner {
	return execRunner{display: display}
}

func (r execRunner) Run(ctx context.Context, stdin []byte, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Env = os.Environ()
	if r.display != "" {
		cmd.Env = append(cmd.Env, "DISPLAY="+r.display)
	}
	if stdin != nil {
		// Clipboard owners fork and keep serving the selection; holding
		// their stdout or stderr pipes would block until they exit.
		cmd.Stdin = bytes.NewReader(stdin)
		if err := cmd.Run(); err != nil {
			return nil, fmt.Errorf("%s %s: %w", name, strings.Join(args, " "), err)
		}
		return nil, nil
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w: %s", name, strings.Join(args, " "), err, strings.TrimSpace(stderr.String()))
	}
	return out, nil
}
