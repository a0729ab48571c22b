package x11

import (
	"context"
	"strings"
)

// XClip reads and writes the CLIPBOARD selection.
type XClip struct {
	run Runner
}

func NewXClip(run Runner) *XClip { return &XClip{run: run} }

func (c *XClip) ReadText(ctx context.Context) (string, error) {
	out, err := c.run.Run(ctx, nil, "xclip", "-selection", "clipboard", "-o")
	if err != nil {
		// xclip fails on an empty selection.
		if strings.Contains(err.Error(), "target STRING not available") {
			return "", nil
		}
		return "", err
	}
	return string(out), nil
}

func (c *XClip) WriteText(ctx context.Context, text string) error {
	_, err := c.run.Run(ctx, []byte(text), "xclip", "-selection", "clipboard", "-i")
	return err
}
