// Package files stores received transfers and reads files to send.
package files

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

const maxCollisions = 1000

// Saver writes files under dir, never overwriting an existing one.
type Saver struct {
	fs  afero.Fs
	dir string
}

func NewSaver(fs afero.Fs, dir string) *Saver {
	return &Saver{fs: fs, dir: dir}
}

// Save stores data under a name derived from suggested and returns the path.
func (s *Saver) Save(ctx context.Context, suggested string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := s.fs.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", s.dir, err)
	}
	path, err := s.choosePath(SafeName(suggested))
	if err != nil {
		return "", err
	}
	if err := afero.WriteFile(s.fs, path, data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}

// choosePath picks name, or "name (n).ext" when name is taken.
func (s *Saver) choosePath(name string) (string, error) {
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	for i := 0; i < maxCollisions; i++ {
		candidate := name
		if i > 0 {
			candidate = fmt.Sprintf("%s (%d)%s", base, i, ext)
		}
		path := filepath.Join(s.dir, candidate)
		_, err := s.fs.Stat(path)
		if os.IsNotExist(err) {
			return path, nil
		}
		if err != nil {
			return "", err
		}
	}
	return "", fmt.Errorf("no free name for %q in %s", name, s.dir)
}

// SafeName strips directories and characters that do not belong in a file name.
func SafeName(suggested string) string {
	name := filepath.Base(strings.ReplaceAll(suggested, "\\", "/"))
	name = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f || strings.ContainsRune(`<>:"|?*`, r) {
			return '_'
		}
		return r
	}, name)
	name = strings.TrimSpace(name)
	if name == "" || name == "." || name == ".." || name == "/" {
		return "download"
	}
	return name
}

// Reader loads files to send.
type Reader struct {
	fs afero.Fs
}

func NewReader(fs afero.Fs) *Reader { return &Reader{fs: fs} }

func (r *Reader) ReadFile(path string) ([]byte, error) {
	return afero.ReadFile(r.fs, path)
}
