// Package blob archives raw document bytes before indexing, so the original
// upload survives extraction and can be re-processed later. Locators are
// date-partitioned relative paths of the form YYYY/MM/DD/<filename>.
package blob

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Archive stores raw document bytes keyed by a date-partitioned locator.
type Archive interface {
	// Put stores raw bytes under a locator derived from filename and the
	// current date, returning the locator.
	Put(ctx context.Context, filename string, raw []byte) (string, error)

	// Get retrieves the raw bytes stored under locator.
	Get(ctx context.Context, locator string) ([]byte, error)

	// Ping checks that the archive is writable.
	Ping(ctx context.Context) error
}

// FSArchive is a Archive backed by a local directory tree.
type FSArchive struct {
	root string
	now  func() time.Time
}

// NewFSArchive returns an archive rooted at dir, creating it if needed.
func NewFSArchive(dir string) (*FSArchive, error) {
	if dir == "" {
		return nil, fmt.Errorf("blob: archive root not configured")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("blob: failed to create archive root: %w", err)
	}
	return &FSArchive{root: dir, now: time.Now}, nil
}

// Put writes raw under YYYY/MM/DD/<filename> relative to the archive root.
// A second Put of the same filename on the same day overwrites.
func (a *FSArchive) Put(ctx context.Context, filename string, raw []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	name := sanitizeFilename(filename)
	if name == "" {
		return "", fmt.Errorf("blob: empty filename")
	}

	t := a.now().UTC()
	locator := filepath.ToSlash(filepath.Join(
		fmt.Sprintf("%04d", t.Year()),
		fmt.Sprintf("%02d", t.Month()),
		fmt.Sprintf("%02d", t.Day()),
		name,
	))

	path := filepath.Join(a.root, filepath.FromSlash(locator))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("blob: failed to create partition dir: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return "", fmt.Errorf("blob: failed to write %s: %w", locator, err)
	}

	return locator, nil
}

// Get reads the raw bytes stored under locator.
func (a *FSArchive) Get(ctx context.Context, locator string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	clean := filepath.Clean(filepath.FromSlash(locator))
	if strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return nil, fmt.Errorf("blob: invalid locator %q", locator)
	}

	raw, err := os.ReadFile(filepath.Join(a.root, clean))
	if err != nil {
		return nil, fmt.Errorf("blob: failed to read %s: %w", locator, err)
	}
	return raw, nil
}

// Ping verifies the archive root exists and is a writable directory.
func (a *FSArchive) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	info, err := os.Stat(a.root)
	if err != nil {
		return fmt.Errorf("blob: archive root unavailable: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("blob: archive root %s is not a directory", a.root)
	}

	probe := filepath.Join(a.root, ".write-probe")
	if err := os.WriteFile(probe, nil, 0o644); err != nil {
		return fmt.Errorf("blob: archive root not writable: %w", err)
	}
	_ = os.Remove(probe)

	return nil
}

// sanitizeFilename strips path components and rejects traversal attempts,
// keeping only the base name.
func sanitizeFilename(filename string) string {
	name := filepath.Base(filepath.FromSlash(filename))
	if name == "." || name == ".." || name == string(filepath.Separator) {
		return ""
	}
	return name
}
