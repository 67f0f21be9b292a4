package export

import (
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// File describes one file written by an Exporter
type File struct {
	Name string
	Path string
	Size int64
	Hash uint64
}

// ProgressCallback is called after every written file
type ProgressCallback func(written int, name string)

// Exporter writes loose files under an output directory
type Exporter struct {
	outputDir string
	flatten   bool
	progress  ProgressCallback
	files     []File
	root      *Exporter
}

// Option configures an Exporter
type Option func(*Exporter)

// WithFlatten writes every file directly in the output directory,
// replacing path separators in the name with @
func WithFlatten() Option {
	return func(e *Exporter) { e.flatten = true }
}

// WithProgress reports every written file to fn
func WithProgress(fn ProgressCallback) Option {
	return func(e *Exporter) { e.progress = fn }
}

// NewExporter creates a new file exporter rooted at outputDir
func NewExporter(outputDir string, opts ...Option) *Exporter {
	e := &Exporter{outputDir: outputDir}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Dir returns the output directory
func (e *Exporter) Dir() string {
	return e.outputDir
}

// Files returns the files written so far, including those written
// through sub-exporters
func (e *Exporter) Files() []File {
	return e.top().files
}

func (e *Exporter) top() *Exporter {
	if e.root != nil {
		return e.root
	}
	return e
}

// Sub returns an exporter writing below dir inside this exporter's tree.
// Written files are reported to the parent.
func (e *Exporter) Sub(dir string) (*Exporter, error) {
	rel, err := cleanName(dir)
	if err != nil {
		return nil, err
	}
	return &Exporter{
		outputDir: filepath.Join(e.outputDir, filepath.FromSlash(rel)),
		flatten:   e.flatten,
		progress:  e.progress,
		root:      e.top(),
	}, nil
}

// WriteFile writes data to name relative to the output directory, creating
// parent directories as needed. Backslashes in name are path separators.
func (e *Exporter) WriteFile(name string, data []byte) error {
	rel, err := cleanName(name)
	if err != nil {
		return err
	}
	if e.flatten {
		rel = sanitizePath(rel)
	}

	outputPath := filepath.Join(e.outputDir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	if err := os.WriteFile(outputPath, data, 0644); err != nil {
		return fmt.Errorf("writing file %s: %w", outputPath, err)
	}

	top := e.top()
	top.files = append(top.files, File{
		Name: rel,
		Path: outputPath,
		Size: int64(len(data)),
		Hash: xxhash.Sum64(data),
	})
	slog.Debug("Wrote file", "name", rel, "output", outputPath, "size", len(data))

	if e.progress != nil {
		e.progress(len(top.files), rel)
	}
	return nil
}

// cleanName turns an archive name into a slash separated relative path
// that cannot leave the output directory
func cleanName(name string) (string, error) {
	name = strings.ReplaceAll(name, "\\", "/")
	name = strings.TrimLeft(name, "/")
	if i := strings.Index(name, ":"); i >= 0 && !strings.Contains(name[:i], "/") {
		// drive or device prefix such as "cd0:"
		name = strings.TrimLeft(name[i+1:], "/")
	}

	clean := path.Clean(name)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("invalid output name %q", name)
	}
	return clean, nil
}

// sanitizePath sanitizes a file path for use as a filename
// Replaces forward slashes with @ symbols
func sanitizePath(path string) string {
	return strings.ReplaceAll(path, "/", "@")
}
