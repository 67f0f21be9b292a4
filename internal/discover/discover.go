// Package discover expands command line arguments into the input files a
// command works on.
package discover

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Filter matches slash separated paths against doublestar patterns,
// ignoring case.
type Filter struct {
	patterns []string
}

// NewFilter validates and compiles patterns such as "**/*.arc".
func NewFilter(patterns ...string) (*Filter, error) {
	if len(patterns) == 0 {
		return nil, fmt.Errorf("filter needs at least one pattern")
	}
	f := &Filter{}
	for _, p := range patterns {
		p = strings.ToLower(filepath.ToSlash(p))
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid filter pattern %q", p)
		}
		f.patterns = append(f.patterns, p)
	}
	return f, nil
}

// MustFilter is NewFilter for patterns known to be valid.
func MustFilter(patterns ...string) *Filter {
	f, err := NewFilter(patterns...)
	if err != nil {
		panic(err)
	}
	return f
}

// Match reports whether name matches any pattern. Names without a
// directory part match patterns starting with "**/".
func (f *Filter) Match(name string) bool {
	name = strings.ToLower(filepath.ToSlash(name))
	for _, p := range f.patterns {
		if ok, _ := doublestar.Match(p, name); ok {
			return true
		}
	}
	return false
}

// Collect returns the files named by args that match f. Directories are
// walked and matched by their path below the directory; files given
// explicitly are matched by base name. The result is sorted and free of
// duplicates.
func Collect(args []string, f *Filter) ([]string, error) {
	var out []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("reading input %s: %w", arg, err)
		}

		if !info.IsDir() {
			if f.Match(filepath.Base(arg)) {
				out = append(out, filepath.Clean(arg))
			}
			continue
		}

		err = fs.WalkDir(os.DirFS(arg), ".", func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() || !f.Match(p) {
				return nil
			}
			out = append(out, filepath.Join(arg, filepath.FromSlash(p)))
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walking %s: %w", arg, err)
		}
	}

	slices.Sort(out)
	return slices.Compact(out), nil
}

// Split separates files matching control from those matching
// supplemental. Files matching neither are dropped.
func Split(files []string, control, supplemental *Filter) (working, extra []string) {
	for _, file := range files {
		switch base := filepath.Base(file); {
		case control.Match(base):
			working = append(working, file)
		case supplemental.Match(base):
			extra = append(extra, file)
		}
	}
	return working, extra
}

// ChangeExtension replaces the extension of name with ext, which may
// carry a suffix such as "_out.glb".
func ChangeExtension(name, ext string) string {
	return strings.TrimSuffix(name, filepath.Ext(name)) + ext
}
