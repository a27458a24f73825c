// Package loader maps require targets to source files.
//
// Every resolver returns candidate unit ids (absolute, cleaned paths) for a
// required name; the analyzer imports whichever candidates it has already
// built and defers the rest. Resolvers never read file contents.
package loader

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"go.uber.org/zap"
)

// Resolver maps a require target to candidate unit ids.
type Resolver interface {
	Resolve(ctx context.Context, required, from string, relative bool) ([]string, error)
}

// Lister enumerates the files a require could name, for completion.
type Lister interface {
	List(ctx context.Context, from string) ([]string, error)
}

// SearchPaths resolves requires against the requiring file's directory
// (require_relative) or a list of load paths (require).
type SearchPaths struct {
	Roots []string
	Log   *zap.Logger

	stat func(string) (os.FileInfo, error)
}

// NewSearchPaths returns a resolver searching roots in order.
func NewSearchPaths(log *zap.Logger, roots ...string) *SearchPaths {
	if log == nil {
		log = zap.NewNop()
	}
	abs := make([]string, 0, len(roots))
	for _, r := range roots {
		if a, err := filepath.Abs(r); err == nil {
			abs = append(abs, a)
		}
	}
	return &SearchPaths{Roots: abs, Log: log, stat: os.Stat}
}

// Resolve returns the first existing file for required.
func (s *SearchPaths) Resolve(ctx context.Context, required, from string, relative bool) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var dirs []string
	switch {
	case filepath.IsAbs(required):
		dirs = []string{""}
	case relative:
		dirs = []string{filepath.Dir(from)}
	default:
		dirs = s.Roots
	}
	for _, dir := range dirs {
		path := withExtension(filepath.Join(dir, required))
		if s.exists(path) {
			s.Log.Debug("require resolved", zap.String("required", required), zap.String("path", path))
			return []string{filepath.Clean(path)}, nil
		}
	}
	s.Log.Debug("require not found", zap.String("required", required), zap.Bool("relative", relative))
	return nil, nil
}

func (s *SearchPaths) exists(path string) bool {
	stat := s.stat
	if stat == nil {
		stat = os.Stat
	}
	info, err := stat(path)
	return err == nil && !info.IsDir()
}

// List returns the require names reachable from from: paths relative to
// from's directory and to every load path, without the .rb extension.
func (s *SearchPaths) List(ctx context.Context, from string) ([]string, error) {
	seen := make(map[string]bool)
	var out []string
	for _, root := range append([]string{filepath.Dir(from)}, s.Roots...) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		files, err := rubyFiles(root)
		if err != nil {
			s.Log.Debug("list require candidates", zap.String("root", root), zap.Error(err))
			continue
		}
		for _, f := range files {
			name := strings.TrimSuffix(f, ".rb")
			if !seen[name] {
				seen[name] = true
				out = append(out, name)
			}
		}
	}
	sort.Strings(out)
	return out, nil
}

// rubyFiles returns the .rb files below root, relative to root.
func rubyFiles(root string) ([]string, error) {
	return doublestar.Glob(os.DirFS(root), "**/*.rb", doublestar.WithFilesOnly())
}

func withExtension(path string) string {
	if filepath.Ext(path) == ".rb" {
		return path
	}
	return path + ".rb"
}

// Chain tries resolvers in order and returns the first non-empty result.
type Chain []Resolver

func (c Chain) Resolve(ctx context.Context, required, from string, relative bool) ([]string, error) {
	for _, r := range c {
		ids, err := r.Resolve(ctx, required, from, relative)
		if err != nil {
			return nil, err
		}
		if len(ids) > 0 {
			return ids, nil
		}
	}
	return nil, nil
}

// Discover returns the Ruby files below root whose root-relative path
// matches none of excludes, as absolute paths in lexical order.
func Discover(root string, excludes []string, isSource func(string) bool) ([]string, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	var out []string
	err = filepath.WalkDir(abs, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, _ := filepath.Rel(abs, path)
		rel = filepath.ToSlash(rel)
		if d.IsDir() {
			if rel != "." && (strings.HasPrefix(d.Name(), ".") || Excluded(rel, excludes)) {
				return filepath.SkipDir
			}
			return nil
		}
		if isSource(path) && !Excluded(rel, excludes) {
			out = append(out, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(out)
	return out, nil
}

// Excluded reports whether the slash-separated path matches any pattern.
func Excluded(path string, patterns []string) bool {
	for _, p := range patterns {
		if ok, err := doublestar.Match(p, path); err == nil && ok {
			return true
		}
	}
	return false
}
