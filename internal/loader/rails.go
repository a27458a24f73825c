package loader

import (
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// Rails computes the units a Rails application loads implicitly: models
// and controllers see everything under lib/.
type Rails struct {
	Root string
	Log  *zap.Logger
}

// NewRails returns an autoloader for the application rooted at root.
func NewRails(root string, log *zap.Logger) *Rails {
	if log == nil {
		log = zap.NewNop()
	}
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}
	return &Rails{Root: root, Log: log}
}

// Implicit returns the unit ids id imports without a require.
func (r *Rails) Implicit(id string) []string {
	rel, err := filepath.Rel(r.Root, id)
	if err != nil || strings.HasPrefix(rel, "..") {
		return nil
	}
	dirs := strings.Split(filepath.ToSlash(filepath.Dir(rel)), "/")
	autoloaded := false
	for i := len(dirs) - 1; i >= 0; i-- {
		if dirs[i] == "models" || dirs[i] == "controllers" {
			autoloaded = true
			break
		}
	}
	if !autoloaded {
		return nil
	}
	lib := filepath.Join(r.Root, "lib")
	files, err := rubyFiles(lib)
	if err != nil {
		r.Log.Debug("rails lib listing", zap.String("lib", lib), zap.Error(err))
		return nil
	}
	out := make([]string, 0, len(files))
	for _, f := range files {
		path := filepath.Join(lib, filepath.FromSlash(f))
		if path != id {
			out = append(out, path)
		}
	}
	return out
}
