package loader

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/risor-io/risor"
	"github.com/risor-io/risor/object"
	"go.uber.org/zap"
)

// Script resolves requires with a user-supplied Risor script.
//
// The script sees the globals required, from and relative, plus the host
// functions exists(path), join(parts...), dir(path), glob(root, pattern) and
// the log object. Its final expression is the result: a list of paths, a
// single path, or nil.
type Script struct {
	path   string
	source string
	log    *zap.Logger
}

// LoadScript reads a resolver script from disk.
func LoadScript(path string, log *zap.Logger) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loader: loading script %s: %w", path, err)
	}
	return NewScript(path, string(data), log), nil
}

// NewScript returns a resolver running source. label names it in errors.
func NewScript(label, source string, log *zap.Logger) *Script {
	if log == nil {
		log = zap.NewNop()
	}
	return &Script{path: label, source: source, log: log}
}

// Resolve runs the script for one require.
func (s *Script) Resolve(ctx context.Context, required, from string, relative bool) ([]string, error) {
	globals := map[string]any{
		"required": object.NewString(required),
		"from":     object.NewString(from),
		"relative": object.NewBool(relative),
		"exists":   existsFn,
		"join":     joinFn,
		"dir":      dirFn,
		"glob":     globFn,
		"log":      mustProxy(&logObject{log: s.log.With(zap.String("script", s.path))}),
	}
	opts := make([]risor.Option, 0, len(globals))
	for name, val := range globals {
		opts = append(opts, risor.WithGlobal(name, val))
	}

	result, err := risor.Eval(ctx, s.source, opts...)
	if err != nil {
		return nil, fmt.Errorf("loader: script %s: %w", s.path, err)
	}
	return scriptPaths(result, filepath.Dir(from))
}

// scriptPaths converts a script result into cleaned absolute paths.
// Relative results are taken relative to base.
func scriptPaths(result object.Object, base string) ([]string, error) {
	var raw []object.Object
	switch r := result.(type) {
	case nil:
		return nil, nil
	case *object.NilType:
		return nil, nil
	case *object.String:
		raw = []object.Object{r}
	case *object.List:
		raw = r.Value()
	default:
		return nil, fmt.Errorf("loader: script result must be a list of strings, got %s", result.Type())
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		str, ok := item.(*object.String)
		if !ok {
			return nil, fmt.Errorf("loader: script result item must be a string, got %s", item.Type())
		}
		p := str.Value()
		if !filepath.IsAbs(p) {
			p = filepath.Join(base, p)
		}
		out = append(out, filepath.Clean(p))
	}
	return out, nil
}

// exists(path) → bool
var existsFn = object.NewBuiltin("exists", func(ctx context.Context, args ...object.Object) object.Object {
	if len(args) != 1 {
		return object.NewArgsError("exists", 1, len(args))
	}
	path, ok := args[0].(*object.String)
	if !ok {
		return object.Errorf("exists: path must be a string, got %s", args[0].Type())
	}
	info, err := os.Stat(path.Value())
	return object.NewBool(err == nil && !info.IsDir())
})

// join(parts...) → string
var joinFn = object.NewBuiltin("join", func(ctx context.Context, args ...object.Object) object.Object {
	parts := make([]string, 0, len(args))
	for _, a := range args {
		s, ok := a.(*object.String)
		if !ok {
			return object.Errorf("join: parts must be strings, got %s", a.Type())
		}
		parts = append(parts, s.Value())
	}
	return object.NewString(filepath.Join(parts...))
})

// dir(path) → string
var dirFn = object.NewBuiltin("dir", func(ctx context.Context, args ...object.Object) object.Object {
	if len(args) != 1 {
		return object.NewArgsError("dir", 1, len(args))
	}
	path, ok := args[0].(*object.String)
	if !ok {
		return object.Errorf("dir: path must be a string, got %s", args[0].Type())
	}
	return object.NewString(filepath.Dir(path.Value()))
})

// glob(root, pattern) → []string of absolute paths
var globFn = object.NewBuiltin("glob", func(ctx context.Context, args ...object.Object) object.Object {
	if len(args) != 2 {
		return object.NewArgsError("glob", 2, len(args))
	}
	root, ok := args[0].(*object.String)
	if !ok {
		return object.Errorf("glob: root must be a string, got %s", args[0].Type())
	}
	pattern, ok := args[1].(*object.String)
	if !ok {
		return object.Errorf("glob: pattern must be a string, got %s", args[1].Type())
	}
	matches, err := doublestar.Glob(os.DirFS(root.Value()), pattern.Value(), doublestar.WithFilesOnly())
	if err != nil {
		return object.Errorf("glob: %v", err)
	}
	items := make([]object.Object, len(matches))
	for i, m := range matches {
		items[i] = object.NewString(filepath.Join(root.Value(), filepath.FromSlash(m)))
	}
	return object.NewList(items)
})

// logObject provides log.info/warn/error methods for scripts.
type logObject struct {
	log *zap.Logger
}

func (l *logObject) Info(msg string)  { l.log.Info(msg) }
func (l *logObject) Warn(msg string)  { l.log.Warn(msg) }
func (l *logObject) Error(msg string) { l.log.Error(msg) }

func mustProxy(v any) object.Object {
	p, err := object.NewProxy(v)
	if err != nil {
		panic(fmt.Sprintf("loader: proxy error: %v", err))
	}
	return p
}
