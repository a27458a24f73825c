package garnet

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cespare/xxhash/v2"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jward/garnet/internal/diag"
	"github.com/jward/garnet/internal/loader"
	"github.com/jward/garnet/internal/parser"
	"github.com/jward/garnet/internal/syntax"
)

// parsed holds the outcome of reading and parsing one file.
type parsed struct {
	id       string
	hash     uint64
	root     *syntax.Program
	problems []diag.Diagnostic
	skip     bool
	err      error
}

// IndexFiles analyzes the Ruby files among paths. Files are read and parsed
// in parallel, bounded by WithParallel. Analysis then runs serially in path
// order, followed by the re-analysis of units whose requires became
// available. Unchanged files are skipped. Files with syntax errors are
// published with their problems and do not fail the call.
func (e *Engine) IndexFiles(ctx context.Context, paths []string) error {
	start := time.Now()
	var ids []string
	for _, p := range paths {
		if !parser.IsRuby(p) {
			continue
		}
		abs, err := filepath.Abs(p)
		if err != nil {
			return fmt.Errorf("garnet: resolve %s: %w", p, err)
		}
		ids = append(ids, abs)
	}
	if len(ids) == 0 {
		return nil
	}

	// Phase A (parallel): read, hash and parse.
	results := make([]parsed, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(e.parallel, 1))
	for i, id := range ids {
		g.Go(func() error {
			results[i] = e.parseFile(gctx, id)
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	// Phase B (serial): analyze and publish.
	var errs error
	var changed []string
	for _, res := range results {
		switch {
		case res.skip:
			continue
		case res.err != nil && errors.Is(res.err, parser.ErrSyntax):
			e.log.Warn("syntax errors", zap.String("unit", res.id), zap.Int("problems", len(res.problems)))
			e.publishParseFailure(res.id, res.problems)
		case res.err != nil:
			errs = multierr.Append(errs, res.err)
		default:
			if _, err := e.analyze(ctx, res.id, res.root, res.hash, true); err != nil {
				errs = multierr.Append(errs, err)
				continue
			}
			changed = append(changed, res.id)
		}
	}

	// Phase C: deferred requires and dependents.
	if err := e.schedule(ctx, changed); err != nil {
		errs = multierr.Append(errs, err)
	}

	e.log.Info("indexed",
		zap.Int("files", len(ids)),
		zap.Int("analyzed", len(changed)),
		zap.Duration("elapsed", time.Since(start)))

	if n := len(multierr.Errors(errs)); n > 0 {
		return fmt.Errorf("garnet: indexing had %d error(s): %w", n, errs)
	}
	return nil
}

func (e *Engine) parseFile(ctx context.Context, id string) parsed {
	src, err := os.ReadFile(id)
	if err != nil {
		return parsed{id: id, err: fmt.Errorf("garnet: read %s: %w", id, err)}
	}
	hash := xxhash.Sum64(src)
	if prev, ok := e.current(id); ok && prev == hash && hash != 0 {
		return parsed{id: id, skip: true}
	}
	p := parser.New()
	defer p.Close()
	root, problems, err := p.Parse(ctx, id, src)
	return parsed{id: id, hash: hash, root: root, problems: problems, err: err}
}

// IndexDirectory analyzes every Ruby file under root whose slash-separated
// path relative to root matches none of excludes.
func (e *Engine) IndexDirectory(ctx context.Context, root string, excludes []string) error {
	paths, err := loader.Discover(root, excludes, parser.IsRuby)
	if err != nil {
		return fmt.Errorf("garnet: discover %s: %w", root, err)
	}
	e.log.Debug("discovered", zap.String("root", root), zap.Int("files", len(paths)))
	return e.IndexFiles(ctx, paths)
}
