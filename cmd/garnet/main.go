package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/jward/garnet"
	"github.com/jward/garnet/internal/config"
	"github.com/jward/garnet/internal/loader"
	"github.com/jward/garnet/internal/store"
)

var (
	flagDB       string
	flagFormat   string
	flagConfig   string
	flagLogLevel string
)

// errorHandled is set by outputError so main() doesn't double-print.
var errorHandled bool

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errorHandled {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "garnet",
	Short:         "Static semantic analysis for Ruby",
	Long:          "Garnet parses Ruby with tree-sitter, builds scopes and declarations, infers types, and writes the result to a SQLite index for queries.",
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return validateFormat(flagFormat)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "database path (default: database from .garnet.toml)")
	rootCmd.PersistentFlags().StringVar(&flagFormat, "format", "json", "output format: json|text")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file (default: nearest .garnet.toml)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "log level: debug|info|warn|error")

	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(completeCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(watchCmd)
}

// loadConfig reads --config, or the nearest .garnet.toml above dir.
func loadConfig(dir string) (config.Config, error) {
	if flagConfig != "" {
		return config.LoadFile(flagConfig)
	}
	return config.Load(dir)
}

// newLogger builds a console logger writing to stderr. --log-level wins
// over the configured level.
func newLogger(cfg config.Config) (*zap.Logger, error) {
	level := cfg.LogLevel
	if flagLogLevel != "" {
		level = flagLogLevel
	}
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	zc := zap.NewDevelopmentConfig()
	if lvl > zapcore.DebugLevel {
		zc = zap.NewProductionConfig()
		zc.Encoding = "console"
		zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}
	zc.Level = zap.NewAtomicLevelAt(lvl)
	zc.OutputPaths = []string{"stderr"}
	return zc.Build()
}

// resolveDBPath returns the database path from the --db flag or the config.
func resolveDBPath(cfg config.Config) string {
	if flagDB != "" {
		if filepath.IsAbs(flagDB) {
			return flagDB
		}
		abs, err := filepath.Abs(flagDB)
		if err != nil {
			return flagDB
		}
		return abs
	}
	return cfg.Resolve(cfg.Database)
}

// session bundles what every analyzing command needs.
type session struct {
	cfg    config.Config
	log    *zap.Logger
	engine *garnet.Engine
	dbPath string
}

func (s *session) Close() {
	if err := s.engine.Close(); err != nil {
		s.log.Warn("closing engine", zap.Error(err))
	}
	_ = s.log.Sync()
}

// openSession loads the config for dir and creates an engine writing to
// the configured database.
func openSession(dir string) (*session, error) {
	cfg, err := loadConfig(dir)
	if err != nil {
		return nil, err
	}
	log, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}

	resolver := loader.Chain{}
	if cfg.ResolverScript != "" {
		script, err := loader.LoadScript(cfg.Resolve(cfg.ResolverScript), log)
		if err != nil {
			return nil, fmt.Errorf("resolver script: %w", err)
		}
		resolver = append(resolver, script)
	}
	resolver = append(resolver, loader.NewSearchPaths(log, cfg.SearchDirs()...))

	dbPath := resolveDBPath(cfg)
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating %s: %w", filepath.Dir(dbPath), err)
	}
	db, err := store.NewStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	opts := []garnet.Option{
		garnet.WithLogger(log),
		garnet.WithResolver(searchLister{resolver, cfg.SearchDirs()}),
		garnet.WithStore(db),
		garnet.WithParallel(cfg.Parallelism),
	}
	if cfg.Builtins != "" {
		opts = append(opts, garnet.WithBuiltinsFile(cfg.Resolve(cfg.Builtins)))
	}
	if cfg.Rails {
		opts = append(opts, garnet.WithRails(cfg.Root))
	}
	engine, err := garnet.New(opts...)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating engine: %w", err)
	}
	return &session{cfg: cfg, log: log, engine: engine, dbPath: dbPath}, nil
}

// searchLister resolves through a chain and lists require targets from the
// search paths, so file completion after require works with a script too.
type searchLister struct {
	loader.Chain
	roots []string
}

func (l searchLister) List(ctx context.Context, from string) ([]string, error) {
	return loader.NewSearchPaths(nil, l.roots...).List(ctx, from)
}

// indexClosure indexes paths and then every require target they reach that
// is not yet published, until nothing new turns up.
func indexClosure(ctx context.Context, e *garnet.Engine, paths []string) error {
	seen := map[string]bool{}
	for len(paths) > 0 {
		for _, p := range paths {
			seen[p] = true
		}
		if err := e.IndexFiles(ctx, paths); err != nil {
			return err
		}
		paths = nil
		for _, u := range e.Units() {
			for _, target := range u.Unresolved {
				if !seen[target] {
					seen[target] = true
					paths = append(paths, target)
				}
			}
		}
	}
	return nil
}

// resolveTargetDir returns the absolute path of the directory to index.
func resolveTargetDir(args []string) (string, error) {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving path %q: %w", dir, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("directory not found: %s", abs)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("not a directory: %s", abs)
	}
	return abs, nil
}

// resolveFilePath converts a file argument to an absolute path.
func resolveFilePath(file string) (string, error) {
	if filepath.IsAbs(file) {
		return file, nil
	}
	abs, err := filepath.Abs(file)
	if err != nil {
		return "", fmt.Errorf("resolving file path %q: %w", file, err)
	}
	return abs, nil
}

func elapsed(start time.Time) time.Duration {
	return time.Since(start).Round(time.Millisecond)
}
