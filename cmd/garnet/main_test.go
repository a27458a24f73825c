package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/jward/garnet"
	"github.com/jward/garnet/internal/loader"
	"github.com/jward/garnet/internal/store"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestValidateFormat(t *testing.T) {
	t.Parallel()
	assert.NoError(t, validateFormat("json"))
	assert.NoError(t, validateFormat("text"))
	assert.ErrorContains(t, validateFormat("yaml"), `invalid format "yaml"`)
}

func TestResolveTargetDir(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	got, err := resolveTargetDir([]string{dir})
	require.NoError(t, err)
	assert.Equal(t, dir, got)

	file := filepath.Join(dir, "a.rb")
	writeFile(t, file, "")
	_, err = resolveTargetDir([]string{file})
	assert.ErrorContains(t, err, "not a directory")

	_, err = resolveTargetDir([]string{filepath.Join(dir, "missing")})
	assert.ErrorContains(t, err, "directory not found")
}

func TestParsePositionArgs(t *testing.T) {
	t.Parallel()
	file, line, col, err := parsePositionArgs([]string{"/src/a.rb", "3", "7"})
	require.NoError(t, err)
	assert.Equal(t, "/src/a.rb", file)
	assert.Equal(t, 3, line)
	assert.Equal(t, 7, col)

	_, _, _, err = parsePositionArgs([]string{"/src/a.rb", "x", "7"})
	assert.ErrorContains(t, err, `invalid line "x"`)
	_, _, _, err = parsePositionArgs([]string{"/src/a.rb", "1", "-2"})
	assert.ErrorContains(t, err, "must be non-negative")
}

func TestWriteResult_Text(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		result CLIResult
		want   []string
	}{
		{
			name: "diagnostics with footer",
			result: CLIResult{
				Results: []CLIDiagnostic{{
					File: "a.rb", Severity: "hint", Message: "undefined name foo",
					Notes: []string{"did you mean foot?"}, StartLine: 2, StartCol: 4,
				}},
				TotalCount: ptr(3),
			},
			want: []string{"a.rb:2:4:", "undefined name foo", "    note: did you mean foot?", "Showing 1 of 3 results"},
		},
		{
			name: "declarations",
			result: CLIResult{Results: []CLIDeclaration{
				{Name: "Greeter::hello", Kind: "method", Visibility: "public", Type: "String", StartLine: 1},
				{Name: "build", Kind: "method", Visibility: "public", Singleton: true},
			}},
			want: []string{"NAME", "Greeter::hello", "String", "self.build"},
		},
		{
			name:   "locations",
			result: CLIResult{Results: []CLILocation{{File: "lib.rb", Name: "Greeter", StartLine: 0, StartCol: 6}}},
			want:   []string{"lib.rb:0:6 Greeter"},
		},
		{
			name:   "imports",
			result: CLIResult{Results: []CLIImport{{Kind: "require", Target: "/src/lib.rb", Resolved: true}}},
			want:   []string{"KIND", "/src/lib.rb", "true"},
		},
		{
			name: "completion",
			result: CLIResult{Results: CLICompletion{
				Kind:   "standard",
				Items:  []CLICompletionItem{{Label: "Greeter", Detail: "class"}},
				Groups: []CLICompletionGroup{{Name: "Ruby Keyword", Items: []CLICompletionItem{{Label: "def"}}}},
			}},
			want: []string{"kind: standard", "Greeter", "Ruby Keyword:", "  def"},
		},
		{
			name:   "summary",
			result: CLIResult{Results: CLIIndexSummary{Units: 4, Diagnostics: map[string]int{"hint": 2}, Unresolved: 1, Database: "/src/.garnet.db"}},
			want:   []string{"Units: 4", ": 2", "Unresolved requires: 1", "Database: /src/.garnet.db"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var buf bytes.Buffer
			require.NoError(t, writeResult(&buf, "text", tt.result))
			for _, want := range tt.want {
				assert.Contains(t, buf.String(), want)
			}
		})
	}
}

func TestWriteResult_TextRejectsUnknownType(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	err := writeResult(&buf, "text", CLIResult{Results: 42})
	assert.ErrorContains(t, err, "unsupported result type")
}

func TestWriteResult_JSON(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	require.NoError(t, writeResult(&buf, "json", CLIResult{
		Command: "search",
		Results: []CLIDeclaration{{Name: "Greeter", Kind: "class"}},
	}))
	var got struct {
		Command string           `json:"command"`
		Results []CLIDeclaration `json:"results"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "search", got.Command)
	require.Len(t, got.Results, 1)
	assert.Equal(t, "Greeter", got.Results[0].Name)
	assert.NotContains(t, buf.String(), "total_count")
}

func TestIndexClosure_FollowsRequires(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	app := filepath.Join(dir, "app.rb")
	helper := filepath.Join(dir, "lib", "helper.rb")
	writeFile(t, app, "require \"helper\"\nx = Helper.new\n")
	writeFile(t, helper, "class Helper\nend\n")
	writeFile(t, filepath.Join(dir, "lib", "unused.rb"), "y = 1\n")

	e, err := garnet.New(garnet.WithResolver(loader.NewSearchPaths(nil, filepath.Join(dir, "lib"))))
	require.NoError(t, err)
	defer e.Close()

	require.NoError(t, indexClosure(context.Background(), e, []string{app}))
	var ids []string
	for _, u := range e.Units() {
		ids = append(ids, u.ID)
	}
	assert.Equal(t, []string{app, helper}, ids)

	u, ok := e.Unit(app)
	require.True(t, ok)
	assert.Equal(t, []string{helper}, u.Imports)
	assert.Empty(t, u.Unresolved)
}

func TestOpenSession_WritesConfiguredDatabase(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ".garnet.toml"), "database = \"index/garnet.db\"\nlog_level = \"error\"\n")
	writeFile(t, filepath.Join(dir, "main.rb"), "require \"greeter\"\ng = Greeter.new\n")
	writeFile(t, filepath.Join(dir, "lib", "greeter.rb"), "class Greeter\n  def hello\n    \"hi\"\n  end\nend\n")

	s, err := openSession(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "index", "garnet.db"), s.dbPath)
	require.NoError(t, s.engine.IndexDirectory(context.Background(), dir, s.cfg.Exclude))
	summary := summarize(s)
	s.Close()
	assert.Equal(t, 2, summary.Units)
	assert.Zero(t, summary.Unresolved)

	db, err := store.NewStore(filepath.Join(dir, "index", "garnet.db"))
	require.NoError(t, err)
	defer db.Close()
	decls, err := db.DeclarationsNamed("hello")
	require.NoError(t, err)
	require.Len(t, decls, 1)
	assert.Equal(t, "Greeter::hello", decls[0].Name)
	assert.Equal(t, filepath.Join(dir, "lib", "greeter.rb"), decls[0].Path)

	deps, err := db.Dependents(filepath.Join(dir, "lib", "greeter.rb"))
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "main.rb")}, deps)
}

func ptr[T any](v T) *T { return &v }
