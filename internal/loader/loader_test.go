package loader

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeTree creates files (slash-separated, relative to root) with empty
// contents.
func writeTree(t *testing.T, root string, files ...string) {
	t.Helper()
	for _, f := range files {
		path := filepath.Join(root, filepath.FromSlash(f))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, nil, 0o644))
	}
}

func TestSearchPaths_Resolve(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeTree(t, root, "app/main.rb", "app/helpers/format.rb", "lib/json.rb")
	from := filepath.Join(root, "app", "main.rb")
	s := NewSearchPaths(nil, filepath.Join(root, "lib"))
	ctx := context.Background()

	tests := []struct {
		name     string
		required string
		relative bool
		want     []string
	}{
		{"relative", "helpers/format", true, []string{filepath.Join(root, "app", "helpers", "format.rb")}},
		{"relative with extension", "helpers/format.rb", true, []string{filepath.Join(root, "app", "helpers", "format.rb")}},
		{"load path", "json", false, []string{filepath.Join(root, "lib", "json.rb")}},
		{"missing", "yaml", false, nil},
		{"plain require ignores file directory", "helpers/format", false, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Resolve(ctx, tt.required, from, tt.relative)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSearchPaths_List(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeTree(t, root, "app/main.rb", "app/util.rb", "lib/json.rb", "lib/json/ext.rb", "lib/README")
	s := NewSearchPaths(nil, filepath.Join(root, "lib"))

	got, err := s.List(context.Background(), filepath.Join(root, "app", "main.rb"))
	require.NoError(t, err)
	assert.Equal(t, []string{"json", "json/ext", "main", "util"}, got)
}

func TestChain_FirstNonEmpty(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeTree(t, root, "a/x.rb", "b/x.rb", "b/y.rb")
	chain := Chain{
		NewSearchPaths(nil, filepath.Join(root, "a")),
		NewSearchPaths(nil, filepath.Join(root, "b")),
	}
	ctx := context.Background()

	got, err := chain.Resolve(ctx, "x", filepath.Join(root, "main.rb"), false)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(root, "a", "x.rb")}, got)

	got, err = chain.Resolve(ctx, "y", filepath.Join(root, "main.rb"), false)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(root, "b", "y.rb")}, got)
}

func TestRails_Implicit(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeTree(t, root, "app/models/user.rb", "app/views/show.rb", "lib/auth.rb", "lib/billing/invoice.rb")
	r := NewRails(root, nil)

	got := r.Implicit(filepath.Join(root, "app", "models", "user.rb"))
	assert.Equal(t, []string{
		filepath.Join(root, "lib", "auth.rb"),
		filepath.Join(root, "lib", "billing", "invoice.rb"),
	}, got)

	assert.Empty(t, r.Implicit(filepath.Join(root, "app", "views", "show.rb")))
	assert.Empty(t, r.Implicit(filepath.Join(t.TempDir(), "models", "x.rb")), "outside the application")
}

func TestDiscover_Excludes(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeTree(t, root, "a.rb", "lib/b.rb", "vendor/c.rb", ".git/d.rb", "notes.txt", "spec/e_spec.rb")
	isRuby := func(p string) bool { return filepath.Ext(p) == ".rb" }

	got, err := Discover(root, []string{"vendor/**", "**/*_spec.rb"}, isRuby)
	require.NoError(t, err)
	abs, err := filepath.Abs(root)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(abs, "a.rb"), filepath.Join(abs, "lib", "b.rb")}, got)
}

func TestScript_Resolve(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeTree(t, root, "vendor/gems/rack.rb")
	from := filepath.Join(root, "main.rb")

	src := `
result := []
candidate := join(dir(from), "vendor", "gems", required + ".rb")
if exists(candidate) {
    result.append(candidate)
}
result
`
	s := NewScript("resolver.risor", src, nil)
	ctx := context.Background()

	got, err := s.Resolve(ctx, "rack", from, false)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(root, "vendor", "gems", "rack.rb")}, got)

	got, err = s.Resolve(ctx, "sinatra", from, false)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestScript_RelativeResults(t *testing.T) {
	t.Parallel()
	s := NewScript("inline", `"lib/" + required + ".rb"`, nil)
	got, err := s.Resolve(context.Background(), "x", "/app/main.rb", false)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Clean("/app/lib/x.rb")}, got)
}

func TestScript_Errors(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	_, err := NewScript("bad", `42`, nil).Resolve(ctx, "x", "/a.rb", false)
	assert.ErrorContains(t, err, "list of strings")

	_, err = NewScript("syntax", `[1,`, nil).Resolve(ctx, "x", "/a.rb", false)
	assert.ErrorContains(t, err, "loader: script syntax")
}
