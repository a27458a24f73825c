package parser

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/garnet/internal/diag"
	"github.com/jward/garnet/internal/syntax"
)

func parse(t *testing.T, src string) *syntax.Program {
	t.Helper()
	p := New()
	defer p.Close()
	prog, problems, err := p.Parse(context.Background(), "test.rb", []byte(src))
	require.NoError(t, err)
	require.Empty(t, problems)
	return prog
}

func TestIsRuby(t *testing.T) {
	t.Parallel()
	tests := map[string]bool{
		"app/models/user.rb": true,
		"lib/tasks/db.rake":  true,
		"garnet.gemspec":     true,
		"config.ru":          true,
		"Rakefile":           true,
		"/src/Gemfile":       true,
		"README.md":          false,
		"main.go":            false,
		"script.RB":          true,
	}
	for path, want := range tests {
		assert.Equal(t, want, IsRuby(path), path)
	}
}

func TestParse_ClassAndMethod(t *testing.T) {
	t.Parallel()
	prog := parse(t, `# Greets people.
class Greeter < Base
  def greet(name, punct = "!")
    "hi"
  end
end
x = 1
`)
	require.Len(t, prog.Stmts, 2)

	cls, ok := prog.Stmts[0].(*syntax.ClassDef)
	require.True(t, ok, "got %T", prog.Stmts[0])
	assert.Equal(t, "Greeter", syntax.NameOf(cls.Name))
	assert.Equal(t, "Base", syntax.NameOf(cls.Superclass))
	assert.Equal(t, "Greets people.", cls.Comment)
	assert.Equal(t, syntax.Position{Line: 1, Column: 0}, cls.Range().Start)

	require.Len(t, cls.Body.Stmts, 1)
	def, ok := cls.Body.Stmts[0].(*syntax.MethodDef)
	require.True(t, ok, "got %T", cls.Body.Stmts[0])
	assert.Equal(t, "greet", def.Name.Name)
	assert.Equal(t, syntax.NewRange(2, 6, 2, 11), def.Name.Range())
	require.Len(t, def.Params, 2)
	assert.Equal(t, syntax.RequiredParam, def.Params[0].Kind)
	assert.Equal(t, "punct", def.Params[1].Name.Name)
	assert.Equal(t, syntax.OptionalParam, def.Params[1].Kind)
	assert.IsType(t, &syntax.String{}, def.Params[1].Default)
	require.Len(t, def.Body.Stmts, 1)
	assert.Equal(t, "hi", def.Body.Stmts[0].(*syntax.String).Value)

	assign, ok := prog.Stmts[1].(*syntax.Assign)
	require.True(t, ok, "got %T", prog.Stmts[1])
	require.Len(t, assign.Targets, 1)
	assert.Equal(t, "x", assign.Targets[0].(*syntax.Ident).Name)
	assert.Equal(t, "1", assign.Values[0].(*syntax.Integer).Text)
}

func TestParse_MultipleAssignment(t *testing.T) {
	t.Parallel()
	prog := parse(t, "a, b = 1, 'x'\n")
	require.Len(t, prog.Stmts, 1)
	assign := prog.Stmts[0].(*syntax.Assign)
	require.Len(t, assign.Targets, 2)
	require.Len(t, assign.Values, 2)
	assert.Equal(t, "b", assign.Targets[1].(*syntax.Ident).Name)
	assert.Equal(t, "x", assign.Values[1].(*syntax.String).Value)
}

func TestParse_ModifierReturn(t *testing.T) {
	t.Parallel()
	prog := parse(t, `def foo(a)
  return nil if a.nil?
  return 'a'
end
`)
	def := prog.Stmts[0].(*syntax.MethodDef)
	require.Len(t, def.Body.Stmts, 2)

	cond, ok := def.Body.Stmts[0].(*syntax.If)
	require.True(t, ok, "got %T", def.Body.Stmts[0])
	call := cond.Cond.(*syntax.Call)
	assert.Equal(t, "nil?", call.Name.Name)
	assert.Equal(t, "a", call.Receiver.(*syntax.Ident).Name)
	require.Len(t, cond.Then, 1)
	assert.IsType(t, &syntax.Nil{}, cond.Then[0].(*syntax.Return).Value)

	ret := def.Body.Stmts[1].(*syntax.Return)
	assert.Equal(t, "a", ret.Value.(*syntax.String).Value)
}

func TestParse_CallWithBlock(t *testing.T) {
	t.Parallel()
	prog := parse(t, "[1, 2].each { |v| puts v }\n")
	call := prog.Stmts[0].(*syntax.Call)
	assert.Equal(t, "each", call.Name.Name)
	assert.Len(t, call.Receiver.(*syntax.Array).Elements, 2)
	require.NotNil(t, call.Block)
	require.Len(t, call.Block.Params, 1)
	assert.Equal(t, "v", call.Block.Params[0].Name.Name)

	require.Len(t, call.Block.Body.Stmts, 1)
	inner := call.Block.Body.Stmts[0].(*syntax.Call)
	assert.Equal(t, "puts", inner.Name.Name)
	assert.Nil(t, inner.Receiver)
	require.Len(t, inner.Args, 1)
	assert.Equal(t, "v", inner.Args[0].(*syntax.Ident).Name)
}

func TestParse_ModuleAndScopedNames(t *testing.T) {
	t.Parallel()
	prog := parse(t, `module Outer
  class Inner; end
end
Outer::Inner.new
`)
	mod := prog.Stmts[0].(*syntax.ModuleDef)
	assert.Equal(t, "Outer", syntax.NameOf(mod.Name))
	require.Len(t, mod.Body.Stmts, 1)
	assert.IsType(t, &syntax.ClassDef{}, mod.Body.Stmts[0])

	call := prog.Stmts[1].(*syntax.Call)
	assert.Equal(t, "new", call.Name.Name)
	assert.Equal(t, []string{"Outer", "Inner"}, syntax.Segments(call.Receiver))
}

func TestParse_SyntaxError(t *testing.T) {
	t.Parallel()
	p := New()
	defer p.Close()
	prog, problems, err := p.Parse(context.Background(), "broken.rb", []byte("def foo(\n  1 +\n"))
	require.ErrorIs(t, err, ErrSyntax)
	require.NotNil(t, prog, "a partial tree is still returned")
	require.NotEmpty(t, problems)
	for _, d := range problems {
		assert.Equal(t, diag.Error, d.Severity)
		assert.Equal(t, diag.Parser, d.Category)
		assert.Equal(t, "broken.rb", d.Unit)
	}
}

func TestParseExpression(t *testing.T) {
	t.Parallel()
	p := New()
	defer p.Close()

	n, err := p.ParseExpression(context.Background(), "\n\n  foo.bar")
	require.NoError(t, err)
	call, ok := n.(*syntax.Call)
	require.True(t, ok, "got %T", n)
	assert.Equal(t, "bar", call.Name.Name)
	assert.Equal(t, syntax.Position{Line: 2, Column: 2}, call.Receiver.Range().Start)

	_, err = p.ParseExpression(context.Background(), "   ")
	assert.Error(t, err)
}
