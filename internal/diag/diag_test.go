package diag_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/garnet/internal/diag"
	"github.com/jward/garnet/internal/syntax"
)

func TestBuilderEmitsToBag(t *testing.T) {
	t.Parallel()
	var bag diag.Bag
	at := syntax.NewRange(2, 4, 2, 7)

	diag.New(&bag, diag.Hint, diag.Semantic, "a.rb", at, "undefined variable or method: `foo`").
		WithNote(at, "did you mean `for`?").
		Emit()

	require.Equal(t, 1, bag.Len())
	d := bag.Items()[0]
	assert.Equal(t, diag.Hint, d.Severity)
	assert.Equal(t, "a.rb:2:4: hint: undefined variable or method: `foo`", d.String())
	require.Len(t, d.Notes, 1)
	assert.False(t, bag.HasErrors())

	diag.New(&bag, diag.Error, diag.Parser, "a.rb", at, "syntax error").Emit()
	assert.True(t, bag.HasErrors())
	assert.Equal(t, "parser", bag.Items()[1].Category.String())
}
