// Package completion classifies the text before a cursor and computes
// completion items from an analyzed unit.
package completion

import (
	"strings"
	"unicode"
)

// Kind is the kind of completion a cursor position asks for.
type Kind uint8

const (
	StandardAccess     Kind = iota // anything visible, plus keywords
	MemberAccess                   // expr.
	ModuleMemberAccess             // Name::
	BaseClassAccess                // class Foo <
	MixinAccess                    // include / extend
	FileChoice                     // require / require_relative
)

func (k Kind) String() string {
	switch k {
	case MemberAccess:
		return "member"
	case ModuleMemberAccess:
		return "module-member"
	case BaseClassAccess:
		return "base-class"
	case MixinAccess:
		return "mixin"
	case FileChoice:
		return "file"
	default:
		return "standard"
	}
}

// triggers maps the suffixes that start a special completion to their kind.
var triggers = map[string]Kind{
	".":                MemberAccess,
	"::":               ModuleMemberAccess,
	"<":                BaseClassAccess,
	"include":          MixinAccess,
	"extend":           MixinAccess,
	"require":          FileChoice,
	"require_relative": FileChoice,
}

// lookback is the length of the longest trigger.
const lookback = len("require_relative")

// Classify returns the completion kind for the text preceding the cursor.
func Classify(preceding string) Kind {
	text := compress(preceding)
	trigger := ending(text)
	kind, ok := triggers[trigger]
	if !ok {
		return StandardAccess
	}
	if kind == BaseClassAccess && !insideClassHeader(text) {
		return StandardAccess
	}
	return kind
}

// compress drops trailing whitespace.
func compress(text string) string {
	return strings.TrimRightFunc(text, unicode.IsSpace)
}

// ending returns the longest trigger text ends with, or "".
func ending(text string) string {
	for i := min(len(text), lookback); i > 0; i-- {
		end := text[len(text)-i:]
		if _, ok := triggers[end]; ok {
			return end
		}
	}
	return ""
}

// insideClassHeader reports whether the last '<' of text follows a class
// keyword on the same statement.
func insideClassHeader(text string) bool {
	idx := strings.LastIndex(text, "<")
	if idx < 0 {
		return false
	}
	head := text[:idx]
	class := strings.LastIndex(head, "class")
	stmt := strings.LastIndexAny(head, ";\n")
	return class != -1 && class > stmt
}

// expressionStart returns the offset in text where the expression ending
// text begins. Brackets and string literals are skipped as a whole.
func expressionStart(text string) int {
	depth := 0
	i := len(text)
	for i > 0 {
		c := text[i-1]
		switch {
		case c == ')' || c == ']' || c == '}':
			depth++
		case c == '(' || c == '[' || c == '{':
			if depth == 0 {
				return i
			}
			depth--
		case c == '"' || c == '\'':
			j := strings.LastIndexByte(text[:i-1], c)
			if j < 0 {
				return i
			}
			i = j + 1
		case depth > 0:
		case isExpressionByte(c):
		default:
			return i
		}
		i--
	}
	return 0
}

func isExpressionByte(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	case c >= 0x80:
		return true
	}
	return strings.IndexByte("_@$.:?!", c) >= 0
}
