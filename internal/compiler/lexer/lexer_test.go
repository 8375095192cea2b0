package lexer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/chtl-lang/chtl/internal/compiler/lexer"
	"github.com/chtl-lang/chtl/internal/compiler/token"
)

func kinds(toks []token.Token) []token.Kind {
	out := make([]token.Kind, len(toks))
	for i, t := range toks {
		out[i] = t.Kind
	}
	return out
}

func TestScanAll_Structural(t *testing.T) {
	toks := lexer.New(`div { text { "hi" } }`).ScanAll()
	assert.Equal(t, []token.Kind{
		token.Identifier, token.LBrace,
		token.KwText, token.LBrace,
		token.DoubleQuotedString,
		token.RBrace, token.RBrace,
		token.EOF,
	}, kinds(toks))
}

func TestScanAll_CEEquivalencePair(t *testing.T) {
	colon := lexer.New(`id: box;`).ScanAll()
	equals := lexer.New(`id = box;`).ScanAll()
	assert.Equal(t, token.Colon, colon[1].Kind)
	assert.Equal(t, token.Equals, equals[1].Kind)
	// Distinct lexer tokens; the parser is responsible for CE-equivalence.
	assert.NotEqual(t, colon[1].Kind, equals[1].Kind)
}

func TestScanAll_AtTopAtBottomFused(t *testing.T) {
	toks := lexer.New(`insert at top { }`).ScanAll()
	assert.Equal(t, token.KwInsert, toks[0].Kind)
	assert.Equal(t, token.KwAtTop, toks[1].Kind)
	assert.Equal(t, "at top", toks[1].Lexeme)
}

func TestScanAll_AtNotFollowedByTopStaysPlainWords(t *testing.T) {
	toks := lexer.New(`at home`).ScanAll()
	assert.Equal(t, token.Identifier, toks[0].Kind)
	assert.Equal(t, "at", toks[0].Lexeme)
	assert.Equal(t, token.Identifier, toks[1].Kind)
}

func TestScanAll_Comments(t *testing.T) {
	toks := lexer.New("// line\n/* block */\n-- gen comment\n").ScanAll()
	assert.Equal(t, token.LineComment, toks[0].Kind)
	assert.Equal(t, token.BlockComment, toks[1].Kind)
	assert.Equal(t, token.GeneratorComment, toks[2].Kind)
	assert.Equal(t, "gen comment", toks[2].Lexeme)
}

func TestScanAll_BracketAndTypeTags(t *testing.T) {
	toks := lexer.New(`[Template] @Style Box {}`).ScanAll()
	assert.Equal(t, []token.Kind{
		token.LBracket, token.Identifier, token.RBracket,
		token.At, token.Identifier,
		token.Identifier, token.LBrace, token.RBrace, token.EOF,
	}, kinds(toks))
}

func TestScanAll_Positions(t *testing.T) {
	toks := lexer.New("div {\n  text\n}").ScanAll()
	assert.Equal(t, token.Position{Line: 1, Column: 1, Offset: 0}, toks[0].Position)
	// "text" is on line 2, indented two columns in.
	assert.Equal(t, 2, toks[2].Position.Line)
	assert.Equal(t, 3, toks[2].Position.Column)
}

func TestScanAll_StringEscapes(t *testing.T) {
	toks := lexer.New(`"a\nb"`).ScanAll()
	assert.Equal(t, "a\nb", toks[0].Lexeme)
}

func TestScanAll_ClassAndIDSelectorCharsStayRaw(t *testing.T) {
	// '.' and '#' are single-char tokens at the lexer level; selector text
	// assembly is the parser's job.
	toks := lexer.New(`.box #id`).ScanAll()
	assert.Equal(t, token.Dot, toks[0].Kind)
	assert.Equal(t, token.Identifier, toks[1].Kind)
	assert.Equal(t, token.Hash, toks[2].Kind)
	assert.Equal(t, token.Identifier, toks[3].Kind)
}
