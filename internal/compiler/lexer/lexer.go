// Package lexer scans CHTL source text into a token stream.
//
// The scanner itself is grounded on the character-dispatch style of
// other_examples' lukehoban-browser CSS tokenizer (Tokenizer{input, pos},
// one Next() per call, a switch over the lookahead byte) generalized from
// CSS-only tokens to CHTL's full vocabulary, plus the two-word "at top" /
// "at bottom" keyword lookahead and unquoted-literal charset from the
// original CHTLLexer.cpp.
package lexer

import (
	"strings"
	"unicode/utf8"

	"github.com/chtl-lang/chtl/internal/compiler/token"
)

// Lexer scans a single source file into tokens on demand.
type Lexer struct {
	src    string
	pos    int // byte offset of the next unread rune
	line   int
	column int
}

// New returns a Lexer positioned at the start of src.
func New(src string) *Lexer {
	return &Lexer{src: src, pos: 0, line: 1, column: 1}
}

// ScanAll scans src to completion and returns every token, including a
// trailing EOF token. It never returns an error: invalid input becomes an
// Invalid-kind token so the parser can report a precise diagnostic and
// attempt recovery rather than the lexer aborting outright.
func (l *Lexer) ScanAll() []token.Token {
	var toks []token.Token
	for {
		t := l.Next()
		toks = append(toks, t)
		if t.Kind == token.EOF {
			return toks
		}
	}
}

func (l *Lexer) here() token.Position {
	return token.Position{Line: l.line, Column: l.column, Offset: l.pos}
}

func (l *Lexer) peekByte() byte {
	if l.pos >= len(l.src) {
		return 0
	}
	return l.src[l.pos]
}

func (l *Lexer) peekByteAt(off int) byte {
	if l.pos+off >= len(l.src) {
		return 0
	}
	return l.src[l.pos+off]
}

func (l *Lexer) advance() byte {
	c := l.src[l.pos]
	l.pos++
	if c == '\n' {
		l.line++
		l.column = 1
	} else {
		l.column++
	}
	return c
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c >= utf8.RuneSelf
}

func isIdentCont(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9') || c == '-'
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isSpace(c byte) bool { return c == ' ' || c == '\t' || c == '\r' || c == '\n' }

func (l *Lexer) skipSpace() {
	for l.pos < len(l.src) && isSpace(l.peekByte()) {
		l.advance()
	}
}

// Next returns the next token in the stream, consuming whitespace and
// comments along the way. Calling Next past EOF keeps returning EOF.
func (l *Lexer) Next() token.Token {
	l.skipSpace()
	if l.pos >= len(l.src) {
		return token.Token{Kind: token.EOF, Position: l.here()}
	}
	start := l.here()
	c := l.peekByte()

	switch {
	case c == '/' && l.peekByteAt(1) == '/':
		return l.scanLineComment(start)
	case c == '/' && l.peekByteAt(1) == '*':
		return l.scanBlockComment(start)
	case c == '-' && l.peekByteAt(1) == '-':
		return l.scanGeneratorComment(start)
	case c == '"':
		return l.scanString(start, '"', token.DoubleQuotedString)
	case c == '\'':
		return l.scanString(start, '\'', token.SingleQuotedString)
	case isDigit(c):
		return l.scanNumber(start)
	case isIdentStart(c):
		return l.scanWord(start)
	}

	l.advance()
	switch c {
	case '{':
		return token.Token{Kind: token.LBrace, Lexeme: "{", Position: start}
	case '}':
		return token.Token{Kind: token.RBrace, Lexeme: "}", Position: start}
	case '[':
		return token.Token{Kind: token.LBracket, Lexeme: "[", Position: start}
	case ']':
		return token.Token{Kind: token.RBracket, Lexeme: "]", Position: start}
	case '(':
		return token.Token{Kind: token.LParen, Lexeme: "(", Position: start}
	case ')':
		return token.Token{Kind: token.RParen, Lexeme: ")", Position: start}
	case ';':
		return token.Token{Kind: token.Semicolon, Lexeme: ";", Position: start}
	case ',':
		return token.Token{Kind: token.Comma, Lexeme: ",", Position: start}
	case '.':
		return token.Token{Kind: token.Dot, Lexeme: ".", Position: start}
	case '/':
		return token.Token{Kind: token.Slash, Lexeme: "/", Position: start}
	case '*':
		return token.Token{Kind: token.Star, Lexeme: "*", Position: start}
	case '<':
		return token.Token{Kind: token.LAngle, Lexeme: "<", Position: start}
	case '>':
		return token.Token{Kind: token.RAngle, Lexeme: ">", Position: start}
	case '&':
		return token.Token{Kind: token.Ampersand, Lexeme: "&", Position: start}
	case '@':
		return token.Token{Kind: token.At, Lexeme: "@", Position: start}
	case '#':
		return token.Token{Kind: token.Hash, Lexeme: "#", Position: start}
	case ':':
		return token.Token{Kind: token.Colon, Lexeme: ":", Position: start}
	case '=':
		return token.Token{Kind: token.Equals, Lexeme: "=", Position: start}
	case '%':
		// Unit suffix in a property value (100%); the parser reassembles
		// raw value text from source offsets, so a one-char literal is
		// enough here.
		return token.Token{Kind: token.UnquotedLiteral, Lexeme: "%", Position: start}
	default:
		return token.Token{Kind: token.Invalid, Lexeme: string(c), Position: start}
	}
}

func (l *Lexer) scanLineComment(start token.Position) token.Token {
	var b strings.Builder
	l.advance() // '/'
	l.advance() // '/'
	for l.pos < len(l.src) && l.peekByte() != '\n' {
		b.WriteByte(l.advance())
	}
	return token.Token{Kind: token.LineComment, Lexeme: b.String(), Position: start}
}

func (l *Lexer) scanGeneratorComment(start token.Position) token.Token {
	var b strings.Builder
	l.advance() // '-'
	l.advance() // '-'
	for l.pos < len(l.src) && l.peekByte() != '\n' {
		b.WriteByte(l.advance())
	}
	return token.Token{Kind: token.GeneratorComment, Lexeme: strings.TrimSpace(b.String()), Position: start}
}

func (l *Lexer) scanBlockComment(start token.Position) token.Token {
	var b strings.Builder
	l.advance() // '/'
	l.advance() // '*'
	for l.pos < len(l.src) {
		if l.peekByte() == '*' && l.peekByteAt(1) == '/' {
			l.advance()
			l.advance()
			return token.Token{Kind: token.BlockComment, Lexeme: b.String(), Position: start}
		}
		b.WriteByte(l.advance())
	}
	// Unterminated: return what we have; the parser reports the error.
	return token.Token{Kind: token.Invalid, Lexeme: b.String(), Position: start}
}

func (l *Lexer) scanString(start token.Position, quote byte, kind token.Kind) token.Token {
	var b strings.Builder
	l.advance() // opening quote
	for l.pos < len(l.src) && l.peekByte() != quote {
		c := l.advance()
		if c == '\\' && l.pos < len(l.src) {
			b.WriteByte(l.unescape(l.advance()))
			continue
		}
		b.WriteByte(c)
	}
	if l.pos >= len(l.src) {
		return token.Token{Kind: token.Invalid, Lexeme: b.String(), Position: start}
	}
	l.advance() // closing quote
	return token.Token{Kind: kind, Lexeme: b.String(), Position: start}
}

func (l *Lexer) unescape(c byte) byte {
	switch c {
	case 'n':
		return '\n'
	case 't':
		return '\t'
	case 'r':
		return '\r'
	default:
		return c
	}
}

func (l *Lexer) scanNumber(start token.Position) token.Token {
	var b strings.Builder
	for l.pos < len(l.src) && isDigit(l.peekByte()) {
		b.WriteByte(l.advance())
	}
	if l.peekByte() == '.' && isDigit(l.peekByteAt(1)) {
		b.WriteByte(l.advance())
		for l.pos < len(l.src) && isDigit(l.peekByte()) {
			b.WriteByte(l.advance())
		}
	}
	// Trailing unit suffix (px, em, %, ...) is part of an unquoted
	// literal in property-value position; the number token itself stays
	// numeric-only and the parser reattaches adjacent identifier/percent
	// tokens when reconstructing raw value text.
	return token.Token{Kind: token.Number, Lexeme: b.String(), Position: start}
}

// twoWordKeywords maps ("at", second-word) pairs that the lexer fuses into
// a single token, mirroring the original's "at top" / "at bottom"
// compound keywords.
var twoWordKeywords = map[string]token.Kind{
	"top":    token.KwAtTop,
	"bottom": token.KwAtBottom,
}

func (l *Lexer) scanWord(start token.Position) token.Token {
	var b strings.Builder
	for l.pos < len(l.src) && isIdentCont(l.peekByte()) {
		b.WriteByte(l.advance())
	}
	word := b.String()

	if word == "at" {
		if k, second, ok := l.peekSecondWord(); ok {
			return token.Token{Kind: k, Lexeme: "at " + second, Position: start}
		}
	}
	if k, ok := token.LookupWord(word); ok {
		return token.Token{Kind: k, Lexeme: word, Position: start}
	}
	return token.Token{Kind: token.Identifier, Lexeme: word, Position: start}
}

// peekSecondWord looks past intervening whitespace for a bare word and,
// if it matches a known two-word keyword continuation, consumes it and
// reports success.
func (l *Lexer) peekSecondWord() (token.Kind, string, bool) {
	save := *l
	l.skipSpace()
	if l.pos >= len(l.src) || !isIdentStart(l.peekByte()) {
		*l = save
		return 0, "", false
	}
	var b strings.Builder
	for l.pos < len(l.src) && isIdentCont(l.peekByte()) {
		b.WriteByte(l.advance())
	}
	word := strings.ToLower(b.String())
	if k, ok := twoWordKeywords[word]; ok {
		return k, word, true
	}
	*l = save
	return 0, "", false
}
