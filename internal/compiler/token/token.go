// Package token defines the lexical vocabulary of CHTL source text.
package token

import (
	"fmt"
	"strings"
)

// Position locates a token in its source file. Line and Column are
// 1-based; Offset is the 0-based byte offset from the start of the file.
type Position struct {
	Line   int
	Column int
	Offset int
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Kind identifies the lexical category of a Token.
type Kind int

const (
	Invalid Kind = iota
	EOF

	// Literals
	Identifier
	UnquotedLiteral
	DoubleQuotedString
	SingleQuotedString
	Number

	// Comments
	LineComment
	BlockComment
	GeneratorComment

	// Structural punctuation
	LBrace
	RBrace
	LBracket
	RBracket
	LParen
	RParen
	Semicolon
	Comma
	Dot
	Slash
	Star
	Ampersand
	At
	Hash
	LAngle
	RAngle

	// CE-equivalence pair: ':' and '=' are distinct tokens; the parser
	// decides where they're interchangeable.
	Colon
	Equals

	// Word keywords (bare identifiers with reserved meaning)
	KwText
	KwStyle
	KwScript
	KwInherit
	KwDelete
	KwInsert
	KwAfter
	KwBefore
	KwReplace
	KwAtTop
	KwAtBottom
	KwFrom
	KwAs
	KwExcept
	KwUse
	KwHTML5

	// Bracket-prefix keywords: '[' Name ']'
	KwTemplate
	KwCustom
	KwOrigin
	KwImport
	KwConfiguration
	KwNamespace
	KwInfo
	KwExport
	KwName
	KwOriginType

	// Type tags: '@' Name
	AtStyle
	AtElement
	AtVar
	AtHTML
	AtJavaScript
	AtChtl
	AtCJmod
	AtConfig

	// Selectors. Not emitted by the lexer: compound CSS selectors (tag,
	// combinators, commas) are captured as a raw source span by the
	// parser, which only special-cases a leading '&' for scope rewriting.
	// These constants are kept to name the concept in diagnostics and in
	// code that reasons about selector text shape.
	ClassSelector
	IDSelector
	PseudoClass
	PseudoElement

	// Dynamic: any bare word not matching a keyword table is an HTML tag
	// candidate; the parser, not the lexer, decides element-name validity.
	HTMLTag
)

var kindNames = map[Kind]string{
	Invalid:             "INVALID",
	EOF:                 "EOF",
	Identifier:          "IDENTIFIER",
	UnquotedLiteral:     "UNQUOTED_LITERAL",
	DoubleQuotedString:  "DOUBLE_QUOTED_STRING",
	SingleQuotedString:  "SINGLE_QUOTED_STRING",
	Number:              "NUMBER",
	LineComment:         "LINE_COMMENT",
	BlockComment:        "BLOCK_COMMENT",
	GeneratorComment:    "GENERATOR_COMMENT",
	LBrace:              "LBRACE",
	RBrace:              "RBRACE",
	LBracket:            "LBRACKET",
	RBracket:            "RBRACKET",
	LParen:              "LPAREN",
	RParen:              "RPAREN",
	Semicolon:           "SEMICOLON",
	Comma:               "COMMA",
	Dot:                 "DOT",
	Slash:               "SLASH",
	Star:                "STAR",
	Ampersand:           "AMPERSAND",
	At:                  "AT",
	Hash:                "HASH",
	LAngle:              "LANGLE",
	RAngle:              "RANGLE",
	Colon:               "COLON",
	Equals:              "EQUALS",
	KwText:              "text",
	KwStyle:             "style",
	KwScript:            "script",
	KwInherit:           "inherit",
	KwDelete:            "delete",
	KwInsert:            "insert",
	KwAfter:             "after",
	KwBefore:            "before",
	KwReplace:           "replace",
	KwAtTop:             "at top",
	KwAtBottom:          "at bottom",
	KwFrom:              "from",
	KwAs:                "as",
	KwExcept:            "except",
	KwUse:               "use",
	KwHTML5:             "html5",
	KwTemplate:          "[Template]",
	KwCustom:            "[Custom]",
	KwOrigin:            "[Origin]",
	KwImport:            "[Import]",
	KwConfiguration:     "[Configuration]",
	KwNamespace:         "[Namespace]",
	KwInfo:              "[Info]",
	KwExport:            "[Export]",
	KwName:              "[Name]",
	KwOriginType:        "[OriginType]",
	AtStyle:             "@Style",
	AtElement:           "@Element",
	AtVar:               "@Var",
	AtHTML:              "@Html",
	AtJavaScript:        "@JavaScript",
	AtChtl:              "@Chtl",
	AtCJmod:             "@CJmod",
	AtConfig:            "@Config",
	ClassSelector:       "CLASS_SELECTOR",
	IDSelector:          "ID_SELECTOR",
	PseudoClass:         "PSEUDO_CLASS",
	PseudoElement:       "PSEUDO_ELEMENT",
	HTMLTag:             "HTML_TAG",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// wordKeywords maps a bare lowercase identifier to its keyword Kind. Any
// identifier not present here lexes as Identifier (and the parser treats
// unrecognized bare words in element position as HTMLTag).
var wordKeywords = map[string]Kind{
	"text":    KwText,
	"style":   KwStyle,
	"script":  KwScript,
	"inherit": KwInherit,
	"delete":  KwDelete,
	"insert":  KwInsert,
	"after":   KwAfter,
	"before":  KwBefore,
	"replace": KwReplace,
	"from":    KwFrom,
	"as":      KwAs,
	"except":  KwExcept,
	"use":     KwUse,
	"html5":   KwHTML5,
}

// LookupWord returns the keyword Kind for word, and ok=true if word is
// reserved. "at top"/"at bottom" are two-word keywords resolved by the
// lexer's lookahead, not through this table.
func LookupWord(word string) (Kind, bool) {
	k, ok := wordKeywords[word]
	return k, ok
}

// bracketKeywords maps the name inside '[' ']' to its Kind.
var bracketKeywords = map[string]Kind{
	"Template":      KwTemplate,
	"Custom":        KwCustom,
	"Origin":        KwOrigin,
	"Import":        KwImport,
	"Configuration": KwConfiguration,
	"Namespace":     KwNamespace,
	"Info":          KwInfo,
	"Export":        KwExport,
	"Name":          KwName,
	"OriginType":    KwOriginType,
}

// LookupBracketKeyword returns the Kind for a bracket-prefix keyword name.
func LookupBracketKeyword(name string) (Kind, bool) {
	k, ok := bracketKeywords[name]
	return k, ok
}

// typeTags maps the name following '@' to its Kind.
var typeTags = map[string]Kind{
	"Style":      AtStyle,
	"Element":    AtElement,
	"Var":        AtVar,
	"Html":       AtHTML,
	"JavaScript": AtJavaScript,
	"Chtl":       AtChtl,
	"CJmod":      AtCJmod,
	"Config":     AtConfig,
}

// LookupTypeTag returns the Kind for a '@'-prefixed type tag name. The tag
// part is case-insensitive: @style and @STYLE resolve the same as @Style.
func LookupTypeTag(name string) (Kind, bool) {
	if k, ok := typeTags[name]; ok {
		return k, true
	}
	for tag, k := range typeTags {
		if strings.EqualFold(tag, name) {
			return k, true
		}
	}
	return Invalid, false
}

// Token is a single lexical unit: its kind, source text, and position.
type Token struct {
	Kind     Kind
	Lexeme   string
	Position Position
}

func (t Token) String() string {
	return fmt.Sprintf("%s(%q)@%s", t.Kind, t.Lexeme, t.Position)
}

// Is reports whether the token's kind matches any of the given kinds.
func (t Token) Is(kinds ...Kind) bool {
	for _, k := range kinds {
		if t.Kind == k {
			return true
		}
	}
	return false
}
