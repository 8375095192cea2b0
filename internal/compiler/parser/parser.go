// Package parser implements CHTL's recursive-descent parser: a token
// stream becomes an *ast.Document plus a diagnostic bag.
//
// Grounded on other_examples' btouchard-gmx parser.go: two-token lookahead
// (cur/peek), expectPeek-style mandatory-token consumption that records a
// diagnostic and keeps going rather than panicking, and a synchronize()
// that skips to the next top-level statement boundary after an error.
package parser

import (
	"strings"

	"github.com/chtl-lang/chtl/internal/compiler/ast"
	"github.com/chtl-lang/chtl/internal/compiler/diag"
	"github.com/chtl-lang/chtl/internal/compiler/lexer"
	"github.com/chtl-lang/chtl/internal/compiler/token"
)

// Parser consumes a pre-scanned token stream for one source file.
type Parser struct {
	src    string
	toks   []token.Token
	pos    int
	arena  *ast.Arena
	bag    *diag.Bag
}

// Parse lexes src and parses it into a Document node. Every diagnostic
// recorded during parsing is added to the caller's bag; the caller decides how
// to react to errors (spec §6.1 stop_on_first_error).
func Parse(src string, bag *diag.Bag) (*ast.Arena, ast.Handle) {
	toks := lexer.New(src).ScanAll()
	p := &Parser{src: src, toks: toks, arena: ast.NewArena(), bag: bag}
	doc := p.parseDocument()
	return p.arena, doc
}

func (p *Parser) cur() token.Token {
	if p.pos >= len(p.toks) {
		return token.Token{Kind: token.EOF}
	}
	return p.toks[p.pos]
}

func (p *Parser) peek() token.Token {
	if p.pos+1 >= len(p.toks) {
		return token.Token{Kind: token.EOF}
	}
	return p.toks[p.pos+1]
}

func (p *Parser) advance() token.Token {
	t := p.cur()
	if p.pos < len(p.toks) {
		p.pos++
	}
	return t
}

func (p *Parser) check(k token.Kind) bool { return p.cur().Kind == k }

func (p *Parser) match(k token.Kind) bool {
	if p.check(k) {
		p.advance()
		return true
	}
	return false
}

// expect consumes the current token if it matches k, else records an error
// diagnostic and leaves the token stream where it is so synchronize() can
// decide how to recover.
func (p *Parser) expect(k token.Kind) (token.Token, bool) {
	if p.check(k) {
		return p.advance(), true
	}
	p.errorf("expected %s, got %s (%q)", k, p.cur().Kind, p.cur().Lexeme)
	return token.Token{}, false
}

func (p *Parser) errorf(format string, args ...any) {
	p.bag.Add(diag.New(diag.PhaseParse, diag.FromToken(p.cur().Position), format, args...))
}

// synchronize skips tokens until the next top-level statement boundary: a
// closing brace, a semicolon, or a bracket-prefix keyword start, matching
// the grounding parser's RAW_*-token / RBRACE boundary recovery.
func (p *Parser) synchronize() {
	for !p.check(token.EOF) {
		switch p.cur().Kind {
		case token.Semicolon:
			p.advance()
			return
		case token.RBrace:
			p.advance()
			return
		case token.LBracket:
			return
		}
		p.advance()
	}
}

func (p *Parser) parseDocument() ast.Handle {
	doc := p.arena.Add(ast.Node{Kind: ast.KindDocument})
	var children []ast.Handle
	for !p.check(token.EOF) {
		before := p.pos
		h, ok := p.parseTopLevel()
		if ok {
			children = append(children, h)
		}
		if p.pos == before {
			// Guard against infinite loops on unrecognized input.
			p.errorf("unexpected token %s (%q)", p.cur().Kind, p.cur().Lexeme)
			p.advance()
		}
	}
	p.arena.Get(doc).Children = children
	return doc
}

func (p *Parser) parseTopLevel() (ast.Handle, bool) {
	switch p.cur().Kind {
	case token.LineComment, token.BlockComment, token.GeneratorComment:
		return p.parseComment(), true
	case token.LBracket:
		return p.parseBracketConstruct()
	case token.KwUse:
		return p.parseUseDecl()
	case token.KwStyle:
		return p.parseStyleBlock(), true
	case token.KwScript:
		return p.parseScriptBlock(), true
	case token.At:
		return p.parseTemplateUse()
	case token.Identifier:
		return p.parseElement()
	default:
		p.errorf("unexpected top-level token %s (%q)", p.cur().Kind, p.cur().Lexeme)
		p.synchronize()
		return ast.NoHandle, false
	}
}

func (p *Parser) parseComment() ast.Handle {
	t := p.advance()
	return p.arena.Add(ast.Node{
		Kind:        ast.KindComment,
		Pos:         t.Position,
		Text:        t.Lexeme,
		IsGenerator: t.Kind == token.GeneratorComment,
	})
}

// parseElement parses `tagname { ... }`.
func (p *Parser) parseElement() (ast.Handle, bool) {
	nameTok := p.advance()
	n := ast.Node{Kind: ast.KindElement, Pos: nameTok.Position, Name: nameTok.Lexeme}
	if _, ok := p.expect(token.LBrace); !ok {
		p.synchronize()
		return ast.NoHandle, false
	}
	var attrs []ast.Attr
	var children []ast.Handle
	for !p.check(token.RBrace) && !p.check(token.EOF) {
		if p.isAttribute() {
			attrs = append(attrs, p.parseAttribute())
			continue
		}
		before := p.pos
		h, ok := p.parseElementMember()
		if ok {
			children = append(children, h)
		}
		if p.pos == before {
			p.errorf("unexpected token in element body: %s (%q)", p.cur().Kind, p.cur().Lexeme)
			p.advance()
		}
	}
	p.expect(token.RBrace)
	n.Attrs = attrs
	n.Children = children
	h := p.arena.Add(n)
	return h, true
}

// isAttribute reports whether the parser is looking at `Identifier (':'|'=')`,
// the CE-equivalent attribute/property form, as opposed to a nested element
// (`Identifier '{'`) or a bare template/use statement.
func (p *Parser) isAttribute() bool {
	if p.cur().Kind != token.Identifier {
		return false
	}
	return p.peek().Kind == token.Colon || p.peek().Kind == token.Equals
}

func (p *Parser) parseAttribute() ast.Attr {
	nameTok := p.advance()
	sep := p.advance() // Colon or Equals
	value := p.captureValueUntil(token.Semicolon)
	p.match(token.Semicolon)
	return ast.Attr{Name: nameTok.Lexeme, Value: value, Colon: sep.Kind == token.Colon}
}

// captureValueUntil slices raw source text from the current position up to
// (not including) the next token of kind stop, trimming surrounding space.
// Values are free-form (hex colors, units, quoted strings, Group(...) var
// references) so the parser never re-interprets their internal tokens. A
// value that is a single quoted string yields the string's processed
// content, quotes and escapes resolved.
func (p *Parser) captureValueUntil(stop token.Kind) string {
	if p.check(stop) || p.check(token.EOF) {
		return ""
	}
	first := p.cur()
	startOff := first.Position.Offset
	count := 0
	for !p.check(stop) && !p.check(token.EOF) && !p.check(token.RBrace) {
		p.advance()
		count++
	}
	if count == 1 && first.Is(token.DoubleQuotedString, token.SingleQuotedString) {
		return first.Lexeme
	}
	endOff := p.cur().Position.Offset
	if endOff > len(p.src) {
		endOff = len(p.src)
	}
	return strings.TrimSpace(p.src[startOff:endOff])
}

func (p *Parser) parseElementMember() (ast.Handle, bool) {
	switch p.cur().Kind {
	case token.LineComment, token.BlockComment, token.GeneratorComment:
		return p.parseComment(), true
	case token.KwText:
		return p.parseTextBlock(), true
	case token.KwStyle:
		return p.parseStyleBlock(), true
	case token.KwScript:
		return p.parseScriptBlock(), true
	case token.At:
		return p.parseTemplateUse()
	case token.LBracket:
		return p.parseBracketConstruct()
	case token.KwInherit:
		return p.parseInheritStatement(), true
	case token.KwDelete:
		return p.parseDeleteStatement(), true
	case token.KwInsert:
		return p.parseInsertStatement(), true
	case token.KwExcept:
		return p.parseExceptClause(), true
	case token.Identifier:
		return p.parseElement()
	default:
		return ast.NoHandle, false
	}
}

// parseExceptClause parses a scope constraint: `except span, @Style Bad;`
// disallows the named elements/templates anywhere in the containing scope.
func (p *Parser) parseExceptClause() ast.Handle {
	pos := p.advance().Position // 'except'
	n := ast.Node{Kind: ast.KindExceptClause, Pos: pos}
	for {
		var target string
		switch {
		case p.check(token.At):
			p.advance()
			tagTok, _ := p.expect(token.Identifier)
			nameTok, _ := p.expect(token.Identifier)
			target = "@" + tagTok.Lexeme + " " + nameTok.Lexeme
		case p.check(token.LBracket):
			p.advance()
			kwTok, _ := p.expect(token.Identifier)
			p.expect(token.RBracket)
			target = "[" + kwTok.Lexeme + "]"
		default:
			target = p.advance().Lexeme
		}
		n.Targets = append(n.Targets, target)
		if !p.match(token.Comma) {
			break
		}
	}
	p.match(token.Semicolon)
	return p.arena.Add(n)
}

// parseTextBlock parses `text { "literal" }` (or an unquoted literal body).
func (p *Parser) parseTextBlock() ast.Handle {
	tok := p.advance() // 'text'
	p.expect(token.LBrace)
	var b strings.Builder
	for !p.check(token.RBrace) && !p.check(token.EOF) {
		t := p.advance()
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(t.Lexeme)
	}
	p.expect(token.RBrace)
	return p.arena.Add(ast.Node{Kind: ast.KindText, Pos: tok.Position, Text: b.String()})
}

// parseStyleBlock parses a local `style { ... }` block: direct CE-pair
// properties and nested selector rules (`.cls { ... }`, `&:hover { ... }`).
func (p *Parser) parseStyleBlock() ast.Handle {
	tok := p.advance() // 'style'
	p.expect(token.LBrace)
	var attrs []ast.Attr
	var children []ast.Handle
	for !p.check(token.RBrace) && !p.check(token.EOF) {
		if p.isAttribute() {
			attrs = append(attrs, p.parseAttribute())
			continue
		}
		// '@' must win over the selector-rule lookahead: a use site with a
		// specialisation body (`@Style T { ... }`) also has a '{' before
		// the next ';' but is not a selector rule. `inherit @Style T;` in a
		// style block is the same mix-in with an explicit keyword.
		if p.cur().Kind == token.KwInherit {
			p.advance()
		}
		if p.cur().Kind == token.At {
			if h, ok := p.parseTemplateUse(); ok {
				children = append(children, h)
				continue
			}
		}
		if p.cur().Kind == token.LBracket {
			// Fully-qualified use ([Template] @Style Box;) or an origin
			// reference embedded among the properties.
			if h, ok := p.parseBracketConstruct(); ok {
				children = append(children, h)
			}
			continue
		}
		if p.looksLikeSelectorRule() {
			children = append(children, p.parseStyleRule())
			continue
		}
		p.errorf("unexpected token in style block: %s (%q)", p.cur().Kind, p.cur().Lexeme)
		p.advance()
	}
	p.expect(token.RBrace)
	if len(attrs) == 0 && len(children) == 0 {
		p.bag.Add(diag.Warn(diag.PhaseParse, diag.FromToken(tok.Position), "empty style block"))
	}
	return p.arena.Add(ast.Node{Kind: ast.KindStyleBlock, Pos: tok.Position, Attrs: attrs, Children: children})
}

// looksLikeSelectorRule scans ahead (without consuming) for a '{' before
// the next ';' or '}', which distinguishes a nested selector rule from a
// CE-pair property.
func (p *Parser) looksLikeSelectorRule() bool {
	for i := p.pos; i < len(p.toks); i++ {
		switch p.toks[i].Kind {
		case token.LBrace:
			return true
		case token.Semicolon, token.RBrace, token.EOF:
			return false
		}
	}
	return false
}

func (p *Parser) parseStyleRule() ast.Handle {
	startOff := p.cur().Position.Offset
	startPos := p.cur().Position
	for !p.check(token.LBrace) && !p.check(token.EOF) {
		p.advance()
	}
	endOff := p.cur().Position.Offset
	selector := strings.TrimSpace(p.src[startOff:endOff])
	p.expect(token.LBrace)
	var attrs []ast.Attr
	var children []ast.Handle
	for !p.check(token.RBrace) && !p.check(token.EOF) {
		if p.isAttribute() {
			attrs = append(attrs, p.parseAttribute())
			continue
		}
		p.advance()
	}
	p.expect(token.RBrace)
	return p.arena.Add(ast.Node{Kind: ast.KindStyleRule, Pos: startPos, Name: selector, Attrs: attrs, Children: children})
}

// parseScriptBlock captures the raw brace-balanced content of a local
// `script { ... }` block verbatim; CHTL-JS transpilation of that content is
// an external collaborator's concern (spec §4.5/§9), never re-parsed here.
func (p *Parser) parseScriptBlock() ast.Handle {
	tok := p.advance() // 'script'
	p.expect(token.LBrace)
	startOff := p.cur().Position.Offset
	depth := 1
	for depth > 0 && !p.check(token.EOF) {
		switch p.cur().Kind {
		case token.LBrace:
			depth++
		case token.RBrace:
			depth--
			if depth == 0 {
				endOff := p.cur().Position.Offset
				raw := p.src[startOff:endOff]
				p.advance()
				return p.arena.Add(ast.Node{Kind: ast.KindScriptBlock, Pos: tok.Position, Text: raw})
			}
		}
		p.advance()
	}
	return p.arena.Add(ast.Node{Kind: ast.KindScriptBlock, Pos: tok.Position, Text: p.src[startOff:]})
}

// parseTemplateUse parses a bare `@Style Name;` / `@Element Name { ... }`
// or a fully-qualified `[Template] @Style Name` use site. The '[' path is
// routed here from parseBracketConstruct when it is followed by a type tag
// rather than a definition body.
func (p *Parser) parseTemplateUse() (ast.Handle, bool) {
	pos := p.cur().Position
	fullPrefix := false
	isCustom := false
	if p.check(token.LBracket) {
		fullPrefix = true
		p.advance()
		kwTok, _ := p.expect(token.Identifier)
		isCustom = kwTok.Lexeme == "Custom"
		p.expect(token.RBracket)
	}
	if _, ok := p.expect(token.At); !ok {
		return ast.NoHandle, false
	}
	tagTok, ok := p.expect(token.Identifier)
	if !ok {
		return ast.NoHandle, false
	}
	tk, known := token.LookupTypeTag(tagTok.Lexeme)
	if !known {
		p.errorf("unknown type tag @%s", tagTok.Lexeme)
	}
	nameTok, ok := p.expect(token.Identifier)
	if !ok {
		return ast.NoHandle, false
	}
	n := ast.Node{
		Kind:         ast.KindTemplateUse,
		Pos:          pos,
		Name:         nameTok.Lexeme,
		TemplateKind: typeTagToTemplateKind(tk),
		IsCustom:     isCustom,
		FullPrefix:   fullPrefix,
		Specialization: ast.NoHandle,
	}
	if p.check(token.LBracket) {
		// Index access: `@Element Card[1];` uses only the merged
		// template's i-th top-level child.
		p.advance()
		idxTok, _ := p.expect(token.Number)
		p.expect(token.RBracket)
		n.TargetSelector = "[" + idxTok.Lexeme + "]"
	}
	if p.check(token.LBrace) {
		n.Specialization = p.parseSpecializationBlock()
	} else {
		p.match(token.Semicolon)
	}
	return p.arena.Add(n), true
}

func typeTagToTemplateKind(k token.Kind) ast.TemplateKind {
	switch k {
	case token.AtElement:
		return ast.TemplateElement
	case token.AtVar:
		return ast.TemplateVar
	default:
		return ast.TemplateStyle
	}
}

// parseSpecializationBlock parses the body following a template/custom use
// site: override properties/children plus delete/insert operations.
func (p *Parser) parseSpecializationBlock() ast.Handle {
	tok := p.advance() // '{'
	var attrs []ast.Attr
	var children []ast.Handle
	for !p.check(token.RBrace) && !p.check(token.EOF) {
		switch {
		case p.isAttribute():
			attrs = append(attrs, p.parseAttribute())
		case p.check(token.KwDelete):
			children = append(children, p.parseDeleteStatement())
		case p.check(token.KwInsert):
			children = append(children, p.parseInsertStatement())
		case p.check(token.Identifier) && p.peek().Kind == token.LParen:
			children = append(children, p.parseVarOverride())
		case p.check(token.Identifier):
			if h, ok := p.parseElement(); ok {
				children = append(children, h)
			}
		case p.check(token.At):
			if h, ok := p.parseTemplateUse(); ok {
				children = append(children, h)
			}
		default:
			p.advance()
		}
	}
	p.expect(token.RBrace)
	return p.arena.Add(ast.Node{Kind: ast.KindDocument, Pos: tok.Position, Attrs: attrs, Children: children})
}

// parseVarOverride parses a per-use variable override inside a
// specialisation block: `Theme(primary = green);` rebinds that variable for
// this use site only.
func (p *Parser) parseVarOverride() ast.Handle {
	groupTok := p.advance()
	p.advance() // '('
	nameTok, _ := p.expect(token.Identifier)
	n := ast.Node{
		Kind:    ast.KindVarUse,
		Pos:     groupTok.Position,
		Target:  groupTok.Lexeme,
		VarName: nameTok.Lexeme,
	}
	if p.check(token.Equals) || p.check(token.Colon) {
		p.advance()
		n.Override = p.captureValueUntil(token.RParen)
		n.HasOverride = true
	}
	p.expect(token.RParen)
	p.match(token.Semicolon)
	return p.arena.Add(n)
}

// parseInheritStatement parses `inherit @Style Parent;` or the bare
// shorthand `@Style Parent;` when reached directly (Explicit distinguishes
// the two for diagnostics only; both produce the same edge semantics).
func (p *Parser) parseInheritStatement() ast.Handle {
	pos := p.cur().Position
	explicit := p.match(token.KwInherit)
	p.expect(token.At)
	tagTok, _ := p.expect(token.Identifier)
	tk, _ := token.LookupTypeTag(tagTok.Lexeme)
	nameTok, _ := p.expect(token.Identifier)
	p.match(token.Semicolon)
	return p.arena.Add(ast.Node{
		Kind:         ast.KindInherit,
		Pos:          pos,
		TemplateKind: typeTagToTemplateKind(tk),
		Target:       nameTok.Lexeme,
		Explicit:     explicit,
	})
}

// parseDeleteStatement parses `delete prop1, prop2;`, `delete div[0];`, or
// `delete @Style Parent;` (inheritance-edge deletion), resolving
// DeleteTargetKind once here rather than re-deriving it later.
func (p *Parser) parseDeleteStatement() ast.Handle {
	pos := p.advance().Position // 'delete'
	n := ast.Node{Kind: ast.KindDelete, Pos: pos}
	if p.check(token.At) {
		p.advance()
		tagTok, _ := p.expect(token.Identifier)
		nameTok, _ := p.expect(token.Identifier)
		_ = tagTok
		n.DeleteTargetKind = ast.DeleteInheritance
		n.Targets = []string{nameTok.Lexeme}
	} else {
		for {
			var target string
			if p.check(token.LBracket) {
				// Bare index form: `delete [0];` addresses the merged
				// template's children positionally with no tag filter.
				p.advance()
				idxTok, _ := p.expect(token.Number)
				p.expect(token.RBracket)
				target = "[" + idxTok.Lexeme + "]"
				n.DeleteTargetKind = ast.DeleteElement
			} else {
				target = p.advance().Lexeme
				if p.check(token.LBracket) {
					p.advance()
					idxTok, _ := p.expect(token.Number)
					p.expect(token.RBracket)
					target = target + "[" + idxTok.Lexeme + "]"
					n.DeleteTargetKind = ast.DeleteElement
				} else {
					n.DeleteTargetKind = ast.DeleteProperty
				}
			}
			n.Targets = append(n.Targets, target)
			if !p.match(token.Comma) {
				break
			}
		}
	}
	p.match(token.Semicolon)
	return p.arena.Add(n)
}

// parseInsertStatement parses `insert after selector { ... }` and sibling
// position forms, including `insert at top { ... }` / `at bottom`.
func (p *Parser) parseInsertStatement() ast.Handle {
	pos := p.advance().Position // 'insert'
	n := ast.Node{Kind: ast.KindInsert, Pos: pos}
	switch p.cur().Kind {
	case token.KwAfter:
		p.advance()
		n.InsertPosition = ast.InsertAfter
		n.TargetSelector = p.captureSelectorUntilBrace()
	case token.KwBefore:
		p.advance()
		n.InsertPosition = ast.InsertBefore
		n.TargetSelector = p.captureSelectorUntilBrace()
	case token.KwReplace:
		p.advance()
		n.InsertPosition = ast.InsertReplace
		n.TargetSelector = p.captureSelectorUntilBrace()
	case token.KwAtTop:
		p.advance()
		n.InsertPosition = ast.InsertAtTop
	case token.KwAtBottom:
		p.advance()
		n.InsertPosition = ast.InsertAtBottom
	default:
		p.errorf("expected after/before/replace/at top/at bottom, got %s", p.cur().Kind)
	}
	if p.check(token.LBrace) {
		block := p.parseSpecializationBlock()
		n.Children = p.arena.Get(block).Children
	}
	return p.arena.Add(n)
}

func (p *Parser) captureSelectorUntilBrace() string {
	startOff := p.cur().Position.Offset
	for !p.check(token.LBrace) && !p.check(token.EOF) {
		p.advance()
	}
	endOff := p.cur().Position.Offset
	return strings.TrimSpace(p.src[startOff:endOff])
}

// parseUseDecl parses `use html5;` or `use @Namespace Name;`.
func (p *Parser) parseUseDecl() (ast.Handle, bool) {
	pos := p.advance().Position // 'use'
	if p.match(token.KwHTML5) {
		p.match(token.Semicolon)
		return p.arena.Add(ast.Node{Kind: ast.KindUseDecl, Pos: pos, UseDeclIsHTML5: true}), true
	}
	if p.check(token.At) {
		p.advance()
		p.expect(token.Identifier) // "Namespace"
		nameTok, _ := p.expect(token.Identifier)
		p.match(token.Semicolon)
		return p.arena.Add(ast.Node{Kind: ast.KindUseDecl, Pos: pos, Target: nameTok.Lexeme}), true
	}
	p.errorf("expected html5 or @Namespace after use")
	p.synchronize()
	return ast.NoHandle, false
}

// parseBracketConstruct dispatches a '[' Identifier ']' sequence to the
// matching top-level construct, or to parseTemplateUse when what follows
// is a type tag rather than a definition body (fully-qualified use site).
func (p *Parser) parseBracketConstruct() (ast.Handle, bool) {
	save := p.pos
	pos := p.cur().Position
	p.advance() // '['
	nameTok, ok := p.expect(token.Identifier)
	if !ok {
		p.pos = save
		p.synchronize()
		return ast.NoHandle, false
	}
	p.expect(token.RBracket)
	kw, known := token.LookupBracketKeyword(nameTok.Lexeme)
	if !known {
		p.errorf("unknown bracket keyword [%s]", nameTok.Lexeme)
		p.synchronize()
		return ast.NoHandle, false
	}
	switch kw {
	case token.KwTemplate, token.KwCustom:
		if p.templateRefIsUse() {
			p.pos = save
			return p.parseTemplateUse()
		}
		return p.parseTemplateOrCustomDef(pos, kw == token.KwCustom), true
	case token.KwOrigin:
		return p.parseOriginConstruct(pos)
	case token.KwImport:
		return p.parseImportStmt(pos), true
	case token.KwNamespace:
		return p.parseNamespace(pos), true
	case token.KwConfiguration:
		return p.parseConfigurationBlock(pos), true
	case token.KwInfo, token.KwExport:
		// Module metadata blocks ([Info] { ... } / [Export] { ... })
		// belong to the CMOD packer, which is outside this compiler;
		// they parse cleanly and emit nothing.
		return p.parseMetadataBlock(pos), true
	case token.KwName, token.KwOriginType:
		p.errorf("[%s] is only valid inside a [Configuration] block", nameTok.Lexeme)
		p.synchronize()
		return ast.NoHandle, false
	default:
		p.synchronize()
		return ast.NoHandle, false
	}
}

// parseMetadataBlock consumes a brace-balanced metadata body, recording
// its attributes but producing a node the generator never emits.
func (p *Parser) parseMetadataBlock(pos token.Position) ast.Handle {
	var attrs []ast.Attr
	if p.match(token.LBrace) {
		for !p.check(token.RBrace) && !p.check(token.EOF) {
			if p.isAttribute() {
				attrs = append(attrs, p.parseAttribute())
				continue
			}
			p.advance()
		}
		p.expect(token.RBrace)
	}
	return p.arena.Add(ast.Node{Kind: ast.KindMetadataBlock, Pos: pos, Attrs: attrs})
}

// templateRefIsUse distinguishes `[Template] @Style Name;` (a fully
// qualified use site) from `[Template] @Style Name { ... }` (a
// definition) after the bracket prefix has been consumed: only the
// semicolon form is a use; a body form preceded by the bracket prefix
// always defines.
func (p *Parser) templateRefIsUse() bool {
	i := p.pos
	if i >= len(p.toks) || p.toks[i].Kind != token.At {
		return false
	}
	i++
	if i >= len(p.toks) || p.toks[i].Kind != token.Identifier {
		return false
	}
	i++
	if i >= len(p.toks) || p.toks[i].Kind != token.Identifier {
		return false
	}
	i++
	// Skip an index-access suffix (`Card[1]`), only ever valid on a use.
	if i+2 < len(p.toks) && p.toks[i].Kind == token.LBracket &&
		p.toks[i+1].Kind == token.Number && p.toks[i+2].Kind == token.RBracket {
		return true
	}
	return i < len(p.toks) && p.toks[i].Kind == token.Semicolon
}

// parseTemplateOrCustomDef parses `[Template] @Style Name { ... }` and the
// `[Custom]` equivalent, including any `inherit`/bare-@ inheritance edges
// declared in the body.
func (p *Parser) parseTemplateOrCustomDef(pos token.Position, isCustom bool) ast.Handle {
	p.expect(token.At)
	tagTok, _ := p.expect(token.Identifier)
	tk, _ := token.LookupTypeTag(tagTok.Lexeme)
	nameTok, _ := p.expect(token.Identifier)
	p.expect(token.LBrace)

	var attrs []ast.Attr
	var children []ast.Handle
	var inherits []ast.Handle
	var specOps []ast.Handle
	for !p.check(token.RBrace) && !p.check(token.EOF) {
		switch {
		case p.check(token.KwInherit):
			inherits = append(inherits, p.parseInheritStatement())
		case p.check(token.KwDelete):
			// A definition-body delete/insert specialises the content this
			// definition inherits, before any use-site specialisation.
			specOps = append(specOps, p.parseDeleteStatement())
		case p.check(token.KwInsert):
			specOps = append(specOps, p.parseInsertStatement())
		case p.check(token.At) && p.peekIsInheritShorthand():
			inherits = append(inherits, p.parseInheritStatement())
		case p.isAttribute():
			attrs = append(attrs, p.parseAttribute())
		case p.check(token.Identifier) && p.peek().Is(token.Semicolon, token.Comma):
			// Valueless property list (`color;` or `color, background;`):
			// a Custom definition's required properties, which every use
			// site must fill in before emission.
			for {
				t := p.advance()
				attrs = append(attrs, ast.Attr{Name: t.Lexeme})
				if !p.match(token.Comma) {
					break
				}
			}
			p.match(token.Semicolon)
		case p.check(token.Identifier):
			if h, ok := p.parseElement(); ok {
				children = append(children, h)
			}
		case p.check(token.At):
			if h, ok := p.parseTemplateUse(); ok {
				children = append(children, h)
			}
		default:
			p.advance()
		}
	}
	p.expect(token.RBrace)

	kind := ast.KindTemplateDef
	if isCustom {
		kind = ast.KindCustomDef
	}
	spec := ast.NoHandle
	if len(specOps) > 0 {
		spec = p.arena.Add(ast.Node{Kind: ast.KindDocument, Pos: pos, Children: specOps})
	}
	return p.arena.Add(ast.Node{
		Kind:           kind,
		Pos:            pos,
		Name:           nameTok.Lexeme,
		TemplateKind:   typeTagToTemplateKind(tk),
		IsCustom:       isCustom,
		Attrs:          attrs,
		Children:       children,
		Inherits:       inherits,
		Specialization: spec,
	})
}

// peekIsInheritShorthand reports whether the current '@Tag Name' sequence
// is immediately followed by ';' (a bare inheritance edge) rather than '{'
// or another attribute/value form — only valid at the top of a template
// body, so callers only use this right after checking KindTemplateDef body
// position.
func (p *Parser) peekIsInheritShorthand() bool {
	i := p.pos
	if i >= len(p.toks) || p.toks[i].Kind != token.At {
		return false
	}
	i++
	if i >= len(p.toks) || p.toks[i].Kind != token.Identifier {
		return false
	}
	i++
	if i >= len(p.toks) || p.toks[i].Kind != token.Identifier {
		return false
	}
	i++
	return i < len(p.toks) && p.toks[i].Kind == token.Semicolon
}

// parseOriginConstruct parses both definition (`[Origin] @Html name { raw }`)
// and use (`[Origin] @Html name;`) forms, distinguished by whether a body
// follows.
func (p *Parser) parseOriginConstruct(pos token.Position) (ast.Handle, bool) {
	p.expect(token.At)
	tagTok, _ := p.expect(token.Identifier)
	kind := originKindFromTag(tagTok.Lexeme)
	name := ""
	if p.check(token.Identifier) {
		name = p.advance().Lexeme
	}
	if p.check(token.LBrace) {
		p.advance()
		startOff := p.cur().Position.Offset
		depth := 1
		for depth > 0 && !p.check(token.EOF) {
			switch p.cur().Kind {
			case token.LBrace:
				depth++
			case token.RBrace:
				depth--
				if depth == 0 {
					endOff := p.cur().Position.Offset
					raw := p.src[startOff:endOff]
					p.advance()
					return p.arena.Add(ast.Node{Kind: ast.KindOriginDef, Pos: pos, Name: name, OriginKind: kind, Text: raw}), true
				}
			}
			p.advance()
		}
		return p.arena.Add(ast.Node{Kind: ast.KindOriginDef, Pos: pos, Name: name, OriginKind: kind, Text: p.src[startOff:]}), true
	}
	p.match(token.Semicolon)
	return p.arena.Add(ast.Node{Kind: ast.KindOriginUse, Pos: pos, Name: name, OriginKind: kind, Target: name}), true
}

func originKindFromTag(tag string) ast.OriginKind {
	switch strings.ToLower(tag) {
	case "style":
		return ast.OriginStyle
	case "javascript":
		return ast.OriginJavaScript
	case "cjmod", "custom":
		return ast.OriginCustom
	default:
		return ast.OriginHTML
	}
}

// parseImportStmt parses `[Import] @Html from "path" as alias;` and its
// @Style/@JavaScript/@Chtl/@CJmod variants, plus an optional `except` list.
func (p *Parser) parseImportStmt(pos token.Position) ast.Handle {
	p.expect(token.At)
	p.expect(token.Identifier) // type tag name; not recorded on the node
	p.expect(token.KwFrom)
	pathTok := p.advance() // string literal or unquoted path
	n := ast.Node{Kind: ast.KindImportStmt, Pos: pos, Target: pathTok.Lexeme}
	if p.match(token.KwAs) {
		aliasTok, _ := p.expect(token.Identifier)
		n.ImportAlias = aliasTok.Lexeme
	}
	if p.match(token.KwExcept) {
		for {
			t := p.advance()
			n.Except = append(n.Except, t.Lexeme)
			if !p.match(token.Comma) {
				break
			}
		}
	}
	p.match(token.Semicolon)
	return p.arena.Add(n)
}

// parseNamespace parses `[Namespace] name { ... }`.
func (p *Parser) parseNamespace(pos token.Position) ast.Handle {
	nameTok, _ := p.expect(token.Identifier)
	p.expect(token.LBrace)
	var children []ast.Handle
	for !p.check(token.RBrace) && !p.check(token.EOF) {
		before := p.pos
		h, ok := p.parseTopLevel()
		if ok {
			children = append(children, h)
		}
		if p.pos == before {
			p.advance()
		}
	}
	p.expect(token.RBrace)
	return p.arena.Add(ast.Node{Kind: ast.KindNamespace, Pos: pos, Name: nameTok.Lexeme, Children: children})
}

// parseConfigurationBlock parses `[Configuration] { key = value; ... }`.
// The collected attributes are layered onto the compilation's Options by
// the driver (config.SetOption) before generation; nested `[Name]` /
// `[OriginType]` option groups are parsed and skipped, since keyword
// renaming and user-defined origin kinds sit outside this compiler's
// option surface.
func (p *Parser) parseConfigurationBlock(pos token.Position) ast.Handle {
	p.expect(token.LBrace)
	var attrs []ast.Attr
	for !p.check(token.RBrace) && !p.check(token.EOF) {
		if p.isAttribute() {
			attrs = append(attrs, p.parseAttribute())
			continue
		}
		if p.check(token.LBracket) {
			p.skipBracketGroup()
			continue
		}
		p.advance()
	}
	p.expect(token.RBrace)
	return p.arena.Add(ast.Node{Kind: ast.KindConfigBlock, Pos: pos, Attrs: attrs})
}

// skipBracketGroup consumes a `[Word] { ... }` sub-block (balanced braces)
// without interpreting it.
func (p *Parser) skipBracketGroup() {
	p.advance() // '['
	for !p.check(token.RBracket) && !p.check(token.EOF) {
		p.advance()
	}
	p.match(token.RBracket)
	if !p.match(token.LBrace) {
		return
	}
	depth := 1
	for depth > 0 && !p.check(token.EOF) {
		switch p.cur().Kind {
		case token.LBrace:
			depth++
		case token.RBrace:
			depth--
		}
		p.advance()
	}
}

// ParseVarUse parses a `Group(name)` or `Group(name = override)` reference
// out of a captured attribute/property value string, returning ok=false if
// value does not match that shape. Used by the template engine during
// variable substitution (spec §4.4), not during the main tree parse.
func ParseVarUse(value string) (group, name, override string, hasOverride bool, ok bool) {
	open := strings.IndexByte(value, '(')
	closeParen := strings.LastIndexByte(value, ')')
	if open <= 0 || closeParen <= open {
		return "", "", "", false, false
	}
	group = strings.TrimSpace(value[:open])
	inner := value[open+1 : closeParen]
	if eq := strings.IndexByte(inner, '='); eq >= 0 {
		name = strings.TrimSpace(inner[:eq])
		override = strings.TrimSpace(inner[eq+1:])
		hasOverride = true
	} else {
		name = strings.TrimSpace(inner)
	}
	if group == "" || name == "" {
		return "", "", "", false, false
	}
	return group, name, override, hasOverride, true
}
