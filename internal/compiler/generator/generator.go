// Package generator emits HTML/CSS/JS from a fully resolved CHTL AST
// (every TemplateUse already expanded by internal/compiler/template).
//
// Grounded on the original CHTL/CHTLCompiler/Generator/CHTLGenerator.h for
// the scoped-selector/'&'-rewrite contract, and on the teacher's
// services/trace/ast/css_parser.go for CSS rule/selector shape, adapted
// from extraction to emission. MinifyOutput runs the emitted HTML/CSS
// through github.com/tdewolff/minify/v2, the same pair AndrewCouncil-hugo
// uses for its own minified output.
package generator

import (
	"fmt"
	"html"
	"strings"

	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	htmlmin "github.com/tdewolff/minify/v2/html"

	"github.com/chtl-lang/chtl/internal/compiler/ast"
)

// TranspileJS is the CHTL-JS collaborator injection point (spec §4.5/§9):
// the generator stays oblivious to CHTL-JS internals and simply calls this
// function on each raw script block's content. A nil value means no
// collaborator is configured and script content passes through verbatim.
type TranspileJS func(raw string) (string, error)

// Options controls emission (spec §6.1).
type Options struct {
	IndentString     string
	MinifyOutput     bool
	PreserveComments bool
	OutputCharset    string
	Transpile        TranspileJS
}

// DefaultOptions returns the spec's documented defaults.
func DefaultOptions() Options {
	return Options{IndentString: "  ", MinifyOutput: false, PreserveComments: true, OutputCharset: "utf-8"}
}

var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "link": true, "meta": true,
	"param": true, "source": true, "track": true, "wbr": true,
}

// Generator walks a resolved arena, producing HTML/CSS/JS output strings.
type Generator struct {
	opts         Options
	scopeCounter int
	cssRules     []string
	jsChunks     []string
}

// New returns a Generator configured by opts.
func New(opts Options) *Generator {
	return &Generator{opts: opts}
}

// Generate emits HTML, CSS, and JS for the document rooted at h. JS errors
// from a configured TranspileJS collaborator are collected but do not stop
// HTML/CSS emission — spec §7 treats emit-phase diagnostics per-phase, not
// as a single all-or-nothing failure.
func (g *Generator) Generate(a *ast.Arena, h ast.Handle) (htmlOut, cssOut, jsOut string, errs []error) {
	var b strings.Builder
	doc := a.Get(h)
	for _, c := range doc.Children {
		g.emitTopLevel(&b, a, c, 0, &errs)
	}
	htmlOut = b.String()
	cssOut = strings.Join(g.cssRules, "\n")
	jsOut = strings.Join(g.jsChunks, "\n")

	// indent/newline already suppress the whitespace this Generator would
	// otherwise introduce between tags; MinifyOutput additionally runs the
	// result through tdewolff/minify, which understands HTML/CSS grammar
	// well enough to safely collapse whatever whitespace and comments
	// survive emission (e.g. inside text nodes, or CSS rule bodies).
	if g.opts.MinifyOutput {
		htmlOut, cssOut = g.minify(htmlOut, cssOut, &errs)
	}
	return htmlOut, cssOut, jsOut, errs
}

func (g *Generator) minify(htmlIn, cssIn string, errs *[]error) (string, string) {
	m := minify.New()
	m.AddFunc("text/html", htmlmin.Minify)
	m.AddFunc("text/css", css.Minify)

	htmlOut, err := m.String("text/html", htmlIn)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("minify html: %w", err))
		htmlOut = htmlIn
	}
	cssOut := cssIn
	if cssIn != "" {
		cssOut, err = m.String("text/css", cssIn)
		if err != nil {
			*errs = append(*errs, fmt.Errorf("minify css: %w", err))
			cssOut = cssIn
		}
	}
	return htmlOut, cssOut
}

func (g *Generator) emitTopLevel(b *strings.Builder, a *ast.Arena, h ast.Handle, depth int, errs *[]error) {
	n := a.Get(h)
	switch n.Kind {
	case ast.KindUseDecl:
		if n.UseDeclIsHTML5 {
			b.WriteString("<!DOCTYPE html>\n")
		}
	case ast.KindElement:
		g.emitElement(b, a, h, depth, errs)
	case ast.KindComment:
		g.emitComment(b, n, depth)
	case ast.KindStyleBlock:
		g.emitGlobalStyle(a, n)
	case ast.KindScriptBlock:
		if js, ok := g.transpileScript(n, errs); ok {
			g.jsChunks = append(g.jsChunks, js)
		}
	case ast.KindOriginDef:
		// Named definitions are registration sites only; their content is
		// inlined wherever the matching origin use appears. Anonymous
		// blocks emit in place.
		if n.Name == "" {
			g.emitOrigin(b, n, depth)
		}
	case ast.KindNamespace:
		for _, c := range n.Children {
			g.emitTopLevel(b, a, c, depth, errs)
		}
	}
}

// emitGlobalStyle passes a document-level style block's rules through
// unscoped; properties with no enclosing selector have nothing to attach
// to and are dropped.
func (g *Generator) emitGlobalStyle(a *ast.Arena, block *ast.Node) {
	for _, c := range block.Children {
		cn := a.Get(c)
		if cn.Kind == ast.KindStyleRule {
			g.cssRules = append(g.cssRules, renderRule(cn.Name, flattenStyleProps(a, cn)))
		}
	}
}

// emitOrigin routes an origin block's raw content to the output stream its
// kind targets; @Html and user-defined @Custom content lands in the markup
// verbatim.
func (g *Generator) emitOrigin(b *strings.Builder, n *ast.Node, depth int) {
	raw := strings.TrimSpace(n.Text)
	if raw == "" {
		return
	}
	switch n.OriginKind {
	case ast.OriginStyle:
		g.cssRules = append(g.cssRules, raw)
	case ast.OriginJavaScript:
		g.jsChunks = append(g.jsChunks, raw)
	default:
		g.indent(b, depth)
		b.WriteString(raw)
		g.newline(b)
	}
}

func (g *Generator) indent(b *strings.Builder, depth int) {
	if g.opts.MinifyOutput {
		return
	}
	b.WriteString(strings.Repeat(g.opts.IndentString, depth))
}

func (g *Generator) newline(b *strings.Builder) {
	if !g.opts.MinifyOutput {
		b.WriteByte('\n')
	}
}

func (g *Generator) emitElement(b *strings.Builder, a *ast.Arena, h ast.Handle, depth int, errs *[]error) {
	n := a.Get(h)
	attrs := append([]ast.Attr(nil), n.Attrs...)

	var styleBlock *ast.Node
	var scriptBlocks []*ast.Node
	var contentChildren []ast.Handle
	for _, c := range n.Children {
		cn := a.Get(c)
		switch cn.Kind {
		case ast.KindStyleBlock:
			styleBlock = cn
		case ast.KindScriptBlock:
			scriptBlocks = append(scriptBlocks, cn)
		default:
			contentChildren = append(contentChildren, c)
		}
	}

	var scopeSelector string
	if styleBlock != nil {
		scopeSelector = g.scopeSelectorFor(attrs)
		if scopeSelector == "" {
			g.scopeCounter++
			class := fmt.Sprintf("chtl-s%d", g.scopeCounter)
			attrs = appendOrMergeClass(attrs, class)
			scopeSelector = "." + class
		}
		g.emitStyleBlock(a, styleBlock, scopeSelector)
	}

	g.indent(b, depth)
	b.WriteByte('<')
	b.WriteString(n.Name)
	for _, attr := range attrs {
		fmt.Fprintf(b, " %s=%q", attr.Name, html.EscapeString(attr.Value))
	}
	if voidElements[strings.ToLower(n.Name)] {
		b.WriteString(" />")
		g.newline(b)
		for _, sb := range scriptBlocks {
			if js, ok := g.transpileScript(sb, errs); ok {
				g.jsChunks = append(g.jsChunks, js)
			}
		}
		return
	}
	b.WriteByte('>')

	emitCharset := strings.EqualFold(n.Name, "head") && g.opts.OutputCharset != ""
	hasBlockContent := len(contentChildren) > 0 || len(scriptBlocks) > 0 || emitCharset
	if hasBlockContent {
		g.newline(b)
	}
	if emitCharset {
		g.indent(b, depth+1)
		fmt.Fprintf(b, "<meta charset=%q />", g.opts.OutputCharset)
		g.newline(b)
	}
	for _, c := range contentChildren {
		g.emitChild(b, a, c, depth+1, errs)
	}
	for _, sb := range scriptBlocks {
		js, ok := g.transpileScript(sb, errs)
		if !ok {
			continue
		}
		g.jsChunks = append(g.jsChunks, js)
		g.indent(b, depth+1)
		b.WriteString("<script>")
		b.WriteString(strings.TrimSpace(js))
		b.WriteString("</script>")
		g.newline(b)
	}
	if hasBlockContent {
		g.indent(b, depth)
	}
	fmt.Fprintf(b, "</%s>", n.Name)
	g.newline(b)
}

func (g *Generator) emitChild(b *strings.Builder, a *ast.Arena, h ast.Handle, depth int, errs *[]error) {
	n := a.Get(h)
	switch n.Kind {
	case ast.KindElement:
		g.emitElement(b, a, h, depth, errs)
	case ast.KindText:
		g.indent(b, depth)
		b.WriteString(html.EscapeString(n.Text))
		g.newline(b)
	case ast.KindComment:
		g.emitComment(b, n, depth)
	case ast.KindOriginDef:
		g.emitOrigin(b, n, depth)
	}
}

// emitComment writes a '--' generator comment as an HTML comment when
// PreserveComments is set. Line and block comments are never emitted.
func (g *Generator) emitComment(b *strings.Builder, n *ast.Node, depth int) {
	if !n.IsGenerator || !g.opts.PreserveComments {
		return
	}
	g.indent(b, depth)
	b.WriteString("<!-- ")
	b.WriteString(n.Text)
	b.WriteString(" -->")
	g.newline(b)
}

// scopeSelectorFor returns "#id" if attrs already carries an id, else "".
func (g *Generator) scopeSelectorFor(attrs []ast.Attr) string {
	for _, a := range attrs {
		if a.Name == "id" {
			return "#" + a.Value
		}
	}
	return ""
}

func appendOrMergeClass(attrs []ast.Attr, class string) []ast.Attr {
	for i, a := range attrs {
		if a.Name == "class" {
			attrs[i].Value = strings.TrimSpace(a.Value + " " + class)
			return attrs
		}
	}
	return append(attrs, ast.Attr{Name: "class", Value: class})
}

// emitStyleBlock turns a local style block into one or more CSS rules
// scoped under scopeSelector, rewriting a leading '&' in nested rules to
// the scope selector (spec §4.5).
func (g *Generator) emitStyleBlock(a *ast.Arena, block *ast.Node, scopeSelector string) {
	props := flattenStyleProps(a, block)
	if len(props) > 0 {
		g.cssRules = append(g.cssRules, renderRule(scopeSelector, props))
	}
	for _, c := range block.Children {
		cn := a.Get(c)
		switch cn.Kind {
		case ast.KindStyleRule:
			selector := rewriteAmpersand(cn.Name, scopeSelector)
			ruleProps := flattenStyleProps(a, cn)
			g.cssRules = append(g.cssRules, renderRule(selector, ruleProps))
		case ast.KindStyleBlock:
			// A @Style template mixed into this block (post-resolve):
			// its Attrs flatten into the enclosing rule, already
			// accounted for by flattenStyleProps above.
		case ast.KindOriginDef:
			if raw := strings.TrimSpace(cn.Text); raw != "" {
				g.cssRules = append(g.cssRules, raw)
			}
		}
	}
}

// flattenStyleProps collects a style node's own Attrs plus those of any
// directly nested KindStyleBlock children (template mix-ins resolved in
// place), preserving first-seen order with later values overriding.
func flattenStyleProps(a *ast.Arena, n *ast.Node) []ast.Attr {
	merged := map[string]string{}
	var order []string
	collect := func(attrs []ast.Attr) {
		for _, attr := range attrs {
			if _, seen := merged[attr.Name]; !seen {
				order = append(order, attr.Name)
			}
			merged[attr.Name] = attr.Value
		}
	}
	collect(n.Attrs)
	for _, c := range n.Children {
		cn := a.Get(c)
		if cn.Kind == ast.KindStyleBlock {
			collect(flattenStyleProps(a, cn))
		}
	}
	out := make([]ast.Attr, 0, len(order))
	for _, name := range order {
		out = append(out, ast.Attr{Name: name, Value: merged[name]})
	}
	return out
}

func rewriteAmpersand(selector, scope string) string {
	if strings.HasPrefix(selector, "&") {
		return scope + strings.TrimPrefix(selector, "&")
	}
	return selector
}

func renderRule(selector string, props []ast.Attr) string {
	var b strings.Builder
	b.WriteString(selector)
	b.WriteString(" {\n")
	for _, p := range props {
		fmt.Fprintf(&b, "  %s: %s;\n", p.Name, p.Value)
	}
	b.WriteString("}")
	return b.String()
}

// transpileScript hands a script block's raw content to the configured
// CHTL-JS collaborator, or passes it through unchanged when none is set.
func (g *Generator) transpileScript(n *ast.Node, errs *[]error) (string, bool) {
	raw := n.Text
	if g.opts.Transpile != nil {
		out, err := g.opts.Transpile(raw)
		if err != nil {
			*errs = append(*errs, err)
			return "", false
		}
		raw = out
	}
	return raw, true
}

