// Package diag defines the diagnostic model shared by every compiler phase.
package diag

import (
	"errors"
	"fmt"

	"github.com/chtl-lang/chtl/internal/compiler/token"
)

// Phase identifies which pipeline stage produced a Diagnostic.
type Phase string

const (
	PhaseLex        Phase = "lex"
	PhaseParse      Phase = "parse"
	PhaseResolve    Phase = "resolve"
	PhaseInstantiate Phase = "instantiate"
	PhaseEmit       Phase = "emit"
)

// Severity ranks a Diagnostic's impact on compilation.
type Severity int

const (
	SeverityWarning Severity = iota
	SeverityError
)

func (s Severity) String() string {
	if s == SeverityError {
		return "error"
	}
	return "warning"
}

// Diagnostic is a single position-tagged compiler message. Cause, when
// set, carries the sentinel error that classifies the failure, so callers
// can errors.Is a Diagnostic against ErrCycle, ErrUnresolved, and friends
// without string-matching Message.
type Diagnostic struct {
	Position Position
	Phase    Phase
	Severity Severity
	Message  string
	Cause    error
}

// Position is diag's own copy of token.Position to keep this package free
// of a hard dependency on the lexer's internal Position type shape; the two
// are structurally identical and convertible via FromToken.
type Position struct {
	Line   int
	Column int
	Offset int
}

// FromToken converts a token.Position into a diag.Position.
func FromToken(p token.Position) Position {
	return Position{Line: p.Line, Column: p.Column, Offset: p.Offset}
}

func (d Diagnostic) Error() string {
	return fmt.Sprintf("%d:%d: %s: %s", d.Position.Line, d.Position.Column, d.Severity, d.Message)
}

// Unwrap exposes the Cause chain to errors.Is/errors.As.
func (d Diagnostic) Unwrap() error { return d.Cause }

// New builds an error-severity Diagnostic.
func New(phase Phase, pos Position, format string, args ...any) Diagnostic {
	return Diagnostic{Position: pos, Phase: phase, Severity: SeverityError, Message: fmt.Sprintf(format, args...)}
}

// NewCause builds an error-severity Diagnostic classified by the sentinel
// cause, for errors.Is checks at the compiler API boundary.
func NewCause(phase Phase, pos Position, cause error, format string, args ...any) Diagnostic {
	msg := fmt.Sprintf(format, args...)
	return Diagnostic{
		Position: pos,
		Phase:    phase,
		Severity: SeverityError,
		Message:  msg,
		Cause:    Wrap(pos, cause, msg),
	}
}

// Warn builds a warning-severity Diagnostic.
func Warn(phase Phase, pos Position, format string, args ...any) Diagnostic {
	return Diagnostic{Position: pos, Phase: phase, Severity: SeverityWarning, Message: fmt.Sprintf(format, args...)}
}

// Bag accumulates diagnostics across a single compilation and exposes the
// strict_mode / stop_on_first_error policy knobs described by the compiler
// configuration.
type Bag struct {
	Diagnostics     []Diagnostic
	StrictMode      bool
	StopOnFirstError bool
}

// Add appends d to the bag, promoting warnings to errors when StrictMode is
// set. It returns true if the caller should stop compiling (an error was
// recorded and StopOnFirstError is set).
func (b *Bag) Add(d Diagnostic) bool {
	if b.StrictMode && d.Severity == SeverityWarning {
		d.Severity = SeverityError
	}
	b.Diagnostics = append(b.Diagnostics, d)
	return d.Severity == SeverityError && b.StopOnFirstError
}

// HasErrors reports whether any recorded diagnostic is error-severity.
func (b *Bag) HasErrors() bool {
	for _, d := range b.Diagnostics {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Errors returns only the error-severity diagnostics.
func (b *Bag) Errors() []Diagnostic {
	var out []Diagnostic
	for _, d := range b.Diagnostics {
		if d.Severity == SeverityError {
			out = append(out, d)
		}
	}
	return out
}

// Warnings returns only the warning-severity diagnostics.
func (b *Bag) Warnings() []Diagnostic {
	var out []Diagnostic
	for _, d := range b.Diagnostics {
		if d.Severity == SeverityWarning {
			out = append(out, d)
		}
	}
	return out
}

// Sentinel errors classifying the compiler's structural failure modes.
// They flow out of the pipeline on Diagnostic.Cause (built via NewCause)
// and out of the cache on Cache.Get, so callers check them with errors.Is
// rather than matching Message text.
var (
	ErrCycle         = errors.New("chtl: cycle detected")
	ErrUnresolved    = errors.New("chtl: unresolved reference")
	ErrDepthExceeded = errors.New("chtl: nesting depth exceeded")
	ErrCacheMiss     = errors.New("chtl: cache miss")
	ErrIO            = errors.New("chtl: I/O failure")
)

// CompileError wraps a sentinel error with the diagnostic context that
// produced it, so callers can both errors.Is(err, ErrCycle) and read where
// it happened.
type CompileError struct {
	Pos     Position
	Cause   error
	Detail  string
}

func (e *CompileError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%d:%d: %s: %s", e.Pos.Line, e.Pos.Column, e.Cause, e.Detail)
	}
	return fmt.Sprintf("%d:%d: %s", e.Pos.Line, e.Pos.Column, e.Cause)
}

func (e *CompileError) Unwrap() error { return e.Cause }

// Wrap builds a CompileError, preventing double-wrapping of an already
// wrapped CompileError.
func Wrap(pos Position, cause error, detail string) error {
	var ce *CompileError
	if errors.As(cause, &ce) {
		return cause
	}
	return &CompileError{Pos: pos, Cause: cause, Detail: detail}
}
