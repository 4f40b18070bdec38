package codegen

import (
	"fmt"
	"strings"
)

// writer accumulates indented TypeScript lines.
type writer struct {
	b        strings.Builder
	depth    int
	comments bool
}

func (w *writer) line(format string, args ...any) {
	text := fmt.Sprintf(format, args...)
	if text != "" {
		w.b.WriteString(strings.Repeat("  ", w.depth))
		w.b.WriteString(text)
	}
	w.b.WriteByte('\n')
}

// comment writes a // line only when comments are enabled.
func (w *writer) comment(format string, args ...any) {
	if w.comments {
		w.line("// %s", commentText(fmt.Sprintf(format, args...)))
	}
}

// open writes a line ending in "{" and indents what follows.
func (w *writer) open(format string, args ...any) {
	if format == "" {
		w.line("{")
	} else {
		w.line(format+" {", args...)
	}
	w.depth++
}

// close dedents and writes the closing brace.
func (w *writer) close() {
	w.depth--
	w.line("}")
}

// reopen closes the current block and opens a continuation, as in "} else {".
func (w *writer) reopen(keyword string) {
	w.depth--
	w.line("} %s {", keyword)
	w.depth++
}

func (w *writer) String() string { return w.b.String() }
