// Package diag is where parse and runtime errors end up. The interpreter and
// the parser only decide when to report; a Reporter decides how.
package diag

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"lox/internal/lexer"
	"lox/internal/log"
	"lox/internal/object"
	"lox/internal/parser"
	"lox/internal/util"
	"strings"
	"sync"
)

type Reporter interface {
	Report(line int, column *int, message string)
}

// Format renders a report as "[line N:C] message", or "[line N] message"
// when there is no column.
func Format(line int, column *int, message string) string {
	if column != nil {
		return fmt.Sprintf("[line %d:%d] %s", line, *column, message)
	}
	return fmt.Sprintf("[line %d] %s", line, message)
}

// ReportError sends err to r with the location the error carries. Errors of
// unknown type are reported against line 0.
func ReportError(r Reporter, err error) {
	var (
		scanErr    *lexer.ScanError
		parseErr   *parser.ParseError
		runtimeErr *object.RuntimeError
	)

	switch {
	case errors.As(err, &scanErr):
		col := scanErr.Column
		r.Report(scanErr.Line, &col, "Error: "+scanErr.Message)
	case errors.As(err, &parseErr):
		col := parseErr.Token.Column
		r.Report(parseErr.Token.Line, columnOrNil(col), parseErr.Detail())
	case errors.As(err, &runtimeErr):
		col := runtimeErr.Token.Column
		r.Report(runtimeErr.Token.Line, columnOrNil(col), runtimeErr.Message)
	default:
		r.Report(0, nil, err.Error())
	}
}

// hand-built tokens carry no column
func columnOrNil(col int) *int {
	if col < 1 {
		return nil
	}
	return &col
}

type Option func(*Writer)

// WithColor enables ANSI colour. It only takes effect when the output is a
// terminal.
func WithColor(enabled bool) Option {
	return func(w *Writer) {
		w.color = enabled && log.IsTerminal(w.out)
	}
}

// WithContext shows the offending source line under each report.
func WithContext(enabled bool) Option {
	return func(w *Writer) {
		w.context = enabled
	}
}

func WithSource(src string) Option {
	return func(w *Writer) {
		w.src = src
	}
}

// Writer prints reports to an io.Writer, one per line.
type Writer struct {
	out     io.Writer
	src     string
	color   bool
	context bool

	mu sync.Mutex
}

func NewWriter(out io.Writer, opts ...Option) *Writer {
	w := &Writer{out: out}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// SetSource replaces the source text used for context lines.
func (w *Writer) SetSource(src string) {
	w.mu.Lock()
	w.src = src
	w.mu.Unlock()
}

func (w *Writer) Report(line int, column *int, message string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	logReport(line, column, message)

	var sb strings.Builder
	if w.color {
		loc := strings.TrimSuffix(Format(line, column, ""), " ")
		sb.WriteString(log.Paint(log.Grey, loc))
		sb.WriteString(" ")
		sb.WriteString(log.Paint(log.Red, message))
	} else {
		sb.WriteString(Format(line, column, message))
	}
	sb.WriteString("\n")

	if w.context && w.src != "" {
		col := 0
		if column != nil {
			col = *column
		}
		if ctx := util.GetContextLines(w.src, line, col); ctx != "" {
			sb.WriteString(ctx)
			sb.WriteString("\n")
		}
	}

	io.WriteString(w.out, sb.String())
}

type Report struct {
	Line    int
	Column  *int
	Message string
}

func (r Report) String() string {
	return Format(r.Line, r.Column, r.Message)
}

// Collector keeps reports in memory.
type Collector struct {
	mu      sync.Mutex
	reports []Report
}

func (c *Collector) Report(line int, column *int, message string) {
	logReport(line, column, message)

	c.mu.Lock()
	c.reports = append(c.reports, Report{Line: line, Column: column, Message: message})
	c.mu.Unlock()
}

func (c *Collector) Reports() []Report {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Report(nil), c.reports...)
}

// Messages returns every report formatted as by Format.
func (c *Collector) Messages() []string {
	reports := c.Reports()
	out := make([]string, len(reports))
	for i, r := range reports {
		out[i] = r.String()
	}
	return out
}

func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.reports)
}

func (c *Collector) Reset() {
	c.mu.Lock()
	c.reports = nil
	c.mu.Unlock()
}

func logReport(line int, column *int, message string) {
	attrs := []any{slog.Int("line", line), slog.String("message", message)}
	if column != nil {
		attrs = append(attrs, slog.Int("column", *column))
	}
	slog.Debug("diagnostic reported", attrs...)
}
