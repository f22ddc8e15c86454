package repl

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"lox/internal/ast"
	"lox/internal/diag"
	"lox/internal/evaluator"
	"lox/internal/lexer"
	"lox/internal/parser"
	"lox/internal/token"
	"lox/internal/util"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/peterh/liner"
)

const ContinuationPrompt = ". "

// LineReader is the part of liner.State the session needs.
type LineReader interface {
	Prompt(prompt string) (string, error)
}

// Session evaluates chunks of source against one interpreter, so definitions
// persist from one line to the next.
type Session struct {
	config   util.Configuration
	out      io.Writer
	reporter *diag.Writer
	interp   *evaluator.Interpreter
}

func NewSession(config util.Configuration, out, errOut io.Writer, in io.Reader) *Session {
	reporter := diag.NewWriter(errOut,
		diag.WithColor(config.Color),
		diag.WithContext(config.ShowContext))

	return &Session{
		config:   config,
		out:      out,
		reporter: reporter,
		interp: evaluator.New(
			evaluator.WithStdout(out),
			evaluator.WithStdin(in),
			evaluator.WithReporter(reporter)),
	}
}

func (s *Session) Close() error {
	return s.interp.Close()
}

// Run reads chunks from lines until EOF or :quit.
func (s *Session) Run(lines LineReader) {
	prompt := s.config.Prompt
	if prompt == "" {
		prompt = util.DefaultPrompt
	}

	for {
		src, ok := readChunk(lines, prompt, ContinuationPrompt)
		if !ok {
			fmt.Fprintln(s.out)
			return
		}

		trimmed := strings.TrimSpace(src)
		if trimmed == "" {
			continue
		}
		if strings.HasPrefix(trimmed, ":") {
			switch strings.ToLower(trimmed) {
			case ":quit":
				return
			default:
				fmt.Fprintln(s.out, "unknown command. Type :quit to exit.")
			}
			continue
		}

		if h, ok := lines.(interface{ AppendHistory(string) }); ok {
			h.AppendHistory(strings.ReplaceAll(src, "\n", " "))
		}
		s.Eval(src)
	}
}

// Eval runs one chunk. A chunk that only parses with a trailing semicolon and
// holds a single expression is evaluated and its value printed.
func (s *Session) Eval(src string) {
	s.reporter.SetSource(src)

	program, errs := parser.Parse(src)
	if len(errs) > 0 {
		if expr, ok := bareExpression(src); ok {
			val, err := s.interp.Evaluate(expr)
			if err != nil {
				diag.ReportError(s.reporter, err)
				return
			}
			fmt.Fprintln(s.out, val.Inspect())
			return
		}
		for _, err := range errs {
			diag.ReportError(s.reporter, err)
		}
		return
	}

	s.interp.Interpret(program.Statements)
}

func bareExpression(src string) (ast.Expr, bool) {
	program, errs := parser.Parse(src + ";")
	if len(errs) > 0 || len(program.Statements) != 1 {
		return nil, false
	}
	stmt, ok := program.Statements[0].(*ast.Expression)
	if !ok {
		return nil, false
	}
	return stmt.Expr, true
}

// readChunk keeps prompting while the input has unclosed parentheses, braces
// or strings.
func readChunk(lines LineReader, prompt, cont string) (string, bool) {
	var b strings.Builder

	for {
		p := prompt
		if b.Len() > 0 {
			p = cont
		}
		line, err := lines.Prompt(p)
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) {
				return "", true
			}
			return "", false
		}

		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)

		if !incomplete(b.String()) {
			return b.String(), true
		}
	}
}

func incomplete(src string) bool {
	tokens, errs := lexer.Scan(src)
	for _, err := range errs {
		var scanErr *lexer.ScanError
		if errors.As(err, &scanErr) && scanErr.Message == "Unterminated string." {
			return true
		}
	}

	depth := 0
	for _, tok := range tokens {
		switch tok.Type {
		case token.LPAREN, token.LBRACE:
			depth++
		case token.RPAREN, token.RBRACE:
			depth--
		}
	}
	return depth > 0
}

// watchTerm calls onTerm when the process receives SIGTERM. stop unregisters
// the handler and ends the watcher; done is closed once the watcher returns.
func watchTerm(onTerm func()) (stop func(), done <-chan struct{}) {
	sigc := make(chan os.Signal, 1)
	finished := make(chan struct{})
	signal.Notify(sigc, syscall.SIGTERM)

	go func() {
		defer close(finished)
		if _, ok := <-sigc; ok {
			onTerm()
		}
	}()

	stop = func() {
		signal.Stop(sigc)
		close(sigc)
	}
	return stop, finished
}

// Start runs an interactive session on the terminal with line editing and
// history.
func Start(config util.Configuration) {
	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	histPath := config.HistoryFile
	if histPath == "" {
		histPath = util.DefaultHistoryFile()
	}
	if f, err := os.Open(histPath); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}
	defer func() {
		if err := os.MkdirAll(filepath.Dir(histPath), 0o755); err != nil {
			slog.Warn("could not create history directory", slog.Any("error", err))
			return
		}
		f, err := os.Create(histPath)
		if err != nil {
			slog.Warn("could not write history", slog.String("path", histPath), slog.Any("error", err))
			return
		}
		_, _ = ln.WriteHistory(f)
		_ = f.Close()
	}()

	stopWatch, _ := watchTerm(func() {
		ln.Close()
		os.Exit(130)
	})
	defer stopWatch()

	fmt.Printf("lox %s. Type :quit to exit.\n", config.Version)

	session := NewSession(config, os.Stdout, os.Stderr, os.Stdin)
	defer session.Close()
	session.Run(ln)
}
