package repl

import (
	"bytes"
	"io"
	"lox/internal/util"
	"strings"
	"syscall"
	"testing"
	"time"
)

// script feeds fixed lines to the session and records the prompts shown.
type script struct {
	lines   []string
	prompts []string
	history []string
}

func (s *script) Prompt(prompt string) (string, error) {
	s.prompts = append(s.prompts, prompt)
	if len(s.lines) == 0 {
		return "", io.EOF
	}
	line := s.lines[0]
	s.lines = s.lines[1:]
	return line, nil
}

func (s *script) AppendHistory(item string) {
	s.history = append(s.history, item)
}

func runScript(t *testing.T, lines ...string) (string, string, *script) {
	t.Helper()
	var out, errOut bytes.Buffer
	cfg := util.DefaultConfiguration()
	cfg.Color = false
	cfg.ShowContext = false

	s := &script{lines: lines}
	session := NewSession(cfg, &out, &errOut, strings.NewReader(""))
	defer session.Close()
	session.Run(s)
	return out.String(), errOut.String(), s
}

func TestSessionKeepsState(t *testing.T) {
	out, errOut, _ := runScript(t,
		"var a = 1;",
		"fun inc() { a = a + 1; return a; }",
		"inc();",
		"print a;",
	)
	if errOut != "" {
		t.Errorf("unexpected errors: %q", errOut)
	}
	if out != "2\n\n" {
		t.Errorf("output wrong: %q", out)
	}
}

func TestBareExpressionIsPrinted(t *testing.T) {
	out, errOut, _ := runScript(t, "1 + 2", `"a" + "b"`, "x = 1")
	if out != "3\nab\n\n" {
		t.Errorf("output wrong: %q", out)
	}
	if errOut != "[line 1:1] Undefined variable 'x'.\n" {
		t.Errorf("errors wrong: %q", errOut)
	}
}

func TestContinuationLines(t *testing.T) {
	out, errOut, s := runScript(t,
		"fun add(a, b) {",
		"  return a + b;",
		"}",
		"print add(",
		"  2, 3);",
		`print "two`,
		`lines";`,
	)
	if errOut != "" {
		t.Errorf("unexpected errors: %q", errOut)
	}
	if out != "5\ntwo\nlines\n\n" {
		t.Errorf("output wrong: %q", out)
	}

	expectedPrompts := []string{"> ", ". ", ". ", "> ", ". ", "> ", ". ", "> "}
	if strings.Join(s.prompts, "|") != strings.Join(expectedPrompts, "|") {
		t.Errorf("prompts wrong: %q", s.prompts)
	}
	if len(s.history) != 3 || s.history[0] != "fun add(a, b) {   return a + b; }" {
		t.Errorf("history wrong: %q", s.history)
	}
}

func TestParseErrorsAreReportedAndSkipped(t *testing.T) {
	out, errOut, _ := runScript(t, "print ;", "print 1;")
	if out != "1\n\n" {
		t.Errorf("output wrong: %q", out)
	}
	if errOut != "[line 1:7] Error at ';': Expect expression.\n" {
		t.Errorf("errors wrong: %q", errOut)
	}
}

func TestQuit(t *testing.T) {
	out, _, s := runScript(t, ":help", ":quit", "print 1;")
	if out != "unknown command. Type :quit to exit.\n" {
		t.Errorf("output wrong: %q", out)
	}
	if len(s.lines) != 1 {
		t.Errorf(":quit should stop reading")
	}
}

func TestIncomplete(t *testing.T) {
	tests := []struct {
		src      string
		expected bool
	}{
		{"print 1;", false},
		{"{", true},
		{"fun f() {", true},
		{"f(1,", true},
		{`print "open`, true},
		{"}", false},
		{"// just a comment (", false},
	}

	for _, tt := range tests {
		if got := incomplete(tt.src); got != tt.expected {
			t.Errorf("incomplete(%q) = %t, want %t", tt.src, got, tt.expected)
		}
	}
}

func TestWatchTermStops(t *testing.T) {
	stop, done := watchTerm(func() { t.Error("no signal was sent") })
	stop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("watcher still running after stop")
	}
}

func TestWatchTermRunsHandler(t *testing.T) {
	called := make(chan struct{})
	stop, done := watchTerm(func() { close(called) })

	if err := syscall.Kill(syscall.Getpid(), syscall.SIGTERM); err != nil {
		t.Fatal(err)
	}
	select {
	case <-called:
	case <-time.After(time.Second):
		t.Fatal("handler not called")
	}
	<-done
	stop()
}
