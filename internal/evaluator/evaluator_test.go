package evaluator

import (
	"bytes"
	"lox/internal/ast"
	"lox/internal/diag"
	"lox/internal/parser"
	"lox/internal/token"
	"strings"
	"testing"
	"time"
)

type result struct {
	out     string
	reports []diag.Report
	ok      bool
}

func (r result) messages() []string {
	out := make([]string, len(r.reports))
	for i, rep := range r.reports {
		out[i] = rep.Message
	}
	return out
}

func run(t *testing.T, src string, opts ...Option) result {
	t.Helper()
	program, errs := parser.Parse(src)
	if len(errs) != 0 {
		t.Fatalf("parse errors: %v", errs)
	}

	var out bytes.Buffer
	c := &diag.Collector{}
	base := []Option{WithStdout(&out), WithReporter(c), WithStdin(strings.NewReader(""))}
	in := New(append(base, opts...)...)
	defer in.Close()

	ok := in.Interpret(program.Statements)
	return result{out: out.String(), reports: c.Reports(), ok: ok}
}

func expectOutput(t *testing.T, src string, expected ...string) {
	t.Helper()
	r := run(t, src)
	if len(r.reports) != 0 {
		t.Fatalf("unexpected runtime errors: %v", r.messages())
	}
	want := strings.Join(expected, "\n") + "\n"
	if r.out != want {
		t.Errorf("output wrong.\nexpected=%q\ngot=     %q", want, r.out)
	}
}

func TestEvalExpressions(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"print 1 + 2 * 3;", "7"},
		{"print (1 + 2) * 3;", "9"},
		{"print 10 / 4;", "2.5"},
		{"print -3;", "-3"},
		{"print --3;", "3"},
		{"print 1 - 2 - 3;", "-4"},
		{"print 0.1 + 0.2;", "0.3"},
		{"print 1 / 0;", "inf"},
		{"print -1 / 0;", "-inf"},
		{"print 1000000000000000000000000000000000000000000000000000;", "inf"},
		{`print "a" + "b";`, "ab"},
		{"print 1 < 2;", "true"},
		{"print 2 <= 1;", "false"},
		{"print 3 > 2;", "true"},
		{"print 3 >= 3;", "true"},
		{"print 1 == 1;", "true"},
		{"print 2 != 2;", "false"},
		{"print !nil;", "true"},
		{"print !0;", "false"},
		{`print !"";`, "false"},
		{"print nil;", "null"},
		{"print null;", "null"},
		{"print true;", "true"},
		{`print "multi word";`, "multi word"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			expectOutput(t, tt.input, tt.expected)
		})
	}
}

func TestVariablesAndAssignment(t *testing.T) {
	expectOutput(t, `
var a;
print a;
a = 3;
print a;
print a = 4;
var b = a = 5;
print b;
var a = "redeclared";
print a;
`, "null", "3", "4", "5", "redeclared")
}

func TestBlockScoping(t *testing.T) {
	expectOutput(t, `
var a = "global a";
var b = "global b";
{
  var a = "outer a";
  {
    var a = "inner a";
    print a;
    print b;
    b = "changed b";
  }
  print a;
}
print a;
print b;
`, "inner a", "global b", "outer a", "global a", "changed b")
}

func TestScopeRestoredAfterError(t *testing.T) {
	r := run(t, `
var a = 1;
{ var a = 2; print missing; }
print a;
`)
	if r.out != "1\n" {
		t.Errorf("expected the global scope back, got %q", r.out)
	}
	if len(r.reports) != 1 || r.reports[0].Message != "Undefined variable 'missing'." {
		t.Errorf("unexpected reports: %v", r.messages())
	}
	if r.reports[0].Line != 3 {
		t.Errorf("error should be on line 3, got %d", r.reports[0].Line)
	}
}

func TestControlFlow(t *testing.T) {
	expectOutput(t, `
if (1 < 2) print "then"; else print "else";
if (nil) print "then"; else print "else";
if (false) print "skipped";
var i = 0;
while (i < 3) { print i; i = i + 1; }
`, "then", "else", "0", "1", "2")
}

func TestForDesugarsLikeWhile(t *testing.T) {
	forLoop := run(t, `for (var i = 0; i < 3; i = i + 1) print i;`)
	whileLoop := run(t, `var i = 0; while (i < 3) { print i; i = i + 1; }`)

	if forLoop.out != "0\n1\n2\n" {
		t.Errorf("for output wrong: %q", forLoop.out)
	}
	if forLoop.out != whileLoop.out {
		t.Errorf("for and while differ: %q vs %q", forLoop.out, whileLoop.out)
	}

	// the loop variable lives in the for's own scope
	r := run(t, `for (var i = 0; i < 1; i = i + 1) {} print i;`)
	if len(r.reports) != 1 {
		t.Errorf("loop variable should not leak: %v", r.messages())
	}
}

func TestShortCircuit(t *testing.T) {
	expectOutput(t, `
fun boom() { print "evaluated"; return true; }
print false and boom();
print true or boom();
print nil or "right";
print 1 and 2;
print "left" or boom();
print false and (1/0);
print true or (1/0);
`, "false", "true", "right", "2", "left", "false", "true")
}

func TestFunctions(t *testing.T) {
	expectOutput(t, `
fun add(a, b) { return a + b; }
print add(1, 2);
fun noReturn() { var x = 1; }
print noReturn();
fun bareReturn() { return; print "unreachable"; }
print bareReturn();
print add;
print clock;
`, "3", "null", "null", "<fn add>", "<native fn clock>")
}

func TestRecursion(t *testing.T) {
	expectOutput(t, `
fun fib(n) {
  if (n < 2) return n;
  return fib(n - 1) + fib(n - 2);
}
print fib(10);
`, "55")
}

func TestReturnUnwindsNestedStatements(t *testing.T) {
	expectOutput(t, `
fun find() {
  var i = 0;
  while (true) {
    {
      if (i == 3) { return i; }
    }
    i = i + 1;
  }
  print "unreachable";
}
print find();
fun early() {
  for (var i = 0; i < 10; i = i + 1) {
    if (i == 2) return "stopped at " + "two";
  }
}
print early();
`, "3", "stopped at two")
}

func TestClosures(t *testing.T) {
	expectOutput(t, `
fun makeCounter() {
  var i = 0;
  fun count() {
    i = i + 1;
    return i;
  }
  return count;
}
var c = makeCounter();
print c();
print c();
var d = makeCounter();
print d();
print c();
`, "1", "2", "1", "3")
}

func TestClosureCapturesEnvironmentNotSnapshot(t *testing.T) {
	expectOutput(t, `
var a = 1;
fun f() { return a; }
a = 2;
print f();
`, "2")
}

func TestLexicalNotDynamicScope(t *testing.T) {
	expectOutput(t, `
var x = "outer";
fun show() { print x; }
fun caller() {
  var x = "caller";
  show();
}
caller();
`, "outer")
}

func TestRedefinitionCreatesNewFunction(t *testing.T) {
	expectOutput(t, `
fun f() { return 1; }
var g = f;
fun f() { return 2; }
print g();
print f();
`, "1", "2")
}

func TestEvaluationOrder(t *testing.T) {
	expectOutput(t, `
fun p(x) { print x; return x; }
print p(1) + p(2);
fun three(a, b, c) { return c; }
print three(p("a"), p("b"), p("c"));
`, "1", "2", "3", "a", "b", "c", "c")
}

func TestRuntimeErrors(t *testing.T) {
	tests := []struct {
		input   string
		message string
	}{
		{"print x;", "Undefined variable 'x'."},
		{"x = 1;", "Undefined variable 'x'."},
		{`print -"a";`, "Operand must be a number."},
		{`print 1 < "a";`, "Operands must be numbers."},
		{`print "a" * 2;`, "Operands must be numbers."},
		{`print "a" == "a";`, "Operands must be numbers."},
		{`print 1 + "a";`, "Tried to add two unsupported types: NUMBER and STRING."},
		{`print nil + nil;`, "Tried to add two unsupported types: NULL and NULL."},
		{`"str"();`, "Can only call functions."},
		{`var n = 1; n();`, "Can only call functions."},
		{`fun f(a) {} f();`, "Expected 1 arguments but got 0."},
		{`dbClose(42);`, "dbClose: invalid connection handle 42."},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			r := run(t, tt.input)
			if r.ok {
				t.Errorf("expected failure")
			}
			if r.out != "" {
				t.Errorf("a failed statement must not print, got %q", r.out)
			}
			if len(r.reports) != 1 || r.reports[0].Message != tt.message {
				t.Errorf("expected %q, got %v", tt.message, r.messages())
			}
		})
	}
}

func TestRuntimeErrorAbortsOnlyItsStatement(t *testing.T) {
	r := run(t, `
print "a";
print missing;
print "b";
var x = 1 + nil;
print "c";
`)
	if r.out != "a\nb\nc\n" {
		t.Errorf("execution should resume at the next statement, got %q", r.out)
	}
	if len(r.reports) != 2 {
		t.Errorf("expected 2 reports, got %v", r.messages())
	}
	if r.ok {
		t.Errorf("Interpret should report failure")
	}
}

func TestArityMismatchDoesNotRunBody(t *testing.T) {
	r := run(t, `
fun f(a) { print "body"; }
f(1,
  2);
`)
	if r.out != "" {
		t.Errorf("body must not run, got %q", r.out)
	}
	if len(r.reports) != 1 || r.reports[0].Message != "Expected 1 arguments but got 2." {
		t.Fatalf("unexpected reports: %v", r.messages())
	}
	if r.reports[0].Line != 4 {
		t.Errorf("error belongs to the closing paren on line 4, got %d", r.reports[0].Line)
	}
}

func TestErrorInsideFunctionKeepsItsLocation(t *testing.T) {
	r := run(t, `
fun f() {
  return missing;
}
f();
`)
	if len(r.reports) != 1 || r.reports[0].Line != 3 {
		t.Errorf("expected an error on line 3, got %+v", r.reports)
	}
}

func TestTopLevelReturnStopsTheRun(t *testing.T) {
	lit := func(v float32) *ast.Literal { return &ast.Literal{Value: v} }
	printTok := token.New(token.PRINT, "print", 1)
	stmts := []ast.Stmt{
		&ast.Print{Token: printTok, Expr: lit(1)},
		&ast.Return{Keyword: token.New(token.RETURN, "return", 2), Value: lit(9)},
		&ast.Print{Token: printTok, Expr: lit(2)},
	}

	var out bytes.Buffer
	c := &diag.Collector{}
	in := New(WithStdout(&out), WithReporter(c))
	if ok := in.Interpret(stmts); !ok {
		t.Errorf("top-level return is not an error")
	}
	if out.String() != "1\n" {
		t.Errorf("expected the run to stop, got %q", out.String())
	}
	if c.Len() != 0 {
		t.Errorf("unexpected reports: %v", c.Messages())
	}
}

func TestInterpreterStatePersists(t *testing.T) {
	var out bytes.Buffer
	in := New(WithStdout(&out), WithReporter(&diag.Collector{}))

	for _, src := range []string{"var a = 1;", "fun inc() { a = a + 1; }", "inc(); print a;"} {
		program, errs := parser.Parse(src)
		if len(errs) != 0 {
			t.Fatal(errs)
		}
		in.Interpret(program.Statements)
	}
	if out.String() != "2\n" {
		t.Errorf("globals should persist across runs, got %q", out.String())
	}
	if _, ok := in.Globals().Lookup("inc"); !ok {
		t.Errorf("inc should be a global")
	}
}

func TestClockNative(t *testing.T) {
	fixed := time.UnixMilli(1500)
	r := run(t, `print clock(); print clock(1, 2);`, WithClock(func() time.Time { return fixed }))
	if r.out != "1500\n1500\n" {
		t.Errorf("clock wrong: %q", r.out)
	}
}

func TestInputNative(t *testing.T) {
	r := run(t, `print input(); print input(); print input();`,
		WithStdin(strings.NewReader("hello\r\nworld")))
	if r.out != "hello\nworld\nnull\n" {
		t.Errorf("input wrong: %q", r.out)
	}
}

func TestDatabaseNatives(t *testing.T) {
	r := run(t, `
var db = dbOpen("sqlite3", ":memory:");
dbExec(db, "create table notes (id integer, body text, score real)");
print dbExec(db, "insert into notes values (?, ?, ?)", 1, "first", 0.5);
dbExec(db, "insert into notes values (?, ?, ?)", 2, "second", nil);
print dbQuery(db, "select body from notes where id = ?", 2);
print dbQuery(db, "select count(*) from notes");
print dbQuery(db, "select score from notes where id = 1");
print dbQuery(db, "select score from notes where id = 2");
print dbQuery(db, "select body from notes where id = 99");

dbBegin(db);
dbExec(db, "delete from notes");
print dbQuery(db, "select count(*) from notes");
dbRollback(db);
print dbQuery(db, "select count(*) from notes");

dbBegin(db);
dbExec(db, "delete from notes where id = 1");
dbCommit(db);
print dbQuery(db, "select count(*) from notes");

dbClose(db);
dbClose(db);
`)
	expected := "1\nsecond\n2\n0.5\nnull\nnull\n0\n2\n1\n"
	if r.out != expected {
		t.Errorf("output wrong.\nexpected=%q\ngot=     %q", expected, r.out)
	}
	if len(r.reports) != 1 || !strings.Contains(r.reports[0].Message, "invalid connection handle 1") {
		t.Errorf("only the second close should fail: %v", r.messages())
	}
}

func TestDatabaseNativeErrors(t *testing.T) {
	tests := []struct {
		input   string
		message string
	}{
		{`dbOpen("oracle", "x");`, "dbOpen: unknown driver 'oracle'."},
		{`dbOpen("sqlite3");`, "dbOpen expects 2 arguments (driver, dsn) but got 1."},
		{`dbOpen(1, 2);`, "dbOpen: argument 1 must be a string."},
		{`dbExec(1);`, "dbExec expects at least 2 arguments (handle, sql) but got 1."},
		{`dbQuery(1.5, "select 1");`, "dbQuery: connection handle must be a whole number."},
		{`dbCommit(1);`, "dbCommit: invalid connection handle 1."},
		{`var db = dbOpen("sqlite3", ":memory:"); dbRollback(db);`, "dbRollback: handle 1 has no open transaction."},
		{`var db = dbOpen("sqlite3", ":memory:"); dbExec(db, "select ?", clock);`, "dbExec: cannot bind <native fn clock> as a query argument."},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			r := run(t, tt.input)
			if len(r.reports) != 1 || r.reports[0].Message != tt.message {
				t.Errorf("expected %q, got %v", tt.message, r.messages())
			}
			if len(r.reports) == 1 && r.reports[0].Line != 1 {
				t.Errorf("native errors should be located at the call, got line %d", r.reports[0].Line)
			}
		})
	}
}

func TestCloseReleasesLeftoverHandles(t *testing.T) {
	program, errs := parser.Parse(`var a = dbOpen("sqlite3", ":memory:"); var b = dbOpen("sqlite", ":memory:");`)
	if len(errs) != 0 {
		t.Fatal(errs)
	}
	in := New(WithStdout(&bytes.Buffer{}), WithReporter(&diag.Collector{}))
	if !in.Interpret(program.Statements) {
		t.Fatalf("opening should succeed")
	}
	if err := in.Close(); err != nil {
		t.Errorf("close failed: %v", err)
	}
	if len(in.db.conns) != 0 {
		t.Errorf("handles left open: %d", len(in.db.conns))
	}
}
