package evaluator

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"lox/internal/ast"
	"lox/internal/diag"
	"lox/internal/object"
	"lox/internal/token"
	"os"
	"strings"
	"time"
)

// Interpreter walks syntax trees. env is the scope statements currently run
// in; it is swapped on block and call entry and restored on exit. globals
// never changes.
type Interpreter struct {
	globals *object.Environment
	env     *object.Environment

	stdout   io.Writer
	stdin    *bufio.Reader
	reporter diag.Reporter
	clock    func() time.Time

	db *dbRegistry
}

type Option func(*Interpreter)

func WithStdout(w io.Writer) Option {
	return func(in *Interpreter) { in.stdout = w }
}

func WithStdin(r io.Reader) Option {
	return func(in *Interpreter) { in.stdin = bufio.NewReader(r) }
}

func WithReporter(r diag.Reporter) Option {
	return func(in *Interpreter) { in.reporter = r }
}

func WithClock(clock func() time.Time) Option {
	return func(in *Interpreter) { in.clock = clock }
}

// New creates an interpreter whose global scope holds the natives.
func New(opts ...Option) *Interpreter {
	globals := object.NewEnvironment()
	in := &Interpreter{
		globals: globals,
		env:     globals,
		stdout:  os.Stdout,
		clock:   time.Now,
		db:      newDBRegistry(),
	}
	for _, opt := range opts {
		opt(in)
	}
	if in.stdin == nil {
		in.stdin = bufio.NewReader(os.Stdin)
	}
	if in.reporter == nil {
		in.reporter = diag.NewWriter(os.Stderr)
	}

	for _, native := range in.natives() {
		globals.Define(native.Name, native)
	}
	return in
}

func (in *Interpreter) Globals() *object.Environment {
	return in.globals
}

// Close releases database handles the program left open.
func (in *Interpreter) Close() error {
	return in.db.closeAll()
}

// Interpret executes statements in order. A runtime error aborts only the
// statement it happened in: it is reported and execution carries on with the
// next one. The result is false if any statement failed.
func (in *Interpreter) Interpret(stmts []ast.Stmt) bool {
	ok := true
	for _, stmt := range stmts {
		completion, err := in.Execute(stmt)
		if err != nil {
			diag.ReportError(in.reporter, err)
			ok = false
			continue
		}
		if completion.Kind == object.Returning {
			slog.Debug("return reached top level, stopping",
				slog.String("value", completion.Value.Inspect()))
			break
		}
	}
	return ok
}

// Execute runs one statement in the current scope.
func (in *Interpreter) Execute(stmt ast.Stmt) (object.Completion, error) {
	switch node := stmt.(type) {

	case *ast.Expression:
		if _, err := in.Evaluate(node.Expr); err != nil {
			return object.NormalCompletion, err
		}

	case *ast.Print:
		val, err := in.Evaluate(node.Expr)
		if err != nil {
			return object.NormalCompletion, err
		}
		fmt.Fprintln(in.stdout, val.Inspect())

	case *ast.Var:
		var val object.Object = object.NULL
		if node.Initializer != nil {
			v, err := in.Evaluate(node.Initializer)
			if err != nil {
				return object.NormalCompletion, err
			}
			val = v
		}
		in.env.Define(node.Name.Lexeme, val)

	case *ast.Block:
		return in.ExecuteBlock(node.Statements, object.NewEnclosedEnvironment(in.env))

	case *ast.If:
		cond, err := in.Evaluate(node.Condition)
		if err != nil {
			return object.NormalCompletion, err
		}
		if object.IsTruthy(cond) {
			return in.Execute(node.ThenBranch)
		} else if node.ElseBranch != nil {
			return in.Execute(node.ElseBranch)
		}

	case *ast.While:
		for {
			cond, err := in.Evaluate(node.Condition)
			if err != nil {
				return object.NormalCompletion, err
			}
			if !object.IsTruthy(cond) {
				break
			}
			completion, err := in.Execute(node.Body)
			if err != nil || completion.Kind == object.Returning {
				return completion, err
			}
		}

	case *ast.Function:
		in.env.Define(node.Name.Lexeme, object.NewFunction(node, in.env))

	case *ast.Return:
		var val object.Object = object.NULL
		if node.Value != nil {
			v, err := in.Evaluate(node.Value)
			if err != nil {
				return object.NormalCompletion, err
			}
			val = v
		}
		return object.ReturnCompletion(val), nil

	default:
		return object.NormalCompletion, fmt.Errorf("unknown statement type %T", stmt)
	}

	return object.NormalCompletion, nil
}

// ExecuteBlock runs stmts with env as the current scope, stopping at the first
// error or return. The previous scope is restored on every path.
func (in *Interpreter) ExecuteBlock(stmts []ast.Stmt, env *object.Environment) (object.Completion, error) {
	previous := in.env
	in.env = env
	defer func() { in.env = previous }()

	for _, stmt := range stmts {
		completion, err := in.Execute(stmt)
		if err != nil || completion.Kind == object.Returning {
			return completion, err
		}
	}
	return object.NormalCompletion, nil
}

// Evaluate computes the value of expr in the current scope.
func (in *Interpreter) Evaluate(expr ast.Expr) (object.Object, error) {
	switch node := expr.(type) {

	case *ast.Literal:
		return object.FromLiteral(node.Value), nil

	case *ast.Grouping:
		return in.Evaluate(node.Inner)

	case *ast.Variable:
		return in.env.Get(node.Name)

	case *ast.Assign:
		val, err := in.Evaluate(node.Value)
		if err != nil {
			return nil, err
		}
		if err := in.env.Assign(node.Name, val); err != nil {
			return nil, err
		}
		return val, nil

	case *ast.Unary:
		right, err := in.Evaluate(node.Right)
		if err != nil {
			return nil, err
		}
		return in.evalUnaryExpression(node.Operator, right)

	case *ast.Logical:
		left, err := in.Evaluate(node.Left)
		if err != nil {
			return nil, err
		}
		if node.Operator.Type == token.OR {
			if object.IsTruthy(left) {
				return left, nil
			}
		} else if !object.IsTruthy(left) {
			return left, nil
		}
		return in.Evaluate(node.Right)

	case *ast.Binary:
		left, err := in.Evaluate(node.Left)
		if err != nil {
			return nil, err
		}
		right, err := in.Evaluate(node.Right)
		if err != nil {
			return nil, err
		}
		return in.evalBinaryExpression(node.Operator, left, right)

	case *ast.Call:
		return in.evalCall(node)
	}

	return nil, fmt.Errorf("unknown expression type %T", expr)
}

func (in *Interpreter) evalUnaryExpression(operator token.Token, right object.Object) (object.Object, error) {
	switch operator.Type {
	case token.BANG:
		return object.NativeBoolToBooleanObject(!object.IsTruthy(right)), nil
	case token.MINUS:
		n, ok := right.(*object.Number)
		if !ok {
			return nil, object.NewRuntimeError(object.TypeError, operator, "Operand must be a number.")
		}
		return &object.Number{Value: -n.Value}, nil
	}
	return nil, object.NewRuntimeError(object.TypeError, operator, "Unknown operator: %s", operator.Lexeme)
}

func (in *Interpreter) evalBinaryExpression(operator token.Token, left, right object.Object) (object.Object, error) {
	if operator.Type == token.PLUS {
		switch l := left.(type) {
		case *object.Number:
			if r, ok := right.(*object.Number); ok {
				return &object.Number{Value: l.Value + r.Value}, nil
			}
		case *object.String:
			if r, ok := right.(*object.String); ok {
				return &object.String{Value: l.Value + r.Value}, nil
			}
		}
		return nil, object.NewRuntimeError(object.TypeError, operator,
			"Tried to add two unsupported types: %s and %s.", left.Type(), right.Type())
	}

	l, lok := left.(*object.Number)
	r, rok := right.(*object.Number)
	if !lok || !rok {
		return nil, object.NewRuntimeError(object.TypeError, operator, "Operands must be numbers.")
	}

	switch operator.Type {
	case token.MINUS:
		return &object.Number{Value: l.Value - r.Value}, nil
	case token.ASTERISK:
		return &object.Number{Value: l.Value * r.Value}, nil
	case token.SLASH:
		return &object.Number{Value: l.Value / r.Value}, nil
	case token.GT:
		return object.NativeBoolToBooleanObject(l.Value > r.Value), nil
	case token.GT_EQ:
		return object.NativeBoolToBooleanObject(l.Value >= r.Value), nil
	case token.LT:
		return object.NativeBoolToBooleanObject(l.Value < r.Value), nil
	case token.LT_EQ:
		return object.NativeBoolToBooleanObject(l.Value <= r.Value), nil
	case token.EQ:
		return object.NativeBoolToBooleanObject(l.Value == r.Value), nil
	case token.NOT_EQ:
		return object.NativeBoolToBooleanObject(l.Value != r.Value), nil
	}
	return nil, object.NewRuntimeError(object.TypeError, operator, "Unknown operator: %s", operator.Lexeme)
}

func (in *Interpreter) evalCall(node *ast.Call) (object.Object, error) {
	callee, err := in.Evaluate(node.Callee)
	if err != nil {
		return nil, err
	}

	args := make([]object.Object, 0, len(node.Arguments))
	for _, a := range node.Arguments {
		val, err := in.Evaluate(a)
		if err != nil {
			return nil, err
		}
		args = append(args, val)
	}

	fn, ok := callee.(object.Callable)
	if !ok {
		return nil, object.NewRuntimeError(object.NotCallable, node.Paren, "Can only call functions.")
	}
	if _, native := fn.(*object.NativeFunction); !native && len(args) != fn.Arity() {
		return nil, object.NewRuntimeError(object.ArityMismatch, node.Paren,
			"Expected %d arguments but got %d.", fn.Arity(), len(args))
	}

	slog.Debug("calling function",
		slog.String("callee", fn.Inspect()),
		slog.Int("args", len(args)),
		slog.Int("line", node.Paren.Line))

	result, err := fn.Call(in, args)
	if err != nil {
		return nil, locateNativeError(err, node.Paren)
	}
	return result, nil
}

// locateNativeError pins errors raised by natives to the call's parenthesis.
// Errors from user functions already carry their own location.
func locateNativeError(err error, paren token.Token) error {
	var rtErr *object.RuntimeError
	if errors.As(err, &rtErr) {
		if rtErr.Token.Line == 0 {
			rtErr.Token = paren
		}
		return rtErr
	}
	return object.NewRuntimeError(object.NativeError, paren, "%s", err.Error())
}

// object.EvaluatorContext

func (in *Interpreter) Stdout() io.Writer {
	return in.stdout
}

func (in *Interpreter) Now() time.Time {
	return in.clock()
}

// ReadLine reads one line from stdin without its line terminator.
func (in *Interpreter) ReadLine() (string, error) {
	line, err := in.stdin.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	line = strings.TrimSuffix(line, "\n")
	return strings.TrimSuffix(line, "\r"), nil
}
