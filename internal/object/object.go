package object

import (
	"fmt"
	"io"
	"lox/internal/ast"
	"lox/internal/token"
	"math"
	"strconv"
	"time"
)

const (
	NULL_OBJ     = "NULL"
	BOOLEAN_OBJ  = "BOOLEAN"
	NUMBER_OBJ   = "NUMBER"
	STRING_OBJ   = "STRING"
	FUNCTION_OBJ = "FUNCTION"
	NATIVE_OBJ   = "NATIVE_FUNCTION"
)

var (
	NULL  = &Null{}
	TRUE  = &Boolean{Value: true}
	FALSE = &Boolean{Value: false}
)

// EvaluatorContext is the view of the interpreter that callables get. User
// functions use it to run their body; natives use it for host I/O.
type EvaluatorContext interface {
	ExecuteBlock(stmts []ast.Stmt, env *Environment) (Completion, error)
	ReadLine() (string, error)
	Stdout() io.Writer
	Now() time.Time
}

// NativeFunc is the host side of a native function. Natives validate their own
// arguments.
type NativeFunc func(ctx EvaluatorContext, args []Object) (Object, error)

type ObjectType string

type Object interface {
	Type() ObjectType
	Inspect() string
}

// Callable is implemented by every value that can appear as a callee.
type Callable interface {
	Object
	Arity() int
	Call(ctx EvaluatorContext, args []Object) (Object, error)
}

type Number struct {
	Value float32
}

func (n *Number) Type() ObjectType { return NUMBER_OBJ }
func (n *Number) Inspect() string  { return FormatNumber(n.Value) }

// FormatNumber renders the shortest decimal that reads back as the same float32.
// Infinities print as inf and -inf.
func FormatNumber(v float32) string {
	switch {
	case math.IsInf(float64(v), 1):
		return "inf"
	case math.IsInf(float64(v), -1):
		return "-inf"
	}
	return strconv.FormatFloat(float64(v), 'f', -1, 32)
}

type String struct {
	Value string
}

func (s *String) Type() ObjectType { return STRING_OBJ }
func (s *String) Inspect() string  { return s.Value }

type Boolean struct {
	Value bool
}

func (b *Boolean) Type() ObjectType { return BOOLEAN_OBJ }
func (b *Boolean) Inspect() string  { return strconv.FormatBool(b.Value) }

type Null struct{}

func (n *Null) Type() ObjectType { return NULL_OBJ }
func (n *Null) Inspect() string  { return "null" }

func NativeBoolToBooleanObject(input bool) *Boolean {
	if input {
		return TRUE
	}
	return FALSE
}

// FromLiteral converts a literal payload from the syntax tree into a value.
func FromLiteral(v any) Object {
	switch v := v.(type) {
	case float32:
		return &Number{Value: v}
	case string:
		return &String{Value: v}
	case bool:
		return NativeBoolToBooleanObject(v)
	default:
		return NULL
	}
}

// IsTruthy reports whether obj counts as true in a condition. Only null and
// false are falsy.
func IsTruthy(obj Object) bool {
	switch obj := obj.(type) {
	case nil, *Null:
		return false
	case *Boolean:
		return obj.Value
	default:
		return true
	}
}

// Function is a user-defined function value: the declaration's parameters and
// body plus the environment that was current when the declaration ran.
type Function struct {
	Name    token.Token
	Params  []token.Token
	Body    []ast.Stmt
	Closure *Environment
}

func NewFunction(decl *ast.Function, closure *Environment) *Function {
	return &Function{
		Name:    decl.Name,
		Params:  decl.Params,
		Body:    decl.Body,
		Closure: closure,
	}
}

func (f *Function) Type() ObjectType { return FUNCTION_OBJ }
func (f *Function) Inspect() string  { return "<fn " + f.Name.Lexeme + ">" }
func (f *Function) Arity() int       { return len(f.Params) }

// Call binds the arguments in a fresh environment enclosed by the closure and
// runs the body. A Returning completion becomes the call's value; running off
// the end of the body yields null.
func (f *Function) Call(ctx EvaluatorContext, args []Object) (Object, error) {
	if len(args) != len(f.Params) {
		return nil, NewRuntimeError(ArityMismatch, f.Name,
			"Expected %d arguments but got %d.", len(f.Params), len(args))
	}

	env := NewEnclosedEnvironment(f.Closure)
	for i, param := range f.Params {
		env.Define(param.Lexeme, args[i])
	}

	completion, err := ctx.ExecuteBlock(f.Body, env)
	if err != nil {
		return nil, err
	}
	if completion.Kind == Returning {
		return completion.Value, nil
	}
	return NULL, nil
}

// NativeFunction is a host-provided procedure bound as a global.
type NativeFunction struct {
	Name string
	Fn   NativeFunc
}

func (n *NativeFunction) Type() ObjectType { return NATIVE_OBJ }
func (n *NativeFunction) Inspect() string  { return "<native fn " + n.Name + ">" }

// Arity is always 0 for natives and is not checked by the caller.
func (n *NativeFunction) Arity() int { return 0 }

func (n *NativeFunction) Call(ctx EvaluatorContext, args []Object) (Object, error) {
	return n.Fn(ctx, args)
}

// CompletionKind tags the outcome of executing a statement.
type CompletionKind int

const (
	Normal CompletionKind = iota
	Returning
)

// Completion is what statement execution produces. Returning carries the
// value of a return statement up to the enclosing call.
type Completion struct {
	Kind  CompletionKind
	Value Object
}

var NormalCompletion = Completion{Kind: Normal}

func ReturnCompletion(value Object) Completion {
	return Completion{Kind: Returning, Value: value}
}

type ErrorKind int

const (
	UndefinedVariable ErrorKind = iota + 1
	TypeError
	NotCallable
	ArityMismatch
	NativeError
)

func (k ErrorKind) String() string {
	switch k {
	case UndefinedVariable:
		return "UndefinedVariable"
	case TypeError:
		return "TypeError"
	case NotCallable:
		return "NotCallable"
	case ArityMismatch:
		return "ArityMismatch"
	case NativeError:
		return "NativeError"
	}
	return "ErrorKind(" + strconv.Itoa(int(k)) + ")"
}

// RuntimeError aborts the current top-level statement. Token locates the
// fault in the source.
type RuntimeError struct {
	Kind    ErrorKind
	Token   token.Token
	Message string
}

func NewRuntimeError(kind ErrorKind, tok token.Token, format string, a ...interface{}) *RuntimeError {
	return &RuntimeError{Kind: kind, Token: tok, Message: fmt.Sprintf(format, a...)}
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("%s\n[line %d]", e.Message, e.Token.Line)
}
