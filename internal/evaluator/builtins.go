package evaluator

import (
	"errors"
	"io"
	"lox/internal/object"
)

func (in *Interpreter) natives() []*object.NativeFunction {
	return []*object.NativeFunction{
		{Name: "clock", Fn: fnClock},
		{Name: "input", Fn: fnInput},
		{Name: "dbOpen", Fn: in.fnDBOpen},
		{Name: "dbExec", Fn: in.fnDBExec},
		{Name: "dbQuery", Fn: in.fnDBQuery},
		{Name: "dbClose", Fn: in.fnDBClose},
		{Name: "dbBegin", Fn: in.fnDBBegin},
		{Name: "dbCommit", Fn: in.fnDBCommit},
		{Name: "dbRollback", Fn: in.fnDBRollback},
	}
}

// clock is the wall clock in milliseconds. float32 keeps about seven
// significant digits, so only differences of whole seconds are exact.
func fnClock(ctx object.EvaluatorContext, args []object.Object) (object.Object, error) {
	return &object.Number{Value: float32(ctx.Now().UnixMilli())}, nil
}

// input reads one line from stdin, null at end of input.
func fnInput(ctx object.EvaluatorContext, args []object.Object) (object.Object, error) {
	line, err := ctx.ReadLine()
	if errors.Is(err, io.EOF) {
		return object.NULL, nil
	}
	if err != nil {
		return nil, nativeError("input failed: %v", err)
	}
	return &object.String{Value: line}, nil
}
