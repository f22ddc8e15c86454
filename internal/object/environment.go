package object

import (
	"log/slog"
	"lox/internal/token"
	"sync"
	"sync/atomic"
)

var nextID atomic.Uint64

// Environment is one lexical scope. Scopes form a chain through Outer; the
// chain is acyclic because a new scope always encloses an existing one.
// Closures and the interpreter share scopes by pointer.
type Environment struct {
	ID       uint64
	Bindings map[string]Object
	Outer    *Environment

	mu sync.RWMutex
}

func nextEnvID() uint64 {
	return nextID.Add(1)
}

func NewEnvironment() *Environment {
	return &Environment{
		ID:       nextEnvID(),
		Bindings: make(map[string]Object),
	}
}

// NewEnclosedEnvironment creates a child scope of outer.
func NewEnclosedEnvironment(outer *Environment) *Environment {
	env := NewEnvironment()
	env.Outer = outer
	slog.Debug("new env",
		slog.Uint64("id", env.ID),
		slog.Uint64("outer", outer.ID))
	return env
}

// Define binds name in this scope, replacing any previous local binding. The
// outer scopes are never touched.
func (e *Environment) Define(name string, val Object) {
	e.mu.Lock()
	e.Bindings[name] = val
	e.mu.Unlock()

	slog.Debug("binding value",
		slog.Uint64("env", e.ID),
		slog.String("name", name),
		slog.Any("type", val.Type()))
}

// Lookup finds name in this scope or the nearest enclosing one.
func (e *Environment) Lookup(name string) (Object, bool) {
	e.mu.RLock()
	val, ok := e.Bindings[name]
	e.mu.RUnlock()

	if ok {
		return val, true
	}
	if e.Outer != nil {
		return e.Outer.Lookup(name)
	}
	return nil, false
}

// Get resolves the variable named by tok through the scope chain.
func (e *Environment) Get(name token.Token) (Object, error) {
	if val, ok := e.Lookup(name.Lexeme); ok {
		return val, nil
	}
	return nil, NewRuntimeError(UndefinedVariable, name, "Undefined variable '%s'.", name.Lexeme)
}

// Assign overwrites the nearest existing binding of name. It never creates a
// binding.
func (e *Environment) Assign(name token.Token, val Object) error {
	e.mu.Lock()
	if _, exists := e.Bindings[name.Lexeme]; exists {
		e.Bindings[name.Lexeme] = val
		e.mu.Unlock()

		slog.Debug("assigning bound value",
			slog.Uint64("env", e.ID),
			slog.String("name", name.Lexeme),
			slog.Any("type", val.Type()))
		return nil
	}
	e.mu.Unlock()

	if e.Outer != nil {
		return e.Outer.Assign(name, val)
	}
	return NewRuntimeError(UndefinedVariable, name, "Undefined variable '%s'.", name.Lexeme)
}
