package evaluator

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"lox/internal/object"
	"lox/internal/token"
	"math"
	"sort"
	"sync"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// drivers accepted by dbOpen, keyed by the name scripts use.
var drivers = map[string]string{
	"sqlite3":  "sqlite3",
	"sqlite":   "sqlite3",
	"mysql":    "mysql",
	"postgres": "postgres",
}

// dbRegistry holds the connections a single interpreter has opened. Handles
// are small integers so scripts can keep them in ordinary number variables.
type dbRegistry struct {
	mu     sync.Mutex
	nextID int64
	conns  map[int64]*sql.DB
	txs    map[int64]*sql.Tx
}

func newDBRegistry() *dbRegistry {
	return &dbRegistry{
		conns: map[int64]*sql.DB{},
		txs:   map[int64]*sql.Tx{},
	}
}

func (r *dbRegistry) add(db *sql.DB) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	r.conns[r.nextID] = db
	return r.nextID
}

func (r *dbRegistry) get(id int64) (*sql.DB, *sql.Tx, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	db, ok := r.conns[id]
	return db, r.txs[id], ok
}

func (r *dbRegistry) setTx(id int64, tx *sql.Tx) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if tx == nil {
		delete(r.txs, id)
		return
	}
	r.txs[id] = tx
}

func (r *dbRegistry) remove(id int64) (*sql.DB, *sql.Tx, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	db, ok := r.conns[id]
	tx := r.txs[id]
	delete(r.conns, id)
	delete(r.txs, id)
	return db, tx, ok
}

func (r *dbRegistry) closeAll() error {
	r.mu.Lock()
	ids := make([]int64, 0, len(r.conns))
	for id := range r.conns {
		ids = append(ids, id)
	}
	r.mu.Unlock()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var errs []error
	for _, id := range ids {
		db, tx, _ := r.remove(id)
		if tx != nil {
			_ = tx.Rollback()
		}
		if err := db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing handle %d: %w", id, err))
		}
		slog.Debug("closed leftover database handle", slog.Int64("handle", id))
	}
	return errors.Join(errs...)
}

// dbOpen(driver, dsn) -> handle
func (in *Interpreter) fnDBOpen(ctx object.EvaluatorContext, args []object.Object) (object.Object, error) {
	if len(args) != 2 {
		return nil, nativeError("dbOpen expects 2 arguments (driver, dsn) but got %d.", len(args))
	}
	name, err := stringArg("dbOpen", args, 0)
	if err != nil {
		return nil, err
	}
	dsn, err := stringArg("dbOpen", args, 1)
	if err != nil {
		return nil, err
	}

	driver, ok := drivers[name]
	if !ok {
		return nil, nativeError("dbOpen: unknown driver '%s'.", name)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, nativeError("dbOpen: failed to open connection: %v", err)
	}
	if driver == "sqlite3" {
		// every new connection to ":memory:" is a separate database
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, nativeError("dbOpen: failed to ping database: %v", err)
	}

	id := in.db.add(db)
	slog.Debug("opened database", slog.String("driver", driver), slog.Int64("handle", id))
	return &object.Number{Value: float32(id)}, nil
}

// dbExec(handle, sql, args...) -> rows affected
func (in *Interpreter) fnDBExec(ctx object.EvaluatorContext, args []object.Object) (object.Object, error) {
	db, tx, query, params, err := in.statementArgs("dbExec", args)
	if err != nil {
		return nil, err
	}

	var result sql.Result
	if tx != nil {
		result, err = tx.Exec(query, params...)
	} else {
		result, err = db.Exec(query, params...)
	}
	if err != nil {
		return nil, nativeError("dbExec failed: %v", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, nativeError("dbExec failed: %v", err)
	}
	return &object.Number{Value: float32(affected)}, nil
}

// dbQuery(handle, sql, args...) -> first column of the first row, or null
func (in *Interpreter) fnDBQuery(ctx object.EvaluatorContext, args []object.Object) (object.Object, error) {
	db, tx, query, params, err := in.statementArgs("dbQuery", args)
	if err != nil {
		return nil, err
	}

	var rows *sql.Rows
	if tx != nil {
		rows, err = tx.Query(query, params...)
	} else {
		rows, err = db.Query(query, params...)
	}
	if err != nil {
		return nil, nativeError("dbQuery failed: %v", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, nativeError("dbQuery failed: %v", err)
		}
		return object.NULL, nil
	}

	columns, err := rows.Columns()
	if err != nil {
		return nil, nativeError("dbQuery failed: %v", err)
	}
	values := make([]interface{}, len(columns))
	pointers := make([]interface{}, len(columns))
	for i := range values {
		pointers[i] = &values[i]
	}
	if err := rows.Scan(pointers...); err != nil {
		return nil, nativeError("dbQuery failed: %v", err)
	}
	if len(values) == 0 {
		return object.NULL, nil
	}
	return mapValue(values[0]), nil
}

// dbClose(handle) -> null
func (in *Interpreter) fnDBClose(ctx object.EvaluatorContext, args []object.Object) (object.Object, error) {
	id, err := handleArg("dbClose", args)
	if err != nil {
		return nil, err
	}
	db, tx, ok := in.db.remove(id)
	if !ok {
		return nil, nativeError("dbClose: invalid connection handle %d.", id)
	}
	if tx != nil {
		_ = tx.Rollback()
	}
	if err := db.Close(); err != nil {
		return nil, nativeError("dbClose failed: %v", err)
	}
	return object.NULL, nil
}

// dbBegin(handle) -> null; later statements on the handle join the transaction
func (in *Interpreter) fnDBBegin(ctx object.EvaluatorContext, args []object.Object) (object.Object, error) {
	id, err := handleArg("dbBegin", args)
	if err != nil {
		return nil, err
	}
	db, tx, ok := in.db.get(id)
	if !ok {
		return nil, nativeError("dbBegin: invalid connection handle %d.", id)
	}
	if tx != nil {
		return nil, nativeError("dbBegin: handle %d already has an open transaction.", id)
	}
	tx, err = db.Begin()
	if err != nil {
		return nil, nativeError("dbBegin failed: %v", err)
	}
	in.db.setTx(id, tx)
	return object.NULL, nil
}

func (in *Interpreter) fnDBCommit(ctx object.EvaluatorContext, args []object.Object) (object.Object, error) {
	return in.endTx("dbCommit", args, (*sql.Tx).Commit)
}

func (in *Interpreter) fnDBRollback(ctx object.EvaluatorContext, args []object.Object) (object.Object, error) {
	return in.endTx("dbRollback", args, (*sql.Tx).Rollback)
}

func (in *Interpreter) endTx(name string, args []object.Object, end func(*sql.Tx) error) (object.Object, error) {
	id, err := handleArg(name, args)
	if err != nil {
		return nil, err
	}
	_, tx, ok := in.db.get(id)
	if !ok {
		return nil, nativeError("%s: invalid connection handle %d.", name, id)
	}
	if tx == nil {
		return nil, nativeError("%s: handle %d has no open transaction.", name, id)
	}
	in.db.setTx(id, nil)
	if err := end(tx); err != nil {
		return nil, nativeError("%s failed: %v", name, err)
	}
	return object.NULL, nil
}

func (in *Interpreter) statementArgs(name string, args []object.Object) (*sql.DB, *sql.Tx, string, []interface{}, error) {
	if len(args) < 2 {
		return nil, nil, "", nil, nativeError("%s expects at least 2 arguments (handle, sql) but got %d.", name, len(args))
	}
	id, err := handleArg(name, args[:1])
	if err != nil {
		return nil, nil, "", nil, err
	}
	query, err := stringArg(name, args, 1)
	if err != nil {
		return nil, nil, "", nil, err
	}
	db, tx, ok := in.db.get(id)
	if !ok {
		return nil, nil, "", nil, nativeError("%s: invalid connection handle %d.", name, id)
	}

	params := make([]interface{}, 0, len(args)-2)
	for _, arg := range args[2:] {
		p, err := sqlParam(name, arg)
		if err != nil {
			return nil, nil, "", nil, err
		}
		params = append(params, p)
	}
	return db, tx, query, params, nil
}

func handleArg(name string, args []object.Object) (int64, error) {
	if len(args) != 1 {
		return 0, nativeError("%s expects a connection handle.", name)
	}
	n, ok := args[0].(*object.Number)
	if !ok || n.Value != float32(math.Trunc(float64(n.Value))) {
		return 0, nativeError("%s: connection handle must be a whole number.", name)
	}
	return int64(n.Value), nil
}

func stringArg(name string, args []object.Object, i int) (string, error) {
	s, ok := args[i].(*object.String)
	if !ok {
		return "", nativeError("%s: argument %d must be a string.", name, i+1)
	}
	return s.Value, nil
}

// sqlParam converts a value into a driver argument. Whole numbers bind as
// integers so they compare equal to integer columns.
func sqlParam(name string, obj object.Object) (interface{}, error) {
	switch v := obj.(type) {
	case *object.Number:
		f := float64(v.Value)
		if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
			return int64(f), nil
		}
		return f, nil
	case *object.String:
		return v.Value, nil
	case *object.Boolean:
		return v.Value, nil
	case *object.Null:
		return nil, nil
	}
	return nil, nativeError("%s: cannot bind %s as a query argument.", name, obj.Inspect())
}

// mapValue converts a scanned column into a value.
func mapValue(v interface{}) object.Object {
	switch x := v.(type) {
	case nil:
		return object.NULL
	case int64:
		return &object.Number{Value: float32(x)}
	case float64:
		return &object.Number{Value: float32(x)}
	case float32:
		return &object.Number{Value: x}
	case []byte:
		return &object.String{Value: string(x)}
	case string:
		return &object.String{Value: x}
	case bool:
		return object.NativeBoolToBooleanObject(x)
	case time.Time:
		return &object.String{Value: x.Format(time.RFC3339)}
	default:
		return &object.String{Value: fmt.Sprintf("%v", v)}
	}
}

// nativeError builds an error without a location; the interpreter pins it to
// the call site.
func nativeError(format string, a ...interface{}) *object.RuntimeError {
	return object.NewRuntimeError(object.NativeError, token.Token{}, format, a...)
}
