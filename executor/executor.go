// Package executor runs a parsed Statement against a table, handling
// the Insert/Select/Drop/Update statements directly and delegating
// Import/Export to the CSV helpers in csv.go.
package executor

import (
	"fmt"
	"io"

	"github.com/pkg/errors"
	"github.com/spf13/afero"

	"fourk/parser"
	"fourk/table"
)

// Result mirrors the reference implementation's ExecuteResult: the
// outcome tier once a statement is known to be syntactically valid.
type Result int

const (
	ExecuteSuccess Result = iota
	ExecuteDuplicateKey
	// ExecuteSilentError covers operations (drop, update on a missing
	// id) that the reference implementation lets fail without printing
	// anything, not even the normal "Executed." line.
	ExecuteSilentError
)

// Executor binds a table and a filesystem (for import/export) to the
// statement dispatch logic.
type Executor struct {
	Table *table.Table
	Fs    afero.Fs
	Out   io.Writer
}

// New returns an Executor writing row output to out.
func New(tbl *table.Table, fs afero.Fs, out io.Writer) *Executor {
	return &Executor{Table: tbl, Fs: fs, Out: out}
}

// Execute dispatches stmt to the matching handler.
func (e *Executor) Execute(stmt parser.Statement) (Result, error) {
	switch stmt.Type {
	case parser.StatementInsert:
		return e.executeInsert(stmt)
	case parser.StatementSelect:
		return e.executeSelect()
	case parser.StatementSelectByID:
		return e.executeSelectByID(stmt.ID)
	case parser.StatementDrop:
		return e.executeDrop(stmt.ID)
	case parser.StatementUpdate:
		return e.executeUpdate(stmt)
	case parser.StatementImport:
		return e.executeImport(stmt.Filename)
	case parser.StatementExport:
		return e.executeExport(stmt.Filename)
	default:
		return ExecuteSilentError, errors.Errorf("executor: unknown statement type %v", stmt.Type)
	}
}

func (e *Executor) executeInsert(stmt parser.Statement) (Result, error) {
	err := e.Table.Insert(stmt.Row.ID, stmt.Row)
	if errors.Is(err, table.ErrDuplicateKey) {
		return ExecuteDuplicateKey, nil
	}
	if err != nil {
		return ExecuteSilentError, err
	}
	return ExecuteSuccess, nil
}

func (e *Executor) executeSelect() (Result, error) {
	cur, err := e.Table.Start()
	if err != nil {
		return ExecuteSilentError, err
	}
	count := 0
	for cur.Valid() {
		row, err := cur.Row()
		if err != nil {
			return ExecuteSilentError, err
		}
		fmt.Fprintf(e.Out, "(%d, %s, %s)\n", row.ID, row.Username, row.Email)
		count++
		if err := cur.Next(); err != nil {
			return ExecuteSilentError, err
		}
	}
	fmt.Fprintf(e.Out, "(Fetched %d rows)\n", count)
	return ExecuteSuccess, nil
}

func (e *Executor) executeSelectByID(id uint32) (Result, error) {
	row, ok, err := e.Table.Find(id)
	if err != nil {
		return ExecuteSilentError, err
	}
	if !ok {
		fmt.Fprintf(e.Out, "Row %d not found.\n", id)
		return ExecuteSuccess, nil
	}
	fmt.Fprintf(e.Out, "(%d, %s, %s)\n", row.ID, row.Username, row.Email)
	fmt.Fprintln(e.Out, "(Fetched 1 row)")
	return ExecuteSuccess, nil
}

func (e *Executor) executeDrop(id uint32) (Result, error) {
	err := e.Table.Delete(id)
	if errors.Is(err, table.ErrKeyNotFound) {
		return ExecuteSilentError, nil
	}
	if err != nil {
		return ExecuteSilentError, err
	}
	return ExecuteSuccess, nil
}

func (e *Executor) executeUpdate(stmt parser.Statement) (Result, error) {
	err := e.Table.Update(stmt.ID, stmt.Field, stmt.Value)
	if errors.Is(err, table.ErrKeyNotFound) {
		return ExecuteSilentError, nil
	}
	if err != nil {
		return ExecuteSilentError, err
	}
	return ExecuteSuccess, nil
}
