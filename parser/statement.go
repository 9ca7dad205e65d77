// Package parser turns a raw REPL input line into a Statement or a
// MetaCommand, following the fixed six-statement grammar and the
// handful of dot-prefixed meta-commands.
package parser

import (
	"regexp"
	"strconv"
	"strings"

	"fourk/record"
)

// StatementType identifies which of the six statements was parsed.
type StatementType int

const (
	StatementInsert StatementType = iota
	StatementSelect
	StatementSelectByID
	StatementDrop
	StatementUpdate
	StatementImport
	StatementExport
)

// PrepareResult mirrors the reference implementation's PrepareResult
// enum: the input-level error tier of the three-tier error model.
type PrepareResult int

const (
	PrepareSuccess PrepareResult = iota
	PrepareNegativeID
	PrepareStringTooLong
	PrepareSyntaxError
	PrepareUnrecognizedStatement
)

// Statement holds whichever fields its Type requires; the rest are
// left zero.
type Statement struct {
	Type     StatementType
	Row      record.Row
	ID       uint32
	Field    string
	Value    string
	Filename string
}

var (
	insertPattern = regexp.MustCompile(`^insert\s+(-?\d+)\s+(\S+)\s+(\S+)\s*$`)
	dropPattern   = regexp.MustCompile(`^drop\s+(-?\d+)\s*$`)
	selectByID    = regexp.MustCompile(`^select\s+(-?\d+)\s*$`)
	updatePattern = regexp.MustCompile(`^update\s+(-?\d+)\s+set\s+([a-zA-Z]+)=(\S+)\s*$`)
	importPattern = regexp.MustCompile(`^import\s+'([^']+)'\s*$`)
	exportPattern = regexp.MustCompile(`^export\s+'([^']+)'\s*$`)
	quotedHint    = regexp.MustCompile(`^(import|export)\s`)
)

// Prepare parses a single input line into a Statement.
func Prepare(input string) (Statement, PrepareResult) {
	input = strings.TrimSpace(input)

	switch {
	case input == "select":
		return Statement{Type: StatementSelect}, PrepareSuccess

	case strings.HasPrefix(input, "select"):
		m := selectByID.FindStringSubmatch(input)
		if m == nil {
			return Statement{}, PrepareSyntaxError
		}
		id, err := strconv.Atoi(m[1])
		if err != nil {
			return Statement{}, PrepareSyntaxError
		}
		if id < 0 {
			return Statement{}, PrepareNegativeID
		}
		return Statement{Type: StatementSelectByID, ID: uint32(id)}, PrepareSuccess

	case strings.HasPrefix(input, "insert"):
		m := insertPattern.FindStringSubmatch(input)
		if m == nil {
			return Statement{}, PrepareSyntaxError
		}
		id, err := strconv.Atoi(m[1])
		if err != nil {
			return Statement{}, PrepareSyntaxError
		}
		if id < 0 {
			return Statement{}, PrepareNegativeID
		}
		username, email := m[2], m[3]
		if len(username) > record.UsernameMaxLength || len(email) > record.EmailMaxLength {
			return Statement{}, PrepareStringTooLong
		}
		row := record.Row{ID: uint32(id), Username: username, Email: email}
		return Statement{Type: StatementInsert, Row: row}, PrepareSuccess

	case strings.HasPrefix(input, "drop"):
		m := dropPattern.FindStringSubmatch(input)
		if m == nil {
			return Statement{}, PrepareSyntaxError
		}
		id, err := strconv.Atoi(m[1])
		if err != nil {
			return Statement{}, PrepareSyntaxError
		}
		if id < 0 {
			return Statement{}, PrepareNegativeID
		}
		return Statement{Type: StatementDrop, ID: uint32(id)}, PrepareSuccess

	case strings.HasPrefix(input, "update"):
		m := updatePattern.FindStringSubmatch(input)
		if m == nil {
			return Statement{}, PrepareSyntaxError
		}
		id, err := strconv.Atoi(m[1])
		if err != nil {
			return Statement{}, PrepareSyntaxError
		}
		if id < 0 {
			return Statement{}, PrepareNegativeID
		}
		field, value := m[2], m[3]
		if field != "username" && field != "email" {
			return Statement{}, PrepareSyntaxError
		}
		if field == "username" && len(value) > record.UsernameMaxLength {
			return Statement{}, PrepareStringTooLong
		}
		if field == "email" && len(value) > record.EmailMaxLength {
			return Statement{}, PrepareStringTooLong
		}
		return Statement{Type: StatementUpdate, ID: uint32(id), Field: field, Value: value}, PrepareSuccess

	case strings.HasPrefix(input, "import"):
		m := importPattern.FindStringSubmatch(input)
		if m == nil {
			return Statement{}, PrepareSyntaxError
		}
		return Statement{Type: StatementImport, Filename: m[1]}, PrepareSuccess

	case strings.HasPrefix(input, "export"):
		m := exportPattern.FindStringSubmatch(input)
		if m == nil {
			return Statement{}, PrepareSyntaxError
		}
		return Statement{Type: StatementExport, Filename: m[1]}, PrepareSuccess

	default:
		return Statement{}, PrepareUnrecognizedStatement
	}
}

// QuotedFilenameHint reports whether input looks like an import/export
// invocation missing its required single-quoted filename, so the REPL
// can print a friendlier syntax reminder than a bare "syntax error".
func QuotedFilenameHint(input string) bool {
	return quotedHint.MatchString(strings.TrimSpace(input)) && !strings.Contains(input, "'")
}
