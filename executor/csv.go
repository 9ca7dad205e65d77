package executor

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"fourk/record"
)

// parseCSVLine splits a raw "id,username,email" line the same way the
// reference implementation's sscanf("%d,%32[^,],%255s") does: a plain
// sequential split on the first two commas, no RFC 4180 quoting. A
// line that doesn't have exactly this shape is reported as malformed.
func parseCSVLine(line string) (record.Row, error) {
	firstComma := strings.IndexByte(line, ',')
	if firstComma < 0 {
		return record.Row{}, errors.New("executor: malformed CSV line (missing id)")
	}
	rest := line[firstComma+1:]
	secondComma := strings.IndexByte(rest, ',')
	if secondComma < 0 {
		return record.Row{}, errors.New("executor: malformed CSV line (missing email)")
	}

	idField := line[:firstComma]
	username := rest[:secondComma]
	email := rest[secondComma+1:]

	id, err := strconv.Atoi(idField)
	if err != nil || id < 0 {
		return record.Row{}, errors.New("executor: malformed CSV line (bad id)")
	}
	if len(username) == 0 || len(username) > record.UsernameMaxLength {
		return record.Row{}, errors.New("executor: malformed CSV line (bad username)")
	}
	if len(email) == 0 || len(email) > record.EmailMaxLength {
		return record.Row{}, errors.New("executor: malformed CSV line (bad email)")
	}

	return record.Row{ID: uint32(id), Username: username, Email: email}, nil
}

func formatCSVLine(r record.Row) string {
	return fmt.Sprintf("%d,%s,%s\n", r.ID, r.Username, r.Email)
}

func (e *Executor) executeImport(filename string) (Result, error) {
	f, err := e.Fs.Open(filename)
	if err != nil {
		return ExecuteSilentError, errors.Wrapf(err, "executor: open %q", filename)
	}
	defer f.Close()

	var succeeded, failed int
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		row, err := parseCSVLine(line)
		if err != nil {
			failed++
			continue
		}
		if err := e.Table.Insert(row.ID, row); err != nil {
			failed++
			continue
		}
		succeeded++
	}
	if err := scanner.Err(); err != nil {
		return ExecuteSilentError, errors.Wrapf(err, "executor: read %q", filename)
	}

	fmt.Fprintf(e.Out, "Imported %d rows (%d failed).\n", succeeded, failed)
	return ExecuteSuccess, nil
}

func (e *Executor) executeExport(filename string) (Result, error) {
	f, err := e.Fs.OpenFile(filename, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return ExecuteSilentError, errors.Wrapf(err, "executor: open %q", filename)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
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
		if _, err := w.WriteString(formatCSVLine(row)); err != nil {
			return ExecuteSilentError, errors.Wrap(err, "executor: write export line")
		}
		count++
		if err := cur.Next(); err != nil {
			return ExecuteSilentError, err
		}
	}
	if err := w.Flush(); err != nil {
		return ExecuteSilentError, errors.Wrap(err, "executor: flush export file")
	}

	fmt.Fprintf(e.Out, "Exported %d rows.\n", count)
	return ExecuteSuccess, nil
}
