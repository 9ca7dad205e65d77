package repl

import (
	"bytes"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"fourk/table"
)

func runSession(t *testing.T, input string) string {
	t.Helper()
	fs := afero.NewMemMapFs()
	tbl, err := table.Open(fs, "/db.bin")
	require.NoError(t, err)

	var out bytes.Buffer
	r := New(tbl, fs, strings.NewReader(input), &out, false)
	require.NoError(t, r.Run())
	return out.String()
}

func TestREPLInsertAndSelect(t *testing.T) {
	out := runSession(t, "insert 1 alice alice@example.com\nselect\n.exit\n")
	require.Contains(t, out, "Executed.")
	require.Contains(t, out, "(1, alice, alice@example.com)")
	require.Contains(t, out, "(Fetched 1 rows)")
}

func TestREPLDuplicateKey(t *testing.T) {
	out := runSession(t, "insert 1 alice alice@example.com\ninsert 1 bob bob@example.com\n.exit\n")
	require.Contains(t, out, "Duplicate key")
}

func TestREPLUnrecognizedStatement(t *testing.T) {
	out := runSession(t, "frobnicate\n.exit\n")
	require.Contains(t, out, "Unrecognized keyword")
}

func TestREPLUnrecognizedMetaCommand(t *testing.T) {
	out := runSession(t, ".bogus\n.exit\n")
	require.Contains(t, out, "Unrecognized command")
}

func TestREPLConstants(t *testing.T) {
	out := runSession(t, ".constants\n.exit\n")
	require.Contains(t, out, "USER_ROW_SIZE")
}

func TestREPLCommandsHelp(t *testing.T) {
	out := runSession(t, ".commands\n.exit\n")
	require.Contains(t, out, "insert {num} {name} {email}")
}

func TestREPLBtree(t *testing.T) {
	out := runSession(t, "insert 1 alice alice@example.com\n.btree\n.exit\n")
	require.Contains(t, out, "- leaf (size 1)")
}
