package table

import (
	"io"
	"strconv"

	"github.com/pkg/errors"
	"github.com/spf13/afero"

	"fourk/pager"
	"fourk/record"
)

// Table is the single-table database: a pager-backed B+tree plus the
// bookkeeping to initialize a brand-new file with an empty root leaf.
type Table struct {
	btree *btree
	pager *pager.Pager
}

// Open opens (creating if absent) the database file at path on fs. A
// fresh file gets page 0 initialized as an empty root leaf.
func Open(fs afero.Fs, path string) (*Table, error) {
	pg, err := pager.Open(fs, path)
	if err != nil {
		return nil, errors.Wrap(err, "table: open")
	}

	t := &Table{btree: &btree{pager: pg}, pager: pg}

	if pg.NumPages() == 0 {
		root, err := pg.Get(rootPage)
		if err != nil {
			return nil, err
		}
		asLeaf(root).initialize(true, InvalidPageIdx)
	}
	return t, nil
}

// OpenFile is a convenience wrapper over Open using the real OS
// filesystem.
func OpenFile(path string) (*Table, error) {
	return Open(afero.NewOsFs(), path)
}

// Close flushes and truncates the backing file.
func (t *Table) Close() error {
	return t.pager.Close()
}

// Insert adds row under key. Returns ErrDuplicateKey if key is taken.
func (t *Table) Insert(key uint32, row record.Row) error {
	return t.btree.insert(key, row)
}

// Delete removes key. Returns ErrKeyNotFound if absent.
func (t *Table) Delete(key uint32) error {
	return t.btree.remove(key)
}

// Find looks up a single row by key.
func (t *Table) Find(key uint32) (record.Row, bool, error) {
	pageIdx, cellIdx, found, err := t.btree.find(key)
	if err != nil {
		return record.Row{}, false, err
	}
	if !found {
		return record.Row{}, false, nil
	}
	page, err := t.pager.Get(pageIdx)
	if err != nil {
		return record.Row{}, false, err
	}
	row, err := asLeaf(page).row(cellIdx)
	return row, true, err
}

// Update rewrites the username or email of the row at key in place.
// field must be "username" or "email".
func (t *Table) Update(key uint32, field, value string) error {
	pageIdx, cellIdx, found, err := t.btree.find(key)
	if err != nil {
		return err
	}
	if !found {
		return ErrKeyNotFound
	}
	page, err := t.pager.Get(pageIdx)
	if err != nil {
		return err
	}
	leaf := asLeaf(page)
	row, err := leaf.row(cellIdx)
	if err != nil {
		return err
	}
	switch field {
	case "username":
		row.Username = value
	case "email":
		row.Email = value
	default:
		return errors.Errorf("table: unknown field %q", field)
	}
	return leaf.setCell(cellIdx, key, row)
}

// Start returns a cursor over every row in key order.
func (t *Table) Start() (*Cursor, error) { return t.btree.Start() }

// Seek returns a cursor positioned at the first row with key >= target.
func (t *Table) Seek(target uint32) (*Cursor, error) { return t.btree.Seek(target) }

// PrintTree renders the tree's page structure, mirroring the reference
// implementation's `.btree` meta-command output.
func (t *Table) PrintTree(w io.Writer) error {
	return t.printSubtree(w, rootPage, 0)
}

func (t *Table) printSubtree(w io.Writer, pageIdx uint32, indent int) error {
	page, err := t.pager.Get(pageIdx)
	if err != nil {
		return err
	}
	ch := readCommonHeader(page.Data[:])
	pad := func(level int) {
		for i := 0; i < level; i++ {
			io.WriteString(w, "  ")
		}
	}
	if ch.kind == nodeLeaf {
		leaf := asLeaf(page)
		n := leaf.numCells()
		pad(indent)
		io.WriteString(w, "- leaf (size "+strconv.Itoa(int(n))+")\n")
		for i := uint32(0); i < n; i++ {
			pad(indent + 1)
			io.WriteString(w, "- "+strconv.Itoa(int(leaf.key(i)))+"\n")
		}
		return nil
	}

	node := asInternal(page)
	h := node.header()
	pad(indent)
	io.WriteString(w, "- internal (size "+strconv.Itoa(int(h.numKeys))+")\n")
	for i := uint32(0); i < h.numKeys; i++ {
		childIdx, err := node.child(i)
		if err != nil {
			return err
		}
		if err := t.printSubtree(w, childIdx, indent+1); err != nil {
			return err
		}
		pad(indent + 1)
		io.WriteString(w, "- key "+strconv.Itoa(int(node.key(i)))+"\n")
	}
	if h.rightChild != InvalidPageIdx {
		if err := t.printSubtree(w, h.rightChild, indent+1); err != nil {
			return err
		}
	}
	return nil
}
