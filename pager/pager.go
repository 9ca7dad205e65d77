// Package pager manages the fixed 4096-byte pages backing the table file,
// caching pages in memory and flushing dirty ones to disk on close.
package pager

import (
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/afero"

	"fourk/fault"
)

const (
	// PageSize is the fixed page size in bytes.
	PageSize = 4096
	// MaxPages bounds the number of pages a single file may hold. Reaching
	// it is a fatal invariant violation, not a recoverable error.
	MaxPages = 100
)

// Page is one in-memory 4096-byte page, addressed by its page number.
type Page struct {
	Data    [PageSize]byte
	PageNum uint32
	dirty   bool
}

// Pager owns the backing file and the page cache. It never interprets
// page contents; that is the table package's job.
type Pager struct {
	fs       afero.Fs
	file     afero.File
	pages    []*Page
	numPages uint32
}

// Open opens (creating if absent) the file at path on fs and computes
// the current page count from its size. It does not eagerly load pages.
func Open(fs afero.Fs, path string) (*Pager, error) {
	f, err := fs.OpenFile(path, os.O_RDWR|os.O_CREATE, 0600)
	if err != nil {
		return nil, errors.Wrap(err, "pager: open file")
	}
	fi, err := f.Stat()
	if err != nil {
		return nil, errors.Wrap(err, "pager: stat file")
	}

	fileLength := fi.Size()
	if fileLength%PageSize != 0 {
		return nil, fault.Newf("pager: file %q is not a whole number of pages; corrupt", path)
	}

	numPages := uint32(fileLength / PageSize)
	return &Pager{
		fs:       fs,
		file:     f,
		pages:    make([]*Page, numPages, numPages+8),
		numPages: numPages,
	}, nil
}

// NumPages reports the current page count, including pages allocated but
// not yet flushed.
func (p *Pager) NumPages() uint32 { return p.numPages }

// Get returns the page at idx, loading it from disk on first access. If
// idx is beyond the current page count, the page count is extended to
// idx+1 and a zeroed page is returned — this mirrors the reference
// implementation's get_page, which grows the table lazily rather than
// requiring a page to be allocated before it can be fetched.
func (p *Pager) Get(idx uint32) (*Page, error) {
	if idx >= MaxPages {
		return nil, fault.Newf("pager: page %d out of bounds (max %d)", idx, MaxPages)
	}

	if idx < uint32(len(p.pages)) && p.pages[idx] != nil {
		return p.pages[idx], nil
	}

	page := &Page{PageNum: idx}
	if idx < p.numPages {
		if err := p.readPage(idx, page); err != nil {
			return nil, err
		}
	}

	if idx >= uint32(len(p.pages)) {
		grown := make([]*Page, idx+1)
		copy(grown, p.pages)
		p.pages = grown
	}
	p.pages[idx] = page

	if idx >= p.numPages {
		p.numPages = idx + 1
	}
	return page, nil
}

func (p *Pager) readPage(idx uint32, page *Page) error {
	off := int64(idx) * PageSize
	if _, err := p.file.Seek(off, io.SeekStart); err != nil {
		return fault.Wrapf(err, "pager: seek page %d", idx)
	}
	n, err := io.ReadFull(p.file, page.Data[:])
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return fault.Wrapf(err, "pager: read page %d", idx)
	}
	_ = n
	return nil
}

// Allocate returns the next unused page index (append-only: pages are
// never reused once freed by a delete/merge).
func (p *Pager) Allocate() (uint32, error) {
	if p.numPages >= MaxPages {
		return 0, fault.Newf("pager: cannot allocate page, at capacity (%d)", MaxPages)
	}
	idx := p.numPages
	page := &Page{PageNum: idx, dirty: true}
	if idx >= uint32(len(p.pages)) {
		grown := make([]*Page, idx+1)
		copy(grown, p.pages)
		p.pages = grown
	}
	p.pages[idx] = page
	p.numPages++
	return idx, nil
}

// MarkDirty flags a page for writing on the next flush.
func (p *Page) MarkDirty() { p.dirty = true }

func (p *Pager) flushPage(idx uint32) error {
	page := p.pages[idx]
	if page == nil {
		return fault.Newf("pager: tried to flush nil page %d", idx)
	}
	off := int64(idx) * PageSize
	if _, err := p.file.Seek(off, io.SeekStart); err != nil {
		return fault.Wrapf(err, "pager: seek flush page %d", idx)
	}
	if _, err := p.file.Write(page.Data[:]); err != nil {
		return fault.Wrapf(err, "pager: write page %d", idx)
	}
	page.dirty = false
	return nil
}

// Flush writes every dirty cached page to disk.
func (p *Pager) Flush() error {
	for idx, page := range p.pages {
		if page != nil && page.dirty {
			if err := p.flushPage(uint32(idx)); err != nil {
				return err
			}
		}
	}
	return nil
}

// Close flushes all dirty pages, truncates the file to the last
// touched page, and closes the underlying handle.
func (p *Pager) Close() error {
	if err := p.Flush(); err != nil {
		return err
	}
	if err := p.file.Truncate(int64(p.numPages) * PageSize); err != nil {
		return fault.Wrap(err, "pager: truncate on close")
	}
	return fault.Wrap(p.file.Close(), "pager: close file")
}
