package pager

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

func newMemPager(t *testing.T) *Pager {
	t.Helper()
	fs := afero.NewMemMapFs()
	p, err := Open(fs, "/test.db")
	require.NoError(t, err)
	return p
}

func TestOpenFreshFileHasZeroPages(t *testing.T) {
	p := newMemPager(t)
	require.Equal(t, uint32(0), p.NumPages())
}

func TestGetExtendsPageCount(t *testing.T) {
	p := newMemPager(t)
	page, err := p.Get(3)
	require.NoError(t, err)
	require.Equal(t, uint32(3), page.PageNum)
	require.Equal(t, uint32(4), p.NumPages())
}

func TestAllocateAppendsSequentially(t *testing.T) {
	p := newMemPager(t)
	a, err := p.Allocate()
	require.NoError(t, err)
	require.Equal(t, uint32(0), a)

	b, err := p.Allocate()
	require.NoError(t, err)
	require.Equal(t, uint32(1), b)
	require.Equal(t, uint32(2), p.NumPages())
}

func TestAllocateRejectsBeyondCapacity(t *testing.T) {
	p := newMemPager(t)
	for i := 0; i < MaxPages; i++ {
		_, err := p.Allocate()
		require.NoError(t, err)
	}
	_, err := p.Allocate()
	require.Error(t, err)
}

func TestGetRejectsOutOfBounds(t *testing.T) {
	p := newMemPager(t)
	_, err := p.Get(MaxPages)
	require.Error(t, err)
}

func TestFlushAndReopenPreservesData(t *testing.T) {
	fs := afero.NewMemMapFs()
	p, err := Open(fs, "/test.db")
	require.NoError(t, err)

	idx, err := p.Allocate()
	require.NoError(t, err)
	page, err := p.Get(idx)
	require.NoError(t, err)
	page.Data[0] = 0x42
	page.MarkDirty()
	require.NoError(t, p.Close())

	reopened, err := Open(fs, "/test.db")
	require.NoError(t, err)
	require.Equal(t, uint32(1), reopened.NumPages())

	got, err := reopened.Get(0)
	require.NoError(t, err)
	require.Equal(t, byte(0x42), got.Data[0])
}
