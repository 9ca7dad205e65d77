package record

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSerializeDeserializeRoundTrip(t *testing.T) {
	r := Row{ID: 7, Username: "alice", Email: "alice@example.com"}
	buf := make([]byte, RowSize)

	require.NoError(t, Serialize(r, buf))

	got, err := Deserialize(buf)
	require.NoError(t, err)
	require.Equal(t, r, got)
}

func TestSerializeRejectsWrongLength(t *testing.T) {
	r := Row{ID: 1, Username: "bob", Email: "bob@example.com"}
	err := Serialize(r, make([]byte, RowSize-1))
	require.Error(t, err)
}

func TestSerializeRejectsOversizeFields(t *testing.T) {
	long := make([]byte, UsernameMaxLength+1)
	for i := range long {
		long[i] = 'x'
	}
	r := Row{ID: 1, Username: string(long), Email: "e@example.com"}
	err := Serialize(r, make([]byte, RowSize))
	require.Error(t, err)
}

func TestRowSizeConstant(t *testing.T) {
	require.Equal(t, 293, RowSize)
}
