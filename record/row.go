// Package record defines the fixed on-disk shape of the single table
// fourk serves: one row type, three columns, no schema negotiation.
package record

import (
	"encoding/binary"
	"strings"

	"github.com/pkg/errors"
)

const (
	UsernameMaxLength = 32
	EmailMaxLength    = 255

	idSize       = 4
	usernameSize = UsernameMaxLength + 1 // null terminator
	emailSize    = EmailMaxLength + 1    // null terminator

	idOffset       = 0
	usernameOffset = idOffset + idSize
	emailOffset    = usernameOffset + usernameSize

	// RowSize is USER_ROW_SIZE: 4 + 33 + 256 = 293 bytes.
	RowSize = emailOffset + emailSize
)

// Row is a single user record: id, username, email.
type Row struct {
	ID       uint32
	Username string
	Email    string
}

// Validate enforces the length limits the statement parser must also
// enforce before a row ever reaches Serialize.
func (r Row) Validate() error {
	if len(r.Username) > UsernameMaxLength {
		return errors.Errorf("username exceeds %d characters", UsernameMaxLength)
	}
	if len(r.Email) > EmailMaxLength {
		return errors.Errorf("email exceeds %d characters", EmailMaxLength)
	}
	return nil
}

// Serialize writes r into dst, which must be exactly RowSize bytes.
func Serialize(r Row, dst []byte) error {
	if len(dst) != RowSize {
		return errors.Errorf("record.Serialize: dst length %d, want %d", len(dst), RowSize)
	}
	if err := r.Validate(); err != nil {
		return errors.Wrap(err, "record.Serialize")
	}

	for i := range dst {
		dst[i] = 0
	}
	binary.LittleEndian.PutUint32(dst[idOffset:idOffset+idSize], r.ID)
	copy(dst[usernameOffset:usernameOffset+usernameSize], r.Username)
	copy(dst[emailOffset:emailOffset+emailSize], r.Email)
	return nil
}

// Deserialize reads a Row out of src, which must be exactly RowSize bytes.
func Deserialize(src []byte) (Row, error) {
	if len(src) != RowSize {
		return Row{}, errors.Errorf("record.Deserialize: src length %d, want %d", len(src), RowSize)
	}

	id := binary.LittleEndian.Uint32(src[idOffset : idOffset+idSize])
	username := trimNulls(src[usernameOffset : usernameOffset+usernameSize])
	email := trimNulls(src[emailOffset : emailOffset+emailSize])
	return Row{ID: id, Username: username, Email: email}, nil
}

func trimNulls(b []byte) string {
	s := string(b)
	if i := strings.IndexByte(s, 0); i >= 0 {
		s = s[:i]
	}
	return s
}
