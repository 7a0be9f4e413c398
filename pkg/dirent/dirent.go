// Package dirent decodes the server's packed directory-entry format,
// returned inside GET responses when the target inode is a directory:
// u16 LE name_len ‖ name_bytes ‖ zero_pad_to_multiple_of_8. Ported from
// cldc_dirent_first/cldc_dirent_next/dirent_length/cldc_dirent_name in the
// original client engine.
package dirent

import (
	"encoding/binary"

	"github.com/cldc-go/cldc/pkg/errcode"
)

const headerSize = 2 // u16 name_len

// align8 rounds n up to the next multiple of 8.
func align8(n int) int {
	return (n + 7) &^ 7
}

// recordLen returns the total aligned length of a record whose name is
// nameLen bytes long.
func recordLen(nameLen int) int {
	return align8(headerSize + nameLen)
}

// Cursor walks a directory buffer one record at a time.
type Cursor struct {
	buf []byte
	off int
}

// NewCursor returns a Cursor positioned at the first record of buf.
func NewCursor(buf []byte) *Cursor {
	return &Cursor{buf: buf}
}

// Valid reports whether the cursor currently points at a record.
func (c *Cursor) Valid() bool {
	return c.off < len(c.buf)
}

// Name returns the current record's name. Valid must be true.
func (c *Cursor) Name() (string, error) {
	rem := c.buf[c.off:]
	if len(rem) < headerSize {
		return "", errcode.Protocol("dirent record truncated", nil)
	}
	nameLen := int(binary.LittleEndian.Uint16(rem))
	total := recordLen(nameLen)
	if total > len(rem) {
		return "", errcode.Protocol("dirent record exceeds remaining bytes", nil)
	}
	return string(rem[headerSize : headerSize+nameLen]), nil
}

// Next advances the cursor to the following record.
func (c *Cursor) Next() error {
	rem := c.buf[c.off:]
	if len(rem) < headerSize {
		return errcode.Protocol("dirent record truncated", nil)
	}
	nameLen := int(binary.LittleEndian.Uint16(rem))
	total := recordLen(nameLen)
	if total > len(rem) {
		return errcode.Protocol("dirent record exceeds remaining bytes", nil)
	}
	c.off += total
	return nil
}

// Names decodes every record in buf into a slice, validating each record's
// length invariant (total_len = align8(2 + name_len) <= remaining_bytes).
func Names(buf []byte) ([]string, error) {
	var names []string
	c := NewCursor(buf)
	for c.Valid() {
		name, err := c.Name()
		if err != nil {
			return nil, err
		}
		names = append(names, name)
		if err := c.Next(); err != nil {
			return nil, err
		}
	}
	return names, nil
}

// Count returns the number of records in buf without allocating the name
// slice for each.
func Count(buf []byte) (int, error) {
	n := 0
	c := NewCursor(buf)
	for c.Valid() {
		if _, err := c.Name(); err != nil {
			return 0, err
		}
		n++
		if err := c.Next(); err != nil {
			return 0, err
		}
	}
	return n, nil
}

// Encode packs names into the wire directory-record format; this package's
// tests use it to build fixtures.
func Encode(names []string) []byte {
	var out []byte
	for _, name := range names {
		rec := make([]byte, recordLen(len(name)))
		binary.LittleEndian.PutUint16(rec, uint16(len(name)))
		copy(rec[headerSize:], name)
		out = append(out, rec...)
	}
	return out
}
