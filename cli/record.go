package cli

import (
	"bytes"
	"encoding/binary"

	"obtree/btree"
)

// The demo stores fixed-width records: a numeric id followed by a short name
// payload. Big-endian ids make bytes.Compare agree with numeric order.
const (
	IDSize     = 8
	NameSize   = 24
	RecordSize = IDSize + NameSize
)

type Record struct {
	ID   uint64
	Name string
}

// Encode packs r into its fixed-width wire form. Names longer than NameSize
// bytes are truncated.
func (r Record) Encode() []byte {
	buf := make([]byte, RecordSize)
	binary.BigEndian.PutUint64(buf[:IDSize], r.ID)
	copy(buf[IDSize:], r.Name)
	return buf
}

// DecodeRecord unpacks a stored object back into a Record.
func DecodeRecord(obj []byte) Record {
	return Record{
		ID:   binary.BigEndian.Uint64(obj[:IDSize]),
		Name: string(bytes.TrimRight(obj[IDSize:RecordSize], "\x00")),
	}
}

// EncodeKey renders an id as the key form ExtractKey produces.
func EncodeKey(id uint64) []byte {
	key := make([]byte, IDSize)
	binary.BigEndian.PutUint64(key, id)
	return key
}

// TreeOptions wires the record codec into the tree callbacks.
func TreeOptions(degree int) btree.Options {
	return btree.Options{
		Degree:     degree,
		ObjectSize: RecordSize,
		CompareObjects: func(a, b []byte) int {
			return bytes.Compare(a[:IDSize], b[:IDSize])
		},
		CompareKey: func(key, objKey []byte) int {
			return bytes.Compare(key, objKey)
		},
		ExtractKey: func(obj []byte) []byte {
			return obj[:IDSize]
		},
	}
}
