// Package snapshot dumps and restores the contents of a btree.Tree.
//
// A snapshot is an ordered export over a plain io.Writer: the caller owns
// the medium, the tree never touches storage itself. Objects stream out in
// walk order, chunked into blocks that are snappy-compressed and
// length-prefixed, so restoring is a sequence of in-order inserts.
package snapshot

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/golang/snappy"

	"obtree/btree"
)

// Stream layout:
//
//	magic (4B) | version (1B) | uvarint objectSize | uvarint count
//	repeat:      uvarint compressedLen | snappy-compressed object block
const (
	magic   = "OBTS"
	version = 1

	// Uncompressed block target. Blocks close on the first object boundary
	// at or past this size.
	blockSize = 4 << 10
)

// Write streams the full contents of t to w in ascending order.
func Write(w io.Writer, t *btree.Tree) error {
	bw := bufio.NewWriter(w)
	var scratch [binary.MaxVarintLen64]byte

	if _, err := bw.WriteString(magic); err != nil {
		return err
	}
	if err := bw.WriteByte(version); err != nil {
		return err
	}
	n := binary.PutUvarint(scratch[:], uint64(t.ObjectSize()))
	if _, err := bw.Write(scratch[:n]); err != nil {
		return err
	}
	n = binary.PutUvarint(scratch[:], uint64(t.Len()))
	if _, err := bw.Write(scratch[:n]); err != nil {
		return err
	}

	var werr error
	block := make([]byte, 0, blockSize+t.ObjectSize())
	writeBlock := func() {
		compressed := snappy.Encode(nil, block)
		n := binary.PutUvarint(scratch[:], uint64(len(compressed)))
		if _, err := bw.Write(scratch[:n]); err != nil {
			werr = err
			return
		}
		if _, err := bw.Write(compressed); err != nil {
			werr = err
		}
		block = block[:0]
	}
	t.Walk(func(obj []byte) {
		if werr != nil {
			return
		}
		block = append(block, obj...)
		if len(block) >= blockSize {
			writeBlock()
		}
	})
	if werr == nil && len(block) > 0 {
		writeBlock()
	}
	if werr != nil {
		return werr
	}
	return bw.Flush()
}

// Read rebuilds a tree from a stream produced by Write. opts supplies the
// callbacks and must declare the same object size the snapshot was taken
// with.
func Read(r io.Reader, opts btree.Options) (*btree.Tree, error) {
	br := bufio.NewReader(r)

	var hdr [5]byte
	if _, err := io.ReadFull(br, hdr[:]); err != nil {
		return nil, fmt.Errorf("snapshot: reading header: %w", err)
	}
	if string(hdr[:4]) != magic {
		return nil, fmt.Errorf("snapshot: bad magic %q", hdr[:4])
	}
	if hdr[4] != version {
		return nil, fmt.Errorf("snapshot: unsupported version %d", hdr[4])
	}
	size, err := binary.ReadUvarint(br)
	if err != nil {
		return nil, fmt.Errorf("snapshot: reading object size: %w", err)
	}
	if int(size) != opts.ObjectSize {
		return nil, fmt.Errorf("snapshot: holds %d-byte objects, options declare %d", size, opts.ObjectSize)
	}
	count, err := binary.ReadUvarint(br)
	if err != nil {
		return nil, fmt.Errorf("snapshot: reading object count: %w", err)
	}

	t, err := btree.New(opts)
	if err != nil {
		return nil, err
	}
	restored := uint64(0)
	for restored < count {
		clen, err := binary.ReadUvarint(br)
		if err != nil {
			return nil, fmt.Errorf("snapshot: reading block length: %w", err)
		}
		compressed := make([]byte, clen)
		if _, err := io.ReadFull(br, compressed); err != nil {
			return nil, fmt.Errorf("snapshot: reading block: %w", err)
		}
		block, err := snappy.Decode(nil, compressed)
		if err != nil {
			return nil, fmt.Errorf("snapshot: corrupt block: %w", err)
		}
		if len(block)%opts.ObjectSize != 0 {
			return nil, fmt.Errorf("snapshot: block of %d bytes is not a whole number of objects", len(block))
		}
		for off := 0; off < len(block); off += opts.ObjectSize {
			if err := t.Insert(block[off : off+opts.ObjectSize]); err != nil {
				return nil, err
			}
			restored++
		}
	}
	if restored != count {
		return nil, fmt.Errorf("snapshot: expected %d objects, decoded %d", count, restored)
	}
	return t, nil
}
