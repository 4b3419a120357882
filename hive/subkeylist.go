package hive

import (
	"errors"

	"github.com/joshuapare/nthive/internal/buf"
	"github.com/joshuapare/nthive/internal/format"
)

// listKind discriminates the four subkey-list layouts.
type listKind int

const (
	listLF listKind = iota // fast leaf: (cell, 4-byte name hint) pairs
	listLH                 // hash leaf: (cell, 32-bit name hash) pairs
	listLI                 // index leaf: bare cell offsets
	listRI                 // index root: offsets of subordinate lists
)

// subkeyList is a zero-copy view of one subkey-list cell of any layout.
type subkeyList struct {
	h       *Hive
	kind    listKind
	payload []byte // cell payload, starts with the 2-byte signature
	off     int    // absolute offset of the payload, for error reporting
	count   int
}

// parseSubkeyList dereferences rel and wraps the cell as a subkey list,
// validating the signature and that the declared entry count fits the cell.
func parseSubkeyList(h *Hive, rel uint32) (subkeyList, error) {
	cell, err := h.CellAt(rel)
	if err != nil {
		return subkeyList{}, err
	}
	payload := cell.Payload()
	off := cell.PayloadOffset()
	if len(payload) < format.IdxListOffset {
		return subkeyList{}, errAt(ErrInvalidSubkeyListSignature, off,
			"list header needs %d bytes, cell payload has %d", format.IdxListOffset, len(payload))
	}

	var kind listKind
	switch {
	case payload[0] == 'l' && payload[1] == 'f':
		kind = listLF
	case payload[0] == 'l' && payload[1] == 'h':
		kind = listLH
	case payload[0] == 'l' && payload[1] == 'i':
		kind = listLI
	case payload[0] == 'r' && payload[1] == 'i':
		kind = listRI
	default:
		return subkeyList{}, errAt(ErrInvalidSubkeyListSignature, off,
			"%q", payload[:format.SignatureSize])
	}

	count := int(buf.U16LE(payload[format.IdxCountOffset:]))
	if _, err := buf.CheckListBounds(len(payload), format.IdxListOffset, count, kind.entrySize()); err != nil {
		return subkeyList{}, errAt(ErrInvalidCellSize, off+format.IdxCountOffset,
			"%d entries of %d bytes: %v", count, kind.entrySize(), err)
	}

	return subkeyList{h: h, kind: kind, payload: payload, off: off, count: count}, nil
}

func (k listKind) entrySize() int {
	if k == listLF || k == listLH {
		return format.LFLHEntrySize
	}
	return format.LIEntrySize
}

// entryCell returns the cell offset stored in entry i: a child key node for
// leaf lists, a subordinate list for index roots.
func (l subkeyList) entryCell(i int) uint32 {
	return buf.U32LE(l.payload[format.IdxListOffset+i*l.kind.entrySize():])
}

// entryHintBytes returns the verbatim 4-byte name hint of a fast-leaf entry.
func (l subkeyList) entryHintBytes(i int) []byte {
	base := format.IdxListOffset + i*format.LFLHEntrySize + format.LIEntrySize
	return l.payload[base : base+4]
}

// entryHash returns the 32-bit name hash of a hash-leaf entry.
func (l subkeyList) entryHash(i int) uint32 {
	return buf.U32LE(l.payload[format.IdxListOffset+i*format.LFLHEntrySize+format.LIEntrySize:])
}

// childAt dereferences entry i as a key node, mapping the cell-level
// failure to the subkey-specific error so the faulty list entry is named.
func (l subkeyList) childAt(i int) (KeyNode, error) {
	rel := l.entryCell(i)
	node, err := newKeyNode(l.h, rel)
	if err != nil {
		if errors.Is(err, ErrCellOffsetOutOfRange) {
			return KeyNode{}, errAt(ErrSubkeyOffsetOutOfRange,
				l.off+format.IdxListOffset+i*l.kind.entrySize(),
				"entry %d points at 0x%X", i, rel)
		}
		return KeyNode{}, err
	}
	return node, nil
}
