// Package hive decodes Windows NT registry hive files (the regf on-disk
// format) from a caller-supplied byte buffer. Every view handed out
// (key nodes, subkey lists, values, data) borrows from that buffer; the
// decoder copies nothing unless an owned form is requested explicitly.
package hive

import (
	"github.com/joshuapare/nthive/internal/format"
)

// Hive is a decoded view over a caller-owned byte slice holding a primary
// hive file. The buffer must stay alive and unmodified (except through
// MutableData) for as long as any derived view is in use.
type Hive struct {
	data []byte
	base BaseBlock
}

// NewHive validates the base block of data and returns a Hive over it.
// Validation covers, in order: buffer length, the "regf" signature,
// sequence number equality, the XOR-32 header checksum, the primary file
// size, the format version (1.3 through 1.5), the file type (primary) and
// the file format (direct memory).
func NewHive(data []byte) (*Hive, error) {
	return newHive(data, true)
}

// NewHiveSalvage is NewHive minus the sequence-equality and checksum
// checks. It admits hives whose last write was interrupted, for callers
// that want to salvage what is still readable.
func NewHiveSalvage(data []byte) (*Hive, error) {
	return newHive(data, false)
}

func newHive(data []byte, strict bool) (*Hive, error) {
	if len(data) < format.HeaderSize {
		return nil, errAt(ErrInsufficientBuffer, 0,
			"have %d bytes, need at least %d", len(data), format.HeaderSize)
	}
	h := &Hive{data: data, base: BaseBlock{raw: data[:format.HeaderSize]}}
	if err := h.base.validate(len(data), strict); err != nil {
		return nil, err
	}
	return h, nil
}

// Bytes returns the backing buffer.
func (h *Hive) Bytes() []byte { return h.data }

// Base returns the validated base block view.
func (h *Hive) Base() BaseBlock { return h.base }

// RootKeyNode returns the key node at the root cell offset recorded in the
// base block.
func (h *Hive) RootKeyNode() (KeyNode, error) {
	return newKeyNode(h, h.base.RootCellOffset())
}

// binsLimit returns the end of the hive-bins area: the declared primary
// file size, never past the buffer (the salvage path tolerates short data).
func (h *Hive) binsLimit() int {
	limit := h.base.PrimaryFileSize()
	if limit > len(h.data) {
		limit = len(h.data)
	}
	return limit
}

// CellAt dereferences a cell offset relative to the start of the hive-bins
// area. It locates the enclosing 4096-aligned hive bin, validates the bin
// header (signature and recorded file offset), then frames the cell at the
// requested position and checks it is allocated, 8-byte sized and inside
// the bin payload.
func (h *Hive) CellAt(rel uint32) (Cell, error) {
	if rel == format.InvalidOffset {
		return Cell{}, errAt(ErrCellOffsetOutOfRange, format.HiveDataBase,
			"offset 0x%X is the invalid-offset marker", rel)
	}
	abs := format.HiveDataBase + int(rel)
	limit := h.binsLimit()
	if abs < format.HiveDataBase || abs+format.CellHeaderSize > limit {
		return Cell{}, errAt(ErrCellOffsetOutOfRange, abs,
			"cell offset 0x%X beyond hive bins end 0x%X", rel, limit)
	}

	bin, err := h.binFor(abs)
	if err != nil {
		return Cell{}, err
	}
	return bin.cellAt(abs)
}

// binFor walks 4096-aligned boundaries backwards from abs until it finds
// the header of the bin enclosing abs. Bins larger than one page leave
// their interior pages without a signature, hence the walk.
func (h *Hive) binFor(abs int) (Bin, error) {
	limit := h.binsLimit()
	for start := abs &^ (format.HBINAlignment - 1); start >= format.HiveDataBase; start -= format.HBINAlignment {
		if !isHBIN(h.data[start:]) {
			continue
		}
		bin, err := h.binAt(start, limit)
		if err != nil {
			return Bin{}, err
		}
		if abs < bin.end() {
			return bin, nil
		}
		// A valid bin starting at or before abs that does not cover it
		// means abs points into padding between bins.
		break
	}
	return Bin{}, errAt(ErrInvalidBinSignature, abs&^(format.HBINAlignment-1),
		"no enclosing hive bin for offset 0x%X", abs)
}

// Bins returns a cursor over all hive bins, starting at offset 4096.
// Each call yields a fresh, restartable iterator.
func (h *Hive) Bins() *BinIterator {
	return &BinIterator{h: h, next: format.HiveDataBase}
}
