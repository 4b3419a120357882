package hive

import (
	"github.com/joshuapare/nthive/internal/buf"
	"github.com/joshuapare/nthive/internal/format"
)

// Cell is a zero-copy view of a single cell inside a hive bin. A cell on
// disk is framed by a signed 32-bit size: negative means allocated,
// positive means free, and the absolute value (which includes the 4-byte
// header) is a multiple of 8.
type Cell struct {
	h    *Hive
	off  int // absolute offset of the size header
	size int // total size including header
	free bool
}

// frameCell validates the cell framing at the absolute offset abs against
// this bin and returns a view. Allocation state is captured, not enforced.
func (b Bin) frameCell(abs int) (Cell, error) {
	if abs < b.FirstCellOffset() || abs+format.CellHeaderSize > b.end() {
		return Cell{}, errAt(ErrCellOffsetOutOfRange, abs,
			"cell header outside bin 0x%X..0x%X", b.off, b.end())
	}
	raw := buf.I32LE(b.h.data[abs:])
	if raw == 0 {
		return Cell{}, errAt(ErrInvalidCellSize, abs, "zero size")
	}
	size := int(raw)
	free := true
	if size < 0 {
		size = -size
		free = false
	}
	if size < format.CellAlignment {
		return Cell{}, errAt(ErrInvalidCellSize, abs, "size %d below minimum", size)
	}
	if size%format.CellAlignment != 0 {
		return Cell{}, errAt(ErrInvalidCellSize, abs,
			"size %d not a multiple of %d", size, format.CellAlignment)
	}
	if abs+size > b.end() {
		return Cell{}, errAt(ErrInvalidCellSize, abs,
			"cell end 0x%X beyond bin end 0x%X", abs+size, b.end())
	}
	return Cell{h: b.h, off: abs, size: size, free: free}, nil
}

// cellAt is frameCell plus the allocation requirement that every traversal
// step imposes.
func (b Bin) cellAt(abs int) (Cell, error) {
	cell, err := b.frameCell(abs)
	if err != nil {
		return Cell{}, err
	}
	if cell.free {
		return Cell{}, errAt(ErrCellNotAllocated, abs, "size %d", cell.size)
	}
	return cell, nil
}

// Offset returns the absolute offset of the cell header.
func (c Cell) Offset() int { return c.off }

// Size returns the total cell size, header included.
func (c Cell) Size() int { return c.size }

// Allocated reports whether the cell is in use.
func (c Cell) Allocated() bool { return !c.free }

// PayloadOffset returns the absolute offset of the first payload byte.
func (c Cell) PayloadOffset() int { return c.off + format.CellHeaderSize }

// Payload returns the bytes after the size header (zero-copy).
func (c Cell) Payload() []byte {
	return c.h.data[c.PayloadOffset() : c.off+c.size]
}

// Signature returns the two-byte record tag at the start of the payload,
// or nil when the cell is too small to carry one.
func (c Cell) Signature() []byte {
	pl := c.Payload()
	if len(pl) < format.SignatureSize {
		return nil
	}
	return pl[:format.SignatureSize]
}
