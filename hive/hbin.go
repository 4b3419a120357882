package hive

import (
	"bytes"
	"io"

	"github.com/joshuapare/nthive/internal/buf"
	"github.com/joshuapare/nthive/internal/format"
)

// Bin is a zero-copy view of a single hive bin: a 4096-aligned container of
// cells whose size is a positive multiple of 4096.
type Bin struct {
	h    *Hive
	off  int // absolute offset of the bin header
	size int
}

// isHBIN is a fast, zero-alloc signature check.
func isHBIN(b []byte) bool {
	const n = format.HBINSignatureSize
	if len(b) < n {
		return false
	}
	return bytes.Equal(b[:n], format.HBINSignature)
}

// binAt validates the bin header at the absolute offset abs and returns a
// view of it. limit bounds the hive-bins area.
func (h *Hive) binAt(abs, limit int) (Bin, error) {
	if abs%format.HBINAlignment != 0 || abs+format.HBINHeaderSize > limit {
		return Bin{}, errAt(ErrInvalidBinSize, abs,
			"bin header at 0x%X not addressable", abs)
	}
	if !isHBIN(h.data[abs:]) {
		return Bin{}, errAt(ErrInvalidBinSignature, abs, "want %q", format.HBINSignature)
	}

	// The header echoes the bin's own position relative to the first bin;
	// a mismatch means the offset landed inside a stale or copied page.
	fileOff := buf.U32LE(h.data[abs+format.HBINFileOffsetField:])
	if int(fileOff) != abs-format.HiveDataBase {
		return Bin{}, errAt(ErrInvalidBinSignature, abs+format.HBINFileOffsetField,
			"recorded file offset 0x%X, bin starts at 0x%X", fileOff, abs-format.HiveDataBase)
	}

	size := buf.U32LE(h.data[abs+format.HBINSizeOffset:])
	if size == 0 || size%format.HBINAlignment != 0 {
		return Bin{}, errAt(ErrInvalidBinSize, abs+format.HBINSizeOffset,
			"size 0x%X not a positive multiple of 0x1000", size)
	}
	if abs+int(size) > limit {
		return Bin{}, errAt(ErrInvalidBinSize, abs+format.HBINSizeOffset,
			"bin end 0x%X beyond hive bins end 0x%X", abs+int(size), limit)
	}
	return Bin{h: h, off: abs, size: int(size)}, nil
}

// Offset returns the absolute offset of the bin header.
func (b Bin) Offset() int { return b.off }

// Size returns the total bin size including the header.
func (b Bin) Size() int { return b.size }

func (b Bin) end() int { return b.off + b.size }

// FirstCellOffset returns the absolute offset of the first cell in the bin.
func (b Bin) FirstCellOffset() int { return b.off + format.HBINHeaderSize }

// Cells returns a cursor over the packed cells of this bin, free ones
// included.
func (b Bin) Cells() *CellIterator {
	return &CellIterator{bin: b, next: b.FirstCellOffset()}
}

// BinIterator walks the hive bins in file order. Next returns io.EOF after
// the last bin; trailing non-bin padding ends the walk.
type BinIterator struct {
	h    *Hive
	next int
	done bool
}

// Next returns the next bin or io.EOF.
func (it *BinIterator) Next() (Bin, error) {
	if it.done {
		return Bin{}, io.EOF
	}
	limit := it.h.binsLimit()
	if it.next+format.HBINHeaderSize > limit || !isHBIN(it.h.data[it.next:]) {
		it.done = true
		return Bin{}, io.EOF
	}
	bin, err := it.h.binAt(it.next, limit)
	if err != nil {
		it.done = true
		return Bin{}, err
	}
	it.next = bin.end()
	return bin, nil
}

// CellIterator walks the cells of one bin in file order.
type CellIterator struct {
	bin  Bin
	next int
	done bool
}

// Next returns the next cell (allocated or free) or io.EOF.
func (it *CellIterator) Next() (Cell, error) {
	if it.done || it.next >= it.bin.end() {
		it.done = true
		return Cell{}, io.EOF
	}
	cell, err := it.bin.frameCell(it.next)
	if err != nil {
		it.done = true
		return Cell{}, err
	}
	it.next = cell.off + cell.size
	return cell, nil
}
