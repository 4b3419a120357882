package hive

import (
	"io"

	"github.com/joshuapare/nthive/internal/buf"
	"github.com/joshuapare/nthive/internal/format"
)

// ValueIterator walks a key's value list in on-disk order. The list cell
// is a bare array of cell offsets, one per "vk" record. Next returns
// io.EOF after the last value.
type ValueIterator struct {
	h       *Hive
	payload []byte // value-list cell payload
	off     int    // absolute payload offset, for error reporting
	count   int
	idx     int
	done    bool
}

func newValueIterator(h *Hive, rel, count uint32) (*ValueIterator, error) {
	cell, err := h.CellAt(rel)
	if err != nil {
		return nil, err
	}
	payload := cell.Payload()
	if _, err := buf.CheckListBounds(len(payload), 0, int(count), format.DWORDSize); err != nil {
		return nil, errAt(ErrInvalidCellSize, cell.PayloadOffset(),
			"%d value offsets: %v", count, err)
	}
	return &ValueIterator{
		h:       h,
		payload: payload,
		off:     cell.PayloadOffset(),
		count:   int(count),
	}, nil
}

// Next returns the next value or io.EOF. A malformed entry yields its
// error and ends the iteration.
func (it *ValueIterator) Next() (Value, error) {
	if it.done || it.idx >= it.count {
		it.done = true
		return Value{}, io.EOF
	}
	rel := buf.U32LE(it.payload[it.idx*format.DWORDSize:])
	it.idx++
	v, err := newValue(it.h, rel)
	if err != nil {
		it.done = true
		return Value{}, err
	}
	return v, nil
}
