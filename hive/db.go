package hive

import (
	"io"

	"github.com/joshuapare/nthive/internal/buf"
	"github.com/joshuapare/nthive/internal/format"
)

// bigData is a view of a "db" record: the multi-segment layout used for
// value data longer than one cell can hold. The record names a segment
// count and a separate list cell holding one cell offset per segment;
// concatenating the segment payloads up to the declared total length
// yields the logical blob.
type bigData struct {
	h       *Hive
	total   int    // declared value data length
	count   int    // declared segment count
	listRel uint32 // offset of the segment-list cell
	lenOff  int    // offset of the vk length field, for error reporting
}

func parseBigData(h *Hive, rel uint32, total, vkPayloadOff int) (bigData, error) {
	cell, err := h.CellAt(rel)
	if err != nil {
		return bigData{}, err
	}
	payload := cell.Payload()
	off := cell.PayloadOffset()
	if len(payload) < format.DBHeaderSize {
		return bigData{}, errAt(ErrInvalidCellSize, cell.Offset(),
			"db record needs %d bytes, cell payload has %d", format.DBHeaderSize, len(payload))
	}
	if payload[0] != 'd' || payload[1] != 'b' {
		return bigData{}, errAt(ErrInvalidBigDataSignature, off,
			"%q", payload[:format.SignatureSize])
	}
	count := int(buf.U16LE(payload[format.DBCountOffset:]))
	if count < format.DBMinSegmentCount {
		return bigData{}, errAt(ErrInvalidDataSize, off+format.DBCountOffset,
			"segment count %d below minimum %d", count, format.DBMinSegmentCount)
	}
	return bigData{
		h:       h,
		total:   total,
		count:   count,
		listRel: buf.U32LE(payload[format.DBListOffset:]),
		lenOff:  vkPayloadOff + format.VKDataLenOffset,
	}, nil
}

// segmentList dereferences the segment-list cell and returns its payload,
// checked to hold count offsets.
func (bd bigData) segmentList() ([]byte, error) {
	cell, err := bd.h.CellAt(bd.listRel)
	if err != nil {
		return nil, err
	}
	payload := cell.Payload()
	if _, err := buf.CheckListBounds(len(payload), 0, bd.count, format.DWORDSize); err != nil {
		return nil, errAt(ErrInvalidCellSize, cell.PayloadOffset(),
			"%d segment offsets: %v", bd.count, err)
	}
	return payload, nil
}

// segment returns the payload of segment i, clamped to the segment size.
func (bd bigData) segment(list []byte, i int) ([]byte, error) {
	rel := buf.U32LE(list[i*format.DWORDSize:])
	cell, err := bd.h.CellAt(rel)
	if err != nil {
		return nil, err
	}
	payload := cell.Payload()
	if len(payload) > format.DBSegmentSize {
		payload = payload[:format.DBSegmentSize]
	}
	return payload, nil
}

// assemble materializes the blob: segment payloads concatenated in order,
// clamped to the declared total length.
func (bd bigData) assemble() ([]byte, error) {
	list, err := bd.segmentList()
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, bd.total)
	for i := 0; i < bd.count && len(out) < bd.total; i++ {
		seg, err := bd.segment(list, i)
		if err != nil {
			return nil, err
		}
		if remaining := bd.total - len(out); len(seg) > remaining {
			seg = seg[:remaining]
		}
		out = append(out, seg...)
	}
	if len(out) < bd.total {
		return nil, errAt(ErrInvalidDataSize, bd.lenOff,
			"declared %d bytes, segments provide %d", bd.total, len(out))
	}
	return out, nil
}

// reader returns a lazy io.Reader over the segments.
func (bd bigData) reader() io.Reader {
	return &bigDataReader{bd: bd, remaining: bd.total}
}

type bigDataReader struct {
	bd        bigData
	list      []byte
	seg       []byte // unread tail of the current segment
	idx       int
	remaining int
	err       error
}

func (r *bigDataReader) Read(p []byte) (int, error) {
	if r.err != nil {
		return 0, r.err
	}
	if r.remaining <= 0 {
		return 0, io.EOF
	}
	if r.list == nil {
		list, err := r.bd.segmentList()
		if err != nil {
			r.err = err
			return 0, err
		}
		r.list = list
	}
	for len(r.seg) == 0 {
		if r.idx >= r.bd.count {
			r.err = errAt(ErrInvalidDataSize, r.bd.lenOff,
				"declared %d bytes, segments fell %d short", r.bd.total, r.remaining)
			return 0, r.err
		}
		seg, err := r.bd.segment(r.list, r.idx)
		if err != nil {
			r.err = err
			return 0, err
		}
		r.idx++
		if len(seg) > r.remaining {
			seg = seg[:r.remaining]
		}
		r.seg = seg
	}
	n := copy(p, r.seg)
	r.seg = r.seg[n:]
	r.remaining -= n
	if r.remaining == 0 && len(r.seg) == 0 {
		r.err = io.EOF
	}
	return n, nil
}
