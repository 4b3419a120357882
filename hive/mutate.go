package hive

import (
	"github.com/joshuapare/nthive/internal/format"
)

// MutableData returns a writable slice over the value's existing payload,
// for overwriting a fixed-size scalar in place. The slice length is the
// current data length; no resize, allocation or Big Data rewrite is
// possible through it, and values served by a Big Data record fail with
// ErrReadOnly. The caller must serialize the overwrite against any
// concurrent reader of the same buffer.
func (v Value) MutableData() ([]byte, error) {
	n := int(v.DataSize())
	if n == 0 {
		return nil, nil
	}

	if raw := v.rawDataLength(); raw&format.VKDataInlineBit != 0 {
		if n > format.VKInlineDataMax {
			return nil, errAt(ErrInvalidDataSize,
				v.cell.PayloadOffset()+format.VKDataLenOffset,
				"inline flag with length %d", n)
		}
		base := format.VKDataOffOffset
		return v.payload[base : base+n : base+n], nil
	}

	if n > format.DBSegmentSize {
		return nil, errAt(ErrReadOnly,
			v.cell.PayloadOffset()+format.VKDataLenOffset,
			"big data values cannot be rewritten in place")
	}

	cell, err := v.h.CellAt(v.dataOffset())
	if err != nil {
		return nil, err
	}
	payload := cell.Payload()
	if len(payload) < n {
		return nil, errAt(ErrInvalidDataSize,
			v.cell.PayloadOffset()+format.VKDataLenOffset,
			"declared %d bytes, data cell payload has %d", n, len(payload))
	}
	return payload[:n:n], nil
}
