package hive

import (
	"bytes"
	"io"

	"github.com/joshuapare/nthive/internal/buf"
	"github.com/joshuapare/nthive/internal/format"
)

// DataType is the REG_* type tag carried by a value.
type DataType uint32

const (
	RegNone                     = DataType(format.REGNone)
	RegSZ                       = DataType(format.REGSZ)
	RegExpandSZ                 = DataType(format.REGExpandSZ)
	RegBinary                   = DataType(format.REGBinary)
	RegDword                    = DataType(format.REGDWORD)
	RegDwordBigEndian           = DataType(format.REGDWORDBigEndian)
	RegLink                     = DataType(format.REGLink)
	RegMultiSZ                  = DataType(format.REGMultiSZ)
	RegResourceList             = DataType(format.REGResourceList)
	RegFullResourceDescriptor   = DataType(format.REGFullResourceDescriptor)
	RegResourceRequirementsList = DataType(format.REGResourceRequirementsList)
	RegQword                    = DataType(format.REGQWORD)
)

var dataTypeNames = map[DataType]string{
	RegNone:                     "REG_NONE",
	RegSZ:                       "REG_SZ",
	RegExpandSZ:                 "REG_EXPAND_SZ",
	RegBinary:                   "REG_BINARY",
	RegDword:                    "REG_DWORD",
	RegDwordBigEndian:           "REG_DWORD_BIG_ENDIAN",
	RegLink:                     "REG_LINK",
	RegMultiSZ:                  "REG_MULTI_SZ",
	RegResourceList:             "REG_RESOURCE_LIST",
	RegFullResourceDescriptor:   "REG_FULL_RESOURCE_DESCRIPTOR",
	RegResourceRequirementsList: "REG_RESOURCE_REQUIREMENTS_LIST",
	RegQword:                    "REG_QWORD",
}

func (t DataType) String() string {
	if name, ok := dataTypeNames[t]; ok {
		return name
	}
	return "REG_UNKNOWN"
}

// Value is a zero-copy view of a "vk" (value key) cell: one registry value.
type Value struct {
	h       *Hive
	cell    Cell
	payload []byte // cell payload, starts with "vk"
}

// newValue dereferences rel as a cell and wraps it as a value key,
// validating the signature, the fixed header size and the inline name.
func newValue(h *Hive, rel uint32) (Value, error) {
	cell, err := h.CellAt(rel)
	if err != nil {
		return Value{}, err
	}
	payload := cell.Payload()
	off := cell.PayloadOffset()
	if len(payload) < format.VKFixedHeaderSize {
		return Value{}, errAt(ErrInvalidCellSize, cell.Offset(),
			"vk record needs %d bytes, cell payload has %d", format.VKFixedHeaderSize, len(payload))
	}
	if payload[0] != 'v' || payload[1] != 'k' {
		return Value{}, errAt(ErrInvalidValueKeySignature, off,
			"%q", payload[:format.SignatureSize])
	}
	v := Value{h: h, cell: cell, payload: payload}
	if !buf.Has(payload, format.VKNameOffset, int(v.nameLength())) {
		return Value{}, errAt(ErrInvalidNameLength, off+format.VKNameLenOffset,
			"name length %d exceeds cell payload %d", v.nameLength(), len(payload))
	}
	return v, nil
}

func (v Value) nameLength() uint16 {
	return buf.U16LE(v.payload[format.VKNameLenOffset:])
}

// Flags returns the VK flags bitfield. See the format.VKFlag* constants.
func (v Value) Flags() uint16 { return buf.U16LE(v.payload[format.VKFlagsOffset:]) }

// IsCompressedName reports whether the value name is stored in Latin-1.
func (v Value) IsCompressedName() bool {
	return v.Flags()&format.VKFlagCompressedName != 0
}

// Name returns the value name as a borrowed string view. The default value
// of a key has an empty name.
func (v Value) Name() NameString {
	raw := v.payload[format.VKNameOffset : format.VKNameOffset+int(v.nameLength())]
	if v.IsCompressedName() {
		return latin1Name(raw)
	}
	return utf16Name(raw)
}

// DataType returns the REG_* type tag.
func (v Value) DataType() DataType {
	return DataType(buf.U32LE(v.payload[format.VKTypeOffset:]))
}

func (v Value) rawDataLength() uint32 {
	return buf.U32LE(v.payload[format.VKDataLenOffset:])
}

// DataSize returns the value data length in bytes.
func (v Value) DataSize() uint32 {
	return v.rawDataLength() & format.VKDataLengthMask
}

func (v Value) dataOffset() uint32 {
	return buf.U32LE(v.payload[format.VKDataOffOffset:])
}

// Data returns the value's raw bytes. Inline and single-cell data are
// zero-copy borrows from the hive buffer; Big Data values are reassembled
// into an owned buffer, clamped to the declared length.
func (v Value) Data() ([]byte, error) {
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
		bd, err := parseBigData(v.h, v.dataOffset(), n, v.cell.PayloadOffset())
		if err != nil {
			return nil, err
		}
		return bd.assemble()
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

// DataReader returns the value's raw bytes as a lazy io.Reader. Big Data
// segments are visited one at a time without assembling the whole blob.
func (v Value) DataReader() (io.Reader, error) {
	n := int(v.DataSize())
	if n > format.DBSegmentSize {
		bd, err := parseBigData(v.h, v.dataOffset(), n, v.cell.PayloadOffset())
		if err != nil {
			return nil, err
		}
		return bd.reader(), nil
	}
	data, err := v.Data()
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(data), nil
}

// StringData reads the data of a REG_SZ, REG_EXPAND_SZ or REG_LINK value
// as UTF-16LE, trimming a single trailing NUL if present.
func (v Value) StringData() (string, error) {
	switch v.DataType() {
	case RegSZ, RegExpandSZ, RegLink:
	default:
		return "", errAt(ErrUnexpectedDataType,
			v.cell.PayloadOffset()+format.VKTypeOffset,
			"%s has no string data", v.DataType())
	}
	data, err := v.Data()
	if err != nil {
		return "", err
	}
	if len(data)%2 != 0 {
		return "", errAt(ErrInvalidStringSize,
			v.cell.PayloadOffset()+format.VKDataLenOffset,
			"odd byte length %d", len(data))
	}
	if len(data) >= 2 && data[len(data)-2] == 0 && data[len(data)-1] == 0 {
		data = data[:len(data)-2]
	}
	return utf16Name(data).String(), nil
}

// MultiStringData returns a lazy cursor over the strings of a
// REG_MULTI_SZ value. Each element is a borrowed UTF-16LE view.
func (v Value) MultiStringData() (*MultiStringIterator, error) {
	if v.DataType() != RegMultiSZ {
		return nil, errAt(ErrUnexpectedDataType,
			v.cell.PayloadOffset()+format.VKTypeOffset,
			"%s has no multi-string data", v.DataType())
	}
	data, err := v.Data()
	if err != nil {
		return nil, err
	}
	if len(data)%2 != 0 {
		return nil, errAt(ErrInvalidStringSize,
			v.cell.PayloadOffset()+format.VKDataLenOffset,
			"odd byte length %d", len(data))
	}
	return &MultiStringIterator{data: data}, nil
}

// DwordData reads a 4-byte integer: little-endian for REG_DWORD,
// big-endian for REG_DWORD_BIG_ENDIAN.
func (v Value) DwordData() (uint32, error) {
	bigEndian := false
	switch v.DataType() {
	case RegDword:
	case RegDwordBigEndian:
		bigEndian = true
	default:
		return 0, errAt(ErrUnexpectedDataType,
			v.cell.PayloadOffset()+format.VKTypeOffset,
			"%s has no dword data", v.DataType())
	}
	data, err := v.Data()
	if err != nil {
		return 0, err
	}
	if len(data) != format.DWORDSize {
		return 0, errAt(ErrInvalidDataSize,
			v.cell.PayloadOffset()+format.VKDataLenOffset,
			"dword needs %d bytes, have %d", format.DWORDSize, len(data))
	}
	if bigEndian {
		return buf.U32BE(data), nil
	}
	return buf.U32LE(data), nil
}

// QwordData reads the 8-byte little-endian integer of a REG_QWORD value.
func (v Value) QwordData() (uint64, error) {
	if v.DataType() != RegQword {
		return 0, errAt(ErrUnexpectedDataType,
			v.cell.PayloadOffset()+format.VKTypeOffset,
			"%s has no qword data", v.DataType())
	}
	data, err := v.Data()
	if err != nil {
		return 0, err
	}
	if len(data) != format.QWORDSize {
		return 0, errAt(ErrInvalidDataSize,
			v.cell.PayloadOffset()+format.VKDataLenOffset,
			"qword needs %d bytes, have %d", format.QWORDSize, len(data))
	}
	return buf.U64LE(data), nil
}

// MultiStringIterator yields the elements of a REG_MULTI_SZ payload one at
// a time: UTF-16LE strings split on NUL, ending at the empty terminator
// string or at the end of the data. No intermediate container is built.
type MultiStringIterator struct {
	data []byte
	pos  int
	done bool
}

// Next returns the next element as a borrowed view, or io.EOF.
func (it *MultiStringIterator) Next() (NameString, error) {
	if it.done || it.pos >= len(it.data) {
		it.done = true
		return NameString{}, io.EOF
	}
	start := it.pos
	for it.pos+1 < len(it.data) {
		if it.data[it.pos] == 0 && it.data[it.pos+1] == 0 {
			element := it.data[start:it.pos]
			it.pos += 2
			if len(element) == 0 {
				// The trailing empty string terminates the sequence.
				it.done = true
				return NameString{}, io.EOF
			}
			return utf16Name(element), nil
		}
		it.pos += 2
	}
	// Unterminated tail: yield it and stop.
	it.pos = len(it.data)
	it.done = true
	if start >= len(it.data) {
		return NameString{}, io.EOF
	}
	return utf16Name(it.data[start:]), nil
}
