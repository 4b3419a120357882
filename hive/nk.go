package hive

import (
	"io"
	"strings"
	"time"

	"github.com/joshuapare/nthive/internal/buf"
	"github.com/joshuapare/nthive/internal/format"
)

// KeyNode is a zero-copy view of an "nk" (key node) cell: one registry key.
type KeyNode struct {
	h       *Hive
	cell    Cell
	payload []byte // cell payload, starts with "nk"
}

// newKeyNode dereferences rel as a cell and wraps it as a key node,
// validating the signature, the fixed header size and the inline name.
func newKeyNode(h *Hive, rel uint32) (KeyNode, error) {
	cell, err := h.CellAt(rel)
	if err != nil {
		return KeyNode{}, err
	}
	payload := cell.Payload()
	off := cell.PayloadOffset()
	if len(payload) < format.NKFixedHeaderSize {
		return KeyNode{}, errAt(ErrInvalidCellSize, cell.Offset(),
			"nk record needs %d bytes, cell payload has %d", format.NKFixedHeaderSize, len(payload))
	}
	if payload[0] != 'n' || payload[1] != 'k' {
		return KeyNode{}, errAt(ErrInvalidKeyNodeSignature, off,
			"%q", payload[:format.SignatureSize])
	}
	k := KeyNode{h: h, cell: cell, payload: payload}
	if !buf.Has(payload, format.NKNameOffset, int(k.nameLength())) {
		return KeyNode{}, errAt(ErrInvalidNameLength, off+format.NKNameLenOffset,
			"name length %d exceeds cell payload %d", k.nameLength(), len(payload))
	}
	return k, nil
}

// CellOffset returns the absolute offset of the backing cell header.
func (k KeyNode) CellOffset() int { return k.cell.Offset() }

// Flags returns the NK flags bitfield. See the format.NKFlag* constants.
func (k KeyNode) Flags() uint16 { return buf.U16LE(k.payload[format.NKFlagsOffset:]) }

// IsCompressedName reports whether the key name is stored in Latin-1.
func (k KeyNode) IsCompressedName() bool {
	return k.Flags()&format.NKFlagCompressedName != 0
}

// IsRoot reports whether this node is the entry key of its hive.
func (k KeyNode) IsRoot() bool { return k.Flags()&format.NKFlagHiveEntry != 0 }

// IsSymLink reports whether this key is a symbolic link.
func (k KeyNode) IsSymLink() bool { return k.Flags()&format.NKFlagSymLink != 0 }

// LastWritten returns the last-written timestamp as a raw Windows FILETIME.
func (k KeyNode) LastWritten() uint64 {
	return buf.U64LE(k.payload[format.NKLastWriteOffset:])
}

// LastWrittenTime converts the last-written timestamp to time.Time.
func (k KeyNode) LastWrittenTime() time.Time {
	return format.FiletimeToTime(k.LastWritten())
}

// SubkeyCount returns the stable subkey count.
func (k KeyNode) SubkeyCount() uint32 {
	return buf.U32LE(k.payload[format.NKSubkeyCountOffset:])
}

// VolatileSubkeyCount returns the volatile subkey count (0 on disk).
func (k KeyNode) VolatileSubkeyCount() uint32 {
	return buf.U32LE(k.payload[format.NKVolSubkeyCountOffset:])
}

// ValueCount returns the number of values attached to this key.
func (k KeyNode) ValueCount() uint32 {
	return buf.U32LE(k.payload[format.NKValueCountOffset:])
}

// ParentOffset returns the cell offset of the parent key, relative to the
// hive-bins area. Meaningless for the root key.
func (k KeyNode) ParentOffset() uint32 {
	return buf.U32LE(k.payload[format.NKParentOffset:])
}

// MaxSubkeyNameLength returns the largest subkey name length recorded for
// this key, in bytes.
func (k KeyNode) MaxSubkeyNameLength() uint32 {
	return buf.U32LE(k.payload[format.NKMaxNameLenOffset:])
}

// MaxValueNameLength returns the largest value name length recorded for
// this key, in bytes.
func (k KeyNode) MaxValueNameLength() uint32 {
	return buf.U32LE(k.payload[format.NKMaxValueNameOffset:])
}

// MaxValueDataLength returns the largest value data length recorded for
// this key, in bytes.
func (k KeyNode) MaxValueDataLength() uint32 {
	return buf.U32LE(k.payload[format.NKMaxValueDataOffset:])
}

func (k KeyNode) subkeyListOffset() uint32 {
	return buf.U32LE(k.payload[format.NKSubkeyListOffset:])
}

func (k KeyNode) valueListOffset() uint32 {
	return buf.U32LE(k.payload[format.NKValueListOffset:])
}

func (k KeyNode) classNameOffset() uint32 {
	return buf.U32LE(k.payload[format.NKClassNameOffset:])
}

func (k KeyNode) nameLength() uint16 {
	return buf.U16LE(k.payload[format.NKNameLenOffset:])
}

func (k KeyNode) classLength() uint16 {
	return buf.U16LE(k.payload[format.NKClassLenOffset:])
}

// Name returns the key name as a borrowed string view.
func (k KeyNode) Name() NameString {
	raw := k.payload[format.NKNameOffset : format.NKNameOffset+int(k.nameLength())]
	if k.IsCompressedName() {
		return latin1Name(raw)
	}
	return utf16Name(raw)
}

// ClassName returns the key's class name, a UTF-16LE view over the cell
// addressed by the class-name offset. ok is false when the key has none.
func (k KeyNode) ClassName() (NameString, bool, error) {
	classLen := int(k.classLength())
	rel := k.classNameOffset()
	if classLen == 0 || rel == format.InvalidOffset {
		return NameString{}, false, nil
	}
	cell, err := k.h.CellAt(rel)
	if err != nil {
		return NameString{}, false, err
	}
	payload := cell.Payload()
	if len(payload) < classLen {
		return NameString{}, false, errAt(ErrInvalidNameLength,
			k.cell.PayloadOffset()+format.NKClassLenOffset,
			"class length %d exceeds cell payload %d", classLen, len(payload))
	}
	return utf16Name(payload[:classLen]), true, nil
}

// Subkeys returns a fresh cursor over this key's children in file order,
// flattening index roots depth-first.
func (k KeyNode) Subkeys() (*SubkeyIterator, error) {
	count := k.SubkeyCount()
	listRel := k.subkeyListOffset()
	if count == 0 || listRel == format.InvalidOffset {
		return &SubkeyIterator{done: true}, nil
	}
	it := &SubkeyIterator{
		h:        k.h,
		expected: count,
		countOff: k.cell.PayloadOffset() + format.NKSubkeyCountOffset,
	}
	if err := it.push(listRel); err != nil {
		return nil, err
	}
	return it, nil
}

// Values returns a fresh cursor over this key's values in list order.
func (k KeyNode) Values() (*ValueIterator, error) {
	count := k.ValueCount()
	listRel := k.valueListOffset()
	if count == 0 || listRel == format.InvalidOffset {
		return &ValueIterator{done: true}, nil
	}
	return newValueIterator(k.h, listRel, count)
}

// Subkey finds the direct child with the given name, case-insensitively.
// ok is false when no child matches; errors are reserved for malformed data.
func (k KeyNode) Subkey(name string) (KeyNode, bool, error) {
	count := k.SubkeyCount()
	listRel := k.subkeyListOffset()
	if count == 0 || listRel == format.InvalidOffset {
		return KeyNode{}, false, nil
	}
	return lookupSubkey(k.h, listRel, name, 0)
}

// Subpath resolves a backslash-separated path relative to this key.
// Empty components are ignored, so `a\\b`, `\a\b` and `a\b\` are the same
// path. ok is false as soon as one component is missing.
func (k KeyNode) Subpath(path string) (KeyNode, bool, error) {
	node := k
	for _, component := range strings.Split(path, `\`) {
		if component == "" {
			continue
		}
		next, ok, err := node.Subkey(component)
		if err != nil || !ok {
			return KeyNode{}, false, err
		}
		node = next
	}
	return node, true, nil
}

// Value finds the value with the given name, case-insensitively. Value
// lists are unsorted, so this is a linear scan. ok is false when absent.
func (k KeyNode) Value(name string) (Value, bool, error) {
	it, err := k.Values()
	if err != nil {
		return Value{}, false, err
	}
	for {
		v, err := it.Next()
		if err == io.EOF {
			return Value{}, false, nil
		}
		if err != nil {
			return Value{}, false, err
		}
		if v.Name().EqualFold(name) {
			return v, true, nil
		}
	}
}
