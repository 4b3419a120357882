// Package hivetest assembles syntactically valid hive images in memory for
// tests. The builder writes the same cell layouts the Offline Registry
// Library produces: lf/lh lists sorted by hint, inline data for scalars
// that fit the vk header, and db records for values past the single-cell
// limit.
package hivetest

import (
	"bytes"
	"fmt"
	"sort"
	"unicode"
	"unicode/utf16"

	"github.com/joshuapare/nthive/internal/buf"
	"github.com/joshuapare/nthive/internal/format"
)

// Key describes one registry key to synthesize.
type Key struct {
	Name    string
	Class   string
	Values  []Value
	Subkeys []*Key

	// List forces the subkey-list layout: "lf", "lh", "li" or "ri".
	// Empty picks lf for pure-ASCII child names and lh otherwise.
	List string

	// RIChunk is the number of children per subordinate lh list when
	// List is "ri". Defaults to 100.
	RIChunk int

	// CountSkew is added to the stored subkey count to fabricate a
	// count/traversal mismatch.
	CountSkew int
}

// Value describes one registry value to synthesize.
type Value struct {
	Name string
	Type uint32
	Data []byte
}

// Timestamp is the FILETIME stamped on every synthesized key.
const Timestamp = uint64(0x01D7C6A0E5B2C000)

// Build assembles a complete hive image with root as the root key.
// Structural mistakes in the description panic; this is test support.
func Build(root *Key) []byte {
	b := &builder{}
	rootRel := b.buildKey(root, true)
	return b.finish(rootRel)
}

type builder struct {
	bins []byte // hive-bins area, starts with a placeholder bin header
}

// appendCell writes one allocated cell holding payload and returns its
// offset relative to the hive-bins start.
func (b *builder) appendCell(payload []byte) uint32 {
	if b.bins == nil {
		b.bins = make([]byte, format.HBINHeaderSize)
	}
	rel := uint32(len(b.bins))
	size := format.CellHeaderSize + len(payload)
	if pad := size % format.CellAlignment; pad != 0 {
		size += format.CellAlignment - pad
	}
	cell := make([]byte, size)
	format.PutI32(cell, 0, int32(-size))
	copy(cell[format.CellHeaderSize:], payload)
	b.bins = append(b.bins, cell...)
	return rel
}

// finish pads the bins area to a 4096 multiple with a free cell, writes the
// single bin header and wraps everything in a REGF base block.
func (b *builder) finish(rootRel uint32) []byte {
	used := len(b.bins)
	total := (used + format.HBINAlignment - 1) &^ (format.HBINAlignment - 1)
	if gap := total - used; gap > 0 {
		free := make([]byte, gap)
		format.PutI32(free, 0, int32(gap))
		b.bins = append(b.bins, free...)
	}

	copy(b.bins, format.HBINSignature)
	format.PutU32(b.bins, format.HBINFileOffsetField, 0)
	format.PutU32(b.bins, format.HBINSizeOffset, uint32(total))

	out := make([]byte, format.HeaderSize+total)
	copy(out, format.REGFSignature)
	format.PutU32(out, format.REGFPrimarySeqOffset, 1)
	format.PutU32(out, format.REGFSecondarySeqOffset, 1)
	format.PutU64(out, format.REGFTimeStampOffset, Timestamp)
	format.PutU32(out, format.REGFMajorVersionOffset, 1)
	format.PutU32(out, format.REGFMinorVersionOffset, 5)
	format.PutU32(out, format.REGFTypeOffset, 0)
	format.PutU32(out, format.REGFFormatOffset, 1)
	format.PutU32(out, format.REGFRootCellOffset, rootRel)
	format.PutU32(out, format.REGFDataSizeOffset, uint32(total))
	format.PutU32(out, format.REGFClusterOffset, 1)
	copy(out[format.REGFFileNameOffset:], encodeUTF16LE("testhive"))
	copy(out[format.HeaderSize:], b.bins)
	RecomputeChecksum(out)
	return out
}

// buildKey writes the key's values, children, lists and nk cell, returning
// the nk cell offset. Children are written before their parent so the
// lists can reference them.
func (b *builder) buildKey(k *Key, isRoot bool) uint32 {
	valueCount := len(k.Values)
	valueListRel := uint32(format.InvalidOffset)
	if valueCount > 0 {
		vkRels := make([]uint32, valueCount)
		for i, v := range k.Values {
			vkRels[i] = b.buildValue(v)
		}
		list := make([]byte, valueCount*format.DWORDSize)
		for i, rel := range vkRels {
			format.PutU32(list, i*format.DWORDSize, rel)
		}
		valueListRel = b.appendCell(list)
	}

	subkeyListRel := uint32(format.InvalidOffset)
	if len(k.Subkeys) > 0 {
		children := make([]childRef, len(k.Subkeys))
		for i, sub := range k.Subkeys {
			children[i] = childRef{name: sub.Name, rel: b.buildKey(sub, false)}
		}
		subkeyListRel = b.buildSubkeyList(k, children)
	}

	classRel := uint32(format.InvalidOffset)
	classLen := 0
	if k.Class != "" {
		classBytes := encodeUTF16LE(k.Class)
		classLen = len(classBytes)
		classRel = b.appendCell(classBytes)
	}

	nameBytes, compressed := encodeName(k.Name)
	flags := uint16(0)
	if compressed {
		flags |= format.NKFlagCompressedName
	}
	if isRoot {
		flags |= format.NKFlagHiveEntry | format.NKFlagNoDelete
	}

	nk := make([]byte, format.NKFixedHeaderSize+len(nameBytes))
	copy(nk, format.NKSignature)
	format.PutU16(nk, format.NKFlagsOffset, flags)
	format.PutU64(nk, format.NKLastWriteOffset, Timestamp)
	format.PutU32(nk, format.NKSubkeyCountOffset, uint32(len(k.Subkeys)+k.CountSkew))
	format.PutU32(nk, format.NKVolSubkeyCountOffset, 0)
	format.PutU32(nk, format.NKSubkeyListOffset, subkeyListRel)
	format.PutU32(nk, format.NKVolSubkeyListOffset, format.InvalidOffset)
	format.PutU32(nk, format.NKValueCountOffset, uint32(valueCount))
	format.PutU32(nk, format.NKValueListOffset, valueListRel)
	format.PutU32(nk, format.NKSecurityOffset, format.InvalidOffset)
	format.PutU32(nk, format.NKClassNameOffset, classRel)
	format.PutU16(nk, format.NKNameLenOffset, uint16(len(nameBytes)))
	format.PutU16(nk, format.NKClassLenOffset, uint16(classLen))
	copy(nk[format.NKNameOffset:], nameBytes)
	return b.appendCell(nk)
}

type childRef struct {
	name string
	rel  uint32
}

func (b *builder) buildSubkeyList(k *Key, children []childRef) uint32 {
	kind := k.List
	if kind == "" {
		kind = "lf"
		for _, c := range children {
			if !asciiOnly(c.name) {
				kind = "lh"
				break
			}
		}
	}

	switch kind {
	case "lf":
		return b.buildLeaf(format.LFSignature, children)
	case "lh":
		return b.buildLeaf(format.LHSignature, children)
	case "li":
		list := make([]byte, format.IdxListOffset+len(children)*format.LIEntrySize)
		copy(list, format.LISignature)
		format.PutU16(list, format.IdxCountOffset, uint16(len(children)))
		for i, c := range children {
			format.PutU32(list, format.IdxListOffset+i*format.LIEntrySize, c.rel)
		}
		return b.appendCell(list)
	case "ri":
		chunk := k.RIChunk
		if chunk <= 0 {
			chunk = 100
		}
		var subListRels []uint32
		for start := 0; start < len(children); start += chunk {
			end := min(start+chunk, len(children))
			subListRels = append(subListRels, b.buildLeaf(format.LHSignature, children[start:end]))
		}
		list := make([]byte, format.IdxListOffset+len(subListRels)*format.LIEntrySize)
		copy(list, format.RISignature)
		format.PutU16(list, format.IdxCountOffset, uint16(len(subListRels)))
		for i, rel := range subListRels {
			format.PutU32(list, format.IdxListOffset+i*format.LIEntrySize, rel)
		}
		return b.appendCell(list)
	default:
		panic(fmt.Sprintf("hivetest: unknown list kind %q", kind))
	}
}

// buildLeaf writes an lf or lh list: entries carry a 4-byte hint and are
// sorted by it so binary search works, names breaking hint ties.
func (b *builder) buildLeaf(sig []byte, children []childRef) uint32 {
	type entry struct {
		rel  uint32
		hint [4]byte
		hash uint32
	}
	hashLeaf := bytes.Equal(sig, format.LHSignature)
	entries := make([]entry, len(children))
	for i, c := range children {
		e := entry{rel: c.rel}
		if hashLeaf {
			e.hash = nameHash(c.name)
			format.PutU32(e.hint[:], 0, e.hash)
		} else {
			e.hint = nameHint(c.name)
		}
		entries[i] = e
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if hashLeaf {
			return entries[i].hash < entries[j].hash
		}
		return bytes.Compare(entries[i].hint[:], entries[j].hint[:]) < 0
	})

	list := make([]byte, format.IdxListOffset+len(entries)*format.LFLHEntrySize)
	copy(list, sig)
	format.PutU16(list, format.IdxCountOffset, uint16(len(entries)))
	for i, e := range entries {
		base := format.IdxListOffset + i*format.LFLHEntrySize
		format.PutU32(list, base, e.rel)
		copy(list[base+format.LIEntrySize:], e.hint[:])
	}
	return b.appendCell(list)
}

func (b *builder) buildValue(v Value) uint32 {
	nameBytes, compressed := encodeName(v.Name)
	flags := uint16(0)
	if compressed {
		flags |= format.VKFlagCompressedName
	}

	dataLen := uint32(len(v.Data))
	dataOff := uint32(0)
	inline := [format.VKInlineDataMax]byte{}
	switch {
	case len(v.Data) <= format.VKInlineDataMax:
		dataLen |= format.VKDataInlineBit
		copy(inline[:], v.Data)
	case len(v.Data) <= format.DBSegmentSize:
		dataOff = b.appendCell(v.Data)
	default:
		dataOff = b.buildBigData(v.Data)
	}

	vk := make([]byte, format.VKFixedHeaderSize+len(nameBytes))
	copy(vk, format.VKSignature)
	format.PutU16(vk, format.VKNameLenOffset, uint16(len(nameBytes)))
	format.PutU32(vk, format.VKDataLenOffset, dataLen)
	if dataLen&format.VKDataInlineBit != 0 {
		copy(vk[format.VKDataOffOffset:], inline[:])
	} else {
		format.PutU32(vk, format.VKDataOffOffset, dataOff)
	}
	format.PutU32(vk, format.VKTypeOffset, v.Type)
	format.PutU16(vk, format.VKFlagsOffset, flags)
	copy(vk[format.VKNameOffset:], nameBytes)
	return b.appendCell(vk)
}

// buildBigData splits data into 16344-byte segment cells, writes the
// segment list and the db record, and returns the db cell offset.
func (b *builder) buildBigData(data []byte) uint32 {
	var segRels []uint32
	for start := 0; start < len(data); start += format.DBSegmentSize {
		end := min(start+format.DBSegmentSize, len(data))
		segRels = append(segRels, b.appendCell(data[start:end]))
	}

	list := make([]byte, len(segRels)*format.DWORDSize)
	for i, rel := range segRels {
		format.PutU32(list, i*format.DWORDSize, rel)
	}
	listRel := b.appendCell(list)

	db := make([]byte, format.DBHeaderSize)
	copy(db, format.DBSignature)
	format.PutU16(db, format.DBCountOffset, uint16(len(segRels)))
	format.PutU32(db, format.DBListOffset, listRel)
	return b.appendCell(db)
}

// ---- Encoding helpers ----

// encodeName stores names the way the kernel does: Latin-1 when every code
// point fits a byte, UTF-16LE otherwise.
func encodeName(name string) ([]byte, bool) {
	latin1 := true
	for _, r := range name {
		if r > 0xFF {
			latin1 = false
			break
		}
	}
	if latin1 {
		out := make([]byte, 0, len(name))
		for _, r := range name {
			out = append(out, byte(r))
		}
		return out, true
	}
	return encodeUTF16LE(name), false
}

// UTF16 encodes s as UTF-16LE bytes, for tests that compose value data.
func UTF16(s string) []byte { return encodeUTF16LE(s) }

func encodeUTF16LE(s string) []byte {
	units := utf16.Encode([]rune(s))
	out := make([]byte, len(units)*2)
	for i, u := range units {
		format.PutU16(out, i*2, u)
	}
	return out
}

func asciiOnly(s string) bool {
	for _, r := range s {
		if r >= 0x80 {
			return false
		}
	}
	return true
}

// nameHint is the fast-leaf hint: the first four characters upper-cased as
// ASCII bytes, NUL-padded.
func nameHint(name string) [4]byte {
	var hint [4]byte
	i := 0
	for _, r := range name {
		if i == len(hint) {
			break
		}
		if r >= 0x80 {
			panic(fmt.Sprintf("hivetest: lf hint needs ASCII name, got %q", name))
		}
		hint[i] = byte(unicode.ToUpper(r))
		i++
	}
	return hint
}

// nameHash is the hash-leaf hint: acc*37 + upcase(char) over the name.
func nameHash(name string) uint32 {
	var h uint32
	for _, r := range name {
		if r <= 0xFFFF {
			r = unicode.ToUpper(r)
		}
		h = h*37 + uint32(r)
	}
	return h
}

// RecomputeChecksum rewrites the base-block checksum of a hive image.
func RecomputeChecksum(data []byte) {
	var xor uint32
	for i := 0; i < format.REGFChecksumDwords; i++ {
		xor ^= buf.U32LE(data[i*4:])
	}
	switch xor {
	case 0xFFFFFFFF:
		xor = 0xFFFFFFFE
	case 0:
		xor = 1
	}
	format.PutU32(data, format.REGFCheckSumOffset, xor)
}

// SetSequences overwrites both sequence numbers and refreshes the checksum.
func SetSequences(data []byte, primary, secondary uint32) {
	format.PutU32(data, format.REGFPrimarySeqOffset, primary)
	format.PutU32(data, format.REGFSecondarySeqOffset, secondary)
	RecomputeChecksum(data)
}
