// Package format holds the on-disk constants of the Windows Registry hive
// file format (regf). The goal is to keep every magic number and field
// offset in one place, independent from the public API, so the decoding
// packages read like the format documentation.
package format

var (
	// REGFSignature is the four-byte signature at the start of every hive file.
	REGFSignature = []byte{'r', 'e', 'g', 'f'}

	// HBINSignature is the four-byte signature at the beginning of each hive bin.
	HBINSignature = []byte{'h', 'b', 'i', 'n'}

	// NKSignature identifies an NK (key node) cell payload.
	NKSignature = []byte{'n', 'k'}

	// VKSignature identifies a VK (value key) cell payload.
	VKSignature = []byte{'v', 'k'}

	// LFSignature, LHSignature, and LISignature identify subkey list variants.
	// LF/LH carry a 4-byte hint per entry, LI is a plain offset array.
	LFSignature = []byte{'l', 'f'}
	LHSignature = []byte{'l', 'h'}
	LISignature = []byte{'l', 'i'}

	// RISignature identifies an RI (index root) subkey list used when a key
	// has many subkeys. RI lists contain offsets to subordinate lists.
	RISignature = []byte{'r', 'i'}

	// SKSignature identifies a security descriptor (SK) cell. The decoder
	// neither interprets SK payloads nor checks for this tag.
	SKSignature = []byte{'s', 'k'}

	// DBSignature identifies a Big Data (DB) record for large registry values.
	DBSignature = []byte{'d', 'b'}
)

const (
	// HeaderSize is the size of the REGF base block in bytes. In all observed
	// hive variants this is 4096 bytes (the size of a single memory page).
	HeaderSize = 4096

	// HBINHeaderSize is the size of the HBIN header in bytes.
	HBINHeaderSize = 0x20

	// CellHeaderSize is the number of bytes used by the signed-size header
	// preceding every cell (free or in-use) within an HBIN.
	CellHeaderSize = 4

	// HiveDataBase is where the hive-bins area starts (first HBIN).
	HiveDataBase = 0x1000

	// HBINAlignment is the required alignment and size granularity of hive bins.
	HBINAlignment = 0x1000

	// CellAlignment is the required alignment of cells within HBINs.
	CellAlignment = 8

	// HBIN field offsets within the header structure.
	HBINSignatureOffset = 0x00 // 4 bytes, "hbin"
	HBINSignatureSize   = 4
	HBINFileOffsetField = 0x04 // uint32, bin start relative to first HBIN
	HBINSizeOffset      = 0x08 // uint32, multiple of 0x1000

	// InvalidOffset marks unused/missing offset fields.
	InvalidOffset = 0xFFFFFFFF

	// SignatureSize is the standard size for record signatures (NK, VK, ...).
	SignatureSize = 2
)

// ============================================================================
// REGF Base Block Constants
// ============================================================================

const (
	REGFSignatureOffset    = 0x000 // 4 bytes, "regf"
	REGFSignatureSize      = 4
	REGFPrimarySeqOffset   = 0x004 // uint32, Sequence1
	REGFSecondarySeqOffset = 0x008 // uint32, Sequence2
	REGFTimeStampOffset    = 0x00C // uint64 LE, Windows FILETIME
	REGFMajorVersionOffset = 0x014 // uint32
	REGFMinorVersionOffset = 0x018 // uint32
	REGFTypeOffset         = 0x01C // uint32, 0 = primary
	REGFFormatOffset       = 0x020 // uint32, 1 = direct memory
	REGFRootCellOffset     = 0x024 // uint32, HCELL index rel to 0x1000
	REGFDataSizeOffset     = 0x028 // uint32, sum of HBIN sizes
	REGFClusterOffset      = 0x02C // uint32, clustering factor
	REGFFileNameOffset     = 0x030 // [64]byte, UTF-16LE file name
	REGFFileNameSize       = 64
	REGFCheckSumOffset     = 0x1FC // uint32, XOR of dwords 0x000..0x1FB
	REGFBootTypeOffset     = 0xFF8 // uint32
	REGFBootRecovOffset    = 0xFFC // uint32
)

// Header checksum covers the first 508 bytes (0x000..0x1FB), i.e. 127 dwords.
const (
	REGFChecksumRegionLen = 508
	REGFChecksumDwords    = 127
)

// ============================================================================
// NK Record (Key Node) Constants
// ============================================================================
// Field offsets within the record payload (payload start == "nk").
const (
	NKSignatureOffset      = 0x00 // USHORT, "nk"
	NKFlagsOffset          = 0x02 // USHORT
	NKLastWriteOffset      = 0x04 // FILETIME (8 bytes)
	NKAccessBitsOffset     = 0x0C // ULONG, "Spare" on older hives
	NKParentOffset         = 0x10 // ULONG, HCELL_INDEX of parent
	NKSubkeyCountOffset    = 0x14 // ULONG, stable subkey count
	NKVolSubkeyCountOffset = 0x18 // ULONG, volatile subkey count
	NKSubkeyListOffset     = 0x1C // ULONG, HCELL_INDEX to stable subkey list
	NKVolSubkeyListOffset  = 0x20 // ULONG, HCELL_INDEX to volatile subkey list
	NKValueCountOffset     = 0x24 // ULONG, CHILD_LIST.Count
	NKValueListOffset      = 0x28 // ULONG, CHILD_LIST.List
	NKSecurityOffset       = 0x2C // ULONG, HCELL_INDEX to SK
	NKClassNameOffset      = 0x30 // ULONG, HCELL_INDEX to class data
	NKMaxNameLenOffset     = 0x34 // ULONG, max subkey name seen
	NKMaxClassLenOffset    = 0x38 // ULONG
	NKMaxValueNameOffset   = 0x3C // ULONG
	NKMaxValueDataOffset   = 0x40 // ULONG
	NKWorkVarOffset        = 0x44 // ULONG
	NKNameLenOffset        = 0x48 // USHORT, name length in bytes
	NKClassLenOffset       = 0x4A // USHORT, class length in bytes
	NKNameOffset           = 0x4C // start of inline name

	NKFixedHeaderSize = NKNameOffset
)

// NK flags.
const (
	NKFlagVolatile       = 0x0001 // KEY_VOLATILE
	NKFlagHiveExit       = 0x0002 // KEY_HIVE_EXIT
	NKFlagHiveEntry      = 0x0004 // KEY_HIVE_ENTRY (root of a hive)
	NKFlagNoDelete       = 0x0008 // KEY_NO_DELETE
	NKFlagSymLink        = 0x0010 // KEY_SYM_LINK
	NKFlagCompressedName = 0x0020 // KEY_COMP_NAME
	NKFlagPredefHandle   = 0x0040 // KEY_PREDEF_HANDLE
	NKFlagVirtualSource  = 0x0080 // KEY_VIRTUAL_SOURCE
	NKFlagVirtualTarget  = 0x0100 // KEY_VIRTUAL_TARGET
	NKFlagVirtualStore   = 0x0200 // KEY_VIRTUAL_STORE
)

// ============================================================================
// Subkey List Constants
// ============================================================================
// Common header layout for all subkey list cells (_CM_KEY_INDEX header).
const (
	IdxSignatureOffset = 0x00 // 2 bytes
	IdxCountOffset     = 0x02 // 2 bytes
	IdxListOffset      = 0x04 // start of variable-length array

	// LIEntrySize is one uint32 cell index (li and ri).
	LIEntrySize = 4

	// LFLHEntrySize covers a CM_INDEX pair: uint32 Cell, uint32 HintOrHash.
	LFLHEntrySize = 8
)

// ============================================================================
// VK Record (Value Key) Constants
// ============================================================================
const (
	VKSignatureOffset = 0x00 // USHORT, "vk"
	VKNameLenOffset   = 0x02 // USHORT, name length in bytes
	VKDataLenOffset   = 0x04 // ULONG, high bit = inline flag
	VKDataOffOffset   = 0x08 // ULONG, data HCELL_INDEX or inline bytes
	VKTypeOffset      = 0x0C // ULONG, REG_* type tag
	VKFlagsOffset     = 0x10 // USHORT
	VKSpareOffset     = 0x12 // USHORT
	VKNameOffset      = 0x14 // start of inline name

	VKFixedHeaderSize = VKNameOffset

	// VKFlagCompressedName marks the name as single-byte (VALUE_COMP_NAME).
	VKFlagCompressedName = 0x0001

	// VKFlagTombstone marks a deleted value in differencing hives.
	VKFlagTombstone = 0x0002

	// VKDataInlineBit is the high bit of the data length field; when set and
	// the masked length is at most 4, the data lives in the DataOff field.
	VKDataInlineBit = 0x80000000

	// VKDataLengthMask extracts the actual data length.
	VKDataLengthMask = 0x7FFFFFFF

	// VKInlineDataMax is the largest payload that fits in the DataOff field.
	VKInlineDataMax = 4
)

// ============================================================================
// DB Record (Big Data) Constants
// ============================================================================
// Field offsets within the record payload (_CM_BIG_DATA).
const (
	DBSignatureOffset = 0x00 // USHORT, "db"
	DBCountOffset     = 0x02 // USHORT, number of data segments
	DBListOffset      = 0x04 // ULONG, HCELL_INDEX to the segment-list cell
	DBHeaderSize      = 0x08

	// DBSegmentSize is the payload capacity of one big-data segment cell and
	// at the same time the largest value that may use a single data cell;
	// anything longer goes through a DB record.
	DBSegmentSize = 16344

	// DBMinSegmentCount is the smallest segment count a valid DB record can
	// declare. A value short enough for 0 or 1 segments would have used a
	// plain data cell instead.
	DBMinSegmentCount = 2
)

// ============================================================================
// Registry Value Type Codes
// ============================================================================
const (
	// REGNone indicates no defined value type.
	REGNone uint32 = 0

	// REGSZ is a NUL-terminated UTF-16LE string.
	REGSZ uint32 = 1

	// REGExpandSZ is a NUL-terminated string with unexpanded %...% references.
	REGExpandSZ uint32 = 2

	// REGBinary is arbitrary binary data.
	REGBinary uint32 = 3

	// REGDWORD is a 32-bit little-endian number.
	REGDWORD uint32 = 4

	// REGDWORDBigEndian is a 32-bit big-endian number.
	REGDWORDBigEndian uint32 = 5

	// REGLink is a symbolic link target (UTF-16LE).
	REGLink uint32 = 6

	// REGMultiSZ is a sequence of NUL-terminated strings ending in an empty one.
	REGMultiSZ uint32 = 7

	// REGResourceList is a device-driver resource list.
	REGResourceList uint32 = 8

	// REGFullResourceDescriptor is a hardware resource descriptor.
	REGFullResourceDescriptor uint32 = 9

	// REGResourceRequirementsList is a hardware resource requirements list.
	REGResourceRequirementsList uint32 = 10

	// REGQWORD is a 64-bit little-endian number.
	REGQWORD uint32 = 11

	// DWORDSize and QWORDSize are the required data sizes for the fixed types.
	DWORDSize = 4
	QWORDSize = 8
)
