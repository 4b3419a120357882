package hive

import (
	"bytes"

	"github.com/joshuapare/nthive/internal/buf"
	"github.com/joshuapare/nthive/internal/format"
)

const (
	// regfChecksumAllOnes / AllZeros are the two reserved XOR results that
	// the kernel remaps so a stored checksum is never 0 or 0xFFFFFFFF.
	regfChecksumAllOnes             = 0xFFFFFFFF
	regfChecksumAllOnesReplacement  = 0xFFFFFFFE
	regfChecksumAllZeros            = 0x00000000
	regfChecksumAllZerosReplacement = 0x00000001
)

// BaseBlock is a zero-copy view of the 4 KiB REGF header at the start of the
// hive. All accessors read directly from the backing buffer.
type BaseBlock struct {
	raw []byte // len >= format.HeaderSize
}

// isREGF is a fast, zero-alloc check for the REGF signature.
func isREGF(b []byte) bool {
	const off = format.REGFSignatureOffset
	const n = format.REGFSignatureSize
	if len(b) < off+n {
		return false
	}
	return bytes.Equal(b[off:off+n], format.REGFSignature)
}

// ---- Primitive field readers (no alloc) ----

// Raw returns the raw bytes of the base block.
func (bb BaseBlock) Raw() []byte { return bb.raw }

// Sequence1 returns the primary sequence number.
func (bb BaseBlock) Sequence1() uint32 { return buf.U32LE(bb.raw[format.REGFPrimarySeqOffset:]) }

// Sequence2 returns the secondary sequence number.
func (bb BaseBlock) Sequence2() uint32 { return buf.U32LE(bb.raw[format.REGFSecondarySeqOffset:]) }

// IsClean reports whether Sequence1 equals Sequence2 (no interrupted write).
func (bb BaseBlock) IsClean() bool { return bb.Sequence1() == bb.Sequence2() }

// TimeStampFILETIME returns the header FILETIME at 0x0C, raw 64-bit.
func (bb BaseBlock) TimeStampFILETIME() uint64 {
	return buf.U64LE(bb.raw[format.REGFTimeStampOffset:])
}

// Major returns the major version number.
func (bb BaseBlock) Major() uint32 { return buf.U32LE(bb.raw[format.REGFMajorVersionOffset:]) }

// Minor returns the minor version number.
func (bb BaseBlock) Minor() uint32 { return buf.U32LE(bb.raw[format.REGFMinorVersionOffset:]) }

// Type returns the file type field (0 = primary).
func (bb BaseBlock) Type() uint32 { return buf.U32LE(bb.raw[format.REGFTypeOffset:]) }

// Format returns the file format field (1 = direct memory).
func (bb BaseBlock) Format() uint32 { return buf.U32LE(bb.raw[format.REGFFormatOffset:]) }

// RootCellOffset returns the root cell offset relative to the hive-bins area.
func (bb BaseBlock) RootCellOffset() uint32 {
	return buf.U32LE(bb.raw[format.REGFRootCellOffset:])
}

// DataSize returns the declared size of the hive-bins area.
func (bb BaseBlock) DataSize() uint32 { return buf.U32LE(bb.raw[format.REGFDataSizeOffset:]) }

// PrimaryFileSize reports the full primary-file length: base block + bins.
func (bb BaseBlock) PrimaryFileSize() int { return format.HeaderSize + int(bb.DataSize()) }

// ClusteringFactor returns the clustering factor field.
func (bb BaseBlock) ClusteringFactor() uint32 {
	return buf.U32LE(bb.raw[format.REGFClusterOffset:])
}

// FileName returns the 64-byte UTF-16LE file name field (zero-copy).
func (bb BaseBlock) FileName() []byte {
	return bb.raw[format.REGFFileNameOffset : format.REGFFileNameOffset+format.REGFFileNameSize]
}

// StoredChecksum returns the checksum value stored in the header.
func (bb BaseBlock) StoredChecksum() uint32 {
	return buf.U32LE(bb.raw[format.REGFCheckSumOffset:])
}

// BootType returns the boot type field at the end of the base block.
func (bb BaseBlock) BootType() uint32 { return buf.U32LE(bb.raw[format.REGFBootTypeOffset:]) }

// BootRecover returns the boot recover field at the end of the base block.
func (bb BaseBlock) BootRecover() uint32 { return buf.U32LE(bb.raw[format.REGFBootRecovOffset:]) }

// validate checks the base block against the buffer it came from. With
// strict set, sequence equality and the checksum are enforced as well;
// the salvage constructor clears it to admit dirty hives.
func (bb BaseBlock) validate(bufLen int, strict bool) error {
	if !isREGF(bb.raw) {
		return errAt(ErrInvalidSignature, format.REGFSignatureOffset,
			"want %q", format.REGFSignature)
	}

	if strict {
		if s1, s2 := bb.Sequence1(), bb.Sequence2(); s1 != s2 {
			return errAt(ErrSequenceNumberMismatch, format.REGFSecondarySeqOffset,
				"%d != %d", s1, s2)
		}
		if stored, sum := bb.StoredChecksum(), regfChecksum(bb.raw); stored != sum {
			return errAt(ErrInvalidChecksum, format.REGFCheckSumOffset,
				"stored=0x%08X computed=0x%08X", stored, sum)
		}
	}

	ds := bb.DataSize()
	if ds == 0 || ds%format.HBINAlignment != 0 {
		return errAt(ErrInvalidPrimaryFileSize, format.REGFDataSizeOffset,
			"data size 0x%X not a positive multiple of 0x1000", ds)
	}
	if bb.PrimaryFileSize() > bufLen {
		return errAt(ErrInvalidPrimaryFileSize, format.REGFDataSizeOffset,
			"primary file size %d exceeds buffer %d", bb.PrimaryFileSize(), bufLen)
	}

	if major := bb.Major(); major != 1 {
		return errAt(ErrUnsupportedVersion, format.REGFMajorVersionOffset,
			"major version %d", major)
	}
	if minor := bb.Minor(); minor < 3 || minor > 5 {
		return errAt(ErrUnsupportedVersion, format.REGFMinorVersionOffset,
			"minor version %d", minor)
	}

	if ft := bb.Type(); ft != 0 {
		return errAt(ErrInvalidFileType, format.REGFTypeOffset, "type %d", ft)
	}
	if ff := bb.Format(); ff != 1 {
		return errAt(ErrInvalidFileFormat, format.REGFFormatOffset, "format %d", ff)
	}

	return nil
}

// regfChecksum computes the XOR checksum over the 127 dwords preceding the
// stored checksum field, with the kernel's 0x0/0xFFFFFFFF remapping.
func regfChecksum(raw []byte) uint32 {
	var xor uint32
	for i := 0; i < format.REGFChecksumDwords; i++ {
		xor ^= buf.U32LE(raw[i*4:])
	}
	switch xor {
	case regfChecksumAllOnes:
		return regfChecksumAllOnesReplacement
	case regfChecksumAllZeros:
		return regfChecksumAllZerosReplacement
	default:
		return xor
	}
}
