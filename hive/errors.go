package hive

import (
	"errors"
	"fmt"
)

// Sentinel errors for every validation failure the decoder can report.
// Callers match them with errors.Is; the *Error wrapper that accompanies
// each occurrence carries the byte offset of the faulty field.
var (
	// Base block validation.
	ErrInvalidSignature       = errors.New("hive: invalid signature")
	ErrSequenceNumberMismatch = errors.New("hive: sequence number mismatch")
	ErrInvalidChecksum        = errors.New("hive: invalid checksum")
	ErrInvalidPrimaryFileSize = errors.New("hive: invalid primary file size")
	ErrUnsupportedVersion     = errors.New("hive: unsupported version")
	ErrInvalidFileType        = errors.New("hive: invalid file type")
	ErrInvalidFileFormat      = errors.New("hive: invalid file format")
	ErrInsufficientBuffer     = errors.New("hive: insufficient buffer")

	// Hive bin validation.
	ErrInvalidBinSignature = errors.New("hive: invalid bin signature")
	ErrInvalidBinSize      = errors.New("hive: invalid bin size")

	// Cell validation.
	ErrInvalidCellSize      = errors.New("hive: invalid cell size")
	ErrCellOffsetOutOfRange = errors.New("hive: cell offset out of range")
	ErrCellNotAllocated     = errors.New("hive: cell not allocated")

	// Record validation.
	ErrInvalidKeyNodeSignature    = errors.New("hive: invalid key node signature")
	ErrInvalidValueKeySignature   = errors.New("hive: invalid value key signature")
	ErrInvalidSubkeyListSignature = errors.New("hive: invalid subkey list signature")
	ErrInvalidBigDataSignature    = errors.New("hive: invalid big data signature")
	ErrInvalidNameLength          = errors.New("hive: invalid name length")
	ErrInvalidDataSize            = errors.New("hive: invalid data size")
	ErrInvalidStringSize          = errors.New("hive: invalid string size")
	ErrSubkeyOffsetOutOfRange     = errors.New("hive: subkey offset out of range")
	ErrInvalidSubkeyCount         = errors.New("hive: invalid subkey count")
	ErrRecursionLimit             = errors.New("hive: subkey list recursion limit")

	// Typed reads and mutation.
	ErrUnexpectedDataType = errors.New("hive: unexpected data type")
	ErrReadOnly           = errors.New("hive: value data is read-only")
)

// Error couples one of the Err* sentinels with the absolute byte offset of
// the field that failed validation. Unwrap exposes the sentinel so both
// errors.Is and errors.As work:
//
//	var he *hive.Error
//	if errors.As(err, &he) { fmt.Println(he.Offset) }
type Error struct {
	Err    error  // one of the Err* sentinels above
	Offset int    // byte offset into the backing buffer
	Detail string // optional, field-specific context
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%v at offset 0x%X: %s", e.Err, e.Offset, e.Detail)
	}
	return fmt.Sprintf("%v at offset 0x%X", e.Err, e.Offset)
}

func (e *Error) Unwrap() error { return e.Err }

// errAt builds an *Error for sentinel err pinpointing the field at off.
func errAt(err error, off int, format string, args ...any) *Error {
	detail := format
	if len(args) > 0 {
		detail = fmt.Sprintf(format, args...)
	}
	return &Error{Err: err, Offset: off, Detail: detail}
}
