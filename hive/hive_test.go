package hive

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/nthive/internal/format"
	"github.com/joshuapare/nthive/internal/hivetest"
)

func minimalHive(t *testing.T) []byte {
	t.Helper()
	return hivetest.Build(&hivetest.Key{Name: "ROOT"})
}

func TestNewHive_Valid(t *testing.T) {
	data := minimalHive(t)
	h, err := NewHive(data)
	require.NoError(t, err)

	require.Equal(t, uint32(1), h.Base().Sequence1())
	require.Equal(t, uint32(1), h.Base().Sequence2())
	require.True(t, h.Base().IsClean())
	require.Equal(t, uint32(1), h.Base().Major())
	require.Equal(t, uint32(5), h.Base().Minor())
	require.Equal(t, len(data), h.Base().PrimaryFileSize())

	root, err := h.RootKeyNode()
	require.NoError(t, err)
	assert.Equal(t, "ROOT", root.Name().String())
	assert.True(t, root.IsRoot())
	assert.Equal(t, hivetest.Timestamp, root.LastWritten())
}

func TestNewHive_InsufficientBuffer(t *testing.T) {
	_, err := NewHive(make([]byte, 512))
	require.ErrorIs(t, err, ErrInsufficientBuffer)

	var he *Error
	require.ErrorAs(t, err, &he)
	assert.Equal(t, 0, he.Offset)
}

func TestNewHive_InvalidSignature(t *testing.T) {
	data := minimalHive(t)
	copy(data, "nope")
	_, err := NewHive(data)
	require.ErrorIs(t, err, ErrInvalidSignature)
}

func TestNewHive_SequenceMismatch(t *testing.T) {
	data := minimalHive(t)
	hivetest.SetSequences(data, 7, 8)

	_, err := NewHive(data)
	require.ErrorIs(t, err, ErrSequenceNumberMismatch)

	var he *Error
	require.ErrorAs(t, err, &he)
	assert.Equal(t, format.REGFSecondarySeqOffset, he.Offset)

	// The salvage constructor admits the same image.
	h, err := NewHiveSalvage(data)
	require.NoError(t, err)
	root, err := h.RootKeyNode()
	require.NoError(t, err)
	assert.Equal(t, "ROOT", root.Name().String())
}

func TestNewHive_InvalidChecksum(t *testing.T) {
	data := minimalHive(t)
	data[0x40] ^= 0xFF // inside the checksummed region, checksum not refreshed

	_, err := NewHive(data)
	require.ErrorIs(t, err, ErrInvalidChecksum)

	var he *Error
	require.ErrorAs(t, err, &he)
	assert.Equal(t, format.REGFCheckSumOffset, he.Offset)

	_, err = NewHiveSalvage(data)
	require.NoError(t, err)
}

func TestNewHive_FieldValidation(t *testing.T) {
	tests := []struct {
		name    string
		corrupt func([]byte)
		want    error
	}{
		{
			name: "unsupported major version",
			corrupt: func(d []byte) {
				format.PutU32(d, format.REGFMajorVersionOffset, 2)
			},
			want: ErrUnsupportedVersion,
		},
		{
			name: "unsupported minor version",
			corrupt: func(d []byte) {
				format.PutU32(d, format.REGFMinorVersionOffset, 6)
			},
			want: ErrUnsupportedVersion,
		},
		{
			name: "log file type",
			corrupt: func(d []byte) {
				format.PutU32(d, format.REGFTypeOffset, 1)
			},
			want: ErrInvalidFileType,
		},
		{
			name: "unknown file format",
			corrupt: func(d []byte) {
				format.PutU32(d, format.REGFFormatOffset, 2)
			},
			want: ErrInvalidFileFormat,
		},
		{
			name: "unaligned data size",
			corrupt: func(d []byte) {
				format.PutU32(d, format.REGFDataSizeOffset, 0x1234)
			},
			want: ErrInvalidPrimaryFileSize,
		},
		{
			name: "data size beyond buffer",
			corrupt: func(d []byte) {
				format.PutU32(d, format.REGFDataSizeOffset, 0x100000)
			},
			want: ErrInvalidPrimaryFileSize,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			data := minimalHive(t)
			tc.corrupt(data)
			hivetest.RecomputeChecksum(data)
			_, err := NewHive(data)
			require.ErrorIs(t, err, tc.want)

			var he *Error
			require.ErrorAs(t, err, &he, "every validation error carries an offset")
		})
	}
}

// TestBins_CellInvariants walks every bin and cell of a populated hive and
// checks the framing invariants: 8-byte sizes, cells inside their bin.
func TestBins_CellInvariants(t *testing.T) {
	data := hivetest.Build(&hivetest.Key{
		Name: "ROOT",
		Subkeys: []*hivetest.Key{
			{Name: "a", Values: []hivetest.Value{{Name: "v", Type: format.REGBinary, Data: make([]byte, 100)}}},
			{Name: "b", Subkeys: []*hivetest.Key{{Name: "c"}}},
		},
	})
	h, err := NewHive(data)
	require.NoError(t, err)

	bins := h.Bins()
	binCount, cellCount := 0, 0
	for {
		bin, err := bins.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		binCount++
		require.Zero(t, bin.Offset()%format.HBINAlignment)
		require.Zero(t, bin.Size()%format.HBINAlignment)

		cells := bin.Cells()
		for {
			cell, err := cells.Next()
			if err == io.EOF {
				break
			}
			require.NoError(t, err)
			cellCount++
			require.Zero(t, cell.Size()%format.CellAlignment)
			require.GreaterOrEqual(t, cell.Offset(), bin.FirstCellOffset())
			require.LessOrEqual(t, cell.Offset()+cell.Size(), bin.Offset()+bin.Size())
		}
	}
	require.Equal(t, 1, binCount)
	require.Greater(t, cellCount, 5)
}

func TestCellAt_Failures(t *testing.T) {
	data := minimalHive(t)
	h, err := NewHive(data)
	require.NoError(t, err)

	t.Run("offset out of range", func(t *testing.T) {
		_, err := h.CellAt(uint32(len(data)))
		require.ErrorIs(t, err, ErrCellOffsetOutOfRange)
	})

	t.Run("invalid offset marker", func(t *testing.T) {
		_, err := h.CellAt(format.InvalidOffset)
		require.ErrorIs(t, err, ErrCellOffsetOutOfRange)
	})

	t.Run("free cell", func(t *testing.T) {
		// The builder closes the bin with one free cell; find it.
		bin, err := h.Bins().Next()
		require.NoError(t, err)
		cells := bin.Cells()
		for {
			cell, err := cells.Next()
			require.NoError(t, err)
			if !cell.Allocated() {
				_, err := h.CellAt(uint32(cell.Offset() - format.HiveDataBase))
				require.ErrorIs(t, err, ErrCellNotAllocated)
				return
			}
		}
	})

	t.Run("corrupted bin signature", func(t *testing.T) {
		root := h.Base().RootCellOffset()
		copy(data[format.HiveDataBase:], "xxxx")
		_, err := h.CellAt(root)
		require.ErrorIs(t, err, ErrInvalidBinSignature)
		copy(data[format.HiveDataBase:], format.HBINSignature)
	})

	t.Run("bin offset echo mismatch", func(t *testing.T) {
		root := h.Base().RootCellOffset()
		format.PutU32(data, format.HiveDataBase+format.HBINFileOffsetField, 0x5000)
		_, err := h.CellAt(root)
		require.ErrorIs(t, err, ErrInvalidBinSignature)
		format.PutU32(data, format.HiveDataBase+format.HBINFileOffsetField, 0)
	})
}

func TestKeyNode_BadSignature(t *testing.T) {
	data := minimalHive(t)
	h, err := NewHive(data)
	require.NoError(t, err)

	root, err := h.RootKeyNode()
	require.NoError(t, err)

	// Stamp over the nk signature and re-resolve.
	data[root.CellOffset()+format.CellHeaderSize] = 'x'
	_, err = h.RootKeyNode()
	require.ErrorIs(t, err, ErrInvalidKeyNodeSignature)

	var he *Error
	require.ErrorAs(t, err, &he)
	assert.Equal(t, root.CellOffset()+format.CellHeaderSize, he.Offset)
}
