package hive

import (
	"bytes"
	"encoding/binary"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/nthive/internal/format"
	"github.com/joshuapare/nthive/internal/hivetest"
)

// buildDataFixture mirrors the data-test key of the offreg test hive.
func buildDataFixture(t *testing.T) *Hive {
	t.Helper()

	multiSZ := append(hivetest.UTF16("multi-sz-test"), 0, 0)
	multiSZ = append(multiSZ, hivetest.UTF16("line2")...)
	multiSZ = append(multiSZ, 0, 0, 0, 0)

	root := &hivetest.Key{
		Name: "ROOT",
		Subkeys: []*hivetest.Key{
			{Name: "data-test", Values: []hivetest.Value{
				{Name: "reg-sz", Type: format.REGSZ, Data: hivetest.UTF16("sz-test")},
				{Name: "reg-sz-with-terminating-nul", Type: format.REGSZ,
					Data: append(hivetest.UTF16("sz-test"), 0, 0)},
				{Name: "reg-expand-sz", Type: format.REGExpandSZ, Data: hivetest.UTF16("sz-test")},
				{Name: "reg-multi-sz", Type: format.REGMultiSZ, Data: multiSZ},
				{Name: "dword", Type: format.REGDWORD, Data: []byte{42, 0, 0, 0}},
				{Name: "dword-big-endian", Type: format.REGDWORDBigEndian, Data: []byte{0, 0, 0, 42}},
				{Name: "qword", Type: format.REGQWORD,
					Data: []byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}},
				{Name: "binary", Type: format.REGBinary, Data: []byte{1, 2, 3, 4, 5}},
			}},
		},
	}

	h, err := NewHive(hivetest.Build(root))
	require.NoError(t, err)
	return h
}

func dataTestKey(t *testing.T, h *Hive) KeyNode {
	t.Helper()
	root, err := h.RootKeyNode()
	require.NoError(t, err)
	node, ok, err := root.Subpath("data-test")
	require.NoError(t, err)
	require.True(t, ok)
	return node
}

func lookupValue(t *testing.T, k KeyNode, name string) Value {
	t.Helper()
	v, ok, err := k.Value(name)
	require.NoError(t, err)
	require.True(t, ok, "value %q", name)
	return v
}

func TestValue_StringData(t *testing.T) {
	h := buildDataFixture(t)
	key := dataTestKey(t, h)

	v := lookupValue(t, key, "reg-sz")
	assert.Equal(t, RegSZ, v.DataType())
	s, err := v.StringData()
	require.NoError(t, err)
	assert.Equal(t, "sz-test", s)

	// A single trailing NUL is trimmed.
	v = lookupValue(t, key, "reg-sz-with-terminating-nul")
	assert.Equal(t, uint32(16), v.DataSize())
	s, err = v.StringData()
	require.NoError(t, err)
	assert.Equal(t, "sz-test", s)

	v = lookupValue(t, key, "reg-expand-sz")
	assert.Equal(t, RegExpandSZ, v.DataType())
	s, err = v.StringData()
	require.NoError(t, err)
	assert.Equal(t, "sz-test", s)

	// Wrong type is a typed-read mismatch, not a decode attempt.
	v = lookupValue(t, key, "binary")
	_, err = v.StringData()
	require.ErrorIs(t, err, ErrUnexpectedDataType)
}

func TestValue_StringData_OddLength(t *testing.T) {
	root := &hivetest.Key{Name: "ROOT", Values: []hivetest.Value{
		{Name: "broken", Type: format.REGSZ, Data: []byte{'s', 0, 'z'}},
	}}
	h, err := NewHive(hivetest.Build(root))
	require.NoError(t, err)
	rootKey, err := h.RootKeyNode()
	require.NoError(t, err)

	v := lookupValue(t, rootKey, "broken")
	_, err = v.StringData()
	require.ErrorIs(t, err, ErrInvalidStringSize)
}

func TestValue_MultiStringData(t *testing.T) {
	h := buildDataFixture(t)
	key := dataTestKey(t, h)

	v := lookupValue(t, key, "reg-multi-sz")
	it, err := v.MultiStringData()
	require.NoError(t, err)

	var got []string
	for {
		element, err := it.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		got = append(got, element.String())
	}
	assert.Equal(t, []string{"multi-sz-test", "line2"}, got)

	// Lazy cursors restart: a fresh call yields a fresh sequence.
	it2, err := v.MultiStringData()
	require.NoError(t, err)
	first, err := it2.Next()
	require.NoError(t, err)
	assert.Equal(t, "multi-sz-test", first.String())

	// Round-trip: elements re-joined with their terminators reproduce the
	// stored payload.
	data, err := v.Data()
	require.NoError(t, err)
	var rebuilt []byte
	it3, err := v.MultiStringData()
	require.NoError(t, err)
	for {
		element, err := it3.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		rebuilt = append(rebuilt, element.Raw()...)
		rebuilt = append(rebuilt, 0, 0)
	}
	rebuilt = append(rebuilt, 0, 0)
	assert.Equal(t, data[:len(rebuilt)], rebuilt)

	_, err = lookupValue(t, key, "dword").MultiStringData()
	require.ErrorIs(t, err, ErrUnexpectedDataType)
}

func TestValue_DwordData(t *testing.T) {
	h := buildDataFixture(t)
	key := dataTestKey(t, h)

	v := lookupValue(t, key, "dword")
	n, err := v.DwordData()
	require.NoError(t, err)
	assert.Equal(t, uint32(42), n)

	// Round-trip: re-encoding the decoded number reproduces the payload.
	data, err := v.Data()
	require.NoError(t, err)
	var le [4]byte
	binary.LittleEndian.PutUint32(le[:], n)
	assert.Equal(t, le[:], data)

	v = lookupValue(t, key, "dword-big-endian")
	assert.Equal(t, RegDwordBigEndian, v.DataType())
	n, err = v.DwordData()
	require.NoError(t, err)
	assert.Equal(t, uint32(42), n)

	_, err = lookupValue(t, key, "qword").DwordData()
	require.ErrorIs(t, err, ErrUnexpectedDataType)
}

func TestValue_QwordData(t *testing.T) {
	h := buildDataFixture(t)
	key := dataTestKey(t, h)

	v := lookupValue(t, key, "qword")
	n, err := v.QwordData()
	require.NoError(t, err)
	assert.Equal(t, uint64(0xFFFFFFFFFFFFFFFF), n)

	_, err = lookupValue(t, key, "dword").QwordData()
	require.ErrorIs(t, err, ErrUnexpectedDataType)
}

func TestValue_BinaryData(t *testing.T) {
	h := buildDataFixture(t)
	key := dataTestKey(t, h)

	v := lookupValue(t, key, "binary")
	assert.Equal(t, RegBinary, v.DataType())
	assert.Equal(t, uint32(5), v.DataSize())
	data, err := v.Data()
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 4, 5}, data)
}

func TestValue_NotFoundAndIteration(t *testing.T) {
	h := buildDataFixture(t)
	key := dataTestKey(t, h)

	_, ok, err := key.Value("missing")
	require.NoError(t, err)
	assert.False(t, ok)

	// Case-insensitive value lookup.
	v, ok, err := key.Value("DWORD")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "dword", v.Name().String())

	it, err := key.Values()
	require.NoError(t, err)
	count := 0
	for {
		_, err := it.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		count++
	}
	assert.Equal(t, 8, count)
	assert.Equal(t, uint32(8), key.ValueCount())
}

// TestValue_BigData covers the 16344/16345 boundary: A and B fit single
// data cells, C is one byte past the limit and goes through a db record.
func TestValue_BigData(t *testing.T) {
	root := &hivetest.Key{
		Name: "ROOT",
		Subkeys: []*hivetest.Key{
			{Name: "big-data-test", Values: []hivetest.Value{
				{Name: "A", Type: format.REGBinary, Data: bytes.Repeat([]byte{'A'}, 16343)},
				{Name: "B", Type: format.REGBinary, Data: bytes.Repeat([]byte{'B'}, 16344)},
				{Name: "C", Type: format.REGBinary, Data: bytes.Repeat([]byte{'C'}, 16345)},
			}},
		},
	}
	h, err := NewHive(hivetest.Build(root))
	require.NoError(t, err)
	rootKey, err := h.RootKeyNode()
	require.NoError(t, err)
	key, ok, err := rootKey.Subpath("big-data-test")
	require.NoError(t, err)
	require.True(t, ok)

	for _, tc := range []struct {
		name string
		size int
		fill byte
	}{
		{"A", 16343, 'A'},
		{"B", 16344, 'B'},
		{"C", 16345, 'C'},
	} {
		v := lookupValue(t, key, tc.name)
		require.Equal(t, uint32(tc.size), v.DataSize(), tc.name)

		data, err := v.Data()
		require.NoError(t, err, tc.name)
		require.Len(t, data, tc.size, tc.name)
		assert.Equal(t, bytes.Repeat([]byte{tc.fill}, tc.size), data, tc.name)

		// The lazy reader sees the same bytes.
		r, err := v.DataReader()
		require.NoError(t, err, tc.name)
		streamed, err := io.ReadAll(r)
		require.NoError(t, err, tc.name)
		assert.Equal(t, data, streamed, tc.name)
	}
}

func TestValue_BigDataBadSignature(t *testing.T) {
	root := &hivetest.Key{Name: "ROOT", Values: []hivetest.Value{
		{Name: "big", Type: format.REGBinary, Data: bytes.Repeat([]byte{'x'}, 20000)},
	}}
	data := hivetest.Build(root)
	h, err := NewHive(data)
	require.NoError(t, err)
	rootKey, err := h.RootKeyNode()
	require.NoError(t, err)

	v := lookupValue(t, rootKey, "big")

	// Stamp over the db record signature.
	cell, err := h.CellAt(v.dataOffset())
	require.NoError(t, err)
	copy(data[cell.PayloadOffset():], "zz")

	_, err = v.Data()
	require.ErrorIs(t, err, ErrInvalidBigDataSignature)
}

func TestValue_InlineDataRoundTrip(t *testing.T) {
	h := buildDataFixture(t)
	key := dataTestKey(t, h)

	// The 4-byte dword is stored inline in the vk header; the returned
	// slice aliases the hive buffer.
	v := lookupValue(t, key, "dword")
	data, err := v.Data()
	require.NoError(t, err)
	require.Len(t, data, 4)

	off := v.cell.PayloadOffset() + format.VKDataOffOffset
	assert.Equal(t, h.Bytes()[off:off+4], data)
}

func TestValue_MutableData(t *testing.T) {
	h := buildDataFixture(t)
	key := dataTestKey(t, h)

	t.Run("single cell overwrite", func(t *testing.T) {
		v := lookupValue(t, key, "binary")
		mut, err := v.MutableData()
		require.NoError(t, err)
		require.Len(t, mut, 5)
		copy(mut, []byte{9, 9, 9, 9, 9})

		data, err := v.Data()
		require.NoError(t, err)
		assert.Equal(t, []byte{9, 9, 9, 9, 9}, data)
	})

	t.Run("inline overwrite", func(t *testing.T) {
		v := lookupValue(t, key, "dword")
		mut, err := v.MutableData()
		require.NoError(t, err)
		require.Len(t, mut, 4)
		binary.LittleEndian.PutUint32(mut, 1337)

		n, err := v.DwordData()
		require.NoError(t, err)
		assert.Equal(t, uint32(1337), n)
	})

	t.Run("length is fixed", func(t *testing.T) {
		v := lookupValue(t, key, "binary")
		mut, err := v.MutableData()
		require.NoError(t, err)
		assert.Equal(t, len(mut), cap(mut), "slice capacity clamps the length")
	})
}

func TestValue_MutableDataBigDataIsReadOnly(t *testing.T) {
	root := &hivetest.Key{Name: "ROOT", Values: []hivetest.Value{
		{Name: "big", Type: format.REGBinary, Data: bytes.Repeat([]byte{'x'}, 20000)},
	}}
	h, err := NewHive(hivetest.Build(root))
	require.NoError(t, err)
	rootKey, err := h.RootKeyNode()
	require.NoError(t, err)

	v := lookupValue(t, rootKey, "big")
	_, err = v.MutableData()
	require.ErrorIs(t, err, ErrReadOnly)
}

func TestKeyNode_ClassName(t *testing.T) {
	root := &hivetest.Key{Name: "ROOT", Subkeys: []*hivetest.Key{
		{Name: "classy", Class: "CymbalClass"},
		{Name: "plain"},
	}}
	h, err := NewHive(hivetest.Build(root))
	require.NoError(t, err)
	rootKey, err := h.RootKeyNode()
	require.NoError(t, err)

	classy, ok, err := rootKey.Subkey("classy")
	require.NoError(t, err)
	require.True(t, ok)
	class, ok, err := classy.ClassName()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "CymbalClass", class.String())

	plain, ok, err := rootKey.Subkey("plain")
	require.NoError(t, err)
	require.True(t, ok)
	_, ok, err = plain.ClassName()
	require.NoError(t, err)
	assert.False(t, ok)
}
