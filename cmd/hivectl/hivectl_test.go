package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/nthive/hive"
	"github.com/joshuapare/nthive/internal/format"
	"github.com/joshuapare/nthive/internal/hivetest"
)

func writeFixture(t *testing.T) string {
	t.Helper()
	data := hivetest.Build(&hivetest.Key{
		Name: "ROOT",
		Subkeys: []*hivetest.Key{
			{Name: "Select", Values: []hivetest.Value{
				{Name: "Current", Type: format.REGDWORD, Data: []byte{1, 0, 0, 0}},
				{Name: "Default", Type: format.REGDWORD, Data: []byte{1, 0, 0, 0}},
			}},
			{Name: "Setup", Subkeys: []*hivetest.Key{{Name: "Pid"}}, Values: []hivetest.Value{
				{Name: "CmdLine", Type: format.REGSZ, Data: hivetest.UTF16("setup.exe")},
				{Name: "Flags", Type: format.REGBinary, Data: []byte{1, 2, 3, 4, 5}},
			}},
		},
	})
	path := filepath.Join(t.TempDir(), "system.hive")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestRunInfo(t *testing.T) {
	path := writeFixture(t)
	require.NoError(t, runInfo(path))
}

func TestRunTree(t *testing.T) {
	path := writeFixture(t)
	require.NoError(t, runTree(path, ""))
	require.NoError(t, runTree(path, "Setup"))
	require.Error(t, runTree(path, "Missing"))
}

func TestRunValuesAndGet(t *testing.T) {
	path := writeFixture(t)
	require.NoError(t, runValues(path, "Select"))
	require.NoError(t, runGet(path, "Select", "Current"))
	require.NoError(t, runGet(path, "Setup", "CmdLine"))
	require.Error(t, runGet(path, "Select", "Missing"))
}

func TestRunSet_DwordInPlace(t *testing.T) {
	path := writeFixture(t)
	require.NoError(t, runSet(path, "Select", "Current", "2"))

	h, err := hive.Open(path)
	require.NoError(t, err)
	defer h.Close()

	root, err := h.RootKeyNode()
	require.NoError(t, err)
	node, ok, err := root.Subpath("Select")
	require.NoError(t, err)
	require.True(t, ok)
	v, ok, err := node.Value("Current")
	require.NoError(t, err)
	require.True(t, ok)

	n, err := v.DwordData()
	require.NoError(t, err)
	assert.Equal(t, uint32(2), n)
}

func TestRunSet_BinarySizeMustMatch(t *testing.T) {
	path := writeFixture(t)
	require.Error(t, runSet(path, "Setup", "Flags", "0102"), "short payloads are rejected")
	require.NoError(t, runSet(path, "Setup", "Flags", "0504030201"))
}

func TestEncodeSetInput(t *testing.T) {
	out, err := encodeSetInput(hive.RegDword, "0x2A", 4)
	require.NoError(t, err)
	assert.Equal(t, []byte{42, 0, 0, 0}, out)

	out, err = encodeSetInput(hive.RegDwordBigEndian, "42", 4)
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 0, 0, 42}, out)

	out, err = encodeSetInput(hive.RegQword, "1", 8)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 0, 0, 0, 0, 0, 0, 0}, out)

	_, err = encodeSetInput(hive.RegBinary, "zz", 1)
	require.Error(t, err)
}
