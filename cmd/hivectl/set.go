package main

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/joshuapare/nthive/hive"
)

func init() {
	rootCmd.AddCommand(newSetCmd())
}

func newSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <hive> <path> <name> <data>",
		Short: "Overwrite an existing fixed-size value in place",
		Long: `The set command overwrites the data of an existing value without
changing its size: a number for REG_DWORD/REG_QWORD, hex bytes of the
exact current length for everything else. Values served by a Big Data
record are rejected.

Example:
  hivectl set system.hive "Select" "Current" 2
  hivectl set system.hive "Setup" "Flags" 0102030405`,
		Args: cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSet(args[0], args[1], args[2], args[3])
		},
	}
}

func runSet(path, keyPath, valueName, input string) error {
	h, err := hive.OpenMutable(path)
	if err != nil {
		return fmt.Errorf("failed to open hive: %w", err)
	}
	defer h.Close()

	node, err := resolveKey(h, keyPath)
	if err != nil {
		return err
	}
	v, ok, err := node.Value(valueName)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("value not found: %s", valueName)
	}

	mut, err := v.MutableData()
	if err != nil {
		return err
	}

	payload, err := encodeSetInput(v.DataType(), input, len(mut))
	if err != nil {
		return err
	}
	copy(mut, payload)

	if err := h.Flush(); err != nil {
		return err
	}
	log.WithFields(map[string]any{
		"path":  keyPath,
		"value": valueName,
		"bytes": len(payload),
	}).Debug("overwrote value data")
	fmt.Printf("Wrote %d bytes to %s\\%s\n", len(payload), keyPath, valueName)
	return nil
}

// encodeSetInput turns the command-line argument into exactly size bytes.
func encodeSetInput(t hive.DataType, input string, size int) ([]byte, error) {
	switch t {
	case hive.RegDword, hive.RegDwordBigEndian:
		if size != 4 {
			return nil, fmt.Errorf("dword value has unexpected size %d", size)
		}
		n, err := strconv.ParseUint(input, 0, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid dword: %w", err)
		}
		out := make([]byte, 4)
		if t == hive.RegDwordBigEndian {
			binary.BigEndian.PutUint32(out, uint32(n))
		} else {
			binary.LittleEndian.PutUint32(out, uint32(n))
		}
		return out, nil
	case hive.RegQword:
		if size != 8 {
			return nil, fmt.Errorf("qword value has unexpected size %d", size)
		}
		n, err := strconv.ParseUint(input, 0, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid qword: %w", err)
		}
		out := make([]byte, 8)
		binary.LittleEndian.PutUint64(out, n)
		return out, nil
	default:
		out, err := hex.DecodeString(input)
		if err != nil {
			return nil, fmt.Errorf("invalid hex data: %w", err)
		}
		if len(out) != size {
			return nil, fmt.Errorf("data must be exactly %d bytes, got %d", size, len(out))
		}
		return out, nil
	}
}
