package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/joshuapare/nthive/hive"
)

func init() {
	rootCmd.AddCommand(newValuesCmd())
}

func newValuesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "values <hive> [path]",
		Short: "List the values of a key",
		Long: `The values command lists every value of a key with its type and a
decoded preview of the data.

Example:
  hivectl values system.hive "Select"
  hivectl values software.hive "Microsoft\Windows NT\CurrentVersion"`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			keyPath := ""
			if len(args) == 2 {
				keyPath = args[1]
			}
			return runValues(args[0], keyPath)
		},
	}
}

func runValues(path, keyPath string) error {
	h, err := openHive(path)
	if err != nil {
		return fmt.Errorf("failed to open hive: %w", err)
	}
	defer h.Close()

	node, err := resolveKey(h, keyPath)
	if err != nil {
		return err
	}

	it, err := node.Values()
	if err != nil {
		return err
	}
	for {
		v, err := it.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		name := v.Name().String()
		if name == "" {
			name = "(default)"
		}
		fmt.Printf("%-32s %-28s %s\n", name, v.DataType(), renderValue(v))
	}
}

// renderValue decodes the data for display, falling back to a byte count
// for binary and malformed payloads.
func renderValue(v hive.Value) string {
	switch v.DataType() {
	case hive.RegSZ, hive.RegExpandSZ, hive.RegLink:
		if s, err := v.StringData(); err == nil {
			return fmt.Sprintf("%q", s)
		}
	case hive.RegMultiSZ:
		it, err := v.MultiStringData()
		if err != nil {
			break
		}
		out := ""
		for {
			element, err := it.Next()
			if err != nil {
				return out
			}
			if out != "" {
				out += " "
			}
			out += fmt.Sprintf("%q", element.String())
		}
	case hive.RegDword, hive.RegDwordBigEndian:
		if n, err := v.DwordData(); err == nil {
			return fmt.Sprintf("0x%08X (%d)", n, n)
		}
	case hive.RegQword:
		if n, err := v.QwordData(); err == nil {
			return fmt.Sprintf("0x%016X (%d)", n, n)
		}
	}
	return fmt.Sprintf("(%d bytes)", v.DataSize())
}
