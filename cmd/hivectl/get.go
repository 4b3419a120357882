package main

import (
	"encoding/hex"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/joshuapare/nthive/hive"
)

var getRaw bool

func init() {
	cmd := newGetCmd()
	cmd.Flags().BoolVar(&getRaw, "raw", false, "Write the raw data bytes to stdout")
	rootCmd.AddCommand(cmd)
}

func newGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <hive> <path> <name>",
		Short: "Get a single registry value",
		Long: `The get command retrieves one value and prints it decoded by type.
With --raw the unmodified data bytes go to stdout, big-data values
included.

Example:
  hivectl get system.hive "Select" "Current"
  hivectl get system.hive "Setup" "CmdLine" --raw > cmdline.bin`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGet(args[0], args[1], args[2])
		},
	}
}

func runGet(path, keyPath, valueName string) error {
	h, err := openHive(path)
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

	if getRaw {
		r, err := v.DataReader()
		if err != nil {
			return err
		}
		_, err = os.Stdout.ReadFrom(r)
		return err
	}

	log.WithFields(map[string]any{
		"type": v.DataType().String(),
		"size": v.DataSize(),
	}).Debug("decoded value")

	switch v.DataType() {
	case hive.RegBinary, hive.RegNone, hive.RegResourceList,
		hive.RegFullResourceDescriptor, hive.RegResourceRequirementsList:
		data, err := v.Data()
		if err != nil {
			return err
		}
		fmt.Println(hex.EncodeToString(data))
	default:
		fmt.Println(renderValue(v))
	}
	return nil
}
