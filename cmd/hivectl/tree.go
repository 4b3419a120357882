package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joshuapare/nthive/hive"
)

var treeMaxDepth int

func init() {
	cmd := newTreeCmd()
	cmd.Flags().IntVarP(&treeMaxDepth, "depth", "d", 0, "Limit recursion depth (0 = unlimited)")
	rootCmd.AddCommand(cmd)
}

func newTreeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tree <hive> [path]",
		Short: "Print the key tree",
		Long: `The tree command prints the subkey hierarchy below a key, the whole
hive by default.

Example:
  hivectl tree system.hive
  hivectl tree system.hive "ControlSet001\Services" --depth 2`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			keyPath := ""
			if len(args) == 2 {
				keyPath = args[1]
			}
			return runTree(args[0], keyPath)
		},
	}
}

func runTree(path, keyPath string) error {
	h, err := openHive(path)
	if err != nil {
		return fmt.Errorf("failed to open hive: %w", err)
	}
	defer h.Close()

	node, err := resolveKey(h, keyPath)
	if err != nil {
		return err
	}
	fmt.Println(node.Name().String())
	return printSubtree(node, 1)
}

func printSubtree(node hive.KeyNode, depth int) error {
	if treeMaxDepth > 0 && depth > treeMaxDepth {
		return nil
	}
	it, err := node.Subkeys()
	if err != nil {
		return err
	}
	for {
		child, err := it.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		fmt.Printf("%s%s\n", strings.Repeat("  ", depth), child.Name().String())
		if err := printSubtree(child, depth+1); err != nil {
			return err
		}
	}
}
