package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/joshuapare/nthive/hive"
)

var (
	verbose bool
	salvage bool

	log = logrus.New()
)

var rootCmd = &cobra.Command{
	Use:   "hivectl",
	Short: "Inspect Windows registry hive files",
	Long: `hivectl reads Windows registry hive files (regf format): header
metadata, the key tree, and typed value data. The only write operation is
set, which overwrites an existing fixed-size value in place.`,
	Version: "0.1.0",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		log.SetOutput(os.Stderr)
		log.SetLevel(logrus.WarnLevel)
		if verbose {
			log.SetLevel(logrus.DebugLevel)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().
		BoolVar(&salvage, "salvage", false, "Skip sequence and checksum validation")
}

// openHive opens path honoring the --salvage flag.
func openHive(path string) (*hive.MappedHive, error) {
	log.WithField("path", path).Debug("opening hive")
	if salvage {
		return hive.OpenSalvage(path)
	}
	return hive.Open(path)
}

// resolveKey walks keyPath from the root of h.
func resolveKey(h *hive.MappedHive, keyPath string) (hive.KeyNode, error) {
	root, err := h.RootKeyNode()
	if err != nil {
		return hive.KeyNode{}, err
	}
	node, ok, err := root.Subpath(keyPath)
	if err != nil {
		return hive.KeyNode{}, err
	}
	if !ok {
		return hive.KeyNode{}, fmt.Errorf("key not found: %s", keyPath)
	}
	return node, nil
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
