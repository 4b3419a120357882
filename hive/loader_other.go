//go:build !linux && !darwin

package hive

import (
	"fmt"
	"os"
)

// MappedHive is a Hive backed by an in-memory copy of the file on
// platforms without mmap support. For mutable opens, Flush and Close
// write the buffer back.
type MappedHive struct {
	*Hive
	path     string
	writable bool
}

// Open loads the hive file into memory and validates it strictly.
func Open(path string) (*MappedHive, error) {
	return load(path, false, NewHive)
}

// OpenSalvage is Open with the salvage constructor: sequence and checksum
// mismatches are tolerated.
func OpenSalvage(path string) (*MappedHive, error) {
	return load(path, false, NewHiveSalvage)
}

// OpenMutable loads the hive file into memory for in-place mutation;
// Flush or Close writes the buffer back to the file.
func OpenMutable(path string) (*MappedHive, error) {
	return load(path, true, NewHive)
}

func load(path string, writable bool, construct func([]byte) (*Hive, error)) (*MappedHive, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("hive: empty file %s", path)
	}
	h, err := construct(data)
	if err != nil {
		return nil, err
	}
	return &MappedHive{Hive: h, path: path, writable: writable}, nil
}

// Flush writes outstanding in-place mutations back to the file.
func (m *MappedHive) Flush() error {
	if !m.writable {
		return nil
	}
	return os.WriteFile(m.path, m.data, 0o644)
}

// Close persists mutations for mutable opens and releases nothing else.
func (m *MappedHive) Close() error {
	return m.Flush()
}
