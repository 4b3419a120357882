//go:build linux || darwin

package hive

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// MappedHive is a Hive backed by a memory-mapped file. Close unmaps the
// buffer; every view derived from the hive is dead after that.
type MappedHive struct {
	*Hive
	f        *os.File
	mapped   []byte
	writable bool
}

// Open memory-maps the hive file read-only and validates it strictly.
func Open(path string) (*MappedHive, error) {
	return open(path, false, NewHive)
}

// OpenSalvage is Open with the salvage constructor: sequence and checksum
// mismatches are tolerated.
func OpenSalvage(path string) (*MappedHive, error) {
	return open(path, false, NewHiveSalvage)
}

// OpenMutable memory-maps the hive file shared read-write so MutableData
// overwrites reach the file. Flush or Close persists them.
func OpenMutable(path string) (*MappedHive, error) {
	return open(path, true, NewHive)
}

func open(path string, writable bool, construct func([]byte) (*Hive, error)) (*MappedHive, error) {
	flags := os.O_RDONLY
	prot := unix.PROT_READ
	if writable {
		flags = os.O_RDWR
		prot |= unix.PROT_WRITE
	}
	f, err := os.OpenFile(path, flags, 0)
	if err != nil {
		return nil, err
	}
	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	if st.Size() == 0 {
		_ = f.Close()
		return nil, fmt.Errorf("hive: empty file %s", path)
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(st.Size()), prot, unix.MAP_SHARED)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("hive: mmap %s: %w", path, err)
	}

	h, err := construct(data)
	if err != nil {
		_ = unix.Munmap(data)
		_ = f.Close()
		return nil, err
	}
	return &MappedHive{Hive: h, f: f, mapped: data, writable: writable}, nil
}

// Flush writes outstanding in-place mutations back to the file.
func (m *MappedHive) Flush() error {
	if !m.writable {
		return nil
	}
	return unix.Msync(m.mapped, unix.MS_SYNC)
}

// Close unmaps the buffer and closes the file.
func (m *MappedHive) Close() error {
	if m.mapped != nil {
		if err := unix.Munmap(m.mapped); err != nil {
			_ = m.f.Close()
			return err
		}
		m.mapped = nil
	}
	return m.f.Close()
}
