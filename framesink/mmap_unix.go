//go:build unix

package framesink

import (
	"os"

	"golang.org/x/sys/unix"
)

type mmapRegion struct {
	f   *os.File
	mem []byte
}

func mapFile(f *os.File, size int, writable bool) (region, error) {
	prot := unix.PROT_READ
	if writable {
		prot |= unix.PROT_WRITE
	}
	mem, err := unix.Mmap(int(f.Fd()), 0, size, prot, unix.MAP_SHARED)
	if err != nil {
		return nil, err
	}
	return &mmapRegion{f: f, mem: mem}, nil
}

func (m *mmapRegion) bytes() []byte { return m.mem }

// MAP_SHARED pages are the file, nothing to do.
func (m *mmapRegion) load() error  { return nil }
func (m *mmapRegion) flush() error { return nil }

func (m *mmapRegion) close() error {
	err := unix.Munmap(m.mem)
	m.mem = nil
	if cerr := m.f.Close(); err == nil {
		err = cerr
	}
	return err
}
