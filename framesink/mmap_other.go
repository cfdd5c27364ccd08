//go:build !unix

package framesink

import (
	"os"
)

// fileRegion emulates the mapping with explicit reads and writes where mmap
// is unavailable.
type fileRegion struct {
	f   *os.File
	buf []byte
}

func mapFile(f *os.File, size int, _ bool) (region, error) {
	r := &fileRegion{f: f, buf: make([]byte, size)}
	if err := r.load(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *fileRegion) bytes() []byte { return r.buf }

func (r *fileRegion) load() error {
	_, err := r.f.ReadAt(r.buf, 0)
	return err
}

func (r *fileRegion) flush() error {
	_, err := r.f.WriteAt(r.buf, 0)
	return err
}

func (r *fileRegion) close() error { return r.f.Close() }
