// Package framesink is the shared frame buffer between the pipeline and
// viewers in other processes. The buffer is a file of exactly
// width*height*3 bytes holding one RGB frame, row-major, with no header.
// Writers overwrite it in place and readers copy it out without
// synchronization, so a reader may observe a partially written frame.
package framesink

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"go.uber.org/multierr"

	"github.com/birdayz/edgepipe/enode"
)

const (
	DefaultPath   = "/dev/shm/edgepipe_frame"
	DefaultWidth  = 640
	DefaultHeight = 360

	// fill is the initial value of every byte of a new sink.
	fill = 1
)

var (
	ErrInvalidSize = errors.New("invalid frame sink size")
	ErrClosed      = errors.New("frame sink closed")
)

// Size returns the byte length of a sink of w x h pixels.
func Size(w, h int) int { return w * h * enode.Channels }

func checkSize(w, h int) error {
	if w <= 0 || h <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidSize, w, h)
	}
	return nil
}

// region is the mapped sink file.
type region interface {
	bytes() []byte
	// load makes bytes reflect the file.
	load() error
	// flush makes the file reflect bytes.
	flush() error
	close() error
}

// Writer owns a sink and overwrites it with every frame it is given.
type Writer struct {
	path   string
	width  int
	height int

	mu     sync.Mutex
	r      region
	closed bool
}

// Create creates or truncates the sink file at path, sizes it for w x h
// pixels and fills it with ones.
func Create(path string, w, h int) (*Writer, error) {
	if err := checkSize(w, h); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("create frame sink: %w", err)
	}
	if err := f.Truncate(int64(Size(w, h))); err != nil {
		f.Close()
		return nil, fmt.Errorf("size frame sink: %w", err)
	}
	r, err := mapFile(f, Size(w, h), true)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("map frame sink: %w", err)
	}
	b := r.bytes()
	for i := range b {
		b[i] = fill
	}
	if err := r.flush(); err != nil {
		r.close()
		return nil, err
	}
	return &Writer{path: path, width: w, height: h, r: r}, nil
}

func (w *Writer) Path() string { return w.path }

// Bounds returns the fixed frame size of the sink.
func (w *Writer) Bounds() (int, int) { return w.width, w.height }

// Write scales frame to the sink size and copies it into the sink.
func (w *Writer) Write(frame *enode.Frame) error {
	if err := frame.Validate(); err != nil {
		return err
	}
	frame = frame.Resize(w.width, w.height)

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrClosed
	}
	copy(w.r.bytes(), frame.Pix)
	return w.r.flush()
}

// Close unmaps the sink. The file itself stays, so readers can keep
// showing the last frame.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	return w.r.close()
}

// Remove closes the sink and deletes its file.
func (w *Writer) Remove() error {
	return multierr.Combine(w.Close(), os.Remove(w.path))
}

var _ enode.FrameWriter = (*Writer)(nil)

// Reader reads a sink created by a Writer, possibly in another process.
type Reader struct {
	width  int
	height int

	mu     sync.Mutex
	r      region
	closed bool
}

// Open maps an existing sink of w x h pixels for reading.
func Open(path string, w, h int) (*Reader, error) {
	if err := checkSize(w, h); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open frame sink: %w", err)
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if st.Size() != int64(Size(w, h)) {
		f.Close()
		return nil, fmt.Errorf("%w: %s has %d bytes, want %d for %dx%d", ErrInvalidSize, path, st.Size(), Size(w, h), w, h)
	}
	r, err := mapFile(f, Size(w, h), false)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("map frame sink: %w", err)
	}
	return &Reader{width: w, height: h, r: r}, nil
}

// Snapshot copies the current sink contents into a new frame.
func (r *Reader) Snapshot() (*enode.Frame, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, ErrClosed
	}
	if err := r.r.load(); err != nil {
		return nil, err
	}
	f := enode.NewFrame(r.width, r.height)
	copy(f.Pix, r.r.bytes())
	return f, nil
}

func (r *Reader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	return r.r.close()
}
