package execution

import (
	"sync"

	"github.com/birdayz/edgepipe/enode"
	"github.com/birdayz/edgepipe/etag"
)

// Bus holds the latest frame and message of every node. Values persist
// across ticks until overwritten or until Reset.
type Bus struct {
	mu       sync.RWMutex
	frames   map[etag.NodeTag]*enode.Frame
	messages map[etag.NodeTag]enode.Message
}

func NewBus() *Bus {
	return &Bus{
		frames:   map[etag.NodeTag]*enode.Frame{},
		messages: map[etag.NodeTag]enode.Message{},
	}
}

func (b *Bus) Frame(tag etag.NodeTag) *enode.Frame {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.frames[tag]
}

func (b *Bus) Message(tag etag.NodeTag) enode.Message {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.messages[tag]
}

// Set stores the outputs of a node. nil values are stored as absent.
func (b *Bus) Set(tag etag.NodeTag, f *enode.Frame, m enode.Message) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if f == nil {
		delete(b.frames, tag)
	} else {
		b.frames[tag] = f
	}
	if m == nil {
		delete(b.messages, tag)
	} else {
		b.messages[tag] = m
	}
}

// Remove drops everything stored for tag.
func (b *Bus) Remove(tag etag.NodeTag) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.frames, tag)
	delete(b.messages, tag)
}

// Reset clears the bus.
func (b *Bus) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	clear(b.frames)
	clear(b.messages)
}

// Len returns the number of nodes with at least one stored value.
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	n := len(b.frames)
	for tag := range b.messages {
		if _, ok := b.frames[tag]; !ok {
			n++
		}
	}
	return n
}

var _ enode.Bus = (*Bus)(nil)
