package edag

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/birdayz/edgepipe/etag"
)

var (
	ErrInvalidLink  = errors.New("invalid link")
	ErrLinkNotFound = errors.New("link not found")
	ErrGraphCycle   = errors.New("cycle detected in pipeline graph")
)

// Link is a directed connection from an output pin to an input pin.
// It encodes as a two element JSON array [source, destination].
type Link struct {
	Source      etag.Pin
	Destination etag.Pin
}

func (l Link) String() string {
	return l.Source.String() + " -> " + l.Destination.String()
}

func (l Link) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]etag.Pin{l.Source, l.Destination})
}

func (l *Link) UnmarshalJSON(b []byte) error {
	var pair []etag.Pin
	if err := json.Unmarshal(b, &pair); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidLink, err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("%w: expected [source, destination], got %d elements", ErrInvalidLink, len(pair))
	}
	l.Source, l.Destination = pair[0], pair[1]
	return nil
}

// PinInfo describes a pin as declared by the type of its node.
type PinInfo struct {
	Declared bool
	Multi    bool
}

// PinLookup resolves a pin against the graph. Pins on unknown nodes and pins
// the node type does not declare report Declared == false.
type PinLookup func(p etag.Pin) PinInfo

// CheckLink reports why l may not be added next to existing, or nil.
// All returned errors wrap ErrInvalidLink.
func CheckLink(existing []Link, l Link, lookup PinLookup) error {
	src, dst := l.Source, l.Destination
	if src.Dir != etag.Output {
		return fmt.Errorf("%w: source %s is not an output pin", ErrInvalidLink, src)
	}
	if dst.Dir != etag.Input {
		return fmt.Errorf("%w: destination %s is not an input pin", ErrInvalidLink, dst)
	}
	if src.Kind != dst.Kind {
		return fmt.Errorf("%w: kind mismatch %s != %s", ErrInvalidLink, src.Kind, dst.Kind)
	}
	if src.Node == dst.Node {
		return fmt.Errorf("%w: %s links to itself", ErrInvalidLink, src.Node)
	}
	if !lookup(src).Declared {
		return fmt.Errorf("%w: unknown source pin %s", ErrInvalidLink, src)
	}
	dstInfo := lookup(dst)
	if !dstInfo.Declared {
		return fmt.Errorf("%w: unknown destination pin %s", ErrInvalidLink, dst)
	}
	for _, e := range existing {
		if e == l {
			return fmt.Errorf("%w: %s already exists", ErrInvalidLink, l)
		}
		if e.Destination == dst && !dstInfo.Multi {
			return fmt.Errorf("%w: destination %s is already linked from %s", ErrInvalidLink, dst, e.Source)
		}
	}
	return nil
}

// Touches reports whether l has an endpoint on node.
func (l Link) Touches(node etag.NodeTag) bool {
	return l.Source.Node == node || l.Destination.Node == node
}
