package enode

import (
	"github.com/birdayz/edgepipe/edag"
	"github.com/birdayz/edgepipe/etag"
)

// Bus gives read access to the outputs nodes produced so far. A node that
// has not produced anything reads as nil.
type Bus interface {
	Frame(tag etag.NodeTag) *Frame
	Message(tag etag.NodeTag) Message
}

// Lookup reads the payload produced behind pin p: the frame of its node for
// Stream pins and the message for Signal pins. It returns nil if there is
// none.
func Lookup(b Bus, p etag.Pin) Payload {
	switch p.Kind {
	case etag.Stream:
		if f := b.Frame(p.Node); f != nil {
			return f
		}
	case etag.Signal:
		if m := b.Message(p.Node); m != nil {
			return m
		}
	}
	return nil
}

// Input is what a node sees during Refresh.
type Input struct {
	Tag etag.NodeTag
	// Links are the links terminating at this node, in link order.
	Links []edag.Link
	Bus   Bus
}

// Sources returns the upstream pins feeding input pins of the given kind.
func (in Input) Sources(kind etag.PinKind) []etag.Pin {
	var pins []etag.Pin
	for _, l := range in.Links {
		if l.Destination.Kind == kind {
			pins = append(pins, l.Source)
		}
	}
	return pins
}

// Source returns the upstream pin feeding the input pin of kind with the
// given sub index.
func (in Input) Source(kind etag.PinKind, sub int) (etag.Pin, bool) {
	for _, l := range in.Links {
		if l.Destination.Kind == kind && l.Destination.Sub == sub {
			return l.Source, true
		}
	}
	return etag.Pin{}, false
}

// Frame returns the frame of the first Stream link, or nil.
func (in Input) Frame() *Frame {
	src := in.Sources(etag.Stream)
	if len(src) == 0 || in.Bus == nil {
		return nil
	}
	return in.Bus.Frame(src[0].Node)
}

// Message returns the message of the first Signal link, or nil.
func (in Input) Message() Message {
	src := in.Sources(etag.Signal)
	if len(src) == 0 || in.Bus == nil {
		return nil
	}
	return in.Bus.Message(src[0].Node)
}

// Payloads returns the upstream payloads of all links in link order. Links
// whose source has produced nothing are skipped.
func (in Input) Payloads() []Payload {
	if in.Bus == nil {
		return nil
	}
	var out []Payload
	for _, l := range in.Links {
		if p := Lookup(in.Bus, l.Source); p != nil {
			out = append(out, p)
		}
	}
	return out
}
