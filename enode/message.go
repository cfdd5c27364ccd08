package enode

import (
	"github.com/birdayz/edgepipe/etag"
)

// Entry types.
const (
	EntrySource    = "source"
	EntryProcessor = "processor"
)

// Entry is one record of a Message. Type is EntrySource or EntryProcessor,
// Subtype names the producing node type.
type Entry struct {
	Type    string         `json:"type"`
	Subtype string         `json:"subtype"`
	Data    map[string]any `json:"data,omitempty"`
}

// Message is the payload of Signal pins. Processors usually append their own
// entry to the entries they received.
type Message []Entry

func (Message) PinKind() etag.PinKind { return etag.Signal }

func (Message) payload() {}

// With returns a copy of m with e appended.
func (m Message) With(e Entry) Message {
	out := make(Message, 0, len(m)+1)
	out = append(out, m...)
	return append(out, e)
}

// Payload is the value carried over a link: *Frame on Stream pins, Message
// on Signal pins. No other implementations exist.
type Payload interface {
	PinKind() etag.PinKind
	payload()
}

var (
	_ Payload = (*Frame)(nil)
	_ Payload = Message(nil)
)
