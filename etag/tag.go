// Package etag defines the textual identity scheme for nodes and pins.
//
// A node is addressed as "id:type" and a pin as "id:type:kind:dir[:sub]".
// Kind and direction use the numeric codes of the graph editor so that
// pipeline documents stay portable between tools.
package etag

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrInvalidTag  = errors.New("invalid tag")
	ErrInvalidType = errors.New("invalid node type name")
)

const sep = ":"

// PinKind is the payload class carried over a pin.
type PinKind int

const (
	// Stream pins carry image frames.
	Stream PinKind = 1
	// Signal pins carry messages.
	Signal PinKind = 4
)

func (k PinKind) String() string {
	switch k {
	case Stream:
		return "Stream"
	case Signal:
		return "Signal"
	default:
		return "Unknown"
	}
}

// Valid reports whether k is a known pin kind.
func (k PinKind) Valid() bool {
	return k == Stream || k == Signal
}

// Direction is the data direction of a pin.
type Direction int

const (
	Input  Direction = 0
	Output Direction = 1
	// Static pins hold node-local parameters and never take part in links.
	Static Direction = 2
)

func (d Direction) String() string {
	switch d {
	case Input:
		return "Input"
	case Output:
		return "Output"
	case Static:
		return "Static"
	default:
		return "Unknown"
	}
}

func (d Direction) Valid() bool {
	return d == Input || d == Output || d == Static
}

// NodeTag identifies a node instance within a pipeline.
type NodeTag struct {
	ID   int
	Type string
}

// TypeName derives a node type name from a display name: lowercase, spaces
// replaced by underscores.
func TypeName(display string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(display)), " ", "_")
}

// ValidateType checks that name is usable as the type part of a tag.
func ValidateType(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty", ErrInvalidType)
	}
	if strings.ContainsAny(name, sep+" \t\n\r") {
		return fmt.Errorf("%w: %q contains a separator or whitespace", ErrInvalidType, name)
	}
	return nil
}

func (t NodeTag) String() string {
	return strconv.Itoa(t.ID) + sep + t.Type
}

// IsZero reports whether t is the zero tag.
func (t NodeTag) IsZero() bool {
	return t.ID == 0 && t.Type == ""
}

// Pin returns the pin of t with the given kind, direction and sub index.
func (t NodeTag) Pin(kind PinKind, dir Direction, sub int) Pin {
	return Pin{Node: t, Kind: kind, Dir: dir, Sub: sub}
}

func (t NodeTag) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *NodeTag) UnmarshalText(b []byte) error {
	parsed, err := ParseNode(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ParseNode parses "id:type".
func ParseNode(s string) (NodeTag, error) {
	parts := strings.Split(s, sep)
	if len(parts) != 2 {
		return NodeTag{}, fmt.Errorf("%w: node tag %q", ErrInvalidTag, s)
	}
	return parseNodeParts(s, parts[0], parts[1])
}

func parseNodeParts(s, rawID, typ string) (NodeTag, error) {
	id, err := strconv.Atoi(rawID)
	if err != nil || id <= 0 {
		return NodeTag{}, fmt.Errorf("%w: %q has bad id %q", ErrInvalidTag, s, rawID)
	}
	if err := ValidateType(typ); err != nil {
		return NodeTag{}, fmt.Errorf("%w: %q: %w", ErrInvalidTag, s, err)
	}
	return NodeTag{ID: id, Type: typ}, nil
}

// Pin identifies a connection point on a node. Sub is a 1-based index that
// distinguishes several pins of the same kind and direction; 0 means none.
type Pin struct {
	Node NodeTag
	Kind PinKind
	Dir  Direction
	Sub  int
}

func (p Pin) String() string {
	var b strings.Builder
	b.WriteString(p.Node.String())
	b.WriteString(sep)
	b.WriteString(strconv.Itoa(int(p.Kind)))
	b.WriteString(sep)
	b.WriteString(strconv.Itoa(int(p.Dir)))
	if p.Sub > 0 {
		b.WriteString(sep)
		b.WriteString(strconv.Itoa(p.Sub))
	}
	return b.String()
}

func (p Pin) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Pin) UnmarshalText(b []byte) error {
	parsed, err := ParsePin(string(b))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// ParsePin parses "id:type:kind:dir" with an optional trailing ":sub".
func ParsePin(s string) (Pin, error) {
	parts := strings.Split(s, sep)
	if len(parts) != 4 && len(parts) != 5 {
		return Pin{}, fmt.Errorf("%w: pin %q", ErrInvalidTag, s)
	}
	node, err := parseNodeParts(s, parts[0], parts[1])
	if err != nil {
		return Pin{}, err
	}
	kind, err := strconv.Atoi(parts[2])
	if err != nil || !PinKind(kind).Valid() {
		return Pin{}, fmt.Errorf("%w: pin %q has bad kind %q", ErrInvalidTag, s, parts[2])
	}
	dir, err := strconv.Atoi(parts[3])
	if err != nil || !Direction(dir).Valid() {
		return Pin{}, fmt.Errorf("%w: pin %q has bad direction %q", ErrInvalidTag, s, parts[3])
	}
	p := Pin{Node: node, Kind: PinKind(kind), Dir: Direction(dir)}
	if len(parts) == 5 {
		sub, err := strconv.Atoi(parts[4])
		if err != nil || sub <= 0 {
			return Pin{}, fmt.Errorf("%w: pin %q has bad sub index %q", ErrInvalidTag, s, parts[4])
		}
		p.Sub = sub
	}
	return p, nil
}
