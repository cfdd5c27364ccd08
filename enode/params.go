package enode

import (
	"encoding/json"
	"fmt"
)

// Position is the editor position of a node. It encodes as [x, y].
type Position struct {
	X int
	Y int
}

func (p Position) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]int{p.X, p.Y})
}

func (p *Position) UnmarshalJSON(b []byte) error {
	var xy []int
	if err := json.Unmarshal(b, &xy); err != nil {
		return fmt.Errorf("position: %w", err)
	}
	if len(xy) != 2 {
		return fmt.Errorf("position: expected [x, y], got %d values", len(xy))
	}
	p.X, p.Y = xy[0], xy[1]
	return nil
}

const (
	keyVersion  = "version"
	keyPosition = "position"
)

// Params is the exported configuration of a node. Type specific fields sit
// next to version and position in one flat JSON object.
type Params struct {
	Version  string
	Position Position
	Fields   map[string]json.RawMessage
}

// Set stores v under key.
func (p *Params) Set(key string, v any) error {
	if key == keyVersion || key == keyPosition {
		return fmt.Errorf("params: %q is reserved", key)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("params: encode %q: %w", key, err)
	}
	if p.Fields == nil {
		p.Fields = map[string]json.RawMessage{}
	}
	p.Fields[key] = b
	return nil
}

// Get decodes the field key into v. It reports false and leaves v untouched
// if the field is absent.
func (p Params) Get(key string, v any) (bool, error) {
	raw, ok := p.Fields[key]
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return true, fmt.Errorf("params: decode %q: %w", key, err)
	}
	return true, nil
}

func (p Params) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(p.Fields)+2)
	for k, v := range p.Fields {
		out[k] = v
	}
	v, err := json.Marshal(p.Version)
	if err != nil {
		return nil, err
	}
	out[keyVersion] = v
	pos, err := json.Marshal(p.Position)
	if err != nil {
		return nil, err
	}
	out[keyPosition] = pos
	return json.Marshal(out)
}

func (p *Params) UnmarshalJSON(b []byte) error {
	var in map[string]json.RawMessage
	if err := json.Unmarshal(b, &in); err != nil {
		return fmt.Errorf("params: %w", err)
	}
	*p = Params{}
	if raw, ok := in[keyVersion]; ok {
		if err := json.Unmarshal(raw, &p.Version); err != nil {
			return fmt.Errorf("params: version: %w", err)
		}
		delete(in, keyVersion)
	}
	if raw, ok := in[keyPosition]; ok {
		if err := json.Unmarshal(raw, &p.Position); err != nil {
			return fmt.Errorf("params: %w", err)
		}
		delete(in, keyPosition)
	}
	if len(in) > 0 {
		p.Fields = in
	}
	return nil
}
