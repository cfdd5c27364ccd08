// Package edoc is the persisted form of a pipeline.
//
// A document is a flat JSON object:
//
//	{
//	  "version": "0.1.0",
//	  "node_tags": ["1:test_pattern", "2:video_streaming"],
//	  "node_links": [["1:test_pattern:1:1", "2:video_streaming:1:0"]],
//	  "1:test_pattern": {"id": "1", "name": "test_pattern", "params": {...}},
//	  "2:video_streaming": {...}
//	}
package edoc

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strconv"

	"github.com/birdayz/edgepipe/edag"
	"github.com/birdayz/edgepipe/enode"
	"github.com/birdayz/edgepipe/etag"
)

// FormatVersion is written into every exported document.
const FormatVersion = "0.1.0"

var ErrInvalidDocument = errors.New("invalid pipeline document")

const (
	keyVersion = "version"
	keyTags    = "node_tags"
	keyLinks   = "node_links"
)

// NodeEntry is the per node section of a document.
type NodeEntry struct {
	ID     string       `json:"id"`
	Name   string       `json:"name"` // node type name
	Params enode.Params `json:"params"`
}

type Document struct {
	Version   string
	NodeTags  []etag.NodeTag
	NodeLinks []edag.Link
	Nodes     map[etag.NodeTag]NodeEntry
}

// New returns an empty document stamped with FormatVersion.
func New() *Document {
	return &Document{
		Version:   FormatVersion,
		NodeTags:  []etag.NodeTag{},
		NodeLinks: []edag.Link{},
		Nodes:     map[etag.NodeTag]NodeEntry{},
	}
}

// Add appends a node and its entry.
func (d *Document) Add(tag etag.NodeTag, name string, params enode.Params) {
	d.NodeTags = append(d.NodeTags, tag)
	d.Nodes[tag] = NodeEntry{ID: strconv.Itoa(tag.ID), Name: name, Params: params}
}

// Validate checks the structural consistency of d: unique tags, one entry
// per tag, and links between listed nodes.
func (d *Document) Validate() error {
	seen := make(map[etag.NodeTag]bool, len(d.NodeTags))
	ids := make(map[int]bool, len(d.NodeTags))
	for _, tag := range d.NodeTags {
		if seen[tag] || ids[tag.ID] {
			return fmt.Errorf("%w: duplicate node %s", ErrInvalidDocument, tag)
		}
		seen[tag] = true
		ids[tag.ID] = true
		entry, ok := d.Nodes[tag]
		if !ok {
			return fmt.Errorf("%w: missing entry for node %s", ErrInvalidDocument, tag)
		}
		if entry.ID != "" && entry.ID != strconv.Itoa(tag.ID) {
			return fmt.Errorf("%w: entry id %q does not match node %s", ErrInvalidDocument, entry.ID, tag)
		}
	}
	for _, l := range d.NodeLinks {
		if !seen[l.Source.Node] || !seen[l.Destination.Node] {
			return fmt.Errorf("%w: link %s references an unlisted node", ErrInvalidDocument, l)
		}
	}
	return nil
}

// MaxID returns the largest node id in d, or 0.
func (d *Document) MaxID() int {
	maxID := 0
	for _, tag := range d.NodeTags {
		maxID = max(maxID, tag.ID)
	}
	return maxID
}

func (d *Document) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(d.Nodes)+3)
	out[keyVersion] = d.Version
	tags := d.NodeTags
	if tags == nil {
		tags = []etag.NodeTag{}
	}
	out[keyTags] = tags
	links := d.NodeLinks
	if links == nil {
		links = []edag.Link{}
	}
	out[keyLinks] = links
	for tag, entry := range d.Nodes {
		out[tag.String()] = entry
	}
	return json.Marshal(out)
}

func (d *Document) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}

	doc := New()
	if v, ok := raw[keyVersion]; ok {
		if err := json.Unmarshal(v, &doc.Version); err != nil {
			return fmt.Errorf("%w: version: %w", ErrInvalidDocument, err)
		}
	}
	if v, ok := raw[keyTags]; ok {
		if err := json.Unmarshal(v, &doc.NodeTags); err != nil {
			return fmt.Errorf("%w: node_tags: %w", ErrInvalidDocument, err)
		}
	}
	if v, ok := raw[keyLinks]; ok {
		if err := json.Unmarshal(v, &doc.NodeLinks); err != nil {
			return fmt.Errorf("%w: node_links: %w", ErrInvalidDocument, err)
		}
	}

	for key, v := range raw {
		if key == keyVersion || key == keyTags || key == keyLinks {
			continue
		}
		tag, err := etag.ParseNode(key)
		if err != nil {
			return fmt.Errorf("%w: unexpected key %q", ErrInvalidDocument, key)
		}
		var entry NodeEntry
		if err := json.Unmarshal(v, &entry); err != nil {
			return fmt.Errorf("%w: node %s: %w", ErrInvalidDocument, tag, err)
		}
		doc.Nodes[tag] = entry
	}

	*d = *doc
	return nil
}

// Equal reports whether d and o describe the same graph and params.
func (d *Document) Equal(o *Document) bool {
	if d.Version != o.Version || !slices.Equal(d.NodeTags, o.NodeTags) || !slices.Equal(d.NodeLinks, o.NodeLinks) {
		return false
	}
	a, err := json.Marshal(d)
	if err != nil {
		return false
	}
	b, err := json.Marshal(o)
	if err != nil {
		return false
	}
	return string(a) == string(b)
}

// Marshal encodes d with indentation.
func Marshal(d *Document) ([]byte, error) {
	return json.MarshalIndent(d, "", "  ")
}

func Unmarshal(b []byte) (*Document, error) {
	d := New()
	if err := json.Unmarshal(b, d); err != nil {
		return nil, err
	}
	return d, nil
}
