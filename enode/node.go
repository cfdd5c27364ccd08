// Package enode is the contract between the pipeline runtime and node types.
package enode

import (
	"context"
	"log/slog"

	"github.com/birdayz/edgepipe/etag"
)

// Node is a single stage of a pipeline. A fresh instance is created for every
// node added to a pipeline, so implementations may keep per-node state in
// their struct.
type Node interface {
	// Add attaches the node under id at pos and acquires any backing
	// resources. It returns the tag the node is registered under.
	Add(ctx context.Context, id int, pos Position) (etag.NodeTag, error)

	// Refresh runs the node for one tick. It may block on I/O; ctx carries
	// the per node deadline. Either return value may be nil.
	Refresh(ctx context.Context, in Input) (*Frame, Message, error)

	// Close releases external resources. It must be safe to call more than
	// once.
	Close(ctx context.Context) error

	// Delete removes everything the node created in Add.
	Delete(ctx context.Context) error

	ExportParams() (Params, error)
	ImportParams(p Params) error
}

// Category groups node types for listing.
type Category string

const (
	CategorySource    Category = "source"
	CategoryProcessor Category = "processor"
	CategorySink      Category = "sink"
	CategoryDebugging Category = "debugging"
)

// PinSpec declares a pin of a node type. Multi input pins accept any number
// of links.
type PinSpec struct {
	Kind  etag.PinKind
	Dir   etag.Direction
	Sub   int
	Multi bool
}

// Type describes a node type and how to construct instances of it.
type Type struct {
	// Name is the type part of node tags, see etag.TypeName.
	Name string

	// Title is the human readable name, e.g. "Video Streaming".
	Title string

	Category Category

	// Version is stamped on exported params.
	Version string

	Pins []PinSpec
	New  func(env Env) Node

	// Migrate converts params exported under another version. A nil Migrate
	// makes such params unimportable.
	Migrate func(from string, p Params) (Params, error)
}

// Pin returns the declaration matching p, if any.
func (t Type) Pin(p etag.Pin) (PinSpec, bool) {
	for _, spec := range t.Pins {
		if spec.Kind == p.Kind && spec.Dir == p.Dir && spec.Sub == p.Sub {
			return spec, true
		}
	}
	return PinSpec{}, false
}

// DisplayName returns Title, falling back to Name.
func (t Type) DisplayName() string {
	if t.Title != "" {
		return t.Title
	}
	return t.Name
}

// Tag builds the tag of an instance of t with the given id.
func (t Type) Tag(id int) etag.NodeTag {
	return etag.NodeTag{ID: id, Type: t.Name}
}

// FrameWriter accepts frames for the shared frame sink.
type FrameWriter interface {
	Write(f *Frame) error
}

// KafkaConfig configures nodes that publish to Kafka.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// Env is handed to every node constructor. It replaces any ambient global
// state a node might otherwise reach for.
type Env struct {
	Log *slog.Logger

	// FPS reports the current target tick rate.
	FPS func() int

	// FrameSink is nil when no shared frame sink is configured.
	FrameSink FrameWriter

	Kafka KafkaConfig
}
