package edgepipe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"go.uber.org/multierr"

	"github.com/birdayz/edgepipe/edag"
	"github.com/birdayz/edgepipe/enode"
	"github.com/birdayz/edgepipe/etag"
	"github.com/birdayz/edgepipe/internal/execution"
)

var (
	ErrUnknownNodeType = enode.ErrUnknownNodeType
	ErrInvalidLink     = edag.ErrInvalidLink
	ErrLinkNotFound    = edag.ErrLinkNotFound
	ErrGraphCycle      = edag.ErrGraphCycle
	ErrNodeRefresh     = execution.ErrNodeRefresh

	ErrNodeNotFound   = errors.New("node not found")
	ErrSchemaMismatch = errors.New("node params schema mismatch")
)

type nodeEntry struct {
	tag  etag.NodeTag
	typ  enode.Type
	node enode.Node
	pos  enode.Position
}

// Pipeline is the graph store: node instances, the links between them, and
// the dependencies derived from both. All methods are safe for concurrent
// use. A running tick holds the pipeline lock, so mutations take effect
// between ticks.
type Pipeline struct {
	log      *slog.Logger
	registry *enode.Registry
	env      enode.Env

	mu     sync.Mutex
	nodes  map[int]*nodeEntry
	order  []etag.NodeTag
	links  []edag.Link
	nextID int

	deps      edag.Dependencies
	instances map[etag.NodeTag]enode.Node

	onRemove []func(etag.NodeTag)
	// waitIdle blocks until a node has no refresh running.
	waitIdle func(ctx context.Context, tag etag.NodeTag) error
}

// NewPipeline creates an empty pipeline that builds nodes from registry.
func NewPipeline(log *slog.Logger, registry *enode.Registry, env enode.Env) *Pipeline {
	if env.Log == nil {
		env.Log = log
	}
	p := &Pipeline{
		log:      log,
		registry: registry,
		env:      env,
		nodes:    map[int]*nodeEntry{},
	}
	p.derive()
	return p
}

// OnRemove registers fn to be called with the tag of every node that leaves
// the pipeline.
func (p *Pipeline) OnRemove(fn func(etag.NodeTag)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onRemove = append(p.onRemove, fn)
}

// AwaitIdle registers fn to be called before a node is closed. fn blocks
// until the node is not refreshing anymore, so Close and Delete never run
// next to a Refresh of the same node.
func (p *Pipeline) AwaitIdle(fn func(ctx context.Context, tag etag.NodeTag) error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.waitIdle = fn
}

func (p *Pipeline) derive() {
	p.deps = edag.Derive(p.order, p.links)
	p.instances = make(map[etag.NodeTag]enode.Node, len(p.nodes))
	for _, e := range p.nodes {
		p.instances[e.tag] = e.node
	}
}

// Acquire locks the pipeline and returns the graph for one tick.
func (p *Pipeline) Acquire() (execution.Snapshot, func()) {
	p.mu.Lock()
	return execution.Snapshot{Deps: p.deps, Nodes: p.instances}, p.mu.Unlock
}

// AddNode creates a node of type typeName at pos under the next free id.
func (p *Pipeline) AddNode(ctx context.Context, typeName string, pos enode.Position) (etag.NodeTag, error) {
	typ, err := p.registry.Lookup(typeName)
	if err != nil {
		return etag.NodeTag{}, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	tag, err := p.addLocked(ctx, typ, p.nextID+1, pos)
	if err != nil {
		return etag.NodeTag{}, err
	}
	p.derive()
	p.log.Info("Node added", "node", tag.String())
	return tag, nil
}

func (p *Pipeline) addLocked(ctx context.Context, typ enode.Type, id int, pos enode.Position) (etag.NodeTag, error) {
	n := typ.New(p.env)
	tag, err := n.Add(ctx, id, pos)
	if err != nil {
		return etag.NodeTag{}, fmt.Errorf("add %s: %w", typ.Tag(id), err)
	}
	if want := typ.Tag(id); tag != want {
		_ = n.Close(ctx)
		return etag.NodeTag{}, fmt.Errorf("node type %q registered as %s, want %s", typ.Name, tag, want)
	}

	p.nodes[id] = &nodeEntry{tag: tag, typ: typ, node: n, pos: pos}
	p.order = append(p.order, tag)
	p.nextID = max(p.nextID, id)
	return tag, nil
}

// MoveNode records a new editor position for a node.
func (p *Pipeline) MoveNode(tag etag.NodeTag, pos enode.Position) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, err := p.entryLocked(tag)
	if err != nil {
		return err
	}
	e.pos = pos
	return nil
}

func (p *Pipeline) entryLocked(tag etag.NodeTag) (*nodeEntry, error) {
	e, ok := p.nodes[tag.ID]
	if !ok || e.tag != tag {
		return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, tag)
	}
	return e, nil
}

func (p *Pipeline) lookupPin(pin etag.Pin) edag.PinInfo {
	e, ok := p.nodes[pin.Node.ID]
	if !ok || e.tag != pin.Node {
		return edag.PinInfo{}
	}
	spec, ok := e.typ.Pin(pin)
	return edag.PinInfo{Declared: ok, Multi: spec.Multi}
}

// Link connects src to dst. It reports false and leaves the graph unchanged
// if the link is not allowed.
func (p *Pipeline) Link(src, dst etag.Pin) bool {
	err := p.LinkErr(src, dst)
	if err != nil {
		p.log.Debug("Link rejected", "error", err)
	}
	return err == nil
}

// LinkErr is Link with the rejection reason. Errors wrap ErrInvalidLink.
func (p *Pipeline) LinkErr(src, dst etag.Pin) error {
	l := edag.Link{Source: src, Destination: dst}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := edag.CheckLink(p.links, l, p.lookupPin); err != nil {
		return err
	}
	p.links = append(p.links, l)
	p.derive()
	return nil
}

// Unlink removes l.
func (p *Pipeline) Unlink(l edag.Link) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	i := slices.Index(p.links, l)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrLinkNotFound, l)
	}
	p.links = slices.Delete(p.links, i, i+1)
	p.derive()
	return nil
}

// DeleteNode closes and deletes a node and drops every link touching it.
// The node is removed even if closing it fails; that error is returned.
func (p *Pipeline) DeleteNode(ctx context.Context, tag etag.NodeTag) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	e, err := p.entryLocked(tag)
	if err != nil {
		return err
	}

	err = p.teardown(ctx, e)
	delete(p.nodes, tag.ID)
	p.order = slices.DeleteFunc(p.order, func(t etag.NodeTag) bool { return t == tag })
	p.links = slices.DeleteFunc(p.links, func(l edag.Link) bool { return l.Touches(tag) })
	p.derive()
	p.removed(tag)

	p.log.Info("Node deleted", "node", tag.String())
	return err
}

// teardown closes and deletes a node once its refresh has returned, or
// when ctx is done.
func (p *Pipeline) teardown(ctx context.Context, e *nodeEntry) error {
	var err error
	if p.waitIdle != nil {
		if werr := p.waitIdle(ctx, e.tag); werr != nil {
			p.log.Warn("Closing node with a refresh still running", "node", e.tag.String(), "error", werr)
			err = multierr.Append(err, werr)
		}
	}
	if cerr := e.node.Close(ctx); cerr != nil {
		err = multierr.Append(err, fmt.Errorf("close %s: %w", e.tag, cerr))
	}
	if derr := e.node.Delete(ctx); derr != nil {
		err = multierr.Append(err, fmt.Errorf("delete %s: %w", e.tag, derr))
	}
	return err
}

func (p *Pipeline) removed(tag etag.NodeTag) {
	for _, fn := range p.onRemove {
		fn(tag)
	}
}

// Reset closes and deletes every node, clears all links and restarts id
// allocation at 1.
func (p *Pipeline) Reset(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.resetLocked(ctx)
}

func (p *Pipeline) resetLocked(ctx context.Context) error {
	var err error
	for _, tag := range p.order {
		err = multierr.Append(err, p.teardown(ctx, p.nodes[tag.ID]))
	}
	removed := p.order

	p.nodes = map[int]*nodeEntry{}
	p.order = nil
	p.links = nil
	p.nextID = 0
	p.derive()

	for _, tag := range removed {
		p.removed(tag)
	}
	return err
}

// Nodes returns the node tags in insertion order.
func (p *Pipeline) Nodes() []etag.NodeTag {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.order)
}

// Links returns the links in insertion order.
func (p *Pipeline) Links() []edag.Link {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.links)
}

// Node returns the instance behind tag.
func (p *Pipeline) Node(tag etag.NodeTag) (enode.Node, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, err := p.entryLocked(tag)
	if err != nil {
		return nil, false
	}
	return e.node, true
}

// Dependencies returns a freshly derived copy of the current dependencies.
func (p *Pipeline) Dependencies() edag.Dependencies {
	p.mu.Lock()
	defer p.mu.Unlock()
	return edag.Derive(p.order, p.links)
}

// Validate reports an ErrGraphCycle error if the graph could not be ticked.
func (p *Pipeline) Validate() error {
	_, err := p.Dependencies().Waves()
	return err
}
