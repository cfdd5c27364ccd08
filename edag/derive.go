// Package edag derives execution dependencies from a pipeline graph.
//
// Everything in this package is pure: the same nodes and links always yield
// the same Dependencies and the same wave plan.
package edag

import (
	"slices"

	"github.com/birdayz/edgepipe/etag"
)

// Dependencies is the derived view of a pipeline graph.
type Dependencies struct {
	// Refresh maps every node to the distinct nodes it must run after, in
	// order of first appearance in the link list.
	Refresh map[etag.NodeTag][]etag.NodeTag

	// FanIn maps a node to the links that terminate on it, in link order.
	// Nodes without incoming links are absent.
	FanIn map[etag.NodeTag][]Link
}

// Derive computes Dependencies for nodes and links. Links whose endpoints are
// not in nodes are ignored.
func Derive(nodes []etag.NodeTag, links []Link) Dependencies {
	deps := Dependencies{
		Refresh: make(map[etag.NodeTag][]etag.NodeTag, len(nodes)),
		FanIn:   make(map[etag.NodeTag][]Link),
	}
	for _, n := range nodes {
		deps.Refresh[n] = []etag.NodeTag{}
	}

	for _, l := range links {
		src, dst := l.Source.Node, l.Destination.Node
		preds, ok := deps.Refresh[dst]
		if !ok {
			continue
		}
		if _, ok := deps.Refresh[src]; !ok {
			continue
		}
		if !slices.Contains(preds, src) {
			deps.Refresh[dst] = append(preds, src)
		}
		deps.FanIn[dst] = append(deps.FanIn[dst], l)
	}

	return deps
}

// Predecessors returns the refresh predecessors of node.
func (d Dependencies) Predecessors(node etag.NodeTag) []etag.NodeTag {
	return d.Refresh[node]
}

// Nodes returns all nodes of d ordered by id.
func (d Dependencies) Nodes() []etag.NodeTag {
	nodes := make([]etag.NodeTag, 0, len(d.Refresh))
	for n := range d.Refresh {
		nodes = append(nodes, n)
	}
	slices.SortFunc(nodes, compareTags)
	return nodes
}

func compareTags(a, b etag.NodeTag) int {
	if a.ID != b.ID {
		return a.ID - b.ID
	}
	switch {
	case a.Type < b.Type:
		return -1
	case a.Type > b.Type:
		return 1
	}
	return 0
}
