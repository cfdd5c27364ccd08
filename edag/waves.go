package edag

import (
	"fmt"
	"slices"
	"strings"

	"github.com/birdayz/edgepipe/etag"
)

// Waves groups the nodes of d into dependency levels using Kahn's algorithm.
// Every node in wave i depends only on nodes in waves < i. Each wave is
// sorted by node id so the plan is deterministic.
// Returns ErrGraphCycle if the refresh graph is not acyclic.
func (d Dependencies) Waves() ([][]etag.NodeTag, error) {
	inDegree := make(map[etag.NodeTag]int, len(d.Refresh))
	children := make(map[etag.NodeTag][]etag.NodeTag, len(d.Refresh))
	for node, preds := range d.Refresh {
		inDegree[node] += 0
		for _, p := range preds {
			inDegree[node]++
			children[p] = append(children[p], node)
		}
	}

	var ready []etag.NodeTag
	for node, degree := range inDegree {
		if degree == 0 {
			ready = append(ready, node)
		}
	}

	var waves [][]etag.NodeTag
	scheduled := 0
	for len(ready) > 0 {
		slices.SortFunc(ready, compareTags)
		waves = append(waves, ready)
		scheduled += len(ready)

		var next []etag.NodeTag
		for _, node := range ready {
			for _, child := range children[node] {
				inDegree[child]--
				if inDegree[child] == 0 {
					next = append(next, child)
				}
			}
		}
		ready = next
	}

	if scheduled != len(d.Refresh) {
		if err := d.DetectCycle(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %d nodes could not be scheduled", ErrGraphCycle, len(d.Refresh)-scheduled)
	}

	return waves, nil
}

// DetectCycle searches the refresh graph depth first and returns an error
// wrapping ErrGraphCycle that names the cycle path, or nil.
func (d Dependencies) DetectCycle() error {
	visited := make(map[etag.NodeTag]bool, len(d.Refresh))
	onStack := make(map[etag.NodeTag]bool, len(d.Refresh))

	var dfs func(etag.NodeTag, []etag.NodeTag) error
	dfs = func(node etag.NodeTag, path []etag.NodeTag) error {
		visited[node] = true
		onStack[node] = true
		path = append(path, node)

		for _, pred := range d.Refresh[node] {
			if !visited[pred] {
				if err := dfs(pred, path); err != nil {
					return err
				}
			} else if onStack[pred] {
				start := slices.Index(path, pred)
				cycle := append(slices.Clone(path[start:]), pred)
				parts := make([]string, len(cycle))
				// path follows predecessor edges, print it in data flow order
				for i, n := range cycle {
					parts[len(cycle)-1-i] = n.String()
				}
				return fmt.Errorf("%w: %s", ErrGraphCycle, strings.Join(parts, " -> "))
			}
		}

		onStack[node] = false
		return nil
	}

	for _, node := range d.Nodes() {
		if !visited[node] {
			if err := dfs(node, nil); err != nil {
				return err
			}
		}
	}
	return nil
}
