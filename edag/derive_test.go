package edag

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/alecthomas/assert/v2"
	"github.com/birdayz/edgepipe/etag"
)

var (
	camera = etag.NodeTag{ID: 1, Type: "camera"}
	resize = etag.NodeTag{ID: 2, Type: "resize"}
	screen = etag.NodeTag{ID: 3, Type: "screen"}
	merge  = etag.NodeTag{ID: 4, Type: "merge"}
)

func streamLink(src, dst etag.NodeTag) Link {
	return Link{
		Source:      src.Pin(etag.Stream, etag.Output, 0),
		Destination: dst.Pin(etag.Stream, etag.Input, 0),
	}
}

func signalLink(src, dst etag.NodeTag, sub int) Link {
	return Link{
		Source:      src.Pin(etag.Signal, etag.Output, 0),
		Destination: dst.Pin(etag.Signal, etag.Input, sub),
	}
}

func TestDerive(t *testing.T) {
	t.Run("every node is a key", func(t *testing.T) {
		deps := Derive([]etag.NodeTag{camera, resize, screen}, nil)
		assert.Equal(t, 3, len(deps.Refresh))
		for _, n := range []etag.NodeTag{camera, resize, screen} {
			preds, ok := deps.Refresh[n]
			assert.True(t, ok)
			assert.Equal(t, 0, len(preds))
		}
		assert.Equal(t, 0, len(deps.FanIn))
	})

	t.Run("chain", func(t *testing.T) {
		links := []Link{streamLink(camera, resize), streamLink(resize, screen)}
		deps := Derive([]etag.NodeTag{camera, resize, screen}, links)

		assert.Equal(t, []etag.NodeTag{camera}, deps.Refresh[resize])
		assert.Equal(t, []etag.NodeTag{resize}, deps.Refresh[screen])
		assert.Equal(t, []Link{links[0]}, deps.FanIn[resize])
		assert.Equal(t, []Link{links[1]}, deps.FanIn[screen])
		_, ok := deps.FanIn[camera]
		assert.False(t, ok)
	})

	t.Run("parallel links are deduplicated in refresh but kept in fan-in", func(t *testing.T) {
		links := []Link{
			streamLink(camera, merge),
			signalLink(camera, merge, 1),
			signalLink(resize, merge, 2),
		}
		deps := Derive([]etag.NodeTag{camera, resize, merge}, links)

		assert.Equal(t, []etag.NodeTag{camera, resize}, deps.Refresh[merge])
		assert.Equal(t, links, deps.FanIn[merge])
	})

	t.Run("links to unknown nodes are ignored", func(t *testing.T) {
		deps := Derive([]etag.NodeTag{camera}, []Link{streamLink(camera, screen)})
		assert.Equal(t, 1, len(deps.Refresh))
		assert.Equal(t, 0, len(deps.FanIn))
	})

	t.Run("idempotent", func(t *testing.T) {
		nodes := []etag.NodeTag{camera, resize, screen, merge}
		links := []Link{streamLink(camera, resize), signalLink(resize, merge, 1), signalLink(screen, merge, 2)}
		assert.Equal(t, Derive(nodes, links), Derive(nodes, links))
	})

	t.Run("refresh edges match links", func(t *testing.T) {
		nodes := []etag.NodeTag{camera, resize, screen, merge}
		links := []Link{streamLink(camera, resize), signalLink(resize, merge, 1), signalLink(screen, merge, 2), streamLink(camera, screen)}
		deps := Derive(nodes, links)

		edges := 0
		for dst, preds := range deps.Refresh {
			for _, src := range preds {
				edges++
				found := false
				for _, l := range links {
					if l.Source.Node == src && l.Destination.Node == dst {
						found = true
					}
				}
				assert.True(t, found)
			}
		}
		assert.Equal(t, len(links), edges)
	})
}

func TestWaves(t *testing.T) {
	t.Run("empty graph", func(t *testing.T) {
		waves, err := Derive(nil, nil).Waves()
		assert.NoError(t, err)
		assert.Equal(t, 0, len(waves))
	})

	t.Run("chain runs one node per wave", func(t *testing.T) {
		deps := Derive([]etag.NodeTag{screen, resize, camera}, []Link{streamLink(camera, resize), streamLink(resize, screen)})
		waves, err := deps.Waves()
		assert.NoError(t, err)
		assert.Equal(t, [][]etag.NodeTag{{camera}, {resize}, {screen}}, waves)
	})

	t.Run("independent nodes share a wave sorted by id", func(t *testing.T) {
		deps := Derive([]etag.NodeTag{merge, screen, camera, resize}, []Link{
			signalLink(camera, merge, 1),
			signalLink(resize, merge, 2),
		})
		waves, err := deps.Waves()
		assert.NoError(t, err)
		assert.Equal(t, [][]etag.NodeTag{{camera, resize, screen}, {merge}}, waves)
	})

	t.Run("every predecessor is in an earlier wave", func(t *testing.T) {
		nodes := []etag.NodeTag{camera, resize, screen, merge}
		deps := Derive(nodes, []Link{
			streamLink(camera, resize),
			signalLink(resize, merge, 1),
			signalLink(camera, merge, 2),
			streamLink(resize, screen),
		})
		waves, err := deps.Waves()
		assert.NoError(t, err)

		level := map[etag.NodeTag]int{}
		for i, w := range waves {
			for _, n := range w {
				level[n] = i
			}
		}
		assert.Equal(t, len(nodes), len(level))
		for node, preds := range deps.Refresh {
			for _, p := range preds {
				assert.True(t, level[p] < level[node])
			}
		}
	})

	t.Run("two node cycle", func(t *testing.T) {
		deps := Derive([]etag.NodeTag{camera, resize}, []Link{streamLink(camera, resize), streamLink(resize, camera)})
		_, err := deps.Waves()
		assert.Error(t, err)
		assert.True(t, errors.Is(err, ErrGraphCycle))
		assert.Contains(t, err.Error(), "1:camera")
		assert.Contains(t, err.Error(), "2:resize")
	})

	t.Run("cycle behind an acyclic prefix", func(t *testing.T) {
		deps := Derive([]etag.NodeTag{camera, resize, screen}, []Link{
			streamLink(camera, resize),
			streamLink(resize, screen),
			streamLink(screen, resize),
		})
		_, err := deps.Waves()
		assert.True(t, errors.Is(err, ErrGraphCycle))
		assert.NoError(t, Derive([]etag.NodeTag{camera, resize}, []Link{streamLink(camera, resize)}).DetectCycle())
	})
}

func TestCheckLink(t *testing.T) {
	declared := func(multi bool) PinLookup {
		return func(p etag.Pin) PinInfo {
			if p.Node == merge && p.Dir == etag.Input {
				return PinInfo{Declared: true, Multi: multi}
			}
			return PinInfo{Declared: p.Node != (etag.NodeTag{ID: 99, Type: "gone"})}
		}
	}

	tests := []struct {
		name     string
		existing []Link
		link     Link
		multi    bool
		valid    bool
	}{
		{name: "valid", link: streamLink(camera, resize), valid: true},
		{name: "kind mismatch", link: Link{
			Source:      camera.Pin(etag.Stream, etag.Output, 0),
			Destination: resize.Pin(etag.Signal, etag.Input, 0),
		}},
		{name: "reversed direction", link: Link{
			Source:      camera.Pin(etag.Stream, etag.Input, 0),
			Destination: resize.Pin(etag.Stream, etag.Output, 0),
		}},
		{name: "static pin", link: Link{
			Source:      camera.Pin(etag.Stream, etag.Output, 0),
			Destination: resize.Pin(etag.Stream, etag.Static, 0),
		}},
		{name: "self link", link: streamLink(camera, camera)},
		{name: "unknown node", link: streamLink(etag.NodeTag{ID: 99, Type: "gone"}, resize)},
		{name: "destination already linked", existing: []Link{streamLink(camera, screen)}, link: streamLink(resize, screen)},
		{name: "exact duplicate on multi pin", existing: []Link{signalLink(camera, merge, 0)}, link: signalLink(camera, merge, 0), multi: true},
		{name: "second link into multi pin", existing: []Link{signalLink(camera, merge, 0)}, link: signalLink(resize, merge, 0), multi: true, valid: true},
		{name: "different sub indexes", existing: []Link{signalLink(camera, merge, 1)}, link: signalLink(resize, merge, 2), valid: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckLink(tt.existing, tt.link, declared(tt.multi))
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.True(t, errors.Is(err, ErrInvalidLink))
			}
		})
	}
}

func TestLinkJSON(t *testing.T) {
	l := signalLink(resize, merge, 2)
	b, err := json.Marshal(l)
	assert.NoError(t, err)
	assert.Equal(t, `["2:resize:4:1","4:merge:4:0:2"]`, string(b))

	var out Link
	assert.NoError(t, json.Unmarshal(b, &out))
	assert.Equal(t, l, out)

	err = json.Unmarshal([]byte(`["2:resize:4:1"]`), &out)
	assert.True(t, errors.Is(err, ErrInvalidLink))
}
