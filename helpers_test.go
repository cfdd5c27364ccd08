package edgepipe

import (
	"context"
	"sync"

	"github.com/birdayz/edgepipe/enode"
	"github.com/birdayz/edgepipe/etag"
)

// testNode counts lifecycle calls and emits what its type's refresh
// function returns.
type testNode struct {
	enode.Base
	rec     *recorder
	label   string
	refresh func(n *testNode, in enode.Input) (*enode.Frame, enode.Message, error)
}

func (n *testNode) Refresh(ctx context.Context, in enode.Input) (*enode.Frame, enode.Message, error) {
	n.rec.record("refresh", n.Tag())
	if n.refresh == nil {
		return nil, nil, nil
	}
	return n.refresh(n, in)
}

func (n *testNode) Close(ctx context.Context) error {
	if n.MarkClosed() {
		n.rec.record("close", n.Tag())
	}
	return nil
}

func (n *testNode) Delete(ctx context.Context) error {
	n.rec.record("delete", n.Tag())
	return nil
}

func (n *testNode) ExportParams() (enode.Params, error) {
	p, err := n.Base.ExportParams()
	if err != nil {
		return p, err
	}
	if n.label != "" {
		err = p.Set("label", n.label)
	}
	return p, err
}

func (n *testNode) ImportParams(p enode.Params) error {
	if err := n.Base.ImportParams(p); err != nil {
		return err
	}
	_, err := p.Get("label", &n.label)
	return err
}

type recorder struct {
	mu     sync.Mutex
	events map[string][]etag.NodeTag
}

func newRecorder() *recorder {
	return &recorder{events: map[string][]etag.NodeTag{}}
}

func (r *recorder) record(event string, tag etag.NodeTag) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events[event] = append(r.events[event], tag)
}

func (r *recorder) get(event string) []etag.NodeTag {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]etag.NodeTag(nil), r.events[event]...)
}

func (r *recorder) count(event string, tag etag.NodeTag) int {
	n := 0
	for _, t := range r.get(event) {
		if t == tag {
			n++
		}
	}
	return n
}

type refreshFunc = func(n *testNode, in enode.Input) (*enode.Frame, enode.Message, error)

func testType(rec *recorder, name string, cat enode.Category, pins []enode.PinSpec, refresh refreshFunc) enode.Type {
	t := enode.Type{Name: name, Title: name, Category: cat, Version: "1", Pins: pins}
	t.New = func(env enode.Env) enode.Node {
		return &testNode{Base: enode.NewBase(t, env), rec: rec, refresh: refresh}
	}
	return t
}

var (
	streamOut = enode.PinSpec{Kind: etag.Stream, Dir: etag.Output}
	streamIn  = enode.PinSpec{Kind: etag.Stream, Dir: etag.Input}
	signalOut = enode.PinSpec{Kind: etag.Signal, Dir: etag.Output}
	signalIn  = enode.PinSpec{Kind: etag.Signal, Dir: etag.Input}
)

// testRegistry provides a camera source emitting a counter frame, a
// detector turning frames into messages, a screen consuming messages, a
// relay with stream in and out, and a merge accepting many messages.
func testRegistry(rec *recorder) *enode.Registry {
	var mu sync.Mutex
	counter := 0

	reg := enode.NewRegistry()
	reg.MustRegister(testType(rec, "camera", enode.CategorySource, []enode.PinSpec{streamOut},
		func(n *testNode, in enode.Input) (*enode.Frame, enode.Message, error) {
			mu.Lock()
			counter++
			v := counter
			mu.Unlock()
			return &enode.Frame{Width: 1, Height: 1, Pix: []byte{byte(v), 0, 0}}, nil, nil
		}))
	reg.MustRegister(testType(rec, "detector", enode.CategoryProcessor, []enode.PinSpec{streamIn, signalOut},
		func(n *testNode, in enode.Input) (*enode.Frame, enode.Message, error) {
			f := in.Frame()
			if f == nil {
				return nil, nil, nil
			}
			return nil, enode.Message{{Type: enode.EntryProcessor, Subtype: "detector", Data: map[string]any{"value": int(f.Pix[0])}}}, nil
		}))
	reg.MustRegister(testType(rec, "relay", enode.CategoryProcessor, []enode.PinSpec{streamIn, streamOut},
		func(n *testNode, in enode.Input) (*enode.Frame, enode.Message, error) {
			return in.Frame(), nil, nil
		}))
	reg.MustRegister(testType(rec, "screen", enode.CategoryDebugging, []enode.PinSpec{signalIn}, nil))
	reg.MustRegister(testType(rec, "merge", enode.CategoryProcessor, []enode.PinSpec{
		{Kind: etag.Signal, Dir: etag.Input, Multi: true},
		signalOut,
	}, func(n *testNode, in enode.Input) (*enode.Frame, enode.Message, error) {
		var out enode.Message
		for _, p := range in.Payloads() {
			if m, ok := p.(enode.Message); ok {
				out = append(out, m...)
			}
		}
		return nil, out, nil
	}))
	return reg
}

func outPin(tag etag.NodeTag, kind etag.PinKind) etag.Pin {
	return tag.Pin(kind, etag.Output, 0)
}

func inPin(tag etag.NodeTag, kind etag.PinKind) etag.Pin {
	return tag.Pin(kind, etag.Input, 0)
}
