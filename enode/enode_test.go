package enode

import (
	"context"
	"encoding/json"
	"errors"
	"image/color"
	"testing"

	"github.com/alecthomas/assert/v2"
	"github.com/birdayz/edgepipe/edag"
	"github.com/birdayz/edgepipe/etag"
)

type nopNode struct{ Base }

func (n *nopNode) Refresh(context.Context, Input) (*Frame, Message, error) { return nil, nil, nil }

func nopType(name string) Type {
	t := Type{Name: name, Category: CategoryProcessor, Version: "0.0.1"}
	t.New = func(env Env) Node { return &nopNode{Base: NewBase(t, env)} }
	return t
}

func TestRegistry(t *testing.T) {
	t.Run("register and lookup", func(t *testing.T) {
		r := NewRegistry()
		assert.NoError(t, r.Register(nopType("b")))
		assert.NoError(t, r.Register(nopType("a")))

		typ, err := r.Lookup("a")
		assert.NoError(t, err)
		assert.Equal(t, "a", typ.Name)

		names := []string{}
		for _, typ := range r.Types() {
			names = append(names, typ.Name)
		}
		assert.Equal(t, []string{"a", "b"}, names)
	})

	t.Run("unknown type", func(t *testing.T) {
		_, err := NewRegistry().Lookup("nope")
		assert.True(t, errors.Is(err, ErrUnknownNodeType))
	})

	t.Run("duplicate type", func(t *testing.T) {
		r := NewRegistry()
		r.MustRegister(nopType("a"))
		assert.True(t, errors.Is(r.Register(nopType("a")), ErrDuplicateNodeType))
	})

	t.Run("invalid name", func(t *testing.T) {
		assert.True(t, errors.Is(NewRegistry().Register(nopType("a:b")), etag.ErrInvalidType))
	})
}

func TestParamsJSON(t *testing.T) {
	p := Params{Version: "0.0.1", Position: Position{X: 10, Y: -4}}
	assert.NoError(t, p.Set("width", 640))
	assert.NoError(t, p.Set("label", "front door"))
	assert.Error(t, p.Set("version", "x"))

	b, err := json.Marshal(p)
	assert.NoError(t, err)
	assert.Equal(t, `{"label":"front door","position":[10,-4],"version":"0.0.1","width":640}`, string(b))

	var out Params
	assert.NoError(t, json.Unmarshal(b, &out))
	assert.Equal(t, "0.0.1", out.Version)
	assert.Equal(t, Position{X: 10, Y: -4}, out.Position)

	var width int
	ok, err := out.Get("width", &width)
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 640, width)

	ok, err = out.Get("missing", &width)
	assert.NoError(t, err)
	assert.False(t, ok)

	var label int
	_, err = out.Get("label", &label)
	assert.Error(t, err)
}

func TestFrame(t *testing.T) {
	t.Run("image round trip", func(t *testing.T) {
		f := NewFrame(3, 2)
		f.Set(2, 1, color.RGBA{R: 10, G: 20, B: 30, A: 255})
		assert.NoError(t, f.Validate())

		back := FrameFromImage(f.Image())
		assert.Equal(t, f, back)
		assert.Equal(t, color.RGBA{R: 10, G: 20, B: 30, A: 255}, back.At(2, 1))
	})

	t.Run("resize", func(t *testing.T) {
		f := NewFrame(8, 8)
		for i := range f.Pix {
			f.Pix[i] = 200
		}
		r := f.Resize(4, 2)
		assert.NoError(t, r.Validate())
		assert.Equal(t, 4*2*Channels, len(r.Pix))
		assert.Equal(t, color.RGBA{R: 200, G: 200, B: 200, A: 255}, r.At(1, 1))
		assert.True(t, f.Resize(8, 8) == f)
	})

	t.Run("validate", func(t *testing.T) {
		assert.Error(t, (&Frame{Width: 2, Height: 2, Pix: make([]byte, 3)}).Validate())
		assert.Error(t, (&Frame{}).Validate())
	})
}

type mapBus struct {
	frames   map[etag.NodeTag]*Frame
	messages map[etag.NodeTag]Message
}

func (b mapBus) Frame(tag etag.NodeTag) *Frame    { return b.frames[tag] }
func (b mapBus) Message(tag etag.NodeTag) Message { return b.messages[tag] }

func TestInput(t *testing.T) {
	cam := etag.NodeTag{ID: 1, Type: "camera"}
	det := etag.NodeTag{ID: 2, Type: "detector"}
	self := etag.NodeTag{ID: 3, Type: "merge"}

	frame := NewFrame(1, 1)
	msg := Message{{Type: EntryProcessor, Subtype: "detector"}}
	in := Input{
		Tag: self,
		Links: []edag.Link{
			{Source: cam.Pin(etag.Stream, etag.Output, 0), Destination: self.Pin(etag.Stream, etag.Input, 0)},
			{Source: cam.Pin(etag.Signal, etag.Output, 0), Destination: self.Pin(etag.Signal, etag.Input, 1)},
			{Source: det.Pin(etag.Signal, etag.Output, 0), Destination: self.Pin(etag.Signal, etag.Input, 2)},
		},
		Bus: mapBus{
			frames:   map[etag.NodeTag]*Frame{cam: frame},
			messages: map[etag.NodeTag]Message{det: msg},
		},
	}

	assert.True(t, in.Frame() == frame)
	assert.Equal(t, Message(nil), in.Message())

	src, ok := in.Source(etag.Signal, 2)
	assert.True(t, ok)
	assert.Equal(t, det, src.Node)
	_, ok = in.Source(etag.Signal, 3)
	assert.False(t, ok)

	payloads := in.Payloads()
	assert.Equal(t, 2, len(payloads))
	assert.Equal(t, etag.Stream, payloads[0].PinKind())
	assert.Equal(t, etag.Signal, payloads[1].PinKind())
	assert.Equal(t, 2, len(in.Sources(etag.Signal)))
}

func TestBase(t *testing.T) {
	typ := nopType("nop")
	n := typ.New(Env{})
	tag, err := n.Add(context.Background(), 7, Position{X: 1, Y: 2})
	assert.NoError(t, err)
	assert.Equal(t, etag.NodeTag{ID: 7, Type: "nop"}, tag)

	assert.NoError(t, n.Close(context.Background()))
	assert.NoError(t, n.Close(context.Background()))

	p, err := n.ExportParams()
	assert.NoError(t, err)
	assert.Equal(t, Params{Version: "0.0.1", Position: Position{X: 1, Y: 2}}, p)
}
