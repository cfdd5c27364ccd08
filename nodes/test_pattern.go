package nodes

import (
	"context"
	"image/color"

	"github.com/birdayz/edgepipe/enode"
)

var bars = []color.RGBA{
	{R: 0xff, G: 0xff, B: 0xff},
	{R: 0xff, G: 0xff},
	{G: 0xff, B: 0xff},
	{G: 0xff},
	{R: 0xff, B: 0xff},
	{R: 0xff},
	{B: 0xff},
	{},
}

// TestPatternType is a source emitting scrolling color bars, useful to
// exercise a pipeline without a camera.
func TestPatternType() enode.Type {
	t := enode.Type{
		Name:     "test_pattern",
		Title:    "Test Pattern",
		Category: enode.CategorySource,
		Version:  Version,
		Pins:     []enode.PinSpec{streamOut, signalOut},
	}
	t.New = func(env enode.Env) enode.Node {
		return &TestPattern{Base: enode.NewBase(t, env), size: sizeParams{width: 320, height: 240}}
	}
	return t
}

type TestPattern struct {
	enode.Base
	size  sizeParams
	count int
}

func (n *TestPattern) Refresh(ctx context.Context, in enode.Input) (*enode.Frame, enode.Message, error) {
	w, h := n.size.width, n.size.height
	f := enode.NewFrame(w, h)
	barWidth := max(w/len(bars), 1)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := ((x + n.count) / barWidth) % len(bars)
			f.Set(x, y, bars[i])
		}
	}
	n.count++

	msg := enode.Message{{
		Type:    enode.EntrySource,
		Subtype: "test_pattern",
		Data:    map[string]any{"frame": n.count, "width": w, "height": h},
	}}
	return f, msg, nil
}

func (n *TestPattern) ExportParams() (enode.Params, error) {
	p, err := n.Base.ExportParams()
	if err != nil {
		return p, err
	}
	return p, n.size.export(&p)
}

func (n *TestPattern) ImportParams(p enode.Params) error {
	if err := n.Base.ImportParams(p); err != nil {
		return err
	}
	return n.size.load(p)
}
