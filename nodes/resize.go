package nodes

import (
	"context"

	"github.com/birdayz/edgepipe/enode"
)

// ResizeType scales the incoming frame to a fixed size.
func ResizeType() enode.Type {
	t := enode.Type{
		Name:     "resize",
		Title:    "Resize",
		Category: enode.CategoryProcessor,
		Version:  Version,
		Pins:     []enode.PinSpec{streamIn, streamOut},
	}
	t.New = func(env enode.Env) enode.Node {
		return &Resize{Base: enode.NewBase(t, env), size: sizeParams{width: 640, height: 360}}
	}
	return t
}

type Resize struct {
	enode.Base
	size sizeParams
}

func (n *Resize) Refresh(ctx context.Context, in enode.Input) (*enode.Frame, enode.Message, error) {
	f := in.Frame()
	if f == nil {
		return nil, nil, nil
	}
	if err := f.Validate(); err != nil {
		return nil, nil, err
	}
	return f.Resize(n.size.width, n.size.height), nil, nil
}

func (n *Resize) ExportParams() (enode.Params, error) {
	p, err := n.Base.ExportParams()
	if err != nil {
		return p, err
	}
	return p, n.size.export(&p)
}

func (n *Resize) ImportParams(p enode.Params) error {
	if err := n.Base.ImportParams(p); err != nil {
		return err
	}
	return n.size.load(p)
}
