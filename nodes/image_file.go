package nodes

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/birdayz/edgepipe/enode"
)

// ImageFileType is a source emitting a still image read from disk. The
// file is decoded again only when the path changes.
func ImageFileType() enode.Type {
	t := enode.Type{
		Name:     "image_file",
		Title:    "Image File",
		Category: enode.CategorySource,
		Version:  Version,
		Pins:     []enode.PinSpec{streamOut, signalOut},
	}
	t.New = func(env enode.Env) enode.Node {
		return &ImageFile{Base: enode.NewBase(t, env)}
	}
	return t
}

type ImageFile struct {
	enode.Base
	path string

	loaded string
	frame  *enode.Frame
}

// SetPath selects the image to emit.
func (n *ImageFile) SetPath(path string) { n.path = path }

func (n *ImageFile) Refresh(ctx context.Context, in enode.Input) (*enode.Frame, enode.Message, error) {
	if n.path == "" {
		return nil, nil, nil
	}
	if n.path != n.loaded {
		f, err := decodeFile(n.path)
		if err != nil {
			return nil, nil, err
		}
		n.Log.Info("Loaded image", "path", n.path, "width", f.Width, "height", f.Height)
		n.frame, n.loaded = f, n.path
	}

	msg := enode.Message{{
		Type:    enode.EntrySource,
		Subtype: "image_file",
		Data: map[string]any{
			"image": map[string]any{"source": n.loaded, "width": n.frame.Width, "height": n.frame.Height},
		},
	}}
	return n.frame, msg, nil
}

func decodeFile(path string) (*enode.Frame, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()
	img, _, err := image.Decode(fh)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return enode.FrameFromImage(img), nil
}

func (n *ImageFile) Delete(ctx context.Context) error {
	n.frame, n.loaded = nil, ""
	return nil
}

func (n *ImageFile) ExportParams() (enode.Params, error) {
	p, err := n.Base.ExportParams()
	if err != nil || n.path == "" {
		return p, err
	}
	return p, p.Set("path", n.path)
}

func (n *ImageFile) ImportParams(p enode.Params) error {
	if err := n.Base.ImportParams(p); err != nil {
		return err
	}
	_, err := p.Get("path", &n.path)
	return err
}
