// Package nodes contains the built-in node types.
package nodes

import (
	"go.uber.org/multierr"

	"github.com/birdayz/edgepipe/enode"
	"github.com/birdayz/edgepipe/etag"
)

// Version is stamped on params of every built-in type.
const Version = "0.1.0"

var (
	streamIn  = enode.PinSpec{Kind: etag.Stream, Dir: etag.Input}
	streamOut = enode.PinSpec{Kind: etag.Stream, Dir: etag.Output}
	signalIn  = enode.PinSpec{Kind: etag.Signal, Dir: etag.Input}
	signalOut = enode.PinSpec{Kind: etag.Signal, Dir: etag.Output}
)

// Types returns all built-in node types.
func Types() []enode.Type {
	return []enode.Type{
		TestPatternType(),
		ImageFileType(),
		ResizeType(),
		MessageMergeType(),
		MessageScreenType(),
		VideoStreamingType(),
		KafkaMessageType(),
	}
}

// Register adds all built-in types to reg.
func Register(reg *enode.Registry) error {
	var err error
	for _, t := range Types() {
		err = multierr.Append(err, reg.Register(t))
	}
	return err
}

// sizeParams is the width/height pair several types export.
type sizeParams struct {
	width  int
	height int
}

func (s sizeParams) export(p *enode.Params) error {
	return multierr.Combine(p.Set("width", s.width), p.Set("height", s.height))
}

func (s *sizeParams) load(p enode.Params) error {
	w, h := s.width, s.height
	_, err1 := p.Get("width", &w)
	_, err2 := p.Get("height", &h)
	if err := multierr.Combine(err1, err2); err != nil {
		return err
	}
	if w <= 0 || h <= 0 {
		return errInvalidSize(w, h)
	}
	s.width, s.height = w, h
	return nil
}
