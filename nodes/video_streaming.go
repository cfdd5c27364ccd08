package nodes

import (
	"context"
	"sync"

	"github.com/birdayz/edgepipe/enode"
)

// VideoStreamingType writes the incoming frame to the shared frame sink.
func VideoStreamingType() enode.Type {
	t := enode.Type{
		Name:     "video_streaming",
		Title:    "Video Streaming",
		Category: enode.CategorySink,
		Version:  Version,
		Pins:     []enode.PinSpec{streamIn},
	}
	t.New = func(env enode.Env) enode.Node {
		return &VideoStreaming{Base: enode.NewBase(t, env), sink: env.FrameSink}
	}
	return t
}

type VideoStreaming struct {
	enode.Base
	sink enode.FrameWriter

	warnOnce sync.Once
}

func (n *VideoStreaming) Refresh(ctx context.Context, in enode.Input) (*enode.Frame, enode.Message, error) {
	f := in.Frame()
	if f == nil {
		return nil, nil, nil
	}
	if n.sink == nil {
		n.warnOnce.Do(func() {
			n.Log.Warn("No frame sink configured, dropping frames")
		})
		return nil, nil, nil
	}
	return nil, nil, n.sink.Write(f)
}
