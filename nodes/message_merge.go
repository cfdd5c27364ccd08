package nodes

import (
	"context"

	"github.com/birdayz/edgepipe/enode"
	"github.com/birdayz/edgepipe/etag"
)

// MergeInputs is the number of sub-indexed message inputs of message_merge.
const MergeInputs = 4

// MessageMergeType concatenates the messages of its inputs in sub index
// order.
func MessageMergeType() enode.Type {
	pins := []enode.PinSpec{signalOut}
	for sub := 1; sub <= MergeInputs; sub++ {
		pins = append(pins, enode.PinSpec{Kind: etag.Signal, Dir: etag.Input, Sub: sub})
	}
	t := enode.Type{
		Name:     "message_merge",
		Title:    "Message Merge",
		Category: enode.CategoryProcessor,
		Version:  Version,
		Pins:     pins,
	}
	t.New = func(env enode.Env) enode.Node {
		return &MessageMerge{Base: enode.NewBase(t, env)}
	}
	return t
}

type MessageMerge struct {
	enode.Base
}

func (n *MessageMerge) Refresh(ctx context.Context, in enode.Input) (*enode.Frame, enode.Message, error) {
	var out enode.Message
	merged := 0
	for sub := 1; sub <= MergeInputs; sub++ {
		src, ok := in.Source(etag.Signal, sub)
		if !ok {
			continue
		}
		if m, ok := enode.Lookup(in.Bus, src).(enode.Message); ok {
			out = append(out, m...)
			merged++
		}
	}
	if merged == 0 {
		return nil, nil, nil
	}
	return nil, out.With(enode.Entry{
		Type:    enode.EntryProcessor,
		Subtype: "message_merge",
		Data:    map[string]any{"inputs": merged},
	}), nil
}
