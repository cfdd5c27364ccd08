package enode

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/birdayz/edgepipe/etag"
)

// Base implements the bookkeeping parts of Node. Node types embed it and
// override what they need.
type Base struct {
	typeName string
	version  string

	Log *slog.Logger

	tag    etag.NodeTag
	pos    Position
	closed atomic.Bool
}

func NewBase(t Type, env Env) Base {
	log := env.Log
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return Base{typeName: t.Name, version: t.Version, Log: log}
}

func (b *Base) Add(_ context.Context, id int, pos Position) (etag.NodeTag, error) {
	b.tag = etag.NodeTag{ID: id, Type: b.typeName}
	b.pos = pos
	b.Log = b.Log.With("node", b.tag.String())
	return b.tag, nil
}

func (b *Base) Tag() etag.NodeTag { return b.tag }

func (b *Base) Position() Position { return b.pos }

// MarkClosed reports whether this call closed the node, so Close
// implementations release resources only once.
func (b *Base) MarkClosed() bool {
	return b.closed.CompareAndSwap(false, true)
}

func (b *Base) Closed() bool { return b.closed.Load() }

func (b *Base) Close(context.Context) error {
	b.MarkClosed()
	return nil
}

func (b *Base) Delete(context.Context) error {
	return nil
}

func (b *Base) ExportParams() (Params, error) {
	return Params{Version: b.version, Position: b.pos}, nil
}

func (b *Base) ImportParams(p Params) error {
	b.pos = p.Position
	return nil
}
