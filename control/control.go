// Package control lets processes outside the editor drive a pipeline:
// start, stop, import and export, over a small request/reply protocol.
package control

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/birdayz/edgepipe/edoc"
)

var (
	ErrUnknownMethod = errors.New("unknown control method")
	ErrBadRequest    = errors.New("bad control request")
)

type Method string

const (
	MethodStart  Method = "start_pipeline"
	MethodStop   Method = "stop_pipeline"
	MethodImport Method = "import_pipeline"
	MethodExport Method = "export_pipeline"
	// MethodRoot is a liveness probe.
	MethodRoot Method = "root"
)

// Replies for methods that do not return a document.
const (
	ReplyDone    = "done"
	ReplyRunning = "running"
)

// Request is the wire form of a control call.
type Request struct {
	Method  Method          `json:"method"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Handler is what the control channel drives.
type Handler interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Import(ctx context.Context, doc *edoc.Document) error
	Export(ctx context.Context) (*edoc.Document, error)
}

// Dispatch executes req against h. The reply is either one of the Reply
// strings or a *edoc.Document.
func Dispatch(ctx context.Context, h Handler, req Request) (any, error) {
	switch req.Method {
	case MethodStart:
		if err := h.Start(ctx); err != nil {
			return nil, err
		}
		return ReplyDone, nil
	case MethodStop:
		if err := h.Stop(ctx); err != nil {
			return nil, err
		}
		return ReplyDone, nil
	case MethodImport:
		if len(req.Payload) == 0 {
			return nil, fmt.Errorf("%w: import_pipeline needs a payload", ErrBadRequest)
		}
		doc, err := decodePayload(req.Payload)
		if err != nil {
			return nil, err
		}
		if err := h.Import(ctx, doc); err != nil {
			return nil, err
		}
		return ReplyDone, nil
	case MethodExport:
		return h.Export(ctx)
	case MethodRoot:
		return ReplyRunning, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMethod, req.Method)
	}
}

// decodePayload accepts the document either as an embedded object or as a
// JSON string holding it.
func decodePayload(payload json.RawMessage) (*edoc.Document, error) {
	var s string
	if err := json.Unmarshal(payload, &s); err == nil {
		payload = json.RawMessage(s)
	}
	doc, err := edoc.Unmarshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadRequest, err)
	}
	return doc, nil
}
