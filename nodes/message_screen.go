package nodes

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/birdayz/edgepipe/enode"
)

// MessageScreenType logs the message it receives whenever it changes.
func MessageScreenType() enode.Type {
	t := enode.Type{
		Name:     "message_screen",
		Title:    "Message Screen",
		Category: enode.CategoryDebugging,
		Version:  Version,
		Pins:     []enode.PinSpec{signalIn},
	}
	t.New = func(env enode.Env) enode.Node {
		return &MessageScreen{Base: enode.NewBase(t, env)}
	}
	return t
}

type MessageScreen struct {
	enode.Base

	mu   sync.Mutex
	last string
}

func (n *MessageScreen) Refresh(ctx context.Context, in enode.Input) (*enode.Frame, enode.Message, error) {
	msg := in.Message()
	if msg == nil {
		return nil, nil, nil
	}
	b, err := json.Marshal(msg)
	if err != nil {
		return nil, nil, err
	}

	n.mu.Lock()
	changed := string(b) != n.last
	n.last = string(b)
	n.mu.Unlock()

	if changed {
		n.Log.Info("Message", "message", json.RawMessage(b))
	}
	return nil, nil, nil
}

// Last returns the JSON text of the last message shown.
func (n *MessageScreen) Last() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.last
}
