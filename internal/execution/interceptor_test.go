package execution

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alecthomas/assert/v2"

	"github.com/birdayz/edgepipe/enode"
	"github.com/birdayz/edgepipe/etag"
)

func TestInterceptorChain(t *testing.T) {
	ctx := context.Background()
	in := enode.Input{Tag: etag.NodeTag{ID: 1, Type: "a"}}

	t.Run("order", func(t *testing.T) {
		var order []string
		mk := func(name string) RefreshInterceptor {
			return func(ctx context.Context, in enode.Input, h RefreshHandler) (*enode.Frame, enode.Message, error) {
				order = append(order, name+">")
				f, m, err := h(ctx, in)
				order = append(order, "<"+name)
				return f, m, err
			}
		}
		chain := ChainInterceptors(mk("outer"), mk("inner"))
		_, _, err := chain.Execute(ctx, in, func(ctx context.Context, in enode.Input) (*enode.Frame, enode.Message, error) {
			order = append(order, "node")
			return nil, nil, nil
		})
		assert.NoError(t, err)
		assert.Equal(t, []string{"outer>", "inner>", "node", "<inner", "<outer"}, order)
	})

	t.Run("nil chain", func(t *testing.T) {
		var chain *InterceptorChain
		_, m, err := chain.Execute(ctx, in, func(ctx context.Context, in enode.Input) (*enode.Frame, enode.Message, error) {
			return nil, enode.Message{{Type: enode.EntrySource}}, nil
		})
		assert.NoError(t, err)
		assert.Equal(t, 1, len(m))
	})

	t.Run("metrics", func(t *testing.T) {
		var n, d atomic.Int64
		chain := ChainInterceptors(MetricsInterceptor(&n, &d))
		for i := 0; i < 3; i++ {
			_, _, _ = chain.Execute(ctx, in, func(ctx context.Context, in enode.Input) (*enode.Frame, enode.Message, error) {
				return nil, nil, nil
			})
		}
		assert.Equal(t, int64(3), n.Load())
	})

	t.Run("frame check", func(t *testing.T) {
		chain := ChainInterceptors(FrameCheckInterceptor())
		_, _, err := chain.Execute(ctx, in, func(ctx context.Context, in enode.Input) (*enode.Frame, enode.Message, error) {
			return &enode.Frame{Width: 2, Height: 2, Pix: []byte{1}}, nil, nil
		})
		assert.Error(t, err)
		f, _, err := chain.Execute(ctx, in, func(ctx context.Context, in enode.Input) (*enode.Frame, enode.Message, error) {
			return enode.NewFrame(2, 2), nil, nil
		})
		assert.NoError(t, err)
		assert.NotZero(t, f)
	})

	t.Run("retry", func(t *testing.T) {
		calls := 0
		chain := ChainInterceptors(RetryInterceptor(2, time.Millisecond))
		_, _, err := chain.Execute(ctx, in, func(ctx context.Context, in enode.Input) (*enode.Frame, enode.Message, error) {
			calls++
			if calls < 3 {
				return nil, nil, errors.New("flaky")
			}
			return nil, nil, nil
		})
		assert.NoError(t, err)
		assert.Equal(t, 3, calls)

		calls = 0
		boom := errors.New("boom")
		_, _, err = chain.Execute(ctx, in, func(ctx context.Context, in enode.Input) (*enode.Frame, enode.Message, error) {
			calls++
			return nil, nil, boom
		})
		assert.True(t, errors.Is(err, boom))
		assert.Equal(t, 3, calls)
	})
}
