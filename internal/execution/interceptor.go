package execution

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/birdayz/edgepipe/enode"
)

// RefreshHandler is the actual refresh of a node.
type RefreshHandler func(ctx context.Context, in enode.Input) (*enode.Frame, enode.Message, error)

// RefreshInterceptor wraps a node refresh with custom logic.
// Signature matches gRPC's interceptor pattern: (ctx, req, handler) -> resp, error
type RefreshInterceptor func(ctx context.Context, in enode.Input, handler RefreshHandler) (*enode.Frame, enode.Message, error)

// InterceptorChain manages multiple interceptors in execution order
type InterceptorChain struct {
	interceptors []RefreshInterceptor
}

// ChainInterceptors creates a new interceptor chain
func ChainInterceptors(interceptors ...RefreshInterceptor) *InterceptorChain {
	return &InterceptorChain{interceptors: interceptors}
}

// Execute runs the interceptor chain followed by the final handler.
// Interceptors execute outer-to-inner (first interceptor wraps all others).
func (c *InterceptorChain) Execute(ctx context.Context, in enode.Input, final RefreshHandler) (*enode.Frame, enode.Message, error) {
	if c == nil || len(c.interceptors) == 0 {
		return final(ctx, in)
	}

	handler := final
	for i := len(c.interceptors) - 1; i >= 0; i-- {
		interceptor := c.interceptors[i]
		next := handler
		handler = func(ctx context.Context, in enode.Input) (*enode.Frame, enode.Message, error) {
			return interceptor(ctx, in, next)
		}
	}
	return handler(ctx, in)
}

// LoggingInterceptor logs every refresh at debug level.
func LoggingInterceptor(logger *slog.Logger) RefreshInterceptor {
	return func(ctx context.Context, in enode.Input, handler RefreshHandler) (*enode.Frame, enode.Message, error) {
		start := time.Now()
		f, m, err := handler(ctx, in)
		logger.Debug("Refreshed node",
			"node", in.Tag.String(),
			"frame", f != nil,
			"entries", len(m),
			"duration", time.Since(start),
			"error", err,
		)
		return f, m, err
	}
}

// MetricsInterceptor counts refreshes and accumulates refresh time in
// nanoseconds.
func MetricsInterceptor(refreshes *atomic.Int64, refreshTime *atomic.Int64) RefreshInterceptor {
	return func(ctx context.Context, in enode.Input, handler RefreshHandler) (*enode.Frame, enode.Message, error) {
		start := time.Now()
		f, m, err := handler(ctx, in)
		refreshes.Add(1)
		refreshTime.Add(int64(time.Since(start)))
		return f, m, err
	}
}

// FrameCheckInterceptor fails refreshes whose output frame is malformed, so
// that a broken node cannot put it on the bus.
func FrameCheckInterceptor() RefreshInterceptor {
	return func(ctx context.Context, in enode.Input, handler RefreshHandler) (*enode.Frame, enode.Message, error) {
		f, m, err := handler(ctx, in)
		if err == nil && f != nil {
			if verr := f.Validate(); verr != nil {
				return nil, nil, fmt.Errorf("invalid output frame: %w", verr)
			}
		}
		return f, m, err
	}
}

// RetryInterceptor retries failed refreshes while ctx allows.
func RetryInterceptor(maxRetries int, retryDelay time.Duration) RefreshInterceptor {
	return func(ctx context.Context, in enode.Input, handler RefreshHandler) (*enode.Frame, enode.Message, error) {
		var err error
		for i := 0; i <= maxRetries; i++ {
			var f *enode.Frame
			var m enode.Message
			f, m, err = handler(ctx, in)
			if err == nil {
				return f, m, nil
			}
			if i < maxRetries {
				select {
				case <-time.After(retryDelay):
				case <-ctx.Done():
					return nil, nil, fmt.Errorf("gave up after %d retries: %w", i, err)
				}
			}
		}
		return nil, nil, fmt.Errorf("failed after %d retries: %w", maxRetries, err)
	}
}
