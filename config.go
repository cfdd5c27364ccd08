package edgepipe

import (
	"log/slog"
	"time"

	"github.com/go-logr/logr"

	"github.com/birdayz/edgepipe/enode"
	"github.com/birdayz/edgepipe/internal/execution"
)

// Option is a function that configures an App
type Option func(*App)

// WithFPS sets the target tick rate
var WithFPS = func(fps int) Option {
	return func(s *App) {
		s.fps = fps
	}
}

// WithNodeTimeout bounds a single node refresh
var WithNodeTimeout = func(timeout time.Duration) Option {
	return func(s *App) {
		s.nodeTimeout = timeout
	}
}

// WithShutdownTimeout bounds how long Close waits for the scheduler loop
var WithShutdownTimeout = func(timeout time.Duration) Option {
	return func(s *App) {
		s.shutdownTimeout = timeout
	}
}

// WithLog sets the logger for the application
var WithLog = func(log *slog.Logger) Option {
	return func(s *App) {
		s.log = log
	}
}

// WithLogr sets the logger for the application from a logr.Logger
var WithLogr = func(log logr.Logger) Option {
	return func(s *App) {
		s.log = slog.New(logr.ToSlogHandler(log))
	}
}

// WithRegistry sets the node types available to the pipeline
var WithRegistry = func(registry *enode.Registry) Option {
	return func(s *App) {
		s.registry = registry
	}
}

// WithFrameSink sets the writer of the shared frame sink handed to nodes
var WithFrameSink = func(sink enode.FrameWriter) Option {
	return func(s *App) {
		s.frameSink = sink
	}
}

// WithKafka configures nodes that publish to Kafka
var WithKafka = func(brokers []string, topic string) Option {
	return func(s *App) {
		s.kafka = enode.KafkaConfig{Brokers: brokers, Topic: topic}
	}
}

// ErrorRecovery determines how to continue after a node failed
type ErrorRecovery = execution.ErrorRecovery

// Error recovery constants
const (
	RecoveryContinue = execution.RecoveryContinue
	RecoveryStop     = execution.RecoveryStop
)

// ErrorHandler is called for failed node refreshes and failed ticks
type ErrorHandler = execution.ErrorHandler

// RefreshError attributes a refresh failure to its node
type RefreshError = execution.RefreshError

// WithErrorHandler sets a custom handler for node failures.
// Default behavior keeps the pipeline running (RecoveryContinue).
var WithErrorHandler = func(handler ErrorHandler) Option {
	return func(s *App) {
		s.errorHandler = handler
	}
}

// RefreshInterceptor wraps every node refresh
type RefreshInterceptor = execution.RefreshInterceptor

// RefreshHandler is the refresh an interceptor wraps
type RefreshHandler = execution.RefreshHandler

// Built-in interceptors
var (
	LoggingInterceptor    = execution.LoggingInterceptor
	MetricsInterceptor    = execution.MetricsInterceptor
	FrameCheckInterceptor = execution.FrameCheckInterceptor
	RetryInterceptor      = execution.RetryInterceptor
)

// WithInterceptors adds interceptors around node refreshes. The first one is
// the outermost.
var WithInterceptors = func(interceptors ...RefreshInterceptor) Option {
	return func(s *App) {
		s.interceptors = append(s.interceptors, interceptors...)
	}
}

// NullWriter is a writer that discards all data
type NullWriter struct{}

func (NullWriter) Write([]byte) (int, error) { return 0, nil }

// NullLogger creates a logger that discards all output
func NullLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(NullWriter{}, nil))
}
