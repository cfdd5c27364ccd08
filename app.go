package edgepipe

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.uber.org/multierr"

	"github.com/birdayz/edgepipe/edoc"
	"github.com/birdayz/edgepipe/enode"
	"github.com/birdayz/edgepipe/internal/execution"
)

// ErrInvalidFPS is returned by New for a non positive frame rate
var ErrInvalidFPS = errors.New("edgepipe: fps must be positive")

// App ties a Pipeline to the scheduler that ticks it.
type App struct {
	log *slog.Logger

	registry  *enode.Registry
	pipeline  *Pipeline
	scheduler *execution.Scheduler

	fps             int
	nodeTimeout     time.Duration
	shutdownTimeout time.Duration
	errorHandler    execution.ErrorHandler
	interceptors    []execution.RefreshInterceptor

	frameSink enode.FrameWriter
	kafka     enode.KafkaConfig
}

// New creates a new edgepipe application with an empty pipeline.
func New(opts ...Option) (*App, error) {
	s := &App{
		log:         NullLogger(),
		registry:    enode.NewRegistry(),
		fps:         execution.DefaultFPS,
		nodeTimeout: execution.DefaultNodeTimeout,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.fps <= 0 {
		return nil, ErrInvalidFPS
	}

	env := enode.Env{
		Log:       s.log.WithGroup("node"),
		FPS:       func() int { return s.scheduler.FPS() },
		FrameSink: s.frameSink,
		Kafka:     s.kafka,
	}
	s.pipeline = NewPipeline(s.log.WithGroup("pipeline"), s.registry, env)

	bus := execution.NewBus()
	s.pipeline.OnRemove(bus.Remove)
	s.scheduler = execution.NewScheduler(s.log.WithGroup("scheduler"), s.pipeline, bus, execution.Config{
		FPS:             s.fps,
		NodeTimeout:     s.nodeTimeout,
		ErrorHandler:    s.errorHandler,
		ShutdownTimeout: s.shutdownTimeout,
		Interceptors:    s.interceptors,
	})
	s.pipeline.AwaitIdle(s.scheduler.WaitIdle)

	return s, nil
}

// MustNew creates a new edgepipe application, panicking on configuration errors.
// Prefer New() for production code to handle errors gracefully.
func MustNew(opts ...Option) *App {
	app, err := New(opts...)
	if err != nil {
		panic(err)
	}
	return app
}

func (c *App) Pipeline() *Pipeline { return c.pipeline }

func (c *App) Registry() *enode.Registry { return c.registry }

// Bus exposes the latest node outputs, e.g. for editor previews.
func (c *App) Bus() enode.Bus { return c.scheduler.Bus() }

func (c *App) State() execution.State { return c.scheduler.State() }

func (c *App) Stats() execution.Stats { return c.scheduler.Stats() }

func (c *App) SetFPS(fps int) { c.scheduler.SetFPS(fps) }

// Tick runs a single tick synchronously.
func (c *App) Tick(ctx context.Context) error { return c.scheduler.Tick(ctx) }

// Run blocks until it's exited, either by ctx or by a graceful shutdown
// triggered by a call to Close.
func (c *App) Run(ctx context.Context) error {
	return c.scheduler.Run(ctx)
}

// Start activates the pipeline.
func (c *App) Start(ctx context.Context) error {
	c.scheduler.Start()
	return nil
}

// Stop deactivates the pipeline.
func (c *App) Stop(ctx context.Context) error {
	c.scheduler.Stop()
	return nil
}

// Import replaces the pipeline with doc and clears the bus. The pipeline
// state is kept.
func (c *App) Import(ctx context.Context, doc *edoc.Document) error {
	if err := c.pipeline.Import(ctx, doc); err != nil {
		return err
	}
	c.scheduler.Reinit()
	return nil
}

func (c *App) Export(ctx context.Context) (*edoc.Document, error) {
	return c.pipeline.Export()
}

// NewPipeline deletes all nodes and links.
func (c *App) NewPipeline(ctx context.Context) error {
	err := c.pipeline.Reset(ctx)
	c.scheduler.Reinit()
	return err
}

// Close gracefully shuts down the application and releases every node.
// The shutdown timeout bounds both the scheduler loop and the node teardown.
func (c *App) Close() error {
	err := c.scheduler.Close()
	timeout := c.shutdownTimeout
	if timeout <= 0 {
		timeout = execution.DefaultShutdownTimeout
	}
	closeCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return multierr.Append(err, c.pipeline.Reset(closeCtx))
}
