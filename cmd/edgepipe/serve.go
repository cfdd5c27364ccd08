package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/birdayz/edgepipe"
	"github.com/birdayz/edgepipe/control"
	"github.com/birdayz/edgepipe/edoc"
	"github.com/birdayz/edgepipe/enode"
	"github.com/birdayz/edgepipe/framesink"
	"github.com/birdayz/edgepipe/internal/settings"
	"github.com/birdayz/edgepipe/nodes"
	"github.com/birdayz/edgepipe/pkg/log"
)

var (
	servePipeline string
	serveStart    bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the pipeline engine and its control server",
	Long: `Runs the tick loop and serves the control API. With --pipeline the given
document is imported on startup, with --start the pipeline starts active.
When the frame sink is enabled, video_streaming nodes write to it and the
control server exposes /frame.jpg and /video_feed.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&servePipeline, "pipeline", "", "Pipeline document to import on startup")
	serveCmd.Flags().BoolVar(&serveStart, "start", false, "Start the pipeline immediately")
}

func newRegistry() (*enode.Registry, error) {
	reg := enode.NewRegistry()
	return reg, nodes.Register(reg)
}

func runServe(cmd *cobra.Command, _ []string) (err error) {
	cfg, err := settings.Load(configPath)
	if err != nil {
		return err
	}
	zlog := log.New(cfg.Log.Level, cfg.Log.JSON)
	logger := log.Slog(zlog)

	reg, err := newRegistry()
	if err != nil {
		return err
	}

	opts := []edgepipe.Option{
		edgepipe.WithLogr(log.Logr(zlog)),
		edgepipe.WithRegistry(reg),
		edgepipe.WithFPS(cfg.FPS),
		edgepipe.WithNodeTimeout(cfg.NodeTimeout),
		edgepipe.WithShutdownTimeout(cfg.ShutdownTimeout),
		edgepipe.WithKafka(cfg.Kafka.Brokers, cfg.Kafka.Topic),
		edgepipe.WithInterceptors(
			edgepipe.LoggingInterceptor(logger.WithGroup("refresh")),
			edgepipe.FrameCheckInterceptor(),
		),
	}
	var serverOpts []control.ServerOption

	if cfg.FrameSink.Enabled {
		sink, serr := framesink.Create(cfg.FrameSink.Path, cfg.FrameSink.Width, cfg.FrameSink.Height)
		if serr != nil {
			return serr
		}
		defer func() { err = multierr.Append(err, sink.Remove()) }()

		reader, serr := framesink.Open(cfg.FrameSink.Path, cfg.FrameSink.Width, cfg.FrameSink.Height)
		if serr != nil {
			return serr
		}
		defer reader.Close()

		opts = append(opts, edgepipe.WithFrameSink(sink))
		serverOpts = append(serverOpts,
			control.WithFrameSource(reader, cfg.Control.StreamFPS),
			control.WithJPEGQuality(cfg.Control.JPEGQuality),
		)
		logger.Info("Frame sink ready", "path", sink.Path(), "width", cfg.FrameSink.Width, "height", cfg.FrameSink.Height)
	}

	app, err := edgepipe.New(opts...)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if servePipeline != "" {
		doc, err := edoc.ReadFile(servePipeline)
		if err != nil {
			return multierr.Append(fmt.Errorf("read pipeline: %w", err), app.Close())
		}
		if err := app.Import(ctx, doc); err != nil {
			return multierr.Append(fmt.Errorf("import pipeline: %w", err), app.Close())
		}
	}
	if serveStart {
		if err := app.Start(ctx); err != nil {
			return multierr.Append(err, app.Close())
		}
	}

	srv := control.NewServer(logger.WithGroup("control"), app, serverOpts...)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return app.Run(gctx)
	})
	g.Go(func() error {
		return srv.Listen(cfg.Control.Addr)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.ShutdownTimeout)
		defer cancel()
		return multierr.Combine(srv.Shutdown(shutdownCtx), app.Close())
	})
	return g.Wait()
}
