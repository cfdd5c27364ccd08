package control

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/jpeg"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/requestid"
	"github.com/google/uuid"

	"github.com/birdayz/edgepipe/edoc"
	"github.com/birdayz/edgepipe/enode"
)

// HeaderRequestID carries the id assigned to every control request.
const HeaderRequestID = "X-Request-ID"

// FrameSource yields the latest frame of the shared frame sink.
type FrameSource interface {
	Snapshot() (*enode.Frame, error)
}

type Server struct {
	log     *slog.Logger
	handler Handler
	frames  FrameSource
	fps     int
	quality int
	app     *fiber.App
}

type ServerOption func(*Server)

// WithFrameSource enables the /frame.jpg and /video_feed routes.
func WithFrameSource(src FrameSource, fps int) ServerOption {
	return func(s *Server) {
		s.frames = src
		s.fps = fps
	}
}

// WithJPEGQuality sets the quality of served frames (1-100).
func WithJPEGQuality(q int) ServerOption {
	return func(s *Server) {
		s.quality = q
	}
}

func NewServer(log *slog.Logger, h Handler, opts ...ServerOption) *Server {
	s := &Server{
		log:     log,
		handler: h,
		fps:     10,
		quality: 80,
	}
	for _, opt := range opts {
		opt(s)
	}

	app := fiber.New(fiber.Config{AppName: "edgepipe"})
	app.Use(requestid.New(requestid.Config{
		Header:    HeaderRequestID,
		Generator: uuid.NewString,
	}))
	app.Use(s.logRequest)

	app.Get("/", func(c fiber.Ctx) error {
		return c.JSON(ReplyRunning)
	})
	app.Post("/control", func(c fiber.Ctx) error {
		var req Request
		if err := c.Bind().JSON(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
		}
		return s.dispatch(c, req)
	})

	// Legacy web API routes; the body of importpipeline is the document
	// itself.
	app.Post("/startpipeline", s.method(MethodStart))
	app.Post("/stoppipeline", s.method(MethodStop))
	app.Post("/exportpipeline", s.method(MethodExport))
	app.Post("/importpipeline", func(c fiber.Ctx) error {
		return s.dispatch(c, Request{Method: MethodImport, Payload: bytes.Clone(c.Body())})
	})

	if s.frames != nil {
		app.Get("/frame.jpg", s.frame)
		app.Get("/video_feed", s.videoFeed)
	}

	s.app = app
	return s
}

// App exposes the underlying fiber app, e.g. for app.Test.
func (s *Server) App() *fiber.App { return s.app }

func (s *Server) Listen(addr string) error {
	s.log.Info("Control server listening", "addr", addr)
	return s.app.Listen(addr, fiber.ListenConfig{DisableStartupMessage: true})
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) logRequest(c fiber.Ctx) error {
	start := time.Now()
	err := c.Next()
	s.log.Debug("Control request",
		"request_id", requestid.FromContext(c),
		"method", c.Method(),
		"path", c.Path(),
		"status", c.Response().StatusCode(),
		"duration", time.Since(start),
	)
	return err
}

func (s *Server) method(m Method) fiber.Handler {
	return func(c fiber.Ctx) error {
		return s.dispatch(c, Request{Method: m})
	}
}

func (s *Server) dispatch(c fiber.Ctx, req Request) error {
	reply, err := Dispatch(c.Context(), s.handler, req)
	if err != nil {
		s.log.Warn("Control request failed", "request_id", requestid.FromContext(c), "method", req.Method, "error", err)
		return c.Status(statusFor(err)).JSON(fiber.Map{"error": err.Error()})
	}
	if doc, ok := reply.(*edoc.Document); ok {
		b, err := edoc.Marshal(doc)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		}
		c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		return c.Send(b)
	}
	return c.JSON(reply)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrUnknownMethod), errors.Is(err, ErrBadRequest), errors.Is(err, edoc.ErrInvalidDocument):
		return fiber.StatusBadRequest
	case errors.Is(err, enode.ErrUnknownNodeType):
		return fiber.StatusUnprocessableEntity
	default:
		return fiber.StatusInternalServerError
	}
}

func (s *Server) encodeFrame() ([]byte, error) {
	f, err := s.frames.Snapshot()
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, f.Image(), &jpeg.Options{Quality: s.quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (s *Server) frame(c fiber.Ctx) error {
	b, err := s.encodeFrame()
	if err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": err.Error()})
	}
	c.Set(fiber.HeaderContentType, "image/jpeg")
	c.Set(fiber.HeaderCacheControl, "no-store")
	return c.Send(b)
}

const mjpegBoundary = "frame"

// videoFeed streams the frame sink as multipart MJPEG until the client goes
// away.
func (s *Server) videoFeed(c fiber.Ctx) error {
	c.Set(fiber.HeaderContentType, "multipart/x-mixed-replace; boundary="+mjpegBoundary)
	interval := time.Second / time.Duration(max(s.fps, 1))
	return c.SendStreamWriter(func(w *bufio.Writer) {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for range ticker.C {
			b, err := s.encodeFrame()
			if err != nil {
				s.log.Warn("Reading frame sink failed", "error", err)
				return
			}
			fmt.Fprintf(w, "--%s\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n", mjpegBoundary, len(b))
			w.Write(b)
			w.WriteString("\r\n")
			if err := w.Flush(); err != nil {
				return
			}
		}
	})
}
