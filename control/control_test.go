package control

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alecthomas/assert/v2"

	"github.com/birdayz/edgepipe/edoc"
	"github.com/birdayz/edgepipe/enode"
	"github.com/birdayz/edgepipe/etag"
)

type fakeHandler struct {
	calls    []Method
	imported *edoc.Document
	doc      *edoc.Document
	err      error
}

func (f *fakeHandler) Start(ctx context.Context) error {
	f.calls = append(f.calls, MethodStart)
	return f.err
}

func (f *fakeHandler) Stop(ctx context.Context) error {
	f.calls = append(f.calls, MethodStop)
	return f.err
}

func (f *fakeHandler) Import(ctx context.Context, doc *edoc.Document) error {
	f.calls = append(f.calls, MethodImport)
	f.imported = doc
	return f.err
}

func (f *fakeHandler) Export(ctx context.Context) (*edoc.Document, error) {
	f.calls = append(f.calls, MethodExport)
	if f.err != nil {
		return nil, f.err
	}
	return f.doc, nil
}

func testDocument() *edoc.Document {
	doc := edoc.New()
	doc.Add(etag.NodeTag{ID: 1, Type: "test_pattern"}, "test_pattern", enode.Params{Version: "0.1.0"})
	return doc
}

func TestDispatch(t *testing.T) {
	ctx := context.Background()

	t.Run("start and stop reply done", func(t *testing.T) {
		h := &fakeHandler{}
		reply, err := Dispatch(ctx, h, Request{Method: MethodStart})
		assert.NoError(t, err)
		assert.Equal(t, any(ReplyDone), reply)
		reply, err = Dispatch(ctx, h, Request{Method: MethodStop})
		assert.NoError(t, err)
		assert.Equal(t, any(ReplyDone), reply)
		assert.Equal(t, []Method{MethodStart, MethodStop}, h.calls)
	})

	t.Run("root", func(t *testing.T) {
		h := &fakeHandler{}
		reply, err := Dispatch(ctx, h, Request{Method: MethodRoot})
		assert.NoError(t, err)
		assert.Equal(t, any(ReplyRunning), reply)
		assert.Equal(t, 0, len(h.calls))
	})

	t.Run("import object payload", func(t *testing.T) {
		h := &fakeHandler{}
		payload, err := json.Marshal(testDocument())
		assert.NoError(t, err)
		reply, err := Dispatch(ctx, h, Request{Method: MethodImport, Payload: payload})
		assert.NoError(t, err)
		assert.Equal(t, any(ReplyDone), reply)
		assert.True(t, h.imported.Equal(testDocument()))
	})

	t.Run("import string payload", func(t *testing.T) {
		h := &fakeHandler{}
		raw, err := json.Marshal(testDocument())
		assert.NoError(t, err)
		payload, err := json.Marshal(string(raw))
		assert.NoError(t, err)
		_, err = Dispatch(ctx, h, Request{Method: MethodImport, Payload: payload})
		assert.NoError(t, err)
		assert.True(t, h.imported.Equal(testDocument()))
	})

	t.Run("import without payload", func(t *testing.T) {
		_, err := Dispatch(ctx, &fakeHandler{}, Request{Method: MethodImport})
		assert.True(t, errors.Is(err, ErrBadRequest))
	})

	t.Run("import garbage", func(t *testing.T) {
		h := &fakeHandler{}
		_, err := Dispatch(ctx, h, Request{Method: MethodImport, Payload: json.RawMessage(`{"version": 3}`)})
		assert.True(t, errors.Is(err, ErrBadRequest))
		assert.Equal(t, 0, len(h.calls))
	})

	t.Run("export", func(t *testing.T) {
		h := &fakeHandler{doc: testDocument()}
		reply, err := Dispatch(ctx, h, Request{Method: MethodExport})
		assert.NoError(t, err)
		assert.True(t, reply.(*edoc.Document).Equal(testDocument()))
	})

	t.Run("handler error", func(t *testing.T) {
		boom := errors.New("boom")
		_, err := Dispatch(ctx, &fakeHandler{err: boom}, Request{Method: MethodStart})
		assert.Equal(t, boom, err)
	})

	t.Run("unknown method", func(t *testing.T) {
		_, err := Dispatch(ctx, &fakeHandler{}, Request{Method: "reboot"})
		assert.True(t, errors.Is(err, ErrUnknownMethod))
	})
}

func newTestServer(h Handler, opts ...ServerOption) *Server {
	return NewServer(slog.New(slog.DiscardHandler), h, opts...)
}

func do(t *testing.T, s *Server, method, path, body string) (*http.Response, string) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := s.App().Test(req)
	assert.NoError(t, err)
	b, err := io.ReadAll(resp.Body)
	assert.NoError(t, err)
	return resp, string(b)
}

func TestServer(t *testing.T) {
	t.Run("root", func(t *testing.T) {
		resp, body := do(t, newTestServer(&fakeHandler{}), http.MethodGet, "/", "")
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, `"running"`, body)
		assert.NotZero(t, resp.Header.Get(HeaderRequestID))
	})

	t.Run("request id is echoed", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(HeaderRequestID, "abc")
		resp, err := newTestServer(&fakeHandler{}).App().Test(req)
		assert.NoError(t, err)
		assert.Equal(t, "abc", resp.Header.Get(HeaderRequestID))
	})

	t.Run("control start", func(t *testing.T) {
		h := &fakeHandler{}
		resp, body := do(t, newTestServer(h), http.MethodPost, "/control", `{"method":"start_pipeline"}`)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, `"done"`, body)
		assert.Equal(t, []Method{MethodStart}, h.calls)
	})

	t.Run("control unknown method", func(t *testing.T) {
		resp, body := do(t, newTestServer(&fakeHandler{}), http.MethodPost, "/control", `{"method":"reboot"}`)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Contains(t, body, "unknown control method")
	})

	t.Run("control invalid body", func(t *testing.T) {
		resp, _ := do(t, newTestServer(&fakeHandler{}), http.MethodPost, "/control", `{`)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("unknown node type maps to 422", func(t *testing.T) {
		h := &fakeHandler{err: enode.ErrUnknownNodeType}
		resp, _ := do(t, newTestServer(h), http.MethodPost, "/stoppipeline", "")
		assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	})

	t.Run("handler failure maps to 500", func(t *testing.T) {
		h := &fakeHandler{err: errors.New("boom")}
		resp, body := do(t, newTestServer(h), http.MethodPost, "/startpipeline", "")
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		assert.Contains(t, body, "boom")
	})

	t.Run("export and import routes", func(t *testing.T) {
		h := &fakeHandler{doc: testDocument()}
		s := newTestServer(h)
		resp, body := do(t, s, http.MethodPost, "/exportpipeline", "")
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		doc, err := edoc.Unmarshal([]byte(body))
		assert.NoError(t, err)
		assert.True(t, doc.Equal(testDocument()))

		resp, _ = do(t, s, http.MethodPost, "/importpipeline", body)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.True(t, h.imported.Equal(testDocument()))
	})
}

type staticFrames struct {
	frame *enode.Frame
	err   error
}

func (s staticFrames) Snapshot() (*enode.Frame, error) { return s.frame, s.err }

func TestServer_Frame(t *testing.T) {
	t.Run("jpeg", func(t *testing.T) {
		s := newTestServer(&fakeHandler{}, WithFrameSource(staticFrames{frame: enode.NewFrame(8, 4)}, 10))
		resp, body := do(t, s, http.MethodGet, "/frame.jpg", "")
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "image/jpeg", resp.Header.Get("Content-Type"))
		// SOI marker
		assert.True(t, strings.HasPrefix(body, "\xff\xd8"))
	})

	t.Run("unavailable", func(t *testing.T) {
		s := newTestServer(&fakeHandler{}, WithFrameSource(staticFrames{err: errors.New("no sink")}, 10))
		resp, _ := do(t, s, http.MethodGet, "/frame.jpg", "")
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	})

	t.Run("disabled without source", func(t *testing.T) {
		resp, _ := do(t, newTestServer(&fakeHandler{}), http.MethodGet, "/frame.jpg", "")
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}
