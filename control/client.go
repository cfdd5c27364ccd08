package control

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v3/client"

	"github.com/birdayz/edgepipe/edoc"
)

// Client calls a control Server over HTTP.
type Client struct {
	c *client.Client
}

// NewClient creates a client for the server at baseURL, e.g.
// "http://localhost:8093".
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{c: client.New().SetBaseURL(baseURL).SetTimeout(timeout)}
}

// Call sends req and decodes the reply into out.
func (c *Client) Call(ctx context.Context, req Request, out any) error {
	resp, err := c.c.Post("/control", client.Config{Ctx: ctx, Body: req})
	if err != nil {
		return fmt.Errorf("control %s: %w", req.Method, err)
	}
	defer resp.Close()

	if resp.StatusCode() >= 300 {
		var e struct {
			Error string `json:"error"`
		}
		if jerr := json.Unmarshal(resp.Body(), &e); jerr != nil || e.Error == "" {
			e.Error = string(resp.Body())
		}
		return fmt.Errorf("control %s: status %d: %s", req.Method, resp.StatusCode(), e.Error)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("control %s: decode reply: %w", req.Method, err)
	}
	return nil
}

func (c *Client) simple(ctx context.Context, m Method) (string, error) {
	var reply string
	err := c.Call(ctx, Request{Method: m}, &reply)
	return reply, err
}

func (c *Client) Start(ctx context.Context) error {
	_, err := c.simple(ctx, MethodStart)
	return err
}

func (c *Client) Stop(ctx context.Context) error {
	_, err := c.simple(ctx, MethodStop)
	return err
}

// Ping returns the server's liveness reply.
func (c *Client) Ping(ctx context.Context) (string, error) {
	return c.simple(ctx, MethodRoot)
}

func (c *Client) Import(ctx context.Context, doc *edoc.Document) error {
	payload, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	var reply string
	return c.Call(ctx, Request{Method: MethodImport, Payload: payload}, &reply)
}

func (c *Client) Export(ctx context.Context) (*edoc.Document, error) {
	doc := edoc.New()
	if err := c.Call(ctx, Request{Method: MethodExport}, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

var _ Handler = (*Client)(nil)
