package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/UltraSive/payload-store/internal/handler"
	"github.com/UltraSive/payload-store/internal/transport"
)

var (
	// ErrNotFound is returned for ids that are unknown, expired or malformed.
	ErrNotFound = errors.New("payload not found")
	// ErrServer is returned when the store reports an internal failure.
	ErrServer = errors.New("payload store failure")
)

// Client talks to the HTTP surface of a payload store.
type Client struct {
	URL    string
	Client *http.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		URL: strings.TrimRight(baseURL, "/"),
		Client: &http.Client{
			Timeout: timeout,
		},
	}
}

type storeRequest struct {
	Payload string `json:"payload"`
}

type storeResponse struct {
	ID string `json:"id"`
}

type payloadResponse struct {
	Payload string `json:"payload"`
}

// Store saves payload and returns the id it was filed under.
func (c *Client) Store(ctx context.Context, payload string) (string, error) {
	b, err := json.Marshal(storeRequest{Payload: payload})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL+"/store", bytes.NewReader(b))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	var out storeResponse
	if err := c.do(req, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

// Fetch returns the payload stored under id while it is still live.
func (c *Client) Fetch(ctx context.Context, id string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL+"/"+url.PathEscape(id), nil)
	if err != nil {
		return "", err
	}

	var out payloadResponse
	if err := c.do(req, &out); err != nil {
		return "", err
	}
	return out.Payload, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		return json.NewDecoder(resp.Body).Decode(out)
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: %s", ErrServer, resp.Status)
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("unexpected status %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
}

// SocketClient speaks the framed JSON protocol over a unix socket. One
// connection is reused for every call; calls are serialized.
type SocketClient struct {
	mu   sync.Mutex
	conn net.Conn
}

func DialSocket(ctx context.Context, path string) (*SocketClient, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", path)
	if err != nil {
		return nil, err
	}
	return &SocketClient{conn: conn}, nil
}

func (c *SocketClient) Store(ctx context.Context, payload string) (string, error) {
	resp, err := c.roundTrip(ctx, handler.Request{Op: handler.OpPut, Payload: payload})
	if err != nil {
		return "", err
	}
	return resp.ID, nil
}

func (c *SocketClient) Fetch(ctx context.Context, id string) (string, error) {
	resp, err := c.roundTrip(ctx, handler.Request{Op: handler.OpGet, ID: id})
	if err != nil {
		return "", err
	}
	return resp.Payload, nil
}

func (c *SocketClient) Close() error {
	return c.conn.Close()
}

func (c *SocketClient) roundTrip(ctx context.Context, req handler.Request) (handler.Response, error) {
	b, err := json.Marshal(req)
	if err != nil {
		return handler.Response{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if deadline, ok := ctx.Deadline(); ok {
		_ = c.conn.SetDeadline(deadline)
		defer c.conn.SetDeadline(time.Time{})
	}
	if err := transport.WriteMessage(c.conn, b); err != nil {
		return handler.Response{}, err
	}
	msg, err := transport.ReadMessage(c.conn)
	if err != nil {
		return handler.Response{}, err
	}

	var resp handler.Response
	if err := json.Unmarshal(msg, &resp); err != nil {
		return handler.Response{}, err
	}
	if !resp.OK {
		switch resp.Error {
		case handler.CodeNotFound:
			return resp, ErrNotFound
		case handler.CodeStorageFailure:
			return resp, ErrServer
		default:
			return resp, fmt.Errorf("request rejected: %s", resp.Error)
		}
	}
	return resp, nil
}
