package daemon

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"sync"

	"github.com/jvlcode/screen-recorder/internal/domain"
)

// Client communicates with the daemon over a Unix socket.
type Client struct {
	conn    net.Conn
	scanner *bufio.Scanner
	mu      sync.Mutex
}

// Connect dials the daemon Unix socket.
func Connect(ctx context.Context, socketPath string) (*Client, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("connect to daemon: %w", err)
	}

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 64*1024), maxLine)

	return &Client{conn: conn, scanner: scanner}, nil
}

// Close shuts down the connection.
func (c *Client) Close() error {
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// Do sends a request and reads one response line. A failed operation is
// reported in the Response, not as an error; see ErrorFromResponse.
func (c *Client) Do(req Request) (Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := json.Marshal(req)
	if err != nil {
		return Response{}, fmt.Errorf("marshal request: %w", err)
	}

	data = append(data, '\n')
	if _, err := c.conn.Write(data); err != nil {
		return Response{}, fmt.Errorf("write request: %w", err)
	}

	if !c.scanner.Scan() {
		if err := c.scanner.Err(); err != nil {
			return Response{}, fmt.Errorf("read response: %w", err)
		}
		return Response{}, fmt.Errorf("connection closed")
	}

	var resp Response
	if err := json.Unmarshal(c.scanner.Bytes(), &resp); err != nil {
		return Response{}, fmt.Errorf("unmarshal response: %w", err)
	}

	return resp, nil
}

func (c *Client) call(req Request) (Response, error) {
	resp, err := c.Do(req)
	if err != nil {
		return resp, err
	}
	return resp, ErrorFromResponse(resp)
}

// Start begins a recording and returns the segment path.
func (c *Client) Start() (string, error) {
	resp, err := c.call(Request{Op: OpStart})
	return resp.File, err
}

// Stop ends the recording and returns the segment path.
func (c *Client) Stop() (string, error) {
	resp, err := c.call(Request{Op: OpStop})
	return resp.File, err
}

// Trim keeps [startSec, endSec] of file.
func (c *Client) Trim(file string, startSec, endSec float64) (string, error) {
	resp, err := c.call(Request{Op: OpTrim, File: file, StartSec: &startSec, EndSec: &endSec})
	return resp.File, err
}

// Discard deletes file and its sidecar.
func (c *Client) Discard(file string) (string, error) {
	resp, err := c.call(Request{Op: OpDiscard, File: file})
	return resp.File, err
}

// Finalize concatenates the pending segments.
func (c *Client) Finalize() (domain.Compilation, error) {
	resp, err := c.call(Request{Op: OpFinalize})
	if err != nil {
		return domain.Compilation{}, err
	}
	if resp.Compilation == nil {
		return domain.Compilation{}, fmt.Errorf("daemon: finalize response without compilation")
	}
	return *resp.Compilation, nil
}

// Status returns the raw status response.
func (c *Client) Status() (Response, error) {
	return c.call(Request{Op: OpStatus})
}

// Segments lists pending segments, oldest first.
func (c *Client) Segments() ([]domain.SegmentInfo, error) {
	resp, err := c.call(Request{Op: OpSegments})
	return resp.Segments, err
}

// Compilations lists finished compilations, newest first.
func (c *Client) Compilations() ([]domain.Compilation, error) {
	resp, err := c.call(Request{Op: OpCompilations})
	return resp.Compilations, err
}
