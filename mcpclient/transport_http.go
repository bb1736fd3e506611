package mcpclient

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"sync"
)

const sessionHeader = "Mcp-Session-Id"

// HTTPConfig configures a streamable HTTP transport.
type HTTPConfig struct {
	Endpoint string
	Headers  map[string]string
	Client   *http.Client
}

// HTTPTransport posts each message to an MCP endpoint and queues the response,
// which may arrive as plain JSON or as a short event stream.
type HTTPTransport struct {
	mu        sync.Mutex
	cfg       HTTPConfig
	sessionID string
	recvCh    chan Message
	closed    bool
}

// NewHTTPTransport creates an endpoint-backed transport.
func NewHTTPTransport(cfg HTTPConfig) (*HTTPTransport, error) {
	if strings.TrimSpace(cfg.Endpoint) == "" {
		return nil, errors.New("mcpclient: http endpoint is required")
	}
	if cfg.Client == nil {
		cfg.Client = http.DefaultClient
	}
	return &HTTPTransport{cfg: cfg, recvCh: make(chan Message, 64)}, nil
}

// Send posts one message and enqueues every JSON-RPC message in the reply.
func (t *HTTPTransport) Send(ctx context.Context, message Message) error {
	t.mu.Lock()
	closed, sessionID := t.closed, t.sessionID
	t.mu.Unlock()
	if closed {
		return errors.New("mcpclient: http transport is closed")
	}

	body, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("mcpclient: encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("mcpclient: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json, text/event-stream")
	if sessionID != "" {
		req.Header.Set(sessionHeader, sessionID)
	}
	for key, value := range t.cfg.Headers {
		req.Header.Set(key, value)
	}

	resp, err := t.cfg.Client.Do(req)
	if err != nil {
		return fmt.Errorf("mcpclient: send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("mcpclient: endpoint returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	if id := resp.Header.Get(sessionHeader); id != "" {
		t.mu.Lock()
		t.sessionID = id
		t.mu.Unlock()
	}

	messages, err := decodeReply(resp)
	if err != nil {
		return err
	}
	for _, m := range messages {
		select {
		case t.recvCh <- m:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func decodeReply(resp *http.Response) ([]Message, error) {
	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if mediaType == "text/event-stream" {
		return decodeEventStream(resp.Body)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("mcpclient: read response: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	var message Message
	if err := json.Unmarshal(data, &message); err != nil {
		return nil, fmt.Errorf("mcpclient: decode response: %w", err)
	}
	return []Message{message}, nil
}

// decodeEventStream collects the data payload of each event in the stream.
func decodeEventStream(r io.Reader) ([]Message, error) {
	var (
		out  []Message
		data strings.Builder
	)
	flush := func() error {
		if data.Len() == 0 {
			return nil
		}
		var message Message
		if err := json.Unmarshal([]byte(data.String()), &message); err != nil {
			return fmt.Errorf("mcpclient: decode event: %w", err)
		}
		out = append(out, message)
		data.Reset()
		return nil
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4<<20)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			if err := flush(); err != nil {
				return nil, err
			}
		case strings.HasPrefix(line, "data:"):
			if data.Len() > 0 {
				data.WriteByte('\n')
			}
			data.WriteString(strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("mcpclient: read event stream: %w", err)
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return out, nil
}

// Receive waits for the next queued message.
func (t *HTTPTransport) Receive(ctx context.Context) (Message, error) {
	select {
	case <-ctx.Done():
		return Message{}, ctx.Err()
	case message := <-t.recvCh:
		return message, nil
	}
}

// Close marks the transport closed.
func (t *HTTPTransport) Close(context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	return nil
}
