package mcpclient

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"slices"
	"strings"
	"sync"
)

// StdioConfig configures a subprocess transport.
type StdioConfig struct {
	Command string
	Args    []string
	Env     map[string]string
	// Stderr receives the server's log output. Nil discards it.
	Stderr io.Writer
}

// StdioTransport speaks newline-delimited JSON-RPC over a subprocess's stdin and
// stdout.
type StdioTransport struct {
	mu     sync.Mutex
	cfg    StdioConfig
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	recvCh chan Message
	errCh  chan error
	waitCh chan struct{}
	closed bool
}

// NewStdioTransport starts the server subprocess.
func NewStdioTransport(ctx context.Context, cfg StdioConfig) (*StdioTransport, error) {
	if strings.TrimSpace(cfg.Command) == "" {
		return nil, errors.New("mcpclient: stdio command is required")
	}
	t := &StdioTransport{
		cfg:    cfg,
		recvCh: make(chan Message, 64),
		errCh:  make(chan error, 1),
		waitCh: make(chan struct{}),
	}
	if err := t.start(ctx); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *StdioTransport) start(ctx context.Context) error {
	// #nosec G204 -- the command comes from the operator's own CLI flags.
	cmd := exec.CommandContext(ctx, t.cfg.Command, slices.Clone(t.cfg.Args)...)
	if len(t.cfg.Env) > 0 {
		cmd.Env = append(os.Environ(), flattenEnv(t.cfg.Env)...)
	}
	stderr := t.cfg.Stderr
	if stderr == nil {
		stderr = io.Discard
	}
	cmd.Stderr = stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("mcpclient: stdio open stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("mcpclient: stdio open stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("mcpclient: stdio start: %w", err)
	}

	t.cmd = cmd
	t.stdin = stdin
	go t.readLoop(stdout)
	return nil
}

// readLoop owns cmd.Wait: it runs after stdout reaches EOF, which is the order
// exec requires.
func (t *StdioTransport) readLoop(stdout io.Reader) {
	defer close(t.waitCh)

	decoder := json.NewDecoder(bufio.NewReader(stdout))
	var readErr error
	for {
		var message Message
		if err := decoder.Decode(&message); err != nil {
			readErr = err
			break
		}
		t.recvCh <- message
	}

	waitErr := t.cmd.Wait()

	t.mu.Lock()
	closed := t.closed
	t.mu.Unlock()
	if closed {
		return
	}
	switch {
	case waitErr != nil:
		t.sendErr(fmt.Errorf("mcpclient: stdio process exited: %w", waitErr))
	case errors.Is(readErr, io.EOF):
		t.sendErr(errors.New("mcpclient: stdio server closed its output"))
	default:
		t.sendErr(fmt.Errorf("mcpclient: stdio decode response: %w", readErr))
	}
}

// Send writes one message line to the subprocess.
func (t *StdioTransport) Send(_ context.Context, message Message) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return errors.New("mcpclient: stdio transport is closed")
	}
	data, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("mcpclient: encode request: %w", err)
	}
	if _, err := t.stdin.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("mcpclient: write request: %w", err)
	}
	return nil
}

// Receive waits for the next message from the subprocess.
func (t *StdioTransport) Receive(ctx context.Context) (Message, error) {
	select {
	case <-ctx.Done():
		return Message{}, ctx.Err()
	case message := <-t.recvCh:
		return message, nil
	case err := <-t.errCh:
		return Message{}, err
	}
}

// Close closes stdin, gives the server a moment to exit, and kills it if ctx
// ends first.
func (t *StdioTransport) Close(ctx context.Context) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	stdin, cmd := t.stdin, t.cmd
	t.mu.Unlock()

	if stdin != nil {
		_ = stdin.Close()
	}
	go func() {
		// Unblock readLoop if nobody drains recvCh any more.
		for {
			select {
			case <-t.recvCh:
			case <-t.waitCh:
				return
			}
		}
	}()
	select {
	case <-t.waitCh:
		return nil
	case <-ctx.Done():
		if cmd != nil && cmd.Process != nil {
			_ = cmd.Process.Kill()
		}
		<-t.waitCh
		return ctx.Err()
	}
}

func (t *StdioTransport) sendErr(err error) {
	select {
	case t.errCh <- err:
	default:
	}
}

func flattenEnv(values map[string]string) []string {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	slices.Sort(keys)

	out := make([]string, 0, len(values))
	for _, key := range keys {
		out = append(out, key+"="+values[key])
	}
	return out
}
