// Package lspclient drives one external language-server process over
// JSON-RPC framed on stdio. It implements only the client-side subset
// needed to rename symbols: initialize, didOpen, didChange,
// prepareRename and rename.
package lspclient

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"syscall"
	"time"

	"github.com/hashicorp/go-hclog"
	"golang.org/x/sync/errgroup"

	"recase/internal/edit"
)

// Options configures one client session.
type Options struct {
	// Command launches the server; args are passed verbatim.
	Command string
	Args    []string

	// WorkspaceRoot becomes the server's working directory and rootUri.
	WorkspaceRoot string

	// LanguageID sent with didOpen.
	LanguageID string

	// ReadTimeout bounds one wait for a response. A silent server fails
	// the current request instead of hanging the batch.
	ReadTimeout time.Duration

	// ShutdownTimeout bounds the graceful-exit wait before the process
	// is killed.
	ShutdownTimeout time.Duration

	Logger hclog.Logger
}

const (
	defaultReadTimeout     = 30 * time.Second
	defaultShutdownTimeout = 5 * time.Second
)

type inboundFrame struct {
	payload []byte
	err     error
}

// Client owns the subprocess, the request-id counter and the set of
// opened documents. It is strictly sequential: one outstanding request
// at a time, methods must not be called concurrently.
type Client struct {
	opts   Options
	logger hclog.Logger

	cmd     *exec.Cmd
	stdin   io.WriteCloser
	inbound chan inboundFrame
	readers *errgroup.Group

	requestID int64
	openDocs  map[string]struct{}
	versions  map[string]int
	running   bool
}

// New returns an unstarted client. Zero options get sensible defaults.
func New(opts Options) *Client {
	if opts.Command == "" {
		opts.Command = "rust-analyzer"
	}
	if opts.LanguageID == "" {
		opts.LanguageID = "rust"
	}
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = defaultReadTimeout
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = defaultShutdownTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Client{
		opts:     opts,
		logger:   logger,
		openDocs: make(map[string]struct{}),
		versions: make(map[string]int),
	}
}

// Start launches the server process and performs the initialize
// handshake. On handshake failure the process is torn down before
// returning.
func (c *Client) Start(ctx context.Context) error {
	cmd := exec.Command(c.opts.Command, c.opts.Args...)
	cmd.Dir = c.opts.WorkspaceRoot

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("launch %s: %w", c.opts.Command, err)
	}
	c.cmd = cmd
	c.startIO(stdin, stdout, stderr)

	if err := c.initialize(ctx); err != nil {
		_ = c.Close()
		return fmt.Errorf("initialize: %w", err)
	}
	c.logger.Debug("session initialized", "command", c.opts.Command, "root", c.opts.WorkspaceRoot)
	return nil
}

// startIO wires the transport and starts the reader pump and the
// stderr drain. Split out from Start so tests can run the protocol over
// in-memory pipes.
func (c *Client) startIO(stdin io.WriteCloser, stdout, stderr io.Reader) {
	c.stdin = stdin
	c.inbound = make(chan inboundFrame, 16)
	c.readers = &errgroup.Group{}
	c.running = true

	c.readers.Go(func() error {
		defer close(c.inbound)
		br := bufio.NewReader(stdout)
		for {
			payload, err := readFrame(br)
			if err != nil {
				if err != io.EOF {
					c.inbound <- inboundFrame{err: err}
					return err
				}
				return nil
			}
			c.inbound <- inboundFrame{payload: payload}
		}
	})

	if stderr != nil {
		c.readers.Go(func() error {
			sc := bufio.NewScanner(stderr)
			for sc.Scan() {
				c.logger.Debug("server stderr", "line", sc.Text())
			}
			return nil
		})
	}
}

func (c *Client) initialize(ctx context.Context) error {
	id, err := c.sendRequest(methodInitialize, initializeParams{
		ProcessID: os.Getpid(),
		RootURI:   pathToURI(c.opts.WorkspaceRoot),
		Capabilities: clientCapabilities{
			TextDocument: textDocumentClientCapabilities{
				Rename: renameClientCapabilities{PrepareSupport: true},
			},
		},
	})
	if err != nil {
		return err
	}
	resp, err := c.readResponse(ctx)
	if err != nil {
		return err
	}
	if !idMatches(resp.ID, id) {
		return fmt.Errorf("%w: initialize response id mismatch", ErrProtocol)
	}
	if resp.Error != nil {
		return fmt.Errorf("%w: initialize failed: %d %s", ErrProtocol, resp.Error.Code, resp.Error.Message)
	}
	return c.sendNotification(methodInitialized, struct{}{})
}

// OpenDocument sends didOpen with the file's full content. Idempotent
// per path for the lifetime of the session.
func (c *Client) OpenDocument(path string) error {
	if !c.running {
		return ErrClosed
	}
	if _, open := c.openDocs[path]; open {
		return nil
	}
	text, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	err = c.sendNotification(methodDidOpen, didOpenTextDocumentParams{
		TextDocument: textDocumentItem{
			URI:        pathToURI(path),
			LanguageID: c.opts.LanguageID,
			Version:    1,
			Text:       string(text),
		},
	})
	if err != nil {
		return err
	}
	c.openDocs[path] = struct{}{}
	c.versions[path] = 1
	return nil
}

// UpdateDocument sends didChange with a full-text replacement and an
// incremented version. Must be called after any out-of-band write, or
// later position-based requests against the file are not trustworthy.
func (c *Client) UpdateDocument(path string) error {
	if !c.running {
		return ErrClosed
	}
	text, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	version := c.versions[path] + 1
	if version < 2 {
		version = 2
	}
	err = c.sendNotification(methodDidChange, didChangeTextDocumentParams{
		TextDocument: versionedTextDocumentIdentifier{
			URI:     pathToURI(path),
			Version: version,
		},
		ContentChanges: []textDocumentContentChangeEvent{{Text: string(text)}},
	})
	if err != nil {
		return err
	}
	c.versions[path] = version
	return nil
}

// RenameSymbol validates the position with prepareRename, performs the
// rename, applies the returned workspace edit to disk and refreshes the
// server's view of every changed file. Files already written stay
// written when a later file fails; there is no rollback.
func (c *Client) RenameSymbol(ctx context.Context, path string, line, col int, newName string) error {
	if !c.running {
		return ErrClosed
	}
	if err := c.OpenDocument(path); err != nil {
		return err
	}

	posParams := textDocumentPositionParams{
		TextDocument: textDocumentIdentifier{URI: pathToURI(path)},
		Position:     position{Line: line, Character: col},
	}
	resp, err := c.call(ctx, methodPrepareRename, posParams)
	if err != nil {
		return fmt.Errorf("prepareRename: %w", err)
	}
	if nullResult(resp.Result) {
		return ErrNotRenameable
	}

	resp, err = c.call(ctx, methodRename, renameParams{
		TextDocument: posParams.TextDocument,
		Position:     posParams.Position,
		NewName:      newName,
	})
	if err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	if nullResult(resp.Result) {
		return fmt.Errorf("%w: rename returned no workspace edit", ErrProtocol)
	}

	var we workspaceEdit
	if err := json.Unmarshal(resp.Result, &we); err != nil {
		return fmt.Errorf("%w: malformed workspace edit: %v", ErrProtocol, err)
	}
	changes := normalizeWorkspaceEdit(we)
	if len(changes) == 0 {
		return fmt.Errorf("%w: workspace edit contains no changes", ErrProtocol)
	}

	applied, applyErr := edit.ApplyWorkspaceEdit(changes, c.logger)
	for _, p := range applied {
		if uerr := c.UpdateDocument(p); uerr != nil {
			c.logger.Warn("failed to refresh document after edit", "file", p, "error", uerr)
		}
	}
	return applyErr
}

// Close terminates the subprocess: graceful signal, bounded wait,
// forced kill. Safe to call after a failed Start and always safe to
// defer.
func (c *Client) Close() error {
	if !c.running && c.cmd == nil {
		return nil
	}
	c.running = false

	if c.stdin != nil {
		_ = c.stdin.Close()
	}
	if c.inbound != nil {
		// Unblock the pump if the server floods us on the way out.
		go func(ch chan inboundFrame) {
			for range ch {
			}
		}(c.inbound)
	}
	if c.cmd != nil && c.cmd.Process != nil {
		_ = c.cmd.Process.Signal(syscall.SIGTERM)
		done := make(chan error, 1)
		go func() { done <- c.cmd.Wait() }()
		select {
		case <-done:
		case <-time.After(c.opts.ShutdownTimeout):
			c.logger.Warn("server did not exit in time, killing", "command", c.opts.Command)
			_ = c.cmd.Process.Kill()
			<-done
		}
		c.cmd = nil
	}
	if c.readers != nil {
		_ = c.readers.Wait()
		c.readers = nil
	}
	return nil
}

// call sends one request and waits for its response, enforcing id
// correlation.
func (c *Client) call(ctx context.Context, method string, params any) (rpcMessage, error) {
	id, err := c.sendRequest(method, params)
	if err != nil {
		return rpcMessage{}, err
	}
	resp, err := c.readResponse(ctx)
	if err != nil {
		return rpcMessage{}, err
	}
	if !idMatches(resp.ID, id) {
		return rpcMessage{}, fmt.Errorf("%w: response id mismatch for %s", ErrProtocol, method)
	}
	if resp.Error != nil {
		return rpcMessage{}, fmt.Errorf("%w: %s failed: %d %s", ErrProtocol, method, resp.Error.Code, resp.Error.Message)
	}
	return resp, nil
}

func (c *Client) sendRequest(method string, params any) (int64, error) {
	if !c.running {
		return 0, ErrClosed
	}
	c.requestID++
	id := c.requestID
	raw, err := json.Marshal(params)
	if err != nil {
		return 0, err
	}
	payload, err := json.Marshal(rpcMessage{
		JSONRPC: "2.0",
		ID:      json.RawMessage(strconv.FormatInt(id, 10)),
		Method:  method,
		Params:  raw,
	})
	if err != nil {
		return 0, err
	}
	return id, writeFrame(c.stdin, payload)
}

func (c *Client) sendNotification(method string, params any) error {
	if !c.running {
		return ErrClosed
	}
	raw, err := json.Marshal(params)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(rpcMessage{
		JSONRPC: "2.0",
		Method:  method,
		Params:  raw,
	})
	if err != nil {
		return err
	}
	return writeFrame(c.stdin, payload)
}

// readResponse consumes inbound frames until one is a response.
// Notifications and server-to-client requests (frames carrying a
// method) are discarded at debug level. The whole wait is bounded by
// ReadTimeout.
func (c *Client) readResponse(ctx context.Context) (rpcMessage, error) {
	timer := time.NewTimer(c.opts.ReadTimeout)
	defer timer.Stop()

	for {
		select {
		case fr, ok := <-c.inbound:
			if !ok {
				return rpcMessage{}, fmt.Errorf("%w: connection closed", ErrProtocol)
			}
			if fr.err != nil {
				return rpcMessage{}, fmt.Errorf("%w: read: %v", ErrProtocol, fr.err)
			}
			var msg rpcMessage
			if err := json.Unmarshal(fr.payload, &msg); err != nil {
				return rpcMessage{}, fmt.Errorf("%w: malformed frame: %v", ErrProtocol, err)
			}
			if len(msg.ID) == 0 || msg.Method != "" {
				c.logger.Debug("skipping non-response message", "method", msg.Method)
				continue
			}
			return msg, nil
		case <-timer.C:
			return rpcMessage{}, ErrReadTimeout
		case <-ctx.Done():
			return rpcMessage{}, ctx.Err()
		}
	}
}

// normalizeWorkspaceEdit flattens both wire shapes into one per-path
// edit map.
func normalizeWorkspaceEdit(we workspaceEdit) map[string][]edit.TextEdit {
	changes := make(map[string][]edit.TextEdit)

	add := func(uri string, edits []wireTextEdit) {
		path := uriToPath(uri)
		if path == "" {
			return
		}
		for _, e := range edits {
			changes[path] = append(changes[path], edit.TextEdit{
				Range: edit.Range{
					Start: edit.Position{Line: e.Range.Start.Line, Character: e.Range.Start.Character},
					End:   edit.Position{Line: e.Range.End.Line, Character: e.Range.End.Character},
				},
				NewText: e.NewText,
			})
		}
	}

	if len(we.DocumentChanges) > 0 {
		for _, dc := range we.DocumentChanges {
			add(dc.TextDocument.URI, dc.Edits)
		}
		return changes
	}
	for uri, edits := range we.Changes {
		add(uri, edits)
	}
	return changes
}

func idMatches(raw json.RawMessage, id int64) bool {
	if len(raw) == 0 {
		return false
	}
	got, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return false
	}
	return got == id
}

func nullResult(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}
