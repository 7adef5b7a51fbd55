// Package native drives the out-of-process renderer over a named pipe.
// The renderer performs true layout and rasterization; this client owns
// its process lifecycle, the newline-delimited JSON protocol, and
// recovery when the process or the pipe goes away.
package native

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"uipreview/internal/core/errors"
	"uipreview/internal/render"
	"uipreview/internal/shared/observability"
)

type State int

const (
	StateUninitialized State = iota
	StateStarting
	StateConnecting
	StateReady
	StateReconnecting
	StateDegraded
	StateDisposed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateStarting:
		return "starting"
	case StateConnecting:
		return "connecting"
	case StateReady:
		return "ready"
	case StateReconnecting:
		return "reconnecting"
	case StateDegraded:
		return "degraded"
	case StateDisposed:
		return "disposed"
	default:
		return "unknown"
	}
}

type Config struct {
	ExePath           string
	PipeName          string
	StartupTimeout    time.Duration
	RequestTimeout    time.Duration
	DialAttempts      uint64
	DialDelay         time.Duration
	ReconnectAttempts int
	ReconnectDelay    time.Duration
	PingInterval      time.Duration
}

func (c *Config) applyDefaults() {
	if c.StartupTimeout <= 0 {
		c.StartupTimeout = 10 * time.Second
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 5 * time.Second
	}
	if c.DialAttempts == 0 {
		c.DialAttempts = 5
	}
	if c.DialDelay <= 0 {
		c.DialDelay = 200 * time.Millisecond
	}
	if c.ReconnectAttempts == 0 {
		c.ReconnectAttempts = 3
	}
	if c.ReconnectDelay <= 0 {
		c.ReconnectDelay = time.Second
	}
	if c.PingInterval == 0 {
		c.PingInterval = 15 * time.Second
	}
}

// pendingRequest tracks one outbound message awaiting its response.
type pendingRequest struct {
	id    string
	timer *time.Timer
	once  sync.Once
	done  chan struct{}
	resp  *responseMessage
	err   error
}

func (p *pendingRequest) resolve(resp *responseMessage, err error) {
	p.once.Do(func() {
		if p.timer != nil {
			p.timer.Stop()
		}
		p.resp = resp
		p.err = err
		close(p.done)
	})
}

type initAttempt struct {
	done chan struct{}
	err  error
}

type Client struct {
	cfg Config
	log *slog.Logger

	writeMu sync.Mutex

	mu           sync.Mutex
	state        State
	gen          int
	conn         net.Conn
	proc         *process
	pending      map[string]*pendingRequest
	init         *initAttempt
	lastActivity time.Time
}

func NewClient(cfg Config, log *slog.Logger) *Client {
	cfg.applyDefaults()
	return &Client{
		cfg:     cfg,
		log:     log.With("component", "native-renderer"),
		state:   StateUninitialized,
		pending: make(map[string]*pendingRequest),
	}
}

func (c *Client) Type() render.RendererType { return render.RendererNative }

func (c *Client) DisplayName() string { return "Native renderer" }

func (c *Client) Available() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == StateReady
}

func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Initialize brings the client to Ready: spawn the process, wait for
// readiness, dial the pipe. Idempotent; concurrent callers coalesce
// onto a single in-flight attempt and share its outcome.
func (c *Client) Initialize(ctx context.Context) error {
	c.mu.Lock()
	switch c.state {
	case StateReady:
		c.mu.Unlock()
		return nil
	case StateDisposed:
		c.mu.Unlock()
		return errors.New(errors.CodeNotAvailable, "native renderer client is disposed")
	}
	if c.init != nil {
		attempt := c.init
		c.mu.Unlock()
		select {
		case <-attempt.done:
			return attempt.err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	attempt := &initAttempt{done: make(chan struct{})}
	c.init = attempt
	c.state = StateStarting
	c.mu.Unlock()

	err := c.establish(ctx)

	c.mu.Lock()
	c.init = nil
	if err != nil && c.state != StateDisposed {
		c.state = StateUninitialized
	}
	c.mu.Unlock()

	attempt.err = err
	close(attempt.done)
	return err
}

func (c *Client) establish(ctx context.Context) error {
	// A prior process may still be alive when the pipe was lost but the
	// process was not (degraded after exhausted reconnects). Reap it
	// before spawning a replacement.
	c.mu.Lock()
	prev := c.proc
	c.proc = nil
	c.mu.Unlock()
	if prev != nil && !prev.exited() {
		prev.kill()
	}

	proc, err := startProcess(ctx, c.cfg.ExePath, c.cfg.PipeName, c.cfg.StartupTimeout, c.log)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.state = StateConnecting
	c.mu.Unlock()

	conn, err := c.dialWithRetry(ctx)
	if err != nil {
		proc.kill()
		return err
	}

	c.mu.Lock()
	c.proc = proc
	c.attachLocked(conn)
	c.mu.Unlock()

	go c.watchProcess(proc)
	c.log.Info("native renderer ready", "pipe", c.cfg.PipeName)
	return nil
}

// dialWithRetry dials the pipe with a fixed number of constant-delay
// attempts; the renderer may not have created the endpoint yet when the
// readiness marker arrives.
func (c *Client) dialWithRetry(ctx context.Context) (net.Conn, error) {
	var conn net.Conn
	op := func() error {
		var err error
		conn, err = dialPipe(ctx, c.cfg.PipeName)
		return err
	}
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(c.cfg.DialDelay), c.cfg.DialAttempts),
		ctx,
	)
	if err := backoff.Retry(op, policy); err != nil {
		return nil, errors.Wrap(err, errors.CodeNotConnected, "dial renderer pipe").
			WithContext(errors.CtxPipe, c.cfg.PipeName)
	}
	return conn, nil
}

// attachLocked adopts an established connection and starts its read and
// ping loops. Callers hold c.mu. Tests attach an in-memory pipe here.
func (c *Client) attachLocked(conn net.Conn) {
	c.gen++
	c.conn = conn
	c.state = StateReady
	c.lastActivity = time.Now()
	gen := c.gen
	go c.readLoop(conn, gen)
	if c.cfg.PingInterval > 0 {
		go c.pingLoop(gen)
	}
}

func (c *Client) attach(conn net.Conn) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.attachLocked(conn)
}

// Render submits the markup for a native render. Transport problems
// come back as retriable errors; a renderer-reported markup failure is
// a normal result carrying a Failure.
func (c *Client) Render(ctx context.Context, text string, opts render.Options) (*render.Result, error) {
	start := time.Now()
	req := requestMessage{
		Type:      msgRender,
		RequestID: uuid.NewString(),
		Xaml:      text,
		Options:   &opts,
	}
	resp, err := c.roundTrip(ctx, req)
	if err != nil {
		return nil, err
	}

	res := &render.Result{
		Mappings:  resp.Mappings,
		ElapsedMs: time.Since(start).Milliseconds(),
	}
	if resp.ElapsedMs > 0 {
		res.ElapsedMs = resp.ElapsedMs
	}
	if !resp.Success {
		fail := &render.Failure{Code: errors.CodeRenderFailed, Message: "renderer reported a failure"}
		if resp.Error != nil {
			if resp.Error.Code != "" {
				fail.Code = errors.ErrorCode(resp.Error.Code)
			}
			if resp.Error.Message != "" {
				fail.Message = resp.Error.Message
			}
			fail.Line = resp.Error.Line
			fail.Column = resp.Error.Column
		}
		res.Failure = fail
		return res, nil
	}
	res.Kind = render.KindImage
	res.Payload = resp.ImageData
	return res, nil
}

func (c *Client) roundTrip(ctx context.Context, req requestMessage) (*responseMessage, error) {
	c.mu.Lock()
	if c.state != StateReady {
		state := c.state
		c.mu.Unlock()
		return nil, errors.New(errors.CodeNotAvailable, "native renderer is not ready").
			WithContext("state", state.String())
	}
	conn := c.conn
	pr := &pendingRequest{id: req.RequestID, done: make(chan struct{})}
	c.pending[req.RequestID] = pr
	observability.PendingRequests.Inc()
	pr.timer = time.AfterFunc(c.cfg.RequestTimeout, func() { c.expire(req.RequestID) })
	c.mu.Unlock()

	payload, err := json.Marshal(req)
	if err != nil {
		c.abandon(req.RequestID)
		return nil, errors.Wrap(err, errors.CodeInternal, "encode renderer request")
	}
	payload = append(payload, '\n')

	c.writeMu.Lock()
	_, werr := conn.Write(payload)
	c.writeMu.Unlock()
	if werr != nil {
		c.abandon(req.RequestID)
		return nil, errors.Wrap(werr, errors.CodeWriteError, "write to renderer pipe")
	}

	select {
	case <-pr.done:
		return pr.resp, pr.err
	case <-ctx.Done():
		c.abandon(req.RequestID)
		return nil, errors.Wrap(ctx.Err(), errors.CodeTimeout, "render request canceled")
	}
}

// expire fires when a request's deadline passes without a response. The
// slot is released immediately; a late response becomes unmatched and
// is discarded by dispatch.
func (c *Client) expire(id string) {
	c.mu.Lock()
	pr := c.pending[id]
	if pr != nil {
		delete(c.pending, id)
		observability.PendingRequests.Dec()
	}
	c.mu.Unlock()
	if pr == nil {
		return
	}
	pr.resolve(nil, errors.New(errors.CodeTimeout, "renderer did not respond within the deadline"))
}

// abandon removes a request the caller is no longer waiting on.
func (c *Client) abandon(id string) {
	c.mu.Lock()
	if pr, ok := c.pending[id]; ok {
		delete(c.pending, id)
		observability.PendingRequests.Dec()
		if pr.timer != nil {
			pr.timer.Stop()
		}
	}
	c.mu.Unlock()
}

func (c *Client) readLoop(conn net.Conn, gen int) {
	reader := newLineReader(conn)
	for {
		line, err := reader.next()
		if len(line) > 0 {
			c.dispatch(line)
		}
		if err != nil {
			c.onConnLost(gen, err)
			return
		}
	}
}

func (c *Client) dispatch(line []byte) {
	var msg responseMessage
	if err := json.Unmarshal(line, &msg); err != nil {
		c.log.Warn("malformed renderer message", "error", err)
		return
	}
	c.mu.Lock()
	c.lastActivity = time.Now()
	pr := c.pending[msg.RequestID]
	if pr != nil {
		delete(c.pending, msg.RequestID)
		observability.PendingRequests.Dec()
	}
	c.mu.Unlock()
	if pr == nil {
		c.log.Debug("discarding unmatched renderer message", "requestId", msg.RequestID, "type", msg.Type)
		return
	}
	pr.resolve(&msg, nil)
}

// pingLoop probes only when the connection is idle so health checks add
// no load during active rendering.
func (c *Client) pingLoop(gen int) {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer ticker.Stop()
	for range ticker.C {
		c.mu.Lock()
		stale := c.gen != gen || c.state != StateReady
		idle := len(c.pending) == 0 && time.Since(c.lastActivity) >= c.cfg.PingInterval
		c.mu.Unlock()
		if stale {
			return
		}
		if !idle {
			continue
		}
		if err := c.ping(); err != nil {
			c.log.Warn("renderer ping failed", "error", err)
			c.onConnLost(gen, err)
			return
		}
	}
}

func (c *Client) ping() error {
	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.RequestTimeout)
	defer cancel()
	_, err := c.roundTrip(ctx, requestMessage{Type: msgPing, RequestID: uuid.NewString()})
	return err
}

func (c *Client) watchProcess(p *process) {
	<-p.done
	c.mu.Lock()
	if c.proc != p || c.state == StateDisposed {
		c.mu.Unlock()
		return
	}
	gen := c.gen
	c.mu.Unlock()
	c.onConnLost(gen, p.exitErr)
}

// onConnLost handles a dead pipe or a dead process. Outstanding
// requests resolve with a retriable code so callers can re-issue. A
// live process gets a bounded reconnect; a dead one leaves the client
// degraded until someone reinitializes it.
func (c *Client) onConnLost(gen int, cause error) {
	c.mu.Lock()
	if c.gen != gen || c.state != StateReady {
		c.mu.Unlock()
		return
	}
	procExited := c.proc != nil && c.proc.exited()
	conn := c.conn
	c.conn = nil
	if procExited {
		c.state = StateDegraded
	} else {
		c.state = StateReconnecting
	}
	pending := c.takePendingLocked()
	c.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}

	code := errors.CodeNotConnected
	msg := "renderer connection lost"
	if procExited {
		code = errors.CodeProcessExited
		msg = "renderer process exited"
		observability.NativeProcessExitsTotal.Inc()
	}
	for _, pr := range pending {
		pr.resolve(nil, errors.New(code, msg))
	}

	if procExited {
		c.log.Warn("renderer process exited; renders report unavailable until reinitialized", "cause", cause)
		return
	}
	c.log.Warn("renderer pipe lost, attempting reconnect", "cause", cause)
	go c.reconnect(gen)
}

func (c *Client) takePendingLocked() []*pendingRequest {
	out := make([]*pendingRequest, 0, len(c.pending))
	for _, pr := range c.pending {
		out = append(out, pr)
	}
	observability.PendingRequests.Sub(float64(len(out)))
	c.pending = make(map[string]*pendingRequest)
	return out
}

func (c *Client) reconnect(oldGen int) {
	for attempt := 1; attempt <= c.cfg.ReconnectAttempts; attempt++ {
		time.Sleep(c.cfg.ReconnectDelay)
		c.mu.Lock()
		live := c.gen == oldGen && c.state == StateReconnecting
		c.mu.Unlock()
		if !live {
			return
		}
		observability.PipeReconnectsTotal.Inc()
		ctx, cancel := context.WithTimeout(context.Background(), c.cfg.StartupTimeout)
		conn, err := dialPipe(ctx, c.cfg.PipeName)
		cancel()
		if err == nil {
			c.mu.Lock()
			if c.gen != oldGen || c.state != StateReconnecting {
				c.mu.Unlock()
				_ = conn.Close()
				return
			}
			c.attachLocked(conn)
			c.mu.Unlock()
			c.log.Info("renderer pipe reconnected", "attempt", attempt)
			return
		}
		c.log.Warn("renderer reconnect attempt failed", "attempt", attempt, "error", err)
	}
	c.mu.Lock()
	if c.gen == oldGen && c.state == StateReconnecting {
		c.state = StateDegraded
	}
	c.mu.Unlock()
	c.log.Warn("renderer reconnect attempts exhausted")
}

// pendingCount reports the number of in-flight requests.
func (c *Client) pendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

func (c *Client) Close() error {
	c.mu.Lock()
	if c.state == StateDisposed {
		c.mu.Unlock()
		return nil
	}
	c.state = StateDisposed
	c.gen++
	conn := c.conn
	c.conn = nil
	proc := c.proc
	c.proc = nil
	pending := c.takePendingLocked()
	c.mu.Unlock()

	for _, pr := range pending {
		pr.resolve(nil, errors.New(errors.CodeNotConnected, "client closed"))
	}
	if conn != nil {
		_ = conn.Close()
	}
	if proc != nil {
		proc.kill()
	}
	return nil
}

// lineReader splits the inbound byte stream on '\n', retaining a
// partial trailing message across reads.
type lineReader struct {
	conn net.Conn
	buf  bytes.Buffer
	tmp  []byte
}

func newLineReader(conn net.Conn) *lineReader {
	return &lineReader{conn: conn, tmp: make([]byte, 16*1024)}
}

func (r *lineReader) next() ([]byte, error) {
	for {
		if i := bytes.IndexByte(r.buf.Bytes(), '\n'); i >= 0 {
			line := make([]byte, i)
			copy(line, r.buf.Bytes()[:i])
			r.buf.Next(i + 1)
			return bytes.TrimSpace(line), nil
		}
		n, err := r.conn.Read(r.tmp)
		if n > 0 {
			r.buf.Write(r.tmp[:n])
		}
		if err != nil {
			return nil, err
		}
	}
}
