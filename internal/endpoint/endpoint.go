package endpoint

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/rs/zerolog"
)

// maxFrameSize bounds a single inbound control frame.
const maxFrameSize = 1 << 20

// readHeaderTimeout bounds the upgrade request on the control socket.
const readHeaderTimeout = 10 * time.Second

// Config wires an Endpoint to its owner. All callbacks are optional.
type Config struct {
	// Dir is the directory for Unix sockets. Empty means os.TempDir().
	Dir string
	// Seed makes the socket name unique to its owner (e.g., a manager id).
	Seed   string
	Logger zerolog.Logger

	// OnFrame receives each inbound frame in wire order. A non-nil error
	// stops the read loop, drops the connection and is passed to OnFatal.
	OnFrame func(ctx context.Context, frame []byte) error
	// OnConnect runs after a child attaches.
	OnConnect func()
	// OnDisconnect runs after the child connection ends for any reason.
	OnDisconnect func(err error)
	// OnFatal receives the error returned by OnFrame.
	OnFatal func(err error)
}

// Endpoint is the listening side of the child control channel.
type Endpoint struct {
	cfg Config

	mu       sync.Mutex
	seq      int
	path     string
	ln       net.Listener
	srv      *http.Server
	conn     *websocket.Conn
	attached bool
	ctx      context.Context
	cancel   context.CancelFunc

	serveDone chan struct{}
	readers   sync.WaitGroup
}

// New returns an Endpoint that is not yet listening.
func New(cfg Config) *Endpoint {
	if cfg.OnFrame == nil {
		cfg.OnFrame = func(context.Context, []byte) error { return nil }
	}
	if cfg.OnConnect == nil {
		cfg.OnConnect = func() {}
	}
	if cfg.OnDisconnect == nil {
		cfg.OnDisconnect = func(error) {}
	}
	if cfg.OnFatal == nil {
		cfg.OnFatal = func(error) {}
	}
	return &Endpoint{cfg: cfg}
}

// Listen opens a fresh socket at a newly computed path and starts serving.
// It returns once the socket is bound. A previous listener, if any, is
// closed first.
func (e *Endpoint) Listen() error {
	if err := e.Close(); err != nil {
		e.cfg.Logger.Error().Err(err).Msg("closing previous control endpoint")
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.seq++
	path := socketPath(e.cfg.Dir, e.cfg.Seed, e.seq)
	ln, err := listenSocket(path)
	if err != nil {
		return &BindError{Path: path, Err: err}
	}

	e.path = path
	e.ln = ln
	e.attached = false
	e.ctx, e.cancel = context.WithCancel(context.Background())
	e.srv = &http.Server{Handler: e.routes(), ReadHeaderTimeout: readHeaderTimeout}
	e.serveDone = make(chan struct{})

	srv, done := e.srv, e.serveDone
	go func() {
		defer close(done)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			e.cfg.Logger.Error().Err(err).Str("path", path).Msg("control endpoint serve failed")
		}
	}()

	e.cfg.Logger.Info().Str("path", path).Msg("control endpoint listening")
	return nil
}

// SocketPath returns the bound socket path, or "" when not listening.
func (e *Endpoint) SocketPath() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.path
}

// Address returns the bound address in URL form, or "" when not listening.
func (e *Endpoint) Address() string {
	return FormatAddress(e.SocketPath())
}

// Connected reports whether a child is attached.
func (e *Endpoint) Connected() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.conn != nil
}

func (e *Endpoint) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	e.mu.Lock()
	if e.conn != nil || e.attached || e.ln == nil {
		e.mu.Unlock()
		connectionsTotal.WithLabelValues("rejected").Inc()
		e.cfg.Logger.Debug().Msg("rejecting second child connection")
		writeJSONError(w, http.StatusConflict, ErrChildAlreadyAttached.Error())
		return
	}
	e.attached = true
	e.mu.Unlock()

	c, err := websocket.Accept(w, r, nil)
	if err != nil {
		e.mu.Lock()
		e.attached = false
		e.mu.Unlock()
		connectionsTotal.WithLabelValues("failed").Inc()
		e.cfg.Logger.Debug().Err(err).Msg("child upgrade failed")
		return
	}
	c.SetReadLimit(maxFrameSize)

	e.mu.Lock()
	if e.ln == nil {
		e.mu.Unlock()
		_ = c.CloseNow()
		return
	}
	e.conn = c
	ctx := e.ctx
	e.readers.Add(1)
	e.mu.Unlock()
	defer e.readers.Done()

	connectionsTotal.WithLabelValues("accepted").Inc()
	e.cfg.Logger.Debug().Msg("child connected")
	e.cfg.OnConnect()

	e.readLoop(ctx, c)
}

func (e *Endpoint) readLoop(ctx context.Context, c *websocket.Conn) {
	for {
		_, data, err := c.Read(ctx)
		if err != nil {
			e.detach(c, err)
			return
		}
		framesTotal.WithLabelValues("in").Inc()
		if ferr := e.cfg.OnFrame(ctx, data); ferr != nil {
			e.detach(c, ferr)
			e.cfg.OnFatal(ferr)
			_ = c.Close(websocket.StatusProtocolError, "malformed control message")
			return
		}
	}
}

// detach clears c as the active connection and notifies the owner.
func (e *Endpoint) detach(c *websocket.Conn, err error) {
	e.mu.Lock()
	if e.conn == c {
		e.conn = nil
	}
	e.mu.Unlock()
	e.cfg.Logger.Info().Int("close_status", int(websocket.CloseStatus(err))).Msg("child disconnected")
	e.cfg.OnDisconnect(err)
}

// Send writes one text frame to the child.
func (e *Endpoint) Send(ctx context.Context, frame []byte) error {
	e.mu.Lock()
	c := e.conn
	e.mu.Unlock()
	if c == nil {
		return ErrNotConnected
	}
	if err := c.Write(ctx, websocket.MessageText, frame); err != nil {
		return err
	}
	framesTotal.WithLabelValues("out").Inc()
	return nil
}

// Ping sends a websocket ping and waits for the pong.
func (e *Endpoint) Ping(ctx context.Context) error {
	e.mu.Lock()
	c := e.conn
	e.mu.Unlock()
	if c == nil {
		return ErrNotConnected
	}
	return c.Ping(ctx)
}

// Close drops the child connection, stops accepting and removes the socket.
// It is safe to call repeatedly and before Listen. Every step runs even if
// an earlier one fails; failures come back as a *ResourceError.
func (e *Endpoint) Close() error {
	e.mu.Lock()
	ln, srv, c, cancel, path, done := e.ln, e.srv, e.conn, e.cancel, e.path, e.serveDone
	e.ln, e.srv, e.conn, e.cancel, e.path, e.serveDone = nil, nil, nil, nil, "", nil
	e.mu.Unlock()

	if ln == nil {
		return nil
	}

	var errs []error
	if c != nil {
		if err := c.Close(websocket.StatusGoingAway, "parent closing"); err != nil {
			e.cfg.Logger.Debug().Err(err).Msg("closing child connection")
		}
	}
	if cancel != nil {
		cancel()
	}
	if err := srv.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		errs = append(errs, err)
	}
	<-done
	e.readers.Wait()
	if err := removeSocket(path); err != nil {
		errs = append(errs, err)
	}

	e.cfg.Logger.Info().Str("path", path).Msg("control endpoint closed")
	if len(errs) > 0 {
		return &ResourceError{Errs: errs}
	}
	return nil
}
