package router

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"childctl/pkg/types"
)

// HandlerFunc answers an unsolicited envelope. When the envelope carries a
// RequestID the returned value (or error) is sent back as the reply.
type HandlerFunc func(ctx context.Context, env types.Envelope) (any, error)

// WriteFunc writes one encoded frame to the peer.
type WriteFunc func(ctx context.Context, frame []byte) error

// Reply is the resolution of a pending request.
type Reply struct {
	Payload json.RawMessage
	Err     error
}

var pendingRequests = prometheus.NewGauge(prometheus.GaugeOpts{
	Namespace: "childctl",
	Subsystem: "channel",
	Name:      "pending_requests",
	Help:      "Requests waiting for a reply from the peer",
})

func init() {
	prometheus.MustRegister(pendingRequests)
}

// Router owns the pending-request table and the handler set for one channel.
type Router struct {
	mu       sync.Mutex
	pending  map[string]chan Reply
	handlers map[string]HandlerFunc
	write    WriteFunc
	log      zerolog.Logger
}

// New returns a Router that writes replies and requests with write.
func New(write WriteFunc, logger zerolog.Logger) *Router {
	return &Router{
		pending:  make(map[string]chan Reply),
		handlers: make(map[string]HandlerFunc),
		write:    write,
		log:      logger,
	}
}

// Handle registers fn for envelopes named name. Panics on a duplicate name.
func (r *Router) Handle(name string, fn HandlerFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.handlers[name]; exists {
		panic(fmt.Sprintf("router: duplicate handler for %q", name))
	}
	r.handlers[name] = fn
}

// Parse decodes raw into an envelope. Anything other than a single JSON
// object is a *ProtocolError.
func Parse(raw []byte) (types.Envelope, error) {
	var env types.Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return env, &ProtocolError{Frame: raw, Cause: err}
	}
	if trimmed := bytes.TrimSpace(raw); len(trimmed) == 0 || trimmed[0] != '{' {
		return env, &ProtocolError{Frame: raw, Cause: errors.New("envelope is not a JSON object")}
	}
	return env, nil
}

// Encode marshals env into a frame.
func Encode(env types.Envelope) ([]byte, error) {
	return json.Marshal(env)
}

// Payload marshals v for use as Envelope.Payload. Nil stays empty and
// json.RawMessage passes through untouched.
func Payload(v any) (json.RawMessage, error) {
	switch p := v.(type) {
	case nil:
		return nil, nil
	case json.RawMessage:
		return p, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	return b, nil
}

// Deliver handles one inbound frame. The only error it returns is a
// *ProtocolError; handler failures are answered to the peer, not returned.
func (r *Router) Deliver(ctx context.Context, raw []byte) error {
	env, err := Parse(raw)
	if err != nil {
		return err
	}

	if env.RequestID != "" && r.resolve(env) {
		return nil
	}

	r.mu.Lock()
	fn, ok := r.handlers[env.Name]
	r.mu.Unlock()
	if !ok {
		r.log.Info().Str("name", env.Name).Str("request_id", env.RequestID).Msg("dropping unrecognized control message")
		return nil
	}

	result, herr := fn(ctx, env)
	if env.RequestID == "" {
		if herr != nil {
			r.log.Error().Err(herr).Str("name", env.Name).Msg("control message handler failed")
		}
		return nil
	}
	reply := types.Envelope{RequestID: env.RequestID}
	if herr != nil {
		reply.Error = herr.Error()
	} else if reply.Payload, herr = Payload(result); herr != nil {
		reply.Error = herr.Error()
	}
	if werr := r.Send(ctx, reply); werr != nil {
		r.log.Error().Err(werr).Str("name", env.Name).Str("request_id", env.RequestID).Msg("failed to write reply")
	}
	return nil
}

// resolve hands env to its pending request, if any, and removes the entry.
func (r *Router) resolve(env types.Envelope) bool {
	r.mu.Lock()
	ch, ok := r.pending[env.RequestID]
	if ok {
		delete(r.pending, env.RequestID)
		pendingRequests.Dec()
	}
	r.mu.Unlock()
	if !ok {
		return false
	}
	reply := Reply{Payload: env.Payload}
	if env.Error != "" {
		reply.Err = &RemoteError{Name: env.Name, Message: env.Error}
	}
	ch <- reply
	return true
}

// Expect registers a pending request and returns its id and the channel its
// reply arrives on. The channel is buffered so resolution never blocks.
func (r *Router) Expect() (string, <-chan Reply) {
	id := uuid.NewString()
	ch := make(chan Reply, 1)
	r.mu.Lock()
	r.pending[id] = ch
	r.mu.Unlock()
	pendingRequests.Inc()
	return id, ch
}

// Forget drops a pending request without resolving it.
func (r *Router) Forget(id string) {
	r.mu.Lock()
	if _, ok := r.pending[id]; ok {
		delete(r.pending, id)
		pendingRequests.Dec()
	}
	r.mu.Unlock()
}

// FailAll resolves every pending request with err and empties the table.
func (r *Router) FailAll(err error) int {
	r.mu.Lock()
	pending := r.pending
	r.pending = make(map[string]chan Reply)
	r.mu.Unlock()
	for _, ch := range pending {
		pendingRequests.Dec()
		ch <- Reply{Err: err}
	}
	return len(pending)
}

// Pending returns the number of outstanding requests.
func (r *Router) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

// Send encodes env and writes it to the peer.
func (r *Router) Send(ctx context.Context, env types.Envelope) error {
	frame, err := Encode(env)
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}
	return r.write(ctx, frame)
}

// Request sends env with a fresh RequestID and waits for the matching reply.
func (r *Router) Request(ctx context.Context, env types.Envelope) (json.RawMessage, error) {
	id, ch := r.Expect()
	env.RequestID = id
	if err := r.Send(ctx, env); err != nil {
		r.Forget(id)
		return nil, err
	}
	select {
	case reply := <-ch:
		return reply.Payload, reply.Err
	case <-ctx.Done():
		r.Forget(id)
		return nil, ctx.Err()
	}
}
