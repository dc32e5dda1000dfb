package manager

import (
	"context"
	"errors"

	"childctl/internal/router"
)

// Fatal delivers the first fatal error: protocol corruption or an
// unreachable child. The channel is never closed.
func (m *Manager) Fatal() <-chan error { return m.fatalCh }

func (m *Manager) onFrame(ctx context.Context, frame []byte) error {
	return m.rt.Deliver(ctx, frame)
}

func (m *Manager) onProtocolError(err error) {
	ev := m.log.Error().Str("code", "MANAGER_MESSAGE_HANDLING_FAILED")
	var perr *router.ProtocolError
	if errors.As(err, &perr) {
		ev = ev.Err(perr.Cause).Int("frame_bytes", len(perr.Frame))
	} else {
		ev = ev.Err(err)
	}
	ev.Msg("failed to handle control message")
	m.publish("protocol_error", map[string]any{"error": err.Error()})
	m.fail(err)
}

func (m *Manager) onLivenessMiss(attempt int, err error) {
	m.publish("liveness_miss", map[string]any{"attempt": attempt, "error": err.Error()})
}

// onUnreachable is reached after the supervisor has logged the failure.
func (m *Manager) onUnreachable(err error) {
	m.publish("liveness_failed", map[string]any{"error": err.Error()})
	m.fail(err)
}

// fail hands the first fatal error to Fatal() and Options.OnFatal.
func (m *Manager) fail(err error) {
	m.fatalOnce.Do(func() {
		select {
		case m.fatalCh <- err:
		default:
		}
		m.opts.OnFatal(err)
	})
}
