// Package ws is the WebSocket implementation of the push channel.
package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"messenger-client/internal/observability"
	"messenger-client/internal/push"
)

const (
	kind         = "push"
	writeTimeout = 10 * time.Second
)

// ErrClosed is returned by Emit after the socket has closed.
var ErrClosed = errors.New("push socket closed")

// Socket is a push channel over one WebSocket connection. A single read loop
// dispatches frames, so handlers see events in arrival order.
type Socket struct {
	*push.Registry

	conn *websocket.Conn
	info ConnInfo
	log  *zap.Logger

	writeMu sync.Mutex
	once    sync.Once
	done    chan struct{}
	reason  error
}

// Options configure Dial.
type Options struct {
	Token     string
	UserID    int
	RequestID string
	Dialer    *websocket.Dialer
	Logger    *zap.Logger
}

// Dial connects to the push endpoint and starts the read loop.
func Dial(ctx context.Context, rawURL string, opts Options) (*Socket, error) {
	ctx, span := otel.Tracer("messenger-client/ws").Start(ctx, "ws.dial")
	defer span.End()

	target, err := normalizeURL(rawURL)
	if err != nil {
		return nil, errors.Wrap(err, "parse push url")
	}
	dialer := opts.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	header := http.Header{}
	if opts.Token != "" {
		header.Set("x-access-token", opts.Token)
	}
	if opts.RequestID != "" {
		header.Set("X-Request-Id", opts.RequestID)
	}

	conn, _, err := dialer.DialContext(ctx, target, header)
	if err != nil {
		observability.IncWSEvent(kind, "ws_error")
		return nil, errors.Wrap(err, "dial push channel")
	}

	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	s := &Socket{
		Registry: push.NewRegistry(),
		conn:     conn,
		info: ConnInfo{
			ConnID:      newConnID(),
			UserID:      opts.UserID,
			URL:         target,
			RequestID:   opts.RequestID,
			ConnectedAt: time.Now(),
		},
		log:  log,
		done: make(chan struct{}),
	}
	observability.IncWSActive(kind)
	observability.IncWSEvent(kind, "ws_connect")
	s.log.Info("push channel connected", zap.String("conn_id", s.info.ConnID), zap.String("url", target))

	go s.readLoop()
	return s, nil
}

// Info describes the connection.
func (s *Socket) Info() ConnInfo {
	return s.info
}

// Emit writes one event frame.
func (s *Socket) Emit(ctx context.Context, event string, payload any) error {
	select {
	case <-s.done:
		return ErrClosed
	default:
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrapf(err, "encode %s payload", event)
	}
	frame, err := json.Marshal(Frame{Event: event, Data: data})
	if err != nil {
		return errors.Wrap(err, "encode frame")
	}

	deadline := time.Now().Add(writeTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_ = s.conn.SetWriteDeadline(deadline)
	if err := s.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		s.log.Warn("websocket write error", zap.String("event", event), zap.Error(err))
		observability.IncWSEvent(kind, "ws_error")
		s.shutdown(err)
		return errors.Wrapf(err, "emit %s", event)
	}
	observability.IncPushEvent("out", event)
	return nil
}

// Done is closed when the connection ends.
func (s *Socket) Done() <-chan struct{} {
	return s.done
}

// Err reports why the connection ended.
func (s *Socket) Err() error {
	select {
	case <-s.done:
		return s.reason
	default:
		return nil
	}
}

// Close sends a close frame and tears the connection down.
func (s *Socket) Close() error {
	s.writeMu.Lock()
	_ = s.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	s.writeMu.Unlock()
	s.shutdown(nil)
	return nil
}

func (s *Socket) readLoop() {
	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				select {
				case <-s.done:
				default:
					observability.IncWSEvent(kind, "ws_error")
					s.log.Warn("push channel read failed", zap.String("conn_id", s.info.ConnID), zap.Error(err))
				}
			}
			s.shutdown(err)
			return
		}

		var frame Frame
		if err := json.Unmarshal(raw, &frame); err != nil || frame.Event == "" {
			observability.IncPushDecodeError("frame")
			s.log.Warn("malformed push frame", zap.ByteString("frame", raw), zap.Error(err))
			continue
		}
		if n := s.Dispatch(frame.Event, frame.Data); n == 0 {
			s.log.Debug("push event without handler", zap.String("event", frame.Event))
		}
	}
}

func (s *Socket) shutdown(reason error) {
	s.once.Do(func() {
		s.reason = reason
		close(s.done)
		_ = s.conn.Close()
		observability.DecWSActive(kind)
		observability.IncWSEvent(kind, "ws_disconnect")
		s.log.Info("push channel closed",
			zap.String("conn_id", s.info.ConnID),
			zap.Int64("duration_ms", time.Since(s.info.ConnectedAt).Milliseconds()))
	})
}
