package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/chromedp/cdproto"
	"github.com/gorilla/websocket"
)

// maxMessageSize must tolerate full-DOM and accessibility dumps.
const maxMessageSize = 100 << 20 // 100 MiB

// eventBuffer bounds the notification stream; oldest events are dropped
// when a caller isn't draining it.
const eventBuffer = 64

// wireMessage is the protocol envelope in both directions.
// A response carries id and exactly one of result/error; an event carries
// method and params but no id.
type wireMessage struct {
	ID        int64           `json:"id,omitempty"`
	SessionID string          `json:"sessionId,omitempty"`
	Method    string          `json:"method,omitempty"`
	Params    json.RawMessage `json:"params,omitempty"`
	Result    json.RawMessage `json:"result,omitempty"`
	Error     *cdproto.Error      `json:"error,omitempty"`
}

// Event is an asynchronous protocol notification (a message with no id).
type Event struct {
	Method string
	Params json.RawMessage
}

// Session owns one WebSocket connection to a resolved target. Commands get
// strictly monotonic per-connection ids; a background reader dispatches each
// response to its waiting caller through a one-shot channel, and routes
// event-type messages to Events instead of dropping them.
type Session struct {
	conn   *websocket.Conn
	nextID atomic.Int64

	mu      sync.Mutex
	pending map[int64]chan *wireMessage
	closed  bool
	readErr error

	events chan Event
	done   chan struct{}

	writeMu sync.Mutex
}

// Dial opens one connection to the target's event endpoint. The caller must
// Close on every exit path.
func Dial(ctx context.Context, wsURL string) (*Session, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", wsURL, err)
	}
	conn.SetReadLimit(maxMessageSize)

	s := &Session{
		conn:    conn,
		pending: make(map[int64]chan *wireMessage),
		events:  make(chan Event, eventBuffer),
		done:    make(chan struct{}),
	}
	go s.readLoop()
	return s, nil
}

func (s *Session) readLoop() {
	defer close(s.done)
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			s.failPending(err)
			return
		}

		var msg wireMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			slog.Debug("discarding malformed message", "err", err)
			continue
		}

		if msg.ID != 0 {
			s.mu.Lock()
			ch, ok := s.pending[msg.ID]
			if ok {
				delete(s.pending, msg.ID)
			}
			s.mu.Unlock()
			if ok {
				ch <- &msg
			}
			continue
		}

		if msg.Method != "" {
			select {
			case s.events <- Event{Method: msg.Method, Params: msg.Params}:
			default:
				// Stream full: drop the oldest so recent events survive.
				select {
				case <-s.events:
				default:
				}
				select {
				case s.events <- Event{Method: msg.Method, Params: msg.Params}:
				default:
				}
			}
		}
	}
}

// failPending wakes every outstanding caller with the transport error.
func (s *Session) failPending(err error) {
	s.mu.Lock()
	s.readErr = err
	for id, ch := range s.pending {
		delete(s.pending, id)
		ch <- &wireMessage{ID: id, Error: &cdproto.Error{Code: -1, Message: err.Error()}}
	}
	s.mu.Unlock()
}

// Events exposes asynchronous protocol notifications received on this
// connection.
func (s *Session) Events() <-chan Event {
	return s.events
}

// Send transmits one command and blocks until the response with the same id
// arrives, the connection drops, or ctx is cancelled. An error field on the
// response is authoritative over result and is returned verbatim.
func (s *Session) Send(ctx context.Context, method string, params any) (json.RawMessage, error) {
	return s.SendScoped(ctx, "", method, params)
}

// SendScoped is Send with a session-scoping identifier for cross-frame
// targets.
func (s *Session) SendScoped(ctx context.Context, sessionID, method string, params any) (json.RawMessage, error) {
	id := s.nextID.Add(1)

	msg := wireMessage{ID: id, SessionID: sessionID, Method: method}
	if params != nil {
		raw, err := json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("marshal %s params: %w", method, err)
		}
		msg.Params = raw
	}
	data, err := json.Marshal(&msg)
	if err != nil {
		return nil, err
	}

	ch := make(chan *wireMessage, 1)
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, fmt.Errorf("session closed")
	}
	if s.readErr != nil {
		err := s.readErr
		s.mu.Unlock()
		return nil, fmt.Errorf("send %s: %w", method, err)
	}
	s.pending[id] = ch
	s.mu.Unlock()

	s.writeMu.Lock()
	err = s.conn.WriteMessage(websocket.TextMessage, data)
	s.writeMu.Unlock()
	if err != nil {
		s.mu.Lock()
		delete(s.pending, id)
		s.mu.Unlock()
		return nil, fmt.Errorf("send %s: %w", method, err)
	}

	select {
	case resp := <-ch:
		if resp.Error != nil {
			return nil, fmt.Errorf("CDP error: %w", resp.Error)
		}
		return resp.Result, nil
	case <-ctx.Done():
		s.mu.Lock()
		delete(s.pending, id)
		s.mu.Unlock()
		return nil, ctx.Err()
	}
}

// Close tears the connection down and wakes the reader. Safe to call on
// every exit path, more than once.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	err := s.conn.Close()
	<-s.done
	return err
}
