package api

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/panchamjain/suvidha/pkg/log"
	"github.com/panchamjain/suvidha/pkg/suggest"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// Message types exchanged over /api/suggest/ws.
const (
	MessageInput    = "input"
	MessageSubmit   = "submit"
	MessageSelect   = "select"
	MessageRecent   = "recent"
	MessageInit     = "init"
	MessageError    = "error"
	MessageSnapshot = suggest.EventSnapshot
	MessageNavigate = suggest.EventNavigate
)

// HandleSuggestWS runs a live suggestion session: one orchestrator per
// connection, fed by client input messages and streaming every snapshot and
// navigation event back.
func (s *Server) HandleSuggestWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warnf("websocket upgrade failed: %v", err)
		return
	}

	opts := append([]suggest.Option{}, s.suggestOpts...)
	if s.history != nil {
		opts = append(opts, suggest.WithRecents(s.history))
	}

	sess := &session{
		id:           uuid.NewString(),
		conn:         conn,
		orchestrator: suggest.New(s.searcher, opts...),
		recentLimit:  s.recentLimit,
		replies:      make(chan ServerMessage, 16),
		writerDone:   make(chan struct{}),
	}
	sess.logger = s.logger.Named(sess.id[:8])

	s.sessions.Add(1)
	s.track(sess)
	if s.metrics != nil {
		s.metrics.SessionOpened()
	}
	defer func() {
		if s.metrics != nil {
			s.metrics.SessionClosed()
		}
		s.untrack(sess)
		s.sessions.Done()
	}()

	sess.run(r.Context())
}

type session struct {
	id           string
	conn         *websocket.Conn
	orchestrator *suggest.Orchestrator
	recentLimit  int
	logger       *log.Logger

	replies    chan ServerMessage
	writerDone chan struct{}
	closeOnce  sync.Once
}

func (c *session) run(ctx context.Context) {
	c.logger.Debugf("session opened")
	defer c.logger.Debugf("session closed")

	_, events := c.orchestrator.Subscribe()

	go c.writeLoop(events)
	c.reply(ServerMessage{Type: MessageInit, Session: c.id})

	c.readLoop(ctx)

	// Closing the orchestrator closes events, which ends the writer.
	c.orchestrator.Close()
	<-c.writerDone
	c.close()
}

func (c *session) readLoop(ctx context.Context) {
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg ClientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warnf("read failed: %v", err)
			}
			return
		}
		c.handle(ctx, msg)
	}
}

func (c *session) handle(ctx context.Context, msg ClientMessage) {
	switch msg.Type {
	case MessageInput:
		c.orchestrator.Input(msg.Query)
	case MessageSubmit:
		c.orchestrator.Submit(msg.Query)
	case MessageSelect:
		for _, r := range c.orchestrator.Snapshot().Suggestions {
			if r.ID == msg.ID {
				c.orchestrator.Select(r)
				return
			}
		}
		c.reply(ServerMessage{Type: MessageError, Error: "unknown suggestion " + msg.ID})
	case MessageRecent:
		recent, err := c.orchestrator.Recent(ctx)
		if err != nil {
			c.reply(ServerMessage{Type: MessageError, Error: err.Error()})
			return
		}
		if len(recent) > c.recentLimit {
			recent = recent[:c.recentLimit]
		}
		if recent == nil {
			recent = []string{}
		}
		c.reply(ServerMessage{Type: MessageRecent, Recent: recent})
	default:
		c.reply(ServerMessage{Type: MessageError, Error: "unknown message type " + msg.Type})
	}
}

// reply queues a direct message for this client.
func (c *session) reply(msg ServerMessage) {
	select {
	case c.replies <- msg:
	case <-c.writerDone:
	}
}

func (c *session) writeLoop(events <-chan suggest.Event) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		close(c.writerDone)
	}()

	for {
		var msg ServerMessage
		select {
		case ev, ok := <-events:
			if !ok {
				_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
				_ = c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			msg = ServerMessage{Type: ev.Type, Snapshot: ev.Snapshot, Target: ev.Target}
		case msg = <-c.replies:
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.close()
				return
			}
			continue
		}

		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteJSON(msg); err != nil {
			c.logger.Debugf("write failed: %v", err)
			// Unblocks the reader so the session winds down.
			c.close()
			return
		}
	}
}

func (c *session) close() {
	c.closeOnce.Do(func() {
		if err := c.conn.Close(); err != nil {
			c.logger.Debugf("closing connection: %v", err)
		}
	})
}
