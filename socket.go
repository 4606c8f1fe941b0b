/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/samber/lo"

	"github.com/Seednode/impostor/hub"
	"github.com/Seednode/impostor/protocol"
	"github.com/Seednode/impostor/room"
)

const (
	pongWait       = 60 * time.Second
	pingInterval   = (pongWait * 9) / 10
	writeWait      = 10 * time.Second
	maxMessageSize = 64 << 10
	sendBuffer     = 32
)

// Client is one websocket connection. Outbound messages are queued on send
// and written by writePump; a full queue drops the message rather than
// stalling the room that produced it. The hub closes a client that drops a
// message addressed to it alone.
type Client struct {
	id   string
	conn *websocket.Conn
	send chan protocol.Message

	done chan struct{}
	once sync.Once
}

func newClient(conn *websocket.Conn) *Client {
	return &Client{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan protocol.Message, sendBuffer),
		done: make(chan struct{}),
	}
}

func (c *Client) ID() string {
	return c.id
}

func (c *Client) Send(msg protocol.Message) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

// Close ends the connection. readPump then fails its read and runs the
// usual disconnect cleanup.
func (c *Client) Close() {
	c.once.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

func (c *Client) readPump(cfg *Config, h *hub.Hub, svc *room.Service, sess *room.Session) {
	defer func() {
		svc.Disconnect(c.id)
		h.Unregister(c.id)
		c.Close()

		logf(cfg, "SOCKET: %s disconnected", c.id)
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logf(cfg, "SOCKET: Unexpected close for %s: %v", c.id, err)
			}

			return
		}

		svc.HandleFrame(sess, data)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingInterval)

	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case <-c.done:
			return
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func newUpgrader(cfg *Config) *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return originAllowed(cfg.origins, r.Header.Get("Origin"))
		},
	}
}

// originAllowed matches scheme://host origins case-insensitively. Requests
// without an Origin header come from non-browser clients and are allowed.
func originAllowed(allowed []string, origin string) bool {
	if origin == "" || lo.Contains(allowed, "*") {
		return true
	}

	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return false
	}

	return lo.ContainsBy(allowed, func(a string) bool {
		return strings.EqualFold(strings.TrimSuffix(a, "/"), u.Scheme+"://"+u.Host)
	})
}

func serveSocket(cfg *Config, h *hub.Hub, svc *room.Service) httprouter.Handle {
	upgrader := newUpgrader(cfg)

	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logf(cfg, "SOCKET: Upgrade failed for %s: %v", realIP(r), err)

			return
		}

		c := newClient(conn)
		h.Register(c)
		sess := svc.Connect(c.id)

		logf(cfg, "SOCKET: %s connected from %s", c.id, realIP(r))

		go c.writePump()
		c.readPump(cfg, h, svc, sess)
	}
}
