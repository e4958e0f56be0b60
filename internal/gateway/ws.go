package gateway

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/nivram710/snapline/backend/internal/events"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	sendBufferSize = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Cross-origin is handled by the CORS middleware on the HTTP layer.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsClient adapts a websocket connection to the hub's Session interface.
type wsClient struct {
	conn *websocket.Conn
	send chan events.Event
}

// Send hands the event to the write pump. A full buffer means the client is
// too slow to keep up; the event is dropped and the error lets the hub
// unregister the session.
func (c *wsClient) Send(ev events.Event) error {
	select {
	case c.send <- ev:
		return nil
	default:
		return errors.New("send buffer full")
	}
}

func (c *wsClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case ev := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(ev); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ServeWS upgrades the request to a websocket session for the given user and
// blocks until the connection closes. The read loop only consumes control
// frames; clients receive events, they don't send them over this channel.
func ServeWS(hub *Hub, userID uint, w http.ResponseWriter, r *http.Request) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	client := &wsClient{conn: conn, send: make(chan events.Event, sendBufferSize)}
	connID := hub.Register(r.Context(), userID, client)
	go client.writePump()

	conn.SetReadLimit(512)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	hub.Unregister(r.Context(), userID, connID)
	// Closing the connection makes the write pump exit on its next write.
	// The send channel stays open so a concurrent Publish can never panic.
	conn.Close()
	return nil
}
