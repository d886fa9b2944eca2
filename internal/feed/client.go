package feed

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/npezzotti/apex-protocol/internal/types"
	"github.com/sirupsen/logrus"
	"github.com/teris-io/shortid"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 64
)

// Viewer describes who is on the other end of a feed connection. A zero
// Viewer is an anonymous guest.
type Viewer struct {
	UserId int
	Member bool
}

type Client struct {
	id       string
	conn     *websocket.Conn
	hub      *Hub
	log      *logrus.Logger
	userId   int
	member   bool
	send     chan *types.FeedEvent
	stop     chan struct{}
	stopOnce sync.Once
}

func NewClient(conn *websocket.Conn, hub *Hub, l *logrus.Logger, v Viewer) (*Client, error) {
	id, err := shortid.Generate()
	if err != nil {
		return nil, err
	}

	return &Client{
		id:     id,
		conn:   conn,
		hub:    hub,
		log:    l,
		userId: v.UserId,
		member: v.Member,
		send:   make(chan *types.FeedEvent, sendBuffer),
		stop:   make(chan struct{}),
	}, nil
}

func (c *Client) Id() string {
	return c.id
}

func (c *Client) Write() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
		c.log.WithField("client_id", c.id).Debug("feed write exiting")
	}()

	for {
		select {
		case evt := <-c.send:
			bytes, err := serializeMessage(evt)
			if err != nil {
				c.log.WithError(err).Error("failed to serialize feed event")
				continue
			}

			if !c.sendMessage(websocket.TextMessage, bytes) {
				return
			}
		case <-c.stop:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
			return
		case <-ticker.C:
			if !c.sendMessage(websocket.PingMessage, nil) {
				return
			}
		}
	}
}

// Read drains the connection so control frames get processed. The feed is
// push only, so any data frames are ignored.
func (c *Client) Read() {
	defer func() {
		c.conn.Close()
		c.hub.deRegister(c)
		c.stopClient()
		c.log.WithField("client_id", c.id).Debug("feed read exiting")
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error { c.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				c.log.WithError(err).Warn("ws: read")
			}
			return
		}
	}
}

func (c *Client) queueMessage(evt *types.FeedEvent) bool {
	select {
	case c.send <- evt:
	default:
		return false
	}

	return true
}

func serializeMessage(evt *types.FeedEvent) ([]byte, error) {
	return json.Marshal(evt)
}

func (c *Client) sendMessage(msgType int, msg []byte) bool {
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))

	if err := c.conn.WriteMessage(msgType, msg); err != nil {
		if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
			websocket.CloseNormalClosure) {
			c.log.WithError(err).Warn("write message")
		}
		return false
	}

	return true
}

func (c *Client) stopClient() {
	c.stopOnce.Do(func() {
		close(c.stop)
	})
}
