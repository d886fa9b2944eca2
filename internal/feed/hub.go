package feed

import (
	"sync"

	"github.com/npezzotti/apex-protocol/internal/stats"
	"github.com/npezzotti/apex-protocol/internal/types"
	"github.com/sirupsen/logrus"
)

const broadcastBuffer = 256

// Hub fans message events out to every connected feed client. All client
// bookkeeping happens on the goroutine running Run.
type Hub struct {
	log            *logrus.Logger
	stats          stats.StatsProvider
	clients        map[*Client]struct{}
	clientsLock    sync.RWMutex
	registerChan   chan *Client
	deRegisterChan chan *Client
	broadcastChan  chan types.FeedEvent
	stop           chan struct{}
	done           chan struct{}
	stopOnce       sync.Once
}

func NewHub(logger *logrus.Logger, st stats.StatsProvider) *Hub {
	return &Hub{
		log:            logger,
		stats:          st,
		clients:        make(map[*Client]struct{}),
		registerChan:   make(chan *Client),
		deRegisterChan: make(chan *Client),
		broadcastChan:  make(chan types.FeedEvent, broadcastBuffer),
		stop:           make(chan struct{}),
		done:           make(chan struct{}),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case c := <-h.registerChan:
			h.log.WithFields(logrus.Fields{"client_id": c.id, "user_id": c.userId}).Debug("feed client connected")
			h.addClient(c)
		case c := <-h.deRegisterChan:
			h.log.WithField("client_id", c.id).Debug("feed client disconnected")
			h.removeClient(c)
		case evt := <-h.broadcastChan:
			h.broadcast(evt)
		case <-h.stop:
			h.log.Info("shutting down feed hub")
			h.clientsLock.Lock()
			for c := range h.clients {
				delete(h.clients, c)
				c.stopClient()
				h.stats.FeedSubscriberRemoved()
			}
			h.clientsLock.Unlock()

			close(h.done)
			return
		}
	}
}

// Register hands a connected client to the hub. It reports false when the
// hub has already shut down.
func (h *Hub) Register(c *Client) bool {
	select {
	case h.registerChan <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) deRegister(c *Client) {
	select {
	case h.deRegisterChan <- c:
	case <-h.done:
	}
}

// Publish queues evt for delivery without blocking the caller. Events are
// dropped when the hub is backed up.
func (h *Hub) Publish(evt types.FeedEvent) {
	select {
	case h.broadcastChan <- evt:
	default:
		h.log.WithField("type", evt.Type).Warn("feed broadcast channel full, dropping event")
	}
}

func (h *Hub) NumClients() int {
	h.clientsLock.RLock()
	defer h.clientsLock.RUnlock()
	return len(h.clients)
}

func (h *Hub) Shutdown() {
	h.stopOnce.Do(func() {
		close(h.stop)
	})
	<-h.done
}

func (h *Hub) broadcast(evt types.FeedEvent) {
	h.clientsLock.Lock()
	defer h.clientsLock.Unlock()

	for c := range h.clients {
		out := types.FeedEvent{
			Type:    evt.Type,
			Message: evt.Message.ForViewer(c.member),
		}
		if !c.queueMessage(&out) {
			h.log.WithField("client_id", c.id).Warn("dropping slow feed client")
			delete(h.clients, c)
			c.stopClient()
			h.stats.FeedSubscriberRemoved()
		}
	}
}

func (h *Hub) addClient(c *Client) {
	h.clientsLock.Lock()
	defer h.clientsLock.Unlock()
	h.clients[c] = struct{}{}
	h.stats.FeedSubscriberAdded()
}

func (h *Hub) removeClient(c *Client) {
	h.clientsLock.Lock()
	defer h.clientsLock.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		h.stats.FeedSubscriberRemoved()
	}
}
