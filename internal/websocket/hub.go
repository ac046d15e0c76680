// Package websocket streams completed simulation results to connected
// clients, keyed by scenario name.
package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rzzdr/credit-risk-engine/pkg/models"
	"github.com/rzzdr/credit-risk-engine/pkg/utils/logger"
)

// ResultSource supplies the latest stored result for a scenario, sent as a
// snapshot when a client subscribes
type ResultSource interface {
	GetResult(scenarioName string) (*models.SimulationResult, error)
}

// Hub maintains the set of active clients and fans out simulation results.
// The clients map is owned by the Run goroutine; everything reaches it
// through the register, unregister and broadcast channels.
type Hub struct {
	clients       map[*Client]bool
	broadcast     chan broadcastEnvelope
	register      chan *Client
	unregister    chan *Client
	subscriptions map[string]map[*Client]bool // scenario -> clients
	source        ResultSource
	log           *logger.Logger
	mu            sync.RWMutex
}

// broadcastEnvelope carries one marshaled result plus the scenario it
// belongs to, so the hub loop can filter per client
type broadcastEnvelope struct {
	scenario string
	data     []byte
}

// Client is a middleman between one websocket connection and the hub
type Client struct {
	hub           *Hub
	conn          *websocket.Conn
	send          chan []byte
	id            string
	subscriptions map[string]bool // scenarios this client follows
	mu            sync.RWMutex
}

// Message is the envelope for everything the hub sends
type Message struct {
	Type     string      `json:"type"`
	Scenario string      `json:"scenario,omitempty"`
	Data     interface{} `json:"data,omitempty"`
	Error    string      `json:"error,omitempty"`
	ID       string      `json:"id,omitempty"`
}

// SubscriptionMessage is the request envelope clients send
type SubscriptionMessage struct {
	Type      string   `json:"type"`
	Scenarios []string `json:"scenarios"`
	ID        string   `json:"id,omitempty"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 512
)

var clientSeq atomic.Uint64

// NewHub creates a new result-streaming hub
func NewHub(source ResultSource) *Hub {
	return &Hub{
		clients:       make(map[*Client]bool),
		broadcast:     make(chan broadcastEnvelope, 256),
		register:      make(chan *Client),
		unregister:    make(chan *Client),
		subscriptions: make(map[string]map[*Client]bool),
		source:        source,
		log:           logger.GetLogger("websocket.hub"),
	}
}

// Run starts the hub loop; it returns when the context is canceled
func (h *Hub) Run(ctx context.Context) {
	h.log.Info("Starting WebSocket hub")

	for {
		select {
		case <-ctx.Done():
			h.log.Info("WebSocket hub shutting down")
			return

		case client := <-h.register:
			h.clients[client] = true
			h.log.Infof("Client %s registered", client.id)

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				h.removeClientSubscriptions(client)
				h.log.Infof("Client %s unregistered", client.id)
			}

		case envelope := <-h.broadcast:
			for client := range h.clients {
				client.mu.RLock()
				interested := len(client.subscriptions) == 0 || client.subscriptions[envelope.scenario]
				client.mu.RUnlock()

				if !interested {
					continue
				}

				select {
				case client.send <- envelope.data:
				default:
					// Slow consumer, drop it
					delete(h.clients, client)
					close(client.send)
					h.removeClientSubscriptions(client)
				}
			}
		}
	}
}

// BroadcastResult fans a completed result out to the clients following its
// scenario. Clients with no explicit subscriptions receive every result.
// The send is non-blocking; under sustained backlog the oldest results win.
func (h *Hub) BroadcastResult(result *models.SimulationResult) {
	if result == nil {
		return
	}

	summary := *result
	summary.Losses = nil

	data, err := json.Marshal(Message{
		Type:     "simulation_result",
		Scenario: result.ScenarioName,
		Data:     &summary,
	})
	if err != nil {
		h.log.Errorf("Failed to marshal result broadcast: %v", err)
		return
	}

	select {
	case h.broadcast <- broadcastEnvelope{scenario: result.ScenarioName, data: data}:
	default:
		h.log.Warnf("Broadcast queue full, dropping result for scenario %q", result.ScenarioName)
	}
}

// HandleWebSocket upgrades the connection and starts the client pumps
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Errorf("WebSocket upgrade failed: %v", err)
		return
	}

	client := &Client{
		hub:           h,
		conn:          conn,
		send:          make(chan []byte, 256),
		id:            fmt.Sprintf("client-%d", clientSeq.Add(1)),
		subscriptions: make(map[string]bool),
	}

	client.hub.register <- client

	go client.writePump()
	go client.readPump()
}

// removeClientSubscriptions drops a client from every scenario index
func (h *Hub) removeClientSubscriptions(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for scenario, clients := range h.subscriptions {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.subscriptions, scenario)
		}
	}
}

// readPump pumps messages from the websocket connection to the hub
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, messageData, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Errorf("WebSocket error: %v", err)
			}
			break
		}

		c.handleMessage(messageData)
	}
}

// writePump pumps messages from the hub to the websocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
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

// handleMessage dispatches one incoming client message
func (c *Client) handleMessage(messageData []byte) {
	var msg SubscriptionMessage
	if err := json.Unmarshal(messageData, &msg); err != nil {
		c.sendError("Invalid message format")
		return
	}

	switch msg.Type {
	case "subscribe":
		c.handleSubscription(msg)
	case "unsubscribe":
		c.handleUnsubscription(msg)
	case "ping":
		c.sendMessage(Message{Type: "pong", ID: msg.ID})
	default:
		c.sendError("Unknown message type")
	}
}

// handleSubscription registers interest in scenarios and sends the latest
// stored result for each as a snapshot
func (c *Client) handleSubscription(msg SubscriptionMessage) {
	c.mu.Lock()
	for _, scenario := range msg.Scenarios {
		c.subscriptions[scenario] = true
	}
	c.mu.Unlock()

	c.hub.mu.Lock()
	for _, scenario := range msg.Scenarios {
		if c.hub.subscriptions[scenario] == nil {
			c.hub.subscriptions[scenario] = make(map[*Client]bool)
		}
		c.hub.subscriptions[scenario][c] = true
	}
	c.hub.mu.Unlock()

	if c.hub.source != nil {
		for _, scenario := range msg.Scenarios {
			if result, err := c.hub.source.GetResult(scenario); err == nil {
				snapshot := *result
				snapshot.Losses = nil
				c.sendMessage(Message{
					Type:     "result_snapshot",
					Scenario: scenario,
					Data:     &snapshot,
					ID:       msg.ID,
				})
			}
		}
	}

	c.sendMessage(Message{
		Type: "subscription_confirmed",
		Data: map[string]interface{}{
			"scenarios": msg.Scenarios,
		},
		ID: msg.ID,
	})
}

// handleUnsubscription drops interest in scenarios
func (c *Client) handleUnsubscription(msg SubscriptionMessage) {
	c.mu.Lock()
	for _, scenario := range msg.Scenarios {
		delete(c.subscriptions, scenario)
	}
	c.mu.Unlock()

	c.hub.mu.Lock()
	for _, scenario := range msg.Scenarios {
		if clients, exists := c.hub.subscriptions[scenario]; exists {
			delete(clients, c)
			if len(clients) == 0 {
				delete(c.hub.subscriptions, scenario)
			}
		}
	}
	c.hub.mu.Unlock()

	c.sendMessage(Message{
		Type: "unsubscription_confirmed",
		Data: map[string]interface{}{
			"scenarios": msg.Scenarios,
		},
		ID: msg.ID,
	})
}

// sendMessage sends a message to the client
func (c *Client) sendMessage(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		c.hub.log.Errorf("Failed to marshal message: %v", err)
		return
	}

	select {
	case c.send <- data:
	default:
		c.hub.log.Warnf("Send buffer full for client %s", c.id)
	}
}

// sendError sends an error message to the client
func (c *Client) sendError(message string) {
	c.sendMessage(Message{Type: "error", Error: message})
}
