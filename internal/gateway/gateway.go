// Package gateway routes inbound player actions to the right room state
// machine and fans resulting snapshots back out to every subscriber of that
// room. Fan-out is best-effort: a slow client is dropped, never allowed to
// block or fail the originating command.
package gateway

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	apperrors "github.com/RamanujanDittakavi/multiplayer-battle-simulator/internal/errors"
	"github.com/RamanujanDittakavi/multiplayer-battle-simulator/internal/game"
	"github.com/RamanujanDittakavi/multiplayer-battle-simulator/internal/logger"
	"github.com/RamanujanDittakavi/multiplayer-battle-simulator/internal/polls"
	"github.com/RamanujanDittakavi/multiplayer-battle-simulator/internal/registry"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Room codes gate access, not origins
	},
}

// Event is the wire envelope for both directions of the realtime channel
type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// newEvent marshals a payload into an outbound event
func newEvent(eventType string, payload interface{}) Event {
	raw, _ := json.Marshal(payload)
	return Event{Type: eventType, Payload: raw}
}

// Inbound payloads

type joinGamePayload struct {
	RoomID   string `json:"roomId"`
	PlayerID string `json:"playerId"`
}

type selectCharacterPayload struct {
	RoomID         string `json:"roomId"`
	PlayerID       string `json:"playerId"`
	CharacterIndex int    `json:"characterIndex"`
}

type updateTeamPayload struct {
	RoomID   string               `json:"roomId"`
	PlayerID string               `json:"playerId"`
	Team     game.TeamComposition `json:"team"`
}

type finalizeTeamsPayload struct {
	RoomID string `json:"roomId"`
}

// Outbound payloads

type teamUpdatedPayload struct {
	Player string               `json:"player"`
	Team   game.TeamComposition `json:"team"`
}

type pollCreatedPayload struct {
	PollID    string       `json:"pollId"`
	PollURL   string       `json:"pollUrl"`
	GameState game.Session `json:"gameState"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// Client is a middleman between one websocket connection and the hub
type Client struct {
	hub  *Hub
	conn *websocket.Conn

	// sendMu guards closed and every send into the channel; the hub may
	// drop a slow client while its own read pump is still producing events.
	sendMu   sync.Mutex
	closed   bool
	send     chan Event
	roomID   string
	playerID string
}

// trySend queues an event for the write pump. It never blocks: a closed
// client or a full buffer just reports false.
func (c *Client) trySend(event Event) bool {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- event:
		return true
	default:
		return false
	}
}

// close shuts the send channel exactly once and tears down the connection so
// the read pump exits instead of pumping events at a dead channel.
func (c *Client) close() {
	c.sendMu.Lock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
	c.sendMu.Unlock()
	c.conn.Close()
}

// Hub maintains the set of connected clients grouped by room subscription
type Hub struct {
	log      logger.Logger
	registry *registry.Registry
	ledger   *polls.Ledger
	baseURL  string

	register   chan *Client
	unregister chan *Client
	mutex      sync.RWMutex
	rooms      map[string]map[*Client]bool
}

// New creates a new Hub with injected dependencies. baseURL is the public
// address poll links are built from.
func New(log logger.Logger, reg *registry.Registry, ledger *polls.Ledger, baseURL string) *Hub {
	return &Hub{
		log:        log,
		registry:   reg,
		ledger:     ledger,
		baseURL:    baseURL,
		register:   make(chan *Client),
		unregister: make(chan *Client),
		rooms:      make(map[string]map[*Client]bool),
	}
}

// Start begins the hub's main loop in a goroutine
func (h *Hub) Start() {
	go h.run()
}

// run handles client subscription and unsubscription
func (h *Hub) run() {
	for {
		select {
		case client := <-h.register:
			h.mutex.Lock()
			if h.rooms[client.roomID] == nil {
				h.rooms[client.roomID] = make(map[*Client]bool)
			}
			h.rooms[client.roomID][client] = true
			total := len(h.rooms[client.roomID])
			h.mutex.Unlock()
			h.log.Debug("client subscribed", "room", client.roomID, "subscribers", total)

		case client := <-h.unregister:
			h.mutex.Lock()
			if subs, ok := h.rooms[client.roomID]; ok && subs[client] {
				delete(subs, client)
				if len(subs) == 0 {
					delete(h.rooms, client.roomID)
				}
			}
			h.mutex.Unlock()
			client.close()
			h.log.Debug("client unsubscribed", "room", client.roomID)
		}
	}
}

// broadcast sends an event to every subscriber of a room. except, when
// non-nil, is skipped (used for team-updated, which goes to the rest of the
// room only).
func (h *Hub) broadcast(roomID string, event Event, except *Client) {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	for client := range h.rooms[roomID] {
		if client == except {
			continue
		}
		if !client.trySend(event) {
			// Client's send buffer is full or it is gone; drop it rather
			// than block the command path
			go func(c *Client) {
				h.unregister <- c
			}(client)
		}
	}
}

// ServeWs handles websocket requests from clients
func (h *Hub) ServeWs(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error("websocket upgrade failed", "error", err)
		return
	}

	client := &Client{
		hub:  h,
		conn: conn,
		send: make(chan Event, 64),
	}

	go client.writePump()
	client.readPump()
}

// readPump pumps events from the websocket connection into the hub
func (c *Client) readPump() {
	// Unregister handles clients that never joined a room; it also closes
	// the connection and the send channel exactly once.
	defer func() {
		c.hub.unregister <- c
	}()

	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Debug("websocket read error", "error", err)
			}
			break
		}

		var event Event
		if err := json.Unmarshal(message, &event); err != nil {
			c.sendError("invalid message")
			continue
		}
		c.hub.handleEvent(c, event)
	}
}

// writePump pumps events from the hub to the websocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case event, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				// Hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			payload, _ := json.Marshal(event)
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// sendError emits an error event to this client only. Errors are never
// pushed to other subscribers of the room.
func (c *Client) sendError(message string) {
	c.trySend(newEvent("error", errorPayload{Message: message}))
}

// handleEvent dispatches one inbound event to the room state machine
func (h *Hub) handleEvent(c *Client, event Event) {
	ctx := context.Background()

	switch event.Type {
	case "join-game":
		var p joinGamePayload
		if err := json.Unmarshal(event.Payload, &p); err != nil {
			c.sendError("invalid join-game payload")
			return
		}
		h.handleJoinGame(ctx, c, p)

	case "select-character":
		var p selectCharacterPayload
		if err := json.Unmarshal(event.Payload, &p); err != nil {
			c.sendError("invalid select-character payload")
			return
		}
		h.handleSelectCharacter(ctx, c, p)

	case "update-team":
		var p updateTeamPayload
		if err := json.Unmarshal(event.Payload, &p); err != nil {
			c.sendError("invalid update-team payload")
			return
		}
		h.handleUpdateTeam(ctx, c, p)

	case "finalize-teams":
		var p finalizeTeamsPayload
		if err := json.Unmarshal(event.Payload, &p); err != nil {
			c.sendError("invalid finalize-teams payload")
			return
		}
		h.handleFinalizeTeams(ctx, c, p)

	default:
		c.sendError("unknown event type")
	}
}

// handleJoinGame subscribes the caller to its room topic, marks the player
// connected and, when the attach starts the draft, announces it to the room.
func (h *Hub) handleJoinGame(ctx context.Context, c *Client, p joinGamePayload) {
	room, err := h.registry.GetRoom(p.RoomID)
	if err != nil {
		c.sendError(err.Error())
		return
	}

	// One room per connection; a subscription never moves
	if c.roomID != "" && c.roomID != room.ID() {
		c.sendError("connection already joined a different room")
		return
	}

	snapshot, started, err := room.Attach(ctx, p.PlayerID)
	if err != nil {
		h.logCommandError("attach", p.PlayerID, err)
		c.sendError(err.Error())
		return
	}

	// A repeated join-game on the same connection just refreshes state
	if c.roomID == "" {
		c.roomID = room.ID()
		c.playerID = p.PlayerID
		h.register <- c
	}

	c.trySend(newEvent("game-state", snapshot))
	c.trySend(newEvent("room-info", room.Info()))

	if started {
		h.broadcast(room.ID(), newEvent("game-started", snapshot), nil)
	}
}

// handleSelectCharacter applies a pick and announces the new snapshot to the
// whole room. A rejected pick is reported to the caller only.
func (h *Hub) handleSelectCharacter(ctx context.Context, c *Client, p selectCharacterPayload) {
	room, err := h.registry.GetRoom(p.RoomID)
	if err != nil {
		c.sendError(err.Error())
		return
	}

	snapshot, err := room.Pick(ctx, p.PlayerID, p.CharacterIndex)
	if err != nil {
		h.logCommandError("pick", p.PlayerID, err)
		c.sendError(err.Error())
		return
	}

	h.broadcast(room.ID(), newEvent("character-selected", snapshot), nil)
}

// handleUpdateTeam replaces the caller's composition and tells the rest of
// the room (not the sender)
func (h *Hub) handleUpdateTeam(ctx context.Context, c *Client, p updateTeamPayload) {
	room, err := h.registry.GetRoom(p.RoomID)
	if err != nil {
		c.sendError(err.Error())
		return
	}

	_, playerKey, err := room.UpdateTeam(ctx, p.PlayerID, p.Team)
	if err != nil {
		h.logCommandError("update-team", p.PlayerID, err)
		c.sendError(err.Error())
		return
	}

	h.broadcast(room.ID(), newEvent("team-updated", teamUpdatedPayload{
		Player: playerKey,
		Team:   p.Team,
	}), c)
}

// handleFinalizeTeams publishes the poll and announces its address to the
// whole room
func (h *Hub) handleFinalizeTeams(ctx context.Context, c *Client, p finalizeTeamsPayload) {
	room, err := h.registry.GetRoom(p.RoomID)
	if err != nil {
		c.sendError(err.Error())
		return
	}

	snapshot, pollID, err := room.Finalize(ctx, h.ledger)
	if err != nil {
		h.logCommandError("finalize", c.playerID, err)
		c.sendError(err.Error())
		return
	}

	h.broadcast(room.ID(), newEvent("poll-created", pollCreatedPayload{
		PollID:    pollID,
		PollURL:   PollURL(h.baseURL, pollID),
		GameState: snapshot,
	}), nil)
}

// logCommandError records a failed command at the right severity. Rejected
// moves are expected traffic, not faults.
func (h *Hub) logCommandError(command, playerID string, err error) {
	var appErr *apperrors.Error
	if stderrors.As(err, &appErr) {
		switch appErr.Kind {
		case apperrors.ErrIllegalMove, apperrors.ErrDuplicateVote, apperrors.ErrNotFound:
			h.log.Debug("command rejected", "command", command, "player", playerID, "error", err)
			return
		case apperrors.ErrStorage:
			h.log.Error("command failed on storage", "command", command, "player", playerID, "error", err)
			return
		}
	}
	h.log.Warn("command failed", "command", command, "player", playerID, "error", err)
}

// PollURL builds the public address of a poll from the configured base
func PollURL(baseURL, pollID string) string {
	return baseURL + "/poll/" + pollID
}
