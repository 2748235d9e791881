package services

import (
	"context"
	"time"

	"coinarena/game"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"github.com/sasha-s/go-deadlock"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 256
)

// Hub is the session coordinator: it owns the connections, maps each one to
// its room and player, and fans room output back out. The hub lock is never
// held while calling into a room.
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	mutex      deadlock.RWMutex

	done       <-chan struct{}
	rooms      *RoomRegistry
	scheduler  *Scheduler
	events     RoomEvents
	resetOnEnd bool
	now        func() time.Time
}

type Client struct {
	hub    *Hub
	id     string
	socket *websocket.Conn
	send   chan []byte

	// guarded by hub.mutex
	roomID   string
	playerID string
}

type HubConfig struct {
	SimTickHz   int
	BroadcastHz int
	ResetOnEnd  bool
	Clock       func() time.Time // defaults to time.Now
}

func NewHub(ctx context.Context, rooms *RoomRegistry, events RoomEvents, cfg HubConfig) *Hub {
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	h := &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       ctx.Done(),
		rooms:      rooms,
		events:     events,
		resetOnEnd: cfg.ResetOnEnd,
		now:        cfg.Clock,
	}
	h.scheduler = NewScheduler(ctx, cfg.SimTickHz, cfg.BroadcastHz, h, WithClock(cfg.Clock))
	return h
}

func (h *Hub) Rooms() *RoomRegistry {
	return h.rooms
}

func (h *Hub) Scheduler() *Scheduler {
	return h.scheduler
}

// Run serves register and unregister requests until ctx is done, then drops
// every connection.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.disconnect(client)
		case <-ctx.Done():
			h.closeAll()
			return
		}
	}
}

func (h *Hub) addClient(client *Client) {
	h.mutex.Lock()
	h.clients[client] = true
	total := len(h.clients)
	h.mutex.Unlock()
	log.Info().Str("client", client.id).Int("clients", total).Msg("client registered")
}

func (h *Hub) disconnect(client *Client) {
	h.mutex.Lock()
	if _, ok := h.clients[client]; !ok {
		h.mutex.Unlock()
		return
	}
	delete(h.clients, client)
	close(client.send)
	roomID, playerID := client.roomID, client.playerID
	client.roomID, client.playerID = "", ""
	total := len(h.clients)
	h.mutex.Unlock()

	log.Info().Str("client", client.id).Str("room", roomID).Str("player", playerID).Int("clients", total).Msg("client unregistered")
	if roomID != "" {
		h.leaveRoom(roomID, playerID)
	}
}

func (h *Hub) closeAll() {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	for client := range h.clients {
		delete(h.clients, client)
		close(client.send)
	}
}

// Dispatch routes one decoded event from client.
func (h *Hub) Dispatch(client *Client, ev game.Inbound) {
	switch e := ev.(type) {
	case game.Join:
		h.handleJoin(client, e)
	case game.Ping:
		h.sendTo(client, game.Pong{})
	case game.ToggleReady, game.Start, game.Move, game.Shoot, game.CoinClaim:
		h.handleRoomEvent(client, ev)
	}
}

func (h *Hub) handleJoin(client *Client, join game.Join) {
	if roomID, _ := h.session(client); roomID != "" {
		h.sendTo(client, game.JoinResult{Success: false, RoomID: roomID, Reason: "already in a room"})
		return
	}

	room, player, err := h.rooms.Assign(join.Name)
	if err != nil {
		log.Warn().Err(err).Str("client", client.id).Msg("join rejected")
		h.sendTo(client, game.JoinResult{Success: false, Reason: err.Error()})
		return
	}

	h.mutex.Lock()
	_, connected := h.clients[client]
	if connected {
		client.roomID, client.playerID = room.ID, player.ID
	}
	h.mutex.Unlock()
	if !connected {
		// the socket went away while we were placing it
		h.leaveRoom(room.ID, player.ID)
		return
	}

	log.Info().Str("client", client.id).Str("room", room.ID).Str("player", player.ID).Str("color", player.Color).Msg("player joined")
	h.sendTo(client, game.JoinResult{
		Success:  true,
		PlayerID: player.ID,
		RoomID:   room.ID,
		Color:    player.Color,
	})
	h.BroadcastToRoom(room.ID, room.Roster())
	h.events.RoomChanged(room.Info())
}

func (h *Hub) handleRoomEvent(client *Client, ev game.Inbound) {
	roomID, playerID := h.session(client)
	if roomID == "" {
		return
	}
	room, ok := h.rooms.Get(roomID)
	if !ok {
		return
	}

	out := room.Apply(playerID, ev, h.now())
	if out == nil {
		return
	}
	h.BroadcastToRoom(roomID, out)
	if _, started := out.(game.MatchStart); started {
		log.Info().Str("room", roomID).Str("host", playerID).Msg("match started")
		h.scheduler.Start(room)
		h.events.RoomChanged(room.Info())
	}
}

func (h *Hub) leaveRoom(roomID, playerID string) {
	room, ok := h.rooms.Get(roomID)
	if !ok {
		return
	}
	if room.Leave(playerID) == 0 {
		if h.rooms.RemoveIfEmpty(roomID) {
			h.scheduler.Stop(roomID)
			h.events.RoomClosed(roomID)
		}
		return
	}
	h.BroadcastToRoom(roomID, room.Roster())
	h.events.RoomChanged(room.Info())
}

// Snapshot fans a state snapshot out to the room.
func (h *Hub) Snapshot(roomID string, snap game.StateSnapshot) {
	h.BroadcastToRoom(roomID, snap)
}

// MatchEnded announces the result, then either resets the room for a rematch
// or discards it.
func (h *Hub) MatchEnded(room *game.Room, end game.MatchEnd) {
	log.Info().Str("room", room.ID).Str("reason", string(end.Reason)).Int("players", len(end.Leaderboard)).Msg("match ended")
	h.BroadcastToRoom(room.ID, end)
	h.events.MatchFinished(end)

	if h.resetOnEnd {
		if lobby, ok := room.Reset(); ok {
			h.BroadcastToRoom(room.ID, lobby)
			h.events.RoomChanged(room.Info())
		}
		return
	}

	if h.rooms.Remove(room.ID) {
		h.events.RoomClosed(room.ID)
	}
	h.mutex.Lock()
	for client := range h.clients {
		if client.roomID == room.ID {
			client.roomID, client.playerID = "", ""
		}
	}
	h.mutex.Unlock()
}

func (h *Hub) session(client *Client) (roomID, playerID string) {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return client.roomID, client.playerID
}

func (h *Hub) BroadcastToRoom(roomID string, out game.Outbound) {
	data, err := EncodeOutbound(out)
	if err != nil {
		log.Error().Err(err).Str("room", roomID).Msg("failed to encode broadcast")
		return
	}

	h.mutex.RLock()
	defer h.mutex.RUnlock()
	for client := range h.clients {
		if client.roomID == roomID {
			h.push(client, data)
		}
	}
}

func (h *Hub) sendTo(client *Client, out game.Outbound) {
	data, err := EncodeOutbound(out)
	if err != nil {
		log.Error().Err(err).Str("client", client.id).Msg("failed to encode message")
		return
	}

	h.mutex.RLock()
	defer h.mutex.RUnlock()
	if h.clients[client] {
		h.push(client, data)
	}
}

// push must be called with the hub lock held.
func (h *Hub) push(client *Client, data []byte) {
	select {
	case client.send <- data:
	default:
		log.Warn().Str("client", client.id).Msg("send buffer full, dropping message")
	}
}

// ConnectedClients returns the number of registered connections.
func (h *Hub) ConnectedClients() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

func (h *Hub) newClient(conn *websocket.Conn) *Client {
	return &Client{
		hub:    h,
		id:     uuid.NewString(),
		socket: conn,
		send:   make(chan []byte, sendBuffer),
	}
}

func (c *Client) ID() string {
	return c.id
}

// RegisterClient starts serving conn. After shutdown the connection is
// closed straight away.
func (h *Hub) RegisterClient(conn *websocket.Conn) *Client {
	client := h.newClient(conn)

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return client
	}

	go client.writePump()
	go client.readPump()

	return client
}

func (h *Hub) UnregisterClient(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.UnregisterClient(c)
		c.socket.Close()
	}()

	c.socket.SetReadLimit(maxMessageSize)
	c.socket.SetReadDeadline(time.Now().Add(pongWait))
	c.socket.SetPongHandler(func(string) error {
		return c.socket.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.socket.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Warn().Err(err).Str("client", c.id).Msg("websocket read error")
			}
			break
		}

		ev, err := DecodeInbound(message)
		if err != nil {
			log.Debug().Err(err).Str("client", c.id).Msg("dropping malformed message")
			continue
		}
		c.hub.Dispatch(c, ev)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.socket.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.socket.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.socket.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.socket.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)
			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.socket.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.socket.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
