package collab

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/inamate/pixelkit/internal/engine"
)

const saveTimeout = 10 * time.Second

type Room struct {
	projectID string
	clients   map[string]*Client // clientID -> client
	presence  *PresenceManager
	session   *Session
}

func NewRoom(projectID string, session *Session) *Room {
	return &Room{
		projectID: projectID,
		clients:   make(map[string]*Client),
		presence:  NewPresenceManager(),
		session:   session,
	}
}

// Hub owns the rooms. A room, and its engine, lives while it has clients.
type Hub struct {
	mu         sync.RWMutex
	rooms      map[string]*Room // projectID -> room
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	stopOnce   sync.Once
	load       Loader
	save       Saver
}

func NewHub(load Loader, save Saver) *Hub {
	return &Hub{
		rooms:      make(map[string]*Room),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		load:       load,
		save:       save,
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		case <-h.done:
			return
		}
	}
}

// Stop ends Run and saves every room with unsaved changes.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })

	h.mu.RLock()
	rooms := make([]*Room, 0, len(h.rooms))
	for _, r := range h.rooms {
		rooms = append(rooms, r)
	}
	h.mu.RUnlock()

	for _, r := range rooms {
		h.flush(r)
	}
}

func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		client.Close()
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

func (h *Hub) room(projectID string) *Room {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.rooms[projectID]
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	room, ok := h.rooms[client.ProjectID]
	if !ok {
		ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
		eng, err := h.load(ctx, client.ProjectID)
		cancel()
		if err != nil {
			h.mu.Unlock()
			slog.Error("load project", "error", err, "project", client.ProjectID)
			client.Send(newMessage(TypeError, ErrorPayload{Message: "could not load project"}))
			client.Close()
			return
		}
		room = NewRoom(client.ProjectID, NewSession(client.ProjectID, eng, h.save))
		h.rooms[client.ProjectID] = room
	}
	room.clients[client.ClientID] = client
	h.mu.Unlock()

	client.Send(newMessage(TypeWelcome, WelcomePayload{
		ClientID:    client.ClientID,
		UserID:      client.UserID,
		DisplayName: client.DisplayName,
	}))
	h.sendSync(room, client)
	client.Send(newMessage(TypePresenceState, room.presence.State()))

	joinMsg := newMessage(TypePresenceJoin, PresenceJoinPayload{
		UserID:      client.UserID,
		DisplayName: client.DisplayName,
	})
	joinMsg.UserID = client.UserID
	h.broadcastToRoom(client.ProjectID, joinMsg, client.ClientID)

	slog.Info("client joined", "user", client.UserID, "project", client.ProjectID)
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	room, ok := h.rooms[client.ProjectID]
	if !ok || room.clients[client.ClientID] != client {
		h.mu.Unlock()
		return
	}

	delete(room.clients, client.ClientID)
	client.Close()
	room.presence.Remove(client.UserID)

	empty := len(room.clients) == 0
	if empty {
		delete(h.rooms, client.ProjectID)
	}
	h.mu.Unlock()

	if empty {
		h.flush(room)
		slog.Info("room closed", "project", client.ProjectID)
		return
	}

	if version, released := room.session.Release(client.ClientID); released {
		msg := newMessage(TypeCmdBroadcast, CommandBroadcastPayload{
			Command:       engine.Command{Type: "transform.cancel"},
			UserID:        client.UserID,
			PixelsVersion: version,
		})
		h.broadcastToRoom(client.ProjectID, msg, "")
	}

	leaveMsg := newMessage(TypePresenceLeave, PresenceLeavePayload{UserID: client.UserID})
	leaveMsg.UserID = client.UserID
	h.broadcastToRoom(client.ProjectID, leaveMsg, "")

	slog.Info("client left", "user", client.UserID, "project", client.ProjectID)
}

func (h *Hub) flush(room *Room) {
	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()
	if err := room.session.Flush(ctx); err != nil {
		slog.Error("save room", "error", err, "project", room.projectID)
	}
}

func (h *Hub) handleMessage(sender *Client, msg *Message) {
	switch msg.Type {
	case TypePresenceUpdate:
		h.handlePresenceUpdate(sender, msg)
	case TypeCmdSubmit:
		h.handleCommand(sender, msg)
	case TypeDocRequest:
		if room := h.room(sender.ProjectID); room != nil {
			h.sendSync(room, sender)
		}
	default:
		slog.Warn("unknown message type", "type", msg.Type, "user", sender.UserID)
	}
}

func (h *Hub) handlePresenceUpdate(sender *Client, msg *Message) {
	var presence PresencePayload
	if err := json.Unmarshal(msg.Payload, &presence); err != nil {
		slog.Warn("invalid presence payload", "error", err)
		return
	}

	room := h.room(sender.ProjectID)
	if room == nil {
		return
	}

	merged := room.presence.Update(sender.UserID, sender.DisplayName, presence)
	outMsg := newMessage(TypePresenceUpdate, merged)
	outMsg.UserID = sender.UserID
	h.broadcastToRoom(sender.ProjectID, outMsg, sender.ClientID)
}

func (h *Hub) handleCommand(sender *Client, msg *Message) {
	var submit CommandSubmitPayload
	if err := json.Unmarshal(msg.Payload, &submit); err != nil {
		slog.Warn("invalid command payload", "error", err, "user", sender.UserID)
		sender.Send(newMessage(TypeCmdNack, CommandNackPayload{Reason: "invalid payload"}))
		return
	}

	room := h.room(sender.ProjectID)
	if room == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	out := room.session.Submit(ctx, sender.ClientID, submit.Command)
	cancel()

	resp := out.Response
	if !resp.OK {
		slog.Debug("command rejected", "type", submit.Command.Type, "reason", resp.Error, "user", sender.UserID)
		sender.Send(newMessage(TypeCmdNack, CommandNackPayload{
			ID:            submit.ID,
			Reason:        resp.Error,
			PixelsVersion: resp.PixelsVersion,
		}))
		return
	}

	ack := newMessage(TypeCmdAck, CommandAckPayload{
		ID:            submit.ID,
		ServerSeq:     out.Seq,
		PixelsVersion: resp.PixelsVersion,
		Result:        resp.Result,
	})
	ack.Seq = out.Seq
	sender.Send(ack)

	if out.Seq == 0 {
		return
	}
	bcast := newMessage(TypeCmdBroadcast, CommandBroadcastPayload{
		Command:       submit.Command,
		UserID:        sender.UserID,
		ServerSeq:     out.Seq,
		PixelsVersion: resp.PixelsVersion,
	})
	bcast.UserID = sender.UserID
	bcast.Seq = out.Seq
	h.broadcastToRoom(sender.ProjectID, bcast, sender.ClientID)
}

func (h *Hub) sendSync(room *Room, client *Client) {
	state, err := room.session.Sync()
	if err != nil {
		slog.Error("document sync", "error", err, "project", room.projectID)
		client.Send(newMessage(TypeError, ErrorPayload{Message: "document unavailable"}))
		return
	}
	msg := newMessage(TypeDocSync, state)
	msg.Seq = state.ServerSeq
	client.Send(msg)
}

func (h *Hub) broadcastToRoom(projectID string, msg *Message, excludeClientID string) {
	h.mu.RLock()
	room, ok := h.rooms[projectID]
	if !ok {
		h.mu.RUnlock()
		return
	}

	clients := make([]*Client, 0, len(room.clients))
	for _, c := range room.clients {
		if c.ClientID != excludeClientID {
			clients = append(clients, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range clients {
		c.Send(msg)
	}
}

// Apply runs cmd on behalf of userID outside any websocket, as HTTP handlers do.
// Connected clients receive the broadcast. Without a room the project is loaded,
// changed and saved in place.
func (h *Hub) Apply(ctx context.Context, projectID, userID string, cmd engine.Command) (engine.Response, error) {
	if room := h.room(projectID); room != nil {
		out := room.session.Submit(ctx, "", cmd)
		if out.Seq > 0 {
			msg := newMessage(TypeCmdBroadcast, CommandBroadcastPayload{
				Command:       cmd,
				UserID:        userID,
				ServerSeq:     out.Seq,
				PixelsVersion: out.Response.PixelsVersion,
			})
			msg.UserID = userID
			msg.Seq = out.Seq
			h.broadcastToRoom(projectID, msg, "")
		}
		return out.Response, nil
	}

	// Hold the hub lock so no room opens the project meanwhile.
	h.mu.Lock()
	if _, ok := h.rooms[projectID]; ok {
		h.mu.Unlock()
		return h.Apply(ctx, projectID, userID, cmd)
	}
	defer h.mu.Unlock()

	eng, err := h.load(ctx, projectID)
	if err != nil {
		return engine.Response{}, fmt.Errorf("load project: %w", err)
	}
	session := NewSession(projectID, eng, h.save)
	out := session.Submit(ctx, "", cmd)
	if err := session.Flush(ctx); err != nil {
		return out.Response, err
	}
	return out.Response, nil
}

// View runs fn against the project's current engine: the live room's when one is
// open, otherwise a freshly loaded one whose changes are discarded.
func (h *Hub) View(ctx context.Context, projectID string, fn func(*engine.Engine) error) error {
	if room := h.room(projectID); room != nil {
		return room.session.View(fn)
	}
	eng, err := h.load(ctx, projectID)
	if err != nil {
		return fmt.Errorf("load project: %w", err)
	}
	return fn(eng)
}
