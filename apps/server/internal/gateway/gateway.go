package gateway

import (
	"log"
	"net/http"
	"sync"
	"time"

	"golf-lite/apps/server/internal/auth"
	"golf-lite/apps/server/internal/codec"
	"golf-lite/apps/server/internal/lobby"
	"golf-lite/apps/server/internal/room"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 65536
	sendBufferSize = 256
)

type Gateway struct {
	auth  auth.Service
	lobby *lobby.Lobby

	upgrader websocket.Upgrader

	mu        sync.Mutex
	userConns map[uint64][]*Connection
}

// Connection is one websocket. A user may hold several (reconnects, tabs);
// the room only hears ConnLost when the last one drops.
type Connection struct {
	gw   *Gateway
	ws   *websocket.Conn
	send chan []byte

	userID   uint64
	username string
	room     *room.Room
}

func New(authService auth.Service, l *lobby.Lobby) *Gateway {
	gw := &Gateway{
		auth:  authService,
		lobby: l,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		userConns: make(map[uint64][]*Connection),
	}
	l.SetBroadcast(gw.BroadcastToUser)
	return gw
}

func (gw *Gateway) HandleWS(w http.ResponseWriter, r *http.Request) {
	ws, err := gw.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[Gateway] upgrade failed: %v", err)
		return
	}
	c := &Connection{
		gw:   gw,
		ws:   ws,
		send: make(chan []byte, sendBufferSize),
	}
	go c.writePump()
	c.readPump()
}

// BroadcastToUser delivers a frame to every live connection of one user.
// Slow consumers get dropped frames, not a blocked room.
func (gw *Gateway) BroadcastToUser(userID uint64, data []byte) {
	gw.mu.Lock()
	conns := append([]*Connection(nil), gw.userConns[userID]...)
	gw.mu.Unlock()

	for _, c := range conns {
		select {
		case c.send <- data:
		default:
			log.Printf("[Gateway] dropping frame for user %d: send buffer full", userID)
		}
	}
}

func (gw *Gateway) register(c *Connection) {
	gw.mu.Lock()
	gw.userConns[c.userID] = append(gw.userConns[c.userID], c)
	gw.mu.Unlock()
}

// unregister removes the connection; returns true when it was the user's
// last one.
func (gw *Gateway) unregister(c *Connection) bool {
	if c.userID == 0 {
		return false
	}
	gw.mu.Lock()
	defer gw.mu.Unlock()

	conns := gw.userConns[c.userID]
	for i, other := range conns {
		if other == c {
			conns = append(conns[:i], conns[i+1:]...)
			break
		}
	}
	if len(conns) == 0 {
		delete(gw.userConns, c.userID)
		return true
	}
	gw.userConns[c.userID] = conns
	return false
}

func (c *Connection) readPump() {
	defer func() {
		last := c.gw.unregister(c)
		if last && c.room != nil {
			c.room.Submit(room.Event{Type: room.EventConnLost, UserID: c.userID})
		}
		// Closing the socket unblocks writePump; the send channel is left
		// open so a racing broadcast never panics.
		_ = c.ws.Close()
	}()

	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[Gateway] read error: %v", err)
			}
			return
		}
		env, err := codec.DecodeClient(data)
		if err != nil {
			c.sendError("bad_envelope", err.Error(), 0)
			continue
		}
		c.handle(env)
	}
}

func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Connection) handle(env *codec.ClientEnvelope) {
	if env.Type == "login" {
		c.handleLogin(env)
		return
	}
	if c.userID == 0 {
		c.sendError("not_authenticated", "login first", env.Seq)
		return
	}

	switch env.Type {
	case "quick_start":
		r, err := c.gw.lobby.QuickStart()
		if err != nil {
			c.sendError("quick_start_failed", err.Error(), env.Seq)
			return
		}
		c.joinRoom(r, env.Seq)

	case "join_room":
		payload, err := codec.DecodePayload[codec.JoinRoomPayload](env)
		if err != nil {
			c.sendError("bad_payload", err.Error(), env.Seq)
			return
		}
		r := c.gw.lobby.Get(payload.RoomID)
		if r == nil {
			c.sendError("room_not_found", "no such room", env.Seq)
			return
		}
		c.joinRoom(r, env.Seq)

	case "leave_room":
		if c.room == nil {
			return
		}
		if err := c.room.Call(room.Event{Type: room.EventLeave, UserID: c.userID}); err != nil {
			c.sendError("leave_failed", err.Error(), env.Seq)
			return
		}
		c.room = nil

	case "sit_down":
		payload, err := codec.DecodePayload[codec.SitDownPayload](env)
		if err != nil {
			c.sendError("bad_payload", err.Error(), env.Seq)
			return
		}
		c.roomCall(room.Event{Type: room.EventSitDown, UserID: c.userID, Seat: payload.Seat}, env.Seq)

	case "stand_up":
		c.roomCall(room.Event{Type: room.EventStandUp, UserID: c.userID}, env.Seq)

	case "add_bot":
		payload, err := codec.DecodePayload[codec.AddBotPayload](env)
		if err != nil {
			c.sendError("bad_payload", err.Error(), env.Seq)
			return
		}
		c.roomCall(room.Event{
			Type:    room.EventAddBot,
			UserID:  c.userID,
			Seat:    payload.Seat,
			Persona: payload.Persona,
		}, env.Seq)

	case "start_round":
		c.roomCall(room.Event{Type: room.EventStartRound, UserID: c.userID}, env.Seq)

	case "action":
		payload, err := codec.DecodePayload[codec.ActionPayload](env)
		if err != nil {
			c.sendError("bad_payload", err.Error(), env.Seq)
			return
		}
		act, err := codec.ParseAction(payload)
		if err != nil {
			c.sendError("bad_action", err.Error(), env.Seq)
			return
		}
		c.roomCall(room.Event{Type: room.EventAction, UserID: c.userID, Action: act}, env.Seq)

	default:
		c.sendError("unknown_type", "unknown envelope type "+env.Type, env.Seq)
	}
}

func (c *Connection) handleLogin(env *codec.ClientEnvelope) {
	payload, err := codec.DecodePayload[codec.LoginPayload](env)
	if err != nil {
		c.sendError("bad_payload", err.Error(), env.Seq)
		return
	}
	userID, username, ok := c.gw.auth.ResolveSession(payload.Token)
	if !ok {
		c.sendError("invalid_token", "session token rejected", env.Seq)
		return
	}

	firstLogin := c.userID == 0
	c.userID = userID
	c.username = username
	if firstLogin {
		c.gw.register(c)
	}
	if c.room != nil {
		c.room.Submit(room.Event{Type: room.EventConnResume, UserID: userID})
	}

	resp := codec.Envelope("login_response", "", 0, codec.LoginResponsePayload{
		UserID:   userID,
		Username: username,
	})
	c.trySend(codec.Encode(resp))
	log.Printf("[Gateway] user %d (%s) authenticated", userID, username)
}

func (c *Connection) joinRoom(r *room.Room, reqSeq uint64) {
	if c.room != nil && c.room != r {
		_ = c.room.Call(room.Event{Type: room.EventLeave, UserID: c.userID})
	}
	c.room = r
	if err := r.Call(room.Event{Type: room.EventJoin, UserID: c.userID, Name: c.username}); err != nil {
		c.room = nil
		c.sendError("join_failed", err.Error(), reqSeq)
	}
}

func (c *Connection) roomCall(ev room.Event, reqSeq uint64) {
	if c.room == nil {
		c.sendError("no_room", "join a room first", reqSeq)
		return
	}
	ev.ReqSeq = reqSeq
	if err := c.room.Call(ev); err != nil {
		c.sendError("action_rejected", err.Error(), reqSeq)
	}
}

func (c *Connection) sendError(code, msg string, reqSeq uint64) {
	env := codec.Envelope("error", "", 0, codec.ErrorPayload{Code: code, Message: msg, ReqSeq: reqSeq})
	c.trySend(codec.Encode(env))
}

func (c *Connection) trySend(data []byte) {
	select {
	case c.send <- data:
	default:
	}
}
