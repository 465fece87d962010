package server

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"boardhost/pkg/session"
)

// upgrader builds a websocket.Upgrader whose CheckOrigin validates the
// request's Origin header against the server's configured allow list.
func (c *GameServerCore) upgrader() *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			for _, allowed := range c.config.AllowedOrigins {
				if allowed == "*" || allowed == origin {
					return true
				}
			}
			logrus.WithField("origin", origin).Warn("websocket connection rejected: origin not allowed")
			return false
		},
	}
}

// wsConn adapts a *websocket.Conn to session.Sender, serializing concurrent
// writes the way the broadcast fan-out in Session.broadcastLocked requires.
type wsConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (w *wsConn) Send(frame interface{}) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.conn.WriteJSON(frame)
}

func (w *wsConn) Close() error {
	return w.conn.Close()
}

// inboundMessage is the envelope for every client->server frame spec §6.2
// defines. Not every field applies to every type.
type inboundMessage struct {
	Type          string                 `json:"type"`
	Action        string                 `json:"action"`
	Args          map[string]interface{} `json:"args"`
	RequestID     string                 `json:"requestId"`
	Seat          int                    `json:"seat"`
	Name          string                 `json:"name"`
	Ready         bool                   `json:"ready"`
	IsAI          bool                   `json:"isAI"`
	AILevel       string                 `json:"aiLevel"`
	PlayerOptions map[string]interface{} `json:"playerOptions"`
	GameOptions   map[string]interface{} `json:"gameOptions"`
}

// handleWebSocket upgrades GET /games/{id} into a live connection: every
// inbound frame resolves the session, mutates through it, and the
// resulting broadcast goes to every attached connection including the one
// that sent the request, per spec §6.2's dispatch invariant.
func (c *GameServerCore) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sess, ok := c.sessionFor(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	playerID := q.Get("playerId")
	seat, _ := strconv.Atoi(q.Get("player"))
	spectator := q.Get("spectator") == "true"
	if spectator {
		seat = 0
	}

	raw, err := c.upgrader().Upgrade(w, r, nil)
	if err != nil {
		logrus.WithError(err).Error("websocket upgrade failed")
		return
	}
	defer raw.Close()

	conn := &session.Connection{
		PlayerID: playerID,
		Seat:     seat,
		Liveness: session.LivenessActive,
		LastPing: time.Now(),
		Sender:   &wsConn{conn: raw},
	}
	sess.AttachConnection(conn)
	defer sess.DetachConnection(conn)

	if state, serr := sess.GetState(seat); serr == nil {
		conn.Sender.Send(map[string]interface{}{
			"type":          "state",
			"state":         state,
			"playerPosition": seat,
			"isSpectator":   seat == 0,
		})
	}

	for {
		var msg inboundMessage
		if err := raw.ReadJSON(&msg); err != nil {
			break
		}
		c.dispatchWS(sess, conn, msg)
	}
}

// dispatchWS routes one inbound frame to the matching Session mutation and
// writes either an error frame back to the origin socket or lets the
// resulting broadcast (written by Session.broadcastLocked) reach everyone.
func (c *GameServerCore) dispatchWS(sess *session.Session, origin *session.Connection, msg inboundMessage) {
	var err error
	switch msg.Type {
	case "ping":
		origin.Sender.Send(map[string]interface{}{"type": "pong", "timestamp": time.Now().Unix()})
		return
	case "getState":
		state, serr := sess.GetState(origin.Seat)
		if serr != nil {
			c.sendWSError(origin, serr)
			return
		}
		origin.Sender.Send(map[string]interface{}{"type": "state", "state": state, "playerPosition": origin.Seat})
		return
	case "getLobby":
		lob, serr := sess.GetLobby()
		if serr != nil {
			c.sendWSError(origin, serr)
			return
		}
		origin.Sender.Send(map[string]interface{}{"type": "lobby", "lobby": lob})
		return
	case "action":
		_, err = sess.PerformAction(origin.Seat, msg.Action, msg.Args)
	case "claimSeat":
		err = sess.ClaimSeat(msg.Seat, origin.PlayerID, msg.Name)
	case "updateName":
		err = sess.UpdateSlotName(origin.PlayerID, msg.Name)
	case "setReady":
		err = sess.SetReady(origin.PlayerID, msg.Ready)
	case "addSlot":
		err = sess.AddSlot(origin.PlayerID)
	case "removeSlot":
		err = sess.RemoveSlot(origin.PlayerID, msg.Seat)
	case "setSlotAI":
		err = sess.SetSlotAI(origin.PlayerID, msg.Seat, msg.IsAI, msg.AILevel)
	case "leaveSeat":
		err = sess.LeaveSeat(origin.PlayerID)
	case "kickPlayer":
		err = sess.KickPlayer(origin.PlayerID, msg.Seat)
	case "updatePlayerOptions":
		err = sess.UpdatePlayerOptions(origin.PlayerID, msg.PlayerOptions)
	case "updateSlotPlayerOptions":
		err = sess.UpdateSlotPlayerOptions(origin.PlayerID, msg.Seat, msg.PlayerOptions)
	case "updateGameOptions":
		err = sess.UpdateGameOptions(origin.PlayerID, msg.GameOptions)
	default:
		c.sendWSError(origin, &session.Error{Code: session.ErrCodeInvalidArgs, Message: "unknown message type: " + msg.Type})
		return
	}

	if err != nil {
		c.sendWSError(origin, err)
	}
	// On success the session's own broadcast path (PerformAction's internal
	// fan-out, or the lobby snapshot any of these handlers triggers) already
	// reached every attached connection, origin included.
}

func (c *GameServerCore) sendWSError(conn *session.Connection, err error) {
	conn.Sender.Send(map[string]interface{}{
		"type":      "error",
		"error":     err.Error(),
		"errorCode": string(session.CodeOf(err)),
	})
}
