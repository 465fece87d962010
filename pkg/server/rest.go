package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"boardhost/pkg/session"
	"boardhost/pkg/store"
)

// registerGameRoutes wires every /games and /games/{id}/... endpoint from
// spec §6.1 onto mux using Go 1.22's method+wildcard ServeMux patterns.
func (c *GameServerCore) registerGameRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /games", c.handleCreateGame)
	mux.HandleFunc("GET /games/{id}", c.handleGetState)
	mux.HandleFunc("POST /games/{id}/action", c.handleAction)
	mux.HandleFunc("GET /games/{id}/history", c.handleHistory)
	mux.HandleFunc("POST /games/{id}/undo", c.handleUndo)
	mux.HandleFunc("POST /games/{id}/restart", c.handleRestart)
	mux.HandleFunc("POST /games/{id}/rewind", c.handleRewind)

	mux.HandleFunc("GET /games/{id}/lobby", c.handleGetLobby)
	mux.HandleFunc("POST /games/{id}/claim-position", c.handleClaimSeat)
	mux.HandleFunc("POST /games/{id}/leave-position", c.handleLeaveSeat)
	mux.HandleFunc("POST /games/{id}/set-ready", c.handleSetReady)
	mux.HandleFunc("POST /games/{id}/add-slot", c.handleAddSlot)
	mux.HandleFunc("POST /games/{id}/remove-slot", c.handleRemoveSlot)
	mux.HandleFunc("POST /games/{id}/set-slot-ai", c.handleSetSlotAI)
	mux.HandleFunc("POST /games/{id}/kick-player", c.handleKickPlayer)
	mux.HandleFunc("POST /games/{id}/player-options", c.handlePlayerOptions)
	mux.HandleFunc("POST /games/{id}/game-options", c.handleGameOptions)
	mux.HandleFunc("POST /games/{id}/slot-player-options", c.handleSlotPlayerOptions)
	mux.HandleFunc("POST /games/{id}/update-name", c.handleUpdateName)

	mux.HandleFunc("POST /games/{id}/start-action", c.handleStartAction)
	mux.HandleFunc("POST /games/{id}/selection-step", c.handleSelectionStep)
	mux.HandleFunc("POST /games/{id}/cancel-action", c.handleCancelAction)
	mux.HandleFunc("GET /games/{id}/pending-action", c.handlePendingAction)
	mux.HandleFunc("GET /games/{id}/selection-choices", c.handleSelectionChoices)
}

func (c *GameServerCore) registerMatchmakingRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /matchmaking/join", c.handleMatchmakingJoin)
	mux.HandleFunc("POST /matchmaking/leave", c.handleMatchmakingLeave)
	mux.HandleFunc("GET /matchmaking/status", c.handleMatchmakingStatus)
}

// decodeAndValidate reads r's body once, runs it through the named
// InputValidator operation (whose validators expect JSON-decoded
// map[string]interface{} params, numbers as float64), then unmarshals the
// same bytes into v. Re-decoding through a map mirrors the shape the
// WebSocket dispatcher validates requests in, so both transports share one
// validation vocabulary.
func (c *GameServerCore) decodeAndValidate(w http.ResponseWriter, r *http.Request, operation string, v interface{}) bool {
	if r.Body == nil {
		writeError(w, &session.Error{Code: session.ErrCodeInvalidArgs, Message: "missing request body"})
		return false
	}
	defer r.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(r.Body, c.config.MaxRequestSize+1))
	if err != nil {
		writeError(w, &session.Error{Code: session.ErrCodeInvalidArgs, Message: err.Error()})
		return false
	}

	var params map[string]interface{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &params); err != nil {
			writeError(w, &session.Error{Code: session.ErrCodeInvalidArgs, Message: "invalid JSON body: " + err.Error()})
			return false
		}
	}
	if err := c.validator.ValidateRequest(operation, params, int64(len(raw))); err != nil {
		writeError(w, &session.Error{Code: session.ErrCodeInvalidArgs, Message: err.Error()})
		return false
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, v); err != nil {
			writeError(w, &session.Error{Code: session.ErrCodeInvalidArgs, Message: "invalid JSON body: " + err.Error()})
			return false
		}
	}
	return true
}

// sessionFor resolves the {id} path value to a live Session, writing a
// NOT_FOUND error and returning ok=false if it is not currently hosted.
func (c *GameServerCore) sessionFor(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	gameID := r.PathValue("id")
	if err := c.validator.ValidateGameID(gameID); err != nil {
		writeError(w, &session.Error{Code: session.ErrCodeInvalidArgs, Message: err.Error()})
		return nil, false
	}
	sess, ok := c.registry.Get(gameID)
	if !ok {
		writeError(w, &session.Error{Code: session.ErrCodeNotFound, Message: "no such game: " + gameID})
		return nil, false
	}
	return sess, true
}

func seatFromQuery(r *http.Request, key string) int {
	seat, _ := strconv.Atoi(r.URL.Query().Get(key))
	return seat
}

// ---- lifecycle ----

type createGameRequest struct {
	GameType      string                             `json:"gameType"`
	PlayerCount   int                                `json:"playerCount"`
	PlayerNames   []string                           `json:"playerNames"`
	PlayerIDs     map[string]string                  `json:"playerIds"`
	Seed          int64                              `json:"seed"`
	AIPlayers     []int                              `json:"aiPlayers"`
	AILevel       string                             `json:"aiLevel"`
	GameOptions   map[string]interface{}             `json:"gameOptions"`
	PlayerConfigs map[string]map[string]interface{}  `json:"playerConfigs"`
	UseLobby      bool                               `json:"useLobby"`
	CreatorID     string                             `json:"creatorId"`
}

func (c *GameServerCore) handleCreateGame(w http.ResponseWriter, r *http.Request) {
	var req createGameRequest
	if !c.decodeAndValidate(w, r, "createGame", &req) {
		return
	}

	def, err := c.gameTypes.MustGet(req.GameType)
	if err != nil {
		writeError(w, &session.Error{Code: session.ErrCodeInvalidArgs, Message: err.Error()})
		return
	}

	names := req.PlayerNames
	if len(names) == 0 {
		names = make([]string, req.PlayerCount)
		for i := range names {
			names[i] = "Player " + strconv.Itoa(i+1)
		}
	}

	playerIDs := make(map[int]string, len(req.PlayerIDs))
	for seatStr, id := range req.PlayerIDs {
		seat, _ := strconv.Atoi(seatStr)
		playerIDs[seat] = id
	}

	aiSeats := make(map[int]string, len(req.AIPlayers))
	level := req.AILevel
	if level == "" {
		level = "medium"
	}
	for _, seat := range req.AIPlayers {
		aiSeats[seat] = level
	}

	gameID := c.newGameID()
	ctx := r.Context()
	record := newRecord(gameID, req, playerIDs)
	if err := c.timeouts.RunRequest(ctx, func(tctx context.Context) error {
		return c.store.CreateGame(tctx, record)
	}); err != nil {
		writeError(w, &session.Error{Code: session.ErrCodeInternal, Message: err.Error()})
		return
	}

	sess, err := session.New(def, c.store, c.sessionConfig(), session.NewGameParams{
		GameID:      gameID,
		GameType:    req.GameType,
		Seed:        req.Seed,
		PlayerNames: names,
		PlayerIDs:   playerIDs,
		AISeats:     aiSeats,
		GameOptions: req.GameOptions,
		UseLobby:    req.UseLobby,
		CreatorID:   req.CreatorID,
	}, c.lobbies)
	if err != nil {
		writeError(w, err)
		return
	}
	c.registry.Put(sess)

	resp := map[string]interface{}{"gameId": gameID}
	if req.UseLobby {
		resp["flowState"] = "lobby"
		if lob, lerr := sess.GetLobby(); lerr == nil {
			resp["lobby"] = lob
		}
	} else {
		resp["flowState"] = "playing"
		if state, serr := sess.GetState(1); serr == nil {
			resp["state"] = state
		}
	}
	writeSuccess(w, http.StatusCreated, resp)
}

func newRecord(gameID string, req createGameRequest, playerIDs map[int]string) store.Record {
	now := time.Now()
	return store.Record{
		GameID:       gameID,
		GameType:     req.GameType,
		Seed:         req.Seed,
		PlayerCount:  req.PlayerCount,
		CreatedAt:    now,
		LastActivity: now,
		GameOptions:  req.GameOptions,
		PlayerIDs:    playerIDs,
	}
}

func (c *GameServerCore) handleGetState(w http.ResponseWriter, r *http.Request) {
	if websocket.IsWebSocketUpgrade(r) {
		c.handleWebSocket(w, r)
		return
	}

	sess, ok := c.sessionFor(w, r)
	if !ok {
		return
	}
	seat := seatFromQuery(r, "player")
	state, err := sess.GetState(seat)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]interface{}{"state": state})
}

type actionRequest struct {
	Action string                 `json:"action"`
	Player int                    `json:"player"`
	Args   map[string]interface{} `json:"args"`
}

func (c *GameServerCore) handleAction(w http.ResponseWriter, r *http.Request) {
	sess, ok := c.sessionFor(w, r)
	if !ok {
		return
	}
	var req actionRequest
	if !c.decodeAndValidate(w, r, "action", &req) {
		return
	}
	states, err := sess.PerformAction(req.Player, req.Action, req.Args)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]interface{}{"states": states})
}

func (c *GameServerCore) handleHistory(w http.ResponseWriter, r *http.Request) {
	sess, ok := c.sessionFor(w, r)
	if !ok {
		return
	}
	hist, err := sess.GetHistory()
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]interface{}{"history": hist})
}

func (c *GameServerCore) handleUndo(w http.ResponseWriter, r *http.Request) {
	sess, ok := c.sessionFor(w, r)
	if !ok {
		return
	}
	seat := seatFromQuery(r, "player")
	states, err := sess.UndoToTurnStart(seat)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]interface{}{"states": states})
}

func (c *GameServerCore) handleRestart(w http.ResponseWriter, r *http.Request) {
	sess, ok := c.sessionFor(w, r)
	if !ok {
		return
	}
	states, _, err := sess.RewindToAction(0)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]interface{}{"states": states})
}

type rewindRequest struct {
	ActionIndex int `json:"actionIndex"`
}

func (c *GameServerCore) handleRewind(w http.ResponseWriter, r *http.Request) {
	sess, ok := c.sessionFor(w, r)
	if !ok {
		return
	}
	var req rewindRequest
	if !c.decodeAndValidate(w, r, "rewind", &req) {
		return
	}
	states, discarded, err := sess.RewindToAction(req.ActionIndex)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]interface{}{"states": states, "discarded": discarded})
}

// ---- lobby ----

func (c *GameServerCore) handleGetLobby(w http.ResponseWriter, r *http.Request) {
	sess, ok := c.sessionFor(w, r)
	if !ok {
		return
	}
	lob, err := sess.GetLobby()
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]interface{}{"lobby": lob})
}

type claimSeatRequest struct {
	Seat     int    `json:"seat"`
	PlayerID string `json:"playerId"`
	Name     string `json:"name"`
}

func (c *GameServerCore) handleClaimSeat(w http.ResponseWriter, r *http.Request) {
	sess, ok := c.sessionFor(w, r)
	if !ok {
		return
	}
	var req claimSeatRequest
	if !c.decodeAndValidate(w, r, "claimSeat", &req) {
		return
	}
	if err := sess.ClaimSeat(req.Seat, req.PlayerID, req.Name); err != nil {
		writeError(w, err)
		return
	}
	writeLobbySuccess(w, sess)
}

type playerIDRequest struct {
	PlayerID string `json:"playerId"`
}

func (c *GameServerCore) handleLeaveSeat(w http.ResponseWriter, r *http.Request) {
	sess, ok := c.sessionFor(w, r)
	if !ok {
		return
	}
	var req playerIDRequest
	if !c.decodeAndValidate(w, r, "leaveSeat", &req) {
		return
	}
	if err := sess.LeaveSeat(req.PlayerID); err != nil {
		writeError(w, err)
		return
	}
	writeLobbySuccess(w, sess)
}

type setReadyRequest struct {
	PlayerID string `json:"playerId"`
	Ready    bool   `json:"ready"`
}

func (c *GameServerCore) handleSetReady(w http.ResponseWriter, r *http.Request) {
	sess, ok := c.sessionFor(w, r)
	if !ok {
		return
	}
	var req setReadyRequest
	if !c.decodeAndValidate(w, r, "setReady", &req) {
		return
	}
	if err := sess.SetReady(req.PlayerID, req.Ready); err != nil {
		writeError(w, err)
		return
	}
	writeLobbySuccess(w, sess)
}

type hostRequest struct {
	HostID string `json:"hostId"`
}

func (c *GameServerCore) handleAddSlot(w http.ResponseWriter, r *http.Request) {
	sess, ok := c.sessionFor(w, r)
	if !ok {
		return
	}
	var req hostRequest
	if !c.decodeAndValidate(w, r, "addSlot", &req) {
		return
	}
	if err := sess.AddSlot(req.HostID); err != nil {
		writeError(w, err)
		return
	}
	writeLobbySuccess(w, sess)
}

type slotSeatRequest struct {
	HostID string `json:"hostId"`
	Seat   int    `json:"seat"`
}

func (c *GameServerCore) handleRemoveSlot(w http.ResponseWriter, r *http.Request) {
	sess, ok := c.sessionFor(w, r)
	if !ok {
		return
	}
	var req slotSeatRequest
	if !c.decodeAndValidate(w, r, "removeSlot", &req) {
		return
	}
	if err := sess.RemoveSlot(req.HostID, req.Seat); err != nil {
		writeError(w, err)
		return
	}
	writeLobbySuccess(w, sess)
}

type setSlotAIRequest struct {
	HostID  string `json:"hostId"`
	Seat    int    `json:"seat"`
	IsAI    bool   `json:"isAI"`
	AILevel string `json:"aiLevel"`
}

func (c *GameServerCore) handleSetSlotAI(w http.ResponseWriter, r *http.Request) {
	sess, ok := c.sessionFor(w, r)
	if !ok {
		return
	}
	var req setSlotAIRequest
	if !c.decodeAndValidate(w, r, "setSlotAI", &req) {
		return
	}
	if err := sess.SetSlotAI(req.HostID, req.Seat, req.IsAI, req.AILevel); err != nil {
		writeError(w, err)
		return
	}
	writeLobbySuccess(w, sess)
}

func (c *GameServerCore) handleKickPlayer(w http.ResponseWriter, r *http.Request) {
	sess, ok := c.sessionFor(w, r)
	if !ok {
		return
	}
	var req slotSeatRequest
	if !c.decodeAndValidate(w, r, "kickPlayer", &req) {
		return
	}
	if err := sess.KickPlayer(req.HostID, req.Seat); err != nil {
		writeError(w, err)
		return
	}
	writeLobbySuccess(w, sess)
}

type playerOptionsRequest struct {
	PlayerID      string                 `json:"playerId"`
	PlayerOptions map[string]interface{} `json:"playerOptions"`
}

func (c *GameServerCore) handlePlayerOptions(w http.ResponseWriter, r *http.Request) {
	sess, ok := c.sessionFor(w, r)
	if !ok {
		return
	}
	var req playerOptionsRequest
	if !c.decodeAndValidate(w, r, "updatePlayerOptions", &req) {
		return
	}
	if err := sess.UpdatePlayerOptions(req.PlayerID, req.PlayerOptions); err != nil {
		writeError(w, err)
		return
	}
	writeLobbySuccess(w, sess)
}

type slotPlayerOptionsRequest struct {
	HostID        string                 `json:"hostId"`
	Seat          int                    `json:"seat"`
	PlayerOptions map[string]interface{} `json:"playerOptions"`
}

func (c *GameServerCore) handleSlotPlayerOptions(w http.ResponseWriter, r *http.Request) {
	sess, ok := c.sessionFor(w, r)
	if !ok {
		return
	}
	var req slotPlayerOptionsRequest
	if !c.decodeAndValidate(w, r, "updateSlotPlayerOptions", &req) {
		return
	}
	if err := sess.UpdateSlotPlayerOptions(req.HostID, req.Seat, req.PlayerOptions); err != nil {
		writeError(w, err)
		return
	}
	writeLobbySuccess(w, sess)
}

type gameOptionsRequest struct {
	HostID      string                 `json:"hostId"`
	GameOptions map[string]interface{} `json:"gameOptions"`
}

func (c *GameServerCore) handleGameOptions(w http.ResponseWriter, r *http.Request) {
	sess, ok := c.sessionFor(w, r)
	if !ok {
		return
	}
	var req gameOptionsRequest
	if !c.decodeAndValidate(w, r, "updateGameOptions", &req) {
		return
	}
	if err := sess.UpdateGameOptions(req.HostID, req.GameOptions); err != nil {
		writeError(w, err)
		return
	}
	writeLobbySuccess(w, sess)
}

type updateNameRequest struct {
	PlayerID string `json:"playerId"`
	Name     string `json:"name"`
}

func (c *GameServerCore) handleUpdateName(w http.ResponseWriter, r *http.Request) {
	sess, ok := c.sessionFor(w, r)
	if !ok {
		return
	}
	var req updateNameRequest
	if !c.decodeAndValidate(w, r, "updateName", &req) {
		return
	}
	if err := sess.UpdateSlotName(req.PlayerID, req.Name); err != nil {
		writeError(w, err)
		return
	}
	writeLobbySuccess(w, sess)
}

func writeLobbySuccess(w http.ResponseWriter, sess *session.Session) {
	lob, err := sess.GetLobby()
	if err != nil {
		writeError(w, err)
		return
	}
	extra := map[string]interface{}{"lobby": lob}
	if lob == nil {
		if state, serr := sess.GetState(0); serr == nil {
			extra["state"] = state
		}
	}
	writeSuccess(w, http.StatusOK, extra)
}

// ---- pending actions ----

func (c *GameServerCore) handleStartAction(w http.ResponseWriter, r *http.Request) {
	sess, ok := c.sessionFor(w, r)
	if !ok {
		return
	}
	var req actionRequest
	if !c.decodeAndValidate(w, r, "startAction", &req) {
		return
	}
	st, err := sess.StartPendingAction(req.Player, req.Action, req.Args)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]interface{}{"pending": st})
}

type selectionStepRequest struct {
	Player    int         `json:"player"`
	Selection string      `json:"selection"`
	Choice    interface{} `json:"choice"`
}

func (c *GameServerCore) handleSelectionStep(w http.ResponseWriter, r *http.Request) {
	sess, ok := c.sessionFor(w, r)
	if !ok {
		return
	}
	var req selectionStepRequest
	if !c.decodeAndValidate(w, r, "selectionStep", &req) {
		return
	}
	step, states, err := sess.ProcessSelectionStep(req.Player, req.Selection, req.Choice)
	if err != nil {
		writeError(w, err)
		return
	}
	resp := map[string]interface{}{"step": step}
	if states != nil {
		resp["states"] = states
	}
	writeSuccess(w, http.StatusOK, resp)
}

type seatRequest struct {
	Player int `json:"player"`
}

func (c *GameServerCore) handleCancelAction(w http.ResponseWriter, r *http.Request) {
	sess, ok := c.sessionFor(w, r)
	if !ok {
		return
	}
	var req seatRequest
	if !c.decodeAndValidate(w, r, "cancelAction", &req) {
		return
	}
	if err := sess.CancelPendingAction(req.Player); err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, nil)
}

func (c *GameServerCore) handlePendingAction(w http.ResponseWriter, r *http.Request) {
	sess, ok := c.sessionFor(w, r)
	if !ok {
		return
	}
	seat := seatFromQuery(r, "player")
	st, found, err := sess.GetPendingAction(seat)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]interface{}{"pending": st, "found": found})
}

func (c *GameServerCore) handleSelectionChoices(w http.ResponseWriter, r *http.Request) {
	sess, ok := c.sessionFor(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	seat := seatFromQuery(r, "player")
	def, err := sess.GetSelectionChoices(q.Get("action"), q.Get("selection"), seat, nil)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]interface{}{"choices": def})
}

// ---- matchmaking ----

type matchmakingJoinRequest struct {
	GameType    string `json:"gameType"`
	PlayerCount int    `json:"playerCount"`
	PlayerID    string `json:"playerId"`
	PlayerName  string `json:"playerName"`
}

func (c *GameServerCore) handleMatchmakingJoin(w http.ResponseWriter, r *http.Request) {
	var req matchmakingJoinRequest
	if !c.decodeAndValidate(w, r, "matchmakingJoin", &req) {
		return
	}
	result, err := c.matchmaker.Join(req.GameType, req.PlayerCount, req.PlayerID, req.PlayerName)
	if err != nil {
		writeError(w, &session.Error{Code: session.ErrCodeInvalidArgs, Message: err.Error()})
		return
	}

	if !result.Matched {
		writeSuccess(w, http.StatusOK, map[string]interface{}{"matched": false, "result": result})
		return
	}

	def, err := c.gameTypes.MustGet(req.GameType)
	if err != nil {
		writeError(w, &session.Error{Code: session.ErrCodeInvalidArgs, Message: err.Error()})
		return
	}

	names := make([]string, len(result.Players))
	playerIDs := make(map[int]string, len(result.Players))
	for _, p := range result.Players {
		names[p.Seat-1] = p.PlayerName
		playerIDs[p.Seat] = p.PlayerID
	}

	ctx := r.Context()
	now := time.Now()
	rec := store.Record{
		GameID:       result.GameID,
		GameType:     req.GameType,
		PlayerCount:  req.PlayerCount,
		CreatedAt:    now,
		LastActivity: now,
		PlayerIDs:    playerIDs,
	}
	if err := c.timeouts.RunRequest(ctx, func(tctx context.Context) error {
		return c.store.CreateGame(tctx, rec)
	}); err != nil {
		writeError(w, &session.Error{Code: session.ErrCodeInternal, Message: err.Error()})
		return
	}

	sess, err := session.New(def, c.store, c.sessionConfig(), session.NewGameParams{
		GameID:      result.GameID,
		GameType:    req.GameType,
		PlayerNames: names,
		PlayerIDs:   playerIDs,
	}, c.lobbies)
	if err != nil {
		writeError(w, err)
		return
	}
	c.registry.Put(sess)

	writeSuccess(w, http.StatusOK, map[string]interface{}{"matched": true, "result": result})
}

func (c *GameServerCore) handleMatchmakingLeave(w http.ResponseWriter, r *http.Request) {
	var req playerIDRequest
	if !c.decodeAndValidate(w, r, "matchmakingLeave", &req) {
		return
	}
	if err := c.matchmaker.Leave(req.PlayerID); err != nil {
		writeError(w, &session.Error{Code: session.ErrCodeNotFound, Message: err.Error()})
		return
	}
	writeSuccess(w, http.StatusOK, nil)
}

func (c *GameServerCore) handleMatchmakingStatus(w http.ResponseWriter, r *http.Request) {
	playerID := r.URL.Query().Get("playerId")
	result, err := c.matchmaker.Status(playerID)
	if err != nil {
		writeError(w, &session.Error{Code: session.ErrCodeNotFound, Message: err.Error()})
		return
	}
	writeSuccess(w, http.StatusOK, map[string]interface{}{"result": result})
}
