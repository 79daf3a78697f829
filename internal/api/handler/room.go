package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/playroomlabs/partyroom/internal/api/request"
	"github.com/playroomlabs/partyroom/internal/api/response"
	"github.com/playroomlabs/partyroom/internal/model"
	"github.com/playroomlabs/partyroom/internal/services/rooms"
	"github.com/playroomlabs/partyroom/internal/sse"
)

// RoomHandler handles room-related endpoints
type RoomHandler struct {
	manager *rooms.Manager
}

// NewRoomHandler creates a new room handler
func NewRoomHandler(manager *rooms.Manager) *RoomHandler {
	return &RoomHandler{manager: manager}
}

// Create handles POST /api/v1/rooms
func (h *RoomHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req request.CreateRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}

	room, err := h.manager.CreateRoom(r.Context(), model.GameKind(req.Kind))
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusCreated, response.RoomFromModel(room))
}

// Get handles GET /api/v1/rooms/{code}
func (h *RoomHandler) Get(w http.ResponseWriter, r *http.Request) {
	code := model.RoomCode(mux.Vars(r)["code"])

	room, err := h.manager.Room(r.Context(), code)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.RoomFromModel(room))
}

// Join handles POST /api/v1/rooms/{code}/join
func (h *RoomHandler) Join(w http.ResponseWriter, r *http.Request) {
	code := model.RoomCode(mux.Vars(r)["code"])

	var req request.JoinRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}
	if req.Username == "" {
		WriteError(w, NewInvalidRequestError("username is required"))
		return
	}

	player, err := h.manager.JoinRoom(r.Context(), code, req.Username)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusCreated, response.PlayerFromModel(player))
}

// AddAI handles POST /api/v1/rooms/{code}/ai
func (h *RoomHandler) AddAI(w http.ResponseWriter, r *http.Request) {
	code := model.RoomCode(mux.Vars(r)["code"])

	var req request.AddAIRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		// Allow empty body for a default profile
		req = request.AddAIRequest{}
	}

	player, err := h.manager.AddAIPlayer(r.Context(), code, req.Username, req.Personality)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusCreated, response.PlayerFromModel(player))
}

// Leave handles POST /api/v1/rooms/{code}/leave
func (h *RoomHandler) Leave(w http.ResponseWriter, r *http.Request) {
	code := model.RoomCode(mux.Vars(r)["code"])

	var req request.LeaveRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}

	if err := h.manager.LeaveRoom(r.Context(), code, model.PlayerID(req.PlayerID)); err != nil {
		WriteError(w, err)
		return
	}

	response.NoContent(w)
}

// Command handles POST /api/v1/rooms/{code}/command
func (h *RoomHandler) Command(w http.ResponseWriter, r *http.Request) {
	code := model.RoomCode(mux.Vars(r)["code"])

	var req request.CommandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}
	if req.Name == "" {
		WriteError(w, NewInvalidRequestError("name is required"))
		return
	}

	if err := h.manager.HandleCommand(code, model.PlayerID(req.PlayerID), req.Name, req.Value); err != nil {
		WriteError(w, err)
		return
	}

	response.NoContent(w)
}

// Vote handles POST /api/v1/rooms/{code}/vote
func (h *RoomHandler) Vote(w http.ResponseWriter, r *http.Request) {
	code := model.RoomCode(mux.Vars(r)["code"])

	var req request.VoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}

	if err := h.manager.HandleVote(code, model.PlayerID(req.PlayerID), model.PlayerID(req.TargetID)); err != nil {
		WriteError(w, err)
		return
	}

	response.NoContent(w)
}

// Chat handles POST /api/v1/rooms/{code}/chat
func (h *RoomHandler) Chat(w http.ResponseWriter, r *http.Request) {
	code := model.RoomCode(mux.Vars(r)["code"])

	var req request.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}

	if err := h.manager.SendChat(code, model.PlayerID(req.PlayerID), req.Text); err != nil {
		WriteError(w, err)
		return
	}

	response.NoContent(w)
}

// ChatHistory handles GET /api/v1/rooms/{code}/chat
func (h *RoomHandler) ChatHistory(w http.ResponseWriter, r *http.Request) {
	code := model.RoomCode(mux.Vars(r)["code"])

	history, err := h.manager.ChatHistory(r.Context(), code)
	if err != nil {
		WriteError(w, err)
		return
	}

	messages := make([]response.ChatMessage, 0, len(history))
	for _, msg := range history {
		messages = append(messages, response.ChatMessageFromModel(msg))
	}
	response.JSON(w, http.StatusOK, messages)
}

// SetDrawing handles PUT /api/v1/rooms/{code}/drawing
func (h *RoomHandler) SetDrawing(w http.ResponseWriter, r *http.Request) {
	code := model.RoomCode(mux.Vars(r)["code"])

	var req request.DrawingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}

	if err := h.manager.SetDrawing(r.Context(), code, model.PlayerID(req.PlayerID), req.Data); err != nil {
		WriteError(w, err)
		return
	}

	response.NoContent(w)
}

// GameState handles GET /api/v1/rooms/{code}/state
func (h *RoomHandler) GameState(w http.ResponseWriter, r *http.Request) {
	code := model.RoomCode(mux.Vars(r)["code"])

	state, err := h.manager.GameState(code)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, state)
}

// Events handles GET /api/v1/rooms/{code}/events
func (h *RoomHandler) Events(w http.ResponseWriter, r *http.Request) {
	code := model.RoomCode(mux.Vars(r)["code"])
	playerID := model.PlayerID(r.URL.Query().Get("player_id"))

	hub := h.manager.Hub(code)
	if hub == nil {
		WriteError(w, model.ErrRoomNotFound)
		return
	}

	sse.ServeSSE(w, r, hub, playerID)
}
