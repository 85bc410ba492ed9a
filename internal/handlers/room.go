package handlers

import "net/http"

// handleCreateRoom creates a room and assigns the creator to slot 0
func (h *Handlers) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	var req CreateRoomRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	roomID, playerID, err := h.Registry.CreateRoom(r.Context(), req.PlayerName, req.Password)
	if err != nil {
		respondError(w, err)
		return
	}

	respondCreated(w, RoomResponse{RoomID: roomID, PlayerID: playerID})
}

// handleJoinRoom assigns the caller to slot 1 of an existing room
func (h *Handlers) handleJoinRoom(w http.ResponseWriter, r *http.Request) {
	var req JoinRoomRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	roomID, playerID, err := h.Registry.JoinRoom(r.Context(), req.RoomID, req.PlayerName, req.Password)
	if err != nil {
		respondError(w, err)
		return
	}

	respondOK(w, RoomResponse{RoomID: roomID, PlayerID: playerID})
}

// handleHealthz reports process and storage health
func (h *Handlers) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if h.Storage != nil {
		if err := h.Storage.Ping(r.Context()); err != nil {
			respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
			return
		}
	}
	respondOK(w, map[string]string{"status": "ok"})
}
