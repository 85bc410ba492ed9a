package handlers

import (
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/skip2/go-qrcode"

	"github.com/RamanujanDittakavi/multiplayer-battle-simulator/internal/gateway"
	"github.com/RamanujanDittakavi/multiplayer-battle-simulator/internal/polls"
)

// handleGetPoll returns a poll with its derived vote shares
func (h *Handlers) handleGetPoll(w http.ResponseWriter, r *http.Request) {
	pollID := chi.URLParam(r, "pollID")
	if pollID == "" {
		respondError(w, BadRequest("Missing poll id"))
		return
	}

	poll, err := h.Polls.Get(pollID)
	if err != nil {
		respondError(w, err)
		return
	}

	respondOK(w, NewPollResponse(poll))
}

// handleVote counts one vote for the caller's network origin
func (h *Handlers) handleVote(w http.ResponseWriter, r *http.Request) {
	pollID := chi.URLParam(r, "pollID")
	if pollID == "" {
		respondError(w, BadRequest("Missing poll id"))
		return
	}

	var req VoteRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	choice, ok := polls.ParseChoice(req.Vote)
	if !ok {
		respondError(w, BadRequest("Vote must be \"player1\" or \"player2\""))
		return
	}

	poll, err := h.Polls.Vote(r.Context(), pollID, voterFingerprint(r), choice)
	if err != nil {
		respondError(w, err)
		return
	}

	respondOK(w, NewPollResponse(poll))
}

// handlePollQR serves a QR code PNG pointing at the public poll page
func (h *Handlers) handlePollQR(w http.ResponseWriter, r *http.Request) {
	pollID := chi.URLParam(r, "pollID")
	if pollID == "" {
		respondError(w, BadRequest("Missing poll id"))
		return
	}

	if _, err := h.Polls.Get(pollID); err != nil {
		respondError(w, err)
		return
	}

	png, err := qrcode.Encode(gateway.PollURL(h.baseURL, pollID), qrcode.Medium, 256)
	if err != nil {
		respondError(w, InternalError(err))
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.Write(png)
}

// voterFingerprint derives the deduplication key from the caller's network
// origin. The RealIP middleware has already resolved proxy headers. This is
// an opaque key, not a spoofing-proof identity.
func voterFingerprint(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
