package handlers

// CreateRoomRequest represents a request to create a room
type CreateRoomRequest struct {
	PlayerName string `json:"playerName"`
	Password   string `json:"password"`
}

// JoinRoomRequest represents a request to join an existing room
type JoinRoomRequest struct {
	RoomID     string `json:"roomId"`
	PlayerName string `json:"playerName"`
	Password   string `json:"password"`
}

// VoteRequest represents a request to vote on a poll. The voter fingerprint
// is derived from the caller's network origin, never taken from the body.
type VoteRequest struct {
	Vote string `json:"vote"`
}
