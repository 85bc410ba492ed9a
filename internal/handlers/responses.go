package handlers

import "github.com/RamanujanDittakavi/multiplayer-battle-simulator/internal/polls"

// RoomResponse is the response for room creation and joining
type RoomResponse struct {
	RoomID   string `json:"roomId"`
	PlayerID string `json:"playerId"`
}

// PercentagesResponse is each team's share of the total vote, 0-100
type PercentagesResponse struct {
	Player1 float64 `json:"player1"`
	Player2 float64 `json:"player2"`
}

// PollResponse is a poll plus its derived vote shares
type PollResponse struct {
	polls.Poll
	TotalVotes  int                 `json:"totalVotes"`
	Percentages PercentagesResponse `json:"percentages"`
}

// NewPollResponse computes the derived fields for a poll
func NewPollResponse(p polls.Poll) PollResponse {
	p1, p2 := p.Votes.Percentages()
	return PollResponse{
		Poll:        p,
		TotalVotes:  p.Votes.Total(),
		Percentages: PercentagesResponse{Player1: p1, Player2: p2},
	}
}
