package repository

import "context"

// RoomRecord is the persisted form of a room: its code, pairing password and
// the JSON state document (players plus session).
type RoomRecord struct {
	RoomID   string
	Password string
	State    []byte
}

// PollRecord is the persisted form of a poll. Teams is the JSON snapshot of
// both (name, composition) pairs taken at finalize time.
type PollRecord struct {
	PollID string
	RoomID string
	Teams  []byte
	Votes1 int
	Votes2 int
	Voters []string
}

// RoomRepository defines room persistence operations
type RoomRepository interface {
	SaveRoom(ctx context.Context, rec RoomRecord) error
	GetRoom(ctx context.Context, roomID string) (RoomRecord, error)
	ListRooms(ctx context.Context) ([]RoomRecord, error)
}

// PollRepository defines poll persistence operations
type PollRepository interface {
	CreatePoll(ctx context.Context, rec PollRecord) error
	GetPoll(ctx context.Context, pollID string) (PollRecord, error)
	ListPolls(ctx context.Context) ([]PollRecord, error)
	// AddVote records the fingerprint and increments the chosen tally in a
	// single transaction. choice is "player1" or "player2".
	AddVote(ctx context.Context, pollID, fingerprint, choice string) error
	DeletePoll(ctx context.Context, pollID string) error
}

// FullRepository combines all repository interfaces
type FullRepository interface {
	RoomRepository
	PollRepository
}

// Ensure Repository implements all interfaces
var _ FullRepository = (*Repository)(nil)
